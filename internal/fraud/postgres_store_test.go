//go:build integration

package fraud

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

func setupTestDB(t *testing.T) (*PostgresStore, string, func()) {
	t.Helper()

	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	store := NewPostgresStore(db)
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}

	userID := uuid.NewString()
	cleanup := func() {
		db.ExecContext(ctx, "DELETE FROM fraud_assessments WHERE user_id = $1", userID)
		db.Close()
	}
	return store, userID, cleanup
}

func newTestAssessment(userID string, score float64, evaluatedAt time.Time) *Assessment {
	return &Assessment{
		ID:          uuid.NewString(),
		UserID:      userID,
		Score:       score,
		HighRisk:    score >= 0.75,
		Factors:     map[string]float64{"amount": score},
		Source:      SourceLocal,
		EvaluatedAt: evaluatedAt,
	}
}

func TestPostgresAssessments_RecordAndList(t *testing.T) {
	store, userID, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour).Truncate(time.Second)
	for i, score := range []float64{0.1, 0.25, 0.6} {
		a := newTestAssessment(userID, score, base.Add(time.Duration(i)*time.Minute))
		if err := store.Record(ctx, a); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := store.ListByUser(ctx, userID, 10)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	// Every recorded row comes back; a bad row is an error, not a gap.
	if len(got) != 3 {
		t.Fatalf("ListByUser: got %d assessments, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].EvaluatedAt.After(got[i-1].EvaluatedAt) {
			t.Error("ListByUser must be ordered newest first")
		}
	}
	if got[0].Factors["amount"] != 0.6 {
		t.Errorf("factors not round-tripped: %v", got[0].Factors)
	}
	if !got[0].HighRisk && got[0].Score >= 0.75 {
		t.Errorf("high-risk flag lost: score=%f", got[0].Score)
	}
}

func TestPostgresAssessments_ListLimit(t *testing.T) {
	store, userID, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		a := newTestAssessment(userID, 0.1, base.Add(time.Duration(i)*time.Minute))
		if err := store.Record(ctx, a); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	got, err := store.ListByUser(ctx, userID, 2)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("ListByUser: got %d assessments, want 2", len(got))
	}
}
