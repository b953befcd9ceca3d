package fraud

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostgresStore persists assessments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the fraud_assessments table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS fraud_assessments (
			id             UUID PRIMARY KEY,
			transaction_id UUID,
			user_id        UUID NOT NULL,
			score          NUMERIC(5,4) NOT NULL CHECK (score >= 0 AND score <= 1),
			high_risk      BOOLEAN NOT NULL,
			factors        JSONB NOT NULL DEFAULT '{}',
			source         VARCHAR(10) NOT NULL CHECK (source IN ('local', 'remote')),
			evaluated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_fraud_assessments_user
			ON fraud_assessments (user_id, evaluated_at DESC);

		CREATE INDEX IF NOT EXISTS idx_fraud_assessments_flagged
			ON fraud_assessments (evaluated_at DESC) WHERE high_risk;
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, assessment *Assessment) error {
	factorsJSON, err := json.Marshal(assessment.Factors)
	if err != nil {
		return fmt.Errorf("failed to marshal factors: %w", err)
	}

	var txID any
	if assessment.TransactionID != "" {
		txID = assessment.TransactionID
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fraud_assessments (id, transaction_id, user_id, score, high_risk, factors, source, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		assessment.ID,
		txID,
		assessment.UserID,
		assessment.Score,
		assessment.HighRisk,
		factorsJSON,
		assessment.Source,
		assessment.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string, limit int) ([]*Assessment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(transaction_id::text, ''), user_id, score, high_risk, factors, source, evaluated_at
		FROM fraud_assessments
		WHERE user_id = $1
		ORDER BY evaluated_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Assessment
	for rows.Next() {
		var a Assessment
		var factorsJSON []byte
		var evaluatedAt time.Time

		if err := rows.Scan(&a.ID, &a.TransactionID, &a.UserID, &a.Score, &a.HighRisk, &factorsJSON, &a.Source, &evaluatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan assessment: %w", err)
		}
		a.EvaluatedAt = evaluatedAt
		a.Factors = make(map[string]float64)
		_ = json.Unmarshal(factorsJSON, &a.Factors)
		result = append(result, &a)
	}
	return result, rows.Err()
}
