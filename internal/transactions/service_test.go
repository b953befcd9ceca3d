package transactions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finward/finward/internal/fraud"
	"github.com/finward/finward/internal/users"
)

type fixture struct {
	service *Service
	store   *MemoryStore
	users   *users.MemoryStore
	user    *users.User
}

// newFixture wires a service over memory stores with an established,
// verified account, optionally attaching a reconciler against fraudURL.
func newFixture(t *testing.T, fraudURL string) *fixture {
	t.Helper()

	store := NewMemoryStore()
	userStore := users.NewMemoryStore()

	user := &users.User{
		ID:         "6a0f81f5-1111-2222-3333-444455556666",
		Email:      "alice@example.com",
		Username:   "alice",
		IsActive:   true,
		IsVerified: true,
	}
	require.NoError(t, userStore.Create(context.Background(), user))

	engine := fraud.NewEngine(fraud.DefaultConfig(), nil)

	var reconciler *fraud.Reconciler
	if fraudURL != "" {
		reconciler = fraud.NewReconciler(fraud.NewDecisionClient(fraudURL, time.Second), store, nil)
	}

	return &fixture{
		service: NewService(store, &agedUserStore{userStore}, engine, reconciler, 24*time.Hour),
		store:   store,
		users:   userStore,
		user:    user,
	}
}

// agedUserStore reports accounts as 90 days old so the behavior factor stays
// quiet unless a test opts in.
type agedUserStore struct {
	users.Store
}

func (a *agedUserStore) Get(ctx context.Context, id string) (*users.User, error) {
	u, err := a.Store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Now().Add(-90 * 24 * time.Hour)
	return u, nil
}

func noon() time.Time {
	return time.Date(2026, 3, 10, 12, 0, 0, 0, time.Local)
}

func TestCreate(t *testing.T) {
	f := newFixture(t, "")

	date := noon()
	tx, err := f.service.Create(context.Background(), f.user.ID, CreateRequest{
		Amount:          42.50,
		Type:            "expense",
		Category:        "Groceries",
		Description:     "weekly shop",
		TransactionDate: &date,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, tx.ID)
	assert.Equal(t, f.user.ID, tx.UserID)
	assert.False(t, tx.IsFraudFlagged)
	assert.Zero(t, tx.FraudRiskScore)
	assert.False(t, tx.CreatedAt.IsZero())

	got, err := f.service.Get(context.Background(), f.user.ID, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	tests := []struct {
		name    string
		req     CreateRequest
		wantErr error
	}{
		{"zero amount", CreateRequest{Amount: 0, Type: "expense", Category: "Food"}, ErrInvalidAmount},
		{"negative amount", CreateRequest{Amount: -5, Type: "expense", Category: "Food"}, ErrInvalidAmount},
		{"amount over max", CreateRequest{Amount: 1e13 + 1, Type: "expense", Category: "Food"}, ErrInvalidAmount},
		{"bad type", CreateRequest{Amount: 5, Type: "transfer", Category: "Food"}, ErrInvalidType},
		{"missing category", CreateRequest{Amount: 5, Type: "expense"}, ErrMissingCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.Create(ctx, f.user.ID, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCreate_UnknownUser(t *testing.T) {
	f := newFixture(t, "")
	_, err := f.service.Create(context.Background(), "no-such-user", CreateRequest{
		Amount: 5, Type: "expense", Category: "Food",
	})
	assert.ErrorIs(t, err, users.ErrNotFound)
}

func TestCreate_HighRiskFlagged(t *testing.T) {
	f := newFixture(t, "")

	// amount 25000 (0.3) + Gambling (0.25) + 03:00 (0.1) = 0.65: not enough.
	// Stack repeated-amount pattern (0.15) to cross the threshold.
	ctx := context.Background()
	earlier := time.Date(2026, 3, 10, 3, 0, 0, 0, time.Local)
	for i := 0; i < 4; i++ {
		d := earlier.Add(-time.Duration(i+1) * time.Hour)
		_, err := f.service.Create(ctx, f.user.ID, CreateRequest{
			Amount: 25000, Type: "expense", Category: "Shopping", TransactionDate: &d,
		})
		require.NoError(t, err)
	}

	tx, err := f.service.Create(ctx, f.user.ID, CreateRequest{
		Amount: 25000, Type: "expense", Category: "Gambling", TransactionDate: &earlier,
	})
	require.NoError(t, err)

	assert.True(t, tx.IsFraudFlagged)
	assert.GreaterOrEqual(t, tx.FraudRiskScore, 0.75)
	assert.LessOrEqual(t, tx.FraudRiskScore, 1.0)
}

func TestCreate_RemoteVerdictOverwrites(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(fraud.Verdict{Fraudulent: true, Reason: "stolen card", RiskScore: 0.95})
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL)
	date := noon()

	tx, err := f.service.Create(context.Background(), f.user.ID, CreateRequest{
		Amount: 42.50, Type: "expense", Category: "Groceries", TransactionDate: &date,
	})
	require.NoError(t, err)

	// Local result first: clean
	assert.False(t, tx.IsFraudFlagged)

	// The remote verdict lands asynchronously and overwrites both fields
	assert.Eventually(t, func() bool {
		got, err := f.service.Get(context.Background(), f.user.ID, tx.ID)
		return err == nil && got.IsFraudFlagged && got.FraudRiskScore == 0.95
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCreate_RemoteTimeoutKeepsLocalResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	store := NewMemoryStore()
	userStore := users.NewMemoryStore()
	user := &users.User{ID: "u-1", Email: "a@b.com", Username: "alice", IsVerified: true}
	require.NoError(t, userStore.Create(context.Background(), user))

	reconciler := fraud.NewReconciler(fraud.NewDecisionClient(srv.URL, 30*time.Millisecond), store, nil)
	svc := NewService(store, &agedUserStore{userStore}, fraud.NewEngine(fraud.DefaultConfig(), nil), reconciler, 24*time.Hour)

	date := noon()
	start := time.Now()
	tx, err := svc.Create(context.Background(), user.ID, CreateRequest{
		Amount: 42.50, Type: "expense", Category: "Groceries", TransactionDate: &date,
	})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "create must not wait for the remote call")

	time.Sleep(150 * time.Millisecond)
	got, err := svc.Get(context.Background(), user.ID, tx.ID)
	require.NoError(t, err)
	assert.False(t, got.IsFraudFlagged, "timeout must leave the local result untouched")
	assert.Zero(t, got.FraudRiskScore)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	date := noon()

	tx, err := f.service.Create(ctx, f.user.ID, CreateRequest{
		Amount: 42.50, Type: "expense", Category: "Groceries", TransactionDate: &date,
	})
	require.NoError(t, err)

	desc := "corrected"
	got, err := f.service.Update(ctx, f.user.ID, tx.ID, UpdateRequest{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "corrected", got.Description)
	assert.Equal(t, 42.50, got.Amount)
	assert.Zero(t, got.FraudRiskScore, "description edits do not re-evaluate")
}

func TestUpdate_AmountChangeReevaluates(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	date := noon()

	tx, err := f.service.Create(ctx, f.user.ID, CreateRequest{
		Amount: 42.50, Type: "expense", Category: "Groceries", TransactionDate: &date,
	})
	require.NoError(t, err)
	require.Zero(t, tx.FraudRiskScore)

	amount := 15000.0
	got, err := f.service.Update(ctx, f.user.ID, tx.ID, UpdateRequest{Amount: &amount})
	require.NoError(t, err)
	assert.InDelta(t, 0.15, got.FraudRiskScore, 1e-9, "new amount must be rescored")
	assert.False(t, got.IsFraudFlagged)
}

func TestUpdate_TooOld(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	date := noon()

	tx, err := f.service.Create(ctx, f.user.ID, CreateRequest{
		Amount: 42.50, Type: "expense", Category: "Groceries", TransactionDate: &date,
	})
	require.NoError(t, err)

	// Backdate creation past the modification window
	f.store.mu.Lock()
	f.store.records[tx.ID].tx.CreatedAt = time.Now().Add(-31 * 24 * time.Hour)
	f.store.mu.Unlock()

	amount := 100.0
	_, err = f.service.Update(ctx, f.user.ID, tx.ID, UpdateRequest{Amount: &amount})
	assert.ErrorIs(t, err, ErrTooOldToModify)

	err = f.service.Delete(ctx, f.user.ID, tx.ID)
	assert.ErrorIs(t, err, ErrTooOldToModify)
}

func TestDelete(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	date := noon()

	tx, err := f.service.Create(ctx, f.user.ID, CreateRequest{
		Amount: 42.50, Type: "expense", Category: "Groceries", TransactionDate: &date,
	})
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(ctx, f.user.ID, tx.ID))

	_, err = f.service.Get(ctx, f.user.ID, tx.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = f.service.Delete(ctx, f.user.ID, tx.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletedTransactionIgnoresVerdict(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()
	date := noon()

	tx, err := f.service.Create(ctx, f.user.ID, CreateRequest{
		Amount: 42.50, Type: "expense", Category: "Groceries", TransactionDate: &date,
	})
	require.NoError(t, err)
	require.NoError(t, f.service.Delete(ctx, f.user.ID, tx.ID))

	found, err := f.store.ApplyVerdict(ctx, tx.ID, true, 0.9)
	require.NoError(t, err)
	assert.False(t, found, "verdicts for deleted transactions are dropped")
}

func TestList(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	base := noon()
	for i := 0; i < 5; i++ {
		d := base.Add(time.Duration(i) * time.Hour)
		category := "Groceries"
		if i%2 == 0 {
			category = "Transport"
		}
		_, err := f.service.Create(ctx, f.user.ID, CreateRequest{
			Amount: float64(10 + i), Type: "expense", Category: category, TransactionDate: &d,
		})
		require.NoError(t, err)
	}

	page, err := f.service.List(ctx, f.user.ID, ListFilter{Limit: 3})
	require.NoError(t, err)
	require.Len(t, page.Transactions, 3)
	assert.True(t, page.HasMore)
	assert.NotEmpty(t, page.NextCursor)
	assert.True(t, page.Transactions[0].TransactionDate.After(page.Transactions[1].TransactionDate), "newest first")

	rest, err := f.service.List(ctx, f.user.ID, ListFilter{Limit: 3, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Len(t, rest.Transactions, 2)
	assert.False(t, rest.HasMore)

	// No overlap between pages
	seen := make(map[string]bool)
	for _, tx := range page.Transactions {
		seen[tx.ID] = true
	}
	for _, tx := range rest.Transactions {
		assert.False(t, seen[tx.ID], "page overlap on %s", tx.ID)
	}

	groceries, err := f.service.List(ctx, f.user.ID, ListFilter{Category: "Groceries"})
	require.NoError(t, err)
	assert.Len(t, groceries.Transactions, 2)
}

func TestStatistics(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	base := noon()
	entries := []struct {
		amount float64
		typ    string
	}{
		{1000, "income"},
		{2500, "income"},
		{300, "expense"},
		{200, "expense"},
		{50, "expense"},
	}
	for i, e := range entries {
		d := base.Add(time.Duration(i) * time.Minute)
		_, err := f.service.Create(ctx, f.user.ID, CreateRequest{
			Amount: e.amount, Type: e.typ, Category: "General", TransactionDate: &d,
		})
		require.NoError(t, err)
	}

	stats, err := f.service.Statistics(ctx, f.user.ID, base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 3500.0, stats.TotalIncome)
	assert.Equal(t, 550.0, stats.TotalExpense)
	assert.Equal(t, 2950.0, stats.NetBalance)
	assert.Equal(t, 2, stats.IncomeCount)
	assert.Equal(t, 3, stats.ExpenseCount)
	assert.Equal(t, 0, stats.FraudCount)
}

func TestSummary_TopCategories(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	date := time.Now().Add(-time.Hour)
	categories := map[string]float64{
		"Rent": 2000, "Groceries": 600, "Transport": 300,
		"Dining": 250, "Utilities": 150, "Misc": 20,
	}
	for cat, amount := range categories {
		d := date
		_, err := f.service.Create(ctx, f.user.ID, CreateRequest{
			Amount: amount, Type: "expense", Category: cat, TransactionDate: &d,
		})
		require.NoError(t, err)
	}

	summary, err := f.service.Summary(ctx, f.user.ID, 30)
	require.NoError(t, err)

	require.Len(t, summary.TopCategories, 5, "breakdown is capped at 5 categories")
	assert.Equal(t, "Rent", summary.TopCategories[0].Category)
	assert.Equal(t, 2000.0, summary.TopCategories[0].Total)
	for _, ct := range summary.TopCategories {
		assert.NotEqual(t, "Misc", ct.Category, "smallest category is cut")
	}
	assert.Equal(t, 3320.0, summary.TotalExpense)
}

func TestOwnershipScoping(t *testing.T) {
	f := newFixture(t, "")
	ctx := context.Background()

	other := &users.User{ID: "other-user", Email: "bob@example.com", Username: "bobby", IsVerified: true}
	require.NoError(t, f.users.Create(ctx, other))

	date := noon()
	tx, err := f.service.Create(ctx, f.user.ID, CreateRequest{
		Amount: 42.50, Type: "expense", Category: "Groceries", TransactionDate: &date,
	})
	require.NoError(t, err)

	_, err = f.service.Get(ctx, other.ID, tx.ID)
	assert.ErrorIs(t, err, ErrNotFound, "other users cannot read the transaction")

	err = f.service.Delete(ctx, other.ID, tx.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
