package transactions

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/finward/finward/internal/fraud"
	"github.com/finward/finward/internal/logging"
	"github.com/finward/finward/internal/metrics"
	"github.com/finward/finward/internal/pagination"
	"github.com/finward/finward/internal/traces"
	"github.com/finward/finward/internal/users"
)

// Service implements the transaction operations: validated writes with inline
// risk evaluation, soft deletes, listing, and reporting.
type Service struct {
	store      Store
	users      users.Store
	engine     *fraud.Engine
	reconciler *fraud.Reconciler // nil disables remote evaluation
	window     time.Duration
}

// NewService creates the transaction service. A nil reconciler means no
// remote evaluation is attempted; local scores stand on their own.
func NewService(store Store, userStore users.Store, engine *fraud.Engine, reconciler *fraud.Reconciler, recentWindow time.Duration) *Service {
	if recentWindow <= 0 {
		recentWindow = 24 * time.Hour
	}
	return &Service{
		store:      store,
		users:      userStore,
		engine:     engine,
		reconciler: reconciler,
		window:     recentWindow,
	}
}

// Page is one page of a transaction listing.
type Page struct {
	Transactions []*Transaction `json:"transactions"`
	NextCursor   string         `json:"nextCursor,omitempty"`
	HasMore      bool           `json:"hasMore"`
}

// Create validates, risk-scores, and persists a new transaction. The local
// evaluation runs inline before the first write; the remote evaluation is
// spawned afterwards and can never fail the create.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*Transaction, error) {
	ctx, span := traces.StartSpan(ctx, "transactions.Create", traces.UserID(userID))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	occurredAt := time.Now()
	if req.TransactionDate != nil {
		occurredAt = *req.TransactionDate
	}

	acct, err := s.accountContext(ctx, user, occurredAt)
	if err != nil {
		return nil, err
	}

	assessment := s.engine.Evaluate(ctx, userID, fraud.TransactionInput{
		Amount:     req.Amount,
		Category:   req.Category,
		OccurredAt: occurredAt,
	}, acct)

	tx := &Transaction{
		ID:              uuid.NewString(),
		UserID:          userID,
		Amount:          req.Amount,
		Type:            req.Type,
		Category:        req.Category,
		Description:     req.Description,
		TransactionDate: occurredAt,
		IsFraudFlagged:  assessment.HighRisk,
		FraudRiskScore:  assessment.Score,
	}

	if err := s.store.Create(ctx, tx); err != nil {
		return nil, err
	}
	span.SetAttributes(traces.TransactionID(tx.ID), traces.RiskScore(tx.FraudRiskScore), traces.HighRisk(tx.IsFraudFlagged))

	risk := "normal"
	if tx.IsFraudFlagged {
		risk = "high"
		logging.L(ctx).Warn("high-risk transaction created",
			"transaction_id", tx.ID,
			"user_id", userID,
			"amount", tx.Amount,
			"risk_score", tx.FraudRiskScore,
			"factors", assessment.Factors,
		)
	}
	metrics.TransactionsCreatedTotal.WithLabelValues(risk).Inc()

	if s.reconciler != nil {
		// Detached from the request lifecycle; the client applies its own
		// deadline. Log context (request ID) is carried over.
		bg := context.WithoutCancel(ctx)
		go s.reconciler.EvaluateAndReconcile(bg, tx.ID, userID, tx.Amount, tx.TransactionDate)
	}

	return tx, nil
}

// Update patches a transaction. Edits touching amount or type re-run the
// local evaluation against fresh account context before the write commits.
func (s *Service) Update(ctx context.Context, userID, txID string, req UpdateRequest) (*Transaction, error) {
	ctx, span := traces.StartSpan(ctx, "transactions.Update", traces.UserID(userID), traces.TransactionID(txID))
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.store.Get(ctx, userID, txID)
	if err != nil {
		return nil, err
	}
	if time.Since(tx.CreatedAt) > ModifyWindow {
		return nil, ErrTooOldToModify
	}

	if req.Amount != nil {
		tx.Amount = *req.Amount
	}
	if req.Type != nil {
		tx.Type = *req.Type
	}
	if req.Category != nil {
		tx.Category = *req.Category
	}
	if req.Description != nil {
		tx.Description = *req.Description
	}
	if req.TransactionDate != nil {
		tx.TransactionDate = *req.TransactionDate
	}

	if req.Reevaluates() {
		user, err := s.users.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		acct, err := s.accountContext(ctx, user, tx.TransactionDate)
		if err != nil {
			return nil, err
		}
		assessment := s.engine.Evaluate(ctx, userID, fraud.TransactionInput{
			Amount:     tx.Amount,
			Category:   tx.Category,
			OccurredAt: tx.TransactionDate,
		}, acct)
		tx.IsFraudFlagged = assessment.HighRisk
		tx.FraudRiskScore = assessment.Score
		span.SetAttributes(traces.RiskScore(tx.FraudRiskScore), traces.HighRisk(tx.IsFraudFlagged))
	}

	if err := s.store.Update(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// Get returns one transaction, scoped to its owner.
func (s *Service) Get(ctx context.Context, userID, txID string) (*Transaction, error) {
	return s.store.Get(ctx, userID, txID)
}

// Delete soft-deletes a transaction. The 30-day modification rule applies.
func (s *Service) Delete(ctx context.Context, userID, txID string) error {
	tx, err := s.store.Get(ctx, userID, txID)
	if err != nil {
		return err
	}
	if time.Since(tx.CreatedAt) > ModifyWindow {
		return ErrTooOldToModify
	}
	return s.store.SoftDelete(ctx, userID, txID)
}

// List returns a filtered page of transactions, newest first.
func (s *Service) List(ctx context.Context, userID string, filter ListFilter) (*Page, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	items, err := s.store.List(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	trimmed, next, more := pagination.ComputePage(items, filter.Limit, func(t *Transaction) (time.Time, string) {
		return t.TransactionDate, t.ID
	})
	if trimmed == nil {
		trimmed = []*Transaction{}
	}
	return &Page{Transactions: trimmed, NextCursor: next, HasMore: more}, nil
}

// Statistics reports income/expense totals for a period. Zero bounds default
// to the trailing month.
func (s *Service) Statistics(ctx context.Context, userID string, start, end time.Time) (*Statistics, error) {
	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.AddDate(0, -1, 0)
	}

	txs, err := s.store.ListBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{UserID: userID, Start: start, End: end}
	for _, tx := range txs {
		switch tx.Type {
		case TypeIncome:
			stats.TotalIncome += tx.Amount
			stats.IncomeCount++
		case TypeExpense:
			stats.TotalExpense += tx.Amount
			stats.ExpenseCount++
		}
		if tx.IsFraudFlagged {
			stats.FraudCount++
		}
	}
	stats.NetBalance = stats.TotalIncome - stats.TotalExpense
	return stats, nil
}

// Summary reports trailing-window activity with a top-5 category breakdown.
func (s *Service) Summary(ctx context.Context, userID string, days int) (*Summary, error) {
	if days <= 0 {
		days = 30
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	txs, err := s.store.ListBetween(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	summary := &Summary{UserID: userID, Days: days}
	byCategory := make(map[string]*CategoryTotal)
	for _, tx := range txs {
		switch tx.Type {
		case TypeIncome:
			summary.TotalIncome += tx.Amount
		case TypeExpense:
			summary.TotalExpense += tx.Amount
		}
		if tx.IsFraudFlagged {
			summary.FraudCount++
		}
		ct, ok := byCategory[tx.Category]
		if !ok {
			ct = &CategoryTotal{Category: tx.Category}
			byCategory[tx.Category] = ct
		}
		ct.Total += tx.Amount
		ct.Count++
	}

	for _, ct := range byCategory {
		summary.TopCategories = append(summary.TopCategories, *ct)
	}
	sort.Slice(summary.TopCategories, func(i, j int) bool {
		if summary.TopCategories[i].Total != summary.TopCategories[j].Total {
			return summary.TopCategories[i].Total > summary.TopCategories[j].Total
		}
		return summary.TopCategories[i].Category < summary.TopCategories[j].Category
	})
	if len(summary.TopCategories) > 5 {
		summary.TopCategories = summary.TopCategories[:5]
	}
	return summary, nil
}

// accountContext assembles the read-only account state the calculators need:
// age, verification status, and the trailing activity window before the
// candidate's own date.
func (s *Service) accountContext(ctx context.Context, user *users.User, occurredAt time.Time) (fraud.AccountContext, error) {
	recent, err := s.store.ListBetween(ctx, user.ID, occurredAt.Add(-s.window), occurredAt)
	if err != nil {
		return fraud.AccountContext{}, err
	}

	acct := fraud.AccountContext{
		CreatedAt: user.CreatedAt,
		Verified:  user.IsVerified,
	}
	for _, tx := range recent {
		acct.RecentTransactions = append(acct.RecentTransactions, fraud.RecentTransaction{
			Amount:     tx.Amount,
			OccurredAt: tx.TransactionDate,
		})
	}
	return acct, nil
}
