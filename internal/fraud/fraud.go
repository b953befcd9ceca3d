// Package fraud implements multi-factor fraud risk evaluation for transactions.
//
// Every transaction create (and material edit) is scored against 5 independent
// factors: amount, recent velocity/pattern, time of day, category, and account
// behavior. Contributions are summed and clamped to [0.0, 1.0]; scores at or
// above the high-risk threshold flag the transaction. An external decision
// service may later override the local result via the Reconciler, but its
// failures are never visible to the write path.
package fraud

import (
	"context"
	"time"
)

// Evaluation source labels recorded in the audit trail.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Per-factor contribution caps.
const (
	amountCap   = 0.3
	patternCap  = 0.2
	timeCap     = 0.1
	categoryCap = 0.25
	behaviorCap = 0.15
)

// Config carries the scoring policy. Injected rather than hard-coded so the
// calculators stay pure and testable in isolation.
type Config struct {
	SuspiciousAmount   float64       // amount factor activates above this
	HighRiskThreshold  float64       // score >= threshold flags the transaction
	HighRiskCategories []string      // categories scored at the category cap
	RecentWindow       time.Duration // trailing window for velocity checks
	NewAccountAge      time.Duration // accounts younger than this add behavior risk
}

// DefaultConfig returns the standard scoring policy.
func DefaultConfig() Config {
	return Config{
		SuspiciousAmount:  10000,
		HighRiskThreshold: 0.75,
		HighRiskCategories: []string{
			"Cryptocurrency",
			"Gambling",
			"Adult Services",
			"Cash Advance",
			"International Transfer",
			"Investment",
		},
		RecentWindow:  24 * time.Hour,
		NewAccountAge: 30 * 24 * time.Hour,
	}
}

// TransactionInput is the slice of a candidate transaction the calculators
// need. Validation happens before scoring; inputs here are trusted.
type TransactionInput struct {
	Amount     float64
	Category   string
	OccurredAt time.Time
}

// RecentTransaction is one prior transaction inside the trailing window.
type RecentTransaction struct {
	Amount     float64
	OccurredAt time.Time
}

// AccountContext is the read-only account state consumed by the calculators.
type AccountContext struct {
	CreatedAt          time.Time
	Verified           bool
	RecentTransactions []RecentTransaction
}

// Assessment is the result of evaluating a single transaction.
type Assessment struct {
	ID            string             `json:"id"`
	TransactionID string             `json:"transactionId,omitempty"`
	UserID        string             `json:"userId"`
	Score         float64            `json:"score"`
	HighRisk      bool               `json:"highRisk"`
	Factors       map[string]float64 `json:"factors"`
	Source        string             `json:"source"`
	EvaluatedAt   time.Time          `json:"evaluatedAt"`
}

// Store persists assessments for audit trail.
type Store interface {
	Record(ctx context.Context, assessment *Assessment) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*Assessment, error)
}
