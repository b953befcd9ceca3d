package fraud

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/finward/finward/internal/metrics"
)

// Engine scores transactions against the configured policy.
type Engine struct {
	cfg        Config
	categories map[string]struct{}
	store      Store
}

// NewEngine creates a scoring engine. The store receives best-effort audit
// records and may be nil.
func NewEngine(cfg Config, store Store) *Engine {
	categories := make(map[string]struct{}, len(cfg.HighRiskCategories))
	for _, c := range cfg.HighRiskCategories {
		categories[c] = struct{}{}
	}
	return &Engine{cfg: cfg, categories: categories, store: store}
}

// Evaluate scores a candidate transaction. Pure in-memory computation over the
// already-loaded account context; it never touches the network or the database
// on the scoring path.
func (e *Engine) Evaluate(ctx context.Context, userID string, in TransactionInput, acct AccountContext) *Assessment {
	timer := prometheus.NewTimer(metrics.FraudEvaluationDuration)
	defer timer.ObserveDuration()

	factors := map[string]float64{
		"amount":   e.amountFactor(in.Amount),
		"pattern":  e.patternFactor(in, acct),
		"time":     e.timeFactor(in.OccurredAt),
		"category": e.categoryFactor(in.Category),
		"behavior": e.behaviorFactor(acct),
	}

	var score float64
	for _, f := range factors {
		score += f
	}

	// Saturate at 1.0; sub-maximal sums are not rescaled.
	if score > 1.0 {
		score = 1.0
	}

	// Round before classifying so the flag always agrees with the score
	// we actually persist.
	score = math.Round(score*10000) / 10000

	highRisk := score >= e.cfg.HighRiskThreshold

	outcome := "clear"
	if highRisk {
		outcome = "flagged"
	}
	metrics.FraudEvaluationsTotal.WithLabelValues(outcome).Inc()

	assessment := &Assessment{
		ID:          uuid.NewString(),
		UserID:      userID,
		Score:       score,
		HighRisk:    highRisk,
		Factors:     factors,
		Source:      SourceLocal,
		EvaluatedAt: time.Now(),
	}

	// Persist asynchronously (best-effort audit trail)
	if e.store != nil {
		go func() {
			_ = e.store.Record(context.Background(), assessment)
		}()
	}

	return assessment
}

// amountFactor: linear in the excess over the suspicious threshold,
// saturating at the cap (reached at 2x the threshold).
func (e *Engine) amountFactor(amount float64) float64 {
	if amount <= e.cfg.SuspiciousAmount {
		return 0
	}
	risk := (amount - e.cfg.SuspiciousAmount) / e.cfg.SuspiciousAmount * amountCap
	return math.Min(risk, amountCap)
}

// patternFactor: high frequency in the trailing window beats repeated
// identical amounts; the two signals do not stack.
func (e *Engine) patternFactor(in TransactionInput, acct AccountContext) float64 {
	recent := acct.RecentTransactions
	if len(recent) == 0 {
		return 0
	}

	if len(recent) > 10 {
		return patternCap
	}

	identical := 0
	for _, rt := range recent {
		if rt.Amount == in.Amount {
			identical++
		}
	}
	if identical > 3 {
		return 0.15
	}

	return 0
}

// timeFactor: transactions in the 02:00-05:59 local window carry extra risk.
func (e *Engine) timeFactor(occurredAt time.Time) float64 {
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}
	hour := occurredAt.Hour()
	if hour >= 2 && hour < 6 {
		return timeCap
	}
	return 0
}

func (e *Engine) categoryFactor(category string) float64 {
	if _, ok := e.categories[category]; ok {
		return categoryCap
	}
	return 0
}

// behaviorFactor: new-account and unverified-account risks are independent
// and additive.
func (e *Engine) behaviorFactor(acct AccountContext) float64 {
	var risk float64
	if !acct.CreatedAt.IsZero() && time.Since(acct.CreatedAt) < e.cfg.NewAccountAge {
		risk += 0.1
	}
	if !acct.Verified {
		risk += 0.05
	}
	return math.Min(risk, behaviorCap)
}
