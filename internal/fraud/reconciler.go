package fraud

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/finward/finward/internal/logging"
	"github.com/finward/finward/internal/metrics"
)

// Target is the persistence surface the reconciler writes through.
// ApplyVerdict overwrites the transaction's fraud flag and risk score in a
// single write and reports whether the transaction still exists.
type Target interface {
	ApplyVerdict(ctx context.Context, txID string, fraudulent bool, score float64) (bool, error)
}

// Reconciler applies late-arriving remote verdicts to persisted transactions.
// It runs after the caller already has its response; nothing here can fail
// the original create operation.
type Reconciler struct {
	client *DecisionClient
	target Target
	store  Store // optional audit trail
}

// NewReconciler creates a reconciler over the given decision client and
// transaction persistence target.
func NewReconciler(client *DecisionClient, target Target, store Store) *Reconciler {
	return &Reconciler{client: client, target: target, store: store}
}

// EvaluateAndReconcile performs one remote evaluation for a just-created
// transaction and, if a verdict arrives, applies it. Intended to be called
// in its own goroutine with a context detached from the originating request.
func (r *Reconciler) EvaluateAndReconcile(ctx context.Context, txID, userID string, amount float64, occurredAt time.Time) {
	outcome := r.client.Evaluate(ctx, userID, amount, occurredAt)
	if !outcome.Received() {
		logging.L(ctx).Debug("no remote verdict, keeping local result",
			"transaction_id", txID,
			"reason", string(outcome.NoVerdict),
		)
		return
	}

	r.Apply(ctx, txID, userID, *outcome.Verdict)
}

// Apply overwrites the transaction's persisted fraud fields with the verdict.
// A missing transaction (deleted since creation) is a silent no-op.
func (r *Reconciler) Apply(ctx context.Context, txID, userID string, v Verdict) {
	logger := logging.L(ctx)

	found, err := r.target.ApplyVerdict(ctx, txID, v.Fraudulent, v.RiskScore)
	if err != nil {
		logger.Error("failed to persist remote verdict",
			"transaction_id", txID,
			"error", err,
		)
		metrics.ReconciliationsTotal.WithLabelValues("save_error").Inc()
		return
	}
	if !found {
		metrics.ReconciliationsTotal.WithLabelValues("target_missing").Inc()
		return
	}

	logger.Info("remote verdict applied",
		"transaction_id", txID,
		"fraudulent", v.Fraudulent,
		"risk_score", v.RiskScore,
		"reason", v.Reason,
	)
	metrics.ReconciliationsTotal.WithLabelValues("applied").Inc()

	if r.store != nil {
		assessment := &Assessment{
			ID:            uuid.NewString(),
			TransactionID: txID,
			UserID:        userID,
			Score:         v.RiskScore,
			HighRisk:      v.Fraudulent,
			Factors:       map[string]float64{"remote": v.RiskScore},
			Source:        SourceRemote,
			EvaluatedAt:   time.Now(),
		}
		go func() {
			_ = r.store.Record(context.Background(), assessment)
		}()
	}
}
