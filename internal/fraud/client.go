package fraud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"net"
	"net/http"
	"time"

	"github.com/finward/finward/internal/logging"
	"github.com/finward/finward/internal/metrics"
)

// Verdict is the external decision service's classification of a transaction.
// It is parsed from the /detect response, handed to the Reconciler, and
// discarded; it is never persisted on its own.
type Verdict struct {
	Fraudulent bool    `json:"is_fraudulent"`
	Reason     string  `json:"reason"`
	RiskScore  float64 `json:"risk_score"`
}

// NoVerdictReason says why a remote evaluation produced no verdict.
type NoVerdictReason string

const (
	NoVerdictTimeout    NoVerdictReason = "timeout"
	NoVerdictConnection NoVerdictReason = "connection_error"
	NoVerdictBadStatus  NoVerdictReason = "bad_status"
	NoVerdictMalformed  NoVerdictReason = "malformed"
)

// Outcome is the result of one remote evaluation: either a Verdict or a
// typed no-verdict reason. Remote failures surface here, never as errors.
type Outcome struct {
	Verdict   *Verdict
	NoVerdict NoVerdictReason
}

// Received reports whether the decision service returned a usable verdict.
func (o Outcome) Received() bool {
	return o.Verdict != nil
}

func noVerdict(reason NoVerdictReason) Outcome {
	metrics.RemoteVerdictsTotal.WithLabelValues(string(reason)).Inc()
	return Outcome{NoVerdict: reason}
}

// detectRequest is the wire payload for POST /detect.
type detectRequest struct {
	UserID    uint32  `json:"user_id"`
	Amount    float64 `json:"amount"`
	Timestamp string  `json:"timestamp"`
}

// DecisionClient calls the external fraud decision service. One bounded
// attempt per transaction; no retries, no backoff, no circuit breaker.
type DecisionClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewDecisionClient creates a client for the decision service at baseURL.
// A non-positive timeout falls back to 2 seconds.
func NewDecisionClient(baseURL string, timeout time.Duration) *DecisionClient {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &DecisionClient{
		baseURL: baseURL,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Timeout returns the bound on a single evaluation call.
func (c *DecisionClient) Timeout() time.Duration {
	return c.timeout
}

// Evaluate issues a single POST /detect for the given transaction data and
// waits at most the configured timeout. Every failure mode (timeout,
// connection error, bad status, malformed body) collapses to a no-verdict
// outcome with a diagnostic log entry; the caller's workflow never aborts.
func (c *DecisionClient) Evaluate(ctx context.Context, userID string, amount float64, occurredAt time.Time) Outcome {
	logger := logging.L(ctx)

	payload, err := json.Marshal(detectRequest{
		UserID:    numericUserID(userID),
		Amount:    amount,
		Timestamp: occurredAt.Format(time.RFC3339),
	})
	if err != nil {
		logger.Error("failed to marshal detect request", "user_id", userID, "error", err)
		return noVerdict(NoVerdictMalformed)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", bytes.NewReader(payload))
	if err != nil {
		logger.Error("failed to create detect request", "user_id", userID, "error", err)
		return noVerdict(NoVerdictConnection)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			logger.Warn("fraud service call timed out", "user_id", userID, "timeout", c.timeout)
			return noVerdict(NoVerdictTimeout)
		}
		logger.Warn("fraud service unreachable", "user_id", userID, "error", err)
		return noVerdict(NoVerdictConnection)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("fraud service returned non-OK status", "user_id", userID, "status", resp.StatusCode)
		return noVerdict(NoVerdictBadStatus)
	}

	var v Verdict
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		logger.Warn("fraud service returned malformed body", "user_id", userID, "error", err)
		return noVerdict(NoVerdictMalformed)
	}

	if v.RiskScore < 0 || v.RiskScore > 1 {
		logger.Warn("fraud service returned out-of-range risk score", "user_id", userID, "risk_score", v.RiskScore)
		return noVerdict(NoVerdictMalformed)
	}

	metrics.RemoteVerdictsTotal.WithLabelValues("verdict").Inc()
	return Outcome{Verdict: &v}
}

// numericUserID derives the stable integer identifier the wire contract
// expects from a UUID-keyed account.
func numericUserID(userID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return h.Sum32()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
