package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/finward/finward/internal/pagination"
)

// PostgresStore persists transactions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed transaction store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// Migrate creates the transactions table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id               UUID PRIMARY KEY,
			user_id          UUID NOT NULL,
			amount           NUMERIC(15,2) NOT NULL CHECK (amount > 0),
			type             VARCHAR(10) NOT NULL CHECK (type IN ('income', 'expense')),
			category         VARCHAR(100) NOT NULL,
			description      VARCHAR(1000) NOT NULL DEFAULT '',
			transaction_date TIMESTAMPTZ NOT NULL,
			is_fraud_flagged BOOLEAN NOT NULL DEFAULT FALSE,
			fraud_risk_score NUMERIC(5,4) NOT NULL DEFAULT 0 CHECK (fraud_risk_score >= 0 AND fraud_risk_score <= 1),
			deleted_at       TIMESTAMPTZ,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_transactions_user_date
			ON transactions (user_id, transaction_date DESC, id DESC) WHERE deleted_at IS NULL;

		CREATE INDEX IF NOT EXISTS idx_transactions_flagged
			ON transactions (user_id) WHERE is_fraud_flagged AND deleted_at IS NULL;
	`)
	return err
}

const txColumns = `id, user_id, amount, type, category, description, transaction_date,
	is_fraud_flagged, fraud_risk_score, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, tx *Transaction) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO transactions
			(id, user_id, amount, type, category, description, transaction_date, is_fraud_flagged, fraud_risk_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`,
		tx.ID, tx.UserID, tx.Amount, tx.Type, tx.Category, tx.Description,
		tx.TransactionDate, tx.IsFraudFlagged, tx.FraudRiskScore,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, userID, id string) (*Transaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, id, userID)
	return scanTransaction(row)
}

func (s *PostgresStore) Update(ctx context.Context, tx *Transaction) error {
	err := s.db.QueryRowContext(ctx, `
		UPDATE transactions
		SET amount = $3, type = $4, category = $5, description = $6,
			transaction_date = $7, is_fraud_flagged = $8, fraud_risk_score = $9,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING updated_at
	`,
		tx.ID, tx.UserID, tx.Amount, tx.Type, tx.Category, tx.Description,
		tx.TransactionDate, tx.IsFraudFlagged, tx.FraudRiskScore,
	).Scan(&tx.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) SoftDelete(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, userID string, filter ListFilter) ([]*Transaction, error) {
	cursor, err := pagination.Decode(filter.Cursor)
	if err != nil {
		return nil, err
	}

	var (
		conds = []string{"user_id = $1", "deleted_at IS NULL"}
		args  = []any{userID}
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.Type != "" {
		add("type = $%d", filter.Type)
	}
	if filter.Category != "" {
		add("category = $%d", filter.Category)
	}
	if !filter.From.IsZero() {
		add("transaction_date >= $%d", filter.From)
	}
	if !filter.To.IsZero() {
		add("transaction_date <= $%d", filter.To)
	}
	if filter.FraudFlagged != nil {
		add("is_fraud_flagged = $%d", *filter.FraudFlagged)
	}
	if cursor != nil {
		args = append(args, cursor.Ts, cursor.ID)
		conds = append(conds, fmt.Sprintf("(transaction_date, id) < ($%d, $%d)", len(args)-1, len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit+1)

	query := fmt.Sprintf(`
		SELECT `+txColumns+`
		FROM transactions
		WHERE %s
		ORDER BY transaction_date DESC, id DESC
		LIMIT $%d
	`, strings.Join(conds, " AND "), len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

func (s *PostgresStore) ListBetween(ctx context.Context, userID string, from, to time.Time) ([]*Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE user_id = $1 AND deleted_at IS NULL
			AND transaction_date >= $2 AND transaction_date <= $3
		ORDER BY transaction_date DESC
	`, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTransactions(rows)
}

func (s *PostgresStore) ApplyVerdict(ctx context.Context, id string, fraudulent bool, score float64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions
		SET is_fraud_flagged = $2, fraud_risk_score = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, id, fraudulent, score)
	if err != nil {
		return false, fmt.Errorf("failed to apply verdict: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func scanTransaction(row *sql.Row) (*Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Category, &t.Description,
		&t.TransactionDate, &t.IsFraudFlagged, &t.FraudRiskScore, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return &t, nil
}

func scanTransactions(rows *sql.Rows) ([]*Transaction, error) {
	var result []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Category, &t.Description,
			&t.TransactionDate, &t.IsFraudFlagged, &t.FraudRiskScore, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}
