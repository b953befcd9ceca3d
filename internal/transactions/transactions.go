// Package transactions implements the transaction ledger: validated writes,
// soft deletes, filtered listing, and reporting. Every create and material
// edit carries a fraud risk score computed before the row is persisted.
package transactions

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNotFound           = errors.New("transactions: transaction not found")
	ErrTooOldToModify     = errors.New("transactions: transactions older than 30 days cannot be modified")
	ErrInvalidAmount      = errors.New("transactions: amount must be between 0.01 and 9999999999999.99")
	ErrInvalidType        = errors.New("transactions: type must be income or expense")
	ErrMissingCategory    = errors.New("transactions: category is required")
	ErrCategoryTooLong    = errors.New("transactions: category exceeds 100 characters")
	ErrDescriptionTooLong = errors.New("transactions: description exceeds 1000 characters")
)

// Transaction types.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Amount bounds.
const (
	MinAmount = 0.01
	MaxAmount = 9_999_999_999_999.99
)

// Transactions older than this cannot be edited or deleted.
const ModifyWindow = 30 * 24 * time.Hour

// Transaction is one ledger entry.
type Transaction struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Amount          float64   `json:"amount"`
	Type            string    `json:"type"`
	Category        string    `json:"category"`
	Description     string    `json:"description,omitempty"`
	TransactionDate time.Time `json:"transactionDate"`
	IsFraudFlagged  bool      `json:"isFraudFlagged"`
	FraudRiskScore  float64   `json:"fraudRiskScore"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// CreateRequest is the payload for recording a transaction.
type CreateRequest struct {
	Amount          float64    `json:"amount" binding:"required"`
	Type            string     `json:"type" binding:"required"`
	Category        string     `json:"category" binding:"required"`
	Description     string     `json:"description"`
	TransactionDate *time.Time `json:"transactionDate"`
}

// Validate normalizes and checks the create payload.
func (r *CreateRequest) Validate() error {
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
	r.Category = strings.TrimSpace(r.Category)

	if r.Amount < MinAmount || r.Amount > MaxAmount {
		return ErrInvalidAmount
	}
	if r.Type != TypeIncome && r.Type != TypeExpense {
		return ErrInvalidType
	}
	if r.Category == "" {
		return ErrMissingCategory
	}
	if len(r.Category) > 100 {
		return ErrCategoryTooLong
	}
	if len(r.Description) > 1000 {
		return ErrDescriptionTooLong
	}
	return nil
}

// UpdateRequest is the payload for editing a transaction. Nil fields are
// left unchanged.
type UpdateRequest struct {
	Amount          *float64   `json:"amount"`
	Type            *string    `json:"type"`
	Category        *string    `json:"category"`
	Description     *string    `json:"description"`
	TransactionDate *time.Time `json:"transactionDate"`
}

// Validate checks the supplied fields against the same bounds as create.
func (r *UpdateRequest) Validate() error {
	if r.Amount != nil && (*r.Amount < MinAmount || *r.Amount > MaxAmount) {
		return ErrInvalidAmount
	}
	if r.Type != nil {
		t := strings.ToLower(strings.TrimSpace(*r.Type))
		if t != TypeIncome && t != TypeExpense {
			return ErrInvalidType
		}
		r.Type = &t
	}
	if r.Category != nil {
		c := strings.TrimSpace(*r.Category)
		if c == "" {
			return ErrMissingCategory
		}
		if len(c) > 100 {
			return ErrCategoryTooLong
		}
		r.Category = &c
	}
	if r.Description != nil && len(*r.Description) > 1000 {
		return ErrDescriptionTooLong
	}
	return nil
}

// Reevaluates reports whether the edit is material enough to trigger a fresh
// risk evaluation.
func (r *UpdateRequest) Reevaluates() bool {
	return r.Amount != nil || r.Type != nil
}

// ListFilter narrows a transaction listing.
type ListFilter struct {
	Type         string
	Category     string
	From         time.Time
	To           time.Time
	FraudFlagged *bool
	Cursor       string
	Limit        int
}

// Statistics is the income/expense report for a period.
type Statistics struct {
	UserID       string    `json:"userId"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	TotalIncome  float64   `json:"totalIncome"`
	TotalExpense float64   `json:"totalExpense"`
	NetBalance   float64   `json:"netBalance"`
	IncomeCount  int       `json:"incomeCount"`
	ExpenseCount int       `json:"expenseCount"`
	FraudCount   int       `json:"fraudCount"`
}

// CategoryTotal is one row of the summary's category breakdown.
type CategoryTotal struct {
	Category string  `json:"category"`
	Total    float64 `json:"total"`
	Count    int     `json:"count"`
}

// Summary is the trailing-window activity report.
type Summary struct {
	UserID        string          `json:"userId"`
	Days          int             `json:"days"`
	TotalIncome   float64         `json:"totalIncome"`
	TotalExpense  float64         `json:"totalExpense"`
	TopCategories []CategoryTotal `json:"topCategories"`
	FraudCount    int             `json:"fraudCount"`
}

// Store defines the persistence interface for transactions. Implementations
// exclude soft-deleted rows from every read.
type Store interface {
	Create(ctx context.Context, tx *Transaction) error
	Get(ctx context.Context, userID, id string) (*Transaction, error)
	Update(ctx context.Context, tx *Transaction) error
	SoftDelete(ctx context.Context, userID, id string) error
	List(ctx context.Context, userID string, filter ListFilter) ([]*Transaction, error)
	ListBetween(ctx context.Context, userID string, from, to time.Time) ([]*Transaction, error)

	// ApplyVerdict overwrites the fraud flag and score in one write and
	// reports whether the transaction exists. Satisfies fraud.Target.
	ApplyVerdict(ctx context.Context, id string, fraudulent bool, score float64) (bool, error)
}
