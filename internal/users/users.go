// Package users implements account registration and lookup. The fraud
// calculators consume account age and verification status from here.
package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
)

var (
	ErrNotFound      = errors.New("users: user not found")
	ErrEmailTaken    = errors.New("users: email already registered")
	ErrUsernameTaken = errors.New("users: username already registered")
	ErrInvalidEmail  = errors.New("users: invalid email address")
	ErrInvalidName   = errors.New("users: username must be 3-50 characters")
)

// User is a registered account.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	FirstName  string    `json:"firstName,omitempty"`
	LastName   string    `json:"lastName,omitempty"`
	IsActive   bool      `json:"isActive"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required"`
	Username  string `json:"username" binding:"required"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Validate normalizes and checks the registration payload.
func (r *RegisterRequest) Validate() error {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Username = strings.TrimSpace(r.Username)

	if _, err := mail.ParseAddress(r.Email); err != nil {
		return ErrInvalidEmail
	}
	if len(r.Username) < 3 || len(r.Username) > 50 {
		return ErrInvalidName
	}
	return nil
}

// Store defines the persistence interface for accounts.
type Store interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetVerified(ctx context.Context, id string, verified bool) error
}
