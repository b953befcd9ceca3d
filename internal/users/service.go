package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/finward/finward/internal/logging"
)

// Service wraps the store with validation and identity assignment.
type Service struct {
	store Store
}

// NewService creates the user service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Register validates the request and creates the account. New accounts start
// active and unverified.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user := &User{
		ID:        uuid.NewString(),
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsActive:  true,
	}

	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	logging.L(ctx).Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

// Get returns the account by id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.store.Get(ctx, id)
}

// Verify marks the account as identity-verified, which removes the
// unverified-account contribution from future risk evaluations.
func (s *Service) Verify(ctx context.Context, id string) (*User, error) {
	if err := s.store.SetVerified(ctx, id, true); err != nil {
		return nil, err
	}
	logging.L(ctx).Info("user verified", "user_id", id)
	return s.store.Get(ctx, id)
}
