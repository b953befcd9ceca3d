package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	s := NewService(NewMemoryStore())
	ctx := context.Background()

	user, err := s.Register(ctx, RegisterRequest{
		Email:     "  Alice@Example.COM ",
		Username:  "alice",
		FirstName: "Alice",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alice@example.com", user.Email, "email is normalized")
	assert.True(t, user.IsActive)
	assert.False(t, user.IsVerified, "new accounts start unverified")
	assert.False(t, user.CreatedAt.IsZero())
}

func TestRegister_Validation(t *testing.T) {
	s := NewService(NewMemoryStore())
	ctx := context.Background()

	tests := []struct {
		name    string
		req     RegisterRequest
		wantErr error
	}{
		{"bad email", RegisterRequest{Email: "not-an-email", Username: "alice"}, ErrInvalidEmail},
		{"empty email", RegisterRequest{Username: "alice"}, ErrInvalidEmail},
		{"short username", RegisterRequest{Email: "a@b.com", Username: "ab"}, ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(ctx, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegister_Duplicates(t *testing.T) {
	s := NewService(NewMemoryStore())
	ctx := context.Background()

	_, err := s.Register(ctx, RegisterRequest{Email: "a@b.com", Username: "alice"})
	require.NoError(t, err)

	_, err = s.Register(ctx, RegisterRequest{Email: "a@b.com", Username: "alice2"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = s.Register(ctx, RegisterRequest{Email: "other@b.com", Username: "alice"})
	assert.ErrorIs(t, err, ErrUsernameTaken)
}

func TestVerify(t *testing.T) {
	s := NewService(NewMemoryStore())
	ctx := context.Background()

	user, err := s.Register(ctx, RegisterRequest{Email: "a@b.com", Username: "alice"})
	require.NoError(t, err)

	verified, err := s.Verify(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)

	_, err = s.Verify(ctx, "missing-id")
	assert.ErrorIs(t, err, ErrNotFound)
}
