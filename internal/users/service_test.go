package users

import (
	"context"
	"testing"

	"mossboard/internal/database"
	"mossboard/internal/utils"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(database.NewMemoryStore(), zerolog.Nop())

	user, err := svc.Register(context.Background(), "fern", "  Fern@Example.COM ", "password123")
	require.NoError(t, err)
	assert.Equal(t, "fern", user.Username)
	assert.Equal(t, "fern@example.com", user.Email)
	assert.NotEqual(t, "password123", user.HashedPassword)
	assert.False(t, user.Banned)

	// Login is case-insensitive on email
	got, err := svc.Authenticate(context.Background(), "FERN@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(context.Background(), "fern@example.com", "wrongpass")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidCredentials))

	// An unknown email gets the same error as a wrong password
	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "password123")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidCredentials))
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(database.NewMemoryStore(), zerolog.Nop())

	_, err := svc.Register(context.Background(), "", "a@b.com", "password123")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = svc.Register(context.Background(), "fern", "not-an-email", "password123")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))

	_, err = svc.Register(context.Background(), "fern", "a@b.com", "short")
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(database.NewMemoryStore(), zerolog.Nop())

	_, err := svc.Register(context.Background(), "fern", "fern@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "other", "fern@example.com", "password123")
	assert.True(t, utils.IsErrorCode(err, utils.ErrUserAlreadyExists))
}

func TestSetBanned(t *testing.T) {
	store := database.NewMemoryStore()
	svc := NewService(store, zerolog.Nop())

	user, err := svc.Register(context.Background(), "fern", "fern@example.com", "password123")
	require.NoError(t, err)

	require.NoError(t, svc.SetBanned(context.Background(), user.ID, true))
	got, err := svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, got.Banned)
}
