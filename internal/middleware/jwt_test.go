package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	userID := uuid.New()

	token, err := auth.GenerateToken(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	token, err := auth.GenerateToken(uuid.New())
	require.NoError(t, err)

	other := NewAuthenticator("different-secret")
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestRequireAuth(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	userID := uuid.New()
	token, err := auth.GenerateToken(userID)
	require.NoError(t, err)

	var seen uuid.UUID
	handler := auth.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok)
		seen = id
		w.WriteHeader(http.StatusOK)
	})

	// Valid token passes and resolves the user
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, seen)

	// Missing header is rejected
	req = httptest.NewRequest("GET", "/protected", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Malformed header is rejected
	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Basic abc123")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Garbage token is rejected
	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	auth := NewAuthenticator("test-secret")
	userID := uuid.New()
	token, err := auth.GenerateToken(userID)
	require.NoError(t, err)

	handler := auth.OptionalAuth(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := GetUserIDFromContext(r.Context()); ok {
			w.Write([]byte(id.String()))
			return
		}
		w.Write([]byte("anonymous"))
	})

	req := httptest.NewRequest("GET", "/public", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, userID.String(), w.Body.String())

	// No token still gets through
	req = httptest.NewRequest("GET", "/public", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())
}
