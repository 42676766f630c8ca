package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, password string) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	hash, err := HashPassword(password)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(rdb, hash, time.Hour, logger)
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	ok, err := VerifyPassword(hash, "correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword(hash, "wrong password")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	_, err := VerifyPassword("bcrypt$whatever", "pw")
	require.Error(t, err)
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc := newTestService(t, "hunter22hunter22")
	ctx := context.Background()

	token, err := svc.Login(ctx, "hunter22hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.True(t, svc.Validate(ctx, token))

	require.NoError(t, svc.Logout(ctx, token))
	assert.False(t, svc.Validate(ctx, token))
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := newTestService(t, "hunter22hunter22")

	_, err := svc.Login(context.Background(), "not-the-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRequireAdmin(t *testing.T) {
	svc := newTestService(t, "hunter22hunter22")
	ctx := context.Background()

	token, err := svc.Login(ctx, "hunter22hunter22")
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guarded := svc.RequireAdmin(next)

	req := httptest.NewRequest(http.MethodDelete, "/sales/1", nil)
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/sales/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
