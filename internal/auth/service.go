package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrInvalidCredentials is returned for any failed login attempt. The
// message never distinguishes a wrong password from a malformed hash.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service issues and validates admin bearer tokens. The tool runs with a
// single admin identity configured through the environment; tokens live
// in redis under a TTL.
type Service struct {
	rdb          *redis.Client
	passwordHash string
	tokenTTL     time.Duration
	logger       *slog.Logger
}

// NewService wires the admin token layer.
func NewService(rdb *redis.Client, passwordHash string, tokenTTL time.Duration, logger *slog.Logger) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}
	return &Service{
		rdb:          rdb,
		passwordHash: passwordHash,
		tokenTTL:     tokenTTL,
		logger:       logger,
	}
}

// Login verifies the admin password and returns a fresh bearer token.
func (s *Service) Login(ctx context.Context, password string) (string, error) {
	ok, err := VerifyPassword(s.passwordHash, password)
	if err != nil {
		s.logger.Error("password verification unavailable", "error", err)
		return "", ErrInvalidCredentials
	}
	if !ok {
		return "", ErrInvalidCredentials
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(raw)

	if err := s.rdb.Set(ctx, tokenKey(token), time.Now().UTC().Format(time.RFC3339), s.tokenTTL).Err(); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return token, nil
}

// Logout revokes a token. Revoking an unknown token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, tokenKey(token)).Err()
}

// Validate reports whether the token is live and slides its expiry.
func (s *Service) Validate(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	ok, err := s.rdb.Expire(ctx, tokenKey(token), s.tokenTTL).Result()
	if err != nil {
		s.logger.Warn("token validation failed", "error", err)
		return false
	}
	return ok
}

func tokenKey(token string) string {
	return "auth:token:" + token
}
