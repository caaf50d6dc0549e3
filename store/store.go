// Package store keeps the CSRF token issued to each session until it expires.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warden/config"

	"go.uber.org/zap"
)

// ErrNotFound is returned when a session has no live token.
var ErrNotFound = errors.New("token not found")

// TokenStore maps session ids to their issued CSRF token.
type TokenStore interface {
	// Get returns the session's token or ErrNotFound.
	Get(ctx context.Context, sessionID string) (string, error)
	// Put stores token for the session, replacing any previous one.
	Put(ctx context.Context, sessionID, token string) error
	// Delete forgets the session's token. Deleting an unknown session is not an error.
	Delete(ctx context.Context, sessionID string) error
	// Backend names the implementation, for logs and metrics.
	Backend() string
	Close() error
}

// New builds the store selected by cfg.Store.Backend. Tokens live for cfg.CSRF.TokenTTL.
func New(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (TokenStore, error) {
	ttl := cfg.CSRF.TokenTTL
	switch cfg.Store.Backend {
	case config.StoreBackendMemory, "":
		return NewMemoryStore(cfg.Store.Memory.Size, ttl), nil
	case config.StoreBackendRedis:
		rs := NewRedisStore(cfg.Store.Redis, ttl, logger)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rs.Ping(pingCtx); err != nil {
			rs.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Store.Redis.Addr, err)
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("unknown token store backend %q", cfg.Store.Backend)
	}
}
