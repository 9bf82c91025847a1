package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrMiss is returned by Get when a key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a key/value store with per-entry expiration. Values are raw
// bytes; callers marshal/unmarshal JSON as needed. An expired entry is
// indistinguishable from an absent one.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Connect returns a Redis-backed cache when addr is set and reachable,
// otherwise an in-process cache with the same TTL semantics. Callers are
// never told which backend is active.
func Connect(ctx context.Context, addr, password string, logger *slog.Logger) Cache {
	if addr == "" {
		logger.Info("cache: no redis address configured, using in-process backend")
		return NewMemory()
	}
	r := NewRedis(addr, password)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		logger.Warn("cache: redis unreachable, falling back to in-process backend",
			"addr", addr, "error", err)
		_ = r.Close()
		return NewMemory()
	}
	logger.Info("cache: redis backend connected", "addr", addr)
	return r
}
