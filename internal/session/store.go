// Package session maps opaque auth tokens to owner ids with an expiry.
package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/templui/filesmanager/internal/config"
	"github.com/templui/filesmanager/internal/model"
)

const keyPrefix = "auth_"

// Store keeps token -> owner mappings. Resolve returns ok=false for unknown
// or expired tokens; err is reserved for backend failures.
type Store interface {
	Create(ctx context.Context, owner model.OwnerID) (string, error)
	Resolve(ctx context.Context, token string) (model.OwnerID, bool, error)
	Delete(ctx context.Context, token string) error
	Alive(ctx context.Context) bool
	Close() error
}

// New opens the configured session backend, fronted by an in-process cache
// when SESSION_CACHE_SIZE is positive.
func New(cfg *config.Config) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.SessionDriver {
	case config.SessionDriverBadger:
		store, err = NewBadgerStore(cfg.SessionPath, cfg.SessionTTL)
	case config.SessionDriverRedis:
		store, err = NewRedisStore(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.SessionTTL,
		})
	default:
		return nil, fmt.Errorf("unknown session driver %q", cfg.SessionDriver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.SessionCacheSize > 0 && cfg.SessionCacheTTL > 0 {
		store = NewCachedStore(store, cfg.SessionCacheSize, cfg.SessionCacheTTL)
	}

	return store, nil
}

func newToken() string {
	return uuid.New().String()
}

func key(token string) string {
	return keyPrefix + token
}
