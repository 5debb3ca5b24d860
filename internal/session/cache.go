package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/templui/filesmanager/internal/model"
)

var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "files_session_cache_hits_total",
		Help: "Token resolutions served from the in-process session cache.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "files_session_cache_misses_total",
		Help: "Token resolutions that fell through to the session backend.",
	})
)

// CachedStore fronts a Store with a per-process LRU of positive resolutions.
// A token deleted through another process stays valid here for at most ttl.
type CachedStore struct {
	next  Store
	cache *expirable.LRU[string, model.OwnerID]
}

func NewCachedStore(next Store, size int, ttl time.Duration) *CachedStore {
	return &CachedStore{
		next:  next,
		cache: expirable.NewLRU[string, model.OwnerID](size, nil, ttl),
	}
}

func (s *CachedStore) Create(ctx context.Context, owner model.OwnerID) (string, error) {
	return s.next.Create(ctx, owner)
}

func (s *CachedStore) Resolve(ctx context.Context, token string) (model.OwnerID, bool, error) {
	if owner, ok := s.cache.Get(token); ok {
		cacheHitsTotal.Inc()
		return owner, true, nil
	}
	cacheMissesTotal.Inc()

	owner, ok, err := s.next.Resolve(ctx, token)
	if err != nil || !ok {
		return owner, ok, err
	}

	s.cache.Add(token, owner)
	return owner, true, nil
}

func (s *CachedStore) Delete(ctx context.Context, token string) error {
	s.cache.Remove(token)
	return s.next.Delete(ctx, token)
}

func (s *CachedStore) Alive(ctx context.Context) bool {
	return s.next.Alive(ctx)
}

func (s *CachedStore) Close() error {
	s.cache.Purge()
	return s.next.Close()
}
