package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templui/filesmanager/internal/model"
)

func newMemoryStore(t *testing.T, ttl time.Duration) *BadgerStore {
	t.Helper()
	s, err := NewBadgerStore("", ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestBadgerStore_CreateResolveDelete(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t, time.Hour)

	token, err := s.Create(ctx, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	owner, ok, err := s.Resolve(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.OwnerID("u1"), owner)

	other, err := s.Create(ctx, "u1")
	require.NoError(t, err)
	assert.NotEqual(t, token, other)

	require.NoError(t, s.Delete(ctx, token))

	_, ok, err = s.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)

	// the second session survives
	_, ok, err = s.Resolve(ctx, other)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBadgerStore_UnknownAndEmptyTokens(t *testing.T) {
	ctx := context.Background()
	s := newMemoryStore(t, time.Hour)

	_, ok, err := s.Resolve(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Resolve(ctx, "not-a-token")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, s.Alive(ctx))
}

func TestBadgerStore_Expiry(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for a session to expire")
	}
	ctx := context.Background()
	s := newMemoryStore(t, time.Second)

	token, err := s.Create(ctx, "u1")
	require.NoError(t, err)

	time.Sleep(2100 * time.Millisecond)

	_, ok, err := s.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyPrefix(t *testing.T) {
	assert.True(t, strings.HasPrefix(key("abc"), "auth_"))
	assert.Equal(t, "auth_abc", key("abc"))
}

type countingStore struct {
	Store
	resolves int
}

func (c *countingStore) Resolve(ctx context.Context, token string) (model.OwnerID, bool, error) {
	c.resolves++
	return c.Store.Resolve(ctx, token)
}

func TestCachedStore(t *testing.T) {
	ctx := context.Background()
	backend := &countingStore{Store: newMemoryStore(t, time.Hour)}
	s := NewCachedStore(backend, 10, time.Minute)

	token, err := s.Create(ctx, "u1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		owner, ok, err := s.Resolve(ctx, token)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, model.OwnerID("u1"), owner)
	}
	assert.Equal(t, 1, backend.resolves)

	// misses are not cached
	for i := 0; i < 2; i++ {
		_, ok, err := s.Resolve(ctx, "unknown")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 3, backend.resolves)

	require.NoError(t, s.Delete(ctx, token))
	_, ok, err := s.Resolve(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)
}
