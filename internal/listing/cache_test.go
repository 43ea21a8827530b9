package listing

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/blogmind/internal/cache"
	"github.com/inkwell/blogmind/pkg/config"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]time.Duration
	err  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *memoryStore) GetJSON(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	raw, ok := s.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *memoryStore) SetJSON(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[key] = raw
	s.ttls[key] = ttl
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.data, key)
	return nil
}

// blockingStore never answers before its context is done
type blockingStore struct{}

func (blockingStore) GetJSON(ctx context.Context, _ string, _ interface{}) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingStore) SetJSON(ctx context.Context, _ string, _ interface{}, _ time.Duration) error {
	<-ctx.Done()
	return ctx.Err()
}

func (blockingStore) Delete(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func testConfig() *config.CacheConfig {
	return &config.CacheConfig{
		ListingKey: "blog_list_cache",
		ListingTTL: time.Hour,
		OpTimeout:  50 * time.Millisecond,
	}
}

func sampleSnapshot() Snapshot {
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return Snapshot{
		{ID: "b", Title: "Second", Slug: "second", Categories: []string{"AI"}, CreatedAt: created.Add(time.Hour)},
		{ID: "a", Title: "First", Slug: "first", Categories: []string{"Uncategorized"}, CreatedAt: created},
	}
}

func TestCache_SetThenGet(t *testing.T) {
	store := newMemoryStore()
	c := New(store, testConfig())
	ctx := context.Background()

	c.Set(ctx, sampleSnapshot())

	got, ok := c.Get(ctx)
	require.True(t, ok)
	assert.Equal(t, sampleSnapshot(), got)
	assert.Equal(t, time.Hour, store.ttls["blog_list_cache"])
}

func TestCache_InvalidateThenGet(t *testing.T) {
	c := New(newMemoryStore(), testConfig())
	ctx := context.Background()

	c.Set(ctx, sampleSnapshot())
	c.Invalidate(ctx)

	_, ok := c.Get(ctx)
	assert.False(t, ok)
}

func TestCache_EmptySnapshotIsAHit(t *testing.T) {
	c := New(newMemoryStore(), testConfig())
	ctx := context.Background()

	c.Set(ctx, nil)

	got, ok := c.Get(ctx)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestCache_StoreFailureIsAMiss(t *testing.T) {
	store := newMemoryStore()
	c := New(store, testConfig())
	ctx := context.Background()

	c.Set(ctx, sampleSnapshot())
	store.err = errors.New("connection reset")

	_, ok := c.Get(ctx)
	assert.False(t, ok)

	assert.NotPanics(t, func() {
		c.Set(ctx, sampleSnapshot())
		c.Invalidate(ctx)
	})
}

func TestCache_DisabledStoreIsAMiss(t *testing.T) {
	var disabled *cache.Cache
	c := New(disabled, testConfig())

	_, ok := c.Get(context.Background())
	assert.False(t, ok)
}

func TestCache_SlowStoreIsBounded(t *testing.T) {
	c := New(blockingStore{}, testConfig())

	start := time.Now()
	_, ok := c.Get(context.Background())
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)
}
