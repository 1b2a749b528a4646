package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/scan-cart/internal/domain"
	"github.com/fjod/go_cart/scan-cart/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCatalog struct {
	products map[string]domain.Product
	err      error
}

func (m *mockCatalog) GetItem(_ context.Context, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrItemNotFound
	}
	return &p, nil
}

type mockCache struct {
	m    sync.RWMutex
	tags map[string]*domain.ScanTag
	gets int
	err  error
}

func newMockCache() *mockCache {
	return &mockCache{tags: make(map[string]*domain.ScanTag)}
}

func (m *mockCache) Get(_ context.Context, uid string) (*domain.ScanTag, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.gets++
	if m.err != nil {
		return nil, m.err
	}
	tag, ok := m.tags[uid]
	if !ok {
		return nil, ErrCacheMiss
	}
	return cloneTag(tag), nil
}

func (m *mockCache) Set(_ context.Context, tag *domain.ScanTag) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.tags[tag.UIDresult] = cloneTag(tag)
	return m.err
}

func (m *mockCache) Delete(_ context.Context, uid string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.tags, uid)
	return m.err
}

func (m *mockCache) has(uid string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.tags[uid]
	return ok
}

type failingStore struct {
	*MemoryStore
	err error
}

func (f failingStore) Get(context.Context, string) (*domain.ScanTag, error) {
	return nil, f.err
}

func newTestRegistry(t *testing.T) (*Registry, *MemoryStore, *mockCache) {
	t.Helper()
	store := NewMemoryStore()
	cache := newMockCache()
	cat := &mockCatalog{products: map[string]domain.Product{
		"p1": {ID: "p1", Name: "Whole Milk", Price: 10},
		"p2": {ID: "p2", Name: "Bread", Price: 4.5},
	}}
	return New(store, cache, cat, logger.Discard()), store, cache
}

func TestLink_CreatesTag(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	tag, err := reg.Link(context.Background(), "T1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "T1", tag.UIDresult)
	require.NotNil(t, tag.LinkedItemID)
	assert.Equal(t, "p1", *tag.LinkedItemID)
	assert.False(t, tag.CreatedAt.IsZero())
}

func TestLink_RelinkOverwritesAndKeepsCreatedAt(t *testing.T) {
	ticks := []time.Time{
		time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC),
	}
	i := 0
	clock := func() time.Time { v := ticks[i]; i++; return v }

	reg := New(NewMemoryStore(), newMockCache(), &mockCatalog{products: map[string]domain.Product{
		"p1": {ID: "p1"}, "p2": {ID: "p2"},
	}}, logger.Discard(), WithClock(clock))

	_, err := reg.Link(context.Background(), "T1", "p1")
	require.NoError(t, err)
	tag, err := reg.Link(context.Background(), "T1", "p2")
	require.NoError(t, err)

	assert.Equal(t, "p2", *tag.LinkedItemID)
	assert.Equal(t, ticks[0], tag.CreatedAt)
	assert.Equal(t, ticks[1], tag.UpdatedAt)

	tags, err := reg.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestLink_Validation(t *testing.T) {
	reg, store, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Link(ctx, "  ", "p1")
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "UIDresult")

	_, err = reg.Link(ctx, "T1", "")
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "itemId")

	_, err = reg.Link(ctx, "T1", "nope")
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "product not found")

	_, err = store.Get(ctx, "T1")
	assert.ErrorIs(t, err, domain.ErrTagNotFound, "rejected links must not create tags")
}

func TestLink_CatalogFailure(t *testing.T) {
	reg := New(NewMemoryStore(), newMockCache(), &mockCatalog{err: errors.New("disk I/O error")}, logger.Discard())

	_, err := reg.Link(context.Background(), "T1", "p1")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.False(t, domain.IsValidation(err))
}

func TestResolve_ReadThroughCache(t *testing.T) {
	reg, _, cache := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Link(ctx, "T1", "p1")
	require.NoError(t, err)
	assert.False(t, cache.has("T1"), "link must invalidate the cache")

	tag, err := reg.Resolve(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "p1", *tag.LinkedItemID)
	assert.True(t, cache.has("T1"))

	// relink invalidates and the next resolve sees the new item
	_, err = reg.Link(ctx, "T1", "p2")
	require.NoError(t, err)
	tag, err = reg.Resolve(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "p2", *tag.LinkedItemID)
}

func TestResolve_Unknown(t *testing.T) {
	reg, _, cache := newTestRegistry(t)

	tag, err := reg.Resolve(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrTagNotFound)
	assert.Nil(t, tag)
	assert.False(t, cache.has("ghost"))
}

func TestResolve_CacheErrorFallsBackToStore(t *testing.T) {
	reg, store, cache := newTestRegistry(t)
	ctx := context.Background()
	item := "p1"
	_, err := store.SetLink(ctx, "T1", &item, time.Now())
	require.NoError(t, err)

	cache.err = errors.New("redis down")

	tag, err := reg.Resolve(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "p1", *tag.LinkedItemID)
}

func TestResolve_StoreTimeout(t *testing.T) {
	reg := New(failingStore{MemoryStore: NewMemoryStore(), err: context.DeadlineExceeded}, newMockCache(), &mockCatalog{}, logger.Discard())

	_, err := reg.Resolve(context.Background(), "T1")
	assert.ErrorIs(t, err, domain.ErrStorageTimeout)
}

func TestResolve_ReturnsCopies(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()
	_, err := reg.Link(ctx, "T1", "p1")
	require.NoError(t, err)

	first, err := reg.Resolve(ctx, "T1")
	require.NoError(t, err)
	*first.LinkedItemID = "mutated"

	second, err := reg.Resolve(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "p1", *second.LinkedItemID)
}

func TestUnlink(t *testing.T) {
	reg, _, cache := newTestRegistry(t)
	ctx := context.Background()
	_, err := reg.Link(ctx, "T1", "p1")
	require.NoError(t, err)
	_, err = reg.Resolve(ctx, "T1")
	require.NoError(t, err)

	tag, err := reg.Unlink(ctx, "T1")
	require.NoError(t, err)
	assert.False(t, tag.IsLinked())
	assert.False(t, cache.has("T1"))

	_, err = reg.Unlink(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrTagNotFound)
}

func TestTouch(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Touch(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrTagNotFound)

	linked, err := reg.Link(ctx, "T1", "p1")
	require.NoError(t, err)
	touched, err := reg.Touch(ctx, "T1")
	require.NoError(t, err)
	assert.False(t, touched.UpdatedAt.Before(linked.UpdatedAt))
	assert.Equal(t, "p1", *touched.LinkedItemID)
}

func TestDelete(t *testing.T) {
	reg, _, cache := newTestRegistry(t)
	ctx := context.Background()
	_, err := reg.Link(ctx, "T1", "p1")
	require.NoError(t, err)
	_, err = reg.Resolve(ctx, "T1")
	require.NoError(t, err)

	require.NoError(t, reg.Delete(ctx, "T1"))
	assert.False(t, cache.has("T1"))

	_, err = reg.Get(ctx, "T1")
	assert.ErrorIs(t, err, domain.ErrTagNotFound)
	assert.ErrorIs(t, reg.Delete(ctx, "T1"), domain.ErrTagNotFound)
}

// gatedStore blocks Get until released or the fetch context ends.
type gatedStore struct {
	*MemoryStore
	entered chan struct{}
	release chan struct{}
	mu      sync.Mutex
	gets    int
}

func (g *gatedStore) Get(ctx context.Context, uid string) (*domain.ScanTag, error) {
	g.mu.Lock()
	g.gets++
	first := g.gets == 1
	g.mu.Unlock()
	if first {
		close(g.entered)
	}

	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.MemoryStore.Get(ctx, uid)
}

func (g *gatedStore) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.gets
}

func TestResolve_CancelledCallerDoesNotFailOthers(t *testing.T) {
	store := &gatedStore{MemoryStore: NewMemoryStore(), entered: make(chan struct{}), release: make(chan struct{})}
	p1 := "p1"
	_, err := store.SetLink(context.Background(), "T1", &p1, time.Now())
	require.NoError(t, err)
	reg := New(store, newMockCache(), &mockCatalog{}, logger.Discard())

	aCtx, cancelA := context.WithCancel(context.Background())
	aErr := make(chan error, 1)
	go func() {
		_, err := reg.Resolve(aCtx, "T1")
		aErr <- err
	}()
	<-store.entered

	type result struct {
		tag *domain.ScanTag
		err error
	}
	bRes := make(chan result, 1)
	go func() {
		tag, err := reg.Resolve(context.Background(), "T1")
		bRes <- result{tag, err}
	}()
	// let B join the in-flight lookup
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-aErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(store.release)
	select {
	case res := <-bRes:
		require.NoError(t, res.err)
		assert.Equal(t, "p1", *res.tag.LinkedItemID)
	case <-time.After(time.Second):
		t.Fatal("second caller never resolved")
	}
	assert.Equal(t, 1, store.calls())
}

func TestResolve_SharedFetchIsBounded(t *testing.T) {
	store := &gatedStore{MemoryStore: NewMemoryStore(), entered: make(chan struct{}), release: make(chan struct{})}
	reg := New(store, newMockCache(), &mockCatalog{}, logger.Discard(), WithFetchTimeout(20*time.Millisecond))

	_, err := reg.Resolve(context.Background(), "T1")
	assert.ErrorIs(t, err, domain.ErrStorageTimeout)
}

func TestTouch_SameMillisecondStillAdvances(t *testing.T) {
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 123456789, time.UTC)
	reg := New(NewMemoryStore(), newMockCache(), &mockCatalog{products: map[string]domain.Product{
		"p1": {ID: "p1", Name: "Whole Milk", Price: 10},
	}}, logger.Discard(), WithClock(func() time.Time { return frozen }))
	ctx := context.Background()

	_, err := reg.Link(ctx, "T1", "p1")
	require.NoError(t, err)

	t1, err := reg.Touch(ctx, "T1")
	require.NoError(t, err)
	t2, err := reg.Touch(ctx, "T1")
	require.NoError(t, err)

	assert.Equal(t, 0, t1.UpdatedAt.Nanosecond()%int(time.Millisecond))
	assert.True(t, t2.UpdatedAt.After(t1.UpdatedAt))
}
