package registry

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/go_cart/scan-cart/internal/domain"
)

// MemoryStore implements TagStore in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	tags map[string]*domain.ScanTag
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tags: make(map[string]*domain.ScanTag)}
}

func (s *MemoryStore) Get(ctx context.Context, uid string) (*domain.ScanTag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	tag, ok := s.tags[uid]
	if !ok {
		return nil, domain.ErrTagNotFound
	}
	return cloneTag(tag), nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*domain.ScanTag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.ScanTag, 0, len(s.tags))
	for _, tag := range s.tags {
		result = append(result, cloneTag(tag))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].UIDresult < result[j].UIDresult
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) SetLink(ctx context.Context, uid string, itemID *string, now time.Time) (*domain.ScanTag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, ok := s.tags[uid]
	if !ok {
		tag = &domain.ScanTag{UIDresult: uid, CreatedAt: now}
		s.tags[uid] = tag
	}
	tag.LinkedItemID = cloneID(itemID)
	tag.UpdatedAt = now
	return cloneTag(tag), nil
}

func (s *MemoryStore) Touch(ctx context.Context, uid string, now time.Time) (*domain.ScanTag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, ok := s.tags[uid]
	if !ok {
		return nil, domain.ErrTagNotFound
	}
	if !now.After(tag.UpdatedAt) {
		now = tag.UpdatedAt.Truncate(time.Millisecond).Add(time.Millisecond)
	}
	tag.UpdatedAt = now
	return cloneTag(tag), nil
}

func (s *MemoryStore) Delete(ctx context.Context, uid string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tags[uid]; !ok {
		return domain.ErrTagNotFound
	}
	delete(s.tags, uid)
	return nil
}

func cloneTag(t *domain.ScanTag) *domain.ScanTag {
	c := *t
	c.LinkedItemID = cloneID(t.LinkedItemID)
	return &c
}

func cloneID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
