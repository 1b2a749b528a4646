package cart

import (
	"context"
	"sort"
	"sync"

	"github.com/fjod/go_cart/scan-cart/internal/domain"
)

// MemoryStore implements EntryStore in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]domain.CartEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]domain.CartEntry)}
}

func (s *MemoryStore) Get(ctx context.Context, scanID string) (*domain.CartEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[scanID]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	return &entry, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]*domain.CartEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.CartEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		e := entry
		result = append(result, &e)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ToggledAt.Before(result[j].ToggledAt)
	})
	return result, nil
}

func (s *MemoryStore) Insert(ctx context.Context, entry *domain.CartEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[entry.ScanID]; exists {
		return ErrDuplicateEntry
	}
	s.entries[entry.ScanID] = *entry
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, scanID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[scanID]; !exists {
		return false, nil
	}
	delete(s.entries, scanID)
	return true, nil
}

// Len is the number of entries currently in the cart.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
