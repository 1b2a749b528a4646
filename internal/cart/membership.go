package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_cart/scan-cart/internal/domain"
)

// Membership is the scan-addressable cart: at most one entry per scan id.
// Toggles for the same scan id are applied one at a time, in arrival order
// of lock acquisition; toggles for different scan ids run in parallel.
type Membership struct {
	store EntryStore
	locks *keyLock
	now   func() time.Time
}

func NewMembership(store EntryStore) *Membership {
	return &Membership{
		store: store,
		locks: newKeyLock(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Toggle flips cart membership for scanID. An existing entry is removed;
// otherwise a new entry is created from snap.
func (m *Membership) Toggle(ctx context.Context, scanID string, snap domain.ItemSnapshot) (domain.ToggleResult, error) {
	unlock, err := m.locks.Lock(ctx, scanID)
	if err != nil {
		return domain.ToggleResult{}, domain.StorageError("acquire cart lock", err)
	}
	defer unlock()

	removed, err := m.store.Delete(ctx, scanID)
	if err != nil {
		return domain.ToggleResult{}, domain.StorageError("remove cart entry", err)
	}
	if removed {
		return domain.ToggleResult{Action: domain.ActionRemoved}, nil
	}

	entry := &domain.CartEntry{
		ScanID:       scanID,
		ItemSnapshot: snap,
		ToggledAt:    m.now(),
	}
	if err := m.store.Insert(ctx, entry); err != nil {
		return domain.ToggleResult{}, domain.StorageError("add cart entry", fmt.Errorf("scan %s: %w", scanID, err))
	}
	return domain.ToggleResult{Action: domain.ActionAdded, Entry: entry}, nil
}

func (m *Membership) Get(ctx context.Context, scanID string) (*domain.CartEntry, error) {
	entry, err := m.store.Get(ctx, scanID)
	if err != nil {
		return nil, domain.StorageError("get cart entry", err)
	}
	return entry, nil
}

func (m *Membership) List(ctx context.Context) ([]*domain.CartEntry, error) {
	entries, err := m.store.List(ctx)
	if err != nil {
		return nil, domain.StorageError("list cart entries", err)
	}
	return entries, nil
}
