package cart

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/scan-cart/internal/domain"
)

var ErrDuplicateEntry = errors.New("cart entry already exists")

// EntryStore persists cart entries keyed by scan id. Missing entries are
// reported as domain.ErrEntryNotFound.
type EntryStore interface {
	Get(ctx context.Context, scanID string) (*domain.CartEntry, error)
	List(ctx context.Context) ([]*domain.CartEntry, error)
	// Insert fails with ErrDuplicateEntry if scanID is already present.
	Insert(ctx context.Context, entry *domain.CartEntry) error
	// Delete reports whether an entry was removed.
	Delete(ctx context.Context, scanID string) (bool, error)
}
