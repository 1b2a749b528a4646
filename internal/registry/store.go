package registry

import (
	"context"
	"time"

	"github.com/fjod/go_cart/scan-cart/internal/domain"
)

// TagStore is the persistent side of the registry. Missing tags are
// reported as domain.ErrTagNotFound.
type TagStore interface {
	Get(ctx context.Context, uid string) (*domain.ScanTag, error)
	List(ctx context.Context) ([]*domain.ScanTag, error)
	// SetLink creates the tag if needed and replaces its link. A nil itemID clears it.
	SetLink(ctx context.Context, uid string, itemID *string, now time.Time) (*domain.ScanTag, error)
	// Touch stamps UpdatedAt on an existing tag. The stored value always moves
	// forward: a stamp not after the current one becomes current + 1ms.
	Touch(ctx context.Context, uid string, now time.Time) (*domain.ScanTag, error)
	Delete(ctx context.Context, uid string) error
}
