package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fjod/go_cart/scan-cart/internal/catalog"
	"github.com/fjod/go_cart/scan-cart/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Registry maps scan identifiers to at most one catalog item.
type Registry struct {
	store    TagStore
	cache    TagCache
	catalog  catalog.Catalog
	log      logrus.FieldLogger
	validate *validator.Validate
	sfg      singleflight.Group // collapses concurrent cache misses per uid
	now      func() time.Time

	fetchTimeout time.Duration
}

type Option func(*Registry)

// WithFetchTimeout bounds a shared tag lookup independently of the callers waiting on it.
func WithFetchTimeout(d time.Duration) Option {
	return func(r *Registry) { r.fetchTimeout = d }
}

// WithClock overrides the time source used for created/updated stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func New(store TagStore, cache TagCache, cat catalog.Catalog, log logrus.FieldLogger, opts ...Option) *Registry {
	if cache == nil {
		cache = NopCache{}
	}
	r := &Registry{
		store:    store,
		cache:    cache,
		catalog:  cat,
		log:      log,
		validate: validator.New(),
		now:      func() time.Time { return time.Now().UTC() },

		fetchTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type linkInput struct {
	UIDresult string `validate:"required,max=256"`
	ItemID    string `validate:"required,max=128"`
}

// Resolve looks a tag up without side effects. Concurrent lookups of one uid
// share a single fetch, but each caller gives up only on its own ctx.
func (r *Registry) Resolve(ctx context.Context, uid string) (*domain.ScanTag, error) {
	detached := context.WithoutCancel(ctx)
	ch := r.sfg.DoChan(uid, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(detached, r.fetchTimeout)
		defer cancel()
		return r.fetch(fctx, uid)
	})

	select {
	case <-ctx.Done():
		return nil, domain.StorageError("resolve tag", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, domain.StorageError("resolve tag", res.Err)
		}
		// callers sharing a singleflight result must not alias each other
		return cloneTag(res.Val.(*domain.ScanTag)), nil
	}
}

func (r *Registry) fetch(ctx context.Context, uid string) (*domain.ScanTag, error) {
	tag, err := r.cache.Get(ctx, uid)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		r.log.WithError(err).WithField("uid", uid).Warn("tag cache get failed")
	}

	tag, err = r.store.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, tag); err != nil {
		r.log.WithError(err).WithField("uid", uid).Warn("tag cache set failed")
	}
	return tag, nil
}

// Link creates the tag if needed and points it at itemID, replacing any previous link.
func (r *Registry) Link(ctx context.Context, uid, itemID string) (*domain.ScanTag, error) {
	in := linkInput{UIDresult: strings.TrimSpace(uid), ItemID: strings.TrimSpace(itemID)}
	if err := r.validate.Struct(in); err != nil {
		return nil, toValidationError(err)
	}

	if _, err := r.catalog.GetItem(ctx, in.ItemID); err != nil {
		if errors.Is(err, domain.ErrItemNotFound) {
			return nil, domain.NewValidationError("itemId", "product not found")
		}
		return nil, domain.StorageError("lookup item", err)
	}

	tag, err := r.store.SetLink(ctx, in.UIDresult, &in.ItemID, r.now())
	if err != nil {
		return nil, domain.StorageError("link tag", err)
	}
	r.invalidate(in.UIDresult)

	r.log.WithFields(logrus.Fields{"uid": in.UIDresult, "item_id": in.ItemID}).Info("tag linked")
	return tag, nil
}

// Unlink clears the tag's association but keeps the tag itself.
func (r *Registry) Unlink(ctx context.Context, uid string) (*domain.ScanTag, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, domain.NewValidationError("UIDresult", "is required")
	}
	if _, err := r.store.Get(ctx, uid); err != nil {
		return nil, domain.StorageError("get tag", err)
	}

	tag, err := r.store.SetLink(ctx, uid, nil, r.now())
	if err != nil {
		return nil, domain.StorageError("unlink tag", err)
	}
	r.invalidate(uid)

	r.log.WithField("uid", uid).Info("tag unlinked")
	return tag, nil
}

// Touch records a scan of a known tag. Stamps are kept at millisecond
// precision, the resolution the tag store persists.
func (r *Registry) Touch(ctx context.Context, uid string) (*domain.ScanTag, error) {
	tag, err := r.store.Touch(ctx, uid, r.now().Truncate(time.Millisecond))
	if err != nil {
		return nil, domain.StorageError("touch tag", err)
	}
	return tag, nil
}

func (r *Registry) Get(ctx context.Context, uid string) (*domain.ScanTag, error) {
	tag, err := r.store.Get(ctx, uid)
	if err != nil {
		return nil, domain.StorageError("get tag", err)
	}
	return tag, nil
}

func (r *Registry) List(ctx context.Context) ([]*domain.ScanTag, error) {
	tags, err := r.store.List(ctx)
	if err != nil {
		return nil, domain.StorageError("list tags", err)
	}
	return tags, nil
}

func (r *Registry) Delete(ctx context.Context, uid string) error {
	if err := r.store.Delete(ctx, uid); err != nil {
		return domain.StorageError("delete tag", err)
	}
	r.invalidate(uid)

	r.log.WithField("uid", uid).Info("tag deleted")
	return nil
}

func (r *Registry) invalidate(uid string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.cache.Delete(ctx, uid); err != nil {
		r.log.WithError(err).WithField("uid", uid).Warn("tag cache invalidate failed")
	}
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate link: %w", err)
	}

	fe := verrs[0]
	field := fe.Field()
	if field == "ItemID" {
		field = "itemId"
	}
	switch fe.Tag() {
	case "required":
		return domain.NewValidationError(field, "is required")
	case "max":
		return domain.NewValidationError(field, "must be at most "+fe.Param()+" characters")
	default:
		return domain.NewValidationError(field, "is invalid")
	}
}
