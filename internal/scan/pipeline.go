package scan

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/fjod/go_cart/scan-cart/internal/broadcast"
	"github.com/fjod/go_cart/scan-cart/internal/domain"
	"github.com/sirupsen/logrus"
)

// State is the pipeline stage a scan reached.
type State string

const (
	StateReceived State = "RECEIVED"
	StateResolved State = "RESOLVED"
	StateToggled  State = "TOGGLED"
	StateNotified State = "NOTIFIED"
	StateNoTag    State = "NO_TAG"
	StateNoLink   State = "NO_LINK"
)

// Outcome is what the caller reports back to the reader.
type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeAdded
	OutcomeRemoved
	OutcomeNoTag
	OutcomeNoLink
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdded:
		return "added"
	case OutcomeRemoved:
		return "removed"
	case OutcomeNoTag:
		return "no_tag"
	case OutcomeNoLink:
		return "no_link"
	default:
		return "rejected"
	}
}

type Result struct {
	Outcome Outcome
	State   State
	// Tag is nil for rejected and unknown scans.
	Tag   *domain.ScanTag
	Entry *domain.CartEntry
}

type TagResolver interface {
	Resolve(ctx context.Context, uid string) (*domain.ScanTag, error)
	Touch(ctx context.Context, uid string) (*domain.ScanTag, error)
}

type ItemSource interface {
	GetItem(ctx context.Context, id string) (*domain.Product, error)
}

type Cart interface {
	Toggle(ctx context.Context, scanID string, snap domain.ItemSnapshot) (domain.ToggleResult, error)
}

// Pipeline turns one scan into a cart toggle and a broadcast.
// Each call is an independent unit of work.
type Pipeline struct {
	tags      TagResolver
	items     ItemSource
	cart      Cart
	publisher broadcast.Publisher
	log       logrus.FieldLogger
	timeout   time.Duration
}

func NewPipeline(tags TagResolver, items ItemSource, cart Cart, pub broadcast.Publisher, log logrus.FieldLogger, storageTimeout time.Duration) *Pipeline {
	return &Pipeline{
		tags:      tags,
		items:     items,
		cart:      cart,
		publisher: pub,
		log:       log,
		timeout:   storageTimeout,
	}
}

// Process runs a scan through the pipeline. Only storage failures are returned
// as errors; a blank id, an unknown tag and a missing link are outcomes.
func (p *Pipeline) Process(ctx context.Context, uid string) (Result, error) {
	uid = strings.TrimSpace(uid)
	log := p.log.WithField("uid", uid)
	if uid == "" {
		return Result{Outcome: OutcomeRejected, State: StateReceived}, nil
	}

	tag, err := p.resolve(ctx, uid)
	if errors.Is(err, domain.ErrTagNotFound) {
		log.WithField("state", StateNoTag).Info("scan of unknown tag")
		return Result{Outcome: OutcomeNoTag, State: StateNoTag}, nil
	}
	if err != nil {
		log.WithError(err).Error("resolve tag failed")
		return Result{State: StateReceived}, err
	}

	item, err := p.linkedItem(ctx, tag)
	if err != nil {
		log.WithError(err).Error("lookup linked item failed")
		return Result{Tag: tag, State: StateResolved}, err
	}
	if item == nil {
		p.notify(ctx, broadcast.Event{UIDresult: tag.UIDresult, UpdatedAt: tag.UpdatedAt})
		log.WithField("state", StateNoLink).Info("scan of tag without association")
		return Result{Outcome: OutcomeNoLink, State: StateNoLink, Tag: tag}, nil
	}

	res, err := p.toggle(ctx, uid, domain.SnapshotOf(*item))
	if err != nil {
		// the tag scan itself already happened, observers still hear about it
		p.notify(ctx, broadcast.Event{UIDresult: tag.UIDresult, UpdatedAt: tag.UpdatedAt})
		log.WithError(err).Error("cart toggle failed")
		return Result{Tag: tag, State: StateResolved}, err
	}
	log.WithFields(logrus.Fields{"state": StateToggled, "action": res.Action}).Debug("cart toggled")

	p.notify(ctx, broadcast.Event{
		UIDresult: tag.UIDresult,
		UpdatedAt: tag.UpdatedAt,
		Action:    res.Action,
		Entry:     res.Entry,
	})

	out := Result{State: StateNotified, Tag: tag, Entry: res.Entry, Outcome: OutcomeRemoved}
	if res.Action == domain.ActionAdded {
		out.Outcome = OutcomeAdded
	}
	log.WithFields(logrus.Fields{"state": StateNotified, "action": res.Action}).Info("scan processed")
	return out, nil
}

// resolve checks the tag exists and stamps the scan time on it.
func (p *Pipeline) resolve(ctx context.Context, uid string) (*domain.ScanTag, error) {
	sctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if _, err := p.tags.Resolve(sctx, uid); err != nil {
		return nil, err
	}
	// a delete between the two calls surfaces as ErrTagNotFound
	return p.tags.Touch(sctx, uid)
}

// linkedItem returns nil when the tag has no usable association.
func (p *Pipeline) linkedItem(ctx context.Context, tag *domain.ScanTag) (*domain.Product, error) {
	if !tag.IsLinked() {
		return nil, nil
	}

	sctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	item, err := p.items.GetItem(sctx, *tag.LinkedItemID)
	if errors.Is(err, domain.ErrItemNotFound) {
		p.log.WithFields(logrus.Fields{"uid": tag.UIDresult, "item_id": *tag.LinkedItemID}).
			Warn("tag linked to missing catalog item")
		return nil, nil
	}
	if err != nil {
		return nil, domain.StorageError("lookup item", err)
	}
	return item, nil
}

func (p *Pipeline) toggle(ctx context.Context, uid string, snap domain.ItemSnapshot) (domain.ToggleResult, error) {
	sctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.cart.Toggle(sctx, uid, snap)
}

func (p *Pipeline) notify(ctx context.Context, ev broadcast.Event) {
	p.publisher.Publish(ctx, ev)
}
