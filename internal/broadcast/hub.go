package broadcast

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/fjod/go_cart/scan-cart/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const EventUIDResult = "uidresult"

// Event is what observers receive for every scan of a known tag.
type Event struct {
	UIDresult string              `json:"UIDresult"`
	UpdatedAt time.Time           `json:"updatedAt"`
	Action    domain.ToggleAction `json:"action,omitempty"`
	Entry     *domain.CartEntry   `json:"entry,omitempty"`
}

// Publisher is the side the scan pipeline sees. Publish must not block on
// slow or broken observers.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Observer is an out-of-process sink such as a message broker.
type Observer interface {
	Observe(ctx context.Context, ev Event) error
}

type Hub struct {
	mu        sync.RWMutex
	subs      map[string]*Subscription
	observers []Observer

	buffer          int
	observerTimeout time.Duration
	log             logrus.FieldLogger
	wg              sync.WaitGroup
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		subs:            make(map[string]*Subscription),
		buffer:          16,
		observerTimeout: 5 * time.Second,
		log:             log,
	}
}

// AddObserver registers a sink that gets every published event asynchronously.
func (h *Hub) AddObserver(o Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers = append(h.observers, o)
}

type Subscription struct {
	ID     string
	hub    *Hub
	events chan Event
	once   sync.Once
}

func (s *Subscription) Events() <-chan Event {
	return s.events
}

// Close detaches the subscription and closes its channel. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s.ID)
		s.hub.mu.Unlock()
		close(s.events)
	})
}

func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		ID:     uuid.NewString(),
		hub:    h,
		events: make(chan Event, h.buffer),
	}
	h.mu.Lock()
	h.subs[sub.ID] = sub
	h.mu.Unlock()
	return sub
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish fans ev out to every subscriber without waiting. A subscriber whose
// buffer is full misses the event; observer errors are logged and dropped.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		select {
		case sub.events <- ev:
		default:
			h.log.WithFields(logrus.Fields{"uid": ev.UIDresult, "subscriber": sub.ID}).
				Warn("broadcast dropped: subscriber buffer full")
		}
	}

	// delivery outlives the request that triggered it
	detached := context.WithoutCancel(ctx)
	for _, o := range h.observers {
		h.wg.Add(1)
		go func(o Observer) {
			defer h.wg.Done()
			octx, cancel := context.WithTimeout(detached, h.observerTimeout)
			defer cancel()
			if err := o.Observe(octx, ev); err != nil {
				h.log.WithError(err).WithField("uid", ev.UIDresult).Warn("broadcast observer failed")
			}
		}(o)
	}
}

// Wait blocks until in-flight observer deliveries finish.
func (h *Hub) Wait() {
	h.wg.Wait()
}

// Close waits for in-flight observer deliveries, then closes every observer
// that holds resources.
func (h *Hub) Close() error {
	h.wg.Wait()

	h.mu.RLock()
	defer h.mu.RUnlock()
	var errs []error
	for _, o := range h.observers {
		if c, ok := o.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
