package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/tomioM/recipe-voyage-sub000/internal/model"
)

// ErrSubscriptionClosed is returned by Subscription.Next after Close.
var ErrSubscriptionClosed = errors.New("subscription closed")

// Snapshot is an immutable view of both partitions after a reload.
// Callers must not modify the slices.
type Snapshot struct {
	// Version increases by one with every published snapshot.
	Version int64

	// Library is ordered by ascending SortOrder.
	Library []model.Recipe

	// Inbox is ordered newest first.
	Inbox []model.Recipe
}

// LibraryIDs returns the library recipe ids in display order.
func (s *Snapshot) LibraryIDs() []string {
	return recipeIDs(s.Library)
}

// InboxIDs returns the inbox recipe ids in display order.
func (s *Snapshot) InboxIDs() []string {
	return recipeIDs(s.Inbox)
}

// Find returns the recipe with id from either view.
func (s *Snapshot) Find(id string) (model.Recipe, bool) {
	for _, r := range s.Library {
		if r.ID == id {
			return r, true
		}
	}
	for _, r := range s.Inbox {
		if r.ID == id {
			return r, true
		}
	}
	return model.Recipe{}, false
}

func recipeIDs(rs []model.Recipe) []string {
	ids := make([]string, len(rs))
	for i, r := range rs {
		ids[i] = r.ID
	}
	return ids
}

// ChangeEvent announces a newly published snapshot.
type ChangeEvent struct {
	// Op is the mutation that produced the snapshot ("refresh" for an
	// explicit reload).
	Op string

	// RecipeID is the recipe the mutation touched, if any.
	RecipeID string

	Snapshot *Snapshot
}

// Subscription is a FIFO stream of change events.
//
// The queue is unbounded so publishing never blocks a mutation. A channel
// of size 1 signals availability, which lets Next honor context
// cancellation.
type Subscription struct {
	mu     sync.Mutex
	events []ChangeEvent
	closed bool
	signal chan struct{}

	hub *hub
}

func newSubscription(h *hub) *Subscription {
	return &Subscription{
		events: make([]ChangeEvent, 0, 8),
		signal: make(chan struct{}, 1),
		hub:    h,
	}
}

func (s *Subscription) enqueue(e ChangeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.events = append(s.events, e)

	// Non-blocking; the buffer of 1 coalesces signals.
	select {
	case s.signal <- struct{}{}:
	default:
	}
	return true
}

// TryNext returns the oldest pending event without blocking.
func (s *Subscription) TryNext() (ChangeEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) == 0 {
		return ChangeEvent{}, false
	}
	e := s.events[0]
	s.events[0] = ChangeEvent{} // release the snapshot for GC
	if len(s.events) == 1 {
		s.events = s.events[:0]
	} else {
		s.events = s.events[1:]
	}
	return e, true
}

// Next blocks until an event is available, ctx is done, or the
// subscription is closed. Pending events are still delivered after Close.
func (s *Subscription) Next(ctx context.Context) (ChangeEvent, error) {
	for {
		if e, ok := s.TryNext(); ok {
			return e, nil
		}

		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return ChangeEvent{}, ErrSubscriptionClosed
		}

		select {
		case <-ctx.Done():
			return ChangeEvent{}, ctx.Err()
		case <-s.signal:
		}
	}
}

// Len returns the number of pending events.
func (s *Subscription) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Close stops delivery and wakes any blocked Next.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.signal)
	s.mu.Unlock()

	s.hub.remove(s)
}

// hub fans change events out to subscriptions.
type hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[*Subscription]struct{})}
}

func (h *hub) subscribe() *Subscription {
	s := newSubscription(h)
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *hub) remove(s *Subscription) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

func (h *hub) publish(e ChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		s.enqueue(e)
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	subs := make([]*Subscription, 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}
