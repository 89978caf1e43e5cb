// Package livequery turns "user X changed" notifications into re-reads for
// every subscriber watching that user.
package livequery

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	applog "skillchisel/internal/log"
)

// Change announces that a user's documents changed.
type Change struct {
	UserID string `json:"user_id"`
	Origin string `json:"origin"`
}

// Broadcaster carries changes to other server instances.
type Broadcaster interface {
	PublishChange(ctx context.Context, c Change) error
}

// Hub fans changes out to subscribers. Each subscription has its own
// goroutine; bursts of changes collapse into a single pending refresh, and
// refreshes for one subscription never overlap.
type Hub struct {
	origin string
	logger *slog.Logger

	mu          sync.Mutex
	subs        map[string]map[*subscription]struct{}
	broadcaster Broadcaster
}

type subscription struct {
	refresh func()
	pending chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		origin: uuid.NewString(),
		logger: logger.With(applog.FieldComponent, applog.ComponentLiveQuery),
		subs:   make(map[string]map[*subscription]struct{}),
	}
}

// Origin identifies this hub in broadcast changes.
func (h *Hub) Origin() string { return h.origin }

// SetBroadcaster makes Notify also forward changes to b.
func (h *Hub) SetBroadcaster(b Broadcaster) {
	h.mu.Lock()
	h.broadcaster = b
	h.mu.Unlock()
}

// Subscribe runs refresh once right away and again after every change for
// userID, until the returned function is called. The returned function
// waits for an in-flight refresh to finish.
func (h *Hub) Subscribe(userID string, refresh func()) (unsubscribe func()) {
	s := &subscription{
		refresh: refresh,
		pending: make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	s.pending <- struct{}{}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*subscription]struct{})
	}
	h.subs[userID][s] = struct{}{}
	h.mu.Unlock()

	go s.run()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], s)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			h.mu.Unlock()
			close(s.done)
			<-s.stopped
		})
	}
}

// Notify records a local change: subscribers on this instance refresh and
// the change is broadcast to other instances when a broadcaster is set.
func (h *Hub) Notify(ctx context.Context, userID string) {
	h.Deliver(Change{UserID: userID, Origin: h.origin})

	h.mu.Lock()
	b := h.broadcaster
	h.mu.Unlock()
	if b == nil {
		return
	}
	if err := b.PublishChange(ctx, Change{UserID: userID, Origin: h.origin}); err != nil {
		h.logger.WarnContext(ctx, "Failed to broadcast change", "user_id", userID, "error", err)
	}
}

// Deliver wakes the subscribers of c.UserID.
func (h *Hub) Deliver(c Change) {
	h.mu.Lock()
	subs := make([]*subscription, 0, len(h.subs[c.UserID]))
	for s := range h.subs[c.UserID] {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		select {
		case s.pending <- struct{}{}:
		default:
		}
	}
}

// HandleRemote applies a change received from another instance. Changes
// that originated here were already delivered by Notify.
func (h *Hub) HandleRemote(c Change) {
	if c.Origin == h.origin || c.UserID == "" {
		return
	}
	h.Deliver(c)
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, subs := range h.subs {
		n += len(subs)
	}
	return n
}

func (s *subscription) run() {
	defer close(s.stopped)
	for {
		select {
		case <-s.done:
			return
		case <-s.pending:
			select {
			case <-s.done:
				return
			default:
			}
			s.refresh()
		}
	}
}
