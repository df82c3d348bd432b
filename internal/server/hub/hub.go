// Package hub fans accepted record changes out to every open subscription of
// the owning account, the originating device included.
package hub

import (
	"sync"

	"github.com/dmitrijs2005/profilekeeper/internal/server/models"
)

// DefaultBuffer is the per-subscription queue length.
const DefaultBuffer = 64

type Subscription struct {
	C <-chan models.Record

	hub    *Hub
	userID string
	ch     chan models.Record
	once   sync.Once
}

// Close unregisters the subscription and closes C. It reports whether this
// call did the closing; later calls are no-ops returning false.
func (s *Subscription) Close() bool {
	closed := false
	s.once.Do(func() {
		s.hub.remove(s)
		closed = true
	})
	return closed
}

type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
}

func New(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer}
}

func (h *Hub) Subscribe(userID string) *Subscription {
	ch := make(chan models.Record, h.buffer)
	s := &Subscription{C: ch, hub: h, userID: userID, ch: ch}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][s] = struct{}{}
	return s
}

// Publish queues rec on every subscription of rec.UserID and returns how
// many received it. A subscription whose queue is full misses the record.
func (h *Hub) Publish(rec models.Record) (delivered, dropped int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs[rec.UserID] {
		select {
		case s.ch <- rec:
			delivered++
		default:
			dropped++
		}
	}
	return delivered, dropped
}

// Count returns the number of open subscriptions for userID.
func (h *Hub) Count(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[s.userID]
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, s.userID)
	}
	close(s.ch)
}
