// Package ignore implements the echo-suppression list.
//
// Before pushing a change that the server will broadcast back, the pusher
// adds the record ids here; the sync path that receives the broadcast checks
// the list and drops the matching echo. An entry is consumed by the first
// match or expires after its TTL, whichever comes first.
package ignore

import (
	"sync"
	"time"
)

// Kind separates echoes of local writes from echoes of remote pushes.
type Kind int

const (
	// Local suppresses a store->memory echo of a write made from memory.
	Local Kind = iota
	// Remote suppresses an api->store echo of a push made from the store.
	Remote
)

func (k Kind) String() string {
	switch k {
	case Local:
		return "local"
	case Remote:
		return "remote"
	default:
		return "unknown"
	}
}

// DefaultTTL bounds how long an unmatched entry is kept.
const DefaultTTL = 10 * time.Second

type key struct {
	kind Kind
	id   string
}

type List struct {
	mu      sync.Mutex
	entries map[key]time.Time
	now     func() time.Time
}

func New() *List {
	return &List{entries: make(map[key]time.Time), now: time.Now}
}

// WithClock replaces the clock used for expiry.
func (l *List) WithClock(now func() time.Time) *List {
	l.now = now
	return l
}

// Add lists ids of kind for ttl. Empty ids are skipped; ttl <= 0 means
// DefaultTTL.
func (l *List) Add(kind Kind, ttl time.Duration, ids ...string) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	deadline := l.now().Add(ttl)
	for _, id := range ids {
		if id == "" {
			continue
		}
		l.entries[key{kind, id}] = deadline
	}
}

// ShouldIgnore reports whether any of ids is listed for kind. Matched
// entries are consumed. Expired entries never match.
func (l *List) ShouldIgnore(kind Kind, ids ...string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	matched := false
	for _, id := range ids {
		if id == "" {
			continue
		}
		k := key{kind, id}
		deadline, ok := l.entries[k]
		if !ok {
			continue
		}
		delete(l.entries, k)
		if now.Before(deadline) {
			matched = true
		}
	}
	l.sweep(now)
	return matched
}

func (l *List) Remove(kind Kind, ids ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, id := range ids {
		delete(l.entries, key{kind, id})
	}
}

func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[key]time.Time)
}

// Len returns the number of unexpired entries.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(l.now())
	return len(l.entries)
}

func (l *List) sweep(now time.Time) {
	for k, deadline := range l.entries {
		if !now.Before(deadline) {
			delete(l.entries, k)
		}
	}
}
