// Package events is a synchronous in-process notification bus.
//
// Handlers are identified by (event name, tag), so a component can replace
// or drop its own subscription without touching others. Emit calls handlers
// in subscription order on the caller's goroutine.
package events

import "sync"

const (
	Login  = "login"
	Logout = "logout"
	Saved  = "saved"
	// Notice carries user-visible error text as a string payload.
	Notice = "notice"
)

type Handler func(payload any)

type subscription struct {
	tag string
	fn  Handler
}

type Bus struct {
	mu   sync.Mutex
	subs map[string][]subscription
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers fn for name under tag, replacing an existing handler
// with the same name and tag.
func (b *Bus) Subscribe(name, tag string, fn Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[name]
	for i, s := range list {
		if s.tag == tag {
			list[i].fn = fn
			return
		}
	}
	b.subs[name] = append(list, subscription{tag: tag, fn: fn})
}

// Unsubscribe removes the handler registered for name under tag.
func (b *Bus) Unsubscribe(name, tag string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[name]
	for i, s := range list {
		if s.tag == tag {
			b.subs[name] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

func (b *Bus) UnsubscribeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]subscription)
}

// Emit delivers payload to the handlers of name. Handlers may subscribe or
// unsubscribe while being called; changes apply to the next Emit.
func (b *Bus) Emit(name string, payload any) {
	b.mu.Lock()
	list := append([]subscription(nil), b.subs[name]...)
	b.mu.Unlock()

	for _, s := range list {
		s.fn(payload)
	}
}
