package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmit_OrderAndPayload(t *testing.T) {
	b := NewBus()
	var got []string

	b.Subscribe(Login, "a", func(p any) { got = append(got, "a:"+p.(string)) })
	b.Subscribe(Login, "b", func(p any) { got = append(got, "b:"+p.(string)) })
	b.Subscribe(Logout, "c", func(p any) { got = append(got, "c") })

	b.Emit(Login, "x")
	assert.Equal(t, []string{"a:x", "b:x"}, got)
}

func TestSubscribe_SameTagReplaces(t *testing.T) {
	b := NewBus()
	calls := 0

	b.Subscribe(Saved, "t", func(any) { calls += 1 })
	b.Subscribe(Saved, "t", func(any) { calls += 10 })
	b.Emit(Saved, nil)

	assert.Equal(t, 10, calls)
}

func TestUnsubscribe(t *testing.T) {
	b := NewBus()
	calls := 0

	b.Subscribe(Saved, "t", func(any) { calls++ })
	b.Unsubscribe(Saved, "t")
	b.Unsubscribe(Saved, "unknown")
	b.Emit(Saved, nil)

	assert.Zero(t, calls)
}

func TestUnsubscribe_FromInsideHandler(t *testing.T) {
	b := NewBus()
	calls := 0

	b.Subscribe(Login, "once", func(any) {
		calls++
		b.Unsubscribe(Login, "once")
	})
	b.Emit(Login, nil)
	b.Emit(Login, nil)

	assert.Equal(t, 1, calls)
}

func TestUnsubscribeAll(t *testing.T) {
	b := NewBus()
	calls := 0

	b.Subscribe(Login, "a", func(any) { calls++ })
	b.Subscribe(Logout, "b", func(any) { calls++ })
	b.UnsubscribeAll()
	b.Emit(Login, nil)
	b.Emit(Logout, nil)

	assert.Zero(t, calls)
}
