package pulse

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Subscription identifies one registered listener. It is returned by On and
// stays valid until cancelled, either explicitly or automatically for
// fire-once listeners after their first invocation.
type Subscription struct {
	id        uuid.UUID
	d         *Dispatcher
	eventType reflect.Type
	gate      *gate
	fireOnce  bool
	cancelled atomic.Bool
}

// ID returns the subscription's unique id.
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Active reports whether the subscription still receives events.
func (s *Subscription) Active() bool {
	return !s.cancelled.Load()
}

// Cancel removes the listener and drops any pending debounced or delayed
// invocation. A callback already mid-execution finishes but is never
// retriggered. Cancel is idempotent; cancellation is terminal.
func (s *Subscription) Cancel() {
	if s.cancelled.Swap(true) {
		return
	}
	s.gate.cancelPending()
	s.d.remove(s)
}

// Group is a non-owning collection of subscriptions used purely for bulk
// cancellation. It holds no other state. The zero value is ready to use.
type Group struct {
	mu   sync.Mutex
	subs []*Subscription
}

// NewGroup creates an empty listener group.
func NewGroup() *Group {
	return &Group{}
}

// Add attaches a subscription to the group.
func (g *Group) Add(s *Subscription) {
	if s == nil {
		return
	}
	g.mu.Lock()
	g.subs = append(g.subs, s)
	g.mu.Unlock()
}

// Len returns the number of tracked subscriptions, including ones that were
// cancelled on their own.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// CancelAll cancels every member and clears the group.
func (g *Group) CancelAll() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()

	for _, s := range subs {
		s.Cancel()
	}
}
