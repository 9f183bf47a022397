package pulse

import (
	"fmt"
	"sync"
	"time"
)

// Policy controls when a listener's callback actually runs relative to the
// triggers that reach it. The controls are applied in a fixed order per
// trigger:
//
//  1. Throttle: if less than Throttle has elapsed since the last accepted
//     trigger, the trigger is suppressed outright.
//  2. Debounce: the trigger replaces any pending invocation and the callback
//     is scheduled to run Debounce from now with the latest event snapshot.
//     Only the last trigger of a burst ever fires.
//  3. Delay: each trigger independently schedules its own invocation Delay
//     from now. No coalescing.
//  4. Otherwise the callback runs on the spot, or on the background pool if
//     Async is set.
//
// A zero duration disables the corresponding control. A Policy is frozen
// when the listener is registered.
type Policy struct {
	// Delay defers each invocation by the given duration.
	Delay time.Duration

	// Debounce coalesces bursts of triggers into a single invocation that
	// fires once triggers have been quiet for the given duration.
	Debounce time.Duration

	// Throttle suppresses triggers arriving within the given duration of the
	// last accepted one.
	Throttle time.Duration

	// Async runs the callback on the scheduler's background pool instead of
	// the host's dispatch goroutine.
	Async bool
}

// validate rejects negative durations at registration time.
func (p Policy) validate() error {
	if p.Delay < 0 || p.Debounce < 0 || p.Throttle < 0 {
		return fmt.Errorf("pulse: policy durations must be non-negative (delay=%v debounce=%v throttle=%v)", p.Delay, p.Debounce, p.Throttle)
	}
	return nil
}

// gate applies a Policy to one subscription. lastTrigger and the single
// pending slot are the only mutable state; both are guarded by mu so
// triggers arriving concurrently from the host goroutine and from a
// background invocation serialize correctly.
type gate struct {
	policy Policy
	clock  Clock
	sched  Scheduler

	mu          sync.Mutex
	lastTrigger int64
	pending     *TaskHandle
}

// gateNever is the lastTrigger value of a gate that has not accepted a
// trigger yet. It is far enough in the past that the first trigger always
// clears the throttle window.
const gateNever = int64(-1) << 62

func newGate(policy Policy, clock Clock, sched Scheduler) *gate {
	return &gate{
		policy:      policy,
		clock:       clock,
		sched:       sched,
		lastTrigger: gateNever,
	}
}

// offer runs fire through the gate's temporal controls. fire must contain
// its own panic recovery; the gate only guarantees that the pending slot is
// consistent regardless of what the callback does.
func (g *gate) offer(fire func()) {
	p := g.policy

	if p.Throttle > 0 {
		g.mu.Lock()
		now := g.clock.Now()
		if now-g.lastTrigger < p.Throttle.Milliseconds() {
			g.mu.Unlock()
			return
		}
		g.lastTrigger = now
		g.mu.Unlock()
	}

	switch {
	case p.Debounce > 0:
		g.mu.Lock()
		if g.pending != nil {
			g.pending.Cancel()
		}
		var h *TaskHandle
		h = g.sched.ScheduleAfter(p.Debounce, func() {
			g.clearPending(h)
			g.exec(fire)
		})
		g.pending = h
		g.mu.Unlock()

	case p.Delay > 0:
		// Each trigger schedules independently. The slot tracks the latest
		// handle so cancellation can still reach outstanding work; earlier
		// handles are covered by the subscription's cancelled check in fire.
		var h *TaskHandle
		h = g.sched.ScheduleAfter(p.Delay, func() {
			g.clearPending(h)
			g.exec(fire)
		})
		g.mu.Lock()
		g.pending = h
		g.mu.Unlock()

	case p.Async:
		g.sched.Go(fire)

	default:
		fire()
	}
}

// exec runs a deferred invocation, on the background pool if async.
func (g *gate) exec(fire func()) {
	if g.policy.Async {
		g.sched.Go(fire)
		return
	}
	fire()
}

// clearPending empties the pending slot if it still holds h. Runs before
// the callback so a panicking callback cannot leave a stale handle behind.
func (g *gate) clearPending(h *TaskHandle) {
	g.mu.Lock()
	if g.pending == h {
		g.pending = nil
	}
	g.mu.Unlock()
}

// cancelPending cancels and clears any scheduled invocation. Called when
// the owning subscription is cancelled.
func (g *gate) cancelPending() {
	g.mu.Lock()
	if g.pending != nil {
		g.pending.Cancel()
		g.pending = nil
	}
	g.mu.Unlock()
}
