package pulse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGate(t *testing.T, p Policy) (*gate, *manualClock, *manualScheduler) {
	t.Helper()
	clock := &manualClock{}
	sched := newManualScheduler(clock)
	return newGate(p, clock, sched), clock, sched
}

func TestGate_Immediate_FiresSynchronously(t *testing.T) {
	g, _, _ := newTestGate(t, Policy{})

	fired := 0
	g.offer(func() { fired++ })
	g.offer(func() { fired++ })

	assert.Equal(t, 2, fired)
}

func TestGate_Throttle_SuppressesInsideWindow(t *testing.T) {
	g, _, sched := newTestGate(t, Policy{Throttle: time.Second})

	fired := 0
	fire := func() { fired++ }

	sched.advanceTo(0)
	g.offer(fire)
	assert.Equal(t, 1, fired, "first trigger must fire")

	sched.advanceTo(500)
	g.offer(fire)
	assert.Equal(t, 1, fired, "trigger inside the window must be suppressed")

	sched.advanceTo(1200)
	g.offer(fire)
	assert.Equal(t, 2, fired, "trigger after the window must fire")
}

func TestGate_Throttle_SuppressedTriggerDoesNotExtendWindow(t *testing.T) {
	g, _, sched := newTestGate(t, Policy{Throttle: time.Second})

	fired := 0
	fire := func() { fired++ }

	sched.advanceTo(0)
	g.offer(fire)
	sched.advanceTo(900)
	g.offer(fire)
	// The suppressed trigger at t=900 must not reset the window; t=1000 is
	// a full second after the accepted trigger.
	sched.advanceTo(1000)
	g.offer(fire)

	assert.Equal(t, 2, fired)
}

func TestGate_Debounce_CoalescesToLastTrigger(t *testing.T) {
	g, _, sched := newTestGate(t, Policy{Debounce: 200 * time.Millisecond})

	var got []int
	offerAt := func(ms int64, n int) {
		sched.advanceTo(ms)
		g.offer(func() { got = append(got, n) })
	}

	offerAt(0, 1)
	offerAt(50, 2)
	offerAt(100, 3)

	sched.advanceTo(299)
	require.Empty(t, got, "nothing may fire before the quiet period ends")

	sched.advanceTo(300)
	require.Equal(t, []int{3}, got, "only the last trigger of the burst fires")

	sched.advanceTo(10_000)
	assert.Equal(t, []int{3}, got, "the coalesced invocation fires exactly once")
}

func TestGate_Debounce_SeparateBurstsFireSeparately(t *testing.T) {
	g, _, sched := newTestGate(t, Policy{Debounce: 200 * time.Millisecond})

	fired := 0
	fire := func() { fired++ }

	sched.advanceTo(0)
	g.offer(fire)
	sched.advanceTo(200)
	require.Equal(t, 1, fired)

	sched.advanceTo(1000)
	g.offer(fire)
	sched.advanceTo(1200)
	assert.Equal(t, 2, fired)
}

func TestGate_Delay_EachTriggerSchedulesIndependently(t *testing.T) {
	g, _, sched := newTestGate(t, Policy{Delay: 100 * time.Millisecond})

	var got []int
	offerAt := func(ms int64, n int) {
		sched.advanceTo(ms)
		g.offer(func() { got = append(got, n) })
	}

	offerAt(0, 1)
	offerAt(10, 2)
	offerAt(20, 3)

	sched.advanceTo(99)
	require.Empty(t, got)

	sched.advanceTo(130)
	assert.Equal(t, []int{1, 2, 3}, got, "M triggers produce M invocations, no coalescing")
}

func TestGate_ThrottleCombinesWithDebounce(t *testing.T) {
	g, _, sched := newTestGate(t, Policy{Throttle: time.Second, Debounce: 100 * time.Millisecond})

	fired := 0
	fire := func() { fired++ }

	sched.advanceTo(0)
	g.offer(fire) // accepted by throttle, debounced to t=100
	sched.advanceTo(50)
	g.offer(fire) // throttle-suppressed, must not reschedule
	sched.advanceTo(100)
	require.Equal(t, 1, fired, "debounced invocation from the accepted trigger fires at t=100")

	sched.advanceTo(2000)
	g.offer(fire)
	sched.advanceTo(2100)
	assert.Equal(t, 2, fired)
}

func TestGate_PanicInCallbackClearsPendingSlot(t *testing.T) {
	g, _, sched := newTestGate(t, Policy{Debounce: 100 * time.Millisecond})

	g.offer(func() { panic("boom") })
	require.Panics(t, func() { sched.advanceTo(100) })

	g.mu.Lock()
	pending := g.pending
	g.mu.Unlock()
	require.Nil(t, pending, "pending slot must be cleared before the callback runs")

	// The gate keeps working after the failure.
	fired := 0
	g.offer(func() { fired++ })
	sched.advanceTo(200)
	assert.Equal(t, 1, fired)
}

func TestGate_CancelPendingDropsScheduledInvocation(t *testing.T) {
	g, _, sched := newTestGate(t, Policy{Debounce: 100 * time.Millisecond})

	fired := 0
	g.offer(func() { fired++ })
	g.cancelPending()

	sched.advanceTo(1000)
	assert.Zero(t, fired)
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, Policy{}.validate())
	assert.NoError(t, Policy{Delay: time.Second, Throttle: time.Second}.validate())
	assert.Error(t, Policy{Delay: -time.Second}.validate())
	assert.Error(t, Policy{Debounce: -1}.validate())
	assert.Error(t, Policy{Throttle: -1}.validate())
}
