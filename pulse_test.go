package pulse

import (
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// manualClock is a Clock advanced by hand.
type manualClock struct {
	mu  sync.Mutex
	now int64
}

func (c *manualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) set(ms int64) {
	c.mu.Lock()
	c.now = ms
	c.mu.Unlock()
}

// manualScheduler collects scheduled tasks and runs them when the test
// advances time. Background submissions run inline.
type manualScheduler struct {
	clock *manualClock

	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	at     int64
	seq    int
	fn     func()
	handle *TaskHandle
}

func newManualScheduler(clock *manualClock) *manualScheduler {
	return &manualScheduler{clock: clock}
}

func (s *manualScheduler) ScheduleAfter(d time.Duration, fn func()) *TaskHandle {
	h := &TaskHandle{fn: fn}
	s.mu.Lock()
	s.tasks = append(s.tasks, &manualTask{
		at:     s.clock.Now() + d.Milliseconds(),
		seq:    len(s.tasks),
		fn:     fn,
		handle: h,
	})
	s.mu.Unlock()
	return h
}

func (s *manualScheduler) Go(fn func()) <-chan error {
	errCh := make(chan error, 1)
	func() {
		defer close(errCh)
		defer func() {
			if r := recover(); r != nil {
				errCh <- errFromPanic(r)
			}
		}()
		fn()
		errCh <- nil
	}()
	return errCh
}

type panicError struct{ v any }

func (e panicError) Error() string { return "panic in background task" }

func errFromPanic(v any) error { return panicError{v} }

// pendingCount returns the number of live scheduled tasks.
func (s *manualScheduler) pendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, task := range s.tasks {
		if !task.handle.Cancelled() {
			n++
		}
	}
	return n
}

// advanceTo moves the clock to ms and runs every due, uncancelled task in
// deadline order.
func (s *manualScheduler) advanceTo(ms int64) {
	s.clock.set(ms)

	s.mu.Lock()
	var due []*manualTask
	var rest []*manualTask
	for _, task := range s.tasks {
		if task.handle.Cancelled() {
			continue
		}
		if task.at <= ms {
			due = append(due, task)
		} else {
			rest = append(rest, task)
		}
	}
	s.tasks = rest
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, task := range due {
		if !task.handle.Cancelled() {
			task.fn()
		}
	}
}

// newTestDispatcher wires a dispatcher to a manual clock and scheduler and
// a silent logger.
func newTestDispatcher(t *testing.T) (*Dispatcher, *manualClock, *manualScheduler) {
	t.Helper()
	clock := &manualClock{}
	sched := newManualScheduler(clock)
	d := NewDispatcher(
		WithClock(clock),
		WithScheduler(sched),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	t.Cleanup(d.Close)
	return d, clock, sched
}

// Test event shapes.

// plainEvent carries no actor/world/cancel capabilities.
type plainEvent struct {
	N int
}

// shapedEvent exposes the full actor/world shape without a live player.
type shapedEvent struct {
	name  string
	id    uuid.UUID
	world string
}

func (e *shapedEvent) ActorName() string    { return e.name }
func (e *shapedEvent) ActorUUID() uuid.UUID { return e.id }
func (e *shapedEvent) WorldName() string    { return e.world }

// vetoedEvent is cancellable.
type vetoedEvent struct {
	cancelled bool
}

func (e *vetoedEvent) Cancelled() bool { return e.cancelled }
