package pulse

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler is the deferred-task facility the dispatch pipeline runs on.
// ScheduleAfter is used for delayed and debounced invocations; Go is used
// for everything marked async. Implementations must be safe for concurrent
// use. The execution context is passed explicitly to every gate at
// registration time rather than discovered at call time.
type Scheduler interface {
	// ScheduleAfter runs fn once after d has elapsed. The returned handle
	// cancels the task if it has not started yet.
	ScheduleAfter(d time.Duration, fn func()) *TaskHandle

	// Go submits fn for background execution. The returned channel receives
	// exactly one value (nil on success, an error if fn panicked) and is then
	// closed. Callers may ignore the channel; failures are still observable
	// to whoever retains it.
	Go(fn func()) <-chan error
}

// TaskHandle refers to a single scheduled task.
type TaskHandle struct {
	runAt time.Time
	fn    func()

	// cancelled tasks stay in the queue and are skipped when due
	cancelled atomic.Bool

	// index is the heap index for compaction
	index int
}

// Cancel prevents the task from running if it has not started yet.
// Cancelling an already-executed or already-cancelled task has no effect.
func (h *TaskHandle) Cancel() {
	h.cancelled.Store(true)
}

// Cancelled reports whether the task has been cancelled.
func (h *TaskHandle) Cancelled() bool {
	return h.cancelled.Load()
}

// TimerScheduler is the default Scheduler. Scheduled tasks are kept in a
// binary heap ordered by deadline and executed by a single timer goroutine;
// background tasks run on a small worker pool.
type TimerScheduler struct {
	mu    sync.Mutex
	heap  []*TaskHandle
	notif chan struct{}

	workers    int
	workerPool chan func()
	workerWG   sync.WaitGroup

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewTimerScheduler creates a scheduler and starts its timer loop and
// worker pool. Call Stop to release the goroutines.
func NewTimerScheduler() *TimerScheduler {
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}

	s := &TimerScheduler{
		heap:       make([]*TaskHandle, 0, 16),
		notif:      make(chan struct{}, 1),
		workers:    workers,
		workerPool: make(chan func(), workers*4),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
	s.start()
	return s
}

func (s *TimerScheduler) start() {
	if s.running.Swap(true) {
		return
	}

	for i := 0; i < s.workers; i++ {
		s.workerWG.Add(1)
		go s.worker()
	}

	go s.run()
}

// Stop shuts the scheduler down. Pending tasks that have not reached their
// deadline are discarded. Stop is idempotent.
func (s *TimerScheduler) Stop() {
	if !s.running.Swap(false) {
		return
	}

	close(s.stopCh)
	<-s.doneCh

	close(s.workerPool)
	s.workerWG.Wait()
}

// ScheduleAfter implements Scheduler.
func (s *TimerScheduler) ScheduleAfter(d time.Duration, fn func()) *TaskHandle {
	if d < 0 {
		d = 0
	}
	h := &TaskHandle{runAt: time.Now().Add(d), fn: fn}

	s.mu.Lock()
	// Periodic compaction keeps cancelled tasks from accumulating.
	if len(s.heap) > 64 && len(s.heap)%64 == 0 {
		s.compact()
	}
	s.heap = append(s.heap, h)
	h.index = len(s.heap) - 1
	s.up(h.index)
	s.mu.Unlock()

	// Wake the timer loop so it can re-evaluate the earliest deadline.
	select {
	case s.notif <- struct{}{}:
	default:
	}
	return h
}

// Go implements Scheduler.
func (s *TimerScheduler) Go(fn func()) <-chan error {
	errCh := make(chan error, 1)
	job := func() {
		defer close(errCh)
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("pulse: panic in background task: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
		errCh <- nil
	}

	if !s.running.Load() {
		// Stopped scheduler: run inline so submissions are never lost.
		job()
		return errCh
	}

	select {
	case s.workerPool <- job:
	default:
		// Worker pool full, run inline.
		job()
	}
	return errCh
}

// worker is a pool worker that executes background jobs.
func (s *TimerScheduler) worker() {
	defer s.workerWG.Done()
	for fn := range s.workerPool {
		fn()
	}
}

// run is the timer loop. It sleeps until the earliest deadline, pops every
// due task and hands it to the worker pool.
func (s *TimerScheduler) run() {
	defer close(s.doneCh)

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		next, ok := s.nextDeadline()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if ok {
			timer.Reset(time.Until(next))
		} else {
			timer.Reset(time.Hour)
		}

		select {
		case <-s.stopCh:
			return
		case <-s.notif:
			// New task pushed; recompute the deadline.
		case <-timer.C:
			s.runDue(time.Now())
		}
	}
}

// nextDeadline returns the deadline of the earliest live task.
func (s *TimerScheduler) nextDeadline() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.heap) > 0 && s.heap[0].cancelled.Load() {
		s.popLocked()
	}
	if len(s.heap) == 0 {
		return time.Time{}, false
	}
	return s.heap[0].runAt, true
}

// runDue pops every task whose deadline has passed and executes it.
func (s *TimerScheduler) runDue(now time.Time) {
	var due []*TaskHandle

	s.mu.Lock()
	for len(s.heap) > 0 && !s.heap[0].runAt.After(now) {
		h := s.popLocked()
		if !h.cancelled.Load() {
			due = append(due, h)
		}
	}
	s.mu.Unlock()

	for _, h := range due {
		h := h
		job := func() {
			defer func() {
				if r := recover(); r != nil {
					// Gate invocations recover their own panics before they
					// reach this point; anything arriving here came from a
					// raw task and is reported on stderr.
					fmt.Printf("pulse: panic in scheduled task: %v\n%s", r, debug.Stack())
				}
			}()
			h.fn()
		}

		select {
		case s.workerPool <- job:
		default:
			job()
		}
	}
}

// popLocked removes and returns the root of the heap. Caller holds mu.
func (s *TimerScheduler) popLocked() *TaskHandle {
	n := len(s.heap)
	h := s.heap[0]
	s.heap[0] = s.heap[n-1]
	s.heap[0].index = 0
	s.heap[n-1] = nil
	s.heap = s.heap[:n-1]
	if len(s.heap) > 0 {
		s.down(0, len(s.heap))
	}
	return h
}

// compact removes cancelled tasks and rebuilds the heap property.
// Caller holds mu.
func (s *TimerScheduler) compact() {
	write := 0
	for read := 0; read < len(s.heap); read++ {
		if !s.heap[read].cancelled.Load() {
			s.heap[write] = s.heap[read]
			s.heap[write].index = write
			write++
		}
	}
	for i := write; i < len(s.heap); i++ {
		s.heap[i] = nil
	}
	s.heap = s.heap[:write]

	for i := len(s.heap)/2 - 1; i >= 0; i-- {
		s.down(i, len(s.heap))
	}
}

func (s *TimerScheduler) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !s.heap[i].runAt.Before(s.heap[parent].runAt) {
			break
		}
		s.swap(i, parent)
		i = parent
	}
}

func (s *TimerScheduler) down(i, n int) {
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		smallest := left
		if right := left + 1; right < n && s.heap[right].runAt.Before(s.heap[left].runAt) {
			smallest = right
		}
		if !s.heap[smallest].runAt.Before(s.heap[i].runAt) {
			break
		}
		s.swap(i, smallest)
		i = smallest
	}
}

func (s *TimerScheduler) swap(i, j int) {
	s.heap[i], s.heap[j] = s.heap[j], s.heap[i]
	s.heap[i].index = i
	s.heap[j].index = j
}
