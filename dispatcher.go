package pulse

import (
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Dispatcher is the central pulse coordinator. It owns the listener
// registry, the cooldown store, pause flags, predicate templates and
// per-player metadata, and binds every listener to a clock and a scheduler.
// Multiple Dispatcher instances can coexist in the same process for running
// multiple isolated servers.
type Dispatcher struct {
	log   *slog.Logger
	clock Clock
	sched Scheduler
	perms Permissions

	// ownSched is set when the dispatcher created the scheduler itself and
	// is therefore responsible for stopping it on Close.
	ownSched *TimerScheduler

	// listeners holds registrations keyed by the concrete event type token.
	listeners   map[reflect.Type][]*listener
	listenersMu sync.RWMutex

	// seq provides a stable tie-break for listeners of equal priority.
	seq atomic.Uint64

	cooldowns *CooldownStore
	pauses    *PauseFlags

	templates map[string]Predicate
	tmplMu    sync.RWMutex

	// metadata stores arbitrary per-player values consulted by the
	// metadata predicates. Keyed by player UUID.
	metadata map[uuid.UUID]map[string]any
	metaMu   sync.RWMutex

	closed atomic.Bool
}

// listener binds a predicate, a temporal gate and a callback to one event
// type. The config is immutable after registration.
type listener struct {
	sub      *Subscription
	priority Priority
	seq      uint64

	// receiveCancelled listeners are notified even for events an earlier
	// listener already cancelled.
	receiveCancelled bool

	pred Predicate
	fn   func(event any)
}

// DispatcherOption configures a Dispatcher at construction time.
type DispatcherOption func(*Dispatcher)

// WithLogger sets the logger used for runtime callback errors.
func WithLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = log }
}

// WithClock sets the monotonic clock used by gates and the cooldown store.
func WithClock(clock Clock) DispatcherOption {
	return func(d *Dispatcher) { d.clock = clock }
}

// WithScheduler sets the deferred-task facility. The dispatcher does not
// take ownership; the caller stops it.
func WithScheduler(sched Scheduler) DispatcherOption {
	return func(d *Dispatcher) { d.sched = sched }
}

// WithPermissions sets the permission hook consulted by HasPermission
// predicates and command builders.
func WithPermissions(perms Permissions) DispatcherOption {
	return func(d *Dispatcher) { d.perms = perms }
}

// NewDispatcher creates a dispatcher. Without options it logs through
// slog.Default, measures time with a monotonic clock, allows every
// permission check and runs deferred work on a TimerScheduler it owns
// (stopped again by Close).
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		listeners: make(map[reflect.Type][]*listener),
		templates: make(map[string]Predicate),
		metadata:  make(map[uuid.UUID]map[string]any),
		pauses:    NewPauseFlags(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.log == nil {
		d.log = slog.Default()
	}
	if d.clock == nil {
		d.clock = NewClock()
	}
	if d.sched == nil {
		d.ownSched = NewTimerScheduler()
		d.sched = d.ownSched
	}
	if d.perms == nil {
		d.perms = allowAll{}
	}
	d.cooldowns = NewCooldownStore(d.clock)
	return d
}

// Close cancels all subscriptions and stops the scheduler if the
// dispatcher owns it. The dispatcher must not be used afterwards.
func (d *Dispatcher) Close() {
	if d.closed.Swap(true) {
		return
	}

	d.listenersMu.Lock()
	var subs []*Subscription
	for _, ls := range d.listeners {
		for _, l := range ls {
			subs = append(subs, l.sub)
		}
	}
	d.listeners = make(map[reflect.Type][]*listener)
	d.listenersMu.Unlock()

	for _, s := range subs {
		if !s.cancelled.Swap(true) {
			s.gate.cancelPending()
		}
	}

	if d.ownSched != nil {
		d.ownSched.Stop()
	}
}

// Cooldowns returns the dispatcher's command cooldown store.
func (d *Dispatcher) Cooldowns() *CooldownStore {
	return d.cooldowns
}

// PauseFlags returns the dispatcher's pause flag set.
func (d *Dispatcher) PauseFlags() *PauseFlags {
	return d.pauses
}

// SetMetadata stores a metadata value for the player id.
func (d *Dispatcher) SetMetadata(id uuid.UUID, key string, value any) {
	d.metaMu.Lock()
	m, ok := d.metadata[id]
	if !ok {
		m = make(map[string]any)
		d.metadata[id] = m
	}
	m[key] = value
	d.metaMu.Unlock()
}

// Metadata returns the metadata value for the player id, if set.
func (d *Dispatcher) Metadata(id uuid.UUID, key string) (any, bool) {
	d.metaMu.RLock()
	defer d.metaMu.RUnlock()
	v, ok := d.metadata[id][key]
	return v, ok
}

// RemoveMetadata deletes one metadata key for the player id.
func (d *Dispatcher) RemoveMetadata(id uuid.UUID, key string) {
	d.metaMu.Lock()
	delete(d.metadata[id], key)
	d.metaMu.Unlock()
}

// ClearMetadata forgets everything stored for the player id. Typically
// called when the player quits.
func (d *Dispatcher) ClearMetadata(id uuid.UUID) {
	d.metaMu.Lock()
	delete(d.metadata, id)
	d.metaMu.Unlock()
}

// listenerConfig is assembled by options and frozen into a listener.
type listenerConfig struct {
	policy           Policy
	priority         Priority
	fireOnce         bool
	receiveCancelled bool
	preds            []Predicate
	groups           []*Group
}

// Option configures a single listener registration.
type Option func(d *Dispatcher, cfg *listenerConfig) error

// WithPriority orders the listener relative to others for the same event.
func WithPriority(p Priority) Option {
	return func(_ *Dispatcher, cfg *listenerConfig) error {
		cfg.priority = p
		return nil
	}
}

// FireOnce cancels the subscription after its first invocation.
func FireOnce() Option {
	return func(_ *Dispatcher, cfg *listenerConfig) error {
		cfg.fireOnce = true
		return nil
	}
}

// ReceiveCancelled delivers events even after an earlier listener
// cancelled them.
func ReceiveCancelled() Option {
	return func(_ *Dispatcher, cfg *listenerConfig) error {
		cfg.receiveCancelled = true
		return nil
	}
}

// Delayed defers each invocation by d.
func Delayed(delay time.Duration) Option {
	return func(_ *Dispatcher, cfg *listenerConfig) error {
		cfg.policy.Delay = delay
		return nil
	}
}

// Debounced coalesces trigger bursts, firing once they have been quiet
// for d.
func Debounced(debounce time.Duration) Option {
	return func(_ *Dispatcher, cfg *listenerConfig) error {
		cfg.policy.Debounce = debounce
		return nil
	}
}

// Throttled suppresses triggers arriving within d of the last accepted one.
func Throttled(throttle time.Duration) Option {
	return func(_ *Dispatcher, cfg *listenerConfig) error {
		cfg.policy.Throttle = throttle
		return nil
	}
}

// Async runs the callback on the scheduler's background pool.
func Async() Option {
	return func(_ *Dispatcher, cfg *listenerConfig) error {
		cfg.policy.Async = true
		return nil
	}
}

// Match adds predicates; all composed predicates must hold for the
// listener to fire.
func Match(preds ...Predicate) Option {
	return func(_ *Dispatcher, cfg *listenerConfig) error {
		cfg.preds = append(cfg.preds, preds...)
		return nil
	}
}

// MatchTemplate expands a registered predicate template by name. An
// unregistered name makes On fail with a descriptive error.
func MatchTemplate(name string) Option {
	return func(d *Dispatcher, cfg *listenerConfig) error {
		pred, err := d.Template(name)
		if err != nil {
			return err
		}
		cfg.preds = append(cfg.preds, pred)
		return nil
	}
}

// InGroup attaches the subscription to g for bulk cancellation.
func InGroup(g *Group) Option {
	return func(_ *Dispatcher, cfg *listenerConfig) error {
		if g == nil {
			return fmt.Errorf("pulse: InGroup requires a non-nil group")
		}
		cfg.groups = append(cfg.groups, g)
		return nil
	}
}

// On registers fn for events of type *E. The event type is the explicit
// registration token; no reflective instance-of matching happens at
// dispatch time. Configuration errors (bad policy, unknown template) are
// returned immediately and nothing is registered.
func On[E any](d *Dispatcher, fn func(event *E), opts ...Option) (*Subscription, error) {
	if fn == nil {
		return nil, fmt.Errorf("pulse: listener callback must not be nil")
	}
	if d.closed.Load() {
		return nil, fmt.Errorf("pulse: dispatcher is closed")
	}

	cfg := listenerConfig{priority: Normal}
	for _, opt := range opts {
		if err := opt(d, &cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.policy.validate(); err != nil {
		return nil, err
	}

	token := reflect.TypeOf((*E)(nil))
	sub := &Subscription{
		id:        uuid.New(),
		d:         d,
		eventType: token,
		gate:      newGate(cfg.policy, d.clock, d.sched),
		fireOnce:  cfg.fireOnce,
	}

	l := &listener{
		sub:              sub,
		priority:         cfg.priority,
		seq:              d.seq.Add(1),
		receiveCancelled: cfg.receiveCancelled,
		pred:             All(cfg.preds...),
		fn: func(event any) {
			fn(event.(*E))
		},
	}

	d.listenersMu.Lock()
	ls := append(d.listeners[token], l)
	sort.SliceStable(ls, func(i, j int) bool {
		if ls[i].priority != ls[j].priority {
			return ls[i].priority < ls[j].priority
		}
		return ls[i].seq < ls[j].seq
	})
	d.listeners[token] = ls
	d.listenersMu.Unlock()

	for _, g := range cfg.groups {
		g.Add(sub)
	}
	return sub, nil
}

// Dispatch delivers an event to every matching listener in priority order.
// The host handler calls this for player events; user code may dispatch
// custom event types the same way. A failing callback is reported through
// the dispatcher's logger and never interrupts delivery to the remaining
// listeners.
func (d *Dispatcher) Dispatch(event any) {
	if event == nil || d.closed.Load() {
		return
	}

	token := reflect.TypeOf(event)

	d.listenersMu.RLock()
	ls := d.listeners[token]
	snapshot := make([]*listener, len(ls))
	copy(snapshot, ls)
	d.listenersMu.RUnlock()

	for _, l := range snapshot {
		if l.sub.cancelled.Load() {
			continue
		}
		if !l.receiveCancelled {
			if c, ok := event.(cancellableEvent); ok && c.Cancelled() {
				continue
			}
		}
		if !l.pred(event) {
			continue
		}
		l.sub.gate.offer(d.invocation(l, event))
	}
}

// invocation wraps the listener callback for one trigger: snapshot of the
// event, cancelled re-check (a delayed invocation must not fire after
// cancel), panic recovery at the dispatch boundary and fire-once
// auto-cancel.
func (d *Dispatcher) invocation(l *listener, event any) func() {
	return func() {
		if l.sub.cancelled.Load() {
			return
		}
		if l.sub.fireOnce {
			defer l.sub.Cancel()
		}
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("pulse: listener callback failed",
					"event", l.sub.eventType.String(),
					"subscription", l.sub.id.String(),
					"panic", r)
			}
		}()
		l.fn(event)
	}
}

// remove detaches a cancelled subscription from the registry.
func (d *Dispatcher) remove(s *Subscription) {
	d.listenersMu.Lock()
	defer d.listenersMu.Unlock()

	ls := d.listeners[s.eventType]
	for i, l := range ls {
		if l.sub == s {
			d.listeners[s.eventType] = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(d.listeners[s.eventType]) == 0 {
		delete(d.listeners, s.eventType)
	}
}
