package pulse

import (
	"fmt"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/google/uuid"
)

// Predicate decides, for one incoming event, whether a listener should
// fire. Predicates composed onto the same listener are conjoined; an empty
// set evaluates to true. Clauses that inspect a shape the event does not
// have (for example a world check on an event with no actor) fail closed:
// the clause is false, never a panic.
type Predicate func(event any) bool

// Capability interfaces the clause constructors probe events for. Event
// types implement them via the embedded actorRef; custom events may
// implement any subset.
type (
	actorNamer interface{ ActorName() string }
	actorIdent interface{ ActorUUID() uuid.UUID }
	worldNamer interface{ WorldName() string }

	// cancellableEvent is probed by dispatch to honour the
	// ReceiveCancelled flag.
	cancellableEvent interface{ Cancelled() bool }
)

// All conjoins predicates. All() with no arguments is always true.
func All(preds ...Predicate) Predicate {
	return func(event any) bool {
		for _, p := range preds {
			if !p(event) {
				return false
			}
		}
		return true
	}
}

// Not inverts the evaluation of a sub-expression.
func Not(pred Predicate) Predicate {
	return func(event any) bool {
		return !pred(event)
	}
}

// ActorNamed is satisfied when the event's actor has exactly the given name.
func ActorNamed(name string) Predicate {
	return func(event any) bool {
		a, ok := event.(actorNamer)
		return ok && a.ActorName() != "" && a.ActorName() == name
	}
}

// ActorOneOf is satisfied when the event's actor has one of the given names.
func ActorOneOf(names ...string) Predicate {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return func(event any) bool {
		a, ok := event.(actorNamer)
		if !ok || a.ActorName() == "" {
			return false
		}
		_, ok = set[a.ActorName()]
		return ok
	}
}

// ActorIs is satisfied when the event's actor is exactly the given player,
// compared by UUID.
func ActorIs(p *player.Player) Predicate {
	if p == nil {
		return func(any) bool { return false }
	}
	return ActorWithUUID(p.UUID())
}

// ActorWithUUID is satisfied when the event's actor carries the given UUID.
// Identity by reference rather than by display name.
func ActorWithUUID(id uuid.UUID) Predicate {
	return func(event any) bool {
		a, ok := event.(actorIdent)
		return ok && a.ActorUUID() == id
	}
}

// InWorld is satisfied when the event happened in the named world.
func InWorld(name string) Predicate {
	return func(event any) bool {
		w, ok := event.(worldNamer)
		return ok && w.WorldName() != "" && w.WorldName() == name
	}
}

// HasPermission is satisfied when the event's actor holds the permission
// string according to the dispatcher's Permissions hook.
func (d *Dispatcher) HasPermission(permission string) Predicate {
	return func(event any) bool {
		a, ok := event.(actorNamer)
		if !ok || a.ActorName() == "" {
			return false
		}
		return d.perms.Allowed(a.ActorName(), permission)
	}
}

// MetadataPresent is satisfied when the actor has the metadata key set.
func (d *Dispatcher) MetadataPresent(key string) Predicate {
	return func(event any) bool {
		a, ok := event.(actorIdent)
		if !ok {
			return false
		}
		_, ok = d.Metadata(a.ActorUUID(), key)
		return ok
	}
}

// MetadataMatches is satisfied when the actor's metadata value for key
// exists and passes match.
func (d *Dispatcher) MetadataMatches(key string, match func(value any) bool) Predicate {
	return func(event any) bool {
		a, ok := event.(actorIdent)
		if !ok {
			return false
		}
		v, ok := d.Metadata(a.ActorUUID(), key)
		return ok && match(v)
	}
}

// NotPaused is satisfied while the flag is absent from the dispatcher's
// pause set.
func (d *Dispatcher) NotPaused(flag string) Predicate {
	return func(any) bool {
		return !d.pauses.Paused(flag)
	}
}

// RegisterTemplate stores a reusable named sub-expression for later
// expansion with Template or MatchTemplate. Re-registering a name replaces
// the previous expression for listeners registered afterwards.
func (d *Dispatcher) RegisterTemplate(name string, pred Predicate) error {
	if name == "" {
		return fmt.Errorf("pulse: template name must not be empty")
	}
	if pred == nil {
		return fmt.Errorf("pulse: template %q must not be nil", name)
	}
	d.tmplMu.Lock()
	d.templates[name] = pred
	d.tmplMu.Unlock()
	return nil
}

// Template expands a previously registered sub-expression by name. An
// unregistered name is a configuration error and fails immediately.
func (d *Dispatcher) Template(name string) (Predicate, error) {
	d.tmplMu.RLock()
	pred, ok := d.templates[name]
	d.tmplMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("pulse: predicate template %q is not registered", name)
	}
	return pred, nil
}
