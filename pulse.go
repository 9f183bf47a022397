// Package pulse provides declarative, temporally gated event listeners for
// Dragonfly servers.
//
// pulse is a convenience layer built on top of Dragonfly that provides:
//   - Typed event listeners with throttle, debounce and delay policies
//   - Composable scope predicates (actor, world, permission, metadata)
//   - Rate-limited command builders with per-sender cooldowns
//   - Menu (form) builders with gated button callbacks
//   - A small WebSocket bridge feeding the same dispatch pipeline
//
// # Quick Start
//
// Create a dispatcher in your server setup and adopt joining players:
//
//	d := pulse.NewDispatcher()
//	defer d.Close()
//
//	sub, _ := pulse.On(d, func(e *pulse.EventChat) {
//	    e.Actor().Message("you said: " + *e.Message)
//	}, pulse.Throttled(time.Second), pulse.Match(pulse.InWorld("lobby")))
//
//	for p := range srv.Accept() {
//	    d.Adopt(p)
//	}
//
// Listeners can be cancelled individually via their Subscription, or in
// bulk through a Group. FireOnce listeners cancel themselves after their
// first invocation.
//
// # Temporal policies
//
// Each listener owns one gate applying its Policy per trigger: throttle
// suppresses triggers inside the rate window, debounce coalesces bursts
// into a single invocation carrying the latest event, delay defers each
// invocation independently, and async hands the callback to the
// scheduler's background pool. Suppressed triggers are never retried.
//
// # Commands and menus
//
// Builders produce host-registered objects that reuse the same machinery:
//
//	err := d.NewCommand("home").
//	    Description("Teleport home.").
//	    Permission("command.home").
//	    Cooldown(5 * time.Second).
//	    Handler(homeHandler).
//	    Register()
//
//	menu, err := d.NewMenu("Shop").
//	    GatedButton("Buy", "", pulse.Policy{Debounce: 300 * time.Millisecond}, onBuy).
//	    Build()
package pulse

// Version is the pulse version.
const Version = "1.0.0"
