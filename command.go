package pulse

import (
	"fmt"
	"strings"
	"time"

	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"
)

// CommandHandler runs the command body. args holds the whitespace-split
// trailing arguments. Panics are recovered at the dispatch boundary,
// reported to the sender and logged; they never reach Dragonfly's command
// machinery.
type CommandHandler func(src cmd.Source, out *cmd.Output, tx *world.Tx, args []string)

// CommandBuilder assembles a rate-limited Dragonfly command. The chained
// setters only mutate the builder; Build freezes everything into an
// immutable spec, so a builder can be reused or discarded freely after
// Build without aliasing the produced command.
type CommandBuilder struct {
	d           *Dispatcher
	name        string
	description string
	aliases     []string
	permission  string
	cooldown    time.Duration
	cooldownKey func(src cmd.Source) string
	handler     CommandHandler
}

// commandSpec is the frozen configuration a built command runs from.
type commandSpec struct {
	d           *Dispatcher
	name        string
	permission  string
	cooldown    time.Duration
	cooldownKey func(src cmd.Source) string
	handler     CommandHandler
}

// NewCommand starts building a command with the given name.
func (d *Dispatcher) NewCommand(name string) *CommandBuilder {
	return &CommandBuilder{d: d, name: name}
}

// Description sets the command description shown in the client.
func (b *CommandBuilder) Description(description string) *CommandBuilder {
	b.description = description
	return b
}

// Aliases adds alternative names for the command.
func (b *CommandBuilder) Aliases(aliases ...string) *CommandBuilder {
	b.aliases = append(b.aliases, aliases...)
	return b
}

// Permission requires the sender to hold the permission string, checked
// through the dispatcher's Permissions hook. Non-player sources (console)
// always pass.
func (b *CommandBuilder) Permission(permission string) *CommandBuilder {
	b.permission = permission
	return b
}

// Cooldown rejects re-execution within the window, keyed per sender. The
// window only starts counting after a successful execution.
func (b *CommandBuilder) Cooldown(window time.Duration) *CommandBuilder {
	b.cooldown = window
	return b
}

// CooldownKey overrides how the cooldown key is derived from the sender.
// The default keys player sources by name, scoped to the command.
func (b *CommandBuilder) CooldownKey(fn func(src cmd.Source) string) *CommandBuilder {
	b.cooldownKey = fn
	return b
}

// Handler sets the command body.
func (b *CommandBuilder) Handler(fn CommandHandler) *CommandBuilder {
	b.handler = fn
	return b
}

// Build validates the configuration and produces the Dragonfly command.
func (b *CommandBuilder) Build() (cmd.Command, error) {
	if b.name == "" {
		return cmd.Command{}, fmt.Errorf("pulse: command name must not be empty")
	}
	if b.handler == nil {
		return cmd.Command{}, fmt.Errorf("pulse: command %q has no handler", b.name)
	}
	if b.cooldown < 0 {
		return cmd.Command{}, fmt.Errorf("pulse: command %q cooldown must be non-negative", b.name)
	}

	spec := &commandSpec{
		d:           b.d,
		name:        b.name,
		permission:  b.permission,
		cooldown:    b.cooldown,
		cooldownKey: b.cooldownKey,
		handler:     b.handler,
	}
	if spec.cooldownKey == nil {
		spec.cooldownKey = spec.defaultKey
	}

	aliases := make([]string, len(b.aliases))
	copy(aliases, b.aliases)
	return cmd.New(b.name, b.description, aliases, commandRunnable{spec: spec}), nil
}

// Register builds the command and registers it with Dragonfly.
func (b *CommandBuilder) Register() error {
	c, err := b.Build()
	if err != nil {
		return err
	}
	cmd.Register(c)
	return nil
}

// defaultKey scopes cooldowns per command and player name. Non-player
// sources share an empty key and are never rate limited.
func (s *commandSpec) defaultKey(src cmd.Source) string {
	p, ok := src.(*player.Player)
	if !ok {
		return ""
	}
	return s.name + ":" + p.Name()
}

// commandRunnable implements cmd.Runnable and cmd.Allower over a frozen
// commandSpec.
type commandRunnable struct {
	// Args collects the raw trailing arguments.
	Args cmd.Varargs `cmd:"args"`

	spec *commandSpec
}

// Allow implements cmd.Allower, hiding the command from senders lacking
// the permission.
func (r commandRunnable) Allow(src cmd.Source) bool {
	s := r.spec
	if s.permission == "" {
		return true
	}
	p, ok := src.(*player.Player)
	if !ok {
		// Console and other non-player sources bypass permission checks.
		return true
	}
	return s.d.perms.Allowed(p.Name(), s.permission)
}

// Run implements cmd.Runnable.
func (r commandRunnable) Run(src cmd.Source, out *cmd.Output, tx *world.Tx) {
	s := r.spec

	key := s.cooldownKey(src)
	if s.cooldown > 0 && key != "" {
		if remaining := s.d.cooldowns.Remaining(key, s.cooldown); remaining > 0 {
			out.Errorf("You must wait %.1f seconds before using /%v again.", remaining.Seconds(), s.name)
			return
		}
	}

	ok := s.runHandler(src, out, tx, strings.Fields(string(r.Args)))
	if ok && s.cooldown > 0 && key != "" {
		s.d.cooldowns.RecordUse(key)
	}
}

// runHandler executes the body with panic recovery. A failure is reported
// to the invoking sender and logged; the cooldown is not recorded for it.
func (s *commandSpec) runHandler(src cmd.Source, out *cmd.Output, tx *world.Tx, args []string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			out.Errorf("An internal error occurred while running /%v.", s.name)
			s.d.log.Error("pulse: command handler failed", "command", s.name, "panic", r)
		}
	}()
	s.handler(src, out, tx, args)
	return true
}
