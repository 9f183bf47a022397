package pulse

import (
	"fmt"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/player/form"
	"github.com/df-mc/dragonfly/server/world"
)

// MenuBuilder assembles a button menu (form) whose click callbacks run
// through the same temporal gate as event listeners. A debounce policy on a
// button absorbs double-clicks; a throttle policy absorbs spam-clicking.
// Build freezes the configuration; the builder can be discarded afterwards.
type MenuBuilder struct {
	d       *Dispatcher
	title   string
	body    string
	buttons []menuButtonConfig
}

type menuButtonConfig struct {
	text    string
	image   string
	policy  Policy
	onClick func(p *player.Player)
}

// NewMenu starts building a menu form with the given title.
func (d *Dispatcher) NewMenu(title string) *MenuBuilder {
	return &MenuBuilder{d: d, title: title}
}

// Body sets the text shown above the buttons.
func (b *MenuBuilder) Body(body string) *MenuBuilder {
	b.body = body
	return b
}

// Button adds a button with an ungated click callback. image may be empty
// or a texture path/URL.
func (b *MenuBuilder) Button(text, image string, onClick func(p *player.Player)) *MenuBuilder {
	return b.GatedButton(text, image, Policy{}, onClick)
}

// GatedButton adds a button whose clicks pass through a temporal gate with
// the given policy before onClick runs. The gate is shared by everyone the
// menu is sent to.
func (b *MenuBuilder) GatedButton(text, image string, policy Policy, onClick func(p *player.Player)) *MenuBuilder {
	b.buttons = append(b.buttons, menuButtonConfig{text: text, image: image, policy: policy, onClick: onClick})
	return b
}

// Build validates the configuration and produces a form ready for
// player.SendForm. Button texts must be unique since the host reports the
// pressed button by its text.
func (b *MenuBuilder) Build() (form.Menu, error) {
	if len(b.buttons) == 0 {
		return form.Menu{}, fmt.Errorf("pulse: menu %q has no buttons", b.title)
	}

	m := &gatedMenu{d: b.d, title: b.title, buttons: make(map[string]*gatedButton, len(b.buttons))}
	btns := make([]form.Button, 0, len(b.buttons))
	for _, cfg := range b.buttons {
		if cfg.onClick == nil {
			return form.Menu{}, fmt.Errorf("pulse: menu button %q has no callback", cfg.text)
		}
		if err := cfg.policy.validate(); err != nil {
			return form.Menu{}, err
		}
		if _, dup := m.buttons[cfg.text]; dup {
			return form.Menu{}, fmt.Errorf("pulse: menu %q has duplicate button text %q", b.title, cfg.text)
		}
		m.buttons[cfg.text] = &gatedButton{
			gate:    newGate(cfg.policy, b.d.clock, b.d.sched),
			onClick: cfg.onClick,
		}
		btns = append(btns, form.NewButton(cfg.text, cfg.image))
	}

	menu := form.NewMenu(*m, b.title).WithButtons(btns...)
	if b.body != "" {
		menu = menu.WithBody(b.body)
	}
	return menu, nil
}

// gatedButton pairs one button's callback with its gate instance.
type gatedButton struct {
	gate    *gate
	onClick func(p *player.Player)
}

// gatedMenu implements form.MenuSubmittable, routing presses through the
// per-button gates.
type gatedMenu struct {
	d       *Dispatcher
	title   string
	buttons map[string]*gatedButton
}

// Submit handles a button press. Callback panics are recovered here and
// logged so a failing button never disturbs the host's form handling.
func (m gatedMenu) Submit(submitter form.Submitter, pressed form.Button, tx *world.Tx) {
	p, ok := submitter.(*player.Player)
	if !ok {
		return
	}
	btn, ok := m.buttons[pressed.Text]
	if !ok {
		return
	}

	btn.gate.offer(func() {
		defer func() {
			if r := recover(); r != nil {
				m.d.log.Error("pulse: menu button callback failed",
					"menu", m.title, "button", pressed.Text, "panic", r)
			}
		}()
		btn.onClick(p)
	})
}
