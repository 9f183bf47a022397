package pulse

import "sync"

// PauseFlags is a set of string keys that are currently "paused". Listeners
// built with Dispatcher.NotPaused consult it at evaluation time, so pausing
// a flag silences those listeners without unregistering them.
// Safe for concurrent use.
type PauseFlags struct {
	mu    sync.RWMutex
	flags map[string]struct{}
}

// NewPauseFlags creates an empty flag set.
func NewPauseFlags() *PauseFlags {
	return &PauseFlags{flags: make(map[string]struct{})}
}

// Pause sets the flag.
func (p *PauseFlags) Pause(flag string) {
	p.mu.Lock()
	p.flags[flag] = struct{}{}
	p.mu.Unlock()
}

// Resume clears the flag.
func (p *PauseFlags) Resume(flag string) {
	p.mu.Lock()
	delete(p.flags, flag)
	p.mu.Unlock()
}

// Paused reports whether the flag is set.
func (p *PauseFlags) Paused(flag string) bool {
	p.mu.RLock()
	_, ok := p.flags[flag]
	p.mu.RUnlock()
	return ok
}

// Clear resets the whole set.
func (p *PauseFlags) Clear() {
	p.mu.Lock()
	p.flags = make(map[string]struct{})
	p.mu.Unlock()
}
