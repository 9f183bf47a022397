package pulse

import (
	"sync"
	"time"
)

// CooldownStore gates command re-execution per arbitrary key, typically the
// invoking player's name. It is independent from listener throttling: the
// store has no per-listener state, only last-use timestamps that are
// overwritten on each successful use and never expire on their own.
// Safe for concurrent use.
type CooldownStore struct {
	clock Clock

	mu   sync.Mutex
	last map[string]int64
}

// NewCooldownStore creates an empty store reading time from clock.
func NewCooldownStore(clock Clock) *CooldownStore {
	if clock == nil {
		clock = NewClock()
	}
	return &CooldownStore{
		clock: clock,
		last:  make(map[string]int64),
	}
}

// OnCooldown reports whether key was used less than window ago. A key that
// was never recorded is never on cooldown.
func (c *CooldownStore) OnCooldown(key string, window time.Duration) bool {
	return c.Remaining(key, window) > 0
}

// Remaining returns how long until key comes off cooldown, or 0 if it is
// not on cooldown.
func (c *CooldownStore) Remaining(key string, window time.Duration) time.Duration {
	c.mu.Lock()
	last, ok := c.last[key]
	c.mu.Unlock()

	if !ok {
		return 0
	}
	remaining := window - time.Duration(c.clock.Now()-last)*time.Millisecond
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordUse marks key as used now. Last writer wins.
func (c *CooldownStore) RecordUse(key string) {
	now := c.clock.Now()
	c.mu.Lock()
	c.last[key] = now
	c.mu.Unlock()
}

// Reset forgets the key entirely.
func (c *CooldownStore) Reset(key string) {
	c.mu.Lock()
	delete(c.last, key)
	c.mu.Unlock()
}

// Clear forgets all keys.
func (c *CooldownStore) Clear() {
	c.mu.Lock()
	c.last = make(map[string]int64)
	c.mu.Unlock()
}
