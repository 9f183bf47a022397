package pulse

import (
	"fmt"
	"sync"

	"github.com/gobwas/glob"
)

// Permissions answers permission checks for predicate evaluation and for
// command gating. Dragonfly ships no permission system of its own, so the
// check is a host-provided hook keyed by actor name.
type Permissions interface {
	// Allowed reports whether the named actor holds the permission string.
	Allowed(actor, permission string) bool
}

// allowAll is the default when no Permissions implementation is given.
type allowAll struct{}

func (allowAll) Allowed(string, string) bool { return true }

// GlobPermissions is an in-memory Permissions implementation. Grants are
// glob patterns over permission strings ("command.*", "admin.**"), compiled
// with '.' as the separator so "command.*" matches "command.home" but not
// "command.home.other". Safe for concurrent use.
type GlobPermissions struct {
	mu     sync.RWMutex
	grants map[string][]glob.Glob
}

// NewGlobPermissions creates an empty grant table.
func NewGlobPermissions() *GlobPermissions {
	return &GlobPermissions{grants: make(map[string][]glob.Glob)}
}

// Grant adds a permission pattern for the actor. Returns an error if the
// pattern does not compile.
func (g *GlobPermissions) Grant(actor, pattern string) error {
	compiled, err := glob.Compile(pattern, '.')
	if err != nil {
		return fmt.Errorf("pulse: invalid permission pattern %q: %w", pattern, err)
	}

	g.mu.Lock()
	g.grants[actor] = append(g.grants[actor], compiled)
	g.mu.Unlock()
	return nil
}

// Revoke removes every grant the actor holds.
func (g *GlobPermissions) Revoke(actor string) {
	g.mu.Lock()
	delete(g.grants, actor)
	g.mu.Unlock()
}

// Allowed implements Permissions.
func (g *GlobPermissions) Allowed(actor, permission string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	for _, pattern := range g.grants[actor] {
		if pattern.Match(permission) {
			return true
		}
	}
	return false
}
