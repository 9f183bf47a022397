package pulse

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicate_EmptyConjunctionIsTrue(t *testing.T) {
	assert.True(t, All()(&plainEvent{}))
	assert.True(t, All()(&shapedEvent{}))
	assert.True(t, All()(nil))
}

func TestPredicate_Not(t *testing.T) {
	p := Not(ActorNamed("alice"))
	assert.False(t, p(&shapedEvent{name: "alice"}))
	assert.True(t, p(&shapedEvent{name: "bob"}))
}

func TestPredicate_ActorNamed(t *testing.T) {
	p := ActorNamed("alice")
	assert.True(t, p(&shapedEvent{name: "alice"}))
	assert.False(t, p(&shapedEvent{name: "bob"}))
	assert.False(t, p(&shapedEvent{}), "empty actor name must not match")
	assert.False(t, p(&plainEvent{}), "events without an actor shape fail closed")
}

func TestPredicate_ActorOneOf(t *testing.T) {
	p := ActorOneOf("alice", "bob")
	assert.True(t, p(&shapedEvent{name: "alice"}))
	assert.True(t, p(&shapedEvent{name: "bob"}))
	assert.False(t, p(&shapedEvent{name: "carol"}))
	assert.False(t, p(&plainEvent{}))
}

func TestPredicate_ActorIsNilNeverMatches(t *testing.T) {
	p := ActorIs(nil)
	assert.False(t, p(&shapedEvent{name: "alice"}))
	assert.False(t, p(&plainEvent{}))
}

func TestPredicate_ActorWithUUID(t *testing.T) {
	id := uuid.New()
	p := ActorWithUUID(id)
	assert.True(t, p(&shapedEvent{id: id}))
	assert.False(t, p(&shapedEvent{id: uuid.New()}))
	assert.False(t, p(&plainEvent{}))
}

func TestPredicate_InWorld(t *testing.T) {
	p := InWorld("lobby")
	assert.True(t, p(&shapedEvent{world: "lobby"}))
	assert.False(t, p(&shapedEvent{world: "arena"}))
	assert.False(t, p(&shapedEvent{}), "unknown world fails closed")
	assert.False(t, p(&plainEvent{}), "world check against a worldless event fails closed")
}

func TestPredicate_HasPermission(t *testing.T) {
	perms := NewGlobPermissions()
	require.NoError(t, perms.Grant("alice", "command.*"))

	clock := &manualClock{}
	d := NewDispatcher(WithClock(clock), WithScheduler(newManualScheduler(clock)), WithPermissions(perms))
	t.Cleanup(d.Close)

	p := d.HasPermission("command.home")
	assert.True(t, p(&shapedEvent{name: "alice"}))
	assert.False(t, p(&shapedEvent{name: "bob"}))
	assert.False(t, p(&plainEvent{}), "permission check without an actor fails closed")
}

func TestPredicate_Metadata(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	id := uuid.New()
	d.SetMetadata(id, "team", "red")

	present := d.MetadataPresent("team")
	assert.True(t, present(&shapedEvent{id: id}))
	assert.False(t, present(&shapedEvent{id: uuid.New()}))
	assert.False(t, present(&plainEvent{}))

	matches := d.MetadataMatches("team", func(v any) bool { return v == "red" })
	assert.True(t, matches(&shapedEvent{id: id}))
	assert.False(t, d.MetadataMatches("team", func(v any) bool { return v == "blue" })(&shapedEvent{id: id}))
	assert.False(t, matches(&plainEvent{}))
}

func TestPredicate_NotPaused(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	p := d.NotPaused("pvp")
	assert.True(t, p(&plainEvent{}), "pause-state clauses need no actor shape")

	d.PauseFlags().Pause("pvp")
	assert.False(t, p(&plainEvent{}))

	d.PauseFlags().Resume("pvp")
	assert.True(t, p(&plainEvent{}))
}

func TestPredicate_ConjunctionOnListener(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	fired := 0
	_, err := On(d, func(*shapedEvent) { fired++ },
		Match(ActorNamed("alice"), InWorld("lobby")))
	require.NoError(t, err)

	d.Dispatch(&shapedEvent{name: "alice", world: "arena"})
	d.Dispatch(&shapedEvent{name: "bob", world: "lobby"})
	require.Zero(t, fired)

	d.Dispatch(&shapedEvent{name: "alice", world: "lobby"})
	assert.Equal(t, 1, fired)
}

func TestPredicate_TemplateLookup(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	_, err := d.Template("missing")
	require.ErrorContains(t, err, `"missing" is not registered`)

	require.NoError(t, d.RegisterTemplate("vip", ActorOneOf("alice", "bob")))
	p, err := d.Template("vip")
	require.NoError(t, err)
	assert.True(t, p(&shapedEvent{name: "alice"}))
}

func TestGlobPermissions(t *testing.T) {
	g := NewGlobPermissions()
	require.NoError(t, g.Grant("alice", "command.*"))
	require.NoError(t, g.Grant("alice", "chat.color"))
	require.NoError(t, g.Grant("root", "**"))

	assert.True(t, g.Allowed("alice", "command.home"))
	assert.False(t, g.Allowed("alice", "command.home.other"), "single star must not cross separators")
	assert.True(t, g.Allowed("alice", "chat.color"))
	assert.False(t, g.Allowed("alice", "admin.ban"))
	assert.False(t, g.Allowed("bob", "command.home"))
	assert.True(t, g.Allowed("root", "anything.at.all"))

	assert.Error(t, g.Grant("alice", "command.["))

	g.Revoke("alice")
	assert.False(t, g.Allowed("alice", "command.home"))
}
