package pulse

import (
	"net"
	"time"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/cmd"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/player/skin"
	"github.com/df-mc/dragonfly/server/session"
	"github.com/df-mc/dragonfly/server/world"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Event types wrap Dragonfly handler parameters into records the predicate
// engine can inspect. Every player event embeds actorRef, which provides
// the actor/world accessors predicates probe for; cancellable events embed
// eventCtx on top, exposing Cancel and Cancelled.

// actorRef provides the actor-shaped accessors shared by player events.
type actorRef struct {
	p *player.Player
}

// Actor returns the player this event belongs to.
func (a actorRef) Actor() *player.Player { return a.p }

// ActorName returns the player's display name, or "" without an actor.
func (a actorRef) ActorName() string {
	if a.p == nil {
		return ""
	}
	return a.p.Name()
}

// ActorUUID returns the player's UUID, or the zero UUID without an actor.
func (a actorRef) ActorUUID() uuid.UUID {
	if a.p == nil {
		return uuid.UUID{}
	}
	return a.p.UUID()
}

// WorldName returns the name of the world the actor is currently in.
func (a actorRef) WorldName() string {
	if a.p == nil {
		return ""
	}
	tx := a.p.Tx()
	if tx == nil {
		return ""
	}
	w := tx.World()
	if w == nil {
		return ""
	}
	return w.Name()
}

// eventCtx carries the host's cancellation context for events the host
// allows to be cancelled.
type eventCtx struct {
	Ctx *player.Context
}

// Cancel prevents the host from applying the event's default outcome.
func (c *eventCtx) Cancel() { c.Ctx.Cancel() }

// Cancelled reports whether an earlier listener cancelled the event.
func (c *eventCtx) Cancelled() bool { return c.Ctx.Cancelled() }

// EventJoin fires when a player is adopted by the dispatcher.
type EventJoin struct {
	actorRef
}

// EventQuit fires when a player quits the server.
type EventQuit struct {
	actorRef
}

// EventMove fires when a player moves.
type EventMove struct {
	actorRef
	eventCtx
	Position mgl64.Vec3
	Rotation cube.Rotation
}

// EventJump fires when a player jumps.
type EventJump struct {
	actorRef
}

// EventTeleport fires when a player is teleported.
type EventTeleport struct {
	actorRef
	eventCtx
	Position mgl64.Vec3
}

// EventChangeWorld fires when a player changes worlds.
type EventChangeWorld struct {
	actorRef
	Before *world.World
	After  *world.World
}

// WorldName reports the destination world, which is where the actor is by
// the time listeners run.
func (e *EventChangeWorld) WorldName() string {
	if e.After == nil {
		return ""
	}
	return e.After.Name()
}

// EventToggleSprint fires when a player toggles sprinting.
type EventToggleSprint struct {
	actorRef
	eventCtx
	After bool
}

// EventToggleSneak fires when a player toggles sneaking.
type EventToggleSneak struct {
	actorRef
	eventCtx
	After bool
}

// EventChat fires when a player sends a chat message.
type EventChat struct {
	actorRef
	eventCtx
	Message *string
}

// EventFoodLoss fires when a player loses food.
type EventFoodLoss struct {
	actorRef
	eventCtx
	From int
	To   *int
}

// EventHeal fires when a player is healed.
type EventHeal struct {
	actorRef
	eventCtx
	Health *float64
	Source world.HealingSource
}

// EventHurt fires when a player is hurt.
type EventHurt struct {
	actorRef
	eventCtx
	Damage   *float64
	Immune   bool
	Immunity *time.Duration
	Source   world.DamageSource
}

// EventDeath fires when a player dies.
type EventDeath struct {
	actorRef
	Source        world.DamageSource
	KeepInventory *bool
}

// EventRespawn fires when a player respawns.
type EventRespawn struct {
	actorRef
	Position *mgl64.Vec3
	World    **world.World
}

// EventSkinChange fires when a player changes their skin.
type EventSkinChange struct {
	actorRef
	eventCtx
	Skin *skin.Skin
}

// EventFireExtinguish fires when a player extinguishes fire.
type EventFireExtinguish struct {
	actorRef
	eventCtx
	Position cube.Pos
}

// EventStartBreak fires when a player starts breaking a block.
type EventStartBreak struct {
	actorRef
	eventCtx
	Position cube.Pos
}

// EventBlockBreak fires when a player breaks a block.
type EventBlockBreak struct {
	actorRef
	eventCtx
	Position   cube.Pos
	Drops      *[]item.Stack
	Experience *int
}

// EventBlockPlace fires when a player places a block.
type EventBlockPlace struct {
	actorRef
	eventCtx
	Position cube.Pos
	Block    world.Block
}

// EventBlockPick fires when a player picks a block.
type EventBlockPick struct {
	actorRef
	eventCtx
	Position cube.Pos
	Block    world.Block
}

// EventItemUse fires when a player uses an item.
type EventItemUse struct {
	actorRef
	eventCtx
}

// EventItemUseOnBlock fires when a player uses an item on a block.
type EventItemUseOnBlock struct {
	actorRef
	eventCtx
	Position cube.Pos
	Face     cube.Face
	ClickPos mgl64.Vec3
}

// EventItemUseOnEntity fires when a player uses an item on an entity.
type EventItemUseOnEntity struct {
	actorRef
	eventCtx
	Entity world.Entity
}

// EventItemRelease fires when a player releases a charged item.
type EventItemRelease struct {
	actorRef
	eventCtx
	Item     item.Stack
	Duration time.Duration
}

// EventItemConsume fires when a player consumes an item.
type EventItemConsume struct {
	actorRef
	eventCtx
	Item item.Stack
}

// EventAttackEntity fires when a player attacks an entity.
type EventAttackEntity struct {
	actorRef
	eventCtx
	Entity   world.Entity
	Force    *float64
	Height   *float64
	Critical *bool
}

// EventExperienceGain fires when a player gains experience.
type EventExperienceGain struct {
	actorRef
	eventCtx
	Amount *int
}

// EventPunchAir fires when a player punches air.
type EventPunchAir struct {
	actorRef
	eventCtx
}

// EventSignEdit fires when a player edits a sign.
type EventSignEdit struct {
	actorRef
	eventCtx
	Position  cube.Pos
	FrontSide bool
	OldText   string
	NewText   string
}

// EventLecternPageTurn fires when a player turns a lectern page.
type EventLecternPageTurn struct {
	actorRef
	eventCtx
	Position cube.Pos
	OldPage  int
	NewPage  *int
}

// EventItemDamage fires when an item takes damage.
type EventItemDamage struct {
	actorRef
	eventCtx
	Item   item.Stack
	Damage *int
}

// EventItemPickup fires when a player picks up an item.
type EventItemPickup struct {
	actorRef
	eventCtx
	Item *item.Stack
}

// EventHeldSlotChange fires when a player changes their held slot.
type EventHeldSlotChange struct {
	actorRef
	eventCtx
	From int
	To   int
}

// EventItemDrop fires when a player drops an item.
type EventItemDrop struct {
	actorRef
	eventCtx
	Item item.Stack
}

// EventTransfer fires when a player is transferred to another server.
type EventTransfer struct {
	actorRef
	eventCtx
	Address *net.UDPAddr
}

// EventCommandExecution fires when a player executes a command.
type EventCommandExecution struct {
	actorRef
	eventCtx
	Command cmd.Command
	Args    []string
}

// EventDiagnostics fires with client diagnostics data.
type EventDiagnostics struct {
	actorRef
	Diagnostics session.Diagnostics
}
