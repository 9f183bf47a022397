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
)

// PlayerHandler adapts Dragonfly's player.Handler callbacks into typed
// event records and feeds them to the dispatcher.
//
// Concurrency:
// Dragonfly invokes handlers synchronously within the world's tick loop or
// packet processing, so immediate (non-async) listener callbacks run on the
// host's primary context and may safely touch the player and world.
// Deferred and async invocations run on the dispatcher's scheduler instead.
type PlayerHandler struct {
	player.NopHandler
	d *Dispatcher
}

// NewPlayerHandler creates a player.Handler that dispatches through d.
// Install it with p.Handle, or use Dispatcher.Adopt to also receive an
// EventJoin.
func NewPlayerHandler(d *Dispatcher) player.Handler {
	return &PlayerHandler{d: d}
}

// Compile-time check that PlayerHandler implements player.Handler.
var _ player.Handler = (*PlayerHandler)(nil)

// Adopt installs a pulse handler on the player and dispatches EventJoin.
func (d *Dispatcher) Adopt(p *player.Player) {
	p.Handle(NewPlayerHandler(d))
	d.Dispatch(&EventJoin{actorRef: actorRef{p}})
}

// NopHandler is re-exported from Dragonfly for convenience when mixing
// pulse listeners with hand-written handlers.
type NopHandler = player.NopHandler

// HandleMove handles the player moving.
func (h *PlayerHandler) HandleMove(ctx *player.Context, newPos mgl64.Vec3, newRot cube.Rotation) {
	h.d.Dispatch(&EventMove{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Position: newPos, Rotation: newRot})
}

// HandleJump handles the player jumping.
func (h *PlayerHandler) HandleJump(p *player.Player) {
	h.d.Dispatch(&EventJump{actorRef: actorRef{p}})
}

// HandleTeleport handles the player being teleported.
func (h *PlayerHandler) HandleTeleport(ctx *player.Context, pos mgl64.Vec3) {
	h.d.Dispatch(&EventTeleport{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Position: pos})
}

// HandleChangeWorld handles the player changing worlds.
func (h *PlayerHandler) HandleChangeWorld(p *player.Player, before, after *world.World) {
	h.d.Dispatch(&EventChangeWorld{actorRef: actorRef{p}, Before: before, After: after})
}

// HandleToggleSprint handles the player toggling sprint.
func (h *PlayerHandler) HandleToggleSprint(ctx *player.Context, after bool) {
	h.d.Dispatch(&EventToggleSprint{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, After: after})
}

// HandleToggleSneak handles the player toggling sneak.
func (h *PlayerHandler) HandleToggleSneak(ctx *player.Context, after bool) {
	h.d.Dispatch(&EventToggleSneak{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, After: after})
}

// HandleChat handles the player sending a chat message.
func (h *PlayerHandler) HandleChat(ctx *player.Context, message *string) {
	h.d.Dispatch(&EventChat{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Message: message})
}

// HandleFoodLoss handles the player losing food.
func (h *PlayerHandler) HandleFoodLoss(ctx *player.Context, from int, to *int) {
	h.d.Dispatch(&EventFoodLoss{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, From: from, To: to})
}

// HandleHeal handles the player being healed.
func (h *PlayerHandler) HandleHeal(ctx *player.Context, health *float64, src world.HealingSource) {
	h.d.Dispatch(&EventHeal{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Health: health, Source: src})
}

// HandleHurt handles the player being hurt.
func (h *PlayerHandler) HandleHurt(ctx *player.Context, damage *float64, immune bool, attackImmunity *time.Duration, src world.DamageSource) {
	h.d.Dispatch(&EventHurt{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Damage: damage, Immune: immune, Immunity: attackImmunity, Source: src})
}

// HandleDeath handles the player dying.
func (h *PlayerHandler) HandleDeath(p *player.Player, src world.DamageSource, keepInv *bool) {
	h.d.Dispatch(&EventDeath{actorRef: actorRef{p}, Source: src, KeepInventory: keepInv})
}

// HandleRespawn handles the player respawning.
func (h *PlayerHandler) HandleRespawn(p *player.Player, pos *mgl64.Vec3, w **world.World) {
	h.d.Dispatch(&EventRespawn{actorRef: actorRef{p}, Position: pos, World: w})
}

// HandleSkinChange handles the player changing their skin.
func (h *PlayerHandler) HandleSkinChange(ctx *player.Context, sk *skin.Skin) {
	h.d.Dispatch(&EventSkinChange{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Skin: sk})
}

// HandleFireExtinguish handles the player extinguishing fire.
func (h *PlayerHandler) HandleFireExtinguish(ctx *player.Context, pos cube.Pos) {
	h.d.Dispatch(&EventFireExtinguish{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Position: pos})
}

// HandleStartBreak handles the player starting to break a block.
func (h *PlayerHandler) HandleStartBreak(ctx *player.Context, pos cube.Pos) {
	h.d.Dispatch(&EventStartBreak{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Position: pos})
}

// HandleBlockBreak handles block breaking.
func (h *PlayerHandler) HandleBlockBreak(ctx *player.Context, pos cube.Pos, drops *[]item.Stack, xp *int) {
	h.d.Dispatch(&EventBlockBreak{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Position: pos, Drops: drops, Experience: xp})
}

// HandleBlockPlace handles block placement.
func (h *PlayerHandler) HandleBlockPlace(ctx *player.Context, pos cube.Pos, b world.Block) {
	h.d.Dispatch(&EventBlockPlace{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Position: pos, Block: b})
}

// HandleBlockPick handles picking a block.
func (h *PlayerHandler) HandleBlockPick(ctx *player.Context, pos cube.Pos, b world.Block) {
	h.d.Dispatch(&EventBlockPick{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Position: pos, Block: b})
}

// HandleItemUse handles general item use.
func (h *PlayerHandler) HandleItemUse(ctx *player.Context) {
	h.d.Dispatch(&EventItemUse{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}})
}

// HandleItemUseOnBlock handles using an item on a block.
func (h *PlayerHandler) HandleItemUseOnBlock(ctx *player.Context, pos cube.Pos, face cube.Face, clickPos mgl64.Vec3) {
	h.d.Dispatch(&EventItemUseOnBlock{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Position: pos, Face: face, ClickPos: clickPos})
}

// HandleItemUseOnEntity handles using an item on an entity.
func (h *PlayerHandler) HandleItemUseOnEntity(ctx *player.Context, e world.Entity) {
	h.d.Dispatch(&EventItemUseOnEntity{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Entity: e})
}

// HandleItemRelease handles releasing a charged-use item.
func (h *PlayerHandler) HandleItemRelease(ctx *player.Context, it item.Stack, dur time.Duration) {
	h.d.Dispatch(&EventItemRelease{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Item: it, Duration: dur})
}

// HandleItemConsume handles consuming an item.
func (h *PlayerHandler) HandleItemConsume(ctx *player.Context, it item.Stack) {
	h.d.Dispatch(&EventItemConsume{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Item: it})
}

// HandleAttackEntity handles attacking an entity.
func (h *PlayerHandler) HandleAttackEntity(ctx *player.Context, e world.Entity, force, height *float64, critical *bool) {
	h.d.Dispatch(&EventAttackEntity{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Entity: e, Force: force, Height: height, Critical: critical})
}

// HandleExperienceGain handles XP gain.
func (h *PlayerHandler) HandleExperienceGain(ctx *player.Context, amount *int) {
	h.d.Dispatch(&EventExperienceGain{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Amount: amount})
}

// HandlePunchAir handles punching air.
func (h *PlayerHandler) HandlePunchAir(ctx *player.Context) {
	h.d.Dispatch(&EventPunchAir{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}})
}

// HandleSignEdit handles sign text editing.
func (h *PlayerHandler) HandleSignEdit(ctx *player.Context, pos cube.Pos, frontSide bool, oldText, newText string) {
	h.d.Dispatch(&EventSignEdit{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Position: pos, FrontSide: frontSide, OldText: oldText, NewText: newText})
}

// HandleLecternPageTurn handles page turning on lecterns.
func (h *PlayerHandler) HandleLecternPageTurn(ctx *player.Context, pos cube.Pos, oldPage int, newPage *int) {
	h.d.Dispatch(&EventLecternPageTurn{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Position: pos, OldPage: oldPage, NewPage: newPage})
}

// HandleItemDamage handles damaging an item.
func (h *PlayerHandler) HandleItemDamage(ctx *player.Context, it item.Stack, damage *int) {
	h.d.Dispatch(&EventItemDamage{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Item: it, Damage: damage})
}

// HandleItemPickup handles picking up an item.
func (h *PlayerHandler) HandleItemPickup(ctx *player.Context, it *item.Stack) {
	h.d.Dispatch(&EventItemPickup{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Item: it})
}

// HandleHeldSlotChange handles held hotbar slot change.
func (h *PlayerHandler) HandleHeldSlotChange(ctx *player.Context, from, to int) {
	h.d.Dispatch(&EventHeldSlotChange{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, From: from, To: to})
}

// HandleItemDrop handles dropping an item.
func (h *PlayerHandler) HandleItemDrop(ctx *player.Context, it item.Stack) {
	h.d.Dispatch(&EventItemDrop{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Item: it})
}

// HandleTransfer handles server transfer.
func (h *PlayerHandler) HandleTransfer(ctx *player.Context, addr *net.UDPAddr) {
	h.d.Dispatch(&EventTransfer{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Address: addr})
}

// HandleCommandExecution handles executing a command.
func (h *PlayerHandler) HandleCommandExecution(ctx *player.Context, command cmd.Command, args []string) {
	h.d.Dispatch(&EventCommandExecution{actorRef: actorRef{ctx.Val()}, eventCtx: eventCtx{ctx}, Command: command, Args: args})
}

// HandleQuit handles a player quitting the server. Metadata stored for the
// player is cleared after listeners have run.
func (h *PlayerHandler) HandleQuit(p *player.Player) {
	h.d.Dispatch(&EventQuit{actorRef: actorRef{p}})
	h.d.ClearMetadata(p.UUID())
}

// HandleDiagnostics handles a diagnostics report.
func (h *PlayerHandler) HandleDiagnostics(p *player.Player, d session.Diagnostics) {
	h.d.Dispatch(&EventDiagnostics{actorRef: actorRef{p}, Diagnostics: d})
}
