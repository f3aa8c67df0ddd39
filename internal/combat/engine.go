// Package combat resolves army-vs-army and army-vs-building combat in
// discrete phases: ranged/garrison fire, simultaneous melee exchange,
// then casualty resolution with retreat and destruction checks.
package combat

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// Phase labels the stage an active combat last processed.
type Phase uint8

const (
	PhaseRanged Phase = iota
	PhaseMelee
	PhaseResolution
)

// retreatThreshold triggers retreat when a side's strength falls under
// this fraction of its strength at engagement start (home base required).
const retreatThreshold = 0.30

// ActiveCombat tracks one unresolved engagement. It exists only while
// both sides stand; at most one per (attacker, defender) pair.
type ActiveCombat struct {
	ID       string
	Attacker world.ArmyID
	Defender world.EntityRef
	Phase    Phase
	Location hexmap.HexCoord
	StartTick uint64

	// Strength snapshots at engagement start, for retreat thresholds.
	AttackerStartStrength int
	DefenderStartStrength int

	// Output multiplier for the attacker, below 1.0 for intercepted
	// reinforcements fighting without a commander.
	AttackerEffectiveness float64
}

func pairKey(attacker world.ArmyID, defender world.EntityRef) string {
	return fmt.Sprintf("%d>%s", attacker, defender)
}

// Engine owns all active combats. One instance per simulation.
type Engine struct {
	combats map[string]*ActiveCombat // id → combat
	byPair  map[string]string        // pair key → id
}

// NewEngine creates an empty combat engine.
func NewEngine() *Engine {
	return &Engine{
		combats: make(map[string]*ActiveCombat),
		byPair:  make(map[string]string),
	}
}

// Active returns the active combats (for observation; do not mutate).
func (e *Engine) Active() []*ActiveCombat {
	out := make([]*ActiveCombat, 0, len(e.combats))
	for _, c := range e.combats {
		out = append(out, c)
	}
	return out
}

// InCombat reports whether the army is a side in any active combat.
func (e *Engine) InCombat(id world.ArmyID) bool {
	for _, c := range e.combats {
		if c.Attacker == id {
			return true
		}
		if c.Defender.Kind == world.EntityArmy && world.ArmyID(c.Defender.ID) == id {
			return true
		}
	}
	return false
}

// StartOptions tune a new engagement.
type StartOptions struct {
	// AttackerEffectiveness scales attacker output; 0 means full (1.0).
	// Intercepted reinforcements fight at 0.75 — they march without a
	// commander, and the penalty is kept as-is rather than generalized
	// to other commanderless paths.
	AttackerEffectiveness float64
}

// Start begins an engagement between an attacker army and a defender
// (army, building, or villager group). Declines — returning ok=false
// and no event — when either side is missing, empty, or the pair is
// already fighting. Declining is not an error.
func (e *Engine) Start(ctx *sim.Context, attackerID world.ArmyID, defender world.EntityRef, opts StartOptions) (sim.StateChange, bool) {
	attacker := ctx.State.Armies[attackerID]
	if attacker == nil || attacker.State == world.ArmyDestroyed || attacker.TotalUnits() == 0 {
		ctx.Log.Debug("combat start declined: attacker gone", "attacker", attackerID)
		return sim.StateChange{}, false
	}
	if _, exists := e.byPair[pairKey(attackerID, defender)]; exists {
		// Repeated starts on a fighting pair are no-ops.
		return sim.StateChange{}, false
	}

	defStrength := 0
	var location hexmap.HexCoord
	switch defender.Kind {
	case world.EntityArmy:
		d := ctx.State.Armies[world.ArmyID(defender.ID)]
		if d == nil || d.State == world.ArmyDestroyed || d.TotalUnits() == 0 {
			ctx.Log.Debug("combat start declined: defender army gone", "defender", defender)
			return sim.StateChange{}, false
		}
		defStrength = d.Strength()
		location = d.Coord
		d.State = world.ArmyInCombat
	case world.EntityBuilding:
		b := ctx.State.Buildings[world.BuildingID(defender.ID)]
		if b == nil || b.State == world.BuildingDestroyed {
			ctx.Log.Debug("combat start declined: defender building gone", "defender", defender)
			return sim.StateChange{}, false
		}
		defStrength = b.HP
		location = b.Origin
	case world.EntityVillagerGroup:
		g := ctx.State.VillagerGroups[world.GroupID(defender.ID)]
		if g == nil || g.Count == 0 {
			ctx.Log.Debug("combat start declined: defender group gone", "defender", defender)
			return sim.StateChange{}, false
		}
		defStrength = g.Count * villagerHP
		location = g.Coord
	case world.EntityResourcePoint:
		// Hunting goes through the gather pipeline, not combat.
		return sim.StateChange{}, false
	}

	eff := opts.AttackerEffectiveness
	if eff <= 0 {
		eff = 1.0
	}

	c := &ActiveCombat{
		ID:                    uuid.NewString(),
		Attacker:              attackerID,
		Defender:              defender,
		Phase:                 PhaseRanged,
		Location:              location,
		StartTick:             ctx.Now(),
		AttackerStartStrength: attacker.Strength(),
		DefenderStartStrength: defStrength,
		AttackerEffectiveness: eff,
	}
	e.combats[c.ID] = c
	e.byPair[pairKey(attackerID, defender)] = c.ID

	attacker.State = world.ArmyInCombat
	attacker.Path = nil // Engaging cancels any movement in progress

	ev := sim.NewChange(ctx, sim.ChangeCombatStarted, attacker.Owner)
	ev.Coord = location
	ev.Entity = defender
	ev.Detail = fmt.Sprintf("army %d engaged %s", attackerID, defender)
	ctx.Log.Info("combat started",
		"combat", c.ID,
		"attacker", attackerID,
		"defender", defender.String(),
		"q", location.Q, "r", location.R,
	)
	return ev, true
}

// StepAll advances every active combat by one engagement tick, running
// the three phases in order. Safe to call with stale combats — resolved
// or orphaned entries are dropped as neutral no-ops.
func (e *Engine) StepAll(ctx *sim.Context) []sim.StateChange {
	var events []sim.StateChange
	for _, c := range e.combats {
		events = append(events, e.step(ctx, c)...)
	}
	return events
}

// step runs one engagement tick of a single combat.
func (e *Engine) step(ctx *sim.Context, c *ActiveCombat) []sim.StateChange {
	attacker := ctx.State.Armies[c.Attacker]
	if attacker == nil || attacker.State == world.ArmyDestroyed || attacker.TotalUnits() == 0 {
		// Stale reference: resolve quietly.
		e.endCtx(ctx, c)
		return nil
	}

	switch c.Defender.Kind {
	case world.EntityArmy:
		return e.stepArmyCombat(ctx, c, attacker)
	case world.EntityBuilding:
		return e.stepBuildingCombat(ctx, c, attacker)
	case world.EntityVillagerGroup:
		return e.stepVillagerCombat(ctx, c, attacker)
	case world.EntityResourcePoint:
		e.endCtx(ctx, c)
		return nil
	}
	e.endCtx(ctx, c)
	return nil
}

func (e *Engine) stepArmyCombat(ctx *sim.Context, c *ActiveCombat, attacker *world.Army) []sim.StateChange {
	defender := ctx.State.Armies[world.ArmyID(c.Defender.ID)]
	if defender == nil || defender.State == world.ArmyDestroyed || defender.TotalUnits() == 0 {
		attacker.State = world.ArmyVictorious
		ev := e.endWithEvent(ctx, c, attacker.Owner, "defender already gone")
		return []sim.StateChange{ev}
	}

	var events []sim.StateChange
	attP := ctx.State.Players[attacker.Owner]
	defP := ctx.State.Players[defender.Owner]
	attCmd := commanderOf(ctx, attacker)
	defCmd := commanderOf(ctx, defender)

	// Phase 1: ranged/garrison. Entrenched defenders and any friendly
	// garrisoned building on or adjacent to the fight fire before melee
	// closes.
	c.Phase = PhaseRanged
	rangedOut := 0.0
	if defender.Entrenched {
		out := channelOutput(defP, defender.RangedUnits(), true)
		rangedOut += mitigate(out, averageArmor(attP, attacker.Composition))
	}
	for _, b := range garrisonSupport(ctx, defender.Owner, c.Location) {
		out := channelOutput(defP, b.Garrison.RangedCount(), true)
		rangedOut += mitigate(out, averageArmor(attP, attacker.Composition))
	}
	if rangedOut > 0 {
		rangedOut *= offenseMult(defCmd)
		rangedOut *= defenseMult(ctx, nil, attCmd) // attacker tactics soften it
		attacker.ApplyLosses(distributeCasualties(attacker.Composition, rangedOut))
	}

	if attacker.TotalUnits() == 0 {
		events = append(events, e.destroyArmy(ctx, c, attacker)...)
		defender.State = world.ArmyVictorious
		events = append(events, e.endWithEvent(ctx, c, defender.Owner, "attacker destroyed in ranged phase"))
		return events
	}

	// Phase 2: simultaneous melee exchange, both outputs computed from
	// the post-ranged compositions before either side's losses land.
	c.Phase = PhaseMelee
	attOut := channelOutput(attP, attacker.Composition, false)
	defOut := channelOutput(defP, defender.Composition, false)

	dmgToDefender := mitigate(attOut, averageArmor(defP, defender.Composition)) *
		offenseMult(attCmd) * c.AttackerEffectiveness * defenseMult(ctx, defender, defCmd)
	dmgToAttacker := mitigate(defOut, averageArmor(attP, attacker.Composition)) *
		offenseMult(defCmd) * defenseMult(ctx, attacker, attCmd)

	// Phase 3: resolution — apply casualties proportionally, then check
	// destruction and retreat.
	c.Phase = PhaseResolution
	attacker.ApplyLosses(distributeCasualties(attacker.Composition, dmgToAttacker))
	defender.ApplyLosses(distributeCasualties(defender.Composition, dmgToDefender))

	attGone := attacker.TotalUnits() == 0
	defGone := defender.TotalUnits() == 0

	switch {
	case attGone && defGone:
		events = append(events, e.destroyArmy(ctx, c, attacker)...)
		events = append(events, e.destroyArmy(ctx, c, defender)...)
		events = append(events, e.endWithEvent(ctx, c, attacker.Owner, "mutual destruction"))
	case defGone:
		events = append(events, e.destroyArmy(ctx, c, defender)...)
		attacker.State = world.ArmyVictorious
		events = append(events, e.endWithEvent(ctx, c, attacker.Owner, "defender destroyed"))
	case attGone:
		events = append(events, e.destroyArmy(ctx, c, attacker)...)
		defender.State = world.ArmyVictorious
		events = append(events, e.endWithEvent(ctx, c, defender.Owner, "attacker destroyed"))
	default:
		if ev, ok := e.checkRetreat(ctx, c, attacker, c.AttackerStartStrength); ok {
			events = append(events, ev, e.endWithEvent(ctx, c, attacker.Owner, "attacker retreating"))
			return events
		}
		if ev, ok := e.checkRetreat(ctx, c, defender, c.DefenderStartStrength); ok {
			events = append(events, ev, e.endWithEvent(ctx, c, defender.Owner, "defender retreating"))
			return events
		}
	}
	return events
}

func (e *Engine) stepBuildingCombat(ctx *sim.Context, c *ActiveCombat, attacker *world.Army) []sim.StateChange {
	b := ctx.State.Buildings[world.BuildingID(c.Defender.ID)]
	if b == nil || b.State == world.BuildingDestroyed {
		attacker.State = world.ArmyVictorious
		return []sim.StateChange{e.endWithEvent(ctx, c, attacker.Owner, "building already gone")}
	}

	var events []sim.StateChange
	attP := ctx.State.Players[attacker.Owner]
	defP := ctx.State.Players[b.Owner]
	attCmd := commanderOf(ctx, attacker)

	// Phase 1: garrison fire. A building with no garrison has no
	// counter-phase at all — damage just accrues.
	c.Phase = PhaseRanged
	garrisonOut := 0.0
	out := channelOutput(defP, b.Garrison.RangedCount(), true)
	garrisonOut += mitigate(out, averageArmor(attP, attacker.Composition))
	for _, support := range garrisonSupport(ctx, b.Owner, c.Location) {
		if support.ID == b.ID {
			continue
		}
		sOut := channelOutput(defP, support.Garrison.RangedCount(), true)
		garrisonOut += mitigate(sOut, averageArmor(attP, attacker.Composition))
	}
	if garrisonOut > 0 {
		garrisonOut *= defenseMult(ctx, nil, attCmd)
		attacker.ApplyLosses(distributeCasualties(attacker.Composition, garrisonOut))
	}

	if attacker.TotalUnits() == 0 {
		events = append(events, e.destroyArmy(ctx, c, attacker)...)
		events = append(events, e.endWithEvent(ctx, c, b.Owner, "attacker destroyed by garrison"))
		return events
	}

	// Phase 2: the melee phase against a building is unopposed — raw
	// output with siege bonuses accrues to building health.
	c.Phase = PhaseMelee
	dmg := buildingOutput(attP, attacker.Composition) * offenseMult(attCmd) * c.AttackerEffectiveness

	// Phase 3: resolution.
	c.Phase = PhaseResolution
	if b.ApplyDamage(int(dmg + 0.5)) {
		events = append(events, e.buildingDestroyed(ctx, b)...)
		attacker.State = world.ArmyVictorious
		events = append(events, e.endWithEvent(ctx, c, attacker.Owner, "building destroyed"))
		return events
	}
	if ev, ok := e.checkRetreat(ctx, c, attacker, c.AttackerStartStrength); ok {
		events = append(events, ev, e.endWithEvent(ctx, c, attacker.Owner, "attacker retreating"))
	}
	return events
}

func (e *Engine) stepVillagerCombat(ctx *sim.Context, c *ActiveCombat, attacker *world.Army) []sim.StateChange {
	g := ctx.State.VillagerGroups[world.GroupID(c.Defender.ID)]
	if g == nil || g.Count == 0 {
		attacker.State = world.ArmyVictorious
		return []sim.StateChange{e.endWithEvent(ctx, c, attacker.Owner, "group already gone")}
	}

	var events []sim.StateChange
	attP := ctx.State.Players[attacker.Owner]
	attCmd := commanderOf(ctx, attacker)

	// Villagers have no phases of their own; the whole engagement tick
	// is one-sided.
	c.Phase = PhaseResolution
	out := channelOutput(attP, attacker.Composition, false)
	dmg := (out[0] + out[1] + out[2]) * offenseMult(attCmd) * c.AttackerEffectiveness
	lost := g.ApplyCasualties(int(dmg / villagerHP))
	if lost > 0 {
		ev := sim.NewChange(ctx, sim.ChangeVillagerCasualties, g.Owner)
		ev.Coord = g.Coord
		ev.Entity = world.GroupRef(g.ID)
		ev.Detail = fmt.Sprintf("%d villagers lost", lost)
		events = append(events, ev)
	}
	if g.Count == 0 {
		ctx.State.RemoveVillagerGroup(g.ID)
		attacker.State = world.ArmyVictorious
		events = append(events, e.endWithEvent(ctx, c, attacker.Owner, "group destroyed"))
	}
	return events
}

// checkRetreat triggers retreat when a side's strength falls below the
// threshold fraction of its starting strength and it still has a valid
// home base to fall back to.
func (e *Engine) checkRetreat(ctx *sim.Context, c *ActiveCombat, a *world.Army, startStrength int) (sim.StateChange, bool) {
	if startStrength == 0 {
		return sim.StateChange{}, false
	}
	if float64(a.Strength()) >= retreatThreshold*float64(startStrength) {
		return sim.StateChange{}, false
	}
	home := ctx.State.Buildings[a.HomeBaseID]
	if home == nil || home.State == world.BuildingDestroyed {
		return sim.StateChange{}, false
	}
	a.State = world.ArmyRetreating
	a.Entrenched = false
	ev := sim.NewChange(ctx, sim.ChangeArmyRetreating, a.Owner)
	ev.Coord = a.Coord
	ev.Entity = world.ArmyRef(a.ID)
	ctx.Log.Info("army retreating", "army", a.ID, "owner", a.Owner, "home", a.HomeBaseID)
	return ev, true
}

// destroyArmy removes a dead army and emits the owner notification.
func (e *Engine) destroyArmy(ctx *sim.Context, c *ActiveCombat, a *world.Army) []sim.StateChange {
	a.State = world.ArmyDestroyed
	ctx.State.RemoveArmy(a.ID)
	ev := sim.NewChange(ctx, sim.ChangeArmyDestroyed, a.Owner)
	ev.Coord = a.Coord
	ev.Entity = world.ArmyRef(a.ID)
	ctx.Log.Info("army destroyed", "army", a.ID, "owner", a.Owner, "combat", c.ID)
	return []sim.StateChange{ev}
}

// buildingDestroyed removes a destroyed building and emits the event.
func (e *Engine) buildingDestroyed(ctx *sim.Context, b *world.Building) []sim.StateChange {
	ctx.State.RemoveBuilding(b.ID)
	ev := sim.NewChange(ctx, sim.ChangeBuildingDestroyed, b.Owner)
	ev.Coord = b.Origin
	ev.Entity = world.BuildingRef(b.ID)
	ev.Detail = world.BuildingName(b.Type)
	ctx.Log.Info("building destroyed", "building", b.ID, "type", world.BuildingName(b.Type), "owner", b.Owner)
	return []sim.StateChange{ev}
}

// endWithEvent closes the combat and emits combatEnded.
func (e *Engine) endWithEvent(ctx *sim.Context, c *ActiveCombat, player world.PlayerID, detail string) sim.StateChange {
	e.endCtx(ctx, c)
	ev := sim.NewChange(ctx, sim.ChangeCombatEnded, player)
	ev.Coord = c.Location
	ev.Detail = detail
	return ev
}

// end drops the combat from the registry.
func (e *Engine) end(c *ActiveCombat) {
	delete(e.combats, c.ID)
	delete(e.byPair, pairKey(c.Attacker, c.Defender))
}

// endCtx drops the combat and releases any side still marked inCombat
// back to idle. Victorious and retreating states are left for the
// scheduler to walk back to idle.
func (e *Engine) endCtx(ctx *sim.Context, c *ActiveCombat) {
	e.end(c)
	if a := ctx.State.Armies[c.Attacker]; a != nil && a.State == world.ArmyInCombat && !e.InCombat(a.ID) {
		a.State = world.ArmyIdle
	}
	if c.Defender.Kind == world.EntityArmy {
		if d := ctx.State.Armies[world.ArmyID(c.Defender.ID)]; d != nil && d.State == world.ArmyInCombat && !e.InCombat(d.ID) {
			d.State = world.ArmyIdle
		}
	}
}

// garrisonSupport returns the player's operational buildings with a
// ranged garrison standing on or adjacent to the location. They join
// any fight there without an explicit command.
func garrisonSupport(ctx *sim.Context, owner world.PlayerID, location hexmap.HexCoord) []*world.Building {
	var out []*world.Building
	for _, b := range ctx.State.Buildings {
		if b.Owner != owner || !b.Operational() {
			continue
		}
		if len(b.Garrison.RangedCount()) == 0 {
			continue
		}
		if b.AdjacentTo(location) {
			out = append(out, b)
		}
	}
	return out
}
