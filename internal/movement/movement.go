package movement

import (
	"fmt"

	"github.com/talgya/hexfront/internal/combat"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// villagerTicksPerTile is the villager group marching pace.
const villagerTicksPerTile = 5

// reinforcementPenalty is the flat effectiveness applied to intercepted
// reinforcements: they march without a commander. Kept as a dedicated
// constant for that one path; not generalized to other commanderless
// combat.
const reinforcementPenalty = 0.75

// Mover advances every moving entity each movement tick. Interceptions
// hand off to the combat engine.
type Mover struct {
	Combat *combat.Engine
}

// NewMover creates a mover bound to the combat engine.
func NewMover(c *combat.Engine) *Mover {
	return &Mover{Combat: c}
}

// ArmyTicksPerTile returns how many ticks the army needs per tile: the
// pace of its slowest unit, sped up by horsemanship.
func ArmyTicksPerTile(ctx *sim.Context, a *world.Army) uint64 {
	slowest := 1
	for u, n := range a.Composition {
		if n <= 0 {
			continue
		}
		if s := world.UnitStatsFor(u); s.Speed > slowest {
			slowest = s.Speed
		}
	}
	if p := ctx.State.Players[a.Owner]; p != nil && p.HasCompleted(world.ResearchHorsemanship) && slowest > 1 {
		slowest--
	}
	return uint64(slowest)
}

// AdvanceArmies moves every army with a path one tile when its pace
// allows, checking for interception before each new tile.
func (m *Mover) AdvanceArmies(ctx *sim.Context) []sim.StateChange {
	var events []sim.StateChange
	for _, a := range ctx.State.Armies {
		if !a.Moving() || a.State == world.ArmyInCombat || a.State == world.ArmyDestroyed {
			continue
		}
		if ctx.Now()-a.LastMoveTick < ArmyTicksPerTile(ctx, a) {
			continue
		}
		next := a.Path[0]

		// Interception fires before the tile is entered: a hostile
		// army on the next tile halts movement and starts combat
		// instead of completing the path.
		if hostile := ctx.State.HostileArmyAt(next, a.Owner); hostile != nil {
			a.Path = nil
			if ev, ok := m.Combat.Start(ctx, a.ID, world.ArmyRef(hostile.ID), combat.StartOptions{}); ok {
				events = append(events, ev)
			}
			continue
		}
		if !ctx.State.Walkable(next, a.Owner) {
			// Tile filled up since the path was computed; recompute or
			// give up quietly.
			if len(a.Path) > 0 {
				goal := a.Path[len(a.Path)-1]
				a.Path = FindPath(ctx, a.Coord, goal, a.Owner)
			}
			continue
		}

		a.Coord = next
		a.Path = a.Path[1:]
		a.LastMoveTick = ctx.Now()

		if len(a.Path) == 0 && a.State == world.ArmyRetreating {
			a.State = world.ArmyIdle
			ctx.Log.Info("army reached home", "army", a.ID, "owner", a.Owner)
		}
	}
	return events
}

// AdvanceGroups moves villager groups along their paths and flips them
// into their destination task on arrival.
func (m *Mover) AdvanceGroups(ctx *sim.Context) []sim.StateChange {
	var events []sim.StateChange
	for _, g := range ctx.State.VillagerGroups {
		if len(g.Path) == 0 || g.Count == 0 {
			continue
		}
		if ctx.Now()-g.LastMoveTick < villagerTicksPerTile {
			continue
		}
		next := g.Path[0]
		if !ctx.State.Walkable(next, g.Owner) {
			goal := g.Path[len(g.Path)-1]
			g.Path = FindPath(ctx, g.Coord, goal, g.Owner)
			continue
		}
		g.Coord = next
		g.Path = g.Path[1:]
		g.LastMoveTick = ctx.Now()

		if len(g.Path) == 0 {
			m.arriveGroup(ctx, g)
		}
	}
	return events
}

// arriveGroup switches an arrived group from moving into the task its
// stored targets imply.
func (m *Mover) arriveGroup(ctx *sim.Context, g *world.VillagerGroup) {
	switch {
	case g.TargetPointID != 0:
		rp := ctx.State.ResourcePoints[g.TargetPointID]
		if rp == nil || rp.Depleted() {
			g.ClearTask()
			return
		}
		rp.Assign(g.ID)
		if rp.Type.Huntable() && rp.HP > 0 {
			g.Task = world.TaskHunting
		} else {
			g.Task = world.TaskGathering
		}
		g.LastGatherTick = ctx.Now()
	case g.TargetBuilding != 0:
		b := ctx.State.Buildings[g.TargetBuilding]
		if b == nil || b.State == world.BuildingDestroyed {
			g.ClearTask()
			return
		}
		switch b.State {
		case world.BuildingUnderConstruction:
			g.Task = world.TaskBuilding
		case world.BuildingUpgrading:
			g.Task = world.TaskUpgrading
		case world.BuildingDemolishing:
			g.Task = world.TaskDemolishing
		default:
			g.ClearTask()
		}
	default:
		g.ClearTask()
	}
}

// AdvanceReinforcements marches every reinforcement column one tile
// per movement tick, handling interception, target loss, and arrival.
// Columns whose target died since the last tick turn around here.
func (m *Mover) AdvanceReinforcements(ctx *sim.Context) []sim.StateChange {
	var events []sim.StateChange
	var remaining []*world.Reinforcement
	for _, r := range ctx.State.Reinforcements {
		target := ctx.State.Armies[r.TargetID]
		if target == nil || target.State == world.ArmyDestroyed {
			events = append(events, m.returnToSource(ctx, r)...)
			continue
		}
		done, evs := m.advanceReinforcement(ctx, target, r)
		events = append(events, evs...)
		if !done {
			remaining = append(remaining, r)
		}
	}
	ctx.State.Reinforcements = remaining
	return events
}

// advanceReinforcement steps one marching column. Returns done=true
// when the entry should be dropped from the registry.
func (m *Mover) advanceReinforcement(ctx *sim.Context, target *world.Army, r *world.Reinforcement) (bool, []sim.StateChange) {
	if len(r.Path) == 0 {
		// Destination reached (or never had a path): merge.
		target.AddUnits(r.Units)
		ev := sim.NewChange(ctx, sim.ChangeReinforcementsArrived, target.Owner)
		ev.Coord = target.Coord
		ev.Entity = world.ArmyRef(target.ID)
		ev.Units = r.Units
		return true, []sim.StateChange{ev}
	}

	next := r.Path[0]
	if hostile := ctx.State.HostileArmyAt(next, target.Owner); hostile != nil {
		// Intercepted: the marching group stands up as its own army and
		// fights at reduced effectiveness.
		detachment := world.NewArmy(world.ArmyID(ctx.State.NextID()), target.Owner, r.Coord)
		detachment.AddUnits(r.Units)
		detachment.HomeBaseID = r.SourceID
		ctx.State.AddArmy(detachment)
		ctx.Log.Info("reinforcements intercepted",
			"target", target.ID, "detachment", detachment.ID, "hostile", hostile.ID)
		var events []sim.StateChange
		if ev, ok := m.Combat.Start(ctx, detachment.ID, world.ArmyRef(hostile.ID), combat.StartOptions{
			AttackerEffectiveness: reinforcementPenalty,
		}); ok {
			events = append(events, ev)
		}
		return true, events
	}

	r.Coord = next
	r.Path = r.Path[1:]
	if len(r.Path) == 0 && r.Coord == target.Coord {
		target.AddUnits(r.Units)
		ev := sim.NewChange(ctx, sim.ChangeReinforcementsArrived, target.Owner)
		ev.Coord = target.Coord
		ev.Entity = world.ArmyRef(target.ID)
		ev.Units = r.Units
		return true, []sim.StateChange{ev}
	}
	return false, nil
}

// returnToSource sends a marching group home when its target is gone.
// With no path back the units are credited straight into the source
// garrison — the direct-assignment fallback.
func (m *Mover) returnToSource(ctx *sim.Context, r *world.Reinforcement) []sim.StateChange {
	src := ctx.State.Buildings[r.SourceID]
	if src == nil || src.State == world.BuildingDestroyed {
		ctx.Log.Warn("reinforcement source gone, units disbanded", "source", r.SourceID)
		return nil
	}
	for u, n := range r.Units {
		if n > 0 {
			src.Garrison.Units[u] += n
		}
	}
	ctx.Log.Info("reinforcements returned to source",
		"source", r.SourceID, "units", fmt.Sprintf("%v", r.Units))
	return nil
}
