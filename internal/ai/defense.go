package ai

import (
	"github.com/talgya/hexfront/internal/command"
	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// Defense planner caps. Towers and entrenchments are capped so a
// defensive posture never starves the economy of stone or freezes the
// whole army in place.
const (
	maxTowers         = 4
	maxEntrenched     = 2
	towerRingRadius   = 3 // Towers go up this far out from the home base
	garrisonRangedMin = 3 // Ranged units in an army before garrisoning it
)

// planDefense hardens the base: towers around the home base (scored by
// coverage, capped), idle ranged armies into tower garrisons, and a
// bounded number of entrenchments on the approach tiles.
func (c *Controller) planDefense(ctx *sim.Context, pipe *command.Pipeline) []sim.StateChange {
	p := ctx.State.Players[c.Player]
	home := ctx.State.Buildings[p.HomeBaseID]
	if home == nil || home.State == world.BuildingDestroyed {
		return nil
	}
	var events []sim.StateChange

	if c.towerCount(ctx) < maxTowers && p.CanAfford(world.BuildingStatsFor(world.BuildingTower).Cost) {
		events = append(events, c.placeTower(ctx, pipe, home)...)
	}

	// Ranged-heavy idle armies shoot better from a tower.
	events = append(events, c.garrisonRanged(ctx, pipe)...)

	if c.Posture == PostureDefending || c.Posture == PostureAlerted {
		events = append(events, c.entrenchApproaches(ctx, pipe, home)...)
	}
	return events
}

func (c *Controller) towerCount(ctx *sim.Context) int {
	n := 0
	for _, b := range ctx.State.BuildingsOf(c.Player) {
		if (b.Type == world.BuildingTower || b.Type == world.BuildingFort) && b.State != world.BuildingDestroyed {
			n++
		}
	}
	return n
}

// placeTower scores candidate tiles on the home-base ring by how many
// currently uncovered tiles a tower there would watch, and builds on
// the best one.
func (c *Controller) placeTower(ctx *sim.Context, pipe *command.Pipeline, home *world.Building) []sim.StateChange {
	builder := c.idleGroupNear(ctx, home.Origin)
	if builder == nil {
		return nil
	}
	visionRange := world.BuildingStatsFor(world.BuildingTower).VisionRange

	var best hexmap.HexCoord
	bestScore := 0
	for _, cand := range home.Origin.Ring(towerRingRadius) {
		if !c.footprintFits(ctx, world.BuildingTower, cand) {
			continue
		}
		score := 0
		for _, covered := range cand.Spiral(visionRange) {
			if ctx.State.Map.Get(covered) == nil {
				continue
			}
			if !c.coveredByTower(ctx, covered) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}
	if bestScore == 0 {
		return nil
	}
	if ev, ok := c.dispatch(ctx, pipe, command.Build{
		Base:    command.Base{Player: c.Player, Issued: ctx.Now()},
		GroupID: builder.ID,
		Type:    world.BuildingTower,
		Origin:  best,
	}); ok {
		return ev
	}
	return nil
}

func (c *Controller) coveredByTower(ctx *sim.Context, coord hexmap.HexCoord) bool {
	for _, b := range ctx.State.BuildingsOf(c.Player) {
		if b.Type != world.BuildingTower && b.Type != world.BuildingFort {
			continue
		}
		if b.State == world.BuildingDestroyed {
			continue
		}
		if hexmap.Distance(b.Origin, coord) <= world.BuildingStatsFor(b.Type).VisionRange {
			return true
		}
	}
	return false
}

// garrisonRanged tucks ranged-heavy idle armies into towers with room.
func (c *Controller) garrisonRanged(ctx *sim.Context, pipe *command.Pipeline) []sim.StateChange {
	var events []sim.StateChange
	for _, a := range c.idleArmies(ctx) {
		ranged := 0
		for _, n := range a.RangedUnits() {
			ranged += n
		}
		if ranged < garrisonRangedMin {
			continue
		}
		for _, b := range ctx.State.BuildingsOf(c.Player) {
			if b.Type != world.BuildingTower && b.Type != world.BuildingFort {
				continue
			}
			if !b.Operational() || !b.AdjacentTo(a.Coord) {
				continue
			}
			if b.Garrison.Count()+a.TotalUnits() > world.BuildingStatsFor(b.Type).GarrisonCap {
				continue
			}
			if ev, ok := c.dispatch(ctx, pipe, command.GarrisonArmy{
				Base:       command.Base{Player: c.Player, Issued: ctx.Now()},
				ArmyID:     a.ID,
				BuildingID: b.ID,
			}); ok {
				events = append(events, ev...)
			}
			break
		}
	}
	return events
}

// entrenchApproaches digs in up to maxEntrenched armies already
// standing near the home base.
func (c *Controller) entrenchApproaches(ctx *sim.Context, pipe *command.Pipeline, home *world.Building) []sim.StateChange {
	entrenched := 0
	for _, a := range ctx.State.ArmiesOf(c.Player) {
		if a.Entrenched {
			entrenched++
		}
	}
	var events []sim.StateChange
	for _, a := range c.idleArmies(ctx) {
		if entrenched >= maxEntrenched {
			break
		}
		if a.Entrenched || hexmap.Distance(a.Coord, home.Origin) > towerRingRadius+1 {
			continue
		}
		if ev, ok := c.dispatch(ctx, pipe, command.Entrench{
			Base:   command.Base{Player: c.Player, Issued: ctx.Now()},
			ArmyID: a.ID,
		}); ok {
			events = append(events, ev...)
			entrenched++
		}
	}
	return events
}
