package ai

import (
	"math"

	"github.com/talgya/hexfront/internal/command"
	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

const (
	trainBatch       = 4
	deployThreshold  = 8  // Garrisoned units before standing up an army
	attackMinArmies  = 2  // Armies kept back before any offensive
)

// planMilitary grows and spends the army: trains at barracks and
// forts, stands up armies from full garrisons, and, when the posture
// calls for it, sends armies at the nearest visible enemy.
func (c *Controller) planMilitary(ctx *sim.Context, pipe *command.Pipeline) []sim.StateChange {
	var events []sim.StateChange

	// Training first, so garrisons refill while armies are out.
	for _, b := range ctx.State.BuildingsOf(c.Player) {
		if b.State != world.BuildingOperational {
			continue
		}
		if b.Type != world.BuildingBarracks && b.Type != world.BuildingFort {
			continue
		}
		if len(b.Training) > 0 {
			continue
		}
		if ev, ok := c.dispatch(ctx, pipe, command.TrainUnits{
			Base:       command.Base{Player: c.Player, Issued: ctx.Now()},
			BuildingID: b.ID,
			Unit:       c.preferredUnit(ctx),
			Count:      trainBatch,
		}); ok {
			events = append(events, ev...)
		}
	}

	// Stand up armies from garrisons that have grown past the threshold.
	for _, b := range ctx.State.BuildingsOf(c.Player) {
		if b.State != world.BuildingOperational || b.Garrison.Count() < deployThreshold {
			continue
		}
		at, ok := c.deployTile(ctx, b)
		if !ok {
			continue
		}
		units := make(map[world.UnitType]int, len(b.Garrison.Units))
		for u, n := range b.Garrison.Units {
			units[u] = n
		}
		if ev, ok := c.dispatch(ctx, pipe, command.DeployArmy{
			Base:       command.Base{Player: c.Player, Issued: ctx.Now()},
			BuildingID: b.ID,
			Units:      units,
			At:         at,
		}); ok {
			events = append(events, ev...)
		}
	}

	switch c.Posture {
	case PostureAttacking:
		events = append(events, c.pressAttack(ctx, pipe)...)
	case PostureRetreating:
		events = append(events, c.pullBack(ctx, pipe)...)
	}
	return events
}

// preferredUnit biases the mix by posture: pierce for defense, melee
// weight otherwise, knights once horsemanship is in.
func (c *Controller) preferredUnit(ctx *sim.Context) world.UnitType {
	p := ctx.State.Players[c.Player]
	if c.Posture == PostureDefending || c.Posture == PostureAlerted {
		return world.UnitArcher
	}
	if p.HasCompleted(world.ResearchHorsemanship) && ctx.Rand.Intn(3) == 0 {
		return world.UnitKnight
	}
	if ctx.Rand.Intn(4) == 0 {
		return world.UnitMaceman
	}
	return world.UnitSwordsman
}

// pressAttack sends each idle army at the nearest visible enemy it can
// reach. Armies already adjacent attack instead of moving.
func (c *Controller) pressAttack(ctx *sim.Context, pipe *command.Pipeline) []sim.StateChange {
	idle := c.idleArmies(ctx)
	if len(idle) < attackMinArmies {
		return nil
	}
	var events []sim.StateChange
	for _, a := range idle {
		target, coord, ok := c.nearestEnemy(ctx, a.Coord)
		if !ok {
			continue
		}
		if hexmap.Distance(a.Coord, coord) <= 1 {
			if ev, ok := c.dispatch(ctx, pipe, command.Attack{
				Base:   command.Base{Player: c.Player, Issued: ctx.Now()},
				ArmyID: a.ID,
				Target: target,
			}); ok {
				events = append(events, ev...)
			}
			continue
		}
		dest, ok := c.approachTile(ctx, coord)
		if !ok {
			continue
		}
		if ev, ok := c.dispatch(ctx, pipe, command.Move{
			Base:              command.Base{Player: c.Player, Issued: ctx.Now()},
			ArmyID:            a.ID,
			Dest:              dest,
			BreakEntrenchment: true,
		}); ok {
			events = append(events, ev...)
		}
	}
	return events
}

// pullBack orders exposed idle armies home.
func (c *Controller) pullBack(ctx *sim.Context, pipe *command.Pipeline) []sim.StateChange {
	p := ctx.State.Players[c.Player]
	home := ctx.State.Buildings[p.HomeBaseID]
	if home == nil || home.State == world.BuildingDestroyed {
		return nil
	}
	var events []sim.StateChange
	for _, a := range c.idleArmies(ctx) {
		if home.AdjacentTo(a.Coord) {
			continue
		}
		dest, ok := c.approachTile(ctx, home.Origin)
		if !ok {
			continue
		}
		if ev, ok := c.dispatch(ctx, pipe, command.Move{
			Base:              command.Base{Player: c.Player, Issued: ctx.Now()},
			ArmyID:            a.ID,
			Dest:              dest,
			BreakEntrenchment: true,
		}); ok {
			events = append(events, ev...)
		}
	}
	return events
}

func (c *Controller) idleArmies(ctx *sim.Context) []*world.Army {
	var out []*world.Army
	for _, a := range ctx.State.ArmiesOf(c.Player) {
		if a.State == world.ArmyIdle && !a.Moving() && a.TotalUnits() > 0 {
			out = append(out, a)
		}
	}
	return out
}

// nearestEnemy finds the closest visible enemy army or building.
func (c *Controller) nearestEnemy(ctx *sim.Context, from hexmap.HexCoord) (world.EntityRef, hexmap.HexCoord, bool) {
	p := ctx.State.Players[c.Player]
	var best world.EntityRef
	var bestCoord hexmap.HexCoord
	bestDist := math.MaxInt

	for _, a := range ctx.State.Armies {
		if a.Owner == c.Player || a.State == world.ArmyDestroyed || a.TotalUnits() == 0 {
			continue
		}
		if p.FogAt(a.Coord) != world.VisibilityVisible {
			continue
		}
		if d := hexmap.Distance(from, a.Coord); d < bestDist {
			bestDist = d
			best = world.ArmyRef(a.ID)
			bestCoord = a.Coord
		}
	}
	for _, b := range ctx.State.Buildings {
		if b.Owner == c.Player || b.State == world.BuildingDestroyed {
			continue
		}
		if p.FogAt(b.Origin) == world.VisibilityUnexplored {
			continue
		}
		if d := hexmap.Distance(from, b.Origin); d < bestDist {
			bestDist = d
			best = world.BuildingRef(b.ID)
			bestCoord = b.Origin
		}
	}
	return best, bestCoord, bestDist < math.MaxInt
}

// approachTile picks a walkable tile adjacent to a target coordinate.
func (c *Controller) approachTile(ctx *sim.Context, target hexmap.HexCoord) (hexmap.HexCoord, bool) {
	if ctx.State.Walkable(target, c.Player) {
		return target, true
	}
	for _, n := range target.Neighbors() {
		if ctx.State.Walkable(n, c.Player) {
			return n, true
		}
	}
	return hexmap.HexCoord{}, false
}

// deployTile picks a walkable tile adjacent to the building.
func (c *Controller) deployTile(ctx *sim.Context, b *world.Building) (hexmap.HexCoord, bool) {
	for _, coord := range b.Occupied {
		for _, n := range coord.Neighbors() {
			if ctx.State.Walkable(n, c.Player) && b.AdjacentTo(n) {
				return n, true
			}
		}
	}
	return hexmap.HexCoord{}, false
}
