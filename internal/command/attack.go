package command

import (
	"github.com/talgya/hexfront/internal/combat"
	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/movement"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// Attack opens an engagement between an adjacent army and a target
// entity. Attacking marks both players enemies, permanently.
type Attack struct {
	Base
	ArmyID world.ArmyID    `json:"army_id"`
	Target world.EntityRef `json:"target"`
}

func (c Attack) Name() string { return "attack" }

func (c Attack) Validate(ctx *sim.Context) Outcome {
	a, outcome := requireOwnedArmy(ctx, c.Player, c.ArmyID)
	if !outcome.Succeeded {
		return outcome
	}
	if a.State == world.ArmyInCombat {
		return Failure("army %d is already in combat", c.ArmyID)
	}
	if a.TotalUnits() == 0 {
		return Failure("army %d has no units", c.ArmyID)
	}
	if !ctx.State.Resolve(c.Target) {
		return Failure("target %s does not exist", c.Target)
	}
	owner, ok := ctx.State.OwnerOf(c.Target)
	if !ok {
		return Failure("target %s is not attackable", c.Target)
	}
	if owner == c.Player {
		return Failure("cannot attack your own %s", c.Target)
	}
	if !targetAdjacent(ctx, a, c.Target) {
		return Failure("army %d is not adjacent to the target", c.ArmyID)
	}
	return Success()
}

func (c Attack) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	a := ctx.State.Armies[c.ArmyID]
	owner, _ := ctx.State.OwnerOf(c.Target)

	// Hostility is mutual and does not reset when the fight ends.
	ctx.State.Players[c.Player].Relations[owner] = world.RelationEnemy
	if other := ctx.State.Players[owner]; other != nil {
		other.Relations[c.Player] = world.RelationEnemy
	}

	ev, ok := deps.Combat.Start(ctx, a.ID, c.Target, combat.StartOptions{})
	if !ok {
		return Failure("engagement could not start"), nil
	}
	return Success(), []sim.StateChange{ev}
}

// targetAdjacent reports whether the army stands on or next to the
// target. Multi-tile buildings count every occupied tile.
func targetAdjacent(ctx *sim.Context, a *world.Army, ref world.EntityRef) bool {
	if ref.Kind == world.EntityBuilding {
		b := ctx.State.Buildings[world.BuildingID(ref.ID)]
		return b != nil && b.AdjacentTo(a.Coord)
	}
	coord, ok := ctx.State.CoordOf(ref)
	return ok && hexmap.Distance(a.Coord, coord) <= 1
}

// ReinforceArmy dispatches garrisoned units from a building toward an
// army in the field. The units leave the garrison only once a path
// exists; a failed pathfind leaves the garrison untouched.
type ReinforceArmy struct {
	Base
	BuildingID world.BuildingID `json:"building_id"`
	ArmyID     world.ArmyID     `json:"army_id"`
	Units      map[world.UnitType]int `json:"units"`
}

func (c ReinforceArmy) Name() string { return "reinforce_army" }

func (c ReinforceArmy) Validate(ctx *sim.Context) Outcome {
	b, outcome := requireOwnedBuilding(ctx, c.Player, c.BuildingID)
	if !outcome.Succeeded {
		return outcome
	}
	if !b.Operational() {
		return Failure("building %d is not operational", c.BuildingID)
	}
	a, outcome := requireOwnedArmy(ctx, c.Player, c.ArmyID)
	if !outcome.Succeeded {
		return outcome
	}
	if a.State == world.ArmyRetreating {
		return Failure("army %d is retreating", c.ArmyID)
	}
	total := 0
	for u, n := range c.Units {
		if n <= 0 {
			return Failure("unit counts must be positive")
		}
		if b.Garrison.Units[u] < n {
			return Failure("garrison has %d %s, need %d", b.Garrison.Units[u], world.UnitName(u), n)
		}
		total += n
	}
	if total == 0 {
		return Failure("no units requested")
	}
	return Success()
}

func (c ReinforceArmy) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	b := ctx.State.Buildings[c.BuildingID]
	a := ctx.State.Armies[c.ArmyID]

	start := nearestFreeAdjacent(ctx, c.Player, b)
	path := movement.FindPath(ctx, start, a.Coord, c.Player)
	if path == nil {
		return Failure("no path from building %d to army %d", c.BuildingID, c.ArmyID), nil
	}

	units := make(map[world.UnitType]int, len(c.Units))
	for u, n := range c.Units {
		b.Garrison.Units[u] -= n
		if b.Garrison.Units[u] == 0 {
			delete(b.Garrison.Units, u)
		}
		units[u] = n
	}

	eta := ctx.Now() + uint64(len(path))*reinforcementTicksPerTile(units)
	ctx.State.AddReinforcement(&world.Reinforcement{
		TargetID:   a.ID,
		Units:      units,
		SourceID:   b.ID,
		ArriveTick: eta,
		Coord:      start,
		Path:       path,
	})
	return Success(), nil
}

// reinforcementTicksPerTile matches army pace: the slowest unit sets it.
func reinforcementTicksPerTile(units map[world.UnitType]int) uint64 {
	slowest := uint64(1)
	for u := range units {
		if s := uint64(world.UnitStatsFor(u).Speed); s > slowest {
			slowest = s
		}
	}
	return slowest
}

// DeployArmy stands up a new army next to a building from its
// garrison.
type DeployArmy struct {
	Base
	BuildingID world.BuildingID       `json:"building_id"`
	Units      map[world.UnitType]int `json:"units"`
	At         hexmap.HexCoord        `json:"at"`
}

func (c DeployArmy) Name() string { return "deploy_army" }

func (c DeployArmy) Validate(ctx *sim.Context) Outcome {
	b, outcome := requireOwnedBuilding(ctx, c.Player, c.BuildingID)
	if !outcome.Succeeded {
		return outcome
	}
	if !b.Operational() {
		return Failure("building %d is not operational", c.BuildingID)
	}
	if !b.AdjacentTo(c.At) {
		return Failure("deploy tile is not adjacent to building %d", c.BuildingID)
	}
	if !ctx.State.Walkable(c.At, c.Player) {
		return Failure("deploy tile is not walkable")
	}
	total := 0
	for u, n := range c.Units {
		if n <= 0 {
			return Failure("unit counts must be positive")
		}
		if b.Garrison.Units[u] < n {
			return Failure("garrison has %d %s, need %d", b.Garrison.Units[u], world.UnitName(u), n)
		}
		total += n
	}
	if total == 0 {
		return Failure("no units requested")
	}
	return Success()
}

func (c DeployArmy) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	b := ctx.State.Buildings[c.BuildingID]

	a := world.NewArmy(world.ArmyID(ctx.State.NextID()), c.Player, c.At)
	a.HomeBaseID = b.ID
	// A commander sitting out the war helps nobody: the first free one
	// takes the field with the new army.
	if cmdr := ctx.State.FreeCommanderOf(c.Player); cmdr != nil {
		a.CommanderID = cmdr.ID
	}
	for u, n := range c.Units {
		b.Garrison.Units[u] -= n
		if b.Garrison.Units[u] == 0 {
			delete(b.Garrison.Units, u)
		}
		a.Composition[u] = n
	}
	ctx.State.AddArmy(a)
	return Success(), nil
}

// GarrisonArmy merges an idle adjacent army into a building's
// garrison, removing the army.
type GarrisonArmy struct {
	Base
	ArmyID     world.ArmyID     `json:"army_id"`
	BuildingID world.BuildingID `json:"building_id"`
}

func (c GarrisonArmy) Name() string { return "garrison_army" }

func (c GarrisonArmy) Validate(ctx *sim.Context) Outcome {
	a, outcome := requireOwnedArmy(ctx, c.Player, c.ArmyID)
	if !outcome.Succeeded {
		return outcome
	}
	if a.State != world.ArmyIdle {
		return Failure("army %d is %s", c.ArmyID, world.ArmyStateName(a.State))
	}
	if a.Moving() {
		return Failure("army %d is moving", c.ArmyID)
	}
	b, outcome := requireOwnedBuilding(ctx, c.Player, c.BuildingID)
	if !outcome.Succeeded {
		return outcome
	}
	if !b.Operational() {
		return Failure("building %d is not operational", c.BuildingID)
	}
	cap := world.BuildingStatsFor(b.Type).GarrisonCap
	if cap == 0 {
		return Failure("%s cannot garrison units", world.BuildingName(b.Type))
	}
	if !b.AdjacentTo(a.Coord) {
		return Failure("army %d is not adjacent to building %d", c.ArmyID, c.BuildingID)
	}
	if b.Garrison.Count()+a.TotalUnits() > cap {
		return Failure("garrison capacity %d would be exceeded", cap)
	}
	return Success()
}

func (c GarrisonArmy) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	a := ctx.State.Armies[c.ArmyID]
	b := ctx.State.Buildings[c.BuildingID]
	for u, n := range a.Composition {
		if n > 0 {
			b.Garrison.Units[u] += n
		}
	}
	ctx.State.RemoveArmy(a.ID)
	return Success(), nil
}
