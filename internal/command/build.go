package command

import (
	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/movement"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// Build places a construction site and sends a villager group to work
// on it. Resources are spent up front and refunded on demolition of an
// unfinished site.
type Build struct {
	Base
	GroupID  world.GroupID      `json:"group_id"`
	Type     world.BuildingType `json:"type"`
	Origin   hexmap.HexCoord    `json:"origin"`
	Rotation int                `json:"rotation"`
}

func (c Build) Name() string { return "build" }

func (c Build) Validate(ctx *sim.Context) Outcome {
	p, outcome := requirePlayer(ctx, c.Player)
	if !outcome.Succeeded {
		return outcome
	}
	g, outcome := requireOwnedGroup(ctx, c.Player, c.GroupID)
	if !outcome.Succeeded {
		return outcome
	}
	if g.Task != world.TaskIdle && g.Task != world.TaskMoving {
		return Failure("villager group %d is busy %s", c.GroupID, world.TaskName(g.Task))
	}
	stats := world.BuildingStatsFor(c.Type)
	if !p.CanAfford(stats.Cost) {
		return Failure("cannot afford %s", world.BuildingName(c.Type))
	}
	for _, coord := range world.FootprintAt(c.Type, c.Origin, c.Rotation) {
		tile := ctx.State.Map.Get(coord)
		if tile == nil {
			return Failure("footprint extends off the map")
		}
		if !tile.Terrain.Walkable() {
			return Failure("cannot build on %s", hexmap.TerrainName(tile.Terrain))
		}
		if ctx.State.BuildingAt(coord) != nil {
			return Failure("tile (%d,%d) is already built on", coord.Q, coord.R)
		}
		if ctx.State.MobileEntitiesAt(coord) > 0 {
			return Failure("tile (%d,%d) is occupied", coord.Q, coord.R)
		}
	}
	return Success()
}

func (c Build) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	p := ctx.State.Players[c.Player]
	g := ctx.State.VillagerGroups[c.GroupID]
	stats := world.BuildingStatsFor(c.Type)

	p.Spend(stats.Cost)
	b := world.NewBuilding(world.BuildingID(ctx.State.NextID()), c.Player, c.Type, c.Origin, c.Rotation, ctx.Now())
	ctx.State.AddBuilding(b)

	// First town hall becomes the player's home base.
	if c.Type == world.BuildingTownHall && p.HomeBaseID == 0 {
		p.HomeBaseID = b.ID
	}

	g.ClearTask()
	g.TargetBuilding = b.ID
	if hexmap.Distance(g.Coord, c.Origin) <= 1 {
		g.Task = world.TaskBuilding
	} else {
		path := movement.FindPath(ctx, g.Coord, nearestFreeAdjacent(ctx, c.Player, b), c.Player)
		if path == nil {
			// Builders can't reach the site; the site stays placed and
			// construction waits for workers.
			g.ClearTask()
			return Success(), nil
		}
		g.Task = world.TaskMoving
		g.Path = path
		g.LastMoveTick = ctx.Now()
	}
	return Success(), nil
}

// nearestFreeAdjacent picks a walkable tile touching the building for
// workers to stand on, falling back to the origin.
func nearestFreeAdjacent(ctx *sim.Context, mover world.PlayerID, b *world.Building) hexmap.HexCoord {
	for _, c := range b.Occupied {
		for _, n := range c.Neighbors() {
			if ctx.State.Walkable(n, mover) {
				return n
			}
		}
	}
	return b.Origin
}

// Upgrade raises an operational building one level. Cost scales with
// the current level and is refunded in full by CancelUpgrade.
type Upgrade struct {
	Base
	BuildingID world.BuildingID `json:"building_id"`
}

func (c Upgrade) Name() string { return "upgrade" }

func (c Upgrade) Validate(ctx *sim.Context) Outcome {
	p, outcome := requirePlayer(ctx, c.Player)
	if !outcome.Succeeded {
		return outcome
	}
	b, outcome := requireOwnedBuilding(ctx, c.Player, c.BuildingID)
	if !outcome.Succeeded {
		return outcome
	}
	if b.State != world.BuildingOperational {
		return Failure("building %d is %s", c.BuildingID, world.BuildingStateName(b.State))
	}
	stats := world.BuildingStatsFor(b.Type)
	if b.Level >= stats.MaxLevel {
		return Failure("%s is already at max level", world.BuildingName(b.Type))
	}
	if !p.CanAfford(world.UpgradeCost(b.Type, b.Level)) {
		return Failure("cannot afford upgrade")
	}
	return Success()
}

func (c Upgrade) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	p := ctx.State.Players[c.Player]
	b := ctx.State.Buildings[c.BuildingID]
	p.Spend(world.UpgradeCost(b.Type, b.Level))
	b.State = world.BuildingUpgrading
	b.UpgradeStart = ctx.Now()
	return Success(), nil
}

// CancelUpgrade unwinds an upgrade in progress, refunding its cost.
type CancelUpgrade struct {
	Base
	BuildingID world.BuildingID `json:"building_id"`
}

func (c CancelUpgrade) Name() string { return "cancel_upgrade" }

func (c CancelUpgrade) Validate(ctx *sim.Context) Outcome {
	b, outcome := requireOwnedBuilding(ctx, c.Player, c.BuildingID)
	if !outcome.Succeeded {
		return outcome
	}
	if b.State != world.BuildingUpgrading {
		return Failure("building %d is not upgrading", c.BuildingID)
	}
	return Success()
}

func (c CancelUpgrade) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	p := ctx.State.Players[c.Player]
	b := ctx.State.Buildings[c.BuildingID]
	p.Refund(world.UpgradeCost(b.Type, b.Level))
	b.State = world.BuildingOperational
	b.UpgradeStart = 0
	return Success(), nil
}

// Demolish schedules a building for teardown.
type Demolish struct {
	Base
	BuildingID world.BuildingID `json:"building_id"`
}

func (c Demolish) Name() string { return "demolish" }

func (c Demolish) Validate(ctx *sim.Context) Outcome {
	b, outcome := requireOwnedBuilding(ctx, c.Player, c.BuildingID)
	if !outcome.Succeeded {
		return outcome
	}
	if b.State != world.BuildingOperational {
		return Failure("building %d is %s", c.BuildingID, world.BuildingStateName(b.State))
	}
	return Success()
}

func (c Demolish) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	b := ctx.State.Buildings[c.BuildingID]
	b.State = world.BuildingDemolishing
	b.DemolitionStart = ctx.Now()
	return Success(), nil
}

// CancelDemolition unwinds a scheduled teardown.
type CancelDemolition struct {
	Base
	BuildingID world.BuildingID `json:"building_id"`
}

func (c CancelDemolition) Name() string { return "cancel_demolition" }

func (c CancelDemolition) Validate(ctx *sim.Context) Outcome {
	b, outcome := requireOwnedBuilding(ctx, c.Player, c.BuildingID)
	if !outcome.Succeeded {
		return outcome
	}
	if b.State != world.BuildingDemolishing {
		return Failure("building %d is not being demolished", c.BuildingID)
	}
	return Success()
}

func (c CancelDemolition) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	b := ctx.State.Buildings[c.BuildingID]
	b.State = world.BuildingOperational
	b.DemolitionStart = 0
	// Workers assigned to the demolition go idle.
	for _, g := range ctx.State.GroupsOf(c.Player) {
		if g.TargetBuilding == b.ID && g.Task == world.TaskDemolishing {
			g.ClearTask()
		}
	}
	return Success(), nil
}
