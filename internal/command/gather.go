package command

import (
	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/movement"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// Gather sends a villager group to work a resource point. The group
// walks there if needed; huntable points flip the task to hunting
// until the herd is brought down.
type Gather struct {
	Base
	GroupID world.GroupID `json:"group_id"`
	PointID world.PointID `json:"point_id"`
}

func (c Gather) Name() string { return "gather" }

func (c Gather) Validate(ctx *sim.Context) Outcome {
	g, outcome := requireOwnedGroup(ctx, c.Player, c.GroupID)
	if !outcome.Succeeded {
		return outcome
	}
	rp := ctx.State.ResourcePoints[c.PointID]
	if rp == nil {
		return Failure("resource point %d does not exist", c.PointID)
	}
	if rp.Depleted() {
		return Failure("resource point %d is depleted", c.PointID)
	}
	if !rp.HasCapacity() && !assignedTo(rp, g.ID) {
		return Failure("resource point %d is fully worked", c.PointID)
	}
	return Success()
}

func (c Gather) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	g := ctx.State.VillagerGroups[c.GroupID]
	rp := ctx.State.ResourcePoints[c.PointID]

	// Drop whatever the group was doing, including a previous gather.
	releaseGroup(ctx, g)

	g.TargetPointID = rp.ID
	if hexmap.Distance(g.Coord, rp.Coord) <= 1 {
		rp.Assign(g.ID)
		if rp.Type.Huntable() && rp.HP > 0 {
			g.Task = world.TaskHunting
		} else {
			g.Task = world.TaskGathering
		}
		g.LastGatherTick = ctx.Now()
		return Success(), nil
	}

	path := movement.FindPath(ctx, g.Coord, gatherStand(ctx, c.Player, rp), c.Player)
	if path == nil {
		g.ClearTask()
		return Failure("no path to resource point"), nil
	}
	g.Task = world.TaskMoving
	g.Path = path
	g.LastMoveTick = ctx.Now()
	return Success(), nil
}

// StopGathering recalls a group from its current task back to idle.
type StopGathering struct {
	Base
	GroupID world.GroupID `json:"group_id"`
}

func (c StopGathering) Name() string { return "stop_gathering" }

func (c StopGathering) Validate(ctx *sim.Context) Outcome {
	g, outcome := requireOwnedGroup(ctx, c.Player, c.GroupID)
	if !outcome.Succeeded {
		return outcome
	}
	if g.Task == world.TaskIdle {
		return Failure("villager group %d is already idle", c.GroupID)
	}
	return Success()
}

func (c StopGathering) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	g := ctx.State.VillagerGroups[c.GroupID]
	releaseGroup(ctx, g)
	return Success(), nil
}

// releaseGroup unassigns the group from any resource point and idles it.
func releaseGroup(ctx *sim.Context, g *world.VillagerGroup) {
	if g.TargetPointID != 0 {
		if rp := ctx.State.ResourcePoints[g.TargetPointID]; rp != nil {
			rp.Unassign(g.ID)
		}
	}
	g.ClearTask()
}

// gatherStand picks a walkable tile adjacent to the point for the
// group to work from. The point tile itself is the fallback.
func gatherStand(ctx *sim.Context, mover world.PlayerID, rp *world.ResourcePoint) hexmap.HexCoord {
	if ctx.State.Walkable(rp.Coord, mover) {
		return rp.Coord
	}
	for _, n := range rp.Coord.Neighbors() {
		if ctx.State.Walkable(n, mover) {
			return n
		}
	}
	return rp.Coord
}

func assignedTo(rp *world.ResourcePoint, id world.GroupID) bool {
	for _, g := range rp.AssignedGroups {
		if g == id {
			return true
		}
	}
	return false
}
