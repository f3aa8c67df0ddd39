package ai

import (
	"math"

	"github.com/talgya/hexfront/internal/command"
	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// Economy planner targets: enough villagers to work the map, camps
// near worked points, a house buffer for growth.
const (
	targetVillagers  = 40
	villagerBatch    = 5
	campSearchRange  = 2 // Build a camp when a worked point has none within this distance
	minFoodReserve   = 150
)

// planEconomy keeps villagers busy and the resource base growing:
// idle groups go to the scarcest gatherable resource, camps go up
// next to worked points, and the town hall keeps training.
func (c *Controller) planEconomy(ctx *sim.Context, pipe *command.Pipeline) []sim.StateChange {
	p := ctx.State.Players[c.Player]
	var events []sim.StateChange

	// Put every idle group on the scarcest resource it can reach.
	for _, g := range ctx.State.GroupsOf(c.Player) {
		if g.Task != world.TaskIdle {
			continue
		}
		rp := c.pickResourcePoint(ctx, p, g)
		if rp == nil {
			continue
		}
		if ev, ok := c.dispatch(ctx, pipe, command.Gather{
			Base:    command.Base{Player: c.Player, Issued: ctx.Now()},
			GroupID: g.ID,
			PointID: rp.ID,
		}); ok {
			events = append(events, ev...)
		}
	}

	// Camps shorten the walk: when a worked point has no matching camp
	// nearby, place one on an adjacent free tile.
	events = append(events, c.placeCamps(ctx, pipe)...)

	// Keep the villager count climbing while food allows.
	villagers := 0
	for _, g := range ctx.State.GroupsOf(c.Player) {
		villagers += g.Count
	}
	if villagers < targetVillagers && p.Resources[world.ResourceFood] > minFoodReserve+world.VillagerTrainCost*villagerBatch {
		if th := c.townHall(ctx); th != nil {
			if ev, ok := c.dispatch(ctx, pipe, command.TrainVillagers{
				Base:       command.Base{Player: c.Player, Issued: ctx.Now()},
				BuildingID: th.ID,
				Count:      villagerBatch,
			}); ok {
				events = append(events, ev...)
			}
		}
	}
	return events
}

// pickResourcePoint chooses the nearest explored, workable point
// yielding the player's scarcest resource; falls back to any workable
// point when the scarce resource has none.
func (c *Controller) pickResourcePoint(ctx *sim.Context, p *world.Player, g *world.VillagerGroup) *world.ResourcePoint {
	scarcest := world.ResourceFood
	low := math.MaxInt
	for _, res := range world.AllResources {
		if p.Resources[res] < low {
			low = p.Resources[res]
			scarcest = res
		}
	}

	best := c.nearestPoint(ctx, p, g.Coord, &scarcest)
	if best == nil {
		best = c.nearestPoint(ctx, p, g.Coord, nil)
	}
	return best
}

// nearestPoint finds the closest workable point, optionally filtered
// by yielded resource. Unexplored points are invisible to the AI.
func (c *Controller) nearestPoint(ctx *sim.Context, p *world.Player, from hexmap.HexCoord, yields *world.ResourceType) *world.ResourcePoint {
	var best *world.ResourcePoint
	bestDist := math.MaxInt
	for _, rp := range ctx.State.ResourcePoints {
		if rp.Depleted() || !rp.HasCapacity() {
			continue
		}
		if yields != nil && rp.Type.Yields() != *yields {
			continue
		}
		if p.FogAt(rp.Coord) == world.VisibilityUnexplored {
			continue
		}
		if d := hexmap.Distance(from, rp.Coord); d < bestDist {
			bestDist = d
			best = rp
		}
	}
	return best
}

// placeCamps builds at most one camp per cycle, next to the worked
// point farthest from any existing camp of the right kind.
func (c *Controller) placeCamps(ctx *sim.Context, pipe *command.Pipeline) []sim.StateChange {
	p := ctx.State.Players[c.Player]
	for _, rp := range ctx.State.ResourcePoints {
		if len(rp.AssignedGroups) == 0 || rp.Depleted() {
			continue
		}
		worked := false
		for _, gid := range rp.AssignedGroups {
			if g := ctx.State.VillagerGroups[gid]; g != nil && g.Owner == c.Player {
				worked = true
				break
			}
		}
		if !worked {
			continue
		}
		campType, ok := campFor(rp.Type.Yields())
		if !ok || c.hasCampNear(ctx, campType, rp.Coord) {
			continue
		}
		if !p.CanAfford(world.BuildingStatsFor(campType).Cost) {
			continue
		}
		builder := c.idleGroupNear(ctx, rp.Coord)
		if builder == nil {
			continue
		}
		site, ok := c.freeTileNear(ctx, rp.Coord, campType)
		if !ok {
			continue
		}
		if ev, ok := c.dispatch(ctx, pipe, command.Build{
			Base:    command.Base{Player: c.Player, Issued: ctx.Now()},
			GroupID: builder.ID,
			Type:    campType,
			Origin:  site,
		}); ok {
			return ev
		}
	}
	return nil
}

func campFor(res world.ResourceType) (world.BuildingType, bool) {
	switch res {
	case world.ResourceFood:
		return world.BuildingFarm, true
	case world.ResourceWood:
		return world.BuildingLumberCamp, true
	case world.ResourceStone:
		return world.BuildingQuarry, true
	case world.ResourceGold:
		return world.BuildingGoldMine, true
	}
	return 0, false
}

func (c *Controller) hasCampNear(ctx *sim.Context, typ world.BuildingType, coord hexmap.HexCoord) bool {
	for _, b := range ctx.State.BuildingsOf(c.Player) {
		if b.Type == typ && b.State != world.BuildingDestroyed && hexmap.Distance(b.Origin, coord) <= campSearchRange {
			return true
		}
	}
	return false
}

func (c *Controller) idleGroupNear(ctx *sim.Context, coord hexmap.HexCoord) *world.VillagerGroup {
	var best *world.VillagerGroup
	bestDist := math.MaxInt
	for _, g := range ctx.State.GroupsOf(c.Player) {
		if g.Task != world.TaskIdle {
			continue
		}
		if d := hexmap.Distance(g.Coord, coord); d < bestDist {
			bestDist = d
			best = g
		}
	}
	return best
}

// freeTileNear spirals out from a coordinate looking for a tile set
// where the footprint fits.
func (c *Controller) freeTileNear(ctx *sim.Context, center hexmap.HexCoord, typ world.BuildingType) (hexmap.HexCoord, bool) {
	for _, cand := range center.Spiral(campSearchRange) {
		if c.footprintFits(ctx, typ, cand) {
			return cand, true
		}
	}
	return hexmap.HexCoord{}, false
}

func (c *Controller) footprintFits(ctx *sim.Context, typ world.BuildingType, origin hexmap.HexCoord) bool {
	for _, coord := range world.FootprintAt(typ, origin, 0) {
		tile := ctx.State.Map.Get(coord)
		if tile == nil || !tile.Terrain.Walkable() {
			return false
		}
		if ctx.State.BuildingAt(coord) != nil || ctx.State.MobileEntitiesAt(coord) > 0 {
			return false
		}
	}
	return true
}

func (c *Controller) townHall(ctx *sim.Context) *world.Building {
	for _, b := range ctx.State.BuildingsOf(c.Player) {
		if b.Type == world.BuildingTownHall && b.State == world.BuildingOperational {
			return b
		}
	}
	return nil
}
