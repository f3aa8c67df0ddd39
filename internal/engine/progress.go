package engine

import (
	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// Gathering numbers. A villager pulls baseGatherRate per tick from the
// point it works; forestry and irrigation raise their resource by a
// quarter, as does a matching camp within campBonusRange.
const (
	baseGatherRate  = 0.2
	gatherTechBonus = 0.25
	campBonus       = 0.25
	campBonusRange  = 2
	huntDamage      = 2 // Per villager per economy step
)

// GatherRate returns one group's per-tick yield at a point.
func GatherRate(ctx *sim.Context, g *world.VillagerGroup, rp *world.ResourcePoint) float64 {
	p := ctx.State.Players[g.Owner]
	if p == nil {
		return 0
	}
	rate := baseGatherRate * float64(g.Count)
	res := rp.Type.Yields()
	switch {
	case res == world.ResourceWood && p.HasCompleted(world.ResearchForestry):
		rate *= 1 + gatherTechBonus
	case res == world.ResourceFood && p.HasCompleted(world.ResearchIrrigation):
		rate *= 1 + gatherTechBonus
	}
	if campNear(ctx, g.Owner, res, rp.Coord) {
		rate *= 1 + campBonus
	}
	return rate
}

func campNear(ctx *sim.Context, owner world.PlayerID, res world.ResourceType, coord hexmap.HexCoord) bool {
	for _, b := range ctx.State.BuildingsOf(owner) {
		stats := world.BuildingStatsFor(b.Type)
		if !stats.GatherCamp || stats.Gathers != res {
			continue
		}
		if b.State != world.BuildingOperational {
			continue
		}
		if hexmap.Distance(b.Origin, coord) <= campBonusRange {
			return true
		}
	}
	return false
}

// stepGathering credits every working group for the ticks since it was
// last credited and advances hunts. Crediting is keyed off each group's
// LastGatherTick, so the same code settles regular steps and offline
// catch-up, and a repeat call at the same tick credits nothing. A point
// that runs dry emits resourcePointDepleted exactly once — the point is
// removed, which idles its gatherers.
func (s *Scheduler) stepGathering() []sim.StateChange {
	var events []sim.StateChange
	ctx := s.Ctx
	var depleted []world.PointID

	for _, g := range ctx.State.VillagerGroups {
		switch g.Task {
		case world.TaskGathering:
			rp := ctx.State.ResourcePoints[g.TargetPointID]
			if rp == nil || rp.Depleted() {
				g.ClearTask()
				continue
			}
			elapsed := ctx.Now() - g.LastGatherTick
			if g.LastGatherTick == 0 || elapsed == 0 {
				g.LastGatherTick = ctx.Now()
				continue
			}
			p := ctx.State.Players[g.Owner]
			amount := GatherRate(ctx, g, rp) * float64(elapsed)
			if float64(rp.Remaining) < amount {
				amount = float64(rp.Remaining)
			}
			credited := p.Accrue(rp.Type.Yields(), amount)
			rp.Remaining -= credited
			g.LastGatherTick = ctx.Now()
			if rp.Depleted() {
				ev := sim.NewChange(ctx, sim.ChangeResourcePointDepleted, 0)
				ev.Coord = rp.Coord
				ev.Entity = world.PointRef(rp.ID)
				events = append(events, ev)
				depleted = append(depleted, rp.ID)
			}
		case world.TaskHunting:
			rp := ctx.State.ResourcePoints[g.TargetPointID]
			if rp == nil || rp.Depleted() {
				g.ClearTask()
				continue
			}
			rp.HP -= huntDamage * g.Count
			if rp.HP <= 0 {
				rp.HP = 0
				g.Task = world.TaskGathering
				g.LastGatherTick = ctx.Now()
			}
		}
	}
	// Removal clears every assigned group's task in one place.
	for _, id := range depleted {
		ctx.State.RemoveResourcePoint(id)
	}
	s.refreshRates()
	return events
}

// refreshRates recomputes each player's advertised per-tick collection
// rates from their working groups.
func (s *Scheduler) refreshRates() {
	for _, p := range s.Ctx.State.Players {
		for _, res := range world.AllResources {
			p.Rates[res] = 0
		}
	}
	for _, g := range s.Ctx.State.VillagerGroups {
		if g.Task != world.TaskGathering {
			continue
		}
		rp := s.Ctx.State.ResourcePoints[g.TargetPointID]
		if rp == nil {
			continue
		}
		if p := s.Ctx.State.Players[g.Owner]; p != nil {
			p.Rates[rp.Type.Yields()] += GatherRate(s.Ctx, g, rp)
		}
	}
}

// stepConstruction settles building lifecycle transitions whose time
// has elapsed: construction, upgrades, demolition.
func (s *Scheduler) stepConstruction() []sim.StateChange {
	var events []sim.StateChange
	ctx := s.Ctx
	var demolished []world.BuildingID

	for _, b := range ctx.State.Buildings {
		stats := world.BuildingStatsFor(b.Type)
		switch b.State {
		case world.BuildingUnderConstruction:
			if ctx.Now() < b.ConstructionStart+stats.BuildTime {
				continue
			}
			b.State = world.BuildingOperational
			b.HP = b.MaxHP
			idleWorkers(ctx, b.ID, world.TaskBuilding)
			ev := sim.NewChange(ctx, sim.ChangeBuildingCompleted, b.Owner)
			ev.Coord = b.Origin
			ev.Entity = world.BuildingRef(b.ID)
			ev.Detail = world.BuildingName(b.Type)
			events = append(events, ev)
		case world.BuildingUpgrading:
			if ctx.Now() < b.UpgradeStart+stats.UpgradeTime {
				continue
			}
			b.Level++
			b.State = world.BuildingOperational
			b.UpgradeStart = 0
			// Levels harden the shell.
			b.MaxHP = stats.MaxHP + stats.MaxHP*(b.Level-1)/2
			b.HP = b.MaxHP
			idleWorkers(ctx, b.ID, world.TaskUpgrading)
			ev := sim.NewChange(ctx, sim.ChangeBuildingUpgradeCompleted, b.Owner)
			ev.Coord = b.Origin
			ev.Entity = world.BuildingRef(b.ID)
			ev.Detail = world.BuildingName(b.Type)
			events = append(events, ev)
		case world.BuildingDemolishing:
			if ctx.Now() < b.DemolitionStart+stats.BuildTime/2 {
				continue
			}
			idleWorkers(ctx, b.ID, world.TaskDemolishing)
			ev := sim.NewChange(ctx, sim.ChangeBuildingDemolished, b.Owner)
			ev.Coord = b.Origin
			ev.Entity = world.BuildingRef(b.ID)
			ev.Detail = world.BuildingName(b.Type)
			events = append(events, ev)
			demolished = append(demolished, b.ID)
		}
	}
	for _, id := range demolished {
		ctx.State.RemoveBuilding(id)
	}
	return events
}

// idleWorkers releases villager groups tasked on a finished building.
func idleWorkers(ctx *sim.Context, id world.BuildingID, task world.VillagerTask) {
	for _, g := range ctx.State.VillagerGroups {
		if g.TargetBuilding == id && g.Task == task {
			g.ClearTask()
		}
	}
}

// stepTraining completes finished training orders, crediting units to
// the building garrison and villagers to a group at the gate.
func (s *Scheduler) stepTraining() []sim.StateChange {
	var events []sim.StateChange
	ctx := s.Ctx
	for _, b := range ctx.State.Buildings {
		if len(b.Training) == 0 || b.State == world.BuildingDestroyed {
			continue
		}
		remaining := b.Training[:0]
		for _, order := range b.Training {
			if !order.Done(ctx.Now()) {
				remaining = append(remaining, order)
				continue
			}
			if order.Villagers {
				events = append(events, deliverVillagers(ctx, b, order))
			} else {
				b.Garrison.Units[order.Unit] += order.Count
				ev := sim.NewChange(ctx, sim.ChangeTrainingCompleted, b.Owner)
				ev.Coord = b.Origin
				ev.Entity = world.BuildingRef(b.ID)
				ev.Units = map[world.UnitType]int{order.Unit: order.Count}
				events = append(events, ev)
			}
		}
		b.Training = remaining
	}
	return events
}

// deliverVillagers stands a fresh group up next to the building, or
// tops up an idle group already there.
func deliverVillagers(ctx *sim.Context, b *world.Building, order world.TrainingOrder) sim.StateChange {
	ev := sim.NewChange(ctx, sim.ChangeVillagerTrainingDone, b.Owner)
	ev.Coord = b.Origin
	ev.Entity = world.BuildingRef(b.ID)
	ev.Detail = "villagers"

	for _, g := range ctx.State.GroupsOf(b.Owner) {
		if g.Task == world.TaskIdle && b.AdjacentTo(g.Coord) {
			g.Count += order.Count
			return ev
		}
	}
	at := b.Origin
	for _, c := range b.Occupied {
		for _, n := range c.Neighbors() {
			if ctx.State.Walkable(n, b.Owner) {
				at = n
				break
			}
		}
	}
	g := world.NewVillagerGroup(world.GroupID(ctx.State.NextID()), b.Owner, at, order.Count)
	ctx.State.AddVillagerGroup(g)
	return ev
}

// stepResearch completes each player's active project once its time
// has elapsed.
func (s *Scheduler) stepResearch() []sim.StateChange {
	var events []sim.StateChange
	ctx := s.Ctx
	for _, p := range ctx.State.Players {
		if p.ActiveResearch == "" {
			continue
		}
		stats, ok := world.ResearchStatsFor(p.ActiveResearch)
		if !ok {
			p.ActiveResearch = ""
			continue
		}
		if ctx.Now() < p.ResearchStartTick+stats.Time {
			continue
		}
		p.CompletedResearch[p.ActiveResearch] = true
		ev := sim.NewChange(ctx, sim.ChangeResearchCompleted, p.ID)
		ev.Research = p.ActiveResearch
		events = append(events, ev)
		p.ActiveResearch = ""
		p.ResearchStartTick = 0
	}
	return events
}
