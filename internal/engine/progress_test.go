package engine

import (
	"testing"

	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

func newTestScheduler() *Scheduler {
	m := hexmap.NewMap(16, 16)
	for q := 0; q < 16; q++ {
		for r := 0; r < 16; r++ {
			m.Set(&hexmap.Tile{Coord: hexmap.HexCoord{Q: q, R: r}, Terrain: hexmap.TerrainGrass})
		}
	}
	st := world.NewState(m)
	st.AddPlayer(world.NewPlayer(1, "Settler", false))
	return NewScheduler(sim.NewContext(st, 5))
}

func workingGroup(s *Scheduler, coord hexmap.HexCoord, villagers, remaining int) (*world.VillagerGroup, *world.ResourcePoint) {
	st := s.Ctx.State
	rp := &world.ResourcePoint{
		ID: world.PointID(st.NextID()), Type: world.PointForest,
		Coord: coord, Remaining: remaining, Capacity: 2,
	}
	st.AddResourcePoint(rp)

	g := world.NewVillagerGroup(world.GroupID(st.NextID()), 1, coord, villagers)
	g.Task = world.TaskGathering
	g.TargetPointID = rp.ID
	g.LastGatherTick = st.Tick
	rp.Assign(g.ID)
	st.AddVillagerGroup(g)
	return g, rp
}

func TestGatheringCreditsElapsedTicks(t *testing.T) {
	s := newTestScheduler()
	s.Ctx.State.Tick = 10
	g, rp := workingGroup(s, hexmap.HexCoord{Q: 4, R: 4}, 5, 1000)

	s.Ctx.State.Tick = 30 // 20 ticks at 0.2 * 5 = 20 wood
	s.stepGathering()

	p := s.Ctx.State.Players[1]
	if p.Resources[world.ResourceWood] != 20 {
		t.Fatalf("expected 20 wood, got %d", p.Resources[world.ResourceWood])
	}
	if rp.Remaining != 980 {
		t.Fatalf("point should be drawn down to 980, got %d", rp.Remaining)
	}
	if g.LastGatherTick != 30 {
		t.Fatalf("crediting must consume the timestamp, got %d", g.LastGatherTick)
	}

	// Same tick again: nothing more to credit.
	s.stepGathering()
	if p.Resources[world.ResourceWood] != 20 {
		t.Fatalf("repeat step at the same tick must credit nothing, got %d", p.Resources[world.ResourceWood])
	}
}

func TestDepletionEmitsOnceAndIdlesGatherers(t *testing.T) {
	s := newTestScheduler()
	s.Ctx.State.Tick = 10
	g, rp := workingGroup(s, hexmap.HexCoord{Q: 4, R: 4}, 5, 10)

	s.Ctx.State.Tick = 110 // far more elapsed than the point holds
	events := s.stepGathering()

	depletions := 0
	for _, ev := range events {
		if ev.Kind == sim.ChangeResourcePointDepleted {
			depletions++
		}
	}
	if depletions != 1 {
		t.Fatalf("expected exactly one depletion event, got %d", depletions)
	}
	if s.Ctx.State.ResourcePoints[rp.ID] != nil {
		t.Fatal("a dry point must leave the registry")
	}
	if g.Task != world.TaskIdle {
		t.Fatalf("gatherers of a dry point go idle, got %v", world.TaskName(g.Task))
	}
	p := s.Ctx.State.Players[1]
	if p.Resources[world.ResourceWood] != 10 {
		t.Fatalf("crediting must stop at what the point held, got %d", p.Resources[world.ResourceWood])
	}

	// The event never repeats.
	s.Ctx.State.Tick = 120
	for _, ev := range s.stepGathering() {
		if ev.Kind == sim.ChangeResourcePointDepleted {
			t.Fatal("depletion fired twice")
		}
	}
}

func TestHuntingBringsDownTheHerd(t *testing.T) {
	s := newTestScheduler()
	st := s.Ctx.State

	rp := &world.ResourcePoint{
		ID: world.PointID(st.NextID()), Type: world.PointDeerHerd,
		Coord: hexmap.HexCoord{Q: 4, R: 4}, Remaining: 200, Capacity: 2, HP: 18,
	}
	st.AddResourcePoint(rp)
	g := world.NewVillagerGroup(world.GroupID(st.NextID()), 1, rp.Coord, 5)
	g.Task = world.TaskHunting
	g.TargetPointID = rp.ID
	rp.Assign(g.ID)
	st.AddVillagerGroup(g)

	st.Tick = 5
	s.stepGathering() // 5 hunters at 2 damage = 10; herd at 8
	if g.Task != world.TaskHunting || rp.HP != 8 {
		t.Fatalf("hunt should continue at HP 8, got task %v HP %d", g.Task, rp.HP)
	}
	st.Tick = 10
	s.stepGathering() // herd down, task flips
	if rp.HP != 0 {
		t.Fatalf("herd HP should clamp at 0, got %d", rp.HP)
	}
	if g.Task != world.TaskGathering {
		t.Fatalf("a downed herd is gathered, got %v", world.TaskName(g.Task))
	}
	if g.LastGatherTick != 10 {
		t.Fatal("gathering starts from the kill tick")
	}
}

func TestCampBonusRaisesRate(t *testing.T) {
	s := newTestScheduler()
	st := s.Ctx.State

	rp := &world.ResourcePoint{
		ID: world.PointID(st.NextID()), Type: world.PointForest,
		Coord: hexmap.HexCoord{Q: 4, R: 4}, Remaining: 1000, Capacity: 2,
	}
	st.AddResourcePoint(rp)
	g := world.NewVillagerGroup(world.GroupID(st.NextID()), 1, rp.Coord, 5)
	st.AddVillagerGroup(g)

	base := GatherRate(s.Ctx, g, rp)

	camp := world.NewBuilding(world.BuildingID(st.NextID()), 1, world.BuildingLumberCamp, hexmap.HexCoord{Q: 5, R: 4}, 0, 0)
	camp.State = world.BuildingOperational
	st.AddBuilding(camp)

	boosted := GatherRate(s.Ctx, g, rp)
	if boosted <= base {
		t.Fatalf("a lumber camp near the forest should raise the rate: %f vs %f", base, boosted)
	}

	// The wrong camp type does nothing.
	camp.Type = world.BuildingQuarry
	if got := GatherRate(s.Ctx, g, rp); got != base {
		t.Fatalf("a quarry must not boost wood, got %f", got)
	}
}

func TestConstructionCompletes(t *testing.T) {
	s := newTestScheduler()
	st := s.Ctx.State

	b := world.NewBuilding(world.BuildingID(st.NextID()), 1, world.BuildingHouse, hexmap.HexCoord{Q: 5, R: 5}, 0, 0)
	st.AddBuilding(b)
	g := world.NewVillagerGroup(world.GroupID(st.NextID()), 1, hexmap.HexCoord{Q: 5, R: 4}, 3)
	g.Task = world.TaskBuilding
	g.TargetBuilding = b.ID
	st.AddVillagerGroup(g)

	buildTime := world.BuildingStatsFor(world.BuildingHouse).BuildTime
	st.Tick = buildTime - 1
	if events := s.stepConstruction(); len(events) != 0 {
		t.Fatal("construction must not finish early")
	}
	st.Tick = buildTime
	events := s.stepConstruction()
	if len(events) != 1 || events[0].Kind != sim.ChangeBuildingCompleted {
		t.Fatalf("expected one completion event, got %v", events)
	}
	if b.State != world.BuildingOperational || b.HP != b.MaxHP {
		t.Fatalf("finished building should be operational at full HP, got %v %d/%d", b.State, b.HP, b.MaxHP)
	}
	if g.Task != world.TaskIdle {
		t.Fatal("builders go idle when the site finishes")
	}
}

func TestTrainingDeliversToGarrison(t *testing.T) {
	s := newTestScheduler()
	st := s.Ctx.State

	b := world.NewBuilding(world.BuildingID(st.NextID()), 1, world.BuildingBarracks, hexmap.HexCoord{Q: 5, R: 5}, 0, 0)
	b.State = world.BuildingOperational
	b.Training = append(b.Training, world.TrainingOrder{
		Unit: world.UnitArcher, Count: 3, StartTick: 0,
		TimeEach: world.UnitStatsFor(world.UnitArcher).TrainTime,
	})
	st.AddBuilding(b)

	st.Tick = world.UnitStatsFor(world.UnitArcher).TrainTime*3 - 1
	if events := s.stepTraining(); len(events) != 0 {
		t.Fatal("order must not finish early")
	}
	st.Tick++
	events := s.stepTraining()
	if len(events) != 1 || events[0].Kind != sim.ChangeTrainingCompleted {
		t.Fatalf("expected one training event, got %v", events)
	}
	if b.Garrison.Units[world.UnitArcher] != 3 {
		t.Fatalf("archers should join the garrison, got %d", b.Garrison.Units[world.UnitArcher])
	}
	if len(b.Training) != 0 {
		t.Fatal("completed orders leave the queue")
	}
}

func TestVillagerTrainingStandsUpAGroup(t *testing.T) {
	s := newTestScheduler()
	st := s.Ctx.State

	b := world.NewBuilding(world.BuildingID(st.NextID()), 1, world.BuildingTownHall, hexmap.HexCoord{Q: 5, R: 5}, 0, 0)
	b.State = world.BuildingOperational
	b.Training = append(b.Training, world.TrainingOrder{
		Villagers: true, Count: 4, StartTick: 0, TimeEach: world.VillagerTrainTime,
	})
	st.AddBuilding(b)

	st.Tick = world.VillagerTrainTime * 4
	events := s.stepTraining()
	if len(events) != 1 || events[0].Kind != sim.ChangeVillagerTrainingDone {
		t.Fatalf("expected one villager event, got %v", events)
	}
	total := 0
	for _, g := range st.VillagerGroups {
		total += g.Count
	}
	if total != 4 {
		t.Fatalf("expected 4 villagers delivered, got %d", total)
	}
}

func TestResearchCompletes(t *testing.T) {
	s := newTestScheduler()
	p := s.Ctx.State.Players[1]
	p.ActiveResearch = world.ResearchForestry
	p.ResearchStartTick = 100

	stats, _ := world.ResearchStatsFor(world.ResearchForestry)
	s.Ctx.State.Tick = 100 + stats.Time - 1
	if events := s.stepResearch(); len(events) != 0 {
		t.Fatal("research must not finish early")
	}
	s.Ctx.State.Tick++
	events := s.stepResearch()
	if len(events) != 1 || events[0].Kind != sim.ChangeResearchCompleted {
		t.Fatalf("expected one research event, got %v", events)
	}
	if !p.HasCompleted(world.ResearchForestry) {
		t.Fatal("forestry should be completed")
	}
	if p.ActiveResearch != "" {
		t.Fatal("the active slot must clear")
	}
}

func TestVictoriousArmiesReturnToIdle(t *testing.T) {
	s := newTestScheduler()
	st := s.Ctx.State

	a := world.NewArmy(world.ArmyID(st.NextID()), 1, hexmap.HexCoord{Q: 3, R: 3})
	a.AddUnits(map[world.UnitType]int{world.UnitSwordsman: 5})
	a.State = world.ArmyVictorious
	st.AddArmy(a)

	s.upkeepArmies()
	if a.State != world.ArmyIdle {
		t.Fatalf("victors stand down next tick, got %v", world.ArmyStateName(a.State))
	}
}

func TestRetreatersDemobilizeAtHome(t *testing.T) {
	s := newTestScheduler()
	st := s.Ctx.State

	home := world.NewBuilding(world.BuildingID(st.NextID()), 1, world.BuildingTownHall, hexmap.HexCoord{Q: 5, R: 5}, 0, 0)
	home.State = world.BuildingOperational
	st.AddBuilding(home)

	a := world.NewArmy(world.ArmyID(st.NextID()), 1, hexmap.HexCoord{Q: 5, R: 4}) // adjacent to home
	a.AddUnits(map[world.UnitType]int{world.UnitSwordsman: 2})
	a.State = world.ArmyRetreating
	a.HomeBaseID = home.ID
	st.AddArmy(a)

	s.upkeepArmies()
	if a.State != world.ArmyIdle {
		t.Fatalf("a retreater at its gate demobilizes, got %v", world.ArmyStateName(a.State))
	}
}

func TestRetreatersPathHome(t *testing.T) {
	s := newTestScheduler()
	st := s.Ctx.State

	home := world.NewBuilding(world.BuildingID(st.NextID()), 1, world.BuildingTownHall, hexmap.HexCoord{Q: 10, R: 10}, 0, 0)
	home.State = world.BuildingOperational
	st.AddBuilding(home)

	a := world.NewArmy(world.ArmyID(st.NextID()), 1, hexmap.HexCoord{Q: 2, R: 2})
	a.AddUnits(map[world.UnitType]int{world.UnitSwordsman: 2})
	a.State = world.ArmyRetreating
	a.HomeBaseID = home.ID
	st.AddArmy(a)

	s.upkeepArmies()
	if a.State != world.ArmyRetreating {
		t.Fatalf("a distant retreater keeps retreating, got %v", world.ArmyStateName(a.State))
	}
	if !a.Moving() {
		t.Fatal("the retreater should be given a path home")
	}
}

func TestGameTime(t *testing.T) {
	if got := GameTime(0); got != "Day 1, 0:00" {
		t.Fatalf("tick 0: %q", got)
	}
	if got := GameTime(61); got != "Day 1, 1:01" {
		t.Fatalf("tick 61: %q", got)
	}
	if got := GameTime(60 * 24); got != "Day 2, 0:00" {
		t.Fatalf("tick 1440: %q", got)
	}
}
