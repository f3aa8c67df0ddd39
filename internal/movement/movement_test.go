package movement

import (
	"testing"

	"github.com/talgya/hexfront/internal/combat"
	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

func moverWorld() (*sim.Context, *Mover) {
	m := hexmap.NewMap(16, 16)
	for q := 0; q < 16; q++ {
		for r := 0; r < 16; r++ {
			m.Set(&hexmap.Tile{Coord: hexmap.HexCoord{Q: q, R: r}, Terrain: hexmap.TerrainGrass})
		}
	}
	st := world.NewState(m)
	st.AddPlayer(world.NewPlayer(1, "Mover", false))
	st.AddPlayer(world.NewPlayer(2, "Rival", false))
	ctx := sim.NewContext(st, 3)
	return ctx, NewMover(combat.NewEngine())
}

func marchingArmy(ctx *sim.Context, owner world.PlayerID, from hexmap.HexCoord, units map[world.UnitType]int) *world.Army {
	a := world.NewArmy(world.ArmyID(ctx.State.NextID()), owner, from)
	a.AddUnits(units)
	ctx.State.AddArmy(a)
	return a
}

func TestArmiesMarchAtTheirSlowestUnitsPace(t *testing.T) {
	ctx, mv := moverWorld()
	a := marchingArmy(ctx, 1, hexmap.HexCoord{Q: 2, R: 2}, map[world.UnitType]int{world.UnitSwordsman: 5})
	a.Path = FindPath(ctx, a.Coord, hexmap.HexCoord{Q: 8, R: 2}, 1)
	if a.Path == nil {
		t.Fatal("open ground must be pathable")
	}
	a.LastMoveTick = 0
	ctx.State.Tick = 1

	pace := ArmyTicksPerTile(ctx, a)
	if pace != uint64(world.UnitStatsFor(world.UnitSwordsman).Speed) {
		t.Fatalf("uniform army paces at its unit speed, got %d", pace)
	}

	// Too soon: the army stays put.
	a.LastMoveTick = ctx.State.Tick
	mv.AdvanceArmies(ctx)
	if a.Coord != (hexmap.HexCoord{Q: 2, R: 2}) {
		t.Fatal("army moved before its pace allowed")
	}

	// A full pace later it takes exactly one tile.
	ctx.State.Tick += pace
	before := len(a.Path)
	mv.AdvanceArmies(ctx)
	if len(a.Path) != before-1 {
		t.Fatalf("expected one tile consumed, path went %d -> %d", before, len(a.Path))
	}
	if a.LastMoveTick != ctx.State.Tick {
		t.Fatal("movement must stamp the tick it happened on")
	}
}

func TestHorsemanshipQuickensTheMarch(t *testing.T) {
	ctx, _ := moverWorld()
	a := marchingArmy(ctx, 1, hexmap.HexCoord{Q: 2, R: 2}, map[world.UnitType]int{world.UnitKnight: 3})
	base := ArmyTicksPerTile(ctx, a)

	ctx.State.Players[1].CompletedResearch[world.ResearchHorsemanship] = true
	if got := ArmyTicksPerTile(ctx, a); got != base-1 {
		t.Fatalf("horsemanship shaves one tick per tile: %d -> %d", base, got)
	}
}

func TestHostileOnNextTileInterceptsTheMarch(t *testing.T) {
	ctx, mv := moverWorld()
	a := marchingArmy(ctx, 1, hexmap.HexCoord{Q: 2, R: 2}, map[world.UnitType]int{world.UnitSwordsman: 10})
	a.Path = []hexmap.HexCoord{{Q: 3, R: 2}, {Q: 4, R: 2}}

	enemy := marchingArmy(ctx, 2, hexmap.HexCoord{Q: 3, R: 2}, map[world.UnitType]int{world.UnitSwordsman: 10})
	ctx.State.Players[1].Relations[2] = world.RelationEnemy
	ctx.State.Players[2].Relations[1] = world.RelationEnemy

	ctx.State.Tick = 100
	a.LastMoveTick = 0
	events := mv.AdvanceArmies(ctx)

	if a.Coord != (hexmap.HexCoord{Q: 2, R: 2}) {
		t.Fatal("interception halts before the contested tile is entered")
	}
	if a.Moving() {
		t.Fatal("interception clears the path")
	}
	if a.State != world.ArmyInCombat || enemy.State != world.ArmyInCombat {
		t.Fatal("both armies should be locked in combat")
	}
	found := false
	for _, ev := range events {
		if ev.Kind == sim.ChangeCombatStarted {
			found = true
		}
	}
	if !found {
		t.Fatal("interception must raise a combat-started event")
	}
}

func TestArrivedGroupsTakeUpTheirTask(t *testing.T) {
	ctx, mv := moverWorld()

	g := world.NewVillagerGroup(world.GroupID(ctx.State.NextID()), 1, hexmap.HexCoord{Q: 2, R: 2}, 4)
	g.Task = world.TaskMoving
	g.Path = []hexmap.HexCoord{{Q: 3, R: 2}}
	ctx.State.AddVillagerGroup(g)

	rp := &world.ResourcePoint{
		ID: world.PointID(ctx.State.NextID()), Type: world.PointForest,
		Coord: hexmap.HexCoord{Q: 3, R: 3}, Remaining: 100, Capacity: 3,
	}
	ctx.State.AddResourcePoint(rp)
	g.TargetPointID = rp.ID

	g.LastMoveTick = 0
	ctx.State.Tick = 50
	mv.AdvanceGroups(ctx)

	if g.Coord != (hexmap.HexCoord{Q: 3, R: 2}) {
		t.Fatalf("group should have arrived, is at %v", g.Coord)
	}
	if g.Task != world.TaskGathering {
		t.Fatalf("arrival at a worked point means gathering, got task %d", g.Task)
	}
	if g.LastGatherTick != 50 {
		t.Fatalf("arrival must start the gather clock, got %d", g.LastGatherTick)
	}
	found := false
	for _, gid := range rp.AssignedGroups {
		if gid == g.ID {
			found = true
		}
	}
	if !found {
		t.Fatal("arrival assigns the group to the point")
	}
}

func TestArrivalAtDepletedPointIdlesTheGroup(t *testing.T) {
	ctx, mv := moverWorld()

	g := world.NewVillagerGroup(world.GroupID(ctx.State.NextID()), 1, hexmap.HexCoord{Q: 2, R: 2}, 4)
	g.Task = world.TaskMoving
	g.Path = []hexmap.HexCoord{{Q: 3, R: 2}}
	g.TargetPointID = world.PointID(9999) // Point vanished mid-march
	ctx.State.AddVillagerGroup(g)

	g.LastMoveTick = 0
	ctx.State.Tick = 50
	mv.AdvanceGroups(ctx)

	if g.Task != world.TaskIdle {
		t.Fatalf("a vanished target leaves the group idle, got task %d", g.Task)
	}
}

func TestReinforcementsMergeOnArrival(t *testing.T) {
	ctx, mv := moverWorld()
	target := marchingArmy(ctx, 1, hexmap.HexCoord{Q: 6, R: 6}, map[world.UnitType]int{world.UnitSwordsman: 5})
	ctx.State.AddReinforcement(&world.Reinforcement{
		TargetID: target.ID,
		Units:    map[world.UnitType]int{world.UnitArcher: 4},
		Coord:    hexmap.HexCoord{Q: 5, R: 6},
		Path:     []hexmap.HexCoord{{Q: 6, R: 6}},
	})

	events := mv.AdvanceReinforcements(ctx)

	if target.Composition[world.UnitArcher] != 4 {
		t.Fatalf("archers should have merged, composition %v", target.Composition)
	}
	if len(ctx.State.Reinforcements) != 0 {
		t.Fatal("arrived reinforcements leave the registry")
	}
	found := false
	for _, ev := range events {
		if ev.Kind == sim.ChangeReinforcementsArrived {
			found = true
		}
	}
	if !found {
		t.Fatal("arrival must raise a reinforcements-arrived event")
	}
}

func TestInterceptedReinforcementsStandUpAndFight(t *testing.T) {
	ctx, mv := moverWorld()
	ctx.State.Players[1].Relations[2] = world.RelationEnemy
	ctx.State.Players[2].Relations[1] = world.RelationEnemy

	target := marchingArmy(ctx, 1, hexmap.HexCoord{Q: 10, R: 10}, map[world.UnitType]int{world.UnitSwordsman: 5})
	enemy := marchingArmy(ctx, 2, hexmap.HexCoord{Q: 6, R: 6}, map[world.UnitType]int{world.UnitSwordsman: 8})

	ctx.State.AddReinforcement(&world.Reinforcement{
		TargetID: target.ID,
		Units:    map[world.UnitType]int{world.UnitSwordsman: 6},
		Coord:    hexmap.HexCoord{Q: 5, R: 6},
		Path:     []hexmap.HexCoord{{Q: 6, R: 6}, {Q: 7, R: 7}},
	})

	armiesBefore := len(ctx.State.Armies)
	mv.AdvanceReinforcements(ctx)

	if len(ctx.State.Reinforcements) != 0 {
		t.Fatal("an intercepted column leaves the registry")
	}
	if target.Composition[world.UnitSwordsman] != 5 {
		t.Fatal("intercepted units never merge into the target")
	}
	if len(ctx.State.Armies) != armiesBefore+1 {
		t.Fatal("interception stands the column up as its own army")
	}
	if enemy.State != world.ArmyInCombat {
		t.Fatal("the interceptor should be fighting the detachment")
	}
}

func TestOrphanedReinforcementsReturnToSource(t *testing.T) {
	ctx, mv := moverWorld()
	ctx.State.Players[1].Relations[2] = world.RelationEnemy
	ctx.State.Players[2].Relations[1] = world.RelationEnemy

	src := world.NewBuilding(world.BuildingID(ctx.State.NextID()), 1, world.BuildingBarracks, hexmap.HexCoord{Q: 2, R: 8}, 0, 0)
	src.State = world.BuildingOperational
	ctx.State.AddBuilding(src)

	// A thin target with no home base to fall back to, and an
	// overwhelming enemy next to it.
	target := marchingArmy(ctx, 1, hexmap.HexCoord{Q: 10, R: 10}, map[world.UnitType]int{world.UnitSwordsman: 2})
	enemy := marchingArmy(ctx, 2, hexmap.HexCoord{Q: 10, R: 11}, map[world.UnitType]int{world.UnitKnight: 30})

	ctx.State.AddReinforcement(&world.Reinforcement{
		TargetID: target.ID,
		Units:    map[world.UnitType]int{world.UnitMaceman: 3},
		SourceID: src.ID,
		Coord:    hexmap.HexCoord{Q: 5, R: 6},
		Path:     []hexmap.HexCoord{{Q: 6, R: 6}},
	})

	if _, ok := mv.Combat.Start(ctx, enemy.ID, world.ArmyRef(target.ID), combat.StartOptions{}); !ok {
		t.Fatal("engagement should start")
	}
	for i := 0; i < 50 && ctx.State.Armies[target.ID] != nil; i++ {
		ctx.State.Tick++
		mv.Combat.StepAll(ctx)
	}
	if ctx.State.Armies[target.ID] != nil {
		t.Fatal("the target should have been wiped out")
	}

	mv.AdvanceReinforcements(ctx)

	if src.Garrison.Units[world.UnitMaceman] != 3 {
		t.Fatalf("units should return to the source garrison, have %d", src.Garrison.Units[world.UnitMaceman])
	}
	if len(ctx.State.Reinforcements) != 0 {
		t.Fatal("a returned column leaves the registry")
	}
}
