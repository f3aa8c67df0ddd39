package ai

import (
	"testing"

	"github.com/talgya/hexfront/internal/combat"
	"github.com/talgya/hexfront/internal/command"
	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

func aiWorld() (*sim.Context, *command.Pipeline) {
	m := hexmap.NewMap(24, 24)
	for q := 0; q < 24; q++ {
		for r := 0; r < 24; r++ {
			m.Set(&hexmap.Tile{Coord: hexmap.HexCoord{Q: q, R: r}, Terrain: hexmap.TerrainGrass})
		}
	}
	st := world.NewState(m)
	st.AddPlayer(world.NewPlayer(1, "Warlord", true))
	st.AddPlayer(world.NewPlayer(2, "Human", false))
	return sim.NewContext(st, 9), command.NewPipeline(combat.NewEngine())
}

func TestDue(t *testing.T) {
	if !Due(0, 0, 100) {
		t.Fatal("a planner that never ran is always due")
	}
	if Due(50, 100, 100) {
		t.Fatal("50 ticks into a 100-tick cooldown is not due")
	}
	if !Due(50, 150, 100) {
		t.Fatal("a full cooldown later the planner is due")
	}
	if !Due(50, 151, 100) {
		t.Fatal("past the cooldown the planner stays due")
	}
}

func TestDefaultDoctrineCompiles(t *testing.T) {
	rules, err := CompileRules(DefaultDoctrine())
	if err != nil {
		t.Fatalf("default doctrine must compile: %v", err)
	}
	if len(rules) == 0 {
		t.Fatal("doctrine should have rules")
	}
	for i := 1; i < len(rules); i++ {
		if rules[i].Priority > rules[i-1].Priority {
			t.Fatalf("rules must sort by priority descending: %d after %d", rules[i].Priority, rules[i-1].Priority)
		}
	}
}

func TestBrokenRuleFailsWholeDoctrine(t *testing.T) {
	bad := []*Rule{{
		Name:         "broken",
		Priority:     1,
		Category:     "x",
		ConditionSrc: `NoSuchFunction() >`,
		Action:       "noop",
	}}
	if _, err := CompileRules(bad); err == nil {
		t.Fatal("an uncompilable rule must fail the set")
	}
}

func TestPeacefulPostureWithNoVisibleEnemies(t *testing.T) {
	ctx, pipe := aiWorld()
	ctrl, err := NewDefaultController(1)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	g := world.NewVillagerGroup(world.GroupID(ctx.State.NextID()), 1, hexmap.HexCoord{Q: 5, R: 5}, 5)
	ctx.State.AddVillagerGroup(g)

	// Start alerted so the doctrine has to actively stand down.
	ctrl.Posture = PostureAlerted
	ctrl.Step(ctx, pipe)
	if ctrl.Posture != PosturePeaceful {
		t.Fatalf("no visible enemies means peace, got %s", PostureName(ctrl.Posture))
	}
}

func TestVisibleEnemyRaisesPosture(t *testing.T) {
	ctx, pipe := aiWorld()
	ctrl, err := NewDefaultController(1)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	// Own forces, and a visible enemy of similar weight.
	own := world.NewArmy(world.ArmyID(ctx.State.NextID()), 1, hexmap.HexCoord{Q: 5, R: 5})
	own.AddUnits(map[world.UnitType]int{world.UnitSwordsman: 10})
	ctx.State.AddArmy(own)

	enemy := world.NewArmy(world.ArmyID(ctx.State.NextID()), 2, hexmap.HexCoord{Q: 7, R: 5})
	enemy.AddUnits(map[world.UnitType]int{world.UnitSwordsman: 15})
	ctx.State.AddArmy(enemy)

	// The AI has to actually see them.
	p := ctx.State.Players[1]
	p.Fog[enemy.Coord] = world.VisibilityVisible

	ctrl.Step(ctx, pipe)
	if ctrl.Posture == PosturePeaceful {
		t.Fatal("a visible enemy force must raise the posture above peace")
	}
}

func TestOverwhelmingThreatTriggersRetreatPosture(t *testing.T) {
	ctx, pipe := aiWorld()
	ctrl, err := NewDefaultController(1)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	own := world.NewArmy(world.ArmyID(ctx.State.NextID()), 1, hexmap.HexCoord{Q: 5, R: 5})
	own.AddUnits(map[world.UnitType]int{world.UnitSwordsman: 2})
	ctx.State.AddArmy(own)

	enemy := world.NewArmy(world.ArmyID(ctx.State.NextID()), 2, hexmap.HexCoord{Q: 7, R: 5})
	enemy.AddUnits(map[world.UnitType]int{world.UnitKnight: 30})
	ctx.State.AddArmy(enemy)
	ctx.State.Players[1].Fog[enemy.Coord] = world.VisibilityVisible

	ctrl.Step(ctx, pipe)
	if ctrl.Posture != PostureRetreating {
		t.Fatalf("an overwhelming visible force means retreat, got %s", PostureName(ctrl.Posture))
	}
}

func TestPlannerCooldownsGateReruns(t *testing.T) {
	ctx, pipe := aiWorld()
	ctrl, err := NewDefaultController(1)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	// Idle villagers keep the economy planner eligible every cycle.
	g := world.NewVillagerGroup(world.GroupID(ctx.State.NextID()), 1, hexmap.HexCoord{Q: 5, R: 5}, 5)
	ctx.State.AddVillagerGroup(g)

	ctx.State.Tick = 10
	ctrl.Step(ctx, pipe)
	first := ctrl.lastRun[ActionPlanEconomy]
	if first != 10 {
		t.Fatalf("economy planner should run at tick 10, ran at %d", first)
	}

	ctx.State.Tick = 15 // within the cooldown window
	ctrl.Step(ctx, pipe)
	if ctrl.lastRun[ActionPlanEconomy] != 10 {
		t.Fatal("economy planner must not rerun inside its cooldown")
	}

	ctx.State.Tick = 10 + economyInterval
	ctrl.Step(ctx, pipe)
	if ctrl.lastRun[ActionPlanEconomy] != 10+economyInterval {
		t.Fatal("economy planner should rerun once the cooldown elapses")
	}
}

func TestEconomyPlannerSendsIdleVillagersToWork(t *testing.T) {
	ctx, pipe := aiWorld()
	ctrl, err := NewDefaultController(1)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}

	p := ctx.State.Players[1]
	g := world.NewVillagerGroup(world.GroupID(ctx.State.NextID()), 1, hexmap.HexCoord{Q: 5, R: 5}, 5)
	ctx.State.AddVillagerGroup(g)

	rp := &world.ResourcePoint{
		ID: world.PointID(ctx.State.NextID()), Type: world.PointForest,
		Coord: hexmap.HexCoord{Q: 5, R: 6}, Remaining: 500, Capacity: 2,
	}
	ctx.State.AddResourcePoint(rp)
	// The planner only considers points the player has explored.
	p.Fog[rp.Coord] = world.VisibilityExplored

	ctx.State.Tick = 1
	ctrl.Step(ctx, pipe)
	if g.Task == world.TaskIdle {
		t.Fatal("the economy planner should put idle villagers to work")
	}
}

func TestControllerIgnoresHumanPlayers(t *testing.T) {
	ctx, pipe := aiWorld()
	ctrl := NewController(2, nil) // player 2 is human
	if events := ctrl.Step(ctx, pipe); events != nil {
		t.Fatal("controllers must refuse to drive human players")
	}
}
