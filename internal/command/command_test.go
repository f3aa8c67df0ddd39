package command

import (
	"testing"

	"github.com/talgya/hexfront/internal/combat"
	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

func testContext() (*sim.Context, *Pipeline) {
	m := hexmap.NewMap(16, 16)
	for q := 0; q < 16; q++ {
		for r := 0; r < 16; r++ {
			m.Set(&hexmap.Tile{Coord: hexmap.HexCoord{Q: q, R: r}, Terrain: hexmap.TerrainGrass})
		}
	}
	st := world.NewState(m)
	st.AddPlayer(world.NewPlayer(1, "Commander", false))
	st.AddPlayer(world.NewPlayer(2, "Rival", true))
	return sim.NewContext(st, 11), NewPipeline(combat.NewEngine())
}

func giveResources(ctx *sim.Context, id world.PlayerID, amount int) {
	p := ctx.State.Players[id]
	for _, r := range world.AllResources {
		p.Resources[r] = amount
	}
}

func addGroup(ctx *sim.Context, owner world.PlayerID, coord hexmap.HexCoord, n int) *world.VillagerGroup {
	g := world.NewVillagerGroup(world.GroupID(ctx.State.NextID()), owner, coord, n)
	ctx.State.AddVillagerGroup(g)
	return g
}

func snapshotResources(p *world.Player) map[world.ResourceType]int {
	out := make(map[world.ResourceType]int, len(p.Resources))
	for r, n := range p.Resources {
		out[r] = n
	}
	return out
}

func TestExecuteMatchesValidateOnFailure(t *testing.T) {
	ctx, pipe := testContext()
	giveResources(ctx, 1, 10) // far too poor for a town hall
	g := addGroup(ctx, 1, hexmap.HexCoord{Q: 3, R: 3}, 5)

	cmd := Build{Base: Base{Player: 1}, GroupID: g.ID, Type: world.BuildingTownHall, Origin: hexmap.HexCoord{Q: 5, R: 5}}

	vOutcome := cmd.Validate(ctx)
	if vOutcome.Succeeded {
		t.Fatal("validation should fail on cost")
	}

	before := snapshotResources(ctx.State.Players[1])
	eOutcome, events := pipe.Dispatch(ctx, cmd)
	if eOutcome.Succeeded {
		t.Fatal("execute must fail exactly like validate")
	}
	if eOutcome.FailureReason != vOutcome.FailureReason {
		t.Fatalf("execute reason %q differs from validate reason %q", eOutcome.FailureReason, vOutcome.FailureReason)
	}
	if len(events) != 0 {
		t.Fatal("failed commands must emit no events")
	}
	for r, n := range snapshotResources(ctx.State.Players[1]) {
		if before[r] != n {
			t.Fatalf("failed command mutated %s: %d -> %d", world.ResourceName(r), before[r], n)
		}
	}
	if len(ctx.State.Buildings) != 0 {
		t.Fatal("failed build must not place a site")
	}
}

func TestBuildPlacesSiteAndSpends(t *testing.T) {
	ctx, pipe := testContext()
	giveResources(ctx, 1, 1000)
	g := addGroup(ctx, 1, hexmap.HexCoord{Q: 5, R: 4}, 5)

	cmd := Build{Base: Base{Player: 1}, GroupID: g.ID, Type: world.BuildingLumberCamp, Origin: hexmap.HexCoord{Q: 5, R: 5}}
	outcome, _ := pipe.Dispatch(ctx, cmd)
	if !outcome.Succeeded {
		t.Fatalf("build failed: %s", outcome.FailureReason)
	}

	if len(ctx.State.Buildings) != 1 {
		t.Fatalf("expected one building, got %d", len(ctx.State.Buildings))
	}
	var b *world.Building
	for _, placed := range ctx.State.Buildings {
		b = placed
	}
	if b.State != world.BuildingUnderConstruction {
		t.Fatalf("fresh site should be under construction, got %v", b.State)
	}
	cost := world.BuildingStatsFor(world.BuildingLumberCamp).Cost
	p := ctx.State.Players[1]
	if p.Resources[world.ResourceWood] != 1000-cost[world.ResourceWood] {
		t.Fatalf("wood not spent: %d", p.Resources[world.ResourceWood])
	}
	if g.Task != world.TaskBuilding {
		t.Fatalf("adjacent builders should start immediately, got %v", g.Task)
	}
	if g.TargetBuilding != b.ID {
		t.Fatal("builders must target the new site")
	}
}

func TestBuildRejectsOverlap(t *testing.T) {
	ctx, pipe := testContext()
	giveResources(ctx, 1, 1000)
	g := addGroup(ctx, 1, hexmap.HexCoord{Q: 4, R: 5}, 5)

	first := Build{Base: Base{Player: 1}, GroupID: g.ID, Type: world.BuildingHouse, Origin: hexmap.HexCoord{Q: 5, R: 5}}
	if outcome, _ := pipe.Dispatch(ctx, first); !outcome.Succeeded {
		t.Fatalf("first build failed: %s", outcome.FailureReason)
	}

	g.ClearTask()
	second := Build{Base: Base{Player: 1}, GroupID: g.ID, Type: world.BuildingHouse, Origin: hexmap.HexCoord{Q: 5, R: 5}}
	if outcome, _ := pipe.Dispatch(ctx, second); outcome.Succeeded {
		t.Fatal("overlapping footprints must be rejected")
	}
}

func TestMoveRequiresEntrenchmentAcknowledgement(t *testing.T) {
	ctx, pipe := testContext()

	a := world.NewArmy(world.ArmyID(ctx.State.NextID()), 1, hexmap.HexCoord{Q: 3, R: 3})
	a.AddUnits(map[world.UnitType]int{world.UnitSwordsman: 10})
	a.Entrenched = true
	ctx.State.AddArmy(a)

	dest := hexmap.HexCoord{Q: 8, R: 8}
	plain := Move{Base: Base{Player: 1}, ArmyID: a.ID, Dest: dest}
	if outcome, _ := pipe.Dispatch(ctx, plain); outcome.Succeeded {
		t.Fatal("moving an entrenched army without acknowledgement must fail")
	}
	if !a.Entrenched || a.Moving() {
		t.Fatal("the rejected move must not touch the army")
	}

	acknowledged := Move{Base: Base{Player: 1}, ArmyID: a.ID, Dest: dest, BreakEntrenchment: true}
	outcome, events := pipe.Dispatch(ctx, acknowledged)
	if !outcome.Succeeded {
		t.Fatalf("acknowledged move failed: %s", outcome.FailureReason)
	}
	if a.Entrenched {
		t.Fatal("the move must cancel entrenchment")
	}
	if !a.Moving() {
		t.Fatal("the army should have a path")
	}
	found := false
	for _, ev := range events {
		if ev.Kind == sim.ChangeEntrenchmentCancelled {
			found = true
		}
	}
	if !found {
		t.Fatal("cancelling entrenchment must emit its event")
	}
}

func TestEntrenchOnlyIdleArmies(t *testing.T) {
	ctx, pipe := testContext()

	a := world.NewArmy(world.ArmyID(ctx.State.NextID()), 1, hexmap.HexCoord{Q: 3, R: 3})
	a.AddUnits(map[world.UnitType]int{world.UnitArcher: 6})
	ctx.State.AddArmy(a)

	if outcome, _ := pipe.Dispatch(ctx, Entrench{Base: Base{Player: 1}, ArmyID: a.ID}); !outcome.Succeeded {
		t.Fatalf("idle army should entrench: %s", outcome.FailureReason)
	}
	if !a.Entrenched {
		t.Fatal("army must be entrenched")
	}
	if outcome, _ := pipe.Dispatch(ctx, Entrench{Base: Base{Player: 1}, ArmyID: a.ID}); outcome.Succeeded {
		t.Fatal("double entrench must fail")
	}
}

func TestGatherAdjacentAssignsImmediately(t *testing.T) {
	ctx, pipe := testContext()
	g := addGroup(ctx, 1, hexmap.HexCoord{Q: 6, R: 6}, 5)

	rp := &world.ResourcePoint{
		ID: world.PointID(ctx.State.NextID()), Type: world.PointForest,
		Coord: hexmap.HexCoord{Q: 6, R: 7}, Remaining: 300, Capacity: 2,
	}
	ctx.State.AddResourcePoint(rp)

	outcome, _ := pipe.Dispatch(ctx, Gather{Base: Base{Player: 1}, GroupID: g.ID, PointID: rp.ID})
	if !outcome.Succeeded {
		t.Fatalf("gather failed: %s", outcome.FailureReason)
	}
	if g.Task != world.TaskGathering {
		t.Fatalf("expected gathering task, got %v", g.Task)
	}
	if len(rp.AssignedGroups) != 1 || rp.AssignedGroups[0] != g.ID {
		t.Fatalf("group should be assigned to the point, got %v", rp.AssignedGroups)
	}
}

func TestGatherRejectsFullPoint(t *testing.T) {
	ctx, pipe := testContext()
	g := addGroup(ctx, 1, hexmap.HexCoord{Q: 6, R: 6}, 5)

	rp := &world.ResourcePoint{
		ID: world.PointID(ctx.State.NextID()), Type: world.PointForest,
		Coord: hexmap.HexCoord{Q: 6, R: 7}, Remaining: 300, Capacity: 1,
		AssignedGroups: []world.GroupID{9999},
	}
	ctx.State.AddResourcePoint(rp)

	if outcome, _ := pipe.Dispatch(ctx, Gather{Base: Base{Player: 1}, GroupID: g.ID, PointID: rp.ID}); outcome.Succeeded {
		t.Fatal("a fully worked point must reject new groups")
	}
}

func TestHuntableStartsHunting(t *testing.T) {
	ctx, pipe := testContext()
	g := addGroup(ctx, 1, hexmap.HexCoord{Q: 6, R: 6}, 5)

	rp := &world.ResourcePoint{
		ID: world.PointID(ctx.State.NextID()), Type: world.PointDeerHerd,
		Coord: hexmap.HexCoord{Q: 6, R: 7}, Remaining: 200, Capacity: 2, HP: 60,
	}
	ctx.State.AddResourcePoint(rp)

	if outcome, _ := pipe.Dispatch(ctx, Gather{Base: Base{Player: 1}, GroupID: g.ID, PointID: rp.ID}); !outcome.Succeeded {
		t.Fatalf("gather failed: %s", outcome.FailureReason)
	}
	if g.Task != world.TaskHunting {
		t.Fatalf("a live herd should be hunted first, got %v", g.Task)
	}
}

func TestTrainUnitsQueueCap(t *testing.T) {
	ctx, pipe := testContext()
	giveResources(ctx, 1, 100000)

	b := world.NewBuilding(world.BuildingID(ctx.State.NextID()), 1, world.BuildingBarracks, hexmap.HexCoord{Q: 5, R: 5}, 0, 0)
	b.State = world.BuildingOperational
	ctx.State.AddBuilding(b)

	for i := 0; i < trainQueueCap; i++ {
		outcome, _ := pipe.Dispatch(ctx, TrainUnits{Base: Base{Player: 1}, BuildingID: b.ID, Unit: world.UnitSwordsman, Count: 2})
		if !outcome.Succeeded {
			t.Fatalf("order %d failed: %s", i, outcome.FailureReason)
		}
	}
	if outcome, _ := pipe.Dispatch(ctx, TrainUnits{Base: Base{Player: 1}, BuildingID: b.ID, Unit: world.UnitSwordsman, Count: 2}); outcome.Succeeded {
		t.Fatal("a full queue must reject further orders")
	}
	if len(b.Training) != trainQueueCap {
		t.Fatalf("expected %d queued orders, got %d", trainQueueCap, len(b.Training))
	}
}

func TestTrainOrdersRunSequentially(t *testing.T) {
	ctx, pipe := testContext()
	giveResources(ctx, 1, 100000)

	b := world.NewBuilding(world.BuildingID(ctx.State.NextID()), 1, world.BuildingBarracks, hexmap.HexCoord{Q: 5, R: 5}, 0, 0)
	b.State = world.BuildingOperational
	ctx.State.AddBuilding(b)

	pipe.Dispatch(ctx, TrainUnits{Base: Base{Player: 1}, BuildingID: b.ID, Unit: world.UnitSwordsman, Count: 3})
	pipe.Dispatch(ctx, TrainUnits{Base: Base{Player: 1}, BuildingID: b.ID, Unit: world.UnitArcher, Count: 2})

	if len(b.Training) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(b.Training))
	}
	first, second := b.Training[0], b.Training[1]
	firstEnd := first.StartTick + first.TimeEach*uint64(first.Count)
	if second.StartTick != firstEnd {
		t.Fatalf("second order should start when the first ends: %d vs %d", second.StartTick, firstEnd)
	}
}

func TestKnightsRequireHorsemanship(t *testing.T) {
	ctx, pipe := testContext()
	giveResources(ctx, 1, 100000)

	b := world.NewBuilding(world.BuildingID(ctx.State.NextID()), 1, world.BuildingBarracks, hexmap.HexCoord{Q: 5, R: 5}, 0, 0)
	b.State = world.BuildingOperational
	ctx.State.AddBuilding(b)

	if outcome, _ := pipe.Dispatch(ctx, TrainUnits{Base: Base{Player: 1}, BuildingID: b.ID, Unit: world.UnitKnight, Count: 1}); outcome.Succeeded {
		t.Fatal("knights must be gated on horsemanship")
	}
	ctx.State.Players[1].CompletedResearch[world.ResearchHorsemanship] = true
	if outcome, _ := pipe.Dispatch(ctx, TrainUnits{Base: Base{Player: 1}, BuildingID: b.ID, Unit: world.UnitKnight, Count: 1}); !outcome.Succeeded {
		t.Fatalf("knight training failed after research: %s", outcome.FailureReason)
	}
}

func TestStartResearchSingleSlot(t *testing.T) {
	ctx, pipe := testContext()
	giveResources(ctx, 1, 100000)

	if outcome, _ := pipe.Dispatch(ctx, StartResearch{Base: Base{Player: 1}, Research: world.ResearchForestry}); !outcome.Succeeded {
		t.Fatalf("research failed: %s", outcome.FailureReason)
	}
	if outcome, _ := pipe.Dispatch(ctx, StartResearch{Base: Base{Player: 1}, Research: world.ResearchMasonry}); outcome.Succeeded {
		t.Fatal("only one project can run at a time")
	}

	p := ctx.State.Players[1]
	if p.ActiveResearch != world.ResearchForestry {
		t.Fatalf("expected forestry active, got %q", p.ActiveResearch)
	}
}

func TestResearchPrerequisites(t *testing.T) {
	ctx, pipe := testContext()
	giveResources(ctx, 1, 100000)

	if outcome, _ := pipe.Dispatch(ctx, StartResearch{Base: Base{Player: 1}, Research: world.ResearchArmorPlating}); outcome.Succeeded {
		t.Fatal("armor plating requires masonry first")
	}
	ctx.State.Players[1].CompletedResearch[world.ResearchMasonry] = true
	if outcome, _ := pipe.Dispatch(ctx, StartResearch{Base: Base{Player: 1}, Research: world.ResearchArmorPlating}); !outcome.Succeeded {
		t.Fatalf("research failed after prerequisite: %s", outcome.FailureReason)
	}
}

func TestCancelResearchRefundsInFull(t *testing.T) {
	ctx, pipe := testContext()
	giveResources(ctx, 1, 1000)
	p := ctx.State.Players[1]
	before := snapshotResources(p)

	pipe.Dispatch(ctx, StartResearch{Base: Base{Player: 1}, Research: world.ResearchForestry})
	if outcome, _ := pipe.Dispatch(ctx, CancelResearch{Base: Base{Player: 1}}); !outcome.Succeeded {
		t.Fatalf("cancel failed: %s", outcome.FailureReason)
	}
	if p.ActiveResearch != "" {
		t.Fatal("cancel must clear the active slot")
	}
	for r, n := range snapshotResources(p) {
		if before[r] != n {
			t.Fatalf("refund incomplete for %s: %d -> %d", world.ResourceName(r), before[r], n)
		}
	}
}

func TestAttackRejectsOwnTargets(t *testing.T) {
	ctx, pipe := testContext()

	a := world.NewArmy(world.ArmyID(ctx.State.NextID()), 1, hexmap.HexCoord{Q: 3, R: 3})
	a.AddUnits(map[world.UnitType]int{world.UnitSwordsman: 10})
	ctx.State.AddArmy(a)

	own := world.NewArmy(world.ArmyID(ctx.State.NextID()), 1, hexmap.HexCoord{Q: 3, R: 4})
	own.AddUnits(map[world.UnitType]int{world.UnitArcher: 4})
	ctx.State.AddArmy(own)

	if outcome, _ := pipe.Dispatch(ctx, Attack{Base: Base{Player: 1}, ArmyID: a.ID, Target: world.ArmyRef(own.ID)}); outcome.Succeeded {
		t.Fatal("attacking your own army must fail")
	}
}

func TestAttackAdjacentEnemySetsRelationsAndEngages(t *testing.T) {
	ctx, pipe := testContext()

	a := world.NewArmy(world.ArmyID(ctx.State.NextID()), 1, hexmap.HexCoord{Q: 3, R: 3})
	a.AddUnits(map[world.UnitType]int{world.UnitSwordsman: 10})
	ctx.State.AddArmy(a)

	enemy := world.NewArmy(world.ArmyID(ctx.State.NextID()), 2, hexmap.HexCoord{Q: 3, R: 4})
	enemy.AddUnits(map[world.UnitType]int{world.UnitSwordsman: 10})
	ctx.State.AddArmy(enemy)

	outcome, events := pipe.Dispatch(ctx, Attack{Base: Base{Player: 1}, ArmyID: a.ID, Target: world.ArmyRef(enemy.ID)})
	if !outcome.Succeeded {
		t.Fatalf("attack failed: %s", outcome.FailureReason)
	}
	if !ctx.State.Players[1].IsEnemy(2) || !ctx.State.Players[2].IsEnemy(1) {
		t.Fatal("attacking must set mutual enemy relations")
	}
	started := false
	for _, ev := range events {
		if ev.Kind == sim.ChangeCombatStarted {
			started = true
		}
	}
	if !started {
		t.Fatal("attack should start combat")
	}
	if a.State != world.ArmyInCombat {
		t.Fatalf("attacker should be in combat, got %v", a.State)
	}
}

func TestDeployArmyAttachesAFreeCommander(t *testing.T) {
	ctx, pipe := testContext()

	b := world.NewBuilding(world.BuildingID(ctx.State.NextID()), 1, world.BuildingBarracks, hexmap.HexCoord{Q: 5, R: 5}, 0, 0)
	b.State = world.BuildingOperational
	b.Garrison.Units[world.UnitSwordsman] = 10
	ctx.State.AddBuilding(b)

	cmdr := &world.Commander{ID: world.CommanderID(ctx.State.NextID()), Owner: 1, Name: "Gareth", Leadership: 2, Tactics: 1}
	ctx.State.AddCommander(cmdr)

	deploy := func(at hexmap.HexCoord, n int) *world.Army {
		outcome, _ := pipe.Dispatch(ctx, DeployArmy{
			Base: Base{Player: 1}, BuildingID: b.ID,
			Units: map[world.UnitType]int{world.UnitSwordsman: n}, At: at,
		})
		if !outcome.Succeeded {
			t.Fatalf("deploy failed: %s", outcome.FailureReason)
		}
		for _, a := range ctx.State.Armies {
			if a.Coord == at {
				return a
			}
		}
		t.Fatalf("no army stood up at %v", at)
		return nil
	}

	first := deploy(hexmap.HexCoord{Q: 6, R: 5}, 6)
	if first.CommanderID != cmdr.ID {
		t.Fatalf("the idle commander should take the field, got %d", first.CommanderID)
	}

	// The only commander is committed; the next army marches unled.
	second := deploy(hexmap.HexCoord{Q: 4, R: 5}, 4)
	if second.CommanderID != 0 {
		t.Fatalf("a committed commander cannot lead twice, got %d", second.CommanderID)
	}
}
