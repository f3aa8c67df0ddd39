package movement

import (
	"testing"

	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

func flatWorld(w, h int) *sim.Context {
	m := hexmap.NewMap(w, h)
	for q := 0; q < w; q++ {
		for r := 0; r < h; r++ {
			m.Set(&hexmap.Tile{Coord: hexmap.HexCoord{Q: q, R: r}, Terrain: hexmap.TerrainGrass})
		}
	}
	st := world.NewState(m)
	st.AddPlayer(world.NewPlayer(1, "Tester", false))
	return sim.NewContext(st, 1)
}

func TestFindPathOnOpenGround(t *testing.T) {
	ctx := flatWorld(10, 10)
	start := hexmap.HexCoord{Q: 1, R: 1}
	goal := hexmap.HexCoord{Q: 7, R: 4}

	path := FindPath(ctx, start, goal, 1)
	if path == nil {
		t.Fatal("expected a path on open ground")
	}
	if path[len(path)-1] != goal {
		t.Fatalf("path must end at the goal, ends at %v", path[len(path)-1])
	}
	if path[0] == start {
		t.Fatal("path must exclude the start tile")
	}
	prev := start
	for i, step := range path {
		if hexmap.Distance(prev, step) != 1 {
			t.Fatalf("step %d jumps from %v to %v", i, prev, step)
		}
		prev = step
	}
	// On uniform terrain the cheapest path is also the shortest.
	if len(path) != hexmap.Distance(start, goal) {
		t.Fatalf("expected %d steps, got %d", hexmap.Distance(start, goal), len(path))
	}
}

func TestFindPathBlockedByMountains(t *testing.T) {
	ctx := flatWorld(9, 9)
	// A full mountain column splits the map in two.
	for r := 0; r < 9; r++ {
		ctx.State.Map.Get(hexmap.HexCoord{Q: 4, R: r}).Terrain = hexmap.TerrainMountain
	}

	start := hexmap.HexCoord{Q: 1, R: 4}
	goal := hexmap.HexCoord{Q: 7, R: 4}
	if path := FindPath(ctx, start, goal, 1); path != nil {
		t.Fatalf("expected no path through the mountain wall, got %v", path)
	}
}

func TestFindPathRoutesAroundObstacle(t *testing.T) {
	ctx := flatWorld(9, 9)
	// Partial wall — leaves a gap at the bottom edge.
	for r := 0; r < 8; r++ {
		ctx.State.Map.Get(hexmap.HexCoord{Q: 4, R: r}).Terrain = hexmap.TerrainMountain
	}

	start := hexmap.HexCoord{Q: 1, R: 4}
	goal := hexmap.HexCoord{Q: 7, R: 4}
	path := FindPath(ctx, start, goal, 1)
	if path == nil {
		t.Fatal("expected a detour path through the gap")
	}
	for _, step := range path {
		if !ctx.State.Map.Get(step).Terrain.Walkable() {
			t.Fatalf("path crosses impassable tile %v", step)
		}
	}
	if len(path) <= hexmap.Distance(start, goal) {
		t.Fatalf("detour should be longer than the straight line, got %d steps", len(path))
	}
}

func TestFindPathDegenerateCases(t *testing.T) {
	ctx := flatWorld(5, 5)
	here := hexmap.HexCoord{Q: 2, R: 2}

	if path := FindPath(ctx, here, here, 1); path == nil || len(path) != 0 {
		t.Fatalf("path to self should be empty, got %v", path)
	}
	if path := FindPath(ctx, here, hexmap.HexCoord{Q: 50, R: 50}, 1); path != nil {
		t.Fatalf("off-map goal should yield nil, got %v", path)
	}
}

func TestFindPathAvoidsEnemyBuildings(t *testing.T) {
	ctx := flatWorld(9, 9)
	ctx.State.AddPlayer(world.NewPlayer(2, "Rival", true))

	// An enemy tower sits directly on the straight line.
	tower := world.NewBuilding(world.BuildingID(ctx.State.NextID()), 2, world.BuildingTower, hexmap.HexCoord{Q: 4, R: 4}, 0, 0)
	tower.State = world.BuildingOperational
	ctx.State.AddBuilding(tower)

	start := hexmap.HexCoord{Q: 2, R: 4}
	goal := hexmap.HexCoord{Q: 6, R: 4}
	path := FindPath(ctx, start, goal, 1)
	if path == nil {
		t.Fatal("expected a path around the enemy tower")
	}
	for _, step := range path {
		if b := ctx.State.BuildingAt(step); b != nil && b.Owner != 1 {
			t.Fatalf("path enters hostile building tile %v", step)
		}
	}
}
