package hexmap

import "testing"

func TestDistanceBasics(t *testing.T) {
	origin := HexCoord{}

	if d := Distance(origin, origin); d != 0 {
		t.Fatalf("expected distance 0 to self, got %d", d)
	}
	for _, n := range origin.Neighbors() {
		if d := Distance(origin, n); d != 1 {
			t.Fatalf("expected distance 1 to neighbor %v, got %d", n, d)
		}
	}

	a := HexCoord{Q: 3, R: -2}
	b := HexCoord{Q: -1, R: 4}
	if Distance(a, b) != Distance(b, a) {
		t.Fatalf("distance is not symmetric: %d vs %d", Distance(a, b), Distance(b, a))
	}
}

func TestRingSizeAndRadius(t *testing.T) {
	center := HexCoord{Q: 5, R: 5}

	for radius := 1; radius <= 4; radius++ {
		ring := center.Ring(radius)
		if len(ring) != 6*radius {
			t.Fatalf("radius %d: expected %d hexes, got %d", radius, 6*radius, len(ring))
		}
		seen := make(map[HexCoord]bool, len(ring))
		for _, h := range ring {
			if Distance(center, h) != radius {
				t.Fatalf("radius %d: %v is at distance %d", radius, h, Distance(center, h))
			}
			if seen[h] {
				t.Fatalf("radius %d: duplicate hex %v", radius, h)
			}
			seen[h] = true
		}
	}

	if got := center.Ring(0); len(got) != 1 || got[0] != center {
		t.Fatalf("ring 0 should be just the center, got %v", got)
	}
}

func TestSpiralCoversDisk(t *testing.T) {
	center := HexCoord{Q: 2, R: 1}
	radius := 3

	spiral := center.Spiral(radius)
	// 1 + 6*(1+2+...+r) hexes within radius r.
	want := 1 + 3*radius*(radius+1)
	if len(spiral) != want {
		t.Fatalf("expected %d hexes within radius %d, got %d", want, radius, len(spiral))
	}
	if spiral[0] != center {
		t.Fatalf("spiral should start at center, got %v", spiral[0])
	}
	for _, h := range spiral {
		if Distance(center, h) > radius {
			t.Fatalf("%v is outside radius %d", h, radius)
		}
	}
}

func TestLineEndpointsAndSteps(t *testing.T) {
	a := HexCoord{Q: 0, R: 0}
	b := HexCoord{Q: 4, R: -2}

	line := Line(a, b)
	if line[0] != a || line[len(line)-1] != b {
		t.Fatalf("line must include both endpoints: %v", line)
	}
	if len(line) != Distance(a, b)+1 {
		t.Fatalf("expected %d samples, got %d", Distance(a, b)+1, len(line))
	}
	for i := 1; i < len(line); i++ {
		if Distance(line[i-1], line[i]) != 1 {
			t.Fatalf("line step %d jumps from %v to %v", i, line[i-1], line[i])
		}
	}

	if got := Line(a, a); len(got) != 1 || got[0] != a {
		t.Fatalf("degenerate line should be the single hex, got %v", got)
	}
}

func TestRotateOffset(t *testing.T) {
	o := HexCoord{Q: 2, R: -1}

	if got := RotateOffset(o, 0); got != o {
		t.Fatalf("rotation 0 must be identity, got %v", got)
	}
	if got := RotateOffset(o, 6); got != o {
		t.Fatalf("full turn must be identity, got %v", got)
	}
	if got := RotateOffset(RotateOffset(o, 2), 4); got != o {
		t.Fatalf("rotations must compose to identity, got %v", got)
	}
	// Rotation preserves distance from origin.
	origin := HexCoord{}
	for rot := 1; rot < 6; rot++ {
		r := RotateOffset(o, rot)
		if Distance(origin, r) != Distance(origin, o) {
			t.Fatalf("rotation %d changed distance: %v", rot, r)
		}
		if r == o {
			t.Fatalf("rotation %d of %v should move it, got the same hex", rot, o)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := SmallTestConfig()
	m1 := Generate(cfg)
	m2 := Generate(cfg)

	if m1.TileCount() != cfg.Width*cfg.Height {
		t.Fatalf("expected %d tiles, got %d", cfg.Width*cfg.Height, m1.TileCount())
	}
	for coord, tile := range m1.Tiles {
		other := m2.Get(coord)
		if other == nil {
			t.Fatalf("second map missing %v", coord)
		}
		if other.Terrain != tile.Terrain || other.Elevation != tile.Elevation {
			t.Fatalf("maps diverge at %v: %v vs %v", coord, tile, other)
		}
	}
}

func TestTerrainProperties(t *testing.T) {
	if TerrainMountain.Walkable() || TerrainWater.Walkable() {
		t.Fatal("mountains and water must be impassable")
	}
	if !TerrainGrass.Walkable() || !TerrainForest.Walkable() || !TerrainHills.Walkable() {
		t.Fatal("grass, forest, and hills must be walkable")
	}
	if !TerrainMountain.BlocksSight() {
		t.Fatal("mountains must block sight")
	}
	if TerrainForest.MoveCost() <= TerrainGrass.MoveCost() {
		t.Fatal("forest must cost more to traverse than grass")
	}
}
