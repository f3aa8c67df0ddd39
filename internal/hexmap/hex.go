// Package hexmap provides the hex grid, terrain, and spatial math.
// Uses axial coordinates (q, r) for the hex grid; cube coordinates
// are derived where interpolation needs them.
package hexmap

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Add returns the component-wise sum of two coordinates.
func (h HexCoord) Add(o HexCoord) HexCoord {
	return HexCoord{Q: h.Q + o.Q, R: h.R + o.R}
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = h.Add(dir)
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	// Max of the three absolute differences in cube coordinates.
	max := dq
	if dr > max {
		max = dr
	}
	if ds > max {
		max = ds
	}
	return max
}

// Ring returns the coordinates exactly radius steps from center, in walk
// order. Radius 0 returns the center itself.
func (h HexCoord) Ring(radius int) []HexCoord {
	if radius <= 0 {
		return []HexCoord{h}
	}
	result := make([]HexCoord, 0, 6*radius)
	// Start at the hex radius steps in direction 4, then walk each side.
	cur := h
	for i := 0; i < radius; i++ {
		cur = cur.Add(HexNeighborDirections[4])
	}
	for side := 0; side < 6; side++ {
		for step := 0; step < radius; step++ {
			result = append(result, cur)
			cur = cur.Add(HexNeighborDirections[side])
		}
	}
	return result
}

// Spiral returns all coordinates within radius of center, center first,
// then ring by ring outward.
func (h HexCoord) Spiral(radius int) []HexCoord {
	result := []HexCoord{h}
	for r := 1; r <= radius; r++ {
		result = append(result, h.Ring(r)...)
	}
	return result
}

// Line returns the sequence of hexes on the straight line from a to b,
// inclusive of both endpoints. Computed by linear interpolation in cube
// coordinates, rounding each sample to the nearest hex.
func Line(a, b HexCoord) []HexCoord {
	n := Distance(a, b)
	if n == 0 {
		return []HexCoord{a}
	}
	result := make([]HexCoord, 0, n+1)
	aq, ar, as := float64(a.Q), float64(a.R), float64(a.S())
	bq, br, bs := float64(b.Q), float64(b.R), float64(b.S())
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		result = append(result, cubeRound(
			lerp(aq, bq, t),
			lerp(ar, br, t),
			lerp(as, bs, t),
		))
	}
	return result
}

// RotateOffset rotates an axial offset around the origin by rotation
// sixths of a full turn, clockwise. One step in cube coordinates is
// (x,y,z) → (-z,-x,-y), which in axial terms is (q,r) → (-r, q+r).
func RotateOffset(o HexCoord, rotation int) HexCoord {
	rotation = ((rotation % 6) + 6) % 6
	for i := 0; i < rotation; i++ {
		o = HexCoord{Q: -o.R, R: o.Q + o.R}
	}
	return o
}

// cubeRound snaps fractional cube coordinates to the nearest valid hex,
// fixing up the component with the largest rounding error so q+r+s == 0.
func cubeRound(q, r, s float64) HexCoord {
	rq := round(q)
	rr := round(r)
	rs := round(s)

	dq := absf(float64(rq) - q)
	dr := absf(float64(rr) - r)
	ds := absf(float64(rs) - s)

	switch {
	case dq > dr && dq > ds:
		rq = -rr - rs
	case dr > ds:
		rr = -rq - rs
	}
	return HexCoord{Q: rq, R: rr}
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func round(f float64) int {
	if f >= 0 {
		return int(f + 0.5)
	}
	return -int(-f + 0.5)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
