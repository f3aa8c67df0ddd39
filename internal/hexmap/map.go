package hexmap

import "fmt"

// Terrain types for hex tiles.
type Terrain uint8

const (
	TerrainGrass    Terrain = iota // Open ground — walkable, buildable
	TerrainForest                  // Walkable, slower, wood sources spawn here
	TerrainHills                   // Walkable, elevated
	TerrainMountain                // Impassable, blocks line of sight
	TerrainWater                   // Impassable
)

// TerrainName returns a human-readable terrain label.
func TerrainName(t Terrain) string {
	switch t {
	case TerrainGrass:
		return "grass"
	case TerrainForest:
		return "forest"
	case TerrainHills:
		return "hills"
	case TerrainMountain:
		return "mountain"
	case TerrainWater:
		return "water"
	}
	return "unknown"
}

// Walkable reports whether ground units can enter this terrain at all.
// Elevation differences shape path cost but never block on their own.
func (t Terrain) Walkable() bool {
	return t != TerrainMountain && t != TerrainWater
}

// BlocksSight reports whether the terrain interrupts line of sight to
// tiles beyond it.
func (t Terrain) BlocksSight() bool {
	return t == TerrainMountain
}

// MoveCost returns the base pathfinding cost of entering this terrain.
func (t Terrain) MoveCost() float64 {
	switch t {
	case TerrainForest:
		return 1.5
	case TerrainHills:
		return 1.3
	default:
		return 1.0
	}
}

// Tile is a single hex on the world map.
type Tile struct {
	Coord     HexCoord `json:"coord"`
	Terrain   Terrain  `json:"terrain"`
	Elevation float64  `json:"elevation"` // 0.0 (lowland) to 1.0 (peak)
}

// Map holds the complete hex grid.
type Map struct {
	Tiles  map[HexCoord]*Tile `json:"-"`
	Width  int                `json:"width"`
	Height int                `json:"height"`
}

// NewMap creates an empty map covering the axial parallelogram
// q ∈ [0, width), r ∈ [0, height).
func NewMap(width, height int) *Map {
	return &Map{
		Tiles:  make(map[HexCoord]*Tile, width*height),
		Width:  width,
		Height: height,
	}
}

// Get returns the tile at the given coordinate, or nil if out of bounds.
func (m *Map) Get(coord HexCoord) *Tile {
	return m.Tiles[coord]
}

// Set places a tile at its coordinate.
func (m *Map) Set(tile *Tile) {
	m.Tiles[tile.Coord] = tile
}

// InBounds returns true if a tile exists at the coordinate.
func (m *Map) InBounds(coord HexCoord) bool {
	_, ok := m.Tiles[coord]
	return ok
}

// TileCount returns the total number of tiles in the map.
func (m *Map) TileCount() int {
	return len(m.Tiles)
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(%dx%d, tiles=%d)", m.Width, m.Height, m.TileCount())
}
