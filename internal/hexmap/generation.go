// Map generation using layered simplex noise.
// Elevation and moisture layers are sampled per hex and terrain is
// derived from thresholds, so the same seed always yields the same map.
package hexmap

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds map generation parameters.
type GenConfig struct {
	Width       int
	Height      int
	Seed        int64   // 0 = random
	WaterLevel  float64 // Elevation threshold for water (0.0–1.0)
	MountainLvl float64 // Elevation threshold for mountains (0.0–1.0)
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:       48,
		Height:      48,
		WaterLevel:  0.22,
		MountainLvl: 0.78,
	}
}

// SmallTestConfig returns a tiny map for tests.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:       12,
		Height:      12,
		Seed:        42,
		WaterLevel:  0.15,
		MountainLvl: 0.85,
	}
}

// Generate creates a complete map with terrain and elevation.
func Generate(cfg GenConfig) *Map {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	moistNoise := opensimplex.NewNormalized(seed + 1)

	m := NewMap(cfg.Width, cfg.Height)

	for q := 0; q < cfg.Width; q++ {
		for r := 0; r < cfg.Height; r++ {
			coord := HexCoord{Q: q, R: r}

			// Hex axial → cartesian for noise sampling:
			// x = q + r*0.5, y = r * sqrt(3)/2.
			x := float64(q) + float64(r)*0.5
			y := float64(r) * math.Sqrt(3.0) / 2.0

			elev := octaveNoise(elevNoise, x, y, 4, 0.09, 0.5)
			moist := octaveNoise(moistNoise, x, y, 3, 0.06, 0.5)

			m.Set(&Tile{
				Coord:     coord,
				Terrain:   deriveTerrain(elev, moist, cfg),
				Elevation: elev,
			})
		}
	}

	return m
}

// deriveTerrain determines terrain type from elevation and moisture.
func deriveTerrain(elev, moist float64, cfg GenConfig) Terrain {
	if elev < cfg.WaterLevel {
		return TerrainWater
	}
	if elev > cfg.MountainLvl {
		return TerrainMountain
	}
	if elev > cfg.MountainLvl-0.15 {
		return TerrainHills
	}
	if moist > 0.55 {
		return TerrainForest
	}
	return TerrainGrass
}

// octaveNoise layers multiple noise samples for natural-looking variation.
func octaveNoise(n opensimplex.Noise, x, y float64, octaves int, freq, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxValue := 0.0
	for i := 0; i < octaves; i++ {
		total += n.Eval2(x*freq, y*freq) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		freq *= 2
	}
	return total / maxValue
}
