// Starting-position placement: scores the map for base sites, seeds
// each player's town hall, villagers, and commander, and scatters the
// resource points.
package world

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/talgya/hexfront/internal/hexmap"
)

// SetupConfig shapes a fresh scenario.
type SetupConfig struct {
	Humans        int
	AIs           int
	Seed          int64
	StartingStock map[ResourceType]int
	MinBaseDist   int // Minimum hex distance between starting town halls
}

// DefaultSetupConfig is one human against two AI opponents.
func DefaultSetupConfig(seed int64) SetupConfig {
	return SetupConfig{
		Humans: 1,
		AIs:    2,
		Seed:   seed,
		StartingStock: map[ResourceType]int{
			ResourceFood: 500, ResourceWood: 400, ResourceStone: 300, ResourceGold: 150,
		},
		MinBaseDist: 12,
	}
}

// Setup populates an empty state with players, their starting bases,
// and the map's resource points. Deterministic for a given seed.
func Setup(st *State, cfg SetupConfig) error {
	rng := rand.New(rand.NewSource(cfg.Seed + 200))

	sites := baseSites(st.Map, cfg.Humans+cfg.AIs, cfg.MinBaseDist)
	if len(sites) < cfg.Humans+cfg.AIs {
		return fmt.Errorf("map supports %d starting bases, need %d", len(sites), cfg.Humans+cfg.AIs)
	}

	total := cfg.Humans + cfg.AIs
	for i := 0; i < total; i++ {
		ai := i >= cfg.Humans
		name := fmt.Sprintf("Player %d", i+1)
		if ai {
			name = fmt.Sprintf("Warlord %d", i+1-cfg.Humans)
		}
		p := NewPlayer(PlayerID(st.NextID()), name, ai)
		for res, amount := range cfg.StartingStock {
			p.Resources[res] = amount
		}
		st.AddPlayer(p)

		seedBase(st, rng, p, sites[i])
	}

	scatterResourcePoints(st, rng)
	return nil
}

// seedBase stands up a player's town hall, first villager group, and
// starting commander at a site.
func seedBase(st *State, rng *rand.Rand, p *Player, site hexmap.HexCoord) {
	th := NewBuilding(BuildingID(st.NextID()), p.ID, BuildingTownHall, site, 0, 0)
	th.State = BuildingOperational
	th.HP = th.MaxHP
	st.AddBuilding(th)
	p.HomeBaseID = th.ID

	for _, n := range site.Spiral(2) {
		if st.Walkable(n, p.ID) {
			st.AddVillagerGroup(NewVillagerGroup(GroupID(st.NextID()), p.ID, n, 6))
			break
		}
	}

	st.AddCommander(&Commander{
		ID:         CommanderID(st.NextID()),
		Owner:      p.ID,
		Name:       commanderNames[rng.Intn(len(commanderNames))],
		Leadership: 1 + rng.Intn(3),
		Tactics:    1 + rng.Intn(3),
	})
}

var commanderNames = []string{
	"Aldric", "Berwyn", "Cassia", "Darian", "Elric",
	"Freya", "Gareth", "Halvard", "Isolde", "Joric",
}

// baseSites scores every buildable tile and picks the best n, holding
// a minimum distance between picks so bases do not crowd.
func baseSites(m *hexmap.Map, n, minDist int) []hexmap.HexCoord {
	type scored struct {
		coord hexmap.HexCoord
		score float64
	}
	var candidates []scored
	for _, tile := range m.Tiles {
		if !tile.Terrain.Walkable() {
			continue
		}
		if s := siteScore(m, tile.Coord); s > 0 {
			candidates = append(candidates, scored{tile.Coord, s})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		// Deterministic order for equal scores.
		a, b := candidates[i].coord, candidates[j].coord
		if a.Q != b.Q {
			return a.Q < b.Q
		}
		return a.R < b.R
	})

	var sites []hexmap.HexCoord
	for _, c := range candidates {
		if len(sites) >= n {
			break
		}
		tooClose := false
		for _, s := range sites {
			if hexmap.Distance(c.coord, s) < minDist {
				tooClose = true
				break
			}
		}
		if !tooClose {
			sites = append(sites, c.coord)
		}
	}
	return sites
}

// siteScore favors flat grass with varied terrain nearby: forests and
// hills within reach mean wood and stone, water and mountains on the
// tile itself disqualify it.
func siteScore(m *hexmap.Map, coord hexmap.HexCoord) float64 {
	tile := m.Get(coord)
	if tile == nil || tile.Terrain != hexmap.TerrainGrass {
		return 0
	}
	// The town hall footprint needs room.
	for _, off := range BuildingStatsFor(BuildingTownHall).Footprint {
		t := m.Get(coord.Add(off))
		if t == nil || !t.Terrain.Walkable() {
			return 0
		}
	}

	score := 1.0
	forests, hills := 0, 0
	for _, n := range coord.Spiral(4) {
		t := m.Get(n)
		if t == nil {
			continue
		}
		switch t.Terrain {
		case hexmap.TerrainForest:
			forests++
		case hexmap.TerrainHills:
			hills++
		}
	}
	score += float64(min(forests, 8)) * 0.5
	score += float64(min(hills, 4)) * 0.4
	score -= tile.Elevation * 0.5
	return score
}

// Resource point seeding densities, as a fraction of matching terrain
// tiles that host a point.
const (
	forestPointChance  = 0.25
	stonePointChance   = 0.30
	goldPointChance    = 0.08
	berryPointChance   = 0.05
	deerPointChance    = 0.04
	defaultPointAmount = 400
	deerHerdHP         = 60
)

// scatterResourcePoints seeds gatherable deposits across the map by
// terrain: forests in woods, stone and gold in hills, food on grass.
// Tiles are visited in coordinate order so the rng rolls land the same
// way every run of a seed.
func scatterResourcePoints(st *State, rng *rand.Rand) {
	tiles := make([]*hexmap.Tile, 0, len(st.Map.Tiles))
	for _, tile := range st.Map.Tiles {
		tiles = append(tiles, tile)
	}
	sort.Slice(tiles, func(i, j int) bool {
		if tiles[i].Coord.Q != tiles[j].Coord.Q {
			return tiles[i].Coord.Q < tiles[j].Coord.Q
		}
		return tiles[i].Coord.R < tiles[j].Coord.R
	})

	for _, tile := range tiles {
		var typ ResourcePointType
		var amount int
		switch tile.Terrain {
		case hexmap.TerrainForest:
			if rng.Float64() >= forestPointChance {
				continue
			}
			typ, amount = PointForest, defaultPointAmount
		case hexmap.TerrainHills:
			roll := rng.Float64()
			switch {
			case roll < goldPointChance:
				typ, amount = PointGoldVein, defaultPointAmount/2
			case roll < goldPointChance+stonePointChance:
				typ, amount = PointStoneOutcrop, defaultPointAmount
			default:
				continue
			}
		case hexmap.TerrainGrass:
			roll := rng.Float64()
			switch {
			case roll < deerPointChance:
				typ, amount = PointDeerHerd, defaultPointAmount/2
			case roll < deerPointChance+berryPointChance:
				typ, amount = PointBerryGrove, defaultPointAmount/2
			default:
				continue
			}
		default:
			continue
		}

		rp := &ResourcePoint{
			ID:        PointID(st.NextID()),
			Type:      typ,
			Coord:     tile.Coord,
			Remaining: amount,
			Capacity:  3,
		}
		if typ.Huntable() {
			rp.HP = deerHerdHP
		}
		st.AddResourcePoint(rp)
	}
}
