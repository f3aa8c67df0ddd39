package world

import "github.com/talgya/hexfront/internal/hexmap"

// BuildingState is the building lifecycle state machine:
// underConstruction → operational → (upgrading|demolishing) → operational,
// with destroyed terminal from any state.
type BuildingState uint8

const (
	BuildingUnderConstruction BuildingState = iota
	BuildingOperational
	BuildingUpgrading
	BuildingDemolishing
	BuildingDestroyed
)

// BuildingStateName returns a human-readable state label.
func BuildingStateName(s BuildingState) string {
	switch s {
	case BuildingUnderConstruction:
		return "under construction"
	case BuildingOperational:
		return "operational"
	case BuildingUpgrading:
		return "upgrading"
	case BuildingDemolishing:
		return "demolishing"
	case BuildingDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Garrison holds units stored inside a building. They contribute to its
// defense without occupying the map as separate entities.
type Garrison struct {
	Units     map[UnitType]int `json:"units"`
	Villagers int              `json:"villagers"`
}

// Count returns the number of garrisoned military units.
func (g *Garrison) Count() int {
	total := 0
	for _, n := range g.Units {
		total += n
	}
	return total
}

// RangedCount returns the garrisoned units able to fire during the
// ranged phase.
func (g *Garrison) RangedCount() map[UnitType]int {
	out := make(map[UnitType]int)
	for u, n := range g.Units {
		if n > 0 && UnitStatsFor(u).Ranged {
			out[u] = n
		}
	}
	return out
}

// Building is a placed structure. Its occupied coordinates are fixed at
// placement from the footprint and rotation and never change afterwards.
type Building struct {
	ID    BuildingID   `json:"id"`
	Owner PlayerID     `json:"owner"`
	Type  BuildingType `json:"type"`
	Level int          `json:"level"`

	Origin   hexmap.HexCoord   `json:"origin"`
	Rotation int               `json:"rotation"`
	Occupied []hexmap.HexCoord `json:"occupied"`

	HP    int `json:"hp"`
	MaxHP int `json:"max_hp"`

	State BuildingState `json:"state"`

	// Progress timestamps for the active lifecycle transition, ticks.
	ConstructionStart uint64 `json:"construction_start"`
	UpgradeStart      uint64 `json:"upgrade_start"`
	DemolitionStart   uint64 `json:"demolition_start"`

	Garrison Garrison `json:"garrison"`

	// Training orders in progress, oldest first.
	Training []TrainingOrder `json:"training,omitempty"`
}

// TrainingOrder is a batch of units or villagers being trained.
// Completion is a closed-form function of elapsed ticks, so offline
// catch-up can settle orders without replaying each tick.
type TrainingOrder struct {
	Unit      UnitType `json:"unit"`
	Villagers bool     `json:"villagers"` // True = villager batch, Unit ignored
	Count     int      `json:"count"`
	StartTick uint64   `json:"start_tick"`
	TimeEach  uint64   `json:"time_each"`
}

// Done reports whether the order has finished at the given tick.
func (o TrainingOrder) Done(now uint64) bool {
	return now >= o.StartTick+uint64(o.Count)*o.TimeEach
}

// NewBuilding places a building at origin with the given rotation and
// computes its fixed occupied set.
func NewBuilding(id BuildingID, owner PlayerID, typ BuildingType, origin hexmap.HexCoord, rotation int, now uint64) *Building {
	stats := BuildingStatsFor(typ)
	b := &Building{
		ID:                id,
		Owner:             owner,
		Type:              typ,
		Level:             1,
		Origin:            origin,
		Rotation:          rotation,
		Occupied:          FootprintAt(typ, origin, rotation),
		HP:                stats.MaxHP / 10, // Construction sites start fragile
		MaxHP:             stats.MaxHP,
		State:             BuildingUnderConstruction,
		ConstructionStart: now,
		Garrison:          Garrison{Units: make(map[UnitType]int)},
	}
	return b
}

// FootprintAt resolves a building type's footprint to absolute
// coordinates for a given origin and rotation.
func FootprintAt(typ BuildingType, origin hexmap.HexCoord, rotation int) []hexmap.HexCoord {
	stats := BuildingStatsFor(typ)
	out := make([]hexmap.HexCoord, 0, len(stats.Footprint))
	for _, off := range stats.Footprint {
		out = append(out, origin.Add(hexmap.RotateOffset(off, rotation)))
	}
	return out
}

// UpgradeCost returns the resource cost of raising the building to the
// next level: the base cost scaled by the current level.
func UpgradeCost(typ BuildingType, level int) map[ResourceType]int {
	base := BuildingStatsFor(typ).Cost
	out := make(map[ResourceType]int, len(base))
	for res, amount := range base {
		out[res] = amount * level
	}
	return out
}

// VillagerTrainCost is the food cost of training one villager.
const VillagerTrainCost = 50

// VillagerTrainTime is the ticks needed to train one villager.
const VillagerTrainTime = 40

// OccupiesCoord reports whether the building covers the coordinate.
func (b *Building) OccupiesCoord(coord hexmap.HexCoord) bool {
	for _, c := range b.Occupied {
		if c == coord {
			return true
		}
	}
	return false
}

// AdjacentTo reports whether the coordinate touches or overlaps the
// building's occupied set.
func (b *Building) AdjacentTo(coord hexmap.HexCoord) bool {
	for _, c := range b.Occupied {
		if hexmap.Distance(c, coord) <= 1 {
			return true
		}
	}
	return false
}

// Operational reports whether the building is complete and standing.
func (b *Building) Operational() bool {
	return b.State == BuildingOperational || b.State == BuildingUpgrading || b.State == BuildingDemolishing
}

// ApplyDamage reduces HP and returns true if the building was destroyed.
func (b *Building) ApplyDamage(amount int) bool {
	if b.State == BuildingDestroyed {
		return false
	}
	b.HP -= amount
	if b.HP <= 0 {
		b.HP = 0
		b.State = BuildingDestroyed
		return true
	}
	return false
}
