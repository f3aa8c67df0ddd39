// Static rules tables: unit stats, building stats, and the research
// catalog. These are data, not behavior — engines read them through the
// lookup helpers and never mutate them.
package world

import "github.com/talgya/hexfront/internal/hexmap"

// UnitStats describes one unit type's combat and logistics numbers.
type UnitStats struct {
	HP        int
	Attack    [3]int // Output per unit, indexed by DamageChannel
	Armor     [3]int // Mitigation, indexed by DamageChannel
	Ranged    bool   // Participates in the ranged/garrison phase
	Siege     bool   // Bonus output against buildings
	Speed     int    // Ticks per tile moved (lower = faster)
	Cost      map[ResourceType]int
	TrainTime uint64 // Ticks to train one unit
}

var unitStats = map[UnitType]UnitStats{
	UnitSwordsman: {
		HP:        60,
		Attack:    [3]int{8, 0, 0},
		Armor:     [3]int{2, 1, 0},
		Speed:     4,
		Cost:      map[ResourceType]int{ResourceFood: 40, ResourceGold: 15},
		TrainTime: 30,
	},
	UnitArcher: {
		HP:        35,
		Attack:    [3]int{0, 7, 0},
		Armor:     [3]int{0, 1, 0},
		Ranged:    true,
		Speed:     4,
		Cost:      map[ResourceType]int{ResourceFood: 25, ResourceWood: 30, ResourceGold: 10},
		TrainTime: 25,
	},
	UnitMaceman: {
		HP:        70,
		Attack:    [3]int{0, 0, 9},
		Armor:     [3]int{1, 1, 2},
		Speed:     5,
		Cost:      map[ResourceType]int{ResourceFood: 45, ResourceGold: 20},
		TrainTime: 35,
	},
	UnitKnight: {
		HP:        110,
		Attack:    [3]int{12, 0, 0},
		Armor:     [3]int{3, 2, 1},
		Speed:     2,
		Cost:      map[ResourceType]int{ResourceFood: 70, ResourceGold: 60},
		TrainTime: 60,
	},
	UnitCatapult: {
		HP:        90,
		Attack:    [3]int{0, 0, 14},
		Armor:     [3]int{0, 2, 0},
		Ranged:    true,
		Siege:     true,
		Speed:     8,
		Cost:      map[ResourceType]int{ResourceWood: 120, ResourceGold: 80},
		TrainTime: 90,
	},
}

// UnitStatsFor returns the stats table entry for a unit type.
func UnitStatsFor(u UnitType) UnitStats {
	return unitStats[u]
}

// BuildingType enumerates constructible buildings.
type BuildingType uint8

const (
	BuildingTownHall BuildingType = iota
	BuildingHouse
	BuildingFarm
	BuildingLumberCamp
	BuildingQuarry
	BuildingGoldMine
	BuildingBarracks
	BuildingTower
	BuildingFort
	BuildingStorehouse
	BuildingRoad
)

// AllBuildingTypes lists every building type in a stable order.
var AllBuildingTypes = [11]BuildingType{
	BuildingTownHall, BuildingHouse, BuildingFarm, BuildingLumberCamp,
	BuildingQuarry, BuildingGoldMine, BuildingBarracks, BuildingTower,
	BuildingFort, BuildingStorehouse, BuildingRoad,
}

// BuildingName returns a human-readable building label.
func BuildingName(b BuildingType) string {
	switch b {
	case BuildingTownHall:
		return "town hall"
	case BuildingHouse:
		return "house"
	case BuildingFarm:
		return "farm"
	case BuildingLumberCamp:
		return "lumber camp"
	case BuildingQuarry:
		return "quarry"
	case BuildingGoldMine:
		return "gold mine"
	case BuildingBarracks:
		return "barracks"
	case BuildingTower:
		return "tower"
	case BuildingFort:
		return "fort"
	case BuildingStorehouse:
		return "storehouse"
	case BuildingRoad:
		return "road"
	}
	return "unknown"
}

// BuildingStats describes one building type's rules numbers.
type BuildingStats struct {
	MaxHP        int
	VisionRange  int
	Cost         map[ResourceType]int
	BuildTime    uint64 // Ticks from start to operational
	UpgradeTime  uint64 // Ticks per level upgrade
	GarrisonCap  int    // Military units it can hold (0 = none)
	Passable     bool   // Units may walk through (roads)
	Gathers      ResourceType
	GatherCamp   bool // True for resource camps (farm, lumber camp, quarry, gold mine)
	MaxLevel     int

	// Occupied offsets relative to the origin tile at rotation 0.
	// hexmap.RotateOffset turns these for placements at other rotations.
	Footprint []hexmap.HexCoord
}

var buildingStats = map[BuildingType]BuildingStats{
	BuildingTownHall: {
		MaxHP: 1200, VisionRange: 6, BuildTime: 300, UpgradeTime: 600, MaxLevel: 3,
		Cost:      map[ResourceType]int{ResourceWood: 300, ResourceStone: 200},
		Footprint: []hexmap.HexCoord{{Q: 0, R: 0}, {Q: 1, R: 0}, {Q: 0, R: 1}},
	},
	BuildingHouse: {
		MaxHP: 250, VisionRange: 2, BuildTime: 60, UpgradeTime: 120, MaxLevel: 2,
		Cost:      map[ResourceType]int{ResourceWood: 60},
		Footprint: []hexmap.HexCoord{{Q: 0, R: 0}},
	},
	BuildingFarm: {
		MaxHP: 180, VisionRange: 2, BuildTime: 80, UpgradeTime: 160, MaxLevel: 3,
		Cost:       map[ResourceType]int{ResourceWood: 75},
		Gathers:    ResourceFood, GatherCamp: true,
		Footprint:  []hexmap.HexCoord{{Q: 0, R: 0}, {Q: 1, R: 0}},
	},
	BuildingLumberCamp: {
		MaxHP: 200, VisionRange: 3, BuildTime: 70, UpgradeTime: 140, MaxLevel: 3,
		Cost:      map[ResourceType]int{ResourceWood: 50},
		Gathers:   ResourceWood, GatherCamp: true,
		Footprint: []hexmap.HexCoord{{Q: 0, R: 0}},
	},
	BuildingQuarry: {
		MaxHP: 220, VisionRange: 3, BuildTime: 90, UpgradeTime: 180, MaxLevel: 3,
		Cost:      map[ResourceType]int{ResourceWood: 80},
		Gathers:   ResourceStone, GatherCamp: true,
		Footprint: []hexmap.HexCoord{{Q: 0, R: 0}},
	},
	BuildingGoldMine: {
		MaxHP: 220, VisionRange: 3, BuildTime: 100, UpgradeTime: 200, MaxLevel: 3,
		Cost:      map[ResourceType]int{ResourceWood: 100},
		Gathers:   ResourceGold, GatherCamp: true,
		Footprint: []hexmap.HexCoord{{Q: 0, R: 0}},
	},
	BuildingBarracks: {
		MaxHP: 500, VisionRange: 3, BuildTime: 150, UpgradeTime: 300, MaxLevel: 3,
		Cost:      map[ResourceType]int{ResourceWood: 175, ResourceStone: 50},
		Footprint: []hexmap.HexCoord{{Q: 0, R: 0}, {Q: 0, R: 1}},
	},
	BuildingTower: {
		MaxHP: 400, VisionRange: 8, BuildTime: 120, UpgradeTime: 240, MaxLevel: 3,
		Cost:        map[ResourceType]int{ResourceStone: 150},
		GarrisonCap: 8,
		Footprint:   []hexmap.HexCoord{{Q: 0, R: 0}},
	},
	BuildingFort: {
		MaxHP: 1500, VisionRange: 7, BuildTime: 400, UpgradeTime: 800, MaxLevel: 2,
		Cost:        map[ResourceType]int{ResourceStone: 400, ResourceWood: 150, ResourceGold: 100},
		GarrisonCap: 20,
		Footprint:   []hexmap.HexCoord{{Q: 0, R: 0}, {Q: 1, R: 0}, {Q: 0, R: 1}, {Q: 1, R: -1}},
	},
	BuildingStorehouse: {
		MaxHP: 350, VisionRange: 2, BuildTime: 100, UpgradeTime: 200, MaxLevel: 2,
		Cost:      map[ResourceType]int{ResourceWood: 120},
		Footprint: []hexmap.HexCoord{{Q: 0, R: 0}},
	},
	BuildingRoad: {
		MaxHP: 100, VisionRange: 1, BuildTime: 20, UpgradeTime: 40, MaxLevel: 1,
		Cost:      map[ResourceType]int{ResourceStone: 10},
		Passable:  true,
		Footprint: []hexmap.HexCoord{{Q: 0, R: 0}},
	},
}

// BuildingStatsFor returns the stats table entry for a building type.
func BuildingStatsFor(b BuildingType) BuildingStats {
	return buildingStats[b]
}

// ResearchID identifies a research option in the catalog.
type ResearchID string

// Research catalog entries. Effect keys are matched by the engines that
// apply the bonuses.
const (
	ResearchForestry      ResearchID = "forestry"       // +wood gather rate
	ResearchIrrigation    ResearchID = "irrigation"     // +food gather rate
	ResearchMasonry       ResearchID = "masonry"        // +building max HP
	ResearchFletching     ResearchID = "fletching"      // +pierce damage
	ResearchSwordsmithing ResearchID = "swordsmithing"  // +melee damage
	ResearchArmorPlating  ResearchID = "armor_plating"  // +all armor
	ResearchFortification ResearchID = "fortification"  // +entrenchment bonus
	ResearchConscription  ResearchID = "conscription"   // -train time
	ResearchCartography   ResearchID = "cartography"    // +vision range
	ResearchHorsemanship  ResearchID = "horsemanship"   // -move ticks
)

// ResearchCategory groups research options for AI scoring.
type ResearchCategory uint8

const (
	ResearchEconomic ResearchCategory = iota
	ResearchDefensive
	ResearchOffensive
	ResearchMobility
)

// ResearchStats describes one research option.
type ResearchStats struct {
	ID       ResearchID
	Tier     int // 1 = cheapest/earliest
	Category ResearchCategory
	Cost     map[ResourceType]int
	Time     uint64 // Ticks to complete
	Requires ResearchID // Empty = always unlocked
}

var researchCatalog = []ResearchStats{
	{ID: ResearchForestry, Tier: 1, Category: ResearchEconomic, Cost: map[ResourceType]int{ResourceFood: 100}, Time: 300},
	{ID: ResearchIrrigation, Tier: 1, Category: ResearchEconomic, Cost: map[ResourceType]int{ResourceWood: 100}, Time: 300},
	{ID: ResearchMasonry, Tier: 1, Category: ResearchDefensive, Cost: map[ResourceType]int{ResourceStone: 120}, Time: 400},
	{ID: ResearchFletching, Tier: 2, Category: ResearchOffensive, Cost: map[ResourceType]int{ResourceWood: 150, ResourceGold: 75}, Time: 450},
	{ID: ResearchSwordsmithing, Tier: 2, Category: ResearchOffensive, Cost: map[ResourceType]int{ResourceFood: 100, ResourceGold: 100}, Time: 450},
	{ID: ResearchArmorPlating, Tier: 2, Category: ResearchDefensive, Cost: map[ResourceType]int{ResourceGold: 150, ResourceStone: 100}, Time: 500, Requires: ResearchMasonry},
	{ID: ResearchFortification, Tier: 3, Category: ResearchDefensive, Cost: map[ResourceType]int{ResourceStone: 250, ResourceGold: 150}, Time: 600, Requires: ResearchMasonry},
	{ID: ResearchConscription, Tier: 2, Category: ResearchOffensive, Cost: map[ResourceType]int{ResourceFood: 200, ResourceGold: 100}, Time: 500},
	{ID: ResearchCartography, Tier: 1, Category: ResearchMobility, Cost: map[ResourceType]int{ResourceGold: 80}, Time: 350},
	{ID: ResearchHorsemanship, Tier: 3, Category: ResearchMobility, Cost: map[ResourceType]int{ResourceFood: 250, ResourceGold: 200}, Time: 600},
}

// ResearchCatalog returns the full catalog in a stable order.
func ResearchCatalog() []ResearchStats {
	return researchCatalog
}

// ResearchStatsFor returns the catalog entry for an id, if present.
func ResearchStatsFor(id ResearchID) (ResearchStats, bool) {
	for _, r := range researchCatalog {
		if r.ID == id {
			return r, true
		}
	}
	return ResearchStats{}, false
}
