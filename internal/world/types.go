// Package world provides the authoritative mutable world model: players,
// buildings, armies, villager groups, resource points, and the simulation
// clock. Every mutation happens through the command pipeline or an engine
// it delegates to — nothing else writes here.
package world

// Typed entity identifiers. Entities reference each other by id and
// resolve through the State registries, never by direct pointer.
type (
	PlayerID    uint64
	BuildingID  uint64
	ArmyID      uint64
	GroupID     uint64
	PointID     uint64
	CommanderID uint64
)

// ResourceType enumerates the stockpiled resources.
type ResourceType uint8

const (
	ResourceFood ResourceType = iota
	ResourceWood
	ResourceStone
	ResourceGold
)

// AllResources lists every resource type in a stable order.
var AllResources = [4]ResourceType{ResourceFood, ResourceWood, ResourceStone, ResourceGold}

// ResourceName returns a human-readable resource label.
func ResourceName(r ResourceType) string {
	switch r {
	case ResourceFood:
		return "food"
	case ResourceWood:
		return "wood"
	case ResourceStone:
		return "stone"
	case ResourceGold:
		return "gold"
	}
	return "unknown"
}

// UnitType enumerates the military unit roster.
type UnitType uint8

const (
	UnitSwordsman UnitType = iota // Melee line infantry
	UnitArcher                    // Ranged, garrisons towers
	UnitMaceman                   // Bludgeon shock infantry
	UnitKnight                    // Fast melee cavalry
	UnitCatapult                  // Siege, ranged, bludgeon
)

// AllUnitTypes lists every unit type in a stable order.
var AllUnitTypes = [5]UnitType{UnitSwordsman, UnitArcher, UnitMaceman, UnitKnight, UnitCatapult}

// UnitName returns a human-readable unit label.
func UnitName(u UnitType) string {
	switch u {
	case UnitSwordsman:
		return "swordsman"
	case UnitArcher:
		return "archer"
	case UnitMaceman:
		return "maceman"
	case UnitKnight:
		return "knight"
	case UnitCatapult:
		return "catapult"
	}
	return "unknown"
}

// DamageChannel enumerates the three damage/armor channels.
type DamageChannel uint8

const (
	ChannelMelee DamageChannel = iota
	ChannelPierce
	ChannelBludgeon
)

// AllChannels lists the damage channels in a stable order.
var AllChannels = [3]DamageChannel{ChannelMelee, ChannelPierce, ChannelBludgeon}

// DiplomaticRelation describes how one player regards another.
type DiplomaticRelation uint8

const (
	RelationNeutral DiplomaticRelation = iota
	RelationEnemy
)

// Visibility is the per-tile, per-player fog-of-war classification.
// Transitions are monotonic: unexplored → explored is permanent, and
// visible always falls back to explored, never to unexplored.
type Visibility uint8

const (
	VisibilityUnexplored Visibility = iota // Never seen
	VisibilityExplored                     // Seen before, not currently
	VisibilityVisible                      // Currently in a vision footprint
)

// VillagerTask enumerates what a villager group is doing.
type VillagerTask uint8

const (
	TaskIdle VillagerTask = iota
	TaskGathering
	TaskBuilding
	TaskUpgrading
	TaskDemolishing
	TaskHunting
	TaskMoving
)

// TaskName returns a human-readable task label.
func TaskName(t VillagerTask) string {
	switch t {
	case TaskIdle:
		return "idle"
	case TaskGathering:
		return "gathering"
	case TaskBuilding:
		return "building"
	case TaskUpgrading:
		return "upgrading"
	case TaskDemolishing:
		return "demolishing"
	case TaskHunting:
		return "hunting"
	case TaskMoving:
		return "moving"
	}
	return "unknown"
}
