package world

import (
	"fmt"

	"github.com/talgya/hexfront/internal/hexmap"
)

// EntityKind is the closed set of entity kinds a command or combat
// target can reference. New kinds extend this enum and every switch
// over it; there is no open-ended interface to cast through.
type EntityKind uint8

const (
	EntityArmy EntityKind = iota
	EntityBuilding
	EntityVillagerGroup
	EntityResourcePoint
)

// EntityRef is a tagged reference into the State registries.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   uint64     `json:"id"`
}

// ArmyRef builds a reference to an army.
func ArmyRef(id ArmyID) EntityRef {
	return EntityRef{Kind: EntityArmy, ID: uint64(id)}
}

// BuildingRef builds a reference to a building.
func BuildingRef(id BuildingID) EntityRef {
	return EntityRef{Kind: EntityBuilding, ID: uint64(id)}
}

// GroupRef builds a reference to a villager group.
func GroupRef(id GroupID) EntityRef {
	return EntityRef{Kind: EntityVillagerGroup, ID: uint64(id)}
}

// PointRef builds a reference to a resource point.
func PointRef(id PointID) EntityRef {
	return EntityRef{Kind: EntityResourcePoint, ID: uint64(id)}
}

// String renders the reference for logs.
func (r EntityRef) String() string {
	switch r.Kind {
	case EntityArmy:
		return fmt.Sprintf("army:%d", r.ID)
	case EntityBuilding:
		return fmt.Sprintf("building:%d", r.ID)
	case EntityVillagerGroup:
		return fmt.Sprintf("group:%d", r.ID)
	case EntityResourcePoint:
		return fmt.Sprintf("point:%d", r.ID)
	}
	return fmt.Sprintf("unknown:%d", r.ID)
}

// Resolve looks the reference up and reports whether it still exists.
// Each kind returns through its own accessor so callers switch
// exhaustively instead of type-asserting.
func (s *State) Resolve(ref EntityRef) (exists bool) {
	switch ref.Kind {
	case EntityArmy:
		_, ok := s.Armies[ArmyID(ref.ID)]
		return ok
	case EntityBuilding:
		_, ok := s.Buildings[BuildingID(ref.ID)]
		return ok
	case EntityVillagerGroup:
		_, ok := s.VillagerGroups[GroupID(ref.ID)]
		return ok
	case EntityResourcePoint:
		_, ok := s.ResourcePoints[PointID(ref.ID)]
		return ok
	}
	return false
}

// OwnerOf returns the owning player of a referenced entity. Resource
// points are unowned and report false.
func (s *State) OwnerOf(ref EntityRef) (PlayerID, bool) {
	switch ref.Kind {
	case EntityArmy:
		if a, ok := s.Armies[ArmyID(ref.ID)]; ok {
			return a.Owner, true
		}
	case EntityBuilding:
		if b, ok := s.Buildings[BuildingID(ref.ID)]; ok {
			return b.Owner, true
		}
	case EntityVillagerGroup:
		if g, ok := s.VillagerGroups[GroupID(ref.ID)]; ok {
			return g.Owner, true
		}
	case EntityResourcePoint:
		return 0, false
	}
	return 0, false
}

// CoordOf returns the position of a referenced entity. Buildings report
// their origin tile.
func (s *State) CoordOf(ref EntityRef) (hexmap.HexCoord, bool) {
	switch ref.Kind {
	case EntityArmy:
		if a, ok := s.Armies[ArmyID(ref.ID)]; ok {
			return a.Coord, true
		}
	case EntityBuilding:
		if b, ok := s.Buildings[BuildingID(ref.ID)]; ok {
			return b.Origin, true
		}
	case EntityVillagerGroup:
		if g, ok := s.VillagerGroups[GroupID(ref.ID)]; ok {
			return g.Coord, true
		}
	case EntityResourcePoint:
		if rp, ok := s.ResourcePoints[PointID(ref.ID)]; ok {
			return rp.Coord, true
		}
	}
	return hexmap.HexCoord{}, false
}
