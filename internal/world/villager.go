package world

import "github.com/talgya/hexfront/internal/hexmap"

// VillagerGroup is a band of villagers sharing one task and position.
type VillagerGroup struct {
	ID    GroupID  `json:"id"`
	Owner PlayerID `json:"owner"`

	Coord hexmap.HexCoord `json:"coord"`
	Count int             `json:"count"`

	Task VillagerTask `json:"task"`

	// Target of the current task. Which field applies depends on Task:
	// gathering/hunting target a resource point, building/upgrading/
	// demolishing target a building, moving targets a coordinate.
	TargetCoord    hexmap.HexCoord `json:"target_coord"`
	TargetPointID  PointID         `json:"target_point_id"`
	TargetBuilding BuildingID      `json:"target_building"`

	// Movement.
	Path         []hexmap.HexCoord `json:"path,omitempty"`
	LastMoveTick uint64            `json:"last_move_tick"`

	// Gathering accrual bookkeeping for offline catch-up: tick the
	// current gather task was last credited.
	LastGatherTick uint64 `json:"last_gather_tick"`
}

// NewVillagerGroup creates an idle group.
func NewVillagerGroup(id GroupID, owner PlayerID, coord hexmap.HexCoord, count int) *VillagerGroup {
	return &VillagerGroup{
		ID:    id,
		Owner: owner,
		Coord: coord,
		Count: count,
		Task:  TaskIdle,
	}
}

// ClearTask resets the group to idle and drops all task targets.
func (g *VillagerGroup) ClearTask() {
	g.Task = TaskIdle
	g.TargetCoord = hexmap.HexCoord{}
	g.TargetPointID = 0
	g.TargetBuilding = 0
	g.Path = nil
}

// ApplyCasualties removes villagers, clamping at zero. Returns the
// number actually lost.
func (g *VillagerGroup) ApplyCasualties(n int) int {
	if n <= 0 {
		return 0
	}
	if n > g.Count {
		n = g.Count
	}
	g.Count -= n
	return n
}

// ResourcePointType enumerates gatherable/huntable map resources.
type ResourcePointType uint8

const (
	PointForest ResourcePointType = iota // Wood
	PointStoneOutcrop                    // Stone
	PointGoldVein                        // Gold
	PointBerryGrove                      // Food
	PointDeerHerd                        // Food, huntable (has HP)
)

// Yields returns the resource a point type produces.
func (t ResourcePointType) Yields() ResourceType {
	switch t {
	case PointForest:
		return ResourceWood
	case PointStoneOutcrop:
		return ResourceStone
	case PointGoldVein:
		return ResourceGold
	default:
		return ResourceFood
	}
}

// Huntable reports whether the point must be hunted down before
// gathering (deer herds).
func (t ResourcePointType) Huntable() bool {
	return t == PointDeerHerd
}

// ResourcePoint is a finite resource deposit on the map.
type ResourcePoint struct {
	ID   PointID           `json:"id"`
	Type ResourcePointType `json:"type"`

	Coord     hexmap.HexCoord `json:"coord"`
	Remaining int             `json:"remaining"`

	// HP for huntables; gatherable points keep 0.
	HP int `json:"hp"`

	// Gatherer groups currently assigned, capped at Capacity.
	AssignedGroups []GroupID `json:"assigned_groups,omitempty"`
	Capacity       int       `json:"capacity"`
}

// Depleted reports whether nothing remains to gather.
func (rp *ResourcePoint) Depleted() bool {
	return rp.Remaining <= 0
}

// HasCapacity reports whether another group may be assigned.
func (rp *ResourcePoint) HasCapacity() bool {
	return len(rp.AssignedGroups) < rp.Capacity
}

// Assign registers a gatherer group if not already present.
func (rp *ResourcePoint) Assign(id GroupID) {
	for _, g := range rp.AssignedGroups {
		if g == id {
			return
		}
	}
	rp.AssignedGroups = append(rp.AssignedGroups, id)
}

// Unassign removes a gatherer group.
func (rp *ResourcePoint) Unassign(id GroupID) {
	for i, g := range rp.AssignedGroups {
		if g == id {
			rp.AssignedGroups = append(rp.AssignedGroups[:i], rp.AssignedGroups[i+1:]...)
			return
		}
	}
}
