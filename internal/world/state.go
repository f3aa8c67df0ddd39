package world

import (
	"github.com/talgya/hexfront/internal/hexmap"
)

// MaxEntitiesPerTile caps live mobile entities (armies + villager
// groups) standing on one tile.
const MaxEntitiesPerTile = 3

// State is the authoritative world model. Single writer: the command
// pipeline and the engines it delegates to.
type State struct {
	Map *hexmap.Map

	Players        map[PlayerID]*Player
	Buildings      map[BuildingID]*Building
	Armies         map[ArmyID]*Army
	VillagerGroups map[GroupID]*VillagerGroup
	ResourcePoints map[PointID]*ResourcePoint
	Commanders     map[CommanderID]*Commander

	// Reinforcement columns in transit. Stored here rather than on the
	// target army so a column survives its target's destruction.
	Reinforcements []*Reinforcement

	// Monotonic simulation clock, in ticks.
	Tick uint64

	// Derived: coordinate → building occupying it. Rebuilt on load,
	// maintained incrementally during play.
	occupancy map[hexmap.HexCoord]BuildingID

	nextID uint64
}

// NewState creates an empty world on the given map.
func NewState(m *hexmap.Map) *State {
	return &State{
		Map:            m,
		Players:        make(map[PlayerID]*Player),
		Buildings:      make(map[BuildingID]*Building),
		Armies:         make(map[ArmyID]*Army),
		VillagerGroups: make(map[GroupID]*VillagerGroup),
		ResourcePoints: make(map[PointID]*ResourcePoint),
		Commanders:     make(map[CommanderID]*Commander),
		occupancy:      make(map[hexmap.HexCoord]BuildingID),
		nextID:         1,
	}
}

// NextID allocates a fresh entity id, unique across all entity kinds.
func (s *State) NextID() uint64 {
	id := s.nextID
	s.nextID++
	return id
}

// PeekNextID returns the next id the allocator would hand out, without
// consuming it. Persistence saves it so loads can restore the counter.
func (s *State) PeekNextID() uint64 {
	return s.nextID
}

// SetNextID bumps the allocator above ids restored from a save.
func (s *State) SetNextID(min uint64) {
	if min > s.nextID {
		s.nextID = min
	}
}

// AddPlayer registers a player.
func (s *State) AddPlayer(p *Player) {
	s.Players[p.ID] = p
}

// AddBuilding registers a building and claims its occupied tiles.
func (s *State) AddBuilding(b *Building) {
	s.Buildings[b.ID] = b
	for _, c := range b.Occupied {
		s.occupancy[c] = b.ID
	}
}

// RemoveBuilding drops a building and releases its tiles.
func (s *State) RemoveBuilding(id BuildingID) {
	b, ok := s.Buildings[id]
	if !ok {
		return
	}
	for _, c := range b.Occupied {
		if s.occupancy[c] == id {
			delete(s.occupancy, c)
		}
	}
	delete(s.Buildings, id)
}

// AddArmy registers an army.
func (s *State) AddArmy(a *Army) {
	s.Armies[a.ID] = a
}

// RemoveArmy drops an army.
func (s *State) RemoveArmy(id ArmyID) {
	delete(s.Armies, id)
}

// AddVillagerGroup registers a villager group.
func (s *State) AddVillagerGroup(g *VillagerGroup) {
	s.VillagerGroups[g.ID] = g
}

// RemoveVillagerGroup drops a villager group and unassigns it from any
// resource point.
func (s *State) RemoveVillagerGroup(id GroupID) {
	g, ok := s.VillagerGroups[id]
	if !ok {
		return
	}
	if g.TargetPointID != 0 {
		if rp := s.ResourcePoints[g.TargetPointID]; rp != nil {
			rp.Unassign(id)
		}
	}
	delete(s.VillagerGroups, id)
}

// AddResourcePoint registers a resource point.
func (s *State) AddResourcePoint(rp *ResourcePoint) {
	s.ResourcePoints[rp.ID] = rp
}

// RemoveResourcePoint drops a depleted point and clears gatherer tasks
// pointing at it.
func (s *State) RemoveResourcePoint(id PointID) {
	rp, ok := s.ResourcePoints[id]
	if !ok {
		return
	}
	for _, gid := range rp.AssignedGroups {
		if g := s.VillagerGroups[gid]; g != nil && g.TargetPointID == id {
			g.ClearTask()
		}
	}
	delete(s.ResourcePoints, id)
}

// AddCommander registers a commander.
func (s *State) AddCommander(c *Commander) {
	s.Commanders[c.ID] = c
}

// AddReinforcement registers a marching reinforcement column.
func (s *State) AddReinforcement(r *Reinforcement) {
	s.Reinforcements = append(s.Reinforcements, r)
}

// FreeCommanderOf returns the player's lowest-id commander not already
// leading a live army, or nil when every commander is committed.
func (s *State) FreeCommanderOf(owner PlayerID) *Commander {
	leading := make(map[CommanderID]bool)
	for _, a := range s.Armies {
		if a.State != ArmyDestroyed && a.CommanderID != 0 {
			leading[a.CommanderID] = true
		}
	}
	var free *Commander
	for _, c := range s.Commanders {
		if c.Owner != owner || leading[c.ID] {
			continue
		}
		if free == nil || c.ID < free.ID {
			free = c
		}
	}
	return free
}

// BuildingAt returns the building occupying a coordinate, or nil.
func (s *State) BuildingAt(coord hexmap.HexCoord) *Building {
	id, ok := s.occupancy[coord]
	if !ok {
		return nil
	}
	return s.Buildings[id]
}

// RebuildOccupancy recomputes the derived tile-occupancy index from the
// building registry, e.g. after rehydrating a save.
func (s *State) RebuildOccupancy() {
	s.occupancy = make(map[hexmap.HexCoord]BuildingID)
	for id, b := range s.Buildings {
		if b.State == BuildingDestroyed {
			continue
		}
		for _, c := range b.Occupied {
			s.occupancy[c] = id
		}
	}
}

// MobileEntitiesAt counts armies and villager groups standing on a tile.
func (s *State) MobileEntitiesAt(coord hexmap.HexCoord) int {
	n := 0
	for _, a := range s.Armies {
		if a.Coord == coord && a.State != ArmyDestroyed {
			n++
		}
	}
	for _, g := range s.VillagerGroups {
		if g.Coord == coord && g.Count > 0 {
			n++
		}
	}
	return n
}

// Walkable reports whether a unit owned by the player can enter the
// coordinate: terrain must allow it, buildings block unless passable
// (roads) or owned by the mover, and the per-tile entity cap applies.
func (s *State) Walkable(coord hexmap.HexCoord, mover PlayerID) bool {
	tile := s.Map.Get(coord)
	if tile == nil || !tile.Terrain.Walkable() {
		return false
	}
	if b := s.BuildingAt(coord); b != nil {
		stats := BuildingStatsFor(b.Type)
		if !stats.Passable && b.Owner != mover {
			return false
		}
		if !stats.Passable && b.Owner == mover && b.Type != BuildingRoad {
			// Own buildings still block; only roads are passable.
			return false
		}
	}
	return s.MobileEntitiesAt(coord) < MaxEntitiesPerTile
}

// HostileArmyAt returns an enemy army standing on the coordinate, or nil.
func (s *State) HostileArmyAt(coord hexmap.HexCoord, mover PlayerID) *Army {
	p := s.Players[mover]
	if p == nil {
		return nil
	}
	for _, a := range s.Armies {
		if a.Coord == coord && a.State != ArmyDestroyed && a.Owner != mover && p.IsEnemy(a.Owner) {
			return a
		}
	}
	return nil
}

// ArmiesOf returns all live armies owned by a player.
func (s *State) ArmiesOf(owner PlayerID) []*Army {
	var out []*Army
	for _, a := range s.Armies {
		if a.Owner == owner && a.State != ArmyDestroyed {
			out = append(out, a)
		}
	}
	return out
}

// BuildingsOf returns all non-destroyed buildings owned by a player.
func (s *State) BuildingsOf(owner PlayerID) []*Building {
	var out []*Building
	for _, b := range s.Buildings {
		if b.Owner == owner && b.State != BuildingDestroyed {
			out = append(out, b)
		}
	}
	return out
}

// GroupsOf returns all villager groups owned by a player.
func (s *State) GroupsOf(owner PlayerID) []*VillagerGroup {
	var out []*VillagerGroup
	for _, g := range s.VillagerGroups {
		if g.Owner == owner && g.Count > 0 {
			out = append(out, g)
		}
	}
	return out
}
