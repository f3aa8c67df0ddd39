// Package vision computes per-player fog of war: the union of every
// owned source's line-of-sight footprint, classified into the
// unexplored/explored/visible lattice and diffed against the previous
// tick.
package vision

import (
	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

const (
	// armyVisionRange is the fixed sight radius of any army.
	armyVisionRange = 4
	// villagerVisionRange is the smaller sight radius of villager groups.
	villagerVisionRange = 2
	// cartographyBonus extends every source's range once researched.
	cartographyBonus = 1
)

// Engine recomputes visibility and tracks the previous visible set per
// player so it can emit deltas.
type Engine struct {
	prevVisible map[world.PlayerID]map[hexmap.HexCoord]bool
}

// NewEngine creates a vision engine with no history.
func NewEngine() *Engine {
	return &Engine{prevVisible: make(map[world.PlayerID]map[hexmap.HexCoord]bool)}
}

// UpdateAll recomputes fog for every player and returns one
// fogOfWarUpdated event per player whose visible set changed.
func (e *Engine) UpdateAll(ctx *sim.Context) []sim.StateChange {
	var events []sim.StateChange
	for id := range ctx.State.Players {
		if ev, ok := e.UpdatePlayer(ctx, id); ok {
			events = append(events, ev)
		}
	}
	return events
}

// UpdatePlayer recomputes one player's visible set, applies the
// monotonic lattice transitions to their fog map, and returns the delta
// event if anything changed.
func (e *Engine) UpdatePlayer(ctx *sim.Context, id world.PlayerID) (sim.StateChange, bool) {
	p := ctx.State.Players[id]
	if p == nil {
		return sim.StateChange{}, false
	}

	visible := e.computeVisible(ctx, id)
	prev := e.prevVisible[id]

	var revealed, hidden []hexmap.HexCoord
	for coord := range visible {
		if !prev[coord] {
			revealed = append(revealed, coord)
		}
	}
	for coord := range prev {
		if !visible[coord] {
			hidden = append(hidden, coord)
		}
	}

	// Apply lattice transitions. Newly visible tiles become visible
	// (and therefore explored forever); tiles out of every footprint
	// fall back to explored, never to unexplored.
	for _, coord := range revealed {
		p.Fog[coord] = world.VisibilityVisible
	}
	for _, coord := range hidden {
		p.Fog[coord] = world.VisibilityExplored
	}

	e.prevVisible[id] = visible

	if len(revealed) == 0 && len(hidden) == 0 {
		return sim.StateChange{}, false
	}
	ev := sim.NewChange(ctx, sim.ChangeFogOfWarUpdated, id)
	ev.Revealed = revealed
	ev.Hidden = hidden
	return ev, true
}

// computeVisible unions the footprints of every vision source the
// player owns.
func (e *Engine) computeVisible(ctx *sim.Context, id world.PlayerID) map[hexmap.HexCoord]bool {
	visible := make(map[hexmap.HexCoord]bool)
	p := ctx.State.Players[id]
	bonus := 0
	if p != nil && p.HasCompleted(world.ResearchCartography) {
		bonus = cartographyBonus
	}

	for _, b := range ctx.State.BuildingsOf(id) {
		r := world.BuildingStatsFor(b.Type).VisionRange + bonus
		// Multi-tile buildings see from every occupied coordinate.
		for _, c := range b.Occupied {
			addFootprint(ctx, visible, c, r)
		}
	}
	for _, a := range ctx.State.ArmiesOf(id) {
		addFootprint(ctx, visible, a.Coord, armyVisionRange+bonus)
	}
	for _, g := range ctx.State.GroupsOf(id) {
		addFootprint(ctx, visible, g.Coord, villagerVisionRange+bonus)
	}
	return visible
}

// addFootprint marks every tile within range of source that passes the
// line-of-sight check.
func addFootprint(ctx *sim.Context, visible map[hexmap.HexCoord]bool, source hexmap.HexCoord, radius int) {
	for _, coord := range source.Spiral(radius) {
		if ctx.State.Map.Get(coord) == nil {
			continue
		}
		if visible[coord] {
			continue
		}
		if HasLineOfSight(ctx.State.Map, source, coord) {
			visible[coord] = true
		}
	}
}

// HasLineOfSight reports whether the straight hex line from source to
// target is free of sight-blocking terrain. The walk interpolates in
// cube coordinates and rounds each sample to the nearest hex; a blocker
// anywhere strictly between the endpoints interrupts visibility.
// Adjacent tiles are always visible regardless of blockers.
func HasLineOfSight(m *hexmap.Map, source, target hexmap.HexCoord) bool {
	if hexmap.Distance(source, target) <= 1 {
		return true
	}
	line := hexmap.Line(source, target)
	for _, coord := range line[1 : len(line)-1] {
		tile := m.Get(coord)
		if tile != nil && tile.Terrain.BlocksSight() {
			return false
		}
	}
	return true
}
