// Package movement computes hex paths and drives unit progress along
// them tick by tick, including mid-path interception by hostile forces.
package movement

import (
	"container/heap"

	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// elevationPenalty scales the extra cost of climbing between tiles.
// Elevation shapes cost but never blocks on its own.
const elevationPenalty = 2.0

// FindPath returns the cheapest walkable path from start to goal for a
// unit owned by mover, excluding the start tile and including the goal.
// A nil result means no path exists — that is a decline, not an error;
// callers fall back to direct assignment.
func FindPath(ctx *sim.Context, start, goal hexmap.HexCoord, mover world.PlayerID) []hexmap.HexCoord {
	if start == goal {
		return []hexmap.HexCoord{}
	}
	m := ctx.State.Map
	if m.Get(goal) == nil {
		return nil
	}
	// The goal itself must be enterable; intermediate tiles likewise.
	if !ctx.State.Walkable(goal, mover) {
		return nil
	}

	open := &pathHeap{}
	heap.Init(open)
	heap.Push(open, pathNode{coord: start, priority: 0})

	costSoFar := map[hexmap.HexCoord]float64{start: 0}
	cameFrom := map[hexmap.HexCoord]hexmap.HexCoord{}

	for open.Len() > 0 {
		current := heap.Pop(open).(pathNode).coord
		if current == goal {
			return reconstruct(cameFrom, start, goal)
		}
		curTile := m.Get(current)
		if curTile == nil {
			continue
		}
		for _, next := range current.Neighbors() {
			tile := m.Get(next)
			if tile == nil {
				continue
			}
			if next != goal && !ctx.State.Walkable(next, mover) {
				continue
			}
			stepCost := tile.Terrain.MoveCost()
			climb := tile.Elevation - curTile.Elevation
			if climb > 0 {
				stepCost += climb * elevationPenalty
			}
			newCost := costSoFar[current] + stepCost
			if old, seen := costSoFar[next]; !seen || newCost < old {
				costSoFar[next] = newCost
				cameFrom[next] = current
				heap.Push(open, pathNode{
					coord:    next,
					priority: newCost + float64(hexmap.Distance(next, goal)),
				})
			}
		}
	}
	return nil
}

// reconstruct walks cameFrom back from goal and reverses, dropping the
// start tile.
func reconstruct(cameFrom map[hexmap.HexCoord]hexmap.HexCoord, start, goal hexmap.HexCoord) []hexmap.HexCoord {
	var rev []hexmap.HexCoord
	for c := goal; c != start; c = cameFrom[c] {
		rev = append(rev, c)
	}
	path := make([]hexmap.HexCoord, 0, len(rev))
	for i := len(rev) - 1; i >= 0; i-- {
		path = append(path, rev[i])
	}
	return path
}

// pathNode is a heap entry for A*.
type pathNode struct {
	coord    hexmap.HexCoord
	priority float64
}

type pathHeap []pathNode

func (h pathHeap) Len() int            { return len(h) }
func (h pathHeap) Less(i, j int) bool  { return h[i].priority < h[j].priority }
func (h pathHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pathHeap) Push(x any)         { *h = append(*h, x.(pathNode)) }
func (h *pathHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
