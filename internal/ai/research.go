package ai

import (
	"github.com/talgya/hexfront/internal/command"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// planResearch picks one research project by weighted score. Options
// the player cannot afford right now are excluded entirely rather than
// down-weighted — saving toward a project the doctrine wants is the
// economy planner's job, not this one's.
func (c *Controller) planResearch(ctx *sim.Context, pipe *command.Pipeline) []sim.StateChange {
	p := ctx.State.Players[c.Player]
	if p.ActiveResearch != "" {
		return nil
	}

	var best world.ResearchStats
	bestScore := 0.0
	for _, r := range world.ResearchCatalog() {
		if p.HasCompleted(r.ID) {
			continue
		}
		if r.Requires != "" && !p.HasCompleted(r.Requires) {
			continue
		}
		if !p.CanAfford(r.Cost) {
			continue
		}
		if score := c.researchScore(r); score > bestScore {
			bestScore = score
			best = r
		}
	}
	if bestScore == 0 {
		return nil
	}
	if ev, ok := c.dispatch(ctx, pipe, command.StartResearch{
		Base:     command.Base{Player: c.Player, Issued: ctx.Now()},
		Research: best.ID,
	}); ok {
		return ev
	}
	return nil
}

// researchScore favors cheap, low-tier options and boosts the category
// matching the current posture.
func (c *Controller) researchScore(r world.ResearchStats) float64 {
	totalCost := 0
	for _, amount := range r.Cost {
		totalCost += amount
	}
	if totalCost == 0 {
		totalCost = 1
	}
	score := 1000.0 / float64(totalCost*r.Tier)

	switch {
	case c.Posture == PostureAttacking && r.Category == world.ResearchOffensive:
		score *= 2
	case (c.Posture == PostureDefending || c.Posture == PostureAlerted) && r.Category == world.ResearchDefensive:
		score *= 2
	case c.Posture == PosturePeaceful && r.Category == world.ResearchEconomic:
		score *= 2
	case c.Posture == PostureRetreating && r.Category == world.ResearchMobility:
		score *= 1.5
	}
	return score
}
