package command

import (
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// StartResearch begins a research project. One project runs at a time
// per player; the cost is paid up front.
type StartResearch struct {
	Base
	Research world.ResearchID `json:"research"`
}

func (c StartResearch) Name() string { return "start_research" }

func (c StartResearch) Validate(ctx *sim.Context) Outcome {
	p, outcome := requirePlayer(ctx, c.Player)
	if !outcome.Succeeded {
		return outcome
	}
	stats, ok := world.ResearchStatsFor(c.Research)
	if !ok {
		return Failure("unknown research %q", c.Research)
	}
	if p.HasCompleted(c.Research) {
		return Failure("%s is already researched", c.Research)
	}
	if p.ActiveResearch != "" {
		return Failure("%s is already in progress", p.ActiveResearch)
	}
	if stats.Requires != "" && !p.HasCompleted(stats.Requires) {
		return Failure("%s requires %s", c.Research, stats.Requires)
	}
	if !p.CanAfford(stats.Cost) {
		return Failure("cannot afford %s", c.Research)
	}
	return Success()
}

func (c StartResearch) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	p := ctx.State.Players[c.Player]
	stats, _ := world.ResearchStatsFor(c.Research)
	p.Spend(stats.Cost)
	p.ActiveResearch = c.Research
	p.ResearchStartTick = ctx.Now()
	return Success(), nil
}

// CancelResearch abandons the active project with a full refund.
type CancelResearch struct {
	Base
}

func (c CancelResearch) Name() string { return "cancel_research" }

func (c CancelResearch) Validate(ctx *sim.Context) Outcome {
	p, outcome := requirePlayer(ctx, c.Player)
	if !outcome.Succeeded {
		return outcome
	}
	if p.ActiveResearch == "" {
		return Failure("no research in progress")
	}
	return Success()
}

func (c CancelResearch) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	p := ctx.State.Players[c.Player]
	if stats, ok := world.ResearchStatsFor(p.ActiveResearch); ok {
		p.Refund(stats.Cost)
	}
	p.ActiveResearch = ""
	p.ResearchStartTick = 0
	return Success(), nil
}
