// Package command is the only legal way to mutate world state from the
// outside: typed commands validate against the world without mutating,
// then execute and return the StateChange events for what actually
// happened. Human input and AI planners construct the same types.
package command

import (
	"fmt"

	"github.com/talgya/hexfront/internal/combat"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// Outcome is a command result: either success, or a human-readable
// reason the command was illegal. Validation failures are never fatal
// and never mutate.
type Outcome struct {
	Succeeded     bool   `json:"succeeded"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// Success returns a succeeding outcome.
func Success() Outcome {
	return Outcome{Succeeded: true}
}

// Failure returns a failing outcome with a formatted reason.
func Failure(format string, args ...any) Outcome {
	return Outcome{FailureReason: fmt.Sprintf(format, args...)}
}

// Deps carries the engines a command execution may delegate to.
type Deps struct {
	Combat *combat.Engine
}

// Command is a discrete player or AI intent. Validate checks legality
// without mutation; Execute revalidates first, so a failing Execute
// behaves identically to a failing Validate — no partial mutation ever
// escapes.
type Command interface {
	Name() string
	Actor() world.PlayerID
	Validate(ctx *sim.Context) Outcome
	Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange)
}

// Pipeline dispatches commands and logs their outcomes.
type Pipeline struct {
	Deps Deps
}

// NewPipeline creates a pipeline over the given combat engine.
func NewPipeline(combatEngine *combat.Engine) *Pipeline {
	return &Pipeline{Deps: Deps{Combat: combatEngine}}
}

// Dispatch validates and executes a command, returning its outcome and
// the state changes it produced.
func (p *Pipeline) Dispatch(ctx *sim.Context, cmd Command) (Outcome, []sim.StateChange) {
	if outcome := cmd.Validate(ctx); !outcome.Succeeded {
		ctx.Log.Debug("command rejected",
			"command", cmd.Name(),
			"actor", cmd.Actor(),
			"reason", outcome.FailureReason,
		)
		return outcome, nil
	}
	outcome, events := cmd.Execute(ctx, &p.Deps)
	if outcome.Succeeded {
		ctx.Log.Info("command executed",
			"command", cmd.Name(),
			"actor", cmd.Actor(),
			"events", len(events),
		)
	} else {
		ctx.Log.Debug("command failed in execute",
			"command", cmd.Name(),
			"actor", cmd.Actor(),
			"reason", outcome.FailureReason,
		)
	}
	return outcome, events
}

// Base carries the identity and timestamp every command shares.
type Base struct {
	Player world.PlayerID `json:"player"`
	Issued uint64         `json:"issued"` // Tick the command was created
}

// Actor returns the issuing player.
func (b Base) Actor() world.PlayerID {
	return b.Player
}

// requirePlayer resolves the acting player or fails.
func requirePlayer(ctx *sim.Context, id world.PlayerID) (*world.Player, Outcome) {
	p := ctx.State.Players[id]
	if p == nil {
		return nil, Failure("player %d does not exist", id)
	}
	return p, Success()
}

// requireOwnedArmy resolves an army and checks ownership.
func requireOwnedArmy(ctx *sim.Context, actor world.PlayerID, id world.ArmyID) (*world.Army, Outcome) {
	a := ctx.State.Armies[id]
	if a == nil || a.State == world.ArmyDestroyed {
		return nil, Failure("army %d does not exist", id)
	}
	if a.Owner != actor {
		return nil, Failure("army %d is not yours", id)
	}
	return a, Success()
}

// requireOwnedBuilding resolves a building and checks ownership.
func requireOwnedBuilding(ctx *sim.Context, actor world.PlayerID, id world.BuildingID) (*world.Building, Outcome) {
	b := ctx.State.Buildings[id]
	if b == nil || b.State == world.BuildingDestroyed {
		return nil, Failure("building %d does not exist", id)
	}
	if b.Owner != actor {
		return nil, Failure("building %d is not yours", id)
	}
	return b, Success()
}

// requireOwnedGroup resolves a villager group and checks ownership.
func requireOwnedGroup(ctx *sim.Context, actor world.PlayerID, id world.GroupID) (*world.VillagerGroup, Outcome) {
	g := ctx.State.VillagerGroups[id]
	if g == nil || g.Count == 0 {
		return nil, Failure("villager group %d does not exist", id)
	}
	if g.Owner != actor {
		return nil, Failure("villager group %d is not yours", id)
	}
	return g, Success()
}
