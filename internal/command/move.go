package command

import (
	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/movement"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// Move orders an army to a destination. Moving an entrenched army
// cancels its entrenchment; callers must acknowledge that by setting
// BreakEntrenchment, otherwise validation fails with a warning reason
// so the caller can confirm before the bonus is lost.
type Move struct {
	Base
	ArmyID world.ArmyID    `json:"army_id"`
	Dest   hexmap.HexCoord `json:"dest"`

	BreakEntrenchment bool `json:"break_entrenchment,omitempty"`
}

func (c Move) Name() string { return "move" }

func (c Move) Validate(ctx *sim.Context) Outcome {
	a, outcome := requireOwnedArmy(ctx, c.Player, c.ArmyID)
	if !outcome.Succeeded {
		return outcome
	}
	if a.State == world.ArmyInCombat {
		return Failure("army %d is in combat", c.ArmyID)
	}
	if a.Entrenched && !c.BreakEntrenchment {
		return Failure("army %d is entrenched; moving will cancel entrenchment", c.ArmyID)
	}
	if ctx.State.Map.Get(c.Dest) == nil {
		return Failure("destination is off the map")
	}
	if !ctx.State.Walkable(c.Dest, c.Player) {
		return Failure("destination is not walkable")
	}
	return Success()
}

func (c Move) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	a := ctx.State.Armies[c.ArmyID]

	path := movement.FindPath(ctx, a.Coord, c.Dest, c.Player)
	if path == nil {
		// Engine decline, not an error: the caller falls back.
		return Failure("no path to destination"), nil
	}

	var events []sim.StateChange
	if a.Entrenched {
		a.Entrenched = false
		ev := sim.NewChange(ctx, sim.ChangeEntrenchmentCancelled, c.Player)
		ev.Coord = a.Coord
		ev.Entity = world.ArmyRef(a.ID)
		events = append(events, ev)
	}

	a.Path = path
	a.LastMoveTick = ctx.Now()
	return Success(), events
}

// Entrench digs an idle army in for a defensive bonus. Cancelled by any
// subsequent move order.
type Entrench struct {
	Base
	ArmyID world.ArmyID `json:"army_id"`
}

func (c Entrench) Name() string { return "entrench" }

func (c Entrench) Validate(ctx *sim.Context) Outcome {
	a, outcome := requireOwnedArmy(ctx, c.Player, c.ArmyID)
	if !outcome.Succeeded {
		return outcome
	}
	if a.State != world.ArmyIdle {
		return Failure("army %d is %s, only idle armies can entrench", c.ArmyID, world.ArmyStateName(a.State))
	}
	if a.Moving() {
		return Failure("army %d is moving", c.ArmyID)
	}
	if a.Entrenched {
		return Failure("army %d is already entrenched", c.ArmyID)
	}
	return Success()
}

func (c Entrench) Execute(ctx *sim.Context, deps *Deps) (Outcome, []sim.StateChange) {
	if outcome := c.Validate(ctx); !outcome.Succeeded {
		return outcome, nil
	}
	a := ctx.State.Armies[c.ArmyID]
	a.Entrenched = true
	a.EntrenchStartTick = ctx.Now()
	return Success(), nil
}
