package world

import "github.com/talgya/hexfront/internal/hexmap"

// ArmyState is the per-army combat state machine:
// idle → inCombat → {victorious | destroyed | retreating} → idle.
type ArmyState uint8

const (
	ArmyIdle ArmyState = iota
	ArmyInCombat
	ArmyVictorious
	ArmyDestroyed
	ArmyRetreating
)

// ArmyStateName returns a human-readable state label.
func ArmyStateName(s ArmyState) string {
	switch s {
	case ArmyIdle:
		return "idle"
	case ArmyInCombat:
		return "in combat"
	case ArmyVictorious:
		return "victorious"
	case ArmyDestroyed:
		return "destroyed"
	case ArmyRetreating:
		return "retreating"
	}
	return "unknown"
}

// Commander leads an army and scales its combat output.
type Commander struct {
	ID         CommanderID `json:"id"`
	Owner      PlayerID    `json:"owner"`
	Name       string      `json:"name"`
	Leadership int         `json:"leadership"` // Scales offensive output
	Tactics    int         `json:"tactics"`    // Scales defensive mitigation
}

// Reinforcement is a unit delta marching toward an army. Columns live
// in the State registry, not on the target, so they outlive it: when
// the target dies mid-march the column turns around instead of
// vanishing with the army record. Intercepted reinforcements fight at
// reduced strength.
type Reinforcement struct {
	TargetID   ArmyID           `json:"target_id"`
	Units      map[UnitType]int `json:"units"`
	SourceID   BuildingID       `json:"source_id"` // Garrison to return to on failure
	ArriveTick uint64           `json:"arrive_tick"`
	Coord      hexmap.HexCoord  `json:"coord"`          // Current position while marching
	Path       []hexmap.HexCoord `json:"path,omitempty"` // Remaining tiles
}

// Army is a mobile military force at a single coordinate.
type Army struct {
	ID    ArmyID   `json:"id"`
	Owner PlayerID `json:"owner"`

	Coord hexmap.HexCoord `json:"coord"`

	// Commander is resolved through the State registry; zero = none.
	CommanderID CommanderID `json:"commander_id"`

	// Unit counts. Never negative — all mutation goes through AddUnits
	// and ApplyLosses, which clamp.
	Composition map[UnitType]int `json:"composition"`

	Entrenched        bool   `json:"entrenched"`
	EntrenchStartTick uint64 `json:"entrench_start_tick"`

	// Movement. Path holds the remaining tiles; empty = not moving.
	Path         []hexmap.HexCoord `json:"path,omitempty"`
	LastMoveTick uint64            `json:"last_move_tick"`

	State ArmyState `json:"state"`

	// Home base for retreats; zero = none.
	HomeBaseID BuildingID `json:"home_base_id"`
}

// NewArmy creates an idle army at the coordinate.
func NewArmy(id ArmyID, owner PlayerID, coord hexmap.HexCoord) *Army {
	return &Army{
		ID:          id,
		Owner:       owner,
		Coord:       coord,
		Composition: make(map[UnitType]int),
		State:       ArmyIdle,
	}
}

// TotalUnits returns the army's headcount.
func (a *Army) TotalUnits() int {
	total := 0
	for _, n := range a.Composition {
		total += n
	}
	return total
}

// Strength returns a scalar combat strength: per-unit HP plus total
// output across all channels, summed over the composition.
func (a *Army) Strength() int {
	total := 0
	for u, n := range a.Composition {
		if n <= 0 {
			continue
		}
		s := UnitStatsFor(u)
		perUnit := s.HP + s.Attack[0] + s.Attack[1] + s.Attack[2]
		total += perUnit * n
	}
	return total
}

// AddUnits merges unit deltas into the composition, ignoring
// non-positive counts.
func (a *Army) AddUnits(units map[UnitType]int) {
	for u, n := range units {
		if n > 0 {
			a.Composition[u] += n
		}
	}
}

// ApplyLosses removes casualties, clamping every count at zero.
// Returns the units actually removed.
func (a *Army) ApplyLosses(losses map[UnitType]int) map[UnitType]int {
	applied := make(map[UnitType]int)
	for u, n := range losses {
		if n <= 0 {
			continue
		}
		have := a.Composition[u]
		if n > have {
			n = have
		}
		if n > 0 {
			a.Composition[u] = have - n
			applied[u] = n
		}
	}
	return applied
}

// Moving reports whether the army has a path in progress.
func (a *Army) Moving() bool {
	return len(a.Path) > 0
}

// RangedUnits returns the composition entries that fire in the ranged
// phase.
func (a *Army) RangedUnits() map[UnitType]int {
	out := make(map[UnitType]int)
	for u, n := range a.Composition {
		if n > 0 && UnitStatsFor(u).Ranged {
			out[u] = n
		}
	}
	return out
}
