package sim

import (
	"github.com/google/uuid"

	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/world"
)

// ChangeKind enumerates the StateChange event variants.
type ChangeKind string

const (
	ChangeBuildingCompleted        ChangeKind = "buildingCompleted"
	ChangeBuildingDestroyed        ChangeKind = "buildingDestroyed"
	ChangeBuildingUpgradeCompleted ChangeKind = "buildingUpgradeCompleted"
	ChangeBuildingDemolished       ChangeKind = "buildingDemolished"
	ChangeResourcePointDepleted    ChangeKind = "resourcePointDepleted"
	ChangeFogOfWarUpdated          ChangeKind = "fogOfWarUpdated"
	ChangeCombatStarted            ChangeKind = "combatStarted"
	ChangeCombatEnded              ChangeKind = "combatEnded"
	ChangeVillagerCasualties       ChangeKind = "villagerCasualties"
	ChangeTrainingCompleted        ChangeKind = "trainingCompleted"
	ChangeVillagerTrainingDone     ChangeKind = "villagerTrainingCompleted"
	ChangeResearchCompleted        ChangeKind = "researchCompleted"
	ChangeArmyDestroyed            ChangeKind = "armyDestroyed"
	ChangeArmyRetreating           ChangeKind = "armyRetreating"
	ChangeEntrenchmentCancelled    ChangeKind = "entrenchmentCancelled"
	ChangeReinforcementsArrived    ChangeKind = "reinforcementsArrived"
)

// StateChange is an immutable record of a mutation that actually
// occurred, returned synchronously to whoever drove the mutation.
// External presentation and notification layers consume these; nothing
// inside the core subscribes to anything.
type StateChange struct {
	ID     string     `json:"id"`
	Kind   ChangeKind `json:"kind"`
	Tick   uint64     `json:"tick"`
	Player world.PlayerID `json:"player,omitempty"`

	// Optional payload fields; which are set depends on Kind.
	Coord    hexmap.HexCoord  `json:"coord,omitempty"`
	Entity   world.EntityRef  `json:"entity,omitempty"`
	Detail   string           `json:"detail,omitempty"`
	Units    map[world.UnitType]int `json:"units,omitempty"`
	Research world.ResearchID `json:"research,omitempty"`

	// Fog updates carry the coordinate deltas.
	Revealed []hexmap.HexCoord `json:"revealed,omitempty"`
	Hidden   []hexmap.HexCoord `json:"hidden,omitempty"`
}

// NewChange creates a StateChange stamped with a fresh id and the
// current tick.
func NewChange(c *Context, kind ChangeKind, player world.PlayerID) StateChange {
	return StateChange{
		ID:     uuid.NewString(),
		Kind:   kind,
		Tick:   c.Now(),
		Player: player,
	}
}
