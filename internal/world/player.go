package world

import "github.com/talgya/hexfront/internal/hexmap"

// Player holds one player's resources, diplomacy, research, and fog of war.
// AI players carry the same state as humans; the controller that issues
// their commands lives elsewhere.
type Player struct {
	ID   PlayerID `json:"id"`
	Name string   `json:"name"`
	AI   bool     `json:"ai"`

	// Resource balances and per-tick collection rates.
	Resources map[ResourceType]int     `json:"resources"`
	Rates     map[ResourceType]float64 `json:"rates"`

	// Fractional gathering remainders carried between ticks so integer
	// balances never lose accumulation to rounding.
	carry map[ResourceType]float64

	// Diplomacy keyed by the other player's id. Absent = neutral.
	Relations map[PlayerID]DiplomaticRelation `json:"relations"`

	// Fog of war: per-tile classification. Absent = unexplored.
	Fog map[hexmap.HexCoord]Visibility `json:"-"`

	// Research.
	CompletedResearch map[ResearchID]bool `json:"completed_research"`
	ActiveResearch    ResearchID          `json:"active_research"` // Empty = none
	ResearchStartTick uint64              `json:"research_start_tick"`

	// Home town hall. Armies retreat toward it.
	HomeBaseID BuildingID `json:"home_base_id"`
}

// NewPlayer creates a player with empty balances and unexplored fog.
func NewPlayer(id PlayerID, name string, ai bool) *Player {
	return &Player{
		ID:                id,
		Name:              name,
		AI:                ai,
		Resources:         make(map[ResourceType]int),
		Rates:             make(map[ResourceType]float64),
		carry:             make(map[ResourceType]float64),
		Relations:         make(map[PlayerID]DiplomaticRelation),
		Fog:               make(map[hexmap.HexCoord]Visibility),
		CompletedResearch: make(map[ResearchID]bool),
	}
}

// RelationTo returns the diplomatic relation toward another player.
func (p *Player) RelationTo(other PlayerID) DiplomaticRelation {
	if p.ID == other {
		return RelationNeutral
	}
	return p.Relations[other]
}

// IsEnemy reports whether the other player is a declared enemy.
func (p *Player) IsEnemy(other PlayerID) bool {
	return p.RelationTo(other) == RelationEnemy
}

// CanAfford reports whether the player holds at least the given cost.
func (p *Player) CanAfford(cost map[ResourceType]int) bool {
	for res, amount := range cost {
		if p.Resources[res] < amount {
			return false
		}
	}
	return true
}

// Spend deducts a cost the caller has already verified is affordable.
// Balances are clamped at zero so a races-free caller bug never goes
// negative.
func (p *Player) Spend(cost map[ResourceType]int) {
	for res, amount := range cost {
		p.Resources[res] -= amount
		if p.Resources[res] < 0 {
			p.Resources[res] = 0
		}
	}
}

// Refund credits a cost back (command cancellation).
func (p *Player) Refund(cost map[ResourceType]int) {
	for res, amount := range cost {
		p.Resources[res] += amount
	}
}

// Accrue credits rate-based income for elapsed ticks, carrying the
// fractional remainder so repeated small accruals do not round to zero.
func (p *Player) Accrue(res ResourceType, amount float64) int {
	if p.carry == nil {
		p.carry = make(map[ResourceType]float64)
	}
	total := p.carry[res] + amount
	whole := int(total)
	p.carry[res] = total - float64(whole)
	p.Resources[res] += whole
	return whole
}

// FogAt returns the tile classification, defaulting to unexplored.
func (p *Player) FogAt(coord hexmap.HexCoord) Visibility {
	return p.Fog[coord]
}

// HasCompleted reports whether a research option has been finished.
func (p *Player) HasCompleted(id ResearchID) bool {
	return p.CompletedResearch[id]
}
