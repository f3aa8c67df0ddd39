// Package ai drives non-human players. A doctrine of prioritized,
// expr-compiled rules reads the world each planning cycle and decides
// which planners run; the planners build, train, research, and fight
// by issuing the same commands a human would.
package ai

import (
	"fmt"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// Rule is one doctrine entry. Conditions compile to expr bytecode once;
// evaluation is allocation-light. An exclusive rule that fires blocks
// lower-priority rules in the same category for that cycle.
type Rule struct {
	Name         string
	Priority     int
	Category     string
	Exclusive    bool
	ConditionSrc string
	Action       string // Planner to run when the condition holds

	program *vm.Program
}

// Env is the read-only view a rule condition evaluates against. Every
// method is a pure function of the world at the start of the cycle.
type Env struct {
	ctx    *sim.Context
	player *world.Player
}

// Stock returns the current balance of a resource by name.
func (e Env) Stock(res string) int {
	return e.player.Resources[resourceByName(res)]
}

// Rate returns the per-tick collection rate of a resource by name.
func (e Env) Rate(res string) float64 {
	return e.player.Rates[resourceByName(res)]
}

// Strength sums the combat strength of all the player's armies.
func (e Env) Strength() int {
	total := 0
	for _, a := range e.ctx.State.ArmiesOf(e.player.ID) {
		total += a.Strength()
	}
	return total
}

// VisibleEnemyStrength sums the strength of enemy armies on currently
// visible tiles. Fog hides the rest; the AI plans on what it can see.
func (e Env) VisibleEnemyStrength() int {
	total := 0
	for _, a := range e.ctx.State.Armies {
		if a.Owner == e.player.ID || a.State == world.ArmyDestroyed {
			continue
		}
		if e.player.FogAt(a.Coord) == world.VisibilityVisible {
			total += a.Strength()
		}
	}
	return total
}

// ThreatLevel is visible enemy strength relative to own strength.
// 0 = no visible enemies; 1 = evenly matched.
func (e Env) ThreatLevel() float64 {
	enemy := e.VisibleEnemyStrength()
	if enemy == 0 {
		return 0
	}
	own := e.Strength()
	if own == 0 {
		return 10
	}
	return float64(enemy) / float64(own)
}

// UnderAttack reports whether any of the player's entities is a
// defender in an active combat.
func (e Env) UnderAttack() bool {
	for _, a := range e.ctx.State.ArmiesOf(e.player.ID) {
		if a.State == world.ArmyInCombat {
			return true
		}
	}
	for _, b := range e.ctx.State.BuildingsOf(e.player.ID) {
		if b.State == world.BuildingOperational && b.HP < b.MaxHP {
			return true
		}
	}
	return false
}

// IdleVillagers counts villagers in groups with no task.
func (e Env) IdleVillagers() int {
	total := 0
	for _, g := range e.ctx.State.GroupsOf(e.player.ID) {
		if g.Task == world.TaskIdle {
			total += g.Count
		}
	}
	return total
}

// IdleArmies counts idle, non-moving armies.
func (e Env) IdleArmies() int {
	total := 0
	for _, a := range e.ctx.State.ArmiesOf(e.player.ID) {
		if a.State == world.ArmyIdle && !a.Moving() {
			total++
		}
	}
	return total
}

// ArmyCount counts the player's live armies.
func (e Env) ArmyCount() int {
	return len(e.ctx.State.ArmiesOf(e.player.ID))
}

// BuildingCount counts operational buildings of a type by name.
func (e Env) BuildingCount(name string) int {
	typ, ok := buildingByName(name)
	if !ok {
		return 0
	}
	total := 0
	for _, b := range e.ctx.State.BuildingsOf(e.player.ID) {
		if b.Type == typ && b.State == world.BuildingOperational {
			total++
		}
	}
	return total
}

// ResearchActive reports whether a research project is running.
func (e Env) ResearchActive() bool {
	return e.player.ActiveResearch != ""
}

// GarrisonedUnits counts units sitting in garrisons.
func (e Env) GarrisonedUnits() int {
	total := 0
	for _, b := range e.ctx.State.BuildingsOf(e.player.ID) {
		total += b.Garrison.Count()
	}
	return total
}

// DefaultDoctrine is the stock rule set every AI player starts with.
// Posture rules are exclusive within the "posture" category so exactly
// one wins per cycle; planner rules gate which planners run.
func DefaultDoctrine() []*Rule {
	return []*Rule{
		// Posture selection, highest threat first.
		{
			Name:         "posture-retreat",
			Priority:     1000,
			Category:     "posture",
			Exclusive:    true,
			ConditionSrc: `ThreatLevel() > 2.0 && Strength() > 0`,
			Action:       ActionPostureRetreat,
		},
		{
			Name:         "posture-defense",
			Priority:     990,
			Category:     "posture",
			Exclusive:    true,
			ConditionSrc: `UnderAttack() || ThreatLevel() > 1.0`,
			Action:       ActionPostureDefense,
		},
		{
			Name:         "posture-attack",
			Priority:     980,
			Category:     "posture",
			Exclusive:    true,
			ConditionSrc: `ThreatLevel() > 0 && ThreatLevel() < 0.6 && ArmyCount() > 1`,
			Action:       ActionPostureAttack,
		},
		{
			Name:         "posture-alert",
			Priority:     970,
			Category:     "posture",
			Exclusive:    true,
			ConditionSrc: `ThreatLevel() > 0`,
			Action:       ActionPostureAlert,
		},
		{
			Name:         "posture-peace",
			Priority:     960,
			Category:     "posture",
			Exclusive:    true,
			ConditionSrc: `ThreatLevel() == 0`,
			Action:       ActionPosturePeace,
		},

		// Planner gating.
		{
			Name:         "run-economy",
			Priority:     800,
			Category:     "economy",
			Exclusive:    true,
			ConditionSrc: `IdleVillagers() > 0 || Stock("food") < 200 || Stock("wood") < 200`,
			Action:       ActionPlanEconomy,
		},
		{
			Name:         "run-defense",
			Priority:     700,
			Category:     "defense",
			Exclusive:    true,
			ConditionSrc: `UnderAttack() || ThreatLevel() > 0.5 || BuildingCount("tower") < 2`,
			Action:       ActionPlanDefense,
		},
		{
			Name:         "run-military",
			Priority:     600,
			Category:     "military",
			Exclusive:    true,
			ConditionSrc: `BuildingCount("barracks") > 0 || Stock("food") > 300`,
			Action:       ActionPlanMilitary,
		},
		{
			Name:         "run-research",
			Priority:     500,
			Category:     "research",
			Exclusive:    true,
			ConditionSrc: `!ResearchActive() && Stock("gold") > 80`,
			Action:       ActionPlanResearch,
		},
	}
}

// CompileRules compiles every condition and sorts by priority,
// descending. A rule that fails to compile fails the whole set — a
// doctrine is all-or-nothing.
func CompileRules(rules []*Rule) ([]*Rule, error) {
	for _, r := range rules {
		prog, err := expr.Compile(r.ConditionSrc, expr.Env(Env{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.Name, err)
		}
		r.program = prog
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].Priority > rules[j].Priority
	})
	return rules, nil
}

// evaluate runs the doctrine against the world and returns the actions
// whose rules fired, in priority order.
func evaluate(rules []*Rule, ctx *sim.Context, p *world.Player) []string {
	env := Env{ctx: ctx, player: p}
	fired := make(map[string]bool)
	var actions []string
	for _, r := range rules {
		if fired[r.Category] {
			continue
		}
		result, err := vm.Run(r.program, env)
		if err != nil {
			ctx.Log.Warn("rule condition error", "rule", r.Name, "error", err)
			continue
		}
		match, ok := result.(bool)
		if !ok || !match {
			continue
		}
		actions = append(actions, r.Action)
		if r.Exclusive {
			fired[r.Category] = true
		}
	}
	return actions
}

func resourceByName(name string) world.ResourceType {
	switch name {
	case "food":
		return world.ResourceFood
	case "wood":
		return world.ResourceWood
	case "stone":
		return world.ResourceStone
	default:
		return world.ResourceGold
	}
}

func buildingByName(name string) (world.BuildingType, bool) {
	for _, t := range world.AllBuildingTypes {
		if world.BuildingName(t) == name {
			return t, true
		}
	}
	return 0, false
}
