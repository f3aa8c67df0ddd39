package ai

import (
	"github.com/talgya/hexfront/internal/command"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// Posture is the AI's high-level stance. It biases every planner:
// what gets built, whether armies push out or dig in.
type Posture uint8

const (
	PosturePeaceful Posture = iota
	PostureAlerted
	PostureDefending
	PostureAttacking
	PostureRetreating
)

// PostureName returns a human-readable posture label.
func PostureName(p Posture) string {
	switch p {
	case PosturePeaceful:
		return "peace"
	case PostureAlerted:
		return "alert"
	case PostureDefending:
		return "defense"
	case PostureAttacking:
		return "attack"
	case PostureRetreating:
		return "retreat"
	}
	return "unknown"
}

// Doctrine action identifiers. Posture actions set the stance; plan
// actions run a planner (subject to its cooldown).
const (
	ActionPosturePeace   = "posture.peace"
	ActionPostureAlert   = "posture.alert"
	ActionPostureDefense = "posture.defense"
	ActionPostureAttack  = "posture.attack"
	ActionPostureRetreat = "posture.retreat"

	ActionPlanEconomy  = "plan.economy"
	ActionPlanMilitary = "plan.military"
	ActionPlanDefense  = "plan.defense"
	ActionPlanResearch = "plan.research"
)

// Planner cooldowns in ticks. Economy reacts fastest; research is the
// slowest burn.
const (
	economyInterval  = 20
	militaryInterval = 40
	defenseInterval  = 30
	researchInterval = 100
)

// Due is the pure cooldown check every planner gate goes through:
// true when at least interval ticks have passed since last, or when
// the planner has never run.
func Due(last, now, interval uint64) bool {
	if last == 0 {
		return true
	}
	return now-last >= interval
}

// Controller runs one AI player. It holds no world state of its own
// beyond scheduling bookkeeping; everything it decides is re-derived
// from the world each cycle.
type Controller struct {
	Player  world.PlayerID
	Posture Posture

	rules   []*Rule
	lastRun map[string]uint64 // action id → tick
}

// NewController creates a controller over a compiled doctrine.
func NewController(player world.PlayerID, rules []*Rule) *Controller {
	return &Controller{
		Player:  player,
		rules:   rules,
		lastRun: make(map[string]uint64),
	}
}

// NewDefaultController compiles the stock doctrine for a player.
func NewDefaultController(player world.PlayerID) (*Controller, error) {
	rules, err := CompileRules(DefaultDoctrine())
	if err != nil {
		return nil, err
	}
	return NewController(player, rules), nil
}

// Step runs one planning cycle: evaluate the doctrine, apply the
// winning posture, then run each fired planner that is off cooldown.
// Returns the state changes produced by the commands it issued.
func (c *Controller) Step(ctx *sim.Context, pipe *command.Pipeline) []sim.StateChange {
	p := ctx.State.Players[c.Player]
	if p == nil || !p.AI {
		return nil
	}

	var events []sim.StateChange
	for _, action := range evaluate(c.rules, ctx, p) {
		if posture, ok := postureFor(action); ok {
			if posture != c.Posture {
				ctx.Log.Debug("ai posture change",
					"player", c.Player,
					"from", PostureName(c.Posture),
					"to", PostureName(posture),
				)
				c.Posture = posture
			}
			continue
		}

		interval := plannerInterval(action)
		if !Due(c.lastRun[action], ctx.Now(), interval) {
			continue
		}
		c.lastRun[action] = ctx.Now()

		switch action {
		case ActionPlanEconomy:
			events = append(events, c.planEconomy(ctx, pipe)...)
		case ActionPlanMilitary:
			events = append(events, c.planMilitary(ctx, pipe)...)
		case ActionPlanDefense:
			events = append(events, c.planDefense(ctx, pipe)...)
		case ActionPlanResearch:
			events = append(events, c.planResearch(ctx, pipe)...)
		}
	}
	return events
}

func postureFor(action string) (Posture, bool) {
	switch action {
	case ActionPosturePeace:
		return PosturePeaceful, true
	case ActionPostureAlert:
		return PostureAlerted, true
	case ActionPostureDefense:
		return PostureDefending, true
	case ActionPostureAttack:
		return PostureAttacking, true
	case ActionPostureRetreat:
		return PostureRetreating, true
	}
	return 0, false
}

func plannerInterval(action string) uint64 {
	switch action {
	case ActionPlanEconomy:
		return economyInterval
	case ActionPlanMilitary:
		return militaryInterval
	case ActionPlanDefense:
		return defenseInterval
	case ActionPlanResearch:
		return researchInterval
	}
	return economyInterval
}

// dispatch issues a command, collecting events on success. Failures
// are expected — planners probe with the same validation surface as
// humans — so they only log at debug level via the pipeline.
func (c *Controller) dispatch(ctx *sim.Context, pipe *command.Pipeline, cmd command.Command) ([]sim.StateChange, bool) {
	outcome, events := pipe.Dispatch(ctx, cmd)
	return events, outcome.Succeeded
}
