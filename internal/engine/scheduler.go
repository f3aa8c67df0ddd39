package engine

import (
	"github.com/talgya/hexfront/internal/ai"
	"github.com/talgya/hexfront/internal/combat"
	"github.com/talgya/hexfront/internal/command"
	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/movement"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/vision"
	"github.com/talgya/hexfront/internal/world"
)

// maxEvents bounds the retained event history.
const maxEvents = 2048

// Scheduler wires the subsystems together and runs each at its own
// cadence. Everything runs on one goroutine: a subsystem invoked later
// in a tick sees the mutations of the ones before it.
type Scheduler struct {
	Ctx      *sim.Context
	Combat   *combat.Engine
	Mover    *movement.Mover
	Vision   *vision.Engine
	Pipeline *command.Pipeline

	Controllers []*ai.Controller

	// Events is the retained StateChange history, oldest first.
	Events []sim.StateChange

	lastRun map[string]uint64
}

// NewScheduler assembles the full subsystem stack over a context.
func NewScheduler(ctx *sim.Context) *Scheduler {
	combatEngine := combat.NewEngine()
	return &Scheduler{
		Ctx:      ctx,
		Combat:   combatEngine,
		Mover:    movement.NewMover(combatEngine),
		Vision:   vision.NewEngine(),
		Pipeline: command.NewPipeline(combatEngine),
		lastRun:  make(map[string]uint64),
	}
}

// AddAIController registers a controller for an AI player.
func (s *Scheduler) AddAIController(c *ai.Controller) {
	s.Controllers = append(s.Controllers, c)
}

// Dispatch runs one command through the pipeline, recording its events.
func (s *Scheduler) Dispatch(cmd command.Command) (command.Outcome, []sim.StateChange) {
	outcome, events := s.Pipeline.Dispatch(s.Ctx, cmd)
	s.record(events)
	return outcome, events
}

// Step advances the world to the given tick. Subsystem order is fixed:
// army upkeep, movement, combat, vision, then the economy systems and
// finally AI planning — later systems see earlier systems' effects.
func (s *Scheduler) Step(tick uint64) {
	s.Ctx.State.Tick = tick

	s.upkeepArmies()

	if s.due("movement", MovementInterval) {
		s.record(s.Mover.AdvanceArmies(s.Ctx))
		s.record(s.Mover.AdvanceGroups(s.Ctx))
		s.record(s.Mover.AdvanceReinforcements(s.Ctx))
	}
	if s.due("combat", CombatInterval) {
		s.record(s.Combat.StepAll(s.Ctx))
	}
	if s.due("vision", VisionInterval) {
		s.record(s.Vision.UpdateAll(s.Ctx))
	}
	if s.due("economy", EconomyInterval) {
		s.record(s.stepGathering())
		s.record(s.stepConstruction())
		s.record(s.stepTraining())
		s.record(s.stepResearch())
	}
	if s.due("ai", AIInterval) {
		for _, c := range s.Controllers {
			s.record(c.Step(s.Ctx, s.Pipeline))
		}
	}
}

// due is the pure last-run gate shared by every subsystem slot.
func (s *Scheduler) due(name string, interval uint64) bool {
	if !ai.Due(s.lastRun[name], s.Ctx.Now(), interval) {
		return false
	}
	s.lastRun[name] = s.Ctx.Now()
	return true
}

// upkeepArmies settles transient army states each tick: victors return
// to idle, retreaters get a path home and demobilize on arrival.
func (s *Scheduler) upkeepArmies() {
	st := s.Ctx.State
	for _, a := range st.Armies {
		switch a.State {
		case world.ArmyVictorious:
			a.State = world.ArmyIdle
		case world.ArmyRetreating:
			if a.Moving() {
				continue
			}
			home := st.Buildings[a.HomeBaseID]
			if home == nil || home.State == world.BuildingDestroyed {
				if p := st.Players[a.Owner]; p != nil {
					home = st.Buildings[p.HomeBaseID]
				}
			}
			if home == nil || home.State == world.BuildingDestroyed {
				a.State = world.ArmyIdle
				continue
			}
			if home.AdjacentTo(a.Coord) || home.OccupiesCoord(a.Coord) {
				a.State = world.ArmyIdle
				continue
			}
			dest, ok := retreatTile(s.Ctx, home, a.Owner)
			if !ok {
				a.State = world.ArmyIdle
				continue
			}
			if path := movement.FindPath(s.Ctx, a.Coord, dest, a.Owner); path != nil {
				a.Path = path
				a.LastMoveTick = s.Ctx.Now()
			} else {
				a.State = world.ArmyIdle
			}
		}
	}
}

func retreatTile(ctx *sim.Context, home *world.Building, mover world.PlayerID) (hexmap.HexCoord, bool) {
	for _, c := range home.Occupied {
		for _, n := range c.Neighbors() {
			if ctx.State.Walkable(n, mover) {
				return n, true
			}
		}
	}
	return hexmap.HexCoord{}, false
}

// record appends events to the bounded history.
func (s *Scheduler) record(events []sim.StateChange) {
	if len(events) == 0 {
		return
	}
	s.Events = append(s.Events, events...)
	if over := len(s.Events) - maxEvents; over > 0 {
		s.Events = append(s.Events[:0], s.Events[over:]...)
	}
}

// RecentEvents returns up to n most recent events, oldest first.
func (s *Scheduler) RecentEvents(n int) []sim.StateChange {
	if n <= 0 || n > len(s.Events) {
		n = len(s.Events)
	}
	return s.Events[len(s.Events)-n:]
}
