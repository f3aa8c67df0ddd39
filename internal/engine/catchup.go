package engine

import (
	"time"

	"github.com/talgya/hexfront/internal/sim"
)

// DefaultMaxOffline caps how much absent time is credited on resume.
const DefaultMaxOffline = 8 * time.Hour

// CatchUp settles offline time in one closed-form pass instead of
// replaying ticks. Elapsed wall time since the save is capped, turned
// into ticks, and applied to every rate-based accumulation: gathering
// credits each group for the ticks since its LastGatherTick; building
// construction, upgrades, demolition, training orders, and research
// settle against their persisted start ticks.
//
// The pass is idempotent by construction — every accumulation is keyed
// off a persisted timestamp that is consumed as it settles, so a second
// call over the same state credits nothing. Movement, combat, and AI
// do not advance offline.
func (s *Scheduler) CatchUp(savedAt time.Time, now time.Time, tickInterval time.Duration, maxOffline time.Duration) []sim.StateChange {
	elapsed := now.Sub(savedAt)
	if elapsed <= 0 {
		return nil
	}
	if maxOffline <= 0 {
		maxOffline = DefaultMaxOffline
	}
	if elapsed > maxOffline {
		elapsed = maxOffline
	}
	ticks := uint64(elapsed / tickInterval)
	if ticks == 0 {
		return nil
	}

	s.Ctx.State.Tick += ticks
	s.Ctx.Log.Info("offline catch-up",
		"elapsed", elapsed,
		"ticks", ticks,
		"tick", s.Ctx.State.Tick,
	)

	var events []sim.StateChange
	events = append(events, s.stepGathering()...)
	events = append(events, s.stepConstruction()...)
	events = append(events, s.stepTraining()...)
	events = append(events, s.stepResearch()...)
	events = append(events, s.Vision.UpdateAll(s.Ctx)...)
	s.record(events)
	return events
}
