// Package engine drives the simulation: a real-time tick loop, a
// scheduler that runs each subsystem at its own cadence, and the
// closed-form offline catch-up applied on resume.
package engine

import (
	"fmt"
	"log/slog"
	"time"
)

// Subsystem cadences in ticks. Movement and combat resolve every tick;
// vision trails slightly; the economy systems are medium; AI planning
// is the slowest layer.
const (
	MovementInterval = 1
	CombatInterval   = 1
	VisionInterval   = 2
	EconomyInterval  = 5 // Gathering, construction, training, research
	AIInterval       = 10
)

// Loop advances the simulation in real time. One tick is one logical
// time unit; Speed scales how fast wall-clock time maps to ticks.
type Loop struct {
	Speed    float64       // Multiplier: 1.0 = real-time, 0 = paused
	Interval time.Duration // Wall time per tick at Speed 1.0
	Running  bool

	// OnTick runs every tick with the new tick number.
	OnTick func(tick uint64)

	tick uint64
}

// NewLoop creates a loop starting from a persisted tick counter.
func NewLoop(startTick uint64, interval time.Duration) *Loop {
	return &Loop{
		Speed:    1.0,
		Interval: interval,
		tick:     startTick,
	}
}

// Tick returns the current tick counter.
func (l *Loop) Tick() uint64 {
	return l.tick
}

// Run blocks, stepping the simulation until Stop is called.
func (l *Loop) Run() {
	l.Running = true
	slog.Info("simulation loop started", "tick", l.tick, "speed", l.Speed)

	for l.Running {
		if l.Speed <= 0 {
			time.Sleep(100 * time.Millisecond)
			continue
		}

		start := time.Now()
		l.tick++
		if l.OnTick != nil {
			l.OnTick(l.tick)
		}

		elapsed := time.Since(start)
		target := time.Duration(float64(l.Interval) / l.Speed)
		if elapsed < target {
			time.Sleep(target - elapsed)
		}
	}

	slog.Info("simulation loop stopped", "tick", l.tick)
}

// Stop halts the loop after the current tick completes.
func (l *Loop) Stop() {
	l.Running = false
}

// GameTime renders a tick counter as a campaign clock, 60 ticks to the
// hour and 24 hours to the day.
func GameTime(tick uint64) string {
	minutes := tick % 60
	totalHours := tick / 60
	hours := totalHours % 24
	days := totalHours/24 + 1
	return fmt.Sprintf("Day %d, %d:%02d", days, hours, minutes)
}
