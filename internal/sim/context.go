// Package sim defines the simulation context handed into every
// subsystem call, and the StateChange event surface returned from
// mutations. There is no global coordinator: whoever drives the
// simulation owns a Context and passes it down.
package sim

import (
	"log/slog"
	"math/rand"

	"github.com/talgya/hexfront/internal/world"
)

// Context carries everything a subsystem call needs: the authoritative
// world state, a deterministic RNG, and a logger. Single-threaded by
// contract — one tick mutates through one Context at a time.
type Context struct {
	State *world.State
	Rand  *rand.Rand
	Log   *slog.Logger
}

// NewContext creates a context over a world state with a seeded RNG.
func NewContext(state *world.State, seed int64) *Context {
	return &Context{
		State: state,
		Rand:  rand.New(rand.NewSource(seed)),
		Log:   slog.Default(),
	}
}

// Now returns the current simulation tick.
func (c *Context) Now() uint64 {
	return c.State.Tick
}
