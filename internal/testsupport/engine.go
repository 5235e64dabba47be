package testsupport

import (
	"testing"
	"time"

	"taskqueue/internal/config"
	"taskqueue/internal/engine"
	"taskqueue/internal/queue"
)

// EngineFixture bundles an engine with the store and clock behind it.
type EngineFixture struct {
	Engine *engine.Engine
	Store  *queue.Store
	Clock  *FakeClock
}

// DefaultClockStart is the instant fake clocks start at.
var DefaultClockStart = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

// MustNewEngine opens a store for cfg and wraps it in an engine driven by a
// fake clock. Extra options are applied after the clock.
func MustNewEngine(t testing.TB, cfg *config.Config, opts ...engine.Option) *EngineFixture {
	t.Helper()

	store := MustOpenStore(t, cfg)
	clock := NewFakeClock(DefaultClockStart)
	all := append([]engine.Option{engine.WithClock(clock)}, opts...)
	return &EngineFixture{
		Engine: engine.New(store, all...),
		Store:  store,
		Clock:  clock,
	}
}
