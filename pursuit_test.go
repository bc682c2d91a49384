package main

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurePursuitConverges(t *testing.T) {
	t.Parallel()

	// Straight path along x; the vehicle starts 3 m off-axis and must
	// settle within goal tolerance of the endpoint in bounded time.
	cfg := DefaultConfig()
	path := []orb.Point{{0, 0}, {20, 0}, {40, 0}, {60, 0}}
	goal := path[len(path)-1]

	world := NewSimWorld(cfg.Sim, cfg.Loop.TickSeconds, orb.Point{0, 3}, 0)
	follower := NewPurePursuit(cfg.Pursuit)

	arrived := false
	lastProgress := 0
	for tick := 0; tick < 4000; tick++ {
		state, err := world.VehicleState()
		require.NoError(t, err)

		cmd, done := follower.NextCommand(state, path, 1)
		if done {
			arrived = true
			break
		}

		require.False(t, math.IsNaN(cmd.Steering), "steering must never be NaN")
		assert.LessOrEqual(t, math.Abs(cmd.Steering), cfg.Pursuit.MaxSteerRad+1e-12)
		assert.GreaterOrEqual(t, follower.Progress(), lastProgress, "projection must only move forward")
		lastProgress = follower.Progress()

		require.NoError(t, world.Apply(cmd))
		world.Step()
	}

	require.True(t, arrived, "follower did not arrive within the tick budget")

	state, err := world.VehicleState()
	require.NoError(t, err)
	assert.LessOrEqual(t, planar.Distance(state.Position, goal), cfg.Pursuit.GoalToleranceM,
		"arrival must leave the vehicle inside goal tolerance of the endpoint")
}

func TestPurePursuitDegenerateGeometry(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig().Pursuit
	cfg.GoalToleranceM = 0 // force a command even with zero remaining path

	follower := NewPurePursuit(cfg)
	at := orb.Point{5, 5}
	state := VehicleState{Position: at, Heading: 1.2}

	// Every candidate lookahead point coincides with the vehicle.
	cmd, arrived := follower.NextCommand(state, []orb.Point{at, at}, 1)

	assert.False(t, arrived)
	assert.Zero(t, cmd.Steering, "coincident lookahead must steer straight, not error")
	assert.False(t, math.IsNaN(cmd.Throttle))
}

func TestPurePursuitEmptyAndShortPaths(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig().Pursuit
	state := VehicleState{Position: orb.Point{0, 0}}

	t.Run("empty path reports arrived", func(t *testing.T) {
		t.Parallel()
		follower := NewPurePursuit(cfg)
		cmd, arrived := follower.NextCommand(state, nil, 1)
		assert.True(t, arrived)
		assert.Equal(t, stopCommand(), cmd)
	})

	t.Run("path inside goal tolerance reports arrived", func(t *testing.T) {
		t.Parallel()
		follower := NewPurePursuit(cfg)
		_, arrived := follower.NextCommand(state, []orb.Point{{1, 0}, {2, 0}}, 1)
		assert.True(t, arrived)
	})
}

func TestPurePursuitThrottleTaper(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig().Pursuit
	follower := NewPurePursuit(cfg)

	// Far from the goal: full cruise throttle.
	far := VehicleState{Position: orb.Point{0, 0}}
	farPath := []orb.Point{{0, 0}, {100, 0}}
	cmd, arrived := follower.NextCommand(far, farPath, 1)
	require.False(t, arrived)
	assert.InDelta(t, cfg.CruiseThrottle, cmd.Throttle, 1e-12)

	// Inside the braking window: throttle shrinks but stays positive.
	follower = NewPurePursuit(cfg)
	near := VehicleState{Position: orb.Point{92, 0}}
	cmd, arrived = follower.NextCommand(near, farPath, 1)
	require.False(t, arrived)
	assert.Less(t, cmd.Throttle, cfg.CruiseThrottle)
	assert.GreaterOrEqual(t, cmd.Throttle, cfg.MinThrottle)

	// A speed cap scales the command down.
	follower = NewPurePursuit(cfg)
	capped, arrived := follower.NextCommand(far, farPath, 0.5)
	require.False(t, arrived)
	assert.InDelta(t, cfg.CruiseThrottle*0.5, capped.Throttle, 1e-12)
}
