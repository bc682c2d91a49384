package main

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// PursuitConfig holds the geometry and speed policy of the pure pursuit
// follower. Distances are in metres, angles in radians.
type PursuitConfig struct {
	LookaheadM     float64 `json:"lookahead_m"`
	WheelbaseM     float64 `json:"wheelbase_m"`
	MaxSteerRad    float64 `json:"max_steer_rad"`
	CruiseThrottle float64 `json:"cruise_throttle"`
	MinThrottle    float64 `json:"min_throttle"`
	BrakingM       float64 `json:"braking_m"`       // start tapering this far from the goal
	GoalToleranceM float64 `json:"goal_tolerance_m"`
}

// PurePursuit steers the vehicle toward a point one lookahead distance
// ahead on the path. The only state it keeps between ticks is its
// forward progress along the path; the projection never moves backward,
// so the follower cannot oscillate where the path crosses itself.
type PurePursuit struct {
	cfg      PursuitConfig
	progress int // index of the path point the pose projects onto
}

func NewPurePursuit(cfg PursuitConfig) *PurePursuit {
	return &PurePursuit{cfg: cfg}
}

// Reset rewinds the follower onto a fresh path.
func (pp *PurePursuit) Reset() {
	pp.progress = 0
}

// Progress returns the index of the current path projection.
func (pp *PurePursuit) Progress() int {
	return pp.progress
}

// NextCommand produces the steering and throttle for one tick, or
// arrived=true once the remaining path is inside the goal tolerance.
// speedCap scales the throttle down; pass 1 for normal following.
func (pp *PurePursuit) NextCommand(state VehicleState, path []orb.Point, speedCap float64) (ControlCommand, bool) {
	if len(path) == 0 {
		return stopCommand(), true
	}

	pp.advanceProgress(state.Position, path)

	remaining := pp.remainingLength(state.Position, path)
	if remaining < pp.cfg.GoalToleranceM {
		return stopCommand(), true
	}

	target := pp.lookaheadPoint(state.Position, path)

	dx := target.X() - state.Position.X()
	dy := target.Y() - state.Position.Y()
	if math.Hypot(dx, dy) < coordEpsilon {
		// Degenerate geometry: the lookahead point sits on the vehicle.
		// Hold the wheel straight rather than emit NaN.
		return ControlCommand{Throttle: pp.throttleFor(remaining, speedCap)}, false
	}

	alpha := normalizeAngle(math.Atan2(dy, dx) - state.Heading)
	steer := math.Atan2(2*pp.cfg.WheelbaseM*math.Sin(alpha), pp.cfg.LookaheadM)
	steer = clamp(steer, -pp.cfg.MaxSteerRad, pp.cfg.MaxSteerRad)

	return ControlCommand{
		Steering: steer,
		Throttle: pp.throttleFor(remaining, speedCap),
	}, false
}

// advanceProgress moves the projection to the path point closest to the
// pose, scanning forward only.
func (pp *PurePursuit) advanceProgress(at orb.Point, path []orb.Point) {
	if pp.progress >= len(path) {
		pp.progress = len(path) - 1
	}

	best := pp.progress
	bestDist := planar.Distance(at, path[best])
	for i := pp.progress + 1; i < len(path); i++ {
		if d := planar.Distance(at, path[i]); d < bestDist {
			best = i
			bestDist = d
		}
	}
	pp.progress = best
}

// lookaheadPoint returns the first path point at least one lookahead
// distance of arc length ahead of the pose, or the final waypoint when
// the path runs out first.
func (pp *PurePursuit) lookaheadPoint(at orb.Point, path []orb.Point) orb.Point {
	acc := planar.Distance(at, path[pp.progress])
	if acc >= pp.cfg.LookaheadM {
		return path[pp.progress]
	}

	for i := pp.progress; i+1 < len(path); i++ {
		acc += planar.Distance(path[i], path[i+1])
		if acc >= pp.cfg.LookaheadM {
			return path[i+1]
		}
	}
	return path[len(path)-1]
}

// remainingLength is the arc length between the pose and the final
// waypoint, measured along the path.
func (pp *PurePursuit) remainingLength(at orb.Point, path []orb.Point) float64 {
	return planar.Distance(at, path[pp.progress]) + PathLength(path[pp.progress:])
}

// throttleFor tapers the throttle linearly inside the braking window so
// the vehicle slows smoothly into the final waypoint.
func (pp *PurePursuit) throttleFor(remaining, speedCap float64) float64 {
	throttle := pp.cfg.CruiseThrottle
	if remaining < pp.cfg.BrakingM && pp.cfg.BrakingM > 0 {
		throttle *= remaining / pp.cfg.BrakingM
		if throttle < pp.cfg.MinThrottle {
			throttle = pp.cfg.MinThrottle
		}
	}
	return clamp(throttle*speedCap, 0, 1)
}
