package main

import (
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Classification is the monitor's verdict on the immediate path segment.
type Classification int

const (
	Clear Classification = iota
	Degraded
	Blocked
)

func (c Classification) String() string {
	switch c {
	case Clear:
		return "CLEAR"
	case Degraded:
		return "DEGRADED"
	case Blocked:
		return "BLOCKED"
	default:
		return "UNKNOWN"
	}
}

// SensorReading is one named distance sensor sample. Age is the time
// since the sample was taken; the monitor discards readings older than
// the staleness budget.
type SensorReading struct {
	Distance float64
	Age      time.Duration
}

// SensorSnapshot maps sensor name to its freshest reading for the
// current tick. A sensor with no entry produced nothing this tick.
type SensorSnapshot map[string]SensorReading

// DetectedObject is one vision-pipeline detection with a world-frame
// position estimate.
type DetectedObject struct {
	Position   orb.Point
	Class      string
	Confidence float64
}

// ObstacleEvent is the monitor's output for one tick. It is consumed by
// the control loop within the same tick and not persisted.
type ObstacleEvent struct {
	Classification Classification
	Obstacle       orb.Point // position estimate, meaningful when HasObstacle
	HasObstacle    bool
	Confidence     float64
}

// MonitorConfig names every fusion threshold so the fail-safe defaults
// stay auditable instead of being buried as magic numbers.
type MonitorConfig struct {
	// Forward sensors below BlockDistanceM force a full stop.
	ForwardSensors []string `json:"forward_sensors"`
	BlockDistanceM float64  `json:"block_distance_m"`

	// Any watched sensor below its caution distance degrades the tick.
	CautionDistanceM map[string]float64 `json:"caution_distance_m"`

	// A reading older than this counts as missing.
	StaleAfterMS float64 `json:"stale_after_ms"`

	// Detections this close to the upcoming path corridor degrade the
	// tick; detections below MinConfidence are ignored.
	CorridorRadiusM float64 `json:"corridor_radius_m"`
	CorridorAheadM  float64 `json:"corridor_ahead_m"`
	MinConfidence   float64 `json:"min_confidence"`
}

// ObstacleMonitor fuses distance sensors and vision detections into a
// CLEAR / DEGRADED / BLOCKED verdict for the upcoming path segment.
// Missing or stale data always degrades, never clears: the monitor only
// calls a segment clear when fresh readings say so.
type ObstacleMonitor struct {
	cfg MonitorConfig
}

func NewObstacleMonitor(cfg MonitorConfig) *ObstacleMonitor {
	return &ObstacleMonitor{cfg: cfg}
}

// Classify produces the obstacle verdict for one tick.
func (m *ObstacleMonitor) Classify(snapshot SensorSnapshot, objects []DetectedObject, path []orb.Point, state VehicleState) ObstacleEvent {
	staleAfter := time.Duration(m.cfg.StaleAfterMS * float64(time.Millisecond))

	// A blocked forward sensor dominates every other signal.
	forwardGap := false
	for _, name := range m.cfg.ForwardSensors {
		reading, ok := snapshot[name]
		if !ok || reading.Age > staleAfter {
			forwardGap = true
			continue
		}
		if reading.Distance < m.cfg.BlockDistanceM {
			return ObstacleEvent{
				Classification: Blocked,
				Obstacle:       projectAhead(state, reading.Distance),
				HasObstacle:    true,
				Confidence:     1,
			}
		}
	}

	event := ObstacleEvent{Classification: Clear, Confidence: 1}
	degrade := func(confidence float64) {
		if event.Classification < Degraded || confidence < event.Confidence {
			event.Classification = Degraded
			event.Confidence = confidence
		}
	}

	if forwardGap {
		// Fail safe: without fresh forward coverage the segment cannot be
		// called clear.
		degrade(0.5)
	}

	for name, caution := range m.cfg.CautionDistanceM {
		reading, ok := snapshot[name]
		if !ok || reading.Age > staleAfter {
			// Fail safe: a watched sensor with no fresh data cannot vouch
			// for a clear segment.
			degrade(0.5)
			continue
		}
		if reading.Distance < caution {
			degrade(0.8)
		}
	}

	corridor := upcomingCorridor(path, state.Position, m.cfg.CorridorAheadM)
	for _, obj := range objects {
		if obj.Confidence < m.cfg.MinConfidence {
			continue
		}
		if distanceToPolyline(obj.Position, corridor) <= m.cfg.CorridorRadiusM {
			degrade(obj.Confidence)
			if !event.HasObstacle {
				event.Obstacle = obj.Position
				event.HasObstacle = true
			}
		}
	}

	return event
}

// projectAhead estimates an obstacle position by casting the blocked
// reading forward along the vehicle heading.
func projectAhead(state VehicleState, distance float64) orb.Point {
	return orb.Point{
		state.Position.X() + distance*math.Cos(state.Heading),
		state.Position.Y() + distance*math.Sin(state.Heading),
	}
}

// upcomingCorridor trims the path to the stretch starting at the pose's
// projection onto the path and extending ahead metres along it.
func upcomingCorridor(path []orb.Point, at orb.Point, ahead float64) []orb.Point {
	if len(path) < 2 {
		return path
	}

	anchorSeg := 0
	anchor := path[0]
	bestDist := math.Inf(1)
	for i := 0; i+1 < len(path); i++ {
		p := lerp(path[i], path[i+1], projectOnSegment(at, path[i], path[i+1]))
		if d := planar.Distance(at, p); d < bestDist {
			anchorSeg = i
			anchor = p
			bestDist = d
		}
	}

	corridor := []orb.Point{anchor}
	acc := 0.0
	prev := anchor
	for i := anchorSeg + 1; i < len(path) && acc < ahead; i++ {
		segLen := planar.Distance(prev, path[i])
		if acc+segLen > ahead && segLen > 0 {
			// Cut the final segment at the horizon.
			corridor = append(corridor, lerp(prev, path[i], (ahead-acc)/segLen))
			break
		}
		acc += segLen
		corridor = append(corridor, path[i])
		prev = path[i]
	}
	return corridor
}

// distanceToPolyline returns the minimum distance from p to any segment
// of the polyline.
func distanceToPolyline(p orb.Point, line []orb.Point) float64 {
	if len(line) == 0 {
		return math.Inf(1)
	}
	if len(line) == 1 {
		return planar.Distance(p, line[0])
	}

	best := math.Inf(1)
	for i := 0; i+1 < len(line); i++ {
		if d := PointToSegmentDistance(p, line[i], line[i+1]); d < best {
			best = d
		}
	}
	return best
}
