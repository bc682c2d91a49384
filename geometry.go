package main

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// coordEpsilon bounds approximate coordinate equality. Poses are
// continuous, so exact float comparison is meaningless.
const coordEpsilon = 1e-9

// NearlyEqual reports whether two coordinates coincide within epsilon.
func NearlyEqual(a, b orb.Point) bool {
	return planar.Distance(a, b) < coordEpsilon
}

// PointToSegmentDistance returns the distance from p to the closest point
// on the segment ab.
func PointToSegmentDistance(p, a, b orb.Point) float64 {
	return planar.Distance(p, lerp(a, b, projectOnSegment(p, a, b)))
}

// lerp linearly interpolates between a and b.
func lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a.X() + t*(b.X()-a.X()), a.Y() + t*(b.Y()-a.Y())}
}

// projectOnSegment returns the clamped parameter t in [0, 1] of the
// projection of p onto the segment ab.
func projectOnSegment(p, a, b orb.Point) float64 {
	dx := b.X() - a.X()
	dy := b.Y() - a.Y()

	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return 0
	}
	t := ((p.X()-a.X())*dx + (p.Y()-a.Y())*dy) / lenSq
	return clamp(t, 0, 1)
}

// perpendicularDistance returns the distance from point to the infinite
// line through lineStart and lineEnd. Falls back to point distance when
// the line is degenerate.
func perpendicularDistance(point, lineStart, lineEnd orb.Point) float64 {
	dx := lineEnd.X() - lineStart.X()
	dy := lineEnd.Y() - lineStart.Y()

	mag := math.Sqrt(dx*dx + dy*dy)
	if mag == 0 {
		return planar.Distance(point, lineStart)
	}

	num := math.Abs(dy*point.X() - dx*point.Y() + lineEnd.X()*lineStart.Y() - lineEnd.Y()*lineStart.X())
	return num / mag
}

// PathLength returns the total arc length of a waypoint path.
func PathLength(path []orb.Point) float64 {
	total := 0.0
	for i := 0; i+1 < len(path); i++ {
		total += planar.Distance(path[i], path[i+1])
	}
	return total
}

// normalizeAngle wraps an angle into (-pi, pi].
func normalizeAngle(a float64) float64 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a <= -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// clamp keeps value inside [lo, hi].
func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
