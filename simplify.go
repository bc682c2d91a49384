package main

import "github.com/paulmach/orb"

// ThinPath reduces near-collinear waypoint runs with the Douglas-Peucker
// algorithm so the follower chases fewer, farther-apart targets. The
// first and last waypoints always survive. An epsilon of zero disables
// thinning.
func ThinPath(path []orb.Point, epsilon float64) []orb.Point {
	if epsilon <= 0 || len(path) <= 2 {
		return path
	}
	return douglasPeucker(path, epsilon)
}

// douglasPeucker implements the Douglas-Peucker line simplification
// algorithm over a waypoint run.
func douglasPeucker(points []orb.Point, epsilon float64) []orb.Point {
	if len(points) <= 2 {
		return points
	}

	// Find the point with maximum distance from the line between the
	// first and last points.
	dmax := 0.0
	index := 0
	end := len(points) - 1

	for i := 1; i < end; i++ {
		d := perpendicularDistance(points[i], points[0], points[end])
		if d > dmax {
			index = i
			dmax = d
		}
	}

	if dmax > epsilon {
		// Recursive call on both parts, dropping the duplicated split
		// point when combining.
		left := douglasPeucker(points[0:index+1], epsilon)
		right := douglasPeucker(points[index:], epsilon)

		result := make([]orb.Point, 0, len(left)+len(right)-1)
		result = append(result, left[:len(left)-1]...)
		result = append(result, right...)
		return result
	}

	return []orb.Point{points[0], points[end]}
}
