package main

import (
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// addGeomEdge links two nodes at their geometric distance, keeping the
// straight-line heuristic admissible.
func addGeomEdge(t *testing.T, g *Graph, from, to int) {
	t.Helper()
	a, okA := g.CoordinateOf(from)
	b, okB := g.CoordinateOf(to)
	require.True(t, okA && okB)
	require.NoError(t, g.AddEdge(from, to, planar.Distance(a, b), false))
}

// chainGraph builds a five-node straight chain with unit edge costs,
// spaced one apart along the x axis.
func chainGraph(t *testing.T) *Graph {
	t.Helper()
	g := NewGraph()
	for i := 0; i < 5; i++ {
		g.AddNode(i, orb.Point{float64(i), 0})
	}
	for i := 0; i+1 < 5; i++ {
		addGeomEdge(t, g, i, i+1)
	}
	return g
}

// bruteForceCost enumerates every simple path and returns the cheapest
// total cost, as an oracle for A* optimality.
func bruteForceCost(g *Graph, start, goal int) (float64, bool) {
	visited := make(map[int]bool)
	best := math.Inf(1)

	var walk func(node int, cost float64)
	walk = func(node int, cost float64) {
		if node == goal {
			if cost < best {
				best = cost
			}
			return
		}
		visited[node] = true
		for _, edge := range g.Neighbors(node) {
			if !visited[edge.To] && !math.IsInf(edge.Cost, 1) {
				walk(edge.To, cost+edge.Cost)
			}
		}
		visited[node] = false
	}
	walk(start, 0)

	return best, !math.IsInf(best, 1)
}

func TestPlanRouteChain(t *testing.T) {
	t.Parallel()
	g := chainGraph(t)

	path, ok := PlanRoute(g, 0, 4)
	require.True(t, ok)

	want := []orb.Point{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}}
	assert.Empty(t, cmp.Diff(want, path))

	_, cost, ok := planNodes(g, 0, 4)
	require.True(t, ok)
	assert.InDelta(t, 4, cost, 1e-12)
}

func TestPlanRouteNoPath(t *testing.T) {
	t.Parallel()

	t.Run("disconnected component", func(t *testing.T) {
		t.Parallel()
		g := NewGraph()
		g.AddNode(1, orb.Point{0, 0})
		g.AddNode(2, orb.Point{1, 0})
		g.AddNode(3, orb.Point{10, 0})
		addGeomEdge(t, g, 1, 2)

		path, ok := PlanRoute(g, 1, 3)
		assert.False(t, ok)
		assert.Nil(t, path)
	})

	t.Run("unknown node", func(t *testing.T) {
		t.Parallel()
		g := chainGraph(t)
		_, ok := PlanRoute(g, 0, 99)
		assert.False(t, ok)
	})

	t.Run("infinite cost forbids the only edge", func(t *testing.T) {
		t.Parallel()
		g := NewGraph()
		g.AddNode(1, orb.Point{0, 0})
		g.AddNode(2, orb.Point{1, 0})
		addGeomEdge(t, g, 1, 2)
		g.applyPenalty([]EdgeRef{{From: 1, To: 2}}, math.Inf(1))

		_, ok := PlanRoute(g, 1, 2)
		assert.False(t, ok)
	})
}

func TestPlanRouteOptimal(t *testing.T) {
	t.Parallel()

	// Random small graphs with costs at or above geometric length; A*
	// must match an exhaustive search on every one of them.
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 50; trial++ {
		g := NewGraph()
		const n = 8
		for id := 0; id < n; id++ {
			g.AddNode(id, orb.Point{rng.Float64() * 100, rng.Float64() * 100})
		}
		for from := 0; from < n; from++ {
			for to := from + 1; to < n; to++ {
				if rng.Float64() > 0.4 {
					continue
				}
				a, _ := g.CoordinateOf(from)
				b, _ := g.CoordinateOf(to)
				cost := planar.Distance(a, b) * (1 + rng.Float64())
				require.NoError(t, g.AddEdge(from, to, cost, false))
			}
		}

		wantCost, reachable := bruteForceCost(g, 0, n-1)
		_, gotCost, ok := planNodes(g, 0, n-1)

		require.Equal(t, reachable, ok, "trial %d: reachability must agree", trial)
		if reachable {
			assert.InDelta(t, wantCost, gotCost, 1e-9, "trial %d: cost must be optimal", trial)
		}
	}
}

func TestPlanRouteIdempotent(t *testing.T) {
	t.Parallel()
	g := chainGraph(t)
	addGeomEdge(t, g, 0, 2)
	addGeomEdge(t, g, 2, 4)

	first, ok1 := PlanRoute(g, 0, 4)
	second, ok2 := PlanRoute(g, 0, 4)

	require.True(t, ok1)
	require.True(t, ok2)
	assert.Empty(t, cmp.Diff(first, second))
}

func TestPlanRoutePenaltyDetour(t *testing.T) {
	t.Parallel()

	// Square detour around a penalized direct edge.
	g := NewGraph()
	g.AddNode(1, orb.Point{0, 0})
	g.AddNode(2, orb.Point{10, 0})
	g.AddNode(3, orb.Point{20, 0})
	g.AddNode(4, orb.Point{10, 15})
	addGeomEdge(t, g, 1, 2)
	addGeomEdge(t, g, 2, 3)
	addGeomEdge(t, g, 2, 4)
	addGeomEdge(t, g, 4, 3)

	direct, _, ok := planNodes(g, 1, 3)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, direct)

	txn := g.applyPenalty([]EdgeRef{{From: 2, To: 3}}, 10)
	detour, _, ok := planNodes(g, 1, 3)
	txn.rollback()

	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 4, 3}, detour)

	// With the penalty rolled back the direct route wins again.
	again, _, ok := planNodes(g, 1, 3)
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, again)
}
