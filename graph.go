package main

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Edge is a weighted connection to a neighbouring node.
type Edge struct {
	To   int
	Cost float64
}

// EdgeRef identifies an undirected edge by its endpoints, From < To.
type EdgeRef struct {
	From int
	To   int
}

// InvalidGraphError reports a malformed graph definition. It is fatal at
// construction time and never recovered later.
type InvalidGraphError struct {
	Reason string
}

func (e *InvalidGraphError) Error() string {
	return "invalid graph: " + e.Reason
}

// Graph is the static navigable map: node coordinates plus weighted
// adjacency. It is built once at startup and stays immutable apart from
// the temporary per-plan edge penalties applied through applyPenalty.
type Graph struct {
	Nodes map[int]orb.Point
	Edges map[int][]Edge
}

func NewGraph() *Graph {
	return &Graph{
		Nodes: make(map[int]orb.Point),
		Edges: make(map[int][]Edge),
	}
}

// AddNode registers a node coordinate.
func (g *Graph) AddNode(id int, at orb.Point) {
	g.Nodes[id] = at
}

// AddEdge connects from -> to with the given cost. Directional edges are
// added once; bidirectional edges get a mirrored entry with the same cost.
func (g *Graph) AddEdge(from, to int, cost float64, directional bool) error {
	if _, ok := g.Nodes[from]; !ok {
		return &InvalidGraphError{Reason: fmt.Sprintf("edge references unknown node %d", from)}
	}
	if _, ok := g.Nodes[to]; !ok {
		return &InvalidGraphError{Reason: fmt.Sprintf("edge references unknown node %d", to)}
	}
	if cost < 0 {
		return &InvalidGraphError{Reason: fmt.Sprintf("edge %d->%d has negative cost %.3f", from, to, cost)}
	}

	g.Edges[from] = append(g.Edges[from], Edge{To: to, Cost: cost})
	if !directional {
		g.Edges[to] = append(g.Edges[to], Edge{To: from, Cost: cost})
	}
	return nil
}

// Neighbors returns the outgoing edges of a node.
func (g *Graph) Neighbors(node int) []Edge {
	return g.Edges[node]
}

// CoordinateOf returns the coordinate of a node.
func (g *Graph) CoordinateOf(node int) (orb.Point, bool) {
	p, ok := g.Nodes[node]
	return p, ok
}

// NearestNode snaps a continuous position onto the closest graph node by
// Euclidean distance. Ties break toward the lowest node ID so snapping
// is deterministic. Returns -1 on an empty graph.
func (g *Graph) NearestNode(at orb.Point) int {
	best := -1
	bestDist := math.Inf(1)

	for id, p := range g.Nodes {
		d := planar.Distance(at, p)
		if d < bestDist || (d == bestDist && id < best) {
			best = id
			bestDist = d
		}
	}
	return best
}

// penaltyTxn records the edge costs overwritten by an obstacle penalty so
// a single replan can run against the penalized graph and then restore
// it. A penalty must never outlive the planner invocation it was applied
// for.
type penaltyTxn struct {
	graph    *Graph
	restores []penaltyRestore
}

type penaltyRestore struct {
	from int
	idx  int
	cost float64
}

// applyPenalty multiplies the cost of every listed edge, in both
// directions, by factor and returns the transaction used to undo it.
// A factor of +Inf forbids the edges outright for the next plan.
func (g *Graph) applyPenalty(edges []EdgeRef, factor float64) *penaltyTxn {
	txn := &penaltyTxn{graph: g}
	for _, ref := range edges {
		g.penalizeDirected(txn, ref.From, ref.To, factor)
		g.penalizeDirected(txn, ref.To, ref.From, factor)
	}
	return txn
}

func (g *Graph) penalizeDirected(txn *penaltyTxn, from, to int, factor float64) {
	for i := range g.Edges[from] {
		if g.Edges[from][i].To != to {
			continue
		}
		txn.restores = append(txn.restores, penaltyRestore{
			from: from,
			idx:  i,
			cost: g.Edges[from][i].Cost,
		})
		g.Edges[from][i].Cost *= factor
	}
}

// rollback restores every penalized edge to its original cost.
func (t *penaltyTxn) rollback() {
	for _, r := range t.restores {
		t.graph.Edges[r.from][r.idx].Cost = r.cost
	}
}
