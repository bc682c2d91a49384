package main

import (
	"container/heap"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// searchNode is one frontier entry in the A* search.
type searchNode struct {
	id     int
	g      float64 // cost accumulated from the start
	h      float64 // heuristic cost to the goal
	f      float64 // g + h
	parent *searchNode
	index  int // position in the heap
}

// frontier implements heap.Interface ordered by f. Ties break toward the
// larger g (deeper along the route, less lateral exploration) and then
// toward the lower node ID, so repeated plans over identical inputs
// expand nodes in the identical order.
type frontier []*searchNode

func (pq frontier) Len() int { return len(pq) }

func (pq frontier) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	if pq[i].g != pq[j].g {
		return pq[i].g > pq[j].g
	}
	return pq[i].id < pq[j].id
}

func (pq frontier) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *frontier) Push(x interface{}) {
	node := x.(*searchNode)
	node.index = len(*pq)
	*pq = append(*pq, node)
}

func (pq *frontier) Pop() interface{} {
	old := *pq
	n := len(old)
	node := old[n-1]
	old[n-1] = nil
	node.index = -1
	*pq = old[0 : n-1]
	return node
}

// PlanRoute computes the minimum-cost waypoint path from start to goal.
// It is a pure function over its inputs and keeps no state across calls.
// The second return is false when no route exists.
func PlanRoute(g *Graph, start, goal int) ([]orb.Point, bool) {
	route, _, ok := planNodes(g, start, goal)
	if !ok {
		return nil, false
	}

	path := make([]orb.Point, 0, len(route))
	for _, id := range route {
		pt, _ := g.CoordinateOf(id)
		path = append(path, pt)
	}
	return path, true
}

// planNodes runs the A* search and returns the node route and its total
// cost. The heuristic is the straight-line distance to the goal, which
// never overestimates as long as edge costs are at least the geometric
// segment lengths (penalties only raise costs, so they preserve this).
func planNodes(g *Graph, start, goal int) ([]int, float64, bool) {
	startPt, okS := g.CoordinateOf(start)
	goalPt, okG := g.CoordinateOf(goal)
	if !okS || !okG {
		return nil, 0, false
	}

	open := &frontier{}
	heap.Init(open)

	first := &searchNode{id: start}
	first.h = planar.Distance(startPt, goalPt)
	first.f = first.h
	heap.Push(open, first)

	openByID := map[int]*searchNode{start: first}
	closed := make(map[int]float64) // settled node -> cheapest g seen

	for open.Len() > 0 {
		current := heap.Pop(open).(*searchNode)
		delete(openByID, current.id)

		if current.id == goal {
			return reconstructRoute(current), current.g, true
		}

		closed[current.id] = current.g

		for _, edge := range g.Neighbors(current.id) {
			// An infinite cost marks an edge forbidden for this plan.
			if math.IsInf(edge.Cost, 1) {
				continue
			}

			tentative := current.g + edge.Cost

			// Standard re-opening: a settled node comes back only on a
			// strictly cheaper g.
			if settled, wasClosed := closed[edge.To]; wasClosed {
				if tentative >= settled {
					continue
				}
				delete(closed, edge.To)
			}

			neighbor, inOpen := openByID[edge.To]
			if !inOpen {
				pt, ok := g.CoordinateOf(edge.To)
				if !ok {
					continue
				}
				neighbor = &searchNode{
					id:     edge.To,
					g:      tentative,
					h:      planar.Distance(pt, goalPt),
					parent: current,
				}
				neighbor.f = neighbor.g + neighbor.h
				heap.Push(open, neighbor)
				openByID[edge.To] = neighbor
			} else if tentative < neighbor.g {
				neighbor.g = tentative
				neighbor.f = tentative + neighbor.h
				neighbor.parent = current
				heap.Fix(open, neighbor.index)
			}
		}
	}

	// Frontier emptied before reaching the goal.
	return nil, 0, false
}

// reconstructRoute walks parent links back to the start and returns the
// node IDs in traversal order.
func reconstructRoute(end *searchNode) []int {
	var reversed []int
	for n := end; n != nil; n = n.parent {
		reversed = append(reversed, n.id)
	}

	route := make([]int, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		route = append(route, reversed[i])
	}
	return route
}
