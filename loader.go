package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// graphFile mirrors the on-disk graph definition.
type graphFile struct {
	Nodes []struct {
		ID int        `json:"id"`
		At [2]float64 `json:"at"`
	} `json:"nodes"`
	Edges []struct {
		From        int      `json:"from"`
		To          int      `json:"to"`
		Cost        *float64 `json:"cost,omitempty"`
		Directional bool     `json:"directional,omitempty"`
	} `json:"edges"`
}

// LoadGraph parses a graph definition file. Edges without an explicit
// cost default to the geometric distance between their endpoints, which
// keeps the straight-line heuristic admissible. An explicit cost below
// the geometric length is accepted but logged, because it makes the
// heuristic inadmissible and A* may then return a non-optimal route.
func LoadGraph(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	var def graphFile
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse graph file: %w", err)
	}

	g := NewGraph()
	for _, n := range def.Nodes {
		g.AddNode(n.ID, orb.Point{n.At[0], n.At[1]})
	}

	for _, e := range def.Edges {
		a, okA := g.CoordinateOf(e.From)
		b, okB := g.CoordinateOf(e.To)
		if !okA || !okB {
			return nil, &InvalidGraphError{Reason: fmt.Sprintf("edge %d->%d references unknown node", e.From, e.To)}
		}

		geometric := planar.Distance(a, b)
		cost := geometric
		if e.Cost != nil {
			cost = *e.Cost
			if cost < geometric {
				log.Printf("Warning: edge %d->%d cost %.3f below geometric length %.3f; heuristic no longer admissible",
					e.From, e.To, cost, geometric)
			}
		}

		if err := g.AddEdge(e.From, e.To, cost, e.Directional); err != nil {
			return nil, err
		}
	}
	return g, nil
}
