package main

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
)

// edgeEntry wraps one undirected graph edge segment for R-tree storage.
type edgeEntry struct {
	ref  EdgeRef
	a, b orb.Point
	bbox rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *edgeEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// EdgeIndex answers "which edges pass near this point" queries. The
// control loop uses it to translate a sensed obstacle position into the
// set of edges to penalize before replanning.
type EdgeIndex struct {
	tree *rtreego.Rtree
}

// NewEdgeIndex builds the R-tree over every undirected edge segment of
// the graph.
func NewEdgeIndex(g *Graph) *EdgeIndex {
	tree := rtreego.NewTree(2, 25, 50) // 2D, min 25, max 50 entries per node

	seen := make(map[EdgeRef]bool)
	for from, edges := range g.Edges {
		for _, edge := range edges {
			ref := EdgeRef{From: from, To: edge.To}
			if ref.From > ref.To {
				ref = EdgeRef{From: edge.To, To: from}
			}
			if seen[ref] {
				continue
			}
			seen[ref] = true

			a, okA := g.CoordinateOf(ref.From)
			b, okB := g.CoordinateOf(ref.To)
			if !okA || !okB {
				continue
			}

			bbox, err := segmentBounds(a, b)
			if err != nil {
				continue
			}
			tree.Insert(&edgeEntry{ref: ref, a: a, b: b, bbox: bbox})
		}
	}
	return &EdgeIndex{tree: tree}
}

// EdgesNear returns the edges whose segment passes within radius of at,
// sorted by endpoints for deterministic penalty application.
func (ix *EdgeIndex) EdgesNear(at orb.Point, radius float64) []EdgeRef {
	bbox, err := rtreego.NewRect(
		rtreego.Point{at.X() - radius, at.Y() - radius},
		[]float64{2 * radius, 2 * radius},
	)
	if err != nil {
		return nil
	}

	var refs []EdgeRef
	for _, item := range ix.tree.SearchIntersect(bbox) {
		entry := item.(*edgeEntry)
		// The bbox overlap is only a coarse filter; confirm against the
		// actual segment.
		if PointToSegmentDistance(at, entry.a, entry.b) <= radius {
			refs = append(refs, entry.ref)
		}
	}

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].From != refs[j].From {
			return refs[i].From < refs[j].From
		}
		return refs[i].To < refs[j].To
	})
	return refs
}

// segmentBounds computes the axis-aligned bounding box of a segment,
// padded so axis-parallel segments still have positive extent.
func segmentBounds(a, b orb.Point) (rtreego.Rect, error) {
	const pad = 1e-6

	minX := math.Min(a.X(), b.X())
	minY := math.Min(a.Y(), b.Y())
	maxX := math.Max(a.X(), b.X())
	maxY := math.Max(a.Y(), b.Y())

	return rtreego.NewRect(
		rtreego.Point{minX, minY},
		[]float64{maxX - minX + pad, maxY - minY + pad},
	)
}
