// Package social provides the weighted, undirected social graph residents
// build through co-presence.
package social

import "github.com/talgya/kibera-unrest/internal/world"

// ID identifies a graph node.
type ID = world.ResidentID

// Edge is an unordered pair of residents and the strength of their tie.
type Edge struct {
	A      ID      `json:"a" db:"a"`
	B      ID      `json:"b" db:"b"`
	Weight float64 `json:"weight" db:"weight"`
}

// Other returns the endpoint that is not id.
func (e *Edge) Other(id ID) ID {
	if e.A == id {
		return e.B
	}
	return e.A
}

type pairKey struct{ lo, hi ID }

func keyOf(a, b ID) pairKey {
	if a < b {
		return pairKey{a, b}
	}
	return pairKey{b, a}
}

// Graph stores at most one edge per pair. Neighbor lists keep the order in
// which ties were formed so iteration is reproducible.
type Graph struct {
	nodes map[ID]struct{}
	adj   map[ID][]*Edge
	edges map[pairKey]*Edge
	order []*Edge
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[ID]struct{}),
		adj:   make(map[ID][]*Edge),
		edges: make(map[pairKey]*Edge),
	}
}

// AddNode registers a resident so it counts toward the mean degree even
// before it has any ties.
func (g *Graph) AddNode(id ID) {
	g.nodes[id] = struct{}{}
}

// NodeCount returns the number of registered residents.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of ties.
func (g *Graph) EdgeCount() int {
	return len(g.order)
}

// Strengthen adds inc to the tie between a and b, creating it if needed.
// Negative increments are treated as zero and self-ties are ignored. It
// reports whether a new edge was created.
func (g *Graph) Strengthen(a, b ID, inc float64) bool {
	if a == b {
		return false
	}
	inc = max(inc, 0)

	k := keyOf(a, b)
	if e, ok := g.edges[k]; ok {
		e.Weight += inc
		return false
	}

	g.AddNode(a)
	g.AddNode(b)
	e := &Edge{A: k.lo, B: k.hi, Weight: inc}
	g.edges[k] = e
	g.order = append(g.order, e)
	g.adj[a] = append(g.adj[a], e)
	g.adj[b] = append(g.adj[b], e)
	return true
}

// Weight returns the tie strength between a and b.
func (g *Graph) Weight(a, b ID) (float64, bool) {
	e, ok := g.edges[keyOf(a, b)]
	if !ok {
		return 0, false
	}
	return e.Weight, true
}

// Neighbors returns the residents tied to id, oldest tie first.
func (g *Graph) Neighbors(id ID) []ID {
	edges := g.adj[id]
	out := make([]ID, len(edges))
	for i, e := range edges {
		out[i] = e.Other(id)
	}
	return out
}

// Ties returns the edges incident to id, oldest first. The slice must not
// be modified.
func (g *Graph) Ties(id ID) []*Edge {
	return g.adj[id]
}

// Degree returns the number of ties of id.
func (g *Graph) Degree(id ID) int {
	return len(g.adj[id])
}

// MeanDegree is the average number of ties per registered resident.
func (g *Graph) MeanDegree() float64 {
	if len(g.nodes) == 0 {
		return 0
	}
	return 2 * float64(len(g.order)) / float64(len(g.nodes))
}

// Edges returns every edge in creation order. The slice must not be modified.
func (g *Graph) Edges() []*Edge {
	return g.order
}
