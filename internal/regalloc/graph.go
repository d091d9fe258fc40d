package regalloc

import "github.com/firmgo/firmgo/internal/ir"

// Graph is the optional materialized interference graph spec §4.A names:
// "a set of nodes and a set of edges... available for callers that want to
// inspect interference directly rather than re-deriving it from border
// lists." Edges are recorded during the pressure pass when a caller asks
// for it via Allocate's buildGraph argument.
type Graph struct {
	Nodes     map[int32]*ir.Node
	Neighbors map[int32]map[int32]*ir.Node
}

// NewGraph creates an empty interference graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes:     map[int32]*ir.Node{},
		Neighbors: map[int32]map[int32]*ir.Node{},
	}
}

// AddEdge records that a and b interfere. Idempotent; a self-edge (a == b)
// is never recorded.
func (g *Graph) AddEdge(a, b *ir.Node) {
	if a == b {
		return
	}
	g.Nodes[a.Index] = a
	g.Nodes[b.Index] = b
	g.neighborsOf(a.Index)[b.Index] = b
	g.neighborsOf(b.Index)[a.Index] = a
}

func (g *Graph) neighborsOf(idx int32) map[int32]*ir.Node {
	m, ok := g.Neighbors[idx]
	if !ok {
		m = map[int32]*ir.Node{}
		g.Neighbors[idx] = m
	}
	return m
}

// Interferes reports whether a and b are recorded as interfering.
func (g *Graph) Interferes(a, b *ir.Node) bool {
	m, ok := g.Neighbors[a.Index]
	if !ok {
		return false
	}
	_, ok = m[b.Index]
	return ok
}

// Degree returns the number of recorded neighbors of n.
func (g *Graph) Degree(n *ir.Node) int { return len(g.Neighbors[n.Index]) }
