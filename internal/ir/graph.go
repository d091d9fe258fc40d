package ir

// Graph is the per-function IR container: a set of blocks, a set of nodes,
// and the distinguished Start/End blocks. One Graph is owned by one
// pipeline invocation (spec §5) and is never shared across goroutines.
type Graph struct {
	Name  string
	Start *Block
	End   *Block

	allNodes      []*Node
	nextNodeIndex int32
	nextBlockID   int32

	links *LinkSet
}

// NewGraph creates an empty graph with a Start block already in place.
func NewGraph(name string) *Graph {
	g := &Graph{Name: name}
	g.links = NewLinkSet()
	g.Start = g.NewBlock()
	return g
}

// NewBlock allocates a block with the given predecessors already wired.
func (g *Graph) NewBlock(preds ...*Block) *Block {
	b := &Block{ID: g.nextBlockID, Info: &BlockInfo{}, graph: g}
	g.nextBlockID++
	for _, p := range preds {
		b.AddPred(p)
	}
	return b
}

// Nodes returns every node in the graph, in creation order. Matches the
// external nodes(graph) collaborator named in spec §6.
func (g *Graph) Nodes() []*Node { return g.allNodes }

// Blocks returns every block reachable by walking Start via successor
// edges in breadth-first order, starting with Start itself.
func (g *Graph) Blocks() []*Block {
	seen := map[*Block]bool{g.Start: true}
	order := []*Block{g.Start}
	for i := 0; i < len(order); i++ {
		for _, s := range order[i].Succs {
			if !seen[s] {
				seen[s] = true
				order = append(order, s)
			}
		}
	}
	return order
}

// NumValues returns the number of nodes allocated so far, used to size
// bitsets keyed by node index.
func (g *Graph) NumValues() int { return int(g.nextNodeIndex) }

// Links returns the graph's pass-scoped link-slot side table (spec §5, §9).
func (g *Graph) Links() *LinkSet { return g.links }

// ScheduleOf returns the external scheduler's ordered instruction sequence
// for a block. Matches the external schedule_of(block) collaborator
// (spec §6); a nil/empty schedule means the external scheduler has not run.
func ScheduleOf(b *Block) []*Node { return b.Info.Schedule }
