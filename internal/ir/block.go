package ir

// BlockInfo is the per-block extension record named in spec §3: execution
// frequency, a schedule pointer (filled in by the external scheduler), and
// an optional entity/label for blocks that are jump targets or exception
// handlers. The border list used during register allocation is kept in a
// pass-local side table inside package regalloc instead of here, following
// the link-slot design note (§9): allocator state should not leak into the
// shared IR across passes.
type BlockInfo struct {
	Freq     float64 // execution frequency, for alignment decisions (§4.C.1)
	Schedule []*Node // ordered instruction sequence; set by the external scheduler
	Entity   string  // symbolic label, if any
	HasLabel bool    // forced label even without an external jump target (e.g. entry)
}

// Block is a node whose inputs are the incoming control edges (spec §3).
// Represented as its own type, rather than embedding Node, because the
// allocator, GVN-PRE and the emitter all navigate blocks by predecessor/
// successor list far more often than as graph operands — matching how
// Go's own SSA package (ssa.Block) and every allocator in the retrieval
// pack structure this.
type Block struct {
	ID       int32
	Preds    []*Block
	Succs    []*Block
	Nodes    []*Node // floating nodes assigned to this block, pre-schedule order
	Info     *BlockInfo
	graph    *Graph
	idomLink *Block // not set: package domfront keeps immediate dominators in its own Tree
}

// AddPred records a predecessor edge. Used while building the graph.
func (b *Block) AddPred(p *Block) {
	b.Preds = append(b.Preds, p)
	p.Succs = append(p.Succs, b)
}

// NumPreds and NumSuccs are convenience wrappers used throughout GVN-PRE's
// branch on "one successor with >1 predecessor" vs ">1 successors" (§4.B.3).
func (b *Block) NumPreds() int { return len(b.Preds) }
func (b *Block) NumSuccs() int { return len(b.Succs) }

// PredIndex returns the position of pred in b.Preds, or -1. GVN-PRE's phi
// translation needs this to pick "the operand along B's position" (§4.B.3).
func (b *Block) PredIndex(pred *Block) int {
	for i, p := range b.Preds {
		if p == pred {
			return i
		}
	}
	return -1
}
