// Package live computes classic backward liveness (live-in/live-out value
// sets per block) for a class of register-class-bearing IR values.
//
// Another external collaborator named in spec.md §1/§6 ("liveness(block)"):
// out of scope for the allocator itself, but a concrete implementation is
// needed to drive it, so this is the narrow, real one.
package live

import "github.com/firmgo/firmgo/internal/ir"

// Sets holds live-in and live-out value sets for every block of one graph,
// restricted to values in a single register class (the allocator runs one
// class at a time — spec §4.A's contract is per-class).
type Sets struct {
	In  map[*ir.Block]map[*ir.Node]bool
	Out map[*ir.Block]map[*ir.Node]bool
}

// Compute runs the standard iterative backward dataflow fixpoint,
// restricted to values of register class cls. Phi inputs are attributed to
// the predecessor block positionally corresponding to the Phi's operand
// (Phi.Args[i] flows from Block.Preds[i]), not to the block defining the
// Phi — this is what makes "Phi nodes' inputs are not treated as uses in
// the defining block" (spec §4.A step 1) meaningful: a Phi's own block
// never sees its operands as local uses.
func Compute(g *ir.Graph, cls *ir.RegisterClass) *Sets {
	blocks := g.Blocks()
	s := &Sets{
		In:  make(map[*ir.Block]map[*ir.Node]bool, len(blocks)),
		Out: make(map[*ir.Block]map[*ir.Node]bool, len(blocks)),
	}
	for _, b := range blocks {
		s.In[b] = map[*ir.Node]bool{}
		s.Out[b] = map[*ir.Node]bool{}
	}

	changed := true
	for changed {
		changed = false
		for i := len(blocks) - 1; i >= 0; i-- {
			b := blocks[i]

			out := map[*ir.Node]bool{}
			for _, succ := range b.Succs {
				for v := range s.In[succ] {
					out[v] = true
				}
				// Phi operands belonging to succ are live out of b along
				// this edge even though they aren't in succ's live-in as
				// a whole-value requirement (a Phi consumes one operand
				// per predecessor, not all of them).
				for _, n := range succ.Nodes {
					if n.Op == ir.OpPhi && ir.HasClass(n, cls) {
						pos := succ.PredIndex(b)
						if pos >= 0 && pos < len(n.Args) {
							out[n.Args[pos]] = true
						}
					}
				}
			}

			in := map[*ir.Node]bool{}
			for v := range out {
				in[v] = true
			}
			// Walk this block's instructions backward: kill defs, gen uses.
			for i := len(b.Nodes) - 1; i >= 0; i-- {
				n := b.Nodes[i]
				if ir.HasClass(n, cls) {
					delete(in, n)
				}
				if n.Op == ir.OpPhi {
					continue // phi inputs are not local uses (spec §4.A)
				}
				for _, arg := range n.Args {
					if ir.HasClass(arg, cls) {
						in[arg] = true
					}
				}
			}

			if !setEqual(s.Out[b], out) {
				s.Out[b] = out
				changed = true
			}
			if !setEqual(s.In[b], in) {
				s.In[b] = in
				changed = true
			}
		}
	}

	return s
}

func setEqual(a, b map[*ir.Node]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// LiveIn returns the live-in set of b.
func (s *Sets) LiveIn(b *ir.Block) map[*ir.Node]bool { return s.In[b] }

// LiveOut (aka "live-end", spec §4.A's "live-out of the block") returns
// the live-out set of b.
func (s *Sets) LiveOut(b *ir.Block) map[*ir.Node]bool { return s.Out[b] }
