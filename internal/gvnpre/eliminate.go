package gvnpre

import "github.com/firmgo/firmgo/internal/ir"

// elimPair is spec §3's Elimination pair: an old node to discard and the
// leader expression that replaces every use of it.
type elimPair struct {
	Old, New *ir.Node
	Reason   string
}

// eliminate performs the single discovery pass spec §4.B step 5 describes:
// for every movable, non-constant, non-Phi node, check whether its
// block's avail_out already names a different leader for the same value
// number, and if so, queue a replacement. Traversal order doesn't affect
// the result here — avail_out is fully converged by the time eliminate
// runs — so this reuses the same dominator-tree pre-order walk the other
// passes already have, rather than introducing a distinct post-order
// traversal for no behavioral difference.
func (o *Optimizer) eliminate() []elimPair {
	var pairs []elimPair

	for _, b := range o.dom.PreOrder() {
		st := o.state[b]
		for _, n := range b.Nodes {
			if !n.IsMovable() || n.IsConst() || n.IsPhi() {
				continue
			}
			vn := o.vn.number(n)
			leader, ok := st.AvailOut.get(vn)
			if ok && leader != n {
				pairs = append(pairs, elimPair{Old: n, New: leader, Reason: "gvn-pre redundancy"})
			}
		}
	}

	return pairs
}

// applyEliminations rewires every use of each pair's Old node to New, then
// drops Old from its block's node list. Applied as one batch after
// discovery (spec §3: "queued during discovery and applied in a second
// pass") so later discovery checks aren't disturbed by earlier rewrites.
func (o *Optimizer) applyEliminations(pairs []elimPair) int {
	if len(pairs) == 0 {
		return 0
	}

	replacement := make(map[*ir.Node]*ir.Node, len(pairs))
	removed := make(map[*ir.Node]bool, len(pairs))
	for _, p := range pairs {
		replacement[p.Old] = p.New
		removed[p.Old] = true
	}

	for _, n := range o.g.Nodes() {
		for i, a := range n.Args {
			if r, ok := replacement[a]; ok {
				n.Args[i] = r
			}
		}
	}

	blocks := map[*ir.Block]bool{}
	for _, p := range pairs {
		blocks[p.Old.Block] = true
	}
	for b := range blocks {
		kept := b.Nodes[:0]
		for _, n := range b.Nodes {
			if !removed[n] {
				kept = append(kept, n)
			}
		}
		b.Nodes = kept
	}

	return len(pairs)
}
