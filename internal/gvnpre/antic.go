package gvnpre

import (
	"github.com/firmgo/firmgo/internal/diagnostics"
	"github.com/firmgo/firmgo/internal/ir"
)

// anticipationFixpoint runs spec §4.B step 3 for up to cap full passes
// over the block list in reverse postorder. Each pass recomputes every
// block's antic_in from its successors' current antic_in; the loop stops
// early once nothing changes.
//
// Graphs with loops may not reach a fixpoint within cap iterations — spec
// §9's Open Question (b) on infinite-loop anticipation is resolved
// (SPEC_FULL.md §9) by simply stopping at the cap rather than looping
// forever: antic_in is used conservatively downstream (insertion only
// acts on it, never on its absence), so a capped, possibly-incomplete
// antic_in only forgoes some optimization opportunities, it never admits
// an unsound one.
func (o *Optimizer) anticipationFixpoint(cap int) {
	order := o.dom.ReversePostOrder()

	for iter := 0; iter < cap; iter++ {
		changed := false

		for _, b := range order {
			st := o.state[b]
			newAntic := st.ExpGen.clone()

			switch {
			case b.NumSuccs() == 1 && b.Succs[0].NumPreds() > 1:
				succ := b.Succs[0]
				translated := o.phiTranslateSet(o.anticOf(succ), succ, b)
				newAntic.union(translated)
			case b.NumSuccs() == 1:
				newAntic.union(o.anticOf(b.Succs[0]))
			case b.NumSuccs() > 1:
				inter := o.anticOf(b.Succs[0]).clone()
				for _, s := range b.Succs[1:] {
					inter = inter.intersect(o.anticOf(s))
				}
				newAntic.union(inter)
			}

			if st.AnticIn == nil || !newAntic.equal(st.AnticIn) {
				st.AnticIn = newAntic
				changed = true
			}
		}

		if !changed {
			diagnostics.Debug("gvnpre anticipation fixpoint converged", "iteration", iter+1)
			return
		}
	}

	if o.cfg.SuppressInfLoops {
		diagnostics.Debug("gvnpre anticipation fixpoint hit iteration cap", "cap", cap)
	}
}

// anticOf returns b's current antic_in, or an empty set if it hasn't been
// computed yet this fixpoint (the first pass over a reverse-postorder
// walk can reach a block whose successor, reached later in program order
// via a back-edge, hasn't had its first antic_in computed yet).
func (o *Optimizer) anticOf(b *ir.Block) *valueSet {
	if s := o.state[b].AnticIn; s != nil {
		return s
	}
	return newValueSet()
}
