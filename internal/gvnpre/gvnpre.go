package gvnpre

import (
	"github.com/firmgo/firmgo/internal/config"
	"github.com/firmgo/firmgo/internal/diagnostics"
	"github.com/firmgo/firmgo/internal/domfront"
	"github.com/firmgo/firmgo/internal/ir"
)

// blockState holds the four per-block value sets spec §4.B's "Per-block
// state" names, plus new_set(B) (spec §4.B.4's insertion bookkeeping).
type blockState struct {
	ExpGen    *valueSet
	AvailOut  *valueSet
	AnticIn   *valueSet
	AnticDone map[uint64]bool
	NewSet    *valueSet
}

// Optimizer runs one GVN-PRE pass over a graph. Exported as a type rather
// than a bare function so Run can be the single narrow entry point named
// in spec §6 (do_gvn_pre) while the phases underneath share numbering and
// per-block state without threading it through every call.
type Optimizer struct {
	g     *ir.Graph
	dom   *domfront.Tree
	cfg   config.GVNPRE
	vn    *numbering
	state map[*ir.Block]*blockState
}

// Run executes one full GVN-PRE pass over g: value numbering, exp_gen/
// avail_out construction, the anticipation fixpoint, the insertion
// fixpoint, and elimination — in that order, as spec §4.B's phases list
// them. Returns the number of computations materialized in predecessors
// plus nodes eliminated (inserted phis are not counted), for
// diagnostics.LogOptimization-style reporting by the caller.
func Run(g *ir.Graph, dom *domfront.Tree, cfg config.GVNPRE) (changes int, err error) {
	defer diagnostics.Recover(&err)

	diagnostics.LogPhase("gvn-pre")

	o := &Optimizer{
		g:     g,
		dom:   dom,
		cfg:   cfg,
		vn:    newNumbering(),
		state: map[*ir.Block]*blockState{},
	}

	o.identify()
	o.buildExpGenAvailOut()
	o.anticipationFixpoint(cfg.AnticIterationCap)
	inserted := o.insertionFixpoint(cfg.InsertIterationCap)
	pairs := o.eliminate()
	eliminated := o.applyEliminations(pairs)

	diagnostics.LogOptimization("gvn-pre", inserted+eliminated)
	diagnostics.LogPhaseComplete("gvn-pre")

	return inserted + eliminated, nil
}

// isClean reports whether every in-block argument of n is already a
// member of expGen — the "clean" test spec §4.B.2 uses to decide whether
// n's value is safe to anticipate without first recomputing something
// defined later in the same block.
func (o *Optimizer) isClean(n *ir.Node, expGen *valueSet) bool {
	for _, a := range n.Args {
		if a.Block != n.Block {
			continue // values from a dominating block are already available
		}
		if a.IsConst() || !a.IsMovable() {
			continue // leaves and pinned nodes are trivially available, never exp_gen members themselves
		}
		if !expGen.has(o.vn.number(a)) {
			return false
		}
	}
	return true
}

// buildExpGenAvailOut runs spec §4.B step 2, walking the dominator tree
// top-down so each block's avail_out starts as a copy of its immediate
// dominator's (values available at entry remain available at exit unless
// locally redefined).
func (o *Optimizer) buildExpGenAvailOut() {
	for _, b := range o.dom.PreOrder() {
		st := &blockState{ExpGen: newValueSet(), AnticDone: map[uint64]bool{}}
		if idom := o.dom.IDom(b); idom != nil {
			st.AvailOut = o.state[idom].AvailOut.clone()
		} else {
			st.AvailOut = newValueSet()
		}

		for _, n := range b.Nodes {
			vn := o.vn.number(n)
			if n.IsMovable() && !n.IsConst() && o.isClean(n, st.ExpGen) && !st.ExpGen.has(vn) {
				st.ExpGen.insert(vn, n)
			}
			// First occurrence wins: avail_out's leader for a value number
			// must dominate every later node sharing that number, so a
			// later local recomputation (or one inherited from idom) never
			// displaces an earlier leader.
			if !st.AvailOut.has(vn) {
				st.AvailOut.insert(vn, n)
			}
		}

		o.state[b] = st
	}
}
