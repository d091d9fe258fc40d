package gvnpre

import "github.com/firmgo/firmgo/internal/ir"

// phiTranslate substitutes expr's operands as they would read along the
// edge from `to` (a predecessor) into `from` (a block merging `to` among
// others), per spec §4.B.3: "substitutes each phi input in S by the
// corresponding operand along B's position, recursively lifting
// expressions to their translated form and re-numbering."
//
// Every argument is translated uniformly regardless of its mode — which
// already covers the memory-token case spec §4.B.3 calls out separately
// for divmod-shaped nodes (a Div/Mod node's memory-producing operand, if
// it happens to be a Phi in `from`, gets substituted by this same
// recursive walk with no special-casing needed).
func (o *Optimizer) phiTranslate(expr *ir.Node, from, to *ir.Block) *ir.Node {
	if expr.Block != from {
		// Not local to the merge block; already valid unchanged on every
		// incoming edge.
		return expr
	}
	if expr.IsPhi() {
		pos := from.PredIndex(to)
		if pos < 0 || pos >= len(expr.Args) {
			return expr
		}
		return expr.Args[pos]
	}
	if !expr.IsMovable() {
		return expr
	}

	changed := false
	newArgs := make([]*ir.Node, len(expr.Args))
	for i, a := range expr.Args {
		t := o.phiTranslate(a, from, to)
		newArgs[i] = t
		if t != a {
			changed = true
		}
	}
	if !changed {
		return expr
	}

	clone := &ir.Node{Op: expr.Op, Mode: expr.Mode, Args: newArgs, Block: to, Index: -1, Class: expr.Class}
	ir.CopyAttrs(expr, clone)
	return clone
}

// phiTranslateSet translates every member of a value set and re-numbers
// the result, producing a fresh set keyed by the translated expressions'
// value numbers (which may coincide with existing numbers once operands
// resolve to the same underlying values along this edge).
func (o *Optimizer) phiTranslateSet(set *valueSet, from, to *ir.Block) *valueSet {
	out := newValueSet()
	for _, vn := range set.members() {
		rep, _ := set.get(vn)
		t := o.phiTranslate(rep, from, to)
		out.insert(o.vn.number(t), t)
	}
	return out
}

// materialize turns a speculative phiTranslate clone, or a real node that
// merely shares its structure with what block needs, into an actual graph
// node owned by block. A real node already dominating block is reused as-
// is; anything else — a phiTranslate clone (Index == -1), or a real node
// whose own block doesn't dominate block — gets a fresh node built in
// block from recursively materialized arguments (spec §4.B.4: "construct
// a new node... operands substituted to each predecessor's leader"). The
// dominance check matters because phiTranslate only rewrites operands that
// are Phis local to the merge block itself; an expression that sits
// unchanged in the merge block (no local Phi among its arguments) comes
// back as that same already-real node, which is never actually computed
// along a predecessor that doesn't dominate the merge block.
func (o *Optimizer) materialize(n *ir.Node, block *ir.Block) *ir.Node {
	if n.Index >= 0 && (n.Block == nil || o.dom.Dominates(n.Block, block)) {
		return n
	}
	args := make([]*ir.Node, len(n.Args))
	for i, a := range n.Args {
		args[i] = o.materialize(a, block)
	}
	real := ir.NewNode(o.g, n.Op, n.Mode, block, args, n.Attrs)
	real.Class = n.Class
	o.vn.number(real)
	return real
}
