package gvnpre

import "github.com/firmgo/firmgo/internal/ir"

// insertionFixpoint runs spec §4.B step 4 for up to cap passes over the
// dominator tree in pre-order. Returns the number of nodes materialized.
func (o *Optimizer) insertionFixpoint(cap int) int {
	total := 0

	for iter := 0; iter < cap; iter++ {
		changedAny := false

		for _, b := range o.dom.PreOrder() {
			if idom := o.dom.IDom(b); idom != nil {
				// Propagate the dominator's avail_out down before acting on
				// this block, so insertions made earlier in this same pass
				// (at a dominating block visited first in pre-order) are
				// visible here (spec §4.B.4: "propagate each block's
				// new_set to dominated blocks' avail_out").
				o.state[b].AvailOut.union(o.state[idom].AvailOut)
			}

			if b.NumPreds() < 2 {
				continue
			}

			n, changed := o.insertAtBlock(b)
			total += n
			if changed {
				changedAny = true
			}
		}

		if !changedAny {
			return total
		}
	}

	return total
}

func (o *Optimizer) insertAtBlock(b *ir.Block) (inserted int, changed bool) {
	st := o.state[b]
	idom := o.dom.IDom(b)
	var idomAvail *valueSet
	if idom != nil {
		idomAvail = o.state[idom].AvailOut
	} else {
		idomAvail = newValueSet()
	}

	for _, vn := range st.AnticIn.members() {
		if st.AnticDone[vn] {
			continue
		}
		if idomAvail.has(vn) {
			// Fully redundant already via the dominator.
			st.AnticDone[vn] = true
			continue
		}

		expr, _ := st.AnticIn.get(vn)

		predLeader := make(map[*ir.Block]*ir.Node, len(b.Preds))
		anyAvail := false
		for _, p := range b.Preds {
			translated := o.phiTranslate(expr, b, p)
			tv := o.vn.number(translated)
			if leader, ok := o.state[p].AvailOut.get(tv); ok {
				predLeader[p] = leader
				anyAvail = true
			}
		}
		if !anyAvail {
			// Not available along any incoming edge: making it fully
			// redundant would mean materializing a brand-new computation on
			// every predecessor rather than eliminating an existing one —
			// the greedy check spec §4.B.4 calls for skips this case.
			continue
		}

		for _, p := range b.Preds {
			if _, ok := predLeader[p]; ok {
				continue
			}
			translated := o.phiTranslate(expr, b, p)
			newNode := o.materialize(translated, p)
			tv := o.vn.number(newNode)
			o.state[p].AvailOut.insert(tv, newNode)
			if o.state[p].NewSet == nil {
				o.state[p].NewSet = newValueSet()
			}
			o.state[p].NewSet.insert(tv, newNode)
			predLeader[p] = newNode
			inserted++
			changed = true
		}

		phiArgs := make([]*ir.Node, len(b.Preds))
		for i, p := range b.Preds {
			phiArgs[i] = predLeader[p]
		}
		phi := ir.NewNode(o.g, ir.OpPhi, expr.Mode, b, phiArgs, nil)
		// NewNode appended the phi; move it to the head of b so it precedes
		// every node that elimination rewires to use it.
		copy(b.Nodes[1:], b.Nodes[:len(b.Nodes)-1])
		b.Nodes[0] = phi
		phi.Class = expr.Class // the phi carries the same value, so the same class
		o.vn.number(phi)       // registers the phi under its own identity VN

		st.AvailOut.insert(vn, phi)
		if st.NewSet == nil {
			st.NewSet = newValueSet()
		}
		st.NewSet.insert(vn, phi)
		st.AnticDone[vn] = true
		changed = true
	}

	return inserted, changed
}
