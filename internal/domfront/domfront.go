// Package domfront computes dominance: immediate dominators, the dominator
// tree, and reverse postorder block numbering.
//
// This is one of the "external collaborators" spec.md §1 places out of
// scope for the core (dominance analysis lives outside components A/B/C),
// but A and B both consume it through the narrow interface spec §6 names
// (dominance(graph) with idom + dominator-tree walk), so a concrete,
// correct implementation is required to drive them. Uses the standard
// Cooper/Harvey/Kennedy iterative algorithm — simple, and fast enough that
// the real libFirm backend uses the same approach for all but pathological
// graphs.
package domfront

import "github.com/firmgo/firmgo/internal/ir"

// Tree holds the dominator relation for one graph: each block's immediate
// dominator, its dominator-tree children, and a reverse-postorder index
// used by passes that need "dominator-tree pre-order" traversal (spec
// §4.A step 1/2, §4.B step 4).
type Tree struct {
	idom     map[*ir.Block]*ir.Block
	children map[*ir.Block][]*ir.Block
	rpo      []*ir.Block
	rpoIndex map[*ir.Block]int
}

// Compute builds the dominator tree for g, rooted at g.Start.
func Compute(g *ir.Graph) *Tree {
	rpo := reversePostorder(g)
	rpoIndex := make(map[*ir.Block]int, len(rpo))
	for i, b := range rpo {
		rpoIndex[b] = i
	}

	idom := make(map[*ir.Block]*ir.Block, len(rpo))
	idom[g.Start] = g.Start

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == g.Start {
				continue
			}
			var newIdom *ir.Block
			for _, p := range b.Preds {
				if idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, idom, rpoIndex)
			}
			if newIdom != nil && idom[b] != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}
	idom[g.Start] = nil // the root has no dominator

	children := make(map[*ir.Block][]*ir.Block, len(rpo))
	for _, b := range rpo {
		if p := idom[b]; p != nil {
			children[p] = append(children[p], b)
		}
	}

	return &Tree{idom: idom, children: children, rpo: rpo, rpoIndex: rpoIndex}
}

func intersect(a, b *ir.Block, idom map[*ir.Block]*ir.Block, rpoIndex map[*ir.Block]int) *ir.Block {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = idom[a]
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = idom[b]
		}
	}
	return a
}

func reversePostorder(g *ir.Graph) []*ir.Block {
	seen := map[*ir.Block]bool{}
	var post []*ir.Block
	var visit func(b *ir.Block)
	visit = func(b *ir.Block) {
		seen[b] = true
		for _, s := range b.Succs {
			if !seen[s] {
				visit(s)
			}
		}
		post = append(post, b)
	}
	visit(g.Start)
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// IDom returns b's immediate dominator, or nil for the root.
func (t *Tree) IDom(b *ir.Block) *ir.Block { return t.idom[b] }

// Dominates reports whether a dominates b (reflexively: a dominates a).
func (t *Tree) Dominates(a, b *ir.Block) bool {
	for b != nil {
		if b == a {
			return true
		}
		b = t.idom[b]
	}
	return false
}

// PreOrder returns blocks in dominator-tree pre-order, the traversal order
// spec §4.A steps 1/2 and §4.B step 4 require.
func (t *Tree) PreOrder() []*ir.Block {
	var order []*ir.Block
	var visit func(b *ir.Block)
	root := t.rpo[0]
	visit = func(b *ir.Block) {
		order = append(order, b)
		for _, c := range t.children[b] {
			visit(c)
		}
	}
	visit(root)
	return order
}

// ReversePostOrder returns blocks in reverse postorder, the traversal
// spec §4.B step 3's anticipation fixpoint requires.
func (t *Tree) ReversePostOrder() []*ir.Block { return t.rpo }
