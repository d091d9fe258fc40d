// Package gvnpre implements the GVN-PRE optimizer (spec §4.B): value
// numbering, anticipation analysis, partial-redundancy insertion, and
// elimination, as one semantics-preserving rewrite of an IR graph.
//
// Grounded on original_source/ir/opt/gvn_pre.c (identify/remember value
// numbering, phi_translate, compute_antic, insert) for the algorithm
// itself, and on the teacher's pkg/optimizer/optimizer.go for the driver
// shape: one exported entry point (Run, standing in for the teacher's
// Optimize) that logs a phase start/complete and dispatches to named
// internal passes in a fixed order.
package gvnpre

import (
	"fmt"
	"strings"

	"github.com/firmgo/firmgo/internal/ir"
)

// numbering assigns a value number to every node it sees, two nodes
// sharing one iff their opcode, mode, attributes and argument value
// numbers all coincide (spec §3's Value number definition). Phi and
// memory-producing nodes are keyed by pointer identity instead, so they
// "collide only with themselves" per spec §3/§4.B.1 — which has the
// convenient side effect of breaking the recursion below at every loop
// back-edge, since a cyclic argument chain in SSA form always routes
// through at least one Phi.
type numbering struct {
	vn      map[*ir.Node]uint64
	keyToVN map[string]uint64
	rep     map[uint64]*ir.Node
	next    uint64
}

func newNumbering() *numbering {
	return &numbering{
		vn:      map[*ir.Node]uint64{},
		keyToVN: map[string]uint64{},
		rep:     map[uint64]*ir.Node{},
	}
}

// number returns n's value number, computing and interning it on first
// sight. Works equally for real graph nodes and the speculative node
// clones phiTranslate produces (identified only by structural key, since
// those clones are never seen twice as the same pointer).
func (vn *numbering) number(n *ir.Node) uint64 {
	if v, ok := vn.vn[n]; ok {
		return v
	}
	key := vn.key(n)
	if v, ok := vn.keyToVN[key]; ok {
		vn.vn[n] = v
		return v
	}
	v := vn.next
	vn.next++
	vn.vn[n] = v
	vn.keyToVN[key] = v
	vn.rep[v] = n
	return v
}

func (vn *numbering) key(n *ir.Node) string {
	if n.IsPhi() || n.Mode == ir.ModeM {
		return fmt.Sprintf("identity:%p", n)
	}
	var sb strings.Builder
	sb.WriteString(n.Op.Name)
	sb.WriteByte('|')
	sb.WriteString(n.Mode.Name)
	sb.WriteByte('|')
	switch a := n.Attrs.(type) {
	case nil:
	case ir.Hashable:
		fmt.Fprintf(&sb, "%d", a.Hash())
	default:
		fmt.Fprintf(&sb, "%v", a)
	}
	sb.WriteByte('|')
	for _, arg := range n.Args {
		fmt.Fprintf(&sb, "%d,", vn.number(arg))
	}
	return sb.String()
}

// identify runs value numbering over every node currently in the graph.
// Iteration order doesn't need to be topological: number() recurses into
// unregistered arguments on demand, and Phi's identity-only key stops the
// recursion at every back-edge.
func (o *Optimizer) identify() {
	for _, n := range o.g.Nodes() {
		o.vn.number(n)
	}
}
