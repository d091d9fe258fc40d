package regalloc

import (
	"github.com/firmgo/firmgo/internal/diagnostics"
	"github.com/firmgo/firmgo/internal/domfront"
	"github.com/firmgo/firmgo/internal/ir"
	"github.com/firmgo/firmgo/internal/live"
)

// Allocator runs the two-pass chordal coloring algorithm (spec §4.A) for
// one register class of one graph. Exported as a type, rather than a bare
// function, so the register class, per-call register names and link
// table stay attached to one run without needing to thread extra
// parameters through every pass — the same shape as the teacher's
// codegen/regalloc.Allocator.
type Allocator struct {
	class *ir.RegisterClass
	names []string
	links *ir.LinkSet
}

// New builds an Allocator for one register class. names supplies the
// symbolic register name for each color index (len(names) should equal
// class.N); it is typically config.RegisterClass.Registers.
func New(class *ir.RegisterClass, names []string) *Allocator {
	return &Allocator{class: class, names: names}
}

// Allocate runs the chordal allocator over g, assigning a Register to
// every node of a.class. dom must be g's dominator tree and liveness must
// already be computed for the same class (spec §4.A's contract: "given an
// IR graph whose dominance is consistent"). When buildGraph is true, the
// optional interference graph is materialized and returned; otherwise nil
// is returned alongside a nil error on success.
func (a *Allocator) Allocate(g *ir.Graph, dom *domfront.Tree, liveness *live.Sets, buildGraph bool) (ifg *Graph, err error) {
	defer diagnostics.Recover(&err)

	a.links = g.Links()
	a.links.Reserve(linkOwner)
	defer a.links.Release(linkOwner)

	if buildGraph {
		ifg = NewGraph()
	}

	order := dom.PreOrder()

	lists := make(map[*ir.Block]*borderList, len(order))
	for _, b := range order {
		lists[b] = a.pressurePass(b, liveness.LiveOut(b), liveness.LiveIn(b), ifg)
	}

	diagnostics.Debug("regalloc pressure pass complete", "class", a.class.Name, "blocks", len(order))

	for _, b := range order {
		a.assignPass(lists[b])
	}

	diagnostics.LogOptimization("chordal-allocate:"+a.class.Name, 0)

	return ifg, nil
}
