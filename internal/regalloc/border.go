// Package regalloc implements the chordal register allocator (spec §4.A):
// a backward pressure pass that builds a perfect-elimination-order border
// list per block, followed by a forward assignment pass that greedily
// colors along that order.
//
// Grounded directly on original_source/ir/be/bechordal.c's border_add,
// pressure, and assign functions, and on the teacher's
// pkg/codegen/regalloc (linear-scan Allocator / graph-coloring
// GraphAllocator) for Go idiom: an Allocator built by New from a register
// class and its register names, and diagnostics.Debug call sites at the
// same junctures. The emitter reads each node's assigned Register directly.
package regalloc

import (
	"github.com/firmgo/firmgo/internal/ir"
)

const linkOwner = "regalloc"

// border is one entry of a block's elimination-order list (spec §3's
// "Border record"): a def or a use, in the temporal order the backward
// scan encountered it, with the matching def/use cross-linked via OtherEnd.
type border struct {
	Node     *ir.Node
	Step     int
	IsDef    bool
	IsReal   bool
	Pressure int
	OtherEnd *border
}

// borderList is one block's list, built tail-append during the backward
// scan so that consuming it in reverse (last-appended first) reproduces
// forward execution order — the perfect elimination order spec §4.A
// describes walking "in reverse list order" during assignment.
type borderList struct {
	entries []*border
}

func (bl *borderList) push(b *border) { bl.entries = append(bl.entries, b) }

// pressurePass runs step 1 of spec §4.A for one block: seed borders for
// values live-out of the block, walk the block's schedule in reverse,
// push def/use borders, and finally push def borders for live-in values.
// If ifg is non-nil, interference edges are recorded as each def is
// encountered against the currently-live bitset (the "optional
// interference-graph" construction named in spec §4.A).
func (a *Allocator) pressurePass(b *ir.Block, liveOut, liveIn map[*ir.Node]bool, ifg *Graph) *borderList {
	list := &borderList{}
	live := map[*ir.Node]bool{}
	step := 0
	pressure := 0

	// Seed: final uses for values live-out of the block.
	for n := range liveOut {
		if !ir.HasClass(n, a.class) {
			continue
		}
		live[n] = true
		pressure++
		a.pushUse(list, n, step, pressure, false)
	}
	step++

	sched := ir.ScheduleOf(b)
	if len(sched) == 0 {
		sched = b.Nodes
	}
	for i := len(sched) - 1; i >= 0; i-- {
		n := sched[i]

		if ir.HasClass(n, a.class) {
			wasLive := live[n]
			delete(live, n)
			if wasLive {
				pressure--
			}
			bd := a.pushDef(list, n, step, pressure, true)
			if ifg != nil {
				for v := range live {
					ifg.AddEdge(bd.Node, v)
				}
			}
		}

		if n.Op != ir.OpPhi {
			for _, arg := range n.Args {
				if ir.HasClass(arg, a.class) && !live[arg] {
					live[arg] = true
					pressure++
					a.pushUse(list, arg, step, pressure, true)
				}
			}
		}
		step++
	}

	for n := range liveIn {
		if !ir.HasClass(n, a.class) {
			continue
		}
		a.pushDef(list, n, step, pressure, false)
	}

	return list
}

func (a *Allocator) pushUse(list *borderList, n *ir.Node, step, pressure int, real bool) *border {
	def := &border{}
	use := &border{Node: n, Step: step, IsDef: false, IsReal: real, Pressure: pressure, OtherEnd: def}
	def.OtherEnd = use
	a.links.Set(n, def)
	list.push(use)
	return use
}

func (a *Allocator) pushDef(list *borderList, n *ir.Node, step, pressure int, real bool) *border {
	v, ok := a.links.Get(n)
	if !ok {
		// n was never pushed as a use and isn't live-out: a genuinely dead
		// def (defined, never read). assignPass still needs to give it a
		// color, since later instruction-selection output may reference the
		// register slot even when the SSA value itself has no uses left, so
		// this is a single-point border rather than a liveness error.
		bd := &border{Node: n, Step: step, IsDef: true, IsReal: real, Pressure: pressure}
		list.push(bd)
		return bd
	}
	def := v.(*border)
	a.links.Clear(n)
	def.Step = step
	def.Pressure = pressure
	def.IsDef = true
	def.IsReal = real
	def.Node = n
	list.push(def)
	return def
}
