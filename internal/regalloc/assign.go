package regalloc

import (
	"github.com/firmgo/firmgo/internal/diagnostics"
	"github.com/firmgo/firmgo/internal/ir"
)

// assignPass runs step 2 of spec §4.A for one block: walk the border list
// in reverse append order. Because the list was built tail-append during
// the backward pressure scan, walking it in reverse reproduces forward
// execution order (spec §3: "use precedes def in list order" as scanned
// backward) — and, within one instruction's own def/use borders, further
// reverses them so that a local def's source operands are freed before the
// def itself claims a color, matching the real destination-reuses-source
// pattern two-address encodings rely on.
//
// Live-in values are not colored here: they carry the color already
// assigned in the dominating block that defined them. assignPass runs
// blocks in dominator-tree pre-order, so that block has always already run
// by the time this one does.
func (a *Allocator) assignPass(list *borderList) {
	used := make([]bool, a.class.N)

	for i := len(list.entries) - 1; i >= 0; i-- {
		b := list.entries[i]

		if !b.IsDef {
			// Free the color held by this use's paired def (spec §4.A step 2:
			// "at a use whose paired def lies in this block, clear the
			// color" — every use border's OtherEnd resolves to a def border
			// in this same block's list, real or the synthetic live-in def).
			def := b.OtherEnd
			if def.Node.Register == nil {
				diagnostics.Fatalf(diagnostics.KindInvariant, "regalloc.assignPass",
					"use of %s reached before its paired def was colored", b.Node.Op)
			}
			used[def.Node.Register.Index] = false
			continue
		}

		n := b.Node
		if n.Register != nil {
			// Already colored: a live-in def border whose value was
			// assigned by its dominating block. Mark its color held for the
			// duration of this block too.
			used[n.Register.Index] = true
			continue
		}
		if !b.IsReal {
			diagnostics.Fatalf(diagnostics.KindInvariant, "regalloc.assignPass",
				"live-in value %s has no color from its dominating definition", n.Op)
		}

		color := -1
		for c := 0; c < len(used); c++ {
			if !used[c] {
				color = c
				break
			}
		}
		if color < 0 {
			diagnostics.Fatalf(diagnostics.KindInvariant, "regalloc.assignPass",
				"color exhaustion assigning %s: all %d colors of class %s in use",
				n.Op, a.class.N, a.class.Name)
		}
		used[color] = true
		n.Register = &ir.Register{Class: a.class, Index: color, Name: a.registerName(color)}
	}
}

// registerName looks up the symbolic name for color index c, falling back
// to a synthetic placeholder if the caller's name table is shorter than
// the class size (should not happen when config.RegisterClass.N matches
// the configured register list length).
func (a *Allocator) registerName(c int) string {
	if c >= 0 && c < len(a.names) {
		return a.names[c]
	}
	return "?"
}
