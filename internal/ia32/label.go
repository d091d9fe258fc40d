package ia32

import "github.com/firmgo/firmgo/internal/ir"

// blockIndex builds the layout position lookup label planning and the
// fallthrough rule both need. Block layout is fixed by the external
// scheduler (spec §4.C.1: "emission follows that order"); layout is
// whatever order the caller (package pipeline) supplies.
func blockIndex(layout []*ir.Block) map[*ir.Block]int {
	idx := make(map[*ir.Block]int, len(layout))
	for i, b := range layout {
		idx[b] = i
	}
	return idx
}

// IsFallthrough implements spec §4.C's fallthrough rule: "a control edge
// is a fallthrough iff its predecessor projection target block is the
// schedule-successor of the projection's block, and the projection is not
// a switch case." terminatorIsSwitch reports, for a given predecessor block,
// whether its terminator is a SwitchJmp (switch-case edges are never
// fallthroughs, even when laid out adjacently, since they're reached
// through the jump table).
func IsFallthrough(layout []*ir.Block, idx map[*ir.Block]int, from, to *ir.Block) bool {
	if terminatorIsSwitch(from) {
		return false
	}
	i, ok := idx[from]
	if !ok || i+1 >= len(layout) {
		return false
	}
	return layout[i+1] == to
}

func terminatorIsSwitch(b *ir.Block) bool {
	for _, n := range b.Nodes {
		if n.Op == OpSwitchJmp {
			return true
		}
	}
	return false
}

// PlanLabels decides, for every block in layout, whether it needs a label
// (spec §4.C.1): the entry block, any block forced via BlockInfo.HasLabel
// (exception targets, and anything else the caller pins), and any block
// reached by more than one predecessor or by a single predecessor whose
// edge isn't a fallthrough.
func PlanLabels(layout []*ir.Block) map[*ir.Block]bool {
	idx := blockIndex(layout)
	needed := make(map[*ir.Block]bool, len(layout))

	for i, b := range layout {
		switch {
		case i == 0:
			needed[b] = true
		case b.Info != nil && b.Info.HasLabel:
			needed[b] = true
		case len(b.Preds) != 1:
			needed[b] = true
		case !IsFallthrough(layout, idx, b.Preds[0], b):
			needed[b] = true
		default:
			needed[b] = false
		}
	}

	return needed
}

// ShouldAlign reports whether a block's execution frequency clears the
// configured alignment threshold (spec §4.C.1: "align blocks above a
// frequency threshold").
func ShouldAlign(b *ir.Block, threshold float64) bool {
	return b.Info != nil && b.Info.Freq > threshold
}
