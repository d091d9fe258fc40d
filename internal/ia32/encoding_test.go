package ia32

import (
	"strconv"
	"strings"
	"testing"

	"github.com/firmgo/firmgo/internal/ir"
)

func regNodeForAddr(name string) *ir.Node {
	n := &ir.Node{}
	n.Register = reg(name)
	return n
}

func TestEncodeAddrModeNoBaseNoIndexUsesDisp32WithEbpEncoding(t *testing.T) {
	a := &AddrMode{Disp: 42}
	res := encodeAddrMode(a, 0)
	if mod := res.ModRM >> 6; mod != 0 {
		t.Errorf("expected mod=00, got %d", mod)
	}
	if rm := res.ModRM & 7; rm != ebpEncoding {
		t.Errorf("expected rm=0x05 (disp32 marker), got 0x%02X", rm)
	}
	if len(res.Disp) != 4 {
		t.Errorf("expected a 4-byte displacement, got %d bytes", len(res.Disp))
	}
}

func TestEncodeAddrModeSmallDispWithBaseUsesDisp8(t *testing.T) {
	a := &AddrMode{Disp: 12, Base: regNodeForAddr("%eax")}
	res := encodeAddrMode(a, 0)
	if mod := res.ModRM >> 6; mod != 1 {
		t.Errorf("expected mod=01 (disp8), got %d", mod)
	}
	if len(res.Disp) != 1 || res.Disp[0] != 12 {
		t.Errorf("expected a single displacement byte of 12, got %v", res.Disp)
	}
}

func TestEncodeAddrModeEspBaseForcesSIB(t *testing.T) {
	a := &AddrMode{Disp: 4, Base: regNodeForAddr("%esp")}
	res := encodeAddrMode(a, 0)
	if !res.HasSIB {
		t.Fatal("expected esp base to force a SIB byte")
	}
	if base := res.SIB & 7; base != sibBaseEncoding {
		t.Errorf("expected SIB base field 0x04, got 0x%02X", base)
	}
}

func TestEncodeAddrModeEbpBaseWithZeroDispForcesDisp8Zero(t *testing.T) {
	a := &AddrMode{Disp: 0, Base: regNodeForAddr("%ebp")}
	res := encodeAddrMode(a, 0)
	if mod := res.ModRM >> 6; mod != 1 {
		t.Errorf("expected mod=01 for ebp-with-zero-disp special case, got %d", mod)
	}
	if len(res.Disp) != 1 || res.Disp[0] != 0 {
		t.Errorf("expected a single zero displacement byte, got %v", res.Disp)
	}
}

func TestEncodeAddrModeIndexedNoBaseNeedsSIBAndDisp32(t *testing.T) {
	a := &AddrMode{Disp: 16, Index: regNodeForAddr("%ecx"), Scale: 4}
	res := encodeAddrMode(a, 0)
	if !res.HasSIB {
		t.Fatal("expected an index-only addressing mode to use SIB")
	}
	if len(res.Disp) != 4 {
		t.Errorf("expected a 4-byte displacement for the no-base form, got %d bytes", len(res.Disp))
	}
}

func TestCondCodeInvertIsSelfInverse(t *testing.T) {
	all := []CondCode{CCEqual, CCNotEqual, CCLess, CCLessEqual, CCGreater, CCGreaterEqual, CCBelow, CCBelowEqual, CCAbove, CCAboveEqual}
	for _, c := range all {
		if c.Invert().Invert() != c {
			t.Errorf("Invert is not self-inverse for %v", c)
		}
	}
}

func TestSelectConditionAppliesPermutedInversion(t *testing.T) {
	if selectCondition(CCLess, false) != CCLess {
		t.Error("expected no change when not permuted")
	}
	if selectCondition(CCLess, true) != CCLess.Invert() {
		t.Error("expected inversion when permuted")
	}
}

func TestIsFallthroughExcludesSwitchSources(t *testing.T) {
	g := ir.NewGraph("f")
	b0 := g.NewBlock()
	b1 := g.NewBlock(b0)
	idx := regNode(g, nil, "%eax")
	ir.NewNode(g, OpSwitchJmp, ir.ModeX, b0, []*ir.Node{idx}, &SwitchJmpAttrs{Default: b1})

	layout := []*ir.Block{b0, b1}
	lidx := blockIndex(layout)
	if IsFallthrough(layout, lidx, b0, b1) {
		t.Error("a switch-case source should never be reported as a fallthrough")
	}
}

func TestPlanLabelsForcesEntryAndMultiPredBlocks(t *testing.T) {
	g := ir.NewGraph("f")
	entry := g.NewBlock()
	left := g.NewBlock(entry)
	right := g.NewBlock(entry)
	merge := g.NewBlock(left, right)

	layout := []*ir.Block{entry, left, right, merge}
	needed := PlanLabels(layout)

	if !needed[entry] {
		t.Error("entry block must always get a label")
	}
	if needed[left] {
		t.Error("left falls through from entry and should need no label")
	}
	if !needed[merge] {
		t.Error("merge has two preds and must get a label")
	}
}

func TestExcTableAssignsIncreasingIDsAndSortsOnFormat(t *testing.T) {
	g := ir.NewGraph("f")
	h1 := g.NewBlock()
	h2 := g.NewBlock()

	tbl := NewExcTable()
	id2 := tbl.Assign(h2)
	id1 := tbl.Assign(h1)
	if id2 >= id1 {
		t.Fatalf("expected increasing ids by assignment order, got %d then %d", id2, id1)
	}

	text := tbl.FormatText(func(b *ir.Block) string {
		if b == h1 {
			return "h1"
		}
		return "h2"
	})
	i2 := strings.Index(text, ".Lexc"+strconv.Itoa(id2))
	i1 := strings.Index(text, ".Lexc"+strconv.Itoa(id1))
	if i2 == -1 || i1 == -1 || i2 >= i1 {
		t.Errorf("expected entries sorted by id in output:\n%s", text)
	}
}

func TestCFAStateTracksStackPointerDelta(t *testing.T) {
	cfa := NewCFAState(8)
	if cfa.Offset != 8 {
		t.Fatalf("expected initial offset 8, got %d", cfa.Offset)
	}
	cfa.AdjustSP(16)
	if cfa.Offset != 24 {
		t.Errorf("expected offset 24 after +16, got %d", cfa.Offset)
	}
	cfa.AdjustSP(-24)
	if cfa.Offset != 0 {
		t.Errorf("expected offset 0 after -24, got %d", cfa.Offset)
	}
	if len(cfa.History) != 3 {
		t.Errorf("expected 3 history entries (initial + 2 adjustments), got %d", len(cfa.History))
	}
}
