package ia32

import (
	"strings"
	"testing"

	"github.com/firmgo/firmgo/internal/ir"
)

func reg(name string) *ir.Register { return &ir.Register{Name: name} }

func regNode(g *ir.Graph, b *ir.Block, name string) *ir.Node {
	n := ir.NewNode(g, OpMov, ir.ModeIs, b, nil, nil)
	n.Register = reg(name)
	return n
}

// buildBinOp wires a two-argument register binop node with dst assigned.
func buildBinOp(g *ir.Graph, b *ir.Block, op *ir.Op, dst, src1, src2 string) *ir.Node {
	a1 := regNode(g, nil, src1)
	a2 := regNode(g, nil, src2)
	n := ir.NewNode(g, op, ir.ModeIs, b, []*ir.Node{a1, a2}, &BinOpAttrs{})
	n.Register = reg(dst)
	return n
}

func TestRoundtripArithmeticOperations(t *testing.T) {
	tests := []struct {
		name string
		op   *ir.Op
		want string
	}{
		{"addition", OpAddRM, "addl"},
		{"subtraction", OpSubRM, "subl"},
		{"bitwise and", OpAndRM, "andl"},
		{"bitwise or", OpOrRM, "orl"},
		{"bitwise xor", OpXorRM, "xorl"},
		{"comparison", OpCmp, "cmpl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := ir.NewGraph("f")
			b := g.NewBlock()
			b.Info.HasLabel = true
			buildBinOp(g, b, tt.op, "%eax", "%eax", "%ebx")
			text, err := EmitText([]*ir.Block{b}, 8)
			if err != nil {
				t.Fatalf("EmitText: %v", err)
			}
			if !strings.Contains(text, tt.want) {
				t.Errorf("expected instruction %q not found in:\n%s", tt.want, text)
			}
		})
	}
}

func TestRoundtripIMulTwoAddressAndThreeAddress(t *testing.T) {
	g := ir.NewGraph("f")
	b := g.NewBlock()
	b.Info.HasLabel = true

	src1 := regNode(g, nil, "%eax")
	src2 := regNode(g, nil, "%ebx")
	twoAddr := ir.NewNode(g, OpIMul, ir.ModeIs, b, []*ir.Node{src1, src2}, &IMulAttrs{})
	twoAddr.Register = reg("%eax")

	src3 := regNode(g, nil, "%ecx")
	src4 := regNode(g, nil, "%edx")
	threeAddr := ir.NewNode(g, OpIMul, ir.ModeIs, b, []*ir.Node{src3, src4}, &IMulAttrs{})
	threeAddr.Register = reg("%eax")

	text, err := EmitText([]*ir.Block{b}, 8)
	if err != nil {
		t.Fatalf("EmitText: %v", err)
	}
	if !strings.Contains(text, "imull %ebx, %eax") {
		t.Errorf("expected two-address imul in:\n%s", text)
	}
	if !strings.Contains(text, "movl %ecx, %eax") || !strings.Contains(text, "imull %edx, %eax") {
		t.Errorf("expected three-address imul sequence in:\n%s", text)
	}
}

func TestRoundtripCMovccSwapsWhenOutEqualsTrueInput(t *testing.T) {
	g := ir.NewGraph("f")
	b := g.NewBlock()
	b.Info.HasLabel = true

	falseIn := regNode(g, nil, "%ebx")
	trueIn := regNode(g, nil, "%eax")
	n := ir.NewNode(g, OpCMovcc, ir.ModeIs, b, []*ir.Node{falseIn, trueIn}, &CMovccAttrs{Cond: CCLess})
	n.Register = reg("%eax")

	text, err := EmitText([]*ir.Block{b}, 8)
	if err != nil {
		t.Fatalf("EmitText: %v", err)
	}
	// out (%eax) equals the true input, so the emitter must swap to the
	// false input and invert the condition to ge.
	if !strings.Contains(text, "cmovge %ebx, %eax") {
		t.Errorf("expected inverted cmov in:\n%s", text)
	}
}

func TestRoundtripJccFallthroughCollapsesToInvertedBranch(t *testing.T) {
	g := ir.NewGraph("f")
	b0 := g.NewBlock()
	b0.Info.HasLabel = true
	btrue := g.NewBlock(b0)
	bfalse := g.NewBlock(b0)

	ir.NewNode(g, OpJcc, ir.ModeX, b0, nil, &JccAttrs{
		Cond: CCLess, TrueBlock: btrue, FalseBlock: bfalse,
	})

	layout := []*ir.Block{b0, btrue, bfalse}
	text, err := EmitText(layout, 8)
	if err != nil {
		t.Fatalf("EmitText: %v", err)
	}
	if !strings.Contains(text, "jge") {
		t.Errorf("expected inverted jge for fallthrough collapse in:\n%s", text)
	}
	if strings.Contains(text, "jmp") {
		t.Errorf("fallthrough collapse should need no explicit jmp:\n%s", text)
	}
}

func TestRoundtripJccUnorderedGuard(t *testing.T) {
	g := ir.NewGraph("f")
	b0 := g.NewBlock()
	b0.Info.HasLabel = true
	btrue := g.NewBlock(b0)
	bfalse := g.NewBlock(b0)
	bfalse.Info.HasLabel = true

	ir.NewNode(g, OpJcc, ir.ModeX, b0, nil, &JccAttrs{
		Cond: CCEqual, Unordered: true, TrueBlock: btrue, FalseBlock: bfalse,
	})

	text, err := EmitText([]*ir.Block{b0, btrue, bfalse}, 8)
	if err != nil {
		t.Fatalf("EmitText: %v", err)
	}
	if !strings.Contains(text, "jp") {
		t.Errorf("expected parity guard before an unordered equality branch:\n%s", text)
	}
}

func TestRoundtripSwitchEmitsTableAfterBody(t *testing.T) {
	g := ir.NewGraph("f")
	b0 := g.NewBlock()
	b0.Info.HasLabel = true
	c0 := g.NewBlock(b0)
	c0.Info.HasLabel = true
	c1 := g.NewBlock(b0)
	c1.Info.HasLabel = true
	def := g.NewBlock(b0)
	def.Info.HasLabel = true

	idx := regNode(g, nil, "%eax")
	ir.NewNode(g, OpSwitchJmp, ir.ModeX, b0, []*ir.Node{idx}, &SwitchJmpAttrs{
		Cases:   []SwitchCase{{Value: 0, Target: c0}, {Value: 1, Target: c1}},
		Default: def,
	})

	text, err := EmitText([]*ir.Block{b0, c0, c1, def}, 8)
	if err != nil {
		t.Fatalf("EmitText: %v", err)
	}
	if !strings.Contains(text, "jmp *") {
		t.Errorf("expected indirect jump through table in:\n%s", text)
	}
	if !strings.Contains(text, ".section .rodata") {
		t.Errorf("expected jump table section after function body in:\n%s", text)
	}
}

// TestEmitBinarySwitchRelocationEncodesScaleFour pins the exact bytes
// emitSwitchRelocation claims to produce: ModR/M 0x24 (mod=00, reg=4 for
// the FF /4 JMP r/m32 extension, rm=0x04 for a SIB byte) followed by SIB
// 0x85 (scale=4, index=%eax's encoding 0, no base). A scale field of zero
// would index the table by stride 1 instead of 4, landing on the wrong
// case's address.
func TestEmitBinarySwitchRelocationEncodesScaleFour(t *testing.T) {
	g := ir.NewGraph("f")
	b0 := g.NewBlock()
	b0.Info.HasLabel = true
	c0 := g.NewBlock(b0)
	c0.Info.HasLabel = true
	def := g.NewBlock(b0)
	def.Info.HasLabel = true

	idx := regNode(g, nil, "%eax")
	ir.NewNode(g, OpSwitchJmp, ir.ModeX, b0, []*ir.Node{idx}, &SwitchJmpAttrs{
		Cases:   []SwitchCase{{Value: 0, Target: c0}},
		Default: def,
	})

	out, err := EmitBinary([]*ir.Block{b0, c0, def}, 8)
	if err != nil {
		t.Fatalf("EmitBinary: %v", err)
	}
	ffIdx := strings.Index(out, ".byte 0xFF")
	modrmIdx := strings.Index(out, ".byte 0x24")
	sibIdx := strings.Index(out, ".byte 0x85")
	if ffIdx < 0 || modrmIdx < 0 || sibIdx < 0 {
		t.Fatalf("expected the FF 24 85 indirect-jump byte sequence in:\n%s", out)
	}
	if !(ffIdx < modrmIdx && modrmIdx < sibIdx) {
		t.Errorf("expected opcode, ModR/M, SIB in that order, got:\n%s", out)
	}
}

func TestRoundtripMinus64BitIdentitySequence(t *testing.T) {
	g := ir.NewGraph("f")
	b := g.NewBlock()
	b.Info.HasLabel = true

	loIn := regNode(g, nil, "%eax")
	hiIn := regNode(g, nil, "%edx")
	n := ir.NewNode(g, OpMinus64, ir.ModeLs, b, []*ir.Node{loIn, hiIn}, &Minus64Attrs{HiOut: reg("%edx")})
	n.Register = reg("%eax")

	text, err := EmitText([]*ir.Block{b}, 8)
	if err != nil {
		t.Fatalf("EmitText: %v", err)
	}
	hiIdx := strings.Index(text, "negl %edx")
	loIdx := strings.Index(text, "negl %eax")
	sbbIdx := strings.Index(text, "sbbl $0, %edx")
	if hiIdx < 0 || loIdx < 0 || sbbIdx < 0 {
		t.Fatalf("expected neg/neg/sbb sequence in:\n%s", text)
	}
	if !(hiIdx < loIdx && loIdx < sbbIdx) {
		t.Errorf("the high negation must run before the low negation, which must immediately precede the sbb (so the sbb reads the low negation's borrow), got:\n%s", text)
	}
}

func TestRoundtripMinus64BitCrossAssignedNeedsSwap(t *testing.T) {
	g := ir.NewGraph("f")
	b := g.NewBlock()
	b.Info.HasLabel = true

	loIn := regNode(g, nil, "%eax")
	hiIn := regNode(g, nil, "%edx")
	n := ir.NewNode(g, OpMinus64, ir.ModeLs, b, []*ir.Node{loIn, hiIn}, &Minus64Attrs{HiOut: reg("%eax")})
	n.Register = reg("%edx")

	text, err := EmitText([]*ir.Block{b}, 8)
	if err != nil {
		t.Fatalf("EmitText: %v", err)
	}
	if !strings.Contains(text, "xchgl %eax, %edx") {
		t.Errorf("expected an xchg preface for cross-assigned outputs in:\n%s", text)
	}
}

// execAsm interprets the tiny subset of AT&T-syntax instructions
// emitMinus64 can emit, against a virtual register file, so tests can
// assert on the actual 32-bit arithmetic result rather than on which
// mnemonics happen to appear in the output.
func execAsm(t *testing.T, text string, regs map[string]uint32) {
	t.Helper()
	var cf bool
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		mnemonic, rest, _ := strings.Cut(line, " ")
		var ops []string
		for _, o := range strings.Split(rest, ",") {
			ops = append(ops, strings.TrimSpace(o))
		}
		switch mnemonic {
		case "xchgl":
			regs[ops[0]], regs[ops[1]] = regs[ops[1]], regs[ops[0]]
		case "movl":
			regs[ops[1]] = regs[ops[0]]
		case "negl":
			old := regs[ops[0]]
			regs[ops[0]] = -old
			cf = old != 0
		case "notl":
			regs[ops[0]] = ^regs[ops[0]]
		case "xorl":
			if ops[0] != ops[1] {
				t.Fatalf("unsupported xorl operands in %q", line)
			}
			regs[ops[0]] = 0
			cf = false
		case "subl":
			src, dst := regs[ops[0]], regs[ops[1]]
			regs[ops[1]] = dst - src
			cf = src > dst
		case "sbbl":
			var src uint32
			switch ops[0] {
			case "$0":
				src = 0
			case "$-1":
				src = 0xFFFFFFFF
			default:
				src = regs[ops[0]]
			}
			var borrow uint64
			if cf {
				borrow = 1
			}
			dst := regs[ops[1]]
			total := uint64(dst) - uint64(src) - borrow
			regs[ops[1]] = uint32(total)
			cf = total > 0xFFFFFFFF
		default:
			t.Fatalf("execAsm: unsupported instruction %q", line)
		}
	}
}

// TestMinus64BitPermutationsNegateCorrectly exercises spec §8's demand that
// all four input/output register permutations (identity, fully
// cross-assigned, and each one-sided alias) be run through the actual
// negate-in-two-halves arithmetic, not just checked for mnemonic presence.
// hi=5,lo=0 is the case where negating the halves in the wrong order
// subtracts the wrong word's borrow (see emitMinus64's doc comment).
func TestMinus64BitPermutationsNegateCorrectly(t *testing.T) {
	cases := []struct {
		name                     string
		loIn, hiIn, loOut, hiOut string
	}{
		{"identity", "%eax", "%edx", "%eax", "%edx"},
		{"crossAssigned", "%eax", "%edx", "%edx", "%eax"},
		{"loAliasesHiIn", "%ecx", "%eax", "%eax", "%edx"},
		{"hiAliasesLoIn", "%eax", "%ecx", "%edx", "%eax"},
	}

	vectors := []struct{ hi, lo uint32 }{
		{5, 0},
		{0, 1},
		{7, 3},
		{0, 0},
	}

	for _, c := range cases {
		for _, v := range vectors {
			t.Run(c.name, func(t *testing.T) {
				e := &emitter{}
				e.emitMinus64(c.loIn, c.hiIn, c.loOut, c.hiOut)

				regs := map[string]uint32{}
				// Seed every distinct register name used by this
				// permutation with the input it's supposed to hold;
				// aliased names naturally collapse to one map entry.
				regs[c.loIn] = v.lo
				regs[c.hiIn] = v.hi
				if _, ok := regs[c.loOut]; !ok {
					regs[c.loOut] = 0
				}
				if _, ok := regs[c.hiOut]; !ok {
					regs[c.hiOut] = 0
				}

				execAsm(t, e.w.String(), regs)

				wantLo := -v.lo
				wantHi := -v.hi
				if v.lo != 0 {
					wantHi--
				}
				if regs[c.loOut] != wantLo || regs[c.hiOut] != wantHi {
					t.Errorf("hi=%#x lo=%#x: got hiOut=%#x loOut=%#x, want hiOut=%#x loOut=%#x\n%s",
						v.hi, v.lo, regs[c.hiOut], regs[c.loOut], wantHi, wantLo, e.w.String())
				}
			})
		}
	}
}

func TestRoundtripCopyBUnrollsResidue(t *testing.T) {
	g := ir.NewGraph("f")
	b := g.NewBlock()
	b.Info.HasLabel = true

	dst := regNode(g, nil, "%edi")
	src := regNode(g, nil, "%esi")
	ir.NewNode(g, OpCopyB, ir.ModeM, b, []*ir.Node{dst, src}, &CopyBAttrs{Size: 11})

	text, err := EmitText([]*ir.Block{b}, 8)
	if err != nil {
		t.Fatalf("EmitText: %v", err)
	}
	if strings.Count(text, "movsl") != 2 {
		t.Errorf("expected two movsl for 8 of 11 bytes in:\n%s", text)
	}
	if !strings.Contains(text, "movsw") || !strings.Contains(text, "movsb") {
		t.Errorf("expected movsw+movsb residue for the remaining 3 bytes in:\n%s", text)
	}
}

func TestValidatorAcceptsEmittedCode(t *testing.T) {
	g := ir.NewGraph("f")
	b := g.NewBlock()
	b.Info.HasLabel = true
	buildBinOp(g, b, OpAddRM, "%eax", "%eax", "%ebx")
	text, err := EmitText([]*ir.Block{b}, 8)
	if err != nil {
		t.Fatalf("EmitText: %v", err)
	}
	if err := ValidateProgram(text); err != nil {
		t.Errorf("expected emitted code to validate cleanly: %v", err)
	}
}

func TestValidatorRejectsUnrestoredCalleeSavedRegister(t *testing.T) {
	asm := "f:\n\tpushl %ebx\n\tret\n"
	if err := ValidateProgram(asm); err == nil {
		t.Error("expected error for unrestored callee-saved register, got nil")
	}
}
