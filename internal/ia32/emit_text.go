package ia32

import (
	"fmt"
	"sort"
	"strings"

	"github.com/firmgo/firmgo/internal/diagnostics"
	"github.com/firmgo/firmgo/internal/ir"
)

// emitter holds the per-function mutable state the textual emit functions
// share: the output buffer and the EmitterState (spec §9's "EmitterState
// value threaded through all emit functions").
type emitter struct {
	w        strings.Builder
	st       *EmitterState
	switches []switchTable
}

func (e *emitter) writeln(format string, args ...any) {
	fmt.Fprintf(&e.w, format+"\n", args...)
}

var binopMnemonic = map[*ir.Op]string{
	OpAddRM: "add",
	OpSubRM: "sub",
	OpAndRM: "and",
	OpOrRM:  "or",
	OpXorRM: "xor",
	OpCmp:   "cmp",
}

func sizeSuffix(m *ir.Mode) string {
	switch m.SizeBytes() {
	case 1:
		return "b"
	case 2:
		return "w"
	case 4:
		return "l"
	case 8:
		return "ll"
	default:
		diagnostics.Fatalf(diagnostics.KindUnsupported, "ia32.sizeSuffix", "mode %s has unsupported size %d", m.Name, m.SizeBytes())
		return ""
	}
}

func regOperand(n *ir.Node) string {
	if n.Register == nil {
		diagnostics.Fatalf(diagnostics.KindInvariant, "ia32.regOperand", "node %d has no assigned register", n.Index)
	}
	return n.Register.Name
}

// EmitText implements spec §4.C's contract: given a block-scheduled,
// register-assigned, lowered graph, produce GNU-assembler text for one
// function. layout is the external scheduler's fixed block order;
// frameSetup is the bytes the prologue already pushed (return address +
// saved frame pointer), seeding the DWARF CFA state (spec §4.C.9).
func EmitText(layout []*ir.Block, frameSetup int32) (text string, err error) {
	defer diagnostics.Recover(&err)

	e := &emitter{st: NewEmitterState(layout, frameSetup)}

	for _, b := range layout {
		if e.st.NeedLabel[b] {
			e.writeln("%s:", e.st.BlockLabel(b))
		}
		if ShouldAlign(b, 0.1) {
			e.writeln("\t.align 16")
		}
		for _, n := range b.Nodes {
			e.emitNode(n)
		}
	}

	e.emitSwitchTables()

	excText := e.st.Exc.FormatText(e.st.BlockLabel)
	if excText != "" {
		e.writeln(".section .gcc_except_table")
		e.w.WriteString(excText)
	}

	return e.w.String(), nil
}

func (e *emitter) emitNode(n *ir.Node) {
	switch n.Op {
	case OpAddRM, OpSubRM, OpAndRM, OpOrRM, OpXorRM, OpCmp:
		e.emitBinOp(n)
	case OpIMul:
		e.emitIMul(n)
	case OpCMovcc:
		e.emitCMovcc(n)
	case OpMinus64:
		e.emitMinus64Node(n)
	case OpCopyB:
		e.emitCopyB(n)
	case OpJcc:
		e.emitJcc(n)
	case OpJmp:
		e.emitJmp(n)
	case OpSwitchJmp:
		e.emitSwitch(n)
	case OpIncSP:
		e.emitIncSP(n)
	case OpUcomis:
		e.emitUcomis(n)
	case OpMov:
		e.emitMov(n)
	case OpLea:
		e.emitLea(n)
	case OpPerm:
		e.emitPerm(n)
	case OpFadd, OpFsub, OpFmul, OpFdiv:
		e.emitX87(n)
	case ir.OpProj, ir.OpPhi, ir.OpStart, ir.OpEnd:
		// no code: tuple projections and SSA bookkeeping nodes produce no
		// instructions of their own.
	default:
		diagnostics.Fatalf(diagnostics.KindUnsupported, "ia32.emitNode", "no emitter registered for opcode %s", n.Op.Name)
	}

	if handler, ok := exceptionHandlerOf(n); ok {
		id := e.st.Exc.Assign(handler)
		e.writeln(".Lexc%d:", id)
	}
}

// exceptionHandlerOf reports the handler block a node's memory access
// should branch to on fault, if it carries one (spec §4.C.8: "any node
// with has_exc_label is tagged with a unique id").
func exceptionHandlerOf(n *ir.Node) (*ir.Block, bool) {
	if a, ok := n.Attrs.(*BinOpAttrs); ok && a.ExcHandler != nil {
		return a.ExcHandler, true
	}
	return nil, false
}

func (e *emitter) emitBinOp(n *ir.Node) {
	mnem := binopMnemonic[n.Op]
	suf := sizeSuffix(n.Mode)
	attrs, _ := n.Attrs.(*BinOpAttrs)

	dst := regOperand(n)
	switch {
	case attrs != nil && attrs.Mem != nil:
		e.writeln("\t%s%s %s, %s", mnem, suf, attrs.Mem.FormatText(), dst)
	case attrs != nil && attrs.Imm != nil:
		e.writeln("\t%s%s $%d, %s", mnem, suf, *attrs.Imm, dst)
	case len(n.Args) >= 2 && n.Args[1].Register != nil:
		e.writeln("\t%s%s %s, %s", mnem, suf, regOperand(n.Args[1]), dst)
	default:
		diagnostics.Fatalf(diagnostics.KindInvariant, "ia32.emitBinOp", "binop %s has neither memory, immediate, nor register second operand", n.Op.Name)
	}
}

// emitIMul implements spec §4.C.5: three-address form when the
// destination differs from the first source register, two-address
// otherwise.
func (e *emitter) emitIMul(n *ir.Node) {
	attrs, _ := n.Attrs.(*IMulAttrs)
	dst := regOperand(n)
	src1 := regOperand(n.Args[0])

	if attrs != nil && attrs.Imm != nil {
		if dst == src1 {
			e.writeln("\timull $%d, %s", *attrs.Imm, dst)
		} else {
			e.writeln("\timull $%d, %s, %s", *attrs.Imm, src1, dst)
		}
		return
	}

	src2 := ""
	if len(n.Args) > 1 {
		src2 = regOperand(n.Args[1])
	}

	if dst != src1 {
		// Three-address: move the first source into dst, then multiply by
		// the second in place (x86 has no true three-operand register
		// form for the non-immediate case, so this is "three-address" at
		// the IR level and two-address at the ISA level).
		e.writeln("\tmovl %s, %s", src1, dst)
		e.writeln("\timull %s, %s", src2, dst)
		return
	}

	e.writeln("\timull %s, %s", src2, dst)
}

// emitCMovcc implements spec §4.C.5: when the out register equals the
// "true" input, swap inputs and invert the condition — cmov only ever
// writes a register, so this rewrite keeps the move meaningful instead of
// a no-op overwrite of its own source.
func (e *emitter) emitCMovcc(n *ir.Node) {
	attrs := n.Attrs.(*CMovccAttrs)
	falseIn := n.Args[0]
	trueIn := n.Args[1]
	dst := regOperand(n)
	cond := attrs.Cond

	src := trueIn
	if dst == regOperand(trueIn) {
		src = falseIn
		cond = cond.Invert()
	}
	e.writeln("\tcmov%s %s, %s", cond.Suffix(), regOperand(src), dst)
}

func (e *emitter) emitMinus64Node(n *ir.Node) {
	attrs := n.Attrs.(*Minus64Attrs)
	loIn := regOperand(n.Args[0])
	hiIn := regOperand(n.Args[1])
	loOut := regOperand(n)
	hiOut := attrs.HiOut.Name
	e.emitMinus64(loIn, hiIn, loOut, hiOut)
}

// emitCopyB unrolls a constant-size memcpy into movsd/movsw/movsb per
// spec §4.C.5, loading the pointers into edi/esi first since the string
// move instructions address them implicitly.
func (e *emitter) emitCopyB(n *ir.Node) {
	attrs := n.Attrs.(*CopyBAttrs)
	dst := regOperand(n.Args[0])
	src := regOperand(n.Args[1])
	if dst != "%edi" {
		e.writeln("\tmovl %s, %%edi", dst)
	}
	if src != "%esi" {
		e.writeln("\tmovl %s, %%esi", src)
	}
	e.writeln("\tcld")

	size := attrs.Size
	for i := uint32(0); i < size/4; i++ {
		e.writeln("\tmovsl")
	}
	rem := size % 4
	if rem >= 2 {
		e.writeln("\tmovsw")
		rem -= 2
	}
	if rem == 1 {
		e.writeln("\tmovsb")
	}
}

// emitJcc implements the unordered-compare guard and the fallthrough
// collapse, spec §4.C.2/§4.C.4/§4.C.5.
func (e *emitter) emitJcc(n *ir.Node) {
	a := n.Attrs.(*JccAttrs)
	cond := selectCondition(a.Cond, a.Permuted)
	trueLabel := e.st.BlockLabel(a.TrueBlock)
	falseLabel := e.st.BlockLabel(a.FalseBlock)

	if a.Unordered {
		switch cond {
		case CCNotEqual:
			e.writeln("\tjp %s", trueLabel)
		default:
			e.writeln("\tjp %s", falseLabel)
		}
	}

	trueFall := IsFallthrough(e.st.Layout, e.st.LabelIdx, n.Block, a.TrueBlock)
	falseFall := IsFallthrough(e.st.Layout, e.st.LabelIdx, n.Block, a.FalseBlock)

	switch {
	case trueFall:
		e.writeln("\tj%s %s", cond.Invert().Suffix(), falseLabel)
	case falseFall:
		e.writeln("\tj%s %s", cond.Suffix(), trueLabel)
	default:
		e.writeln("\tj%s %s", cond.Suffix(), trueLabel)
		e.writeln("\tjmp %s", falseLabel)
	}
}

func (e *emitter) emitJmp(n *ir.Node) {
	target := n.Block.Succs
	if len(target) != 1 {
		diagnostics.Fatalf(diagnostics.KindInvariant, "ia32.emitJmp", "Jmp block has %d successors, want 1", len(target))
	}
	if IsFallthrough(e.st.Layout, e.st.LabelIdx, n.Block, target[0]) {
		return
	}
	e.writeln("\tjmp %s", e.st.BlockLabel(target[0]))
}

// switchTable accumulates table rows across all SwitchJmp nodes in the
// function, printed once after the function body (spec §4.C.5).
type switchTable struct {
	label string
	rows  []string
}

func switchLabel(n *ir.Node) string {
	return fmt.Sprintf(".Lswitch%d", n.Index)
}

// buildSwitchTable computes one SwitchJmp node's jump-table rows, dense
// over [0, maxCaseValue], filling gaps with the default target.
func (e *emitter) buildSwitchTable(n *ir.Node) switchTable {
	a := n.Attrs.(*SwitchJmpAttrs)
	byValue := make(map[int64]*ir.Block, len(a.Cases))
	maxVal := int64(-1)
	for _, c := range a.Cases {
		byValue[c.Value] = c.Target
		if c.Value > maxVal {
			maxVal = c.Value
		}
	}

	rows := make([]string, 0, maxVal+1)
	for v := int64(0); v <= maxVal; v++ {
		target := a.Default
		if t, ok := byValue[v]; ok {
			target = t
		}
		rows = append(rows, e.st.BlockLabel(target))
	}
	return switchTable{label: switchLabel(n), rows: rows}
}

func (e *emitter) emitSwitch(n *ir.Node) {
	idxReg := regOperand(n.Args[0])
	table := e.buildSwitchTable(n)
	e.writeln("\tjmp *%s(,%s,4)", table.label, idxReg)
	e.switches = append(e.switches, table)
}

func (e *emitter) emitSwitchTables() {
	if len(e.switches) == 0 {
		return
	}
	e.writeln(".section .rodata")
	for _, t := range e.switches {
		e.writeln("%s:", t.label)
		for _, row := range t.rows {
			e.writeln("\t.long %s", row)
		}
	}
}

// emitIncSP reports a stack-pointer change to the DWARF CFA state machine
// (spec §4.C.9) after emitting the adjustment instruction.
func (e *emitter) emitIncSP(n *ir.Node) {
	delta := n.Attrs.(int32)
	if delta < 0 {
		e.writeln("\tsubl $%d, %%esp", -delta)
	} else if delta > 0 {
		e.writeln("\taddl $%d, %%esp", delta)
	}
	e.st.CFA.AdjustSP(delta)
}

func (e *emitter) emitUcomis(n *ir.Node) {
	suf := "s"
	if n.Mode == ir.ModeFd {
		suf = "d"
	}
	e.writeln("\tucomis%s %s, %s", suf, regOperand(n.Args[1]), regOperand(n.Args[0]))
}

func (e *emitter) emitMov(n *ir.Node) {
	suf := sizeSuffix(n.Mode)
	attrs, _ := n.Attrs.(*BinOpAttrs)
	dst := regOperand(n)
	if attrs != nil && attrs.Mem != nil {
		e.writeln("\tmov%s %s, %s", suf, attrs.Mem.FormatText(), dst)
		return
	}
	e.writeln("\tmov%s %s, %s", suf, regOperand(n.Args[0]), dst)
}

func (e *emitter) emitLea(n *ir.Node) {
	attrs := n.Attrs.(*AddrMode)
	e.writeln("\tleal %s, %s", attrs.FormatText(), regOperand(n))
}

// emitPerm swaps the contents of two same-class registers in place,
// failing fatally on a register-class mismatch (spec §4.C's "Register
// class mismatch on Perm -> fatal").
func (e *emitter) emitPerm(n *ir.Node) {
	a, b := n.Args[0], n.Args[1]
	if a.Class != b.Class {
		diagnostics.Fatalf(diagnostics.KindInvariant, "ia32.emitPerm", "Perm operands have mismatched register classes %v/%v", a.Class, b.Class)
	}
	e.writeln("\txchgl %s, %s", regOperand(a), regOperand(b))
}

func (e *emitter) emitX87(n *ir.Node) {
	a := n.Attrs.(*X87Attrs)
	var op Op87
	switch n.Op {
	case OpFadd:
		op = x87Add
	case OpFsub:
		op = x87Sub
	case OpFmul:
		op = x87Mul
	case OpFdiv:
		op = x87Div
	}
	mnem := x87Mnemonic(&op, a)
	e.writeln("\t%s %s, %s", mnem, x87Operand(a.Slots[1]), x87Operand(a.Slots[0]))
}

// sortedCases is exposed for tests that want a deterministic view of a
// SwitchJmpAttrs's table independent of construction order.
func sortedCases(cases []SwitchCase) []SwitchCase {
	out := make([]SwitchCase, len(cases))
	copy(out, cases)
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}
