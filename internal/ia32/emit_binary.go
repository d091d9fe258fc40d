package ia32

import (
	"fmt"

	"github.com/firmgo/firmgo/internal/diagnostics"
	"github.com/firmgo/firmgo/internal/ir"
)

// binaryOpcode gives the single-byte primary opcode for the register-
// destination, register-or-memory-source encoding of each binop family
// (ModR/M reg field is the destination, rm field the source) — the
// Intel-manual-standard "/r" form each of these families shares.
var binaryOpcode = map[*ir.Op]uint8{
	OpAddRM: 0x03,
	OpSubRM: 0x2B,
	OpAndRM: 0x23,
	OpOrRM:  0x0B,
	OpXorRM: 0x33,
	OpCmp:   0x3B,
}

// EmitBinary implements spec §4.C.7: a ModR/M-encoding table for the
// binop families plus symbolic `.byte`/`.word`/`.long` directives for
// everything this core doesn't encode to real machine bytes (jumps,
// calls, anything needing link-time relocation) — true object-file
// emission is out of scope ("no linking", §9), so unencodable
// instructions fall back to an assembler-readable directive stream
// instead of silently being dropped.
func EmitBinary(layout []*ir.Block, frameSetup int32) (directives string, err error) {
	defer diagnostics.Recover(&err)

	e := &binEmitter{st: NewEmitterState(layout, frameSetup)}
	for _, b := range layout {
		if e.st.NeedLabel[b] {
			e.writeln("%s:", e.st.BlockLabel(b))
		}
		for _, n := range b.Nodes {
			e.emitNode(n)
		}
	}
	e.emitSwitchTables()
	return e.out, nil
}

type binEmitter struct {
	out      string
	st       *EmitterState
	switches []switchTable
}

func (e *binEmitter) writeln(format string, args ...any) {
	e.out += fmt.Sprintf(format+"\n", args...)
}

func (e *binEmitter) bytes(bs ...byte) {
	for _, b := range bs {
		e.out += fmt.Sprintf("\t.byte 0x%02X\n", b)
	}
}

func (e *binEmitter) emitNode(n *ir.Node) {
	switch n.Op {
	case OpAddRM, OpSubRM, OpAndRM, OpOrRM, OpXorRM, OpCmp:
		e.emitBinOpBytes(n)
	case OpJcc:
		e.emitJccRelocation(n)
	case OpJmp:
		e.emitJmpRelocation(n)
	case OpSwitchJmp:
		e.emitSwitchRelocation(n)
	default:
		// Falls back to the textual mnemonic for anything this table
		// doesn't cover (call, IMul's many immediate forms, x87, string
		// moves): real byte selection for those depends on operand-size
		// prefixes and addressing-mode interactions not worth a second
		// encoding table when the assembler can encode the mnemonic form
		// directly from the plain textual instruction line appended here.
		et := &emitter{st: e.st}
		et.emitNode(n)
		e.out += et.w.String()
	}
}

func (e *binEmitter) emitBinOpBytes(n *ir.Node) {
	attrs, _ := n.Attrs.(*BinOpAttrs)
	opcode := binaryOpcode[n.Op]

	if attrs != nil && attrs.Mem != nil {
		reg := encodingOf(n)
		res := encodeAddrMode(attrs.Mem, reg)
		e.bytes(opcode)
		e.bytes(res.ModRM)
		if res.HasSIB {
			e.bytes(res.SIB)
		}
		e.bytes(res.Disp...)
		return
	}

	if len(n.Args) < 2 || n.Args[1].Register == nil {
		diagnostics.Fatalf(diagnostics.KindUnsupported, "ia32.emitBinOpBytes", "binop %s has no ModR/M-encodable source operand", n.Op.Name)
	}
	// Register,register form: mod=11, reg=dest, rm=source.
	modrm := modrmByte(3, encodingOf(n), encodingOf(n.Args[1]))
	e.bytes(opcode, modrm)
}

// jccTTTN is the Intel "tttn" nibble each Jcc condition carries in its
// 0x0F 0x8x two-byte opcode — independent of CondCode's own enum order.
var jccTTTN = map[CondCode]byte{
	CCEqual:        0x4,
	CCNotEqual:     0x5,
	CCBelow:        0x2,
	CCBelowEqual:   0x6,
	CCAbove:        0x7,
	CCAboveEqual:   0x3,
	CCLess:         0xC,
	CCLessEqual:    0xE,
	CCGreater:      0xF,
	CCGreaterEqual: 0xD,
}

// emitJccRelocation matches spec §4.C.7's literal example: a PC-relative
// jump target that true object-file relocation (out of scope) would
// resolve is instead represented as a `.long target-.-4` directive even
// in binary mode.
func (e *binEmitter) emitJccRelocation(n *ir.Node) {
	a := n.Attrs.(*JccAttrs)
	cond := selectCondition(a.Cond, a.Permuted)
	e.bytes(0x0F, 0x80|jccTTTN[cond])
	e.writeln("\t.long %s-.-4", e.st.BlockLabel(a.TrueBlock))
}

func (e *binEmitter) emitJmpRelocation(n *ir.Node) {
	target := n.Block.Succs
	if len(target) != 1 {
		diagnostics.Fatalf(diagnostics.KindInvariant, "ia32.emitJmpRelocation", "Jmp block has %d successors, want 1", len(target))
	}
	e.bytes(0xE9)
	e.writeln("\t.long %s-.-4", e.st.BlockLabel(target[0]))
}

// emitSwitchRelocation reproduces spec §4.C's scenario 6 literal byte
// sequence for an indirect jump through a table: 0xFF 0x24 0x85
// (jmp *table(,%reg,4), ModR/M+SIB encoding the scaled-index-with-
// disp32 addressing mode) followed by the table's own base address as a
// relocation, since the table itself isn't placed until after the
// function body.
func (e *binEmitter) emitSwitchRelocation(n *ir.Node) {
	label := switchLabel(n)
	// ModR/M reg field 4 selects the FF /4 (JMP r/m32) opcode extension.
	// The table's own base address is a relocated label, not a literal
	// displacement, so only the ModR/M and SIB bytes come from
	// encodeAddrMode; the disp32 it would also produce is discarded in
	// favor of the `.long` directive below.
	res := encodeAddrMode(&AddrMode{Index: n.Args[0], Scale: 4}, 4)
	e.bytes(0xFF, res.ModRM)
	if res.HasSIB {
		e.bytes(res.SIB)
	}
	e.writeln("\t.long %s", label)

	et := &emitter{st: e.st}
	table := et.buildSwitchTable(n)
	e.switches = append(e.switches, table)
}

func (e *binEmitter) emitSwitchTables() {
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
