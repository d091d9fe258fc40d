// Package ia32 implements the IA-32 emitter (spec §4.C): label planning,
// per-opcode dispatch, ModR/M/SIB addressing, condition-code selection,
// the instruction-specific formats, x87 stack bookkeeping, a binary
// ModR/M emitter table, the exception-label table, and the DWARF
// call-frame state machine.
//
// Grounded on original_source/ir/be/ia32/ia32_emitter.c for the algorithm
// (bemit_mod_am, ia32_emitf's format specifiers, the Minus64Bit subcases)
// and on the teacher's pkg/codegen/amd64 for the driver shape: a
// Generator holding an io.Writer and emitting one function at a time via
// a per-opcode switch, plus a post-generation Validator.
package ia32

import "github.com/firmgo/firmgo/internal/ir"

// IA-32-specific lowered opcodes. These share ir.Node/ir.Op's pointer-
// identity comparison with the generic pre-lowering opcodes in package ir
// (op.go's doc comment calls this out explicitly): instruction selection
// (external, out of scope) replaces a generic Add/Sub/etc. node with one
// of these once operands are assigned addressing modes and registers.
var (
	OpAddRM     = &ir.Op{Name: "ia32_Add"}
	OpSubRM     = &ir.Op{Name: "ia32_Sub"}
	OpAndRM     = &ir.Op{Name: "ia32_And"}
	OpOrRM      = &ir.Op{Name: "ia32_Or"}
	OpXorRM     = &ir.Op{Name: "ia32_Xor"}
	OpCmp       = &ir.Op{Name: "ia32_Cmp"}
	OpIMul      = &ir.Op{Name: "ia32_IMul"}
	OpCMovcc    = &ir.Op{Name: "ia32_CMovcc"}
	OpMinus64   = &ir.Op{Name: "ia32_Minus64Bit"}
	OpCopyB     = &ir.Op{Name: "ia32_CopyB"}
	OpJcc       = &ir.Op{Name: "ia32_Jcc", Flags: ir.FlagPinned}
	OpJmp       = &ir.Op{Name: "ia32_Jmp", Flags: ir.FlagPinned}
	OpSwitchJmp = &ir.Op{Name: "ia32_SwitchJmp", Flags: ir.FlagPinned}
	OpIncSP     = &ir.Op{Name: "ia32_IncSP", Flags: ir.FlagPinned}
	OpUcomis    = &ir.Op{Name: "ia32_Ucomis"}
	OpMov       = &ir.Op{Name: "ia32_Mov"}
	OpLea       = &ir.Op{Name: "ia32_Lea"}
	OpPerm      = &ir.Op{Name: "ia32_Perm"}

	// x87
	OpFadd = &ir.Op{Name: "ia32_fadd"}
	OpFsub = &ir.Op{Name: "ia32_fsub"}
	OpFmul = &ir.Op{Name: "ia32_fmul"}
	OpFdiv = &ir.Op{Name: "ia32_fdiv"}
)

// AddrMode is the IA-32 memory operand spec §4.C.3 describes:
// "segment:disp(base, index, scale)". Entity carries a symbolic
// displacement (a relocated label); Disp is folded in alongside it.
type AddrMode struct {
	Entity string
	Disp   int32
	Base   *ir.Node // nil means "no base" (absolute forms)
	Index  *ir.Node // nil means "no index"
	Scale  int      // one of 1, 2, 4, 8; meaningless when Index == nil
}

// HasBase and HasIndex exist so addressing.go's minimality rules read as
// the spec's own case list rather than a thicket of "!= nil" checks.
func (a *AddrMode) HasBase() bool  { return a != nil && a.Base != nil }
func (a *AddrMode) HasIndex() bool { return a != nil && a.Index != nil }

// BinOpAttrs is shared by the Add/Sub/And/Or/Xor/Cmp family: a destination
// register (node.Register), a register or memory first operand, and a
// second operand that is either a register, an immediate, or a memory
// operand — at most one of Mem/Imm is set, matching x86's one-memory-
// operand-per-instruction rule.
type BinOpAttrs struct {
	Mem *AddrMode
	Imm *int32

	// ExcHandler is non-nil when this instruction's memory operand can
	// fault and must be tagged with an exception label (spec §4.C.8).
	ExcHandler *ir.Block
}

// IMulAttrs carries the optional immediate operand spec §4.C.5 calls out:
// "three-address form when destination differs from first source; two-
// address otherwise" — the three-address decision itself is made from
// node.Register vs. node.Args[0].Register at emission time, not stored
// here, since it depends on the allocator's choice, not the opcode.
type IMulAttrs struct {
	Imm *int32
}

// CMovccAttrs: Args[0] is the "false"/passthrough value, Args[1] is the
// "true" value moved when Cond holds. Spec §4.C.5: "when the out register
// equals the true input, swap inputs and invert the condition."
type CMovccAttrs struct {
	Cond CondCode
}

// CopyBAttrs: a constant-size unrolled memcpy. Args[0] is the destination
// pointer, Args[1] the source pointer.
type CopyBAttrs struct {
	Size uint32
}

// SwitchCase is one jump-table entry.
type SwitchCase struct {
	Value  int64
	Target *ir.Block
}

// SwitchJmpAttrs: Args[0] holds the index register. Cases need not be
// contiguous or sorted; EmitText/EmitBinary sort by Value when laying out
// the table so output is deterministic (spec §5: "bit-for-bit" ordering).
type SwitchJmpAttrs struct {
	Cases   []SwitchCase
	Default *ir.Block
}

// JccAttrs: the two successor blocks a conditional branch can take.
// Unordered marks a floating-point compare's "parity-cases" bit (spec
// §4.C.4); Permuted marks ins_permuted, inverting the final code once
// more for the memory-folded-operand case.
type JccAttrs struct {
	Cond       CondCode
	Unordered  bool
	Permuted   bool
	TrueBlock  *ir.Block
	FalseBlock *ir.Block
}

// X87Attrs: the virtual x87[3] slot array spec §4.C.6 names — two input
// stack positions and one output position — plus the pop/reverse bits.
type X87Attrs struct {
	Slots   [3]int
	Pop     bool // selects f*p over f* encoding
	Reverse bool // toggled for non-commutative sub/div when st(0) is operand 2
}
