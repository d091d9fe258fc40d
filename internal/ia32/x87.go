package ia32

import "github.com/firmgo/firmgo/internal/diagnostics"

// x87Mnemonic returns the mnemonic for an x87 arithmetic opcode, applying
// the pop/reverse bits spec §4.C.6 describes: "pop flag selects between
// f* and f*p encodings. Non-commutative operations (sub/div) toggle the
// reverse bit based on which operand is st(0)."
func x87Mnemonic(op *Op87, a *X87Attrs) string {
	base := op.base
	if !op.commutative && a.Reverse {
		base += "r"
	}
	if a.Pop {
		base += "p"
	}
	return base
}

// Op87 names an x87 arithmetic family member.
type Op87 struct {
	base        string
	commutative bool
}

var (
	x87Add = Op87{base: "fadd", commutative: true}
	x87Mul = Op87{base: "fmul", commutative: true}
	x87Sub = Op87{base: "fsub", commutative: false}
	x87Div = Op87{base: "fdiv", commutative: false}
)

// x87Operand renders one of the three virtual stack slots as a concrete
// st(n) operand string, validating the slot is in range.
func x87Operand(slot int) string {
	if slot < 0 || slot > 7 {
		diagnostics.Fatalf(diagnostics.KindInvariant, "ia32.x87Operand", "x87 stack slot %d out of range", slot)
	}
	if slot == 0 {
		return "%st"
	}
	return "%st(" + string(rune('0'+slot)) + ")"
}
