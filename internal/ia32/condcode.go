package ia32

import "github.com/firmgo/firmgo/internal/diagnostics"

// CondCode is an x86 condition code, independent of the mnemonic suffix
// used to print it (spec §4.C.4). Signed and unsigned comparisons get
// distinct codes because x86 does: Lt/Le/Gt/Ge are signed (jl/jle/jg/jge),
// Below/BelowEqual/Above/AboveEqual are unsigned (jb/jbe/ja/jae).
type CondCode int

const (
	CCEqual CondCode = iota
	CCNotEqual
	CCLess
	CCLessEqual
	CCGreater
	CCGreaterEqual
	CCBelow
	CCBelowEqual
	CCAbove
	CCAboveEqual
)

var ccSuffix = map[CondCode]string{
	CCEqual:        "e",
	CCNotEqual:     "ne",
	CCLess:         "l",
	CCLessEqual:    "le",
	CCGreater:      "g",
	CCGreaterEqual: "ge",
	CCBelow:        "b",
	CCBelowEqual:   "be",
	CCAbove:        "a",
	CCAboveEqual:   "ae",
}

// Suffix returns the jCC/setCC mnemonic suffix, e.g. "l" for jl/setl.
func (c CondCode) Suffix() string {
	s, ok := ccSuffix[c]
	if !ok {
		diagnostics.Fatalf(diagnostics.KindFormatOverflow, "ia32.CondCode.Suffix", "condition code %d has no encoding", c)
	}
	return s
}

// invert is the negated-condition table the Jcc fallthrough collapse
// (spec §4.C.2, scenario 4) and CMovcc's swap rule (spec §4.C.5) both use.
var invert = map[CondCode]CondCode{
	CCEqual:        CCNotEqual,
	CCNotEqual:     CCEqual,
	CCLess:         CCGreaterEqual,
	CCLessEqual:    CCGreater,
	CCGreater:      CCLessEqual,
	CCGreaterEqual: CCLess,
	CCBelow:        CCAboveEqual,
	CCBelowEqual:   CCAbove,
	CCAbove:        CCBelowEqual,
	CCAboveEqual:   CCBelow,
}

// Invert returns the negated condition code.
func (c CondCode) Invert() CondCode { return invert[c] }

// selectCondition applies spec §4.C.4's final inversion rule: "the final
// code may be inverted when the node's ins_permuted flag is set." This is
// the single place that rule is applied, so every instruction format that
// consults a JccAttrs/CMovccAttrs-shaped condition goes through it.
func selectCondition(cond CondCode, permuted bool) CondCode {
	if permuted {
		return cond.Invert()
	}
	return cond
}
