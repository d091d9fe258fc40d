package ia32

import "github.com/firmgo/firmgo/internal/ir"

// Minus64Attrs: Args[0]/Args[1] are the low/high input halves; node.Register
// is the low output half and HiOut the high output half (spec §4.C.5:
// "negate a 64-bit value in two 32-bit registers").
type Minus64Attrs struct {
	HiOut *ir.Register
}

// emitMinus64 covers spec §4.C.5's eight register-mapping subcases with four
// code paths (swapped, lo output on hi input, hi output on lo input, and the
// rest). In every one of them hiOut_final must end
// up as -hiIn minus the borrow the low negation produces (borrow == 1 iff
// loIn != 0), so whichever instruction sets that borrow has to be the last
// one to touch the flags before the closing sbb reads them — nothing that
// clobbers CF, in particular no other negl, may sit in between. A register
// swap (xchg) is needed first exactly when the outputs are cross-assigned
// relative to the inputs (lo_out is the hi input's register and vice versa).
func (e *emitter) emitMinus64(loIn, hiIn, loOut, hiOut string) {
	swapped := loOut == hiIn && hiOut == loIn
	if swapped {
		e.writeln("\txchgl %s, %s", loIn, hiIn)
		loIn, hiIn = hiIn, loIn
	}

	loAliasesHiIn := !swapped && loOut == hiIn
	hiAliasesLoIn := !swapped && hiOut == loIn

	if loAliasesHiIn {
		// hiOut doesn't alias loIn here, so it's safe to settle hiOut's
		// value (and negate it) before loOut's register — which currently
		// holds hiIn — gets zeroed and overwritten.
		if hiOut != hiIn {
			e.writeln("\tmovl %s, %s", hiIn, hiOut)
		}
		e.writeln("\tnegl %s", hiOut)
		e.writeln("\txorl %s, %s", loOut, loOut)
		e.writeln("\tsubl %s, %s", loIn, loOut)
		e.writeln("\tsbbl $0, %s", hiOut)
		return
	}

	if hiAliasesLoIn {
		// hiOut's register currently holds loIn, so loIn must be read
		// (via the xor/sub below) before hiOut is overwritten with hiIn.
		// That forces the borrow-producing sub to run before hiOut can be
		// made to hold -hiIn, so the final negation can't be a plain negl
		// (it would sit between the sub and the sbb and clobber the
		// borrow): notl leaves flags untouched, and sbbl $-1 folds in
		// both the "+1" two's-complement correction and the borrow in one
		// step (x - (-1) - CF == x + 1 - CF).
		e.writeln("\txorl %s, %s", loOut, loOut)
		e.writeln("\tsubl %s, %s", loIn, loOut)
		e.writeln("\tmovl %s, %s", hiIn, hiOut)
		e.writeln("\tnotl %s", hiOut)
		e.writeln("\tsbbl $-1, %s", hiOut)
		return
	}

	if loOut != loIn {
		e.writeln("\tmovl %s, %s", loIn, loOut)
	}
	if hiOut != hiIn {
		e.writeln("\tmovl %s, %s", hiIn, hiOut)
	}
	e.writeln("\tnegl %s", hiOut)
	e.writeln("\tnegl %s", loOut)
	e.writeln("\tsbbl $0, %s", hiOut)
}
