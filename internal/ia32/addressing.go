package ia32

import (
	"fmt"
	"strings"

	"github.com/firmgo/firmgo/internal/diagnostics"
	"github.com/firmgo/firmgo/internal/ir"
)

// regEncoding maps a register's printable name to its 3-bit ModR/M/SIB
// encoding, independent of which register classes config.Default makes
// allocatable — esp and ebp are real encodings even though the general-
// purpose class excludes esp and treats ebp as the frame pointer.
var regEncoding = map[string]int{
	"%eax": 0, "%ecx": 1, "%edx": 2, "%ebx": 3,
	"%esp": 4, "%ebp": 5, "%esi": 6, "%edi": 7,
}

const (
	sibBaseEncoding = 0x04 // esp: base encoding that forces a SIB byte
	ebpEncoding     = 0x05 // ebp: base encoding special-cased at disp==0
)

func encodingOf(n *ir.Node) int {
	if n == nil || n.Register == nil {
		diagnostics.Fatalf(diagnostics.KindInvariant, "ia32.encodingOf", "node has no assigned register")
	}
	enc, ok := regEncoding[n.Register.Name]
	if !ok {
		diagnostics.Fatalf(diagnostics.KindUnsupported, "ia32.encodingOf", "register %q has no IA-32 encoding", n.Register.Name)
	}
	return enc
}

func scaleEncoding(scale int) int {
	switch scale {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	default:
		diagnostics.Fatalf(diagnostics.KindFormatOverflow, "ia32.scaleEncoding", "invalid scale factor %d (must be 1, 2, 4, or 8)", scale)
		return 0
	}
}

// FormatText renders an addressing mode as GNU-assembler AT&T syntax:
// segment:disp(base,index,scale) — segment is never emitted by this core
// (no segment overrides in scope), so the rendered form is
// disp(base,index,scale) with every optional component elided when absent.
func (a *AddrMode) FormatText() string {
	var sb strings.Builder
	if a.Entity != "" {
		sb.WriteString(a.Entity)
		if a.Disp != 0 {
			fmt.Fprintf(&sb, "%+d", a.Disp)
		}
	} else if a.Disp != 0 || (!a.HasBase() && !a.HasIndex()) {
		fmt.Fprintf(&sb, "%d", a.Disp)
	}
	if a.HasBase() || a.HasIndex() {
		sb.WriteByte('(')
		if a.HasBase() {
			sb.WriteString(a.Base.Register.Name)
		}
		if a.HasIndex() {
			sb.WriteByte(',')
			sb.WriteString(a.Index.Register.Name)
			fmt.Fprintf(&sb, ",%d", a.Scale)
		}
		sb.WriteByte(')')
	}
	return sb.String()
}

// modrmResult is a fully-encoded ModR/M (+ optional SIB) + displacement
// sequence, ready to append after the opcode/reg-field byte.
type modrmResult struct {
	ModRM uint8
	HasSIB bool
	SIB    uint8
	Disp   []byte // 0, 1, or 4 bytes, little-endian
}

// encodeAddrMode implements spec §4.C.3's minimality rules verbatim,
// grounded on bemit_mod_am/ENC_SIB in the original:
//
//   - no displacement, no base      -> 32-bit displacement, base-encoding 0x05
//   - displacement in [-128,127] with a base -> 8-bit displacement
//   - base encoding 0x04 (esp)      -> forces a SIB byte
//   - base 0x05 (ebp) with no displacement -> forces an 8-bit zero displacement
//
// reg is the ModR/M reg field (the other operand, or an opcode extension).
func encodeAddrMode(a *AddrMode, reg int) modrmResult {
	if !a.HasBase() && !a.HasIndex() {
		// No base, no index: absolute 32-bit displacement, mod=00, rm=101.
		return modrmResult{
			ModRM: modrmByte(0, reg, ebpEncoding),
			Disp:  le32(a.Disp),
		}
	}

	baseEnc := 0
	if a.HasBase() {
		baseEnc = encodingOf(a.Base)
	} else {
		// Index with no base still needs a SIB byte; base field is the
		// disp32-only encoding (0x05) per the same ENC_SIB convention.
		baseEnc = ebpEncoding
	}

	needsSIB := a.HasIndex() || baseEnc == sibBaseEncoding

	mod, dispBytes := dispMode(a, baseEnc)

	if !needsSIB {
		return modrmResult{
			ModRM: modrmByte(mod, reg, baseEnc),
			Disp:  dispBytes,
		}
	}

	indexEnc := sibBaseEncoding // 0x04 in the index field means "no index"
	scaleEnc := 0
	if a.HasIndex() {
		indexEnc = encodingOf(a.Index)
		scaleEnc = scaleEncoding(a.Scale)
	}
	if !a.HasBase() {
		// SIB with no base at all: mod=00, base field forced to 0x05,
		// always followed by a 32-bit displacement.
		return modrmResult{
			ModRM:  modrmByte(0, reg, sibBaseEncoding),
			HasSIB: true,
			SIB:    sibByte(scaleEnc, indexEnc, ebpEncoding),
			Disp:   le32(a.Disp),
		}
	}

	return modrmResult{
		ModRM:  modrmByte(mod, reg, sibBaseEncoding),
		HasSIB: true,
		SIB:    sibByte(scaleEnc, indexEnc, baseEnc),
		Disp:   dispBytes,
	}
}

// dispMode picks mod (00/01/10) and the displacement bytes for a base-
// relative addressing mode, applying the ebp-without-displacement special
// case (spec §4.C.3's fourth bullet).
func dispMode(a *AddrMode, baseEnc int) (mod int, disp []byte) {
	if a.Entity != "" {
		// A symbolic displacement always needs the full 32-bit disp slot
		// (the linker, out of scope, resolves it), so mod=10 for every
		// base, ebp included; the disp8 ebp special case below does not
		// apply. Entity resolution itself stays in the textual path.
		return 2, le32(a.Disp)
	}
	if a.Disp == 0 {
		if baseEnc == ebpEncoding {
			return 1, []byte{0}
		}
		return 0, nil
	}
	if a.Disp >= -128 && a.Disp <= 127 {
		return 1, []byte{byte(int8(a.Disp))}
	}
	return 2, le32(a.Disp)
}

func modrmByte(mod, reg, rm int) uint8 {
	return uint8(mod<<6 | (reg&7)<<3 | (rm & 7))
}

func sibByte(scale, index, base int) uint8 {
	return uint8(scale<<6 | (index&7)<<3 | (base & 7))
}

func le32(v int32) []byte {
	u := uint32(v)
	return []byte{byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24)}
}
