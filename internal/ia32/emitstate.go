package ia32

import (
	"strconv"

	"github.com/firmgo/firmgo/internal/ir"
)

// EmitterState threads per-function emission state that the original kept
// at process scope as an explicit value instead (§9 Design Notes): the
// block layout and label plan, the exception-label table, and the CFA
// offset tracker. ISA, PIC-base and frame-type settings are not carried.
type EmitterState struct {
	Layout    []*ir.Block
	LabelIdx  map[*ir.Block]int
	NeedLabel map[*ir.Block]bool

	Exc *ExcTable
	CFA *CFAState

	x87Depth int // current x87 stack depth, for Slots interpretation

	localLabel int // counter for synthetic skip-over labels (Jcc unordered guard)
}

// NewEmitterState plans labels and starts fresh exception/CFA tracking
// for one function's emission (spec §5: "all per-function state... is
// owned by one pipeline invocation and destroyed at its end").
func NewEmitterState(layout []*ir.Block, frameSetup int32) *EmitterState {
	return &EmitterState{
		Layout:    layout,
		LabelIdx:  blockIndex(layout),
		NeedLabel: PlanLabels(layout),
		Exc:       NewExcTable(),
		CFA:       NewCFAState(frameSetup),
	}
}

// BlockLabel returns the GNU-assembler label for a block, independent of
// whether NeedLabel actually requires printing a `name:` line at its
// layout position — jump instructions always reference a block by this
// name even when the block itself falls through into its successor.
func (s *EmitterState) BlockLabel(b *ir.Block) string {
	if b.Info != nil && b.Info.Entity != "" {
		return b.Info.Entity
	}
	return syntheticLabel(b)
}

func syntheticLabel(b *ir.Block) string {
	return ".LBB" + strconv.Itoa(int(b.ID))
}

// NewLocalLabel mints a fresh synthetic label for the Jcc unordered-guard
// skip-over (spec §4.C.5: "use a local label to skip over").
func (s *EmitterState) NewLocalLabel() string {
	s.localLabel++
	return ".Lskip" + strconv.Itoa(s.localLabel)
}
