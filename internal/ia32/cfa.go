package ia32

// CFAState is the DWARF call-frame offset state machine spec §4.C.9 and
// §9's "Global state" design note name: "Stack-pointer changes (IncSP)
// update a call-frame offset; the new offset is reported to an external
// DWARF state machine after each instruction." We don't implement a DWARF
// *encoder* (out of scope per SPEC_FULL.md §9: "no linking" implies no
// object-file/debug-section writer) — CFAState is the polling surface an
// external writer would consume.
type CFAState struct {
	Offset int32 // bytes from the frame base the stack pointer currently sits at
	// History records every offset reported, in emission order — an
	// external DWARF writer polls this to build .debug_frame rows.
	History []int32
}

// NewCFAState starts tracking from the frame-setup offset (the bytes
// pushed by the standard prologue: return address + saved frame pointer).
func NewCFAState(frameSetup int32) *CFAState {
	s := &CFAState{Offset: frameSetup}
	s.History = append(s.History, frameSetup)
	return s
}

// AdjustSP records an IncSP-shaped node's stack-pointer delta and reports
// the new offset, per spec §4.C.9.
func (s *CFAState) AdjustSP(delta int32) int32 {
	s.Offset += delta
	s.History = append(s.History, s.Offset)
	return s.Offset
}
