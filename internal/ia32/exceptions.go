package ia32

import (
	"fmt"
	"sort"

	"github.com/firmgo/firmgo/internal/ir"
)

// ExcEntry is one (exc_label, handler_block) pair, spec §4.C.8.
type ExcEntry struct {
	ID      int
	Handler *ir.Block
}

// ExcTable collects exception labels assigned during emission and prints
// them, sorted by id, after the function body — matching the original's
// post-pass table dump.
type ExcTable struct {
	next    int
	entries []ExcEntry
}

// NewExcTable starts numbering exception labels from 1 (0 is reserved to
// mean "no exception label" at call sites that check has_exc_label).
func NewExcTable() *ExcTable { return &ExcTable{next: 1} }

// Assign tags a node's handler with a fresh unique id and records the
// pair, returning the id for the caller to print inline at the faulting
// instruction (spec: "any node with has_exc_label is tagged with a
// unique id").
func (t *ExcTable) Assign(handler *ir.Block) int {
	id := t.next
	t.next++
	t.entries = append(t.entries, ExcEntry{ID: id, Handler: handler})
	return id
}

// FormatText renders the table sorted by label id, one line per entry.
func (t *ExcTable) FormatText(labelOf func(*ir.Block) string) string {
	if len(t.entries) == 0 {
		return ""
	}
	sorted := make([]ExcEntry, len(t.entries))
	copy(sorted, t.entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	out := ""
	for _, e := range sorted {
		out += fmt.Sprintf("\t.long .Lexc%d, %s\n", e.ID, labelOf(e.Handler))
	}
	return out
}
