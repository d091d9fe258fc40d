package regalloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmgo/firmgo/internal/domfront"
	"github.com/firmgo/firmgo/internal/ir"
	"github.com/firmgo/firmgo/internal/live"
)

func newClass(n int) *ir.RegisterClass { return &ir.RegisterClass{Name: "gp", N: n} }

// TestAllocateChainReusesColor: a straight chain n1 -> n2 -> n3 where each
// value dies exactly when the next is produced should let every node share
// color 0, since no two of them are ever live at once.
func TestAllocateChainReusesColor(t *testing.T) {
	cls := newClass(2)
	g := ir.NewGraph("chain")

	n1 := ir.NewNode(g, ir.OpConst, ir.ModeIu, g.Start, nil, nil)
	n1.Class = cls
	n2 := ir.NewNode(g, ir.OpAdd, ir.ModeIu, g.Start, []*ir.Node{n1}, nil)
	n2.Class = cls
	n3 := ir.NewNode(g, ir.OpAdd, ir.ModeIu, g.Start, []*ir.Node{n2}, nil)
	n3.Class = cls

	dom := domfront.Compute(g)
	liveness := live.Compute(g, cls)

	alloc := New(cls, []string{"r0", "r1"})
	_, err := alloc.Allocate(g, dom, liveness, false)
	require.NoError(t, err)

	assert.Equal(t, 0, n1.Register.Index)
	assert.Equal(t, 0, n2.Register.Index)
	assert.Equal(t, 0, n3.Register.Index)
}

// TestAllocateOverlapNeedsTwoColors: n3 uses both n1 and n2, so their live
// ranges overlap and they must receive distinct colors; n3 itself may then
// reuse n1's color once n1 dies at n3's own definition point.
func TestAllocateOverlapNeedsTwoColors(t *testing.T) {
	cls := newClass(2)
	g := ir.NewGraph("overlap")

	n1 := ir.NewNode(g, ir.OpConst, ir.ModeIu, g.Start, nil, nil)
	n1.Class = cls
	n2 := ir.NewNode(g, ir.OpAdd, ir.ModeIu, g.Start, []*ir.Node{n1}, nil)
	n2.Class = cls
	n3 := ir.NewNode(g, ir.OpAdd, ir.ModeIu, g.Start, []*ir.Node{n1, n2}, nil)
	n3.Class = cls

	dom := domfront.Compute(g)
	liveness := live.Compute(g, cls)

	alloc := New(cls, []string{"r0", "r1"})
	ifg, err := alloc.Allocate(g, dom, liveness, true)
	require.NoError(t, err)

	assert.NotEqual(t, n1.Register.Index, n2.Register.Index, "n1 and n2 are simultaneously live at n3 and must differ")
	assert.Equal(t, 0, n1.Register.Index)
	assert.Equal(t, 1, n2.Register.Index)
	assert.Equal(t, 0, n3.Register.Index, "n3 may reuse n1's color once n1 dies at n3's own def")

	require.NotNil(t, ifg)
	assert.True(t, ifg.Interferes(n1, n2))
	assert.False(t, ifg.Interferes(n1, n3))
	assert.False(t, ifg.Interferes(n2, n3))
}

// TestAllocateColorExhaustionFatal: a class of one register cannot host two
// simultaneously-live values; the allocator must raise a KindInvariant
// fatal (spec §4.A: "reaching a def with every color in use is a fatal
// invariant violation").
func TestAllocateColorExhaustionFatal(t *testing.T) {
	cls := newClass(1)
	g := ir.NewGraph("exhaust")

	n1 := ir.NewNode(g, ir.OpConst, ir.ModeIu, g.Start, nil, nil)
	n1.Class = cls
	n2 := ir.NewNode(g, ir.OpConst, ir.ModeIu, g.Start, nil, nil)
	n2.Class = cls
	n3 := ir.NewNode(g, ir.OpAdd, ir.ModeIu, g.Start, []*ir.Node{n1, n2}, nil)
	n3.Class = cls

	dom := domfront.Compute(g)
	liveness := live.Compute(g, cls)

	alloc := New(cls, []string{"r0"})
	_, err := alloc.Allocate(g, dom, liveness, false)
	require.Error(t, err)
}

// TestAllocateDeadDefDoesNotFatal: a value that is defined, never read, and
// never live-out is a legitimately dead def, not a liveness-tracking bug —
// pushDef must still hand it a border (and a color) rather than treating
// the missing use border as corruption.
func TestAllocateDeadDefDoesNotFatal(t *testing.T) {
	cls := newClass(2)
	g := ir.NewGraph("dead")

	n1 := ir.NewNode(g, ir.OpConst, ir.ModeIu, g.Start, nil, nil)
	n1.Class = cls
	n2 := ir.NewNode(g, ir.OpAdd, ir.ModeIu, g.Start, []*ir.Node{n1}, nil)
	n2.Class = cls
	dead := ir.NewNode(g, ir.OpConst, ir.ModeIu, g.Start, nil, nil)
	dead.Class = cls

	dom := domfront.Compute(g)
	liveness := live.Compute(g, cls)

	alloc := New(cls, []string{"r0", "r1"})
	_, err := alloc.Allocate(g, dom, liveness, false)
	require.NoError(t, err)

	require.NotNil(t, dead.Register, "a dead def still needs a color assigned")
}

// TestAllocateAcrossBlocksInheritsColor exercises dominator-tree pre-order:
// a value defined in the entry block and live into its sole successor must
// carry the same color forward without a fresh assignment there.
func TestAllocateAcrossBlocksInheritsColor(t *testing.T) {
	cls := newClass(2)
	g := ir.NewGraph("twoblock")

	n1 := ir.NewNode(g, ir.OpConst, ir.ModeIu, g.Start, nil, nil)
	n1.Class = cls

	b2 := g.NewBlock(g.Start)
	n2 := ir.NewNode(g, ir.OpAdd, ir.ModeIu, b2, []*ir.Node{n1}, nil)
	n2.Class = cls

	dom := domfront.Compute(g)
	liveness := live.Compute(g, cls)

	alloc := New(cls, []string{"r0", "r1"})
	_, err := alloc.Allocate(g, dom, liveness, false)
	require.NoError(t, err)

	assert.Equal(t, n1.Register.Index, n2.Register.Index,
		"n1 is live-in to b2 and must carry the color its dominating def assigned")
}
