package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firmgo/firmgo/internal/config"
	"github.com/firmgo/firmgo/internal/ia32"
	"github.com/firmgo/firmgo/internal/ir"
)

// operand builds a phantom Mov node carrying a preset register, standing
// in for a value already materialized by instruction selection (a
// function argument, say) before this function's body runs. Passing a
// nil block keeps it out of every block's Nodes list so it is never
// itself walked during emission.
func operand(g *ir.Graph, name string) *ir.Node {
	n := ir.NewNode(g, ia32.OpMov, ir.ModeIs, nil, nil, nil)
	n.Register = &ir.Register{Name: name}
	return n
}

// TestPipelineDiamondRedundancyCollapsesToPhi exercises end-to-end scenario
// 1: an expression computed on both arms of a diamond and recomputed at
// the merge must collapse to a single phi of the two arm defs, with no
// third computation reaching emission.
func TestPipelineDiamondRedundancyCollapsesToPhi(t *testing.T) {
	cfg := config.Default()
	classes := NewClasses(cfg)
	gp := classes.GeneralPurpose

	g := ir.NewGraph("diamond")
	x := operand(g, "%eax")
	y := operand(g, "%ebx")

	left := g.NewBlock(g.Start)
	sumLeft := ir.NewNode(g, ia32.OpAddRM, ir.ModeIs, left, []*ir.Node{x, y}, &ia32.BinOpAttrs{})
	sumLeft.Class = gp

	right := g.NewBlock(g.Start)
	sumRight := ir.NewNode(g, ia32.OpAddRM, ir.ModeIs, right, []*ir.Node{x, y}, &ia32.BinOpAttrs{})
	sumRight.Class = gp

	merge := g.NewBlock(left, right)
	sumMerge := ir.NewNode(g, ia32.OpAddRM, ir.ModeIs, merge, []*ir.Node{x, y}, &ia32.BinOpAttrs{})
	sumMerge.Class = gp
	consumer := ir.NewNode(g, ia32.OpMov, ir.ModeIs, merge, []*ir.Node{sumMerge}, nil)
	consumer.Class = gp

	res, err := Run(g, cfg, classes, 0)
	require.NoError(t, err)

	foundPhi := false
	for _, n := range merge.Nodes {
		if n.IsPhi() {
			foundPhi = true
		}
	}
	assert.True(t, foundPhi, "merge should gain a phi joining the two arm defs")

	assert.Equal(t, 2, strings.Count(res.Text, "addl"), "only the two arm computations should survive to emission:\n%s", res.Text)
}

// TestPipelineChordalAllocationUnderPressure exercises end-to-end scenario
// 3: two simultaneously-live values in a class of two registers must
// receive distinct colors, and the emitted text must reference both.
func TestPipelineChordalAllocationUnderPressure(t *testing.T) {
	cfg := config.Default()
	cfg.GeneralPurpose.Registers = []string{"%eax", "%ebx"}
	classes := NewClasses(cfg)
	gp := classes.GeneralPurpose

	g := ir.NewGraph("pressure")
	a := operand(g, "%ecx")
	b := operand(g, "%edx")

	n1 := ir.NewNode(g, ia32.OpAddRM, ir.ModeIs, g.Start, []*ir.Node{a, b}, &ia32.BinOpAttrs{})
	n1.Class = gp
	// A different opcode keeps GVN-PRE from merging n2 into n1.
	n2 := ir.NewNode(g, ia32.OpSubRM, ir.ModeIs, g.Start, []*ir.Node{a, b}, &ia32.BinOpAttrs{})
	n2.Class = gp
	n3 := ir.NewNode(g, ia32.OpAddRM, ir.ModeIs, g.Start, []*ir.Node{n1, n2}, &ia32.BinOpAttrs{})
	n3.Class = gp

	res, err := Run(g, cfg, classes, 0)
	require.NoError(t, err)

	assert.NotEqual(t, n1.Register.Index, n2.Register.Index, "n1 and n2 are both live at n3's def and need distinct colors")
	assert.Contains(t, res.Text, "%eax")
	assert.Contains(t, res.Text, "%ebx")
}

// TestPipelineJccFallthroughCollapse exercises end-to-end scenario 4: when
// the true branch is the scheduled fallthrough, emission must negate the
// condition and drop the explicit jump.
func TestPipelineJccFallthroughCollapse(t *testing.T) {
	cfg := config.Default()
	classes := NewClasses(cfg)

	g := ir.NewGraph("jcc")
	btrue := g.NewBlock(g.Start)
	bfalse := g.NewBlock(g.Start)
	ir.NewNode(g, ia32.OpJcc, ir.ModeX, g.Start, nil, &ia32.JccAttrs{
		Cond: ia32.CCLess, TrueBlock: btrue, FalseBlock: bfalse,
	})

	res, err := Run(g, cfg, classes, 0)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "jge")
	assert.NotContains(t, res.Text, "jmp")
}

// TestPipelineSwitchEmitsTable exercises end-to-end scenario 6: a switch
// over three cases plus a default emits an indirect jump through a table
// built from the whole function's resident switches.
func TestPipelineSwitchEmitsTable(t *testing.T) {
	cfg := config.Default()
	classes := NewClasses(cfg)

	g := ir.NewGraph("switch")
	idx := operand(g, "%eax")

	c0 := g.NewBlock(g.Start)
	c1 := g.NewBlock(g.Start)
	c2 := g.NewBlock(g.Start)
	def := g.NewBlock(g.Start)

	ir.NewNode(g, ia32.OpSwitchJmp, ir.ModeX, g.Start, []*ir.Node{idx}, &ia32.SwitchJmpAttrs{
		Cases: []ia32.SwitchCase{
			{Value: 0, Target: c0},
			{Value: 1, Target: c1},
			{Value: 2, Target: c2},
		},
		Default: def,
	})

	res, err := Run(g, cfg, classes, 0)
	require.NoError(t, err)
	assert.Contains(t, res.Text, "jmp *")
	assert.Contains(t, res.Text, ".section .rodata")
}

// TestRunAllCompilesIndependentFunctionsConcurrently exercises the §5
// concurrency model: several unrelated functions fan out over a bounded
// pool and every one completes.
func TestRunAllCompilesIndependentFunctionsConcurrently(t *testing.T) {
	cfg := config.Default()
	classes := NewClasses(cfg)

	var graphs []*ir.Graph
	for i := 0; i < 5; i++ {
		g := ir.NewGraph("f")
		ir.NewNode(g, ia32.OpIncSP, ir.ModeX, g.Start, nil, int32(4))
		graphs = append(graphs, g)
	}

	results, err := RunAll(context.Background(), graphs, cfg, classes, 0, 2)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for _, r := range results {
		assert.NotEmpty(t, r.Text)
	}
}

// TestRunSurfacesFatalAsError exercises §10's error-handling design: a
// diagnostics-level fatal raised deep in emission must come back as a
// plain error from Run, not a panic, so a batch driver can skip one
// broken function.
func TestRunSurfacesFatalAsError(t *testing.T) {
	cfg := config.Default()
	classes := NewClasses(cfg)

	g := ir.NewGraph("broken")
	// An unrecognized opcode reaching emission is a KindUnsupported fatal.
	ir.NewNode(g, ir.OpConst, ir.ModeIu, g.Start, nil, nil)

	_, err := Run(g, cfg, classes, 0)
	assert.Error(t, err)
}
