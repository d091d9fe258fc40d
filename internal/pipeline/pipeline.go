// Package pipeline wires GVN-PRE, the chordal allocator, and the IA-32
// emitter together for one function, and fans independent functions out
// over a bounded worker pool (spec §5).
//
// Grounded on the teacher's top-level compile driver (typthon-compiler's
// cmd/typthon/main.go calls optimizer.Optimize then amd64.Generate in
// sequence for one file); the shape here is the same two-call sequence,
// generalized to this module's three named components and given a
// concurrent multi-function entry point the teacher's single-file driver
// never needed.
package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/firmgo/firmgo/internal/config"
	"github.com/firmgo/firmgo/internal/diagnostics"
	"github.com/firmgo/firmgo/internal/domfront"
	"github.com/firmgo/firmgo/internal/gvnpre"
	"github.com/firmgo/firmgo/internal/ia32"
	"github.com/firmgo/firmgo/internal/ir"
	"github.com/firmgo/firmgo/internal/live"
	"github.com/firmgo/firmgo/internal/regalloc"
)

// Classes holds the *ir.RegisterClass instances one Config resolves to.
// Register classes are compared by pointer identity (ir.HasClass), so
// instruction selection (external, out of scope per §6) and pipeline.Run
// must tag nodes with and consult the exact same pointers — callers build
// one Classes from their Config and use it both to tag node.Class during
// selection and to pass into Run.
type Classes struct {
	GeneralPurpose *ir.RegisterClass
	X87Stack       *ir.RegisterClass
}

// NewClasses realizes a Config's two RegisterClass descriptions as the
// pointer-identity-compared ir.RegisterClass values the rest of the core
// consumes.
func NewClasses(cfg config.Config) *Classes {
	return &Classes{
		GeneralPurpose: &ir.RegisterClass{Name: cfg.GeneralPurpose.Name, N: cfg.GeneralPurpose.N()},
		X87Stack:       &ir.RegisterClass{Name: cfg.X87Stack.Name, N: cfg.X87Stack.N()},
	}
}

// Result is what one function's compilation produces: the function name
// plus whichever output EmitText/EmitBinary returned, matching config.Emit.Binary.
type Result struct {
	Name string
	Text string
}

// Run wires B -> (external instruction selection, stubbed: the caller
// supplies g already lowered and Class-tagged) -> A -> C for one function
// graph, single-threaded and allocating no shared mutable state (spec §5).
// frameSetup is the bytes the prologue already pushed, seeding the DWARF
// CFA state machine (spec §4.C.9).
func Run(g *ir.Graph, cfg config.Config, classes *Classes, frameSetup int32) (res Result, err error) {
	defer diagnostics.Recover(&err)

	diagnostics.LogPhase("compile:" + g.Name)
	defer diagnostics.LogPhaseComplete("compile:" + g.Name)

	dom := domfront.Compute(g)

	changes, gerr := gvnpre.Run(g, dom, cfg.GVNPRE)
	if gerr != nil {
		return Result{}, gerr
	}
	diagnostics.LogOptimization("gvn-pre:"+g.Name, changes)

	gpLive := live.Compute(g, classes.GeneralPurpose)
	if _, aerr := regalloc.New(classes.GeneralPurpose, cfg.GeneralPurpose.Registers).
		Allocate(g, dom, gpLive, false); aerr != nil {
		return Result{}, aerr
	}

	x87Live := live.Compute(g, classes.X87Stack)
	if _, aerr := regalloc.New(classes.X87Stack, cfg.X87Stack.Registers).
		Allocate(g, dom, x87Live, false); aerr != nil {
		return Result{}, aerr
	}

	layout := g.Blocks()

	var text string
	var eerr error
	if cfg.Emit.Binary {
		text, eerr = ia32.EmitBinary(layout, frameSetup)
	} else {
		text, eerr = ia32.EmitText(layout, frameSetup)
	}
	if eerr != nil {
		return Result{}, eerr
	}

	diagnostics.LogCodeGen("ia32", g.Name, len(g.Nodes()))
	return Result{Name: g.Name, Text: text}, nil
}

// RunAll fans functions out over a bounded worker pool (spec §5: "the
// spec explicitly allows independent concurrent compilation of different
// functions"). The first function to fail cancels the shared context:
// functions not yet started are skipped, and RunAll returns that error
// with no results. A failure is returned as an error, never a crash.
func RunAll(ctx context.Context, graphs []*ir.Graph, cfg config.Config, classes *Classes, frameSetup int32, workers int) ([]Result, error) {
	results := make([]Result, len(graphs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, graph := range graphs {
		i, graph := i, graph
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			res, err := Run(graph, cfg, classes, frameSetup)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
