// Package irjson loads a single function graph from the JSON document
// format `cmd/firmc emit` reads: blocks by predecessor index, plus nodes
// in definition order so each node's operand list can reference earlier
// nodes by index (block 0 is always the graph's entry, matching
// ir.NewGraph's pre-created Start block).
//
// There is no teacher file for this: the typthon-compiler frontend never
// serializes its SSA form, it builds it directly from a parsed AST in one
// process. This loader exists only because cmd/firmc needs some way to
// feed a hand- or tool-built graph into the pipeline without a real
// frontend (out of scope per spec.md §1's "no frontend, no parser"); the
// shape — a Document struct decoded with encoding/json, a two-pass
// resolve-then-build walk — follows the same decode-into-a-plain-struct
// style the teacher's own config/IR builders use elsewhere in the pack
// (e.g. BurntSushi/toml's DecodeFile target in package config).
package irjson

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/firmgo/firmgo/internal/diagnostics"
	"github.com/firmgo/firmgo/internal/ia32"
	"github.com/firmgo/firmgo/internal/ir"
	"github.com/firmgo/firmgo/internal/pipeline"
)

// Document is the on-disk shape of one function.
type Document struct {
	Name       string     `json:"name"`
	FrameSetup int32      `json:"frame_setup"`
	Blocks     []BlockDoc `json:"blocks"`
	Nodes      []NodeDoc  `json:"nodes"`
}

// BlockDoc names a block's predecessors by index into Document.Blocks.
// Block 0 is never given explicit preds; it is the graph's Start block.
type BlockDoc struct {
	Preds []int `json:"preds"`
}

// NodeDoc is one node: an opcode name resolved via opRegistry, a mode
// name resolved via modeRegistry, the index of its owning block (-1 for a
// phantom operand carrier never walked during emission, matching how
// pipeline's own tests stand in for already-selected values), its operand
// node indices, an optional register class, an optional preset physical
// register (for phantom operands or anything instruction selection would
// have already pinned), and opcode-specific attributes.
type NodeDoc struct {
	Op       string          `json:"op"`
	Mode     string          `json:"mode"`
	Block    int             `json:"block"`
	Args     []int           `json:"args"`
	Class    string          `json:"class"`
	Register string          `json:"register"`
	Attrs    json.RawMessage `json:"attrs"`
}

var modeRegistry = map[string]*ir.Mode{
	"Bu": ir.ModeBu, "Bs": ir.ModeBs, "Hu": ir.ModeHu, "Hs": ir.ModeHs,
	"Iu": ir.ModeIu, "Is": ir.ModeIs, "Lu": ir.ModeLu, "Ls": ir.ModeLs,
	"P": ir.ModeRef, "Fs": ir.ModeFs, "Fd": ir.ModeFd, "Fx": ir.ModeFx,
	"b": ir.ModeBb, "M": ir.ModeM, "X": ir.ModeX, "T": ir.ModeT,
}

var opRegistry = map[string]*ir.Op{
	"Const": ir.OpConst, "Phi": ir.OpPhi,
	"ia32_Add": ia32.OpAddRM, "ia32_Sub": ia32.OpSubRM, "ia32_And": ia32.OpAndRM,
	"ia32_Or": ia32.OpOrRM, "ia32_Xor": ia32.OpXorRM, "ia32_Cmp": ia32.OpCmp,
	"ia32_IMul": ia32.OpIMul, "ia32_CMovcc": ia32.OpCMovcc,
	"ia32_Minus64Bit": ia32.OpMinus64, "ia32_CopyB": ia32.OpCopyB,
	"ia32_Jcc": ia32.OpJcc, "ia32_Jmp": ia32.OpJmp, "ia32_SwitchJmp": ia32.OpSwitchJmp,
	"ia32_IncSP": ia32.OpIncSP, "ia32_Ucomis": ia32.OpUcomis, "ia32_Mov": ia32.OpMov,
	"ia32_Lea": ia32.OpLea, "ia32_Perm": ia32.OpPerm,
	"ia32_fadd": ia32.OpFadd, "ia32_fsub": ia32.OpFsub,
	"ia32_fmul": ia32.OpFmul, "ia32_fdiv": ia32.OpFdiv,
}

var condRegistry = map[string]ia32.CondCode{
	"e": ia32.CCEqual, "ne": ia32.CCNotEqual, "l": ia32.CCLess, "le": ia32.CCLessEqual,
	"g": ia32.CCGreater, "ge": ia32.CCGreaterEqual, "b": ia32.CCBelow,
	"be": ia32.CCBelowEqual, "a": ia32.CCAbove, "ae": ia32.CCAboveEqual,
}

// memDoc mirrors ia32.AddrMode, with Base/Index given as node indices.
type memDoc struct {
	Entity string `json:"entity"`
	Disp   int32  `json:"disp"`
	Base   *int   `json:"base"`
	Index  *int   `json:"index"`
	Scale  int    `json:"scale"`
}

// binOpAttrsDoc mirrors ia32.BinOpAttrs; ExcHandler is a block index.
type binOpAttrsDoc struct {
	Mem        *memDoc `json:"mem"`
	Imm        *int32  `json:"imm"`
	ExcHandler *int    `json:"exc_handler"`
}

type immAttrsDoc struct {
	Imm *int32 `json:"imm"`
}

type cmovAttrsDoc struct {
	Cond string `json:"cond"`
}

type minus64AttrsDoc struct {
	HiOut string `json:"hi_out"`
}

type copyBAttrsDoc struct {
	Size uint32 `json:"size"`
}

type switchCaseDoc struct {
	Value  int64 `json:"value"`
	Target int   `json:"target"`
}

type switchAttrsDoc struct {
	Cases   []switchCaseDoc `json:"cases"`
	Default int             `json:"default"`
}

type jccAttrsDoc struct {
	Cond       string `json:"cond"`
	Unordered  bool   `json:"unordered"`
	Permuted   bool   `json:"permuted"`
	TrueBlock  int    `json:"true_block"`
	FalseBlock int    `json:"false_block"`
}

type x87AttrsDoc struct {
	Slots   [3]int `json:"slots"`
	Pop     bool   `json:"pop"`
	Reverse bool   `json:"reverse"`
}

// Load reads a JSON graph document from path and builds the ir.Graph it
// describes, resolving register classes against classes so instruction
// selection's pointer-identity contract (ir.HasClass) is honored.
func Load(path string, classes *pipeline.Classes) (*ir.Graph, int32, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	return build(&doc, classes)
}

func build(doc *Document, classes *pipeline.Classes) (g *ir.Graph, frameSetup int32, err error) {
	defer diagnostics.Recover(&err)

	g = ir.NewGraph(doc.Name)
	blocks := make([]*ir.Block, len(doc.Blocks))
	if len(doc.Blocks) > 0 {
		blocks[0] = g.Start
	}
	for i := 1; i < len(doc.Blocks); i++ {
		preds := make([]*ir.Block, len(doc.Blocks[i].Preds))
		for j, p := range doc.Blocks[i].Preds {
			preds[j] = blocks[p]
		}
		blocks[i] = g.NewBlock(preds...)
	}

	nodes := make([]*ir.Node, len(doc.Nodes))
	for i, nd := range doc.Nodes {
		op, ok := opRegistry[nd.Op]
		if !ok {
			diagnostics.Fatalf(diagnostics.KindUnsupported, "irjson.build", "unknown opcode %q", nd.Op)
		}
		mode, ok := modeRegistry[nd.Mode]
		if !ok {
			diagnostics.Fatalf(diagnostics.KindUnsupported, "irjson.build", "unknown mode %q", nd.Mode)
		}

		var block *ir.Block
		if nd.Block >= 0 {
			block = blocks[nd.Block]
		}

		args := make([]*ir.Node, len(nd.Args))
		for j, a := range nd.Args {
			args[j] = nodes[a]
		}

		n := ir.NewNode(g, op, mode, block, args, nil)
		n.Attrs = decodeAttrs(nd.Op, nd.Attrs, nodes, blocks)

		switch nd.Class {
		case "gp":
			n.Class = classes.GeneralPurpose
		case "x87":
			n.Class = classes.X87Stack
		case "":
		default:
			diagnostics.Fatalf(diagnostics.KindUnsupported, "irjson.build", "unknown register class %q", nd.Class)
		}
		if nd.Register != "" {
			n.Register = &ir.Register{Class: n.Class, Name: nd.Register}
		}

		nodes[i] = n
	}

	return g, doc.FrameSetup, nil
}

func decodeMem(d *memDoc, nodes []*ir.Node) *ia32.AddrMode {
	if d == nil {
		return nil
	}
	a := &ia32.AddrMode{Entity: d.Entity, Disp: d.Disp, Scale: d.Scale}
	if d.Base != nil {
		a.Base = nodes[*d.Base]
	}
	if d.Index != nil {
		a.Index = nodes[*d.Index]
	}
	return a
}

func decodeCond(s string) ia32.CondCode {
	c, ok := condRegistry[s]
	if !ok {
		diagnostics.Fatalf(diagnostics.KindUnsupported, "irjson.decodeCond", "unknown condition code %q", s)
	}
	return c
}

// decodeAttrs unmarshals raw into the attrs shape the named opcode
// expects. Nodes/blocks resolve index references embedded in attrs
// (memory base/index registers, branch targets, exception handlers).
func decodeAttrs(op string, raw json.RawMessage, nodes []*ir.Node, blocks []*ir.Block) any {
	if len(raw) == 0 {
		return nil
	}
	switch op {
	case "ia32_Add", "ia32_Sub", "ia32_And", "ia32_Or", "ia32_Xor", "ia32_Cmp", "ia32_Mov":
		var d binOpAttrsDoc
		mustUnmarshal(raw, &d)
		a := &ia32.BinOpAttrs{Mem: decodeMem(d.Mem, nodes), Imm: d.Imm}
		if d.ExcHandler != nil {
			a.ExcHandler = blocks[*d.ExcHandler]
		}
		return a
	case "ia32_IMul":
		var d immAttrsDoc
		mustUnmarshal(raw, &d)
		return &ia32.IMulAttrs{Imm: d.Imm}
	case "ia32_CMovcc":
		var d cmovAttrsDoc
		mustUnmarshal(raw, &d)
		return &ia32.CMovccAttrs{Cond: decodeCond(d.Cond)}
	case "ia32_Minus64Bit":
		var d minus64AttrsDoc
		mustUnmarshal(raw, &d)
		return &ia32.Minus64Attrs{HiOut: &ir.Register{Name: d.HiOut}}
	case "ia32_CopyB":
		var d copyBAttrsDoc
		mustUnmarshal(raw, &d)
		return &ia32.CopyBAttrs{Size: d.Size}
	case "ia32_SwitchJmp":
		var d switchAttrsDoc
		mustUnmarshal(raw, &d)
		cases := make([]ia32.SwitchCase, len(d.Cases))
		for i, c := range d.Cases {
			cases[i] = ia32.SwitchCase{Value: c.Value, Target: blocks[c.Target]}
		}
		return &ia32.SwitchJmpAttrs{Cases: cases, Default: blocks[d.Default]}
	case "ia32_Jcc":
		var d jccAttrsDoc
		mustUnmarshal(raw, &d)
		return &ia32.JccAttrs{
			Cond: decodeCond(d.Cond), Unordered: d.Unordered, Permuted: d.Permuted,
			TrueBlock: blocks[d.TrueBlock], FalseBlock: blocks[d.FalseBlock],
		}
	case "ia32_IncSP":
		var delta int32
		mustUnmarshal(raw, &delta)
		return delta
	case "ia32_Lea":
		var d memDoc
		mustUnmarshal(raw, &d)
		return decodeMem(&d, nodes)
	case "ia32_fadd", "ia32_fsub", "ia32_fmul", "ia32_fdiv":
		var d x87AttrsDoc
		mustUnmarshal(raw, &d)
		return &ia32.X87Attrs{Slots: d.Slots, Pop: d.Pop, Reverse: d.Reverse}
	default:
		diagnostics.Fatalf(diagnostics.KindUnsupported, "irjson.decodeAttrs", "opcode %q takes no attrs document", op)
		return nil
	}
}

func mustUnmarshal(raw json.RawMessage, v any) {
	if err := json.Unmarshal(raw, v); err != nil {
		diagnostics.Fatalf(diagnostics.KindUnsupported, "irjson.mustUnmarshal", "%v", err)
	}
}
