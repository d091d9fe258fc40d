package ir

// Node is a vertex in the IR graph: an opcode, a mode, an ordered list of
// inputs, an owning block, opcode-specific attributes, and a stable index.
//
// Register is nil until the chordal allocator (package regalloc) assigns
// one; Class is set by instruction selection (external, out of scope) and
// consulted by the allocator and emitter via HasClass/RegisterClassOf.
type Node struct {
	Op    *Op
	Mode  *Mode
	Args  []*Node
	Block *Block
	Attrs any
	Index int32

	Class    *RegisterClass
	Register *Register
}

// NewNode constructs a node and assigns it a stable index from the owning
// graph's counter. Mirrors the external new_node(opcode, mode, block,
// inputs, attrs) collaborator named in spec §6.
func NewNode(g *Graph, op *Op, mode *Mode, block *Block, args []*Node, attrs any) *Node {
	n := &Node{
		Op:    op,
		Mode:  mode,
		Args:  args,
		Block: block,
		Attrs: attrs,
		Index: g.nextNodeIndex,
	}
	g.nextNodeIndex++
	if block != nil {
		block.Nodes = append(block.Nodes, n)
	}
	g.allNodes = append(g.allNodes, n)
	return n
}

// CopyAttrs copies the opcode-specific attribute payload from src to dst,
// matching the external copy_node_attr(src, dst) collaborator (spec §6).
// Used when GVN-PRE materializes a new node with the same opcode/attributes
// as an existing one but substituted operands.
func CopyAttrs(src, dst *Node) {
	dst.Attrs = src.Attrs
}

// RegisterClass identifies a set of interchangeable physical registers
// (e.g. the IA-32 general-purpose class, or the x87 stack class).
type RegisterClass struct {
	Name string
	N    int // number of registers in the class
}

// Register is one physical register within a class, identified by its
// color index (spec §4.A: "assigned color of a node lies in [0, colors_n)").
type Register struct {
	Class *RegisterClass
	Index int
	Name  string
}

// HasClass reports whether n needs a register from cls. Matches the
// external has_class(node, class) collaborator (spec §6).
func HasClass(n *Node, cls *RegisterClass) bool {
	return n.Class == cls
}

// RegisterClassOf returns n's register class, or nil if n needs none.
// Matches the external register_class(node) collaborator (spec §6).
func RegisterClassOf(n *Node) *RegisterClass {
	return n.Class
}

// IsPhi reports whether n is a Phi node in the generic pre-lowering sense
// GVN-PRE cares about (always a distinct value unless predecessors match).
func (n *Node) IsPhi() bool { return n.Op == OpPhi }

// IsConst reports whether n is a nullary constant.
func (n *Node) IsConst() bool { return n.Op.Is(FlagConst) }

// IsMovable reports whether n is eligible to be hoisted/value-numbered by
// GVN-PRE (not pinned to its block/position).
func (n *Node) IsMovable() bool { return !n.Op.Is(FlagPinned) }
