// Package rfgraph models the FPGA signal-processing block graph that a
// streaming endpoint's data path is attached to. Nodes advertise a
// small capability set and explicit downstream edges; traversal walks
// the edges rather than inspecting runtime types, so discovery works
// for any node that declares the capability.
package rfgraph

// Capability classifies what a block-graph node can do.
type Capability int

const (
	// CapRadioControl marks a node fronting a physical radio.
	CapRadioControl Capability = iota
	// CapDdcControl marks a digital down-converter block.
	CapDdcControl
	// CapDucControl marks a digital up-converter block.
	CapDucControl
)

// Node is one block in the signal-processing graph.
type Node interface {
	ID() string
	Capabilities() []Capability
	Downstream() []Node
}

// RadioControl is implemented by nodes with CapRadioControl. It locates
// the physical radio the node fronts.
type RadioControl interface {
	Node
	MotherboardIndex() int
	RadioIndex() int
}

// FindDownstream walks the graph below start (excluding start itself)
// and returns every node advertising the requested capability, in
// breadth-first order. Each node is visited once even when data paths
// converge. The result is a fresh slice; the walk is restartable.
func FindDownstream(start Node, cap Capability) []Node {
	var found []Node
	seen := map[string]bool{start.ID(): true}
	queue := append([]Node(nil), start.Downstream()...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n.ID()] {
			continue
		}
		seen[n.ID()] = true
		if hasCapability(n, cap) {
			found = append(found, n)
		}
		queue = append(queue, n.Downstream()...)
	}
	return found
}

func hasCapability(n Node, cap Capability) bool {
	for _, c := range n.Capabilities() {
		if c == cap {
			return true
		}
	}
	return false
}

// Block is a plain graph node with fixed capabilities and edges.
type Block struct {
	id   string
	caps []Capability
	next []Node
}

// NewBlock creates a node with the given identity and capabilities.
func NewBlock(id string, caps ...Capability) *Block {
	return &Block{id: id, caps: caps}
}

func (b *Block) ID() string                 { return b.id }
func (b *Block) Capabilities() []Capability { return b.caps }
func (b *Block) Downstream() []Node         { return b.next }

// Connect adds a downstream edge from b to n.
func (b *Block) Connect(n Node) { b.next = append(b.next, n) }

// RadioBlock is a radio-control node bound to a physical radio.
type RadioBlock struct {
	Block
	mboard int
	radio  int
}

// NewRadioBlock creates a radio-control node for the given motherboard
// and physical radio index.
func NewRadioBlock(id string, mboard, radio int) *RadioBlock {
	return &RadioBlock{
		Block:  Block{id: id, caps: []Capability{CapRadioControl}},
		mboard: mboard,
		radio:  radio,
	}
}

func (r *RadioBlock) MotherboardIndex() int { return r.mboard }
func (r *RadioBlock) RadioIndex() int       { return r.radio }
