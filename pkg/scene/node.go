package scene

import "github.com/deadsy/sdfx/sdf"

// NodeKind enumerates the types of nodes in the stage graph.
type NodeKind int

const (
	NodeGroup   NodeKind = iota // plain transform group (stage root)
	NodeBody                    // the beetle's body: translation and rotation
	NodeOutline                 // the cross-section outline: uniform scale
	NodeTrail                   // extruded trail geometry
)

func (k NodeKind) String() string {
	switch k {
	case NodeGroup:
		return "group"
	case NodeBody:
		return "body"
	case NodeOutline:
		return "outline"
	case NodeTrail:
		return "trail"
	default:
		return "unknown"
	}
}

// Transformer is anything with a world transform.
type Transformer interface {
	WorldTransform() sdf.M44
}

// Node is an element of the stage graph. A node's world transform is the
// product of every ancestor's local transform and its own.
type Node struct {
	Name     string
	Kind     NodeKind
	Visible  bool
	local    sdf.M44
	parent   *Node
	children []*Node
}

var _ Transformer = (*Node)(nil)

// NewNode returns a visible node with an identity local transform.
func NewNode(name string, kind NodeKind) *Node {
	return &Node{Name: name, Kind: kind, Visible: true, local: sdf.Identity3d()}
}

// Local returns the node's transform relative to its parent.
func (n *Node) Local() sdf.M44 { return n.local }

// SetLocal replaces the node's transform relative to its parent.
func (n *Node) SetLocal(m sdf.M44) { n.local = m }

// Parent returns the parent node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the node's children.
func (n *Node) Children() []*Node { return append([]*Node(nil), n.children...) }

// AddChild attaches c to n, detaching it from any previous parent.
func (n *Node) AddChild(c *Node) {
	if c.parent != nil {
		c.parent.removeChild(c)
	}
	c.parent = n
	n.children = append(n.children, c)
}

func (n *Node) removeChild(c *Node) {
	for i, ch := range n.children {
		if ch == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			break
		}
	}
	c.parent = nil
}

// WorldTransform returns parent world × local.
func (n *Node) WorldTransform() sdf.M44 {
	if n.parent == nil {
		return n.local
	}
	return n.parent.WorldTransform().Mul(n.local)
}

// Shown reports whether the node and all of its ancestors are visible.
func (n *Node) Shown() bool {
	for p := n; p != nil; p = p.parent {
		if !p.Visible {
			return false
		}
	}
	return true
}
