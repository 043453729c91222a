// Package scene holds the stage graph: a small tree of named transform
// nodes. The beetle's body and outline live here so that their world
// transforms account for every parent transform.
package scene

import (
	"fmt"

	"github.com/deadsy/sdfx/sdf"
)

// RootName is the name of the stage root.
const RootName = "stage"

// Graph is a tree of nodes with a name index.
type Graph struct {
	Root      *Node
	NameIndex map[string]*Node
}

// New creates a graph holding only the stage root.
func New() *Graph {
	root := NewNode(RootName, NodeGroup)
	return &Graph{
		Root:      root,
		NameIndex: map[string]*Node{RootName: root},
	}
}

// SetStageTransform sets the root's local transform, the parent transform
// every other node inherits.
func (g *Graph) SetStageTransform(m sdf.M44) {
	g.Root.SetLocal(m)
}

// Add creates a node under parent (the root when nil) and indexes it by
// name. Names must be unique and non-empty.
func (g *Graph) Add(parent *Node, name string, kind NodeKind) (*Node, error) {
	if name == "" {
		return nil, fmt.Errorf("scene: node name must not be empty")
	}
	if _, ok := g.NameIndex[name]; ok {
		return nil, fmt.Errorf("scene: duplicate node name %q", name)
	}
	if parent == nil {
		parent = g.Root
	}
	n := NewNode(name, kind)
	parent.AddChild(n)
	g.NameIndex[name] = n
	return n, nil
}

// Lookup returns the node with the given name, or nil.
func (g *Graph) Lookup(name string) *Node {
	return g.NameIndex[name]
}

// MustLookup returns the node with the given name, or panics.
func (g *Graph) MustLookup(name string) *Node {
	n := g.Lookup(name)
	if n == nil {
		panic(fmt.Sprintf("scene: no node named %q", name))
	}
	return n
}

// Get returns the children of the named node, or nil when it does not exist.
func (g *Graph) Get(name string) []*Node {
	n := g.Lookup(name)
	if n == nil {
		return nil
	}
	return n.Children()
}

// NodeCount returns the total number of nodes, root included.
func (g *Graph) NodeCount() int {
	return len(g.NameIndex)
}
