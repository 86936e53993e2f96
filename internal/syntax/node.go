package syntax

import (
	"fmt"
	"iter"
)

// Node is a lightweight handle to a node of a Tree. The zero Node is "no
// node" and every accessor on it returns a zero value.
type Node struct {
	tree *Tree
	id   NodeID
}

// IsZero reports whether n refers to no node.
func (n Node) IsZero() bool { return n.tree == nil }

// Tree returns the tree the node belongs to.
func (n Node) Tree() *Tree { return n.tree }

// ID returns the node's arena index.
func (n Node) ID() NodeID { return n.id }

func (n Node) data() *nodeData { return &n.tree.nodes[n.id] }

// Kind returns the grammar kind, e.g. "struct_item" or "{".
func (n Node) Kind() string {
	if n.IsZero() {
		return ""
	}
	return n.data().kind
}

// Field returns the field name under which the node hangs off its parent.
func (n Node) Field() string {
	if n.IsZero() {
		return ""
	}
	return n.data().field
}

// IsNamed reports whether the node is a named grammar node.
func (n Node) IsNamed() bool {
	return !n.IsZero() && n.data().named
}

// Range returns the node's range in its own tree.
func (n Node) Range() TextRange {
	if n.IsZero() {
		return TextRange{}
	}
	return n.data().rng
}

// FileRange returns the node's range in file coordinates.
func (n Node) FileRange() TextRange {
	if n.IsZero() {
		return TextRange{}
	}
	return n.tree.MapRange(n.data().rng)
}

// File returns the file the node belongs to.
func (n Node) File() FileID {
	if n.IsZero() {
		return 0
	}
	return n.tree.file
}

// Text returns the source text of the node.
func (n Node) Text() string {
	if n.IsZero() {
		return ""
	}
	r := n.data().rng
	return string(n.tree.src[r.Start:r.End])
}

// Parent returns the parent node, or the zero Node for the root.
func (n Node) Parent() Node {
	if n.IsZero() {
		return Node{}
	}
	p := n.data().parent
	if p == noNode {
		return Node{}
	}
	return Node{tree: n.tree, id: p}
}

// Ancestors yields n and then each of its parents up to the root.
func (n Node) Ancestors() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for cur := n; !cur.IsZero(); cur = cur.Parent() {
			if !yield(cur) {
				return
			}
		}
	}
}

// Children returns all children, anonymous tokens included.
func (n Node) Children() []Node {
	if n.IsZero() {
		return nil
	}
	ids := n.data().children
	out := make([]Node, len(ids))
	for i, id := range ids {
		out[i] = Node{tree: n.tree, id: id}
	}
	return out
}

// NamedChildren returns the named children.
func (n Node) NamedChildren() []Node {
	if n.IsZero() {
		return nil
	}
	var out []Node
	for _, id := range n.data().children {
		if n.tree.nodes[id].named {
			out = append(out, Node{tree: n.tree, id: id})
		}
	}
	return out
}

// ChildByField returns the first child stored under the given field name.
func (n Node) ChildByField(name string) Node {
	if n.IsZero() {
		return Node{}
	}
	for _, id := range n.data().children {
		if n.tree.nodes[id].field == name {
			return Node{tree: n.tree, id: id}
		}
	}
	return Node{}
}

// ChildOfKind returns the first child whose kind is one of kinds.
func (n Node) ChildOfKind(kinds ...string) Node {
	if n.IsZero() {
		return Node{}
	}
	for _, id := range n.data().children {
		for _, k := range kinds {
			if n.tree.nodes[id].kind == k {
				return Node{tree: n.tree, id: id}
			}
		}
	}
	return Node{}
}

// IsBefore reports whether n starts before o in the same tree.
func (n Node) IsBefore(o Node) bool { return n.id < o.id }

func (n Node) String() string {
	if n.IsZero() {
		return "<none>"
	}
	return fmt.Sprintf("%s@%s", n.Kind(), n.Range())
}
