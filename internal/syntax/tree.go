package syntax

import (
	"context"
	"fmt"
	"iter"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"
)

// FileID identifies a source file within a snapshot.
type FileID uint32

// NodeID indexes a node inside its Tree's arena.
type NodeID int32

const noNode NodeID = -1

type nodeData struct {
	kind     string
	field    string
	named    bool
	rng      TextRange
	parent   NodeID
	children []NodeID
}

// Tree is an immutable, arena-indexed copy of a tree-sitter parse tree.
// Nodes are stored in preorder and refer to each other by index, so a Tree
// can be shared between goroutines once built.
type Tree struct {
	file   FileID
	src    []byte
	nodes  []nodeData
	tokens []Token
	origin *origin
}

// Parse parses Rust source into a Tree.
func Parse(ctx context.Context, file FileID, src []byte) (*Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(rust.GetLanguage())

	st, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("syntax: parse: %w", err)
	}
	defer st.Close()

	return build(file, src, st.RootNode()), nil
}

// build copies the tree-sitter tree rooted at root into an arena.
func build(file FileID, src []byte, root *sitter.Node) *Tree {
	t := &Tree{file: file, src: src}

	cur := sitter.NewTreeCursor(root)
	defer cur.Close()

	id := t.push(cur, noNode)
	for {
		if cur.GoToFirstChild() {
			id = t.push(cur, id)
			continue
		}
		for !cur.GoToNextSibling() {
			if !cur.GoToParent() {
				t.indexTokens()
				return t
			}
			id = t.nodes[id].parent
		}
		id = t.push(cur, t.nodes[id].parent)
	}
}

func (t *Tree) push(cur *sitter.TreeCursor, parent NodeID) NodeID {
	n := cur.CurrentNode()
	id := NodeID(len(t.nodes))
	t.nodes = append(t.nodes, nodeData{
		kind:   n.Type(),
		field:  cur.CurrentFieldName(),
		named:  n.IsNamed(),
		rng:    TextRange{Start: n.StartByte(), End: n.EndByte()},
		parent: parent,
	})
	if parent != noNode {
		t.nodes[parent].children = append(t.nodes[parent].children, id)
	}
	return id
}

// indexTokens records the leaves in source order and fills the gaps between
// them with trivia tokens, so every offset of the source belongs to a token.
func (t *Tree) indexTokens() {
	var pos uint32
	for i := range t.nodes {
		n := &t.nodes[i]
		if len(n.children) != 0 || n.rng.Len() == 0 || n.rng.Start < pos {
			continue
		}
		if n.rng.Start > pos {
			t.tokens = append(t.tokens, Token{tree: t, Range: TextRange{Start: pos, End: n.rng.Start}})
		}
		t.tokens = append(t.tokens, Token{tree: t, Node: Node{tree: t, id: NodeID(i)}, Range: n.rng})
		pos = n.rng.End
	}
	if end := uint32(len(t.src)); pos < end {
		t.tokens = append(t.tokens, Token{tree: t, Range: TextRange{Start: pos, End: end}})
	}
}

// File returns the file the tree belongs to. Expansion trees report the file
// of the invocation they overlay.
func (t *Tree) File() FileID { return t.file }

// Source returns the text the tree was parsed from.
func (t *Tree) Source() []byte { return t.src }

// Root returns the root node.
func (t *Tree) Root() Node {
	if len(t.nodes) == 0 {
		return Node{}
	}
	return Node{tree: t, id: 0}
}

// Len returns the number of nodes in the arena.
func (t *Tree) Len() int { return len(t.nodes) }

// Tokens returns the leaf and trivia tokens in source order.
func (t *Tree) Tokens() []Token { return t.tokens }

// CoveringNode returns the smallest node whose range contains r.
func (t *Tree) CoveringNode(r TextRange) Node {
	n := t.Root()
	if n.IsZero() {
		return n
	}
outer:
	for {
		for _, c := range n.data().children {
			if t.nodes[c].rng.ContainsRange(r) {
				n = Node{tree: t, id: c}
				continue outer
			}
		}
		return n
	}
}

// NodeAt returns the innermost node with exactly the range r whose kind
// satisfies match.
func (t *Tree) NodeAt(r TextRange, match func(Node) bool) (Node, bool) {
	for n := range t.CoveringNode(r).Ancestors() {
		if n.Range() != r {
			break
		}
		if match(n) {
			return n, true
		}
	}
	return Node{}, false
}

// TokenAtOffset returns the token or tokens touching offset.
func (t *Tree) TokenAtOffset(off uint32) TokenAtOffset {
	toks := t.tokens
	if len(toks) == 0 {
		return TokenAtOffset{}
	}
	i := sort.Search(len(toks), func(i int) bool { return toks[i].Range.End > off })
	if i == len(toks) {
		last := toks[len(toks)-1]
		if off == last.Range.End {
			return TokenAtOffset{left: last, n: 1}
		}
		return TokenAtOffset{}
	}
	tok := toks[i]
	if tok.Range.Start == off && i > 0 {
		return TokenAtOffset{left: toks[i-1], right: tok, n: 2}
	}
	if tok.Range.Start <= off {
		return TokenAtOffset{left: tok, n: 1}
	}
	return TokenAtOffset{}
}

// AncestorsAtOffset yields the ancestors of every token at offset, merged so
// that shorter nodes come first.
func (t *Tree) AncestorsAtOffset(off uint32) iter.Seq[Node] {
	return func(yield func(Node) bool) {
		var chains [][]Node
		for _, tok := range t.TokenAtOffset(off).Tokens() {
			var chain []Node
			for n := range tok.Ancestors() {
				chain = append(chain, n)
			}
			chains = append(chains, chain)
		}
		switch len(chains) {
		case 0:
			return
		case 1:
			for _, n := range chains[0] {
				if !yield(n) {
					return
				}
			}
			return
		}
		a, b := chains[0], chains[1]
		for len(a) > 0 || len(b) > 0 {
			var n Node
			if len(b) == 0 || (len(a) > 0 && a[0].Range().Len() <= b[0].Range().Len()) {
				n, a = a[0], a[1:]
			} else {
				n, b = b[0], b[1:]
			}
			if !yield(n) {
				return
			}
		}
	}
}

// FindNodeAtOffset returns the smallest node around offset satisfying match.
func (t *Tree) FindNodeAtOffset(off uint32, match func(Node) bool) (Node, bool) {
	for n := range t.AncestorsAtOffset(off) {
		if match(n) {
			return n, true
		}
	}
	return Node{}, false
}

// MapRange converts a range of this tree into the coordinates of the file
// the tree ultimately overlays. It is the identity for file trees.
func (t *Tree) MapRange(r TextRange) TextRange {
	for cur := t; cur.origin != nil; cur = cur.origin.call.tree {
		r = TextRange{Start: cur.origin.mapOffset(r.Start), End: cur.origin.mapOffset(r.End)}
	}
	return r
}

// IsExpansion reports whether the tree overlays a macro invocation.
func (t *Tree) IsExpansion() bool { return t.origin != nil }

// Call returns the invocation an expansion tree overlays.
func (t *Tree) Call() Node {
	if t.origin == nil {
		return Node{}
	}
	return t.origin.call
}

// LocalOffset maps an offset of the enclosing tree into an expansion tree.
func (t *Tree) LocalOffset(off uint32) (uint32, bool) {
	if t.origin == nil {
		return off, true
	}
	if off < t.origin.span.Start || off > t.origin.span.End {
		return 0, false
	}
	return off - t.origin.span.Start + t.origin.prefix, true
}

// Node returns the node with the given arena index.
func (t *Tree) Node(id NodeID) Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return Node{}
	}
	return Node{tree: t, id: id}
}

// Nodes yields every node in preorder.
func (t *Tree) Nodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for i := range t.nodes {
			if !yield(Node{tree: t, id: NodeID(i)}) {
				return
			}
		}
	}
}
