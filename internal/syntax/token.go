package syntax

import "iter"

// Token is a leaf of the tree or a run of trivia between two leaves. Trivia
// tokens have a zero Node.
type Token struct {
	tree  *Tree
	Node  Node
	Range TextRange
}

// IsTrivia reports whether the token is whitespace between leaves.
func (t Token) IsTrivia() bool { return t.Node.IsZero() }

// Kind returns the leaf kind, or "whitespace" for trivia.
func (t Token) Kind() string {
	if t.IsTrivia() {
		return "whitespace"
	}
	return t.Node.Kind()
}

// Text returns the token text.
func (t Token) Text() string {
	if t.tree == nil {
		return ""
	}
	return string(t.tree.src[t.Range.Start:t.Range.End])
}

// Ancestors yields the token's leaf node and its parents. For trivia it
// starts at the smallest node covering the gap.
func (t Token) Ancestors() iter.Seq[Node] {
	if t.tree == nil {
		return func(func(Node) bool) {}
	}
	if t.IsTrivia() {
		return t.tree.CoveringNode(t.Range).Ancestors()
	}
	return t.Node.Ancestors()
}

// TokenAtOffset is the result of looking up tokens at an offset: none, a
// single token containing the offset, or the two tokens meeting there.
type TokenAtOffset struct {
	left, right Token
	n           int
}

// IsNone reports whether no token touches the offset.
func (t TokenAtOffset) IsNone() bool { return t.n == 0 }

// Single returns the token when exactly one touches the offset.
func (t TokenAtOffset) Single() (Token, bool) {
	return t.left, t.n == 1
}

// Between returns the left and right tokens when the offset sits on their
// shared boundary.
func (t TokenAtOffset) Between() (Token, Token, bool) {
	return t.left, t.right, t.n == 2
}

// Tokens returns the touching tokens, left first.
func (t TokenAtOffset) Tokens() []Token {
	switch t.n {
	case 1:
		return []Token{t.left}
	case 2:
		return []Token{t.left, t.right}
	}
	return nil
}
