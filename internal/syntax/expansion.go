package syntax

import (
	"context"
	"fmt"
	"iter"
)

// origin ties an expansion tree to the invocation it overlays. The tree's
// source is a synthetic prefix, the invocation's argument text, and a
// synthetic suffix.
type origin struct {
	call   Node
	span   TextRange
	prefix uint32
}

func (o *origin) mapOffset(off uint32) uint32 {
	if off < o.prefix {
		return o.span.Start
	}
	return min(o.span.Start+(off-o.prefix), o.span.End)
}

// wrappers turn a token tree body into something the grammar parses as an
// expression or block, keyed by the opening delimiter.
var wrappers = map[string][2]string{
	"(": {"fn __expansion__() { (", "); }"},
	"[": {"fn __expansion__() { [", "]; }"},
	"{": {"fn __expansion__() { {", "} }"},
}

// ParseExpansion parses the arguments of a macro invocation as Rust code and
// returns a tree overlaying them. It returns (nil, nil) when the invocation
// has no delimited arguments.
func ParseExpansion(ctx context.Context, call Node) (*Tree, error) {
	if !IsMacroCall(call) {
		return nil, nil
	}
	body, ok := ArgumentsRange(call)
	if !ok {
		return nil, nil
	}
	open := call.ChildOfKind("token_tree").Children()[0]
	wrap, ok := wrappers[open.Kind()]
	if !ok {
		return nil, nil
	}

	src := make([]byte, 0, len(wrap[0])+int(body.Len())+len(wrap[1]))
	src = append(src, wrap[0]...)
	src = append(src, call.tree.src[body.Start:body.End]...)
	src = append(src, wrap[1]...)

	t, err := Parse(ctx, call.tree.file, src)
	if err != nil {
		return nil, fmt.Errorf("syntax: expand %s: %w", call, err)
	}
	t.origin = &origin{call: call, span: body, prefix: uint32(len(wrap[0]))}
	return t, nil
}

// OuterParent is Parent, except that the topmost node of an expansion's own
// text reports the macro invocation as its parent. The synthetic wrapper
// nodes are skipped.
func (n Node) OuterParent() Node {
	p := n.Parent()
	o := n.tree
	if o == nil || o.origin == nil {
		return p
	}
	if p.IsZero() || p.Range().Start < o.origin.prefix {
		return o.origin.call
	}
	return p
}

// OuterAncestors yields n and its outer parents, crossing from expansion
// trees into the trees of their invocations.
func (n Node) OuterAncestors() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for cur := n; !cur.IsZero(); cur = cur.OuterParent() {
			if !yield(cur) {
				return
			}
		}
	}
}

// ArgumentsRange returns the range of a macro invocation's argument text,
// between its delimiters.
func ArgumentsRange(call Node) (TextRange, bool) {
	tt := call.ChildOfKind("token_tree")
	children := tt.Children()
	if len(children) < 2 {
		return TextRange{}, false
	}
	body := TextRange{Start: children[0].Range().End, End: children[len(children)-1].Range().Start}
	if body.End < body.Start {
		return TextRange{}, false
	}
	return body, true
}
