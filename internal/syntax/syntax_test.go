package syntax

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTest(t *testing.T, src string) *Tree {
	t.Helper()
	tree, err := Parse(context.Background(), 1, []byte(src))
	require.NoError(t, err)
	require.NotNil(t, tree)
	return tree
}

// offsetOf is the offset of the nth occurrence of needle in src.
func offsetOf(t *testing.T, src, needle string, nth int) uint32 {
	t.Helper()
	start := 0
	for i := 0; ; i++ {
		j := strings.Index(src[start:], needle)
		require.GreaterOrEqual(t, j, 0, "%q occurrence %d not found", needle, nth)
		if i == nth {
			return uint32(start + j)
		}
		start += j + len(needle)
	}
}

func TestParse_BuildsArena(t *testing.T) {
	src := "struct Foo { a: u32 }\n"
	tree := parseTest(t, src)

	root := tree.Root()
	assert.Equal(t, "source_file", root.Kind())
	assert.True(t, root.Parent().IsZero())
	assert.Equal(t, FileID(1), root.File())

	item := root.NamedChildren()[0]
	assert.Equal(t, "struct_item", item.Kind())
	name := Name(item)
	assert.Equal(t, "Foo", name.Text())
	assert.Equal(t, "name", name.Field())
	assert.Equal(t, item, name.Parent())
	assert.Equal(t, NewRange(7, 10), name.Range())

	var kinds []string
	for n := range name.Ancestors() {
		kinds = append(kinds, n.Kind())
	}
	assert.Equal(t, []string{"type_identifier", "struct_item", "source_file"}, kinds)
}

func TestParse_TokensCoverSource(t *testing.T) {
	src := "fn main() {\n    let x = 1;\n}\n"
	tree := parseTest(t, src)

	var b strings.Builder
	var pos uint32
	for _, tok := range tree.Tokens() {
		assert.Equal(t, pos, tok.Range.Start)
		b.WriteString(tok.Text())
		pos = tok.Range.End
	}
	assert.Equal(t, src, b.String())
}

func TestTokenAtOffset(t *testing.T) {
	src := "struct Foo {}"
	tree := parseTest(t, src)

	tok, ok := tree.TokenAtOffset(8).Single()
	require.True(t, ok)
	assert.Equal(t, "Foo", tok.Text())

	left, right, ok := tree.TokenAtOffset(10).Between()
	require.True(t, ok)
	assert.Equal(t, "Foo", left.Text())
	assert.True(t, right.IsTrivia())
	assert.Equal(t, "whitespace", right.Kind())

	left, right, ok = tree.TokenAtOffset(11).Between()
	require.True(t, ok)
	assert.True(t, left.IsTrivia())
	assert.Equal(t, "{", right.Kind())

	tok, ok = tree.TokenAtOffset(uint32(len(src))).Single()
	require.True(t, ok)
	assert.Equal(t, "}", tok.Kind())

	assert.True(t, tree.TokenAtOffset(uint32(len(src))+1).IsNone())
}

func TestFindNodeAtOffset_PrefersShortestNode(t *testing.T) {
	src := "fn main() { let abc = 1; }"
	tree := parseTest(t, src)

	off := offsetOf(t, src, "abc", 0) + 3
	n, ok := tree.FindNodeAtOffset(off, IsName)
	require.True(t, ok)
	assert.Equal(t, "abc", n.Text())

	n, ok = tree.FindNodeAtOffset(off, IsLetStmt)
	require.True(t, ok)
	assert.Equal(t, "let abc = 1;", n.Text())

	_, ok = tree.FindNodeAtOffset(off, IsStructDef)
	assert.False(t, ok)
}

func TestIsNameAndIsNameRef(t *testing.T) {
	src := `
use crate::foo::Bar as Baz;
struct S<T> { field: T }
enum E { V(u32) }
fn f(p: S<u32>, mut q: u32) -> u32 {
    let (a, b) = (1, 2);
    let s = S { field: p.field };
    match q { n if n > 0 => n, _ => a + b }
}
`
	tree := parseTest(t, src)

	tests := []struct {
		needle string
		nth    int
		name   bool
		ref    bool
	}{
		{needle: "S<T>", name: true},
		{needle: "T>", name: true},
		{needle: "field: T", name: true},
		{needle: "V(", name: true},
		{needle: "p:", name: true},
		{needle: "q:", name: true},
		{needle: "a,", name: true},
		{needle: "b)", name: true},
		{needle: "n if", name: true},
		{needle: "Bar", ref: true},
		{needle: "Baz"},
		{needle: "foo", ref: true},
		{needle: "T }", ref: true},
		{needle: "S {", ref: true},
		{needle: "field: p", ref: true},
		{needle: "p.field", ref: true},
		{needle: "field }", ref: true},
		{needle: "n > 0", ref: true},
		{needle: "a + b", ref: true},
	}
	for _, tt := range tests {
		t.Run(tt.needle, func(t *testing.T) {
			off := offsetOf(t, src, tt.needle, tt.nth)
			tok, ok := tree.TokenAtOffset(off + 1).Single()
			if !ok {
				_, tok, ok = tree.TokenAtOffset(off).Between()
			}
			require.True(t, ok)
			n := tok.Node
			assert.Equal(t, tt.name, IsName(n), "IsName(%s)", n)
			assert.Equal(t, tt.ref, IsNameRef(n), "IsNameRef(%s)", n)
		})
	}
}

func TestParseExpansion_MapsBackToCall(t *testing.T) {
	src := "fn main() { let x = 1; println!(\"{}\", x); }"
	tree := parseTest(t, src)

	off := offsetOf(t, src, "x)", 0)
	call, ok := tree.FindNodeAtOffset(off, IsMacroCall)
	require.True(t, ok)

	exp, err := ParseExpansion(context.Background(), call)
	require.NoError(t, err)
	require.NotNil(t, exp)
	assert.True(t, exp.IsExpansion())
	assert.Equal(t, call, exp.Call())
	assert.Equal(t, tree.File(), exp.File())

	local, ok := exp.LocalOffset(off)
	require.True(t, ok)
	ref, ok := exp.FindNodeAtOffset(local, IsNameRef)
	require.True(t, ok)
	assert.Equal(t, "x", ref.Text())
	assert.Equal(t, NewRange(off, off+1), ref.FileRange())

	assert.Equal(t, call, ref.OuterParent())
	var kinds []string
	for n := range ref.OuterAncestors() {
		kinds = append(kinds, n.Kind())
	}
	require.GreaterOrEqual(t, len(kinds), 3)
	assert.Equal(t, []string{"identifier", "macro_invocation"}, kinds[:2])
	assert.Contains(t, kinds, "function_item")
	assert.Equal(t, "source_file", kinds[len(kinds)-1])

	_, ok = exp.LocalOffset(0)
	assert.False(t, ok)
}

func TestParseExpansion_NoArguments(t *testing.T) {
	tree := parseTest(t, "fn main() { let x = 1; }")
	exp, err := ParseExpansion(context.Background(), tree.Root())
	require.NoError(t, err)
	assert.Nil(t, exp)
}

func TestLineIndex(t *testing.T) {
	li := NewLineIndex([]byte("ab\ncde\n\nf"))

	line, col := li.LineCol(0)
	assert.Equal(t, [2]int{0, 0}, [2]int{line, col})
	line, col = li.LineCol(4)
	assert.Equal(t, [2]int{1, 1}, [2]int{line, col})
	line, col = li.LineCol(8)
	assert.Equal(t, [2]int{3, 0}, [2]int{line, col})

	off, ok := li.Offset(1, 2)
	require.True(t, ok)
	assert.Equal(t, uint32(5), off)
	off, ok = li.Offset(1, 3)
	require.True(t, ok)
	assert.Equal(t, uint32(6), off)

	_, ok = li.Offset(1, 4)
	assert.False(t, ok)
	_, ok = li.Offset(4, 0)
	assert.False(t, ok)
}

func TestTextRange(t *testing.T) {
	r := NewRange(3, 7)
	assert.Equal(t, uint32(4), r.Len())
	assert.True(t, r.Contains(3))
	assert.False(t, r.Contains(7))
	assert.True(t, r.ContainsInclusive(7))
	assert.True(t, r.ContainsRange(NewRange(4, 7)))
	assert.False(t, r.ContainsRange(NewRange(2, 5)))
	assert.Equal(t, "3..7", r.String())
	assert.Panics(t, func() { NewRange(5, 4) })
}
