package references

import (
	"iter"

	"github.com/jward/refscope/internal/semdb"
	"github.com/jward/refscope/internal/syntax"
)

// structLiteralName detects a cursor between a struct's name (or generic
// parameter list) and the opening delimiter of its body, as in
// `struct Foo<|> {` or `struct Foo<T><|>(T)`, and returns the struct's name.
func structLiteralName(db *semdb.Snapshot, pos semdb.FilePosition) (syntax.Node, bool) {
	t := db.Tree(pos.File)
	if t == nil {
		return syntax.Node{}, false
	}
	left, right, ok := t.TokenAtOffset(pos.Offset).Between()
	if !ok || (right.Kind() != "{" && right.Kind() != "(") {
		return syntax.Node{}, false
	}

	if name, ok := db.FindNodeAtOffsetWithDescend(pos.File, left.Range.Start, syntax.IsName); ok {
		return structName(name.Ancestors())
	}
	if _, ok := db.FindNodeAtOffsetWithDescend(pos.File, left.Range.Start, syntax.IsTypeParamList); ok {
		return structName(left.Ancestors())
	}
	return syntax.Node{}, false
}

func structName(ancestors iter.Seq[syntax.Node]) (syntax.Node, bool) {
	for n := range ancestors {
		if syntax.IsStructDef(n) {
			name := syntax.Name(n)
			return name, !name.IsZero()
		}
	}
	return syntax.Node{}, false
}
