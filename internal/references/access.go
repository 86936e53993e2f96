package references

import (
	"github.com/jward/refscope/internal/defs"
	"github.com/jward/refscope/internal/search"
	"github.com/jward/refscope/internal/syntax"
)

// declAccess reports Write for a local or field declared by `let mut x =
// value`, and no access otherwise. rng is the declaration's range in t.
func declAccess(d defs.Definition, t *syntax.Tree, rng syntax.TextRange) search.ReferenceAccess {
	if !defs.HasAccess(d) || t == nil {
		return search.AccessNone
	}
	stmt, ok := t.FindNodeAtOffset(rng.Start, syntax.IsLetStmt)
	if !ok {
		return search.AccessNone
	}
	if stmt.ChildByField("value").IsZero() || stmt.ChildByField("pattern").Kind() != "identifier" {
		return search.AccessNone
	}
	if stmt.ChildOfKind("mutable_specifier").IsZero() {
		return search.AccessNone
	}
	return search.AccessWrite
}
