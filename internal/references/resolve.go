package references

import (
	"github.com/jward/refscope/internal/defs"
	"github.com/jward/refscope/internal/search"
	"github.com/jward/refscope/internal/semdb"
	"github.com/jward/refscope/internal/syntax"
)

// findName resolves the name at pos. The struct literal form takes
// precedence and narrows the search to construction sites. Otherwise the
// innermost binder, then the innermost usage, is classified; when that
// first candidate does not classify there is no result.
func findName(db *semdb.Snapshot, pos semdb.FilePosition) (RangeInfo[defs.Definition], search.ReferenceKind, bool) {
	if name, ok := structLiteralName(db, pos); ok {
		d, ok := defs.ClassifyName(db, name)
		if !ok {
			return RangeInfo[defs.Definition]{}, 0, false
		}
		return RangeInfo[defs.Definition]{Range: name.FileRange(), Info: d}, search.KindStructLiteral, true
	}

	d, rng, ok := classifyAt(db, pos)
	if !ok {
		return RangeInfo[defs.Definition]{}, 0, false
	}
	return RangeInfo[defs.Definition]{Range: rng, Info: d}, search.KindOther, true
}

// classifyAt classifies the binder or usage at pos without struct literal
// handling.
func classifyAt(db *semdb.Snapshot, pos semdb.FilePosition) (defs.Definition, syntax.TextRange, bool) {
	if name, ok := db.FindNodeAtOffsetWithDescend(pos.File, pos.Offset, syntax.IsName); ok {
		d, ok := defs.ClassifyName(db, name)
		return d, name.FileRange(), ok
	}
	if ref, ok := db.FindNodeAtOffsetWithDescend(pos.File, pos.Offset, syntax.IsNameRef); ok {
		d, ok := defs.ClassifyNameRef(db, ref)
		return d, ref.FileRange(), ok
	}
	return nil, syntax.TextRange{}, false
}
