// Package nav turns definitions into navigation targets: a file, the range
// of the whole declaration and the range of its name.
package nav

import (
	"fmt"

	"github.com/jward/refscope/internal/defs"
	"github.com/jward/refscope/internal/semdb"
	"github.com/jward/refscope/internal/syntax"
)

// Target is a place to navigate to.
type Target struct {
	File       syntax.FileID
	FullRange  syntax.TextRange
	FocusRange syntax.TextRange
	HasFocus   bool
	Name       string
	Kind       string
}

// Range is the focus range when there is one, else the full range.
func (t Target) Range() syntax.TextRange {
	if t.HasFocus {
		return t.FocusRange
	}
	return t.FullRange
}

func (t Target) String() string {
	if t.HasFocus {
		return fmt.Sprintf("%s %s %d:%s (%s)", t.Kind, t.Name, t.File, t.FullRange, t.FocusRange)
	}
	return fmt.Sprintf("%s %s %d:%s", t.Kind, t.Name, t.File, t.FullRange)
}

// FromDefinition builds the target of a definition. It fails for modules
// that are not part of the snapshot.
func FromDefinition(db *semdb.Snapshot, d defs.Definition) (Target, bool) {
	return defs.Visit[targetResult](d, builder{db: db}).unpack()
}

type targetResult struct {
	t  Target
	ok bool
}

func (r targetResult) unpack() (Target, bool) { return r.t, r.ok }

type builder struct {
	db *semdb.Snapshot
}

// declared targets the declaring node with the name as focus.
func declared(s defs.Symbol, kind string) targetResult {
	decl := s.Decl()
	if decl.IsZero() || decl == s.Binder() {
		return targetResult{t: Target{File: s.File, FullRange: s.Range, Name: s.Ident, Kind: kind}, ok: true}
	}
	return targetResult{
		t: Target{
			File:       s.File,
			FullRange:  decl.FileRange(),
			FocusRange: s.Range,
			HasFocus:   true,
			Name:       s.Ident,
			Kind:       kind,
		},
		ok: true,
	}
}

func (b builder) Local(d defs.Local) targetResult {
	return targetResult{t: Target{File: d.File, FullRange: d.Range, Name: d.Ident, Kind: d.Kind()}, ok: true}
}

func (b builder) Field(d defs.Field) targetResult             { return declared(d.Symbol, d.Kind()) }
func (b builder) Function(d defs.Function) targetResult       { return declared(d.Symbol, d.Kind()) }
func (b builder) Struct(d defs.Struct) targetResult           { return declared(d.Symbol, d.Kind()) }
func (b builder) Enum(d defs.Enum) targetResult               { return declared(d.Symbol, d.Kind()) }
func (b builder) Union(d defs.Union) targetResult             { return declared(d.Symbol, d.Kind()) }
func (b builder) Trait(d defs.Trait) targetResult             { return declared(d.Symbol, d.Kind()) }
func (b builder) TypeAlias(d defs.TypeAlias) targetResult     { return declared(d.Symbol, d.Kind()) }
func (b builder) EnumVariant(d defs.EnumVariant) targetResult { return declared(d.Symbol, d.Kind()) }
func (b builder) Macro(d defs.Macro) targetResult             { return declared(d.Symbol, d.Kind()) }
func (b builder) Const(d defs.Const) targetResult             { return declared(d.Symbol, d.Kind()) }
func (b builder) Static(d defs.Static) targetResult           { return declared(d.Symbol, d.Kind()) }
func (b builder) TypeParam(d defs.TypeParam) targetResult     { return declared(d.Symbol, d.Kind()) }

// Module targets a file module's whole file, or an inline module's item
// with its name as focus.
func (b builder) Module(d defs.Module) targetResult {
	m, ok := b.db.Module(d.ID)
	if !ok {
		return targetResult{}
	}
	if d.ID.IsFile() {
		f, ok := b.db.File(d.ID.File)
		if !ok {
			return targetResult{}
		}
		return targetResult{
			t: Target{
				File:      d.ID.File,
				FullRange: syntax.TextRange{End: uint32(len(f.Text))},
				Name:      d.Ident,
				Kind:      d.Kind(),
			},
			ok: true,
		}
	}
	name := syntax.Name(m.Decl)
	return targetResult{
		t: Target{
			File:       d.ID.File,
			FullRange:  m.Decl.FileRange(),
			FocusRange: name.FileRange(),
			HasFocus:   true,
			Name:       d.Ident,
			Kind:       d.Kind(),
		},
		ok: true,
	}
}
