package defs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/refscope/internal/fixture"
	"github.com/jward/refscope/internal/semdb"
	"github.com/jward/refscope/internal/syntax"
)

const kinds = `
//- /lib.rs
mod inner;
struct S { f: u32 }
enum E { V }
union U { a: u32 }
trait Tr {}
type Alias = S;
macro_rules! mac { () => {} }
const C: u32 = 0;
static ST: u32 = 0;
fn func<T>(p: T) {
	let l = p;
	mac!();
	let _ = (S { f: C }, E::V, ST, inner::x(), l);
}
//- /inner.rs
pub fn x() {}
`

func newTestSnapshot(t *testing.T, text string) (*semdb.Snapshot, fixture.Fixture) {
	t.Helper()
	fx := fixture.Parse(text)
	files := make([]semdb.File, 0, len(fx.Files))
	for i, f := range fx.Files {
		files = append(files, semdb.File{ID: syntax.FileID(i + 1), Path: f.Path, Text: []byte(f.Text)})
	}
	db, err := semdb.NewSnapshot(context.Background(), files)
	require.NoError(t, err)
	return db, fx
}

func nodeAt(t *testing.T, db *semdb.Snapshot, fx fixture.Fixture, outer, needle string, match func(syntax.Node) bool) syntax.Node {
	t.Helper()
	r := fx.Sub("/lib.rs", outer, 0, needle)
	n, ok := db.FindNodeAtOffsetWithDescend(1, r.Start, match)
	require.True(t, ok, "nothing at %q", outer)
	require.Equal(t, r, n.FileRange(), outer)
	return n
}

func TestClassifyName_Kinds(t *testing.T) {
	db, fx := newTestSnapshot(t, kinds)

	tests := []struct {
		outer, needle string
		want          string
	}{
		{" l = p", "l", "local"},
		{"p: T", "p", "local"},
		{"f: u32", "f", "field"},
		{"fn func", "func", "function"},
		{"struct S", "S", "struct"},
		{"enum E", "E", "enum"},
		{"union U", "U", "union"},
		{"trait Tr", "Tr", "trait"},
		{"type Alias", "Alias", "type_alias"},
		{"{ V }", "V", "variant"},
		{"mod inner", "inner", "module"},
		{"rules! mac", "mac", "macro"},
		{"const C", "C", "const"},
		{"static ST", "ST", "static"},
		{"func<T>", "T", "type_param"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			d, ok := ClassifyName(db, nodeAt(t, db, fx, tt.outer, tt.needle, syntax.IsName))
			require.True(t, ok)
			assert.Equal(t, tt.want, d.Kind())
			assert.Equal(t, tt.needle, d.Name())
		})
	}
}

func TestClassifyNameRef_MatchesBinder(t *testing.T) {
	db, fx := newTestSnapshot(t, kinds)

	tests := []struct {
		binder, ref string
		needle      string
	}{
		{" l = p", ", l)", "l"},
		{"p: T", "= p", "p"},
		{"f: u32", "{ f: C", "f"},
		{"struct S", "(S {", "S"},
		{"enum E", "E::V", "E"},
		{"{ V }", "E::V", "V"},
		{"const C", "f: C", "C"},
		{"static ST", "ST, inner", "ST"},
		{"rules! mac", "mac!()", "mac"},
		{"func<T>", "p: T", "T"},
		{"mod inner", "inner::x", "inner"},
	}
	for _, tt := range tests {
		t.Run(tt.needle, func(t *testing.T) {
			want, ok := ClassifyName(db, nodeAt(t, db, fx, tt.binder, tt.needle, syntax.IsName))
			require.True(t, ok)
			got, ok := ClassifyNameRef(db, nodeAt(t, db, fx, tt.ref, tt.needle, syntax.IsNameRef))
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestClassifyNameRef_Unresolved(t *testing.T) {
	db, fx := newTestSnapshot(t, "fn main() { nowhere(); }")
	r := fx.Range("/main.rs", "nowhere", 0)
	n, ok := db.FindNodeAtOffsetWithDescend(1, r.Start, syntax.IsNameRef)
	require.True(t, ok)
	_, ok = ClassifyNameRef(db, n)
	assert.False(t, ok)
}

func TestHasAccess(t *testing.T) {
	assert.True(t, HasAccess(Local{}))
	assert.True(t, HasAccess(Field{}))
	assert.False(t, HasAccess(Function{}))
	assert.False(t, HasAccess(Module{}))
	assert.False(t, HasAccess(TypeParam{}))
}

type unknown struct{ Symbol }

func (unknown) Kind() string { return "unknown" }

func TestVisit_UnknownPanics(t *testing.T) {
	assert.Panics(t, func() { HasAccess(unknown{}) })
}

func TestSymbolOf(t *testing.T) {
	s := Symbol{File: 3, Ident: "x"}
	got, ok := SymbolOf(Struct{s})
	require.True(t, ok)
	assert.Equal(t, s, got)

	_, ok = SymbolOf(Module{Ident: "m"})
	assert.False(t, ok)
}
