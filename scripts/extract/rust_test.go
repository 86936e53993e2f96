package extract_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/refscope/internal/runtime"
	"github.com/jward/refscope/internal/store"
	"github.com/jward/refscope/scripts"
)

// rustTestEnv wraps the test environment for Rust extraction tests.
type rustTestEnv struct {
	store *store.Store
	rt    *runtime.Runtime
	t     *testing.T
}

func newRustTestEnv(t *testing.T) *rustTestEnv {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := store.NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })

	rt := runtime.NewRuntime(s, "", runtime.WithRuntimeFS(scripts.FS))
	return &rustTestEnv{store: s, rt: rt, t: t}
}

// extract inserts a file record and runs the extraction script over src.
func (e *rustTestEnv) extract(src string) []*store.Occurrence {
	e.t.Helper()

	f := &store.File{Path: "/src/lib.rs", Language: "rust", Content: []byte(src)}
	_, err := e.store.InsertFile(f)
	require.NoError(e.t, err)

	require.NoError(e.t, e.rt.ExtractFile(context.Background(), f.ID, f.Path, "rust", f.Content))

	occs, err := e.store.OccurrencesByFile(f.ID)
	require.NoError(e.t, err)
	return occs
}

func names(occs []*store.Occurrence) []string {
	out := make([]string, len(occs))
	for i, o := range occs {
		out[i] = o.Name
	}
	return out
}

// ---------- Tests ----------

func TestRustExtract_FunctionAndCall(t *testing.T) {
	env := newRustTestEnv(t)
	src := `fn foo() {}
fn main() { foo(); }`
	occs := env.extract(src)

	assert.Equal(t, []string{"foo", "main", "foo"}, names(occs))
	for _, o := range occs {
		assert.Equal(t, o.Name, src[o.StartByte:o.EndByte])
		assert.Equal(t, "identifier", o.Kind)
	}
}

func TestRustExtract_TypesAndFields(t *testing.T) {
	env := newRustTestEnv(t)
	occs := env.extract(`struct Point { x: i32 }
fn f(p: Point) -> i32 { let Point { x } = p; x + p.x }`)

	kinds := map[string][]string{}
	for _, o := range occs {
		kinds[o.Name] = append(kinds[o.Name], o.Kind)
	}
	assert.Equal(t, []string{"type_identifier", "type_identifier", "type_identifier"}, kinds["Point"])
	assert.Contains(t, kinds["x"], "field_identifier")
	assert.Contains(t, kinds["x"], "shorthand_field_identifier")
	assert.Contains(t, kinds["x"], "identifier")
}

func TestRustExtract_PathKeywords(t *testing.T) {
	env := newRustTestEnv(t)
	occs := env.extract(`use crate::a::b;
use super::c;
impl S { fn m(&self) { self.n(); } }`)

	got := names(occs)
	assert.Contains(t, got, "crate")
	assert.Contains(t, got, "super")
	assert.Contains(t, got, "self")
}

func TestRustExtract_MacroTokens(t *testing.T) {
	env := newRustTestEnv(t)
	occs := env.extract(`fn main() { let v = 1; println!("{}", v); }`)

	var vs int
	for _, o := range occs {
		if o.Name == "v" {
			vs++
		}
	}
	assert.Equal(t, 2, vs)
}

func TestRustExtract_SkipsCommentsAndStrings(t *testing.T) {
	env := newRustTestEnv(t)
	occs := env.extract(`// foo
fn main() { let s = "foo"; }`)

	assert.NotContains(t, names(occs), "foo")
}

func TestRustExtract_SyntaxErrorStillExtracts(t *testing.T) {
	env := newRustTestEnv(t)
	occs := env.extract(`fn broken( { let y = 2; }`)

	assert.Contains(t, names(occs), "broken")
}
