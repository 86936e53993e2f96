package refscope

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func storedPath(t *testing.T, path string) string {
	t.Helper()
	p, err := normalizePath(path)
	require.NoError(t, err)
	return p
}

func TestNew_CreatesStoreAndRuntime(t *testing.T) {
	e := newTestEngine(t)
	require.NotNil(t, e.store)
	require.NotNil(t, e.runtime)
	require.NotNil(t, e.Store())
	assert.NotNil(t, e.scriptsFS, "embedded scripts are the default")
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
}

func TestNew_InvalidGlob(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "test.db"), WithExcludeGlobs("[oops"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exclude")
}

func TestIndexFiles_SkipsUnsupportedExtensions(t *testing.T) {
	e := newTestEngine(t)
	tmp := writeFile(t, filepath.Join(t.TempDir(), "readme.txt"), "hello")

	require.NoError(t, e.IndexFiles(context.Background(), []string{tmp}))

	f, err := e.Store().FileByPath(storedPath(t, tmp))
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestIndexFiles_ExtractsOccurrences(t *testing.T) {
	for _, parallel := range []bool{true, false} {
		t.Run(map[bool]string{true: "parallel", false: "serial"}[parallel], func(t *testing.T) {
			e := newTestEngine(t, WithParallel(parallel))
			tmp := writeFile(t, filepath.Join(t.TempDir(), "lib.rs"), "fn foo() { foo(); }\n")

			require.NoError(t, e.IndexFiles(context.Background(), []string{tmp}))

			f, err := e.Store().FileByPath(storedPath(t, tmp))
			require.NoError(t, err)
			require.NotNil(t, f)
			assert.Equal(t, "rust", f.Language)
			assert.Equal(t, "fn foo() { foo(); }\n", string(f.Content))

			occs, err := e.Store().OccurrencesByName("foo", []int64{f.ID})
			require.NoError(t, err)
			require.Len(t, occs, 2)
			assert.Equal(t, 3, occs[0].StartByte)
			assert.Equal(t, 11, occs[1].StartByte)
		})
	}
}

func TestIndexFiles_SkipsUnchangedFiles(t *testing.T) {
	e := newTestEngine(t)
	tmp := writeFile(t, filepath.Join(t.TempDir(), "lib.rs"), "fn a() {}\n")
	ctx := context.Background()

	require.NoError(t, e.IndexFiles(ctx, []string{tmp}))
	first, err := e.Store().FileByPath(storedPath(t, tmp))
	require.NoError(t, err)

	require.NoError(t, e.IndexFiles(ctx, []string{tmp}))
	second, err := e.Store().FileByPath(storedPath(t, tmp))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestIndexFiles_ReindexesChangedFiles(t *testing.T) {
	e := newTestEngine(t)
	tmp := writeFile(t, filepath.Join(t.TempDir(), "lib.rs"), "fn a() {}\n")
	ctx := context.Background()

	require.NoError(t, e.IndexFiles(ctx, []string{tmp}))
	writeFile(t, tmp, "fn b() {}\n")
	require.NoError(t, e.IndexFiles(ctx, []string{tmp}))

	f, err := e.Store().FileByPath(storedPath(t, tmp))
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "fn b() {}\n", string(f.Content))

	occs, err := e.Store().OccurrencesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, occs, 1)
	assert.Equal(t, "b", occs[0].Name)
}

func TestIndexFiles_MissingScript(t *testing.T) {
	e := newTestEngine(t, WithScriptsFS(fstest.MapFS{}))
	tmp := writeFile(t, filepath.Join(t.TempDir(), "lib.rs"), "fn a() {}\n")

	err := e.IndexFiles(context.Background(), []string{tmp})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction script")
	assert.Contains(t, err.Error(), "1 error(s)")

	// The failed file is dropped so the next run retries it.
	f, err := e.Store().FileByPath(storedPath(t, tmp))
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestIndexFiles_ScriptsFromDisk(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "extract", "rust.risor"), `
insert_occurrence({"file_id": file_id, "name": "marker", "start_byte": 0, "end_byte": 0})
`)
	e := newTestEngine(t, WithScriptsDir(dir), WithParallel(false))
	tmp := writeFile(t, filepath.Join(t.TempDir(), "lib.rs"), "fn a() {}\n")

	require.NoError(t, e.IndexFiles(context.Background(), []string{tmp}))

	occs, err := e.Store().OccurrencesByName("marker", nil)
	require.NoError(t, err)
	assert.Len(t, occs, 1)
}

func TestScriptsChanged(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	scriptsV1 := fstest.MapFS{"extract/rust.risor": &fstest.MapFile{Data: []byte(`x := 1`)}}
	scriptsV2 := fstest.MapFS{"extract/rust.risor": &fstest.MapFile{Data: []byte(`x := 2`)}}

	e, err := New(dbPath, WithScriptsFS(scriptsV1))
	require.NoError(t, err)
	assert.True(t, e.ScriptsChanged(), "first run")
	require.NoError(t, e.IndexFiles(context.Background(), nil))
	assert.False(t, e.ScriptsChanged())
	require.NoError(t, e.Close())

	e, err = New(dbPath, WithScriptsFS(scriptsV2))
	require.NoError(t, err)
	defer e.Close()
	assert.True(t, e.ScriptsChanged())
}

func TestIndexDirectory_DiscoversRustFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "lib.rs"), "mod util;\n")
	writeFile(t, filepath.Join(root, "src", "util.rs"), "pub fn f() {}\n")
	writeFile(t, filepath.Join(root, "README.md"), "docs")

	e := newTestEngine(t)
	require.NoError(t, e.IndexDirectory(context.Background(), root))

	files, err := e.Store().Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, storedPath(t, filepath.Join(root, "src", "lib.rs")), files[0].Path)
	assert.Equal(t, storedPath(t, filepath.Join(root, "src", "util.rs")), files[1].Path)
}

func TestIndexDirectory_SkipsHiddenAndBuildDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".cargo", "hidden.rs"), "fn h() {}\n")
	writeFile(t, filepath.Join(root, "target", "debug", "build.rs"), "fn b() {}\n")
	writeFile(t, filepath.Join(root, "main.rs"), "fn main() {}\n")

	e := newTestEngine(t)
	require.NoError(t, e.IndexDirectory(context.Background(), root))

	files, err := e.Store().Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, storedPath(t, filepath.Join(root, "main.rs")), files[0].Path)
}

func TestIndexDirectory_IncludeExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "lib.rs"), "fn a() {}\n")
	writeFile(t, filepath.Join(root, "src", "gen", "out.rs"), "fn b() {}\n")
	writeFile(t, filepath.Join(root, "examples", "demo.rs"), "fn c() {}\n")

	e := newTestEngine(t, WithIncludeGlobs("src/**"), WithExcludeGlobs("gen/**"))
	require.NoError(t, e.IndexDirectory(context.Background(), root))

	files, err := e.Store().Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, storedPath(t, filepath.Join(root, "src", "lib.rs")), files[0].Path)
}

func TestIndexDirectory_DefaultGlobsReachNestedModules(t *testing.T) {
	root := t.TempDir()
	lib := writeFile(t, filepath.Join(root, "src", "lib.rs"), "mod net;\n")
	mod := writeFile(t, filepath.Join(root, "src", "net", "mod.rs"), "pub mod conn;\n")
	conn := writeFile(t, filepath.Join(root, "src", "net", "conn.rs"), "pub fn dial() {}\n")
	writeFile(t, filepath.Join(root, "target", "debug", "build.rs"), "fn b() {}\n")

	e := newTestEngine(t, WithIncludeGlobs("**/*.rs"), WithExcludeGlobs("target/**", "**/.git/**"))
	require.NoError(t, e.IndexDirectory(context.Background(), root))

	files, err := e.Store().Files()
	require.NoError(t, err)
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.ElementsMatch(t, []string{storedPath(t, lib), storedPath(t, mod), storedPath(t, conn)}, paths)
}

func TestIndexDirectory_PrunesRemovedFiles(t *testing.T) {
	root := t.TempDir()
	keep := writeFile(t, filepath.Join(root, "lib.rs"), "fn a() {}\n")
	gone := writeFile(t, filepath.Join(root, "old.rs"), "fn b() {}\n")
	ctx := context.Background()

	e := newTestEngine(t)
	require.NoError(t, e.IndexDirectory(ctx, root))
	require.NoError(t, os.Remove(gone))
	require.NoError(t, e.IndexDirectory(ctx, root))

	files, err := e.Store().Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, storedPath(t, keep), files[0].Path)
}

func TestSnapshot_ReusedWhenUnchanged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lib.rs"), "fn a() {}\n")
	ctx := context.Background()

	e := newTestEngine(t)
	require.NoError(t, e.IndexDirectory(ctx, root))

	s1, err := e.Snapshot(ctx)
	require.NoError(t, err)
	s2, err := e.Snapshot(ctx)
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Len(t, s1.Files(), 1)
}

func TestSnapshot_PicksUpEditsAndDeletes(t *testing.T) {
	root := t.TempDir()
	lib := writeFile(t, filepath.Join(root, "lib.rs"), "fn a() {}\n")
	other := writeFile(t, filepath.Join(root, "other.rs"), "fn b() {}\n")
	ctx := context.Background()

	e := newTestEngine(t)
	require.NoError(t, e.IndexDirectory(ctx, root))
	s1, err := e.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, s1.Files(), 2)

	writeFile(t, lib, "fn edited() {}\n")
	require.NoError(t, os.Remove(other))

	s2, err := e.Snapshot(ctx)
	require.NoError(t, err)
	assert.NotSame(t, s1, s2)
	require.Len(t, s2.Files(), 1)
	assert.Equal(t, "fn edited() {}\n", string(s2.Files()[0].Text))

	f, err := e.Store().FileByPath(storedPath(t, lib))
	require.NoError(t, err)
	require.NotNil(t, f)
	occs, err := e.Store().OccurrencesByName("edited", []int64{f.ID})
	require.NoError(t, err)
	assert.Len(t, occs, 1)
}
