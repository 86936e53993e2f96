package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureLib = `mod geo;

pub fn origin() -> geo::Point {
    geo::Point { x: 0, y: 0 }
}
`

const fixtureGeo = `pub struct Point {
    pub x: i32,
    pub y: i32,
}

pub fn shift(p: &mut Point) {
    p.x += 1;
}
`

// createRustFixture writes a small crate under a fresh repo root.
func createRustFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	src := filepath.Join(root, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "lib.rs"), []byte(fixtureLib), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "geo.rs"), []byte(fixtureGeo), 0o644))
	return root
}

// execute runs the CLI in dir with fresh flag state and returns stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Chdir(dir)

	flagDB, flagFormat, flagConfig = "", "json", ""
	flagForce, flagScriptsDir = false, ""
	flagScope = nil
	errorHandled = false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return stdout.String(), err
}

func decode(t *testing.T, out string) map[string]any {
	t.Helper()
	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result), "invalid JSON output: %s", out)
	return result
}

func TestCLI_IndexThenRefs(t *testing.T) {
	root := createRustFixture(t)

	_, err := execute(t, root, "index")
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(root, ".refscope", "index.db"))

	out, err := execute(t, root, "refs", "src/geo.rs", "0", "11")
	require.NoError(t, err)
	result := decode(t, out)

	assert.Equal(t, "refs", result["command"])
	assert.Empty(t, result["error"])
	assert.EqualValues(t, 4, result["total_count"])

	results, ok := result["results"].(map[string]any)
	require.True(t, ok)
	decl := results["declaration"].(map[string]any)
	assert.Equal(t, "Point", decl["name"])
	assert.Equal(t, "struct", decl["kind"])

	refs := results["references"].([]any)
	require.Len(t, refs, 3)
	kinds := map[string]int{}
	for _, r := range refs {
		kinds[r.(map[string]any)["kind"].(string)]++
	}
	assert.Equal(t, map[string]int{"Other": 2, "StructLiteral": 1}, kinds)
}

func TestCLI_RefsScoped(t *testing.T) {
	root := createRustFixture(t)
	_, err := execute(t, root, "index")
	require.NoError(t, err)

	out, err := execute(t, root, "refs", "src/geo.rs", "0", "11", "--scope", "geo.rs")
	require.NoError(t, err)

	results := decode(t, out)["results"].(map[string]any)
	assert.Len(t, results["references"].([]any), 1)
}

func TestCLI_Def(t *testing.T) {
	root := createRustFixture(t)
	_, err := execute(t, root, "index")
	require.NoError(t, err)

	out, err := execute(t, root, "def", "src/lib.rs", "3", "9")
	require.NoError(t, err)

	results := decode(t, out)["results"].([]any)
	require.Len(t, results, 1)
	loc := results[0].(map[string]any)
	assert.Equal(t, "geo.rs", filepath.Base(loc["file"].(string)))
	assert.EqualValues(t, 0, loc["start_line"])
	assert.EqualValues(t, 11, loc["start_col"])
}

func TestCLI_DefText(t *testing.T) {
	root := createRustFixture(t)
	_, err := execute(t, root, "index")
	require.NoError(t, err)

	out, err := execute(t, root, "def", "src/lib.rs", "3", "9", "--format", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "geo.rs:0:11\n")
}

func TestCLI_NoResultIsNull(t *testing.T) {
	root := createRustFixture(t)
	_, err := execute(t, root, "index")
	require.NoError(t, err)

	out, err := execute(t, root, "refs", "src/lib.rs", "1", "0")
	require.NoError(t, err)
	result := decode(t, out)
	assert.Nil(t, result["results"])
	assert.NotContains(t, result, "total_count")
}

func TestCLI_RefsWithoutIndex(t *testing.T) {
	root := createRustFixture(t)

	out, err := execute(t, root, "refs", "src/geo.rs", "0", "11")
	require.Error(t, err)
	assert.Contains(t, decode(t, out)["error"], "run 'refscope index' first")
}

func TestCLI_InvalidPositionArgs(t *testing.T) {
	root := createRustFixture(t)

	out, err := execute(t, root, "def", "src/lib.rs", "x", "0")
	require.Error(t, err)
	assert.Contains(t, decode(t, out)["error"], `invalid line "x"`)
}

func TestCLI_InvalidFormat(t *testing.T) {
	root := createRustFixture(t)

	_, err := execute(t, root, "refs", "src/lib.rs", "0", "0", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestCLI_ConfigFile(t *testing.T) {
	root := createRustFixture(t)
	cfgPath := filepath.Join(root, "refscope.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("index:\n  db_path: custom/refs.db\n"), 0o644))

	_, err := execute(t, root, "index", "--config", cfgPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "custom", "refs.db"))
}

func TestCLI_IndexForce(t *testing.T) {
	root := createRustFixture(t)
	_, err := execute(t, root, "index")
	require.NoError(t, err)

	_, err = execute(t, root, "index", "--force")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, ".refscope", "index.db"))
}
