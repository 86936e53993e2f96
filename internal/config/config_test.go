package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration
// - Load() uses defaults when no config file exists
// - Load() reads .refscope/config.yml and merges it with defaults
// - Environment variables override config file values and defaults
// - An explicit config file must exist
// - Malformed YAML and invalid values are errors
// - Validate() reports every invalid field

func writeConfig(t *testing.T, root, name, content string) string {
	t.Helper()
	dir := filepath.Join(root, ".refscope")
	require.NoError(t, os.MkdirAll(dir, 0755))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	cfg := Default()

	assert.Equal(t, filepath.Join(".refscope", "index.db"), cfg.Index.DBPath)
	assert.Equal(t, []string{"**/*.rs"}, cfg.Index.Include)
	assert.Equal(t, []string{"target/**", "**/.git/**"}, cfg.Index.Exclude)
	assert.True(t, cfg.Index.Parallel)
	assert.Empty(t, cfg.Workspace.CrateRoots)
	assert.Equal(t, runtime.NumCPU(), cfg.Search.Workers)
	assert.Equal(t, 1024, cfg.Cache.ParseEntries)

	assert.NoError(t, Validate(cfg))
}

func TestLoad_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	cfg, err := NewLoader(t.TempDir()).Load()
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, def.Index, cfg.Index)
	assert.Empty(t, cfg.Workspace.CrateRoots)
	assert.Equal(t, def.Search, cfg.Search)
	assert.Equal(t, def.Cache, cfg.Cache)
}

func TestLoad_ReadsConfigYml(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.yml", `
index:
  db_path: /var/cache/refs.db
  include:
    - "src/**"
  parallel: false
workspace:
  crate_roots:
    - src/lib.rs
search:
  workers: 3
`)

	cfg, err := NewLoader(root).Load()
	require.NoError(t, err)

	assert.Equal(t, "/var/cache/refs.db", cfg.Index.DBPath)
	assert.Equal(t, []string{"src/**"}, cfg.Index.Include)
	assert.False(t, cfg.Index.Parallel)
	assert.Equal(t, []string{"src/lib.rs"}, cfg.Workspace.CrateRoots)
	assert.Equal(t, 3, cfg.Search.Workers)

	// Unset keys keep their defaults.
	assert.Equal(t, []string{"target/**", "**/.git/**"}, cfg.Index.Exclude)
	assert.Equal(t, 1024, cfg.Cache.ParseEntries)
}

func TestLoad_ReadsConfigYaml(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.yaml", "cache:\n  parse_entries: 64\n")

	cfg, err := NewLoader(root).Load()
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Cache.ParseEntries)
}

func TestLoad_EnvironmentOverridesConfigFile(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.yml", "search:\n  workers: 3\n")

	t.Setenv("REFSCOPE_SEARCH_WORKERS", "7")
	t.Setenv("REFSCOPE_INDEX_DB_PATH", "env.db")
	t.Setenv("REFSCOPE_INDEX_PARALLEL", "false")

	cfg, err := NewLoader(root).Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.Workers)
	assert.Equal(t, "env.db", cfg.Index.DBPath)
	assert.False(t, cfg.Index.Parallel)
}

func TestNewFileLoader(t *testing.T) {
	root := t.TempDir()
	path := writeConfig(t, root, "custom.yml", "search:\n  workers: 2\n")

	cfg, err := NewFileLoader(root, path).Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Search.Workers)

	_, err = NewFileLoader(root, filepath.Join(root, "missing.yml")).Load()
	require.Error(t, err)
}

func TestLoad_MalformedYaml(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.yml", "index: [unterminated\n")

	_, err := NewLoader(root).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, "config.yml", "search:\n  workers: 0\n")

	_, err := NewLoader(root).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidWorkers)
}

func TestValidate_ReportsEveryField(t *testing.T) {
	cfg := Default()
	cfg.Index.DBPath = " "
	cfg.Index.Exclude = []string{"[oops"}
	cfg.Search.Workers = -1
	cfg.Cache.ParseEntries = 0

	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyDBPath)
	assert.ErrorIs(t, err, ErrInvalidGlob)
	assert.ErrorIs(t, err, ErrInvalidWorkers)
	assert.ErrorIs(t, err, ErrInvalidCacheSize)
	assert.Contains(t, err.Error(), "validation failed:")
}

func TestValidate_SingleError(t *testing.T) {
	cfg := Default()
	cfg.Cache.ParseEntries = -5

	err := Validate(cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCacheSize)
	assert.NotContains(t, err.Error(), "validation failed")
}

func TestConfig_ResolvesPaths(t *testing.T) {
	cfg := Default()
	cfg.Workspace.CrateRoots = []string{"src/lib.rs", "/abs/main.rs"}

	assert.Equal(t, filepath.Join("/work", ".refscope", "index.db"), cfg.DBPathIn("/work"))
	assert.Equal(t, []string{filepath.Join("/work", "src/lib.rs"), "/abs/main.rs"}, cfg.CrateRootsIn("/work"))

	cfg.Index.DBPath = "/tmp/x.db"
	assert.Equal(t, "/tmp/x.db", cfg.DBPathIn("/work"))
}
