// Package config loads refscope settings from .refscope/config.yml with
// REFSCOPE_* environment overrides.
package config

import (
	"path/filepath"
	"runtime"
)

// Config represents the complete refscope configuration.
type Config struct {
	Index     IndexConfig     `yaml:"index" mapstructure:"index"`
	Workspace WorkspaceConfig `yaml:"workspace" mapstructure:"workspace"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
}

// IndexConfig controls which files are indexed and where the index lives.
type IndexConfig struct {
	DBPath   string   `yaml:"db_path" mapstructure:"db_path"` // relative to the workspace root unless absolute
	Include  []string `yaml:"include" mapstructure:"include"` // glob patterns relative to the root
	Exclude  []string `yaml:"exclude" mapstructure:"exclude"`
	Parallel bool     `yaml:"parallel" mapstructure:"parallel"`
}

// WorkspaceConfig describes the crate layout.
type WorkspaceConfig struct {
	// CrateRoots lists crate root files. Empty means every lib.rs and
	// main.rs is a root.
	CrateRoots []string `yaml:"crate_roots" mapstructure:"crate_roots"`
}

// SearchConfig tunes usage search.
type SearchConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// CacheConfig sizes the parse cache.
type CacheConfig struct {
	ParseEntries int `yaml:"parse_entries" mapstructure:"parse_entries"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			DBPath:   filepath.Join(".refscope", "index.db"),
			Include:  []string{"**/*.rs"},
			Exclude:  []string{"target/**", "**/.git/**"},
			Parallel: true,
		},
		Workspace: WorkspaceConfig{
			CrateRoots: []string{},
		},
		Search: SearchConfig{
			Workers: runtime.NumCPU(),
		},
		Cache: CacheConfig{
			ParseEntries: 1024,
		},
	}
}

// DBPathIn resolves the database path against root.
func (c *Config) DBPathIn(root string) string {
	if filepath.IsAbs(c.Index.DBPath) {
		return c.Index.DBPath
	}
	return filepath.Join(root, c.Index.DBPath)
}

// CrateRootsIn resolves the crate roots against root.
func (c *Config) CrateRootsIn(root string) []string {
	out := make([]string, 0, len(c.Workspace.CrateRoots))
	for _, p := range c.Workspace.CrateRoots {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		out = append(out, p)
	}
	return out
}
