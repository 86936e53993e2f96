package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults, then config file, then environment (env wins).
	Load() (*Config, error)
}

type loader struct {
	rootDir    string
	configFile string
}

// NewLoader creates a loader that reads <rootDir>/.refscope/config.yml.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// NewFileLoader creates a loader for an explicit config file. A missing
// file is an error.
func NewFileLoader(rootDir, configFile string) Loader {
	return &loader{rootDir: rootDir, configFile: configFile}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (REFSCOPE_*)
// 2. Config file (.refscope/config.yml or .refscope/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(l.rootDir, ".refscope"))
	}

	v.SetEnvPrefix("REFSCOPE")
	v.AutomaticEnv()
	// REFSCOPE_INDEX_DB_PATH -> index.db_path
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for _, key := range []string{
		"index.db_path",
		"index.include",
		"index.exclude",
		"index.parallel",
		"workspace.crate_roots",
		"search.workers",
		"cache.parse_entries",
	} {
		_ = v.BindEnv(key)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// No config file is fine when none was asked for.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || l.configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("index.db_path", defaults.Index.DBPath)
	v.SetDefault("index.include", defaults.Index.Include)
	v.SetDefault("index.exclude", defaults.Index.Exclude)
	v.SetDefault("index.parallel", defaults.Index.Parallel)

	v.SetDefault("workspace.crate_roots", defaults.Workspace.CrateRoots)

	v.SetDefault("search.workers", defaults.Search.Workers)
	v.SetDefault("cache.parse_entries", defaults.Cache.ParseEntries)
}

// LoadConfig loads configuration rooted at the working directory.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
