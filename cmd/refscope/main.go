package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/refscope"
	"github.com/jward/refscope/internal/config"
)

var (
	flagDB     string
	flagFormat string
	flagConfig string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "refscope",
	Short:         "Find references and definitions in Rust code",
	Long:          "Refscope indexes Rust sources into a SQLite occurrence index and answers find-references and goto-definition queries.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(flagFormat)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .refscope/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .refscope/config.yml in the repo root)")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(refsCmd)
	rootCmd.AddCommand(defCmd)
	rootCmd.AddCommand(mcpCmd)
}

var (
	flagForce      bool
	flagScriptsDir string
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Index a Rust workspace",
	Long:  "Parses Rust files with tree-sitter, runs the extraction script and writes name occurrences to the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&flagForce, "force", false, "delete database and reindex from scratch")
	indexCmd.Flags().StringVar(&flagScriptsDir, "scripts-dir", "", "load scripts from disk path instead of embedded")
}

func runIndex(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return err
	}
	repoRoot := findRepoRoot(targetDir)

	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return err
	}
	dbPath := resolveDBPath(repoRoot, cfg)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err)
	}
	if flagForce {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing database for --force: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Cleared database: %s\n", dbPath)
	}

	engine, err := openEngine(repoRoot, dbPath, cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	if err := engine.IndexDirectory(commandContext(cmd), targetDir); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	files, err := engine.Store().Files()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Indexed %s in %s (%d files)\n",
		targetDir, time.Since(start).Round(time.Millisecond), len(files))
	fmt.Fprintf(cmd.ErrOrStderr(), "Database: %s\n", dbPath)
	return nil
}

// loadConfig reads --config if given, else .refscope/config.yml under root.
func loadConfig(root string) (*config.Config, error) {
	loader := config.NewLoader(root)
	if flagConfig != "" {
		loader = config.NewFileLoader(root, flagConfig)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// openEngine creates an engine configured from cfg.
func openEngine(root, dbPath string, cfg *config.Config) (*refscope.Engine, error) {
	opts := []refscope.Option{
		refscope.WithParallel(cfg.Index.Parallel),
		refscope.WithIncludeGlobs(cfg.Index.Include...),
		refscope.WithExcludeGlobs(cfg.Index.Exclude...),
		refscope.WithCrateRoots(cfg.CrateRootsIn(root)...),
		refscope.WithWorkers(cfg.Search.Workers),
		refscope.WithParseCacheEntries(cfg.Cache.ParseEntries),
	}
	if flagScriptsDir != "" {
		opts = append(opts, refscope.WithScriptsDir(flagScriptsDir))
	}
	engine, err := refscope.New(dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating engine: %w", err)
	}
	return engine, nil
}

// resolveTargetDir returns the absolute path of the directory to index.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the config.
func resolveDBPath(repoRoot string, cfg *config.Config) string {
	if flagDB != "" {
		if filepath.IsAbs(flagDB) {
			return flagDB
		}
		return filepath.Join(repoRoot, flagDB)
	}
	return cfg.DBPathIn(repoRoot)
}

// workspace opens the engine for the repo containing the working
// directory. The index must already exist.
func workspace() (*refscope.Engine, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot := findRepoRoot(cwd)
	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return nil, "", err
	}
	dbPath := resolveDBPath(repoRoot, cfg)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, "", fmt.Errorf("database not found: %s (run 'refscope index' first)", dbPath)
	}
	engine, err := openEngine(repoRoot, dbPath, cfg)
	if err != nil {
		return nil, "", err
	}
	return engine, repoRoot, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
