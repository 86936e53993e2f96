package refscope

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	"github.com/zeebo/xxh3"

	"github.com/jward/refscope/internal/runtime"
	"github.com/jward/refscope/internal/search"
	"github.com/jward/refscope/internal/semdb"
	"github.com/jward/refscope/internal/store"
	"github.com/jward/refscope/scripts"
)

// Engine orchestrates the refscope pipeline: file discovery, change
// detection, occurrence extraction via Risor scripts, and snapshot
// construction for queries.
type Engine struct {
	store      *store.Store
	runtime    *runtime.Runtime
	scriptsDir string
	scriptsFS  fs.FS

	// useParallel enables the parallel extraction pipeline.
	useParallel bool

	workers      int
	parseEntries int
	crateRoots   []string
	include      []string
	exclude      []string
	includeGlobs []glob.Glob
	excludeGlobs []glob.Glob

	db *semdb.Database

	mu          sync.Mutex
	snap        *semdb.Snapshot
	fingerprint uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithParallel controls parallel extraction. When true (default), IndexFiles
// uses a worker pool for parsing and script execution, with a single writer
// committing batches to SQLite. Set to false for serial mode.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithScriptsFS loads Risor scripts from fsys. The embedded scripts are
// used when neither WithScriptsFS nor WithScriptsDir is given.
func WithScriptsFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.scriptsFS = fsys
	}
}

// WithScriptsDir loads Risor scripts from a directory on disk.
func WithScriptsDir(dir string) Option {
	return func(e *Engine) {
		e.scriptsDir = dir
	}
}

// WithCrateRoots names the files that start a crate. Relative paths are
// resolved against the working directory.
func WithCrateRoots(paths ...string) Option {
	return func(e *Engine) {
		e.crateRoots = append(e.crateRoots, paths...)
	}
}

// WithIncludeGlobs restricts IndexDirectory to files whose path relative to
// the indexed root matches one of patterns.
func WithIncludeGlobs(patterns ...string) Option {
	return func(e *Engine) {
		e.include = append(e.include, patterns...)
	}
}

// WithExcludeGlobs skips files whose path relative to the indexed root
// matches one of patterns.
func WithExcludeGlobs(patterns ...string) Option {
	return func(e *Engine) {
		e.exclude = append(e.exclude, patterns...)
	}
}

// WithWorkers bounds extraction, parsing and search parallelism.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithParseCacheEntries sizes the parse tree cache shared by snapshots.
func WithParseCacheEntries(n int) Option {
	return func(e *Engine) {
		e.parseEntries = n
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
func New(dbPath string, opts ...Option) (*Engine, error) {
	e := &Engine{useParallel: true}
	for _, opt := range opts {
		opt(e)
	}
	if e.scriptsFS == nil && e.scriptsDir == "" {
		e.scriptsFS = scripts.FS
	}

	var err error
	if e.includeGlobs, err = compileGlobs(e.include); err != nil {
		return nil, fmt.Errorf("refscope: include: %w", err)
	}
	if e.excludeGlobs, err = compileGlobs(e.exclude); err != nil {
		return nil, fmt.Errorf("refscope: exclude: %w", err)
	}
	for i, p := range e.crateRoots {
		if e.crateRoots[i], err = normalizePath(p); err != nil {
			return nil, fmt.Errorf("refscope: crate root %s: %w", p, err)
		}
	}

	if e.db, err = semdb.NewDatabase(e.parseEntries); err != nil {
		return nil, fmt.Errorf("refscope: %w", err)
	}

	s, err := store.NewStore(dbPath)
	if err != nil {
		e.db.Close()
		return nil, fmt.Errorf("refscope: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		e.db.Close()
		return nil, fmt.Errorf("refscope: migrate: %w", err)
	}
	e.store = s
	e.runtime = e.newRuntime(s)
	return e, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := search.CompileGlob(p)
		if err != nil {
			return nil, err
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func (e *Engine) newRuntime(ds store.DataStore) *runtime.Runtime {
	var rtOpts []runtime.RuntimeOption
	if e.scriptsFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.scriptsFS))
	}
	return runtime.NewRuntime(ds, e.scriptsDir, rtOpts...)
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	e.db.Close()
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// normalizePath makes p absolute with forward slashes, the form paths are
// stored in.
func normalizePath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(abs), nil
}

// scriptsHash hashes all Risor scripts so a change to extraction logic
// forces a full re-extraction.
func (e *Engine) scriptsHash() string {
	var paths []string

	if e.scriptsFS != nil {
		fs.WalkDir(e.scriptsFS, ".", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				paths = append(paths, path)
			}
			return nil
		})
	} else if e.scriptsDir != "" {
		filepath.WalkDir(e.scriptsDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if !d.IsDir() && strings.HasSuffix(path, ".risor") {
				rel, _ := filepath.Rel(e.scriptsDir, path)
				paths = append(paths, rel)
			}
			return nil
		})
	}

	sort.Strings(paths)

	h := xxh3.New()
	for _, p := range paths {
		src, err := e.runtime.LoadScript(p)
		if err != nil {
			continue
		}
		h.WriteString(p)
		h.WriteString(src)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// ScriptsChanged reports whether the scripts differ from the ones that
// built the current database. It is true on first run.
func (e *Engine) ScriptsChanged() bool {
	stored, err := e.store.GetMetadata("scripts_hash")
	if err != nil || stored == "" {
		return true
	}
	return e.scriptsHash() != stored
}

func (e *Engine) storeScriptsHash() error {
	return e.store.SetMetadata("scripts_hash", e.scriptsHash())
}

// IndexFiles indexes the given file paths. When WithParallel is enabled,
// uses a worker pool for concurrent extraction with batched SQLite writes.
// Otherwise falls back to the serial path.
//
// For each file:
//  1. Skip files that are not Rust
//  2. Skip unchanged files (same content hash, same scripts)
//  3. Delete stale data, insert the file record with its content
//  4. Run the extraction script
//
// Errors on individual files are collected; processing continues and the
// first error is returned with a count.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.indexFiles(ctx, paths)
}

// indexFiles is IndexFiles with e.mu held.
func (e *Engine) indexFiles(ctx context.Context, paths []string) error {
	force := e.ScriptsChanged()
	var err error
	if e.useParallel {
		err = e.indexFilesParallel(ctx, paths, force)
	} else {
		err = e.indexFilesSerial(ctx, paths, force)
	}
	if err != nil {
		return err
	}
	return e.storeScriptsHash()
}

func (e *Engine) indexFilesSerial(ctx context.Context, paths []string, force bool) error {
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.indexFile(ctx, path, force); err != nil {
			errs = append(errs, fmt.Errorf("index %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

func (e *Engine) indexFile(ctx context.Context, path string, force bool) error {
	item, skip, err := e.prepareFile(path, force, nil)
	if err != nil || skip {
		return err
	}
	if err := e.runtime.ExtractFile(ctx, item.fileID, item.path, item.lang, item.content); err != nil {
		_ = e.store.DeleteFileData(item.fileID)
		return fmt.Errorf("extraction script: %w", err)
	}
	return nil
}

// skipDirs are excluded from the filesystem walk.
var skipDirs = map[string]bool{
	"target":       true,
	"node_modules": true,
}

// IndexDirectory discovers the Rust files under root and indexes them.
// Inside a git repository it uses git ls-files to respect .gitignore;
// otherwise it walks the filesystem, skipping hidden and build directories.
// Files previously indexed under root that are gone or filtered out are
// removed from the index.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("refscope: %w", err)
	}
	paths, err := e.gitListFiles(root)
	if err != nil {
		// Not a git repo or git not available: fall back to walk.
		paths, err = e.walkListFiles(root)
		if err != nil {
			return err
		}
	}
	paths = e.filterPaths(root, paths)
	if err := e.pruneIndex(root, paths); err != nil {
		return err
	}
	return e.indexFiles(ctx, paths)
}

// filterPaths applies the include and exclude globs to paths relative to
// root.
func (e *Engine) filterPaths(root string, paths []string) []string {
	if len(e.includeGlobs) == 0 && len(e.excludeGlobs) == 0 {
		return paths
	}
	out := paths[:0]
	for _, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if len(e.includeGlobs) > 0 && !search.MatchAny(e.includeGlobs, rel) {
			continue
		}
		if search.MatchAny(e.excludeGlobs, rel) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// pruneIndex deletes stored files under root that are not in keep.
func (e *Engine) pruneIndex(root string, keep []string) error {
	stored, err := e.store.FilePaths()
	if err != nil {
		return err
	}
	kept := make(map[string]bool, len(keep))
	for _, p := range keep {
		kept[filepath.ToSlash(p)] = true
	}
	prefix := strings.TrimSuffix(filepath.ToSlash(root), "/") + "/"
	for path, id := range stored {
		if !strings.HasPrefix(path, prefix) || kept[path] {
			continue
		}
		if err := e.store.DeleteFileData(id); err != nil {
			return fmt.Errorf("prune %s: %w", path, err)
		}
	}
	return nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) Rust files under root.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := runtime.LanguageForFile(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || skipDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := runtime.LanguageForFile(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}

// Snapshot returns an immutable view of the indexed files for querying.
// Files whose content changed on disk since they were indexed are
// re-indexed first, and deleted files are dropped. Consecutive calls with
// no changes return the same snapshot.
func (e *Engine) Snapshot(ctx context.Context) (*semdb.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.refresh(ctx); err != nil {
		return nil, err
	}

	stored, err := e.store.Files()
	if err != nil {
		return nil, fmt.Errorf("refscope: snapshot: %w", err)
	}
	h := xxh3.New()
	files := make([]semdb.File, 0, len(stored))
	for _, f := range stored {
		fmt.Fprintf(h, "%d:%s\n", f.ID, f.Hash)
		files = append(files, semdb.File{ID: fileID(f.ID), Path: f.Path, Text: f.Content})
	}
	if e.snap != nil && e.fingerprint == h.Sum64() {
		return e.snap, nil
	}

	opts := []semdb.Option{semdb.WithDatabase(e.db), semdb.WithWorkers(e.workers)}
	if len(e.crateRoots) > 0 {
		opts = append(opts, semdb.WithCrateRoots(e.crateRoots...))
	}
	snap, err := semdb.NewSnapshot(ctx, files, opts...)
	if err != nil {
		return nil, fmt.Errorf("refscope: snapshot: %w", err)
	}
	e.snap, e.fingerprint = snap, h.Sum64()
	return snap, nil
}

// refresh re-indexes stored files that changed on disk and drops the ones
// that no longer exist.
func (e *Engine) refresh(ctx context.Context) error {
	stored, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("refscope: refresh: %w", err)
	}
	var changed []string
	for _, f := range stored {
		content, err := os.ReadFile(filepath.FromSlash(f.Path))
		if os.IsNotExist(err) {
			if err := e.store.DeleteFileData(f.ID); err != nil {
				return fmt.Errorf("refscope: refresh: %w", err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("refscope: refresh %s: %w", f.Path, err)
		}
		if store.ContentHash(content) != f.Hash {
			changed = append(changed, filepath.FromSlash(f.Path))
		}
	}
	if len(changed) == 0 {
		return nil
	}
	return e.indexFiles(ctx, changed)
}

// Query returns a QueryBuilder over a fresh snapshot.
func (e *Engine) Query(ctx context.Context) (*QueryBuilder, error) {
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return NewQueryBuilder(snap,
		search.WithIndex(store.NewIndex(e.store)),
		search.WithWorkers(e.workers),
	), nil
}

// workItem holds everything an extraction needs for one file.
type workItem struct {
	path    string
	lang    string
	fileID  int64
	content []byte
	batch   *store.BatchedStore
}

// prepareFile reads path, skips it when unchanged, and replaces its file
// record. Returns (item, skip, error).
func (e *Engine) prepareFile(path string, force bool, batch *store.BatchedStore) (workItem, bool, error) {
	lang, ok := runtime.LanguageForFile(path)
	if !ok {
		return workItem{}, true, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return workItem{}, false, fmt.Errorf("read file: %w", err)
	}
	hash := store.ContentHash(content)
	stored, err := normalizePath(path)
	if err != nil {
		return workItem{}, false, err
	}

	existing, err := e.store.FileByPath(stored)
	if err != nil {
		return workItem{}, false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == hash && !force {
		return workItem{}, true, nil // unchanged
	}
	if existing != nil {
		if err := e.store.DeleteFileData(existing.ID); err != nil {
			return workItem{}, false, fmt.Errorf("delete old data: %w", err)
		}
	}

	id, err := e.store.InsertFile(&store.File{
		Path:        stored,
		Language:    lang,
		Hash:        hash,
		Content:     content,
		LastIndexed: time.Now(),
	})
	if err != nil {
		return workItem{}, false, fmt.Errorf("insert file: %w", err)
	}
	return workItem{path: stored, lang: lang, fileID: id, content: content, batch: batch}, false, nil
}
