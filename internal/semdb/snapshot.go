// Package semdb is refscope's semantic database: an immutable snapshot of
// parsed Rust files with the module tree, name resolution and the small
// amount of type inference needed to resolve fields and methods.
package semdb

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/maypok86/otter"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/jward/refscope/internal/syntax"
)

// File is one source file of a snapshot. Path uses forward slashes.
type File struct {
	ID   syntax.FileID
	Path string
	Text []byte
}

// FilePosition is an offset inside a file.
type FilePosition struct {
	File   syntax.FileID
	Offset uint32
}

// FileRange is a range inside a file.
type FileRange struct {
	File  syntax.FileID
	Range syntax.TextRange
}

func (r FileRange) String() string { return fmt.Sprintf("%d:%s", r.File, r.Range) }

const defaultParseEntries = 1024

type cacheKey struct {
	file syntax.FileID
	hash uint64
}

// Database caches parse trees by file and content hash so that snapshots
// built one after another reuse the trees of unchanged files.
type Database struct {
	cache otter.Cache[cacheKey, *syntax.Tree]
}

// NewDatabase creates a database whose parse cache holds up to entries
// trees. A non-positive value selects the default.
func NewDatabase(entries int) (*Database, error) {
	if entries <= 0 {
		entries = defaultParseEntries
	}
	cache, err := otter.MustBuilder[cacheKey, *syntax.Tree](entries).Build()
	if err != nil {
		return nil, fmt.Errorf("semdb: parse cache: %w", err)
	}
	return &Database{cache: cache}, nil
}

// Close releases the parse cache.
func (d *Database) Close() {
	d.cache.Close()
}

func (d *Database) parse(ctx context.Context, f File) (*syntax.Tree, error) {
	if d == nil {
		return syntax.Parse(ctx, f.ID, f.Text)
	}
	key := cacheKey{file: f.ID, hash: xxh3.Hash(f.Text)}
	if t, ok := d.cache.Get(key); ok {
		return t, nil
	}
	t, err := syntax.Parse(ctx, f.ID, f.Text)
	if err != nil {
		return nil, err
	}
	d.cache.Set(key, t)
	return t, nil
}

// Option configures a Snapshot.
type Option func(*Snapshot)

// WithDatabase parses through db's cache.
func WithDatabase(db *Database) Option {
	return func(s *Snapshot) { s.db = db }
}

// WithCrateRoots names the files that start a crate. Without it every
// lib.rs and main.rs is a root.
func WithCrateRoots(paths ...string) Option {
	return func(s *Snapshot) { s.crateRoots = append(s.crateRoots, paths...) }
}

// WithWorkers bounds the number of files parsed in parallel.
func WithWorkers(n int) Option {
	return func(s *Snapshot) {
		if n > 0 {
			s.workers = n
		}
	}
}

type nodeKey struct {
	tree *syntax.Tree
	id   syntax.NodeID
}

func keyOf(n syntax.Node) nodeKey { return nodeKey{tree: n.Tree(), id: n.ID()} }

type fileEntry struct {
	file File
	tree *syntax.Tree
}

// Snapshot is an immutable view of a set of files. All methods are safe
// for concurrent use.
type Snapshot struct {
	db         *Database
	crateRoots []string
	workers    int

	files      map[syntax.FileID]*fileEntry
	order      []syntax.FileID
	byPath     map[string]syntax.FileID
	expansions map[nodeKey]*syntax.Tree

	modsOnce sync.Once
	mods     *moduleTree

	implsOnce sync.Once
	impls     *implIndex

	macrosOnce sync.Once
	macros     map[string][]syntax.Node
}

// NewSnapshot parses files, and the arguments of every macro invocation in
// them, into a snapshot.
func NewSnapshot(ctx context.Context, files []File, opts ...Option) (*Snapshot, error) {
	s := &Snapshot{
		workers:    runtime.NumCPU(),
		files:      make(map[syntax.FileID]*fileEntry, len(files)),
		byPath:     make(map[string]syntax.FileID, len(files)),
		expansions: make(map[nodeKey]*syntax.Tree),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, f := range files {
		if _, dup := s.files[f.ID]; dup {
			return nil, fmt.Errorf("semdb: duplicate file id %d (%s)", f.ID, f.Path)
		}
		s.files[f.ID] = &fileEntry{file: f}
		s.byPath[f.Path] = f.ID
		s.order = append(s.order, f.ID)
	}
	sort.Slice(s.order, func(i, j int) bool {
		return s.files[s.order[i]].file.Path < s.files[s.order[j]].file.Path
	})

	type parsed struct {
		tree       *syntax.Tree
		expansions map[nodeKey]*syntax.Tree
	}
	results := make([]parsed, len(s.order))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, id := range s.order {
		entry := s.files[id]
		g.Go(func() error {
			t, err := s.db.parse(gctx, entry.file)
			if err != nil {
				return fmt.Errorf("parse %s: %w", entry.file.Path, err)
			}
			exps, err := expandAll(gctx, t)
			if err != nil {
				return fmt.Errorf("expand %s: %w", entry.file.Path, err)
			}
			results[i] = parsed{tree: t, expansions: exps}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("semdb: %w", err)
	}

	for i, id := range s.order {
		s.files[id].tree = results[i].tree
		for k, t := range results[i].expansions {
			s.expansions[k] = t
		}
	}
	return s, nil
}

// expandAll parses the arguments of every macro invocation reachable from
// t, including invocations nested inside other invocations' arguments.
func expandAll(ctx context.Context, t *syntax.Tree) (map[nodeKey]*syntax.Tree, error) {
	out := make(map[nodeKey]*syntax.Tree)
	queue := []*syntax.Tree{t}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for n := range cur.Nodes() {
			if !syntax.IsMacroCall(n) {
				continue
			}
			exp, err := syntax.ParseExpansion(ctx, n)
			if err != nil {
				return nil, err
			}
			if exp == nil {
				continue
			}
			out[keyOf(n)] = exp
			queue = append(queue, exp)
		}
	}
	return out, nil
}

// Files returns the snapshot's files ordered by path.
func (s *Snapshot) Files() []File {
	out := make([]File, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.files[id].file)
	}
	return out
}

// FileIDs returns the ids of the snapshot's files ordered by path.
func (s *Snapshot) FileIDs() []syntax.FileID {
	return append([]syntax.FileID(nil), s.order...)
}

// File returns the file with the given id.
func (s *Snapshot) File(id syntax.FileID) (File, bool) {
	e, ok := s.files[id]
	if !ok {
		return File{}, false
	}
	return e.file, true
}

// FileByPath returns the id of the file at path.
func (s *Snapshot) FileByPath(path string) (syntax.FileID, bool) {
	id, ok := s.byPath[path]
	return id, ok
}

// Tree returns the parse tree of a file, or nil for an unknown file.
func (s *Snapshot) Tree(id syntax.FileID) *syntax.Tree {
	e, ok := s.files[id]
	if !ok {
		return nil
	}
	return e.tree
}

// Expansion returns the tree overlaying a macro invocation's arguments, or
// nil when the invocation has none.
func (s *Snapshot) Expansion(call syntax.Node) *syntax.Tree {
	return s.expansions[keyOf(call)]
}

// FindNodeAtOffsetWithDescend looks for a node matching match at an offset
// of a file. The file's own tree is searched first. When nothing matches
// and the offset lies in the arguments of a macro invocation, the search
// continues in that invocation's expansion, recursively.
func (s *Snapshot) FindNodeAtOffsetWithDescend(file syntax.FileID, off uint32, match func(syntax.Node) bool) (syntax.Node, bool) {
	t := s.Tree(file)
	if t == nil {
		return syntax.Node{}, false
	}
	return s.findWithDescend(t, off, match)
}

func (s *Snapshot) findWithDescend(t *syntax.Tree, off uint32, match func(syntax.Node) bool) (syntax.Node, bool) {
	if n, ok := t.FindNodeAtOffset(off, match); ok {
		return n, true
	}
	call, ok := t.FindNodeAtOffset(off, func(n syntax.Node) bool {
		if !syntax.IsMacroCall(n) {
			return false
		}
		args, ok := syntax.ArgumentsRange(n)
		return ok && args.ContainsInclusive(off)
	})
	if !ok {
		return syntax.Node{}, false
	}
	exp := s.Expansion(call)
	if exp == nil {
		return syntax.Node{}, false
	}
	local, ok := exp.LocalOffset(off)
	if !ok {
		return syntax.Node{}, false
	}
	return s.findWithDescend(exp, local, match)
}
