package search

import (
	"context"
	"fmt"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/jward/refscope/internal/defs"
	"github.com/jward/refscope/internal/semdb"
	"github.com/jward/refscope/internal/syntax"
)

// Searcher finds usages of definitions in one snapshot. It is safe for
// concurrent use.
type Searcher struct {
	db      *semdb.Snapshot
	index   OccurrenceIndex
	workers int
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithIndex sets the index candidates come from. The default scans the
// snapshot text.
func WithIndex(ix OccurrenceIndex) Option {
	return func(s *Searcher) { s.index = ix }
}

// WithWorkers bounds the number of files verified in parallel.
func WithWorkers(n int) Option {
	return func(s *Searcher) {
		if n > 0 {
			s.workers = n
		}
	}
}

// NewSearcher creates a searcher over db.
func NewSearcher(db *semdb.Snapshot, opts ...Option) *Searcher {
	s := &Searcher{db: db, workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(s)
	}
	if s.index == nil {
		s.index = NewTextIndex(db)
	}
	return s
}

// definitionScope is where usages of d can occur at all.
func definitionScope(d defs.Definition) *Scope {
	switch d := d.(type) {
	case defs.Local:
		return SingleFile(d.File)
	case defs.TypeParam:
		return SingleFile(d.File)
	}
	return Workspace()
}

// FindUsages returns the usages of d within scope, ordered by file id and
// then offset. File ids follow indexing order, so the order is only stable
// for a given snapshot. The declaring binder itself is not included.
// Cancelling ctx fails the whole search.
func (s *Searcher) FindUsages(ctx context.Context, d defs.Definition, scope *Scope) ([]Reference, error) {
	files := s.db.FileIDs()
	slices.Sort(files)
	files = definitionScope(d).Intersect(scope).Select(files)
	if len(files) == 0 {
		return nil, nil
	}

	candidates, err := s.index.Occurrences(ctx, d.Name(), files)
	if err != nil {
		return nil, fmt.Errorf("search: candidates for %s: %w", d.Name(), err)
	}

	results := make([][]Reference, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, id := range files {
		offsets := candidates[id]
		if len(offsets) == 0 {
			continue
		}
		g.Go(func() error {
			slices.Sort(offsets)
			for _, off := range offsets {
				if err := gctx.Err(); err != nil {
					return err
				}
				if ref, ok := s.match(d, id, off); ok {
					results[i] = append(results[i], ref)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var refs []Reference
	for _, rs := range results {
		refs = append(refs, rs...)
	}
	return refs, nil
}

// match verifies one candidate offset: the name there must be a usage that
// resolves to d, or a binding pattern that names d, such as a constant in a
// match arm.
func (s *Searcher) match(d defs.Definition, file syntax.FileID, off uint32) (Reference, bool) {
	name := d.Name()
	at := func(n syntax.Node) bool {
		return n.FileRange().Start == off && n.Text() == name
	}

	if ref, ok := s.db.FindNodeAtOffsetWithDescend(file, off, syntax.IsNameRef); ok && at(ref) {
		got, ok := defs.ClassifyNameRef(s.db, ref)
		if !ok || got != d {
			return Reference{}, false
		}
		r := Reference{
			FileRange: semdb.FileRange{File: file, Range: ref.FileRange()},
			Kind:      referenceKind(ref),
		}
		if defs.HasAccess(d) {
			r.Access = referenceAccess(ref)
		}
		return r, true
	}

	if b, ok := s.db.FindNodeAtOffsetWithDescend(file, off, syntax.IsName); ok && at(b) && syntax.InPattern(b) {
		got, ok := defs.ClassifyName(s.db, b)
		if !ok || got != d {
			return Reference{}, false
		}
		if sym, ok := defs.SymbolOf(got); ok && sym.Binder() == b {
			return Reference{}, false
		}
		return Reference{
			FileRange: semdb.FileRange{File: file, Range: b.FileRange()},
			Kind:      KindOther,
		}, true
	}
	return Reference{}, false
}
