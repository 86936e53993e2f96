package refscope

import (
	"context"
	"fmt"
	"sync"

	"github.com/jward/refscope/internal/nav"
	"github.com/jward/refscope/internal/references"
	"github.com/jward/refscope/internal/search"
	"github.com/jward/refscope/internal/semdb"
	"github.com/jward/refscope/internal/syntax"
)

// QueryBuilder answers position queries against one snapshot. It is safe
// for concurrent use.
type QueryBuilder struct {
	snap   *semdb.Snapshot
	finder *references.Finder

	mu    sync.Mutex
	lines map[syntax.FileID]*syntax.LineIndex
}

// Location represents a source code position range. Lines and columns are
// 0-based; columns count bytes.
type Location struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	StartCol  int    `json:"start_col"`
	EndLine   int    `json:"end_line"`
	EndCol    int    `json:"end_col"`
}

// Reference is one usage of a searched definition.
type Reference struct {
	Location
	Kind   string `json:"kind"`             // "Other" or "StructLiteral"
	Access string `json:"access,omitempty"` // "Read", "Write" or empty
}

// Declaration is where a searched definition is declared.
type Declaration struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // "struct", "local", "field", ...
	// Location is the declared name, or the whole declaration when it has
	// no name of its own.
	Location Location `json:"location"`
	// Full spans the whole declaration.
	Full   Location `json:"full"`
	Access string   `json:"access,omitempty"`
}

// ReferenceSet is the answer to a find-references query.
type ReferenceSet struct {
	// Name is the range of the identifier under the cursor.
	Name        Location    `json:"name"`
	Declaration Declaration `json:"declaration"`
	References  []Reference `json:"references"`
}

// Len counts the references plus the declaration.
func (r *ReferenceSet) Len() int { return len(r.References) + 1 }

// NewQueryBuilder wraps snap. Searcher options configure usage search.
func NewQueryBuilder(snap *semdb.Snapshot, opts ...search.Option) *QueryBuilder {
	return &QueryBuilder{
		snap:   snap,
		finder: references.NewFinder(snap, opts...),
		lines:  make(map[syntax.FileID]*syntax.LineIndex),
	}
}

// Snapshot returns the snapshot the builder queries.
func (q *QueryBuilder) Snapshot() *semdb.Snapshot { return q.snap }

// position converts a path and 0-based line/column to a file position. It
// reports false when the file is not indexed or the position is outside it.
func (q *QueryBuilder) position(file string, line, col int) (semdb.FilePosition, bool, error) {
	path, err := normalizePath(file)
	if err != nil {
		return semdb.FilePosition{}, false, err
	}
	id, ok := q.snap.FileByPath(path)
	if !ok {
		return semdb.FilePosition{}, false, nil
	}
	off, ok := q.lineIndex(id).Offset(line, col)
	if !ok {
		return semdb.FilePosition{}, false, nil
	}
	return semdb.FilePosition{File: id, Offset: off}, true, nil
}

func (q *QueryBuilder) lineIndex(id syntax.FileID) *syntax.LineIndex {
	q.mu.Lock()
	defer q.mu.Unlock()
	li, ok := q.lines[id]
	if !ok {
		f, _ := q.snap.File(id)
		li = syntax.NewLineIndex(f.Text)
		q.lines[id] = li
	}
	return li
}

func (q *QueryBuilder) location(id syntax.FileID, rng syntax.TextRange) Location {
	f, _ := q.snap.File(id)
	li := q.lineIndex(id)
	sl, sc := li.LineCol(rng.Start)
	el, ec := li.LineCol(rng.End)
	return Location{File: f.Path, StartLine: sl, StartCol: sc, EndLine: el, EndCol: ec}
}

// ReferencesAt finds the declaration and usages of the name at (file, line,
// col). Patterns restrict the search to files whose path matches one of
// them; none searches the workspace. A position that is not on a
// resolvable name returns (nil, nil).
func (q *QueryBuilder) ReferencesAt(ctx context.Context, file string, line, col int, patterns ...string) (*ReferenceSet, error) {
	pos, ok, err := q.position(file, line, col)
	if err != nil {
		return nil, fmt.Errorf("references at: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var scope *search.Scope
	if len(patterns) > 0 {
		if scope, err = search.GlobScope(q.snap, patterns...); err != nil {
			return nil, fmt.Errorf("references at: %w", err)
		}
	}

	res, err := q.finder.FindAllReferences(ctx, pos, scope)
	if err != nil {
		return nil, fmt.Errorf("references at: %w", err)
	}
	if res == nil {
		return nil, nil
	}

	decl := res.Info.Declaration()
	set := &ReferenceSet{
		Name: q.location(pos.File, res.Range),
		Declaration: Declaration{
			Name:     decl.Nav.Name,
			Kind:     decl.Nav.Kind,
			Location: q.location(decl.Nav.File, decl.Nav.Range()),
			Full:     q.location(decl.Nav.File, decl.Nav.FullRange),
			Access:   decl.Access.String(),
		},
	}
	for _, r := range res.Info.References() {
		set.References = append(set.References, Reference{
			Location: q.location(r.FileRange.File, r.FileRange.Range),
			Kind:     r.Kind.String(),
			Access:   r.Access.String(),
		})
	}
	return set, nil
}

// DefinitionAt finds the definition of the name at the given position.
// It returns no locations when the position is not on a resolvable name.
func (q *QueryBuilder) DefinitionAt(ctx context.Context, file string, line, col int) ([]Location, error) {
	pos, ok, err := q.position(file, line, col)
	if err != nil {
		return nil, fmt.Errorf("definition at: %w", err)
	}
	if !ok {
		return nil, nil
	}
	res, err := q.finder.GotoDefinition(ctx, pos)
	if err != nil {
		return nil, fmt.Errorf("definition at: %w", err)
	}
	if res == nil {
		return nil, nil
	}
	return []Location{q.target(res.Info)}, nil
}

func (q *QueryBuilder) target(t nav.Target) Location {
	return q.location(t.File, t.Range())
}
