package references

import (
	"context"

	"github.com/jward/refscope/internal/nav"
	"github.com/jward/refscope/internal/search"
	"github.com/jward/refscope/internal/semdb"
)

// Finder answers reference queries against one snapshot. It is safe for
// concurrent use.
type Finder struct {
	db       *semdb.Snapshot
	searcher *search.Searcher
}

// NewFinder creates a finder. Searcher options configure the usage search.
func NewFinder(db *semdb.Snapshot, opts ...search.Option) *Finder {
	return &Finder{db: db, searcher: search.NewSearcher(db, opts...)}
}

// Snapshot returns the snapshot the finder queries.
func (f *Finder) Snapshot() *semdb.Snapshot { return f.db }

// FindAllReferences resolves the name at pos and returns its declaration
// and usages within scope, along with the range of the matched name. A nil
// scope searches the whole workspace.
//
// A position that is not on a resolvable name returns (nil, nil). An error
// is returned only when the search fails or ctx is cancelled.
func (f *Finder) FindAllReferences(ctx context.Context, pos semdb.FilePosition, scope *search.Scope) (*RangeInfo[*ReferenceSearchResult], error) {
	name, kind, ok := findName(f.db, pos)
	if !ok {
		return nil, nil
	}
	def := name.Info

	usages, err := f.searcher.FindUsages(ctx, def, scope)
	if err != nil {
		return nil, err
	}
	refs := make([]search.Reference, 0, len(usages))
	for _, r := range usages {
		if r.Kind.Matches(kind) {
			refs = append(refs, r)
		}
	}

	target, ok := nav.FromDefinition(f.db, def)
	if !ok {
		return nil, nil
	}
	decl := Declaration{
		Nav:    target,
		Kind:   search.KindOther,
		Access: declAccess(def, f.db.Tree(target.File), target.Range()),
	}

	return &RangeInfo[*ReferenceSearchResult]{
		Range: name.Range,
		Info:  NewReferenceSearchResult(decl, refs),
	}, nil
}

// GotoDefinition resolves the name at pos to the navigation target of its
// definition. It returns (nil, nil) when there is nothing to resolve.
func (f *Finder) GotoDefinition(ctx context.Context, pos semdb.FilePosition) (*RangeInfo[nav.Target], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	def, rng, ok := classifyAt(f.db, pos)
	if !ok {
		return nil, nil
	}
	target, ok := nav.FromDefinition(f.db, def)
	if !ok {
		return nil, nil
	}
	return &RangeInfo[nav.Target]{Range: rng, Info: target}, nil
}
