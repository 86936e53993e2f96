// Package references implements find-all-references: it resolves the name
// under a cursor to a definition, searches its usages and pairs them with
// the declaration.
package references

import (
	"slices"

	"github.com/jward/refscope/internal/nav"
	"github.com/jward/refscope/internal/search"
	"github.com/jward/refscope/internal/semdb"
	"github.com/jward/refscope/internal/syntax"
)

// RangeInfo attaches a payload to the range of the name a query matched.
type RangeInfo[T any] struct {
	Range syntax.TextRange
	Info  T
}

// Declaration is the declaration site of a searched definition.
type Declaration struct {
	Nav    nav.Target
	Kind   search.ReferenceKind
	Access search.ReferenceAccess
}

// ReferenceSearchResult is a declaration followed by its usages. It always
// counts at least one element, the declaration.
type ReferenceSearchResult struct {
	declaration Declaration
	references  []search.Reference
}

// NewReferenceSearchResult pairs a declaration with its usages.
func NewReferenceSearchResult(decl Declaration, refs []search.Reference) *ReferenceSearchResult {
	return &ReferenceSearchResult{declaration: decl, references: refs}
}

// Declaration returns the declaration.
func (r *ReferenceSearchResult) Declaration() Declaration { return r.declaration }

// DeclTarget returns the declaration's navigation target.
func (r *ReferenceSearchResult) DeclTarget() nav.Target { return r.declaration.Nav }

// References returns a copy of the usages in search order.
func (r *ReferenceSearchResult) References() []search.Reference {
	return slices.Clone(r.references)
}

// Len counts the usages plus the declaration.
func (r *ReferenceSearchResult) Len() int { return len(r.references) + 1 }

// IntoReferences flattens the result: the declaration as a reference,
// then the usages in order. The result is empty afterwards.
func (r *ReferenceSearchResult) IntoReferences() []search.Reference {
	out := make([]search.Reference, 0, len(r.references)+1)
	out = append(out, search.Reference{
		FileRange: semdb.FileRange{File: r.declaration.Nav.File, Range: r.declaration.Nav.Range()},
		Kind:      r.declaration.Kind,
		Access:    r.declaration.Access,
	})
	out = append(out, r.references...)
	r.references = nil
	r.declaration = Declaration{}
	return out
}
