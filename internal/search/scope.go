package search

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/jward/refscope/internal/semdb"
	"github.com/jward/refscope/internal/syntax"
)

// Scope restricts a search to a set of files. The nil Scope and
// Workspace() cover every file.
type Scope struct {
	files map[syntax.FileID]struct{}
}

// Workspace covers every file of the snapshot.
func Workspace() *Scope { return nil }

// SingleFile covers one file.
func SingleFile(id syntax.FileID) *Scope { return Files(id) }

// Files covers exactly the given files.
func Files(ids ...syntax.FileID) *Scope {
	s := &Scope{files: make(map[syntax.FileID]struct{}, len(ids))}
	for _, id := range ids {
		s.files[id] = struct{}{}
	}
	return s
}

// IsWorkspace reports whether the scope is unrestricted.
func (s *Scope) IsWorkspace() bool { return s == nil || s.files == nil }

// Contains reports whether the scope covers a file.
func (s *Scope) Contains(id syntax.FileID) bool {
	if s.IsWorkspace() {
		return true
	}
	_, ok := s.files[id]
	return ok
}

// Intersect returns the files covered by both scopes.
func (s *Scope) Intersect(o *Scope) *Scope {
	switch {
	case s.IsWorkspace():
		return o
	case o.IsWorkspace():
		return s
	}
	out := &Scope{files: make(map[syntax.FileID]struct{})}
	for id := range s.files {
		if o.Contains(id) {
			out.files[id] = struct{}{}
		}
	}
	return out
}

// Select filters ids to those in the scope, keeping their order.
func (s *Scope) Select(ids []syntax.FileID) []syntax.FileID {
	if s.IsWorkspace() {
		return ids
	}
	out := make([]syntax.FileID, 0, len(s.files))
	for _, id := range ids {
		if s.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// GlobScope covers the files of db whose path matches any pattern. A
// pattern without a leading slash matches at any depth.
func GlobScope(db *semdb.Snapshot, patterns ...string) (*Scope, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := CompileGlob(p)
		if err != nil {
			return nil, err
		}
		globs = append(globs, g)
	}
	s := &Scope{files: make(map[syntax.FileID]struct{})}
	for _, f := range db.Files() {
		if MatchAny(globs, f.Path) {
			s.files[f.ID] = struct{}{}
		}
	}
	return s, nil
}

// CompileGlob compiles a path pattern with '/' as separator. A relative
// pattern matches at any depth, so "*.rs" and "**/*.rs" both match "lib.rs"
// and "src/net/conn.rs". The forms are compiled separately because gobwas
// alternations do not handle "**" inside braces.
func CompileGlob(pattern string) (glob.Glob, error) {
	var forms []string
	switch {
	case strings.HasPrefix(pattern, "/"):
		forms = []string{pattern}
	case strings.HasPrefix(pattern, "**/"):
		forms = []string{pattern, strings.TrimPrefix(pattern, "**/")}
	default:
		forms = []string{pattern, "**/" + pattern}
	}
	globs := make(anyGlob, 0, len(forms))
	for _, form := range forms {
		g, err := glob.Compile(form, '/')
		if err != nil {
			return nil, fmt.Errorf("search: glob %q: %w", pattern, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// anyGlob matches when one of its forms does.
type anyGlob []glob.Glob

func (a anyGlob) Match(s string) bool {
	for _, g := range a {
		if g.Match(s) {
			return true
		}
	}
	return false
}

// MatchAny reports whether p matches one of globs. Leading slashes are
// ignored on both sides.
func MatchAny(globs []glob.Glob, p string) bool {
	trimmed := strings.TrimPrefix(p, "/")
	rooted := "/" + trimmed
	for _, g := range globs {
		if g.Match(trimmed) || g.Match(rooted) {
			return true
		}
	}
	return false
}
