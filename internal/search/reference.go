// Package search finds the usages of a definition across a set of files.
package search

import (
	"fmt"

	"github.com/jward/refscope/internal/semdb"
)

// ReferenceKind classifies a usage syntactically.
type ReferenceKind uint8

const (
	// KindOther is any usage. As a requested kind it matches everything.
	KindOther ReferenceKind = iota
	// KindStructLiteral is the type name of a construction expression.
	KindStructLiteral
)

func (k ReferenceKind) String() string {
	switch k {
	case KindStructLiteral:
		return "StructLiteral"
	}
	return "Other"
}

// Matches reports whether a reference of kind k is kept for a search that
// asked for want.
func (k ReferenceKind) Matches(want ReferenceKind) bool {
	return want == KindOther || k == want
}

// ReferenceAccess is how a usage touches a value. Only locals and fields
// have one.
type ReferenceAccess uint8

const (
	AccessNone ReferenceAccess = iota
	AccessRead
	AccessWrite
)

func (a ReferenceAccess) String() string {
	switch a {
	case AccessRead:
		return "Read"
	case AccessWrite:
		return "Write"
	}
	return ""
}

// Reference is one classified usage.
type Reference struct {
	FileRange semdb.FileRange
	Kind      ReferenceKind
	Access    ReferenceAccess
}

func (r Reference) String() string {
	s := fmt.Sprintf("%s %s", r.FileRange, r.Kind)
	if r.Access != AccessNone {
		s += " " + r.Access.String()
	}
	return s
}
