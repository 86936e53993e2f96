package search

import (
	"github.com/jward/refscope/internal/syntax"
)

// pathTail returns the last segment of a path, looking through generic
// arguments.
func pathTail(p syntax.Node) syntax.Node {
	for {
		switch p.Kind() {
		case "scoped_identifier", "scoped_type_identifier":
			p = p.ChildByField("name")
		case "generic_type", "generic_type_with_turbofish":
			p = p.ChildByField("type")
		case "generic_function":
			p = p.ChildByField("function")
		default:
			return p
		}
	}
}

// referenceKind is KindStructLiteral when ref names the type of the nearest
// enclosing struct literal or is the callee of the nearest enclosing call.
func referenceKind(ref syntax.Node) ReferenceKind {
	for cur := range ref.OuterAncestors() {
		switch cur.Kind() {
		case "struct_expression":
			if pathTail(cur.ChildByField("name")) == ref {
				return KindStructLiteral
			}
			return KindOther
		case "call_expression":
			if pathTail(cur.ChildByField("function")) == ref {
				return KindStructLiteral
			}
			return KindOther
		}
	}
	return KindOther
}

// referenceAccess is Write when ref ends the left side of the nearest
// enclosing assignment and Read otherwise.
func referenceAccess(ref syntax.Node) ReferenceAccess {
	for cur := range ref.OuterAncestors() {
		switch cur.Kind() {
		case "assignment_expression", "compound_assignment_expr":
			if cur.ChildByField("left").FileRange().End == ref.FileRange().End {
				return AccessWrite
			}
			return AccessRead
		case "binary_expression":
			return AccessRead
		}
	}
	return AccessRead
}
