package syntax

// Item kinds that declare a name under their "name" field.
var namedItems = map[string]bool{
	"struct_item":             true,
	"enum_item":               true,
	"union_item":              true,
	"trait_item":              true,
	"type_item":               true,
	"associated_type":         true,
	"function_item":           true,
	"function_signature_item": true,
	"const_item":              true,
	"static_item":             true,
	"mod_item":                true,
	"macro_definition":        true,
	"enum_variant":            true,
	"field_declaration":       true,
}

// IsItem reports whether n is an item that declares a name.
func IsItem(n Node) bool {
	switch n.Kind() {
	case "field_declaration", "enum_variant":
		return false
	}
	return namedItems[n.Kind()]
}

// IsName reports whether n is a binder: the node that introduces a declared
// name, such as a struct name, a field name or a variable in a pattern.
func IsName(n Node) bool {
	switch n.Kind() {
	case "identifier", "type_identifier", "field_identifier":
	case "self":
		return n.Parent().Kind() == "self_parameter"
	case "shorthand_field_identifier":
		return n.Parent().Kind() == "field_pattern" && InPattern(n)
	default:
		return false
	}

	p := n.Parent()
	switch p.Kind() {
	case "type_parameters":
		return n.Kind() == "type_identifier"
	case "constrained_type_parameter":
		return n.Field() == "left"
	case "optional_type_parameter", "type_parameter", "const_parameter":
		return n.Field() == "name"
	}
	if namedItems[p.Kind()] {
		return n.Field() == "name"
	}
	return n.Kind() == "identifier" && InPattern(n)
}

// InPattern reports whether n sits in binding position of a pattern.
func InPattern(n Node) bool {
	for cur := n; ; {
		p := cur.Parent()
		switch p.Kind() {
		case "let_declaration", "for_expression", "let_condition",
			"if_let_expression", "while_let_expression", "parameter":
			return cur.Field() == "pattern"
		case "closure_parameters":
			return true
		case "match_pattern":
			return cur.Field() != "condition"
		case "tuple_pattern", "slice_pattern", "or_pattern", "ref_pattern",
			"mut_pattern", "reference_pattern", "captured_pattern":
		case "tuple_struct_pattern", "struct_pattern":
			if cur.Field() == "type" {
				return false
			}
		case "field_pattern":
			if cur.Field() != "pattern" && cur.Kind() != "shorthand_field_identifier" {
				return false
			}
		default:
			return false
		}
		cur = p
	}
}

// IsNameRef reports whether n is a usage: a name that refers to something
// declared elsewhere. Tokens inside macro token trees are opaque and never
// usages; their expansion carries the usage instead.
func IsNameRef(n Node) bool {
	switch n.Kind() {
	case "identifier", "type_identifier", "field_identifier", "self", "super", "crate":
	default:
		return false
	}
	if IsName(n) {
		return false
	}
	p := n.Parent()
	switch p.Kind() {
	case "", "token_tree", "lifetime", "label":
		return false
	case "use_as_clause":
		return n.Field() != "alias"
	}
	return true
}

// IsLetStmt reports whether n is a let statement.
func IsLetStmt(n Node) bool { return n.Kind() == "let_declaration" }

// IsStructDef reports whether n defines a struct-like type.
func IsStructDef(n Node) bool {
	k := n.Kind()
	return k == "struct_item" || k == "union_item"
}

// IsTypeParamList reports whether n is a generic parameter list.
func IsTypeParamList(n Node) bool { return n.Kind() == "type_parameters" }

// IsMacroCall reports whether n is a macro invocation.
func IsMacroCall(n Node) bool { return n.Kind() == "macro_invocation" }

// Name returns the "name" child of an item.
func Name(item Node) Node { return item.ChildByField("name") }
