package semdb

import (
	"github.com/jward/refscope/internal/syntax"
)

// DeclKind classifies a declaration.
type DeclKind uint8

const (
	DeclLocal DeclKind = iota
	DeclField
	DeclFunction
	DeclStruct
	DeclEnum
	DeclUnion
	DeclTrait
	DeclTypeAlias
	DeclVariant
	DeclModule
	DeclMacro
	DeclConst
	DeclStatic
	DeclTypeParam
)

var declKindNames = [...]string{
	DeclLocal:     "local",
	DeclField:     "field",
	DeclFunction:  "function",
	DeclStruct:    "struct",
	DeclEnum:      "enum",
	DeclUnion:     "union",
	DeclTrait:     "trait",
	DeclTypeAlias: "type_alias",
	DeclVariant:   "variant",
	DeclModule:    "module",
	DeclMacro:     "macro",
	DeclConst:     "const",
	DeclStatic:    "static",
	DeclTypeParam: "type_param",
}

func (k DeclKind) String() string {
	if int(k) < len(declKindNames) {
		return declKindNames[k]
	}
	return "unknown"
}

// Decl is a resolved declaration.
type Decl struct {
	Kind DeclKind
	// Name is the binder. It is zero for crate root modules.
	Name syntax.Node
	// Node is the declaring node: the item, field, variant, parameter or,
	// for pattern bindings, the binder itself.
	Node syntax.Node
	// Module is set for DeclModule.
	Module ModuleID
}

// Key identifies the declared entity: the module id for modules, otherwise
// the file range of the binder.
func (d Decl) Key() FileRange {
	if d.Kind == DeclModule {
		return FileRange{File: d.Module.File, Range: d.Module.Decl}
	}
	return FileRange{File: d.Name.File(), Range: d.Name.FileRange()}
}

// Ident returns the declared name.
func (d Decl) Ident() string {
	if d.Name.IsZero() {
		return "crate"
	}
	return d.Name.Text()
}

var itemKinds = map[string]DeclKind{
	"struct_item":             DeclStruct,
	"enum_item":               DeclEnum,
	"union_item":              DeclUnion,
	"trait_item":              DeclTrait,
	"type_item":               DeclTypeAlias,
	"associated_type":         DeclTypeAlias,
	"function_item":           DeclFunction,
	"function_signature_item": DeclFunction,
	"const_item":              DeclConst,
	"static_item":             DeclStatic,
	"mod_item":                DeclModule,
	"macro_definition":        DeclMacro,
	"enum_variant":            DeclVariant,
	"field_declaration":       DeclField,
}

// DeclForBinder classifies a binder node. A binding pattern that names a
// constant, unit struct or enum variant in scope resolves to that item, as
// in `match x { None => .. }`.
func (s *Snapshot) DeclForBinder(n syntax.Node) (Decl, bool) {
	if !syntax.IsName(n) {
		return Decl{}, false
	}
	r := s.newResolver()
	return r.binder(n)
}

// ResolveNameRef resolves a usage node to its declaration.
func (s *Snapshot) ResolveNameRef(n syntax.Node) (Decl, bool) {
	if !syntax.IsNameRef(n) {
		return Decl{}, false
	}
	r := s.newResolver()
	return r.nameRef(n)
}

func (r *resolver) binder(n syntax.Node) (Decl, bool) {
	p := n.Parent()
	if _, ok := itemKinds[p.Kind()]; ok && n.Field() == "name" {
		return r.s.declFromItem(p), true
	}
	switch p.Kind() {
	case "type_parameters", "constrained_type_parameter", "optional_type_parameter", "type_parameter", "const_parameter":
		node := p
		if p.Kind() == "type_parameters" {
			node = n
		}
		return Decl{Kind: DeclTypeParam, Name: n, Node: node}, true
	case "self_parameter":
		return Decl{Kind: DeclLocal, Name: n, Node: p}, true
	}

	if n.Kind() == "identifier" && r.isRefutable(n) {
		if d, ok := r.items(n, n.Text(), nsValue); ok {
			switch d.Kind {
			case DeclConst, DeclStatic, DeclVariant, DeclStruct:
				return d, true
			}
		}
	}
	return Decl{Kind: DeclLocal, Name: n, Node: n}, true
}

// isRefutable reports whether an identifier pattern could name a constant
// instead of introducing a binding.
func (r *resolver) isRefutable(n syntax.Node) bool {
	for cur := n; ; cur = cur.Parent() {
		switch cur.Parent().Kind() {
		case "parameter", "closure_parameters", "self_parameter":
			return false
		case "let_declaration":
			return cur.Kind() != "identifier"
		case "match_pattern", "let_condition", "if_let_expression", "while_let_expression":
			return true
		case "":
			return false
		}
	}
}

func (s *Snapshot) declFromItem(item syntax.Node) Decl {
	kind := itemKinds[item.Kind()]
	d := Decl{Kind: kind, Name: syntax.Name(item), Node: item}
	if kind == DeclModule {
		if id, ok := s.ModuleForDecl(item); ok {
			d.Module = id
		} else {
			d.Module = ModuleID{File: item.File(), Decl: item.Range()}
		}
	}
	return d
}

func (s *Snapshot) declFromModule(id ModuleID) (Decl, bool) {
	m, ok := s.Module(id)
	if !ok {
		return Decl{}, false
	}
	if m.Decl.IsZero() {
		return Decl{Kind: DeclModule, Node: m.Items, Module: id}, true
	}
	return Decl{Kind: DeclModule, Name: syntax.Name(m.Decl), Node: m.Decl, Module: id}, true
}
