package semdb

import (
	"github.com/jward/refscope/internal/syntax"
)

// typeOf infers the nominal type of an expression. Only what field and
// method resolution needs is covered: paths, field accesses, calls, struct
// literals and references.
func (r *resolver) typeOf(expr syntax.Node) (Decl, bool) {
	if !r.enter() {
		return Decl{}, false
	}
	defer r.leave()

	switch expr.Kind() {
	case "identifier", "self":
		d, ok := r.segment(expr, nsValue)
		if !ok {
			return Decl{}, false
		}
		return r.declType(d)
	case "scoped_identifier":
		d, ok := r.qualified(expr, nsValue)
		if !ok {
			return Decl{}, false
		}
		return r.declType(d)
	case "field_expression":
		base, ok := r.typeOf(expr.ChildByField("value"))
		if !ok {
			return Decl{}, false
		}
		f, ok := r.field(base, expr.ChildByField("field").Text())
		if !ok {
			return Decl{}, false
		}
		return r.declType(f)
	case "call_expression":
		return r.callType(expr.ChildByField("function"))
	case "struct_expression":
		d, ok := r.adtOf(expr.ChildByField("name"))
		if ok && d.Kind == DeclVariant {
			return enumOf(r.s, d)
		}
		return d, ok
	case "reference_expression", "unary_expression", "parenthesized_expression", "try_expression":
		if children := expr.NamedChildren(); len(children) > 0 {
			return r.typeOf(children[len(children)-1])
		}
	case "type_cast_expression":
		return r.typeDecl(expr.ChildByField("type"))
	}
	return Decl{}, false
}

func (r *resolver) callType(fn syntax.Node) (Decl, bool) {
	if fn.Kind() == "field_expression" {
		recv, ok := r.typeOf(fn.ChildByField("value"))
		if !ok {
			return Decl{}, false
		}
		m, ok := r.method(recv, fn.ChildByField("field").Text())
		if !ok {
			return Decl{}, false
		}
		return r.fnReturn(m)
	}
	if fn.Kind() == "generic_function" {
		fn = fn.ChildByField("function")
	}
	var (
		d  Decl
		ok bool
	)
	switch fn.Kind() {
	case "identifier":
		d, ok = r.segment(fn, nsValue)
	case "scoped_identifier":
		d, ok = r.qualified(fn, nsValue)
	}
	if !ok {
		return Decl{}, false
	}
	switch d.Kind {
	case DeclFunction:
		return r.fnReturn(d)
	case DeclStruct:
		return d, true
	case DeclVariant:
		return enumOf(r.s, d)
	}
	return Decl{}, false
}

// declType returns the type of a value declaration.
func (r *resolver) declType(d Decl) (Decl, bool) {
	switch d.Kind {
	case DeclLocal:
		return r.localType(d)
	case DeclConst, DeclStatic, DeclField:
		return r.typeDecl(d.Node.ChildByField("type"))
	case DeclStruct:
		return d, true
	case DeclVariant:
		return enumOf(r.s, d)
	}
	return Decl{}, false
}

func (r *resolver) localType(d Decl) (Decl, bool) {
	if d.Node.Kind() == "self_parameter" {
		return r.selfType(d.Node)
	}
	b := d.Name
	if b.Parent().Kind() == "mut_pattern" {
		b = b.Parent()
	}
	p := b.Parent()
	if b.Field() != "pattern" {
		return Decl{}, false
	}
	switch p.Kind() {
	case "let_declaration":
		if t := p.ChildByField("type"); !t.IsZero() {
			return r.typeDecl(t)
		}
		if v := p.ChildByField("value"); !v.IsZero() {
			return r.typeOf(v)
		}
	case "parameter":
		return r.typeDecl(p.ChildByField("type"))
	}
	return Decl{}, false
}

// typeDecl resolves a type expression to the declaration of its nominal
// type, looking through references, generic arguments and type aliases.
func (r *resolver) typeDecl(t syntax.Node) (Decl, bool) {
	if !r.enter() {
		return Decl{}, false
	}
	defer r.leave()

	var (
		d  Decl
		ok bool
	)
	switch t.Kind() {
	case "reference_type", "pointer_type", "generic_type":
		return r.typeDecl(t.ChildByField("type"))
	case "type_identifier":
		d, ok = r.segment(t, nsType)
	case "scoped_type_identifier":
		d, ok = r.qualified(t, nsType)
	}
	if !ok {
		return Decl{}, false
	}
	switch d.Kind {
	case DeclTypeAlias:
		return r.typeDecl(d.Node.ChildByField("type"))
	case DeclStruct, DeclEnum, DeclUnion, DeclTrait, DeclTypeParam:
		return d, true
	}
	return Decl{}, false
}

// adtOf resolves the path naming a struct literal or struct pattern to a
// struct, union or enum variant.
func (r *resolver) adtOf(name syntax.Node) (Decl, bool) {
	var (
		d  Decl
		ok bool
	)
	switch name.Kind() {
	case "type_identifier", "identifier":
		d, ok = r.segment(name, nsType)
	case "scoped_type_identifier", "scoped_identifier":
		d, ok = r.qualified(name, nsType)
	case "generic_type", "generic_type_with_turbofish":
		return r.adtOf(name.ChildByField("type"))
	}
	if !ok {
		return Decl{}, false
	}
	switch d.Kind {
	case DeclStruct, DeclUnion, DeclVariant:
		return d, true
	case DeclTypeAlias:
		return r.typeDecl(d.Node.ChildByField("type"))
	}
	return Decl{}, false
}

func (r *resolver) fnReturn(f Decl) (Decl, bool) {
	if f.Kind != DeclFunction {
		return Decl{}, false
	}
	rt := f.Node.ChildByField("return_type")
	if rt.IsZero() {
		return Decl{}, false
	}
	return r.typeDecl(rt)
}

func enumOf(s *Snapshot, v Decl) (Decl, bool) {
	item := v.Node.Parent().Parent()
	if item.Kind() != "enum_item" {
		return Decl{}, false
	}
	return s.declFromItem(item), true
}

// field finds a named field of a struct, union or record variant.
func (r *resolver) field(typ Decl, name string) (Decl, bool) {
	switch typ.Kind {
	case DeclStruct, DeclUnion, DeclVariant:
	default:
		return Decl{}, false
	}
	for _, f := range typ.Node.ChildByField("body").NamedChildren() {
		if f.Kind() == "field_declaration" && syntax.Name(f).Text() == name {
			return r.s.declFromItem(f), true
		}
	}
	return Decl{}, false
}

func (r *resolver) method(typ Decl, name string) (Decl, bool) {
	d, ok := r.assoc(typ, name)
	if !ok || d.Kind != DeclFunction {
		return Decl{}, false
	}
	return d, true
}

// assoc finds an associated item of a type: first in its inherent and
// trait impls, then among the default items of the traits it implements.
func (r *resolver) assoc(typ Decl, name string) (Decl, bool) {
	if typ.Kind == DeclTrait {
		return r.itemIn(typ.Node.ChildByField("body"), name, nsAny)
	}
	if r.noImpls {
		return Decl{}, false
	}
	impls := r.s.implsFor(typ)
	for _, impl := range impls {
		if d, ok := r.itemIn(impl.node.ChildByField("body"), name, nsAny); ok {
			return d, true
		}
	}
	for _, impl := range impls {
		if !impl.hasTrait {
			continue
		}
		if d, ok := r.itemIn(impl.trait.Node.ChildByField("body"), name, nsAny); ok {
			return d, true
		}
	}
	return Decl{}, false
}

type implEntry struct {
	node     syntax.Node
	trait    Decl
	hasTrait bool
}

type implIndex struct {
	byType map[FileRange][]implEntry
}

func (s *Snapshot) implsFor(typ Decl) []implEntry {
	s.implsOnce.Do(func() { s.impls = s.buildImpls() })
	return s.impls.byType[typ.Key()]
}

// buildImpls indexes every impl block of the snapshot by the type it
// implements.
func (s *Snapshot) buildImpls() *implIndex {
	idx := &implIndex{byType: make(map[FileRange][]implEntry)}
	r := s.newResolver()
	r.noImpls = true
	for _, id := range s.order {
		for n := range s.files[id].tree.Nodes() {
			if n.Kind() != "impl_item" {
				continue
			}
			typ, ok := r.typeDecl(n.ChildByField("type"))
			if !ok {
				continue
			}
			e := implEntry{node: n}
			if tr := n.ChildByField("trait"); !tr.IsZero() {
				if d, ok := r.typeDecl(tr); ok && d.Kind == DeclTrait {
					e.trait, e.hasTrait = d, true
				}
			}
			idx.byType[typ.Key()] = append(idx.byType[typ.Key()], e)
		}
	}
	return idx
}

// macroByName finds a macro_rules definition anywhere in the snapshot.
// Textual macro scoping crosses module boundaries, so this is the fallback
// when scope lookup fails.
func (s *Snapshot) macroByName(name string) (Decl, bool) {
	s.macrosOnce.Do(func() {
		s.macros = make(map[string][]syntax.Node)
		for _, id := range s.order {
			for n := range s.files[id].tree.Nodes() {
				if n.Kind() == "macro_definition" {
					name := syntax.Name(n).Text()
					s.macros[name] = append(s.macros[name], n)
				}
			}
		}
	})
	defs := s.macros[name]
	if len(defs) == 0 {
		return Decl{}, false
	}
	return s.declFromItem(defs[0]), true
}
