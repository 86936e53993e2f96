package semdb

import (
	"github.com/jward/refscope/internal/syntax"
)

type namespace uint8

const (
	nsAny namespace = iota
	nsType
	nsValue
	nsMacro
)

func (k DeclKind) in(ns namespace) bool {
	switch ns {
	case nsType:
		switch k {
		case DeclStruct, DeclEnum, DeclUnion, DeclTrait, DeclTypeAlias, DeclModule, DeclTypeParam:
			return true
		}
		return false
	case nsValue:
		switch k {
		case DeclLocal, DeclFunction, DeclConst, DeclStatic, DeclStruct, DeclVariant:
			return true
		}
		return false
	case nsMacro:
		return k == DeclMacro
	}
	return true
}

// maxDepth bounds recursive resolution through imports, aliases and
// inferred types.
const maxDepth = 48

// resolver carries the state of one resolution. It is not safe for
// concurrent use; every query creates its own.
type resolver struct {
	s     *Snapshot
	depth int
	// noImpls disables associated item lookup while the impl index is
	// being built.
	noImpls bool
	active  map[nodeKey]bool
	globs   map[ModuleID]bool
}

func (s *Snapshot) newResolver() *resolver {
	return &resolver{s: s, active: make(map[nodeKey]bool), globs: make(map[ModuleID]bool)}
}

func (r *resolver) enter() bool {
	if r.depth >= maxDepth {
		return false
	}
	r.depth++
	return true
}

func (r *resolver) leave() { r.depth-- }

func isScopedPath(n syntax.Node) bool {
	k := n.Kind()
	return k == "scoped_identifier" || k == "scoped_type_identifier"
}

func isCallee(n syntax.Node) bool {
	return n.Field() == "function" && n.Parent().Kind() == "call_expression"
}

// inUse reports whether n is part of a use declaration's tree.
func inUse(n syntax.Node) bool {
	for cur := n.Parent(); !cur.IsZero(); cur = cur.Parent() {
		switch cur.Kind() {
		case "use_declaration":
			return true
		case "scoped_identifier", "scoped_use_list", "use_list", "use_as_clause", "use_wildcard":
		default:
			return false
		}
	}
	return false
}

// nsFor picks the namespace a path node is looked up in first.
func nsFor(n syntax.Node) namespace {
	p := n.Parent()
	switch {
	case n.Field() == "path":
		return nsType
	case n.Kind() == "type_identifier", n.Kind() == "scoped_type_identifier":
		return nsType
	case n.Field() == "macro" && p.Kind() == "macro_invocation":
		return nsMacro
	case n.Field() == "type" && (p.Kind() == "tuple_struct_pattern" || p.Kind() == "struct_pattern"):
		return nsAny
	}
	return nsValue
}

func (r *resolver) nameRef(n syntax.Node) (Decl, bool) {
	if !r.enter() {
		return Decl{}, false
	}
	defer r.leave()

	p := n.Parent()
	name := n.Text()
	switch {
	case p.Kind() == "field_expression" && n.Field() == "field":
		recv, ok := r.typeOf(p.ChildByField("value"))
		if !ok {
			return Decl{}, false
		}
		if isCallee(p) {
			return r.method(recv, name)
		}
		if d, ok := r.field(recv, name); ok {
			return d, true
		}
		return r.method(recv, name)
	case p.Kind() == "field_initializer" && n.Field() == "field":
		typ, ok := r.adtOf(p.Parent().Parent().ChildByField("name"))
		if !ok {
			return Decl{}, false
		}
		return r.field(typ, name)
	case p.Kind() == "field_pattern" && n.Field() == "name":
		typ, ok := r.adtOf(p.Parent().ChildByField("type"))
		if !ok {
			return Decl{}, false
		}
		return r.field(typ, name)
	case p.Kind() == "macro_invocation" && n.Field() == "macro":
		return r.scope(n, name, nsMacro)
	case inUse(n):
		if n.Field() == "name" && p.Kind() == "scoped_identifier" {
			return r.useNode(p, nsAny)
		}
		return r.useNode(n, nsAny)
	}
	return r.path(n)
}

// path resolves the last segment n of a path, qualified or not.
func (r *resolver) path(n syntax.Node) (Decl, bool) {
	if p := n.Parent(); n.Field() == "name" && isScopedPath(p) {
		return r.qualified(p, nsFor(p))
	}
	return r.segment(n, nsFor(n))
}

// qualified resolves a scoped path `a::b` as a whole.
func (r *resolver) qualified(p syntax.Node, ns namespace) (Decl, bool) {
	if !r.enter() {
		return Decl{}, false
	}
	defer r.leave()

	var q Decl
	if qual := p.ChildByField("path"); qual.IsZero() {
		root, ok := r.crateRoot(p)
		if !ok {
			return Decl{}, false
		}
		q = root
	} else {
		d, ok := r.qualifier(qual)
		if !ok {
			return Decl{}, false
		}
		q = d
	}
	return r.member(q, p.ChildByField("name").Text(), ns)
}

// qualifier resolves the path in front of a `::`.
func (r *resolver) qualifier(n syntax.Node) (Decl, bool) {
	switch n.Kind() {
	case "scoped_identifier", "scoped_type_identifier":
		return r.qualified(n, nsType)
	case "generic_type":
		return r.qualifier(n.ChildByField("type"))
	case "identifier", "type_identifier", "self", "super", "crate":
		return r.segment(n, nsType)
	}
	return Decl{}, false
}

// segment resolves a single path segment in the scope around it.
func (r *resolver) segment(n syntax.Node, ns namespace) (Decl, bool) {
	switch n.Kind() {
	case "self":
		if n.Field() == "path" {
			return r.currentModule(n)
		}
		return r.local(n, "self")
	case "super":
		mid, ok := r.s.ModuleOf(n)
		if !ok {
			return Decl{}, false
		}
		parent, ok := r.s.ParentModule(mid)
		if !ok {
			return Decl{}, false
		}
		return r.s.declFromModule(parent)
	case "crate":
		return r.crateRoot(n)
	}
	name := n.Text()
	if name == "Self" {
		return r.selfType(n)
	}
	return r.scope(n, name, ns)
}

func (r *resolver) currentModule(n syntax.Node) (Decl, bool) {
	mid, ok := r.s.ModuleOf(n)
	if !ok {
		return Decl{}, false
	}
	return r.s.declFromModule(mid)
}

func (r *resolver) crateRoot(n syntax.Node) (Decl, bool) {
	mid, ok := r.s.ModuleOf(n)
	if !ok {
		return Decl{}, false
	}
	return r.s.declFromModule(r.s.CrateRoot(mid))
}

func (r *resolver) scope(n syntax.Node, name string, ns namespace) (Decl, bool) {
	if ns == nsValue || ns == nsAny {
		if d, ok := r.local(n, name); ok {
			return d, true
		}
	}
	if d, ok := r.items(n, name, ns); ok {
		return d, true
	}
	if ns == nsMacro {
		return r.s.macroByName(name)
	}
	return Decl{}, false
}

// local finds the pattern binding of name visible at n.
func (r *resolver) local(n syntax.Node, name string) (Decl, bool) {
	prev := n
	for cur := n.OuterParent(); !cur.IsZero(); prev, cur = cur, cur.OuterParent() {
		var b syntax.Node
		switch cur.Kind() {
		case "block":
			children := cur.NamedChildren()
			for i := len(children) - 1; i >= 0 && b.IsZero(); i-- {
				c := children[i]
				if c.Kind() == "let_declaration" && c.Range().End <= prev.Range().Start {
					b = bindingIn(c.ChildByField("pattern"), name)
				}
			}
		case "closure_expression":
			if prev.Field() == "body" {
				b = bindingIn(cur.ChildByField("parameters"), name)
			}
		case "function_item":
			if prev.Field() != "body" {
				return Decl{}, false
			}
			for _, param := range cur.ChildByField("parameters").NamedChildren() {
				switch param.Kind() {
				case "self_parameter":
					if name == "self" {
						return Decl{Kind: DeclLocal, Name: param.ChildOfKind("self"), Node: param}, true
					}
				case "parameter":
					b = bindingIn(param.ChildByField("pattern"), name)
				}
				if !b.IsZero() {
					break
				}
			}
			if b.IsZero() {
				return Decl{}, false
			}
		case "for_expression":
			if prev.Field() == "body" {
				b = bindingIn(cur.ChildByField("pattern"), name)
			}
		case "match_arm":
			if prev.Field() == "value" {
				b = bindingIn(cur.ChildByField("pattern"), name)
			}
		case "match_pattern":
			if prev.Field() == "condition" {
				b = bindingIn(cur, name)
			}
		case "if_expression":
			if prev.Field() == "consequence" {
				b = letBinding(cur.ChildByField("condition"), name)
			}
		case "while_expression":
			if prev.Field() == "body" {
				b = letBinding(cur.ChildByField("condition"), name)
			}
		case "let_chain":
			for _, c := range cur.NamedChildren() {
				if c.Kind() == "let_condition" && c.Range().End <= prev.Range().Start {
					if found := bindingIn(c.ChildByField("pattern"), name); !found.IsZero() {
						b = found
					}
				}
			}
		case "if_let_expression", "while_let_expression":
			if prev.Field() == "consequence" || prev.Field() == "body" {
				b = bindingIn(cur.ChildByField("pattern"), name)
			}
		case "source_file", "mod_item", "impl_item", "trait_item":
			return Decl{}, false
		}
		if !b.IsZero() {
			return r.binder(b)
		}
	}
	return Decl{}, false
}

func letBinding(cond syntax.Node, name string) syntax.Node {
	switch cond.Kind() {
	case "let_condition":
		return bindingIn(cond.ChildByField("pattern"), name)
	case "let_chain":
		var found syntax.Node
		for _, c := range cond.NamedChildren() {
			if c.Kind() == "let_condition" {
				if b := bindingIn(c.ChildByField("pattern"), name); !b.IsZero() {
					found = b
				}
			}
		}
		return found
	}
	return syntax.Node{}
}

// bindingIn returns the first binder called name inside a pattern.
func bindingIn(pat syntax.Node, name string) syntax.Node {
	if pat.IsZero() {
		return syntax.Node{}
	}
	stack := []syntax.Node{pat}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n.Text() == name && syntax.IsName(n) {
			return n
		}
		children := n.Children()
		for i := len(children) - 1; i >= 0; i-- {
			if children[i].Field() != "condition" {
				stack = append(stack, children[i])
			}
		}
	}
	return syntax.Node{}
}

// items finds an item called name in the blocks, generic parameter lists
// and module around n.
func (r *resolver) items(n syntax.Node, name string, ns namespace) (Decl, bool) {
	for cur := range n.OuterAncestors() {
		switch cur.Kind() {
		case "block":
			if d, ok := r.itemIn(cur, name, ns); ok {
				return d, true
			}
		case "function_item", "function_signature_item", "struct_item", "enum_item", "union_item",
			"trait_item", "impl_item", "type_item":
			if ns == nsMacro {
				continue
			}
			if d, ok := r.typeParam(cur, name); ok {
				return d, true
			}
		case "declaration_list":
			if cur.Parent().Kind() != "mod_item" {
				continue
			}
			fallthrough
		case "source_file":
			mid, ok := r.s.ModuleOf(cur)
			if !ok {
				return Decl{}, false
			}
			return r.inModule(mid, name, ns)
		}
	}
	return Decl{}, false
}

// itemIn looks for a named item among the direct children of container,
// preferring one in namespace ns.
func (r *resolver) itemIn(container syntax.Node, name string, ns namespace) (Decl, bool) {
	var fallback Decl
	found := false
	for _, c := range container.NamedChildren() {
		if !syntax.IsItem(c) || syntax.Name(c).Text() != name {
			continue
		}
		d := r.s.declFromItem(c)
		if d.Kind.in(ns) {
			return d, true
		}
		if !found && ns != nsMacro && d.Kind != DeclMacro {
			fallback, found = d, true
		}
	}
	return fallback, found
}

func (r *resolver) typeParam(item syntax.Node, name string) (Decl, bool) {
	for _, p := range item.ChildByField("type_parameters").NamedChildren() {
		var b syntax.Node
		switch p.Kind() {
		case "type_identifier":
			b = p
		case "constrained_type_parameter":
			b = p.ChildByField("left")
		case "optional_type_parameter", "type_parameter", "const_parameter":
			b = p.ChildByField("name")
		}
		if !b.IsZero() && b.Text() == name {
			return r.binder(b)
		}
	}
	return Decl{}, false
}

// selfType resolves `Self` at n.
func (r *resolver) selfType(n syntax.Node) (Decl, bool) {
	for cur := range n.OuterAncestors() {
		switch cur.Kind() {
		case "impl_item":
			return r.typeDecl(cur.ChildByField("type"))
		case "trait_item", "struct_item", "enum_item", "union_item":
			return r.s.declFromItem(cur), true
		}
	}
	return Decl{}, false
}

// member resolves name inside the namespace of q: a module's items, an
// enum's variants or a type's associated items.
func (r *resolver) member(q Decl, name string, ns namespace) (Decl, bool) {
	switch q.Kind {
	case DeclModule:
		switch name {
		case "self":
			return q, true
		case "super":
			parent, ok := r.s.ParentModule(q.Module)
			if !ok {
				return Decl{}, false
			}
			return r.s.declFromModule(parent)
		}
		return r.inModule(q.Module, name, ns)
	case DeclEnum:
		if d, ok := variant(r.s, q, name); ok {
			return d, true
		}
		return r.assoc(q, name)
	case DeclStruct, DeclUnion, DeclTrait:
		return r.assoc(q, name)
	case DeclTypeAlias:
		t, ok := r.typeDecl(q.Node.ChildByField("type"))
		if !ok {
			return Decl{}, false
		}
		return r.member(t, name, ns)
	}
	return Decl{}, false
}

func variant(s *Snapshot, enum Decl, name string) (Decl, bool) {
	for _, v := range enum.Node.ChildByField("body").NamedChildren() {
		if v.Kind() == "enum_variant" && syntax.Name(v).Text() == name {
			return s.declFromItem(v), true
		}
	}
	return Decl{}, false
}

// inModule resolves name among a module's items, imports and glob imports.
func (r *resolver) inModule(mid ModuleID, name string, ns namespace) (Decl, bool) {
	if !r.enter() {
		return Decl{}, false
	}
	defer r.leave()

	m, ok := r.s.Module(mid)
	if !ok {
		return Decl{}, false
	}
	if d, ok := r.itemIn(m.Items, name, ns); ok {
		return d, true
	}

	var globs []syntax.Node
	for _, c := range m.Items.NamedChildren() {
		if c.Kind() != "use_declaration" {
			continue
		}
		for _, b := range useBindings(c.ChildByField("argument"), nil) {
			if b.glob {
				globs = append(globs, b.node)
				continue
			}
			if b.name != name || r.active[keyOf(b.node)] {
				continue
			}
			r.active[keyOf(b.node)] = true
			d, ok := r.useNode(b.node, ns)
			delete(r.active, keyOf(b.node))
			if ok {
				return d, true
			}
		}
	}

	if r.globs[mid] {
		return Decl{}, false
	}
	r.globs[mid] = true
	defer delete(r.globs, mid)
	for _, g := range globs {
		target, ok := r.useNode(g, nsType)
		if !ok {
			continue
		}
		switch target.Kind {
		case DeclModule:
			if d, ok := r.inModule(target.Module, name, ns); ok {
				return d, true
			}
		case DeclEnum:
			if d, ok := variant(r.s, target, name); ok {
				return d, true
			}
		}
	}
	return Decl{}, false
}

type useBinding struct {
	name string
	node syntax.Node
	glob bool
}

// useBindings lists the names a use tree brings into scope, each with the
// path node that resolves it.
func useBindings(n syntax.Node, out []useBinding) []useBinding {
	switch n.Kind() {
	case "identifier", "crate", "super":
		out = append(out, useBinding{name: n.Text(), node: n})
	case "self":
		name := "self"
		if n.Parent().Kind() == "use_list" {
			if path := n.Parent().Parent().ChildByField("path"); !path.IsZero() {
				name = lastSegment(path).Text()
			}
		}
		out = append(out, useBinding{name: name, node: n})
	case "scoped_identifier":
		out = append(out, useBinding{name: n.ChildByField("name").Text(), node: n})
	case "use_as_clause":
		out = append(out, useBinding{name: n.ChildByField("alias").Text(), node: n.ChildByField("path")})
	case "scoped_use_list":
		out = useBindings(n.ChildByField("list"), out)
	case "use_list":
		for _, c := range n.NamedChildren() {
			out = useBindings(c, out)
		}
	case "use_wildcard":
		if children := n.NamedChildren(); len(children) > 0 {
			out = append(out, useBinding{node: children[0], glob: true})
		}
	}
	return out
}

func lastSegment(path syntax.Node) syntax.Node {
	if isScopedPath(path) {
		return path.ChildByField("name")
	}
	return path
}

// useNode resolves a path node of a use tree, taking the prefix of any
// enclosing `{..}` list into account.
func (r *resolver) useNode(n syntax.Node, ns namespace) (Decl, bool) {
	if !r.enter() {
		return Decl{}, false
	}
	defer r.leave()

	switch n.Kind() {
	case "scoped_identifier":
		var q Decl
		if qual := n.ChildByField("path"); qual.IsZero() {
			d, ok := r.crateRoot(n)
			if !ok {
				return Decl{}, false
			}
			q = d
		} else {
			d, ok := r.useNode(qual, nsType)
			if !ok {
				return Decl{}, false
			}
			q = d
		}
		return r.member(q, n.ChildByField("name").Text(), ns)
	case "identifier", "self", "super", "crate":
		top := n
		for top.Field() == "path" && top.Parent().Kind() == "scoped_identifier" {
			top = top.Parent()
		}
		if prefix, ok, has := r.usePrefix(top); has {
			if !ok {
				return Decl{}, false
			}
			return r.member(prefix, n.Text(), ns)
		}
		return r.firstSegment(n, ns)
	}
	return Decl{}, false
}

// usePrefix resolves the path of the scoped use list enclosing top. has is
// false when top is not inside a list.
func (r *resolver) usePrefix(top syntax.Node) (d Decl, ok bool, has bool) {
	cur := top
	for {
		p := cur.Parent()
		switch p.Kind() {
		case "use_as_clause", "use_wildcard", "scoped_use_list":
			cur = p
		case "use_list":
			list := p.Parent()
			if list.Kind() != "scoped_use_list" {
				return Decl{}, false, false
			}
			path := list.ChildByField("path")
			if path.IsZero() {
				d, ok := r.crateRoot(list)
				return d, ok, true
			}
			d, ok := r.useNode(path, nsType)
			return d, ok, true
		default:
			return Decl{}, false, false
		}
	}
}

// firstSegment resolves the leading segment of an import: a keyword, an
// item of the current module or an item of the crate root.
func (r *resolver) firstSegment(n syntax.Node, ns namespace) (Decl, bool) {
	switch n.Kind() {
	case "self":
		return r.currentModule(n)
	case "super":
		return r.segment(n, ns)
	case "crate":
		return r.crateRoot(n)
	}
	mid, ok := r.s.ModuleOf(n)
	if !ok {
		return Decl{}, false
	}
	if d, ok := r.inModule(mid, n.Text(), ns); ok {
		return d, true
	}
	if root := r.s.CrateRoot(mid); root != mid {
		return r.inModule(root, n.Text(), ns)
	}
	return Decl{}, false
}
