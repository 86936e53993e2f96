// Package defs defines the closed set of referenceable definitions and the
// classifier that maps binder and usage nodes to them.
package defs

import (
	"fmt"

	"github.com/jward/refscope/internal/semdb"
	"github.com/jward/refscope/internal/syntax"
)

// Definition is a declared entity. Values are comparable: two definitions
// are equal exactly when they denote the same entity of one snapshot.
type Definition interface {
	Name() string
	Kind() string
	isDefinition()
}

// Symbol is the identity shared by every definition except modules: the
// file and range of the binder.
type Symbol struct {
	File  syntax.FileID
	Range syntax.TextRange
	Ident string

	binder syntax.Node
	decl   syntax.Node
}

func (s Symbol) Name() string { return s.Ident }

// Binder returns the node introducing the name.
func (s Symbol) Binder() syntax.Node { return s.binder }

// Decl returns the declaring node: the item, field, variant or parameter.
// For pattern bindings it is the binder.
func (s Symbol) Decl() syntax.Node { return s.decl }

func (s Symbol) isDefinition() {}

type (
	Local       struct{ Symbol }
	Field       struct{ Symbol }
	Function    struct{ Symbol }
	Struct      struct{ Symbol }
	Enum        struct{ Symbol }
	Union       struct{ Symbol }
	Trait       struct{ Symbol }
	TypeAlias   struct{ Symbol }
	EnumVariant struct{ Symbol }
	Macro       struct{ Symbol }
	Const       struct{ Symbol }
	Static      struct{ Symbol }
	TypeParam   struct{ Symbol }
)

func (Local) Kind() string       { return "local" }
func (Field) Kind() string       { return "field" }
func (Function) Kind() string    { return "function" }
func (Struct) Kind() string      { return "struct" }
func (Enum) Kind() string        { return "enum" }
func (Union) Kind() string       { return "union" }
func (Trait) Kind() string       { return "trait" }
func (TypeAlias) Kind() string   { return "type_alias" }
func (EnumVariant) Kind() string { return "variant" }
func (Macro) Kind() string       { return "macro" }
func (Const) Kind() string       { return "const" }
func (Static) Kind() string      { return "static" }
func (TypeParam) Kind() string   { return "type_param" }

// Module is a module, identified by its module tree id.
type Module struct {
	ID    semdb.ModuleID
	Ident string
}

func (m Module) Name() string { return m.Ident }
func (Module) Kind() string   { return "module" }
func (Module) isDefinition()  {}

// Visitor handles every kind of definition. Adding a kind adds a method,
// so every visitor must handle it.
type Visitor[T any] interface {
	Local(Local) T
	Field(Field) T
	Function(Function) T
	Struct(Struct) T
	Enum(Enum) T
	Union(Union) T
	Trait(Trait) T
	TypeAlias(TypeAlias) T
	EnumVariant(EnumVariant) T
	Module(Module) T
	Macro(Macro) T
	Const(Const) T
	Static(Static) T
	TypeParam(TypeParam) T
}

// Visit dispatches d to the matching method of v.
func Visit[T any](d Definition, v Visitor[T]) T {
	switch d := d.(type) {
	case Local:
		return v.Local(d)
	case Field:
		return v.Field(d)
	case Function:
		return v.Function(d)
	case Struct:
		return v.Struct(d)
	case Enum:
		return v.Enum(d)
	case Union:
		return v.Union(d)
	case Trait:
		return v.Trait(d)
	case TypeAlias:
		return v.TypeAlias(d)
	case EnumVariant:
		return v.EnumVariant(d)
	case Module:
		return v.Module(d)
	case Macro:
		return v.Macro(d)
	case Const:
		return v.Const(d)
	case Static:
		return v.Static(d)
	case TypeParam:
		return v.TypeParam(d)
	}
	panic(fmt.Sprintf("defs: unknown definition %T", d))
}

// SymbolOf returns the symbol behind a definition. Modules have none.
func SymbolOf(d Definition) (Symbol, bool) {
	switch d := d.(type) {
	case Local:
		return d.Symbol, true
	case Field:
		return d.Symbol, true
	case Function:
		return d.Symbol, true
	case Struct:
		return d.Symbol, true
	case Enum:
		return d.Symbol, true
	case Union:
		return d.Symbol, true
	case Trait:
		return d.Symbol, true
	case TypeAlias:
		return d.Symbol, true
	case EnumVariant:
		return d.Symbol, true
	case Macro:
		return d.Symbol, true
	case Const:
		return d.Symbol, true
	case Static:
		return d.Symbol, true
	case TypeParam:
		return d.Symbol, true
	}
	return Symbol{}, false
}
