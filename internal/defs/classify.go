package defs

import (
	"github.com/jward/refscope/internal/semdb"
	"github.com/jward/refscope/internal/syntax"
)

// ClassifyName returns the definition introduced by a binder node.
func ClassifyName(db *semdb.Snapshot, name syntax.Node) (Definition, bool) {
	d, ok := db.DeclForBinder(name)
	if !ok {
		return nil, false
	}
	return fromDecl(d), true
}

// ClassifyNameRef returns the definition a usage node refers to. It fails
// for names that do not resolve.
func ClassifyNameRef(db *semdb.Snapshot, ref syntax.Node) (Definition, bool) {
	d, ok := db.ResolveNameRef(ref)
	if !ok {
		return nil, false
	}
	return fromDecl(d), true
}

func fromDecl(d semdb.Decl) Definition {
	if d.Kind == semdb.DeclModule {
		return Module{ID: d.Module, Ident: d.Ident()}
	}
	sym := Symbol{
		File:   d.Name.File(),
		Range:  d.Name.FileRange(),
		Ident:  d.Name.Text(),
		binder: d.Name,
		decl:   d.Node,
	}
	switch d.Kind {
	case semdb.DeclLocal:
		return Local{sym}
	case semdb.DeclField:
		return Field{sym}
	case semdb.DeclFunction:
		return Function{sym}
	case semdb.DeclStruct:
		return Struct{sym}
	case semdb.DeclEnum:
		return Enum{sym}
	case semdb.DeclUnion:
		return Union{sym}
	case semdb.DeclTrait:
		return Trait{sym}
	case semdb.DeclTypeAlias:
		return TypeAlias{sym}
	case semdb.DeclVariant:
		return EnumVariant{sym}
	case semdb.DeclMacro:
		return Macro{sym}
	case semdb.DeclConst:
		return Const{sym}
	case semdb.DeclStatic:
		return Static{sym}
	case semdb.DeclTypeParam:
		return TypeParam{sym}
	}
	panic("defs: unhandled declaration kind " + d.Kind.String())
}

type accessVisitor struct{}

func (accessVisitor) Local(Local) bool             { return true }
func (accessVisitor) Field(Field) bool             { return true }
func (accessVisitor) Function(Function) bool       { return false }
func (accessVisitor) Struct(Struct) bool           { return false }
func (accessVisitor) Enum(Enum) bool               { return false }
func (accessVisitor) Union(Union) bool             { return false }
func (accessVisitor) Trait(Trait) bool             { return false }
func (accessVisitor) TypeAlias(TypeAlias) bool     { return false }
func (accessVisitor) EnumVariant(EnumVariant) bool { return false }
func (accessVisitor) Module(Module) bool           { return false }
func (accessVisitor) Macro(Macro) bool             { return false }
func (accessVisitor) Const(Const) bool             { return false }
func (accessVisitor) Static(Static) bool           { return false }
func (accessVisitor) TypeParam(TypeParam) bool     { return false }

// HasAccess reports whether read/write access is meaningful for d. Only
// locals and fields hold values that can be written.
func HasAccess(d Definition) bool {
	return Visit[bool](d, accessVisitor{})
}
