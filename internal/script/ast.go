// Package script parses and interprets the small statement language shared by
// template build scripts and compiled modules. Expressions inside statements
// are expr-lang expressions.
package script

import "github.com/expr-lang/expr/vm"

// File is a parsed module.
type File struct {
	Body  []Stmt
	exprs []*Expr
}

// Stmt is a statement node.
type Stmt interface {
	// Span returns the byte range of the statement in the source.
	Span() (start, end int)
	stmt()
}

// Expr is one expr-lang expression captured from the source.
type Expr struct {
	// Src is the expression text with comments removed.
	Src string
	// Pos is the byte offset of the expression in the module source.
	Pos int

	program *vm.Program
}

type span struct{ Start, End int }

func (s span) Span() (int, int) { return s.Start, s.End }

// BindingKind classifies an import binding.
type BindingKind int

const (
	// DefaultBinding is `import Name from "x"`.
	DefaultBinding BindingKind = iota
	// NamespaceBinding is `import * as ns from "x"`.
	NamespaceBinding
	// NamedBinding is `import { a as b } from "x"`.
	NamedBinding
)

func (k BindingKind) String() string {
	switch k {
	case NamespaceBinding:
		return "namespace"
	case NamedBinding:
		return "named"
	default:
		return "default"
	}
}

// Binding is one name introduced by an import.
type Binding struct {
	Kind BindingKind
	// Imported is the exported name for named bindings.
	Imported string
	// Local is the name visible to the module.
	Local string
}

// Import is a static import statement.
type Import struct {
	Specifier  string
	Bindings   []Binding
	SideEffect bool
	TypeOnly   bool
	// Source is the statement exactly as written.
	Source string
	Start  int
	End    int
}

// ImportDecl is an import statement.
type ImportDecl struct {
	span
	Import Import
}

// Target is a declared name, optionally destructured from an object key.
type Target struct {
	Key     string
	Local   string
	Default *Expr
}

// VarDecl is a const, let or var declaration.
type VarDecl struct {
	span
	Kind string
	Name string
	// Pattern holds object destructuring targets, in which case Name is empty.
	Pattern []Target
	Value   *Expr
}

// Assign is `name = value` or `name += value`.
type Assign struct {
	span
	Name  string
	Op    string
	Value *Expr
}

// IfStmt is a conditional. An else-if chain nests in Else.
type IfStmt struct {
	span
	Cond *Expr
	Then []Stmt
	Else []Stmt
}

// ForOf is `for (const name of iterable) { ... }`.
type ForOf struct {
	span
	Name string
	Iter *Expr
	Body []Stmt
}

// FuncDecl is a function declaration.
type FuncDecl struct {
	span
	Name     string
	Params   []string
	Body     []Stmt
	Async    bool
	Exported bool
	Default  bool
}

// Return returns from the enclosing function. Value may be nil.
type Return struct {
	span
	Value *Expr
}

// Block is a braced statement list with its own scope.
type Block struct {
	span
	Body []Stmt
}

// ExprStmt evaluates an expression for its side effects.
type ExprStmt struct {
	span
	X *Expr
}

func (*ImportDecl) stmt() {}
func (*VarDecl) stmt()    {}
func (*Assign) stmt()     {}
func (*IfStmt) stmt()     {}
func (*ForOf) stmt()      {}
func (*FuncDecl) stmt()   {}
func (*Return) stmt()     {}
func (*Block) stmt()      {}
func (*ExprStmt) stmt()   {}
