// Package ast defines the abstract syntax tree shared by the parser,
// lowering pass, type checker, and code generator.
//
// Every node is a plain struct; the tree is built once by the parser and is
// read-only from lowering onward except for the controlled replacement of
// whole subtrees with new node values (never in-place field mutation of a
// shared node).
package ast

// Program is an ordered list of modules, in load order: the entry file
// first, then each imported file in the order it was first discovered.
type Program struct {
	Mods []*Module
}

// Module is one parsed source file.
type Module struct {
	Path    string // absolute source path
	Imports []*Import
	Decls   []Decl
}

// Import is a `bring NAME[.e];` declaration. Name is always normalized to
// the bare module name (no ".e" suffix).
type Import struct {
	Name string
	Line int
	Col  int
}

// Decl is the interface implemented by every top-level declaration node:
// *FunDecl, *EntryDecl, *ClassDecl, *ConstDecl.
type Decl interface{ declNode() }

func (*FunDecl) declNode()   {}
func (*EntryDecl) declNode() {}
func (*ClassDecl) declNode() {}
func (*ConstDecl) declNode() {}

// TypeRef is the interface implemented by the two surface type-annotation
// forms: *TypeName and *TypeArray.
type TypeRef interface{ typeRefNode() }

func (*TypeName) typeRefNode()  {}
func (*TypeArray) typeRefNode() {}

// TypeName is a bare or dotted type annotation, e.g. `num`, `string`,
// `mymod.Box`. Nullable is set when the annotation was written `T?`.
type TypeName struct {
	Name     string
	Nullable bool
	Line     int
	Col      int
}

// TypeArray is `[T]`.
type TypeArray struct {
	Elem     TypeRef
	Nullable bool
	Line     int
	Col      int
}

// RetSpec is the `(( T ))` / `(( -- ))` / `(( T, U ))` return spec attached
// to a function, method, or entry declaration. Void is true for `(( -- ))`;
// otherwise Types holds one or more return type annotations (more than one
// means the function returns a tuple; the checker turns them into a single
// tuple type, not a TypeRef).
type RetSpec struct {
	Void  bool
	Types []TypeRef
	Line  int
	Col   int
}

// Param is one function/method parameter. IsThis/IsMut describe the
// `this`/`?this` receiver marker; Typ is nil for the receiver parameter and
// for lambda parameters without an annotation.
type Param struct {
	Name   string
	Typ    TypeRef
	IsMut  bool
	IsThis bool
	Line   int
	Col    int
}

// FunDecl is a free (module-level) function declaration.
type FunDecl struct {
	Name   string
	Params []*Param
	Ret    *RetSpec
	Body   *Block
	Line   int
	Col    int
}

// ConstDecl is a module-level `const NAME = expr;` declaration. Permitted
// only in the stdr and math modules (enforced by the global env builder).
type ConstDecl struct {
	Name string
	Expr Expr
	Line int
	Col  int
}

// EntryDecl is the program's single entry point, `entry() (( -- )) { ... }`.
type EntryDecl struct {
	Ret  *RetSpec
	Body *Block
	Line int
	Col  int
}

// FieldDecl is one typed field in a class body.
type FieldDecl struct {
	Name string
	Typ  TypeRef
	Line int
	Col  int
}

// Visibility is a class's visibility tag.
type Visibility int

const (
	VisPriv Visibility = iota // absent modifier
	VisPub
	VisLock
)

// ClassDecl is a class declaration.
type ClassDecl struct {
	Name    string
	Vis     Visibility
	IsSeal  bool
	Fields  []*FieldDecl
	Methods []*FunDecl
	Line    int
	Col     int
}

// Stmt is the interface implemented by every statement node.
type Stmt interface{ stmtNode() }

func (*Block) stmtNode()      {}
func (*LetStmt) stmtNode()    {}
func (*ConstStmt) stmtNode()  {}
func (*IfStmt) stmtNode()     {}
func (*ForStmt) stmtNode()    {}
func (*ForEachStmt) stmtNode() {}
func (*ReturnStmt) stmtNode() {}
func (*ExprStmt) stmtNode()   {}

// Block is a brace-delimited statement sequence; it also serves as the
// wrapped body of an if/elif/else/for arm written as a colon-prefixed single
// statement (the parser performs that wrapping). Function, method and entry
// bodies are always brace blocks.
type Block struct {
	Stmts []Stmt
	Line  int
	Col   int
}

// LetStmt is `let [?]name = expr;`.
type LetStmt struct {
	Name  string
	IsMut bool
	Expr  Expr
	Line  int
	Col   int
}

// ConstStmt is `const name = expr;` at statement level (inside a body).
type ConstStmt struct {
	Name string
	Expr Expr
	Line int
	Col  int
}

// IfArm is one `if`/`elif`/`else` arm. Cond is nil for a trailing `else`.
type IfArm struct {
	Cond Expr
	Body *Block
	Line int
	Col  int
}

// IfStmt is a full if/elif*/else? chain.
type IfStmt struct {
	Arms []*IfArm
	Line int
	Col  int
}

// ForStmt is the C-style `for(init; cond; step) body`. Any of Init/Cond/Step
// may be nil.
type ForStmt struct {
	Init Stmt
	Cond Expr
	Step Stmt
	Body *Block
	Line int
	Col  int
}

// ForEachStmt is `for (name in expr) body`.
type ForEachStmt struct {
	Name string
	Expr Expr
	Body *Block
	Line int
	Col  int
}

// ReturnStmt is `return [expr];`. Expr is nil for a bare `return;` in void
// context.
type ReturnStmt struct {
	Expr Expr
	Line int
	Col  int
}

// ExprStmt is an expression evaluated for its side effects.
type ExprStmt struct {
	Expr Expr
	Line int
	Col  int
}

// Expr is the interface implemented by every expression node.
type Expr interface{ exprNode() }

func (*IntLit) exprNode()     {}
func (*FloatLit) exprNode()   {}
func (*StrLit) exprNode()     {}
func (*TupleLit) exprNode()   {}
func (*Ident) exprNode()      {}
func (*NullLit) exprNode()    {}
func (*BoolLit) exprNode()    {}
func (*ArrayLit) exprNode()   {}
func (*Unary) exprNode()      {}
func (*Binary) exprNode()     {}
func (*Assign) exprNode()     {}
func (*Call) exprNode()       {}
func (*Index) exprNode()      {}
func (*Member) exprNode()     {}
func (*Paren) exprNode()      {}
func (*Ternary) exprNode()    {}
func (*MatchExpr) exprNode()  {}
func (*LambdaExpr) exprNode() {}
func (*NewExpr) exprNode()    {}
func (*MoveExpr) exprNode()   {}

// IntLit is an integer literal.
type IntLit struct {
	Val  int64
	Line int
	Col  int
}

// FloatLit is a floating-point literal.
type FloatLit struct {
	Val  float64
	Line int
	Col  int
}

// StrPart is one segment of an (interpolating or raw) string literal:
// Kind is "text" or "var".
type StrPart struct {
	Kind string
	Text string // literal text, when Kind == "text"
	Name string // interpolated identifier name, when Kind == "var"
}

// StrLit is a string literal, raw or interpolating, as a sequence of parts.
type StrLit struct {
	Parts []StrPart
	Line  int
	Col   int
}

// TupleLit is a parenthesized comma list: either written `(a, b, ...)` in
// source or produced by lowering to pack writef/readf variadic arguments.
type TupleLit struct {
	Items []Expr
	Line  int
	Col   int
}

// Ident is a bare identifier reference.
type Ident struct {
	Name string
	Line int
	Col  int
}

// NullLit is the `null` literal.
type NullLit struct {
	Line int
	Col  int
}

// BoolLit is `true` or `false`.
type BoolLit struct {
	Val  bool
	Line int
	Col  int
}

// ArrayLit is `[e1, e2, ...]`.
type ArrayLit struct {
	Items []Expr
	Line  int
	Col   int
}

// Unary is a prefix operator: `!`, `-`, or `#`.
type Unary struct {
	Op   string
	X    Expr
	Line int
	Col  int
}

// Binary is an infix operator.
type Binary struct {
	Op   string
	A, B Expr
	Line int
	Col  int
}

// Assign is `target = value`.
type Assign struct {
	Target Expr
	Value  Expr
	Line   int
	Col    int
}

// Call is `fn(args...)`.
type Call struct {
	Fn   Expr
	Args []Expr
	Line int
	Col  int
}

// Index is `a[i]`.
type Index struct {
	A    Expr
	I    Expr
	Line int
	Col  int
}

// Member is `a.name`.
type Member struct {
	A    Expr
	Name string
	Line int
	Col  int
}

// Paren is a parenthesized expression, kept as a distinct node so the AST
// (and its JSON dump) records the surface grouping; the checker and codegen
// look through it to X.
type Paren struct {
	X    Expr
	Line int
	Col  int
}

// Ternary is a lowered-only conditional expression node (never produced
// directly by the parser in v0; reserved for future match/if-expr lowering
// per spec.md §3).
type Ternary struct {
	Cond Expr
	A, B Expr
	Line int
	Col  int
}

// Pat is the interface implemented by every match-pattern node.
type Pat interface{ patNode() }

func (*PatWild) patNode()  {}
func (*PatIdent) patNode() {}
func (*PatInt) patNode()   {}
func (*PatStr) patNode()   {}
func (*PatBool) patNode()  {}
func (*PatNull) patNode()  {}

// PatWild is `_`.
type PatWild struct {
	Line int
	Col  int
}

// PatIdent binds the scrutinee to Name.
type PatIdent struct {
	Name string
	Line int
	Col  int
}

// PatInt matches an integer literal.
type PatInt struct {
	Val  int64
	Line int
	Col  int
}

// PatStr matches a (non-interpolating) string literal.
type PatStr struct {
	Parts []StrPart
	Line  int
	Col   int
}

// PatBool matches a boolean literal.
type PatBool struct {
	Val  bool
	Line int
	Col  int
}

// PatNull matches `null`.
type PatNull struct {
	Line int
	Col  int
}

// MatchArm is one `pat => expr` arm.
type MatchArm struct {
	Pat  Pat
	Expr Expr
	Line int
	Col  int
}

// MatchExpr is `match scrut { arm; ... }`.
type MatchExpr struct {
	Scrut Expr
	Arms  []*MatchArm
	Line  int
	Col   int
}

// LambdaExpr is `|p1, p2, ...| body`. Parameters without an annotation get
// a nil Typ and are unified to fresh `gen` type variables by the checker.
type LambdaExpr struct {
	Params []*Param
	Body   Expr
	Line   int
	Col    int
}

// NewExpr is `new C(args...)`.
type NewExpr struct {
	Name string
	Args []Expr
	Line int
	Col  int
}

// MoveExpr is the sentinel produced by lowering `move(x)`; it is never a
// real call after lowering.
type MoveExpr struct {
	X    Expr
	Line int
	Col  int
}
