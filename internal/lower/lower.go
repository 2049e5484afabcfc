// Package lower performs the pure AST-to-AST rewriting pass described in
// spec.md §4.3, run once per module after parsing and before the global
// environment is built. It never touches the filesystem and never fails:
// every rewrite is structural and total over a well-formed parse tree.
package lower

import "github.com/lainsce/ergo/internal/ast"

// Module rewrites every declaration in mod in place (by replacing field
// values, never by mutating a shared subtree two owners could observe).
func Module(mod *ast.Module) {
	for _, d := range mod.Decls {
		switch n := d.(type) {
		case *ast.FunDecl:
			n.Body = block(n.Body)
		case *ast.EntryDecl:
			n.Body = block(n.Body)
		case *ast.ClassDecl:
			for _, m := range n.Methods {
				m.Body = block(m.Body)
			}
		case *ast.ConstDecl:
			n.Expr = expr(n.Expr)
		}
	}
}

func block(b *ast.Block) *ast.Block {
	if b == nil {
		return nil
	}
	out := make([]ast.Stmt, len(b.Stmts))
	for i, s := range b.Stmts {
		out[i] = stmt(s)
	}
	return &ast.Block{Stmts: out, Line: b.Line, Col: b.Col}
}

// arm lowers an if/elif/else/for body. The parser already wraps a
// single-statement arm into a Block at parse time (see parser.parseArm), so
// unlike the reference lowering pass this does no wrapping and only lowers
// the arm's statements.
func arm(b *ast.Block) *ast.Block { return block(b) }

func stmt(s ast.Stmt) ast.Stmt {
	switch n := s.(type) {
	case *ast.Block:
		return block(n)
	case *ast.LetStmt:
		return &ast.LetStmt{Name: n.Name, IsMut: n.IsMut, Expr: expr(n.Expr), Line: n.Line, Col: n.Col}
	case *ast.ConstStmt:
		return &ast.ConstStmt{Name: n.Name, Expr: expr(n.Expr), Line: n.Line, Col: n.Col}
	case *ast.IfStmt:
		arms := make([]*ast.IfArm, len(n.Arms))
		for i, a := range n.Arms {
			var c ast.Expr
			if a.Cond != nil {
				c = expr(a.Cond)
			}
			arms[i] = &ast.IfArm{Cond: c, Body: arm(a.Body), Line: a.Line, Col: a.Col}
		}
		return &ast.IfStmt{Arms: arms, Line: n.Line, Col: n.Col}
	case *ast.ForStmt:
		var init ast.Stmt
		if n.Init != nil {
			init = stmt(n.Init)
		}
		var cond ast.Expr
		if n.Cond != nil {
			cond = expr(n.Cond)
		}
		var step ast.Stmt
		if n.Step != nil {
			step = stmt(n.Step)
		}
		return &ast.ForStmt{Init: init, Cond: cond, Step: step, Body: arm(n.Body), Line: n.Line, Col: n.Col}
	case *ast.ForEachStmt:
		return &ast.ForEachStmt{Name: n.Name, Expr: expr(n.Expr), Body: arm(n.Body), Line: n.Line, Col: n.Col}
	case *ast.ReturnStmt:
		var e ast.Expr
		if n.Expr != nil {
			e = expr(n.Expr)
		}
		return &ast.ReturnStmt{Expr: e, Line: n.Line, Col: n.Col}
	case *ast.ExprStmt:
		return &ast.ExprStmt{Expr: expr(n.Expr), Line: n.Line, Col: n.Col}
	}
	return s
}

// expr rewrites an expression tree bottom-up, then applies the call-site
// rewrites: `move(x)` -> MoveExpr, `stdr.writef/readf/str(...)` -> the
// unqualified builtin name with variadic args wrapped into one TupleLit.
// `stdr.len`/`#x` is deliberately left qualified — see DESIGN.md entry 1.
func expr(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.Unary:
		x := expr(n.X)
		if n.Op == "#" {
			fn := &ast.Member{A: &ast.Ident{Name: "stdr", Line: n.Line, Col: n.Col}, Name: "len", Line: n.Line, Col: n.Col}
			return &ast.Call{Fn: fn, Args: []ast.Expr{x}, Line: n.Line, Col: n.Col}
		}
		return &ast.Unary{Op: n.Op, X: x, Line: n.Line, Col: n.Col}
	case *ast.Binary:
		return &ast.Binary{Op: n.Op, A: expr(n.A), B: expr(n.B), Line: n.Line, Col: n.Col}
	case *ast.Assign:
		return &ast.Assign{Target: expr(n.Target), Value: expr(n.Value), Line: n.Line, Col: n.Col}
	case *ast.Index:
		return &ast.Index{A: expr(n.A), I: expr(n.I), Line: n.Line, Col: n.Col}
	case *ast.Member:
		return &ast.Member{A: expr(n.A), Name: n.Name, Line: n.Line, Col: n.Col}
	case *ast.Paren:
		return &ast.Paren{X: expr(n.X), Line: n.Line, Col: n.Col}
	case *ast.Ternary:
		return &ast.Ternary{Cond: expr(n.Cond), A: expr(n.A), B: expr(n.B), Line: n.Line, Col: n.Col}
	case *ast.ArrayLit:
		items := make([]ast.Expr, len(n.Items))
		for i, it := range n.Items {
			items[i] = expr(it)
		}
		return &ast.ArrayLit{Items: items, Line: n.Line, Col: n.Col}
	case *ast.TupleLit:
		items := make([]ast.Expr, len(n.Items))
		for i, it := range n.Items {
			items[i] = expr(it)
		}
		return &ast.TupleLit{Items: items, Line: n.Line, Col: n.Col}
	case *ast.LambdaExpr:
		return &ast.LambdaExpr{Params: n.Params, Body: expr(n.Body), Line: n.Line, Col: n.Col}
	case *ast.NewExpr:
		args := make([]ast.Expr, len(n.Args))
		for i, a := range n.Args {
			args[i] = expr(a)
		}
		return &ast.NewExpr{Name: n.Name, Args: args, Line: n.Line, Col: n.Col}
	case *ast.MatchExpr:
		arms := make([]*ast.MatchArm, len(n.Arms))
		for i, a := range n.Arms {
			arms[i] = &ast.MatchArm{Pat: a.Pat, Expr: expr(a.Expr), Line: a.Line, Col: a.Col}
		}
		return &ast.MatchExpr{Scrut: expr(n.Scrut), Arms: arms, Line: n.Line, Col: n.Col}
	case *ast.Call:
		return call(n)
	default:
		return e
	}
}

// variadic is the set of stdr functions whose surface call takes a flat
// argument list that the runtime consumes as a single packed tuple.
var variadic = map[string]bool{"writef": true, "readf": true}

func call(n *ast.Call) *ast.Call {
	fn := expr(n.Fn)
	args := make([]ast.Expr, len(n.Args))
	for i, a := range n.Args {
		args[i] = expr(a)
	}

	if id, ok := fn.(*ast.Ident); ok && id.Name == "move" && len(args) == 1 {
		return wrapMove(args[0], n.Line, n.Col)
	}

	// Bare, unqualified writef/readf get the same variadic-packing rewrite
	// as their stdr.-qualified form below.
	if id, ok := fn.(*ast.Ident); ok && variadic[id.Name] {
		return &ast.Call{Fn: fn, Args: wrapVariadic(args, n.Line, n.Col), Line: n.Line, Col: n.Col}
	}

	if mem, ok := fn.(*ast.Member); ok {
		if base, ok := mem.A.(*ast.Ident); ok && base.Name == "stdr" {
			switch mem.Name {
			case "writef", "readf", "str":
				newFn := &ast.Ident{Name: mem.Name, Line: mem.Line, Col: mem.Col}
				newArgs := args
				if variadic[mem.Name] {
					newArgs = wrapVariadic(args, n.Line, n.Col)
				}
				return &ast.Call{Fn: newFn, Args: newArgs, Line: n.Line, Col: n.Col}
			}
		}
	}

	return &ast.Call{Fn: fn, Args: args, Line: n.Line, Col: n.Col}
}

// wrapVariadic packs a flat writef/readf argument list into the two-arg
// (fmt, tuple) shape the runtime expects: the format string stays the first
// argument, every remaining argument is tupled into the second. Already-
// wrapped (fmt, tuple) call shapes pass through unchanged, so re-lowering is
// idempotent.
func wrapVariadic(args []ast.Expr, line, col int) []ast.Expr {
	if len(args) == 0 {
		return args
	}
	if len(args) == 2 {
		if _, ok := args[1].(*ast.TupleLit); ok {
			return args
		}
	}
	rest := args[1:]
	tup := &ast.TupleLit{Items: rest, Line: line, Col: col}
	return []ast.Expr{args[0], tup}
}

// wrapMove replaces a move(x) call shape with the MoveExpr sentinel node
// instead of a real call AST; codegen then requires X to be a plain Ident
// (spec.md §4.5, MoveExpr codegen).
func wrapMove(x ast.Expr, line, col int) ast.Expr {
	return &ast.MoveExpr{X: expr(x), Line: line, Col: col}
}
