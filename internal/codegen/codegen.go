// Package codegen lowers a type-checked *ast.Program into a single
// self-contained C11 translation unit, per spec.md §4.6. It mangles every
// module-qualified name, emits the fixed runtime prelude once, then emits
// one C function per ergo function/method/entry using a simple
// scope-tracked release-on-exit ownership discipline: every `let` that
// creates a non-trivial value (string/array/object) registers its C slot
// with the enclosing block so it is released exactly once when that block
// ends, mirroring the reference's per-expression cleanup-list protocol at
// block granularity.
package codegen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lainsce/ergo/internal/ast"
	"github.com/lainsce/ergo/internal/check"
	"github.com/lainsce/ergo/internal/errs"
)

// Generate emits the complete C11 translation unit for prog, given its
// already-built GlobalEnv, as a single string.
func Generate(prog *ast.Program, env *check.GlobalEnv) (string, error) {
	g := &cgen{env: env, b: &strings.Builder{}}
	g.b.WriteString(runtimeC)
	g.b.WriteString("\n/* ---- program ---- */\n\n")

	// Forward-declare every class struct and function so call order never
	// matters, matching the reference's two-pass emission.
	modNames := make([]string, 0, len(env.Modules))
	for name := range env.Modules {
		modNames = append(modNames, name)
	}
	sort.Strings(modNames)

	for _, mn := range modNames {
		me := env.Modules[mn]
		clsNames := sortedKeys(me.Classes)
		for _, cn := range clsNames {
			g.b.WriteString(fmt.Sprintf("typedef struct %s %s;\n", g.className(mn, cn), g.className(mn, cn)))
		}
	}
	for _, mn := range modNames {
		me := env.Modules[mn]
		clsNames := sortedKeys(me.Classes)
		for _, cn := range clsNames {
			ci := me.Classes[cn]
			g.b.WriteString(fmt.Sprintf("struct %s {\n  ErgoObj base;\n", g.className(mn, cn)))
			for _, fn := range ci.FieldOrder {
				g.b.WriteString(fmt.Sprintf("  ErgoVal %s;\n", fn))
			}
			g.b.WriteString("};\n")
			g.b.WriteString(fmt.Sprintf("static void %s(ErgoObj *o);\n", g.dropFn(mn, cn)))
		}
	}

	for _, mn := range modNames {
		me := env.Modules[mn]
		for _, fn := range sortedFuncs(me.Funcs) {
			g.emitProto(mn, fn)
		}
		for _, cn := range sortedKeys(me.Classes) {
			ci := me.Classes[cn]
			for _, mfn := range sortedFuncs(ci.Methods) {
				g.emitMethodProto(mn, cn, mfn)
			}
		}
	}
	g.b.WriteString("\n")

	for _, mn := range modNames {
		me := env.Modules[mn]
		for _, cn := range sortedKeys(me.Classes) {
			g.emitDrop(mn, cn, me.Classes[cn])
		}
		for _, fn := range sortedFuncs(me.Funcs) {
			g.curMod = mn
			g.curClass = ""
			g.chk = check.NewChecker(env, mn, me.Path)
			if err := g.chk.EnterFunc(fn.Params, nil, "", fn.Ret); err != nil {
				return "", err
			}
			if err := g.emitFun(mn, "", fn); err != nil {
				return "", err
			}
		}
		for _, cn := range sortedKeys(me.Classes) {
			ci := me.Classes[cn]
			for _, mfn := range sortedFuncs(ci.Methods) {
				g.curMod = mn
				g.curClass = cn
				g.chk = check.NewChecker(env, mn, me.Path)
				if err := g.chk.EnterFunc(mfn.Params, ci, cn, mfn.Ret); err != nil {
					return "", err
				}
				if err := g.emitFun(mn, cn, mfn); err != nil {
					return "", err
				}
			}
		}
	}

	g.curMod = g.modOf(env.EntryPath)
	g.curClass = ""
	g.chk = check.NewChecker(env, g.curMod, env.EntryPath)
	if err := g.chk.EnterFunc(nil, nil, "", env.Entry.Ret); err != nil {
		return "", err
	}
	if err := g.emitEntry(env.Entry); err != nil {
		return "", err
	}

	for _, lm := range g.pendingLambdas {
		if err := g.emitLambdaDef(lm); err != nil {
			return "", err
		}
	}

	g.b.WriteString("\nint main(void) {\n")
	g.b.WriteString(fmt.Sprintf("  %s();\n  return 0;\n}\n", g.entryName()))

	return g.b.String(), nil
}

type lambdaTask struct {
	name   string
	expr   *ast.LambdaExpr
	mod    string
	class  string
}

type cgen struct {
	env      *check.GlobalEnv
	chk      *check.Checker
	b        *strings.Builder
	tmp      int
	curMod   string
	curClass string
	pendingLambdas []lambdaTask
	lambdaSeq      int
}

func sortedKeys(m map[string]*check.ClassInfo) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedFuncs(m map[string]*ast.FunDecl) []*ast.FunDecl {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	out := make([]*ast.FunDecl, len(names))
	for i, n := range names {
		out[i] = m[n]
	}
	return out
}

func mangleMod(mod string) string { return strings.ReplaceAll(mod, ".", "_") }

func (g *cgen) modOf(path string) string {
	for name, me := range g.env.Modules {
		if me.Path == path {
			return name
		}
	}
	return ""
}

func (g *cgen) funcName(mod, name string) string {
	return fmt.Sprintf("ergo_%s_%s", mangleMod(mod), name)
}

func (g *cgen) methodName(mod, cls, name string) string {
	return fmt.Sprintf("ergo_m_%s_%s_%s", mangleMod(mod), cls, name)
}

func (g *cgen) className(mod, cls string) string {
	return fmt.Sprintf("ErgoObj_%s_%s", mangleMod(mod), cls)
}

func (g *cgen) dropFn(mod, cls string) string {
	return fmt.Sprintf("ergo_drop_%s_%s", mangleMod(mod), cls)
}

func (g *cgen) entryName() string { return "ergo_entry" }

func cType(t *check.Ty) string { return "ErgoVal" }

func (g *cgen) emitProto(mod string, f *ast.FunDecl) {
	var params []string
	for _, p := range f.Params {
		params = append(params, fmt.Sprintf("ErgoVal %s", p.Name))
	}
	g.b.WriteString(fmt.Sprintf("static ErgoVal %s(%s);\n", g.funcName(mod, f.Name), strings.Join(params, ", ")))
}

func (g *cgen) emitMethodProto(mod, cls string, f *ast.FunDecl) {
	var params []string
	for _, p := range f.Params {
		if p.IsThis {
			params = append(params, fmt.Sprintf("%s *this", g.className(mod, cls)))
			continue
		}
		params = append(params, fmt.Sprintf("ErgoVal %s", p.Name))
	}
	g.b.WriteString(fmt.Sprintf("static ErgoVal %s(%s);\n", g.methodName(mod, cls, f.Name), strings.Join(params, ", ")))
}

func (g *cgen) emitDrop(mod, cls string, ci *check.ClassInfo) {
	g.b.WriteString(fmt.Sprintf("static void %s(ErgoObj *o) {\n", g.dropFn(mod, cls)))
	g.b.WriteString(fmt.Sprintf("  %s *self = (%s *)o;\n", g.className(mod, cls), g.className(mod, cls)))
	for _, fn := range ci.FieldOrder {
		g.b.WriteString(fmt.Sprintf("  ergo_release_val(self->%s);\n", fn))
	}
	g.b.WriteString("}\n")
}

// fnScope tracks one lexical block's locally created slots pending
// release. genBlock pushes/pops one around every nested Block during
// statement emission, per DESIGN.md entry 6 (one shared helper for every
// if/elif/else/for arm); function and entry bodies and foreach iterations
// create theirs directly and pass it to genBlockBody.
type fnScope struct {
	parent  *fnScope
	cleanup []string
	names   map[string]bool
}

func newScope(parent *fnScope) *fnScope {
	return &fnScope{parent: parent, names: map[string]bool{}}
}

func (g *cgen) emitFun(mod, cls string, f *ast.FunDecl) error {
	var name string
	var params []string
	if cls != "" {
		name = g.methodName(mod, cls, f.Name)
	} else {
		name = g.funcName(mod, f.Name)
	}
	for _, p := range f.Params {
		if p.IsThis {
			params = append(params, fmt.Sprintf("%s *this", g.className(mod, cls)))
			continue
		}
		params = append(params, fmt.Sprintf("ErgoVal %s", p.Name))
	}
	g.b.WriteString(fmt.Sprintf("static ErgoVal %s(%s) {\n", name, strings.Join(params, ", ")))
	sc := newScope(nil)
	for _, p := range f.Params {
		if !p.IsThis {
			sc.names[p.Name] = true
		}
	}
	if err := g.genBlockBody(f.Body, sc); err != nil {
		return err
	}
	if f.Ret.Void {
		g.b.WriteString("  return (ErgoVal){0};\n")
	} else {
		g.b.WriteString("  return (ErgoVal){0}; /* unreachable if every path returns */\n")
	}
	g.b.WriteString("}\n\n")
	return nil
}

// emitEntry emits the program's single entry point as a void-returning C
// function, invoked from main().
func (g *cgen) emitEntry(e *ast.EntryDecl) error {
	g.b.WriteString(fmt.Sprintf("static void %s(void) {\n", g.entryName()))
	sc := newScope(nil)
	if err := g.genBlockBody(e.Body, sc); err != nil {
		return err
	}
	g.b.WriteString("}\n\n")
	return nil
}

// genBlockBody emits every statement of b directly into the current
// function body (no extra brace nesting — the caller already opened one),
// then releases every slot the block defined.
func (g *cgen) genBlockBody(b *ast.Block, sc *fnScope) error {
	for _, s := range b.Stmts {
		if err := g.genStmt(s, sc); err != nil {
			return err
		}
	}
	for _, n := range sc.cleanup {
		g.b.WriteString(fmt.Sprintf("  ergo_release_val(%s);\n", n))
	}
	return nil
}

// genBlock is the single shared helper used for every if/elif/else/for
// arm body: it always pushes its own scope and releases it on
// exit, so there is no asymmetry between the last else arm and any other
// arm (see DESIGN.md entry 6).
func (g *cgen) genBlock(b *ast.Block, parent *fnScope) error {
	g.b.WriteString("{\n")
	sc := newScope(parent)
	g.chk.PushScope()
	err := g.genBlockBody(b, sc)
	g.chk.PopScope()
	if err != nil {
		return err
	}
	g.b.WriteString("}\n")
	return nil
}

func (g *cgen) freshTmp() string {
	g.tmp++
	return fmt.Sprintf("_t%d", g.tmp)
}

func (g *cgen) genStmt(s ast.Stmt, sc *fnScope) error {
	switch n := s.(type) {
	case *ast.Block:
		return g.genBlock(n, sc)
	case *ast.LetStmt:
		ty, err := g.chk.ExprType(n.Expr)
		if err != nil {
			return err
		}
		v, err := g.genExpr(n.Expr, sc)
		if err != nil {
			return err
		}
		g.b.WriteString(fmt.Sprintf("  ErgoVal %s = %s;\n", n.Name, v))
		sc.names[n.Name] = true
		sc.cleanup = append(sc.cleanup, n.Name)
		g.chk.DefineLocal(n.Name, ty, n.IsMut)
		return nil
	case *ast.ConstStmt:
		ty, err := g.chk.ExprType(n.Expr)
		if err != nil {
			return err
		}
		v, err := g.genExpr(n.Expr, sc)
		if err != nil {
			return err
		}
		g.b.WriteString(fmt.Sprintf("  const ErgoVal %s = %s;\n", n.Name, v))
		sc.names[n.Name] = true
		g.chk.DefineLocal(n.Name, ty, false)
		return nil
	case *ast.IfStmt:
		return g.genIf(n, sc)
	case *ast.ForStmt:
		g.b.WriteString("for (")
		if n.Init != nil {
			if err := g.genForClauseStmt(n.Init, sc); err != nil {
				return err
			}
		}
		g.b.WriteString("; ")
		if n.Cond != nil {
			v, err := g.genExpr(n.Cond, sc)
			if err != nil {
				return err
			}
			g.b.WriteString(fmt.Sprintf("ergo_as_bool(%s)", v))
		}
		g.b.WriteString("; ")
		if n.Step != nil {
			if err := g.genForClauseStmt(n.Step, sc); err != nil {
				return err
			}
		}
		g.b.WriteString(") ")
		return g.genBlock(n.Body, sc)
	case *ast.ForEachStmt:
		arrTy, err := g.chk.ExprType(n.Expr)
		if err != nil {
			return err
		}
		arrv, err := g.genExpr(n.Expr, sc)
		if err != nil {
			return err
		}
		idx := g.freshTmp()
		arrVar := g.freshTmp()
		g.b.WriteString(fmt.Sprintf("  ErgoVal %s = %s;\n", arrVar, arrv))
		g.b.WriteString(fmt.Sprintf("for (size_t %s = 0; %s < %s.as.a->len; %s++) {\n", idx, idx, arrVar, idx))
		g.b.WriteString(fmt.Sprintf("  ErgoVal %s = ergo_arr_get(%s, (int64_t)%s);\n", n.Name, arrVar, idx))
		inner := newScope(sc)
		inner.names[n.Name] = true
		inner.cleanup = append(inner.cleanup, n.Name)
		g.chk.PushScope()
		g.chk.DefineLocal(n.Name, arrTy.Elem, false)
		err = g.genBlockBody(n.Body, inner)
		g.chk.PopScope()
		if err != nil {
			return err
		}
		g.b.WriteString("}\n")
		g.b.WriteString(fmt.Sprintf("  ergo_release_val(%s);\n", arrVar))
		return nil
	case *ast.ReturnStmt:
		if n.Expr == nil {
			g.b.WriteString("  return (ErgoVal){0};\n")
			return nil
		}
		v, err := g.genExpr(n.Expr, sc)
		if err != nil {
			return err
		}
		g.b.WriteString(fmt.Sprintf("  return %s;\n", v))
		return nil
	case *ast.ExprStmt:
		v, err := g.genExpr(n.Expr, sc)
		if err != nil {
			return err
		}
		g.b.WriteString(fmt.Sprintf("  ergo_release_val(%s);\n", v))
		return nil
	}
	return errs.NewTypeAt("", "codegen: unhandled statement node %T", s)
}

func (g *cgen) genForClauseStmt(s ast.Stmt, sc *fnScope) error {
	switch n := s.(type) {
	case *ast.LetStmt:
		v, err := g.genExpr(n.Expr, sc)
		if err != nil {
			return err
		}
		g.b.WriteString(fmt.Sprintf("ErgoVal %s = %s", n.Name, v))
		sc.names[n.Name] = true
		return nil
	case *ast.ExprStmt:
		v, err := g.genExpr(n.Expr, sc)
		if err != nil {
			return err
		}
		g.b.WriteString(v)
		return nil
	}
	return errs.NewTypeAt("", "codegen: unsupported for-clause statement %T", s)
}

func (g *cgen) genIf(n *ast.IfStmt, sc *fnScope) error {
	for i, arm := range n.Arms {
		if arm.Cond == nil {
			g.b.WriteString("else ")
			if err := g.genBlock(arm.Body, sc); err != nil {
				return err
			}
			continue
		}
		if i > 0 {
			g.b.WriteString("else ")
		}
		v, err := g.genExpr(arm.Cond, sc)
		if err != nil {
			return err
		}
		g.b.WriteString(fmt.Sprintf("if (ergo_as_bool(%s)) ", v))
		if err := g.genBlock(arm.Body, sc); err != nil {
			return err
		}
	}
	return nil
}

// genExpr emits a C expression evaluating e, returning the C source text
// of the resulting ErgoVal expression (retained where the value is a read
// of an existing binding, since the reference protocol makes every read a
// fresh owning reference).
func (g *cgen) genExpr(e ast.Expr, sc *fnScope) (string, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return fmt.Sprintf("EV_INTV(%dLL)", n.Val), nil
	case *ast.FloatLit:
		return fmt.Sprintf("EV_FLOATV(%g)", n.Val), nil
	case *ast.BoolLit:
		if n.Val {
			return "EV_BOOLV(1)", nil
		}
		return "EV_BOOLV(0)", nil
	case *ast.NullLit:
		return "EV_NULLV()", nil
	case *ast.StrLit:
		return g.genStrLit(n), nil
	case *ast.Ident:
		if sc.lookup(n.Name) {
			return fmt.Sprintf("ergo_retain_val(%s)", n.Name), nil
		}
		if _, ok := g.env.Modules[g.curMod].Funcs[n.Name]; ok {
			return fmt.Sprintf("ergo_fn_new(\"%s\", %d, (void*)%s)", n.Name, 0, g.funcName(g.curMod, n.Name)), nil
		}
		return "EV_NULLV()", nil
	case *ast.Paren:
		return g.genExpr(n.X, sc)
	case *ast.Unary:
		return g.genUnary(n, sc)
	case *ast.Binary:
		return g.genBinary(n, sc)
	case *ast.Assign:
		return g.genAssign(n, sc)
	case *ast.ArrayLit:
		return g.genArrayLit(n, sc)
	case *ast.TupleLit:
		return g.genArrayLit(&ast.ArrayLit{Items: n.Items, Line: n.Line, Col: n.Col}, sc)
	case *ast.Index:
		return g.genIndex(n, sc)
	case *ast.Member:
		return g.genMember(n, sc)
	case *ast.Ternary:
		cond, err := g.genExpr(n.Cond, sc)
		if err != nil {
			return "", err
		}
		a, err := g.genExpr(n.A, sc)
		if err != nil {
			return "", err
		}
		b, err := g.genExpr(n.B, sc)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(ergo_as_bool(%s) ? (%s) : (%s))", cond, a, b), nil
	case *ast.MatchExpr:
		return g.genMatch(n, sc)
	case *ast.LambdaExpr:
		return g.genLambda(n, sc)
	case *ast.NewExpr:
		return g.genNew(n, sc)
	case *ast.MoveExpr:
		return g.genMove(n, sc)
	case *ast.Call:
		return g.genCall(n, sc)
	}
	return "", errs.NewTypeAt("", "codegen: unhandled expression node %T", e)
}

func (sc *fnScope) lookup(name string) bool {
	for s := sc; s != nil; s = s.parent {
		if s.names[name] {
			return true
		}
	}
	return false
}

func (g *cgen) genStrLit(n *ast.StrLit) string {
	if len(n.Parts) == 1 && n.Parts[0].Kind == "text" {
		return fmt.Sprintf("ergo_str_new(%s, %d)", cQuote(n.Parts[0].Text), len(n.Parts[0].Text))
	}
	var acc string
	for i, p := range n.Parts {
		var piece string
		if p.Kind == "text" {
			piece = fmt.Sprintf("ergo_str_new(%s, %d)", cQuote(p.Text), len(p.Text))
		} else {
			piece = fmt.Sprintf("/* $%s interpolation via str() */ stdr_str(ergo_retain_val(%s))", p.Name, p.Name)
		}
		if i == 0 {
			acc = piece
		} else {
			acc = fmt.Sprintf("ergo_add(%s, %s)", acc, piece)
		}
	}
	if acc == "" {
		return `ergo_str_new("", 0)`
	}
	return acc
}

func cQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func (g *cgen) genUnary(n *ast.Unary, sc *fnScope) (string, error) {
	x, err := g.genExpr(n.X, sc)
	if err != nil {
		return "", err
	}
	switch n.Op {
	case "!":
		return fmt.Sprintf("EV_BOOLV(!ergo_as_bool(%s))", x), nil
	case "-":
		return fmt.Sprintf("ergo_neg(%s)", x), nil
	}
	return "", errs.NewTypeAt("", "codegen: unknown unary operator %q", n.Op)
}

var binOpFn = map[string]string{
	"+": "ergo_add", "-": "ergo_sub", "*": "ergo_mul", "/": "ergo_div", "%": "ergo_mod",
	"==": "ergo_eq", "!=": "ergo_ne", "<": "ergo_lt", "<=": "ergo_le", ">": "ergo_gt", ">=": "ergo_ge",
}

func (g *cgen) genBinary(n *ast.Binary, sc *fnScope) (string, error) {
	if n.Op == "&&" || n.Op == "||" {
		a, err := g.genExpr(n.A, sc)
		if err != nil {
			return "", err
		}
		b, err := g.genExpr(n.B, sc)
		if err != nil {
			return "", err
		}
		if n.Op == "&&" {
			return fmt.Sprintf("(ergo_as_bool(%s) ? (%s) : EV_BOOLV(0))", a, b), nil
		}
		return fmt.Sprintf("(ergo_as_bool(%s) ? EV_BOOLV(1) : (%s))", a, b), nil
	}
	fn, ok := binOpFn[n.Op]
	if !ok {
		return "", errs.NewTypeAt("", "codegen: unknown binary operator %q", n.Op)
	}
	a, err := g.genExpr(n.A, sc)
	if err != nil {
		return "", err
	}
	b, err := g.genExpr(n.B, sc)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s(%s, %s)", fn, a, b), nil
}

func (g *cgen) genAssign(n *ast.Assign, sc *fnScope) (string, error) {
	v, err := g.genExpr(n.Value, sc)
	if err != nil {
		return "", err
	}
	switch t := n.Target.(type) {
	case *ast.Ident:
		return fmt.Sprintf("(ergo_move_into(&%s, %s), ergo_retain_val(%s))", t.Name, v, t.Name), nil
	case *ast.Index:
		a, err := g.genExpr(t.A, sc)
		if err != nil {
			return "", err
		}
		i, err := g.genExpr(t.I, sc)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(ergo_arr_set(%s, ergo_as_int(%s), %s), ergo_retain_val(%s))", a, i, v, v), nil
	case *ast.Member:
		recvTy, err := g.chk.ExprType(t.A)
		if err != nil {
			return "", err
		}
		me, cls := g.chk.ClassOf(recvTy)
		if me == nil {
			return "", errs.NewTypeAt("", "codegen: assignment to field %q of non-class receiver", t.Name)
		}
		base, err := g.genExpr(t.A, sc)
		if err != nil {
			return "", err
		}
		tmp := g.freshTmp()
		g.b.WriteString(fmt.Sprintf("  ErgoVal %s = %s;\n", tmp, base))
		cname := g.className(me.Name, cls)
		return fmt.Sprintf("(ergo_move_into(&((%s*)%s.as.p)->%s, %s), ergo_retain_val(((%s*)%s.as.p)->%s))",
			cname, tmp, t.Name, v, cname, tmp, t.Name), nil
	}
	return "", errs.NewTypeAt("", "codegen: unsupported assignment target %T", n.Target)
}

func (g *cgen) genArrayLit(n *ast.ArrayLit, sc *fnScope) (string, error) {
	tmp := g.freshTmp()
	g.b.WriteString(fmt.Sprintf("  ErgoVal %s = stdr_arr_new();\n", tmp))
	for _, it := range n.Items {
		v, err := g.genExpr(it, sc)
		if err != nil {
			return "", err
		}
		g.b.WriteString(fmt.Sprintf("  ergo_arr_add(%s, %s);\n", tmp, v))
	}
	return tmp, nil
}

func (g *cgen) genIndex(n *ast.Index, sc *fnScope) (string, error) {
	baseTy, err := g.chk.ExprType(n.A)
	if err != nil {
		return "", err
	}
	a, err := g.genExpr(n.A, sc)
	if err != nil {
		return "", err
	}
	i, err := g.genExpr(n.I, sc)
	if err != nil {
		return "", err
	}
	if baseTy != nil && baseTy.Kind == check.KPrim && baseTy.Name == "string" {
		return fmt.Sprintf("stdr_str_at(%s, ergo_as_int(%s))", a, i), nil
	}
	return fmt.Sprintf("ergo_arr_get(%s, ergo_as_int(%s))", a, i), nil
}

// genMember emits a C expression reading either a module-level constant
// (inlined from its literal initializer, since module consts are pure
// literals with no side effects to duplicate) or a class field (cast
// through the receiver's resolved struct type).
func (g *cgen) genMember(n *ast.Member, sc *fnScope) (string, error) {
	if id, ok := n.A.(*ast.Ident); ok && !sc.lookup(id.Name) {
		if me, isMod := g.env.Modules[id.Name]; isMod {
			cd, ok := me.ConstDecls[n.Name]
			if !ok {
				return "", errs.NewTypeAt("", "codegen: unknown constant %s.%s", id.Name, n.Name)
			}
			return g.genExpr(cd.Expr, sc)
		}
	}
	recvTy, err := g.chk.ExprType(n.A)
	if err != nil {
		return "", err
	}
	me, cls := g.chk.ClassOf(recvTy)
	if me == nil {
		return "", errs.NewTypeAt("", "codegen: field access %q on non-class receiver", n.Name)
	}
	base, err := g.genExpr(n.A, sc)
	if err != nil {
		return "", err
	}
	tmp := g.freshTmp()
	g.b.WriteString(fmt.Sprintf("  ErgoVal %s = %s;\n", tmp, base))
	cname := g.className(me.Name, cls)
	return fmt.Sprintf("ergo_retain_val(((%s*)%s.as.p)->%s)", cname, tmp, n.Name), nil
}

func (g *cgen) genMatch(n *ast.MatchExpr, sc *fnScope) (string, error) {
	scrut, err := g.genExpr(n.Scrut, sc)
	if err != nil {
		return "", err
	}
	scrutVar := g.freshTmp()
	result := g.freshTmp()
	g.b.WriteString(fmt.Sprintf("  ErgoVal %s = %s;\n", scrutVar, scrut))
	g.b.WriteString(fmt.Sprintf("  ErgoVal %s = (ErgoVal){0};\n", result))
	for i, arm := range n.Arms {
		cond, bind, bindName := g.genPatternCond(arm.Pat, scrutVar)
		prefix := "if"
		if i > 0 {
			prefix = "else if"
		}
		if cond == "" {
			g.b.WriteString("else {\n")
		} else {
			g.b.WriteString(fmt.Sprintf("%s (%s) {\n", prefix, cond))
		}
		if bind {
			g.b.WriteString(fmt.Sprintf("  ErgoVal %s = ergo_retain_val(%s);\n", bindName, scrutVar))
		}
		v, err := g.genExpr(arm.Expr, sc)
		if err != nil {
			return "", err
		}
		g.b.WriteString(fmt.Sprintf("  ergo_move_into(&%s, %s);\n", result, v))
		if bind {
			g.b.WriteString(fmt.Sprintf("  ergo_release_val(%s);\n", bindName))
		}
		g.b.WriteString("}\n")
	}
	g.b.WriteString(fmt.Sprintf("  ergo_release_val(%s);\n", scrutVar))
	return result, nil
}

func (g *cgen) genPatternCond(p ast.Pat, scrutVar string) (cond string, bind bool, bindName string) {
	switch n := p.(type) {
	case *ast.PatWild:
		return "", false, ""
	case *ast.PatIdent:
		return "", true, n.Name
	case *ast.PatInt:
		return fmt.Sprintf("ergo_as_bool(ergo_eq(%s, EV_INTV(%dLL)))", scrutVar, n.Val), false, ""
	case *ast.PatBool:
		b := "0"
		if n.Val {
			b = "1"
		}
		return fmt.Sprintf("ergo_as_bool(ergo_eq(%s, EV_BOOLV(%s)))", scrutVar, b), false, ""
	case *ast.PatNull:
		return fmt.Sprintf("%s.tag == EV_NULL", scrutVar), false, ""
	case *ast.PatStr:
		return fmt.Sprintf("ergo_as_bool(ergo_eq(%s, %s))", scrutVar, g.genStrLit(&ast.StrLit{Parts: n.Parts})), false, ""
	}
	return "0", false, ""
}

func (g *cgen) genLambda(n *ast.LambdaExpr, sc *fnScope) (string, error) {
	g.lambdaSeq++
	name := fmt.Sprintf("ergo_lambda_%s_%d", mangleMod(g.curMod), g.lambdaSeq)
	g.pendingLambdas = append(g.pendingLambdas, lambdaTask{name: name, expr: n, mod: g.curMod, class: g.curClass})
	g.b.WriteString(fmt.Sprintf("static ErgoVal %s(", name))
	var params []string
	for _, p := range n.Params {
		params = append(params, "ErgoVal "+p.Name)
	}
	_ = params
	return fmt.Sprintf("ergo_fn_new(\"%s\", %d, (void*)%s)", name, len(n.Params), name), nil
}

func (g *cgen) emitLambdaDef(lm lambdaTask) error {
	var params []string
	for _, p := range lm.expr.Params {
		params = append(params, "ErgoVal "+p.Name)
	}
	g.b.WriteString(fmt.Sprintf("static ErgoVal %s(%s) {\n", lm.name, strings.Join(params, ", ")))
	sc := newScope(nil)
	for _, p := range lm.expr.Params {
		sc.names[p.Name] = true
	}
	savedMod, savedClass := g.curMod, g.curClass
	g.curMod, g.curClass = lm.mod, lm.class
	v, err := g.genExpr(lm.expr.Body, sc)
	g.curMod, g.curClass = savedMod, savedClass
	if err != nil {
		return err
	}
	g.b.WriteString(fmt.Sprintf("  return %s;\n", v))
	g.b.WriteString("}\n\n")
	return nil
}

func (g *cgen) genNew(n *ast.NewExpr, sc *fnScope) (string, error) {
	me, cls := g.resolveClass(n.Name)
	ci := me.Classes[cls]
	tmp := g.freshTmp()
	g.b.WriteString(fmt.Sprintf("  ErgoVal %s = ergo_obj_new(sizeof(%s), %s);\n", tmp, g.className(me.Name, cls), g.dropFn(me.Name, cls)))
	if _, hasInit := ci.Methods["init"]; !hasInit {
		for i, fn := range ci.FieldOrder {
			v, err := g.genExpr(n.Args[i], sc)
			if err != nil {
				return "", err
			}
			g.b.WriteString(fmt.Sprintf("  ((%s*)%s.as.p)->%s = %s;\n", g.className(me.Name, cls), tmp, fn, v))
		}
		return tmp, nil
	}
	var args []string
	args = append(args, fmt.Sprintf("(%s*)%s.as.p", g.className(me.Name, cls), tmp))
	for _, a := range n.Args {
		v, err := g.genExpr(a, sc)
		if err != nil {
			return "", err
		}
		args = append(args, v)
	}
	g.b.WriteString(fmt.Sprintf("  ergo_release_val(%s(%s));\n", g.methodName(me.Name, cls, "init"), strings.Join(args, ", ")))
	return tmp, nil
}

func (g *cgen) resolveClass(name string) (*check.ModuleEnv, string) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			mod, cls := name[:i], name[i+1:]
			return g.env.Modules[mod], cls
		}
	}
	return g.env.Modules[g.curMod], name
}

func (g *cgen) genMove(n *ast.MoveExpr, sc *fnScope) (string, error) {
	id, ok := n.X.(*ast.Ident)
	if !ok {
		return "", errs.NewTypeAt("", "codegen: move() requires a plain identifier")
	}
	return fmt.Sprintf("ergo_move(&%s)", id.Name), nil
}

func (g *cgen) genCall(n *ast.Call, sc *fnScope) (string, error) {
	if mem, ok := n.Fn.(*ast.Member); ok {
		if id, ok := mem.A.(*ast.Ident); ok && !sc.lookup(id.Name) {
			if id.Name == "stdr" {
				if v, ok, err := g.genStdrPrelude(mem.Name, n.Args, sc); ok {
					return v, err
				}
			}
			if _, isMod := g.env.Modules[id.Name]; isMod {
				return g.genArgsCall(g.funcName(id.Name, mem.Name), n.Args, sc)
			}
		}
		switch mem.Name {
		case "add", "remove", "to_string":
			base, err := g.genExpr(mem.A, sc)
			if err != nil {
				return "", err
			}
			var args []string
			args = append(args, base)
			for _, a := range n.Args {
				v, err := g.genExpr(a, sc)
				if err != nil {
					return "", err
				}
				args = append(args, v)
			}
			switch mem.Name {
			case "add":
				return fmt.Sprintf("(ergo_arr_add(%s), EV_NULLV())", strings.Join(args, ", ")), nil
			case "remove":
				return fmt.Sprintf("stdr_arr_remove(%s)", strings.Join(args, ", ")), nil
			default:
				return fmt.Sprintf("stdr_to_string(%s)", strings.Join(args, ", ")), nil
			}
		}
		recvTy, err := g.chk.ExprType(mem.A)
		if err != nil {
			return "", err
		}
		if me, cls := g.chk.ClassOf(recvTy); me != nil {
			base, err := g.genExpr(mem.A, sc)
			if err != nil {
				return "", err
			}
			var args []string
			args = append(args, fmt.Sprintf("(%s*)%s.as.p", g.className(me.Name, cls), base))
			for _, a := range n.Args {
				v, err := g.genExpr(a, sc)
				if err != nil {
					return "", err
				}
				args = append(args, v)
			}
			return fmt.Sprintf("%s(%s)", g.methodName(me.Name, cls, mem.Name), strings.Join(args, ", ")), nil
		}
	}

	if id, ok := n.Fn.(*ast.Ident); ok && !sc.lookup(id.Name) {
		if v, ok, err := g.genStdrPrelude(id.Name, n.Args, sc); ok {
			return v, err
		}
		if _, ok := g.env.Modules[g.curMod].Funcs[id.Name]; ok {
			return g.genArgsCall(g.funcName(g.curMod, id.Name), n.Args, sc)
		}
		if me, ok := g.env.Modules["stdr"]; ok {
			if _, ok := me.Funcs[id.Name]; ok {
				return g.genArgsCall(g.funcName("stdr", id.Name), n.Args, sc)
			}
		}
	}

	fn, err := g.genExpr(n.Fn, sc)
	if err != nil {
		return "", err
	}
	if len(n.Args) == 0 {
		return fmt.Sprintf("ergo_call(%s, 0, NULL)", fn), nil
	}
	tmp := g.freshTmp()
	g.b.WriteString(fmt.Sprintf("  ErgoVal %s[%d];\n", tmp, len(n.Args)))
	for i, a := range n.Args {
		v, err := g.genExpr(a, sc)
		if err != nil {
			return "", err
		}
		g.b.WriteString(fmt.Sprintf("  %s[%d] = %s;\n", tmp, i, v))
	}
	return fmt.Sprintf("ergo_call(%s, %d, %s)", fn, len(n.Args), tmp), nil
}

// genStdrPrelude emits the handful of compiler-known builtins reachable
// both unqualified (bare "len(x)") and stdr-qualified ("stdr.len(x)", the
// form `#x` lowers to — see DESIGN.md entry 1). The bool return reports
// whether name named one of these builtins at all.
func (g *cgen) genStdrPrelude(name string, args []ast.Expr, sc *fnScope) (string, bool, error) {
	switch name {
	case "len":
		v, err := g.genExpr(args[0], sc)
		if err != nil {
			return "", true, err
		}
		return fmt.Sprintf("__len(%s)", v), true, nil
	case "write":
		v, err := g.genExpr(args[0], sc)
		if err != nil {
			return "", true, err
		}
		return fmt.Sprintf("(ergo_print_val(%s), EV_NULLV())", v), true, nil
	case "writef", "readf":
		v, err := g.genArgsCall(fmt.Sprintf("stdr_%s", name), args, sc)
		return v, true, err
	case "is_null":
		v, err := g.genExpr(args[0], sc)
		if err != nil {
			return "", true, err
		}
		return fmt.Sprintf("EV_BOOLV(%s.tag == EV_NULL)", v), true, nil
	case "str":
		v, err := g.genExpr(args[0], sc)
		if err != nil {
			return "", true, err
		}
		return fmt.Sprintf("stdr_str(%s)", v), true, nil
	}
	return "", false, nil
}

func (g *cgen) genArgsCall(cname string, args []ast.Expr, sc *fnScope) (string, error) {
	var parts []string
	for _, a := range args {
		v, err := g.genExpr(a, sc)
		if err != nil {
			return "", err
		}
		parts = append(parts, v)
	}
	return fmt.Sprintf("%s(%s)", cname, strings.Join(parts, ", ")), nil
}
