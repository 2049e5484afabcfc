package check

import (
	"github.com/lainsce/ergo/internal/ast"
	"github.com/lainsce/ergo/internal/errs"
)

// Checker type-checks the bodies of one module's declarations against a
// fully built GlobalEnv. One Checker is used per module; a fresh Locals
// scope chain is created per function/method/entry body.
type Checker struct {
	Env     *GlobalEnv
	ModName string
	Path    string

	locals   *Locals
	retTypes []*Ty
	retVoid  bool
	class    *ClassInfo // non-nil while checking a method body, for `this`
	className string
}

// TypecheckProgram builds the global environment and then type-checks every
// module's function, method, and entry bodies against it.
func TypecheckProgram(prog *ast.Program) (*GlobalEnv, error) {
	env, err := BuildGlobalEnv(prog)
	if err != nil {
		return nil, err
	}
	for _, mod := range prog.Mods {
		c := &Checker{Env: env, ModName: moduleName(mod.Path), Path: mod.Path}
		if err := c.checkModule(mod); err != nil {
			return nil, err
		}
	}
	return env, nil
}

func (c *Checker) checkModule(mod *ast.Module) error {
	for _, d := range mod.Decls {
		switch n := d.(type) {
		case *ast.FunDecl:
			if err := c.checkFun(n, nil, ""); err != nil {
				return err
			}
		case *ast.EntryDecl:
			if !n.Ret.Void {
				return errs.NewType(c.Path, n.Line, n.Col, "entry() must have a void return spec (( -- ))")
			}
			c.locals = NewLocals()
			c.retTypes = nil
			c.retVoid = true
			c.class = nil
			if err := c.checkBlockNoScope(n.Body); err != nil {
				return err
			}
		case *ast.ClassDecl:
			ci := c.Env.Modules[c.ModName].Classes[n.Name]
			for _, m := range n.Methods {
				if err := c.checkFun(m, ci, n.Name); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (c *Checker) checkFun(f *ast.FunDecl, class *ClassInfo, className string) error {
	c.locals = NewLocals()
	c.class = class
	c.className = className

	for _, p := range f.Params {
		if p.IsThis {
			c.locals.Define("this", &Binding{Ty: Class(className), IsMut: p.IsMut})
			continue
		}
		ty, err := tyFromType(c.Env, p.Typ, c.Path, p.Line, p.Col)
		if err != nil {
			return err
		}
		c.locals.Define(p.Name, &Binding{Ty: ty, IsMut: p.IsMut, IsSealed: c.isSealed(ty)})
	}

	if f.Ret.Void {
		c.retVoid = true
		c.retTypes = nil
	} else {
		c.retVoid = false
		c.retTypes = nil
		for _, rt := range f.Ret.Types {
			ty, err := tyFromType(c.Env, rt, c.Path, f.Line, f.Col)
			if err != nil {
				return err
			}
			c.retTypes = append(c.retTypes, ty)
		}
	}

	return c.checkBlockNoScope(f.Body)
}

func (c *Checker) isSealed(ty *Ty) bool {
	if ty == nil || ty.Kind != KClass {
		return false
	}
	mod, cls := c.resolveClassName(ty.Name)
	if mod == nil {
		return false
	}
	ci, ok := mod.Classes[cls]
	return ok && ci.Decl.IsSeal
}

// resolveClassName resolves a (possibly dotted) class name against the
// current module first, then as a module-qualified reference.
func (c *Checker) resolveClassName(name string) (*ModuleEnv, string) {
	modName, cls := splitDotted(name)
	if modName != "" {
		if me, ok := c.Env.Modules[modName]; ok {
			return me, cls
		}
		return nil, ""
	}
	if me, ok := c.Env.Modules[c.ModName]; ok {
		if _, ok := me.Classes[name]; ok {
			return me, name
		}
	}
	return nil, ""
}

func (c *Checker) checkBlockNoScope(b *ast.Block) error {
	for _, s := range b.Stmts {
		if err := c.checkStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkBlock(b *ast.Block) error {
	c.locals.Push()
	defer c.locals.Pop()
	return c.checkBlockNoScope(b)
}

func (c *Checker) checkStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.Block:
		return c.checkBlock(n)
	case *ast.LetStmt:
		ty, err := c.exprType(n.Expr)
		if err != nil {
			return err
		}
		c.locals.Define(n.Name, &Binding{Ty: ty, IsMut: n.IsMut, IsSealed: c.isSealed(ty)})
		return nil
	case *ast.ConstStmt:
		ty, err := c.exprType(n.Expr)
		if err != nil {
			return err
		}
		c.locals.Define(n.Name, &Binding{Ty: ty, IsMut: false})
		return nil
	case *ast.IfStmt:
		return c.checkIf(n)
	case *ast.ForStmt:
		c.locals.Push()
		defer c.locals.Pop()
		if n.Init != nil {
			if err := c.checkStmt(n.Init); err != nil {
				return err
			}
		}
		if n.Cond != nil {
			ty, err := c.exprType(n.Cond)
			if err != nil {
				return err
			}
			if !unify(ty, TyBool) {
				return errs.NewType(c.Path, n.Line, n.Col, "for condition must be bool, got %s", ty)
			}
		}
		if n.Step != nil {
			if err := c.checkStmt(n.Step); err != nil {
				return err
			}
		}
		return c.checkBlock(n.Body)
	case *ast.ForEachStmt:
		ty, err := c.exprType(n.Expr)
		if err != nil {
			return err
		}
		if ty.Kind != KArray {
			return errs.NewType(c.Path, n.Line, n.Col, "for-in target must be an array, got %s", ty)
		}
		c.locals.Push()
		defer c.locals.Pop()
		c.locals.Define(n.Name, &Binding{Ty: ty.Elem, IsSealed: c.isSealed(ty.Elem)})
		return c.checkBlock(n.Body)
	case *ast.ReturnStmt:
		if c.retVoid {
			if n.Expr != nil {
				return errs.NewType(c.Path, n.Line, n.Col, "return with a value not permitted in a void function")
			}
			return nil
		}
		if n.Expr == nil {
			return errs.NewType(c.Path, n.Line, n.Col, "missing return value")
		}
		ty, err := c.exprType(n.Expr)
		if err != nil {
			return err
		}
		want := c.wantReturnTy()
		if !ensureAssignable(ty, want) {
			return errs.NewType(c.Path, n.Line, n.Col, "return type mismatch: want %s, got %s", want, ty)
		}
		return nil
	case *ast.ExprStmt:
		_, err := c.exprType(n.Expr)
		return err
	}
	return nil
}

func (c *Checker) wantReturnTy() *Ty {
	if len(c.retTypes) == 1 {
		return c.retTypes[0]
	}
	return Tuple(c.retTypes)
}

// checkIf implements flow-sensitive null narrowing restricted to a two-arm
// `if (x == null) {...} else {...}` (spec.md §4.5): the then-arm sees x
// narrowed to null, the else-arm sees x narrowed to its non-nullable base.
// `null == x` is treated the same, and `x != null` / `null != x` swap the
// two narrowings.
// Every other if/elif/else shape type-checks each arm against an
// independent clone of the current Locals, discarded once the arm
// finishes — narrowing inside one arm never escapes it.
func (c *Checker) checkIf(n *ast.IfStmt) error {
	if len(n.Arms) == 2 && n.Arms[1].Cond == nil {
		if name, negate, ok := nullCheckShape(n.Arms[0].Cond); ok {
			if b, found := c.locals.Lookup(name); found && b.Ty.Kind == KNullable {
				thenLocals := c.locals.Clone()
				elseLocals := c.locals.Clone()
				thenTy, elseTy := TyNull, b.Ty.Elem
				if negate {
					thenTy, elseTy = b.Ty.Elem, TyNull
				}
				thenLocals.Update(name, &Binding{Ty: thenTy, IsMut: b.IsMut})
				elseLocals.Update(name, &Binding{Ty: elseTy, IsMut: b.IsMut, IsSealed: c.isSealed(elseTy)})

				saved := c.locals
				c.locals = thenLocals
				if err := c.checkBlock(n.Arms[0].Body); err != nil {
					return err
				}
				c.locals = elseLocals
				if err := c.checkBlock(n.Arms[1].Body); err != nil {
					return err
				}
				c.locals = saved
				return nil
			}
		}
	}

	for _, arm := range n.Arms {
		if arm.Cond != nil {
			ty, err := c.exprType(arm.Cond)
			if err != nil {
				return err
			}
			if !unify(ty, TyBool) {
				return errs.NewType(c.Path, arm.Line, arm.Col, "if condition must be bool, got %s", ty)
			}
		}
		saved := c.locals
		c.locals = c.locals.Clone()
		if err := c.checkBlock(arm.Body); err != nil {
			return err
		}
		c.locals = saved
	}
	return nil
}

// nullCheckShape recognizes `x == null` / `null == x` (ok, negate=false) and
// `x != null` / `null != x` (ok, negate=true).
func nullCheckShape(e ast.Expr) (name string, negate bool, ok bool) {
	bin, isBin := e.(*ast.Binary)
	if !isBin || (bin.Op != "==" && bin.Op != "!=") {
		return "", false, false
	}
	negate = bin.Op == "!="
	if id, isID := bin.A.(*ast.Ident); isID {
		if _, isNull := bin.B.(*ast.NullLit); isNull {
			return id.Name, negate, true
		}
	}
	if id, isID := bin.B.(*ast.Ident); isID {
		if _, isNull := bin.A.(*ast.NullLit); isNull {
			return id.Name, negate, true
		}
	}
	return "", false, false
}

func (c *Checker) exprType(e ast.Expr) (*Ty, error) {
	switch n := e.(type) {
	case *ast.IntLit:
		return TyNum, nil
	case *ast.FloatLit:
		return TyNum, nil
	case *ast.BoolLit:
		return TyBool, nil
	case *ast.NullLit:
		return TyNull, nil
	case *ast.StrLit:
		for _, part := range n.Parts {
			if part.Kind == "var" {
				if _, ok := c.locals.Lookup(part.Name); !ok {
					return nil, errs.NewType(c.Path, n.Line, n.Col, "undefined interpolation variable %q", part.Name)
				}
			}
		}
		return TyString, nil
	case *ast.Ident:
		if b, ok := c.locals.Lookup(n.Name); ok {
			if b.Moved {
				return nil, errs.NewType(c.Path, n.Line, n.Col, "use of moved-from value %q", n.Name)
			}
			return b.Ty, nil
		}
		if fd, ok := c.Env.Modules[c.ModName].Funcs[n.Name]; ok {
			return c.fnTypeOf(fd)
		}
		return nil, errs.NewType(c.Path, n.Line, n.Col, "undefined name %q", n.Name)
	case *ast.ArrayLit:
		if len(n.Items) == 0 {
			return Array(&Ty{Kind: KGen}), nil
		}
		first, err := c.exprType(n.Items[0])
		if err != nil {
			return nil, err
		}
		for _, it := range n.Items[1:] {
			ty, err := c.exprType(it)
			if err != nil {
				return nil, err
			}
			if !unify(first, ty) {
				return nil, errs.NewType(c.Path, n.Line, n.Col, "array literal elements must share one type")
			}
		}
		return Array(first), nil
	case *ast.TupleLit:
		items := make([]*Ty, len(n.Items))
		for i, it := range n.Items {
			ty, err := c.exprType(it)
			if err != nil {
				return nil, err
			}
			items[i] = ty
		}
		return Tuple(items), nil
	case *ast.Unary:
		return c.unaryType(n)
	case *ast.Binary:
		return c.binaryType(n)
	case *ast.Assign:
		return c.assignType(n)
	case *ast.Index:
		return c.indexType(n)
	case *ast.Member:
		return c.memberType(n)
	case *ast.Paren:
		return c.exprType(n.X)
	case *ast.Ternary:
		cond, err := c.exprType(n.Cond)
		if err != nil {
			return nil, err
		}
		if !unify(cond, TyBool) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "ternary condition must be bool")
		}
		a, err := c.exprType(n.A)
		if err != nil {
			return nil, err
		}
		b, err := c.exprType(n.B)
		if err != nil {
			return nil, err
		}
		if !unify(a, b) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "ternary arms must share one type")
		}
		return a, nil
	case *ast.MatchExpr:
		return c.matchType(n)
	case *ast.LambdaExpr:
		return c.lambdaType(n)
	case *ast.NewExpr:
		return c.newType(n)
	case *ast.MoveExpr:
		return c.moveType(n)
	case *ast.Call:
		return c.callType(n)
	}
	return nil, errs.NewType(c.Path, 0, 0, "unhandled expression node %T", e)
}

func (c *Checker) fnTypeOf(f *ast.FunDecl) (*Ty, error) {
	var params []*Ty
	for _, p := range f.Params {
		if p.IsThis {
			continue
		}
		ty, err := tyFromType(c.Env, p.Typ, c.Path, p.Line, p.Col)
		if err != nil {
			return nil, err
		}
		params = append(params, ty)
	}
	ret := &Ty{Kind: KNull}
	if !f.Ret.Void {
		var rets []*Ty
		for _, rt := range f.Ret.Types {
			ty, err := tyFromType(c.Env, rt, c.Path, f.Line, f.Col)
			if err != nil {
				return nil, err
			}
			rets = append(rets, ty)
		}
		if len(rets) == 1 {
			ret = rets[0]
		} else {
			ret = Tuple(rets)
		}
	}
	return Fn(params, ret), nil
}

func (c *Checker) unaryType(n *ast.Unary) (*Ty, error) {
	xt, err := c.exprType(n.X)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "!":
		if !unify(xt, TyBool) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "! requires bool, got %s", xt)
		}
		return TyBool, nil
	case "-":
		if unify(xt, TyNum) {
			return xt, nil
		}
		return nil, errs.NewType(c.Path, n.Line, n.Col, "unary - requires num, got %s", xt)
	}
	return nil, errs.NewType(c.Path, n.Line, n.Col, "unknown unary operator %q", n.Op)
}

func (c *Checker) binaryType(n *ast.Binary) (*Ty, error) {
	at, err := c.exprType(n.A)
	if err != nil {
		return nil, err
	}
	bt, err := c.exprType(n.B)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case "+", "-", "*", "/", "%":
		if n.Op == "+" && unify(at, TyString) && unify(bt, TyString) {
			return TyString, nil
		}
		if !unify(at, TyNum) || !unify(bt, TyNum) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "%s requires numeric operands, got %s and %s", n.Op, at, bt)
		}
		return TyNum, nil
	case "==", "!=":
		if !unify(at, bt) && at.Kind != KNull && bt.Kind != KNull {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "cannot compare %s and %s", at, bt)
		}
		return TyBool, nil
	case "<", "<=", ">", ">=":
		if !unify(at, TyNum) || !unify(bt, TyNum) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "%s requires numeric operands", n.Op)
		}
		return TyBool, nil
	case "&&", "||":
		if !unify(at, TyBool) || !unify(bt, TyBool) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "%s requires bool operands", n.Op)
		}
		return TyBool, nil
	}
	return nil, errs.NewType(c.Path, n.Line, n.Col, "unknown binary operator %q", n.Op)
}

func (c *Checker) assignType(n *ast.Assign) (*Ty, error) {
	vt, err := c.exprType(n.Value)
	if err != nil {
		return nil, err
	}
	switch t := n.Target.(type) {
	case *ast.Ident:
		b, ok := c.locals.Lookup(t.Name)
		if !ok {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "assignment to undefined name %q", t.Name)
		}
		if !b.IsMut {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "assignment to immutable binding %q", t.Name)
		}
		if !ensureAssignable(vt, b.Ty) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "cannot assign %s to %s", vt, b.Ty)
		}
		c.locals.Update(t.Name, &Binding{Ty: b.Ty, IsMut: true, IsSealed: b.IsSealed})
		return b.Ty, nil
	case *ast.Index:
		it, err := c.indexType(t)
		if err != nil {
			return nil, err
		}
		if !ensureAssignable(vt, it) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "cannot assign %s to array element of type %s", vt, it)
		}
		return it, nil
	case *ast.Member:
		mt, err := c.memberType(t)
		if err != nil {
			return nil, err
		}
		if !ensureAssignable(vt, mt) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "cannot assign %s to field of type %s", vt, mt)
		}
		return mt, nil
	}
	return nil, errs.NewType(c.Path, n.Line, n.Col, "invalid assignment target")
}

func (c *Checker) indexType(n *ast.Index) (*Ty, error) {
	at, err := c.exprType(n.A)
	if err != nil {
		return nil, err
	}
	it, err := c.exprType(n.I)
	if err != nil {
		return nil, err
	}
	if !unify(it, TyNum) {
		return nil, errs.NewType(c.Path, n.Line, n.Col, "index must be num, got %s", it)
	}
	if unify(at, TyString) {
		return TyString, nil
	}
	if at.Kind == KArray {
		return at.Elem, nil
	}
	return nil, errs.NewType(c.Path, n.Line, n.Col, "cannot index %s", at)
}

func (c *Checker) memberType(n *ast.Member) (*Ty, error) {
	if id, ok := n.A.(*ast.Ident); ok {
		if _, isMod := c.Env.Modules[id.Name]; isMod {
			if _, local := c.locals.Lookup(id.Name); !local {
				if ty, ok := c.Env.ModuleConsts[id.Name][n.Name]; ok {
					return ty, nil
				}
				return nil, errs.NewType(c.Path, n.Line, n.Col, "unknown module constant %s.%s", id.Name, n.Name)
			}
		}
	}
	at, err := c.exprType(n.A)
	if err != nil {
		return nil, err
	}
	if at.Kind != KClass {
		return nil, errs.NewType(c.Path, n.Line, n.Col, "cannot access field %q on non-class type %s", n.Name, at)
	}
	me, cls := c.resolveClassName(at.Name)
	if me == nil {
		return nil, errs.NewType(c.Path, n.Line, n.Col, "unknown class %q", at.Name)
	}
	ci, ok := me.Classes[cls]
	if !ok {
		return nil, errs.NewType(c.Path, n.Line, n.Col, "unknown class %q", at.Name)
	}
	if ft, ok := ci.Fields[n.Name]; ok {
		return ft, nil
	}
	return nil, errs.NewType(c.Path, n.Line, n.Col, "class %q has no field %q", at.Name, n.Name)
}

func (c *Checker) matchType(n *ast.MatchExpr) (*Ty, error) {
	if _, err := c.exprType(n.Scrut); err != nil {
		return nil, err
	}
	var result *Ty
	for _, arm := range n.Arms {
		c.locals.Push()
		if id, ok := arm.Pat.(*ast.PatIdent); ok {
			st, _ := c.exprType(n.Scrut)
			c.locals.Define(id.Name, &Binding{Ty: st})
		}
		ty, err := c.exprType(arm.Expr)
		c.locals.Pop()
		if err != nil {
			return nil, err
		}
		if result == nil {
			result = ty
		} else if !unify(result, ty) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "match arms must share one result type")
		}
	}
	if result == nil {
		return nil, errs.NewType(c.Path, n.Line, n.Col, "match expression has no arms")
	}
	return result, nil
}

func (c *Checker) lambdaType(n *ast.LambdaExpr) (*Ty, error) {
	c.locals.Push()
	defer c.locals.Pop()
	var params []*Ty
	genSeq := 0
	for _, p := range n.Params {
		var ty *Ty
		if p.Typ != nil {
			var err error
			ty, err = tyFromType(c.Env, p.Typ, c.Path, p.Line, p.Col)
			if err != nil {
				return nil, err
			}
		} else {
			ty = &Ty{Kind: KGen, GenID: genSeq}
			genSeq++
		}
		params = append(params, ty)
		c.locals.Define(p.Name, &Binding{Ty: ty, IsMut: p.IsMut})
	}
	ret, err := c.exprType(n.Body)
	if err != nil {
		return nil, err
	}
	return Fn(params, ret), nil
}

func (c *Checker) newType(n *ast.NewExpr) (*Ty, error) {
	me, cls := c.resolveClassName(n.Name)
	if me == nil {
		return nil, errs.NewType(c.Path, n.Line, n.Col, "unknown class %q", n.Name)
	}
	ci := me.Classes[cls]

	// Constructor arguments are never sealed-move-checked (DESIGN.md entry 5).
	if init, ok := ci.Methods["init"]; ok {
		want := 0
		for _, p := range init.Params {
			if !p.IsThis {
				want++
			}
		}
		if len(n.Args) != want {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "init expects %d args, got %d", want, len(n.Args))
		}
		pi := 0
		for _, p := range init.Params {
			if p.IsThis {
				continue
			}
			at, err := c.exprType(n.Args[pi])
			if err != nil {
				return nil, err
			}
			pt, err := tyFromType(c.Env, p.Typ, c.Path, p.Line, p.Col)
			if err != nil {
				return nil, err
			}
			if !ensureAssignable(at, pt) {
				return nil, errs.NewType(c.Path, n.Line, n.Col, "init argument %d: cannot assign %s to %s", pi, at, pt)
			}
			pi++
		}
	} else {
		if len(n.Args) != len(ci.FieldOrder) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "class %q has %d fields, got %d constructor args", n.Name, len(ci.FieldOrder), len(n.Args))
		}
		for i, fname := range ci.FieldOrder {
			at, err := c.exprType(n.Args[i])
			if err != nil {
				return nil, err
			}
			ft := ci.Fields[fname]
			if !ensureAssignable(at, ft) {
				return nil, errs.NewType(c.Path, n.Line, n.Col, "field %q: cannot assign %s to %s", fname, at, ft)
			}
		}
	}

	if me.Name == c.ModName {
		return Class(n.Name), nil
	}
	return Class(me.Name + "." + n.Name), nil
}

func (c *Checker) moveType(n *ast.MoveExpr) (*Ty, error) {
	id, ok := n.X.(*ast.Ident)
	if !ok {
		return nil, errs.NewType(c.Path, n.Line, n.Col, "move() requires a plain local variable")
	}
	b, ok := c.locals.Lookup(id.Name)
	if !ok {
		return nil, errs.NewType(c.Path, n.Line, n.Col, "move() of undefined name %q", id.Name)
	}
	ty := b.Ty
	c.locals.Update(id.Name, &Binding{Ty: b.Ty, IsMut: b.IsMut, IsSealed: b.IsSealed, Moved: true})
	return ty, nil
}

// callType implements the three non-dynamic call-site shapes (module-
// qualified, method, bare-named-function) plus the dynamic function-value
// fallback, and enforces the sealed-move protocol at the first three only,
// per DESIGN.md entry 5.
func (c *Checker) callType(n *ast.Call) (*Ty, error) {
	if mem, ok := n.Fn.(*ast.Member); ok {
		if id, ok := mem.A.(*ast.Ident); ok {
			if _, isLocal := c.locals.Lookup(id.Name); !isLocal {
				if id.Name == "stdr" && stdrPrelude[mem.Name] {
					return c.stdrCallType(n, mem.Name)
				}
				if me, isMod := c.Env.Modules[id.Name]; isMod {
					fd, ok := me.Funcs[mem.Name]
					if !ok {
						return nil, errs.NewType(c.Path, n.Line, n.Col, "module %q has no function %q", id.Name, mem.Name)
					}
					return c.checkCallArgs(n, fd.Params, fd.Ret)
				}
			}
		}
		// Method call: resolve the receiver's class and dispatch by name.
		at, err := c.exprType(mem.A)
		if err != nil {
			return nil, err
		}
		if at.Kind == KClass {
			me, cls := c.resolveClassName(at.Name)
			if me == nil {
				return nil, errs.NewType(c.Path, n.Line, n.Col, "unknown class %q", at.Name)
			}
			ci := me.Classes[cls]
			fd, ok := ci.Methods[mem.Name]
			if !ok {
				return nil, errs.NewType(c.Path, n.Line, n.Col, "class %q has no method %q", at.Name, mem.Name)
			}
			var params []*ast.Param
			for _, p := range fd.Params {
				if !p.IsThis {
					params = append(params, p)
				}
			}
			return c.checkCallArgs(n, params, fd.Ret)
		}
		if at.Kind == KArray {
			return c.arrayMethodType(n, mem, at)
		}
		return nil, errs.NewType(c.Path, n.Line, n.Col, "cannot call method %q on %s", mem.Name, at)
	}

	if id, ok := n.Fn.(*ast.Ident); ok {
		if _, isLocal := c.locals.Lookup(id.Name); !isLocal {
			if stdrPrelude[id.Name] {
				return c.stdrCallType(n, id.Name)
			}
			if fd, ok := c.Env.Modules[c.ModName].Funcs[id.Name]; ok {
				return c.checkCallArgs(n, fd.Params, fd.Ret)
			}
			if me, ok := c.Env.Modules["stdr"]; ok {
				if fd, ok := me.Funcs[id.Name]; ok {
					return c.checkCallArgs(n, fd.Params, fd.Ret)
				}
			}
			return nil, errs.NewType(c.Path, n.Line, n.Col, "undefined function %q", id.Name)
		}
	}

	// Dynamic function-value call: no sealed-move enforcement.
	ft, err := c.exprType(n.Fn)
	if err != nil {
		return nil, err
	}
	if ft.Kind != KFn {
		return nil, errs.NewType(c.Path, n.Line, n.Col, "cannot call non-function value of type %s", ft)
	}
	if len(n.Args) != len(ft.Params) {
		return nil, errs.NewType(c.Path, n.Line, n.Col, "expected %d arguments, got %d", len(ft.Params), len(n.Args))
	}
	for i, a := range n.Args {
		at, err := c.exprType(a)
		if err != nil {
			return nil, err
		}
		if !ensureAssignable(at, ft.Params[i]) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "argument %d: cannot assign %s to %s", i, at, ft.Params[i])
		}
	}
	return ft.Ret, nil
}

func (c *Checker) arrayMethodType(n *ast.Call, mem *ast.Member, at *Ty) (*Ty, error) {
	switch mem.Name {
	case "add":
		if len(n.Args) != 1 {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "array.add expects 1 argument")
		}
		vt, err := c.exprType(n.Args[0])
		if err != nil {
			return nil, err
		}
		if !ensureAssignable(vt, at.Elem) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "cannot add %s to array of %s", vt, at.Elem)
		}
		return TyNull, nil
	case "remove":
		if len(n.Args) != 1 {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "array.remove expects 1 argument")
		}
		it, err := c.exprType(n.Args[0])
		if err != nil {
			return nil, err
		}
		if !unify(it, TyNum) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "array.remove index must be num")
		}
		return at.Elem, nil
	case "to_string":
		if len(n.Args) != 0 {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "array.to_string expects no arguments")
		}
		return TyString, nil
	}
	return nil, errs.NewType(c.Path, n.Line, n.Col, "array has no method %q", mem.Name)
}

// stdrCallType types the handful of compiler-known prelude builtins that
// bypass ordinary function-declaration lookup (spec.md §4.6).
func (c *Checker) stdrCallType(n *ast.Call, name string) (*Ty, error) {
	switch name {
	case "write":
		if len(n.Args) != 1 {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "write expects 1 argument")
		}
		if _, err := c.exprType(n.Args[0]); err != nil {
			return nil, err
		}
		return TyNull, nil
	case "writef":
		for _, a := range n.Args {
			if _, err := c.exprType(a); err != nil {
				return nil, err
			}
		}
		return TyNull, nil
	case "readf":
		for _, a := range n.Args {
			if _, err := c.exprType(a); err != nil {
				return nil, err
			}
		}
		return TyNull, nil
	case "len":
		if len(n.Args) != 1 {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "len expects 1 argument")
		}
		at, err := c.exprType(n.Args[0])
		if err != nil {
			return nil, err
		}
		if at.Kind != KArray && !unify(at, TyString) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "len requires an array or string, got %s", at)
		}
		return TyNum, nil
	case "is_null":
		if len(n.Args) != 1 {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "is_null expects 1 argument")
		}
		if _, err := c.exprType(n.Args[0]); err != nil {
			return nil, err
		}
		return TyBool, nil
	case "str":
		if len(n.Args) != 1 {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "str expects 1 argument")
		}
		if _, err := c.exprType(n.Args[0]); err != nil {
			return nil, err
		}
		return TyString, nil
	}
	return nil, errs.NewType(c.Path, n.Line, n.Col, "unknown builtin %q", name)
}

// checkCallArgs enforces arity/assignability and the sealed-move protocol:
// every formal parameter whose type names a sealed class requires the
// matching actual argument to be a MoveExpr.
func (c *Checker) checkCallArgs(n *ast.Call, params []*ast.Param, ret *ast.RetSpec) (*Ty, error) {
	if len(n.Args) != len(params) {
		return nil, errs.NewType(c.Path, n.Line, n.Col, "expected %d arguments, got %d", len(params), len(n.Args))
	}
	for i, p := range params {
		pt, err := tyFromType(c.Env, p.Typ, c.Path, p.Line, p.Col)
		if err != nil {
			return nil, err
		}
		if c.isSealed(pt) {
			if _, ok := n.Args[i].(*ast.MoveExpr); !ok {
				return nil, errs.NewType(c.Path, n.Line, n.Col,
					"argument %d to %q: sealed class %s requires move(...)", i, p.Name, pt)
			}
		}
		at, err := c.exprType(n.Args[i])
		if err != nil {
			return nil, err
		}
		if !ensureAssignable(at, pt) {
			return nil, errs.NewType(c.Path, n.Line, n.Col, "argument %d: cannot assign %s to %s", i, at, pt)
		}
	}
	if ret.Void {
		return TyNull, nil
	}
	var rets []*Ty
	for _, rt := range ret.Types {
		ty, err := tyFromType(c.Env, rt, c.Path, n.Line, n.Col)
		if err != nil {
			return nil, err
		}
		rets = append(rets, ty)
	}
	if len(rets) == 1 {
		return rets[0], nil
	}
	return Tuple(rets), nil
}
