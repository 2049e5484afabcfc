package check

import "github.com/lainsce/ergo/internal/ast"

// NewChecker builds a Checker bound to env for re-deriving expression types
// while generating code for one module, mirroring the reference compiler's
// codegen calling back into the same tc_expr logic rather than consuming a
// separately pre-typed tree.
func NewChecker(env *GlobalEnv, modName, path string) *Checker {
	return &Checker{Env: env, ModName: modName, Path: path, locals: NewLocals()}
}

// EnterFunc resets the Checker's local scope and return-type context for
// one function/method body, matching checkFun's setup without re-walking
// the body (the caller, codegen, walks it itself while emitting C).
func (c *Checker) EnterFunc(params []*ast.Param, class *ClassInfo, className string, ret *ast.RetSpec) error {
	c.locals = NewLocals()
	c.class = class
	c.className = className
	for _, p := range params {
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
	if ret.Void {
		c.retVoid = true
		c.retTypes = nil
		return nil
	}
	c.retVoid = false
	c.retTypes = nil
	for _, rt := range ret.Types {
		ty, err := tyFromType(c.Env, rt, c.Path, 0, 0)
		if err != nil {
			return err
		}
		c.retTypes = append(c.retTypes, ty)
	}
	return nil
}

// PushScope/PopScope/DefineLocal let codegen keep its own Checker in sync
// with the C-variable scopes it opens and closes while emitting blocks.
func (c *Checker) PushScope()  { c.locals.Push() }
func (c *Checker) PopScope()   { c.locals.Pop() }

func (c *Checker) DefineLocal(name string, ty *Ty, isMut bool) {
	c.locals.Define(name, &Binding{Ty: ty, IsMut: isMut, IsSealed: c.isSealed(ty)})
}

// ExprType re-derives the type of e under the Checker's current scope,
// without re-checking statements; it's the same tc_expr logic the initial
// whole-program check used.
func (c *Checker) ExprType(e ast.Expr) (*Ty, error) {
	return c.exprType(e)
}

// ClassOf resolves a class-typed Ty to its owning ModuleEnv and bare class
// name, or (nil, "") if ty does not name a class.
func (c *Checker) ClassOf(ty *Ty) (*ModuleEnv, string) {
	if ty == nil || ty.Kind != KClass {
		return nil, ""
	}
	return c.resolveClassName(ty.Name)
}

// ResolveClass resolves a (possibly dotted) surface class name the same
// way NewExpr/TypeName resolution does.
func (c *Checker) ResolveClass(name string) (*ModuleEnv, string) {
	return c.resolveClassName(name)
}
