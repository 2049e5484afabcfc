package check

import (
	"github.com/lainsce/ergo/internal/ast"
	"github.com/lainsce/ergo/internal/errs"
)

// ClassInfo is the resolved shape of one class declaration: field types in
// declaration order (order matters for codegen struct layout) and method
// signatures.
type ClassInfo struct {
	Decl       *ast.ClassDecl
	Fields     map[string]*Ty
	FieldOrder []string
	Methods    map[string]*ast.FunDecl
}

// ModuleEnv is the resolved shape of one loaded module.
type ModuleEnv struct {
	Path       string
	Name       string
	Funcs      map[string]*ast.FunDecl
	Classes    map[string]*ClassInfo
	Consts     map[string]*Ty
	ConstDecls map[string]*ast.ConstDecl
}

// GlobalEnv is the whole program's resolved environment, built once before
// any module is type-checked (spec.md §4.4). ModuleConsts is owned state on
// this struct, not a package-level global the reference implementation
// mutates and clears between runs — see DESIGN.md entry 3.
type GlobalEnv struct {
	Modules      map[string]*ModuleEnv
	ModuleConsts map[string]map[string]*Ty
	Entry        *ast.EntryDecl
	EntryPath    string
}

// stdrPrelude is the set of bare (unqualified) names resolvable without a
// module qualifier, per spec.md §4.6 / DESIGN.md entry 9.
var stdrPrelude = map[string]bool{
	"write": true, "writef": true, "readf": true,
	"len": true, "is_null": true, "str": true,
}

// constOnlyModules restricts module-level `const` declarations to the two
// standard-library modules, matching the reference's MODULE_CONSTS rule.
var constOnlyModules = map[string]bool{"stdr": true, "math": true}

// BuildGlobalEnv walks every module in prog once, collecting module names,
// top-level functions, classes (with field/method shape), and module
// constants, and locating the single program entry point. It performs no
// type-checking of expression bodies — that happens per-module afterward.
func BuildGlobalEnv(prog *ast.Program) (*GlobalEnv, error) {
	env := &GlobalEnv{
		Modules:      map[string]*ModuleEnv{},
		ModuleConsts: map[string]map[string]*Ty{},
	}

	for _, mod := range prog.Mods {
		name := moduleName(mod.Path)
		me := &ModuleEnv{
			Path:       mod.Path,
			Name:       name,
			Funcs:      map[string]*ast.FunDecl{},
			Classes:    map[string]*ClassInfo{},
			Consts:     map[string]*Ty{},
			ConstDecls: map[string]*ast.ConstDecl{},
		}
		env.Modules[name] = me

		for _, d := range mod.Decls {
			switch n := d.(type) {
			case *ast.FunDecl:
				if _, dup := me.Funcs[n.Name]; dup {
					return nil, errs.NewType(mod.Path, n.Line, n.Col, "duplicate function %q", n.Name)
				}
				me.Funcs[n.Name] = n
			case *ast.EntryDecl:
				if env.Entry != nil {
					return nil, errs.NewType(mod.Path, n.Line, n.Col, "program has more than one entry()")
				}
				env.Entry = n
				env.EntryPath = mod.Path
			case *ast.ClassDecl:
				if _, dup := me.Classes[n.Name]; dup {
					return nil, errs.NewType(mod.Path, n.Line, n.Col, "duplicate class %q", n.Name)
				}
				ci := &ClassInfo{Decl: n, Fields: map[string]*Ty{}, Methods: map[string]*ast.FunDecl{}}
				for _, f := range n.Fields {
					ty, err := tyFromType(env, f.Typ, mod.Path, f.Line, f.Col)
					if err != nil {
						return nil, err
					}
					ci.Fields[f.Name] = ty
					ci.FieldOrder = append(ci.FieldOrder, f.Name)
				}
				for _, m := range n.Methods {
					ci.Methods[m.Name] = m
				}
				me.Classes[n.Name] = ci
			case *ast.ConstDecl:
				if !constOnlyModules[name] {
					return nil, errs.NewType(mod.Path, n.Line, n.Col,
						"module-level const only permitted in stdr/math, got module %q", name)
				}
				ty, err := constExprType(n.Expr)
				if err != nil {
					return nil, errs.NewType(mod.Path, n.Line, n.Col, "%s", err.Error())
				}
				me.Consts[n.Name] = ty
				me.ConstDecls[n.Name] = n
			}
		}
		env.ModuleConsts[name] = me.Consts
	}

	if env.Entry == nil {
		return nil, errs.NewParseAt("", "program has no entry()")
	}

	return env, nil
}

func moduleName(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			base = path[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

// constExprType types the restricted literal forms permitted in a module
// const initializer: ints, floats, strings, bools.
func constExprType(e ast.Expr) (*Ty, error) {
	switch e.(type) {
	case *ast.IntLit:
		return TyNum, nil
	case *ast.FloatLit:
		return TyNum, nil
	case *ast.StrLit:
		return TyString, nil
	case *ast.BoolLit:
		return TyBool, nil
	}
	return nil, errs.NewTypeAt("", "unsupported const initializer expression")
}

// tyFromType resolves a surface TypeRef to a Ty, per DESIGN.md entry 8: this
// consumes the TypeName/TypeArray nodes the parser now actually builds.
func tyFromType(env *GlobalEnv, t ast.TypeRef, path string, line, col int) (*Ty, error) {
	switch n := t.(type) {
	case *ast.TypeName:
		base, err := tyFromName(env, n.Name, path, line, col)
		if err != nil {
			return nil, err
		}
		if n.Nullable {
			return Nullable(base), nil
		}
		return base, nil
	case *ast.TypeArray:
		elem, err := tyFromType(env, n.Elem, path, line, col)
		if err != nil {
			return nil, err
		}
		arr := Array(elem)
		if n.Nullable {
			return Nullable(arr), nil
		}
		return arr, nil
	}
	return nil, errs.NewType(path, line, col, "invalid type expression")
}

var primNames = map[string]bool{"num": true, "bool": true, "string": true}

func tyFromName(env *GlobalEnv, name string, path string, line, col int) (*Ty, error) {
	if name == "float" || name == "int" {
		return nil, errs.NewType(path, line, col, "unknown type %q (use num)", name)
	}
	if primNames[name] {
		return Prim(name), nil
	}
	// dotted: mod.Class
	modName, cls := splitDotted(name)
	if modName != "" {
		if me, ok := env.Modules[modName]; ok {
			if _, ok := me.Classes[cls]; ok {
				return Class(modName + "." + cls), nil
			}
		}
		return nil, errs.NewType(path, line, col, "unknown type %q", name)
	}
	// bare class name: resolved against the current module at call sites
	// further up the pipeline; here we accept it structurally and let the
	// checker's class lookup confirm existence per-module.
	return Class(name), nil
}

func splitDotted(name string) (mod, rest string) {
	for i := 0; i < len(name); i++ {
		if name[i] == '.' {
			return name[:i], name[i+1:]
		}
	}
	return "", ""
}
