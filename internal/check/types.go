// Package check builds the whole-program global environment and type-checks
// every module against it, per spec.md §4.4 and §4.5.
package check

import "fmt"

// Kind discriminates the tagged-union shape of a Ty.
type Kind int

const (
	KPrim Kind = iota
	KClass
	KArray
	KTuple
	KFn
	KNull // the type of the `null` literal itself, before narrowing
	KNullable
	KMod
	KGen // a fresh unbound generic variable, from an unannotated lambda param
)

// Ty is the compiler's structural type representation: a tagged union over
// primitive names, class names (possibly module-qualified), arrays, tuples,
// function signatures, the null type, a nullable wrapper, module
// pseudo-types (for `mod.name` resolution), and unbound generics.
type Ty struct {
	Kind   Kind
	Name   string // KPrim ("num","bool","string"), KClass, KMod
	Elem   *Ty    // KArray, KNullable (wrapped base)
	Items  []*Ty  // KTuple
	Params []*Ty  // KFn
	Ret    *Ty    // KFn
	GenID  int    // KGen
}

func Prim(name string) *Ty   { return &Ty{Kind: KPrim, Name: name} }
func Class(name string) *Ty  { return &Ty{Kind: KClass, Name: name} }
func Array(elem *Ty) *Ty     { return &Ty{Kind: KArray, Elem: elem} }
func Tuple(items []*Ty) *Ty  { return &Ty{Kind: KTuple, Items: items} }
func Fn(params []*Ty, ret *Ty) *Ty {
	return &Ty{Kind: KFn, Params: params, Ret: ret}
}
func Nullable(base *Ty) *Ty {
	if base.Kind == KNullable {
		return base
	}
	return &Ty{Kind: KNullable, Elem: base}
}
func Mod(name string) *Ty { return &Ty{Kind: KMod, Name: name} }

var (
	TyNum    = Prim("num")
	TyBool   = Prim("bool")
	TyString = Prim("string")
	TyNull   = &Ty{Kind: KNull}
)

func (t *Ty) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KPrim, KClass, KMod:
		return t.Name
	case KArray:
		return fmt.Sprintf("[%s]", t.Elem)
	case KTuple:
		s := "("
		for i, it := range t.Items {
			if i > 0 {
				s += ", "
			}
			s += it.String()
		}
		return s + ")"
	case KFn:
		s := "fn("
		for i, p := range t.Params {
			if i > 0 {
				s += ", "
			}
			s += p.String()
		}
		return s + ") -> " + t.Ret.String()
	case KNull:
		return "null"
	case KNullable:
		return t.Elem.String() + "?"
	case KGen:
		return fmt.Sprintf("<gen%d>", t.GenID)
	}
	return "?"
}

// unify reports whether a and b are the exact same structural type. A
// KGen unifies with anything (the single instantiation rule described in
// spec.md §9's generics restriction: one fresh variable per unannotated
// lambda parameter, no cross-call polymorphism).
func unify(a, b *Ty) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Kind == KGen || b.Kind == KGen {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KPrim, KClass, KMod:
		return a.Name == b.Name
	case KArray:
		return unify(a.Elem, b.Elem)
	case KNullable:
		return unify(a.Elem, b.Elem)
	case KNull:
		return true
	case KTuple:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !unify(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case KFn:
		if len(a.Params) != len(b.Params) || !unify(a.Ret, b.Ret) {
			return false
		}
		for i := range a.Params {
			if !unify(a.Params[i], b.Params[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// ensureAssignable is the looser, directional compatibility check used at
// assignment and call sites: `null` and any T are assignable to `T?`; a
// non-nullable T is assignable to itself; otherwise falls back to unify.
func ensureAssignable(from, to *Ty) bool {
	if to == nil || from == nil {
		return false
	}
	if to.Kind == KNullable {
		if from.Kind == KNull {
			return true
		}
		if from.Kind == KNullable {
			return unify(from.Elem, to.Elem)
		}
		return unify(from, to.Elem)
	}
	if from.Kind == KNull {
		return false
	}
	return unify(from, to)
}
