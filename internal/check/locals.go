package check

// Binding is one variable's resolved type and mutability/move state within
// a Locals scope chain.
type Binding struct {
	Ty       *Ty
	IsMut    bool
	IsSealed bool // true when Ty names a sealed class, for move enforcement
	Moved    bool
}

// Locals is a chain of block scopes mapping name to Binding. Update never
// mutates a Binding value shared by another scope snapshot: it always
// writes a fresh *Binding into the owning scope's map, per DESIGN.md
// entry 2 (no in-place Binding aliasing, unlike the reference's
// `b.ty = new_ty` mutation).
type Locals struct {
	scopes []map[string]*Binding
}

// NewLocals returns a Locals with a single empty top scope.
func NewLocals() *Locals {
	return &Locals{scopes: []map[string]*Binding{{}}}
}

// Push opens a new nested scope.
func (l *Locals) Push() {
	l.scopes = append(l.scopes, map[string]*Binding{})
}

// Pop closes the most recently opened scope.
func (l *Locals) Pop() {
	if len(l.scopes) > 1 {
		l.scopes = l.scopes[:len(l.scopes)-1]
	}
}

// Define binds name in the current (innermost) scope.
func (l *Locals) Define(name string, b *Binding) {
	l.scopes[len(l.scopes)-1][name] = b
}

// Lookup finds name from innermost to outermost scope.
func (l *Locals) Lookup(name string) (*Binding, bool) {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if b, ok := l.scopes[i][name]; ok {
			return b, true
		}
	}
	return nil, false
}

// Update replaces name's binding with a new value in whichever scope
// currently owns it, without mutating the old *Binding in place.
func (l *Locals) Update(name string, b *Binding) {
	for i := len(l.scopes) - 1; i >= 0; i-- {
		if _, ok := l.scopes[i][name]; ok {
			l.scopes[i][name] = b
			return
		}
	}
	l.Define(name, b)
}

// Clone deep-copies every scope's map, producing an independent Locals for
// one if-arm so null-narrowing (spec.md §4.5) in one arm never leaks into
// its sibling arm or the continuation after the if.
func (l *Locals) Clone() *Locals {
	out := &Locals{scopes: make([]map[string]*Binding, len(l.scopes))}
	for i, m := range l.scopes {
		cm := make(map[string]*Binding, len(m))
		for k, v := range m {
			cp := *v
			cm[k] = &cp
		}
		out.scopes[i] = cm
	}
	return out
}
