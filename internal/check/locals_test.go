package check

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocals_DefineAndLookup(t *testing.T) {
	l := NewLocals()
	l.Define("x", &Binding{Ty: TyNum})

	b, ok := l.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, TyNum, b.Ty)

	_, ok = l.Lookup("missing")
	assert.False(t, ok)
}

func TestLocals_NestedScopeShadowsOuter(t *testing.T) {
	l := NewLocals()
	l.Define("x", &Binding{Ty: TyNum})
	l.Push()
	l.Define("x", &Binding{Ty: TyString})

	b, ok := l.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, TyString, b.Ty)

	l.Pop()
	b, ok = l.Lookup("x")
	require.True(t, ok)
	assert.Equal(t, TyNum, b.Ty)
}

func TestLocals_UpdateRewritesOwningScopeNotCurrent(t *testing.T) {
	l := NewLocals()
	l.Define("x", &Binding{Ty: Nullable(TyNum)})
	l.Push()
	l.Update("x", &Binding{Ty: TyNum}) // narrowed in the inner scope

	b, _ := l.Lookup("x")
	assert.Equal(t, TyNum, b.Ty)

	l.Pop()
	// The outer scope's binding was rewritten in place (Update finds the
	// owning scope), so the narrowing is visible here too — Clone, not
	// Update, is what isolates a branch's narrowing from its sibling.
	b, _ = l.Lookup("x")
	assert.Equal(t, TyNum, b.Ty)
}

func TestLocals_CloneIsolatesIndependentNarrowing(t *testing.T) {
	base := NewLocals()
	base.Define("x", &Binding{Ty: Nullable(TyNum)})

	thenBranch := base.Clone()
	thenBranch.Update("x", &Binding{Ty: TyNull})

	elseBranch := base.Clone()
	elseBranch.Update("x", &Binding{Ty: TyNum})

	bThen, _ := thenBranch.Lookup("x")
	bElse, _ := elseBranch.Lookup("x")
	bBase, _ := base.Lookup("x")

	assert.Equal(t, TyNull, bThen.Ty)
	assert.Equal(t, TyNum, bElse.Ty)
	assert.Equal(t, Nullable(TyNum), bBase.Ty, "the original Locals must be untouched by either clone's narrowing")
}

func TestLocals_CloneDeepCopiesBindingsNotJustMaps(t *testing.T) {
	base := NewLocals()
	orig := &Binding{Ty: TyNum, IsMut: true}
	base.Define("x", orig)

	clone := base.Clone()
	cloned, _ := clone.Lookup("x")
	cloned.Moved = true

	assert.False(t, orig.Moved, "mutating a field on the cloned Binding must not affect the original")
}
