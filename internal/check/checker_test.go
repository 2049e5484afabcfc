package check

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lainsce/ergo/internal/ast"
	"github.com/lainsce/ergo/internal/loader"
	"github.com/lainsce/ergo/internal/lower"
	"github.com/lainsce/ergo/internal/parser"
)

func TestUnify_PrimitivesAndNullable(t *testing.T) {
	assert.True(t, unify(TyNum, TyNum))
	assert.False(t, unify(TyNum, TyString))
	assert.True(t, unify(Nullable(TyNum), Nullable(TyNum)))
	assert.True(t, unify(Array(TyNum), Array(TyNum)))
	assert.False(t, unify(Array(TyNum), Array(TyString)))
}

func TestUnify_GenVariableUnifiesWithAnything(t *testing.T) {
	gen := &Ty{Kind: KGen, GenID: 1}
	assert.True(t, unify(gen, TyNum))
	assert.True(t, unify(TyString, gen))
}

func TestEnsureAssignable_NullToNullable(t *testing.T) {
	assert.True(t, ensureAssignable(TyNull, Nullable(TyNum)))
	assert.True(t, ensureAssignable(TyNum, Nullable(TyNum)))
	assert.False(t, ensureAssignable(TyNull, TyNum), "null is not assignable to a non-nullable type")
}

func TestEnsureAssignable_PlainTypesFallBackToUnify(t *testing.T) {
	assert.True(t, ensureAssignable(TyNum, TyNum))
	assert.False(t, ensureAssignable(TyNum, TyBool))
}

func TestNullable_CollapsesDoubleWrap(t *testing.T) {
	once := Nullable(TyNum)
	twice := Nullable(once)
	assert.Equal(t, once, twice)
}

// loadAndLower parses src as a single-module program and runs the lowering
// pass, the minimal pipeline prefix TypecheckProgram expects.
func loadAndLower(t *testing.T, src string) *ast.Program {
	t.Helper()
	mod, err := parser.Parse("t.e", src)
	require.NoError(t, err)
	lower.Module(mod)
	return &ast.Program{Mods: []*ast.Module{mod}}
}

func TestTypecheckProgram_SimpleEntryOK(t *testing.T) {
	prog := loadAndLower(t, `
bring stdr;

entry() (( -- )) {
  let x = 1 + 2;
  write(stdr.str(x));
}
`)
	_, err := TypecheckProgram(prog)
	require.NoError(t, err)
}

func TestTypecheckProgram_MismatchedAssignmentFails(t *testing.T) {
	prog := loadAndLower(t, `
bring stdr;

entry() (( -- )) {
  let ?x = 1;
  x = true;
}
`)
	_, err := TypecheckProgram(prog)
	require.Error(t, err)
}

func TestTypecheckProgram_ArrayAddAndIndexOK(t *testing.T) {
	prog := loadAndLower(t, `
bring stdr;

entry() (( -- )) {
  let ?xs = [1, 2, 3];
  xs.add(4);
  write(stdr.str(xs[0]));
}
`)
	_, err := TypecheckProgram(prog)
	require.NoError(t, err)
}

func TestTypecheckProgram_MissingEntryFails(t *testing.T) {
	prog := loadAndLower(t, `
bring stdr;

fun f() (( num )) {
  return 1;
}
`)
	_, err := TypecheckProgram(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry()")
}

func TestTypecheckProgram_UndefinedFunctionFails(t *testing.T) {
	prog := loadAndLower(t, `
bring stdr;

entry() (( -- )) {
  nope();
}
`)
	_, err := TypecheckProgram(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "undefined function")
}

func TestTypecheckProgram_FloatLiteralAssignableToNumReturn(t *testing.T) {
	prog := loadAndLower(t, `
bring stdr;

fun half() (( num )) {
  return 1.5;
}

entry() (( -- )) {
  write(stdr.str(half()));
}
`)
	_, err := TypecheckProgram(prog)
	require.NoError(t, err)
}

func TestTypecheckProgram_FloatTypeNameRejected(t *testing.T) {
	prog := loadAndLower(t, `
bring stdr;

fun half(x = float) (( num )) {
  return x;
}

entry() (( -- )) {
}
`)
	_, err := TypecheckProgram(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "use num")
}

// loadProjectAndLower mirrors run.Compile's Load -> per-module lower.Module
// prefix, resolving real `bring` imports (including the embedded math
// stdlib) instead of loadAndLower's single fabricated module.
func loadProjectAndLower(t *testing.T, src string) *ast.Program {
	t.Helper()
	dir := t.TempDir()
	entry := filepath.Join(dir, "init.e")
	require.NoError(t, os.WriteFile(entry, []byte(src), 0o644))

	prog, err := loader.Load(entry)
	require.NoError(t, err)
	for _, mod := range prog.Mods {
		lower.Module(mod)
	}
	return prog
}

func TestTypecheckProgram_MathAbsOfPiTypechecks(t *testing.T) {
	prog := loadProjectAndLower(t, `
bring stdr;
bring math;

entry() (( -- )) {
  write(stdr.str(math.abs(math.PI)));
}
`)
	_, err := TypecheckProgram(prog)
	require.NoError(t, err)
}

func TestTypecheckProgram_DuplicateFunctionFails(t *testing.T) {
	prog := loadAndLower(t, `
bring stdr;

fun f() (( num )) {
  return 1;
}

fun f() (( num )) {
  return 2;
}

entry() (( -- )) {
}
`)
	_, err := TypecheckProgram(prog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate function")
}
