package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lainsce/ergo/internal/ast"
)

func TestParse_ImportsAndEntry(t *testing.T) {
	mod, err := Parse("t.e", `
bring stdr;
bring math;

entry() (( -- )) {
}
`)
	require.NoError(t, err)
	require.Len(t, mod.Imports, 2)
	assert.Equal(t, "stdr", mod.Imports[0].Name)
	assert.Equal(t, "math", mod.Imports[1].Name)

	require.Len(t, mod.Decls, 1)
	_, ok := mod.Decls[0].(*ast.EntryDecl)
	assert.True(t, ok)
}

func TestParse_FunWithParamsAndReturn(t *testing.T) {
	mod, err := Parse("t.e", `
bring stdr;

fun add(a = num, b = num) (( num )) {
  return a + b;
}

entry() (( -- )) {
}
`)
	require.NoError(t, err)
	fd, ok := mod.Decls[0].(*ast.FunDecl)
	require.True(t, ok)
	assert.Equal(t, "add", fd.Name)
	require.Len(t, fd.Params, 2)
	assert.Equal(t, "a", fd.Params[0].Name)
	assert.False(t, fd.Ret.Void)
	require.Len(t, fd.Ret.Types, 1)
}

func TestParse_VoidReturnSpec(t *testing.T) {
	mod, err := Parse("t.e", `
bring stdr;

fun log(msg = string) (( -- )) {
}

entry() (( -- )) {
}
`)
	require.NoError(t, err)
	fd := mod.Decls[0].(*ast.FunDecl)
	assert.True(t, fd.Ret.Void)
}

func TestParse_IfElseChain(t *testing.T) {
	mod, err := Parse("t.e", `
bring stdr;

entry() (( -- )) {
  if (1 < 2) {
    write("a");
  } elif (1 > 2) {
    write("b");
  } else {
    write("c");
  }
}
`)
	require.NoError(t, err)
	entry := mod.Decls[0].(*ast.EntryDecl)
	ifstmt, ok := entry.Body.Stmts[0].(*ast.IfStmt)
	require.True(t, ok)
	assert.Len(t, ifstmt.Arms, 3)
	assert.Nil(t, ifstmt.Arms[2].Cond, "the trailing else arm has no condition")
}

func TestParse_ClassWithFieldsAndMethod(t *testing.T) {
	mod, err := Parse("t.e", `
bring stdr;

pub class Point {
  x = num;
  y = num;

  pub fun sum(this) (( num )) {
    return this.x + this.y;
  }
}

entry() (( -- )) {
}
`)
	require.NoError(t, err)
	cd, ok := mod.Decls[0].(*ast.ClassDecl)
	require.True(t, ok)
	assert.Equal(t, ast.VisPub, cd.Vis)
	require.Len(t, cd.Fields, 2)
	require.Len(t, cd.Methods, 1)
	assert.Equal(t, "sum", cd.Methods[0].Name)
}

func TestParse_ArrayLiteralAndIndex(t *testing.T) {
	mod, err := Parse("t.e", `
bring stdr;

entry() (( -- )) {
  let ?xs = [1, 2, 3];
  let first = xs[0];
}
`)
	require.NoError(t, err)
	entry := mod.Decls[0].(*ast.EntryDecl)
	let0 := entry.Body.Stmts[0].(*ast.LetStmt)
	arr, ok := let0.Expr.(*ast.ArrayLit)
	require.True(t, ok)
	assert.Len(t, arr.Items, 3)

	let1 := entry.Body.Stmts[1].(*ast.LetStmt)
	idx, ok := let1.Expr.(*ast.Index)
	require.True(t, ok)
	_, ok = idx.A.(*ast.Ident)
	assert.True(t, ok)
}

func TestParse_PrecedenceOfArithmeticAndComparison(t *testing.T) {
	mod, err := Parse("t.e", `
bring stdr;

entry() (( -- )) {
  let r = 1 + 2 * 3 == 7;
}
`)
	require.NoError(t, err)
	entry := mod.Decls[0].(*ast.EntryDecl)
	let := entry.Body.Stmts[0].(*ast.LetStmt)
	bin, ok := let.Expr.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, "==", bin.Op, "== must bind looser than + and *")
}

func TestParse_SyntaxErrorReportsPosition(t *testing.T) {
	_, err := Parse("t.e", `
bring stdr;

entry() (( -- )) {
  let x = ;
}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "t.e:")
}

func TestParse_MissingSemicolonInsideParensIsNotInserted(t *testing.T) {
	mod, err := Parse("t.e", `
bring stdr;

entry() (( -- )) {
  write(
    "hello"
  );
}
`)
	require.NoError(t, err)
	entry := mod.Decls[0].(*ast.EntryDecl)
	assert.Len(t, entry.Body.Stmts, 1)
}
