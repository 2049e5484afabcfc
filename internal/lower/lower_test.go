package lower

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lainsce/ergo/internal/ast"
	"github.com/lainsce/ergo/internal/parser"
)

func parseMod(t *testing.T, src string) *ast.Module {
	t.Helper()
	mod, err := parser.Parse("t.e", src)
	require.NoError(t, err)
	return mod
}

// findEntryBody finds the sole entry() in mod and returns its body.
func findEntryBody(t *testing.T, mod *ast.Module) *ast.Block {
	t.Helper()
	for _, d := range mod.Decls {
		if e, ok := d.(*ast.EntryDecl); ok {
			return e.Body
		}
	}
	t.Fatal("no entry() in module")
	return nil
}

func TestModule_HashUnaryLowersToStdrLenCall(t *testing.T) {
	mod := parseMod(t, `
bring stdr;

entry() (( -- )) {
  let n = #arr;
}
`)
	Module(mod)

	body := findEntryBody(t, mod)
	require.Len(t, body.Stmts, 1)
	let, ok := body.Stmts[0].(*ast.LetStmt)
	require.True(t, ok)

	call, ok := let.Expr.(*ast.Call)
	require.True(t, ok, "expected #arr to lower to a Call, got %T", let.Expr)

	mem, ok := call.Fn.(*ast.Member)
	require.True(t, ok, "expected the call target to be a qualified member, got %T", call.Fn)
	assert.Equal(t, "len", mem.Name)

	recv, ok := mem.A.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "stdr", recv.Name)

	require.Len(t, call.Args, 1)
	argIdent, ok := call.Args[0].(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "arr", argIdent.Name)
}

func TestModule_StdrWritefUnqualifiesName(t *testing.T) {
	mod := parseMod(t, `
bring stdr;

entry() (( -- )) {
  stdr.writef("hi {}", x);
}
`)
	Module(mod)

	body := findEntryBody(t, mod)
	require.Len(t, body.Stmts, 1)
	es, ok := body.Stmts[0].(*ast.ExprStmt)
	require.True(t, ok)
	call, ok := es.Expr.(*ast.Call)
	require.True(t, ok)

	id, ok := call.Fn.(*ast.Ident)
	require.True(t, ok, "expected stdr.writef to unqualify to a bare Ident, got %T", call.Fn)
	assert.Equal(t, "writef", id.Name)
}

func TestModule_StdrWritefKeepsFormatSeparateFromPackedTuple(t *testing.T) {
	mod := parseMod(t, `
bring stdr;

entry() (( -- )) {
  stdr.writef("no args here");
}
`)
	Module(mod)

	body := findEntryBody(t, mod)
	es := body.Stmts[0].(*ast.ExprStmt)
	call := es.Expr.(*ast.Call)
	require.Len(t, call.Args, 2, "writef call must carry the format string plus one packed tuple of the rest")
	_, fmtIsStr := call.Args[0].(*ast.StrLit)
	assert.True(t, fmtIsStr, "expected the format string to stay unpacked, got %T", call.Args[0])
	tup, ok := call.Args[1].(*ast.TupleLit)
	require.True(t, ok, "expected the second argument to be a TupleLit, got %T", call.Args[1])
	assert.Empty(t, tup.Items)
}

func TestModule_BareWritefVariadicGetsWrappedTooAndIsIdempotent(t *testing.T) {
	mod := parseMod(t, `
bring stdr;

entry() (( -- )) {
  writef("{}+{}={}\n", a, b, a + b);
}
`)
	Module(mod)

	body := findEntryBody(t, mod)
	es := body.Stmts[0].(*ast.ExprStmt)
	call := es.Expr.(*ast.Call)

	id, ok := call.Fn.(*ast.Ident)
	require.True(t, ok)
	assert.Equal(t, "writef", id.Name)

	require.Len(t, call.Args, 2)
	tup, ok := call.Args[1].(*ast.TupleLit)
	require.True(t, ok, "expected the rest of the args packed into a TupleLit, got %T", call.Args[1])
	assert.Len(t, tup.Items, 3, "a, b, a+b all belong in the packed tuple")

	// Re-lowering the already-wrapped call must be a no-op (idempotent).
	again := call
	body2 := &ast.Block{Stmts: []ast.Stmt{&ast.ExprStmt{Expr: again, Line: again.Line, Col: again.Col}}}
	rewritten := block(body2)
	es2 := rewritten.Stmts[0].(*ast.ExprStmt)
	call2 := es2.Expr.(*ast.Call)
	require.Len(t, call2.Args, 2)
	tup2, ok := call2.Args[1].(*ast.TupleLit)
	require.True(t, ok)
	assert.Len(t, tup2.Items, 3)
}

func TestModule_OrdinaryUnaryUnaffected(t *testing.T) {
	mod := parseMod(t, `
bring stdr;

entry() (( -- )) {
  let n = -5;
}
`)
	Module(mod)

	body := findEntryBody(t, mod)
	let := body.Stmts[0].(*ast.LetStmt)
	un, ok := let.Expr.(*ast.Unary)
	require.True(t, ok, "expected a plain Unary for -5, got %T", let.Expr)
	assert.Equal(t, "-", un.Op)
}
