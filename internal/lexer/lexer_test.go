package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []TokenKind {
	out := make([]TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLex_SimpleFunDecl(t *testing.T) {
	toks, err := Lex("t.e", "fun add(a = num, b = num) (( num )) { return a + b; }")
	require.NoError(t, err)
	assert.Equal(t, []TokenKind{
		KwFun, IDENT, LPAR, IDENT, EQ, IDENT, COMMA, IDENT, EQ, IDENT, RPAR,
		RETSPECOP, IDENT, RETSPECCL,
		LBRACE, KwReturn, IDENT, PLUS, IDENT, SEMI, RBRACE, SEMI, EOF,
	}, kinds(toks))
}

func TestLex_AutomaticSemicolonInsertion(t *testing.T) {
	toks, err := Lex("t.e", "let x = 1\nlet y = 2\n")
	require.NoError(t, err)
	// SEMI inserted after each let statement's closing int literal.
	var semis int
	for _, t := range toks {
		if t.Kind == SEMI {
			semis++
		}
	}
	assert.Equal(t, 2, semis)
}

func TestLex_NoSemiInsertedInsideParens(t *testing.T) {
	toks, err := Lex("t.e", "foo(1,\n2)\n")
	require.NoError(t, err)
	for i, tok := range toks {
		if tok.Kind == COMMA {
			assert.NotEqual(t, SEMI, toks[i+1].Kind)
		}
	}
}

func TestLex_RetSpecVoid(t *testing.T) {
	toks, err := Lex("t.e", "entry() (( -- )) {}")
	require.NoError(t, err)
	assert.Contains(t, kinds(toks), RETVOID)
}

func TestLex_LineCommentOutsideRetSpec(t *testing.T) {
	toks, err := Lex("t.e", "let x = 1; -- this is a comment\nlet y = 2;")
	require.NoError(t, err)
	for _, tok := range toks {
		assert.NotContains(t, tok.Text, "comment")
	}
}

func TestLex_RawString(t *testing.T) {
	toks, err := Lex("t.e", `"hello world"`)
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, STR, toks[0].Kind)
	require.Len(t, toks[0].StrVal, 1)
	assert.Equal(t, "hello world", toks[0].StrVal[0].Text)
}

func TestLex_InterpolatedStringWithVarAndEscape(t *testing.T) {
	toks, err := Lex("t.e", `@"hi $name, line\nbreak"`)
	require.NoError(t, err)
	require.Len(t, toks, 3)
	parts := toks[0].StrVal
	require.Len(t, parts, 3)
	assert.Equal(t, "text", parts[0].Kind)
	assert.Equal(t, "hi ", parts[0].Text)
	assert.Equal(t, "var", parts[1].Kind)
	assert.Equal(t, "name", parts[1].Name)
	assert.Equal(t, "text", parts[2].Kind)
	assert.Equal(t, ", line\nbreak", parts[2].Text)
}

func TestLex_UnterminatedStringErrors(t *testing.T) {
	_, err := Lex("t.e", `"no closing quote`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated string")
}

func TestLex_UnknownEscapeErrors(t *testing.T) {
	_, err := Lex("t.e", `@"bad \q escape"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown escape")
}

func TestLex_UnexpectedCharErrors(t *testing.T) {
	_, err := Lex("t.e", "let x = 1 ~ 2;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected char")
}

func TestLex_HashAndQmark(t *testing.T) {
	toks, err := Lex("t.e", "#arr ?mut")
	require.NoError(t, err)
	assert.Equal(t, []TokenKind{HASH, IDENT, QMARK, IDENT, SEMI, EOF}, kinds(toks))
}

func TestLex_TwoCharOperators(t *testing.T) {
	toks, err := Lex("t.e", "a == b != c <= d >= e && f || g => h")
	require.NoError(t, err)
	got := kinds(toks)
	want := []TokenKind{
		IDENT, EQEQ, IDENT, NEQ, IDENT, LE, IDENT, GE, IDENT,
		ANDAND, IDENT, OROR, IDENT, FATARROW, IDENT, SEMI, EOF,
	}
	assert.Equal(t, want, got)
}

func TestLex_FloatLiteral(t *testing.T) {
	toks, err := Lex("t.e", "3.14")
	require.NoError(t, err)
	require.Len(t, toks, 3)
	assert.Equal(t, FLOAT, toks[0].Kind)
	assert.InDelta(t, 3.14, toks[0].FloatVal, 1e-9)
}
