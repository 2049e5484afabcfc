package codegen

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lainsce/ergo/internal/ast"
	"github.com/lainsce/ergo/internal/check"
	"github.com/lainsce/ergo/internal/lower"
	"github.com/lainsce/ergo/internal/parser"
)

func compileSrc(t *testing.T, src string) string {
	t.Helper()
	mod, err := parser.Parse("t.e", src)
	require.NoError(t, err)
	lower.Module(mod)
	prog := &ast.Program{Mods: []*ast.Module{mod}}
	env, err := check.TypecheckProgram(prog)
	require.NoError(t, err)
	out, err := Generate(prog, env)
	require.NoError(t, err)
	return out
}

func TestGenerate_EmitsRuntimePreludeAndMain(t *testing.T) {
	out := compileSrc(t, `
bring stdr;

entry() (( -- )) {
}
`)
	assert.Contains(t, out, "int main(void)")
	assert.Contains(t, out, "ErgoVal")
}

func TestGenerate_PlainFunctionGetsMangledName(t *testing.T) {
	out := compileSrc(t, `
bring stdr;

fun double(x = num) (( num )) {
  return x + x;
}

entry() (( -- )) {
  write(stdr.str(double(21)));
}
`)
	assert.Contains(t, out, "ergo_t_double")
}

func TestGenerate_HashLengthCallReachesStdrLenIntrinsic(t *testing.T) {
	out := compileSrc(t, `
bring stdr;

entry() (( -- )) {
  let ?xs = [1, 2, 3];
  write(stdr.str(#xs));
}
`)
	assert.Contains(t, out, "__len(")
}

func TestGenerate_WritefCallMatchesTwoParamRuntimeSignature(t *testing.T) {
	out := compileSrc(t, `
bring stdr;

entry() (( -- )) {
  let a = 2;
  let b = 3;
  writef("{}+{}={}\n", a, b, a + b);
}
`)
	prog := out[strings.Index(out, "/* ---- program ---- */"):]
	m := regexp.MustCompile(`stdr_writef\(ergo_str_new\([^()]*\)((?:, [^(),]+)*)\)`).FindStringSubmatch(prog)
	require.NotNil(t, m, "expected a flat stdr_writef(...) call in generated C, got:\n%s", out)
	parts := append([]string{"fmt"}, strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ' ' })...)
	assert.Len(t, parts, 2, "stdr_writef must receive exactly the (fmt, tuple) pair the runtime declares, got %q", m[0])
}

func TestGenerate_FloatLiteralTypesAsNum(t *testing.T) {
	out := compileSrc(t, `
bring stdr;

fun half() (( num )) {
  return 1.5;
}

entry() (( -- )) {
  write(stdr.str(half()));
}
`)
	assert.Contains(t, out, "ergo_t_half")
}

func TestGenerate_ClassFieldAccessEmitsStructLayout(t *testing.T) {
	out := compileSrc(t, `
bring stdr;

pub class Point {
  x = num;
  y = num;
}

entry() (( -- )) {
  let p = new Point(1, 2);
  write(stdr.str(p.x));
}
`)
	assert.Contains(t, out, "struct")
	assert.Contains(t, out, "ErgoObj base;")
}
