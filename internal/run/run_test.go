package run

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_TrivialEntry(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "init.e")
	require.NoError(t, os.WriteFile(entry, []byte(`
bring stdr;

entry() (( -- )) {
  let x = 1 + 2;
  write(stdr.str(x));
}
`), 0o644))

	res, err := Compile(entry)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Contains(t, res.C, "int main(void)")
	assert.NotEmpty(t, res.Env.Modules)
}

func TestCompile_TypeErrorSurfaces(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "init.e")
	require.NoError(t, os.WriteFile(entry, []byte(`
bring stdr;

entry() (( -- )) {
  let x = 1;
  let y = true;
  x = y;
}
`), 0o644))

	_, err := Compile(entry)
	require.Error(t, err)
}

func TestEmitC_WritesFile(t *testing.T) {
	dir := t.TempDir()
	entry := filepath.Join(dir, "init.e")
	require.NoError(t, os.WriteFile(entry, []byte(`
bring stdr;

entry() (( -- )) {
}
`), 0o644))

	outPath := filepath.Join(dir, "out.c")
	require.NoError(t, EmitC(entry, outPath))

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "int main(void)")
}

func TestCcCommand_DefaultsToCC(t *testing.T) {
	old, had := os.LookupEnv("CC")
	os.Unsetenv("CC")
	defer func() {
		if had {
			os.Setenv("CC", old)
		}
	}()
	assert.Equal(t, "cc", ccCommand())

	os.Setenv("CC", "clang")
	assert.Equal(t, "clang", ccCommand())
}
