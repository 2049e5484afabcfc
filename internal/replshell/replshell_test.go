package replshell

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEntry(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "t.e")
	src := `
bring stdr;

entry() (( -- )) {
  let x = 1 + 2;
  write(stdr.str(x));
}
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestShell_ReloadCompilesAndReportsModuleCount(t *testing.T) {
	s := New(writeEntry(t), "v0.1.0", "lainsce", "MIT")
	var buf bytes.Buffer

	s.reload(&buf)

	require.NotNil(t, s.last)
	assert.Contains(t, buf.String(), "compiled")
	assert.Contains(t, buf.String(), "module(s)")
}

func TestShell_ReloadReportsErrorAndClearsLast(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.e")
	require.NoError(t, os.WriteFile(path, []byte("bring stdr;\nentry() (( -- )) { let x = ; }\n"), 0o644))

	s := New(path, "v0.1.0", "lainsce", "MIT")
	var buf bytes.Buffer

	s.reload(&buf)

	assert.Nil(t, s.last)
	assert.Contains(t, buf.String(), "error:")
}

func TestShell_DispatchBeforeReloadReportsNothingLoaded(t *testing.T) {
	s := New(writeEntry(t), "v0.1.0", "lainsce", "MIT")
	var buf bytes.Buffer

	s.dispatch(&buf, ":ast")

	assert.Contains(t, buf.String(), "nothing loaded")
}

func TestShell_DispatchUnknownCommand(t *testing.T) {
	s := New(writeEntry(t), "v0.1.0", "lainsce", "MIT")
	var buf bytes.Buffer

	s.dispatch(&buf, ":bogus")

	assert.Contains(t, buf.String(), "unknown command")
}

func TestShell_DispatchTokensShowsLexedOutput(t *testing.T) {
	s := New(writeEntry(t), "v0.1.0", "lainsce", "MIT")
	var reloadBuf bytes.Buffer
	s.reload(&reloadBuf)
	require.NotNil(t, s.last)

	var buf bytes.Buffer
	s.dispatch(&buf, ":tokens")

	assert.Contains(t, buf.String(), "t.e")
	assert.Contains(t, buf.String(), "KW_entry")
}

func TestShell_DispatchASTShowsJSON(t *testing.T) {
	s := New(writeEntry(t), "v0.1.0", "lainsce", "MIT")
	var reloadBuf bytes.Buffer
	s.reload(&reloadBuf)
	require.NotNil(t, s.last)

	var buf bytes.Buffer
	s.dispatch(&buf, ":ast")

	assert.Contains(t, buf.String(), "\"Mods\"")
}

func TestShell_DispatchCShowsGeneratedSource(t *testing.T) {
	s := New(writeEntry(t), "v0.1.0", "lainsce", "MIT")
	var reloadBuf bytes.Buffer
	s.reload(&reloadBuf)
	require.NotNil(t, s.last)

	var buf bytes.Buffer
	s.dispatch(&buf, ":c")

	assert.Contains(t, buf.String(), "int main(void)")
}

func TestShell_PrintBannerIncludesEntryPathAndVersion(t *testing.T) {
	entry := writeEntry(t)
	s := New(entry, "v0.1.0", "lainsce", "MIT")
	var buf bytes.Buffer

	s.printBanner(&buf)

	assert.Contains(t, buf.String(), entry)
	assert.Contains(t, buf.String(), "v0.1.0")
}
