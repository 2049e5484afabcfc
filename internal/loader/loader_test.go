package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_SingleFileEntry(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "init.e", `
bring stdr;

entry() (( -- )) {
}
`)

	prog, err := Load(entry)
	require.NoError(t, err)
	require.NotNil(t, prog)

	// entry file + embedded stdr.
	assert.Len(t, prog.Mods, 2)
	assert.Equal(t, entry, prog.Mods[0].Path)
}

func TestLoad_MissingBringStdr(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "init.e", `
entry() (( -- )) {
}
`)

	_, err := Load(entry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bring stdr")
}

func TestLoad_SiblingModuleImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "helper.e", `
bring stdr;

fun greet(name = string) (( string )) {
  return name;
}
`)
	entry := writeFile(t, dir, "init.e", `
bring stdr;
bring helper;

entry() (( -- )) {
}
`)

	prog, err := Load(entry)
	require.NoError(t, err)
	// init.e, stdr, helper.e (helper.e itself also brings stdr, already loaded).
	assert.Len(t, prog.Mods, 3)
}

func TestLoad_UnresolvableImport(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "init.e", `
bring stdr;
bring nope;

entry() (( -- )) {
}
`)

	_, err := Load(entry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestLoad_EntryOutsideRootFileRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "helper.e", `
bring stdr;

entry() (( -- )) {
}
`)
	entry := writeFile(t, dir, "init.e", `
bring stdr;
bring helper;

entry() (( -- )) {
}
`)

	_, err := Load(entry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry()")
}

func TestLoad_MathImportsResolveToEmbeddedStdlib(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "init.e", `
bring stdr;
bring math;

entry() (( -- )) {
}
`)

	prog, err := Load(entry)
	require.NoError(t, err)
	assert.Len(t, prog.Mods, 3)
}

func TestReadSource_RoundTripsEmbeddedStdlib(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "init.e", `
bring stdr;

entry() (( -- )) {
}
`)

	prog, err := Load(entry)
	require.NoError(t, err)

	found := false
	for _, mod := range prog.Mods {
		if mod.Path == entry {
			continue
		}
		src, err := ReadSource(mod.Path)
		require.NoError(t, err)
		assert.Contains(t, src, "fun")
		found = true
	}
	assert.True(t, found, "expected at least one non-entry module (the embedded stdr)")
}
