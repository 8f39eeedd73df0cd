package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifabos/go-idlc/persist"
)

func writeFile(t *testing.T, path, text string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
}

func TestGenerateModule(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	input := filepath.Join(dir, "bank.idl")
	writeFile(t, input, `
module bank {
    struct Money { long long cents; };
    interface Teller { Money balance(); };
};
`)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"-m", "bank", "-o", out, "--log-level", "error", input})
	require.NoError(t, cmd.Execute())

	ref, err := persist.LoadManifest(filepath.Join(out, "bank"+persist.ManifestSuffix))
	require.NoError(t, err)
	assert.Equal(t, 2, ref.Len())
	_, err = os.Stat(filepath.Join(out, "bank.go"))
	assert.NoError(t, err)
}

func TestReferencedModule(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.idl")
	writeFile(t, base, `module base { enum Level { LOW, HIGH }; };`)
	user := filepath.Join(dir, "user.idl")
	writeFile(t, user, `#include "base.idl"
module user { struct Reading { base::Level level; }; };
`)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"-m", "base", "-o", dir, "--emit-source=false", base})
	require.NoError(t, cmd.Execute())

	cmd = newRootCmd()
	cmd.SetArgs([]string{"-m", "user", "-o", dir, "-r", filepath.Join(dir, "base"+persist.ManifestSuffix), user})
	require.NoError(t, cmd.Execute())

	ref, err := persist.LoadManifest(filepath.Join(dir, "user"+persist.ManifestSuffix))
	require.NoError(t, err)
	assert.Equal(t, []string{"user.Reading"}, names(ref))
}

func TestMissingInputs(t *testing.T) {
	dir := t.TempDir()
	cmd := newRootCmd()
	cmd.SetArgs([]string{"-m", "m", "-o", dir, filepath.Join(dir, "a.idl"), filepath.Join(dir, "b.idl")})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.idl")
	assert.Contains(t, err.Error(), "b.idl")
}

func TestModuleNameRequired(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{filepath.Join(t.TempDir(), "x.idl")})
	assert.Error(t, cmd.Execute())
}

func names(ref *persist.Reference) []string {
	var result []string
	for _, t := range ref.Types() {
		result = append(result, t.QualifiedName())
	}
	return result
}
