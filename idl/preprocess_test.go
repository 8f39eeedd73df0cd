package idl_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifabos/go-idlc/idl"
)

func TestConditionals(t *testing.T) {
	pp := idl.NewPreprocessor()
	pp.Define("WITH_EXTRA")

	out, err := pp.Process("test.idl", strings.NewReader(`#ifdef WITH_EXTRA
struct Extra { long a; };
#else
struct Plain { long a; };
#endif
#ifndef WITH_EXTRA
const long hidden = 1;
#endif
`))
	require.NoError(t, err)
	assert.Contains(t, out, "Extra")
	assert.NotContains(t, out, "Plain")
	assert.NotContains(t, out, "hidden")
	// skipped lines keep the line numbering
	assert.Equal(t, 8, strings.Count(out, "\n"))
}

func TestNestedConditionals(t *testing.T) {
	pp := idl.NewPreprocessor()
	out, err := pp.Process("test.idl", strings.NewReader(`#ifdef OUTER
#ifndef INNER
struct A { long a; };
#else
struct B { long b; };
#endif
#else
struct C { long c; };
#endif
`))
	require.NoError(t, err)
	assert.NotContains(t, out, "struct A")
	assert.NotContains(t, out, "struct B")
	assert.Contains(t, out, "struct C")
}

func TestMacroSubstitution(t *testing.T) {
	pp := idl.NewPreprocessor()
	pp.Define("SIZE=16")
	out, err := pp.Process("test.idl", strings.NewReader(`#define NAME "SIZE"
typedef sequence<long, SIZE> Block;
const string label = "SIZE";
`))
	require.NoError(t, err)
	assert.Contains(t, out, "sequence<long, 16>")
	assert.Contains(t, out, `label = "SIZE"`)
}

func TestPreprocessorErrors(t *testing.T) {
	for _, src := range []string{
		"#ifdef A\n",
		"#endif\n",
		"#else\n",
		"#if A\n#endif\n",
		"#include missing\n",
	} {
		pp := idl.NewPreprocessor()
		_, err := pp.Process("test.idl", strings.NewReader(src))
		assert.Error(t, err, src)
	}
}

func TestIncludeFromDirectories(t *testing.T) {
	root := t.TempDir()
	incDir := filepath.Join(root, "include")
	require.NoError(t, os.MkdirAll(incDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(incDir, "base.idl"),
		[]byte("#pragma prefix \"base.org\"\nmodule base { typedef long Id; };\n"), 0o644))
	main := filepath.Join(root, "main.idl")
	require.NoError(t, os.WriteFile(main,
		[]byte("#pragma prefix \"app.org\"\n#include \"base.idl\"\nmodule app {};\n"), 0o644))

	pp := idl.NewPreprocessor(incDir)
	out, err := pp.ProcessFile(main)
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	// the included file starts without a prefix and the including file's prefix is restored
	assert.Equal(t, `#pragma prefix "app.org"`, lines[0])
	assert.Equal(t, `#pragma prefix ""`, lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "#line 1 "))
	assert.Contains(t, out, "#pragma prefix \"app.org\"\n#line 3 ")
}

func TestIncludedOnce(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.idl"), []byte("const long a = 1;\n"), 0o644))
	main := filepath.Join(root, "main.idl")
	require.NoError(t, os.WriteFile(main, []byte("#include \"a.idl\"\n#include \"a.idl\"\n"), 0o644))

	out, err := idl.NewPreprocessor().ProcessFile(main)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "const long a"))
}
