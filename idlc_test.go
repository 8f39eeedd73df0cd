package idlc_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifabos/go-idlc"
	"github.com/ifabos/go-idlc/compiler"
)

func writeIDL(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0644))
	return path
}

func TestCompileFiles(t *testing.T) {
	dir := t.TempDir()
	writeIDL(t, dir, "common.idl", `
#ifndef COMMON_IDL
#define COMMON_IDL
module shop { struct Item { string name; long count; }; };
#endif
`)
	order := writeIDL(t, dir, "order.idl", `
#include "common.idl"
module shop {
    interface Orders {
        void place(in sequence<Item> items);
    };
};
`)
	again := writeIDL(t, dir, "again.idl", `#include "common.idl"
module shop { typedef Item Alias; };
`)

	m, err := idlc.Compile(idlc.Options{ModuleName: "shop"}, order, again)
	require.NoError(t, err)
	assert.True(t, m.IsSealed())
	assert.Equal(t, 2, m.Len())

	item, err := m.Lookup("shop.Item")
	require.NoError(t, err)
	assert.Equal(t, "IDL:shop/Item:1.0", item.RepositoryID)
}

func TestCompileStopsAtInvalidFile(t *testing.T) {
	dir := t.TempDir()
	bad := writeIDL(t, dir, "bad.idl", `module m { struct S { Missing field; }; };`)
	good := writeIDL(t, dir, "good.idl", `module m { struct T { long x; }; };`)

	_, err := idlc.Compile(idlc.Options{ModuleName: "m"}, bad, good)
	require.Error(t, err)
	var invalid *idlc.InvalidIDLError
	require.True(t, errors.As(err, &invalid))
	assert.ErrorIs(t, err, compiler.ErrUndeclared)
	assert.Contains(t, err.Error(), bad)
}

func TestCompileRequiresModuleName(t *testing.T) {
	_, err := idlc.Compile(idlc.Options{})
	assert.Error(t, err)
}
