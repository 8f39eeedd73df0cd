package mapping_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifabos/go-idlc/mapping"
	"github.com/ifabos/go-idlc/typesys"
)

const tomlMappings = `
[[mapping]]
idl = "::util::Timestamp"
type = "time.Time"
import = "time"

[[mapping]]
idl = "util.Blob"
type = "bytes.Buffer"
import = "bytes"
`

const yamlMappings = `
mappings:
  - idl: "::util::Timestamp"
    type: "example.com/clock.Instant"
    import: "example.com/clock"
  - idl: "::util::Duration"
    type: "time.Duration"
    import: "time"
`

func TestParseTOML(t *testing.T) {
	f, err := mapping.ParseTOML([]byte(tomlMappings))
	require.NoError(t, err)
	require.Len(t, f.Mappings, 2)
	assert.Equal(t, "time.Time", f.Mappings[0].Type)
	assert.Equal(t, "bytes", f.Mappings[1].Import)
}

func TestParseYAMLRejectsIncompleteEntry(t *testing.T) {
	_, err := mapping.ParseYAML([]byte("mappings:\n  - idl: \"::a::B\"\n"))
	assert.Error(t, err)
}

func TestDuplicateKeepsFirst(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.toml")
	second := filepath.Join(dir, "second.yaml")
	require.NoError(t, os.WriteFile(first, []byte(tomlMappings), 0o644))
	require.NoError(t, os.WriteFile(second, []byte(yamlMappings), 0o644))

	table, err := mapping.Load(nil, first, second)
	require.NoError(t, err)
	assert.Equal(t, 3, table.Len())
	assert.Equal(t, []string{"util.Blob", "util.Duration", "util.Timestamp"}, table.Names())

	ext, ok := table.Lookup("::util::Timestamp")
	require.True(t, ok)
	assert.Equal(t, "time.Time", ext.QualifiedName())
	assert.Equal(t, "time", ext.ImportPath)
	assert.Equal(t, typesys.TC_EXTERNAL, ext.Kind)
}

func TestLoadFileUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.xml")
	require.NoError(t, os.WriteFile(path, []byte("<x/>"), 0o644))
	_, err := mapping.LoadFile(path)
	assert.Error(t, err)
}

func TestSubstitute(t *testing.T) {
	table := mapping.NewTable(nil)
	table.Add(mapping.Entry{IDL: "::util::Timestamp", Type: "time.Time", Import: "time"})

	stamp := &typesys.Type{Name: "Timestamp", Namespace: "util", Kind: typesys.TC_STRUCT}
	other := &typesys.Type{Name: "Other", Namespace: "util", Kind: typesys.TC_STRUCT}

	replaced := table.Substitute(typesys.Describe(stamp))
	assert.Equal(t, typesys.TC_EXTERNAL, replaced.Type.Kind)
	assert.Equal(t, "time.Time", replaced.QualifiedName())

	kept := table.Substitute(typesys.Describe(other))
	assert.Same(t, other, kept.Type)

	var none *mapping.Table
	assert.Same(t, stamp, none.Substitute(typesys.Describe(stamp)).Type)
}

func TestSubstituteBoxedUsesCompactName(t *testing.T) {
	box := &typesys.Type{Name: "Stamp", Namespace: "util", Kind: typesys.TC_VALUE_BOX}
	payload := typesys.Describe(typesys.Builtin(typesys.TC_LONGLONG))
	box.Elem = &payload

	table := mapping.NewTable(nil)
	table.Add(mapping.Entry{IDL: "util.Stamp", Type: "time.Time", Import: "time"})

	separated := typesys.Describe(box).Separated()
	require.Same(t, payload.Type, separated.Type)
	replaced := table.Substitute(separated)
	assert.Equal(t, "time.Time", replaced.QualifiedName())
	assert.Equal(t, typesys.FormCompact, replaced.Form)
}
