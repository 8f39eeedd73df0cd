package typesys_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifabos/go-idlc/typesys"
)

func TestModuleAddAndLookup(t *testing.T) {
	m := typesys.NewModule("test")
	point := &typesys.Type{Name: "Point", Namespace: "geo", RepositoryID: "IDL:geo/Point:1.0", Kind: typesys.TC_STRUCT}

	require.NoError(t, m.Add(point))
	require.ErrorIs(t, m.Add(&typesys.Type{Name: "Point", Namespace: "geo"}), typesys.ErrDuplicateDefinition)

	found, err := m.Lookup("geo.Point")
	require.NoError(t, err)
	assert.Same(t, point, found)

	found, err = m.LookupID("IDL:geo/Point:1.0")
	require.NoError(t, err)
	assert.Same(t, point, found)

	_, err = m.Lookup("geo.Line")
	assert.ErrorIs(t, err, typesys.ErrTypeNotFound)

	assert.Equal(t, []string{"geo"}, m.Namespaces())
	assert.Len(t, m.Contents(typesys.TC_STRUCT), 1)
	assert.Empty(t, m.Contents(typesys.TC_UNION))
	assert.Equal(t, []*typesys.Type{point}, m.Incomplete())
	assert.NotEqual(t, typesys.NewModule("test").ID, m.ID)
}

func TestModuleRejectsAnonymousTypes(t *testing.T) {
	m := typesys.NewModule("test")
	seq := typesys.SequenceOf(typesys.Describe(typesys.Builtin(typesys.TC_LONG)))
	assert.ErrorIs(t, m.Add(seq), typesys.ErrAnonymousType)
}

func TestDescriptorViews(t *testing.T) {
	payload := typesys.Describe(typesys.Builtin(typesys.TC_STRING))
	box := &typesys.Type{Name: "Name", Namespace: "m", RepositoryID: "IDL:m/Name:1.0", Kind: typesys.TC_VALUE_BOX, Elem: &payload}

	compact := typesys.Describe(box)
	assert.Equal(t, typesys.FormCompact, compact.Form)

	separated := compact.Separated()
	assert.Equal(t, typesys.FormSeparated, separated.Form)
	assert.Same(t, typesys.Builtin(typesys.TC_STRING), separated.Type)
	tag, ok := typesys.FindTag[typesys.BoxedValueTag](separated.Tags)
	require.True(t, ok)
	assert.Same(t, box, tag.Box)

	back := separated.Compact()
	assert.Same(t, box, back.Type)
	assert.Equal(t, "m.Name", separated.QualifiedName())

	// non-box types keep their type in both views
	long := typesys.Describe(typesys.Builtin(typesys.TC_LONG))
	assert.Same(t, long.Type, long.Separated().Type)
}

func TestDescriptorNestedTags(t *testing.T) {
	elem := typesys.Describe(typesys.Builtin(typesys.TC_LONG), typesys.SequenceTag{Bound: 3})
	inner := typesys.SequenceOf(elem)
	outer := typesys.Describe(inner, append([]typesys.Tag{typesys.SequenceTag{Bound: 5}}, elem.Nested()...)...)

	require.Len(t, outer.Tags, 2)
	assert.Equal(t, typesys.SequenceTag{Bound: 5, Order: 0}, outer.Tags[0])
	assert.Equal(t, typesys.SequenceTag{Bound: 3, Order: 1}, outer.Tags[1])
	// the source descriptor is untouched
	assert.Equal(t, typesys.SequenceTag{Bound: 3, Order: 0}, elem.Tags[0])
}

func TestTypeMembersAcrossBases(t *testing.T) {
	base := &typesys.Type{Name: "Base", Kind: typesys.TC_OBJREF, Members: []typesys.Member{{Name: "ping"}}}
	mid := &typesys.Type{Name: "Mid", Kind: typesys.TC_OBJREF, Interfaces: []*typesys.Type{base}, Members: []typesys.Member{{Name: "run"}}}
	top := &typesys.Type{Name: "Top", Kind: typesys.TC_OBJREF}
	top.AddInterfaces(mid, base, mid)

	assert.Len(t, top.Interfaces, 2)
	assert.Len(t, top.AllInterfaceMembers(), 2)
	assert.True(t, top.Implements(base))
	assert.False(t, base.Implements(top))
}

func TestKindRoundTrip(t *testing.T) {
	for _, k := range []typesys.TCKind{typesys.TC_ULONGLONG, typesys.TC_VALUE_BOX, typesys.TC_OBJREF} {
		parsed, err := typesys.ParseTCKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := typesys.ParseTCKind("float128")
	assert.Error(t, err)
}
