package compiler_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifabos/go-idlc/compiler"
	"github.com/ifabos/go-idlc/literal"
	"github.com/ifabos/go-idlc/mapping"
	"github.com/ifabos/go-idlc/symtab"
	"github.com/ifabos/go-idlc/typesys"
)

type recordingWriter struct {
	begun  string
	output string
	saved  *typesys.Module
}

func (w *recordingWriter) BeginModule(name, outputLocation string) error {
	w.begun, w.output = name, outputLocation
	return nil
}

func (w *recordingWriter) SaveModule(m *typesys.Module) error {
	w.saved = m
	return nil
}

func newSession(t *testing.T, opts compiler.Options) *compiler.Session {
	t.Helper()
	if opts.ModuleName == "" {
		opts.ModuleName = "test"
	}
	s, err := compiler.NewSession(opts)
	require.NoError(t, err)
	return s
}

// compileAll compiles src as a single unit and finalizes the session
func compileAll(t *testing.T, src string) *typesys.Module {
	t.Helper()
	s := newSession(t, compiler.Options{})
	require.NoError(t, s.Compile("test.idl", strings.NewReader(src)))
	m, err := s.Finalize()
	require.NoError(t, err)
	return m
}

func lookup(t *testing.T, m *typesys.Module, name string) *typesys.Type {
	t.Helper()
	typ, err := m.Lookup(name)
	require.NoError(t, err, name)
	return typ
}

func countMembers(t *typesys.Type, name string, kind typesys.MemberKind) int {
	n := 0
	for _, m := range t.Members {
		if m.Name == name && m.Kind == kind {
			n++
		}
	}
	return n
}

func TestConstantArithmetic(t *testing.T) {
	m := compileAll(t, `
module m {
    const long x = 1 + 2;
    const long y = x * 2;
    const unsigned short mask = (0xFF << 4) >> 2;
    const string greeting = "hello";
    enum Color { RED, GREEN };
    const Color favorite = GREEN;
};
`)
	x := lookup(t, m, "m.x")
	assert.Equal(t, typesys.TC_CONST_HOLDER, x.Kind)
	assert.Equal(t, int32(3), x.Const.Value)
	assert.True(t, x.Const.Native)

	assert.Equal(t, int32(6), lookup(t, m, "m.y").Const.Value)
	assert.Equal(t, uint16(0x3FC), lookup(t, m, "m.mask").Const.Value)
	assert.Equal(t, "hello", lookup(t, m, "m.greeting").Const.Value)

	favorite := lookup(t, m, "m.favorite")
	assert.Equal(t, uint32(1), favorite.Const.Value)
	assert.False(t, favorite.Const.Native)
	assert.Equal(t, lookup(t, m, "m.Color"), favorite.Const.Type.Type)
}

func TestConstantOperandKind(t *testing.T) {
	s := newSession(t, compiler.Options{})
	err := s.Compile("test.idl", strings.NewReader(`const double y = 1.0 + 2;`))
	require.Error(t, err)

	var operandErr *literal.OperandError
	require.True(t, errors.As(err, &operandErr))
	assert.Equal(t, literal.KindFloat, operandErr.Want)
	assert.Equal(t, literal.KindInteger, operandErr.Found)
	assert.ErrorIs(t, err, compiler.ErrConstantValue)
}

func TestConstantRange(t *testing.T) {
	s := newSession(t, compiler.Options{})
	err := s.Compile("test.idl", strings.NewReader(`const long big = 0xFFFFFFFFFFFFFFFF;`))
	require.Error(t, err)
	var rangeErr *literal.RangeError
	assert.True(t, errors.As(err, &rangeErr))

	m := compileAll(t, `const unsigned long long big = 0xFFFFFFFFFFFFFFFF;`)
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), lookup(t, m, "big").Const.Value)
}

func TestConstantArithmeticAtDomainEdges(t *testing.T) {
	m := compileAll(t, `
const unsigned long long back = 0xFFFFFFFFFFFFFFFF + 1 - 1;
const unsigned long long wrapped = 0xFFFFFFFFFFFFFFFF + 1;
const long long low = -9223372036854775807 - 1 - 1 + 1;
`)
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), lookup(t, m, "back").Const.Value)
	assert.Equal(t, uint64(0), lookup(t, m, "wrapped").Const.Value)
	assert.Equal(t, int64(-9223372036854775808), lookup(t, m, "low").Const.Value)

	s := newSession(t, compiler.Options{})
	err := s.Compile("test.idl", strings.NewReader(`const unsigned long long inverted = ~0;`))
	var rangeErr *literal.RangeError
	assert.True(t, errors.As(err, &rangeErr))
}

func TestBoxedConstantUsesPayload(t *testing.T) {
	m := compileAll(t, `module m {
    valuetype Label string;
    const Label greeting = "hi";
};`)
	label := lookup(t, m, "m.Label")
	c := lookup(t, m, "m.greeting").Const
	assert.Equal(t, "hi", c.Value)
	assert.Same(t, typesys.Builtin(typesys.TC_STRING), c.Type.Type)
	assert.Equal(t, typesys.FormSeparated, c.Type.Form)
	boxed, ok := typesys.FindTag[typesys.BoxedValueTag](c.Type.Tags)
	require.True(t, ok)
	assert.Same(t, label, boxed.Box)
	assert.Same(t, label, c.Type.Compact().Type)

	s := newSession(t, compiler.Options{})
	err := s.Compile("test.idl", strings.NewReader(`module m {
    struct Point { long x; };
    valuetype Boxed Point;
    const Boxed origin = 0;
};`))
	assert.ErrorIs(t, err, compiler.ErrConstantType)
}

func TestOctetConstantModes(t *testing.T) {
	src := `const octet o = -1;`

	strict := newSession(t, compiler.Options{})
	err := strict.Compile("test.idl", strings.NewReader(src))
	var rangeErr *literal.RangeError
	require.True(t, errors.As(err, &rangeErr))

	legacy := newSession(t, compiler.Options{Mode: literal.LegacyOctet})
	require.NoError(t, legacy.Compile("test.idl", strings.NewReader(src)))
	m, err := legacy.Finalize()
	require.NoError(t, err)
	assert.Equal(t, uint8(255), lookup(t, m, "o").Const.Value)
	assert.Len(t, legacy.Diagnostics().OfKind(compiler.DiagOctetShim), 1)
}

func TestNestedConstantNamespace(t *testing.T) {
	m := compileAll(t, `module m { interface I { const long c = 7; }; };`)
	c := lookup(t, m, "m.I_package.c")
	assert.Equal(t, "m.I_package", c.Namespace)
	assert.Equal(t, int32(7), c.Const.Value)
	assert.Equal(t, "IDL:m/I/c:1.0", c.RepositoryID)
}

func TestRepositoryID(t *testing.T) {
	m := compileAll(t, `module testmod { interface Test { void ping(); }; };`)
	typ := lookup(t, m, "testmod.Test")
	assert.Equal(t, "IDL:testmod/Test:1.0", typ.RepositoryID)
	assert.Equal(t, typesys.FlavorConcrete, typ.Flavor)
	assert.Equal(t, 1, countMembers(typ, "ping", typesys.MemberOperation))
}

func TestDuplicateUnionLabel(t *testing.T) {
	s := newSession(t, compiler.Options{})
	err := s.Compile("test.idl", strings.NewReader(`
module m {
    union U switch (long) {
        case 1: long a;
        case 1: short b;
    };
};
`))
	require.Error(t, err)
	assert.ErrorIs(t, err, compiler.ErrUnionLabels)
	assert.ErrorIs(t, err, compiler.ErrDuplicateLabel)

	_, lookupErr := s.Module().Lookup("m.U")
	assert.ErrorIs(t, lookupErr, typesys.ErrTypeNotFound)
}

func TestUnionMembers(t *testing.T) {
	m := compileAll(t, `
module m {
    enum Shape { CIRCLE, SQUARE, LINE };
    union Figure switch (Shape) {
        case CIRCLE: double radius;
        case SQUARE:
        case LINE: long side;
    };
    union Flag switch (boolean) {
        case TRUE: long on;
        default: short off;
    };
};
`)
	figure := lookup(t, m, "m.Figure")
	require.Len(t, figure.Cases, 2)
	assert.Equal(t, []any{uint32(0)}, figure.Cases[0].Labels)
	assert.Equal(t, []any{uint32(1), uint32(2)}, figure.Cases[1].Labels)
	assert.Equal(t, lookup(t, m, "m.Shape"), figure.Discriminator.Type)
	assert.Equal(t, 1, countMembers(figure, "side", typesys.MemberGetter))
	assert.Equal(t, 1, countMembers(figure, "side", typesys.MemberSetter))

	flag := lookup(t, m, "m.Flag")
	require.Len(t, flag.Cases, 2)
	assert.Equal(t, []any{true}, flag.Cases[0].Labels)
	require.Len(t, flag.Cases[1].Labels, 1)
	assert.True(t, typesys.IsDefaultLabel(flag.Cases[1].Labels[0]))
}

func TestIncrementalRedeclarationSkipped(t *testing.T) {
	s := newSession(t, compiler.Options{})
	src := `module m { struct S { long a; }; typedef sequence<S> SList; };`
	require.NoError(t, s.Compile("a.idl", strings.NewReader(src)))
	require.NoError(t, s.Compile("b.idl", strings.NewReader(src)))

	m, err := s.Finalize()
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())
	assert.Len(t, s.Diagnostics().OfKind(compiler.DiagSkippedDuplicate), 2)
}

func TestLaterUnitUsesEarlierTypes(t *testing.T) {
	s := newSession(t, compiler.Options{})
	require.NoError(t, s.Compile("a.idl", strings.NewReader(`module m { struct S { long a; }; };`)))
	require.NoError(t, s.Compile("b.idl", strings.NewReader(`module n { struct T { ::m::S s; }; };`)))

	m, err := s.Finalize()
	require.NoError(t, err)
	tt := lookup(t, m, "n.T")
	require.Len(t, tt.Fields, 1)
	assert.Equal(t, lookup(t, m, "m.S"), tt.Fields[0].Type.Type)
}

func TestForwardDeclarations(t *testing.T) {
	t.Run("only forward declared", func(t *testing.T) {
		s := newSession(t, compiler.Options{})
		err := s.Compile("test.idl", strings.NewReader(`module m { interface I; };`))
		require.Error(t, err)
		assert.ErrorIs(t, err, symtab.ErrOnlyForwardDeclared)
	})

	t.Run("completed", func(t *testing.T) {
		m := compileAll(t, `
module m {
    interface I;
    struct Holder { I ref; };
    interface I { void f(in Holder h); };
};
`)
		i := lookup(t, m, "m.I")
		assert.True(t, i.IsComplete())
		holder := lookup(t, m, "m.Holder")
		assert.Same(t, i, holder.Fields[0].Type.Type)
	})

	t.Run("flavor mismatch", func(t *testing.T) {
		s := newSession(t, compiler.Options{})
		err := s.Compile("test.idl", strings.NewReader(`
module m {
    abstract interface I;
    interface I { };
};
`))
		assert.ErrorIs(t, err, compiler.ErrFlavorMismatch)
	})
}

func TestValueTypeMirroring(t *testing.T) {
	s := newSession(t, compiler.Options{})
	require.NoError(t, s.Compile("test.idl", strings.NewReader(`
module m {
    interface Account {
        long balance();
        attribute string owner;
    };
    abstract valuetype Named {
        string label();
    };
    abstract valuetype Tagged : Named {
        string tag();
    };
    valuetype Person : Tagged supports Account {
        public string first;
        private long age;
        factory create(in string first);
    };
    valuetype Point {
        public long x;
        public long y;
    };
};
`)))
	m, err := s.Finalize()
	require.NoError(t, err)

	person := lookup(t, m, "m.Person")
	for _, name := range []string{"label", "tag", "balance"} {
		assert.Equal(t, 1, countMembers(person, name, typesys.MemberOperation), name)
	}
	assert.Equal(t, 1, countMembers(person, "owner", typesys.MemberGetter))
	assert.Equal(t, 1, countMembers(person, "owner", typesys.MemberSetter))
	assert.Equal(t, 1, countMembers(person, "create", typesys.MemberFactory))
	require.Len(t, person.Fields, 2)
	assert.True(t, person.Fields[1].Private)
	assert.True(t, person.ImplExpected)

	point := lookup(t, m, "m.Point")
	assert.False(t, point.ImplExpected)

	assert.Equal(t, []string{"m.Person"}, s.ImplementationsExpected())
	assert.Len(t, s.Diagnostics().OfKind(compiler.DiagImplementationExpected), 1)
}

func TestSequenceRecursion(t *testing.T) {
	m := compileAll(t, `module m { struct Node { long value; sequence<Node> children; }; };`)
	node := lookup(t, m, "m.Node")
	require.Len(t, node.Fields, 2)
	children := node.Fields[1].Type
	assert.Equal(t, typesys.TC_SEQUENCE, children.Type.Kind)
	assert.Same(t, node, children.Type.Elem.Type)

	s := newSession(t, compiler.Options{})
	err := s.Compile("test.idl", strings.NewReader(`module m { struct Bad { Bad self; }; };`))
	assert.ErrorIs(t, err, compiler.ErrRecursiveType)
}

func TestArrayDimensions(t *testing.T) {
	m := compileAll(t, `module m { typedef long Grid[2][3]; struct Board { Grid cells; }; };`)
	board := lookup(t, m, "m.Board")
	tag, ok := typesys.FindTag[typesys.ArrayTag](board.Fields[0].Type.Tags)
	require.True(t, ok)
	assert.Equal(t, []int{2, 3}, tag.Dims)
}

func TestCustomMappingAtUseSites(t *testing.T) {
	table := mapping.NewTable(nil)
	require.True(t, table.Add(mapping.Entry{IDL: "::m::Stamp", Type: "time.Time", Import: "time"}))

	s := newSession(t, compiler.Options{Mappings: table})
	require.NoError(t, s.Compile("test.idl", strings.NewReader(`
module m {
    struct Stamp { long long seconds; };
    struct Event {
        Stamp at;
        sequence<Stamp> history;
    };
};
`)))
	m, err := s.Finalize()
	require.NoError(t, err)

	stamp := lookup(t, m, "m.Stamp")
	assert.Equal(t, typesys.TC_STRUCT, stamp.Kind)

	event := lookup(t, m, "m.Event")
	at := event.Fields[0].Type
	assert.Equal(t, typesys.TC_EXTERNAL, at.Type.Kind)
	assert.Equal(t, "time.Time", at.Type.QualifiedName())
	assert.Equal(t, "time", at.Type.ImportPath)

	history := event.Fields[1].Type
	assert.Equal(t, typesys.TC_EXTERNAL, history.Type.Elem.Type.Kind)
}

func TestReferenceModules(t *testing.T) {
	src := `module m { struct S { long a; }; };`
	base := compileAll(t, src)

	t.Run("skipped", func(t *testing.T) {
		s := newSession(t, compiler.Options{References: []compiler.ReferenceSource{compiler.ModuleReference(base)}})
		require.NoError(t, s.Compile("test.idl", strings.NewReader(src+`
module n { struct T { ::m::S s; }; };
`)))
		m, err := s.Finalize()
		require.NoError(t, err)
		assert.Equal(t, 1, m.Len())
		tt := lookup(t, m, "n.T")
		assert.Same(t, lookup(t, base, "m.S"), tt.Fields[0].Type.Type)
	})

	t.Run("repository id mismatch", func(t *testing.T) {
		s := newSession(t, compiler.Options{References: []compiler.ReferenceSource{compiler.ModuleReference(base)}})
		require.NoError(t, s.Compile("test.idl", strings.NewReader(src+`
#pragma ID m::S "IDL:custom/S:2.0"
`)))
		m, err := s.Finalize()
		require.NoError(t, err)
		assert.Equal(t, "IDL:custom/S:2.0", lookup(t, m, "m.S").RepositoryID)
		assert.Len(t, s.Diagnostics().OfKind(compiler.DiagRepositoryIDMismatch), 1)
	})
}

func TestSessionLifecycle(t *testing.T) {
	w := &recordingWriter{}
	s := newSession(t, compiler.Options{ModuleName: "demo", OutputLocation: "out", Writer: w})
	assert.Equal(t, "demo", w.begun)
	assert.Equal(t, "out", w.output)

	require.NoError(t, s.Compile("test.idl", strings.NewReader(`struct S { long a; };`)))
	m, err := s.Finalize()
	require.NoError(t, err)
	assert.Same(t, m, w.saved)
	assert.True(t, m.IsSealed())

	_, err = s.Finalize()
	assert.ErrorIs(t, err, compiler.ErrSessionFinalized)
	err = s.Compile("late.idl", strings.NewReader(`struct T { long a; };`))
	assert.ErrorIs(t, err, compiler.ErrSessionFinalized)

	_, err = compiler.NewSession(compiler.Options{})
	assert.Error(t, err)
}

func TestSyntaxErrorsAreInvalidIDL(t *testing.T) {
	s := newSession(t, compiler.Options{})
	err := s.Compile("test.idl", strings.NewReader("module m {\n  struct S { long a }\n};"))
	require.Error(t, err)
	var invalid *compiler.InvalidIDLError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "test.idl", invalid.Pos.File)
	assert.ErrorIs(t, err, compiler.ErrSyntax)
}

func TestSemanticErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"undeclared", `struct S { Missing m; };`, compiler.ErrUndeclared},
		{"used before defined", `struct A { B b; }; struct B { long x; };`, compiler.ErrUsedBeforeDefined},
		{"constant as type", `const long c = 1; struct S { c f; };`, compiler.ErrNotAType},
		{"type as constant", `struct S { long a; }; const long c = S;`, compiler.ErrNotAConstant},
		{"constant type", `struct S { long a; }; const S c = 1;`, compiler.ErrConstantType},
		{"duplicate field", `struct S { long a; short a; };`, compiler.ErrDuplicateMember},
		{"duplicate operation", `interface I { void f(); void f(); };`, compiler.ErrDuplicateMember},
		{"duplicate parameter", `interface I { void f(in long a, in long a); };`, compiler.ErrDuplicateParam},
		{"oneway out parameter", `interface I { oneway void f(out long a); };`, compiler.ErrOneway},
		{"oneway result", `interface I { oneway long f(); };`, compiler.ErrOneway},
		{"raises struct", `struct S { long a; }; interface I { void f() raises (S); };`, compiler.ErrNotAnException},
		{"discriminator", `union U switch (double) { case 1: long a; };`, compiler.ErrDiscriminatorType},
		{"label type", `union U switch (boolean) { case 1: long a; };`, compiler.ErrLabelType},
		{"duplicate default", `union U switch (long) { default: long a; default: short b; };`, compiler.ErrDuplicateDefault},
		{"interface base", `struct S { long a; }; interface I : S { };`, compiler.ErrInvalidBase},
		{"abstract base", `interface C { }; abstract interface A : C { };`, compiler.ErrInvalidBase},
		{"supports struct", `struct S { long a; }; valuetype V supports S { };`, compiler.ErrInvalidSupports},
		{"two concrete bases", `valuetype A { }; valuetype B { }; valuetype C : A, B { };`, compiler.ErrTwoConcreteParents},
		{"truncatable", `abstract valuetype A { }; valuetype B : truncatable A { };`, compiler.ErrTruncatable},
		{"boxed value", `valuetype A { }; valuetype Box A;`, compiler.ErrBoxedValue},
		{"zero dimension", `struct S { long a[0]; };`, compiler.ErrDimension},
		{"negative bound", `typedef sequence<long, -1> L;`, compiler.ErrBound},
		{"incomplete base", `interface A; interface B : A { }; interface A { };`, compiler.ErrIncompleteBase},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, compiler.Options{})
			err := s.Compile("test.idl", strings.NewReader(tt.src))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			var invalid *compiler.InvalidIDLError
			assert.True(t, errors.As(err, &invalid))
		})
	}
}
