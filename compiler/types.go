package compiler

import (
	"github.com/ifabos/go-idlc/idl"
	"github.com/ifabos/go-idlc/symtab"
	"github.com/ifabos/go-idlc/typesys"
)

// resolveSymbol looks a scoped name up from the scope of info
func (g *Generator) resolveSymbol(info BuildInfo, name *idl.ScopedName) (*symtab.Symbol, error) {
	start := info.Scope
	if name.Absolute {
		start = g.table.TopScope()
	}
	sym := g.table.ResolveScopedNameToSymbol(start, name.Parts)
	if sym == nil {
		return nil, g.invalid(name, name.String(), ErrUndeclared, nil)
	}
	return sym, nil
}

// resolveType returns the descriptor of a type spec. Inline struct, union and enum
// definitions are generated on the way.
func (g *Generator) resolveType(info BuildInfo, spec idl.TypeSpec) (typesys.TypeDescriptor, error) {
	switch n := spec.(type) {
	case *idl.BaseType:
		d := typesys.Describe(typesys.Builtin(n.Kind))
		if n.Kind == typesys.TC_WCHAR {
			d = d.WithTags(typesys.WideCharTag{})
		}
		return d, nil
	case *idl.StringType:
		if n.Bound != nil {
			if _, err := g.evalSize(info, n.Bound, ErrBound, 0); err != nil {
				return typesys.TypeDescriptor{}, err
			}
		}
		if n.Wide {
			return typesys.Describe(typesys.Builtin(typesys.TC_WSTRING), typesys.WideStringTag{}), nil
		}
		return typesys.Describe(typesys.Builtin(typesys.TC_STRING)), nil
	case *idl.SequenceType:
		return g.resolveSequence(info, n)
	case *idl.ScopedName:
		return g.resolveNamedType(info, n)
	case *idl.Struct:
		t, err := g.visitStruct(info, n)
		if err != nil {
			return typesys.TypeDescriptor{}, err
		}
		return typesys.Describe(t), nil
	case *idl.Union:
		t, err := g.visitUnion(info, n)
		if err != nil {
			return typesys.TypeDescriptor{}, err
		}
		return typesys.Describe(t), nil
	case *idl.Enum:
		t, err := g.visitEnum(info, n)
		if err != nil {
			return typesys.TypeDescriptor{}, err
		}
		return typesys.Describe(t), nil
	}
	return typesys.TypeDescriptor{}, internalf("%s: unknown type spec %T", spec.Pos(), spec)
}

// resolveSequence builds sequence<elem>; the sequence tag comes first, followed by the tags
// of the element one nesting level deeper
func (g *Generator) resolveSequence(info BuildInfo, n *idl.SequenceType) (typesys.TypeDescriptor, error) {
	g.seqDepth++
	elem, err := g.resolveType(info, n.Elem)
	g.seqDepth--
	if err != nil {
		return typesys.TypeDescriptor{}, err
	}
	bound := 0
	if n.Bound != nil {
		if bound, err = g.evalSize(info, n.Bound, ErrBound, 0); err != nil {
			return typesys.TypeDescriptor{}, err
		}
	}
	elem = g.use(elem)
	tags := append([]typesys.Tag{typesys.SequenceTag{Bound: bound}}, elem.Nested()...)
	return typesys.Describe(typesys.SequenceOf(elem), tags...), nil
}

func (g *Generator) resolveNamedType(info BuildInfo, name *idl.ScopedName) (typesys.TypeDescriptor, error) {
	sym, err := g.resolveSymbol(info, name)
	if err != nil {
		return typesys.TypeDescriptor{}, err
	}
	switch sym.Kind() {
	case symtab.SymbolTypedef:
		if d, ok := g.types.Typedef(sym); ok {
			return d, nil
		}
		return typesys.TypeDescriptor{}, g.invalid(name, sym.IDLName(), ErrUsedBeforeDefined, nil)
	case symtab.SymbolValue:
		return typesys.TypeDescriptor{}, g.invalid(name, sym.IDLName(), ErrNotAType, nil)
	}
	if t, ok := g.types.Published(sym); ok {
		if g.seqDepth == 0 {
			return typesys.TypeDescriptor{}, g.invalid(name, sym.IDLName(), ErrRecursiveType, nil)
		}
		return typesys.Describe(t), nil
	}
	if t, ok := g.types.Lookup(sym); ok {
		return typesys.Describe(t), nil
	}
	return typesys.TypeDescriptor{}, g.invalid(name, sym.IDLName(), ErrUsedBeforeDefined, nil)
}

// declaratorType applies the array dimensions of a declarator to its base type
func (g *Generator) declaratorType(info BuildInfo, d *idl.Declarator, base typesys.TypeDescriptor) (typesys.TypeDescriptor, error) {
	if len(d.Dims) == 0 {
		return base, nil
	}
	dims := make([]int, len(d.Dims))
	for i, dim := range d.Dims {
		size, err := g.evalSize(info, dim, ErrDimension, 1)
		if err != nil {
			return typesys.TypeDescriptor{}, err
		}
		dims[i] = size
	}
	elem := g.use(base)
	tags := append([]typesys.Tag{typesys.ArrayTag{Dims: dims}}, elem.Nested()...)
	return typesys.Describe(typesys.ArrayOf(elem), tags...), nil
}

func isConstantType(d typesys.TypeDescriptor) bool {
	switch k := d.Type.Kind; {
	case k.IsInteger():
		return true
	case k == typesys.TC_FLOAT, k == typesys.TC_DOUBLE, k == typesys.TC_CHAR, k == typesys.TC_WCHAR,
		k == typesys.TC_BOOLEAN, k == typesys.TC_STRING, k == typesys.TC_WSTRING, k == typesys.TC_ENUM:
		return true
	}
	return false
}
