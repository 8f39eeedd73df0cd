package compiler

import (
	"fmt"
	"log/slog"

	"github.com/ifabos/go-idlc/idl"
	"github.com/ifabos/go-idlc/literal"
	"github.com/ifabos/go-idlc/mapping"
	"github.com/ifabos/go-idlc/symtab"
	"github.com/ifabos/go-idlc/typesys"
)

// BuildInfo is the context threaded through the walk: the scope names are declared in, and
// the type whose body is visited together with its symbol
type BuildInfo struct {
	Scope  *symtab.Scope
	Type   *typesys.Type
	Symbol *symtab.Symbol
}

// Generator materializes the definitions of a specification into the module of a session
type Generator struct {
	table    *symtab.SymbolTable
	types    *TypeManager
	mappings *mapping.Table
	mode     literal.Mode
	diags    *Diagnostics
	logger   *slog.Logger

	// seqDepth counts the enclosing sequence types while a type spec is resolved
	seqDepth int
}

func newGenerator(s *Session) *Generator {
	return &Generator{
		table:    s.table,
		types:    s.types,
		mappings: s.mappings,
		mode:     s.mode,
		diags:    s.diags,
		logger:   s.logger,
	}
}

func (g *Generator) invalid(n idl.Node, symbol string, rule, cause error) error {
	return &InvalidIDLError{Symbol: symbol, Rule: rule, Pos: n.Pos(), Err: cause}
}

// symbolOf returns the symbol the parser declared for name in the scope of info
func (g *Generator) symbolOf(info BuildInfo, name string, n idl.Node) (*symtab.Symbol, error) {
	sym := info.Scope.Symbol(name)
	if sym == nil {
		return nil, internalf("%s: symbol %s not found in scope %q", n.Pos(), name, info.Scope.IDLName())
	}
	return sym, nil
}

// scopeOf returns the scope opened for a type symbol
func (g *Generator) scopeOf(sym *symtab.Symbol) (*symtab.Scope, error) {
	scope := g.table.ScopeForSymbol(sym)
	if scope == nil {
		return nil, internalf("no scope for type %s", sym.IDLName())
	}
	return scope, nil
}

func (g *Generator) newType(sym *symtab.Symbol, kind typesys.TCKind) *typesys.Type {
	return &typesys.Type{
		Name:         symtab.MapName(sym.Name()),
		Namespace:    sym.Scope().QualifiedName(),
		RepositoryID: g.table.ConstructRepositoryID(sym),
		Kind:         kind,
	}
}

// declare returns the stub of an interface or value type, creating it on first sight
func (g *Generator) declare(n idl.Node, sym *symtab.Symbol, kind typesys.TCKind, flavor typesys.Flavor) (*typesys.Type, error) {
	if t, ok := g.types.Lookup(sym); ok {
		if t.Kind != kind || t.Flavor != flavor {
			return nil, g.invalid(n, sym.IDLName(), ErrFlavorMismatch,
				fmt.Errorf("declared as %s %s", t.Flavor, t.Kind))
		}
		return t, nil
	}
	t := g.newType(sym, kind)
	t.Flavor = flavor
	return t, g.types.RegisterForwardDeclaration(t, sym)
}

// use applies the custom mappings to a descriptor used as a field, parameter, result or
// element type
func (g *Generator) use(d typesys.TypeDescriptor) typesys.TypeDescriptor {
	return g.mappings.Substitute(d)
}

// Generate walks a specification
func (g *Generator) Generate(spec *idl.Specification) error {
	g.logger.Debug("generating types", "unit", spec.Unit)
	return g.visitDefinitions(BuildInfo{Scope: g.table.TopScope()}, spec.Definitions)
}

func (g *Generator) visitDefinitions(info BuildInfo, defs []idl.Node) error {
	for _, def := range defs {
		if err := g.visitDefinition(info, def); err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) visitDefinition(info BuildInfo, def idl.Node) error {
	switch n := def.(type) {
	case *idl.Module:
		return g.visitModule(info, n)
	case *idl.Interface:
		return g.visitInterface(info, n)
	case *idl.ForwardDecl:
		return g.visitForwardDecl(info, n)
	case *idl.ValueType:
		return g.visitValueType(info, n)
	case *idl.ValueBox:
		return g.visitValueBox(info, n)
	case *idl.Struct:
		_, err := g.visitStruct(info, n)
		return err
	case *idl.Exception:
		_, err := g.visitStructLike(info, n, n.Name, n.Members, typesys.TC_EXCEPT)
		return err
	case *idl.Union:
		_, err := g.visitUnion(info, n)
		return err
	case *idl.Enum:
		_, err := g.visitEnum(info, n)
		return err
	case *idl.Const:
		return g.visitConst(info, n)
	case *idl.Typedef:
		return g.visitTypedef(info, n)
	case *idl.Operation:
		return g.visitOperation(info, n)
	case *idl.Attribute:
		return g.visitAttribute(info, n)
	case *idl.StateMember:
		return g.visitStateMember(info, n)
	case *idl.Initializer:
		return g.visitInitializer(info, n)
	case *idl.PragmaPrefix, *idl.PragmaID:
		// applied to the scope graph while parsing
		return nil
	case *idl.Specification, *idl.Member, *idl.Declarator, *idl.Case, *idl.CaseLabel, *idl.Param,
		*idl.BaseType, *idl.StringType, *idl.SequenceType, *idl.ScopedName,
		*idl.IntegerLit, *idl.FloatLit, *idl.CharLit, *idl.StringLit, *idl.BoolLit,
		*idl.BinaryExpr, *idl.UnaryExpr:
		return internalf("%s: %T is not a definition", def.Pos(), def)
	}
	return internalf("%s: unknown node %T", def.Pos(), def)
}

func (g *Generator) visitModule(info BuildInfo, n *idl.Module) error {
	scope := info.Scope.Child(n.Name)
	if scope == nil {
		return internalf("%s: no scope for module %s", n.Pos(), n.Name)
	}
	return g.visitDefinitions(BuildInfo{Scope: scope}, n.Definitions)
}

func interfaceFlavor(abstract, local bool) typesys.Flavor {
	switch {
	case abstract:
		return typesys.FlavorAbstract
	case local:
		return typesys.FlavorLocal
	}
	return typesys.FlavorConcrete
}

func valueFlavor(abstract bool) typesys.Flavor {
	if abstract {
		return typesys.FlavorAbstract
	}
	return typesys.FlavorConcrete
}

func (g *Generator) visitForwardDecl(info BuildInfo, n *idl.ForwardDecl) error {
	sym, err := g.symbolOf(info, n.Name, n)
	if err != nil {
		return err
	}
	if n.Abstract && n.Local {
		return g.invalid(n, sym.IDLName(), ErrAbstractLocal, nil)
	}
	if g.types.IsKnown(sym) || g.types.CheckSkip(sym) {
		return nil
	}
	if n.Kind == idl.ForwardValue {
		_, err = g.declare(n, sym, typesys.TC_VALUE, valueFlavor(n.Abstract))
		return err
	}
	_, err = g.declare(n, sym, typesys.TC_OBJREF, interfaceFlavor(n.Abstract, n.Local))
	return err
}

// resolveBase resolves the name of a base interface or value type, which must be defined
func (g *Generator) resolveBase(info BuildInfo, name *idl.ScopedName) (*typesys.Type, *symtab.Symbol, error) {
	sym, err := g.resolveSymbol(info, name)
	if err != nil {
		return nil, nil, err
	}
	if sym.Kind() != symtab.SymbolDefinition && sym.Kind() != symtab.SymbolForward {
		return nil, nil, g.invalid(name, name.String(), ErrInvalidBase, fmt.Errorf("%s is a %s", sym.IDLName(), sym.Kind()))
	}
	if !g.types.IsFullyDeclared(sym) {
		return nil, nil, g.invalid(name, name.String(), ErrIncompleteBase, nil)
	}
	t, _ := g.types.Lookup(sym)
	return t, sym, nil
}

// inherit makes the members of base visible in scope
func (g *Generator) inherit(scope *symtab.Scope, base *symtab.Symbol) {
	if baseScope := g.table.ScopeForSymbol(base); baseScope != nil {
		scope.AddInheritedScope(baseScope)
	}
}

func (g *Generator) visitInterface(info BuildInfo, n *idl.Interface) error {
	sym, err := g.symbolOf(info, n.Name, n)
	if err != nil {
		return err
	}
	if n.Abstract && n.Local {
		return g.invalid(n, sym.IDLName(), ErrAbstractLocal, nil)
	}
	if g.types.CheckSkip(sym) {
		return nil
	}
	t, err := g.declare(n, sym, typesys.TC_OBJREF, interfaceFlavor(n.Abstract, n.Local))
	if err != nil {
		return err
	}
	scope, err := g.scopeOf(sym)
	if err != nil {
		return err
	}

	for _, base := range n.Bases {
		bt, bsym, err := g.resolveBase(info, base)
		if err != nil {
			return err
		}
		switch {
		case !bt.IsInterface():
			return g.invalid(base, sym.IDLName(), ErrInvalidBase, fmt.Errorf("%s is not an interface", base))
		case n.Abstract && bt.Flavor != typesys.FlavorAbstract:
			return g.invalid(base, sym.IDLName(), ErrInvalidBase,
				fmt.Errorf("an abstract interface can't inherit from the %s interface %s", bt.Flavor, base))
		case !n.Local && bt.Flavor == typesys.FlavorLocal:
			return g.invalid(base, sym.IDLName(), ErrInvalidBase,
				fmt.Errorf("an unconstrained interface can't inherit from the local interface %s", base))
		}
		t.AddInterfaces(bt)
		g.inherit(scope, bsym)
	}

	if err := g.visitDefinitions(BuildInfo{Scope: scope, Type: t, Symbol: sym}, n.Body); err != nil {
		return err
	}
	return g.types.CompleteTypeDefinition(sym)
}

func (g *Generator) visitValueType(info BuildInfo, n *idl.ValueType) error {
	sym, err := g.symbolOf(info, n.Name, n)
	if err != nil {
		return err
	}
	if g.types.CheckSkip(sym) {
		return nil
	}
	t, err := g.declare(n, sym, typesys.TC_VALUE, valueFlavor(n.Abstract))
	if err != nil {
		return err
	}
	if n.Custom {
		t.Tags = append(t.Tags, typesys.CustomTag{})
	}
	if n.Truncatable {
		t.Tags = append(t.Tags, typesys.TruncatableTag{})
	}
	scope, err := g.scopeOf(sym)
	if err != nil {
		return err
	}

	for i, base := range n.Bases {
		bt, bsym, err := g.resolveBase(info, base)
		if err != nil {
			return err
		}
		switch {
		case bt.Kind != typesys.TC_VALUE:
			return g.invalid(base, sym.IDLName(), ErrInvalidBase, fmt.Errorf("%s is not a value type", base))
		case bt.IsConcreteValue() && n.Abstract:
			return g.invalid(base, sym.IDLName(), ErrInvalidBase,
				fmt.Errorf("an abstract value type can't inherit from the concrete value type %s", base))
		case bt.IsConcreteValue() && t.Parent != nil:
			return g.invalid(base, sym.IDLName(), ErrTwoConcreteParents, nil)
		case bt.IsConcreteValue() && i != 0:
			return g.invalid(base, sym.IDLName(), ErrConcreteParentFirst, nil)
		case bt.IsConcreteValue():
			t.Parent = bt
		default:
			t.AddInterfaces(bt)
		}
		g.inherit(scope, bsym)
	}
	if n.Truncatable && t.Parent == nil {
		return g.invalid(n, sym.IDLName(), ErrTruncatable, nil)
	}

	concrete := 0
	for _, supported := range n.Supports {
		st, ssym, err := g.resolveBase(info, supported)
		if err != nil {
			return err
		}
		if !st.IsInterface() {
			return g.invalid(supported, sym.IDLName(), ErrInvalidSupports, fmt.Errorf("%s is a %s", supported, st.Kind))
		}
		if st.Flavor != typesys.FlavorAbstract {
			concrete++
			if concrete > 1 {
				return g.invalid(supported, sym.IDLName(), ErrSupportsConcrete, nil)
			}
		}
		t.Supports = append(t.Supports, st)
		g.inherit(scope, ssym)
	}

	if err := g.visitDefinitions(BuildInfo{Scope: scope, Type: t, Symbol: sym}, n.Body); err != nil {
		return err
	}
	mirrorInherited(t)

	if t.IsConcreteValue() && (len(t.Supports) > 0 || hasAbstractMember(t)) {
		t.ImplExpected = true
		g.diags.add(DiagImplementationExpected, sym.IDLName(),
			"value type %s needs an implementation", t.QualifiedName())
	}
	return g.types.CompleteTypeDefinition(sym)
}

// mirrorInherited copies the members of the supported interfaces and abstract bases of a
// value type onto it as abstract members, unless the value type or one of its concrete
// ancestors already declares them
func mirrorInherited(t *typesys.Type) {
	visited := make(map[*typesys.Type]bool)
	var walk func(base *typesys.Type)
	walk = func(base *typesys.Type) {
		if visited[base] {
			return
		}
		visited[base] = true
		for _, m := range base.Members {
			if t.HasMemberInChain(m.Name, m.Kind) {
				continue
			}
			m.Abstract = true
			if m.Origin == "" {
				m.Origin = base.RepositoryID
			}
			t.Members = append(t.Members, m)
		}
		for _, b := range base.Interfaces {
			walk(b)
		}
		for _, b := range base.Supports {
			walk(b)
		}
	}
	for _, b := range t.Interfaces {
		walk(b)
	}
	for _, b := range t.Supports {
		walk(b)
	}
}

func hasAbstractMember(t *typesys.Type) bool {
	for _, m := range t.Members {
		if m.Abstract {
			return true
		}
	}
	return false
}

func (g *Generator) visitValueBox(info BuildInfo, n *idl.ValueBox) error {
	sym, err := g.symbolOf(info, n.Name, n)
	if err != nil {
		return err
	}
	if g.types.CheckSkip(sym) {
		return nil
	}
	payload, err := g.resolveType(info, n.Type)
	if err != nil {
		return err
	}
	if payload.Type.Kind == typesys.TC_VALUE {
		return g.invalid(n, sym.IDLName(), ErrBoxedValue, nil)
	}
	payload = g.use(payload)
	t := g.newType(sym, typesys.TC_VALUE_BOX)
	t.Elem = &payload
	return g.types.RegisterTypeDefinition(t, sym)
}

func (g *Generator) visitStateMember(info BuildInfo, n *idl.StateMember) error {
	t := info.Type
	if t == nil || t.Kind != typesys.TC_VALUE {
		return internalf("%s: state member outside of a value type", n.Pos())
	}
	base, err := g.resolveType(info, n.Type)
	if err != nil {
		return err
	}
	for _, d := range n.Declarators {
		fd, err := g.declaratorType(info, d, base)
		if err != nil {
			return err
		}
		if hasField(t, d.Name) {
			return g.invalid(d, info.Symbol.IDLName(), ErrDuplicateMember, fmt.Errorf("%s", d.Name))
		}
		t.Fields = append(t.Fields, typesys.Field{Name: d.Name, Type: g.use(fd), Private: n.Private})
	}
	return nil
}

func (g *Generator) visitInitializer(info BuildInfo, n *idl.Initializer) error {
	t := info.Type
	if t == nil || t.Kind != typesys.TC_VALUE {
		return internalf("%s: factory outside of a value type", n.Pos())
	}
	if t.HasMember(n.Name, typesys.MemberFactory) {
		return g.invalid(n, info.Symbol.IDLName(), ErrDuplicateMember, fmt.Errorf("%s", n.Name))
	}
	params, err := g.params(info, n.Params)
	if err != nil {
		return err
	}
	m := typesys.Member{
		Name:   n.Name,
		Kind:   typesys.MemberFactory,
		Result: typesys.Describe(t),
		Params: params,
		Origin: t.RepositoryID,
	}
	if len(n.Raises) > 0 {
		raises, err := g.raises(info, n.Raises)
		if err != nil {
			return err
		}
		m.Tags = append(m.Tags, typesys.RaisesTag{Exceptions: raises})
	}
	t.Members = append(t.Members, m)
	return nil
}

func hasField(t *typesys.Type, name string) bool {
	for _, f := range t.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

func (g *Generator) visitStruct(info BuildInfo, n *idl.Struct) (*typesys.Type, error) {
	return g.visitStructLike(info, n, n.Name, n.Members, typesys.TC_STRUCT)
}

// visitStructLike generates a struct or an exception. The type is registered once all of
// its members resolved; until then it is only visible to members through a sequence.
func (g *Generator) visitStructLike(info BuildInfo, n idl.Node, name string, members []*idl.Member,
	kind typesys.TCKind) (*typesys.Type, error) {
	sym, err := g.symbolOf(info, name, n)
	if err != nil {
		return nil, err
	}
	if g.types.CheckSkip(sym) {
		t, _ := g.types.Lookup(sym)
		return t, nil
	}
	scope, err := g.scopeOf(sym)
	if err != nil {
		return nil, err
	}
	t := g.newType(sym, kind)
	inner := BuildInfo{Scope: scope, Type: t, Symbol: sym}

	g.types.PublishRecursion(sym, t)
	defer g.types.UnpublishRecursion(sym)

	ctor := typesys.Member{
		Name:   t.Name,
		Kind:   typesys.MemberConstructor,
		Result: typesys.Describe(t),
		Origin: t.RepositoryID,
	}
	for _, m := range members {
		base, err := g.resolveType(inner, m.Type)
		if err != nil {
			return nil, err
		}
		for _, d := range m.Declarators {
			fd, err := g.declaratorType(inner, d, base)
			if err != nil {
				return nil, err
			}
			if hasField(t, d.Name) {
				return nil, g.invalid(d, sym.IDLName(), ErrDuplicateMember, fmt.Errorf("%s", d.Name))
			}
			fd = g.use(fd)
			t.Fields = append(t.Fields, typesys.Field{Name: d.Name, Type: fd})
			ctor.Params = append(ctor.Params, typesys.Param{Name: d.Name, Mode: typesys.PARAM_IN, Type: fd})
		}
	}
	t.Members = append(t.Members, ctor)
	return t, g.types.RegisterTypeDefinition(t, sym)
}

func validDiscriminator(d typesys.TypeDescriptor) bool {
	switch d.Type.Kind {
	case typesys.TC_ENUM, typesys.TC_SHORT, typesys.TC_LONG, typesys.TC_LONGLONG,
		typesys.TC_CHAR, typesys.TC_BOOLEAN:
		return true
	}
	return false
}

func (g *Generator) visitUnion(info BuildInfo, n *idl.Union) (*typesys.Type, error) {
	sym, err := g.symbolOf(info, n.Name, n)
	if err != nil {
		return nil, err
	}
	if g.types.CheckSkip(sym) {
		t, _ := g.types.Lookup(sym)
		return t, nil
	}
	scope, err := g.scopeOf(sym)
	if err != nil {
		return nil, err
	}
	t := g.newType(sym, typesys.TC_UNION)
	inner := BuildInfo{Scope: scope, Type: t, Symbol: sym}

	disc, err := g.resolveType(inner, n.Discriminator)
	if err != nil {
		return nil, err
	}
	if !validDiscriminator(disc) {
		return nil, g.invalid(n.Discriminator, sym.IDLName(), ErrDiscriminatorType, fmt.Errorf("%s", disc))
	}
	labels, err := g.scanLabels(inner, n, disc)
	if err != nil {
		return nil, err
	}

	g.types.PublishRecursion(sym, t)
	defer g.types.UnpublishRecursion(sym)

	for i, c := range n.Cases {
		base, err := g.resolveType(inner, c.Type)
		if err != nil {
			return nil, err
		}
		d, err := g.declaratorType(inner, c.Declarator, base)
		if err != nil {
			return nil, err
		}
		name := c.Declarator.Name
		if t.HasMember(name, typesys.MemberGetter) {
			return nil, g.invalid(c, sym.IDLName(), ErrDuplicateMember, fmt.Errorf("%s", name))
		}
		d = g.use(d)
		t.Cases = append(t.Cases, typesys.UnionCase{Name: name, Type: d, Labels: labels[i]})
		t.Members = append(t.Members,
			typesys.Member{
				Name:   name,
				Kind:   typesys.MemberGetter,
				Result: d,
				Guard:  labels[i],
				Origin: t.RepositoryID,
			},
			typesys.Member{
				Name:   name,
				Kind:   typesys.MemberSetter,
				Result: typesys.Describe(typesys.Builtin(typesys.TC_VOID)),
				Params: []typesys.Param{{Name: "value", Mode: typesys.PARAM_IN, Type: d}},
				Guard:  labels[i],
				Origin: t.RepositoryID,
			})
	}
	t.Discriminator = &disc
	return t, g.types.RegisterTypeDefinition(t, sym)
}

func (g *Generator) visitEnum(info BuildInfo, n *idl.Enum) (*typesys.Type, error) {
	sym, err := g.symbolOf(info, n.Name, n)
	if err != nil {
		return nil, err
	}
	if g.types.CheckSkip(sym) {
		t, _ := g.types.Lookup(sym)
		bindEnumerators(sym.Scope(), t, n.Enumerators)
		return t, nil
	}
	t := g.newType(sym, typesys.TC_ENUM)
	t.Enumerators = append([]string(nil), n.Enumerators...)
	if err := g.types.RegisterTypeDefinition(t, sym); err != nil {
		return nil, err
	}
	bindEnumerators(sym.Scope(), t, n.Enumerators)
	return t, nil
}

// bindEnumerators gives the enumerator symbols declared next to an enum their values
func bindEnumerators(scope *symtab.Scope, t *typesys.Type, names []string) {
	for i, name := range names {
		if esym := scope.Symbol(name); esym != nil && esym.Value() == nil {
			esym.SetValue(literal.NewEnumValue(t, i))
		}
	}
}

func (g *Generator) visitTypedef(info BuildInfo, n *idl.Typedef) error {
	base, err := g.resolveType(info, n.Type)
	if err != nil {
		return err
	}
	for _, d := range n.Declarators {
		sym, err := g.symbolOf(info, d.Name, d)
		if err != nil {
			return err
		}
		if g.types.CheckSkip(sym) {
			continue
		}
		td, err := g.declaratorType(info, d, base)
		if err != nil {
			return err
		}
		if err := g.types.RegisterTypedef(sym, td); err != nil {
			return err
		}
	}
	return nil
}

// memberOwner returns the interface or value type whose body is visited
func memberOwner(info BuildInfo, n idl.Node) (*typesys.Type, error) {
	t := info.Type
	if t == nil || (t.Kind != typesys.TC_OBJREF && t.Kind != typesys.TC_VALUE) {
		return nil, internalf("%s: %T outside of an interface or value type", n.Pos(), n)
	}
	return t, nil
}

func (g *Generator) visitOperation(info BuildInfo, n *idl.Operation) error {
	t, err := memberOwner(info, n)
	if err != nil {
		return err
	}
	if t.HasMember(n.Name, typesys.MemberOperation) {
		return g.invalid(n, info.Symbol.IDLName(), ErrDuplicateMember, fmt.Errorf("%s", n.Name))
	}
	result, err := g.resolveType(info, n.Result)
	if err != nil {
		return err
	}
	params, err := g.params(info, n.Params)
	if err != nil {
		return err
	}
	m := typesys.Member{
		Name:     n.Name,
		Kind:     typesys.MemberOperation,
		Result:   g.use(result),
		Params:   params,
		Abstract: true,
		Origin:   t.RepositoryID,
	}
	if n.Oneway {
		if result.Type.Kind != typesys.TC_VOID || len(n.Raises) > 0 {
			return g.invalid(n, info.Symbol.IDLName(), ErrOneway, fmt.Errorf("%s", n.Name))
		}
		for _, p := range params {
			if p.Mode != typesys.PARAM_IN {
				return g.invalid(n, info.Symbol.IDLName(), ErrOneway, fmt.Errorf("%s", n.Name))
			}
		}
		m.Tags = append(m.Tags, typesys.OnewayTag{})
	}
	if len(n.Raises) > 0 {
		raises, err := g.raises(info, n.Raises)
		if err != nil {
			return err
		}
		m.Tags = append(m.Tags, typesys.RaisesTag{Exceptions: raises})
	}
	t.Members = append(t.Members, m)
	return nil
}

func (g *Generator) visitAttribute(info BuildInfo, n *idl.Attribute) error {
	t, err := memberOwner(info, n)
	if err != nil {
		return err
	}
	d, err := g.resolveType(info, n.Type)
	if err != nil {
		return err
	}
	d = g.use(d)
	for _, name := range n.Names {
		if t.HasMember(name, typesys.MemberGetter) {
			return g.invalid(n, info.Symbol.IDLName(), ErrDuplicateMember, fmt.Errorf("%s", name))
		}
		t.Members = append(t.Members, typesys.Member{
			Name:     name,
			Kind:     typesys.MemberGetter,
			Result:   d,
			Abstract: true,
			Origin:   t.RepositoryID,
		})
		if n.Readonly {
			continue
		}
		t.Members = append(t.Members, typesys.Member{
			Name:     name,
			Kind:     typesys.MemberSetter,
			Result:   typesys.Describe(typesys.Builtin(typesys.TC_VOID)),
			Params:   []typesys.Param{{Name: "value", Mode: typesys.PARAM_IN, Type: d}},
			Abstract: true,
			Origin:   t.RepositoryID,
		})
	}
	return nil
}

func (g *Generator) params(info BuildInfo, params []*idl.Param) ([]typesys.Param, error) {
	result := make([]typesys.Param, 0, len(params))
	seen := make(map[string]bool)
	for _, p := range params {
		if seen[p.Name] {
			return nil, g.invalid(p, p.Name, ErrDuplicateParam, nil)
		}
		seen[p.Name] = true
		d, err := g.resolveType(info, p.Type)
		if err != nil {
			return nil, err
		}
		result = append(result, typesys.Param{Name: p.Name, Mode: p.Mode, Type: g.use(d)})
	}
	return result, nil
}

func (g *Generator) raises(info BuildInfo, names []*idl.ScopedName) ([]*typesys.Type, error) {
	result := make([]*typesys.Type, 0, len(names))
	for _, name := range names {
		d, err := g.resolveNamedType(info, name)
		if err != nil {
			return nil, err
		}
		if d.Type.Kind != typesys.TC_EXCEPT {
			return nil, g.invalid(name, name.String(), ErrNotAnException, nil)
		}
		result = append(result, d.Type)
	}
	return result, nil
}
