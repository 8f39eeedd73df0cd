package typesys

import (
	"fmt"
	"strings"
)

// Type is a nominal or synthesized type of the target type system
type Type struct {
	Name         string
	Namespace    string
	RepositoryID string
	Kind         TCKind
	Flavor       Flavor

	// Parent is the concrete base of a value type
	Parent *Type
	// Interfaces lists inherited interfaces and abstract value bases
	Interfaces []*Type
	// Supports lists the interfaces a value type supports
	Supports []*Type

	Fields        []Field
	Members       []Member
	Enumerators   []string
	Discriminator *TypeDescriptor
	Cases         []UnionCase
	Elem          *TypeDescriptor
	Const         *Constant
	Tags          []Tag

	// ImportPath is set for external types supplied by a custom mapping
	ImportPath string
	// ImplExpected marks value types that need a user-supplied implementation
	ImplExpected bool

	complete bool
}

// Field is a data member of a struct, exception or value type
type Field struct {
	Name    string
	Type    TypeDescriptor
	Private bool
}

// MemberKind classifies a member signature
type MemberKind int

const (
	MemberOperation MemberKind = iota
	MemberGetter
	MemberSetter
	MemberFactory
	MemberConstructor
)

// String returns the string representation of the MemberKind
func (k MemberKind) String() string {
	switch k {
	case MemberOperation:
		return "operation"
	case MemberGetter:
		return "getter"
	case MemberSetter:
		return "setter"
	case MemberFactory:
		return "factory"
	case MemberConstructor:
		return "constructor"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", k)
	}
}

// ParseMemberKind is the inverse of String
func ParseMemberKind(s string) (MemberKind, error) {
	for k := MemberOperation; k <= MemberConstructor; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return MemberOperation, fmt.Errorf("unknown member kind %q", s)
}

// Member is a method-like signature on an interface, value type or union
type Member struct {
	Name     string
	Kind     MemberKind
	Result   TypeDescriptor
	Params   []Param
	Abstract bool
	Tags     []Tag
	// Guard lists the discriminator values under which a union accessor is valid
	Guard []any
	// Origin is the repository id of the type that declared the member
	Origin string
}

// Param is a member parameter
type Param struct {
	Name string
	Mode ParameterMode
	Type TypeDescriptor
}

// UnionCase is one arm of a union
type UnionCase struct {
	Name   string
	Type   TypeDescriptor
	Labels []any
}

// Constant is the value held by a constant type
type Constant struct {
	Type  TypeDescriptor
	Value any
	// Native is false when the value has to be held by a read-only variable
	Native bool
}

type defaultLabel struct{}

func (defaultLabel) String() string { return "default" }

// DefaultLabel marks the default arm of a union in UnionCase.Labels
var DefaultLabel any = defaultLabel{}

// IsDefaultLabel reports whether v is DefaultLabel
func IsDefaultLabel(v any) bool {
	_, ok := v.(defaultLabel)
	return ok
}

// QualifiedName returns the dot separated name of the type
func (t *Type) QualifiedName() string {
	if t.Namespace == "" {
		return t.Name
	}
	return t.Namespace + "." + t.Name
}

// String returns a readable description of the type
func (t *Type) String() string {
	switch t.Kind {
	case TC_SEQUENCE:
		return fmt.Sprintf("sequence<%s>", t.Elem)
	case TC_ARRAY:
		return fmt.Sprintf("%s[]", t.Elem)
	}
	return t.QualifiedName()
}

// IsComplete reports whether the type has been finalized
func (t *Type) IsComplete() bool {
	return t.complete
}

// Complete finalizes the type
func (t *Type) Complete() {
	t.complete = true
}

// IsInterface reports whether the type is an interface of any flavor
func (t *Type) IsInterface() bool {
	return t.Kind == TC_OBJREF
}

// IsAbstractValue reports whether the type is an abstract value type
func (t *Type) IsAbstractValue() bool {
	return t.Kind == TC_VALUE && t.Flavor == FlavorAbstract
}

// IsConcreteValue reports whether the type is a concrete value type
func (t *Type) IsConcreteValue() bool {
	return t.Kind == TC_VALUE && t.Flavor == FlavorConcrete
}

// AddInterfaces appends bases not already present
func (t *Type) AddInterfaces(bases ...*Type) {
	for _, b := range bases {
		if !containsType(t.Interfaces, b) {
			t.Interfaces = append(t.Interfaces, b)
		}
	}
}

// HasMember reports whether a member with name and kind is declared directly on t
func (t *Type) HasMember(name string, kind MemberKind) bool {
	for _, m := range t.Members {
		if m.Name == name && m.Kind == kind {
			return true
		}
	}
	return false
}

// HasMemberInChain reports whether t or one of its concrete ancestors declares the member
func (t *Type) HasMemberInChain(name string, kind MemberKind) bool {
	for cur := t; cur != nil; cur = cur.Parent {
		if cur.HasMember(name, kind) {
			return true
		}
	}
	return false
}

// AllInterfaceMembers returns the members of t and of all its bases, each base once
func (t *Type) AllInterfaceMembers() []Member {
	var result []Member
	visited := make(map[*Type]bool)
	var walk func(*Type)
	walk = func(cur *Type) {
		if visited[cur] {
			return
		}
		visited[cur] = true
		result = append(result, cur.Members...)
		for _, base := range cur.Interfaces {
			walk(base)
		}
	}
	walk(t)
	return result
}

// Implements reports whether t inherits from base, directly or transitively
func (t *Type) Implements(base *Type) bool {
	if t == base {
		return true
	}
	if t.Parent != nil && t.Parent.Implements(base) {
		return true
	}
	for _, i := range t.Interfaces {
		if i.Implements(base) {
			return true
		}
	}
	for _, i := range t.Supports {
		if i.Implements(base) {
			return true
		}
	}
	return false
}

func containsType(list []*Type, t *Type) bool {
	for _, cur := range list {
		if cur == t {
			return true
		}
	}
	return false
}

// SequenceOf synthesizes the anonymous sequence type of elem
func SequenceOf(elem TypeDescriptor) *Type {
	return &Type{Name: "sequence", Kind: TC_SEQUENCE, Elem: &elem, complete: true}
}

// ArrayOf synthesizes the anonymous array type of elem
func ArrayOf(elem TypeDescriptor) *Type {
	return &Type{Name: "array", Kind: TC_ARRAY, Elem: &elem, complete: true}
}

// NewExternal creates a reference to a type supplied outside the compiler, for example
// "time.Time" imported from "time"
func NewExternal(qualified, importPath string) *Type {
	namespace, name := "", qualified
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		namespace, name = qualified[:i], qualified[i+1:]
	}
	return &Type{
		Name:       name,
		Namespace:  namespace,
		Kind:       TC_EXTERNAL,
		ImportPath: importPath,
		complete:   true,
	}
}

var builtins = map[TCKind]*Type{}

func init() {
	for _, k := range []TCKind{
		TC_VOID, TC_SHORT, TC_LONG, TC_USHORT, TC_ULONG, TC_FLOAT, TC_DOUBLE, TC_BOOLEAN,
		TC_CHAR, TC_OCTET, TC_ANY, TC_TYPECODE, TC_STRING, TC_LONGLONG, TC_ULONGLONG,
		TC_WCHAR, TC_WSTRING,
	} {
		builtins[k] = &Type{Name: k.String(), Kind: k, complete: true}
	}
	builtins[TC_OBJREF] = &Type{
		Name:         "Object",
		Kind:         TC_OBJREF,
		RepositoryID: "IDL:omg.org/CORBA/Object:1.0",
		complete:     true,
	}
}

// Builtin returns the shared type for a primitive kind, or Object for TC_OBJREF
func Builtin(k TCKind) *Type {
	t, ok := builtins[k]
	if !ok {
		panic(fmt.Sprintf("typesys: no builtin type for %s", k))
	}
	return t
}

// IsBuiltin reports whether t is one of the shared builtin types
func IsBuiltin(t *Type) bool {
	return t != nil && builtins[t.Kind] == t
}
