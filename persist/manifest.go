// Package persist stores the modules produced by a compiler session: a YAML manifest that
// later sessions can load as a reference module, and generated Go source.
package persist

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ifabos/go-idlc/typesys"
)

// Manifest is the YAML form of a module
type Manifest struct {
	Module string      `yaml:"module"`
	ID     string      `yaml:"id"`
	Types  []TypeEntry `yaml:"types"`
}

// TypeEntry describes one named type of a module
type TypeEntry struct {
	Name          string        `yaml:"name"`
	Namespace     string        `yaml:"namespace,omitempty"`
	RepositoryID  string        `yaml:"repository_id,omitempty"`
	Kind          string        `yaml:"kind"`
	Flavor        string        `yaml:"flavor,omitempty"`
	Parent        string        `yaml:"parent,omitempty"`
	Interfaces    []string      `yaml:"interfaces,omitempty"`
	Supports      []string      `yaml:"supports,omitempty"`
	Fields        []FieldEntry  `yaml:"fields,omitempty"`
	Members       []MemberEntry `yaml:"members,omitempty"`
	Enumerators   []string      `yaml:"enumerators,omitempty"`
	Discriminator *TypeRef      `yaml:"discriminator,omitempty"`
	Cases         []CaseEntry   `yaml:"cases,omitempty"`
	Elem          *TypeRef      `yaml:"elem,omitempty"`
	Const         *ConstEntry   `yaml:"const,omitempty"`
	Custom        bool          `yaml:"custom,omitempty"`
	Truncatable   bool          `yaml:"truncatable,omitempty"`
	ImplExpected  bool          `yaml:"impl_expected,omitempty"`
}

// TypeRef refers to a type from a field, parameter or element position. Named types are
// referred to by qualified name; builtins only by kind.
type TypeRef struct {
	Kind   string   `yaml:"kind"`
	Name   string   `yaml:"name,omitempty"`
	Import string   `yaml:"import,omitempty"`
	Bound  int      `yaml:"bound,omitempty"`
	Dims   []int    `yaml:"dims,omitempty"`
	Elem   *TypeRef `yaml:"elem,omitempty"`
}

// FieldEntry is a data member
type FieldEntry struct {
	Name    string  `yaml:"name"`
	Type    TypeRef `yaml:"type"`
	Private bool    `yaml:"private,omitempty"`
}

// MemberEntry is a member signature
type MemberEntry struct {
	Name     string       `yaml:"name"`
	Kind     string       `yaml:"kind"`
	Result   *TypeRef     `yaml:"result,omitempty"`
	Params   []ParamEntry `yaml:"params,omitempty"`
	Abstract bool         `yaml:"abstract,omitempty"`
	Oneway   bool         `yaml:"oneway,omitempty"`
	Raises   []string     `yaml:"raises,omitempty"`
	Origin   string       `yaml:"origin,omitempty"`
}

// ParamEntry is a member parameter
type ParamEntry struct {
	Name string  `yaml:"name"`
	Mode string  `yaml:"mode"`
	Type TypeRef `yaml:"type"`
}

// CaseEntry is a union case; labels are encoded in the discriminator's domain
type CaseEntry struct {
	Name   string   `yaml:"name"`
	Type   TypeRef  `yaml:"type"`
	Labels []string `yaml:"labels"`
}

// ConstEntry is the value of a constant holder
type ConstEntry struct {
	Type   TypeRef `yaml:"type"`
	Value  string  `yaml:"value"`
	Native bool    `yaml:"native,omitempty"`
}

const defaultLabel = "default"

// Encode converts a module to its manifest
func Encode(m *typesys.Module) *Manifest {
	man := &Manifest{Module: m.Name, ID: m.ID.String()}
	for _, t := range m.Contents(typesys.TC_NULL) {
		man.Types = append(man.Types, encodeType(t))
	}
	return man
}

func encodeType(t *typesys.Type) TypeEntry {
	e := TypeEntry{
		Name:         t.Name,
		Namespace:    t.Namespace,
		RepositoryID: t.RepositoryID,
		Kind:         t.Kind.String(),
		Enumerators:  t.Enumerators,
		ImplExpected: t.ImplExpected,
	}
	if t.Kind == typesys.TC_OBJREF || t.Kind == typesys.TC_VALUE {
		e.Flavor = t.Flavor.String()
	}
	if t.Parent != nil {
		e.Parent = t.Parent.QualifiedName()
	}
	e.Interfaces = qualifiedNames(t.Interfaces)
	e.Supports = qualifiedNames(t.Supports)
	_, e.Custom = typesys.FindTag[typesys.CustomTag](t.Tags)
	_, e.Truncatable = typesys.FindTag[typesys.TruncatableTag](t.Tags)

	for _, f := range t.Fields {
		e.Fields = append(e.Fields, FieldEntry{Name: f.Name, Type: encodeRef(f.Type), Private: f.Private})
	}
	for _, m := range t.Members {
		e.Members = append(e.Members, encodeMember(m))
	}
	if t.Discriminator != nil {
		ref := encodeRef(*t.Discriminator)
		e.Discriminator = &ref
	}
	for _, c := range t.Cases {
		ce := CaseEntry{Name: c.Name, Type: encodeRef(c.Type)}
		for _, l := range c.Labels {
			if typesys.IsDefaultLabel(l) {
				ce.Labels = append(ce.Labels, defaultLabel)
				continue
			}
			ce.Labels = append(ce.Labels, encodeScalar(l))
		}
		e.Cases = append(e.Cases, ce)
	}
	if t.Elem != nil {
		ref := encodeRef(*t.Elem)
		e.Elem = &ref
	}
	if t.Const != nil {
		e.Const = &ConstEntry{
			Type:   encodeRef(t.Const.Type),
			Value:  encodeScalar(t.Const.Value),
			Native: t.Const.Native,
		}
	}
	return e
}

func encodeMember(m typesys.Member) MemberEntry {
	me := MemberEntry{
		Name:     m.Name,
		Kind:     m.Kind.String(),
		Abstract: m.Abstract,
		Origin:   m.Origin,
	}
	if !m.Result.IsZero() && m.Result.Type.Kind != typesys.TC_VOID {
		ref := encodeRef(m.Result)
		me.Result = &ref
	}
	for _, p := range m.Params {
		me.Params = append(me.Params, ParamEntry{Name: p.Name, Mode: p.Mode.String(), Type: encodeRef(p.Type)})
	}
	_, me.Oneway = typesys.FindTag[typesys.OnewayTag](m.Tags)
	if raises, ok := typesys.FindTag[typesys.RaisesTag](m.Tags); ok {
		me.Raises = qualifiedNames(raises.Exceptions)
	}
	return me
}

func encodeRef(d typesys.TypeDescriptor) TypeRef {
	d = d.Compact()
	t := d.Type
	ref := TypeRef{Kind: t.Kind.String()}
	switch {
	case t.Kind == typesys.TC_SEQUENCE:
		for _, tag := range d.Tags {
			if s, ok := tag.(typesys.SequenceTag); ok && s.Order == 0 {
				ref.Bound = s.Bound
			}
		}
		elem := encodeRef(*t.Elem)
		ref.Elem = &elem
	case t.Kind == typesys.TC_ARRAY:
		for _, tag := range d.Tags {
			if a, ok := tag.(typesys.ArrayTag); ok && a.Order == 0 {
				ref.Dims = a.Dims
			}
		}
		elem := encodeRef(*t.Elem)
		ref.Elem = &elem
	case t.Kind == typesys.TC_EXTERNAL:
		ref.Name = t.QualifiedName()
		ref.Import = t.ImportPath
	case !typesys.IsBuiltin(t):
		ref.Name = t.QualifiedName()
	}
	return ref
}

func qualifiedNames(types []*typesys.Type) []string {
	var names []string
	for _, t := range types {
		names = append(names, t.QualifiedName())
	}
	return names
}

// encodeScalar writes a converted constant or label value
func encodeScalar(v any) string {
	switch x := v.(type) {
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprint(v)
}

// decodeScalar reads a value written by encodeScalar, producing the Go type that constant
// conversion yields for kind
func decodeScalar(kind typesys.TCKind, s string) (any, error) {
	var (
		v   any
		err error
	)
	switch kind {
	case typesys.TC_SHORT:
		var n int64
		n, err = strconv.ParseInt(s, 10, 16)
		v = int16(n)
	case typesys.TC_LONG, typesys.TC_WCHAR:
		var n int64
		n, err = strconv.ParseInt(s, 10, 32)
		v = int32(n)
	case typesys.TC_LONGLONG:
		v, err = strconv.ParseInt(s, 10, 64)
	case typesys.TC_USHORT:
		var n uint64
		n, err = strconv.ParseUint(s, 10, 16)
		v = uint16(n)
	case typesys.TC_ULONG, typesys.TC_ENUM:
		var n uint64
		n, err = strconv.ParseUint(s, 10, 32)
		v = uint32(n)
	case typesys.TC_ULONGLONG:
		v, err = strconv.ParseUint(s, 10, 64)
	case typesys.TC_OCTET, typesys.TC_CHAR:
		var n uint64
		n, err = strconv.ParseUint(s, 10, 8)
		v = uint8(n)
	case typesys.TC_FLOAT:
		var f float64
		f, err = strconv.ParseFloat(s, 32)
		v = float32(f)
	case typesys.TC_DOUBLE:
		v, err = strconv.ParseFloat(s, 64)
	case typesys.TC_BOOLEAN:
		v, err = strconv.ParseBool(s)
	case typesys.TC_STRING, typesys.TC_WSTRING:
		v = s
	default:
		return nil, fmt.Errorf("no scalar values for %s", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", kind, s, err)
	}
	return v, nil
}

// Names returns the sorted qualified names of the manifest's types
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Types))
	for _, e := range m.Types {
		names = append(names, e.qualifiedName())
	}
	sort.Strings(names)
	return names
}

func (e TypeEntry) qualifiedName() string {
	if e.Namespace == "" {
		return e.Name
	}
	return e.Namespace + "." + e.Name
}
