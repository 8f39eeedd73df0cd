package persist

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/ifabos/go-idlc/typesys"
)

// Reference is a module loaded back from its manifest. It serves as a reference source of
// a compiler session: the types it holds are used instead of being generated again.
type Reference struct {
	Module string
	ID     uuid.UUID

	types map[string]*typesys.Type
	order []*typesys.Type
}

// LoadManifest reads the manifest at path
func LoadManifest(path string) (*Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	ref, err := ReadManifest(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest %s: %w", path, err)
	}
	return ref, nil
}

// LoadManifests loads several manifests, logging each one
func LoadManifests(logger *slog.Logger, paths ...string) ([]*Reference, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	refs := make([]*Reference, 0, len(paths))
	for _, path := range paths {
		ref, err := LoadManifest(path)
		if err != nil {
			return nil, err
		}
		logger.Debug("reference module loaded", "module", ref.Module, "id", ref.ID, "types", ref.Len())
		refs = append(refs, ref)
	}
	return refs, nil
}

// ReadManifest decodes a manifest and rebuilds its types
func ReadManifest(r io.Reader) (*Reference, error) {
	var man Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&man); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return Decode(&man)
}

// Decode rebuilds the types of a manifest. References to types outside the manifest
// become complete placeholder types carrying the referenced name.
func Decode(man *Manifest) (*Reference, error) {
	if man.Module == "" {
		return nil, fmt.Errorf("manifest has no module name")
	}
	id, err := uuid.Parse(man.ID)
	if err != nil {
		return nil, fmt.Errorf("manifest of %s has an invalid id: %w", man.Module, err)
	}
	ref := &Reference{Module: man.Module, ID: id, types: make(map[string]*typesys.Type)}

	// every named type exists before any reference is resolved
	for _, e := range man.Types {
		kind, err := typesys.ParseTCKind(e.Kind)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", e.qualifiedName(), err)
		}
		flavor, err := typesys.ParseFlavor(e.Flavor)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", e.qualifiedName(), err)
		}
		t := &typesys.Type{
			Name:         e.Name,
			Namespace:    e.Namespace,
			RepositoryID: e.RepositoryID,
			Kind:         kind,
			Flavor:       flavor,
			Enumerators:  e.Enumerators,
			ImplExpected: e.ImplExpected,
		}
		t.Complete()
		if _, exists := ref.types[t.QualifiedName()]; exists {
			return nil, fmt.Errorf("type %s: %w", t.QualifiedName(), typesys.ErrDuplicateDefinition)
		}
		ref.types[t.QualifiedName()] = t
		ref.order = append(ref.order, t)
	}

	d := &decoder{ref: ref, placeholders: make(map[string]*typesys.Type)}
	for i, e := range man.Types {
		if err := d.fill(ref.order[i], e); err != nil {
			return nil, fmt.Errorf("type %s: %w", e.qualifiedName(), err)
		}
	}
	for i, e := range man.Types {
		if e.Const == nil {
			continue
		}
		if err := d.constant(ref.order[i], e.Const); err != nil {
			return nil, fmt.Errorf("type %s: %w", e.qualifiedName(), err)
		}
	}
	return ref, nil
}

// LookupType returns the type with the qualified name
func (r *Reference) LookupType(qualifiedName string) (*typesys.Type, bool) {
	t, ok := r.types[qualifiedName]
	return t, ok
}

// Types returns the types in manifest order
func (r *Reference) Types() []*typesys.Type {
	return r.order
}

// Len returns the number of types
func (r *Reference) Len() int {
	return len(r.order)
}

type decoder struct {
	ref          *Reference
	placeholders map[string]*typesys.Type
}

func (d *decoder) fill(t *typesys.Type, e TypeEntry) error {
	var err error
	if e.Parent != "" {
		if t.Parent, err = d.named(e.Parent, typesys.TC_VALUE); err != nil {
			return err
		}
	}
	if t.Interfaces, err = d.namedList(e.Interfaces, typesys.TC_OBJREF); err != nil {
		return err
	}
	if t.Supports, err = d.namedList(e.Supports, typesys.TC_OBJREF); err != nil {
		return err
	}
	if e.Custom {
		t.Tags = append(t.Tags, typesys.CustomTag{})
	}
	if e.Truncatable {
		t.Tags = append(t.Tags, typesys.TruncatableTag{})
	}

	for _, fe := range e.Fields {
		ft, err := d.descriptor(fe.Type)
		if err != nil {
			return fmt.Errorf("field %s: %w", fe.Name, err)
		}
		t.Fields = append(t.Fields, typesys.Field{Name: fe.Name, Type: ft, Private: fe.Private})
	}
	for _, me := range e.Members {
		m, err := d.member(me)
		if err != nil {
			return fmt.Errorf("member %s: %w", me.Name, err)
		}
		t.Members = append(t.Members, m)
	}

	if e.Discriminator != nil {
		disc, err := d.descriptor(*e.Discriminator)
		if err != nil {
			return fmt.Errorf("discriminator: %w", err)
		}
		t.Discriminator = &disc
		for _, ce := range e.Cases {
			c, err := d.unionCase(disc, ce)
			if err != nil {
				return fmt.Errorf("case %s: %w", ce.Name, err)
			}
			t.Cases = append(t.Cases, c)
		}
	}
	if e.Elem != nil {
		elem, err := d.descriptor(*e.Elem)
		if err != nil {
			return err
		}
		t.Elem = &elem
	}
	return nil
}

// constant decodes the value of a constant holder. It runs after every type is filled, so
// that a boxed constant type already knows its payload.
func (d *decoder) constant(t *typesys.Type, ce *ConstEntry) error {
	ct, err := d.descriptor(ce.Type)
	if err != nil {
		return err
	}
	ct = ct.Separated()
	value, err := decodeScalar(ct.Type.Kind, ce.Value)
	if err != nil {
		return err
	}
	t.Const = &typesys.Constant{Type: ct, Value: value, Native: ce.Native}
	return nil
}

func (d *decoder) member(me MemberEntry) (typesys.Member, error) {
	kind, err := typesys.ParseMemberKind(me.Kind)
	if err != nil {
		return typesys.Member{}, err
	}
	m := typesys.Member{Name: me.Name, Kind: kind, Abstract: me.Abstract, Origin: me.Origin}
	m.Result = typesys.Describe(typesys.Builtin(typesys.TC_VOID))
	if me.Result != nil {
		if m.Result, err = d.descriptor(*me.Result); err != nil {
			return typesys.Member{}, err
		}
	}
	for _, pe := range me.Params {
		mode, err := parseMode(pe.Mode)
		if err != nil {
			return typesys.Member{}, err
		}
		pt, err := d.descriptor(pe.Type)
		if err != nil {
			return typesys.Member{}, fmt.Errorf("parameter %s: %w", pe.Name, err)
		}
		m.Params = append(m.Params, typesys.Param{Name: pe.Name, Mode: mode, Type: pt})
	}
	if me.Oneway {
		m.Tags = append(m.Tags, typesys.OnewayTag{})
	}
	if len(me.Raises) > 0 {
		raises, err := d.namedList(me.Raises, typesys.TC_EXCEPT)
		if err != nil {
			return typesys.Member{}, err
		}
		m.Tags = append(m.Tags, typesys.RaisesTag{Exceptions: raises})
	}
	return m, nil
}

func (d *decoder) unionCase(disc typesys.TypeDescriptor, ce CaseEntry) (typesys.UnionCase, error) {
	ct, err := d.descriptor(ce.Type)
	if err != nil {
		return typesys.UnionCase{}, err
	}
	c := typesys.UnionCase{Name: ce.Name, Type: ct}
	for _, l := range ce.Labels {
		if l == defaultLabel {
			c.Labels = append(c.Labels, typesys.DefaultLabel)
			continue
		}
		v, err := decodeScalar(disc.Type.Kind, l)
		if err != nil {
			return typesys.UnionCase{}, err
		}
		c.Labels = append(c.Labels, v)
	}
	return c, nil
}

// descriptor rebuilds the descriptor of a type reference, with the tags the compiler
// attaches to the same reference
func (d *decoder) descriptor(ref TypeRef) (typesys.TypeDescriptor, error) {
	kind, err := typesys.ParseTCKind(ref.Kind)
	if err != nil {
		return typesys.TypeDescriptor{}, err
	}
	switch kind {
	case typesys.TC_SEQUENCE, typesys.TC_ARRAY:
		if ref.Elem == nil {
			return typesys.TypeDescriptor{}, fmt.Errorf("%s without element type", kind)
		}
		elem, err := d.descriptor(*ref.Elem)
		if err != nil {
			return typesys.TypeDescriptor{}, err
		}
		if kind == typesys.TC_SEQUENCE {
			tags := append([]typesys.Tag{typesys.SequenceTag{Bound: ref.Bound}}, elem.Nested()...)
			return typesys.Describe(typesys.SequenceOf(elem), tags...), nil
		}
		tags := append([]typesys.Tag{typesys.ArrayTag{Dims: ref.Dims}}, elem.Nested()...)
		return typesys.Describe(typesys.ArrayOf(elem), tags...), nil
	case typesys.TC_EXTERNAL:
		return typesys.Describe(typesys.NewExternal(ref.Name, ref.Import)), nil
	}
	if ref.Name == "" {
		if !kind.IsPrimitive() && kind != typesys.TC_OBJREF {
			return typesys.TypeDescriptor{}, fmt.Errorf("%s reference without a name", kind)
		}
		t := typesys.Builtin(kind)
		switch kind {
		case typesys.TC_WCHAR:
			return typesys.Describe(t, typesys.WideCharTag{}), nil
		case typesys.TC_WSTRING:
			return typesys.Describe(t, typesys.WideStringTag{}), nil
		}
		return typesys.Describe(t), nil
	}
	t, err := d.named(ref.Name, kind)
	if err != nil {
		return typesys.TypeDescriptor{}, err
	}
	return typesys.Describe(t), nil
}

// named resolves a qualified name within the manifest, or to a placeholder
func (d *decoder) named(name string, kind typesys.TCKind) (*typesys.Type, error) {
	if name == "" {
		return nil, fmt.Errorf("empty %s reference", kind)
	}
	if t, ok := d.ref.types[name]; ok {
		return t, nil
	}
	if t, ok := d.placeholders[name]; ok {
		return t, nil
	}
	t := &typesys.Type{Name: name, Kind: kind}
	if i := strings.LastIndex(name, "."); i >= 0 {
		t.Namespace, t.Name = name[:i], name[i+1:]
	}
	t.Complete()
	d.placeholders[name] = t
	return t, nil
}

func (d *decoder) namedList(names []string, kind typesys.TCKind) ([]*typesys.Type, error) {
	var result []*typesys.Type
	for _, name := range names {
		t, err := d.named(name, kind)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

func parseMode(s string) (typesys.ParameterMode, error) {
	for _, mode := range []typesys.ParameterMode{typesys.PARAM_IN, typesys.PARAM_OUT, typesys.PARAM_INOUT} {
		if mode.String() == s {
			return mode, nil
		}
	}
	return typesys.PARAM_IN, fmt.Errorf("unknown parameter mode %q", s)
}
