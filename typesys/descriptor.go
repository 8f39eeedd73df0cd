package typesys

import (
	"fmt"
	"strings"
)

// Form selects which view of a TypeDescriptor is current
type Form int

const (
	// FormCompact fuses a boxed value type with its payload
	FormCompact Form = iota
	// FormSeparated exposes the payload of a boxed value type with a BoxedValueTag
	FormSeparated
)

// String returns the string representation of the Form
func (f Form) String() string {
	if f == FormSeparated {
		return "separated"
	}
	return "compact"
}

// TypeDescriptor is a resolved type plus the semantic tags accumulated while resolving it.
// Values are never mutated; every transformation returns a new descriptor.
type TypeDescriptor struct {
	Type *Type
	Tags []Tag
	Form Form
}

// Describe returns the compact descriptor of t
func Describe(t *Type, tags ...Tag) TypeDescriptor {
	return TypeDescriptor{Type: t, Tags: copyTags(tags), Form: FormCompact}
}

// IsZero reports whether no type is described
func (d TypeDescriptor) IsZero() bool {
	return d.Type == nil
}

// WithType replaces the described type, keeping tags and form
func (d TypeDescriptor) WithType(t *Type) TypeDescriptor {
	return TypeDescriptor{Type: t, Tags: copyTags(d.Tags), Form: d.Form}
}

// WithTags returns a copy with the tags appended
func (d TypeDescriptor) WithTags(tags ...Tag) TypeDescriptor {
	return TypeDescriptor{Type: d.Type, Tags: append(copyTags(d.Tags), tags...), Form: d.Form}
}

// Nested wraps the descriptor's tags one level deeper, so that a sequence or array tag
// with order 0 can be prepended for the enclosing collection
func (d TypeDescriptor) Nested() []Tag {
	result := make([]Tag, 0, len(d.Tags))
	for _, tag := range d.Tags {
		switch t := tag.(type) {
		case SequenceTag:
			t.Order++
			result = append(result, t)
		case ArrayTag:
			t.Order++
			t.Dims = append([]int(nil), t.Dims...)
			result = append(result, t)
		default:
			result = append(result, tag)
		}
	}
	return result
}

// Compact returns the fused view
func (d TypeDescriptor) Compact() TypeDescriptor {
	if d.Form == FormCompact {
		return d
	}
	var rest []Tag
	var box *Type
	for _, tag := range d.Tags {
		if b, ok := tag.(BoxedValueTag); ok && box == nil {
			box = b.Box
			continue
		}
		rest = append(rest, tag)
	}
	if box == nil {
		return TypeDescriptor{Type: d.Type, Tags: rest, Form: FormCompact}
	}
	return TypeDescriptor{Type: box, Form: FormCompact}
}

// Separated returns the view where a boxed value type is replaced by its payload
func (d TypeDescriptor) Separated() TypeDescriptor {
	if d.Form == FormSeparated {
		return d
	}
	if d.Type == nil || d.Type.Kind != TC_VALUE_BOX || d.Type.Elem == nil {
		return TypeDescriptor{Type: d.Type, Tags: copyTags(d.Tags), Form: FormSeparated}
	}
	payload := *d.Type.Elem
	tags := append(copyTags(payload.Tags), BoxedValueTag{Box: d.Type})
	return TypeDescriptor{Type: payload.Type, Tags: tags, Form: FormSeparated}
}

// QualifiedName returns the qualified name of the compact type
func (d TypeDescriptor) QualifiedName() string {
	c := d.Compact()
	if c.Type == nil {
		return ""
	}
	return c.Type.QualifiedName()
}

// FindTag returns the first tag of type T
func FindTag[T Tag](tags []Tag) (T, bool) {
	for _, tag := range tags {
		if t, ok := tag.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// String returns a readable description, for example "sequence<long>{bound=10@0}"
func (d TypeDescriptor) String() string {
	if d.Type == nil {
		return "<nil>"
	}
	if len(d.Tags) == 0 {
		return d.Type.String()
	}
	parts := make([]string, len(d.Tags))
	for i, tag := range d.Tags {
		parts[i] = tag.String()
	}
	return fmt.Sprintf("%s{%s}", d.Type, strings.Join(parts, ","))
}

func copyTags(tags []Tag) []Tag {
	if len(tags) == 0 {
		return nil
	}
	return append([]Tag(nil), tags...)
}

// Tag is a piece of semantic metadata attached to a descriptor, member or type
type Tag interface {
	fmt.Stringer
	isTag()
}

// SequenceTag records a sequence; Bound 0 means unbounded. Order is the nesting depth.
type SequenceTag struct {
	Bound int
	Order int
}

// ArrayTag records the dimensions of an array at nesting depth Order
type ArrayTag struct {
	Dims  []int
	Order int
}

// WideCharTag marks wchar
type WideCharTag struct{}

// WideStringTag marks wstring
type WideStringTag struct{}

// BoxedValueTag marks the payload of a boxed value type in the separated form
type BoxedValueTag struct {
	Box *Type
}

// OnewayTag marks a oneway operation
type OnewayTag struct{}

// RaisesTag lists the exceptions an operation declares
type RaisesTag struct {
	Exceptions []*Type
}

// TruncatableTag marks a value type declared truncatable
type TruncatableTag struct{}

// CustomTag marks a custom-marshalled value type
type CustomTag struct{}

func (SequenceTag) isTag()    {}
func (ArrayTag) isTag()       {}
func (WideCharTag) isTag()    {}
func (WideStringTag) isTag()  {}
func (BoxedValueTag) isTag()  {}
func (OnewayTag) isTag()      {}
func (RaisesTag) isTag()      {}
func (TruncatableTag) isTag() {}
func (CustomTag) isTag()      {}

func (t SequenceTag) String() string { return fmt.Sprintf("bound=%d@%d", t.Bound, t.Order) }
func (t ArrayTag) String() string    { return fmt.Sprintf("dims=%v@%d", t.Dims, t.Order) }
func (WideCharTag) String() string   { return "wchar" }
func (WideStringTag) String() string { return "wstring" }
func (t BoxedValueTag) String() string {
	if t.Box == nil {
		return "boxed"
	}
	return "boxed=" + t.Box.RepositoryID
}
func (OnewayTag) String() string { return "oneway" }
func (t RaisesTag) String() string {
	ids := make([]string, len(t.Exceptions))
	for i, e := range t.Exceptions {
		ids[i] = e.RepositoryID
	}
	return "raises=" + strings.Join(ids, " ")
}
func (TruncatableTag) String() string { return "truncatable" }
func (CustomTag) String() string      { return "custom" }
