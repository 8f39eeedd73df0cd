// Package typesys is the target type system produced by the compiler: nominal types with
// repository ids, kind tags and members, grouped into a Module.
package typesys

import "fmt"

// TCKind classifies a target type
type TCKind int

const (
	TC_NULL TCKind = iota
	TC_VOID
	TC_SHORT
	TC_LONG
	TC_USHORT
	TC_ULONG
	TC_FLOAT
	TC_DOUBLE
	TC_BOOLEAN
	TC_CHAR
	TC_OCTET
	TC_ANY
	TC_TYPECODE
	TC_OBJREF
	TC_STRUCT
	TC_UNION
	TC_ENUM
	TC_STRING
	TC_SEQUENCE
	TC_ARRAY
	TC_EXCEPT
	TC_LONGLONG
	TC_ULONGLONG
	TC_WCHAR
	TC_WSTRING
	TC_VALUE
	TC_VALUE_BOX
	TC_CONST_HOLDER
	TC_EXTERNAL
)

// String returns the IDL spelling of the kind
func (k TCKind) String() string {
	switch k {
	case TC_NULL:
		return "null"
	case TC_VOID:
		return "void"
	case TC_SHORT:
		return "short"
	case TC_LONG:
		return "long"
	case TC_USHORT:
		return "unsigned short"
	case TC_ULONG:
		return "unsigned long"
	case TC_FLOAT:
		return "float"
	case TC_DOUBLE:
		return "double"
	case TC_BOOLEAN:
		return "boolean"
	case TC_CHAR:
		return "char"
	case TC_OCTET:
		return "octet"
	case TC_ANY:
		return "any"
	case TC_TYPECODE:
		return "TypeCode"
	case TC_OBJREF:
		return "interface"
	case TC_STRUCT:
		return "struct"
	case TC_UNION:
		return "union"
	case TC_ENUM:
		return "enum"
	case TC_STRING:
		return "string"
	case TC_SEQUENCE:
		return "sequence"
	case TC_ARRAY:
		return "array"
	case TC_EXCEPT:
		return "exception"
	case TC_LONGLONG:
		return "long long"
	case TC_ULONGLONG:
		return "unsigned long long"
	case TC_WCHAR:
		return "wchar"
	case TC_WSTRING:
		return "wstring"
	case TC_VALUE:
		return "valuetype"
	case TC_VALUE_BOX:
		return "valuebox"
	case TC_CONST_HOLDER:
		return "const"
	case TC_EXTERNAL:
		return "external"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", k)
	}
}

// ParseTCKind is the inverse of String
func ParseTCKind(s string) (TCKind, error) {
	for k := TC_NULL; k <= TC_EXTERNAL; k++ {
		if k.String() == s {
			return k, nil
		}
	}
	return TC_NULL, fmt.Errorf("unknown type kind %q", s)
}

// IsPrimitive reports whether values of the kind are built in
func (k TCKind) IsPrimitive() bool {
	switch k {
	case TC_VOID, TC_SHORT, TC_LONG, TC_USHORT, TC_ULONG, TC_FLOAT, TC_DOUBLE,
		TC_BOOLEAN, TC_CHAR, TC_OCTET, TC_ANY, TC_TYPECODE, TC_STRING, TC_LONGLONG,
		TC_ULONGLONG, TC_WCHAR, TC_WSTRING:
		return true
	}
	return false
}

// IsInteger reports whether the kind is a fixed-width integer
func (k TCKind) IsInteger() bool {
	switch k {
	case TC_SHORT, TC_LONG, TC_USHORT, TC_ULONG, TC_OCTET, TC_LONGLONG, TC_ULONGLONG:
		return true
	}
	return false
}

// Flavor distinguishes concrete, abstract and local interfaces and value types
type Flavor int

const (
	FlavorConcrete Flavor = iota
	FlavorAbstract
	FlavorLocal
)

// String returns the string representation of the Flavor
func (f Flavor) String() string {
	switch f {
	case FlavorConcrete:
		return "concrete"
	case FlavorAbstract:
		return "abstract"
	case FlavorLocal:
		return "local"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", f)
	}
}

// ParseFlavor is the inverse of String
func ParseFlavor(s string) (Flavor, error) {
	switch s {
	case "", "concrete":
		return FlavorConcrete, nil
	case "abstract":
		return FlavorAbstract, nil
	case "local":
		return FlavorLocal, nil
	}
	return FlavorConcrete, fmt.Errorf("unknown flavor %q", s)
}

// ParameterMode defines the direction of a parameter
type ParameterMode int

const (
	PARAM_IN ParameterMode = iota
	PARAM_OUT
	PARAM_INOUT
)

// String returns the IDL keyword for the mode
func (pm ParameterMode) String() string {
	switch pm {
	case PARAM_IN:
		return "in"
	case PARAM_OUT:
		return "out"
	case PARAM_INOUT:
		return "inout"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", pm)
	}
}
