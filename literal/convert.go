package literal

import (
	"math"
	"math/big"

	"github.com/ifabos/go-idlc/typesys"
)

// Mode selects the conversion rules applied by Convert
type Mode int

const (
	// Strict rejects every value outside the exact bounds of the target
	Strict Mode = iota
	// LegacyOctet additionally accepts octet values in [-128, -1] and reinterprets their
	// bits, for input produced by generators that emit signed bytes
	LegacyOctet
)

// String returns the string representation of the Mode
func (m Mode) String() string {
	if m == LegacyOctet {
		return "legacy-octet"
	}
	return "strict"
}

type bounds struct {
	min, max *big.Int
}

var integerBounds = map[typesys.TCKind]bounds{
	typesys.TC_OCTET:     {big.NewInt(0), big.NewInt(math.MaxUint8)},
	typesys.TC_SHORT:     {big.NewInt(math.MinInt16), big.NewInt(math.MaxInt16)},
	typesys.TC_USHORT:    {big.NewInt(0), big.NewInt(math.MaxUint16)},
	typesys.TC_LONG:      {big.NewInt(math.MinInt32), big.NewInt(math.MaxInt32)},
	typesys.TC_ULONG:     {big.NewInt(0), big.NewInt(math.MaxUint32)},
	typesys.TC_LONGLONG:  {minInt64, maxInt64},
	typesys.TC_ULONGLONG: {big.NewInt(0), maxUint64},
}

func targetKind(d typesys.TypeDescriptor) typesys.TCKind {
	if d.Type == nil {
		return typesys.TC_NULL
	}
	return d.Type.Kind
}

func targetName(d typesys.TypeDescriptor) string {
	if d.Type == nil {
		return "<nil>"
	}
	return d.Type.String()
}

// NeedsOctetShim reports whether converting l to d relies on the LegacyOctet mode
func NeedsOctetShim(l Literal, d typesys.TypeDescriptor) bool {
	i, ok := l.(Integer)
	if !ok || targetKind(d) != typesys.TC_OCTET {
		return false
	}
	return i.v.Sign() < 0 && i.v.Cmp(big.NewInt(math.MinInt8)) >= 0
}

func (i Integer) inBounds(k typesys.TCKind) (bool, bool) {
	b, ok := integerBounds[k]
	if !ok {
		return false, false
	}
	v := i.folded()
	return v.Cmp(b.min) >= 0 && v.Cmp(b.max) <= 0, true
}

// IsAssignableTo checks the value against the exact bounds of an integer target
func (i Integer) IsAssignableTo(d typesys.TypeDescriptor) bool {
	fits, _ := i.inBounds(targetKind(d))
	return fits
}

// Convert returns the value as the Go type of the target width: int16, uint16, int32,
// uint32, int64, uint64 or uint8. A value outside [MinInt64, MaxUint64] is first reduced
// modulo 2^64.
func (i Integer) Convert(d typesys.TypeDescriptor, mode Mode) (any, error) {
	k := targetKind(d)
	fits, integral := i.inBounds(k)
	if !integral {
		return nil, &MismatchError{Found: KindInteger, Target: targetName(d)}
	}
	v := i.folded()
	if !fits {
		switch {
		case k == typesys.TC_OCTET && mode == LegacyOctet && NeedsOctetShim(i, d):
			return uint8(int8(v.Int64())), nil
		case k == typesys.TC_LONGLONG && v.Cmp(maxInt64) > 0:
			return int64(v.Uint64()), nil
		}
		return nil, &RangeError{Text: i.text, Target: targetName(d)}
	}
	switch k {
	case typesys.TC_OCTET:
		return uint8(v.Uint64()), nil
	case typesys.TC_SHORT:
		return int16(v.Int64()), nil
	case typesys.TC_USHORT:
		return uint16(v.Uint64()), nil
	case typesys.TC_LONG:
		return int32(v.Int64()), nil
	case typesys.TC_ULONG:
		return uint32(v.Uint64()), nil
	case typesys.TC_LONGLONG:
		return v.Int64(), nil
	default:
		return v.Uint64(), nil
	}
}

// IsAssignableTo checks the target is float or double
func (f Float) IsAssignableTo(d typesys.TypeDescriptor) bool {
	k := targetKind(d)
	return k == typesys.TC_FLOAT || k == typesys.TC_DOUBLE
}

// Convert returns float32 or float64
func (f Float) Convert(d typesys.TypeDescriptor, _ Mode) (any, error) {
	switch targetKind(d) {
	case typesys.TC_DOUBLE:
		return f.v, nil
	case typesys.TC_FLOAT:
		if !math.IsInf(f.v, 0) && !math.IsNaN(f.v) && math.Abs(f.v) > math.MaxFloat32 {
			return nil, &RangeError{Text: f.text, Target: targetName(d)}
		}
		return float32(f.v), nil
	}
	return nil, &MismatchError{Found: KindFloat, Target: targetName(d)}
}

// IsAssignableTo checks the target is char or wchar
func (c Char) IsAssignableTo(d typesys.TypeDescriptor) bool {
	k := targetKind(d)
	return k == typesys.TC_CHAR || k == typesys.TC_WCHAR
}

// Convert returns a byte for char targets and a rune for wchar targets
func (c Char) Convert(d typesys.TypeDescriptor, _ Mode) (any, error) {
	switch targetKind(d) {
	case typesys.TC_WCHAR:
		return c.v, nil
	case typesys.TC_CHAR:
		if c.v < 0 || c.v > math.MaxUint8 {
			return nil, &RangeError{Text: c.text, Target: targetName(d)}
		}
		return byte(c.v), nil
	}
	return nil, &MismatchError{Found: KindChar, Target: targetName(d)}
}

// IsAssignableTo checks the target is string or wstring
func (s String) IsAssignableTo(d typesys.TypeDescriptor) bool {
	k := targetKind(d)
	return k == typesys.TC_STRING || k == typesys.TC_WSTRING
}

// Convert returns the string
func (s String) Convert(d typesys.TypeDescriptor, _ Mode) (any, error) {
	if !s.IsAssignableTo(d) {
		return nil, &MismatchError{Found: KindString, Target: targetName(d)}
	}
	return s.v, nil
}

// IsAssignableTo checks the target is boolean
func (b Boolean) IsAssignableTo(d typesys.TypeDescriptor) bool {
	return targetKind(d) == typesys.TC_BOOLEAN
}

// Convert returns the bool
func (b Boolean) Convert(d typesys.TypeDescriptor, _ Mode) (any, error) {
	if !b.IsAssignableTo(d) {
		return nil, &MismatchError{Found: KindBoolean, Target: targetName(d)}
	}
	return b.v, nil
}

// IsAssignableTo checks the target is the enumerator's own enum
func (e EnumValue) IsAssignableTo(d typesys.TypeDescriptor) bool {
	return d.Type != nil && d.Type == e.Enum
}

// Convert returns the ordinal as uint32
func (e EnumValue) Convert(d typesys.TypeDescriptor, _ Mode) (any, error) {
	if !e.IsAssignableTo(d) {
		return nil, &MismatchError{Found: KindEnumValue, Target: targetName(d)}
	}
	return uint32(e.Ordinal), nil
}
