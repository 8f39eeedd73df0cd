package literal_test

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ifabos/go-idlc/literal"
	"github.com/ifabos/go-idlc/typesys"
)

func target(k typesys.TCKind) typesys.TypeDescriptor {
	return typesys.Describe(typesys.Builtin(k))
}

func mustInt(t *testing.T, text string) literal.Integer {
	t.Helper()
	i, err := literal.ParseInteger(text)
	require.NoError(t, err)
	return i
}

func intOf(t *testing.T, l literal.Literal) *big.Int {
	t.Helper()
	v, err := l.IntValue()
	require.NoError(t, err)
	return v
}

func TestIntegerArithmetic(t *testing.T) {
	tests := []struct {
		name string
		eval func() (literal.Literal, error)
		want int64
	}{
		{"add", func() (literal.Literal, error) { return literal.NewInteger(1).Add(literal.NewInteger(2)) }, 3},
		{"sub", func() (literal.Literal, error) { return literal.NewInteger(2).Sub(literal.NewInteger(1)) }, 1},
		{"mul", func() (literal.Literal, error) { return literal.NewInteger(2).Mul(literal.NewInteger(3)) }, 6},
		{"div truncates", func() (literal.Literal, error) { return literal.NewInteger(5).Div(literal.NewInteger(2)) }, 2},
		{"mod", func() (literal.Literal, error) { return literal.NewInteger(5).Mod(literal.NewInteger(2)) }, 1},
		{"or", func() (literal.Literal, error) { return literal.NewInteger(0xFF0000).Or(literal.NewInteger(0x1)) }, 0xFF0001},
		{"and", func() (literal.Literal, error) { return literal.NewInteger(0xFF0011).And(literal.NewInteger(0x101)) }, 0x1},
		{"xor", func() (literal.Literal, error) { return literal.NewInteger(0xFF0000).Xor(literal.NewInteger(0x10)) }, 0xFF0010},
		{"negate", func() (literal.Literal, error) { return literal.NewInteger(5).Negate() }, ^5},
		{"invert sign", func() (literal.Literal, error) { return literal.NewInteger(1).InvertSign() }, -1},
		{"shift left", func() (literal.Literal, error) { return literal.NewInteger(0xFF).ShiftLeft(literal.NewInteger(4)) }, 0xFF << 4},
		{"shift right", func() (literal.Literal, error) { return literal.NewInteger(0xFF).ShiftRight(literal.NewInteger(4)) }, 0xFF >> 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.eval()
			require.NoError(t, err)
			assert.Equal(t, big.NewInt(tt.want), intOf(t, got))
		})
	}
}

func TestShiftIsLeftToRight(t *testing.T) {
	left, err := literal.NewInteger(0xFF).ShiftLeft(literal.NewInteger(4))
	require.NoError(t, err)
	result, err := left.ShiftRight(literal.NewInteger(2))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0xFF<<4>>2), intOf(t, result))
}

func TestShiftBounds(t *testing.T) {
	for _, amount := range []int64{64, -1, 100} {
		_, err := literal.NewInteger(0xFF).ShiftLeft(literal.NewInteger(amount))
		var operandErr *literal.OperandError
		assert.ErrorAs(t, err, &operandErr, "shift left by %d", amount)

		_, err = literal.NewInteger(0xFF).ShiftRight(literal.NewInteger(amount))
		assert.ErrorAs(t, err, &operandErr, "shift right by %d", amount)
	}
	_, err := literal.NewInteger(1).ShiftLeft(literal.NewInteger(63))
	assert.NoError(t, err)
}

func TestUnsignedWraparound(t *testing.T) {
	a := mustInt(t, "0xFFFFFFFFFFFFFFFF")
	b := mustInt(t, "0xFFFFFFFFFFFFFFF0")
	x, err := a.Xor(b)
	require.NoError(t, err)
	v, err := x.Convert(target(typesys.TC_ULONGLONG), literal.Strict)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xF), v)

	sum, err := a.Add(literal.NewInteger(1))
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0), intOf(t, sum))

	inverted, err := b.Negate()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0xF), intOf(t, inverted))
}

func TestMixedExpression(t *testing.T) {
	shifted, err := literal.NewInteger(1).ShiftLeft(literal.NewInteger(16))
	require.NoError(t, err)
	result, err := shifted.Or(mustInt(t, "0xFFFF00000"))
	require.NoError(t, err)
	v, err := result.Convert(target(typesys.TC_LONGLONG), literal.Strict)
	require.NoError(t, err)
	assert.Equal(t, int64((1<<16)|0xFFFF00000), v)
}

func TestDivisionByZero(t *testing.T) {
	_, err := literal.NewInteger(1).Div(literal.NewInteger(0))
	assert.Error(t, err)
	_, err = literal.NewInteger(1).Mod(literal.NewInteger(0))
	assert.Error(t, err)
}

func TestFloatArithmetic(t *testing.T) {
	sum, err := literal.NewFloat(1.0).Add(literal.NewFloat(2.0))
	require.NoError(t, err)
	sum, err = sum.Add(literal.NewFloat(3.0))
	require.NoError(t, err)
	assert.Equal(t, 6.0, sum.Value())

	quo, err := literal.NewFloat(10).Div(literal.NewFloat(2))
	require.NoError(t, err)
	quo, err = quo.Div(literal.NewFloat(2))
	require.NoError(t, err)
	assert.Equal(t, 2.5, quo.Value())

	rem, err := literal.NewFloat(20).Mod(literal.NewFloat(11))
	require.NoError(t, err)
	assert.Equal(t, 9.0, rem.Value())

	neg, err := literal.NewFloat(1.5).InvertSign()
	require.NoError(t, err)
	assert.Equal(t, -1.5, neg.Value())
}

func TestFloatNeverMixesWithInteger(t *testing.T) {
	var operandErr *literal.OperandError

	_, err := literal.NewFloat(1.0).Add(literal.NewInteger(2))
	require.ErrorAs(t, err, &operandErr)
	assert.Equal(t, literal.KindFloat, operandErr.Want)
	assert.Equal(t, literal.KindInteger, operandErr.Found)

	_, err = literal.NewInteger(1).Add(literal.NewFloat(2.0))
	require.ErrorAs(t, err, &operandErr)
	assert.Equal(t, literal.KindInteger, operandErr.Want)

	_, err = literal.NewFloat(2.0).Sub(literal.NewInteger(1))
	assert.ErrorAs(t, err, &operandErr)
}

func TestBitwiseRequiresIntegers(t *testing.T) {
	nonIntegers := []literal.Literal{
		literal.NewFloat(1),
		literal.NewChar('a', false),
		literal.NewString("s", false),
		literal.NewBoolean(true),
	}
	for _, l := range nonIntegers {
		_, err := l.Or(literal.NewInteger(1))
		assert.Error(t, err, l.String())
		_, err = l.Xor(literal.NewInteger(1))
		assert.Error(t, err, l.String())
		_, err = l.And(literal.NewInteger(1))
		assert.Error(t, err, l.String())
		_, err = literal.NewInteger(1).Or(l)
		assert.Error(t, err, l.String())
	}
}

func TestBooleanNegate(t *testing.T) {
	got, err := literal.NewBoolean(true).Negate()
	require.NoError(t, err)
	assert.Equal(t, false, got.Value())

	_, err = literal.NewBoolean(true).InvertSign()
	assert.Error(t, err)
}

func TestConvertRanges(t *testing.T) {
	top := mustInt(t, "0xFFFFFFFFFFFFFFFF")

	v, err := top.Convert(target(typesys.TC_ULONGLONG), literal.Strict)
	require.NoError(t, err)
	assert.Equal(t, uint64(math.MaxUint64), v)

	_, err = top.Convert(target(typesys.TC_LONG), literal.Strict)
	var rangeErr *literal.RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "long", rangeErr.Target)

	v, err = top.Convert(target(typesys.TC_LONGLONG), literal.Strict)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)
	assert.False(t, top.IsAssignableTo(target(typesys.TC_LONGLONG)))

	_, err = literal.NewInteger(math.MaxInt16 + 1).Convert(target(typesys.TC_SHORT), literal.Strict)
	assert.ErrorAs(t, err, &rangeErr)

	v, err = literal.NewInteger(math.MinInt64).Convert(target(typesys.TC_LONGLONG), literal.Strict)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MinInt64), v)

	_, err = literal.NewInteger(1).Convert(target(typesys.TC_STRING), literal.Strict)
	var mismatch *literal.MismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestOctetCompatibilityMode(t *testing.T) {
	negative := literal.NewInteger(-1)
	octet := target(typesys.TC_OCTET)

	_, err := negative.Convert(octet, literal.Strict)
	var rangeErr *literal.RangeError
	require.ErrorAs(t, err, &rangeErr)

	assert.True(t, literal.NeedsOctetShim(negative, octet))
	v, err := negative.Convert(octet, literal.LegacyOctet)
	require.NoError(t, err)
	assert.Equal(t, uint8(0xFF), v)

	_, err = literal.NewInteger(-129).Convert(octet, literal.LegacyOctet)
	assert.ErrorAs(t, err, &rangeErr)
	assert.False(t, literal.NeedsOctetShim(literal.NewInteger(1), octet))
}

func TestAssignability(t *testing.T) {
	assert.True(t, literal.NewInteger(2).IsAssignableTo(target(typesys.TC_SHORT)))
	assert.False(t, literal.NewInteger(-2).IsAssignableTo(target(typesys.TC_USHORT)))
	assert.False(t, literal.NewInteger(2).IsAssignableTo(target(typesys.TC_CHAR)))
	assert.True(t, literal.NewChar('x', false).IsAssignableTo(target(typesys.TC_CHAR)))
	assert.True(t, literal.NewBoolean(true).IsAssignableTo(target(typesys.TC_BOOLEAN)))
	assert.False(t, literal.NewFloat(1).IsAssignableTo(target(typesys.TC_LONG)))

	color := &typesys.Type{Name: "Color", Kind: typesys.TC_ENUM, Enumerators: []string{"red", "green"}}
	other := &typesys.Type{Name: "Shape", Kind: typesys.TC_ENUM, Enumerators: []string{"red"}}
	green := literal.NewEnumValue(color, 1)
	assert.True(t, green.IsAssignableTo(typesys.Describe(color)))
	assert.False(t, green.IsAssignableTo(typesys.Describe(other)))
	assert.Equal(t, "Color.green", green.String())
}

func TestParseInteger(t *testing.T) {
	assert.Equal(t, big.NewInt(255), intOf(t, mustInt(t, "0xff")))
	assert.Equal(t, big.NewInt(8), intOf(t, mustInt(t, "010")))
	assert.Equal(t, big.NewInt(0), intOf(t, mustInt(t, "0")))
	assert.Equal(t, "9223372036854775807", mustInt(t, "9223372036854775807").String())

	_, err := literal.ParseInteger("18446744073709551616")
	var rangeErr *literal.RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "18446744073709551616", rangeErr.Text)

	_, err = literal.ParseInteger("09")
	assert.ErrorAs(t, err, &rangeErr)
}

func TestParseBase(t *testing.T) {
	v, err := literal.ParseBase("zz", 36)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(35*36+35), v)

	v, err = literal.ParseBase("-9223372036854775808", 10)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(math.MinInt64), v)

	_, err = literal.ParseBase("-9223372036854775809", 10)
	assert.Error(t, err)
	_, err = literal.ParseBase("1", 37)
	assert.Error(t, err)
	_, err = literal.ParseBase("1_0", 10)
	assert.Error(t, err)
}

func TestParseCharEscapes(t *testing.T) {
	tests := map[string]rune{
		`\\`: '\\', `\?`: '?', `\'`: '\'', `\"`: '"', `"`: '"',
		`\n`: '\n', `\t`: '\t', `\v`: '\v', `\b`: '\b', `\r`: '\r', `\f`: '\f', `\a`: '\a',
		`\x0`: 0, `\xa`: 0xa, `\xF0`: 0xF0, `\xfF`: 0xFF,
		`\0`: 0, `\7`: 7, `\31`: 031, `\123`: 0123, `\777`: 0777,
	}
	for body, want := range tests {
		c, err := literal.ParseChar(body, false)
		require.NoError(t, err, body)
		assert.Equal(t, want, c.Value(), body)
	}

	_, err := literal.ParseChar(`ab`, false)
	assert.Error(t, err)
	_, err = literal.ParseChar(`\q`, false)
	assert.Error(t, err)
}

func TestParseFloat(t *testing.T) {
	f, err := literal.ParseFloat("Infinity")
	require.NoError(t, err)
	assert.True(t, math.IsInf(f.Value().(float64), 1))
	neg, err := f.InvertSign()
	require.NoError(t, err)
	assert.True(t, math.IsInf(neg.Value().(float64), -1))

	f, err = literal.ParseFloat("1.5e3")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, f.Value())

	_, err = literal.ParseFloat("1.2.3")
	assert.Error(t, err)
}

func drawInteger(t *rapid.T, label string) literal.Integer {
	if rapid.Bool().Draw(t, label+"-unsigned") {
		return literal.NewUnsigned(rapid.Uint64().Draw(t, label))
	}
	return literal.NewInteger(rapid.Int64().Draw(t, label))
}

func TestAddSubRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := drawInteger(t, "a")
		b := drawInteger(t, "b")

		sum, err := a.Add(b)
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		back, err := sum.Sub(b)
		if err != nil {
			t.Fatalf("sub: %v", err)
		}
		got, _ := back.IntValue()
		want, _ := a.IntValue()
		if got.Cmp(want) != 0 {
			t.Fatalf("(%s + %s) - %s = %s", a, b, b, got)
		}
	})
}

func TestArithmeticAtDomainEdges(t *testing.T) {
	tests := []struct {
		name string
		a, b literal.Integer
	}{
		{"max unsigned", literal.NewUnsigned(math.MaxUint64), literal.NewInteger(1)},
		{"min signed", literal.NewInteger(math.MinInt64), literal.NewInteger(-1)},
		{"max signed", literal.NewInteger(math.MaxInt64), literal.NewUnsigned(math.MaxUint64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sum, err := tt.a.Add(tt.b)
			require.NoError(t, err)
			back, err := sum.Sub(tt.b)
			require.NoError(t, err)
			got, _ := back.IntValue()
			want, _ := tt.a.IntValue()
			assert.Equal(t, 0, got.Cmp(want), "got %s, want %s", got, want)
		})
	}
}

func TestConvertWrapsOverflow(t *testing.T) {
	sum, err := literal.NewUnsigned(math.MaxUint64).Add(literal.NewInteger(1))
	require.NoError(t, err)
	v, err := sum.Convert(target(typesys.TC_ULONGLONG), literal.Strict)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), v)

	below, err := literal.NewInteger(math.MinInt64).Sub(literal.NewInteger(1))
	require.NoError(t, err)
	v, err = below.Convert(target(typesys.TC_LONGLONG), literal.Strict)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), v)

	// ~0 is -1, which no unsigned target accepts
	inverted, err := literal.NewInteger(0).Negate()
	require.NoError(t, err)
	_, err = inverted.Convert(target(typesys.TC_ULONGLONG), literal.Strict)
	var rangeErr *literal.RangeError
	assert.ErrorAs(t, err, &rangeErr)
	v, err = inverted.Convert(target(typesys.TC_LONGLONG), literal.Strict)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)
}

func TestShiftMatchesNativeArithmetic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		v := rapid.Uint64().Draw(t, "v")
		n := rapid.Int64Range(0, 63).Draw(t, "n")

		left, err := literal.NewUnsigned(v).ShiftLeft(literal.NewInteger(n))
		if err != nil {
			t.Fatalf("shift left: %v", err)
		}
		got, err := left.Convert(target(typesys.TC_ULONGLONG), literal.Strict)
		if err != nil {
			t.Fatalf("convert: %v", err)
		}
		if got != v<<uint(n) {
			t.Fatalf("%d << %d = %v, want %d", v, n, got, v<<uint(n))
		}

		right, err := literal.NewUnsigned(v).ShiftRight(literal.NewInteger(n))
		if err != nil {
			t.Fatalf("shift right: %v", err)
		}
		got, _ = right.Convert(target(typesys.TC_ULONGLONG), literal.Strict)
		if got != v>>uint(n) {
			t.Fatalf("%d >> %d = %v, want %d", v, n, got, v>>uint(n))
		}
	})
}

func TestBitwiseFamilyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := literal.NewInteger(rapid.Int64().Draw(t, "a"))
		b := literal.NewFloat(rapid.Float64().Draw(t, "b"))
		for _, op := range []func(literal.Literal) (literal.Literal, error){a.Or, a.Xor, a.And} {
			_, err := op(b)
			var operandErr *literal.OperandError
			if !errors.As(err, &operandErr) {
				t.Fatalf("expected operand error, got %v", err)
			}
		}
	})
}
