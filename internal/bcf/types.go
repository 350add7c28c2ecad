package bcf

import (
	"fmt"
	"math"
)

// Type is the 4-bit wire type tag carried in the low bits of a type
// descriptor byte.
type Type uint8

const (
	TypeMissing Type = 0x0 // no payload; marks an absent optional field
	TypeInt8    Type = 0x1
	TypeInt16   Type = 0x2
	TypeInt32   Type = 0x3
	TypeFloat   Type = 0x5
	TypeChar    Type = 0x7
)

// width returns the encoded size of one element in bytes.
func (t Type) width() int {
	switch t {
	case TypeInt8, TypeChar:
		return 1
	case TypeInt16:
		return 2
	case TypeInt32, TypeFloat:
		return 4
	}
	return 0
}

// integer reports whether t is one of the three integer widths.
func (t Type) integer() bool {
	return t == TypeInt8 || t == TypeInt16 || t == TypeInt32
}

func (t Type) valid() bool {
	switch t {
	case TypeMissing, TypeInt8, TypeInt16, TypeInt32, TypeFloat, TypeChar:
		return true
	}
	return false
}

func (t Type) String() string {
	switch t {
	case TypeMissing:
		return "missing"
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeInt32:
		return "int32"
	case TypeFloat:
		return "float"
	case TypeChar:
		return "char"
	}
	return fmt.Sprintf("Type(0x%x)", uint8(t))
}

// Integer sentinels. Each signed width reserves its minimum value for
// "missing" and minimum+1 for "end of vector"; a vector shorter than the
// declared count for one sample pads with end-of-vector, and the bytes
// after that sentinel are undefined and must not be interpreted.
const (
	missingInt8  = int32(-128)        // 0x80
	eovInt8      = int32(-127)        // 0x81
	missingInt16 = int32(-32768)      // 0x8000
	eovInt16     = int32(-32767)      // 0x8001
	missingInt32 = int32(-2147483648) // 0x80000000
	eovInt32     = int32(-2147483647) // 0x80000001
)

// Float sentinels are reserved bit patterns, not values: they must be
// compared bit-for-bit, never through float arithmetic.
const (
	missingFloatBits uint32 = 0x7F800001
	eovFloatBits     uint32 = 0x7F800002
)

// MissingInt is the canonical value the materialize helpers write for a
// missing integer element, regardless of the element's wire width.
const MissingInt int32 = math.MinInt32

// MissingFloat returns the float32 carrying the missing bit pattern.
func MissingFloat() float32 {
	return math.Float32frombits(missingFloatBits)
}

// IsMissingFloat reports whether f carries the missing bit pattern. A
// plain NaN comparison is not enough since the pattern is one specific
// NaN payload.
func IsMissingFloat(f float32) bool {
	return math.Float32bits(f) == missingFloatBits
}

// Value is one decoded primitive element: the wire type plus the raw bits,
// sign-extended to 32 for the narrow integer widths. Decoding into a Value
// never allocates.
type Value struct {
	typ  Type
	bits uint32
}

// Type returns the element's wire type.
func (v Value) Type() Type {
	return v.typ
}

// Missing reports whether the element is the missing sentinel of its width.
func (v Value) Missing() bool {
	switch v.typ {
	case TypeInt8:
		return int32(v.bits) == missingInt8
	case TypeInt16:
		return int32(v.bits) == missingInt16
	case TypeInt32:
		return int32(v.bits) == missingInt32
	case TypeFloat:
		return v.bits == missingFloatBits
	}
	return false
}

// EndOfVector reports whether the element is the end-of-vector padding
// sentinel of its width.
func (v Value) EndOfVector() bool {
	switch v.typ {
	case TypeInt8:
		return int32(v.bits) == eovInt8
	case TypeInt16:
		return int32(v.bits) == eovInt16
	case TypeInt32:
		return int32(v.bits) == eovInt32
	case TypeFloat:
		return v.bits == eovFloatBits
	}
	return false
}

// Int returns the element as an integer. ok is false for float and char
// elements and for the integer sentinels.
func (v Value) Int() (int32, bool) {
	if !v.typ.integer() || v.Missing() || v.EndOfVector() {
		return 0, false
	}
	return int32(v.bits), true
}

// Float returns the element as a float, converting integer elements.
// ok is false for sentinels and character data.
func (v Value) Float() (float32, bool) {
	if v.typ == TypeFloat {
		if v.bits == missingFloatBits || v.bits == eovFloatBits {
			return 0, false
		}
		return math.Float32frombits(v.bits), true
	}
	if n, ok := v.Int(); ok {
		return float32(n), true
	}
	return 0, false
}
