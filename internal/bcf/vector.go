package bcf

import "encoding/binary"

// Vector is a borrowed view of one typed vector: the element type, the
// element count and the raw little-endian bytes inside the record buffer.
// It holds no copy; it stays valid until the record it came from is reused
// or dropped. The zero Vector is an absent field.
type Vector struct {
	typ  Type
	n    int
	data []byte
}

// Type returns the element wire type.
func (v Vector) Type() Type {
	return v.typ
}

// Len returns the declared element count, padding included.
func (v Vector) Len() int {
	return v.n
}

// Absent reports whether the field was encoded with the missing tag, as
// opposed to present but empty (a zero-length payload type).
func (v Vector) Absent() bool {
	return v.typ == TypeMissing
}

// Bytes returns the raw element bytes, borrowed from the record buffer.
func (v Vector) Bytes() []byte {
	return v.data
}

// At returns element i. It panics when i is out of range, like a slice.
func (v Vector) At(i int) Value {
	if i < 0 || i >= v.n {
		panic("bcf: vector index out of range")
	}
	switch v.typ {
	case TypeInt8:
		return Value{typ: v.typ, bits: uint32(int32(int8(v.data[i])))}
	case TypeInt16:
		u := binary.LittleEndian.Uint16(v.data[2*i:])
		return Value{typ: v.typ, bits: uint32(int32(int16(u)))}
	case TypeInt32, TypeFloat:
		return Value{typ: v.typ, bits: binary.LittleEndian.Uint32(v.data[4*i:])}
	case TypeChar:
		return Value{typ: v.typ, bits: uint32(v.data[i])}
	}
	return Value{typ: TypeMissing}
}

// slice returns the sub-vector covering elements [i, i+n).
func (v Vector) slice(i, n int) Vector {
	w := v.typ.width()
	return Vector{typ: v.typ, n: n, data: v.data[i*w : (i+n)*w]}
}

// AppendInts materializes the vector's integer elements into dst, stopping
// at the first end-of-vector sentinel and canonicalizing missing elements
// to MissingInt. Non-integer vectors append nothing; check Type first when
// the declared type is not known.
func (v Vector) AppendInts(dst []int32) []int32 {
	if !v.typ.integer() {
		return dst
	}
	for i := 0; i < v.n; i++ {
		e := v.At(i)
		if e.EndOfVector() {
			break
		}
		if e.Missing() {
			dst = append(dst, MissingInt)
			continue
		}
		n, _ := e.Int()
		dst = append(dst, n)
	}
	return dst
}

// AppendFloats materializes the vector's elements into dst, converting
// integer elements, stopping at the first end-of-vector sentinel and
// canonicalizing missing elements to the missing float bit pattern.
// Character vectors append nothing.
func (v Vector) AppendFloats(dst []float32) []float32 {
	if v.typ != TypeFloat && !v.typ.integer() {
		return dst
	}
	for i := 0; i < v.n; i++ {
		e := v.At(i)
		if e.EndOfVector() {
			break
		}
		if e.Missing() {
			dst = append(dst, MissingFloat())
			continue
		}
		f, _ := e.Float()
		dst = append(dst, f)
	}
	return dst
}

// Text materializes a character vector as a string; any other type
// returns "". The empty string is the encoded form of a "." field.
func (v Vector) Text() string {
	if v.typ != TypeChar {
		return ""
	}
	return string(v.data)
}
