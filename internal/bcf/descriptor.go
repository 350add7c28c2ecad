package bcf

import (
	"encoding/binary"
	"fmt"
)

// extendedCount is the 4-bit count sentinel meaning the true count follows
// as a typed integer.
const extendedCount = 15

// splitDescriptor unpacks a type descriptor byte.
// Layout: high 4 bits are the inline element count (15 meaning the count
// follows as a typed integer), low 4 bits are the wire type tag.
func splitDescriptor(b byte) (n int, t Type) {
	return int(b >> 4), Type(b & 0x0f)
}

// cursor walks a bounded byte slice. Every read is checked against the
// slice end; a short read wraps the overrun sentinel (ErrMalformedRecord
// unless the owner set another, the indv parser uses ErrTruncatedField).
type cursor struct {
	buf     []byte
	off     int
	overrun error
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.off
}

func (c *cursor) need(n int) error {
	if len(c.buf)-c.off < n {
		e := c.overrun
		if e == nil {
			e = ErrMalformedRecord
		}
		return fmt.Errorf("%w: need %d bytes, have %d", e, n, len(c.buf)-c.off)
	}
	return nil
}

func (c *cursor) u8() (byte, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	b := c.buf[c.off]
	c.off++
	return b, nil
}

// bytes borrows the next n bytes without copying.
func (c *cursor) bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// readDescriptor decodes one type descriptor: the packed count/type byte
// plus, when the inline count is the extended sentinel, the typed integer
// carrying the true count.
func (c *cursor) readDescriptor() (Type, int, error) {
	b, err := c.u8()
	if err != nil {
		return 0, 0, err
	}
	n, t := splitDescriptor(b)
	if !t.valid() {
		return 0, 0, fmt.Errorf("%w: unknown type tag 0x%x", ErrMalformedRecord, uint8(t))
	}
	if n == extendedCount {
		m, err := c.readTypedInt()
		if err != nil {
			return 0, 0, err
		}
		if m < 0 {
			return 0, 0, fmt.Errorf("%w: negative extended count %d", ErrMalformedRecord, m)
		}
		n = int(m)
	}
	return t, n, nil
}

// readTypedInt decodes a single typed integer: a descriptor declaring
// exactly one element of an integer type, then the element. The format
// uses this shape for extended counts and dictionary key indices; a
// nested extended count is not allowed here.
func (c *cursor) readTypedInt() (int32, error) {
	b, err := c.u8()
	if err != nil {
		return 0, err
	}
	n, t := splitDescriptor(b)
	if n != 1 {
		return 0, fmt.Errorf("%w: typed integer with count %d", ErrMalformedRecord, n)
	}
	switch t {
	case TypeInt8:
		v, err := c.u8()
		if err != nil {
			return 0, err
		}
		return int32(int8(v)), nil
	case TypeInt16:
		raw, err := c.bytes(2)
		if err != nil {
			return 0, err
		}
		return int32(int16(binary.LittleEndian.Uint16(raw))), nil
	case TypeInt32:
		raw, err := c.bytes(4)
		if err != nil {
			return 0, err
		}
		return int32(binary.LittleEndian.Uint32(raw)), nil
	}
	return 0, fmt.Errorf("%w: typed integer with %v type", ErrMalformedRecord, t)
}

// readVector decodes one descriptor and borrows the element bytes without
// interpreting them. A payload-carrying tag with count 0 yields a valid
// empty vector (the "." ID, an unfiltered FILTER column); the missing tag
// yields an absent vector and admits no payload at all.
func (c *cursor) readVector() (Vector, error) {
	t, n, err := c.readDescriptor()
	if err != nil {
		return Vector{}, err
	}
	if t == TypeMissing {
		if n != 0 {
			return Vector{}, fmt.Errorf("%w: missing type with count %d", ErrMalformedRecord, n)
		}
		return Vector{typ: TypeMissing}, nil
	}
	size := n * t.width()
	data, err := c.bytes(size)
	if err != nil {
		return Vector{}, err
	}
	return Vector{typ: t, n: n, data: data}, nil
}
