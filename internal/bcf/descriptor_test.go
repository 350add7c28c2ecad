package bcf

import (
	"errors"
	"testing"
)

func TestReadDescriptor(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		typ   Type
		count int
	}{
		{"missing", []byte{0x00}, TypeMissing, 0},
		{"single int8", []byte{0x11}, TypeInt8, 1},
		{"int8 pair", []byte{0x21}, TypeInt8, 2},
		{"char triple", []byte{0x37}, TypeChar, 3},
		{"float single", []byte{0x15}, TypeFloat, 1},
		{"fourteen inline", []byte{0xE2}, TypeInt16, 14},
		{"extended count int8", []byte{0xF1, 0x11, 0x64}, TypeInt8, 100},
		{"extended count int16", []byte{0xF7, 0x12, 0x2C, 0x01}, TypeChar, 300},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cursor{buf: tt.data}
			typ, n, err := c.readDescriptor()
			if err != nil {
				t.Fatalf("readDescriptor: %v", err)
			}
			if typ != tt.typ || n != tt.count {
				t.Errorf("got (%v, %d), want (%v, %d)", typ, n, tt.typ, tt.count)
			}
			if c.remaining() != 0 {
				t.Errorf("%d bytes left unconsumed", c.remaining())
			}
		})
	}
}

func TestReadDescriptor_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty buffer", nil},
		{"unknown tag 0x4", []byte{0x14}},
		{"unknown tag 0x6", []byte{0x26}},
		{"unknown tag 0x8", []byte{0x18}},
		{"extended count cut off", []byte{0xF1}},
		{"extended count negative", []byte{0xF1, 0x11, 0x9C}}, // int8 -100
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cursor{buf: tt.data}
			if _, _, err := c.readDescriptor(); !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("err = %v, want ErrMalformedRecord", err)
			}
		})
	}
}

func TestReadTypedInt(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want int32
	}{
		{"int8", []byte{0x11, 0x2A}, 42},
		{"int8 negative", []byte{0x11, 0xF6}, -10},
		{"int16", []byte{0x12, 0x39, 0x30}, 12345},
		{"int32", []byte{0x13, 0x40, 0xE2, 0x01, 0x00}, 123456},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cursor{buf: tt.data}
			got, err := c.readTypedInt()
			if err != nil {
				t.Fatalf("readTypedInt: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestReadTypedInt_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"count two", []byte{0x21, 0x01, 0x02}},
		{"count zero", []byte{0x01}},
		{"float type", []byte{0x15, 0x00, 0x00, 0x80, 0x3F}},
		{"char type", []byte{0x17, 'x'}},
		{"missing type", []byte{0x10}},
		{"payload cut off", []byte{0x12, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cursor{buf: tt.data}
			if _, err := c.readTypedInt(); !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("err = %v, want ErrMalformedRecord", err)
			}
		})
	}
}

func TestReadVector(t *testing.T) {
	c := cursor{buf: []byte{0x37, 'A', 'C', 'T'}}
	v, err := c.readVector()
	if err != nil {
		t.Fatalf("readVector: %v", err)
	}
	if v.Type() != TypeChar || v.Len() != 3 || v.Text() != "ACT" {
		t.Errorf("got %v/%d/%q", v.Type(), v.Len(), v.Text())
	}

	// A vector borrows its bytes rather than copying them.
	if &v.Bytes()[0] != &c.buf[1] {
		t.Error("vector data is a copy, want a borrowed slice")
	}
}

func TestReadVector_EmptyForms(t *testing.T) {
	// The missing tag is an absent field; a zero-count payload type is
	// present but empty. Both decode, and stay distinguishable.
	c := cursor{buf: []byte{0x00}}
	v, err := c.readVector()
	if err != nil {
		t.Fatalf("absent: %v", err)
	}
	if !v.Absent() || v.Len() != 0 {
		t.Errorf("absent = %v len = %d, want true/0", v.Absent(), v.Len())
	}

	c = cursor{buf: []byte{0x07}}
	v, err = c.readVector()
	if err != nil {
		t.Fatalf("empty char: %v", err)
	}
	if v.Absent() || v.Type() != TypeChar || v.Len() != 0 {
		t.Errorf("empty char decoded as %v/%d absent=%v", v.Type(), v.Len(), v.Absent())
	}

	c = cursor{buf: []byte{0x01}}
	v, err = c.readVector()
	if err != nil {
		t.Fatalf("empty int8: %v", err)
	}
	if v.Absent() || v.Len() != 0 {
		t.Errorf("empty int8 decoded as %v/%d absent=%v", v.Type(), v.Len(), v.Absent())
	}
}

func TestReadVector_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"missing tag with count", []byte{0x10}},
		{"payload short", []byte{0x21, 0x05}},
		{"int16 payload short", []byte{0x12, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cursor{buf: tt.data}
			if _, err := c.readVector(); !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("err = %v, want ErrMalformedRecord", err)
			}
		})
	}
}

func TestCursorOverrunSentinel(t *testing.T) {
	// The indv parser reads through a cursor whose overrun classifies as
	// a truncated field instead of a malformed record.
	c := cursor{buf: []byte{0x21, 0x05}, overrun: ErrTruncatedField}
	_, err := c.readVector()
	if !errors.Is(err, ErrTruncatedField) {
		t.Errorf("err = %v, want ErrTruncatedField", err)
	}
	if errors.Is(err, ErrMalformedRecord) {
		t.Error("overrun should not classify as ErrMalformedRecord here")
	}
}
