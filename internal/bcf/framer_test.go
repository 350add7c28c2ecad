package bcf

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/inodb/vibe-bcf/internal/bcf/bcftest"
)

func frameBytes(shared, indv []byte) []byte {
	r := &bcftest.Rec{}
	r.Shared.Write(shared)
	r.Indv.Write(indv)
	return r.Frame()
}

func TestFramerNext(t *testing.T) {
	shared := []byte{1, 2, 3, 4, 5}
	indv := []byte{9, 8}
	stream := append(frameBytes(shared, indv), frameBytes([]byte{7}, nil)...)

	f := NewFramer(bytes.NewReader(stream))

	data, lShared, err := f.Next(nil)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if lShared != 5 || len(data) != 7 {
		t.Fatalf("lShared = %d len = %d, want 5/7", lShared, len(data))
	}
	if !bytes.Equal(data[:lShared], shared) || !bytes.Equal(data[lShared:], indv) {
		t.Errorf("frame bytes = %v", data)
	}

	// Records with no indv block are legal; sites-only files frame them.
	data, lShared, err = f.Next(data)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if lShared != 1 || len(data) != 1 {
		t.Errorf("lShared = %d len = %d, want 1/1", lShared, len(data))
	}

	if _, _, err = f.Next(data); err != io.EOF {
		t.Errorf("err = %v, want io.EOF at a clean end of stream", err)
	}
}

func TestFramerNext_ReusesBuffer(t *testing.T) {
	stream := append(frameBytes([]byte{1, 2, 3}, nil), frameBytes([]byte{4}, []byte{5})...)
	f := NewFramer(bytes.NewReader(stream))

	buf := make([]byte, 0, 64)
	data, _, err := f.Next(buf)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if &data[0] != &buf[:1][0] {
		t.Error("framer allocated despite sufficient capacity")
	}

	data2, _, err := f.Next(data)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if &data2[0] != &data[0] {
		t.Error("framer did not reuse the previous frame buffer")
	}
}

func TestFramerNext_Errors(t *testing.T) {
	t.Run("prefix cut off", func(t *testing.T) {
		f := NewFramer(bytes.NewReader([]byte{1, 0, 0}))
		if _, _, err := f.Next(nil); !errors.Is(err, ErrTruncatedStream) {
			t.Errorf("err = %v, want ErrTruncatedStream", err)
		}
	})

	t.Run("body shorter than declared", func(t *testing.T) {
		frame := frameBytes([]byte{1, 2, 3, 4}, []byte{5, 6})
		f := NewFramer(bytes.NewReader(frame[:len(frame)-3]))
		if _, _, err := f.Next(nil); !errors.Is(err, ErrTruncatedStream) {
			t.Errorf("err = %v, want ErrTruncatedStream", err)
		}
	})

	t.Run("zero l_shared", func(t *testing.T) {
		f := NewFramer(bytes.NewReader(frameBytes(nil, []byte{1})))
		if _, _, err := f.Next(nil); !errors.Is(err, ErrInvalidLength) {
			t.Errorf("err = %v, want ErrInvalidLength", err)
		}
	})

	t.Run("over the record cap", func(t *testing.T) {
		f := NewFramer(bytes.NewReader(frameBytes(make([]byte, 100), nil)))
		f.SetMaxRecordBytes(64)
		if _, _, err := f.Next(nil); !errors.Is(err, ErrInvalidLength) {
			t.Errorf("err = %v, want ErrInvalidLength", err)
		}
	})
}
