package bcf

import (
	"encoding/binary"
	"fmt"
	"io"
)

// DefaultMaxRecordBytes caps l_shared+l_indv for one record. Length
// prefixes beyond the cap are treated as corruption rather than an
// allocation request.
const DefaultMaxRecordBytes = 512 << 20

// Framer reads raw record frames from a decompressed BCF stream: the two
// 32-bit length prefixes, then exactly l_shared+l_indv bytes in a single
// read with no staging buffer.
type Framer struct {
	r      io.Reader
	max    int
	prefix [8]byte
}

// NewFramer creates a framer over an already-decompressed stream
// positioned at a record boundary.
func NewFramer(r io.Reader) *Framer {
	return &Framer{r: r, max: DefaultMaxRecordBytes}
}

// SetMaxRecordBytes adjusts the corrupt-length guard. Values below 1 are
// ignored.
func (f *Framer) SetMaxRecordBytes(n int) {
	if n > 0 {
		f.max = n
	}
}

// Next reads one record frame into buf, growing it when too small, and
// returns the frame bytes plus the split point between the shared and
// indv blocks. A clean end of stream returns io.EOF; a stream that ends
// inside a prefix or a body is ErrTruncatedStream and the stream is no
// longer positioned at a record boundary.
//
// l_indv may be zero: sites-only files carry records with no indv block.
// l_shared may not, every record has site fields.
func (f *Framer) Next(buf []byte) (data []byte, lShared int, err error) {
	if _, err := io.ReadFull(f.r, f.prefix[:]); err != nil {
		if err == io.EOF {
			return nil, 0, io.EOF
		}
		return nil, 0, fmt.Errorf("%w: record length prefix: %v", ErrTruncatedStream, err)
	}
	ls := binary.LittleEndian.Uint32(f.prefix[0:4])
	li := binary.LittleEndian.Uint32(f.prefix[4:8])

	if ls == 0 {
		return nil, 0, fmt.Errorf("%w: l_shared is zero", ErrInvalidLength)
	}
	total := uint64(ls) + uint64(li)
	if total > uint64(f.max) {
		return nil, 0, fmt.Errorf("%w: record of %d bytes exceeds cap of %d", ErrInvalidLength, total, f.max)
	}

	n := int(total)
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	if _, err := io.ReadFull(f.r, buf); err != nil {
		return nil, 0, fmt.Errorf("%w: record body: declared %d bytes: %v", ErrTruncatedStream, n, err)
	}
	return buf, int(ls), nil
}
