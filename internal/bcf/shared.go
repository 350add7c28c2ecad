package bcf

import (
	"encoding/binary"
	"fmt"
)

// Fixed shared-block prefix layout, byte offsets. All fields little-endian.
const (
	sharedChrom   = 0  // i32 contig dictionary index
	sharedPos     = 4  // i32 0-based position
	sharedRlen    = 8  // i32 length on the reference
	sharedQual    = 12 // f32 quality, missing bit pattern for "."
	sharedCounts  = 16 // u32, n_info in the low 16 bits, n_allele in the high 16
	sharedSamples = 20 // u32, n_sample in the low 24 bits, n_fmt in the high 8
	sharedPrefix  = 24 // first variable-length byte
)

// parseShared decodes the shared block in file order: the fixed prefix,
// then ID, alleles, FILTER and the INFO pairs. Parsing is strictly
// sequential; each field's start is the previous field's end, so the
// first corrupt length poisons everything after it and the parse stops
// there instead of guessing a resync point.
func (r *Record) parseShared() error {
	b := r.shared
	if len(b) < sharedPrefix {
		return sharedError(0, fmt.Errorf("%w: fixed prefix needs %d bytes, have %d", ErrMalformedRecord, sharedPrefix, len(b)))
	}

	r.chrom = int32(binary.LittleEndian.Uint32(b[sharedChrom:]))
	r.pos = int32(binary.LittleEndian.Uint32(b[sharedPos:]))
	r.rlen = int32(binary.LittleEndian.Uint32(b[sharedRlen:]))
	r.qualBits = binary.LittleEndian.Uint32(b[sharedQual:])

	counts := binary.LittleEndian.Uint32(b[sharedCounts:])
	r.nInfo = int(counts & 0xffff)
	r.nAllele = int(counts >> 16)

	packed := binary.LittleEndian.Uint32(b[sharedSamples:])
	r.nSample = int(packed & 0xffffff)
	r.nFmt = int(packed >> 24)

	if _, ok := r.hdr.Contig(int(r.chrom)); !ok {
		return sharedError(sharedChrom, fmt.Errorf("%w: contig %d not in header dictionary of %d", ErrInvalidReference, r.chrom, r.hdr.NumContigs()))
	}
	if r.nSample != r.hdr.NumSamples() {
		return sharedError(sharedSamples, fmt.Errorf("%w: record declares %d samples, header declares %d", ErrSampleCountMismatch, r.nSample, r.hdr.NumSamples()))
	}
	if r.nAllele < 1 {
		return sharedError(sharedCounts, fmt.Errorf("%w: no alleles, REF is mandatory", ErrMalformedRecord))
	}

	// FORMAT sections are memoized as they are located; with n_fmt known
	// the slice never regrows, so section pointers stay stable.
	if cap(r.fmts) < r.nFmt {
		r.fmts = make([]fmtSection, 0, r.nFmt)
	}

	c := cursor{buf: b, off: sharedPrefix}

	start := c.off
	id, err := c.readVector()
	if err != nil {
		return sharedError(start, err)
	}
	if id.Type() != TypeChar && !id.Absent() {
		return sharedError(start, fmt.Errorf("%w: ID must be a character string, not %v", ErrMalformedRecord, id.Type()))
	}
	r.id = id

	for i := 0; i < r.nAllele; i++ {
		start = c.off
		al, err := c.readVector()
		if err != nil {
			return sharedError(start, err)
		}
		if al.Type() != TypeChar {
			return sharedError(start, fmt.Errorf("%w: allele %d must be a character string, not %v", ErrMalformedRecord, i, al.Type()))
		}
		r.alleles = append(r.alleles, al)
	}

	start = c.off
	filters, err := c.readVector()
	if err != nil {
		return sharedError(start, err)
	}
	if !filters.Absent() && !filters.Type().integer() {
		return sharedError(start, fmt.Errorf("%w: FILTER must be an integer vector, not %v", ErrMalformedRecord, filters.Type()))
	}
	for i := 0; i < filters.Len(); i++ {
		e := filters.At(i)
		if e.EndOfVector() {
			break
		}
		idx, ok := e.Int()
		if !ok {
			return sharedError(start, fmt.Errorf("%w: missing sentinel in FILTER vector", ErrMalformedRecord))
		}
		if _, ok := r.hdr.Key(int(idx)); !ok {
			return sharedError(start, fmt.Errorf("%w: filter index %d not in header dictionary", ErrMalformedRecord, idx))
		}
	}
	r.filters = filters

	for i := 0; i < r.nInfo; i++ {
		start = c.off
		key, err := c.readTypedInt()
		if err != nil {
			return sharedError(start, err)
		}
		if _, ok := r.hdr.Key(int(key)); !ok {
			return sharedError(start, fmt.Errorf("%w: info key %d not in header dictionary", ErrInvalidInfoKey, key))
		}
		val, err := c.readVector()
		if err != nil {
			return sharedError(start, err)
		}
		r.info = append(r.info, infoEntry{key: int(key), val: val})
	}

	if c.off != len(b) {
		return sharedError(c.off, fmt.Errorf("%w: l_shared declares %d bytes, fields consumed %d", ErrMalformedRecord, len(b), c.off))
	}
	return nil
}
