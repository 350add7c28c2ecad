package bcf

import (
	"math"

	"github.com/inodb/vibe-bcf/internal/header"
)

// Record is one decoded BCF record: the raw frame plus offsets and
// borrowed views into it. The shared block is parsed when the record is
// read; FORMAT sections are located lazily as they are requested, and the
// furthest cursor reached is memoized so later requests resume instead of
// rescanning. Accessors are idempotent.
//
// A Record owns its buffer. Reader.Read reuses it in place, which
// invalidates every borrowed view taken from the previous contents; hand
// Next's records to workers instead when views must outlive the loop.
// A Record is not safe for concurrent use while lazy decoding may still
// run.
type Record struct {
	hdr *header.Header

	buf    []byte
	shared []byte
	indv   []byte

	chrom    int32
	pos      int32
	rlen     int32
	qualBits uint32
	nAllele  int
	nInfo    int
	nFmt     int
	nSample  int

	id      Vector
	alleles []Vector
	filters Vector
	info    []infoEntry

	fmts    []fmtSection
	indvOff int
	indvErr error
}

type infoEntry struct {
	key int
	val Vector
}

// fmtSection is one located FORMAT section: the dictionary key, the
// per-sample element count and the borrowed element vector covering all
// samples.
type fmtSection struct {
	key int
	per int
	vec Vector
}

// reset points the record at a new frame and parses its shared block.
// Slices are truncated, not released, so a reused record stops allocating
// once it has seen the largest site of the file.
func (r *Record) reset(hdr *header.Header, buf []byte, lShared int) error {
	r.hdr = hdr
	r.buf = buf
	r.shared = buf[:lShared]
	r.indv = buf[lShared:]

	r.alleles = r.alleles[:0]
	r.info = r.info[:0]
	r.fmts = r.fmts[:0]
	r.indvOff = 0
	r.indvErr = nil

	return r.parseShared()
}

// Header returns the dictionary this record resolves indices against.
func (r *Record) Header() *header.Header {
	return r.hdr
}

// ChromIndex returns the record's contig dictionary index.
func (r *Record) ChromIndex() int {
	return int(r.chrom)
}

// Chrom returns the contig name. The index was validated against the
// dictionary when the shared block was parsed.
func (r *Record) Chrom() string {
	c, ok := r.hdr.Contig(int(r.chrom))
	if !ok {
		return ""
	}
	return c.ID
}

// Pos returns the 0-based position.
func (r *Record) Pos() int64 {
	return int64(r.pos)
}

// RLen returns the length of the record on the reference.
func (r *Record) RLen() int64 {
	return int64(r.rlen)
}

// End returns the 0-based exclusive end position, Pos+RLen.
func (r *Record) End() int64 {
	return int64(r.pos) + int64(r.rlen)
}

// Qual returns the site quality. ok is false when QUAL carries the
// missing bit pattern (a "." in VCF text).
func (r *Record) Qual() (float32, bool) {
	if r.qualBits == missingFloatBits {
		return 0, false
	}
	return math.Float32frombits(r.qualBits), true
}

// IDBytes returns the record ID as a borrowed byte span, empty for ".".
func (r *Record) IDBytes() []byte {
	return r.id.Bytes()
}

// ID materializes the record ID, "." when absent.
func (r *Record) ID() string {
	if r.id.Len() == 0 {
		return "."
	}
	return r.id.Text()
}

// NumAlleles returns the allele count, REF included. Always at least 1.
func (r *Record) NumAlleles() int {
	return r.nAllele
}

// Allele returns allele i as a borrowed byte span. Allele 0 is REF.
// Panics when i is out of range, like a slice.
func (r *Record) Allele(i int) []byte {
	return r.alleles[i].Bytes()
}

// Filters returns the FILTER dictionary indices in file order. An empty
// vector means unfiltered ("." in VCF text); index 0 is PASS.
func (r *Record) Filters() Vector {
	return r.filters
}

// NumInfo returns the number of INFO entries.
func (r *Record) NumInfo() int {
	return len(r.info)
}

// InfoAt returns INFO entry i in file order: the dictionary entry for its
// key and its value. An absent value vector is a Flag.
func (r *Record) InfoAt(i int) (*header.Key, Vector) {
	e := r.info[i]
	k, _ := r.hdr.Key(e.key)
	return k, e.val
}

// Info returns the value of the named INFO key. The entry list is scanned
// linearly; per-record INFO counts are small enough that an index would
// cost more than it saves.
func (r *Record) Info(name string) (Vector, bool) {
	k, ok := r.hdr.InfoKey(name)
	if !ok {
		return Vector{}, false
	}
	for _, e := range r.info {
		if e.key == k.Idx {
			return e.val, true
		}
	}
	return Vector{}, false
}

// NumSamples returns the record's sample count, cross-checked against the
// header when the shared block was parsed.
func (r *Record) NumSamples() int {
	return r.nSample
}

// NumFormats returns the number of FORMAT sections in the indv block.
func (r *Record) NumFormats() int {
	return r.nFmt
}
