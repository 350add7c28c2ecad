package bcf

import (
	"fmt"

	"github.com/inodb/vibe-bcf/internal/header"
)

// locateFormat walks FORMAT sections up to and including section i,
// reading each section's key and descriptor and borrowing its element
// bytes without interpreting them. Located sections are memoized and the
// cursor position is kept, so locating a later section resumes at the
// furthest point reached instead of rescanning from byte 0. Once a
// section fails, the error sticks: sections after it cannot be found.
func (r *Record) locateFormat(i int) (*fmtSection, error) {
	if i < len(r.fmts) {
		return &r.fmts[i], nil
	}
	if r.indvErr != nil {
		return nil, r.indvErr
	}

	c := cursor{buf: r.indv, off: r.indvOff, overrun: ErrTruncatedField}
	for len(r.fmts) <= i {
		start := c.off

		key, err := c.readTypedInt()
		if err != nil {
			r.indvErr = indvError(start, err)
			return nil, r.indvErr
		}
		if _, ok := r.hdr.Key(int(key)); !ok {
			r.indvErr = indvError(start, fmt.Errorf("%w: format key %d not in header dictionary", ErrInvalidFormatKey, key))
			return nil, r.indvErr
		}

		t, count, err := c.readDescriptor()
		if err != nil {
			r.indvErr = indvError(start, err)
			return nil, r.indvErr
		}
		if t == TypeMissing && count > 0 {
			r.indvErr = indvError(start, fmt.Errorf("%w: missing type with count %d", ErrMalformedRecord, count))
			return nil, r.indvErr
		}

		// The skip cost of an unwanted section is exactly this size
		// computation; element bytes are never touched.
		need := int64(count) * int64(r.nSample) * int64(t.width())
		if need > int64(c.remaining()) {
			r.indvErr = indvError(start, fmt.Errorf("%w: section declares %d element bytes, %d remain", ErrTruncatedField, need, c.remaining()))
			return nil, r.indvErr
		}
		data, err := c.bytes(int(need))
		if err != nil {
			r.indvErr = indvError(start, err)
			return nil, r.indvErr
		}

		r.fmts = append(r.fmts, fmtSection{
			key: int(key),
			per: count,
			vec: Vector{typ: t, n: count * r.nSample, data: data},
		})
		r.indvOff = c.off
	}
	return &r.fmts[i], nil
}

// findFormat returns the section carrying the given dictionary key, or
// nil when the record has no such section.
func (r *Record) findFormat(key int) (*fmtSection, error) {
	for i := 0; i < r.nFmt; i++ {
		s, err := r.locateFormat(i)
		if err != nil {
			return nil, err
		}
		if s.key == key {
			return s, nil
		}
	}
	return nil, nil
}

// FormatAt locates FORMAT section i in file order. Sections before i are
// skipped by descriptor reads alone. Panics when i is out of range, like
// a slice; decode failures inside the indv block return an error.
func (r *Record) FormatAt(i int) (Field, error) {
	if i < 0 || i >= r.nFmt {
		panic("bcf: format section index out of range")
	}
	s, err := r.locateFormat(i)
	if err != nil {
		return Field{}, err
	}
	return Field{rec: r, sec: s}, nil
}

// Format locates the named FORMAT field, skipping the element bytes of
// every section before it. ok is false when the header does not declare
// the name as a FORMAT key or the record carries no section for it.
func (r *Record) Format(name string) (Field, bool, error) {
	k, ok := r.hdr.FormatKey(name)
	if !ok {
		return Field{}, false, nil
	}
	s, err := r.findFormat(k.Idx)
	if err != nil {
		return Field{}, false, err
	}
	if s == nil {
		return Field{}, false, nil
	}
	return Field{rec: r, sec: s}, true, nil
}

// Field is one FORMAT section decoded for all samples.
type Field struct {
	rec *Record
	sec *fmtSection
}

// Key returns the field's dictionary entry.
func (f Field) Key() *header.Key {
	k, _ := f.rec.hdr.Key(f.sec.key)
	return k
}

// Name returns the field's dictionary ID.
func (f Field) Name() string {
	if k := f.Key(); k != nil {
		return k.ID
	}
	return ""
}

// Type returns the section's element wire type.
func (f Field) Type() Type {
	return f.sec.vec.Type()
}

// PerSample returns the declared element count per sample, padding
// included.
func (f Field) PerSample() int {
	return f.sec.per
}

// Samples returns the sample count.
func (f Field) Samples() int {
	return f.rec.nSample
}

// Values returns the borrowed sub-vector holding one sample's elements.
func (f Field) Values(sample int) Vector {
	return f.sec.vec.slice(sample*f.sec.per, f.sec.per)
}

// Vector returns the whole section as one borrowed vector, all samples
// concatenated.
func (f Field) Vector() Vector {
	return f.sec.vec
}

// GT raw element layout: bits 31..1 hold allele index + 1, with 0 meaning
// no call; bit 0 is the phase flag. The integer sentinels keep their
// usual meaning and mark slots beyond a sample's ploidy.

// gtAllele extracts the 0-based allele index from one raw GT element,
// NoCall for a no-call slot.
func gtAllele(raw int32) int {
	return int(raw>>1) - 1
}

// gtPhased extracts the phase flag from one raw GT element.
func gtPhased(raw int32) bool {
	return raw&1 != 0
}

// Allele slot states below 0. Allele indices themselves are 0-based, with
// 0 the REF allele.
const (
	// NoCall is a slot holding an explicit "." call.
	NoCall = -1
	// NoSlot is a slot beyond the sample's ploidy; vectors pad up to the
	// record-wide maximum.
	NoSlot = -2
)

// Genotypes is the GT section: per sample, up to MaxPloidy allele slots,
// each carrying an allele index and a phase flag. It indexes the raw
// element vector directly and allocates nothing per call.
type Genotypes struct {
	vec     Vector
	per     int
	samples int
}

// Genotypes locates the GT section. ok is false when the header declares
// no GT key, the record carries no GT section, or there are no samples.
func (r *Record) Genotypes() (Genotypes, bool, error) {
	gt := r.hdr.GT()
	if gt < 0 || r.nSample == 0 {
		return Genotypes{}, false, nil
	}
	s, err := r.findFormat(gt)
	if err != nil {
		return Genotypes{}, false, err
	}
	if s == nil {
		return Genotypes{}, false, nil
	}
	if !s.vec.Type().integer() {
		return Genotypes{}, false, indvError(0, fmt.Errorf("%w: GT section has %v type", ErrMalformedRecord, s.vec.Type()))
	}
	return Genotypes{vec: s.vec, per: s.per, samples: r.nSample}, true, nil
}

// Samples returns the sample count.
func (g Genotypes) Samples() int {
	return g.samples
}

// MaxPloidy returns the slot count per sample, the record-wide maximum
// ploidy.
func (g Genotypes) MaxPloidy() int {
	return g.per
}

// Allele returns the 0-based allele index at (sample, slot): 0 is REF,
// NoCall an explicit ".", NoSlot a slot beyond the sample's ploidy.
func (g Genotypes) Allele(sample, slot int) int {
	if slot < 0 || slot >= g.per {
		return NoSlot
	}
	e := g.vec.At(sample*g.per + slot)
	if e.Missing() || e.EndOfVector() {
		return NoSlot
	}
	raw, _ := e.Int()
	return gtAllele(raw)
}

// Phased reports the phase flag stored on the call at (sample, slot).
// The flag on slot i phases it with slot i+1: VCF rendering joins the two
// with "|" when it is set and "/" otherwise.
func (g Genotypes) Phased(sample, slot int) bool {
	if slot < 0 || slot >= g.per {
		return false
	}
	e := g.vec.At(sample*g.per + slot)
	if e.Missing() || e.EndOfVector() {
		return false
	}
	raw, _ := e.Int()
	return gtPhased(raw)
}

// Ploidy returns the used slot count for one sample, the count before the
// first padding sentinel.
func (g Genotypes) Ploidy(sample int) int {
	n := 0
	for n < g.per {
		e := g.vec.At(sample*g.per + n)
		if e.Missing() || e.EndOfVector() {
			break
		}
		n++
	}
	return n
}
