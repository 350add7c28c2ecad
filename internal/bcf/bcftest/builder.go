// Package bcftest builds synthetic BCF byte streams for tests. It is the
// only encoder in the repository; production code never writes BCF.
package bcftest

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
)

// Wire type tags.
const (
	TMissing byte = 0x0
	TInt8    byte = 0x1
	TInt16   byte = 0x2
	TInt32   byte = 0x3
	TFloat   byte = 0x5
	TChar    byte = 0x7
)

// MissingQualBits is the QUAL bit pattern rendered as "." in VCF text.
const MissingQualBits uint32 = 0x7F800001

// QualBits converts a quality value to its stored bit pattern.
func QualBits(q float32) uint32 {
	return math.Float32bits(q)
}

// Rec accumulates one record's shared and indv blocks.
type Rec struct {
	Shared bytes.Buffer
	Indv   bytes.Buffer
}

// Prefix appends the fixed shared-block prefix.
func (r *Rec) Prefix(chrom, pos, rlen int32, qualBits uint32, nAllele, nInfo, nFmt, nSample int) {
	var b [24]byte
	binary.LittleEndian.PutUint32(b[0:], uint32(chrom))
	binary.LittleEndian.PutUint32(b[4:], uint32(pos))
	binary.LittleEndian.PutUint32(b[8:], uint32(rlen))
	binary.LittleEndian.PutUint32(b[12:], qualBits)
	binary.LittleEndian.PutUint32(b[16:], uint32(nAllele)<<16|uint32(nInfo)&0xffff)
	binary.LittleEndian.PutUint32(b[20:], uint32(nFmt)<<24|uint32(nSample)&0xffffff)
	r.Shared.Write(b[:])
}

// Frame returns the framed record: the two length prefixes, then the
// shared and indv blocks.
func (r *Rec) Frame() []byte {
	out := make([]byte, 8, 8+r.Shared.Len()+r.Indv.Len())
	binary.LittleEndian.PutUint32(out[0:], uint32(r.Shared.Len()))
	binary.LittleEndian.PutUint32(out[4:], uint32(r.Indv.Len()))
	out = append(out, r.Shared.Bytes()...)
	out = append(out, r.Indv.Bytes()...)
	return out
}

// Desc appends a type descriptor, switching to the extended typed-integer
// count form when n exceeds the 4-bit field.
func Desc(w *bytes.Buffer, t byte, n int) {
	if n < 15 {
		w.WriteByte(byte(n)<<4 | t)
		return
	}
	w.WriteByte(0xF0 | t)
	TypedInt(w, int32(n))
}

// TypedInt appends a single typed integer in its smallest width, the form
// used for dictionary keys and extended counts.
func TypedInt(w *bytes.Buffer, v int32) {
	switch {
	case v >= -120 && v <= 127:
		w.WriteByte(1<<4 | TInt8)
		w.WriteByte(byte(int8(v)))
	case v >= -32760 && v <= 32767:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(int16(v)))
		w.WriteByte(1<<4 | TInt16)
		w.Write(b[:])
	default:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v))
		w.WriteByte(1<<4 | TInt32)
		w.Write(b[:])
	}
}

// String appends a typed character string.
func String(w *bytes.Buffer, s string) {
	Desc(w, TChar, len(s))
	w.WriteString(s)
}

// Int8Vec appends a typed int8 vector from raw bytes, so tests can place
// sentinels (0x80 missing, 0x81 end of vector) exactly.
func Int8Vec(w *bytes.Buffer, vs ...byte) {
	Desc(w, TInt8, len(vs))
	w.Write(vs)
}

// Int16Vec appends a typed int16 vector.
func Int16Vec(w *bytes.Buffer, vs ...int16) {
	Desc(w, TInt16, len(vs))
	for _, v := range vs {
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(v))
		w.Write(b[:])
	}
}

// Int32Vec appends a typed int32 vector.
func Int32Vec(w *bytes.Buffer, vs ...int32) {
	Desc(w, TInt32, len(vs))
	for _, v := range vs {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(v))
		w.Write(b[:])
	}
}

// FloatVec appends a typed float vector.
func FloatVec(w *bytes.Buffer, vs ...float32) {
	Desc(w, TFloat, len(vs))
	for _, v := range vs {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(v))
		w.Write(b[:])
	}
}

// FloatBitsVec appends a typed float vector from raw bit patterns, so
// tests can place the float sentinels exactly.
func FloatBitsVec(w *bytes.Buffer, bits ...uint32) {
	Desc(w, TFloat, len(bits))
	for _, v := range bits {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		w.Write(b[:])
	}
}

// FmtSection appends a FORMAT section header: the dictionary key as a
// typed integer, then a descriptor declaring the per-sample element
// count. The caller appends the n_sample × count raw elements.
func FmtSection(w *bytes.Buffer, key int, t byte, per int) {
	TypedInt(w, int32(key))
	Desc(w, t, per)
}

// FmtInt8 appends a whole int8 FORMAT section from raw element bytes.
func FmtInt8(w *bytes.Buffer, key, per int, vs ...byte) {
	FmtSection(w, key, TInt8, per)
	w.Write(vs)
}

// File returns a complete uncompressed BCF byte stream: magic, embedded
// header text (NUL-terminated, as writers store it), then the framed
// records.
func File(headerText string, recs ...*Rec) []byte {
	var out bytes.Buffer
	out.WriteString("BCF")
	out.WriteByte(2)
	out.WriteByte(2)
	text := headerText + "\x00"
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(len(text)))
	out.Write(b[:])
	out.WriteString(text)
	for _, r := range recs {
		out.Write(r.Frame())
	}
	return out.Bytes()
}

// Dictionary indices produced by Header, in declaration order. DP is
// declared as both INFO and FORMAT and shares one entry.
const (
	KeyPASS = 0
	KeyQ10  = 1
	KeyDP   = 2
	KeyAF   = 3
	KeyDB   = 4
	KeyGT   = 5
	KeyGQ   = 6
	KeyAD   = 7
)

// Header returns a small two-contig header declaring the keys above and
// the given sample columns.
func Header(samples ...string) string {
	lines := []string{
		"##fileformat=VCFv4.2",
		"##contig=<ID=chr1,length=1000000>",
		"##contig=<ID=chr2,length=2000000>",
		`##FILTER=<ID=PASS,Description="All filters passed">`,
		`##FILTER=<ID=q10,Description="Quality below 10">`,
		`##INFO=<ID=DP,Number=1,Type=Integer,Description="Total depth">`,
		`##INFO=<ID=AF,Number=A,Type=Float,Description="Allele frequency">`,
		`##INFO=<ID=DB,Number=0,Type=Flag,Description="dbSNP membership">`,
		`##FORMAT=<ID=GT,Number=1,Type=String,Description="Genotype">`,
		`##FORMAT=<ID=DP,Number=1,Type=Integer,Description="Read depth">`,
		`##FORMAT=<ID=GQ,Number=1,Type=Integer,Description="Genotype quality">`,
		`##FORMAT=<ID=AD,Number=R,Type=Integer,Description="Allelic depths">`,
	}
	chrom := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO"
	if len(samples) > 0 {
		chrom += "\tFORMAT\t" + strings.Join(samples, "\t")
	}
	lines = append(lines, chrom)
	return strings.Join(lines, "\n") + "\n"
}
