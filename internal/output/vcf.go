package output

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/inodb/vibe-bcf/internal/bcf"
	"github.com/inodb/vibe-bcf/internal/header"
)

// VCFWriter renders decoded records as VCF text lines. Rendering walks
// only the requested FORMAT fields, so restricting them with SetFields
// keeps the unrequested sections' bytes untouched.
type VCFWriter struct {
	w      *bufio.Writer
	hdr    *header.Header
	fields []string // FORMAT fields to emit; nil means all, in record order
	line   []byte   // scratch for the single-threaded path
}

// NewVCFWriter creates a new VCF text writer over the given header.
func NewVCFWriter(w io.Writer, hdr *header.Header) *VCFWriter {
	return &VCFWriter{
		w:   bufio.NewWriter(w),
		hdr: hdr,
	}
}

// SetFields restricts output to the named FORMAT fields, in the given
// order. Fields a record does not carry are skipped. Must be set before
// rendering starts.
func (vw *VCFWriter) SetFields(fields []string) {
	vw.fields = fields
}

// WriteHeader writes the header lines as they were stored in the file.
func (vw *VCFWriter) WriteHeader() error {
	for _, line := range vw.hdr.Lines() {
		if _, err := vw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Render renders one record to a fresh line, newline included. It keeps
// no writer state, so workers may call it concurrently.
func (vw *VCFWriter) Render(rec *bcf.Record) ([]byte, error) {
	return vw.appendRecord(nil, rec)
}

// WriteRecord renders and writes one record, reusing the writer's
// scratch line.
func (vw *VCFWriter) WriteRecord(rec *bcf.Record) error {
	line, err := vw.appendRecord(vw.line[:0], rec)
	if err != nil {
		return err
	}
	vw.line = line
	_, err = vw.w.Write(line)
	return err
}

// Write writes a pre-rendered line, or renders the record in place when
// none was produced. Satisfies the decoder's writer interface.
func (vw *VCFWriter) Write(rec *bcf.Record, out []byte) error {
	if out != nil {
		_, err := vw.w.Write(out)
		return err
	}
	return vw.WriteRecord(rec)
}

// Flush flushes any buffered output to the underlying writer.
func (vw *VCFWriter) Flush() error {
	return vw.w.Flush()
}

// appendRecord appends one record's VCF line to dst, newline included.
func (vw *VCFWriter) appendRecord(dst []byte, rec *bcf.Record) ([]byte, error) {
	dst = append(dst, rec.Chrom()...)
	dst = append(dst, '\t')
	// Positions are stored 0-based and printed 1-based.
	dst = strconv.AppendInt(dst, rec.Pos()+1, 10)
	dst = append(dst, '\t')

	if id := rec.IDBytes(); len(id) > 0 {
		dst = append(dst, id...)
	} else {
		dst = append(dst, '.')
	}
	dst = append(dst, '\t')

	dst = append(dst, rec.Allele(0)...)
	dst = append(dst, '\t')
	if rec.NumAlleles() > 1 {
		for i := 1; i < rec.NumAlleles(); i++ {
			if i > 1 {
				dst = append(dst, ',')
			}
			dst = append(dst, rec.Allele(i)...)
		}
	} else {
		dst = append(dst, '.')
	}
	dst = append(dst, '\t')

	if q, ok := rec.Qual(); ok {
		dst = strconv.AppendFloat(dst, float64(q), 'g', -1, 32)
	} else {
		dst = append(dst, '.')
	}
	dst = append(dst, '\t')

	dst = vw.appendFilters(dst, rec)
	dst = append(dst, '\t')
	dst = vw.appendInfo(dst, rec)

	fields, err := vw.selectFields(rec)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		dst = vw.appendSamples(dst, rec, fields)
	}

	dst = append(dst, '\n')
	return dst, nil
}

// appendFilters renders the FILTER column: names joined by ";", "." for
// an unfiltered site.
func (vw *VCFWriter) appendFilters(dst []byte, rec *bcf.Record) []byte {
	filters := rec.Filters()
	n := 0
	for i := 0; i < filters.Len(); i++ {
		e := filters.At(i)
		if e.EndOfVector() {
			break
		}
		idx, ok := e.Int()
		if !ok {
			continue
		}
		if n > 0 {
			dst = append(dst, ';')
		}
		n++
		if k, ok := vw.hdr.Key(int(idx)); ok {
			dst = append(dst, k.ID...)
		}
	}
	if n == 0 {
		dst = append(dst, '.')
	}
	return dst
}

// appendInfo renders the INFO column: key=value pairs joined by ";",
// bare keys for flags, "." when the record carries no INFO.
func (vw *VCFWriter) appendInfo(dst []byte, rec *bcf.Record) []byte {
	if rec.NumInfo() == 0 {
		return append(dst, '.')
	}
	for i := 0; i < rec.NumInfo(); i++ {
		if i > 0 {
			dst = append(dst, ';')
		}
		k, v := rec.InfoAt(i)
		if k != nil {
			dst = append(dst, k.ID...)
		}
		if v.Absent() {
			continue // flag: the bare key is the whole entry
		}
		dst = append(dst, '=')
		dst = appendVector(dst, v)
	}
	return dst
}

// selectFields resolves the FORMAT fields to render: the configured
// list, or every section the record carries.
func (vw *VCFWriter) selectFields(rec *bcf.Record) ([]bcf.Field, error) {
	if rec.NumSamples() == 0 || rec.NumFormats() == 0 {
		return nil, nil
	}
	if vw.fields == nil {
		fields := make([]bcf.Field, 0, rec.NumFormats())
		for i := 0; i < rec.NumFormats(); i++ {
			f, err := rec.FormatAt(i)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		return fields, nil
	}
	fields := make([]bcf.Field, 0, len(vw.fields))
	for _, name := range vw.fields {
		f, ok, err := rec.Format(name)
		if err != nil {
			return nil, err
		}
		if ok {
			fields = append(fields, f)
		}
	}
	return fields, nil
}

// appendSamples renders the FORMAT column and one column per sample.
func (vw *VCFWriter) appendSamples(dst []byte, rec *bcf.Record, fields []bcf.Field) []byte {
	gtKey := vw.hdr.GT()

	dst = append(dst, '\t')
	for i, f := range fields {
		if i > 0 {
			dst = append(dst, ':')
		}
		dst = append(dst, f.Name()...)
	}

	for s := 0; s < rec.NumSamples(); s++ {
		dst = append(dst, '\t')
		for i, f := range fields {
			if i > 0 {
				dst = append(dst, ':')
			}
			if k := f.Key(); k != nil && k.Idx == gtKey {
				dst = vw.appendGenotype(dst, rec, s)
			} else {
				dst = appendVector(dst, f.Values(s))
			}
		}
	}
	return dst
}

// appendGenotype renders one sample's GT value. The phase flag stored on
// a slot selects the separator after it: "|" when set, "/" otherwise.
func (vw *VCFWriter) appendGenotype(dst []byte, rec *bcf.Record, sample int) []byte {
	gt, ok, err := rec.Genotypes()
	if err != nil || !ok {
		return append(dst, '.')
	}
	ploidy := gt.Ploidy(sample)
	if ploidy == 0 {
		return append(dst, '.')
	}
	for slot := 0; slot < ploidy; slot++ {
		if slot > 0 {
			if gt.Phased(sample, slot-1) {
				dst = append(dst, '|')
			} else {
				dst = append(dst, '/')
			}
		}
		a := gt.Allele(sample, slot)
		if a < 0 {
			dst = append(dst, '.')
		} else {
			dst = strconv.AppendInt(dst, int64(a), 10)
		}
	}
	return dst
}

// appendVector renders a value vector: elements joined by ",", "." for a
// missing element, stopping at the end-of-vector padding. Character
// vectors are emitted as one string with trailing NUL padding dropped.
func appendVector(dst []byte, v bcf.Vector) []byte {
	if v.Type() == bcf.TypeChar {
		text := bytes.TrimRight(v.Bytes(), "\x00")
		if len(text) == 0 {
			return append(dst, '.')
		}
		return append(dst, text...)
	}

	n := 0
	for i := 0; i < v.Len(); i++ {
		e := v.At(i)
		if e.EndOfVector() {
			break
		}
		if n > 0 {
			dst = append(dst, ',')
		}
		n++
		if e.Missing() {
			dst = append(dst, '.')
			continue
		}
		if v.Type() == bcf.TypeFloat {
			f, _ := e.Float()
			dst = strconv.AppendFloat(dst, float64(f), 'g', -1, 32)
		} else {
			x, _ := e.Int()
			dst = strconv.AppendInt(dst, int64(x), 10)
		}
	}
	if n == 0 {
		dst = append(dst, '.')
	}
	return dst
}
