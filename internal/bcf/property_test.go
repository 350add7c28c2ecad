package bcf

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/inodb/vibe-bcf/internal/bcf/bcftest"
)

// TestDecodeProperties checks decode invariants over generated records.
// These properties should hold for any record a conforming writer emits.
func TestDecodeProperties(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping property-based test in short mode")
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20

	properties := gopter.NewProperties(parameters)

	properties.Property("decoded fields match the encoded record", prop.ForAll(
		func(pos, rlen int32, qual float32, id string, dp int32, gq1, gq2 byte) bool {
			r := &bcftest.Rec{}
			r.Prefix(0, pos, rlen, bcftest.QualBits(qual), 2, 1, 1, 2)
			bcftest.String(&r.Shared, id)
			bcftest.String(&r.Shared, "A")
			bcftest.String(&r.Shared, "C")
			bcftest.Int8Vec(&r.Shared, bcftest.KeyPASS)
			bcftest.TypedInt(&r.Shared, bcftest.KeyDP)
			bcftest.Int32Vec(&r.Shared, dp)
			bcftest.FmtInt8(&r.Indv, bcftest.KeyGQ, 1, gq1, gq2)

			rd, err := NewReader(bytes.NewReader(bcftest.File(bcftest.Header("S1", "S2"), r)))
			if err != nil {
				return false
			}
			rec, err := rd.Next()
			if err != nil || rec == nil {
				return false
			}

			if rec.Pos() != int64(pos) || rec.RLen() != int64(rlen) || rec.End() != int64(pos)+int64(rlen) {
				return false
			}
			if q, ok := rec.Qual(); !ok || q != qual {
				return false
			}
			wantID := id
			if wantID == "" {
				wantID = "."
			}
			if rec.ID() != wantID {
				return false
			}
			v, ok := rec.Info("DP")
			if !ok {
				return false
			}
			if got, _ := v.At(0).Int(); got != dp {
				return false
			}
			f, ok, err := rec.Format("GQ")
			if err != nil || !ok {
				return false
			}
			a, _ := f.Values(0).At(0).Int()
			b, _ := f.Values(1).At(0).Int()
			return a == int32(gq1) && b == int32(gq2)
		},
		gen.Int32Range(0, 1<<30),
		gen.Int32Range(1, 10000),
		gen.Float32Range(0, 50000),
		gen.AlphaString(),
		gen.Int32Range(0, 1<<30),
		gen.UInt8Range(0, 127),
		gen.UInt8Range(0, 127),
	))

	properties.Property("small integers survive width promotion", prop.ForAll(
		func(vals []int16) bool {
			var w bytes.Buffer
			bcftest.Int16Vec(&w, vals...)
			c := cursor{buf: w.Bytes()}
			v, err := c.readVector()
			if err != nil {
				return false
			}
			got := v.AppendInts(nil)
			if len(got) != len(vals) {
				return false
			}
			for i, x := range vals {
				if got[i] != int32(x) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int16Range(-30000, 30000)),
	))

	properties.Property("missing sentinel maps to MissingInt at any position", prop.ForAll(
		func(vals []int16, k int) bool {
			n := len(vals)
			if n == 0 {
				return true
			}
			cut := k % n
			vs := make([]int16, n)
			copy(vs, vals)
			vs[cut] = -32768

			var w bytes.Buffer
			bcftest.Int16Vec(&w, vs...)
			c := cursor{buf: w.Bytes()}
			v, err := c.readVector()
			if err != nil {
				return false
			}
			got := v.AppendInts(nil)
			if len(got) != n {
				return false
			}
			for i := range n {
				want := int32(vs[i])
				if i == cut {
					want = MissingInt
				}
				if got[i] != want {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int16Range(-30000, 30000)),
		gen.IntRange(0, 1<<20),
	))

	properties.Property("end-of-vector stops extraction at any split point", prop.ForAll(
		func(vals []int16, k int) bool {
			cut := k % (len(vals) + 1)
			vs := make([]int16, 0, len(vals)+1)
			vs = append(vs, vals[:cut]...)
			vs = append(vs, -32767)
			vs = append(vs, vals[cut:]...)

			var w bytes.Buffer
			bcftest.Int16Vec(&w, vs...)
			c := cursor{buf: w.Bytes()}
			v, err := c.readVector()
			if err != nil {
				return false
			}
			got := v.AppendInts(nil)
			if len(got) != cut {
				return false
			}
			for i := range cut {
				if got[i] != int32(vals[i]) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.Int16Range(-30000, 30000)),
		gen.IntRange(0, 1<<20),
	))

	properties.Property("direct section lookup equals full walk", prop.ForAll(
		func(vals []byte) bool {
			build := func() *bcftest.Rec {
				r := &bcftest.Rec{}
				r.Prefix(0, 100, 1, bcftest.MissingQualBits, 1, 0, 3, 2)
				bcftest.String(&r.Shared, "")
				bcftest.String(&r.Shared, "A")
				bcftest.Int8Vec(&r.Shared, bcftest.KeyPASS)
				bcftest.FmtInt8(&r.Indv, bcftest.KeyDP, 1, vals[0], vals[1])
				bcftest.FmtInt8(&r.Indv, bcftest.KeyGQ, 1, vals[2], vals[3])
				bcftest.FmtInt8(&r.Indv, bcftest.KeyAD, 1, vals[4], vals[5])
				return r
			}
			decode := func() *Record {
				rd, err := NewReader(bytes.NewReader(bcftest.File(bcftest.Header("S1", "S2"), build())))
				if err != nil {
					return nil
				}
				rec, err := rd.Next()
				if err != nil {
					return nil
				}
				return rec
			}

			full := decode()
			direct := decode()
			if full == nil || direct == nil {
				return false
			}

			var want []int32
			for i := range full.NumFormats() {
				f, err := full.FormatAt(i)
				if err != nil {
					return false
				}
				want = f.Vector().AppendInts(want)
			}
			if len(want) != 6 {
				return false
			}

			f, ok, err := direct.Format("AD")
			if err != nil || !ok {
				return false
			}
			got := f.Vector().AppendInts(nil)
			return len(got) == 2 && got[0] == want[4] && got[1] == want[5]
		},
		gen.SliceOfN(6, gen.UInt8Range(0, 127)),
	))

	properties.Property("framing round-trips shared and indv blocks", prop.ForAll(
		func(first byte, rest, indv []byte) bool {
			shared := append([]byte{first}, rest...)

			var frame bytes.Buffer
			var b [4]byte
			binary.LittleEndian.PutUint32(b[:], uint32(len(shared)))
			frame.Write(b[:])
			binary.LittleEndian.PutUint32(b[:], uint32(len(indv)))
			frame.Write(b[:])
			frame.Write(shared)
			frame.Write(indv)

			fr := NewFramer(bytes.NewReader(frame.Bytes()))
			data, lShared, err := fr.Next(nil)
			if err != nil {
				return false
			}
			if lShared != len(shared) || len(data) != len(shared)+len(indv) {
				return false
			}
			return bytes.Equal(data[:lShared], shared) && bytes.Equal(data[lShared:], indv)
		},
		gen.UInt8(),
		gen.SliceOf(gen.UInt8()),
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}
