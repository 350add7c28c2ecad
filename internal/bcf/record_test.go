package bcf

import (
	"bytes"
	"errors"
	"testing"

	"github.com/inodb/vibe-bcf/internal/bcf/bcftest"
)

// sampleRecord builds chr1:1001 A>G with PASS, three INFO entries and
// three FORMAT sections over two samples: GT 0/1 and 0|1, DP 14 and 9,
// GQ 99 and missing.
func sampleRecord() *bcftest.Rec {
	r := &bcftest.Rec{}
	r.Prefix(0, 1000, 1, bcftest.QualBits(29.5), 2, 3, 3, 2)
	bcftest.String(&r.Shared, "rs42")
	bcftest.String(&r.Shared, "A")
	bcftest.String(&r.Shared, "G")
	bcftest.Int8Vec(&r.Shared, bcftest.KeyPASS)
	bcftest.TypedInt(&r.Shared, bcftest.KeyDP)
	bcftest.Int8Vec(&r.Shared, 14)
	bcftest.TypedInt(&r.Shared, bcftest.KeyAF)
	bcftest.FloatVec(&r.Shared, 0.5)
	bcftest.TypedInt(&r.Shared, bcftest.KeyDB)
	bcftest.Desc(&r.Shared, bcftest.TMissing, 0)
	bcftest.FmtInt8(&r.Indv, bcftest.KeyGT, 2, 0x02, 0x04, 0x03, 0x04)
	bcftest.FmtInt8(&r.Indv, bcftest.KeyDP, 1, 14, 9)
	bcftest.FmtInt8(&r.Indv, bcftest.KeyGQ, 1, 99, 0x80)
	return r
}

// decodeOne builds a single-record stream and reads the record back.
func decodeOne(t *testing.T, hdrText string, rec *bcftest.Rec) *Record {
	t.Helper()
	r, err := NewReader(bytes.NewReader(bcftest.File(hdrText, rec)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	record, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if record == nil {
		t.Fatal("Next returned no record")
	}
	return record
}

// decodeErr builds a single-record stream and returns its decode error.
func decodeErr(t *testing.T, hdrText string, rec *bcftest.Rec) error {
	t.Helper()
	r, err := NewReader(bytes.NewReader(bcftest.File(hdrText, rec)))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if _, err = r.Next(); err == nil {
		t.Fatal("decode unexpectedly succeeded")
	}
	return err
}

func TestRecordSharedFields(t *testing.T) {
	rec := decodeOne(t, bcftest.Header("S1", "S2"), sampleRecord())

	if rec.ChromIndex() != 0 || rec.Chrom() != "chr1" {
		t.Errorf("chrom = %d/%q, want 0/chr1", rec.ChromIndex(), rec.Chrom())
	}
	if rec.Pos() != 1000 || rec.RLen() != 1 || rec.End() != 1001 {
		t.Errorf("pos/rlen/end = %d/%d/%d", rec.Pos(), rec.RLen(), rec.End())
	}
	if q, ok := rec.Qual(); !ok || q != 29.5 {
		t.Errorf("Qual = %v/%v, want 29.5", q, ok)
	}
	if rec.ID() != "rs42" || string(rec.IDBytes()) != "rs42" {
		t.Errorf("ID = %q", rec.ID())
	}
	if rec.NumAlleles() != 2 {
		t.Fatalf("NumAlleles = %d, want 2", rec.NumAlleles())
	}
	if string(rec.Allele(0)) != "A" || string(rec.Allele(1)) != "G" {
		t.Errorf("alleles = %q/%q", rec.Allele(0), rec.Allele(1))
	}
	if got := rec.Filters().AppendInts(nil); len(got) != 1 || got[0] != bcftest.KeyPASS {
		t.Errorf("filters = %v, want [PASS]", got)
	}
	if rec.NumSamples() != 2 || rec.NumFormats() != 3 {
		t.Errorf("samples/formats = %d/%d, want 2/3", rec.NumSamples(), rec.NumFormats())
	}
}

func TestRecordInfo(t *testing.T) {
	rec := decodeOne(t, bcftest.Header("S1", "S2"), sampleRecord())

	if rec.NumInfo() != 3 {
		t.Fatalf("NumInfo = %d, want 3", rec.NumInfo())
	}

	k, v := rec.InfoAt(0)
	if k == nil || k.ID != "DP" {
		t.Fatalf("InfoAt(0) key = %+v, want DP", k)
	}
	if n, ok := v.At(0).Int(); !ok || n != 14 {
		t.Errorf("DP = %d/%v, want 14", n, ok)
	}

	dp, ok := rec.Info("DP")
	if !ok {
		t.Fatal("Info(DP) not found")
	}
	if n, _ := dp.At(0).Int(); n != 14 {
		t.Errorf("Info(DP) = %d, want 14", n)
	}

	af, ok := rec.Info("AF")
	if !ok {
		t.Fatal("Info(AF) not found")
	}
	if f, okf := af.At(0).Float(); !okf || f != 0.5 {
		t.Errorf("AF = %v/%v, want 0.5", f, okf)
	}

	db, ok := rec.Info("DB")
	if !ok || !db.Absent() {
		t.Errorf("DB = %v absent=%v, want present flag", ok, db.Absent())
	}

	if _, ok := rec.Info("NOPE"); ok {
		t.Error("Info(NOPE) should not resolve")
	}
	// Declared in the header but not carried by this record.
	if _, ok := rec.Info("GQ"); ok {
		t.Error("Info(GQ) resolves only for INFO-declared keys")
	}

	// Accessors are idempotent.
	again, _ := rec.Info("DP")
	if n, _ := again.At(0).Int(); n != 14 {
		t.Error("second Info(DP) lookup disagrees")
	}
}

func TestRecordSitesOnly(t *testing.T) {
	r := &bcftest.Rec{}
	r.Prefix(1, 500, 1, bcftest.MissingQualBits, 1, 0, 0, 0)
	bcftest.String(&r.Shared, "") // "."
	bcftest.String(&r.Shared, "T")
	bcftest.Desc(&r.Shared, bcftest.TMissing, 0) // unfiltered

	rec := decodeOne(t, bcftest.Header(), r)

	if rec.Chrom() != "chr2" || rec.Pos() != 500 {
		t.Errorf("site = %s:%d", rec.Chrom(), rec.Pos())
	}
	if _, ok := rec.Qual(); ok {
		t.Error("missing QUAL decoded as a value")
	}
	if rec.ID() != "." {
		t.Errorf("ID = %q, want .", rec.ID())
	}
	if rec.Filters().Len() != 0 {
		t.Errorf("filters = %d entries, want none", rec.Filters().Len())
	}
	if rec.NumSamples() != 0 || rec.NumFormats() != 0 {
		t.Errorf("samples/formats = %d/%d", rec.NumSamples(), rec.NumFormats())
	}
	if _, ok, err := rec.Genotypes(); ok || err != nil {
		t.Errorf("Genotypes on a sites-only record = %v/%v", ok, err)
	}
}

func TestRecordSharedErrors(t *testing.T) {
	hdr := bcftest.Header("S1", "S2")

	t.Run("invalid contig", func(t *testing.T) {
		r := sampleRecord()
		r.Shared.Bytes()[0] = 9 // contig index out of the two-entry table
		err := decodeErr(t, hdr, r)
		if !errors.Is(err, ErrInvalidReference) {
			t.Errorf("err = %v, want ErrInvalidReference", err)
		}
		var de *DecodeError
		if !errors.As(err, &de) || de.Section != "shared" {
			t.Errorf("err = %v, want a shared-block DecodeError", err)
		}
	})

	t.Run("sample count mismatch", func(t *testing.T) {
		r := &bcftest.Rec{}
		r.Prefix(0, 10, 1, bcftest.MissingQualBits, 1, 0, 0, 3)
		bcftest.String(&r.Shared, "")
		bcftest.String(&r.Shared, "T")
		bcftest.Desc(&r.Shared, bcftest.TMissing, 0)
		if err := decodeErr(t, hdr, r); !errors.Is(err, ErrSampleCountMismatch) {
			t.Errorf("err = %v, want ErrSampleCountMismatch", err)
		}
	})

	t.Run("no alleles", func(t *testing.T) {
		r := &bcftest.Rec{}
		r.Prefix(0, 10, 1, bcftest.MissingQualBits, 0, 0, 0, 2)
		bcftest.String(&r.Shared, "")
		bcftest.Desc(&r.Shared, bcftest.TMissing, 0)
		if err := decodeErr(t, hdr, r); !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("err = %v, want ErrMalformedRecord", err)
		}
	})

	t.Run("info key out of dictionary", func(t *testing.T) {
		r := &bcftest.Rec{}
		r.Prefix(0, 10, 1, bcftest.MissingQualBits, 1, 1, 0, 2)
		bcftest.String(&r.Shared, "")
		bcftest.String(&r.Shared, "T")
		bcftest.Desc(&r.Shared, bcftest.TMissing, 0)
		bcftest.TypedInt(&r.Shared, 99)
		bcftest.Int8Vec(&r.Shared, 1)
		if err := decodeErr(t, hdr, r); !errors.Is(err, ErrInvalidInfoKey) {
			t.Errorf("err = %v, want ErrInvalidInfoKey", err)
		}
	})

	t.Run("filter index out of dictionary", func(t *testing.T) {
		r := &bcftest.Rec{}
		r.Prefix(0, 10, 1, bcftest.MissingQualBits, 1, 0, 0, 2)
		bcftest.String(&r.Shared, "")
		bcftest.String(&r.Shared, "T")
		bcftest.Int8Vec(&r.Shared, 42)
		if err := decodeErr(t, hdr, r); !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("err = %v, want ErrMalformedRecord", err)
		}
	})

	t.Run("trailing shared bytes", func(t *testing.T) {
		r := sampleRecord()
		r.Shared.WriteByte(0xEE)
		if err := decodeErr(t, hdr, r); !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("err = %v, want ErrMalformedRecord", err)
		}
	})

	t.Run("allele not a string", func(t *testing.T) {
		r := &bcftest.Rec{}
		r.Prefix(0, 10, 1, bcftest.MissingQualBits, 1, 0, 0, 2)
		bcftest.String(&r.Shared, "")
		bcftest.Int8Vec(&r.Shared, 5)
		bcftest.Desc(&r.Shared, bcftest.TMissing, 0)
		if err := decodeErr(t, hdr, r); !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("err = %v, want ErrMalformedRecord", err)
		}
	})

	t.Run("shared block cut short", func(t *testing.T) {
		r := &bcftest.Rec{}
		r.Prefix(0, 10, 1, bcftest.MissingQualBits, 2, 0, 0, 2)
		bcftest.String(&r.Shared, "")
		bcftest.String(&r.Shared, "T")
		// second allele and FILTER never written
		if err := decodeErr(t, hdr, r); !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("err = %v, want ErrMalformedRecord", err)
		}
	})
}
