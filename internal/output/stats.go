package output

import (
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/inodb/vibe-bcf/internal/bcf"
	"github.com/inodb/vibe-bcf/internal/header"
)

// StatsCollector accumulates summary counts from decoded records. Only
// the shared block is touched, so FORMAT sections are skipped wholesale
// no matter how many samples the file carries.
type StatsCollector struct {
	hdr     *header.Header
	passIdx int

	Records      int64
	Multiallelic int64
	KnownIDs     int64
	QualSites    int64

	SNVs     int64
	Indels   int64
	MNVs     int64
	Symbolic int64

	Transitions   int64
	Transversions int64

	Pass       int64
	Failed     int64
	Unfiltered int64

	perContig []int64
}

// NewStatsCollector creates a collector sized for the header's contig
// dictionary.
func NewStatsCollector(hdr *header.Header) *StatsCollector {
	passIdx := -1
	for i := 0; i < hdr.NumKeys(); i++ {
		if k, ok := hdr.Key(i); ok && k.Filter && k.ID == "PASS" {
			passIdx = i
			break
		}
	}
	return &StatsCollector{
		hdr:       hdr,
		passIdx:   passIdx,
		perContig: make([]int64, hdr.NumContigs()),
	}
}

// Add counts one record. Not safe for concurrent use; feed it from a
// single collecting goroutine.
func (sc *StatsCollector) Add(rec *bcf.Record) {
	sc.Records++
	if idx := rec.ChromIndex(); idx >= 0 && idx < len(sc.perContig) {
		sc.perContig[idx]++
	}
	if rec.NumAlleles() > 2 {
		sc.Multiallelic++
	}
	if len(rec.IDBytes()) > 0 {
		sc.KnownIDs++
	}
	if _, ok := rec.Qual(); ok {
		sc.QualSites++
	}

	ref := rec.Allele(0)
	for i := 1; i < rec.NumAlleles(); i++ {
		alt := rec.Allele(i)
		switch {
		case len(alt) > 0 && alt[0] == '<':
			sc.Symbolic++
		case len(ref) == 1 && len(alt) == 1:
			sc.SNVs++
			if isTransition(ref[0], alt[0]) {
				sc.Transitions++
			} else {
				sc.Transversions++
			}
		case len(ref) != len(alt):
			sc.Indels++
		default:
			sc.MNVs++
		}
	}

	filters := rec.Filters()
	if filters.Len() == 0 {
		sc.Unfiltered++
		return
	}
	pass := false
	for i := 0; i < filters.Len(); i++ {
		e := filters.At(i)
		if e.EndOfVector() {
			break
		}
		if idx, ok := e.Int(); ok && int(idx) == sc.passIdx {
			pass = true
			break
		}
	}
	if pass {
		sc.Pass++
	} else {
		sc.Failed++
	}
}

// WriteHeader satisfies the decoder's writer interface; stats have no
// header.
func (sc *StatsCollector) WriteHeader() error {
	return nil
}

// Write satisfies the decoder's writer interface by counting the record.
func (sc *StatsCollector) Write(rec *bcf.Record, out []byte) error {
	sc.Add(rec)
	return nil
}

// Flush satisfies the decoder's writer interface; nothing is buffered.
func (sc *StatsCollector) Flush() error {
	return nil
}

// Report writes the summary, large counts grouped for readability.
func (sc *StatsCollector) Report(w io.Writer) error {
	p := message.NewPrinter(language.English)

	if _, err := p.Fprintf(w, "records:            %d\n", sc.Records); err != nil {
		return err
	}
	p.Fprintf(w, "samples:            %d\n", sc.hdr.NumSamples())
	p.Fprintf(w, "with ID:            %d\n", sc.KnownIDs)
	p.Fprintf(w, "with QUAL:          %d\n", sc.QualSites)
	p.Fprintf(w, "multiallelic sites: %d\n", sc.Multiallelic)
	p.Fprintf(w, "\n")
	p.Fprintf(w, "SNVs:               %d\n", sc.SNVs)
	p.Fprintf(w, "indels:             %d\n", sc.Indels)
	p.Fprintf(w, "MNVs:               %d\n", sc.MNVs)
	p.Fprintf(w, "symbolic alleles:   %d\n", sc.Symbolic)
	if sc.Transversions > 0 {
		p.Fprintf(w, "ts/tv:              %.2f\n", float64(sc.Transitions)/float64(sc.Transversions))
	}
	p.Fprintf(w, "\n")
	p.Fprintf(w, "PASS:               %d\n", sc.Pass)
	p.Fprintf(w, "failed filters:     %d\n", sc.Failed)
	p.Fprintf(w, "unfiltered:         %d\n", sc.Unfiltered)

	wrote := false
	for i, n := range sc.perContig {
		if n == 0 {
			continue
		}
		if !wrote {
			p.Fprintf(w, "\nper contig:\n")
			wrote = true
		}
		c, ok := sc.hdr.Contig(i)
		if !ok {
			continue
		}
		p.Fprintf(w, "  %-16s %d\n", c.ID, n)
	}
	return nil
}

// isTransition reports whether ref>alt is a purine-purine or
// pyrimidine-pyrimidine change.
func isTransition(ref, alt byte) bool {
	r, a := ref&^0x20, alt&^0x20
	return (r == 'A' && a == 'G') || (r == 'G' && a == 'A') ||
		(r == 'C' && a == 'T') || (r == 'T' && a == 'C')
}
