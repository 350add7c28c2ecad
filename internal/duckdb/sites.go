package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strings"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-bcf/internal/bcf"
)

// SiteRow holds the site-level fields of one record, rendered for export.
// Pos and End are 1-based inclusive, matching VCF text coordinates.
type SiteRow struct {
	Chrom   string
	Pos     int64
	End     int64
	ID      string
	Ref     string
	Alt     string // ALT alleles joined by ",", "." when none
	Qual    float32
	HasQual bool
	Filter  string // filter names joined by ";", "." when unfiltered
	NAllele int
	NSample int
}

// NewSiteRow renders the site-level fields of a decoded record. The row
// owns its strings, so the record can be reused afterwards.
func NewSiteRow(rec *bcf.Record) SiteRow {
	row := SiteRow{
		Chrom:   rec.Chrom(),
		Pos:     rec.Pos() + 1,
		End:     rec.End(),
		ID:      rec.ID(),
		Ref:     string(rec.Allele(0)),
		Alt:     altString(rec),
		Filter:  filterString(rec),
		NAllele: rec.NumAlleles(),
		NSample: rec.NumSamples(),
	}
	if q, ok := rec.Qual(); ok {
		row.Qual = q
		row.HasQual = true
	}
	return row
}

func altString(rec *bcf.Record) string {
	if rec.NumAlleles() < 2 {
		return "."
	}
	var b strings.Builder
	for i := 1; i < rec.NumAlleles(); i++ {
		if i > 1 {
			b.WriteByte(',')
		}
		b.Write(rec.Allele(i))
	}
	return b.String()
}

func filterString(rec *bcf.Record) string {
	filters := rec.Filters()
	hdr := rec.Header()
	var b strings.Builder
	for i := 0; i < filters.Len(); i++ {
		e := filters.At(i)
		if e.EndOfVector() {
			break
		}
		idx, ok := e.Int()
		if !ok {
			continue
		}
		k, ok := hdr.Key(int(idx))
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k.ID)
	}
	if b.Len() == 0 {
		return "."
	}
	return b.String()
}

// WriteSites batch-inserts site rows using the Appender API. Rows are
// written as-is: the sites table has no primary key, so duplicate
// positions in the input stay duplicates in the table.
func (s *Store) WriteSites(rows []SiteRow) error {
	if len(rows) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "sites")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range rows {
		var qual any
		if r.HasQual {
			qual = r.Qual
		}
		if err := appender.AppendRow(
			r.Chrom, r.Pos, r.End, r.ID, r.Ref, r.Alt,
			qual, r.Filter, int32(r.NAllele), int32(r.NSample),
		); err != nil {
			return fmt.Errorf("append site: %w", err)
		}
	}

	return appender.Flush()
}

// ClearSites removes all exported sites.
func (s *Store) ClearSites() error {
	_, err := s.db.Exec("DELETE FROM sites")
	return err
}

// CountSites returns the number of exported site rows.
func (s *Store) CountSites() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sites").Scan(&n); err != nil {
		return 0, fmt.Errorf("count sites: %w", err)
	}
	return n, nil
}

// LookupRegion queries exported sites overlapping the 1-based inclusive
// interval [start, end] on a chromosome, ordered by position.
func (s *Store) LookupRegion(chrom string, start, end int64) ([]SiteRow, error) {
	rows, err := s.db.Query(`SELECT
		chrom, pos, end_pos, id, ref, alt, qual, filter, n_allele, n_sample
		FROM sites
		WHERE chrom=? AND pos<=? AND end_pos>=?
		ORDER BY pos`,
		chrom, end, start)
	if err != nil {
		return nil, fmt.Errorf("query region: %w", err)
	}
	defer rows.Close()

	return scanSites(rows)
}

// scanSites scans rows into SiteRow slices.
func scanSites(rows *sql.Rows) ([]SiteRow, error) {
	var sites []SiteRow
	for rows.Next() {
		var r SiteRow
		var qual sql.NullFloat64
		if err := rows.Scan(
			&r.Chrom, &r.Pos, &r.End, &r.ID, &r.Ref, &r.Alt,
			&qual, &r.Filter, &r.NAllele, &r.NSample,
		); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		if qual.Valid {
			r.Qual = float32(qual.Float64)
			r.HasQual = true
		}
		sites = append(sites, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sites: %w", err)
	}
	return sites, nil
}

// ExportAll drains a reader into the sites table in batches, reusing one
// record across reads. Returns the number of rows written.
func (s *Store) ExportAll(r *bcf.Reader, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 1024
	}

	var (
		rec   bcf.Record
		batch = make([]SiteRow, 0, batchSize)
		total int64
	)
	for {
		err := r.Read(&rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("read record: %w", err)
		}
		batch = append(batch, NewSiteRow(&rec))
		if len(batch) == batchSize {
			if err := s.WriteSites(batch); err != nil {
				return total, err
			}
			total += int64(len(batch))
			batch = batch[:0]
		}
	}
	if err := s.WriteSites(batch); err != nil {
		return total, err
	}
	return total + int64(len(batch)), nil
}
