package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a source file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// ExportMeta describes a completed export of one source file.
type ExportMeta struct {
	Fingerprint FileFingerprint
	ExportedAt  time.Time
	Records     int64
}

// WriteMeta records the source fingerprint for a finished export,
// replacing any earlier entry for the same path. ModTime is stored as
// unix nanoseconds so the comparison in Current stays exact.
func (s *Store) WriteMeta(fp FileFingerprint, records int64) error {
	if _, err := s.db.Exec("DELETE FROM export_meta WHERE path=?", fp.Path); err != nil {
		return fmt.Errorf("clear export meta: %w", err)
	}
	_, err := s.db.Exec(
		"INSERT INTO export_meta (path, size, mod_time_ns, exported_at, records) VALUES (?, ?, ?, ?, ?)",
		fp.Path, fp.Size, fp.ModTime.UnixNano(), time.Now(), records)
	if err != nil {
		return fmt.Errorf("write export meta: %w", err)
	}
	return nil
}

// Meta returns the stored export metadata for a source path, reporting
// false when the path has never been exported.
func (s *Store) Meta(path string) (ExportMeta, bool, error) {
	var (
		m     ExportMeta
		modNS int64
	)
	err := s.db.QueryRow(
		"SELECT size, mod_time_ns, exported_at, records FROM export_meta WHERE path=?", path).
		Scan(&m.Fingerprint.Size, &modNS, &m.ExportedAt, &m.Records)
	if errors.Is(err, sql.ErrNoRows) {
		return ExportMeta{}, false, nil
	}
	if err != nil {
		return ExportMeta{}, false, fmt.Errorf("query export meta: %w", err)
	}
	m.Fingerprint.Path = path
	m.Fingerprint.ModTime = time.Unix(0, modNS)
	return m, true, nil
}

// Current reports whether the store already holds an export of the
// fingerprinted file. A changed size or mtime makes the export stale.
func (s *Store) Current(fp FileFingerprint) (bool, error) {
	m, ok, err := s.Meta(fp.Path)
	if err != nil || !ok {
		return false, err
	}
	return m.Fingerprint.Size == fp.Size && m.Fingerprint.ModTime.Equal(fp.ModTime), nil
}
