// Package bcf decodes BCF version 2 variant records straight from their
// binary layout into borrowed views, so callers pay for the fields they
// ask for and nothing else.
package bcf

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/biogo/hts/bgzf"
	"go.uber.org/zap"

	"github.com/inodb/vibe-bcf/internal/header"
)

// Reader reads a BCF file: the magic, the embedded textual header, then
// framed records.
type Reader struct {
	fr      *Framer
	hdr     *header.Header
	logger  *zap.Logger
	closers []io.Closer
}

// Open opens a BCF file. Files carrying the gzip magic are routed through
// a BGZF reader; anything else is read as a plain byte stream.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bcf file: %w", err)
	}

	// Check for gzip magic bytes
	buf := make([]byte, 2)
	_, err = file.Read(buf)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("read bcf file: %w", err)
	}

	// Seek back to beginning
	_, err = file.Seek(0, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("seek bcf file: %w", err)
	}

	var src io.Reader = file
	closers := []io.Closer{file}

	// Check for gzip magic number (0x1f, 0x8b)
	if buf[0] == 0x1f && buf[1] == 0x8b {
		bg, err := bgzf.NewReader(file, 1)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create bgzf reader: %w", err)
		}
		src = bg
		closers = []io.Closer{bg, file}
	}

	r, err := NewReader(src)
	if err != nil {
		for _, c := range closers {
			c.Close()
		}
		return nil, err
	}
	r.closers = closers
	return r, nil
}

// NewReader consumes an already-decompressed BCF byte stream: it checks
// the magic, parses the embedded header text and leaves the stream
// positioned at the first record.
func NewReader(src io.Reader) (*Reader, error) {
	var magic [5]byte
	if _, err := io.ReadFull(src, magic[:]); err != nil {
		return nil, fmt.Errorf("%w: magic: %v", ErrInvalidHeader, err)
	}
	if magic[0] != 'B' || magic[1] != 'C' || magic[2] != 'F' {
		return nil, fmt.Errorf("%w: not a BCF stream", ErrInvalidHeader)
	}
	if magic[3] != 2 || (magic[4] != 1 && magic[4] != 2) {
		return nil, fmt.Errorf("%w: unsupported version %d.%d", ErrInvalidHeader, magic[3], magic[4])
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(src, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("%w: header length: %v", ErrInvalidHeader, err)
	}
	lText := binary.LittleEndian.Uint32(lenBuf[:])
	text := make([]byte, lText)
	if _, err := io.ReadFull(src, text); err != nil {
		return nil, fmt.Errorf("%w: header text of %d bytes: %v", ErrInvalidHeader, lText, err)
	}

	hdr, err := header.Parse(string(text))
	if err != nil {
		return nil, fmt.Errorf("parse bcf header: %w", err)
	}

	return &Reader{
		fr:     NewFramer(src),
		hdr:    hdr,
		logger: zap.NewNop(),
	}, nil
}

// SetLogger sets the logger for warning and progress messages.
func (r *Reader) SetLogger(l *zap.Logger) {
	r.logger = l
}

// SetMaxRecordBytes adjusts the corrupt-length guard on the underlying
// framer.
func (r *Reader) SetMaxRecordBytes(n int) {
	r.fr.SetMaxRecordBytes(n)
}

// Header returns the dictionaries parsed from the embedded header text.
func (r *Reader) Header() *header.Header {
	return r.hdr
}

// Read decodes the next record into rec, reusing rec's buffers in place.
// Borrowed views taken from rec's previous contents become invalid.
// Returns io.EOF at a clean end of stream.
func (r *Reader) Read(rec *Record) error {
	data, lShared, err := r.fr.Next(rec.buf)
	if err != nil {
		return err
	}
	return rec.reset(r.hdr, data, lShared)
}

// Next reads and returns a fresh record, nil, nil at end of stream. Each
// record owns its buffer and may be handed to a worker goroutine; use
// Read with a reused record on single-threaded hot loops instead.
func (r *Reader) Next() (*Record, error) {
	rec := &Record{}
	if err := r.Read(rec); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// Close closes the compression layer and the underlying file, when the
// reader owns them (it does not for NewReader over a caller's stream).
func (r *Reader) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
