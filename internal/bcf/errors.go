package bcf

import (
	"errors"
	"fmt"
)

// Sentinel errors for the decode failure kinds. Wrapped errors carry the
// detail; match with errors.Is.
var (
	// ErrTruncatedStream means the stream ended before delivering the
	// bytes a length prefix promised. The stream position is no longer a
	// record boundary; the caller must stop framing it.
	ErrTruncatedStream = errors.New("bcf: truncated stream")

	// ErrInvalidLength means a record length prefix was zero where a
	// block is mandatory, or implausibly large for the configured cap.
	ErrInvalidLength = errors.New("bcf: invalid record length")

	// ErrMalformedRecord means an unrecognized type tag or a cursor
	// overrun while decoding the shared block. Everything after the
	// failing field is unlocatable; there is no resync.
	ErrMalformedRecord = errors.New("bcf: malformed record")

	// ErrInvalidReference means the record's contig index is not in the
	// header's contig dictionary.
	ErrInvalidReference = errors.New("bcf: reference index out of range")

	// ErrInvalidInfoKey means an INFO key index is not in the header's
	// string dictionary.
	ErrInvalidInfoKey = errors.New("bcf: info key index out of range")

	// ErrInvalidFormatKey means a FORMAT key index is not in the header's
	// string dictionary.
	ErrInvalidFormatKey = errors.New("bcf: format key index out of range")

	// ErrSampleCountMismatch means the record's declared sample count
	// disagrees with the header's sample columns.
	ErrSampleCountMismatch = errors.New("bcf: sample count mismatch")

	// ErrTruncatedField means a FORMAT section declares more element
	// bytes than its sub-block holds. The shared block of the record
	// stays usable; the rest of the indv block does not.
	ErrTruncatedField = errors.New("bcf: truncated format field")

	// ErrInvalidHeader means the file-level magic, version or embedded
	// header text could not be read.
	ErrInvalidHeader = errors.New("bcf: invalid file header")
)

// DecodeError reports where in a record decoding failed: which sub-block
// and the byte offset of the field that could not be decoded. It unwraps
// to one of the sentinel errors above.
type DecodeError struct {
	Section string // "frame", "shared" or "indv"
	Offset  int    // byte offset of the failing field within the section
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%v (%s block, byte %d)", e.Err, e.Section, e.Offset)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func sharedError(off int, err error) error {
	return &DecodeError{Section: "shared", Offset: off, Err: err}
}

func indvError(off int, err error) error {
	return &DecodeError{Section: "indv", Offset: off, Err: err}
}
