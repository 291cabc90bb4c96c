// Package errs collects the sentinel error kinds shared by the decoder and
// storage layers. Callers distinguish them with errors.Is/errors.As instead
// of string matching.
package errs

import "github.com/pkg/errors"

var (
	// ErrWrongStart is returned when a byte stream does not begin with the
	// reset marker a decoder requires before reading anything else.
	ErrWrongStart = errors.New("stream does not start with the expected marker byte")

	// ErrUnexpectedEOF is returned whenever a read ends before a complete
	// field, dataset or record could be assembled.
	ErrUnexpectedEOF = errors.New("unexpected end of stream")

	// ErrIllegalSubIteration is returned when a tag/node-ref/member
	// sub-iterator is driven out of the order the enclosing dataset allows.
	ErrIllegalSubIteration = errors.New("sub-iteration requested in the wrong state")

	// ErrInvalidPage is returned by the paged storage when a page id does
	// not resolve to a stored page.
	ErrInvalidPage = errors.New("invalid or missing page")
)

// BrokenWay is a diagnostic describing a way whose node references could
// not be fully resolved against the node store. It is not returned as an
// error - callers log it and move on, per the way assembler's
// trailing-truncate behaviour.
type BrokenWay struct {
	WayID        uint64
	WantVertices int
	GotVertices  int
	MissingCount int
}
