package bytesource

import "bytes"

// NewFromBytes wraps a byte slice in a Source, for tests and callers that
// already hold the whole o5m stream in memory.
func NewFromBytes(data []byte) *Source {
	return New(bytes.NewReader(data), int64(len(data)))
}
