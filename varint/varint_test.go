package varint

import (
	"bytes"
	"testing"

	"o5mindex/util"
)

func TestUvarint_roundTrip(t *testing.T) {
	// Arrange
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40, ^uint64(0)}

	for _, v := range values {
		// Act
		buf := AppendUvarint(nil, v)
		got, err := ReadUvarint(bytes.NewReader(buf))

		// Assert
		util.AssertNil(t, err)
		util.AssertEqual(t, v, got)
	}
}

func TestSvarint_roundTrip(t *testing.T) {
	// Arrange
	values := []int64{0, 1, -1, 2, -2, 1000000000, -1000000000, minInt64(), maxInt64()}

	for _, v := range values {
		// Act
		buf := AppendSvarint(nil, v)
		got, err := ReadSvarint(bytes.NewReader(buf))

		// Assert
		util.AssertNil(t, err)
		util.AssertEqual(t, v, got)
	}
}

func TestSvarint_zigZagProducesSmallCodesForSmallMagnitudes(t *testing.T) {
	// Arrange + Act
	zero := AppendSvarint(nil, 0)
	minusOne := AppendSvarint(nil, -1)
	one := AppendSvarint(nil, 1)

	// Assert: the format's whole reason for zig-zag mapping is that small
	// magnitudes (positive or negative) stay single-byte.
	util.AssertEqual(t, 1, len(zero))
	util.AssertEqual(t, 1, len(minusOne))
	util.AssertEqual(t, 1, len(one))
}

func TestReadUvarint_unexpectedEOF(t *testing.T) {
	// Arrange: a continuation byte with nothing following it.
	buf := []byte{0x80}

	// Act
	_, err := ReadUvarint(bytes.NewReader(buf))

	// Assert
	util.AssertNotNil(t, err)
}

func minInt64() int64 { return -1 << 63 }
func maxInt64() int64 { return 1<<63 - 1 }
