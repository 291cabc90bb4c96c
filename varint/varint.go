// Package varint implements the unsigned/signed variable-length integer
// encoding the o5m format uses for every numeric field: little-endian,
// 7 bits of payload per byte, continuation flagged by the high bit, signed
// values zig-zag mapped onto the unsigned encoding before being varint
// encoded.
package varint

import (
	"io"

	"github.com/pkg/errors"

	"o5mindex/errs"
)

// maxVarintBytes bounds the number of continuation bytes a 64-bit value can
// ever need (ceil(64/7)), guarding against a malformed stream that never
// sets the terminating bit.
const maxVarintBytes = 10

// ReadUvarint decodes an unsigned varint from r.
func ReadUvarint(r io.ByteReader) (uint64, error) {
	var result uint64
	var shift uint
	for i := 0; i < maxVarintBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, wrapEOF(err)
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, errors.Wrap(errs.ErrUnexpectedEOF, "varint longer than 10 bytes")
}

// ReadSvarint decodes a signed varint: the underlying unsigned varint is
// zig-zag decoded, mapping 0,1,2,3,4,... to 0,-1,1,-2,2,...
func ReadSvarint(r io.ByteReader) (int64, error) {
	u, err := ReadUvarint(r)
	if err != nil {
		return 0, err
	}
	return zigzagDecode(u), nil
}

// AppendUvarint appends the varint encoding of v to buf and returns the
// grown slice.
func AppendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// AppendSvarint zig-zag encodes v and appends its varint encoding to buf.
func AppendSvarint(buf []byte, v int64) []byte {
	return AppendUvarint(buf, zigzagEncode(v))
}

func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func zigzagDecode(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

func wrapEOF(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return errs.ErrUnexpectedEOF
	}
	return err
}
