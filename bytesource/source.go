// Package bytesource provides a buffered, seekable byte source over an
// io.ReaderAt. It exists so the o5m decoder can read and occasionally
// rewind through a large input file without issuing a syscall per byte:
// a single staging buffer is refilled from the underlying reader only
// when the logical cursor walks off the end of what's currently held.
package bytesource

import (
	"io"

	"o5mindex/config"
)

// Source is a buffered cursor over an io.ReaderAt. It is not safe for
// concurrent use; callers drive it from a single goroutine, same as the
// decoder built on top of it.
type Source struct {
	r    io.ReaderAt
	size int64

	buf      []byte
	bufStart int64 // file offset corresponding to buf[0]
	bufLen   int   // number of valid bytes in buf, starting at bufStart

	pos int64 // logical position of the next byte Read will return
}

// New wraps r, whose total length is size, in a buffered Source. size is
// required up front because io.ReaderAt has no way to report it and
// Seek(io.SeekEnd) needs it.
func New(r io.ReaderAt, size int64) *Source {
	return &Source{
		r:    r,
		size: size,
		buf:  make([]byte, config.SourceBufferSize),
	}
}

// Read implements io.Reader, refilling the staging buffer from the
// underlying reader whenever the logical cursor runs past what's held.
func (s *Source) Read(dst []byte) (int, error) {
	var total int
	for total < len(dst) {
		if s.pos < s.bufStart || s.pos >= s.bufStart+int64(s.bufLen) {
			if err := s.refill(); err != nil {
				if total > 0 {
					return total, nil
				}
				return 0, err
			}
		}
		off := s.pos - s.bufStart
		avail := int64(s.bufLen) - off
		if avail <= 0 {
			break
		}
		want := int64(len(dst) - total)
		if want > avail {
			want = avail
		}
		copy(dst[total:], s.buf[off:off+want])
		total += int(want)
		s.pos += want
	}
	if total < len(dst) {
		return total, io.EOF
	}
	return total, nil
}

// ReadByte implements io.ByteReader so the varint codec and the o5m
// decoder's literal-string scanner can pull one byte at a time without
// allocating a slice per call.
func (s *Source) ReadByte() (byte, error) {
	var b [1]byte
	n, err := s.Read(b[:])
	if n == 1 {
		return b[0], nil
	}
	if err == nil {
		err = io.EOF
	}
	return 0, err
}

func (s *Source) refill() error {
	if s.pos >= s.size {
		return io.EOF
	}
	s.bufStart = s.pos
	n, err := s.r.ReadAt(s.buf, s.bufStart)
	s.bufLen = n
	if n > 0 {
		return nil
	}
	if err == nil {
		err = io.EOF
	}
	return err
}

// Seek implements io.Seeker. A seek that lands inside the currently
// buffered window is free; any other seek invalidates the buffer, which
// gets refilled lazily on the next Read.
func (s *Source) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = s.pos + offset
	case io.SeekEnd:
		target = s.size + offset
	default:
		return 0, io.ErrUnexpectedEOF
	}
	if target < s.bufStart || target >= s.bufStart+int64(s.bufLen) {
		s.bufLen = 0
	}
	s.pos = target
	return s.pos, nil
}

// Tell reports the logical position of the next byte Read will return.
func (s *Source) Tell() int64 {
	return s.pos
}

// Size reports the total length of the underlying reader.
func (s *Source) Size() int64 {
	return s.size
}
