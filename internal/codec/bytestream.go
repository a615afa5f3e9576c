package codec

import "errors"

// ErrTruncated reports input that ended in the middle of a value.
var ErrTruncated = errors.New("codec: truncated input")

const (
	maxVarintBytes = 5

	// MaxVarint is the largest value a 5-byte varint can carry.
	MaxVarint = 1<<(7*maxVarintBytes) - 1
)

// ByteStream is a forward-only cursor over a byte slice.
//
// Varints are little-endian groups of 7 bits. Unlike LEB128 the high bit
// marks the LAST byte of a value, not a continuation: 5 encodes as 0x85 and
// 300 as 0x2c 0x82.
type ByteStream struct {
	buf []byte
	pos int
}

// NewByteStream wraps buf. The stream does not copy it.
func NewByteStream(buf []byte) *ByteStream {
	return &ByteStream{buf: buf}
}

// NextByte returns the byte at the cursor and advances, or -1 without
// advancing once the buffer is exhausted.
func (s *ByteStream) NextByte() int {
	if s.pos >= len(s.buf) {
		return -1
	}
	b := s.buf[s.pos]
	s.pos++
	return int(b)
}

// PeekByte returns the byte at the cursor without advancing, or -1.
func (s *ByteStream) PeekByte() int {
	if s.pos >= len(s.buf) {
		return -1
	}
	return int(s.buf[s.pos])
}

// EOF reports whether every byte has been consumed.
func (s *ByteStream) EOF() bool { return s.pos >= len(s.buf) }

// Remaining is the number of unread bytes.
func (s *ByteStream) Remaining() int { return len(s.buf) - s.pos }

// Offset is the cursor position.
func (s *ByteStream) Offset() int { return s.pos }

// ReadVarint decodes one varint. Decoding stops at the terminal byte or after
// five bytes, whichever comes first. If the buffer ends before either, the
// bits read so far are returned with ErrTruncated.
func (s *ByteStream) ReadVarint() (int64, error) {
	var (
		value int64
		shift uint
	)
	for i := 0; i < maxVarintBytes; i++ {
		b := s.NextByte()
		if b < 0 {
			return value, ErrTruncated
		}
		value += int64(b&0x7f) << shift
		shift += 7
		if b&0x80 != 0 {
			return value, nil
		}
	}
	return value, nil
}

// AppendVarint appends the encoding of v to dst. Negative values encode as 0
// and values above MaxVarint are clamped to it.
func AppendVarint(dst []byte, v int64) []byte {
	if v < 0 {
		v = 0
	}
	if v > MaxVarint {
		v = MaxVarint
	}
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(dst, b|0x80)
		}
		dst = append(dst, b)
	}
}
