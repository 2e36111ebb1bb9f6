package csvfile

// streaming.go holds the io.Reader wrappers applied to UTF-8 input before
// it reaches the CSV parser:
//
//   - BOMSkippingReader drops a leading UTF-8 byte order mark
//   - UTF8Sanitizer replaces invalid UTF-8 bytes with '?'
//   - CountingReader tracks bytes consumed for progress logging

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader skips the UTF-8 BOM if the stream starts with one.
type BOMSkippingReader struct {
	r       *bufio.Reader
	checked bool
}

// NewBOMSkippingReader wraps r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{r: bufio.NewReader(r)}
}

// Read implements io.Reader.
func (b *BOMSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if bytes.Equal(head, utf8BOM) {
			b.r.Discard(len(utf8BOM))
		} else if err != nil && err != io.EOF && len(head) == 0 {
			return 0, err
		}
	}
	return b.r.Read(p)
}

// UTF8Sanitizer replaces bytes that are not valid UTF-8 with '?'. Multi-byte
// sequences split across reads are carried over, so memory stays bounded by
// the internal buffer.
type UTF8Sanitizer struct {
	r   io.Reader
	raw []byte // undecoded input, possibly ending in a partial rune
	buf []byte // backing store for out
	out []byte // sanitized bytes not yet returned
	err error
}

const sanitizerBufSize = 32 * 1024

// NewUTF8Sanitizer wraps r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{
		r:   r,
		raw: make([]byte, 0, sanitizerBufSize+utf8.UTFMax),
		buf: make([]byte, 0, sanitizerBufSize+utf8.UTFMax),
	}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		n, err := s.r.Read(s.raw[len(s.raw):cap(s.raw)])
		s.raw = s.raw[:len(s.raw)+n]
		s.err = err
		s.sanitize(err != nil)
		if n == 0 && err == nil {
			return 0, nil
		}
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// sanitize moves the decodable prefix of raw into out. Unless atEOF, a
// trailing partial rune stays in raw for the next read.
func (s *UTF8Sanitizer) sanitize(atEOF bool) {
	out := s.buf[:0]
	i := 0
	for i < len(s.raw) {
		c := s.raw[i]
		if c < utf8.RuneSelf {
			out = append(out, c)
			i++
			continue
		}
		if !atEOF && !utf8.FullRune(s.raw[i:]) {
			break
		}
		r, size := utf8.DecodeRune(s.raw[i:])
		if r == utf8.RuneError && size == 1 {
			out = append(out, '?')
		} else {
			out = append(out, s.raw[i:i+size]...)
		}
		i += size
	}
	s.buf = out
	s.out = out
	s.raw = s.raw[:copy(s.raw, s.raw[i:])]
}

// CountingReader tracks the number of bytes read.
type CountingReader struct {
	r         io.Reader
	BytesRead int64
	Total     int64 // 0 when unknown
}

// NewCountingReader wraps r; total is the expected size or 0.
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{r: r, Total: total}
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.BytesRead += int64(n)
	return n, err
}

// Progress returns the read progress as a percentage (0-100).
// Returns 0 if total is unknown.
func (c *CountingReader) Progress() int {
	if c.Total <= 0 {
		return 0
	}
	return int(c.BytesRead * 100 / c.Total)
}
