package csvfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrEncoding is returned when content cannot be decoded as text.
var ErrEncoding = errors.New("encoding error")

// Encoding names a supported source text encoding.
type Encoding string

const (
	UTF8        Encoding = "utf-8"
	UTF8BOM     Encoding = "utf-8-sig"
	UTF16LE     Encoding = "utf-16le"
	UTF16BE     Encoding = "utf-16be"
	Windows1252 Encoding = "windows-1252"
	Latin1      Encoding = "latin-1"
)

// sniffSize is how much of a stream Detect needs to see.
const sniffSize = 64 * 1024

// ParseEncoding resolves a user supplied encoding name. Common aliases are
// accepted; an empty name means "detect".
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return "", nil
	case "utf-8", "utf8":
		return UTF8, nil
	case "utf-8-sig", "utf8-sig":
		return UTF8BOM, nil
	case "utf-16le", "utf16le", "utf-16":
		return UTF16LE, nil
	case "utf-16be", "utf16be":
		return UTF16BE, nil
	case "windows-1252", "cp1252":
		return Windows1252, nil
	case "latin-1", "latin1", "iso-8859-1":
		return Latin1, nil
	}
	return "", fmt.Errorf("%w: unsupported encoding %q", ErrEncoding, name)
}

// Detect guesses the encoding of head, the first bytes of a file. atEOF
// reports whether head is the whole file.
//
// Order: byte order marks, then UTF-8 validity, then Windows-1252 if any of
// its printable C1 bytes occur, else Latin-1. NUL bytes outside UTF-16
// content mean the file is binary.
func Detect(head []byte, atEOF bool) (Encoding, error) {
	switch {
	case bytes.HasPrefix(head, utf8BOM):
		return UTF8BOM, nil
	case bytes.HasPrefix(head, []byte{0xFF, 0xFE}):
		return UTF16LE, nil
	case bytes.HasPrefix(head, []byte{0xFE, 0xFF}):
		return UTF16BE, nil
	}

	if bytes.IndexByte(head, 0) >= 0 {
		return "", fmt.Errorf("%w: binary content", ErrEncoding)
	}

	if validUTF8Prefix(head, atEOF) {
		return UTF8, nil
	}

	c1 := false
	for _, b := range head {
		switch b {
		case 0x81, 0x8D, 0x8F, 0x90, 0x9D:
			// Undefined in Windows-1252.
			return Latin1, nil
		}
		if b >= 0x80 && b <= 0x9F {
			c1 = true
		}
	}
	if c1 {
		return Windows1252, nil
	}
	return Latin1, nil
}

// validUTF8Prefix is utf8.Valid tolerating a rune cut off by the sniff
// window.
func validUTF8Prefix(b []byte, atEOF bool) bool {
	if utf8.Valid(b) {
		return true
	}
	if atEOF {
		return false
	}
	for cut := 1; cut < utf8.UTFMax && cut <= len(b); cut++ {
		tail := b[len(b)-cut:]
		if utf8.RuneStart(tail[0]) && !utf8.FullRune(tail) {
			return utf8.Valid(b[:len(b)-cut])
		}
	}
	return false
}

func (e Encoding) decoder() (*encoding.Decoder, error) {
	switch e {
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder(), nil
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder(), nil
	case Windows1252:
		return charmap.Windows1252.NewDecoder(), nil
	case Latin1:
		return charmap.ISO8859_1.NewDecoder(), nil
	}
	return nil, fmt.Errorf("%w: unsupported encoding %q", ErrEncoding, string(e))
}

// NewReader returns a reader that decodes r from e into UTF-8. UTF-8 input
// is stripped of its BOM and sanitized so that stray invalid bytes past the
// sniff window become '?'.
func (e Encoding) NewReader(r io.Reader) (io.Reader, error) {
	switch e {
	case UTF8, UTF8BOM:
		return NewUTF8Sanitizer(NewBOMSkippingReader(r)), nil
	}
	dec, err := e.decoder()
	if err != nil {
		return nil, err
	}
	return NewBOMSkippingReader(transform.NewReader(r, dec)), nil
}
