package core

// Spreadsheet exports from Windows tools often start with a UTF-8 byte
// order mark and sometimes carry stray Latin-1 bytes. Both would otherwise
// end up in the first header name or in cell text, so every import reads
// through WrapForImport.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader drops a leading UTF-8 byte order mark.
type BOMSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

// NewBOMSkippingReader wraps r. Nothing is read until the first Read.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{br: bufio.NewReader(r)}
}

func (r *BOMSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		// A short or failed peek just means there is no BOM; any error
		// surfaces from the Read below.
		if head, err := r.br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			_, _ = r.br.Discard(len(utf8BOM))
		}
	}
	return r.br.Read(p)
}

// StreamingUTF8Sanitizer replaces each byte that is not part of a valid
// UTF-8 sequence with '?'. Output never grows, and memory stays bounded by
// the caller's buffer plus at most utf8.UTFMax-1 carried bytes.
type StreamingUTF8Sanitizer struct {
	r     io.Reader
	carry []byte // incomplete rune held back from the previous Read
}

// NewStreamingUTF8Sanitizer wraps r.
func NewStreamingUTF8Sanitizer(r io.Reader) *StreamingUTF8Sanitizer {
	return &StreamingUTF8Sanitizer{r: r, carry: make([]byte, 0, utf8.UTFMax)}
}

func (s *StreamingUTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for {
		n := copy(p, s.carry)
		s.carry = s.carry[:0]

		m, err := s.r.Read(p[n:])
		n += m
		if n == 0 {
			return 0, err
		}

		out := s.sanitize(p[:n], err != nil)
		// Everything read so far may be a rune prefix; read again rather
		// than return 0, nil.
		if out == 0 && err == nil {
			continue
		}
		return out, err
	}
}

// sanitize rewrites buf in place and returns how many bytes are ready.
// Unless final, a trailing partial rune moves to carry.
func (s *StreamingUTF8Sanitizer) sanitize(buf []byte, final bool) int {
	if asciiOnly(buf) {
		return len(buf)
	}
	w := 0
	for i := 0; i < len(buf); {
		if !final && !utf8.FullRune(buf[i:]) {
			s.carry = append(s.carry, buf[i:]...)
			break
		}
		r, size := utf8.DecodeRune(buf[i:])
		if r == utf8.RuneError && size == 1 {
			buf[w] = '?'
			w++
			i++
			continue
		}
		w += copy(buf[w:], buf[i:i+size])
		i += size
	}
	return w
}

func asciiOnly(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// WrapForImport strips a BOM, then sanitizes UTF-8. The order matters: a
// BOM is valid UTF-8 and would survive sanitizing as U+FEFF.
func WrapForImport(r io.Reader) io.Reader {
	return NewStreamingUTF8Sanitizer(NewBOMSkippingReader(r))
}
