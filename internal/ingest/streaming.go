package ingest

// streaming.go wraps raw file readers so that malformed exports decode
// without aborting the stream:
//
//   - bomReader drops a UTF-8 byte order mark (0xEF 0xBB 0xBF) that
//     Windows tools prepend to CSV exports
//   - replaceReader substitutes invalid UTF-8 bytes with '?' on the fly
//
// Both work on fixed-size chunks, so memory stays O(buffer) no matter how
// large the export is.

import (
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// decodeReader builds the read chain for delimited input: BOM stripping,
// then either a charmap decoder (for single-byte legacy encodings, which
// cannot produce invalid UTF-8) or the permissive UTF-8 substituter.
func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	r = newBOMReader(r)
	switch strings.ToLower(encoding) {
	case "", "utf-8", "utf8":
		return newReplaceReader(r), nil
	case "latin-1", "latin1", "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	}
	return nil, &UnsupportedEncodingError{Name: encoding}
}

// UnsupportedEncodingError is returned by Open for encoding names the CSV
// reader cannot decode.
type UnsupportedEncodingError struct {
	Name string
}

func (e *UnsupportedEncodingError) Error() string {
	return "unsupported encoding: " + e.Name
}

// bomReader skips a leading UTF-8 BOM, passing everything else through.
type bomReader struct {
	r       io.Reader
	checked bool
	held    []byte
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{r: r}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		var head [3]byte
		n, err := io.ReadFull(b.r, head[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if n > 0 && !(n == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF) {
			b.held = append(b.held, head[:n]...)
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
	}
	if len(b.held) > 0 {
		n := copy(p, b.held)
		b.held = b.held[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// replaceReader substitutes each invalid UTF-8 byte with '?'.
//
// Substituting a single byte keeps the rewrite in place with no buffer
// growth; the exact replacement character is not part of any contract, only
// that decoding never fails. Bytes that may start a multi-byte rune split
// across reads are carried over to the next call.
type replaceReader struct {
	r       io.Reader
	pending []byte
}

func newReplaceReader(r io.Reader) *replaceReader {
	return &replaceReader{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *replaceReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	off := 0
	if len(s.pending) > 0 {
		off = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.r.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}

	if asciiOnly(p[:n]) {
		return n, err
	}
	return s.replace(p[:n], err == io.EOF), err
}

// replace rewrites data in place and returns the number of bytes kept.
// Unless atEOF, an incomplete trailing sequence is saved for the next read
// instead of being judged invalid too early.
func (s *replaceReader) replace(data []byte, atEOF bool) int {
	w := 0
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size <= 1 {
			if !atEOF && startsIncompleteRune(data[i:]) {
				s.pending = append(s.pending, data[i:]...)
				return w
			}
			data[w] = '?'
			w++
			i++
			continue
		}
		copy(data[w:], data[i:i+size])
		w += size
		i += size
	}
	return w
}

// asciiOnly is the fast path; most export files are plain ASCII.
func asciiOnly(data []byte) bool {
	for _, b := range data {
		if b >= 0x80 {
			return false
		}
	}
	return true
}

// startsIncompleteRune reports whether data is a valid prefix of a
// multi-byte UTF-8 sequence that was cut off by the chunk boundary.
func startsIncompleteRune(data []byte) bool {
	if len(data) == 0 || len(data) >= utf8.UTFMax {
		return false
	}
	want := 0
	switch b := data[0]; {
	case b >= 0xF0 && b <= 0xF4:
		want = 4
	case b >= 0xE0:
		want = 3
	case b >= 0xC2:
		want = 2
	default:
		return false
	}
	if len(data) >= want {
		return false
	}
	for _, b := range data[1:] {
		if b&0xC0 != 0x80 {
			return false
		}
	}
	return true
}
