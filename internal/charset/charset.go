// =============================================================================
// CSV to XLSX Converter - Text Encodings
// =============================================================================
//
// This module defines the closed set of text encodings the converter can read
// and builds strict decoders for them. A strict decoder fails with a decode
// error on bytes that are not valid in the encoding instead of silently
// substituting U+FFFD, so a wrong guess can be detected and retried.
//
// SUPPORTED ENCODINGS:
//   - UTF-8        (a leading byte order mark is dropped)
//   - Windows-1252 (the five unassigned byte values are rejected)
//   - ISO-8859-1   (every byte is defined, so it never fails)
//   - ISO-8859-15
//
// =============================================================================

package charset

import (
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

// ErrInvalidText is returned by a strict single-byte decoder when the input
// contains a byte the encoding does not define.
var ErrInvalidText = errors.New("byte not defined in encoding")

// Encoding identifies one supported text encoding, or Auto.
type Encoding int

const (
	// Auto asks the converter to try Candidates in order.
	Auto Encoding = iota
	UTF8
	Windows1252
	ISO8859_1
	ISO8859_15
)

var names = map[Encoding]string{
	Auto:        "auto",
	UTF8:        "utf-8",
	Windows1252: "windows-1252",
	ISO8859_1:   "iso-8859-1",
	ISO8859_15:  "iso-8859-15",
}

var aliases = map[string]Encoding{
	"auto":         Auto,
	"":             Auto,
	"utf-8":        UTF8,
	"utf8":         UTF8,
	"utf-8-sig":    UTF8,
	"windows-1252": Windows1252,
	"cp1252":       Windows1252,
	"win1252":      Windows1252,
	"iso-8859-1":   ISO8859_1,
	"iso8859-1":    ISO8859_1,
	"latin-1":      ISO8859_1,
	"latin1":       ISO8859_1,
	"iso-8859-15":  ISO8859_15,
	"iso8859-15":   ISO8859_15,
	"latin-9":      ISO8859_15,
	"latin9":       ISO8859_15,
}

// Parse resolves a user-supplied encoding name. Matching ignores case and
// surrounding whitespace; underscores are treated as hyphens.
func Parse(name string) (Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "_", "-")
	if enc, ok := aliases[key]; ok {
		return enc, nil
	}
	return Auto, fmt.Errorf("unsupported encoding %q (supported: %s)", name, strings.Join(Names(), ", "))
}

// Names lists the canonical names, auto first.
func Names() []string {
	return []string{
		names[Auto], names[UTF8], names[Windows1252], names[ISO8859_1], names[ISO8859_15],
	}
}

// String returns the canonical name of the encoding.
func (e Encoding) String() string {
	if n, ok := names[e]; ok {
		return n
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

// IsAuto reports whether e defers the choice to the negotiator.
func (e Encoding) IsAuto() bool {
	return e == Auto
}

// Candidates returns the encodings tried in auto mode, in priority order:
// the universal encoding first, then the regional single-byte fallbacks.
func Candidates() []Encoding {
	return []Encoding{UTF8, Windows1252, ISO8859_1}
}

// NewReader wraps r so that reads return UTF-8 text decoded from e.
// Invalid input surfaces as an error for which IsDecodeError is true.
// Auto has no decoder of its own and is read as UTF-8.
func (e Encoding) NewReader(r io.Reader) io.Reader {
	return transform.NewReader(r, e.transformer())
}

func (e Encoding) transformer() transform.Transformer {
	switch e {
	case Windows1252:
		return strict(charmap.Windows1252, windows1252Undefined...)
	case ISO8859_1:
		return strict(charmap.ISO8859_1)
	case ISO8859_15:
		return strict(charmap.ISO8859_15)
	default:
		return transform.Chain(encoding.UTF8Validator, unicode.UTF8BOM.NewDecoder())
	}
}

// IsDecodeError reports whether err was caused by text that is not valid in
// the encoding being decoded.
func IsDecodeError(err error) bool {
	return errors.Is(err, encoding.ErrInvalidUTF8) || errors.Is(err, ErrInvalidText)
}

// =============================================================================
// STRICT SINGLE-BYTE DECODING
// =============================================================================

// windows1252Undefined lists the byte values Windows-1252 leaves unassigned.
// The x/text table follows the WHATWG index and maps them to C1 controls,
// which would make Windows-1252 accept any input.
var windows1252Undefined = []byte{0x81, 0x8D, 0x8F, 0x90, 0x9D}

func strict(cm *charmap.Charmap, undefined ...byte) transform.Transformer {
	d := definedBytes{}
	for _, b := range undefined {
		d.undefined[b] = true
	}
	for i := 0; i < 256; i++ {
		if cm.DecodeByte(byte(i)) == utf8.RuneError {
			d.undefined[i] = true
		}
	}
	return transform.Chain(d, cm.NewDecoder())
}

// definedBytes passes bytes through unchanged and stops at the first byte
// that has no character assigned.
type definedBytes struct {
	transform.NopResetter
	undefined [256]bool
}

func (d definedBytes) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	n := len(src)
	if n > len(dst) {
		n = len(dst)
		err = transform.ErrShortDst
	}
	for i := 0; i < n; i++ {
		if d.undefined[src[i]] {
			copy(dst, src[:i])
			return i, i, ErrInvalidText
		}
	}
	copy(dst, src[:n])
	return n, n, err
}
