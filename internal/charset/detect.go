package charset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/saintfish/chardet"
)

// sniffSize is how much of the file Detect looks at.
const sniffSize = 4096

// Detection is a best-effort guess at a file's encoding.
type Detection struct {
	// Encoding is the supported encoding the guess maps to, or Auto when
	// the detector named something outside the supported set or the file
	// is empty.
	Encoding Encoding

	// Charset is the detector's raw answer, e.g. "ISO-8859-1".
	Charset string

	// Confidence is the detector's score, 0-100.
	Confidence int
}

// Detect sniffs the head of the file at path. The result is diagnostic only:
// candidates are always tried in the fixed Candidates order and accepted or
// rejected by strict decoding. An empty file yields a zero Detection.
func Detect(path string) (Detection, error) {
	f, err := os.Open(path)
	if err != nil {
		return Detection{}, err
	}
	defer f.Close()

	peek, err := bufio.NewReaderSize(f, sniffSize).Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return Detection{}, fmt.Errorf("failed to read sample: %w", err)
	}
	if len(peek) == 0 {
		return Detection{}, nil
	}

	res, err := chardet.NewTextDetector().DetectBest(peek)
	if err != nil {
		return Detection{}, fmt.Errorf("failed to detect charset: %w", err)
	}

	det := Detection{Charset: res.Charset, Confidence: res.Confidence}
	if enc, perr := Parse(res.Charset); perr == nil {
		det.Encoding = enc
	}
	return det, nil
}

// Supported reports whether the detector's guess maps to an encoding this
// package can decode. An empty guess counts as supported.
func (d Detection) Supported() bool {
	return d.Charset == "" || d.Encoding != Auto
}
