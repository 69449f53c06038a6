package csvparser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"unicode"

	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/charset"
)

// CountFallback is the encoding CountRows retries with after a decode error.
// It defines every byte value, so the retry cannot fail to decode.
const CountFallback = charset.ISO8859_1

// CountRows returns the number of non-blank lines in the file at path.
//
// The count is a progress estimate only: it counts physical lines, not CSV
// records, so quoted fields with embedded newlines make it larger than the
// number of records. A decode error under enc triggers one retry under
// CountFallback.
func CountRows(path string, enc charset.Encoding) (int64, error) {
	n, err := countLines(path, enc)
	if err != nil && charset.IsDecodeError(err) && enc != CountFallback {
		return countLines(path, CountFallback)
	}
	return n, err
}

func countLines(path string, enc charset.Encoding) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	r := bufio.NewReaderSize(enc.NewReader(bufio.NewReaderSize(file, readBufferSize)), readBufferSize)

	var count int64
	blank := true
	for {
		chunk, err := r.ReadSlice('\n')
		if blank && !isBlank(chunk) {
			blank = false
		}

		switch err {
		case nil:
			if !blank {
				count++
			}
			blank = true
		case bufio.ErrBufferFull:
			// Long line: keep scanning it without buffering the whole thing.
		case io.EOF:
			if !blank {
				count++
			}
			return count, nil
		default:
			return count, fmt.Errorf("failed to count rows: %w", err)
		}
	}
}

// isBlank reports whether b holds only whitespace.
func isBlank(b []byte) bool {
	for _, c := range string(b) {
		if !unicode.IsSpace(c) {
			return false
		}
	}
	return true
}
