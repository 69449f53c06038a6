// =============================================================================
// CSV to XLSX Converter - CSV Parser Module
// =============================================================================
//
// This module reads delimited text files in bounded-size chunks so that inputs
// of several gigabytes can be converted with flat memory use. It handles:
//   - Different delimiters (comma, pipe, tab, semicolon, any single character)
//   - Leading rows to skip before the header
//   - Strict text decoding (see the charset package)
//   - Quoted fields, including quoted newlines
//   - Rows with differing numbers of fields
//
// FEATURES:
//   - ChunkReader: a forward-only sequence of RowBatch values
//   - CountRows: a cheap line count for progress reporting (counter.go)
//   - Decode failures are reported distinctly from I/O and parse failures, so
//     the caller can retry under another encoding
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/charset"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/types"
)

// ErrNoHeader is returned when nothing is left to read after the skipped rows.
var ErrNoHeader = errors.New("input has no header row")

// readBufferSize is the bufio buffer placed in front of the decoder.
const readBufferSize = 256 * 1024

// =============================================================================
// SETTINGS
// =============================================================================

// Settings controls how a delimited file is read.
type Settings struct {
	// Delimiter separates fields. Default: ','
	Delimiter rune

	// Encoding of the file. Auto is read as UTF-8; the negotiator is
	// responsible for trying other encodings.
	Encoding charset.Encoding

	// SkipRows is the number of raw lines dropped before the header.
	SkipRows int

	// ChunkSize is the maximum number of data rows per batch.
	ChunkSize int
}

// ParseDelimiter turns a user-supplied delimiter into a rune.
//
// PARAMETERS:
//   - value: a single character, or one of the names "tab", "\t", "pipe",
//     "semicolon", "comma", "space".
//
// RETURNS:
//   - The delimiter rune.
//   - An error if the value is empty, longer than one character, or a
//     character encoding/csv cannot use as a separator.
func ParseDelimiter(value string) (rune, error) {
	switch strings.ToLower(value) {
	case "\\t", "tab", "\t":
		return '\t', nil
	case "pipe":
		return '|', nil
	case "semicolon":
		return ';', nil
	case "comma", "":
		return ',', nil
	case "space":
		return ' ', nil
	}

	if utf8.RuneCountInString(value) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", value)
	}
	r, _ := utf8.DecodeRuneInString(value)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("invalid delimiter %q", value)
	}
	return r, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings Settings) {
	reader.Comma = settings.Delimiter
	if reader.Comma == 0 {
		reader.Comma = ','
	}

	// Allow variable number of fields per row.
	reader.FieldsPerRecord = -1

	// Allow lazy quotes (quotes that don't follow strict CSV rules).
	reader.LazyQuotes = true

	// Every batch keeps its rows, so records must not share storage.
	reader.ReuseRecord = false
}

// =============================================================================
// CHUNK READER
// =============================================================================

// ChunkReader reads a delimited file as a sequence of row batches.
//
// USAGE:
//
//	reader, err := NewChunkReader(path, settings)
//	if err != nil {
//	    return err
//	}
//	defer reader.Close()
//
//	for reader.Next() {
//	    batch := reader.Batch()
//	    // Write the batch...
//	}
//
//	if err := reader.Err(); err != nil {
//	    return err
//	}
//
// The sequence is forward-only. Reading the file again, e.g. under another
// encoding, means opening a new ChunkReader.
type ChunkReader struct {
	file      *os.File
	reader    *csv.Reader
	settings  Settings
	header    types.Row
	batch     *types.RowBatch
	batches   int
	rowNumber int
	err       error
	done      bool
}

// NewChunkReader opens the file, skips the leading rows and reads the header.
//
// PARAMETERS:
//   - path: The path to the delimited file.
//   - settings: Delimiter, encoding, skip count and chunk size.
//
// RETURNS:
//   - A ChunkReader positioned on the first data row.
//   - An error if the file cannot be opened, decoded, or has no header.
//     Decode failures satisfy charset.IsDecodeError.
func NewChunkReader(path string, settings Settings) (*ChunkReader, error) {
	if settings.ChunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", settings.ChunkSize)
	}
	if settings.SkipRows < 0 {
		return nil, fmt.Errorf("skip rows must not be negative, got %d", settings.SkipRows)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	text := bufio.NewReaderSize(settings.Encoding.NewReader(bufio.NewReaderSize(file, readBufferSize)), readBufferSize)

	if err := skipLines(text, settings.SkipRows); err != nil {
		file.Close()
		return nil, err
	}

	reader := csv.NewReader(text)
	configureReader(reader, settings)

	p := &ChunkReader{
		file:      file,
		reader:    reader,
		settings:  settings,
		rowNumber: settings.SkipRows,
	}

	if err := p.readHeader(); err != nil {
		file.Close()
		return nil, err
	}

	return p, nil
}

// skipLines drops n raw lines. Reaching the end of the file early is not an
// error here; the missing header is reported by readHeader.
func skipLines(r *bufio.Reader, n int) error {
	for i := 0; i < n; i++ {
		for {
			_, err := r.ReadSlice('\n')
			if err == nil {
				break
			}
			if err == bufio.ErrBufferFull {
				continue
			}
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("error skipping row %d: %w", i+1, err)
		}
	}
	return nil
}

// readHeader reads the first record after the skipped rows.
func (p *ChunkReader) readHeader() error {
	row, err := p.reader.Read()
	if err == io.EOF {
		return ErrNoHeader
	}
	if err != nil {
		return fmt.Errorf("error reading header row: %w", err)
	}

	p.rowNumber++
	p.header = row
	return nil
}

// Next reads the next batch. It returns false at the end of the input or on
// the first error; check Err to tell them apart.
func (p *ChunkReader) Next() bool {
	if p.err != nil || p.done {
		return false
	}

	rows := make([]types.Row, 0, p.settings.ChunkSize)
	for len(rows) < p.settings.ChunkSize {
		row, err := p.reader.Read()
		if err == io.EOF {
			p.done = true
			break
		}
		if err != nil {
			p.err = fmt.Errorf("error reading row %d: %w", p.rowNumber+1, err)
			return false
		}
		p.rowNumber++
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return false
	}

	p.batches++
	p.batch = &types.RowBatch{Index: p.batches, Rows: rows}
	if p.batches == 1 {
		p.batch.Header = p.header
	}
	return true
}

// Batch returns the batch read by the last call to Next.
func (p *ChunkReader) Batch() *types.RowBatch {
	return p.batch
}

// Header returns the header row.
func (p *ChunkReader) Header() types.Row {
	return p.header
}

// RowNumber returns the number of records consumed so far, counting the
// header and the skipped rows.
func (p *ChunkReader) RowNumber() int {
	return p.rowNumber
}

// Err returns the error that stopped iteration, if any.
func (p *ChunkReader) Err() error {
	return p.err
}

// Close closes the underlying file.
func (p *ChunkReader) Close() error {
	return p.file.Close()
}
