// =============================================================================
// CSV to XLSX Converter - XLSX Writer
// =============================================================================
//
// This module writes rows into XLSX workbooks through excelize's StreamWriter,
// which spills rows to a temporary file once its in-memory buffer fills up.
// Memory therefore stays flat no matter how many rows a sheet receives.
//
// LIFECYCLE:
//   1. NewWorkbook binds a workbook to one file path. Nothing is created yet.
//   2. AddSheet opens a sheet for writing. Opening a second sheet finishes
//      the first one; sheets are written strictly one after the other.
//   3. WriteRows appends rows to the open sheet.
//   4. Close writes the workbook to its path exactly once.
//      Abort releases everything without writing.
//
// CELL VALUES:
//   Every cell is written as text, so "007" stays "007" and "=A1" is not a
//   formula. Empty strings leave the cell blank. Control characters that
//   XML 1.0 cannot carry (anything below 0x20 except tab, LF and CR, plus
//   U+FFFE and U+FFFF) are rejected with a *CellError instead of being
//   replaced.
//
// =============================================================================

package xlsxwriter

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/types"
	"github.com/xuri/excelize/v2"
)

// MaxRows is the number of rows an XLSX worksheet can hold.
const MaxRows = excelize.TotalRows

// MaxSheetNameLength is the longest worksheet name, in characters.
const MaxSheetNameLength = excelize.MaxSheetNameLength

// ErrClosed is returned when a closed or aborted workbook is used.
var ErrClosed = errors.New("workbook is closed")

// ErrInvalidChar is matched by every *CellError.
var ErrInvalidChar = errors.New("character not allowed in a worksheet cell")

// CellError reports a cell value that a worksheet cannot store.
type CellError struct {
	Sheet string
	Cell  string
	Char  rune
}

func (e *CellError) Error() string {
	return fmt.Sprintf("%s: sheet %q cell %s holds U+%04X", ErrInvalidChar, e.Sheet, e.Cell, e.Char)
}

func (e *CellError) Unwrap() error {
	return ErrInvalidChar
}

// =============================================================================
// WORKBOOK
// =============================================================================

// Workbook is one XLSX file being written.
type Workbook struct {
	// path is where Close writes the file.
	path string

	file   *excelize.File
	stream *excelize.StreamWriter

	// sheet is the name of the sheet currently open for writing.
	sheet string

	// nextRow is the 1-based row the next WriteRows call starts at.
	nextRow int

	sheets []string
	closed bool
}

// NewWorkbook returns a workbook that will be written to path.
func NewWorkbook(path string) *Workbook {
	return &Workbook{path: path}
}

// Path returns the file path the workbook is bound to.
func (w *Workbook) Path() string {
	return w.path
}

// Sheets returns the names of the sheets added so far, in order.
func (w *Workbook) Sheets() []string {
	return append([]string(nil), w.sheets...)
}

// RowsWritten returns the number of rows in the open sheet.
func (w *Workbook) RowsWritten() int {
	if w.nextRow == 0 {
		return 0
	}
	return w.nextRow - 1
}

// AddSheet finishes the open sheet, if any, and opens a new empty one.
//
// PARAMETERS:
//   - name: The sheet name. It must be a valid, unused worksheet name.
//
// RETURNS:
//   - An error if the name is invalid or the previous sheet cannot be flushed.
func (w *Workbook) AddSheet(name string) error {
	if w.closed {
		return ErrClosed
	}
	if err := ValidateSheetName(name); err != nil {
		return err
	}

	if w.file == nil {
		// A new file comes with one default sheet; reuse it for the first
		// sheet so the workbook never holds an empty extra sheet.
		w.file = excelize.NewFile()
		if err := w.file.SetSheetName(w.file.GetSheetName(0), name); err != nil {
			return fmt.Errorf("failed to name sheet %q: %w", name, err)
		}
	} else {
		if err := w.flush(); err != nil {
			return err
		}
		if _, err := w.file.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}
	}

	stream, err := w.file.NewStreamWriter(name)
	if err != nil {
		return fmt.Errorf("failed to open sheet %q for writing: %w", name, err)
	}

	w.stream = stream
	w.sheet = name
	w.nextRow = 1
	w.sheets = append(w.sheets, name)
	return nil
}

// WriteRows appends rows to the open sheet, starting right after the last
// row written.
func (w *Workbook) WriteRows(rows []types.Row) error {
	if w.closed {
		return ErrClosed
	}
	if w.stream == nil {
		return errors.New("no sheet is open")
	}
	if w.nextRow-1+len(rows) > MaxRows {
		return fmt.Errorf("sheet %q would exceed %d rows", w.sheet, MaxRows)
	}

	for _, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, w.nextRow)
		if err != nil {
			return err
		}
		values, err := w.cellValues(row)
		if err != nil {
			return err
		}
		if err := w.stream.SetRow(cell, values); err != nil {
			return fmt.Errorf("failed to write row %d of sheet %q: %w", w.nextRow, w.sheet, err)
		}
		w.nextRow++
	}
	return nil
}

// Close finishes the open sheet and writes the workbook to its path.
// A workbook with no sheets writes nothing.
func (w *Workbook) Close() error {
	if w.closed {
		return ErrClosed
	}
	w.closed = true

	if w.file == nil {
		return nil
	}
	defer w.file.Close()

	if err := w.flush(); err != nil {
		return err
	}

	out, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", w.path, err)
	}
	if _, err := w.file.WriteTo(out); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", w.path, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("failed to sync %s: %w", w.path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", w.path, err)
	}
	return nil
}

// Abort releases the workbook's resources without writing it.
// It is safe to call after Close.
func (w *Workbook) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if w.file == nil {
		return nil
	}
	return w.file.Close()
}

// flush completes the open sheet's stream.
func (w *Workbook) flush() error {
	if w.stream == nil {
		return nil
	}
	if err := w.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet %q: %w", w.sheet, err)
	}
	w.stream = nil
	return nil
}

// cellValues converts a row to StreamWriter values. Empty cells are nil so
// no cell element is written for them.
func (w *Workbook) cellValues(row types.Row) ([]interface{}, error) {
	values := make([]interface{}, len(row))
	for i, v := range row {
		if v == "" {
			continue
		}
		if r, ok := invalidChar(v); ok {
			cell, _ := excelize.CoordinatesToCellName(i+1, w.nextRow)
			return nil, &CellError{Sheet: w.sheet, Cell: cell, Char: r}
		}
		values[i] = v
	}
	return values, nil
}

// invalidChar returns the first character of s that XML 1.0 does not allow.
func invalidChar(s string) (rune, bool) {
	for _, r := range s {
		switch {
		case r < 0x20 && r != '\t' && r != '\n' && r != '\r':
			return r, true
		case r == 0xFFFE || r == 0xFFFF:
			return r, true
		}
	}
	return 0, false
}

// =============================================================================
// SHEET NAMES
// =============================================================================

// invalidSheetChars are characters Excel does not allow in sheet names.
const invalidSheetChars = `:\/?*[]`

// ValidateSheetName checks a worksheet name against Excel's rules.
func ValidateSheetName(name string) error {
	if name == "" {
		return errors.New("sheet name must not be empty")
	}
	if n := len([]rune(name)); n > MaxSheetNameLength {
		return fmt.Errorf("sheet name %q is %d characters long, the limit is %d", name, n, MaxSheetNameLength)
	}
	if strings.ContainsAny(name, invalidSheetChars) {
		return fmt.Errorf("sheet name %q contains one of %s", name, invalidSheetChars)
	}
	if strings.HasPrefix(name, "'") || strings.HasSuffix(name, "'") {
		return fmt.Errorf("sheet name %q must not start or end with an apostrophe", name)
	}
	return nil
}
