// =============================================================================
// CSV to XLSX Converter - XLSX Reader
// =============================================================================
//
// This module reads converted workbooks back as rows, in the order they were
// written: file by file, sheet by sheet, top to bottom. It is used to verify
// conversions against their source.
//
// Rows are streamed through excelize's Rows iterator, so a full worksheet is
// never held in memory.
//
// =============================================================================

package xlsxparser

import (
	"fmt"

	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/types"
	"github.com/xuri/excelize/v2"
)

// Target identifies one sheet of one workbook.
type Target struct {
	File  string
	Sheet string
}

func (t Target) String() string {
	return fmt.Sprintf("%s [%s]", t.File, t.Sheet)
}

// ListSheets returns the sheet names of the workbook at path, in order.
func ListSheets(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// =============================================================================
// ROW READER
// =============================================================================

// RowReader iterates over every row of a list of workbooks.
//
// USAGE:
//
//	reader := NewRowReader(paths...)
//	defer reader.Close()
//
//	for reader.Next() {
//	    row := reader.Row()
//	    // reader.Target() and reader.RowNumber() locate it
//	}
//
//	if err := reader.Err(); err != nil {
//	    return err
//	}
type RowReader struct {
	paths []string
	next  int

	file   *excelize.File
	sheets []string
	sheet  int
	rows   *excelize.Rows

	target    Target
	row       types.Row
	rowNumber int
	fresh     bool
	err       error
}

// NewRowReader returns a reader over the given workbooks. Nothing is opened
// until the first call to Next.
func NewRowReader(paths ...string) *RowReader {
	return &RowReader{paths: paths}
}

// Next advances to the next row, moving on to the next sheet or file when
// the current one is exhausted.
func (r *RowReader) Next() bool {
	if r.err != nil {
		return false
	}

	for {
		if r.rows != nil {
			if r.rows.Next() {
				cols, err := r.rows.Columns()
				if err != nil {
					r.err = fmt.Errorf("failed to read row %d of %s: %w", r.rowNumber+1, r.target, err)
					return false
				}
				r.row = cols
				r.rowNumber++
				r.fresh = r.rowNumber == 1
				return true
			}
			if err := r.rows.Error(); err != nil {
				r.err = fmt.Errorf("failed to read %s: %w", r.target, err)
				return false
			}
			r.rows.Close()
			r.rows = nil
		}

		if !r.openSheet() {
			return false
		}
	}
}

// openSheet opens the next sheet, opening the next file when needed.
func (r *RowReader) openSheet() bool {
	for r.file == nil || r.sheet >= len(r.sheets) {
		if r.file != nil {
			r.file.Close()
			r.file = nil
		}
		if r.next >= len(r.paths) {
			return false
		}

		path := r.paths[r.next]
		r.next++
		f, err := excelize.OpenFile(path)
		if err != nil {
			r.err = fmt.Errorf("failed to open workbook %s: %w", path, err)
			return false
		}
		r.file = f
		r.sheets = f.GetSheetList()
		r.sheet = 0
		r.target.File = path
	}

	name := r.sheets[r.sheet]
	r.sheet++
	rows, err := r.file.Rows(name)
	if err != nil {
		r.err = fmt.Errorf("failed to read sheet %s of %s: %w", name, r.target.File, err)
		return false
	}
	r.rows = rows
	r.target.Sheet = name
	r.rowNumber = 0
	return true
}

// Row returns the current row. Trailing empty cells are not included.
func (r *RowReader) Row() types.Row {
	return r.row
}

// Target returns the sheet the current row belongs to.
func (r *RowReader) Target() Target {
	return r.target
}

// RowNumber returns the 1-based row number of the current row in its sheet.
func (r *RowReader) RowNumber() int {
	return r.rowNumber
}

// FirstInTarget reports whether the current row is the first of its sheet.
func (r *RowReader) FirstInTarget() bool {
	return r.fresh
}

// Err returns the error that stopped iteration, if any.
func (r *RowReader) Err() error {
	return r.err
}

// Close releases the open sheet and workbook.
func (r *RowReader) Close() error {
	if r.rows != nil {
		r.rows.Close()
		r.rows = nil
	}
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		return err
	}
	return nil
}
