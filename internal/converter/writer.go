package converter

import (
	"errors"

	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/types"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/xlsxwriter"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/pkg/utils"
)

// =============================================================================
// TARGET SINKS
// =============================================================================

// sink owns the output of one attempt. Targets are opened strictly one after
// the other; opening target i finishes target i-1.
type sink interface {
	// Open starts target index (1-based).
	Open(index int) error

	// Write appends rows to the open target.
	Write(rows []types.Row) error

	// Close finishes the last target and writes every staged file.
	Close() error

	// Abort releases everything without writing.
	Abort()

	// Targets returns the names of the targets opened so far, in order.
	Targets() []string
}

// newSink returns the sink for the request's mode. Files are created through
// the stager, never at their final paths.
func newSink(req *Request, stager *utils.Stager) sink {
	switch req.Mode {
	case types.ModeFiles:
		return &fileSink{prefix: req.Output, sheet: req.SheetName, stager: stager}
	case types.ModeSheets:
		return &sheetSink{
			workbook: xlsxwriter.NewWorkbook(stager.Stage(req.Output)),
			name:     func(i int) string { return SheetName(req.BaseSheetName, i) },
		}
	default:
		return &sheetSink{
			workbook: xlsxwriter.NewWorkbook(stager.Stage(req.Output)),
			name:     func(int) string { return req.SheetName },
		}
	}
}

// sheetSink writes every target as a sheet of one workbook.
type sheetSink struct {
	workbook *xlsxwriter.Workbook
	name     func(index int) string
}

func (s *sheetSink) Open(index int) error {
	name := s.name(index)
	if err := xlsxwriter.ValidateSheetName(name); err != nil {
		return newError(ErrConfiguration, "open sheet", s.workbook.Path(), err)
	}
	if err := s.workbook.AddSheet(name); err != nil {
		return newError(ErrIOWrite, "open sheet", s.workbook.Path(), err)
	}
	return nil
}

func (s *sheetSink) Write(rows []types.Row) error {
	if err := s.workbook.WriteRows(rows); err != nil {
		return writeError(s.workbook.Path(), err)
	}
	return nil
}

// writeError classifies a WriteRows failure.
func writeError(path string, err error) error {
	if errors.Is(err, xlsxwriter.ErrInvalidChar) {
		return newError(ErrCellValue, "write", path, err)
	}
	return newError(ErrIOWrite, "write", path, err)
}

func (s *sheetSink) Close() error {
	if err := s.workbook.Close(); err != nil {
		return newError(ErrIOWrite, "save", s.workbook.Path(), err)
	}
	return nil
}

func (s *sheetSink) Abort() {
	s.workbook.Abort()
}

func (s *sheetSink) Targets() []string {
	return s.workbook.Sheets()
}

// fileSink writes every target as its own workbook.
type fileSink struct {
	prefix string
	sheet  string
	stager *utils.Stager

	current *xlsxwriter.Workbook
	files   []string
}

func (s *fileSink) Open(index int) error {
	if s.current != nil {
		// The previous part is complete on disk before the next one starts.
		if err := s.current.Close(); err != nil {
			return newError(ErrIOWrite, "save", s.current.Path(), err)
		}
		s.current = nil
	}

	final := PartFileName(s.prefix, index)
	wb := xlsxwriter.NewWorkbook(s.stager.Stage(final))
	if err := wb.AddSheet(s.sheet); err != nil {
		wb.Abort()
		return newError(ErrIOWrite, "open file", final, err)
	}
	s.current = wb
	s.files = append(s.files, final)
	return nil
}

func (s *fileSink) Write(rows []types.Row) error {
	if s.current == nil {
		return newError(ErrIOWrite, "write", s.prefix, errors.New("no file is open"))
	}
	if err := s.current.WriteRows(rows); err != nil {
		return writeError(s.current.Path(), err)
	}
	return nil
}

func (s *fileSink) Close() error {
	if s.current == nil {
		return nil
	}
	wb := s.current
	s.current = nil
	if err := wb.Close(); err != nil {
		return newError(ErrIOWrite, "save", wb.Path(), err)
	}
	return nil
}

func (s *fileSink) Abort() {
	if s.current != nil {
		s.current.Abort()
		s.current = nil
	}
}

func (s *fileSink) Targets() []string {
	return append([]string(nil), s.files...)
}

// =============================================================================
// BATCH WRITER
// =============================================================================

// batchWriter asks the allocator where each batch goes and appends it there,
// writing the header first into every fresh target.
type batchWriter struct {
	sink   sink
	alloc  *Allocator
	header types.Row
}

// Write appends one batch.
func (w *batchWriter) Write(batch *types.RowBatch) error {
	if batch.Header != nil {
		w.header = batch.Header
	}

	decision, err := w.alloc.Allocate(batch.Len())
	if err != nil {
		return err
	}

	rows := batch.Rows
	if decision.Fresh {
		if err := w.sink.Open(decision.Target); err != nil {
			return err
		}
		rows = make([]types.Row, 0, len(batch.Rows)+1)
		rows = append(rows, w.header)
		rows = append(rows, batch.Rows...)
	}

	if err := w.sink.Write(rows); err != nil {
		return err
	}
	w.alloc.Commit(batch.Len())
	return nil
}

// Finish makes sure at least one target exists, so a header-only input still
// produces a workbook holding its header.
func (w *batchWriter) Finish() error {
	if w.alloc.Target() > 0 {
		return nil
	}
	return w.Write(&types.RowBatch{Index: 1, Header: w.header})
}
