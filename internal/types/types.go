// =============================================================================
// CSV to XLSX Converter - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - csvparser  (produces row batches)
//   - converter  (allocates and writes row batches)
//   - xlsxwriter (writes rows into worksheets)
//   - validation (compares source rows with written rows)
//
// =============================================================================

package types

// =============================================================================
// ROW TYPES
// =============================================================================

// Row is one record of the input, as an ordered list of text cells.
// Cells are never coerced: "007" stays "007".
type Row []string

// RowBatch is a group of consecutive data rows read as a unit.
type RowBatch struct {
	// Index is the 1-based position of this batch in the input.
	Index int

	// Header is the source's header row. It is only set on the first batch
	// of a read; later batches leave it nil. Splitting the header from the
	// data is the writer's job.
	Header Row

	// Rows contains the data rows of the batch, in input order.
	// Its length never exceeds the configured chunk size.
	Rows []Row
}

// Len returns the number of data rows in the batch.
func (b *RowBatch) Len() int {
	return len(b.Rows)
}

// =============================================================================
// OUTPUT MODES
// =============================================================================

// Mode selects how rows are laid out across output targets.
type Mode string

const (
	// ModeSingle writes everything into one sheet of one file.
	ModeSingle Mode = "single"

	// ModeSheets writes one file and opens a new sheet whenever the
	// current one is full.
	ModeSheets Mode = "sheets"

	// ModeFiles opens a new file whenever the current one is full.
	ModeFiles Mode = "files"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeSingle, ModeSheets, ModeFiles:
		return true
	}
	return false
}
