package converter

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/charset"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/types"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/xlsxwriter"
)

const (
	// DefaultChunkSize is the number of data rows read per batch.
	DefaultChunkSize = 10000

	// DefaultMaxRows is the largest number of data rows a target can take:
	// the worksheet row limit minus the header row.
	DefaultMaxRows = xlsxwriter.MaxRows - 1

	// DefaultSheetName names the sheet in single and split mode.
	DefaultSheetName = "Sheet1"

	// DefaultBaseSheetName prefixes the sheet names in sheets mode.
	DefaultBaseSheetName = "Dados"

	// Extension is appended to every output file.
	Extension = ".xlsx"

	// maxReservedSheetIndex is the largest sheet number a base name must
	// leave room for. Longer runs are checked against the row estimate.
	maxReservedSheetIndex = 999

	// MaxBaseSheetNameLength is the longest base name accepted in sheets
	// mode.
	MaxBaseSheetNameLength = xlsxwriter.MaxSheetNameLength - 3
)

// =============================================================================
// OVERWRITE POLICY
// =============================================================================

// OverwritePolicy decides what happens when an output already exists.
type OverwritePolicy string

const (
	// OverwriteFail refuses to touch existing outputs.
	OverwriteFail OverwritePolicy = "fail"

	// OverwriteAlways replaces existing outputs without asking.
	OverwriteAlways OverwritePolicy = "overwrite"

	// OverwritePrompt asks the ConfirmFunc given to the converter.
	OverwritePrompt OverwritePolicy = "prompt"
)

// ParseOverwritePolicy resolves a policy name. The empty string is
// OverwriteFail.
func ParseOverwritePolicy(value string) (OverwritePolicy, error) {
	switch p := OverwritePolicy(strings.ToLower(strings.TrimSpace(value))); p {
	case "":
		return OverwriteFail, nil
	case OverwriteFail, OverwriteAlways, OverwritePrompt:
		return p, nil
	}
	return "", fmt.Errorf("unknown overwrite policy %q (use prompt, overwrite or fail)", value)
}

// ConfirmFunc is asked whether the listed existing outputs may be replaced.
type ConfirmFunc func(existing []string) (bool, error)

// =============================================================================
// REQUEST
// =============================================================================

// Request describes one conversion. It is not modified while a conversion
// runs.
type Request struct {
	// Input is the path to the delimited text file.
	Input string

	// Mode selects single sheet, overflow into sheets, or split into files.
	Mode types.Mode

	// Output is the workbook path in single and sheets mode, and the file
	// name prefix in files mode. Default: derived from Input.
	Output string

	// SheetName names the sheet in single and files mode.
	SheetName string

	// BaseSheetName prefixes the numbered sheets in sheets mode.
	BaseSheetName string

	// Delimiter separates fields. Default: ','
	Delimiter rune

	// Encoding of the input, or charset.Auto.
	Encoding charset.Encoding

	// SkipRows is the number of raw lines dropped before the header.
	SkipRows int

	// ChunkSize is the number of data rows per batch.
	ChunkSize int

	// MaxRows is the number of data rows a sheet or file may hold. The header
	// is repeated in every target and not counted.
	MaxRows int

	// Overwrite decides what happens to existing outputs.
	Overwrite OverwritePolicy

	// DisableRowCount skips the pre-scan used for progress reporting.
	DisableRowCount bool
}

// applyDefaults fills zero-valued fields.
func (r *Request) applyDefaults() {
	if r.Mode == "" {
		r.Mode = types.ModeSingle
	}
	if r.Output == "" {
		r.Output = DefaultOutput(r.Input, r.Mode)
	}
	if r.SheetName == "" {
		r.SheetName = DefaultSheetName
	}
	if r.BaseSheetName == "" {
		r.BaseSheetName = DefaultBaseSheetName
	}
	if r.Delimiter == 0 {
		r.Delimiter = ','
	}
	if r.ChunkSize == 0 {
		r.ChunkSize = DefaultChunkSize
	}
	if r.MaxRows == 0 {
		r.MaxRows = DefaultMaxRows
	}
	if r.Overwrite == "" {
		r.Overwrite = OverwriteFail
	}
}

// Validate checks the request. All failures match ErrConfiguration.
func (r *Request) Validate() error {
	if r.Input == "" {
		return configError("input path is required")
	}
	if !r.Mode.Valid() {
		return configError("unknown mode %q", r.Mode)
	}
	if r.Output == "" {
		return configError("output path is required")
	}
	if r.SkipRows < 0 {
		return configError("skip rows must not be negative, got %d", r.SkipRows)
	}
	if r.ChunkSize <= 0 {
		return configError("chunk size must be positive, got %d", r.ChunkSize)
	}
	if r.MaxRows <= 0 || r.MaxRows > DefaultMaxRows {
		return configError("max rows must be between 1 and %d, got %d", DefaultMaxRows, r.MaxRows)
	}
	if r.ChunkSize > r.MaxRows {
		return configError("chunk size %d exceeds max rows %d; a batch is never split across targets", r.ChunkSize, r.MaxRows)
	}
	if r.Delimiter == '"' || r.Delimiter == '\r' || r.Delimiter == '\n' {
		return configError("invalid delimiter %q", r.Delimiter)
	}
	if _, err := ParseOverwritePolicy(string(r.Overwrite)); err != nil {
		return configError("%v", err)
	}

	switch r.Mode {
	case types.ModeSheets:
		if err := xlsxwriter.ValidateSheetName(SheetName(r.BaseSheetName, 1)); err != nil {
			return configError("%v", err)
		}
		if n := utf8.RuneCountInString(r.BaseSheetName); n > MaxBaseSheetNameLength {
			return configError("base sheet name %q is %d characters long; at most %d leaves room for sheet numbers up to %d",
				r.BaseSheetName, n, MaxBaseSheetNameLength, maxReservedSheetIndex)
		}
	default:
		if err := xlsxwriter.ValidateSheetName(r.SheetName); err != nil {
			return configError("%v", err)
		}
	}
	return nil
}

// =============================================================================
// TARGET NAMES
// =============================================================================

// SheetName returns the name of the i-th sheet in sheets mode, e.g.
// SheetName("Dados", 2) is "Dados2".
func SheetName(base string, i int) string {
	return base + strconv.Itoa(i)
}

// PartFileName returns the path of the i-th file in files mode, e.g.
// PartFileName("May", 1) is "May_P1.xlsx".
func PartFileName(prefix string, i int) string {
	return prefix + "_P" + strconv.Itoa(i) + Extension
}

// DefaultOutput derives the output from the input path: the input with an
// .xlsx extension, or in files mode the input without its extension.
func DefaultOutput(input string, mode types.Mode) string {
	if input == "" {
		return ""
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	if mode == types.ModeFiles {
		return base
	}
	return base + Extension
}
