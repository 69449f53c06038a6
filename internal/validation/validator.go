// =============================================================================
// CSV to XLSX Converter - Validation Engine
// =============================================================================
//
// This module checks a finished conversion against its source. The source
// is read again with the same settings and compared, row by row and cell by
// cell, with the rows read back from the output workbooks.
//
// CHECKS:
//   1. Every sheet starts with the source header
//   2. Data rows appear in source order, with no gaps or duplicates
//   3. Every cell holds the source text unchanged
//   4. No sheet holds more data rows than the configured limit
//   5. Source and output run out of rows at the same time
//
// ERROR HANDLING:
//   - Mismatches are collected, not returned immediately
//   - Each mismatch names the sheet, the row and the column
//   - Collection stops after MaxErrors mismatches
//   - Failures to read either side are returned as errors
//
// =============================================================================

package validation

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/csvparser"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/types"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/xlsxparser"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError describes one difference between source and output.
type ValidationError struct {
	// Target is the sheet where the difference was found. Empty when the
	// output ran out of rows.
	Target xlsxparser.Target

	// Row is the 1-based row number in the sheet.
	Row int

	// Column is the 1-based column, or 0 when the whole row differs.
	Column int

	// Rule names the check that failed: "header", "cell", "width",
	// "missing", "extra", "limit".
	Rule string

	// Expected and Actual are the source and output values.
	Expected string
	Actual   string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	loc := "output"
	if e.Target.Sheet != "" {
		loc = e.Target.String()
		if e.Row > 0 {
			loc += fmt.Sprintf(" row %d", e.Row)
		}
		if e.Column > 0 {
			if name, err := excelize.ColumnNumberToName(e.Column); err == nil {
				loc += " column " + name
			}
		}
	}
	if e.Expected == "" && e.Actual == "" {
		return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(e.Rule), loc, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s (expected: %q, actual: %q)",
		strings.ToUpper(e.Rule), loc, e.Message, e.Expected, e.Actual)
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of a verification.
type ValidationResult struct {
	// IsValid is true if no differences were found.
	IsValid bool

	// Errors contains the differences found, up to MaxErrors.
	Errors []*ValidationError

	// Truncated is true when more differences exist than were collected.
	Truncated bool

	// RowsCompared is the number of source data rows compared.
	RowsCompared int64

	// Targets is the number of sheets read from the outputs.
	Targets int
}

// =============================================================================
// VALIDATOR
// =============================================================================

// ValidationOptions contains options for verification.
type ValidationOptions struct {
	// MaxErrors is the number of differences collected before stopping.
	// Default: 100
	MaxErrors int

	// MaxRows is the data row limit per sheet. 0 skips the check.
	MaxRows int
}

// DefaultValidationOptions returns the default options.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{MaxErrors: 100}
}

// Validator compares a source file with its converted outputs.
type Validator struct {
	settings csvparser.Settings
	options  ValidationOptions
}

// NewValidator creates a validator reading the source with settings.
// settings.Encoding must be a concrete encoding.
func NewValidator(settings csvparser.Settings, options ValidationOptions) *Validator {
	if options.MaxErrors <= 0 {
		options.MaxErrors = DefaultValidationOptions().MaxErrors
	}
	if settings.ChunkSize <= 0 {
		settings.ChunkSize = 10000
	}
	return &Validator{settings: settings, options: options}
}

// Validate compares the source at csvPath with the workbooks at outputs,
// which must be given in write order.
//
// RETURNS:
//   - The verification result.
//   - An error if either side cannot be read. Decode errors on the source
//     satisfy charset.IsDecodeError.
func (v *Validator) Validate(ctx context.Context, csvPath string, outputs []string) (*ValidationResult, error) {
	source, err := csvparser.NewChunkReader(csvPath, v.settings)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	output := xlsxparser.NewRowReader(outputs...)
	defer output.Close()

	c := &comparison{
		options: v.options,
		header:  normalize(source.Header()),
		result:  &ValidationResult{},
		output:  output,
	}

	for source.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, row := range source.Batch().Rows {
			if !c.compare(row) {
				return c.finish(), nil
			}
		}
		if err := output.Err(); err != nil {
			return nil, err
		}
	}
	if err := source.Err(); err != nil {
		return nil, err
	}

	c.drain()
	if err := output.Err(); err != nil {
		return nil, err
	}
	return c.finish(), nil
}

// comparison walks the output rows alongside the source rows.
type comparison struct {
	options  ValidationOptions
	header   types.Row
	result   *ValidationResult
	output   *xlsxparser.RowReader
	inTarget int
	ended    bool
}

// nextDataRow advances the output to its next data row, checking the header
// at the top of every sheet. It returns false when the output is exhausted.
func (c *comparison) nextDataRow() bool {
	for {
		if c.ended || !c.output.Next() {
			c.ended = true
			return false
		}
		if !c.output.FirstInTarget() {
			return true
		}

		c.result.Targets++
		c.inTarget = 0
		if got := normalize(c.output.Row()); !equalRows(got, c.header) {
			c.add(&ValidationError{
				Target:   c.output.Target(),
				Row:      c.output.RowNumber(),
				Rule:     "header",
				Expected: strings.Join(c.header, ","),
				Actual:   strings.Join(got, ","),
				Message:  "sheet does not start with the source header",
			})
		}
	}
}

// compare checks one source data row. It returns false once enough errors
// have been collected.
func (c *comparison) compare(source types.Row) bool {
	c.result.RowsCompared++
	want := normalize(source)

	if !c.nextDataRow() {
		c.add(&ValidationError{
			Rule:    "missing",
			Message: fmt.Sprintf("output ends before source data row %d", c.result.RowsCompared),
		})
		return false
	}

	c.inTarget++
	target, rowNum := c.output.Target(), c.output.RowNumber()
	if c.options.MaxRows > 0 && c.inTarget == c.options.MaxRows+1 {
		c.add(&ValidationError{
			Target:  target,
			Row:     rowNum,
			Rule:    "limit",
			Message: fmt.Sprintf("sheet holds more than %d data rows", c.options.MaxRows),
		})
	}

	got := normalize(c.output.Row())
	if len(got) != len(want) {
		c.add(&ValidationError{
			Target:   target,
			Row:      rowNum,
			Rule:     "width",
			Expected: fmt.Sprint(len(want)),
			Actual:   fmt.Sprint(len(got)),
			Message:  "row has a different number of cells",
		})
	}
	for i := 0; i < len(want) && i < len(got); i++ {
		if want[i] != got[i] {
			c.add(&ValidationError{
				Target:   target,
				Row:      rowNum,
				Column:   i + 1,
				Rule:     "cell",
				Expected: want[i],
				Actual:   got[i],
				Message:  "cell differs from source",
			})
		}
	}

	return len(c.result.Errors) < c.options.MaxErrors
}

// drain reports output rows left over after the source ended.
func (c *comparison) drain() {
	extra := 0
	var first *ValidationError
	for c.nextDataRow() {
		extra++
		if first == nil {
			first = &ValidationError{Target: c.output.Target(), Row: c.output.RowNumber(), Rule: "extra"}
		}
	}
	if first != nil {
		first.Message = fmt.Sprintf("output has %d data row(s) beyond the end of the source", extra)
		c.add(first)
	}
}

func (c *comparison) add(e *ValidationError) {
	if len(c.result.Errors) >= c.options.MaxErrors {
		c.result.Truncated = true
		return
	}
	c.result.Errors = append(c.result.Errors, e)
}

func (c *comparison) finish() *ValidationResult {
	if len(c.result.Errors) >= c.options.MaxErrors {
		c.result.Truncated = true
	}
	c.result.IsValid = len(c.result.Errors) == 0
	return c.result
}

// normalize drops trailing empty cells, which a worksheet does not store.
func normalize(row types.Row) types.Row {
	end := len(row)
	for end > 0 && row[end-1] == "" {
		end--
	}
	return row[:end]
}

func equalRows(a, b types.Row) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats a verification result for display or logging.
//
// PARAMETERS:
//   - result: The verification result.
//
// RETURNS:
//   - A formatted string listing every difference.
func FormatErrors(result *ValidationResult) string {
	if len(result.Errors) == 0 {
		return fmt.Sprintf("No differences found in %d row(s) across %d sheet(s).\n", result.RowsCompared, result.Targets)
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Verification found %d difference(s)", len(result.Errors)))
	if result.Truncated {
		builder.WriteString(" (stopped early)")
	}
	builder.WriteString(":\n\n")

	for i, err := range result.Errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes a verification report to a file.
//
// PARAMETERS:
//   - result: The verification result to write.
//   - source: The source file the outputs were compared with.
//   - filePath: The path to the report file.
//
// RETURNS:
//   - An error if writing fails.
func WriteErrorLog(result *ValidationResult, source, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Verification report for %s\n", source)
	fmt.Fprintf(writer, "Generated: %s\n\n", time.Now().Format(time.RFC3339))
	writer.WriteString(FormatErrors(result))

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return file.Sync()
}
