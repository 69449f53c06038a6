// =============================================================================
// CSV to XLSX Converter - Conversion Commands
// =============================================================================
//
// This file defines the three conversion commands. They share their flags
// and differ only in how rows overflow:
//
// COMMAND USAGE:
//   csv2xlsx convert <file.csv>... [flags]   one workbook, one sheet
//   csv2xlsx sheets  <file.csv>... [flags]   one workbook, numbered sheets
//   csv2xlsx split   <file.csv>... [flags]   numbered workbooks
//
// FLAGS:
//   -o, --output      : Output workbook (convert, sheets) or file name prefix (split)
//   -s, --sheet       : Sheet name (convert, split) or sheet name prefix (sheets)
//   -c, --chunk-size  : Rows read and written per batch
//   -d, --delimiter   : Field separator
//   -e, --encoding    : Input encoding, or auto
//       --skip-rows   : Lines to drop before the header
//   -r, --max-rows    : Data rows per sheet or file
//       --overwrite   : prompt, overwrite or fail
//   -y, --yes         : Overwrite without asking
//       --no-count    : Skip the row count used for progress percentages
//
// PROCESSING PIPELINE:
//   1. Merge flags over the configuration file
//   2. Build one conversion request per input file and reject inputs that
//      would write to the same output
//   3. Run the conversions one after the other; one file failing does not
//      stop the rest
//   4. Print a summary
//
// =============================================================================

package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/charset"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/config"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/converter"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/csvparser"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/types"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// conversionFlags holds the flags of one conversion command.
type conversionFlags struct {
	output    string
	sheet     string
	chunkSize int
	delimiter string
	encoding  string
	skipRows  int
	maxRows   int
	overwrite string
	yes       bool
	noCount   bool
}

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var convertCmd = newConversionCommand(types.ModeSingle, "convert",
	"Convert CSV files to single-sheet workbooks",
	`Convert each input file into one workbook with one sheet, named after the
input (data.csv -> data.xlsx). The conversion fails, and writes nothing, if
the file has more data rows than a sheet can hold; use sheets or split for
those.`)

var sheetsCmd = newConversionCommand(types.ModeSheets, "sheets",
	"Convert CSV files to workbooks with numbered sheets",
	`Convert each input file into one workbook. When a sheet reaches --max-rows
data rows, a new sheet is started: Dados1, Dados2, ... (prefix set with
--sheet). Every sheet starts with the header row.`)

var splitCmd = newConversionCommand(types.ModeFiles, "split",
	"Convert CSV files to numbered workbooks",
	`Convert each input file into as many workbooks as needed. When a workbook
reaches --max-rows data rows, a new one is started: data_P1.xlsx,
data_P2.xlsx, ... (prefix set with --output). Every workbook starts with the
header row.`)

// newConversionCommand builds a conversion command for mode.
func newConversionCommand(mode types.Mode, use, short, long string) *cobra.Command {
	flags := &conversionFlags{}

	cmd := &cobra.Command{
		Use:   use + " <file.csv>...",
		Short: short,
		Long:  long,
		Args:  cobra.MinimumNArgs(1),

		// RunE is like Run but returns an error. A non-nil error makes the
		// process exit with status 1.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConversions(cmd, mode, flags, args)
		},
	}

	sheetHelp := "Sheet name (default from config, Sheet1)"
	outputHelp := "Output workbook (default: input with .xlsx)"
	if mode == types.ModeSheets {
		sheetHelp = "Sheet name prefix; sheets are numbered from 1 (default from config, Dados)"
	}
	if mode == types.ModeFiles {
		outputHelp = "Output file name prefix; files are named <prefix>_P<n>.xlsx (default: input without extension)"
	}

	f := cmd.Flags()
	f.StringVarP(&flags.output, "output", "o", "", outputHelp)
	f.StringVarP(&flags.sheet, "sheet", "s", "", sheetHelp)
	f.IntVarP(&flags.chunkSize, "chunk-size", "c", 0, "Rows read and written per batch (default from config, 10000)")
	f.StringVarP(&flags.delimiter, "delimiter", "d", "", `Field separator: one character, or tab, pipe, semicolon, comma, space (default ",")`)
	f.StringVarP(&flags.encoding, "encoding", "e", "", "Input encoding: "+joinNames(charset.Names())+" (default auto)")
	f.IntVar(&flags.skipRows, "skip-rows", 0, "Lines to drop before the header")
	f.IntVarP(&flags.maxRows, "max-rows", "r", 0, fmt.Sprintf("Data rows per sheet or file (default %d)", converter.DefaultMaxRows))
	f.StringVar(&flags.overwrite, "overwrite", "", "What to do with existing outputs: prompt, overwrite, fail (default prompt)")
	f.BoolVarP(&flags.yes, "yes", "y", false, "Overwrite existing outputs without asking")
	f.BoolVar(&flags.noCount, "no-count", false, "Skip the row count used for progress percentages")

	return cmd
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runConversions converts every input file.
func runConversions(cmd *cobra.Command, mode types.Mode, flags *conversionFlags, inputs []string) error {
	startTime := time.Now()

	if flags.output != "" && len(inputs) > 1 {
		return fmt.Errorf("--output can only be used with a single input file")
	}

	requests := make([]converter.Request, len(inputs))
	for i, input := range inputs {
		req, err := buildRequest(appConfig, mode, input, flags, cmd.Flags().Changed)
		if err != nil {
			return err
		}
		requests[i] = req
	}
	if err := checkDistinctOutputs(requests); err != nil {
		return err
	}

	confirm := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr()).Confirm

	// =========================================================================
	// PROCESS FILES
	// =========================================================================
	// One conversion is in flight at a time. Cancellation stops the current
	// file and skips the ones after it.

	results := make([]converter.Result, 0, len(requests))
	for _, req := range requests {
		conv := converter.New(req,
			converter.WithLogger(logger.With("file", filepath.Base(req.Input))),
			converter.WithConfirm(confirm),
		)
		results = append(results, conv.Run(cmd.Context()))
		if cmd.Context().Err() != nil {
			break
		}
	}

	// =========================================================================
	// PRINT SUMMARY
	// =========================================================================

	out := cmd.OutOrStdout()
	var failed []converter.Result
	for _, result := range results {
		if result.Success {
			fmt.Fprintf(out, "✓ %s -> %s (%s rows, %s, %s)\n",
				filepath.Base(result.FilePath),
				joinNames(result.Outputs),
				humanize.Comma(result.Stats.RowsProcessed),
				humanize.Bytes(uint64(result.Stats.OutputBytes)),
				result.Encoding)
			if mode == types.ModeSheets {
				fmt.Fprintf(out, "  sheets: %s\n", joinNames(result.Targets))
			}
		} else {
			failed = append(failed, result)
			fmt.Fprintf(out, "✗ %s: %v\n", filepath.Base(result.FilePath), result.Error)
		}
	}

	if len(results) > 1 {
		fmt.Fprintf(out, "\nFiles: %d, succeeded: %d, failed: %d, time: %s\n",
			len(results), len(results)-len(failed), len(failed), time.Since(startTime).Round(time.Millisecond))
	}

	switch {
	case len(failed) == 0:
		return nil
	case len(results) == 1:
		return failed[0].Error
	default:
		return fmt.Errorf("%d of %d file(s) failed", len(failed), len(results))
	}
}

// checkDistinctOutputs rejects requests that would write the same output,
// such as a.csv and a.tsv both converting to a.xlsx.
func checkDistinctOutputs(requests []converter.Request) error {
	seen := make(map[string]string, len(requests))
	for _, req := range requests {
		output := req.Output
		if output == "" {
			output = converter.DefaultOutput(req.Input, req.Mode)
		}
		key, err := filepath.Abs(output)
		if err != nil {
			key = filepath.Clean(output)
		}
		if other, ok := seen[key]; ok {
			return fmt.Errorf("%s and %s would both be written to %s", other, req.Input, output)
		}
		seen[key] = req.Input
	}
	return nil
}

// buildRequest merges the configuration and the flags that were set into a
// conversion request.
//
// PARAMETERS:
//   - cfg: The loaded configuration.
//   - mode: The conversion mode of the command.
//   - input: The input file.
//   - flags: The command's flags.
//   - changed: Reports whether a flag was set on the command line.
//
// RETURNS:
//   - The request, not yet validated by the converter.
//   - An error for values that cannot be parsed.
func buildRequest(cfg *config.Config, mode types.Mode, input string, flags *conversionFlags, changed func(string) bool) (converter.Request, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	delimiter := cfg.Delimiter
	if changed("delimiter") {
		delimiter = flags.delimiter
	}
	delim, err := csvparser.ParseDelimiter(delimiter)
	if err != nil {
		return converter.Request{}, err
	}

	encoding := cfg.Encoding
	if changed("encoding") {
		encoding = flags.encoding
	}
	enc, err := charset.Parse(encoding)
	if err != nil {
		return converter.Request{}, err
	}

	overwrite := cfg.Overwrite
	if changed("overwrite") {
		overwrite = flags.overwrite
	}
	policy, err := converter.ParseOverwritePolicy(overwrite)
	if err != nil {
		return converter.Request{}, err
	}
	if flags.yes {
		policy = converter.OverwriteAlways
	}

	req := converter.Request{
		Input:           input,
		Mode:            mode,
		Output:          flags.output,
		SheetName:       cfg.SheetName,
		BaseSheetName:   cfg.BaseSheetName,
		Delimiter:       delim,
		Encoding:        enc,
		SkipRows:        cfg.SkipRows,
		ChunkSize:       cfg.ChunkSize,
		MaxRows:         cfg.MaxRows,
		Overwrite:       policy,
		DisableRowCount: cfg.DisableRowCount || flags.noCount,
	}

	if changed("sheet") {
		if mode == types.ModeSheets {
			req.BaseSheetName = flags.sheet
		} else {
			req.SheetName = flags.sheet
		}
	}
	if changed("skip-rows") {
		req.SkipRows = flags.skipRows
	}
	if changed("chunk-size") {
		req.ChunkSize = flags.chunkSize
	}
	if changed("max-rows") {
		req.MaxRows = flags.maxRows
	}
	if mode == types.ModeSingle && !changed("max-rows") {
		// A single sheet always takes as many rows as the format allows.
		req.MaxRows = converter.DefaultMaxRows
	}

	return req, nil
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init registers the conversion commands with the root command.
func init() {
	rootCmd.AddCommand(convertCmd, sheetsCmd, splitCmd)
}
