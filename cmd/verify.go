// =============================================================================
// CSV to XLSX Converter - Verify Command
// =============================================================================
//
// This file defines the 'verify' command, which reads a finished conversion
// back and compares it with its source, cell by cell.
//
// COMMAND USAGE:
//   csv2xlsx verify <file.csv> [output.xlsx...] [flags]
//
// Outputs default to what a conversion of the file would have produced:
// <file>.xlsx if it exists, otherwise <file>_P1.xlsx, <file>_P2.xlsx, ...
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/charset"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/converter"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/csvparser"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/types"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/validation"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/pkg/utils"
	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var verifyFlags struct {
	delimiter string
	encoding  string
	skipRows  int
	maxRows   int
	maxErrors int
	report    string
}

// errVerificationFailed is returned when the outputs differ from the source.
var errVerificationFailed = errors.New("outputs differ from the source")

// =============================================================================
// VERIFY COMMAND DEFINITION
// =============================================================================

var verifyCmd = &cobra.Command{
	Use:   "verify <file.csv> [output.xlsx...]",
	Short: "Compare converted workbooks with their source file",
	Long: `Read the source file and the converted workbooks and check that every
sheet starts with the header and that every data row appears, in order, with
the same cell values. Exits with status 1 when a difference is found.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(cmd, args[0], args[1:])
	},
}

// runVerify verifies one conversion.
func runVerify(cmd *cobra.Command, input string, outputs []string) error {
	cfg := appConfig

	delimiter := cfg.Delimiter
	if cmd.Flags().Changed("delimiter") {
		delimiter = verifyFlags.delimiter
	}
	delim, err := csvparser.ParseDelimiter(delimiter)
	if err != nil {
		return err
	}

	encoding := cfg.Encoding
	if cmd.Flags().Changed("encoding") {
		encoding = verifyFlags.encoding
	}
	enc, err := charset.Parse(encoding)
	if err != nil {
		return err
	}

	skipRows := cfg.SkipRows
	if cmd.Flags().Changed("skip-rows") {
		skipRows = verifyFlags.skipRows
	}

	if len(outputs) == 0 {
		outputs, err = defaultOutputs(input)
		if err != nil {
			return err
		}
	}

	settings := csvparser.Settings{Delimiter: delim, SkipRows: skipRows, ChunkSize: cfg.ChunkSize}
	options := validation.ValidationOptions{MaxErrors: verifyFlags.maxErrors, MaxRows: verifyFlags.maxRows}

	result, err := verifyWithEncodings(cmd.Context(), input, outputs, settings, options, enc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Compared %s row(s) of %s with %d sheet(s) in %s\n",
		humanize.Comma(result.RowsCompared), input, result.Targets, joinNames(outputs))
	fmt.Fprint(out, validation.FormatErrors(result))

	if verifyFlags.report != "" {
		if err := validation.WriteErrorLog(result, input, verifyFlags.report); err != nil {
			return err
		}
		logger.Info("wrote verification report", "path", verifyFlags.report)
	}

	if !result.IsValid {
		return errVerificationFailed
	}
	return nil
}

// verifyWithEncodings reads the source under enc, or under each auto
// candidate in turn until one decodes it.
func verifyWithEncodings(ctx context.Context, input string, outputs []string, settings csvparser.Settings, options validation.ValidationOptions, enc charset.Encoding) (*validation.ValidationResult, error) {
	encodings := []charset.Encoding{enc}
	if enc.IsAuto() {
		encodings = charset.Candidates()
	}

	var lastErr error
	for _, e := range encodings {
		settings.Encoding = e
		result, err := validation.NewValidator(settings, options).Validate(ctx, input, outputs)
		if err == nil {
			logger.Debug("source decoded", "encoding", e.String())
			return result, nil
		}
		if !charset.IsDecodeError(err) {
			return nil, err
		}
		lastErr = err
		logger.Debug("source is not valid in encoding", "encoding", e.String(), "error", err)
	}
	return nil, fmt.Errorf("%w: %v", converter.ErrNoViableEncoding, lastErr)
}

// defaultOutputs finds the outputs a conversion of input would produce.
func defaultOutputs(input string) ([]string, error) {
	single := converter.DefaultOutput(input, types.ModeSingle)
	if utils.FileExists(single) {
		return []string{single}, nil
	}

	parts, err := utils.FindParts(converter.DefaultOutput(input, types.ModeFiles))
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("no outputs found for %s; name them after the input file", input)
	}
	return parts, nil
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init registers the verify command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(verifyCmd)

	f := verifyCmd.Flags()
	f.StringVarP(&verifyFlags.delimiter, "delimiter", "d", "", `Field separator (default ",")`)
	f.StringVarP(&verifyFlags.encoding, "encoding", "e", "", "Source encoding (default auto)")
	f.IntVar(&verifyFlags.skipRows, "skip-rows", 0, "Lines to drop before the header")
	f.IntVarP(&verifyFlags.maxRows, "max-rows", "r", 0, "Also check that no sheet holds more data rows than this")
	f.IntVar(&verifyFlags.maxErrors, "max-errors", 100, "Stop after this many differences")
	f.StringVar(&verifyFlags.report, "report", "", "Write the list of differences to this file")
}
