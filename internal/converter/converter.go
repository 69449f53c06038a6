// =============================================================================
// CSV to XLSX Converter - Converter Module
// =============================================================================
//
// This module contains the core conversion logic. It orchestrates the entire
// conversion of a single file, from the row count to the final rename of the
// output files.
//
// CONVERSION PIPELINE:
//   1. Validate the request and check the input exists
//   2. Apply the overwrite policy to existing outputs
//   3. Pick the encodings to try (one if declared, candidates if auto)
//   4. For each encoding, run one attempt:
//      a. Count rows for progress reporting (advisory)
//      b. Read the input in batches
//      c. Allocate each batch to a sheet or file, rotating when full
//      d. Write the batch, with the header first in every fresh target
//      e. Move the staged output files into place
//   5. Stop at the first attempt that does not fail to decode
//
// Attempts are not incremental: each one writes fresh staging files, and a
// failed attempt removes them before the next one starts.
//
// CONCURRENCY:
//   A Converter runs one conversion synchronously. Batches are read and
//   written one at a time. Separate Converters may run concurrently as long
//   as their outputs differ.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/charset"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/csvparser"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/types"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/xlsxwriter"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/pkg/utils"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Outcome classifies how an attempt ended.
type Outcome int

const (
	// OutcomeSucceeded means the output was written and moved into place.
	OutcomeSucceeded Outcome = iota

	// OutcomeDecodeFailure means the input is not valid in the attempted
	// encoding. Another encoding may succeed.
	OutcomeDecodeFailure

	// OutcomeFatal means retrying under another encoding cannot help.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeDecodeFailure:
		return "decode failure"
	case OutcomeFatal:
		return "fatal"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Result represents the outcome of converting a single file.
type Result struct {
	// FilePath is the path to the input file.
	FilePath string

	// Outputs are the files written, in order. Empty if the run failed.
	Outputs []string

	// Targets are the sheet names (single, sheets) or file paths (files)
	// that received rows.
	Targets []string

	// Encoding is the encoding the input was read with.
	Encoding charset.Encoding

	// Success indicates whether the conversion completed.
	Success bool

	// Outcome is the outcome of the last attempt.
	Outcome Outcome

	// Error contains the error if the conversion failed.
	Error error

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the conversion.
type ProcessingStats struct {
	// RowsProcessed is the number of data rows written, header excluded.
	RowsProcessed int64

	// RowsExpected is the pre-scan estimate of data rows, or -1.
	RowsExpected int64

	// Attempts is the number of encodings tried.
	Attempts int

	// InputBytes and OutputBytes are the sizes of the input and of all
	// outputs together.
	InputBytes  int64
	OutputBytes int64

	// ProcessingTime is the time taken by the whole run.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Logger is the logging interface the converter writes to. *slog.Logger
// satisfies it; args are alternating keys and values.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// ProgressFunc is called after every batch with the data rows written so
// far, the estimated total (-1 if unknown) and the current target index.
type ProgressFunc func(processed, total int64, target int)

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l Logger) Option {
	return func(c *Converter) { c.logger = l }
}

// WithProgress sets the progress callback. Default: a log line per batch.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Converter) { c.progress = fn }
}

// WithConfirm sets the callback asked under OverwritePrompt. Without one,
// prompting declines.
func WithConfirm(fn ConfirmFunc) Option {
	return func(c *Converter) { c.confirm = fn }
}

// WithCandidates replaces the encodings tried in auto mode, skipping the
// charset sniff.
func WithCandidates(encs ...charset.Encoding) Option {
	return func(c *Converter) { c.candidates = encs }
}

// Converter converts one delimited file to XLSX.
type Converter struct {
	req        Request
	logger     Logger
	progress   ProgressFunc
	confirm    ConfirmFunc
	candidates []charset.Encoding
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter.
//
// PARAMETERS:
//   - req: The conversion request. Zero-valued fields get defaults.
//   - opts: Logger, progress and confirm callbacks.
//
// RETURNS:
//   - A new Converter instance. The request is validated by Run.
func New(req Request, opts ...Option) *Converter {
	req.applyDefaults()
	c := &Converter{
		req:    req,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.progress == nil {
		c.progress = c.logProgress
	}
	return c
}

// Request returns the request with defaults applied.
func (c *Converter) Request() Request {
	return c.req
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion.
//
// RETURNS:
//   - A Result. On failure Result.Error matches one of the Err* kinds and
//     no output path has been created or modified.
func (c *Converter) Run(ctx context.Context) Result {
	start := time.Now()
	result := Result{
		FilePath: c.req.Input,
		Outcome:  OutcomeFatal,
		Stats:    ProcessingStats{RowsExpected: -1},
	}
	fail := func(err error) Result {
		result.Error = err
		result.Stats.ProcessingTime = time.Since(start)
		c.logger.Error("conversion failed", "input", c.req.Input, "error", err)
		return result
	}

	// =========================================================================
	// STEP 1: VALIDATE
	// =========================================================================

	if err := c.req.Validate(); err != nil {
		return fail(err)
	}

	info, err := os.Stat(c.req.Input)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fail(newError(ErrInputNotFound, "open", c.req.Input, err))
		}
		return fail(newError(ErrInputRead, "open", c.req.Input, err))
	}
	if info.IsDir() {
		return fail(newError(ErrInputRead, "open", c.req.Input, errors.New("input is a directory")))
	}
	result.Stats.InputBytes = info.Size()

	c.logger.Info("converting file",
		"input", c.req.Input,
		"size", humanize.Bytes(uint64(info.Size())),
		"mode", string(c.req.Mode),
		"output", c.req.Output,
		"chunk_size", c.req.ChunkSize,
		"max_rows", c.req.MaxRows)

	// =========================================================================
	// STEP 2: OVERWRITE POLICY
	// =========================================================================

	existing, err := c.checkOverwrite()
	if err != nil {
		return fail(err)
	}

	// =========================================================================
	// STEP 3: NEGOTIATE ENCODING
	// =========================================================================

	encodings := c.encodings()
	var decodeErrs []error

	for i, enc := range encodings {
		if err := ctx.Err(); err != nil {
			return fail(newError(ErrCanceled, "convert", c.req.Input, err))
		}

		result.Stats.Attempts++
		c.logger.Debug("attempt state", "encoding", enc.String(), "state", "not started", "attempt", i+1, "of", len(encodings))

		att := c.attempt(ctx, enc)
		result.Outcome = att.outcome
		result.Stats.RowsExpected = att.expected

		switch att.outcome {
		case OutcomeSucceeded:
			result.Success = true
			result.Encoding = enc
			result.Outputs = att.outputs
			result.Targets = att.targets
			result.Stats.RowsProcessed = att.processed
			result.Stats.OutputBytes = utils.TotalSize(att.outputs)
			result.Stats.ProcessingTime = time.Since(start)
			c.removeStaleParts(existing, att.outputs)
			c.logSummary(result)
			return result

		case OutcomeDecodeFailure:
			decodeErrs = append(decodeErrs, att.err)
			if !c.req.Encoding.IsAuto() {
				return fail(att.err)
			}
			if i < len(encodings)-1 {
				c.logger.Warn("input is not valid in encoding, trying next",
					"encoding", enc.String(), "next", encodings[i+1].String(), "error", att.err)
			}

		default:
			return fail(att.err)
		}
	}

	return fail(newError(ErrNoViableEncoding, "negotiate", c.req.Input, errors.Join(decodeErrs...)))
}

// encodings returns the encodings to try, in order. In auto mode the order
// is always the fixed candidate list; the detector's guess is only logged.
func (c *Converter) encodings() []charset.Encoding {
	if !c.req.Encoding.IsAuto() {
		return []charset.Encoding{c.req.Encoding}
	}

	det, err := charset.Detect(c.req.Input)
	switch {
	case err != nil:
		c.logger.Debug("charset detection failed", "error", err)
	case !det.Supported():
		c.logger.Warn("input looks like an unsupported charset; conversion will likely fail",
			"charset", det.Charset, "confidence", det.Confidence)
	default:
		c.logger.Debug("charset detected", "charset", det.Charset, "confidence", det.Confidence)
	}

	if len(c.candidates) > 0 {
		return c.candidates
	}
	return charset.Candidates()
}

// =============================================================================
// ATTEMPT
// =============================================================================

// attemptResult is what one encoding attempt produced.
type attemptResult struct {
	outcome   Outcome
	err       error
	outputs   []string
	targets   []string
	processed int64
	expected  int64
}

// attempt runs the whole pipeline once under enc. Nothing is visible at the
// final output paths unless the outcome is OutcomeSucceeded.
func (c *Converter) attempt(ctx context.Context, enc charset.Encoding) attemptResult {
	res := attemptResult{outcome: OutcomeFatal, expected: -1}
	log := func(state string) {
		c.logger.Debug("attempt state", "encoding", enc.String(), "state", state)
	}

	stager := utils.NewStager()
	committed := false
	defer func() {
		if !committed {
			if err := stager.Discard(); err != nil {
				c.logger.Warn("failed to remove staged output", "error", err)
			}
		}
	}()

	// =========================================================================
	// COUNTING
	// =========================================================================

	log("counting")
	if !c.req.DisableRowCount {
		expected, err := c.countRows(enc)
		if err != nil {
			res.err = err
			log("failed fatal")
			return res
		}
		res.expected = expected
	}

	// =========================================================================
	// READING & WRITING
	// =========================================================================

	log("reading and writing")
	reader, err := csvparser.NewChunkReader(c.req.Input, csvparser.Settings{
		Delimiter: c.req.Delimiter,
		Encoding:  enc,
		SkipRows:  c.req.SkipRows,
		ChunkSize: c.req.ChunkSize,
	})
	if err != nil {
		res.outcome, res.err = c.classifyReadError(enc, err)
		log(res.outcome.String())
		return res
	}
	defer reader.Close()

	alloc := NewAllocator(c.req.MaxRows, c.req.Mode != types.ModeSingle)
	alloc.SetExpected(res.expected)
	if targets := alloc.ExpectedTargets(c.req.ChunkSize); targets > 0 && c.req.Mode != types.ModeSingle {
		c.logger.Info("expected targets", "count", targets)
		if c.req.Mode == types.ModeSheets {
			if err := xlsxwriter.ValidateSheetName(SheetName(c.req.BaseSheetName, int(targets))); err != nil {
				res.err = configError("%d sheets expected: %v", targets, err)
				log("failed fatal")
				return res
			}
		}
	}

	out := newSink(&c.req, stager)
	w := &batchWriter{sink: out, alloc: alloc, header: reader.Header()}
	abort := func(outcome Outcome, err error) attemptResult {
		out.Abort()
		res.outcome, res.err = outcome, err
		res.processed = alloc.Processed()
		log(outcome.String())
		return res
	}

	for reader.Next() {
		if err := ctx.Err(); err != nil {
			return abort(OutcomeFatal, newError(ErrCanceled, "convert", c.req.Input, err))
		}
		if err := w.Write(reader.Batch()); err != nil {
			return abort(OutcomeFatal, err)
		}
		c.progress(alloc.Processed(), alloc.Expected(), alloc.Target())
	}
	if err := reader.Err(); err != nil {
		outcome, err := c.classifyReadError(enc, err)
		return abort(outcome, err)
	}

	if err := w.Finish(); err != nil {
		return abort(OutcomeFatal, err)
	}
	if err := out.Close(); err != nil {
		return abort(OutcomeFatal, err)
	}
	if err := ctx.Err(); err != nil {
		return abort(OutcomeFatal, newError(ErrCanceled, "convert", c.req.Input, err))
	}

	// =========================================================================
	// COMMIT
	// =========================================================================

	outputs := stager.Finals()
	committed = true
	if err := stager.Commit(); err != nil {
		res.err = newError(ErrIOWrite, "commit", c.req.Output, err)
		log("failed fatal")
		return res
	}

	res.outcome = OutcomeSucceeded
	res.outputs = outputs
	res.targets = out.Targets()
	res.processed = alloc.Processed()
	log("succeeded")
	return res
}

// countRows runs the advisory pre-scan and converts the line count to an
// estimate of data rows. Only a missing input is an error.
func (c *Converter) countRows(enc charset.Encoding) (int64, error) {
	lines, err := csvparser.CountRows(c.req.Input, enc)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return -1, newError(ErrInputNotFound, "count", c.req.Input, err)
		}
		c.logger.Warn("row count unavailable, progress totals disabled", "error", err)
		return -1, nil
	}

	data := lines - int64(c.req.SkipRows) - 1
	if data < 0 {
		data = 0
	}
	c.logger.Info("estimated rows", "lines", humanize.Comma(lines), "data_rows", humanize.Comma(data))
	return data, nil
}

// classifyReadError maps a reader error to an attempt outcome.
func (c *Converter) classifyReadError(enc charset.Encoding, err error) (Outcome, error) {
	switch {
	case charset.IsDecodeError(err):
		return OutcomeDecodeFailure, newError(ErrDecode, "read "+enc.String(), c.req.Input, err)
	case errors.Is(err, os.ErrNotExist):
		return OutcomeFatal, newError(ErrInputNotFound, "read", c.req.Input, err)
	default:
		return OutcomeFatal, newError(ErrInputRead, "read", c.req.Input, err)
	}
}

// =============================================================================
// OVERWRITE POLICY
// =============================================================================

// existingOutputs lists output files that already exist. In files mode every
// "<prefix>_P<n>.xlsx" counts, whatever n.
func (c *Converter) existingOutputs() ([]string, error) {
	if c.req.Mode == types.ModeFiles {
		return utils.FindParts(c.req.Output)
	}
	if utils.FileExists(c.req.Output) {
		return []string{c.req.Output}, nil
	}
	return nil, nil
}

// checkOverwrite applies the overwrite policy and returns the outputs that
// will be replaced.
func (c *Converter) checkOverwrite() ([]string, error) {
	existing, err := c.existingOutputs()
	if err != nil {
		return nil, newError(ErrIOWrite, "check outputs", c.req.Output, err)
	}
	if len(existing) == 0 {
		return nil, nil
	}

	switch c.req.Overwrite {
	case OverwriteAlways:
		c.logger.Warn("overwriting existing output", "files", existing)
		return existing, nil

	case OverwritePrompt:
		if c.confirm == nil {
			return nil, newError(ErrOverwriteDeclined, "confirm", existing[0], errors.New("no confirmation available"))
		}
		ok, err := c.confirm(existing)
		if err != nil {
			return nil, newError(ErrOverwriteDeclined, "confirm", existing[0], err)
		}
		if !ok {
			return nil, newError(ErrOverwriteDeclined, "confirm", existing[0], nil)
		}
		return existing, nil

	default:
		return nil, newError(ErrOutputExists, "check outputs", existing[0],
			fmt.Errorf("%d existing file(s); choose another output or allow overwriting", len(existing)))
	}
}

// removeStaleParts deletes outputs the user agreed to replace that this run
// did not rewrite, such as May_P3.xlsx after a run that produced two parts.
func (c *Converter) removeStaleParts(existing, outputs []string) {
	written := make(map[string]bool, len(outputs))
	for _, o := range outputs {
		written[o] = true
	}
	for _, e := range existing {
		if written[e] {
			continue
		}
		if err := os.Remove(e); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("failed to remove file from an earlier run", "file", e, "error", err)
			continue
		}
		c.logger.Info("removed file from an earlier run", "file", e)
	}
}

// =============================================================================
// REPORTING
// =============================================================================

// logProgress is the default ProgressFunc.
func (c *Converter) logProgress(processed, total int64, target int) {
	if total > 0 {
		pct := float64(processed) / float64(total) * 100
		if pct > 100 {
			pct = 100
		}
		c.logger.Info("progress",
			"rows", humanize.Comma(processed),
			"total", humanize.Comma(total),
			"percent", fmt.Sprintf("%.1f", pct),
			"target", target)
		return
	}
	c.logger.Info("progress", "rows", humanize.Comma(processed), "target", target)
}

// logSummary logs the final statistics of a successful run.
func (c *Converter) logSummary(r Result) {
	rate := 0.0
	if secs := r.Stats.ProcessingTime.Seconds(); secs > 0 {
		rate = float64(r.Stats.RowsProcessed) / secs
	}
	c.logger.Info("conversion complete",
		"input", r.FilePath,
		"encoding", r.Encoding.String(),
		"rows", humanize.Comma(r.Stats.RowsProcessed),
		"targets", len(r.Targets),
		"outputs", r.Outputs,
		"output_size", humanize.Bytes(uint64(r.Stats.OutputBytes)),
		"duration", r.Stats.ProcessingTime.Round(time.Millisecond).String(),
		"rows_per_second", humanize.Commaf(float64(int64(rate))))
}
