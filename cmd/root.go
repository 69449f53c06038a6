// =============================================================================
// CSV to XLSX Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (csv2xlsx)
//   ├── convertCmd (csv2xlsx convert)  one file, one sheet
//   ├── sheetsCmd  (csv2xlsx sheets)   one file, overflow into sheets
//   ├── splitCmd   (csv2xlsx split)    overflow into files
//   ├── verifyCmd  (csv2xlsx verify)   compare outputs with the source
//   └── versionCmd (csv2xlsx version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --verbose, --log-file, --log-format)
//   2. Loading the configuration file
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/config"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/logging"
	"github.com/spf13/cobra"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// logFile and logFormat override the configuration file's logging settings.
var (
	logFile   string
	logFormat string
)

// appConfig is the loaded configuration, set before any subcommand runs.
var appConfig *config.Config

// logger is the application logger, set before any subcommand runs.
var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// logCloser releases the log file, if one was opened.
var logCloser io.Closer

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "csv2xlsx",
	Short: "Convert large CSV files to Excel workbooks",
	Long: `csv2xlsx converts delimited text files into XLSX workbooks. Input is read
and written in chunks, so files of several gigabytes convert with flat memory
use.

When a file has more rows than a worksheet can hold, choose how to overflow:
  convert  one workbook, one sheet (fails if the rows do not fit)
  sheets   one workbook, new sheet Dados1, Dados2, ... when a sheet is full
  split    new workbook name_P1.xlsx, name_P2.xlsx, ... when a file is full

Key Features:
  - Automatic encoding detection (UTF-8, Windows-1252, ISO-8859-1)
  - Every cell is kept as text: leading zeros and formulas are not touched
  - Output only appears once the whole conversion has succeeded
  - Round-trip verification of finished conversions

Example Usage:
  csv2xlsx convert data.csv                    # writes data.xlsx
  csv2xlsx sheets data.csv -d ";" -s Vendas    # sheets Vendas1, Vendas2, ...
  csv2xlsx split data.csv -r 500000            # data_P1.xlsx, data_P2.xlsx, ...
  csv2xlsx verify data.csv data.xlsx`,

	SilenceUsage:  true,
	SilenceErrors: true,

	// PersistentPreRunE loads the configuration and sets up logging for
	// every subcommand.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp(cmd)
	},

	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
			logCloser = nil
		}
	},

	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print the help message.
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
//
// SIGINT and SIGTERM cancel the running conversion; its staged output is
// removed before the process exits.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Execute the root command. If there's an error, print it and exit.
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// initApp loads the configuration file and builds the logger.
func initApp(cmd *cobra.Command) error {
	cfg, err := config.Load(cfgFile, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}

	if logFile != "" {
		cfg.LogFile = logFile
	}
	if logFormat != "" {
		if !logging.ValidFormat(logFormat) {
			return fmt.Errorf("unknown log format %q (use text or json)", logFormat)
		}
		cfg.LogFormat = logFormat
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	l, closer, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	appConfig = cfg
	logger = l
	logCloser = closer
	return nil
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init sets up the global flags.
func init() {
	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================
	// Persistent flags are available to this command and all subcommands.

	// --config flag: Allows the user to specify a configuration file.
	// A missing csv2xlsx.yaml is fine; a missing file named here is not.
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultPath,
		"Path to the configuration file",
	)

	// --verbose flag: Enables debug logging.
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)

	// --log-file flag: Also append log records to this file.
	rootCmd.PersistentFlags().StringVar(
		&logFile,
		"log-file",
		"",
		"Append log records to this file",
	)

	// --log-format flag: text or json.
	rootCmd.PersistentFlags().StringVar(
		&logFormat,
		"log-format",
		"",
		"Log format: text or json (default from config, text)",
	)
}
