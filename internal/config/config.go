// =============================================================================
// CSV to XLSX Converter - Configuration Module
// =============================================================================
//
// This module loads the optional YAML configuration file. Every key has a
// default, so the converter runs without any file; command-line flags
// override whatever the file sets.
//
// CONFIGURATION FILE:
//   csv2xlsx.yaml in the working directory, or the path given with --config.
//   A missing default file is not an error. A missing explicit file is.
//
// EXAMPLE:
//
//	delimiter: ";"
//	encoding: auto
//	skip_rows: 0
//	chunk_size: 10000
//	base_sheet_name: Dados
//	overwrite: prompt
//	log_level: info
//
// =============================================================================

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/charset"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/converter"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/csvparser"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/logging"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked for when none is given.
const DefaultPath = "csv2xlsx.yaml"

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// =========================================================================
	// CSV SETTINGS
	// =========================================================================

	// Delimiter is the field separator: a single character, or "tab",
	// "pipe", "semicolon", "comma", "space".
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Encoding of the input files. "auto" tries UTF-8, then Windows-1252,
	// then ISO-8859-1.
	// Default: "auto"
	Encoding string `yaml:"encoding"`

	// SkipRows is the number of lines dropped before the header.
	// Default: 0
	SkipRows int `yaml:"skip_rows"`

	// =========================================================================
	// OUTPUT SETTINGS
	// =========================================================================

	// ChunkSize is the number of rows read and written per batch.
	// Larger chunks are faster and use more memory.
	// Default: 10000
	ChunkSize int `yaml:"chunk_size"`

	// MaxRows is the number of data rows per sheet (sheets mode) or per
	// file (split mode). The header is repeated in every target.
	// Default: 1048575, the worksheet limit minus the header row
	MaxRows int `yaml:"max_rows"`

	// SheetName names the sheet in convert and split mode.
	// Default: "Sheet1"
	SheetName string `yaml:"sheet_name"`

	// BaseSheetName prefixes the numbered sheets in sheets mode.
	// Default: "Dados"
	BaseSheetName string `yaml:"base_sheet_name"`

	// Overwrite is what happens to existing outputs: "prompt", "overwrite"
	// or "fail".
	// Default: "prompt"
	Overwrite string `yaml:"overwrite"`

	// DisableRowCount skips the pre-scan used for progress percentages.
	// Useful for very large files on slow disks.
	// Default: false
	DisableRowCount bool `yaml:"disable_row_count"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogFile is appended to in addition to standard error when set.
	LogFile string `yaml:"log_file"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" or "json".
	// Default: "text"
	LogFormat string `yaml:"log_format"`
}

// =============================================================================
// CONFIGURATION LOADING
// =============================================================================

// Default returns the configuration used when no file is present.
func Default() *Config {
	var config Config
	applyDefaults(&config)
	return &config
}

// Load loads the configuration file.
//
// PARAMETERS:
//   - configPath: The path to the configuration file.
//   - explicit: Whether the user named the file. A missing file that was
//     not named explicitly yields the defaults.
//
// RETURNS:
//   - A pointer to the Config struct, with defaults applied.
//   - An error if the file cannot be read, parsed or validated.
func Load(configPath string, explicit bool) (*Config, error) {
	// Read the configuration file.
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse the YAML. Unknown keys are rejected so typos do not go unnoticed.
	var config Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&config); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply default values.
	applyDefaults(&config)

	// Validate the configuration.
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(config *Config) {
	if config.Delimiter == "" {
		config.Delimiter = ","
	}
	if config.Encoding == "" {
		config.Encoding = charset.Auto.String()
	}
	if config.ChunkSize == 0 {
		config.ChunkSize = converter.DefaultChunkSize
	}
	if config.MaxRows == 0 {
		config.MaxRows = converter.DefaultMaxRows
	}
	if config.SheetName == "" {
		config.SheetName = converter.DefaultSheetName
	}
	if config.BaseSheetName == "" {
		config.BaseSheetName = converter.DefaultBaseSheetName
	}
	if config.Overwrite == "" {
		config.Overwrite = string(converter.OverwritePrompt)
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.LogFormat == "" {
		config.LogFormat = "text"
	}
}

// Validate checks every value that can be checked without an input file.
// Values that also come from flags are validated again after merging.
func (c *Config) Validate() error {
	if _, err := csvparser.ParseDelimiter(c.Delimiter); err != nil {
		return err
	}
	if _, err := charset.Parse(c.Encoding); err != nil {
		return err
	}
	if c.SkipRows < 0 {
		return fmt.Errorf("skip_rows must not be negative, got %d", c.SkipRows)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.MaxRows <= 0 || c.MaxRows > converter.DefaultMaxRows {
		return fmt.Errorf("max_rows must be between 1 and %d, got %d", converter.DefaultMaxRows, c.MaxRows)
	}
	if _, err := converter.ParseOverwritePolicy(c.Overwrite); err != nil {
		return err
	}
	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	if !logging.ValidFormat(c.LogFormat) {
		return fmt.Errorf("unknown log_format %q (use text or json)", c.LogFormat)
	}
	return nil
}
