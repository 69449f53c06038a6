// =============================================================================
// CSV to XLSX Converter - Main Entry Point
// =============================================================================
//
// USAGE:
//   csv2xlsx convert <file.csv>   - One workbook, one sheet
//   csv2xlsx sheets <file.csv>    - One workbook, overflow into new sheets
//   csv2xlsx split <file.csv>     - Overflow into new workbooks
//   csv2xlsx verify <file.csv>    - Compare outputs with their source
//   csv2xlsx version              - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Conversion engine, reading, writing and verification
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/cmd"
)

func main() {
	cmd.Execute()
}
