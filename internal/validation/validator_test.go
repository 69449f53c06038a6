package validation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/charset"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/converter"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/csvparser"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/types"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/xlsxwriter"
)

const source = "id,name,note\n1,Ana,\n2,\"Silva, J\",=A1\n3,,x\n4,007,\n"

func writeSource(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "in.csv")
	if err := os.WriteFile(path, []byte(source), 0644); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}
	return dir, path
}

func settings() csvparser.Settings {
	return csvparser.Settings{Delimiter: ',', Encoding: charset.UTF8, ChunkSize: 2}
}

// buildWorkbook writes one sheet per entry, in order.
func buildWorkbook(t *testing.T, path string, sheets ...[]types.Row) {
	t.Helper()
	wb := xlsxwriter.NewWorkbook(path)
	for i, rows := range sheets {
		if err := wb.AddSheet(fmt.Sprintf("Dados%d", i+1)); err != nil {
			t.Fatalf("AddSheet failed: %v", err)
		}
		if err := wb.WriteRows(rows); err != nil {
			t.Fatalf("WriteRows failed: %v", err)
		}
	}
	if err := wb.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

var header = types.Row{"id", "name", "note"}

func TestValidateConvertedOutput(t *testing.T) {
	for _, mode := range []types.Mode{types.ModeSingle, types.ModeSheets, types.ModeFiles} {
		t.Run(string(mode), func(t *testing.T) {
			_, input := writeSource(t)

			result := converter.New(converter.Request{
				Input:     input,
				Mode:      mode,
				Encoding:  charset.UTF8,
				ChunkSize: 1,
				MaxRows:   3,
			}, converter.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).Run(context.Background())
			if mode == types.ModeSingle {
				// Four data rows do not fit one sheet of three.
				if result.Success {
					t.Fatal("single mode should overflow")
				}
				return
			}
			if !result.Success {
				t.Fatalf("conversion failed: %v", result.Error)
			}

			v := NewValidator(settings(), ValidationOptions{MaxRows: 3})
			report, err := v.Validate(context.Background(), input, result.Outputs)
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			if !report.IsValid {
				t.Fatalf("unexpected differences:\n%s", FormatErrors(report))
			}
			if report.RowsCompared != 4 || report.Targets != 2 {
				t.Errorf("compared %d rows in %d sheets, want 4 in 2", report.RowsCompared, report.Targets)
			}
		})
	}
}

func TestValidateDifferences(t *testing.T) {
	rows := []types.Row{
		{"1", "Ana"},
		{"2", "Silva, J", "=A1"},
		{"3", "", "x"},
		{"4", "007"},
	}

	tests := []struct {
		name   string
		sheets [][]types.Row
		rules  []string
	}{
		{
			name:   "identical",
			sheets: [][]types.Row{append([]types.Row{header}, rows...)},
		},
		{
			name:   "changed cell",
			sheets: [][]types.Row{{header, rows[0], {"2", "Silva J", "=A1"}, rows[2], rows[3]}},
			rules:  []string{"cell"},
		},
		{
			name:   "missing row",
			sheets: [][]types.Row{{header, rows[0], rows[1], rows[2]}},
			rules:  []string{"missing"},
		},
		{
			name:   "extra rows",
			sheets: [][]types.Row{append([]types.Row{header}, rows...), {header, {"5"}, {"6"}}},
			rules:  []string{"extra"},
		},
		{
			name:   "wrong header on second sheet",
			sheets: [][]types.Row{{header, rows[0], rows[1]}, {{"ID", "NAME", "NOTE"}, rows[2], rows[3]}},
			rules:  []string{"header"},
		},
		{
			name:   "sheet over limit",
			sheets: [][]types.Row{append([]types.Row{header}, rows...)},
			rules:  []string{"limit"},
		},
		{
			name:   "extra cell",
			sheets: [][]types.Row{{header, {"1", "Ana", "", "?"}, rows[1], rows[2], rows[3]}},
			rules:  []string{"width"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, input := writeSource(t)
			output := filepath.Join(dir, "out.xlsx")
			buildWorkbook(t, output, tt.sheets...)

			opts := DefaultValidationOptions()
			if tt.name == "sheet over limit" {
				opts.MaxRows = 3
			}
			report, err := NewValidator(settings(), opts).Validate(context.Background(), input, []string{output})
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}

			var rules []string
			for _, e := range report.Errors {
				rules = append(rules, e.Rule)
			}
			if strings.Join(rules, ",") != strings.Join(tt.rules, ",") {
				t.Errorf("rules = %v, want %v\n%s", rules, tt.rules, FormatErrors(report))
			}
			if report.IsValid != (len(tt.rules) == 0) {
				t.Errorf("IsValid = %v", report.IsValid)
			}
		})
	}
}

func TestValidateMaxErrors(t *testing.T) {
	dir, input := writeSource(t)
	output := filepath.Join(dir, "out.xlsx")
	buildWorkbook(t, output, []types.Row{header, {"a"}, {"b"}, {"c"}, {"d"}})

	report, err := NewValidator(settings(), ValidationOptions{MaxErrors: 2}).Validate(context.Background(), input, []string{output})
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(report.Errors) != 2 || !report.Truncated {
		t.Errorf("errors = %d, truncated = %v", len(report.Errors), report.Truncated)
	}
}

func TestWriteErrorLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")
	result := &ValidationResult{Errors: []*ValidationError{{Rule: "missing", Message: "output ends early"}}}

	if err := WriteErrorLog(result, "in.csv", path); err != nil {
		t.Fatalf("WriteErrorLog failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	for _, want := range []string{"in.csv", "[MISSING] output: output ends early"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("report does not contain %q:\n%s", want, data)
		}
	}
}
