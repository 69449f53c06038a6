package cmd

import (
	"testing"

	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/charset"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/config"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/converter"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/types"
)

// setFlags reports the named flags as changed.
func setFlags(names ...string) func(string) bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return func(name string) bool { return set[name] }
}

func TestBuildRequestDefaults(t *testing.T) {
	req, err := buildRequest(config.Default(), types.ModeSheets, "in.csv", &conversionFlags{}, setFlags())
	if err != nil {
		t.Fatalf("buildRequest failed: %v", err)
	}

	if req.Input != "in.csv" || req.Mode != types.ModeSheets {
		t.Errorf("input/mode = %s/%s", req.Input, req.Mode)
	}
	if req.Delimiter != ',' {
		t.Errorf("Delimiter = %q", req.Delimiter)
	}
	if req.Encoding != charset.Auto {
		t.Errorf("Encoding = %v, want auto", req.Encoding)
	}
	if req.ChunkSize != converter.DefaultChunkSize {
		t.Errorf("ChunkSize = %d", req.ChunkSize)
	}
	if req.MaxRows != converter.DefaultMaxRows {
		t.Errorf("MaxRows = %d", req.MaxRows)
	}
	if req.BaseSheetName != converter.DefaultBaseSheetName {
		t.Errorf("BaseSheetName = %q", req.BaseSheetName)
	}
	if req.Overwrite != converter.OverwritePrompt {
		t.Errorf("Overwrite = %q, want prompt", req.Overwrite)
	}
}

func TestBuildRequestFlags(t *testing.T) {
	cfg := config.Default()
	cfg.Delimiter = ";"
	cfg.MaxRows = 500

	tests := []struct {
		name    string
		mode    types.Mode
		flags   conversionFlags
		changed []string
		check   func(t *testing.T, req converter.Request)
	}{
		{
			name: "config values apply",
			mode: types.ModeFiles,
			check: func(t *testing.T, req converter.Request) {
				if req.Delimiter != ';' || req.MaxRows != 500 {
					t.Errorf("delimiter/max = %q/%d", req.Delimiter, req.MaxRows)
				}
			},
		},
		{
			name:    "flags override config",
			mode:    types.ModeFiles,
			flags:   conversionFlags{delimiter: "tab", maxRows: 20, chunkSize: 10, skipRows: 2, encoding: "latin1"},
			changed: []string{"delimiter", "max-rows", "chunk-size", "skip-rows", "encoding"},
			check: func(t *testing.T, req converter.Request) {
				if req.Delimiter != '\t' || req.MaxRows != 20 || req.ChunkSize != 10 || req.SkipRows != 2 {
					t.Errorf("got %+v", req)
				}
				if req.Encoding != charset.ISO8859_1 {
					t.Errorf("Encoding = %v", req.Encoding)
				}
			},
		},
		{
			name:  "unchanged flags are ignored",
			mode:  types.ModeFiles,
			flags: conversionFlags{delimiter: "|", maxRows: 7},
			check: func(t *testing.T, req converter.Request) {
				if req.Delimiter != ';' || req.MaxRows != 500 {
					t.Errorf("delimiter/max = %q/%d", req.Delimiter, req.MaxRows)
				}
			},
		},
		{
			name: "single mode takes the sheet limit",
			mode: types.ModeSingle,
			check: func(t *testing.T, req converter.Request) {
				if req.MaxRows != converter.DefaultMaxRows {
					t.Errorf("MaxRows = %d", req.MaxRows)
				}
			},
		},
		{
			name:    "single mode with explicit max",
			mode:    types.ModeSingle,
			flags:   conversionFlags{maxRows: 30},
			changed: []string{"max-rows"},
			check: func(t *testing.T, req converter.Request) {
				if req.MaxRows != 30 {
					t.Errorf("MaxRows = %d", req.MaxRows)
				}
			},
		},
		{
			name:    "sheet flag names the prefix in sheets mode",
			mode:    types.ModeSheets,
			flags:   conversionFlags{sheet: "Vendas"},
			changed: []string{"sheet"},
			check: func(t *testing.T, req converter.Request) {
				if req.BaseSheetName != "Vendas" || req.SheetName != converter.DefaultSheetName {
					t.Errorf("sheet/base = %q/%q", req.SheetName, req.BaseSheetName)
				}
			},
		},
		{
			name:    "sheet flag names the sheet in split mode",
			mode:    types.ModeFiles,
			flags:   conversionFlags{sheet: "Data", output: "out/May"},
			changed: []string{"sheet", "output"},
			check: func(t *testing.T, req converter.Request) {
				if req.SheetName != "Data" || req.Output != "out/May" {
					t.Errorf("sheet/output = %q/%q", req.SheetName, req.Output)
				}
			},
		},
		{
			name:    "yes overrides the policy",
			mode:    types.ModeSingle,
			flags:   conversionFlags{overwrite: "fail", yes: true},
			changed: []string{"overwrite", "yes"},
			check: func(t *testing.T, req converter.Request) {
				if req.Overwrite != converter.OverwriteAlways {
					t.Errorf("Overwrite = %q", req.Overwrite)
				}
			},
		},
		{
			name:    "no-count",
			mode:    types.ModeSingle,
			flags:   conversionFlags{noCount: true},
			changed: []string{"no-count"},
			check: func(t *testing.T, req converter.Request) {
				if !req.DisableRowCount {
					t.Error("DisableRowCount not set")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := buildRequest(cfg, tt.mode, "in.csv", &tt.flags, setFlags(tt.changed...))
			if err != nil {
				t.Fatalf("buildRequest failed: %v", err)
			}
			tt.check(t, req)
		})
	}
}

func TestBuildRequestErrors(t *testing.T) {
	tests := []struct {
		name    string
		flags   conversionFlags
		changed string
	}{
		{"bad delimiter", conversionFlags{delimiter: "ab"}, "delimiter"},
		{"bad encoding", conversionFlags{encoding: "ebcdic"}, "encoding"},
		{"bad overwrite", conversionFlags{overwrite: "maybe"}, "overwrite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildRequest(nil, types.ModeSingle, "in.csv", &tt.flags, setFlags(tt.changed))
			if err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCheckDistinctOutputs(t *testing.T) {
	tests := []struct {
		name     string
		requests []converter.Request
		wantErr  bool
	}{
		{
			name: "different inputs",
			requests: []converter.Request{
				{Input: "a.csv", Mode: types.ModeSingle},
				{Input: "b.csv", Mode: types.ModeSingle},
			},
		},
		{
			name: "same default output",
			requests: []converter.Request{
				{Input: "a.csv", Mode: types.ModeSingle},
				{Input: "a.tsv", Mode: types.ModeSingle},
			},
			wantErr: true,
		},
		{
			name: "same split prefix",
			requests: []converter.Request{
				{Input: "data/May.csv", Mode: types.ModeFiles},
				{Input: "data/./May.txt", Mode: types.ModeFiles},
			},
			wantErr: true,
		},
		{
			name: "explicit output clashes with a default",
			requests: []converter.Request{
				{Input: "a.csv", Mode: types.ModeSingle, Output: "b.xlsx"},
				{Input: "b.csv", Mode: types.ModeSingle},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkDistinctOutputs(tt.requests)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkDistinctOutputs() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
