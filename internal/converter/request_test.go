package converter

import (
	"errors"
	"strings"
	"testing"

	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/types"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/xlsxwriter"
)

func TestRequestDefaults(t *testing.T) {
	c := New(Request{Input: "data/May.csv", Mode: types.ModeFiles})
	req := c.Request()

	if req.Output != "data/May" {
		t.Errorf("Output = %q, want data/May", req.Output)
	}
	if req.ChunkSize != DefaultChunkSize {
		t.Errorf("ChunkSize = %d", req.ChunkSize)
	}
	if req.MaxRows != 1048575 {
		t.Errorf("MaxRows = %d, want 1048575", req.MaxRows)
	}
	if req.Delimiter != ',' {
		t.Errorf("Delimiter = %q", req.Delimiter)
	}
	if req.Overwrite != OverwriteFail {
		t.Errorf("Overwrite = %q", req.Overwrite)
	}
	if err := req.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	single := New(Request{Input: "report.txt"}).Request()
	if single.Mode != types.ModeSingle || single.Output != "report.xlsx" {
		t.Errorf("single defaults: mode %q output %q", single.Mode, single.Output)
	}
}

func TestRequestValidate(t *testing.T) {
	valid := func() Request {
		r := Request{Input: "in.csv"}
		r.applyDefaults()
		return r
	}

	tests := []struct {
		name   string
		modify func(r *Request)
	}{
		{"missing input", func(r *Request) { r.Input = "" }},
		{"unknown mode", func(r *Request) { r.Mode = "pages" }},
		{"negative skip", func(r *Request) { r.SkipRows = -1 }},
		{"negative chunk", func(r *Request) { r.ChunkSize = -5 }},
		{"max above sheet limit", func(r *Request) { r.MaxRows = DefaultMaxRows + 1 }},
		{"chunk above max", func(r *Request) { r.ChunkSize = 30; r.MaxRows = 20 }},
		{"quote delimiter", func(r *Request) { r.Delimiter = '"' }},
		{"bad overwrite policy", func(r *Request) { r.Overwrite = "sometimes" }},
		{"bad sheet name", func(r *Request) { r.SheetName = "a/b" }},
		{"bad base sheet name", func(r *Request) { r.Mode = types.ModeSheets; r.BaseSheetName = "this base name is much too long" }},
		{"base sheet name without room for numbers", func(r *Request) { r.Mode = types.ModeSheets; r.BaseSheetName = strings.Repeat("x", 29) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid()
			tt.modify(&r)
			if err := r.Validate(); !errors.Is(err, ErrConfiguration) {
				t.Errorf("expected ErrConfiguration, got %v", err)
			}
		})
	}
}

func TestBaseSheetNameLength(t *testing.T) {
	r := Request{Input: "in.csv", Mode: types.ModeSheets, BaseSheetName: strings.Repeat("x", MaxBaseSheetNameLength)}
	r.applyDefaults()
	if err := r.Validate(); err != nil {
		t.Fatalf("base of %d characters rejected: %v", MaxBaseSheetNameLength, err)
	}
	if err := xlsxwriter.ValidateSheetName(SheetName(r.BaseSheetName, maxReservedSheetIndex)); err != nil {
		t.Errorf("longest accepted base has no room for sheet %d: %v", maxReservedSheetIndex, err)
	}
}

func TestTargetNames(t *testing.T) {
	if got := SheetName("Dados", 2); got != "Dados2" {
		t.Errorf("SheetName = %q", got)
	}
	if got := PartFileName("May", 1); got != "May_P1.xlsx" {
		t.Errorf("PartFileName = %q", got)
	}
	if got := DefaultOutput("/tmp/a.b.csv", types.ModeSheets); got != "/tmp/a.b.xlsx" {
		t.Errorf("DefaultOutput = %q", got)
	}
}

func TestParseOverwritePolicy(t *testing.T) {
	for in, want := range map[string]OverwritePolicy{
		"":          OverwriteFail,
		"fail":      OverwriteFail,
		"Overwrite": OverwriteAlways,
		" prompt ":  OverwritePrompt,
	} {
		got, err := ParseOverwritePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseOverwritePolicy(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseOverwritePolicy("ask"); err == nil {
		t.Error("expected error for unknown policy")
	}
}
