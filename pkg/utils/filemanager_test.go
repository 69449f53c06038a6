package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

func TestStagerCommit(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "out.xlsx")
	writeFile(t, final, "old")

	s := NewStager()
	temp := s.Stage(final)

	if filepath.Dir(temp) != dir {
		t.Errorf("staging file %s is not beside %s", temp, final)
	}
	base := filepath.Base(temp)
	if !strings.HasPrefix(base, ".out.") || !strings.HasSuffix(base, ".tmp.xlsx") {
		t.Errorf("unexpected staging name %q", base)
	}
	if temp == s.Stage(filepath.Join(dir, "out.xlsx")) {
		t.Error("staging names must be unique")
	}

	writeFile(t, temp, "new")
	if got := readFile(t, final); got != "old" {
		t.Errorf("final path changed before commit: %q", got)
	}

	// The second staged file was never written; Commit must fail on it and
	// leave the first one committed.
	if err := s.Commit(); err == nil {
		t.Fatal("expected error for unwritten staging file")
	}
	if got := readFile(t, final); got != "new" {
		t.Errorf("final = %q, want new", got)
	}
}

func TestStagerDiscard(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "out.xlsx")
	writeFile(t, final, "old")

	s := NewStager()
	writeFile(t, s.Stage(final), "new")
	s.Stage(filepath.Join(dir, "never-written.xlsx"))

	if err := s.Discard(); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want only out.xlsx", len(entries))
	}
	if got := readFile(t, final); got != "old" {
		t.Errorf("final = %q, want old", got)
	}
	if !reflect.DeepEqual(s.Finals(), []string{}) {
		t.Errorf("Finals after Discard = %v", s.Finals())
	}
}

func TestFindParts(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"May_P10.xlsx", "May_P2.xlsx", "May_P1.xlsx", "May_Px.xlsx", "May.xlsx", "Mayo_P1.xlsx", "May_P3.csv"} {
		writeFile(t, filepath.Join(dir, name), "")
	}

	got, err := FindParts(filepath.Join(dir, "May"))
	if err != nil {
		t.Fatalf("FindParts failed: %v", err)
	}
	want := []string{
		filepath.Join(dir, "May_P1.xlsx"),
		filepath.Join(dir, "May_P2.xlsx"),
		filepath.Join(dir, "May_P10.xlsx"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FindParts = %v, want %v", got, want)
	}

	none, err := FindParts(filepath.Join(dir, "missing", "x"))
	if err != nil || len(none) != 0 {
		t.Errorf("FindParts in missing dir = %v, %v", none, err)
	}
}

func TestTotalSize(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	writeFile(t, a, "12345")

	if got := TotalSize([]string{a, filepath.Join(dir, "missing")}); got != 5 {
		t.Errorf("TotalSize = %d, want 5", got)
	}
	if !FileExists(a) || FileExists(filepath.Join(dir, "missing")) {
		t.Error("FileExists gave the wrong answer")
	}
}
