package xlsxparser

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/types"
	"github.com/ginjaninja78/CSV-to-XLSX-conversion/internal/xlsxwriter"
)

// buildWorkbook writes sheets in the given order.
func buildWorkbook(t *testing.T, path string, names []string, sheets map[string][]types.Row) {
	t.Helper()
	wb := xlsxwriter.NewWorkbook(path)
	for _, name := range names {
		if err := wb.AddSheet(name); err != nil {
			t.Fatalf("AddSheet failed: %v", err)
		}
		if err := wb.WriteRows(sheets[name]); err != nil {
			t.Fatalf("WriteRows failed: %v", err)
		}
	}
	if err := wb.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestRowReader(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.xlsx")
	second := filepath.Join(dir, "b.xlsx")

	buildWorkbook(t, first, []string{"Dados1", "Dados2"}, map[string][]types.Row{
		"Dados1": {{"id", "name"}, {"1", "Ana"}, {"2", ""}},
		"Dados2": {{"id", "name"}, {"3", "Rui"}},
	})
	buildWorkbook(t, second, []string{"Sheet1"}, map[string][]types.Row{
		"Sheet1": {{"id", "name"}, {"4", "Eva"}},
	})

	sheets, err := ListSheets(first)
	if err != nil {
		t.Fatalf("ListSheets failed: %v", err)
	}
	if !reflect.DeepEqual(sheets, []string{"Dados1", "Dados2"}) {
		t.Errorf("sheets = %v", sheets)
	}

	reader := NewRowReader(first, second)
	defer reader.Close()

	var got []string
	for reader.Next() {
		marker := ""
		if reader.FirstInTarget() {
			marker = "*"
		}
		got = append(got, marker+reader.Target().Sheet+":"+strings.Join(reader.Row(), "|"))
		if reader.Target().Sheet == "Sheet1" && reader.Target().File != second {
			t.Errorf("Sheet1 attributed to %s", reader.Target().File)
		}
	}
	if err := reader.Err(); err != nil {
		t.Fatalf("reader error: %v", err)
	}

	want := []string{
		"*Dados1:id|name",
		"Dados1:1|Ana",
		"Dados1:2",
		"*Dados2:id|name",
		"Dados2:3|Rui",
		"*Sheet1:id|name",
		"Sheet1:4|Eva",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows =\n%q\nwant\n%q", got, want)
	}
}

func TestRowReaderMissingFile(t *testing.T) {
	reader := NewRowReader(filepath.Join(t.TempDir(), "missing.xlsx"))
	defer reader.Close()

	if reader.Next() {
		t.Fatal("Next should fail")
	}
	if reader.Err() == nil {
		t.Error("expected an error")
	}
}
