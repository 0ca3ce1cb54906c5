package dataset

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const beninCSV = `Timestamp,GHI,DNI,Tamb
2023-06-01 00:00,0,0,24.1
2023-06-01 00:01,0.5,0,24.0
2023-06-01 00:02,1.2,0.3,23.9
`

const togoCSV = `Timestamp,GHI,DNI,Tamb
2023-06-01 00:00,2.0,1.1,26.5
2023-06-01 00:01,2.2,1.3,26.4
`

func TestLoad_TagsAndConcatenates(t *testing.T) {
	dir := t.TempDir()
	sources := []Source{
		{Country: "Benin", Location: writeFile(t, dir, "benin-clean.csv", beninCSV)},
		{Country: "Togo", Location: writeFile(t, dir, "togo-clean.csv", togoCSV)},
	}

	res, err := NewLoader().Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if res.Table.Len() != 5 {
		t.Fatalf("Len = %d, want 5 (sum of source rows)", res.Table.Len())
	}
	for i := 0; i < 3; i++ {
		if res.Table.CountryAt(i) != "Benin" {
			t.Errorf("row %d country = %q, want Benin", i, res.Table.CountryAt(i))
		}
	}
	for i := 3; i < 5; i++ {
		if res.Table.CountryAt(i) != "Togo" {
			t.Errorf("row %d country = %q, want Togo", i, res.Table.CountryAt(i))
		}
	}

	// Source order and row order within a source are preserved.
	ghi, _ := res.Table.Column("GHI")
	want := []float64{0, 0.5, 1.2, 2.0, 2.2}
	for i, v := range want {
		if ghi[i] != v {
			t.Errorf("GHI[%d] = %v, want %v", i, ghi[i], v)
		}
	}

	if len(res.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(res.Files))
	}
	if res.Files[0].Rows != 3 || res.Files[1].Rows != 2 {
		t.Errorf("file rows = %d,%d, want 3,2", res.Files[0].Rows, res.Files[1].Rows)
	}
}

func TestLoad_SkipsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	sources := []Source{
		{Country: "Benin", Location: writeFile(t, dir, "benin-clean.csv", beninCSV)},
		// Header lacks the timestamp column: the whole file is skipped.
		{Country: "Ghana", Location: writeFile(t, dir, "ghana-clean.csv", "GHI,DNI\n1,2\n")},
		{Country: "Togo", Location: writeFile(t, dir, "togo-clean.csv", togoCSV)},
	}

	res, err := NewLoader().Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if res.Table.Len() != 5 {
		t.Fatalf("Len = %d, want 5 (malformed file isolated)", res.Table.Len())
	}
	for _, c := range res.Table.Countries() {
		if c == "Ghana" {
			t.Error("rows from the skipped file leaked into the table")
		}
	}
	if res.Files[1].Err == nil {
		t.Error("expected an error recorded for the skipped file")
	}
	if res.Files[0].Err != nil || res.Files[2].Err != nil {
		t.Error("healthy files must not carry errors")
	}
}

func TestLoad_DuplicateHeaderColumnIsolated(t *testing.T) {
	dir := t.TempDir()
	sources := []Source{
		// A repeated column name would desync column storage from the row
		// count, so the file must be rejected as a unit.
		{Country: "Ghana", Location: writeFile(t, dir, "ghana-clean.csv",
			"Timestamp,GHI,GHI\n2023-06-01 00:00,1,2\n2023-06-01 00:01,3,4\n")},
		{Country: "Benin", Location: writeFile(t, dir, "benin-clean.csv", beninCSV)},
	}

	res, err := NewLoader().Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if res.Files[0].Err == nil {
		t.Error("duplicate-header file should carry a file error")
	}
	if res.Table.Len() != 3 {
		t.Fatalf("Len = %d, want 3 (only the valid file)", res.Table.Len())
	}
	ghi, _ := res.Table.Column("GHI")
	if len(ghi) != res.Table.Len() {
		t.Fatalf("len(GHI) = %d, want %d (column desynced from rows)", len(ghi), res.Table.Len())
	}
	groups, _ := res.Table.GroupedColumn("GHI")
	if len(groups["Benin"]) != 3 {
		t.Errorf("Benin group has %d values, want 3", len(groups["Benin"]))
	}
}

func TestLoad_MissingFileIsolated(t *testing.T) {
	dir := t.TempDir()
	sources := []Source{
		{Country: "Benin", Location: filepath.Join(dir, "does-not-exist.csv")},
		{Country: "Togo", Location: writeFile(t, dir, "togo-clean.csv", togoCSV)},
	}

	res, err := NewLoader().Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Table.Len() != 2 {
		t.Errorf("Len = %d, want 2", res.Table.Len())
	}
}

func TestLoad_ZeroValidFilesYieldsEmptyTable(t *testing.T) {
	dir := t.TempDir()
	sources := []Source{
		{Country: "Benin", Location: filepath.Join(dir, "missing.csv")},
		{Country: "Togo", Location: writeFile(t, dir, "bad.csv", "no,timestamp,here\n1,2,3\n")},
	}

	res, err := NewLoader().Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Table == nil {
		t.Fatal("Table is nil, want an explicitly empty table")
	}
	if res.Table.Len() != 0 {
		t.Errorf("Len = %d, want 0", res.Table.Len())
	}
}

func TestLoad_SkipsUnparseableTimestampRows(t *testing.T) {
	dir := t.TempDir()
	csv := "Timestamp,GHI\n2023-06-01 00:00,1\nnot-a-time,2\n2023-06-01 00:02,3\n"
	sources := []Source{{Country: "Benin", Location: writeFile(t, dir, "benin-clean.csv", csv)}}

	res, err := NewLoader().Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Table.Len() != 2 {
		t.Errorf("Len = %d, want 2", res.Table.Len())
	}
	if res.Files[0].SkippedRows != 1 {
		t.Errorf("SkippedRows = %d, want 1", res.Files[0].SkippedRows)
	}
}

func TestLoad_NonNumericCellsBecomeMissing(t *testing.T) {
	dir := t.TempDir()
	csv := "Timestamp,GHI,Comments\n2023-06-01 00:00,1.5,cleaned\n2023-06-01 00:01,,\n"
	sources := []Source{{Country: "Benin", Location: writeFile(t, dir, "benin-clean.csv", csv)}}

	res, err := NewLoader().Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	comments, _ := res.Table.Column("Comments")
	for i, v := range comments {
		if !math.IsNaN(v) {
			t.Errorf("Comments[%d] = %v, want NaN", i, v)
		}
	}
	ghi, _ := res.Table.Column("GHI")
	if ghi[0] != 1.5 || !math.IsNaN(ghi[1]) {
		t.Errorf("GHI = %v, want [1.5 NaN]", ghi)
	}
}

func TestLoad_ColumnUnionAcrossFiles(t *testing.T) {
	dir := t.TempDir()
	sources := []Source{
		{Country: "Benin", Location: writeFile(t, dir, "a-clean.csv", "Timestamp,GHI\n2023-06-01 00:00,1\n")},
		{Country: "Togo", Location: writeFile(t, dir, "b-clean.csv", "Timestamp,DNI\n2023-06-01 00:00,2\n")},
	}

	res, err := NewLoader().Load(context.Background(), sources)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ghi, ok := res.Table.Column("GHI")
	if !ok {
		t.Fatal("GHI column missing from union")
	}
	dni, ok := res.Table.Column("DNI")
	if !ok {
		t.Fatal("DNI column missing from union")
	}
	if ghi[0] != 1 || !math.IsNaN(ghi[1]) {
		t.Errorf("GHI = %v, want [1 NaN]", ghi)
	}
	if !math.IsNaN(dni[0]) || dni[1] != 2 {
		t.Errorf("DNI = %v, want [NaN 2]", dni)
	}
}

func TestDiscoverDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "benin-clean.csv", beninCSV)
	writeFile(t, dir, "sierraleone-clean.csv", togoCSV)
	writeFile(t, dir, "notes.txt", "ignored")
	writeFile(t, dir, "raw.csv", "ignored")

	sources, err := DiscoverDir(dir)
	if err != nil {
		t.Fatalf("DiscoverDir: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("len(sources) = %d, want 2", len(sources))
	}
	if sources[0].Country != "Benin" {
		t.Errorf("sources[0].Country = %q, want Benin", sources[0].Country)
	}
	if sources[1].Country != "Sierraleone" {
		t.Errorf("sources[1].Country = %q, want Sierraleone", sources[1].Country)
	}
}

func TestCountryFromFile(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"benin-clean.csv", "Benin"},
		{"sierra_leone-clean.csv", "Sierra Leone"},
		{"togo-clean.csv", "Togo"},
		{"/data/cleaned/burkina-faso-clean.csv", "Burkina Faso"},
		{"COTE_DIVOIRE-clean.csv", "Cote Divoire"},
		{"côte_d_ivoire-clean.csv", "Côte D Ivoire"},
	}
	for _, tt := range tests {
		if got := CountryFromFile(tt.in); got != tt.want {
			t.Errorf("CountryFromFile(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
