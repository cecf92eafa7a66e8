package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/resume-extractor/internal/batch"
	"github.com/spigell/resume-extractor/internal/extract"
)

func sampleRecords() []batch.Record {
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	return []batch.Record{
		{Index: 1, SourceQuery: "Li", Status: batch.StatusOK, Fields: extract.NewFields("name", "Li Lei", "education", "本科"), Timestamp: at},
		{Index: 2, SourceQuery: "Zhao", Status: batch.StatusRequestFailed, Failure: batch.FailureTransport, Error: "connection reset", Timestamp: at},
		{Index: 3, SourceQuery: "Wang", Status: batch.StatusOK, Fields: extract.NewFields("age", float64(30), "name", "Wang Fang", "skills", []any{"Go", "SQL"}), Timestamp: at},
		{Index: 4, SourceQuery: "Sun", Status: batch.StatusParseFailed, Failure: batch.FailureParse, Error: "no balanced json object", RawReply: "sorry", Timestamp: at},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}

	content := strings.TrimPrefix(string(data), utf8BOM)
	rows, err := csv.NewReader(strings.NewReader(content)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	return rows
}

func TestColumnsUnionFirstSeenOrder(t *testing.T) {
	got := Columns(sampleRecords())
	expected := []string{"name", "education", "age", "skills"}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
}

func TestTabularCSVFlattensFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "resumes.csv")

	if err := Tabular(sampleRecords(), path, nil); err != nil {
		t.Fatalf("export: %v", err)
	}

	rows := readCSV(t, path)
	expected := [][]string{
		{"name", "education", "age", "skills"},
		{"Li Lei", "本科", "", ""},
		{"Wang Fang", "", "30", "Go, SQL"},
	}
	if !reflect.DeepEqual(rows, expected) {
		t.Fatalf("unexpected rows:\n%v", rows)
	}
}

func TestTabularWithMetaColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resumes.csv")

	if err := Tabular(sampleRecords(), path, nil, WithMetaColumns()); err != nil {
		t.Fatalf("export: %v", err)
	}

	rows := readCSV(t, path)
	if !reflect.DeepEqual(rows[0], []string{"_source_query", "_status", "_error", "name", "education", "age", "skills"}) {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if len(rows) != len(sampleRecords())+1 {
		t.Fatalf("meta columns keep every record, got %d rows", len(rows)-1)
	}
	if !reflect.DeepEqual(rows[2][:3], []string{"Zhao", "request_failed", "connection reset"}) {
		t.Fatalf("failed record must stay auditable: %v", rows[2])
	}
}

func TestFilteredExportKeepsOnlyMatches(t *testing.T) {
	dir := t.TempDir()
	records := sampleRecords()

	filter, err := ParseFilters([]string{"name=Wang"})
	if err != nil {
		t.Fatalf("parse filters: %v", err)
	}

	filtered := filepath.Join(dir, "filtered.csv")
	if err := Tabular(records, filtered, filter); err != nil {
		t.Fatalf("filtered export: %v", err)
	}

	rows := readCSV(t, filtered)
	if len(rows) != 2 || rows[1][1] != "Wang Fang" {
		t.Fatalf("expected only the Wang record, got %v", rows)
	}
	if !reflect.DeepEqual(rows[0], []string{"age", "name", "skills"}) {
		t.Fatalf("filtered schema must come from the selected records, got %v", rows[0])
	}

	full := filepath.Join(dir, "full.csv")
	if err := Tabular(records, full, nil, WithMetaColumns()); err != nil {
		t.Fatalf("full export: %v", err)
	}
	if rows := readCSV(t, full); len(rows) != len(records)+1 {
		t.Fatalf("unfiltered export must contain every record, got %d rows", len(rows)-1)
	}
	if len(records) != 4 {
		t.Fatal("filtering must not modify the input")
	}
}

func TestMetaColumnsDoNotCollideWithFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resumes.csv")
	records := []batch.Record{
		{Index: 1, SourceQuery: "q", Status: batch.StatusOK, Fields: extract.NewFields("status", "employed", "error", "none")},
	}

	if err := Tabular(records, path, nil, WithMetaColumns()); err != nil {
		t.Fatalf("export: %v", err)
	}

	rows := readCSV(t, path)
	seen := make(map[string]struct{})
	for _, column := range rows[0] {
		if _, dup := seen[column]; dup {
			t.Fatalf("duplicate header %q in %v", column, rows[0])
		}
		seen[column] = struct{}{}
	}
	if !reflect.DeepEqual(rows[1], []string{"q", "ok", "", "employed", "none"}) {
		t.Fatalf("unexpected row: %v", rows[1])
	}
}

func TestTabularWithoutMetaSkipsFailedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resumes.csv")
	records := []batch.Record{
		{Index: 1, SourceQuery: "a", Status: batch.StatusOK, Fields: extract.NewFields("name", "Li")},
		{Index: 2, SourceQuery: "b", Status: batch.StatusParseFailed, Failure: batch.FailureParse, RawReply: "{}"},
	}

	if err := Tabular(records, path, nil); err != nil {
		t.Fatalf("export: %v", err)
	}

	rows := readCSV(t, path)
	if !reflect.DeepEqual(rows, [][]string{{"name"}, {"Li"}}) {
		t.Fatalf("only the ok record may produce a row, got %v", rows)
	}
}

func TestSelect(t *testing.T) {
	records := sampleRecords()

	if got := Select(records, nil); len(got) != len(records) {
		t.Fatalf("nil filter must keep every record, got %d", len(got))
	}

	all := Select(records, All())
	if len(all) != 2 {
		t.Fatalf("a filter excludes non-ok records by definition, got %d", len(all))
	}
	for _, rec := range all {
		if !rec.OK() {
			t.Fatalf("unexpected non-ok record %+v", rec)
		}
	}

	both := Select(records, All(Contains("name", "Li"), Contains("education", "本")))
	if len(both) != 1 || both[0].SourceQuery != "Li" {
		t.Fatalf("unexpected conjunction result: %+v", both)
	}

	if got := Select(records, Contains("age", "3")); len(got) != 1 || got[0].SourceQuery != "Wang" {
		t.Fatalf("numeric fields must be matched by their rendering: %+v", got)
	}
}

func TestParseFilters(t *testing.T) {
	if f, err := ParseFilters(nil); err != nil || f != nil {
		t.Fatalf("expected nil filter for no expressions, got %v %v", f, err)
	}

	if f, err := ParseFilters([]string{"  ", ""}); err != nil || f != nil {
		t.Fatalf("blank expressions must be ignored, got %v %v", f, err)
	}

	for _, bad := range []string{"name", "=x"} {
		if _, err := ParseFilters([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestTabularXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resumes.xlsx")

	if err := Tabular(sampleRecords(), path, nil); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetRecords)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}

	if !reflect.DeepEqual(rows[0], []string{"name", "education", "age", "skills"}) {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if len(rows) != 3 || rows[1][0] != "Li Lei" || rows[2][2] != "30" {
		t.Fatalf("unexpected content: %v", rows)
	}
}

func TestTabularRejectsUnknownExtension(t *testing.T) {
	if err := Tabular(sampleRecords(), filepath.Join(t.TempDir(), "out.txt"), nil); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}

func TestJSONExport(t *testing.T) {
	dir := t.TempDir()
	records := sampleRecords()

	full := filepath.Join(dir, "full.json")
	if err := JSON(records, full, nil); err != nil {
		t.Fatalf("export: %v", err)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(records) {
		t.Fatalf("expected %d entries, got %d", len(records), len(decoded))
	}
	if decoded[1]["status"] != "request_failed" || decoded[1]["error"] != "connection reset" {
		t.Fatalf("failed record must be kept for audit: %v", decoded[1])
	}
	if decoded[3]["raw_reply"] != "sorry" {
		t.Fatalf("raw reply must be kept: %v", decoded[3])
	}
	if !strings.Contains(string(data), `"name": "Wang Fang"`) || !strings.Contains(string(data), "本科") {
		t.Fatalf("fields must be written unescaped: %s", data)
	}

	filtered := filepath.Join(dir, "filtered.json")
	if err := JSON(records, filtered, Contains("education", "本科")); err != nil {
		t.Fatalf("filtered export: %v", err)
	}
	data, _ = os.ReadFile(filtered)
	decoded = nil
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 1 || decoded[0]["source_query"] != "Li" {
		t.Fatalf("unexpected filtered export: %v", decoded)
	}
}

func TestJSONKeepsFieldOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ordered.json")
	records := []batch.Record{{Index: 1, SourceQuery: "q", Status: batch.StatusOK, Fields: extract.NewFields("z", 1, "a", 2)}}

	if err := JSON(records, path, nil); err != nil {
		t.Fatalf("export: %v", err)
	}

	data, _ := os.ReadFile(path)
	if strings.Index(string(data), `"z"`) > strings.Index(string(data), `"a"`) {
		t.Fatalf("expected z before a: %s", data)
	}
}

func TestFailuresExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failed.csv")

	if err := Failures(sampleRecords(), path); err != nil {
		t.Fatalf("export: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header and two failures, got %v", rows)
	}
	if !reflect.DeepEqual(rows[0], failureColumns) {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][0] != "2" || rows[1][3] != "transport" || rows[2][5] != "sorry" {
		t.Fatalf("unexpected failure rows: %v", rows)
	}
}
