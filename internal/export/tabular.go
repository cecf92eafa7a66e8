// Package export writes batch results to tabular and JSON files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/resume-extractor/internal/batch"
	"github.com/spigell/resume-extractor/internal/extract"
)

const (
	SheetRecords  = "resumes"
	SheetFailures = "failed_queries"

	utf8BOM = "\ufeff"
)

// Meta headers carry a prefix so they never collide with parsed field names.
var metaColumns = []string{"_source_query", "_status", "_error"}

var failureColumns = []string{"index", "source_query", "status", "failure", "error", "raw_reply", "timestamp"}

type options struct {
	meta bool
}

type Option func(*options)

// WithMetaColumns prepends source_query, status and error to every row.
// Without it only ok records get a row.
func WithMetaColumns() Option {
	return func(o *options) { o.meta = true }
}

// Columns is the union of field names across ok records in first-seen order.
func Columns(records []batch.Record) []string {
	seen := make(map[string]struct{})
	columns := make([]string, 0)
	for _, rec := range records {
		if !rec.OK() {
			continue
		}
		for _, key := range rec.Fields.Keys() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			columns = append(columns, key)
		}
	}
	return columns
}

// Tabular writes the selected records as a table. The format follows the file
// extension: .csv or .xlsx. Fields a record lacks are left empty. Records that
// are not ok are only written together with meta columns; the JSON export and
// the failure table keep them otherwise.
func Tabular(records []batch.Record, path string, filter Filter, opts ...Option) error {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	selected := Select(records, filter)
	columns := Columns(selected)

	header := columns
	if o.meta {
		header = append(append([]string{}, metaColumns...), columns...)
	}

	rows := make([][]string, 0, len(selected)+1)
	rows = append(rows, header)
	for _, rec := range selected {
		if !o.meta && !rec.OK() {
			continue
		}

		row := make([]string, 0, len(header))
		if o.meta {
			row = append(row, rec.SourceQuery, string(rec.Status), rec.Error)
		}
		for _, column := range columns {
			v, _ := rec.Fields.Get(column)
			row = append(row, extract.String(v))
		}
		rows = append(rows, row)
	}

	return writeTable(path, SheetRecords, rows)
}

// Failures writes the audit table of records that are not ok.
func Failures(records []batch.Record, path string) error {
	rows := [][]string{failureColumns}
	for _, rec := range records {
		if rec.OK() {
			continue
		}
		rows = append(rows, []string{
			strconv.Itoa(rec.Index),
			rec.SourceQuery,
			string(rec.Status),
			string(rec.Failure),
			rec.Error,
			rec.RawReply,
			rec.Timestamp.Format(time.RFC3339),
		})
	}

	return writeTable(path, SheetFailures, rows)
}

func writeTable(path, sheet string, rows [][]string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return writeCSV(path, rows)
	case ".xlsx":
		return writeXLSX(path, sheet, rows)
	default:
		return fmt.Errorf("unsupported tabular format %q: use .csv or .xlsx", ext)
	}
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	// Excel needs the BOM to detect UTF-8.
	if _, err := file.WriteString(utf8BOM); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	return file.Close()
}

func writeXLSX(path, sheet string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	return nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
