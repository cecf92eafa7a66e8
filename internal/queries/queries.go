// Package queries loads the list of extraction queries for a batch.
package queries

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultTemplate turns a candidate name into a résumé question.
const DefaultTemplate = "%s的简历情况"

var headers = map[string]struct{}{
	"query": {},
	"查询":    {},
}

// Load reads queries from a .txt, .csv or .xlsx file.
func Load(path string) ([]string, error) {
	var (
		out []string
		err error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt":
		out, err = loadText(path)
	case ".csv":
		out, err = loadCSV(path)
	case ".xlsx":
		out, err = loadXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported query file %q: use .txt, .csv or .xlsx", ext)
	}
	if err != nil {
		return nil, err
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no queries found in %s", path)
	}

	return out, nil
}

// FromFileNames builds one query per path from its base name without extension.
func FromFileNames(paths []string, template string) []string {
	if template == "" {
		template = DefaultTemplate
	}

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		base := filepath.Base(p)
		name := strings.TrimSuffix(base, filepath.Ext(base))
		if strings.TrimSpace(name) == "" {
			continue
		}
		out = append(out, fmt.Sprintf(template, name))
	}
	return out
}

func loadText(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var out []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	return out, nil
}

func loadCSV(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	var column []string
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if len(row) > 0 {
			column = append(column, row[0])
		}
	}

	return firstColumn(column), nil
}

func loadXLSX(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	column := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 {
			column = append(column, row[0])
		}
	}

	return firstColumn(column), nil
}

// firstColumn drops blanks and a leading header cell.
func firstColumn(cells []string) []string {
	out := make([]string, 0, len(cells))
	for i, cell := range cells {
		cell = strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff"))
		if cell == "" {
			continue
		}
		if i == 0 {
			if _, ok := headers[strings.ToLower(cell)]; ok {
				continue
			}
		}
		out = append(out, cell)
	}
	return out
}
