// Package importer reads uploaded CSV and XLSX sheets into header-keyed rows.
package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrMissingColumn     = errors.New("missing column")
	ErrEmptyFile         = errors.New("file has no rows")
)

// Sheet is a parsed upload: the normalized header and its data rows.
type Sheet struct {
	Header []string
	Rows   []Row
}

// Require checks that every column is present in the header.
func (s Sheet) Require(columns ...string) error {
	for _, col := range columns {
		if !slices.Contains(s.Header, col) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return nil
}

// Row is one data line. Line is the 1-based line number in the source file.
type Row struct {
	Line   int
	Values map[string]string
}

func (r Row) Get(column string) string {
	return strings.TrimSpace(r.Values[column])
}

// ReadRows parses a .csv or .xlsx upload. The first non-empty line is the
// header; header names are trimmed and lower-cased.
func ReadRows(filename string, r io.Reader) (Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", "":
		return readCSV(r)
	case ".xlsx":
		return readXLSX(r)
	}
	return Sheet{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
}

func readCSV(r io.Reader) (Sheet, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	var lines []int
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Sheet{}, fmt.Errorf("read csv: %w", err)
		}
		line, _ := reader.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return toRows(records, lines)
}

func readXLSX(r io.Reader) (Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Sheet{}, fmt.Errorf("read xlsx: %w", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Sheet{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return Sheet{}, ErrEmptyFile
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return Sheet{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return toRows(records, nil)
}

// toRows keys records by the header line. lines holds the source line of
// each record; nil means record i sits on line i+1.
func toRows(records [][]string, lines []int) (Sheet, error) {
	headerIdx := -1
	for i, rec := range records {
		if !blank(rec) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return Sheet{}, ErrEmptyFile
	}

	header := make([]string, len(records[headerIdx]))
	for i, h := range records[headerIdx] {
		header[i] = normalizeHeader(h)
	}

	rows := make([]Row, 0, len(records)-headerIdx-1)
	for i := headerIdx + 1; i < len(records); i++ {
		rec := records[i]
		if blank(rec) {
			continue
		}
		values := make(map[string]string, len(header))
		for j, col := range header {
			if col == "" || j >= len(rec) {
				continue
			}
			values[col] = strings.TrimSpace(rec[j])
		}
		line := i + 1
		if lines != nil {
			line = lines[i]
		}
		rows = append(rows, Row{Line: line, Values: values})
	}
	return Sheet{Header: header, Rows: rows}, nil
}

func normalizeHeader(h string) string {
	h = strings.TrimSpace(strings.Trim(h, "\"'\t\ufeff"))
	h = strings.ToLower(h)
	return strings.ReplaceAll(h, " ", "_")
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Quantity parses a positive whole quantity. Spreadsheet exports such as
// "12.0" are accepted.
func Quantity(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		if n < 1 {
			return 0, fmt.Errorf("quantity must be positive, got %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid quantity %q", raw)
	}
	if f < 1 {
		return 0, fmt.Errorf("quantity must be positive, got %q", raw)
	}
	return int(f), nil
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006"}

// Date parses an expiry date in ISO form or the day-first form spreadsheets emit.
func Date(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", raw)
}
