package data

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"demandlab/pkg/errs"
)

// DateLayouts are tried in order when inferring or parsing a time column.
var DateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"1/2/2006",
	"1/2/06",
	"01-02-06",
}

// LoadOptions controls how an enriched dataset is read.
type LoadOptions struct {
	// Kinds pins the kind of named columns; others are inferred.
	Kinds map[string]Kind
	// Sheet selects the XLSX sheet; empty means the first sheet.
	Sheet string
	// DateColumn, when present in the file, must be strictly ascending.
	DateColumn string
}

// DefaultLoadOptions returns options for the enriched demand dataset.
func DefaultLoadOptions() *LoadOptions {
	return &LoadOptions{DateColumn: ColDate}
}

// Load reads a CSV or XLSX file, chosen by extension.
func Load(path string, opts *LoadOptions) (*Frame, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return LoadXLSX(path, opts)
	case ".csv", ".txt":
		return LoadCSV(path, opts)
	default:
		return nil, fmt.Errorf("data: unsupported file type %q", filepath.Ext(path))
	}
}

// LoadCSV loads an enriched dataset from a CSV file with a header row.
func LoadCSV(path string, opts *LoadOptions) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return LoadCSVFromReader(file, opts)
}

// LoadCSVFromReader loads an enriched dataset from an io.Reader.
func LoadCSVFromReader(r io.Reader, opts *LoadOptions) (*Frame, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("data: read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, errs.Schema("", "file has no header row")
	}
	return ParseTable(records[0], records[1:], opts)
}

// LoadXLSX loads an enriched dataset from an Excel workbook.
func LoadXLSX(path string, opts *LoadOptions) (*Frame, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("data: open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f, opts)
}

// LoadXLSXFromReader loads an enriched dataset from an Excel stream.
func LoadXLSXFromReader(r io.Reader, opts *LoadOptions) (*Frame, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("data: open workbook: %w", err)
	}
	defer f.Close()
	return readWorkbook(f, opts)
}

func readWorkbook(f *excelize.File, opts *LoadOptions) (*Frame, error) {
	sheet := ""
	if opts != nil {
		sheet = opts.Sheet
	}
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errs.Schema("", "workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("data: read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, errs.Schema("", "sheet %q has no header row", sheet)
	}
	// GetRows trims trailing empty cells; pad rows back to the header width.
	width := len(rows[0])
	body := rows[1:]
	for i, row := range body {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			body[i] = padded
		}
	}
	return ParseTable(rows[0], body, opts)
}

// ParseTable converts a header and string rows into a typed Frame. Each
// column's kind is taken from opts.Kinds or inferred: every value a date →
// Time, every value true/false → Bool, every value numeric → Float,
// otherwise Category. Missing cells ("", "NA", "NaN") are rejected.
func ParseTable(header []string, rows [][]string, opts *LoadOptions) (*Frame, error) {
	if opts == nil {
		opts = DefaultLoadOptions()
	}
	cols := make([]*Column, 0, len(header))
	for j, rawName := range header {
		name := strings.TrimSpace(rawName)
		if name == "" {
			return nil, errs.Schema("", "header column %d is empty", j)
		}
		values := make([]string, len(rows))
		for i, row := range rows {
			if j >= len(row) {
				return nil, errs.Schema(name, "row %d has %d cells, want %d", i+1, len(row), len(header))
			}
			v := strings.TrimSpace(row[j])
			if isMissing(v) {
				return nil, errs.Schema(name, "missing value at row %d", i+1)
			}
			values[i] = v
		}

		kind, pinned := opts.Kinds[name]
		if !pinned {
			kind = inferKind(values)
		}
		col, err := parseColumn(name, kind, values)
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}

	frame, err := NewFrame(cols...)
	if err != nil {
		return nil, errs.Schema("", "%v", err)
	}
	if opts.DateColumn != "" {
		if c, ok := frame.Column(opts.DateColumn); ok && c.Kind == Time {
			if err := frame.CheckChronological(opts.DateColumn); err != nil {
				return nil, errs.Schema(opts.DateColumn, "%v", err)
			}
		}
	}
	return frame, nil
}

func isMissing(v string) bool {
	return v == "" || v == "NA" || v == "NaN" || v == "nan"
}

func inferKind(values []string) Kind {
	if len(values) == 0 {
		return Float
	}
	isTime, isBool, isNum := true, true, true
	for _, v := range values {
		if isTime {
			if _, err := parseTime(v); err != nil {
				isTime = false
			}
		}
		if isBool {
			if _, ok := parseBool(v); !ok {
				isBool = false
			}
		}
		if isNum {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isNum = false
			}
		}
		if !isTime && !isBool && !isNum {
			return Category
		}
	}
	switch {
	case isTime:
		return Time
	case isBool:
		return Bool
	case isNum:
		return Float
	}
	return Category
}

func parseColumn(name string, kind Kind, values []string) (*Column, error) {
	switch kind {
	case Float:
		out := make([]float64, len(values))
		for i, v := range values {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
				return nil, errs.Schema(name, "row %d: %q is not a finite number", i+1, v)
			}
			out[i] = f
		}
		return FloatColumn(name, out), nil
	case Bool:
		out := make([]bool, len(values))
		for i, v := range values {
			b, ok := parseBool(v)
			if !ok {
				return nil, errs.Schema(name, "row %d: %q is not a boolean", i+1, v)
			}
			out[i] = b
		}
		return BoolColumn(name, out), nil
	case Time:
		out := make([]time.Time, len(values))
		for i, v := range values {
			t, err := parseTime(v)
			if err != nil {
				return nil, errs.Schema(name, "row %d: %q is not a date", i+1, v)
			}
			out[i] = t
		}
		return TimeColumn(name, out), nil
	case Category:
		out := make([]string, len(values))
		copy(out, values)
		return CategoryColumn(name, out), nil
	}
	return nil, errs.Schema(name, "unsupported kind %s", kind)
}

func parseBool(v string) (bool, bool) {
	switch v {
	case "true", "TRUE", "True":
		return true, true
	case "false", "FALSE", "False":
		return false, true
	}
	return false, false
}

func parseTime(v string) (time.Time, error) {
	var lastErr error
	for _, layout := range DateLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
