package importer

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file too large")
	ErrEmptyFile         = errors.New("empty file")
)

// Table is a tokenized file: one header row and raw string records.
// Lines holds the 1-based source line of each record when the reader
// knows it.
type Table struct {
	Headers []string
	Records [][]string
	Lines   []int
}

// Line returns the source line of record i. Without recorded positions the
// header is taken to be line 1.
func (t Table) Line(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// Read tokenizes r, choosing the reader from the filename's extension.
// maxBytes caps the file size; zero or less means no cap.
func Read(r io.Reader, filename string, maxBytes int64) (Table, error) {
	data, err := readAll(r, maxBytes)
	if err != nil {
		return Table{}, err
	}

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".csv", ".txt":
		return ReadCSV(bytes.NewReader(data))
	case ".json":
		return ReadJSON(bytes.NewReader(data))
	case ".xlsx", ".xlsm":
		return ReadXLSX(bytes.NewReader(data))
	case ".xls":
		return ReadXLS(bytes.NewReader(data))
	default:
		return Table{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func readAll(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, maxBytes)
	}
	return data, nil
}

// ReadCSV tokenizes comma-separated input. Ragged rows are allowed.
func ReadCSV(r io.Reader) (Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var rows [][]string
	var lines []int
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, rec)
		lines = append(lines, line)
	}
	return tableFromRows(rows, lines)
}

// ReadXLSX tokenizes the first sheet of an Excel workbook.
func ReadXLSX(r io.Reader) (Table, error) {
	xl, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer xl.Close()

	sheet := xl.GetSheetName(0)
	rows, err := xl.GetRows(sheet)
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return tableFromRows(rows, nil)
}

// ReadXLS tokenizes the first sheet of a legacy BIFF workbook.
func ReadXLS(r io.ReadSeeker) (Table, error) {
	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return Table{}, fmt.Errorf("open xls: %w", err)
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return Table{}, fmt.Errorf("open xls: %w", ErrEmptyFile)
	}

	var rows [][]string
	var lines []int
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for j := 0; j < row.LastCol(); j++ {
			cells = append(cells, row.Col(j))
		}
		rows = append(rows, cells)
		lines = append(lines, i+1)
	}
	return tableFromRows(rows, lines)
}

// ReadJSON tokenizes a JSON array of flat objects. Headers are the object
// keys in order of first appearance; non-string values keep their JSON text.
func ReadJSON(r io.Reader) (Table, error) {
	var objects []json.RawMessage
	if err := json.NewDecoder(r).Decode(&objects); err != nil {
		return Table{}, fmt.Errorf("decode json: %w", err)
	}
	if len(objects) == 0 {
		return Table{}, ErrEmptyFile
	}

	var headers []string
	index := map[string]int{}
	records := make([]map[string]string, 0, len(objects))

	for i, raw := range objects {
		keys, values, err := decodeObject(raw)
		if err != nil {
			return Table{}, fmt.Errorf("decode json record %d: %w", i+1, err)
		}
		rec := make(map[string]string, len(keys))
		for k, key := range keys {
			if _, ok := index[key]; !ok {
				index[key] = len(headers)
				headers = append(headers, key)
			}
			rec[key] = values[k]
		}
		records = append(records, rec)
	}

	t := Table{Headers: headers, Records: make([][]string, 0, len(records))}
	for _, rec := range records {
		row := make([]string, len(headers))
		for key, v := range rec {
			row[index[key]] = v
		}
		t.Records = append(t.Records, row)
	}
	return t, nil
}

// decodeObject walks one JSON object keeping its key order.
func decodeObject(raw json.RawMessage) ([]string, []string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, errors.New("record is not an object")
	}

	var keys, values []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, _ := tok.(string)

		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, err
		}
		keys = append(keys, key)
		values = append(values, jsonCell(v))
	}
	return keys, values, nil
}

func jsonCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, jsonCell(e))
		}
		return strings.Join(parts, ";")
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}

// tableFromRows takes the first non-empty row as the header row. lines gives
// the source line of each row; nil means row i sits on line i+1.
func tableFromRows(rows [][]string, lines []int) (Table, error) {
	if lines == nil {
		lines = make([]int, len(rows))
		for i := range lines {
			lines[i] = i + 1
		}
	}
	for i, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		return Table{Headers: row, Records: rows[i+1:], Lines: lines[i+1:]}, nil
	}
	return Table{}, ErrEmptyFile
}

func isEmptyRow(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
