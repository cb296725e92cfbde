// Package worklist reads website worklists from spreadsheets.
//
// A worklist is a table with a header row. Three columns are required (the
// ordinal index, a display name, and a domain or URL); every other column is
// passed through in order.
package worklist

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sentinel errors for worklist reading.
var (
	ErrRead           = errors.New("failed to read worklist")
	ErrMalformed      = errors.New("malformed worklist")
	ErrUnsupportedExt = errors.New("unsupported worklist format")
)

// Default column headers of the list.xlsx worklist template.
const (
	DefaultIndexColumn   = "序号"
	DefaultNameColumn    = "网站名称"
	DefaultAddressColumn = "网站域名"
	DefaultSheet         = "sheet1"
)

// Columns names the header cells of the three required columns.
type Columns struct {
	Index   string
	Name    string
	Address string
}

// DefaultColumns returns the default header names.
func DefaultColumns() Columns {
	return Columns{
		Index:   DefaultIndexColumn,
		Name:    DefaultNameColumn,
		Address: DefaultAddressColumn,
	}
}

// Cell is one passthrough value with its header.
type Cell struct {
	Header string
	Value  string
}

// Row is one parsed worklist line.
type Row struct {
	Index   int
	Name    string
	Address string
	Extra   []Cell
	Line    int // 1-based line in the source, header included
}

// Options configures Read.
type Options struct {
	Columns Columns
	Sheet   string // xlsx only; empty or missing falls back to the first sheet
}

// Read loads rows from an .xlsx or .csv file, chosen by extension.
func Read(path string, opts Options) ([]Row, error) {
	if opts.Columns == (Columns{}) {
		opts.Columns = DefaultColumns()
	}

	var (
		table [][]string
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		table, err = readXLSX(path, opts.Sheet)
	case ".csv":
		table, err = readCSV(path)
	default:
		return nil, fmt.Errorf("%w: %q (want .xlsx or .csv)", ErrUnsupportedExt, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return Parse(table, opts.Columns)
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	defer func() { _ = f.Close() }()

	name := resolveSheet(f.GetSheetList(), sheet)
	if name == "" {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformed)
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("%w: sheet %q: %v", ErrRead, name, err)
	}
	return rows, nil
}

// resolveSheet matches want case-insensitively, falling back to the first sheet.
func resolveSheet(sheets []string, want string) string {
	if want == "" {
		want = DefaultSheet
	}
	for _, s := range sheets {
		if strings.EqualFold(s, want) {
			return s
		}
	}
	if len(sheets) > 0 {
		return sheets[0]
	}
	return ""
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided worklist path
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(stripBOM(f))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return rows, nil
}

// stripBOM drops a UTF-8 byte order mark, which spreadsheet tools add when
// exporting CSV.
func stripBOM(r io.Reader) io.Reader {
	buf := make([]byte, 3)
	n, _ := io.ReadFull(r, buf)
	if n == 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF {
		return r
	}
	return io.MultiReader(strings.NewReader(string(buf[:n])), r)
}

// Parse turns a header-first table into rows. Blank lines are skipped.
func Parse(table [][]string, cols Columns) ([]Row, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformed)
	}

	header := make([]string, len(table[0]))
	for i, h := range table[0] {
		header[i] = strings.TrimSpace(h)
	}

	idxCol, err := findColumn(header, cols.Index)
	if err != nil {
		return nil, err
	}
	nameCol, err := findColumn(header, cols.Name)
	if err != nil {
		return nil, err
	}
	addrCol, err := findColumn(header, cols.Address)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(table)-1)
	for i, cells := range table[1:] {
		line := i + 2
		if isBlank(cells) {
			continue
		}

		rawIndex := cell(cells, idxCol)
		index, err := parseIndex(rawIndex)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %s %q is not an integer", ErrMalformed, line, cols.Index, rawIndex)
		}
		name := cell(cells, nameCol)
		if name == "" {
			return nil, fmt.Errorf("%w: line %d: empty %s", ErrMalformed, line, cols.Name)
		}
		address := cell(cells, addrCol)
		if address == "" {
			return nil, fmt.Errorf("%w: line %d: empty %s", ErrMalformed, line, cols.Address)
		}

		row := Row{Index: index, Name: name, Address: address, Line: line}
		for c, h := range header {
			if c == idxCol || c == nameCol || c == addrCol || h == "" {
				continue
			}
			row.Extra = append(row.Extra, Cell{Header: h, Value: cell(cells, c)})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func findColumn(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: column %q not found in header %v", ErrMalformed, name, header)
}

// parseIndex accepts "7" and spreadsheet-style "7.0".
func parseIndex(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return strings.TrimSpace(cells[i])
	}
	return ""
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
