// Package tabular loads and writes the address tables the pipeline operates
// on: delimited text files or XLSX spreadsheets in, CSV out.
package tabular

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/irc-geo/hand-cli/internal/model"
)

// Fatal load errors, matched with eris.Is by the caller.
var (
	// ErrUnsupportedFormat means the file is neither delimited text nor XLSX.
	ErrUnsupportedFormat = eris.New("tabular: unsupported input format")
	// ErrMissingColumn means the named address column is not in the header.
	ErrMissingColumn = eris.New("tabular: address column not found")
	// ErrEmptyInput means the table has a header but no data rows.
	ErrEmptyInput = eris.New("tabular: input has no data rows")
)

// LoadOptions configures input parsing.
type LoadOptions struct {
	Delimiter rune   // delimited text only; default ','
	Sheet     string // XLSX only; default first sheet
}

// Load reads the table at path and locates the address column. The first row
// is the header; the column name is matched after trimming, case-insensitively.
// Returns the table and the address column index.
func Load(path, addressColumn string, opts LoadOptions) (*model.Table, int, error) {
	var (
		table *model.Table
		err   error
	)

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".tsv", ".txt":
		delim := opts.Delimiter
		if ext == ".tsv" && delim == 0 {
			delim = '\t'
		}
		table, err = readDelimited(path, delim)
	case ".xlsx":
		table, err = readXLSX(path, opts.Sheet)
	case ".xls":
		return nil, 0, eris.Wrapf(ErrUnsupportedFormat, "%s: legacy .xls is not supported, convert to .xlsx or .csv", path)
	default:
		return nil, 0, eris.Wrapf(ErrUnsupportedFormat, "%s: expected .csv, .tsv, .txt or .xlsx", path)
	}
	if err != nil {
		return nil, 0, err
	}

	col, err := findColumn(table.Header, addressColumn)
	if err != nil {
		return nil, 0, err
	}
	if len(table.Rows) == 0 {
		return nil, 0, eris.Wrapf(ErrEmptyInput, "%s", path)
	}

	return table, col, nil
}

// Records converts table rows into pipeline records, reading the address from
// the given column. Rows are kept in input order; cells beyond the address
// column pass through opaquely.
func Records(table *model.Table, addressColumn int) []model.Record {
	records := make([]model.Record, 0, len(table.Rows))
	for i, row := range table.Rows {
		var addr string
		if addressColumn < len(row) {
			addr = strings.TrimSpace(row[addressColumn])
		}
		records = append(records, model.Record{Index: i, Address: addr, Fields: row})
	}
	return records
}

func findColumn(header []string, name string) (int, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	for i, h := range header {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i, nil
		}
	}
	return 0, eris.Wrapf(ErrMissingColumn, "%q not in header %v", name, header)
}

// padRow extends a short row with empty cells so every row has header width.
func padRow(row []string, width int) []string {
	for len(row) < width {
		row = append(row, "")
	}
	return row
}
