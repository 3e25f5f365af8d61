package tabular

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/irc-geo/hand-cli/internal/model"
)

// readDelimited parses a delimited text file. The first row becomes the
// header; short rows are padded to header width so positional access is safe.
func readDelimited(path string, delimiter rune) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open file")
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1 // allow variable fields

	table := &model.Table{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}

		if table.Header == nil {
			table.Header = record
			continue
		}
		table.Rows = append(table.Rows, padRow(record, len(table.Header)))
	}

	if table.Header == nil {
		return nil, eris.Wrapf(ErrEmptyInput, "%s: no header row", path)
	}
	return table, nil
}
