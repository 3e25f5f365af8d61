package tabular

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/irc-geo/hand-cli/internal/model"
)

// readXLSX parses an XLSX workbook. The first row of the selected sheet is
// the header; an empty sheet name selects the first sheet.
func readXLSX(path, sheetName string) (*model.Table, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "xlsx: open file")
	}

	sheet, err := getSheet(f, sheetName)
	if err != nil {
		return nil, err
	}

	table := &model.Table{}
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}

		if table.Header == nil {
			table.Header = cells
			continue
		}
		table.Rows = append(table.Rows, padRow(cells, len(table.Header)))
	}

	if table.Header == nil {
		return nil, eris.Wrapf(ErrEmptyInput, "%s: sheet has no rows", path)
	}
	return table, nil
}

func getSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Errorf("xlsx: sheet %q not found", name)
		}
		return sheet, nil
	}

	if len(f.Sheets) == 0 {
		return nil, eris.New("xlsx: workbook has no sheets")
	}
	return f.Sheets[0], nil
}
