package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/irc-geo/hand-cli/internal/model"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_CSV(t *testing.T) {
	path := writeTemp(t, "input.csv", "id,Endereco,owner\n1,Rua A 10,alice\n2,Rua B 22,bob\n")

	table, col, err := Load(path, "endereco", LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, col)
	assert.Equal(t, []string{"id", "Endereco", "owner"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"2", "Rua B 22", "bob"}, table.Rows[1])
}

func TestLoad_CSVSemicolonDelimiter(t *testing.T) {
	path := writeTemp(t, "input.csv", "id;address\n1;Av. Central 5\n")

	table, col, err := Load(path, "address", LoadOptions{Delimiter: ';'})
	require.NoError(t, err)
	assert.Equal(t, 1, col)
	assert.Equal(t, "Av. Central 5", table.Rows[0][1])
}

func TestLoad_TSVDefaultsToTab(t *testing.T) {
	path := writeTemp(t, "input.tsv", "id\taddress\n1\tRua C 3\n")

	table, col, err := Load(path, "address", LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, col)
	assert.Equal(t, "Rua C 3", table.Rows[0][1])
}

func TestLoad_ShortRowsPadded(t *testing.T) {
	path := writeTemp(t, "input.csv", "address,extra\nRua A 10\n")

	table, _, err := Load(path, "address", LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Rua A 10", ""}, table.Rows[0])
}

func TestLoad_MissingColumn(t *testing.T) {
	path := writeTemp(t, "input.csv", "id,place\n1,somewhere\n")

	_, _, err := Load(path, "address", LoadOptions{})
	assert.True(t, eris.Is(err, ErrMissingColumn), "got %v", err)
}

func TestLoad_EmptyInput(t *testing.T) {
	path := writeTemp(t, "input.csv", "id,address\n")

	_, _, err := Load(path, "address", LoadOptions{})
	assert.True(t, eris.Is(err, ErrEmptyInput), "got %v", err)
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	path := writeTemp(t, "input.json", `{"not": "a table"}`)

	_, _, err := Load(path, "address", LoadOptions{})
	assert.True(t, eris.Is(err, ErrUnsupportedFormat), "got %v", err)
}

func TestLoad_LegacyXLSRejected(t *testing.T) {
	path := writeTemp(t, "input.xls", "binary junk")

	_, _, err := Load(path, "address", LoadOptions{})
	assert.True(t, eris.Is(err, ErrUnsupportedFormat), "got %v", err)
	assert.Contains(t, err.Error(), ".xlsx")
}

func TestLoad_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Data")
	require.NoError(t, err)
	for _, rowVals := range [][]string{
		{"id", "address"},
		{"1", "Rua A 10"},
		{"2", "Rua B 22"},
	} {
		row := sheet.AddRow()
		for _, v := range rowVals {
			row.AddCell().SetString(v)
		}
	}
	require.NoError(t, f.Save(path))

	table, col, err := Load(path, "Address", LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, col)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Rua B 22", table.Rows[1][1])
}

func TestLoad_XLSXNamedSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.xlsx")

	f := xlsx.NewFile()
	first, err := f.AddSheet("Ignore")
	require.NoError(t, err)
	first.AddRow().AddCell().SetString("nothing")

	second, err := f.AddSheet("Addresses")
	require.NoError(t, err)
	header := second.AddRow()
	header.AddCell().SetString("address")
	data := second.AddRow()
	data.AddCell().SetString("Rua D 4")
	require.NoError(t, f.Save(path))

	table, col, err := Load(path, "address", LoadOptions{Sheet: "Addresses"})
	require.NoError(t, err)
	assert.Equal(t, 0, col)
	assert.Equal(t, "Rua D 4", table.Rows[0][0])

	_, _, err = Load(path, "address", LoadOptions{Sheet: "Nope"})
	assert.Error(t, err)
}

func TestRecords(t *testing.T) {
	table := &model.Table{
		Header: []string{"id", "address"},
		Rows: [][]string{
			{"1", "  Rua A 10  "},
			{"2", ""},
		},
	}

	records := Records(table, 1)
	require.Len(t, records, 2)
	assert.Equal(t, 0, records[0].Index)
	assert.Equal(t, "Rua A 10", records[0].Address)
	assert.Equal(t, []string{"1", "  Rua A 10  "}, records[0].Fields)
	assert.Empty(t, records[1].Address)
}
