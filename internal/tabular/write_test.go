package tabular

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irc-geo/hand-cli/internal/model"
)

func TestWrite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	table := &model.Table{
		Header: []string{"id", "address", "Latitude", "Longitude", "HandValue", "HandCategory"},
		Rows: [][]string{
			{"1", "Rua A 10", "-23.5", "-46.6", "30", "Very Low"},
			{"2", "Rua C 3", "-23.6", "-46.7", "", "Unknown"},
		},
	}

	require.NoError(t, Write(path, table))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,address,Latitude,Longitude,HandValue,HandCategory", lines[0])
	assert.Equal(t, "2,Rua C 3,-23.6,-46.7,,Unknown", lines[2])
}

func TestWrite_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	require.NoError(t, Write(path, &model.Table{Header: []string{"a"}, Rows: [][]string{{"1"}}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.csv", entries[0].Name())
}

func TestWrite_MissingDirectory(t *testing.T) {
	err := Write(filepath.Join(t.TempDir(), "nope", "out.csv"), &model.Table{Header: []string{"a"}})
	assert.True(t, eris.Is(err, ErrOutputWrite), "got %v", err)
}

func TestWriteShapefile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.shp")
	v := 12.5
	records := []model.EnrichedRecord{
		{
			GeocodedRecord: model.GeocodedRecord{
				Record:   model.Record{Index: 0, Address: "Rua A 10"},
				Latitude: -23.5, Longitude: -46.6,
			},
			Value:    &v,
			Category: "Low",
		},
		{
			GeocodedRecord: model.GeocodedRecord{
				Record:   model.Record{Index: 1, Address: "Rua B 22"},
				Latitude: -23.6, Longitude: -46.7,
			},
			Category: "Unknown",
		},
	}

	require.NoError(t, WriteShapefile(path, records))

	// Shapefiles come in three parts; all must exist.
	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		_, err := os.Stat(strings.TrimSuffix(path, ".shp") + ext)
		assert.NoError(t, err, "expected %s sidecar", ext)
	}
}
