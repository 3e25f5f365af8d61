package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irc-geo/hand-cli/internal/model"
)

func TestBuildFeatures(t *testing.T) {
	records := []model.GeocodedRecord{
		{Record: model.Record{Index: 1}, Latitude: -23.5, Longitude: -46.6},
		{Record: model.Record{Index: 2}, Latitude: -22.9, Longitude: -43.2},
	}

	points, err := BuildFeatures(records)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, -46.6, points[0].X())
	assert.Equal(t, -23.5, points[0].Y())
	assert.Equal(t, wgs84, points[0].SRID())
	assert.Equal(t, -43.2, points[1].X())
}

func TestBuildFeatures_RejectsOutOfRange(t *testing.T) {
	_, err := BuildFeatures([]model.GeocodedRecord{
		{Record: model.Record{Index: 7}, Latitude: -23.5, Longitude: 181},
	})
	assert.Error(t, err)
}

func TestBuildFeatures_Empty(t *testing.T) {
	points, err := BuildFeatures(nil)
	require.NoError(t, err)
	assert.Empty(t, points)
}
