package pipeline

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/irc-geo/hand-cli/internal/model"
)

const wgs84 = 4326

// BuildFeatures converts geocoded records into WGS84 point geometries,
// index-aligned with the input so sampled values re-join positionally.
// The range check is defensive: the resolver already rejects out-of-range
// coordinates.
func BuildFeatures(records []model.GeocodedRecord) ([]*geom.Point, error) {
	points := make([]*geom.Point, len(records))
	for i, rec := range records {
		if !validCoordinates(rec.Latitude, rec.Longitude) {
			return nil, eris.Errorf("pipeline: row %d has out-of-range coordinates (%v, %v)", rec.Index, rec.Latitude, rec.Longitude)
		}
		// Geometry axis order is lon, lat.
		points[i] = geom.NewPointFlat(geom.XY, []float64{rec.Longitude, rec.Latitude}).SetSRID(wgs84)
	}
	return points, nil
}
