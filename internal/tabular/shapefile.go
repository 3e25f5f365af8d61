package tabular

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/irc-geo/hand-cli/internal/model"
)

// WriteShapefile exports the enriched records as a point shapefile for GIS
// inspection. Attributes carry the address, the sampled HAND value and the
// category label; records without a sample get an empty HAND attribute.
func WriteShapefile(path string, records []model.EnrichedRecord) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return eris.Wrap(err, "shapefile: create")
	}
	defer w.Close() //nolint:errcheck

	fields := []shp.Field{
		shp.StringField("ADDRESS", 120),
		shp.FloatField("HAND", 19, 5),
		shp.StringField("CATEGORY", 32),
	}
	w.SetFields(fields)

	for i, rec := range records {
		w.Write(&shp.Point{X: rec.Longitude, Y: rec.Latitude})

		if err := w.WriteAttribute(i, 0, rec.Address); err != nil {
			return eris.Wrap(err, "shapefile: write address attribute")
		}
		if rec.Value != nil {
			if err := w.WriteAttribute(i, 1, *rec.Value); err != nil {
				return eris.Wrap(err, "shapefile: write hand attribute")
			}
		}
		if err := w.WriteAttribute(i, 2, rec.Category); err != nil {
			return eris.Wrap(err, "shapefile: write category attribute")
		}
	}

	return nil
}
