// Package pipeline runs the enrichment batch: load the address table, resolve
// addresses to coordinates, sample the HAND raster at each point, classify the
// values, and write the enriched table.
package pipeline

import (
	"context"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/irc-geo/hand-cli/internal/hand"
	"github.com/irc-geo/hand-cli/internal/model"
	"github.com/irc-geo/hand-cli/internal/tabular"
	"github.com/irc-geo/hand-cli/pkg/geocode"
)

// Derived columns appended to the original header.
var derivedColumns = []string{"Latitude", "Longitude", "HandValue", "HandCategory"}

// Options configures one pipeline run.
type Options struct {
	Resolver ResolverConfig
	Sampler  SamplerConfig
	Bands    hand.Bands
	Load     tabular.LoadOptions
	// Shapefile, when set, additionally exports the enriched points there.
	Shapefile string
}

// Pipeline wires the enrichment stages over its two external collaborators.
type Pipeline struct {
	geocoder geocode.Provider
	sampler  RegionSampler
	opts     Options
}

// New creates a pipeline. Zero-value band options fall back to the defaults.
func New(geocoder geocode.Provider, sampler RegionSampler, opts Options) *Pipeline {
	if len(opts.Bands.Ranges) == 0 {
		opts.Bands = hand.Default()
	}
	return &Pipeline{geocoder: geocoder, sampler: sampler, opts: opts}
}

// Run executes the whole batch and reports what happened. Stages run strictly
// in sequence; any fatal error aborts before the output file is touched.
func (p *Pipeline) Run(ctx context.Context, inputPath, addressColumn, outputPath string) (*model.Summary, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := zap.L().With(zap.String("run_id", runID))

	if err := p.opts.Bands.Validate(); err != nil {
		return nil, err
	}

	table, col, err := tabular.Load(inputPath, addressColumn, p.opts.Load)
	if err != nil {
		return nil, err
	}
	records := tabular.Records(table, col)
	log.Info("input loaded",
		zap.String("file", inputPath),
		zap.Int("rows", len(records)),
		zap.String("address_column", table.Header[col]),
	)

	resolver := NewResolver(p.geocoder, p.opts.Resolver)
	geocoded, dropped, err := resolver.Resolve(ctx, records)
	if err != nil {
		return nil, err
	}

	points, err := BuildFeatures(geocoded)
	if err != nil {
		return nil, err
	}

	sampler := NewSampler(p.sampler, p.opts.Sampler)
	values, err := sampler.Sample(ctx, points)
	if err != nil {
		return nil, err
	}

	enriched := make([]model.EnrichedRecord, len(geocoded))
	unknown := 0
	for i, rec := range geocoded {
		if values[i] == nil {
			unknown++
		}
		enriched[i] = model.EnrichedRecord{
			GeocodedRecord: rec,
			Value:          values[i],
			Category:       p.opts.Bands.Categorize(values[i]),
		}
	}

	if err := tabular.Write(outputPath, buildOutput(table.Header, enriched)); err != nil {
		return nil, err
	}

	if p.opts.Shapefile != "" {
		if err := tabular.WriteShapefile(p.opts.Shapefile, enriched); err != nil {
			return nil, err
		}
	}

	summary := &model.Summary{
		RunID:        runID,
		InputRows:    len(records),
		Geocoded:     len(geocoded),
		Dropped:      dropped,
		DroppedCount: len(dropped),
		Unknown:      unknown,
		Output:       outputPath,
		Elapsed:      time.Since(start),
	}
	log.Info("run complete",
		zap.Int("input_rows", summary.InputRows),
		zap.Int("geocoded", summary.Geocoded),
		zap.Int("dropped", summary.DroppedCount),
		zap.Int("unknown", summary.Unknown),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// buildOutput appends the four derived columns to every surviving row,
// keeping the original columns and order untouched.
func buildOutput(header []string, enriched []model.EnrichedRecord) *model.Table {
	out := &model.Table{
		Header: append(slices.Clone(header), derivedColumns...),
		Rows:   make([][]string, 0, len(enriched)),
	}
	for _, rec := range enriched {
		row := append(slices.Clone(rec.Fields),
			strconv.FormatFloat(rec.Latitude, 'f', -1, 64),
			strconv.FormatFloat(rec.Longitude, 'f', -1, 64),
			formatValue(rec.Value),
			rec.Category,
		)
		out.Rows = append(out.Rows, row)
	}
	return out
}

func formatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
