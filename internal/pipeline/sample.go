package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/irc-geo/hand-cli/internal/resilience"
	"github.com/irc-geo/hand-cli/pkg/earthengine"
)

// RegionSampler samples one raster band at a set of points. Implemented by
// *earthengine.Client; mocked in tests.
type RegionSampler interface {
	SampleRegions(ctx context.Context, asset string, points []*geom.Point) ([]*float64, error)
}

// SamplerConfig tunes the remote sampling stage.
type SamplerConfig struct {
	// Asset is the Earth Engine image to sample.
	Asset string
	// BatchSize caps points per remote call; the platform rejects oversized
	// payloads. Default 500.
	BatchSize int
	// Concurrency bounds in-flight sub-batch calls. Default 4.
	Concurrency int
	// Retry is the per-sub-batch retry policy.
	Retry resilience.RetryConfig
}

// Sampler fetches HAND values for point collections, splitting them into
// sub-batches the remote platform accepts.
type Sampler struct {
	client RegionSampler
	cfg    SamplerConfig
}

// NewSampler creates a sampler over the given client.
func NewSampler(client RegionSampler, cfg SamplerConfig) *Sampler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Sampler{client: client, cfg: cfg}
}

// Sample returns one value per point, index-aligned with the input regardless
// of how the collection was split into sub-batches. A sub-batch that fails
// past its retries leaves its points nil — the records survive with an
// unknown classification instead of taking down the run. Credential
// rejections are the exception: they cannot heal mid-run and abort.
func (s *Sampler) Sample(ctx context.Context, points []*geom.Point) ([]*float64, error) {
	values := make([]*float64, len(points))

	retry := s.cfg.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("earthengine", "sample_regions")
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.cfg.Concurrency)
	for start := 0; start < len(points); start += s.cfg.BatchSize {
		start, end := start, min(start+s.cfg.BatchSize, len(points))
		eg.Go(func() error {
			batch := points[start:end]
			res, err := resilience.DoVal(gctx, retry, func(ctx context.Context) ([]*float64, error) {
				return s.client.SampleRegions(ctx, s.cfg.Asset, batch)
			})
			if err != nil {
				if eris.Is(err, earthengine.ErrUnauthorized) {
					return err
				}
				if gctx.Err() != nil {
					return gctx.Err()
				}
				zap.L().Warn("sub-batch failed permanently, points marked unknown",
					zap.Int("from", start),
					zap.Int("to", end),
					zap.Error(err),
				)
				return nil
			}
			if len(res) != len(batch) {
				return eris.Errorf("pipeline: sampler returned %d values for %d points", len(res), len(batch))
			}
			copy(values[start:end], res)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return values, nil
}
