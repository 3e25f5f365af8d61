package pipeline

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/irc-geo/hand-cli/internal/model"
	"github.com/irc-geo/hand-cli/internal/resilience"
	"github.com/irc-geo/hand-cli/pkg/geocode"
)

// ErrGeocoderUnavailable means the geocoding service is systemically down
// (bad credentials or too many consecutive transport failures). The run
// aborts rather than dropping every record one by one.
var ErrGeocoderUnavailable = eris.New("pipeline: geocoding service unavailable")

// ResolverConfig tunes the address resolution stage.
type ResolverConfig struct {
	// Concurrency bounds in-flight geocoding calls. Default 8.
	Concurrency int
	// FatalThreshold is the number of consecutive transport failures that
	// aborts the run. Default 5.
	FatalThreshold int
	// Retry is the per-address retry policy.
	Retry resilience.RetryConfig
	// OnProgress, if set, is called after each unique address completes.
	OnProgress func(done, total int)
}

// Resolver turns input records into geocoded records, dropping the ones whose
// address cannot be resolved.
type Resolver struct {
	provider geocode.Provider
	cfg      ResolverConfig
}

// NewResolver creates a resolver over the given provider.
func NewResolver(provider geocode.Provider, cfg ResolverConfig) *Resolver {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.FatalThreshold <= 0 {
		cfg.FatalThreshold = 5
	}
	return &Resolver{provider: provider, cfg: cfg}
}

type geoOutcome struct {
	result *geocode.Result
	err    error
}

// Resolve geocodes every record's address and splits the input into geocoded
// and dropped records, both in original input order. Identical addresses are
// deduplicated before calling the provider; the shared result fans back out
// to every matching row. An unresolved address drops only its own records; a
// systemic provider failure aborts with ErrGeocoderUnavailable.
func (r *Resolver) Resolve(ctx context.Context, records []model.Record) ([]model.GeocodedRecord, []model.DroppedRecord, error) {
	keys := make(map[string]int)
	var addrs []string
	for _, rec := range records {
		if rec.Address == "" {
			continue
		}
		k := normalizeAddress(rec.Address)
		if _, ok := keys[k]; !ok {
			keys[k] = len(addrs)
			addrs = append(addrs, rec.Address)
		}
	}

	// Write-once per index; no locking needed beyond the errgroup barrier.
	outcomes := make([]geoOutcome, len(addrs))
	fuse := resilience.NewFuse(r.cfg.FatalThreshold)
	var done atomic.Int64

	retry := r.cfg.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(r.provider.Name(), "geocode")
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.cfg.Concurrency)
	for i, addr := range addrs {
		i, addr := i, addr
		eg.Go(func() error {
			res, err := resilience.DoVal(gctx, retry, func(ctx context.Context) (*geocode.Result, error) {
				return r.provider.Geocode(ctx, addr)
			})
			outcomes[i] = geoOutcome{result: res, err: err}

			if r.cfg.OnProgress != nil {
				r.cfg.OnProgress(int(done.Add(1)), len(addrs))
			}

			switch {
			case err == nil:
				fuse.Success()
			case eris.Is(err, geocode.ErrDenied):
				return eris.Wrapf(ErrGeocoderUnavailable, "%v", err)
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				if fuse.Failure() {
					return eris.Wrapf(ErrGeocoderUnavailable, "%d consecutive failures, last: %v", r.cfg.FatalThreshold, err)
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}

	var geocoded []model.GeocodedRecord
	var dropped []model.DroppedRecord
	for _, rec := range records {
		drop := func(reason string) {
			zap.L().Warn("record dropped",
				zap.Int("row", rec.Index),
				zap.String("address", rec.Address),
				zap.String("reason", reason),
			)
			dropped = append(dropped, model.DroppedRecord{Index: rec.Index, Address: rec.Address, Reason: reason})
		}

		if rec.Address == "" {
			drop("empty address")
			continue
		}

		o := outcomes[keys[normalizeAddress(rec.Address)]]
		switch {
		case o.err != nil:
			drop("geocoding failed: " + o.err.Error())
		case !o.result.Matched:
			drop("address not found")
		case !validCoordinates(o.result.Latitude, o.result.Longitude):
			drop("provider returned out-of-range coordinates")
		default:
			geocoded = append(geocoded, model.GeocodedRecord{
				Record:    rec,
				Latitude:  o.result.Latitude,
				Longitude: o.result.Longitude,
			})
		}
	}

	zap.L().Info("addresses resolved",
		zap.Int("records", len(records)),
		zap.Int("unique_addresses", len(addrs)),
		zap.Int("geocoded", len(geocoded)),
		zap.Int("dropped", len(dropped)),
	)
	return geocoded, dropped, nil
}

// normalizeAddress builds the deduplication key: NFC-normalized, lowercased,
// inner whitespace collapsed.
func normalizeAddress(addr string) string {
	return norm.NFC.String(strings.ToLower(strings.Join(strings.Fields(addr), " ")))
}

func validCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
