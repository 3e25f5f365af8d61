package geocode

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"googlemaps.github.io/maps"

	"github.com/irc-geo/hand-cli/internal/resilience"
)

// googleAPI is the slice of the Google Maps client this provider needs.
// Narrowing to an interface keeps the provider mockable in tests.
type googleAPI interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

type googleProvider struct {
	client   googleAPI
	region   string
	language string
}

func newGoogleProvider(cfg Config) (*googleProvider, error) {
	if cfg.GoogleAPIKey == "" {
		return nil, eris.New("geocode: google api key is required")
	}

	opts := []maps.ClientOption{maps.WithAPIKey(cfg.GoogleAPIKey)}
	if cfg.RateLimit > 0 {
		opts = append(opts, maps.WithRateLimit(int(cfg.RateLimit)))
	}

	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: create google maps client")
	}

	return &googleProvider{client: client, region: cfg.GoogleRegion, language: cfg.GoogleLanguage}, nil
}

func (p *googleProvider) Name() string { return "google" }

// Geocode resolves an address via the Google Geocoding API. Zero results,
// multiple (ambiguous) results and partial matches all count as unmatched:
// an address the service cannot pin down is a data-quality problem, not
// something to guess at.
func (p *googleProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	req := &maps.GeocodingRequest{
		Address:  address,
		Region:   p.region,
		Language: p.language,
	}

	results, err := p.client.Geocode(ctx, req)
	if err != nil {
		return nil, classifyGoogleError(err)
	}

	if len(results) != 1 || results[0].PartialMatch {
		return &Result{Matched: false, Source: "google"}, nil
	}

	loc := results[0].Geometry.Location
	return &Result{
		Latitude:  loc.Lat,
		Longitude: loc.Lng,
		Matched:   true,
		Source:    "google",
	}, nil
}

// classifyGoogleError maps Maps API error strings onto the retry taxonomy.
// The maps client surfaces API statuses as opaque errors, so this goes by
// message.
func classifyGoogleError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "REQUEST_DENIED"):
		return eris.Wrapf(ErrDenied, "google: %v", err)
	case strings.Contains(msg, "OVER_QUERY_LIMIT"), strings.Contains(msg, "UNKNOWN_ERROR"):
		return resilience.NewTransientError(err, 0)
	default:
		return eris.Wrap(err, "geocode: google")
	}
}
