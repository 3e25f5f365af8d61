// Package geocode resolves street addresses to WGS84 coordinates through an
// external provider: Google Maps or OpenStreetMap Nominatim.
package geocode

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Provider is a single geocoding backend.
type Provider interface {
	Name() string
	// Geocode resolves one address. An address the provider does not know is
	// reported as Matched=false with a nil error; errors are reserved for
	// transport and service failures.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the geocoding output for one address.
type Result struct {
	Latitude  float64
	Longitude float64
	Matched   bool
	Source    string
}

// ErrDenied marks a systemic authorization failure (bad API key, blocked
// client). Callers should abort the run rather than retry or drop records.
var ErrDenied = eris.New("geocode: request denied")

// Config selects and tunes the provider.
type Config struct {
	// Provider is "google" or "nominatim".
	Provider string
	// GoogleAPIKey is required for the google provider.
	GoogleAPIKey string
	// GoogleRegion biases results toward a ccTLD region (for example "br").
	GoogleRegion string
	// GoogleLanguage sets the response language (for example "pt-BR").
	GoogleLanguage string
	// NominatimBaseURL overrides the public Nominatim endpoint.
	NominatimBaseURL string
	// UserAgent identifies this client to Nominatim, required by its usage policy.
	UserAgent string
	// RateLimit caps requests per second. Nominatim fair use is 1 req/s.
	RateLimit float64
	// Timeout bounds each geocoding call.
	Timeout time.Duration
}

// New creates the provider named in cfg.
func New(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "google":
		return newGoogleProvider(cfg)
	case "nominatim", "":
		return newNominatimProvider(cfg), nil
	default:
		return nil, eris.Errorf("geocode: unsupported provider %q", cfg.Provider)
	}
}
