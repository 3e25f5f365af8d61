package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/irc-geo/hand-cli/internal/resilience"
)

const (
	defaultNominatimURL       = "https://nominatim.openstreetmap.org/search"
	defaultNominatimUserAgent = "hand-cli/1.0 (https://github.com/irc-geo/hand-cli)"
)

// nominatimProvider geocodes via OpenStreetMap's public Nominatim API.
// The fair-use policy allows one request per second and requires an
// identifying User-Agent.
type nominatimProvider struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
}

// nominatimResult is one entry of the Nominatim JSON response. Coordinates
// arrive as strings.
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func newNominatimProvider(cfg Config) *nominatimProvider {
	baseURL := cfg.NominatimBaseURL
	if baseURL == "" {
		baseURL = defaultNominatimURL
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultNominatimUserAgent
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &nominatimProvider{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
	}
}

func (p *nominatimProvider) Name() string { return "nominatim" }

func (p *nominatimProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim rate limit")
	}

	params := url.Values{
		"q":      {address},
		"format": {"json"},
		"limit":  {"1"},
	}
	reqURL := p.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim build request")
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim request")
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, eris.Wrapf(ErrDenied, "nominatim: status %d", resp.StatusCode)
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode), resp.StatusCode)
	default:
		return nil, eris.Errorf("geocode: nominatim returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim read body")
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse response")
	}

	if len(results) == 0 {
		return &Result{Matched: false, Source: "nominatim"}, nil
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, eris.Errorf("geocode: nominatim returned invalid latitude %q", results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, eris.Errorf("geocode: nominatim returned invalid longitude %q", results[0].Lon)
	}

	return &Result{
		Latitude:  lat,
		Longitude: lon,
		Matched:   true,
		Source:    "nominatim",
	}, nil
}
