// Package earthengine is a minimal client for the Earth Engine REST API,
// covering the single operation this tool needs: sampling a raster image at a
// set of points. Points are submitted as a GeoJSON feature collection and the
// sampled band value comes back per feature.
package earthengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/irc-geo/hand-cli/internal/resilience"
)

const defaultBaseURL = "https://earthengine.googleapis.com"

// Scopes required for Earth Engine compute calls.
var scopes = []string{
	"https://www.googleapis.com/auth/earthengine",
	"https://www.googleapis.com/auth/cloud-platform",
}

// ErrUnauthorized marks a credential rejection. Sampling cannot recover from
// this mid-run; callers should abort rather than degrade to absent values.
var ErrUnauthorized = eris.New("earthengine: credentials rejected")

// Client talks to the Earth Engine REST API for one project.
type Client struct {
	httpClient *http.Client
	baseURL    string
	project    string
	band       string
	timeout    time.Duration
	credsFile  string
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the authenticated HTTP client (for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBand selects the image band to sample. Default "b1".
func WithBand(band string) Option {
	return func(c *Client) { c.band = band }
}

// WithTimeout bounds each sampling call. Default 60s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithCredentialsFile authenticates with a service-account JSON key instead
// of application default credentials.
func WithCredentialsFile(path string) Option {
	return func(c *Client) { c.credsFile = path }
}

// NewClient creates a client for the given Earth Engine project. Unless an
// HTTP client is injected, it authenticates via the service-account key file
// or application default credentials.
func NewClient(ctx context.Context, project string, opts ...Option) (*Client, error) {
	if project == "" {
		return nil, eris.New("earthengine: project is required")
	}

	c := &Client{
		baseURL: defaultBaseURL,
		project: project,
		band:    "b1",
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		ts, err := tokenSource(ctx, c.credsFile)
		if err != nil {
			return nil, err
		}
		c.httpClient = oauth2.NewClient(ctx, ts)
	}
	c.httpClient.Timeout = c.timeout

	return c, nil
}

func tokenSource(ctx context.Context, credsFile string) (oauth2.TokenSource, error) {
	if credsFile != "" {
		data, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, eris.Wrap(err, "earthengine: read credentials file")
		}
		creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
		if err != nil {
			return nil, eris.Wrap(err, "earthengine: parse credentials")
		}
		return creds.TokenSource, nil
	}

	ts, err := google.DefaultTokenSource(ctx, scopes...)
	if err != nil {
		return nil, eris.Wrap(err, "earthengine: application default credentials")
	}
	return ts, nil
}

// sampleRequest is the body of a sampleRegions call: the image asset to
// sample, the band to read, and the points as GeoJSON.
type sampleRequest struct {
	Asset      string                     `json:"asset"`
	Band       string                     `json:"band"`
	Collection *geojson.FeatureCollection `json:"collection"`
}

type sampleResponse struct {
	Features []struct {
		Properties map[string]float64 `json:"properties"`
	} `json:"features"`
}

// SampleRegions samples the asset's band at each point and returns the values
// index-aligned with the input. Points outside the raster's coverage come
// back nil: Earth Engine's sampleRegions drops uncovered points from the
// response, so each submitted feature carries an idx property to re-join by
// position.
func (c *Client) SampleRegions(ctx context.Context, asset string, points []*geom.Point) ([]*float64, error) {
	if len(points) == 0 {
		return nil, nil
	}

	features := make([]*geojson.Feature, len(points))
	for i, p := range points {
		features[i] = &geojson.Feature{
			Geometry:   p,
			Properties: map[string]interface{}{"idx": i},
		}
	}

	body, err := json.Marshal(sampleRequest{
		Asset:      asset,
		Band:       c.band,
		Collection: &geojson.FeatureCollection{Features: features},
	})
	if err != nil {
		return nil, eris.Wrap(err, "earthengine: encode request")
	}

	reqURL := fmt.Sprintf("%s/v1/projects/%s/image:sampleRegions", c.baseURL, c.project)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "earthengine: build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "earthengine: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, eris.Wrapf(ErrUnauthorized, "status %d", resp.StatusCode)
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("earthengine: status %d", resp.StatusCode), resp.StatusCode)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, eris.Errorf("earthengine: status %d: %s", resp.StatusCode, msg)
	}

	var sr sampleResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, eris.Wrap(err, "earthengine: decode response")
	}

	values := make([]*float64, len(points))
	for _, f := range sr.Features {
		idx, ok := f.Properties["idx"]
		if !ok {
			return nil, eris.New("earthengine: response feature missing idx property")
		}
		i := int(idx)
		if i < 0 || i >= len(points) {
			return nil, eris.Errorf("earthengine: response idx %d out of range", i)
		}
		if v, ok := f.Properties[c.band]; ok {
			val := v
			values[i] = &val
		}
	}

	return values, nil
}
