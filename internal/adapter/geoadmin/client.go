// Package geoadmin resolves Swiss addresses through the GeoAdmin SearchServer
// API (api3.geo.admin.ch).
package geoadmin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/grocery-deals-api/internal/geo"
	"github.com/couchcryptid/grocery-deals-api/internal/observability"
)

// DefaultBaseURL is the public SearchServer endpoint.
const DefaultBaseURL = "https://api3.geo.admin.ch/rest/services/api/SearchServer"

// Client implements domain.Geocoder using the GeoAdmin SearchServer.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	maxRetries     uint64
	initialBackoff time.Duration
	metrics        *observability.Metrics
	logger         *slog.Logger
}

// NewClient creates a GeoAdmin client. timeout bounds each HTTP attempt;
// maxRetries adds that many retries on transport errors and 5xx answers.
func NewClient(baseURL string, timeout time.Duration, maxRetries int, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:        baseURL,
		maxRetries:     uint64(max(maxRetries, 0)),
		initialBackoff: 200 * time.Millisecond,
		metrics:        metrics,
		logger:         logger,
	}
}

// Resolve returns the coordinates of the best match for address. Provider
// errors are logged and reported as not found.
func (c *Client) Resolve(ctx context.Context, address string) (geo.Coordinates, bool) {
	start := time.Now()
	coords, found, err := c.search(ctx, address)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		c.logger.Warn("geocoding failed", "address", address, "error", err)
		return geo.Coordinates{}, false
	case !found:
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		return geo.Coordinates{}, false
	default:
		c.metrics.GeocodeRequests.WithLabelValues("found").Inc()
		return coords, true
	}
}

func (c *Client) search(ctx context.Context, address string) (geo.Coordinates, bool, error) {
	params := url.Values{
		"searchText":     {address},
		"type":           {"locations"},
		"origins":        {"address"},
		"sr":             {strconv.Itoa(geo.SRID)},
		"limit":          {"1"},
		"geometryFormat": {"geojson"},
	}
	fullURL := c.baseURL + "?" + params.Encode()

	var resp response
	attempt := func() error {
		var err error
		resp, err = c.doRequest(ctx, fullURL)
		return err
	}
	if err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)); err != nil {
		return geo.Coordinates{}, false, err
	}

	coords, ok := resp.firstPoint()
	return coords, ok, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.MaxInterval = 2 * time.Second
	return b
}

// doRequest performs one attempt. Client errors and undecodable bodies are
// permanent; transport errors and server errors may be retried.
func (c *Client) doRequest(ctx context.Context, fullURL string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return response{}, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return response{}, fmt.Errorf("geoadmin request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := fmt.Errorf("geoadmin API error: status %d: %s", resp.StatusCode, body)
		if resp.StatusCode >= 500 {
			return response{}, statusErr
		}
		return response{}, backoff.Permanent(statusErr)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return response{}, backoff.Permanent(fmt.Errorf("decode response: %w", err))
	}
	return out, nil
}

// GeoAdmin SearchServer response types (geometryFormat=geojson).

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry *geometry `json:"geometry"`
}

// geometry keeps coordinates raw: a malformed geometry means "no match",
// not a failed request.
type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

var errNotPoint = errors.New("geometry is not a point")

func (r response) firstPoint() (geo.Coordinates, bool) {
	if len(r.Features) == 0 {
		return geo.Coordinates{}, false
	}
	coords, err := r.Features[0].Geometry.point()
	if err != nil {
		return geo.Coordinates{}, false
	}
	return coords, true
}

func (g *geometry) point() (geo.Coordinates, error) {
	if g == nil || g.Type != "Point" {
		return geo.Coordinates{}, errNotPoint
	}
	var position []float64
	if err := json.Unmarshal(g.Coordinates, &position); err != nil {
		return geo.Coordinates{}, fmt.Errorf("point coordinates: %w", err)
	}
	coords, ok := geo.FromLonLat(position)
	if !ok {
		return geo.Coordinates{}, fmt.Errorf("point coordinates %v out of range", position)
	}
	return coords, nil
}
