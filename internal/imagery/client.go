// Package imagery is the client for the external imagery service that renders index
// rasters and computes per-year index series.
package imagery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/rkm/terratales/pkg/geo"
)

// DefaultBaseURL is the local development address of the imagery service.
const DefaultBaseURL = "http://localhost:5000"

// maxErrorBody bounds how much of a failed response is read for logging.
const maxErrorBody = 64 * 1024

// Fetcher is the image half of the client, as consumed by the view components.
type Fetcher interface {
	GetImage(ctx context.Context, key FetchKey) (*ImageDescriptor, error)
}

// SeriesFetcher is the time-series half of the client.
type SeriesFetcher interface {
	GetTimeSeries(ctx context.Context, key SeriesKey) (*Series, error)
}

// Client handles communication with the imagery service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	images *expirable.LRU[FetchKey, *ImageDescriptor]
	group  singleflight.Group
}

// NewClient creates a new imagery client. An empty baseURL selects DefaultBaseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		logger: slog.Default(),
	}
}

// WithLogger sets a custom logger for the client
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	c.logger = logger
	return c
}

// WithCache keeps up to size successful image descriptors for ttl.
func (c *Client) WithCache(size int, ttl time.Duration) *Client {
	if size > 0 {
		c.images = expirable.NewLRU[FetchKey, *ImageDescriptor](size, nil, ttl)
	}
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// BaseURL returns the service base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ResolveURL resolves a service-relative path such as /cache/thumbs/x.png against
// the base URL. Absolute URLs are returned unchanged.
func (c *Client) ResolveURL(ref string) string {
	if strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//") {
		return c.baseURL + ref
	}
	return ref
}

// GetImage fetches the descriptor of one raster image. Concurrent calls with the
// same key share one upstream request.
func (c *Client) GetImage(ctx context.Context, key FetchKey) (*ImageDescriptor, error) {
	if c.images != nil {
		if d, ok := c.images.Get(key); ok {
			c.logger.DebugContext(ctx, "image cache hit", slog.String("key", key.String()))
			return d, nil
		}
	}

	ch := c.group.DoChan(key.String(), func() (interface{}, error) {
		// The shared request outlives any single caller; the client timeout bounds it.
		return c.fetchImage(context.WithoutCancel(ctx), key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		d := res.Val.(*ImageDescriptor)
		if c.images != nil {
			c.images.Add(key, d)
		}
		return d, nil
	}
}

func (c *Client) fetchImage(ctx context.Context, key FetchKey) (*ImageDescriptor, error) {
	var raw imageResponse
	if err := c.getJSON(ctx, "/get_image", key.Query(), &raw, func(status int, body []byte) error {
		var ef imageResponse
		if json.Unmarshal(body, &ef) == nil && ef.failed() {
			return ef.serviceError(status)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if raw.failed() {
		se := raw.serviceError(http.StatusOK)
		c.logger.InfoContext(ctx, "imagery service reported failure",
			slog.String("key", key.String()),
			slog.String("code", se.Code),
		)
		return nil, se
	}

	return c.normalizeImage(raw)
}

// normalizeImage turns the raw payload into the strict descriptor variant.
func (c *Client) normalizeImage(raw imageResponse) (*ImageDescriptor, error) {
	ref := raw.URL
	if ref == "" {
		ref = raw.ThumbnailURL
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: image reference absent", ErrMalformedResponse)
	}

	d := &ImageDescriptor{ImageURL: c.ResolveURL(ref)}

	if len(raw.BBox) > 0 && string(raw.BBox) != "null" {
		var b geo.BoundingBox
		if err := json.Unmarshal(raw.BBox, &b); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		d.BoundingBox = &b
	}

	return d, nil
}

// GetTimeSeries fetches the per-year index series for a region.
func (c *Client) GetTimeSeries(ctx context.Context, key SeriesKey) (*Series, error) {
	var raw seriesResponse
	if err := c.getJSON(ctx, "/get_timeseries", key.Query(), &raw, func(status int, body []byte) error {
		var ef seriesResponse
		if json.Unmarshal(body, &ef) == nil && ef.failed() {
			return ef.serviceError(status)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if raw.failed() {
		return nil, raw.serviceError(http.StatusOK)
	}

	if len(raw.Years) != len(raw.Values) {
		return nil, fmt.Errorf("%w: %d years but %d values", ErrMalformedResponse, len(raw.Years), len(raw.Values))
	}

	s := raw.Series
	return &s, nil
}

// getJSON performs a GET and decodes a 2xx body into out. For other statuses,
// classify may turn the body into a domain error; otherwise a TransportError is
// returned.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any, classify func(status int, body []byte) error) error {
	reqURL := c.baseURL + path + "?" + query.Encode()

	c.logger.DebugContext(ctx, "calling imagery service",
		slog.String("url", reqURL),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "terratales-viewer/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		c.logger.ErrorContext(ctx, "imagery service request failed",
			slog.String("error", err.Error()),
			slog.String("url", reqURL),
		)
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.WarnContext(ctx, "imagery service returned non-2xx status",
			slog.Int("status_code", resp.StatusCode),
			slog.String("response_body", string(body)),
		)
		if classify != nil {
			if domainErr := classify(resp.StatusCode, body); domainErr != nil {
				return domainErr
			}
		}
		return &TransportError{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", http.StatusText(resp.StatusCode)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.ErrorContext(ctx, "failed to decode imagery response",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return nil
}
