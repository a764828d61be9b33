// Package timeseries reshapes the service's parallel year/value arrays into
// chart points. Missing observations stay explicit gaps; nothing is interpolated.
package timeseries

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/samber/lo"

	"github.com/rkm/terratales/internal/imagery"
	"github.com/rkm/terratales/internal/region"
)

// User-facing error messages.
const (
	MsgFailed    = "Failed to load time series data"
	MsgMalformed = "The time series response was incomplete."
)

// ErrInvalidRange is returned when the start year is after the end year.
var ErrInvalidRange = errors.New("start year after end year")

// Point is one chart sample. A nil Value is a gap.
type Point struct {
	Year  int      `json:"year"`
	Value *float64 `json:"value"`
}

// Adapter fetches series and converts them to points.
type Adapter struct {
	fetcher imagery.SeriesFetcher
	catalog *region.Catalog
	cache   *expirable.LRU[imagery.SeriesKey, []Point]
	logger  *slog.Logger
}

// NewAdapter creates an adapter.
func NewAdapter(fetcher imagery.SeriesFetcher, catalog *region.Catalog) *Adapter {
	return &Adapter{
		fetcher: fetcher,
		catalog: catalog,
		logger:  slog.Default(),
	}
}

// WithLogger sets a custom logger for the adapter
func (a *Adapter) WithLogger(logger *slog.Logger) *Adapter {
	a.logger = logger
	return a
}

// WithCache keeps up to size converted series for ttl.
func (a *Adapter) WithCache(size int, ttl time.Duration) *Adapter {
	if size > 0 {
		a.cache = expirable.NewLRU[imagery.SeriesKey, []Point](size, nil, ttl)
	}
	return a
}

// Fetch loads the series for a region between start and end inclusive. An empty
// index selects the region's own index. On error no points are returned.
func (a *Adapter) Fetch(ctx context.Context, id region.ID, index region.IndexKind, start, end int) ([]Point, error) {
	r, err := a.catalog.Lookup(id)
	if err != nil {
		return nil, err
	}
	if index == "" {
		index = r.Index
	}
	if err := region.ValidateYear(start); err != nil {
		return nil, err
	}
	if err := region.ValidateYear(end); err != nil {
		return nil, err
	}
	if start > end {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidRange, start, end)
	}

	key := imagery.SeriesKey{Region: id, Index: index, StartYear: start, EndYear: end}
	if a.cache != nil {
		if pts, ok := a.cache.Get(key); ok {
			return pts, nil
		}
	}

	series, err := a.fetcher.GetTimeSeries(ctx, key)
	if err != nil {
		a.logger.WarnContext(ctx, "time series fetch failed",
			slog.String("key", key.String()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	pts, err := Points(series)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		a.cache.Add(key, pts)
	}
	return pts, nil
}

// Points zips years and values positionally.
func Points(s *imagery.Series) ([]Point, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: empty series", imagery.ErrMalformedResponse)
	}
	if len(s.Years) != len(s.Values) {
		return nil, fmt.Errorf("%w: %d years but %d values", imagery.ErrMalformedResponse, len(s.Years), len(s.Values))
	}

	return lo.Map(lo.Zip2(s.Years, s.Values), func(t lo.Tuple2[int, *float64], _ int) Point {
		return Point{Year: t.A, Value: t.B}
	}), nil
}

// Message converts a fetch error into the single message shown with the chart.
func Message(err error) string {
	if err == nil {
		return ""
	}
	if msg := imagery.Explanation(err); msg != "" {
		return msg
	}
	if errors.Is(err, imagery.ErrMalformedResponse) {
		return MsgMalformed
	}
	return MsgFailed
}

// Gaps returns the years without an observation.
func Gaps(points []Point) []int {
	return lo.FilterMap(points, func(p Point, _ int) (int, bool) {
		return p.Year, p.Value == nil
	})
}
