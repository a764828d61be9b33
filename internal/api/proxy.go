package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rkm/terratales/internal/imagery"
	"github.com/rkm/terratales/internal/region"
	"github.com/rkm/terratales/internal/scale"
	"github.com/rkm/terratales/pkg/geo"
)

// Proxy failure messages parsed by the browser front-end.
const (
	MsgImageProxyFailed  = "Failed to fetch image from backend"
	MsgSeriesProxyFailed = "Failed to fetch timeseries from backend"
)

// imageResponse is the proxied get_image payload with every image reference
// made absolute.
type imageResponse struct {
	URL          string           `json:"url"`
	ThumbnailURL string           `json:"thumbnailUrl"`
	BBox         *geo.BoundingBox `json:"bbox,omitempty"`
}

// backendFailure relays a domain failure reported by the imagery service.
type backendFailure struct {
	Error   any    `json:"error"`
	Apology string `json:"apology,omitempty"`
	Message string `json:"message,omitempty"`
}

// GetImage forwards an image request to the imagery service.
// GET /api/get-image?region=&year=&index=&scale=
func (h *Handlers) GetImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	reg, ok := h.regionQuery(w, q)
	if !ok {
		return
	}

	year, err := parseYear(q.Get("year"))
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	index, ok := indexQuery(w, q, reg)
	if !ok {
		return
	}

	tier, err := scale.ParseTier(q.Get("scale"))
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return
	}

	key := imagery.FetchKey{Region: reg.ID, Year: year, Index: index, Tier: tier}
	img, err := h.backend.GetImage(r.Context(), key)
	if err != nil {
		h.writeImageFailure(w, r, key, err)
		return
	}

	WriteJSON(w, http.StatusOK, imageResponse{
		URL:          img.ImageURL,
		ThumbnailURL: img.ImageURL,
		BBox:         img.BoundingBox,
	})
}

// writeImageFailure relays service failures that carry an apology with their
// original status and reports everything else as a 500.
func (h *Handlers) writeImageFailure(w http.ResponseWriter, r *http.Request, key imagery.FetchKey, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}

	var se *imagery.ServiceError
	if errors.As(err, &se) && se.Apology != "" {
		h.logger.InfoContext(r.Context(), "relaying imagery service failure",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("key", key.String()),
			slog.String("code", se.Code),
		)

		status := se.StatusCode
		if status == 0 {
			status = http.StatusOK
		}

		var code any = se.Code
		if se.Code == "true" || se.Code == "" {
			code = true
		}
		WriteJSON(w, status, backendFailure{Error: code, Apology: se.Apology, Message: se.Message})
		return
	}

	h.logger.ErrorContext(r.Context(), "image proxy request failed",
		slog.String("request_id", GetRequestID(r.Context())),
		slog.String("key", key.String()),
		slog.String("error", err.Error()),
	)
	WriteProxyError(w, http.StatusInternalServerError, MsgImageProxyFailed, err.Error())
}

// GetTimeSeries forwards a time-series request to the imagery service. start and
// end default to the full year range.
// GET /api/get-timeseries?region=&index=&start=&end=
func (h *Handlers) GetTimeSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	reg, ok := h.regionQuery(w, q)
	if !ok {
		return
	}

	index, ok := indexQuery(w, q, reg)
	if !ok {
		return
	}

	start, end := region.MinYear, region.MaxYear
	if s := q.Get("start"); s != "" {
		y, err := parseYear(s)
		if err != nil {
			WriteInvalidParameter(w, err.Error())
			return
		}
		start = y
	}
	if s := q.Get("end"); s != "" {
		y, err := parseYear(s)
		if err != nil {
			WriteInvalidParameter(w, err.Error())
			return
		}
		end = y
	}
	if start > end {
		WriteInvalidParameter(w, fmt.Sprintf("start year %d is after end year %d", start, end))
		return
	}

	key := imagery.SeriesKey{Region: reg.ID, Index: index, StartYear: start, EndYear: end}
	series, err := h.backend.GetTimeSeries(r.Context(), key)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		h.logger.ErrorContext(r.Context(), "time series proxy request failed",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("key", key.String()),
			slog.String("error", err.Error()),
		)
		WriteProxyError(w, http.StatusInternalServerError, MsgSeriesProxyFailed, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, series)
}

// regionQuery resolves the region query parameter, writing a 400 when it is
// missing or unknown.
func (h *Handlers) regionQuery(w http.ResponseWriter, q url.Values) (*region.Region, bool) {
	raw := q.Get("region")
	if raw == "" {
		WriteInvalidParameter(w, "region is required")
		return nil, false
	}

	id, err := h.catalog.Parse(raw)
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return nil, false
	}

	reg, _ := h.catalog.Lookup(id)
	return reg, true
}

// indexQuery parses the optional index parameter, defaulting to the region's own.
func indexQuery(w http.ResponseWriter, q url.Values, reg *region.Region) (region.IndexKind, bool) {
	raw := q.Get("index")
	if raw == "" {
		return reg.Index, true
	}

	index, err := region.ParseIndexKind(raw)
	if err != nil {
		WriteInvalidParameter(w, err.Error())
		return "", false
	}
	return index, true
}

func parseYear(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("year is required")
	}
	y, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid year %q", s)
	}
	if err := region.ValidateYear(y); err != nil {
		return 0, err
	}
	return y, nil
}
