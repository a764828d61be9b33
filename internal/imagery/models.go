package imagery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rkm/terratales/internal/region"
	"github.com/rkm/terratales/internal/scale"
	"github.com/rkm/terratales/pkg/geo"
)

// FetchKey identifies one image request. Two requests with equal keys are duplicates.
type FetchKey struct {
	Region region.ID
	Year   int
	Index  region.IndexKind
	Tier   scale.Tier
}

// String returns a stable cache key.
func (k FetchKey) String() string {
	return fmt.Sprintf("%s/%d/%s/%s", k.Region, k.Year, k.Index, k.Tier)
}

// Query returns the service query parameters. The scale parameter is omitted for
// the zero Tier.
func (k FetchKey) Query() url.Values {
	q := url.Values{}
	q.Set("region", string(k.Region))
	q.Set("year", strconv.Itoa(k.Year))
	q.Set("index", string(k.Index))
	if m := k.Tier.Meters(); m > 0 {
		q.Set("scale", strconv.Itoa(m))
	}
	return q
}

// ImageDescriptor is the normalized result of a successful image fetch.
// A nil BoundingBox means the image cannot be placed on the map.
type ImageDescriptor struct {
	ImageURL    string           `json:"url"`
	BoundingBox *geo.BoundingBox `json:"bbox,omitempty"`
}

// Placeable reports whether the descriptor carries everything an overlay needs.
func (d *ImageDescriptor) Placeable() bool {
	return d != nil && d.ImageURL != "" && d.BoundingBox != nil
}

// SeriesKey identifies one time-series request.
type SeriesKey struct {
	Region    region.ID
	Index     region.IndexKind
	StartYear int
	EndYear   int
}

// String returns a stable cache key.
func (k SeriesKey) String() string {
	return fmt.Sprintf("%s/%s/%d-%d", k.Region, k.Index, k.StartYear, k.EndYear)
}

// Query returns the service query parameters.
func (k SeriesKey) Query() url.Values {
	q := url.Values{}
	q.Set("region", string(k.Region))
	q.Set("index", string(k.Index))
	q.Set("start", strconv.Itoa(k.StartYear))
	q.Set("end", strconv.Itoa(k.EndYear))
	return q
}

// Series holds the parallel arrays returned by the time-series endpoint.
// A nil value means the year has no observation.
type Series struct {
	Years  []int      `json:"years"`
	Values []*float64 `json:"values"`
	Cached bool       `json:"cached,omitempty"`
}

// imageResponse is the raw get_image payload. The service has returned the image
// reference as url or thumbnailUrl and bbox either as a corner pair or GeoJSON.
type imageResponse struct {
	URL          string          `json:"url"`
	ThumbnailURL string          `json:"thumbnailUrl"`
	BBox         json.RawMessage `json:"bbox"`
	errorFields
}

type seriesResponse struct {
	Series
	errorFields
}

// errorFields are the domain failure fields shared by both endpoints.
type errorFields struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Apology string          `json:"apology"`
	Details string          `json:"details"`
}

// failed reports whether the error field is set to anything truthy.
func (e errorFields) failed() bool {
	v := bytes.TrimSpace(e.Error)
	switch string(v) {
	case "", "null", "false", `""`, "0":
		return false
	default:
		return true
	}
}

// code returns the error field as text, e.g. "no_images".
func (e errorFields) code() string {
	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(e.Error))
}

func (e errorFields) serviceError(status int) *ServiceError {
	msg := e.Message
	if msg == "" {
		msg = e.Details
	}
	return &ServiceError{
		StatusCode: status,
		Code:       e.code(),
		Message:    msg,
		Apology:    e.Apology,
	}
}
