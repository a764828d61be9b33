// Package geo provides the geographic primitives shared by the viewer: points,
// overlay bounding boxes and their conversion to and from S2 rectangles.
package geo

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/s2"

	"github.com/rkm/terratales/pkg/geojson"
)

// ErrInvalidBoundingBox is returned when a bounding box cannot be decoded or is degenerate.
var ErrInvalidBoundingBox = errors.New("invalid bounding box")

// LatLng is a point in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// S2 converts the point to an s2.LatLng.
func (p LatLng) S2() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lng)
}

// Valid reports whether the point lies within the WGS84 coordinate range.
func (p LatLng) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// BoundingBox is the rectangle an overlay is anchored to. On the wire it is the
// corner pair [[latMin, lngMin], [latMax, lngMax]].
type BoundingBox struct {
	SouthWest LatLng
	NorthEast LatLng
}

// NewBoundingBox builds a box from two arbitrary corners, ordering them.
func NewBoundingBox(a, b LatLng) BoundingBox {
	return BoundingBox{
		SouthWest: LatLng{Lat: math.Min(a.Lat, b.Lat), Lng: math.Min(a.Lng, b.Lng)},
		NorthEast: LatLng{Lat: math.Max(a.Lat, b.Lat), Lng: math.Max(a.Lng, b.Lng)},
	}
}

// Center returns the midpoint of the box.
func (b BoundingBox) Center() LatLng {
	return LatLng{
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
		Lng: (b.SouthWest.Lng + b.NorthEast.Lng) / 2,
	}
}

// Validate checks the corners are ordered and within range.
func (b BoundingBox) Validate() error {
	if !b.SouthWest.Valid() || !b.NorthEast.Valid() {
		return fmt.Errorf("%w: corner out of range", ErrInvalidBoundingBox)
	}
	if b.SouthWest.Lat > b.NorthEast.Lat || b.SouthWest.Lng > b.NorthEast.Lng {
		return fmt.Errorf("%w: corners are not ordered south-west to north-east", ErrInvalidBoundingBox)
	}
	return nil
}

// Pad grows the box on every side by ratio of its larger dimension.
func (b BoundingBox) Pad(ratio float64) BoundingBox {
	pad := ratio * math.Max(b.NorthEast.Lng-b.SouthWest.Lng, b.NorthEast.Lat-b.SouthWest.Lat)
	return BoundingBox{
		SouthWest: LatLng{Lat: b.SouthWest.Lat - pad, Lng: b.SouthWest.Lng - pad},
		NorthEast: LatLng{Lat: b.NorthEast.Lat + pad, Lng: b.NorthEast.Lng + pad},
	}
}

// Rect converts the box to an S2 rectangle.
func (b BoundingBox) Rect() s2.Rect {
	return s2.RectFromLatLng(b.SouthWest.S2()).AddPoint(b.NorthEast.S2())
}

// Contains reports whether p lies inside the box.
func (b BoundingBox) Contains(p LatLng) bool {
	return b.Rect().ContainsLatLng(p.S2())
}

// WSEN returns the box in STAC/GeoJSON order [west, south, east, north].
func (b BoundingBox) WSEN() []float64 {
	return []float64{b.SouthWest.Lng, b.SouthWest.Lat, b.NorthEast.Lng, b.NorthEast.Lat}
}

// FromRect converts an S2 rectangle back to a box.
func FromRect(r s2.Rect) BoundingBox {
	lo, hi := r.Lo(), r.Hi()
	return BoundingBox{
		SouthWest: LatLng{Lat: lo.Lat.Degrees(), Lng: lo.Lng.Degrees()},
		NorthEast: LatLng{Lat: hi.Lat.Degrees(), Lng: hi.Lng.Degrees()},
	}
}

// AroundPoint returns a square box of the given half-size in degrees centered on p.
func AroundPoint(p LatLng, halfSizeDeg float64) BoundingBox {
	r := s2.RectFromCenterSize(p.S2(), s2.LatLngFromDegrees(2*halfSizeDeg, 2*halfSizeDeg))
	return FromRect(r.PolarClosure())
}

// MarshalJSON encodes the box as [[latMin, lngMin], [latMax, lngMax]].
func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([2][2]float64{
		{b.SouthWest.Lat, b.SouthWest.Lng},
		{b.NorthEast.Lat, b.NorthEast.Lng},
	})
}

// UnmarshalJSON accepts either the corner pair form or a GeoJSON Polygon or
// MultiPolygon footprint, in which case the envelope of the footprint is used.
func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: empty value", ErrInvalidBoundingBox)
	}

	switch data[0] {
	case '[':
		var corners [][]float64
		if err := json.Unmarshal(data, &corners); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBoundingBox, err)
		}
		if len(corners) != 2 || len(corners[0]) < 2 || len(corners[1]) < 2 {
			return fmt.Errorf("%w: expected two [lat, lng] corners", ErrInvalidBoundingBox)
		}
		*b = NewBoundingBox(
			LatLng{Lat: corners[0][0], Lng: corners[0][1]},
			LatLng{Lat: corners[1][0], Lng: corners[1][1]},
		)
	case '{':
		var g geojson.Geometry
		if err := json.Unmarshal(data, &g); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBoundingBox, err)
		}
		wsen, err := geojson.Envelope(&g)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidBoundingBox, err)
		}
		*b = BoundingBox{
			SouthWest: LatLng{Lat: wsen[1], Lng: wsen[0]},
			NorthEast: LatLng{Lat: wsen[3], Lng: wsen[2]},
		}
	default:
		return fmt.Errorf("%w: unsupported JSON value", ErrInvalidBoundingBox)
	}

	return b.Validate()
}
