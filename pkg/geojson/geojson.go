// Package geojson reads and writes the few GeoJSON geometries the viewer deals
// with: image footprints the imagery service may send in place of a corner pair,
// and the rectangles published as STAC item geometries.
package geojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Geometry types understood by Envelope.
const (
	TypePoint        = "Point"
	TypePolygon      = "Polygon"
	TypeMultiPolygon = "MultiPolygon"
)

var (
	// ErrUnsupportedType is returned for geometry types other than Point,
	// Polygon and MultiPolygon.
	ErrUnsupportedType = errors.New("unsupported geometry type")

	// ErrNoCoordinates is returned for a geometry without any usable position.
	ErrNoCoordinates = errors.New("geometry has no coordinates")
)

// Geometry is a GeoJSON geometry object. Coordinates stay raw until a type-aware
// accessor decodes them.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Position is [lon, lat] with an optional altitude.
type Position []float64

// Positions returns every position of the geometry, rings flattened.
func (g *Geometry) Positions() ([]Position, error) {
	if g == nil {
		return nil, ErrNoCoordinates
	}

	var out []Position
	var err error
	switch g.Type {
	case TypePoint:
		var p Position
		err = json.Unmarshal(g.Coordinates, &p)
		out = []Position{p}
	case TypePolygon:
		var rings [][]Position
		err = json.Unmarshal(g.Coordinates, &rings)
		for _, ring := range rings {
			out = append(out, ring...)
		}
	case TypeMultiPolygon:
		var polygons [][][]Position
		err = json.Unmarshal(g.Coordinates, &polygons)
		for _, rings := range polygons {
			for _, ring := range rings {
				out = append(out, ring...)
			}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, g.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s coordinates: %w", g.Type, err)
	}
	return out, nil
}

// Envelope returns the smallest box holding the geometry as
// [west, south, east, north]. Positions with fewer than two values are skipped.
func Envelope(g *Geometry) ([]float64, error) {
	positions, err := g.Positions()
	if err != nil {
		return nil, err
	}

	west, south := math.Inf(1), math.Inf(1)
	east, north := math.Inf(-1), math.Inf(-1)
	for _, p := range positions {
		if len(p) < 2 {
			continue
		}
		west, east = math.Min(west, p[0]), math.Max(east, p[0])
		south, north = math.Min(south, p[1]), math.Max(north, p[1])
	}

	if math.IsInf(west, 0) {
		return nil, ErrNoCoordinates
	}
	return []float64{west, south, east, north}, nil
}

// Rectangle returns the closed polygon covering a [west, south, east, north] box,
// wound counter-clockwise.
func Rectangle(wsen []float64) (*Geometry, error) {
	if len(wsen) != 4 {
		return nil, fmt.Errorf("rectangle needs [west, south, east, north], got %d values", len(wsen))
	}
	w, s, e, n := wsen[0], wsen[1], wsen[2], wsen[3]

	coords, err := json.Marshal([][]Position{{{w, s}, {e, s}, {e, n}, {w, n}, {w, s}}})
	if err != nil {
		return nil, err
	}
	return &Geometry{Type: TypePolygon, Coordinates: coords}, nil
}
