package stac

import (
	"errors"
	"fmt"
	"mime"
	"path"
	"strconv"
	"strings"
	"time"

	gostac "github.com/planetlabs/go-stac"

	"github.com/rkm/terratales/internal/imagery"
	"github.com/rkm/terratales/internal/region"
	"github.com/rkm/terratales/pkg/geo"
	"github.com/rkm/terratales/pkg/geojson"
)

// ExtentHalfSize is the half-size in degrees of the square spatial extent
// advertised around each region center.
const ExtentHalfSize = 1.0

// ErrNotPlaceable is returned when an image descriptor lacks a URL or bounds.
var ErrNotPlaceable = errors.New("image has no placeable bounds")

// Builder turns catalog regions and fetched images into STAC documents.
type Builder struct {
	catalog     *region.Catalog
	version     string
	title       string
	description string
}

// NewBuilder creates a builder for the given catalog.
func NewBuilder(catalog *region.Catalog, version, title, description string) *Builder {
	return &Builder{
		catalog:     catalog,
		version:     version,
		title:       title,
		description: description,
	}
}

// LandingPage returns the root catalog with a child link per region.
func (b *Builder) LandingPage(baseURL string) *LandingPage {
	h := hrefs(baseURL)
	landing := &LandingPage{
		Type:        "Catalog",
		ID:          "terratales-root",
		Title:       b.title,
		Description: b.description,
		StacVersion: b.version,
		ConformsTo:  DefaultConformance(),
		Links: []*gostac.Link{
			h.root("self"),
			h.root("root"),
			h.page("conformance", "/conformance"),
			h.page("data", "/collections"),
		},
	}

	for _, r := range b.catalog.All() {
		child := h.collection("child", r.ID)
		child.Title = r.FullName
		landing.Links = append(landing.Links, child)
	}
	return landing
}

// Collections returns every region as a collection, in catalog order.
func (b *Builder) Collections(baseURL string) *CollectionsList {
	h := hrefs(baseURL)
	regions := b.catalog.All()
	list := &CollectionsList{
		Collections: make([]*gostac.Collection, 0, len(regions)),
		Links:       []*gostac.Link{h.page("self", "/collections"), h.root("root")},
	}
	for _, r := range regions {
		list.Collections = append(list.Collections, b.Collection(r, baseURL))
	}
	return list
}

// Collection describes one region. The spatial extent is a square around the
// region center and the temporal extent covers every servable year.
func (b *Builder) Collection(r *region.Region, baseURL string) *gostac.Collection {
	h := hrefs(baseURL)

	description := r.Description
	if description == "" {
		description = fmt.Sprintf("%s imagery of %s, %d-%d", strings.ToUpper(string(r.Index)), r.FullName, region.MinYear, region.MaxYear)
	}

	extent := geo.AroundPoint(r.Center, ExtentHalfSize)
	summaries := map[string]any{
		"terratales:index": []string{string(r.Index)},
		"terratales:years": map[string]int{"minimum": region.MinYear, "maximum": region.MaxYear},
	}
	if legend, ok := region.LegendFor(r.Index); ok {
		summaries["terratales:legend"] = legend
	}

	links := []*gostac.Link{h.collection("self", r.ID), h.root("root"), h.root("parent")}
	for y := region.MinYear; y <= region.MaxYear; y++ {
		links = append(links, h.item("item", r.ID, y))
	}

	return &gostac.Collection{
		Version:     b.version,
		Id:          string(r.ID),
		Title:       r.FullName,
		Description: description,
		License:     "proprietary",
		Extent: &gostac.Extent{
			Spatial:  &gostac.SpatialExtent{Bbox: [][]float64{extent.WSEN()}},
			Temporal: &gostac.TemporalExtent{Interval: [][]any{{yearStart(region.MinYear), yearEnd(region.MaxYear)}}},
		},
		Summaries: summaries,
		Links:     links,
	}
}

// Item describes the image fetched for one region and year. Its geometry is the
// overlay bounds and its overlay asset is the image itself.
func (b *Builder) Item(r *region.Region, year int, img *imagery.ImageDescriptor, baseURL string) (*gostac.Item, error) {
	if !img.Placeable() {
		return nil, ErrNotPlaceable
	}

	bbox := img.BoundingBox.WSEN()
	geom, err := geojson.Rectangle(bbox)
	if err != nil {
		return nil, fmt.Errorf("failed to build footprint: %w", err)
	}

	h := hrefs(baseURL)
	return &gostac.Item{
		Version:    b.version,
		Id:         ItemID(r.ID, year),
		Collection: string(r.ID),
		Geometry:   geom,
		Bbox:       bbox,
		// Yearly composites span the whole year.
		Properties: map[string]any{
			"datetime":         nil,
			"start_datetime":   yearStart(year),
			"end_datetime":     yearEnd(year),
			"terratales:index": string(r.Index),
			"terratales:year":  year,
		},
		Assets: map[string]*gostac.Asset{
			"overlay": {
				Href:  img.ImageURL,
				Title: fmt.Sprintf("%s %s %d", r.FullName, strings.ToUpper(string(r.Index)), year),
				Type:  mediaTypeOf(img.ImageURL),
				Roles: []string{"overlay", "visual"},
			},
		},
		Links: []*gostac.Link{
			h.item("self", r.ID, year),
			h.collection("collection", r.ID),
			h.root("root"),
		},
	}, nil
}

// ItemID returns the item id of a region and year, e.g. "cdmx-2000".
func ItemID(id region.ID, year int) string {
	return string(id) + "-" + strconv.Itoa(year)
}

func yearStart(year int) string {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
}

func yearEnd(year int) string {
	return time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC).Format(time.RFC3339)
}

// mediaTypeOf guesses the asset media type from the URL path, defaulting to PNG.
func mediaTypeOf(href string) string {
	ext := path.Ext(strings.SplitN(href, "?", 2)[0])
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "image/png"
}
