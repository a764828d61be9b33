// Package stac publishes the region catalog as STAC documents: one collection per
// region and one item per region-year, built on planetlabs/go-stac.
package stac

import (
	"fmt"

	gostac "github.com/planetlabs/go-stac"

	"github.com/rkm/terratales/internal/region"
)

const (
	mediaJSON    = "application/json"
	mediaGeoJSON = "application/geo+json"
)

// Conformance classes. Items are only reachable through collection links, so no
// search or filter class is claimed.
var conformance = []string{
	"https://api.stacspec.org/v1.0.0/core",
	"https://api.stacspec.org/v1.0.0/collections",
	"http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/core",
	"http://www.opengis.net/spec/ogcapi-features-1/1.0/conf/geojson",
}

// DefaultConformance returns the conformance classes served by the viewer.
func DefaultConformance() []string {
	return append([]string(nil), conformance...)
}

// Conformance is the /conformance document.
type Conformance struct {
	ConformsTo []string `json:"conformsTo"`
}

// LandingPage is the root catalog.
type LandingPage struct {
	Type        string         `json:"type"`
	ID          string         `json:"id"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description"`
	StacVersion string         `json:"stac_version"`
	ConformsTo  []string       `json:"conformsTo,omitempty"`
	Links       []*gostac.Link `json:"links"`
}

// CollectionsList is the /collections document.
type CollectionsList struct {
	Collections []*gostac.Collection `json:"collections"`
	Links       []*gostac.Link       `json:"links"`
}

// hrefs builds the links of a catalog served at base.
type hrefs string

func (h hrefs) link(rel, href, mediaType string) *gostac.Link {
	return &gostac.Link{Rel: rel, Href: href, Type: mediaType}
}

func (h hrefs) root(rel string) *gostac.Link {
	return h.link(rel, string(h)+"/", mediaJSON)
}

func (h hrefs) page(rel, p string) *gostac.Link {
	return h.link(rel, string(h)+p, mediaJSON)
}

func (h hrefs) collection(rel string, id region.ID) *gostac.Link {
	return h.link(rel, fmt.Sprintf("%s/collections/%s", h, id), mediaJSON)
}

func (h hrefs) item(rel string, id region.ID, year int) *gostac.Link {
	return h.link(rel, fmt.Sprintf("%s/collections/%s/items/%d", h, id, year), mediaGeoJSON)
}
