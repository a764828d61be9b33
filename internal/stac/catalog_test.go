package stac

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rkm/terratales/internal/imagery"
	"github.com/rkm/terratales/internal/region"
	"github.com/rkm/terratales/pkg/geo"
	"github.com/rkm/terratales/pkg/geojson"
)

const testBaseURL = "http://localhost:8080"

func newTestBuilder() *Builder {
	return NewBuilder(region.Default(), "1.0.0", "TerraTales", "test catalog")
}

func TestBuilder_Collections(t *testing.T) {
	b := newTestBuilder()
	list := b.Collections(testBaseURL)

	if len(list.Collections) != 3 {
		t.Fatalf("Expected 3 collections, got %d", len(list.Collections))
	}

	ids := []string{"alaska", "manaos", "cdmx"}
	for i, c := range list.Collections {
		if c.Id != ids[i] {
			t.Errorf("Expected collection %d to be %s, got %s", i, ids[i], c.Id)
		}
	}

	if len(list.Links) != 2 || list.Links[0].Rel != "self" {
		t.Errorf("Expected self and root links, got %v", list.Links)
	}
}

func TestBuilder_CollectionExtent(t *testing.T) {
	b := newTestBuilder()
	r, _ := region.Default().Lookup(region.CDMX)

	c := b.Collection(r, testBaseURL)

	if c.Title != "Mexico City" {
		t.Errorf("Expected title Mexico City, got %s", c.Title)
	}
	if !strings.Contains(c.Description, "NDBI") {
		t.Errorf("Expected generated description to name the index, got %s", c.Description)
	}

	bbox := c.Extent.Spatial.Bbox[0]
	if len(bbox) != 4 {
		t.Fatalf("Expected a 2D bbox, got %v", bbox)
	}
	box := geo.BoundingBox{
		SouthWest: geo.LatLng{Lat: bbox[1], Lng: bbox[0]},
		NorthEast: geo.LatLng{Lat: bbox[3], Lng: bbox[2]},
	}
	if !box.Contains(r.Center) {
		t.Errorf("Expected extent %v to contain the region center %v", bbox, r.Center)
	}

	interval := c.Extent.Temporal.Interval[0]
	if interval[0] != "1990-01-01T00:00:00Z" || interval[1] != "2025-12-31T23:59:59Z" {
		t.Errorf("Unexpected temporal interval %v", interval)
	}

	items := 0
	for _, l := range c.Links {
		if l.Rel == "item" {
			items++
		}
	}
	if items != region.MaxYear-region.MinYear+1 {
		t.Errorf("Expected one item link per year, got %d", items)
	}
}

func TestBuilder_Item(t *testing.T) {
	b := newTestBuilder()
	r, _ := region.Default().Lookup(region.CDMX)
	box := geo.NewBoundingBox(geo.LatLng{Lat: 19, Lng: -100}, geo.LatLng{Lat: 20, Lng: -98})

	item, err := b.Item(r, 2000, &imagery.ImageDescriptor{
		ImageURL:    "http://localhost:5000/static/cdmx_2000.png",
		BoundingBox: &box,
	}, testBaseURL)
	if err != nil {
		t.Fatalf("Item failed: %v", err)
	}

	if item.Id != "cdmx-2000" {
		t.Errorf("Expected id cdmx-2000, got %s", item.Id)
	}

	wantBBox := []float64{-100, 19, -98, 20}
	for i, v := range wantBBox {
		if item.Bbox[i] != v {
			t.Errorf("Expected bbox %v, got %v", wantBBox, item.Bbox)
			break
		}
	}

	geom, ok := item.Geometry.(*geojson.Geometry)
	if !ok || geom.Type != "Polygon" {
		t.Errorf("Expected a polygon footprint, got %#v", item.Geometry)
	}

	asset := item.Assets["overlay"]
	if asset == nil {
		t.Fatal("Expected an overlay asset")
	}
	if asset.Type != "image/png" {
		t.Errorf("Expected image/png, got %s", asset.Type)
	}

	if item.Properties["start_datetime"] != "2000-01-01T00:00:00Z" {
		t.Errorf("Unexpected start_datetime %v", item.Properties["start_datetime"])
	}

	if _, err := json.Marshal(item); err != nil {
		t.Errorf("Expected item to encode, got %v", err)
	}
}

func TestBuilder_ItemNotPlaceable(t *testing.T) {
	b := newTestBuilder()
	r, _ := region.Default().Lookup(region.Alaska)

	_, err := b.Item(r, 2000, &imagery.ImageDescriptor{ImageURL: "http://x/a.png"}, testBaseURL)
	if !errors.Is(err, ErrNotPlaceable) {
		t.Errorf("Expected ErrNotPlaceable, got %v", err)
	}
}

func TestBuilder_LandingPage(t *testing.T) {
	landing := newTestBuilder().LandingPage(testBaseURL)

	children := 0
	for _, l := range landing.Links {
		if l.Rel == "child" {
			children++
		}
	}
	if children != 3 {
		t.Errorf("Expected a child link per region, got %d", children)
	}
	if landing.StacVersion != "1.0.0" {
		t.Errorf("Expected stac_version 1.0.0, got %s", landing.StacVersion)
	}
}
