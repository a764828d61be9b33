// Package region holds the fixed catalog of regions the viewer can display and the
// spectral index each one is rendered with.
package region

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/rkm/terratales/pkg/geo"
)

// ID identifies one of the supported regions.
type ID string

// Supported regions.
const (
	Alaska ID = "alaska"
	Manaos ID = "manaos"
	CDMX   ID = "cdmx"
)

// IndexKind is the spectral index rendered for a region.
type IndexKind string

// Supported index kinds.
const (
	NDSI IndexKind = "ndsi"
	NDVI IndexKind = "ndvi"
	NDBI IndexKind = "ndbi"
)

// Year range served by the imagery service.
const (
	MinYear = 1990
	MaxYear = 2025
)

// DefaultFlyToZoom is the zoom the map flies to when a region is selected.
const DefaultFlyToZoom = 8

var (
	// ErrUnknownRegion is returned for a region id outside the catalog.
	ErrUnknownRegion = errors.New("unknown region")

	// ErrUnknownIndex is returned for an index kind other than ndsi, ndvi or ndbi.
	ErrUnknownIndex = errors.New("unknown index kind")

	// ErrYearOutOfRange is returned for years the imagery service does not cover.
	ErrYearOutOfRange = errors.New("year out of range")
)

// Region describes one catalog entry.
type Region struct {
	ID          ID         `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	FullName    string     `json:"fullName" yaml:"full_name"`
	SpokenName  string     `json:"-" yaml:"spoken_name"`
	Index       IndexKind  `json:"index" yaml:"index"`
	Center      geo.LatLng `json:"center" yaml:"center"`
	Zoom        float64    `json:"zoom" yaml:"zoom"`
	ChartColor  string     `json:"color" yaml:"color"`
	Description string     `json:"description,omitempty" yaml:"description"`
}

// ParseIndexKind validates an index kind string.
func ParseIndexKind(s string) (IndexKind, error) {
	switch k := IndexKind(strings.ToLower(strings.TrimSpace(s))); k {
	case NDSI, NDVI, NDBI:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownIndex, s)
	}
}

// ValidateYear checks y is within [MinYear, MaxYear].
func ValidateYear(y int) error {
	if y < MinYear || y > MaxYear {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrYearOutOfRange, y, MinYear, MaxYear)
	}
	return nil
}

// Catalog is an immutable, ordered set of regions.
type Catalog struct {
	order   []ID
	regions map[ID]*Region
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return newCatalog([]*Region{
		{
			ID:         Alaska,
			Name:       "ALASKA",
			FullName:   "Alaska (Columbia Glacier)",
			SpokenName: "Alaska",
			Index:      NDSI,
			Center:     geo.LatLng{Lat: 61.13, Lng: -147.05},
			Zoom:       DefaultFlyToZoom,
			ChartColor: "hsl(190, 100%, 50%)",
		},
		{
			ID:         Manaos,
			Name:       "MANAOS",
			FullName:   "Manaus (Amazon)",
			SpokenName: "Manaus",
			Index:      NDVI,
			Center:     geo.LatLng{Lat: -3.1, Lng: -60.0},
			Zoom:       DefaultFlyToZoom,
			ChartColor: "hsl(145, 80%, 45%)",
		},
		{
			ID:         CDMX,
			Name:       "CDMX",
			FullName:   "Mexico City",
			SpokenName: "Mexico City",
			Index:      NDBI,
			Center:     geo.LatLng{Lat: 19.4, Lng: -99.1},
			Zoom:       DefaultFlyToZoom,
			ChartColor: "hsl(45, 95%, 55%)",
		},
	})
}

func newCatalog(regions []*Region) *Catalog {
	c := &Catalog{regions: make(map[ID]*Region, len(regions))}
	for _, r := range regions {
		c.order = append(c.order, r.ID)
		c.regions[r.ID] = r
	}
	return c
}

// Lookup returns the region for id.
func (c *Catalog) Lookup(id ID) (*Region, error) {
	r, ok := c.regions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRegion, id)
	}
	return r, nil
}

// Parse validates a region id string.
func (c *Catalog) Parse(s string) (ID, error) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if _, err := c.Lookup(id); err != nil {
		return "", err
	}
	return id, nil
}

// IndexFor returns the index kind the region is rendered with.
func (c *Catalog) IndexFor(id ID) (IndexKind, error) {
	r, err := c.Lookup(id)
	if err != nil {
		return "", err
	}
	return r.Index, nil
}

// All returns the regions in catalog order.
func (c *Catalog) All() []*Region {
	out := make([]*Region, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.regions[id])
	}
	return out
}

// Count returns the number of regions.
func (c *Catalog) Count() int {
	return len(c.order)
}

// overrideFile is the YAML layout accepted by LoadFile.
type overrideFile struct {
	Regions []Region `yaml:"regions"`
}

// LoadFile returns the built-in catalog with display fields overridden from a YAML
// file. Ids must already exist in the catalog; an index kind, if given, must match
// the built-in one since it is fixed by the region.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read region file %q: %w", path, err)
	}

	var f overrideFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse region file %q: %w", path, err)
	}

	base := Default()
	merged := make([]*Region, 0, base.Count())
	overrides := make(map[ID]Region, len(f.Regions))
	for _, o := range f.Regions {
		if _, err := base.Lookup(o.ID); err != nil {
			return nil, fmt.Errorf("region file %q: %w", path, err)
		}
		if o.Index != "" && o.Index != base.regions[o.ID].Index {
			return nil, fmt.Errorf("region file %q: %w: %s cannot use %q", path, ErrUnknownIndex, o.ID, o.Index)
		}
		if o.Center != (geo.LatLng{}) && !o.Center.Valid() {
			return nil, fmt.Errorf("region file %q: center of %s out of range", path, o.ID)
		}
		overrides[o.ID] = o
	}

	for _, r := range base.All() {
		cp := *r
		if o, ok := overrides[r.ID]; ok {
			applyOverride(&cp, o)
		}
		merged = append(merged, &cp)
	}

	return newCatalog(merged), nil
}

func applyOverride(dst *Region, o Region) {
	if o.Name != "" {
		dst.Name = o.Name
	}
	if o.FullName != "" {
		dst.FullName = o.FullName
	}
	if o.SpokenName != "" {
		dst.SpokenName = o.SpokenName
	}
	if o.Center != (geo.LatLng{}) {
		dst.Center = o.Center
	}
	if o.Zoom > 0 {
		dst.Zoom = o.Zoom
	}
	if o.ChartColor != "" {
		dst.ChartColor = o.ChartColor
	}
	if o.Description != "" {
		dst.Description = o.Description
	}
}
