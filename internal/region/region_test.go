package region

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	if c.Count() != 3 {
		t.Fatalf("expected 3 regions, got %d", c.Count())
	}

	tests := []struct {
		id    ID
		index IndexKind
		lat   float64
		lng   float64
	}{
		{Alaska, NDSI, 61.13, -147.05},
		{Manaos, NDVI, -3.1, -60.0},
		{CDMX, NDBI, 19.4, -99.1},
	}

	for _, tt := range tests {
		r, err := c.Lookup(tt.id)
		if err != nil {
			t.Fatalf("Lookup(%s) failed: %v", tt.id, err)
		}
		if r.Index != tt.index {
			t.Errorf("%s: expected index %s, got %s", tt.id, tt.index, r.Index)
		}
		if r.Center.Lat != tt.lat || r.Center.Lng != tt.lng {
			t.Errorf("%s: unexpected center %+v", tt.id, r.Center)
		}
		if r.Zoom != DefaultFlyToZoom {
			t.Errorf("%s: expected zoom %d, got %v", tt.id, DefaultFlyToZoom, r.Zoom)
		}
	}

	all := c.All()
	if all[0].ID != Alaska || all[1].ID != Manaos || all[2].ID != CDMX {
		t.Errorf("unexpected catalog order: %s, %s, %s", all[0].ID, all[1].ID, all[2].ID)
	}
}

func TestCatalog_Parse(t *testing.T) {
	c := Default()

	id, err := c.Parse(" CDMX ")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if id != CDMX {
		t.Errorf("expected cdmx, got %s", id)
	}

	if _, err := c.Parse("paris"); !errors.Is(err, ErrUnknownRegion) {
		t.Errorf("expected ErrUnknownRegion, got %v", err)
	}
}

func TestParseIndexKind(t *testing.T) {
	for _, s := range []string{"ndsi", "NDVI", "ndbi"} {
		if _, err := ParseIndexKind(s); err != nil {
			t.Errorf("ParseIndexKind(%q) failed: %v", s, err)
		}
	}
	if _, err := ParseIndexKind("evi"); !errors.Is(err, ErrUnknownIndex) {
		t.Errorf("expected ErrUnknownIndex, got %v", err)
	}
}

func TestValidateYear(t *testing.T) {
	tests := []struct {
		year    int
		wantErr bool
	}{
		{1989, true},
		{1990, false},
		{2007, false},
		{2025, false},
		{2026, true},
	}

	for _, tt := range tests {
		err := ValidateYear(tt.year)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateYear(%d) error = %v, wantErr %v", tt.year, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrYearOutOfRange) {
			t.Errorf("ValidateYear(%d) expected ErrYearOutOfRange, got %v", tt.year, err)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regions.yaml")
	content := `regions:
  - id: cdmx
    name: "CIUDAD DE MEXICO"
    center:
      lat: 19.43
      lng: -99.13
    zoom: 9
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write region file: %v", err)
	}

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	r, _ := c.Lookup(CDMX)
	if r.Name != "CIUDAD DE MEXICO" {
		t.Errorf("expected overridden name, got %s", r.Name)
	}
	if r.Center.Lat != 19.43 || r.Zoom != 9 {
		t.Errorf("expected overridden center/zoom, got %+v zoom %v", r.Center, r.Zoom)
	}
	if r.Index != NDBI {
		t.Errorf("index must stay fixed, got %s", r.Index)
	}

	// untouched regions keep their defaults
	a, _ := c.Lookup(Alaska)
	if a.Name != "ALASKA" {
		t.Errorf("expected default alaska name, got %s", a.Name)
	}

	// the built-in catalog is not mutated
	d, _ := Default().Lookup(CDMX)
	if d.Name != "CDMX" {
		t.Errorf("default catalog was mutated: %s", d.Name)
	}
}

func TestLoadFile_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown region", "regions:\n  - id: paris\n"},
		{"index change", "regions:\n  - id: alaska\n    index: ndvi\n"},
		{"bad center", "regions:\n  - id: alaska\n    center:\n      lat: 120\n      lng: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "regions.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("failed to write region file: %v", err)
			}
			if _, err := LoadFile(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLegendFor(t *testing.T) {
	e, ok := LegendFor(NDVI)
	if !ok {
		t.Fatal("expected NDVI legend entry")
	}
	if e.Description != "Vegetation Index" {
		t.Errorf("unexpected description %q", e.Description)
	}
	if len(Legend()) != 3 {
		t.Errorf("expected 3 legend entries, got %d", len(Legend()))
	}
}
