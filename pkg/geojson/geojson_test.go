package geojson

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestPositions(t *testing.T) {
	g := &Geometry{Type: TypePoint, Coordinates: json.RawMessage(`[-99.1, 19.4]`)}

	got, err := g.Positions()
	if err != nil {
		t.Fatalf("Positions() error: %v", err)
	}
	if len(got) != 1 || got[0][0] != -99.1 || got[0][1] != 19.4 {
		t.Errorf("Positions() = %v, want [[-99.1 19.4]]", got)
	}

	bad := &Geometry{Type: TypePolygon, Coordinates: json.RawMessage(`[-99.1, 19.4]`)}
	if _, err := bad.Positions(); err == nil {
		t.Error("expected an error for point coordinates in a Polygon")
	}
}

func TestEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		geom    *Geometry
		want    []float64
		wantErr error
	}{
		{
			name: "polygon",
			geom: &Geometry{
				Type:        TypePolygon,
				Coordinates: json.RawMessage(`[[[-100,19],[-98,19],[-98,20],[-100,20],[-100,19]]]`),
			},
			want: []float64{-100, 19, -98, 20},
		},
		{
			name: "multipolygon",
			geom: &Geometry{
				Type:        TypeMultiPolygon,
				Coordinates: json.RawMessage(`[[[[-61,-4],[-60,-4],[-60,-3],[-61,-4]]],[[[-59,-2],[-58,-2],[-58,-1],[-59,-2]]]]`),
			},
			want: []float64{-61, -4, -58, -1},
		},
		{
			name: "point",
			geom: &Geometry{Type: TypePoint, Coordinates: json.RawMessage(`[-147.05, 61.13]`)},
			want: []float64{-147.05, 61.13, -147.05, 61.13},
		},
		{
			name: "short positions skipped",
			geom: &Geometry{
				Type:        TypePolygon,
				Coordinates: json.RawMessage(`[[[5],[-100,19],[-98,20]]]`),
			},
			want: []float64{-100, 19, -98, 20},
		},
		{
			name:    "empty polygon",
			geom:    &Geometry{Type: TypePolygon, Coordinates: json.RawMessage(`[[]]`)},
			wantErr: ErrNoCoordinates,
		},
		{
			name:    "line string",
			geom:    &Geometry{Type: "LineString", Coordinates: json.RawMessage(`[[0,0],[1,1]]`)},
			wantErr: ErrUnsupportedType,
		},
		{
			name:    "nil geometry",
			wantErr: ErrNoCoordinates,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Envelope(tt.geom)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Envelope() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Envelope() error: %v", err)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Envelope() = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestRectangle(t *testing.T) {
	g, err := Rectangle([]float64{-100, 19, -98, 20})
	if err != nil {
		t.Fatalf("Rectangle() error: %v", err)
	}
	if g.Type != TypePolygon {
		t.Errorf("Rectangle() type = %s, want Polygon", g.Type)
	}

	positions, err := g.Positions()
	if err != nil {
		t.Fatal(err)
	}
	if len(positions) != 5 || positions[0][0] != positions[4][0] || positions[0][1] != positions[4][1] {
		t.Errorf("Expected a closed ring of 5 positions, got %v", positions)
	}

	box, err := Envelope(g)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{-100, 19, -98, 20}
	for i := range want {
		if box[i] != want[i] {
			t.Errorf("Envelope(Rectangle()) = %v, want %v", box, want)
			break
		}
	}

	if _, err := Rectangle([]float64{1, 2, 3}); err == nil {
		t.Error("expected error for 3-value box")
	}
}
