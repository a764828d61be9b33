package geojson_test

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/rkm/terratales/pkg/geojson"
)

func ExampleEnvelope() {
	// Footprint returned for a Valle de México scene
	var g geojson.Geometry
	footprint := `{"type":"Polygon","coordinates":[[[-99.6,19.0],[-98.6,19.1],[-98.7,19.9],[-99.5,19.8],[-99.6,19.0]]]}`
	if err := json.Unmarshal([]byte(footprint), &g); err != nil {
		log.Fatal(err)
	}

	box, err := geojson.Envelope(&g)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("W %.1f S %.1f E %.1f N %.1f\n", box[0], box[1], box[2], box[3])
	// Output: W -99.6 S 19.0 E -98.6 N 19.9
}
