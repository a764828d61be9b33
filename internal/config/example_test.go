package config_test

import (
	"fmt"
	"log"

	"github.com/rkm/terratales/internal/config"
)

func ExampleLoadFromMap() {
	// Load configuration from an explicit variable set
	cfg, err := config.LoadFromMap(map[string]string{
		"BACKEND_URL": "http://imagery.internal:5000",
	})
	if err != nil {
		log.Fatal(err)
	}

	// Access configuration values
	fmt.Printf("Server: %s\n", cfg.Server.Address())
	fmt.Printf("Backend: %s\n", cfg.Backend.URL)
	fmt.Printf("Zoom threshold: %v\n", cfg.Viewer.ZoomThreshold)
	fmt.Printf("Debounce: %s\n", cfg.Viewer.Debounce)

	// Output:
	// Server: 0.0.0.0:8080
	// Backend: http://imagery.internal:5000
	// Zoom threshold: 11
	// Debounce: 500ms
}

func ExampleServerConfig_Address() {
	cfg, _ := config.LoadFromMap(map[string]string{"SERVER_PORT": "9090"})

	// Get server address
	addr := cfg.Server.Address()
	fmt.Printf("Listen on: %s\n", addr)

	// Output:
	// Listen on: 0.0.0.0:9090
}
