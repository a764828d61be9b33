// Package integration provides live integration tests against a running imagery service.
// Run with: INTEGRATION_BACKEND_URL=http://localhost:5000 go test -v ./internal/integration -tags=integration
//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/rkm/terratales/internal/config"
	"github.com/rkm/terratales/internal/imagery"
	"github.com/rkm/terratales/internal/region"
	"github.com/rkm/terratales/internal/scale"
	"github.com/rkm/terratales/internal/timeseries"
	"github.com/rkm/terratales/pkg/server"
)

// TestConfig holds configuration for integration tests
type TestConfig struct {
	BackendURL string
	Timeout    time.Duration
}

func getTestConfig(t *testing.T) *TestConfig {
	t.Helper()

	url := os.Getenv("INTEGRATION_BACKEND_URL")
	if url == "" {
		t.Skip("INTEGRATION_BACKEND_URL not set")
	}
	return &TestConfig{
		BackendURL: url,
		Timeout:    120 * time.Second,
	}
}

// setupTestServer creates a test server with the full viewer stack
func setupTestServer(t *testing.T, tc *TestConfig) *httptest.Server {
	t.Helper()

	cfg, err := config.LoadFromMap(map[string]string{
		"BACKEND_URL":     tc.BackendURL,
		"BACKEND_TIMEOUT": tc.Timeout.String(),
		"RATE_ENABLED":    "false",
	})
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := server.NewFromConfig(cfg, nil, logger)
	if err != nil {
		t.Fatalf("failed to build server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

// =============================================================================
// Imagery Client Direct Tests
// =============================================================================

func TestImageryClient(t *testing.T) {
	tc := getTestConfig(t)
	client := imagery.NewClient(tc.BackendURL, tc.Timeout)
	ctx := context.Background()

	for _, r := range region.Default().All() {
		t.Run(string(r.ID)+" coarse image", func(t *testing.T) {
			img, err := client.GetImage(ctx, imagery.FetchKey{
				Region: r.ID,
				Year:   2020,
				Index:  r.Index,
				Tier:   scale.Coarse,
			})
			if err != nil {
				if msg := imagery.Explanation(err); msg != "" {
					t.Skipf("service has no imagery: %s", msg)
				}
				t.Fatalf("get image failed: %v", err)
			}

			if !img.Placeable() {
				t.Errorf("expected a placeable image, got %+v", img)
			}
			t.Logf("image %s bounds %v", img.ImageURL, img.BoundingBox)
		})
	}

	t.Run("time series", func(t *testing.T) {
		adapter := timeseries.NewAdapter(client, region.Default())
		pts, err := adapter.Fetch(ctx, region.Manaos, "", 2015, 2020)
		if err != nil {
			t.Fatalf("time series failed: %v", err)
		}
		if len(pts) == 0 {
			t.Error("expected at least one point")
		}
		t.Logf("received %d points, %d gaps", len(pts), len(timeseries.Gaps(pts)))
	})
}

// =============================================================================
// Full Stack Tests
// =============================================================================

func TestProxyRoutes(t *testing.T) {
	tc := getTestConfig(t)
	ts := setupTestServer(t, tc)

	t.Run("get-image returns absolute urls", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/api/get-image?region=cdmx&year=2020&scale=60")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		var body map[string]any
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if resp.StatusCode != http.StatusOK {
			t.Skipf("service answered %d: %v", resp.StatusCode, body)
		}
		if body["thumbnailUrl"] == "" || body["thumbnailUrl"] != body["url"] {
			t.Errorf("expected thumbnailUrl to equal url, got %v", body)
		}
	})

	t.Run("map session settles", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/api/sessions/map", "application/json",
			jsonBody(t, map[string]any{"region": "alaska", "year": 2020}))
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		var created struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
			t.Fatal(err)
		}

		resp, err = http.Get(ts.URL + "/api/sessions/" + created.ID + "?wait=true")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()

		var snap struct {
			Loading bool   `json:"loading"`
			Error   string `json:"error"`
			Layer   any    `json:"layer"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			t.Fatal(err)
		}
		if snap.Loading {
			t.Error("expected the fetch to have settled")
		}
		if snap.Error == "" && snap.Layer == nil {
			t.Error("expected an overlay or an error")
		}
		t.Logf("snapshot error=%q", snap.Error)
	})
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(json.NewEncoder(pw).Encode(v))
	}()
	return pr
}
