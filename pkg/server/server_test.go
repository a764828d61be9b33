package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	srv, err := New(Options{
		BackendURL: "http://imagery.internal:5000",
		BaseURL:    "https://viewer.example.com",
		Logger:     quietLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer srv.Close()

	req := httptest.NewRequest("GET", "/collections/alaska", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var col struct {
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &col); err != nil {
		t.Fatal(err)
	}
	if col.Links[0].Href != "https://viewer.example.com/collections/alaska" {
		t.Errorf("Expected self link from BaseURL, got %s", col.Links[0].Href)
	}
}

func TestNew_InvalidBackend(t *testing.T) {
	if _, err := New(Options{BackendURL: "imagery.internal", Logger: quietLogger()}); err == nil {
		t.Error("Expected error for a relative backend URL")
	}
}

func TestNew_RegionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.yaml")
	data := "regions:\n  - id: cdmx\n    full_name: Valle de México\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	srv, err := New(Options{RegionsFile: path, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer srv.Close()

	req := httptest.NewRequest("GET", "/collections/cdmx", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	var col map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &col); err != nil {
		t.Fatal(err)
	}
	if col["title"] != "Valle de México" {
		t.Errorf("Expected overridden title, got %v", col["title"])
	}

	if _, err := New(Options{RegionsFile: filepath.Join(t.TempDir(), "missing.yaml"), Logger: quietLogger()}); err == nil {
		t.Error("Expected error for a missing regions file")
	}
}

func TestNew_RateLimit(t *testing.T) {
	srv, err := New(Options{RateLimitRPS: 1, RateLimitBurst: 1, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer srv.Close()

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, httptest.NewRequest("GET", "/api/legend", nil))
		codes = append(codes, w.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("Expected 200 then 429, got %v", codes)
	}
}
