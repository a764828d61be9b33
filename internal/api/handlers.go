package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rkm/terratales/internal/config"
	"github.com/rkm/terratales/internal/imagery"
	"github.com/rkm/terratales/internal/region"
	"github.com/rkm/terratales/internal/session"
	intstac "github.com/rkm/terratales/internal/stac"
	"github.com/rkm/terratales/internal/timeseries"
	"github.com/rkm/terratales/internal/view"
)

// Backend is the imagery service as used by the handlers.
type Backend interface {
	imagery.Fetcher
	imagery.SeriesFetcher
}

// Handlers contains all HTTP handlers of the viewer service.
type Handlers struct {
	cfg      *config.Config
	backend  Backend
	series   *timeseries.Adapter
	catalog  *region.Catalog
	stac     *intstac.Builder
	store    session.Store
	viewOpts view.Options
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(
	cfg *config.Config,
	backend Backend,
	series *timeseries.Adapter,
	catalog *region.Catalog,
	logger *slog.Logger,
) *Handlers {
	return &Handlers{
		cfg:     cfg,
		backend: backend,
		series:  series,
		catalog: catalog,
		stac:    intstac.NewBuilder(catalog, cfg.STAC.Version, cfg.STAC.Title, cfg.STAC.Description),
		logger:  logger,
		viewOpts: view.Options{
			ZoomThreshold:  cfg.Viewer.ZoomThreshold,
			Debounce:       cfg.Viewer.Debounce,
			ViewportWidth:  cfg.Viewer.ViewportWidth,
			ViewportHeight: cfg.Viewer.ViewportHeight,
			Logger:         logger,
		},
	}
}

// WithSessionStore enables the session routes.
func (h *Handlers) WithSessionStore(store session.Store) *Handlers {
	h.store = store
	return h
}

// WithViewOptions overrides the options sessions are mounted with. A nil logger
// keeps the handler's logger.
func (h *Handlers) WithViewOptions(opts view.Options) *Handlers {
	if opts.Logger == nil {
		opts.Logger = h.logger
	}
	h.viewOpts = opts
	return h
}

// Health returns service health status.
// GET /health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Regions returns the region catalog in display order.
// GET /api/regions
func (h *Handlers) Regions(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"regions": h.catalog.All(),
		"minYear": region.MinYear,
		"maxYear": region.MaxYear,
	})
}

// Legend returns the color legend of every index kind.
// GET /api/legend
func (h *Handlers) Legend(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"legend": region.Legend(),
	})
}

// LandingPage returns the STAC root catalog.
// GET /
func (h *Handlers) LandingPage(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.stac.LandingPage(h.baseURL(r)))
}

// Conformance returns the conformance classes supported by this API.
// GET /conformance
func (h *Handlers) Conformance(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, &intstac.Conformance{
		ConformsTo: intstac.DefaultConformance(),
	})
}

// Collections returns every region as a STAC collection.
// GET /collections
func (h *Handlers) Collections(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.stac.Collections(h.baseURL(r)))
}

// Collection returns a single region collection.
// GET /collections/{regionId}
func (h *Handlers) Collection(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.regionParam(w, r)
	if !ok {
		return
	}

	WriteJSON(w, http.StatusOK, h.stac.Collection(reg, h.baseURL(r)))
}

// Item returns the image of one region and year as a STAC item.
// GET /collections/{regionId}/items/{year}
func (h *Handlers) Item(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.regionParam(w, r)
	if !ok {
		return
	}

	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		WriteInvalidParameter(w, fmt.Sprintf("invalid year %q", chi.URLParam(r, "year")))
		return
	}
	if err := region.ValidateYear(year); err != nil {
		WriteNotFound(w, err.Error())
		return
	}

	img, err := h.backend.GetImage(r.Context(), imagery.FetchKey{
		Region: reg.ID,
		Year:   year,
		Index:  reg.Index,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "item image fetch failed",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("region", string(reg.ID)),
			slog.Int("year", year),
			slog.String("error", err.Error()),
		)
		if msg := imagery.Explanation(err); msg != "" {
			WriteNotFound(w, msg)
			return
		}
		WriteUpstreamError(w, "imagery service request failed")
		return
	}

	item, err := h.stac.Item(reg, year, img, h.baseURL(r))
	if err != nil {
		if errors.Is(err, intstac.ErrNotPlaceable) {
			WriteUpstreamError(w, "imagery service returned an image without bounds")
			return
		}
		WriteInternalError(w, err.Error())
		return
	}

	WriteGeoJSON(w, http.StatusOK, item)
}

// regionParam resolves the {regionId} path parameter, writing a 404 when unknown.
func (h *Handlers) regionParam(w http.ResponseWriter, r *http.Request) (*region.Region, bool) {
	raw := chi.URLParam(r, "regionId")
	if raw == "" {
		WriteBadRequest(w, "region ID is required")
		return nil, false
	}

	id, err := h.catalog.Parse(raw)
	if err != nil {
		WriteNotFound(w, fmt.Sprintf("collection %q not found", raw))
		return nil, false
	}

	reg, _ := h.catalog.Lookup(id)
	return reg, true
}

// baseURL returns the configured public URL, or one derived from the request.
func (h *Handlers) baseURL(r *http.Request) string {
	if h.cfg.STAC.BaseURL != "" {
		return h.cfg.STAC.BaseURL
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
