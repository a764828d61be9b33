package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures the router's cross-cutting middleware.
type RouterOptions struct {
	// CORSOrigins lists the origins allowed to call the API. Empty allows all.
	CORSOrigins []string

	// RateLimiter, when set, limits every /api request per client.
	RateLimiter *RateLimiter
}

// NewRouter creates and configures the chi router with all routes and middleware.
func NewRouter(h *Handlers, opts RouterOptions, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	// Add middleware stack
	r.Use(middleware.RequestID)
	r.Use(RequestIDResponse) // Add X-Request-ID to response headers
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(Recovery(logger))
	r.Use(middleware.Compress(5)) // Gzip compression
	r.Use(ContentTypeJSON)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", h.Health)

	// STAC catalog of the regions
	r.Get("/", h.LandingPage)
	r.Get("/conformance", h.Conformance)
	r.Get("/collections", h.Collections)
	r.Get("/collections/{regionId}", h.Collection)
	r.Get("/collections/{regionId}/items/{year}", h.Item)

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Middleware)
		}

		r.Get("/get-image", h.GetImage)
		r.Get("/get-timeseries", h.GetTimeSeries)
		r.Get("/regions", h.Regions)
		r.Get("/legend", h.Legend)

		if h.store != nil {
			r.Route("/sessions", func(r chi.Router) {
				r.Post("/map", h.MountMap)
				r.Post("/compare", h.MountCompare)
				r.Post("/series", h.MountSeries)

				r.Route("/{sessionId}", func(r chi.Router) {
					r.Get("/", h.GetSession)
					r.Delete("/", h.DeleteSession)
					r.Post("/region", h.SelectRegion)
					r.Post("/year", h.SetYear)
					r.Post("/years", h.SetYears)
					r.Post("/zoom", h.Zoom)
					r.Post("/compare", h.Compare)
					r.Post("/load", h.LoadSeries)
					r.Post("/drag/start", h.DragStart)
					r.Post("/drag/move", h.DragMove)
					r.Post("/drag/end", h.DragEnd)
					r.Post("/drag/leave", h.DragLeave)
				})
			})
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "resource not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, ErrCodeBadRequest, "method not allowed")
	})

	return r
}
