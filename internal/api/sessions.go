package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rkm/terratales/internal/compare"
	"github.com/rkm/terratales/internal/region"
	"github.com/rkm/terratales/internal/session"
	"github.com/rkm/terratales/internal/timeseries"
	"github.com/rkm/terratales/internal/view"
)

// maxRequestBody bounds session request bodies.
const maxRequestBody = 64 * 1024

// errUnsupported is returned for an operation the session's view does not have.
var errUnsupported = errors.New("operation not supported by this view")

type mapMountRequest struct {
	Region string `json:"region"`
	Year   *int   `json:"year"`
}

type compareMountRequest struct {
	Region string `json:"region"`
	YearA  *int   `json:"yearA"`
	YearB  *int   `json:"yearB"`
}

type regionRequest struct {
	Region string `json:"region"`
}

type yearRequest struct {
	Year int `json:"year"`
}

type yearsRequest struct {
	YearA int `json:"yearA"`
	YearB int `json:"yearB"`
}

type zoomRequest struct {
	Zoom float64 `json:"zoom"`
}

// dragMoveRequest carries either a pointer x coordinate or touch points, plus the
// container's bounding box.
type dragMoveRequest struct {
	X       *float64        `json:"x"`
	Touches []compare.Touch `json:"touches"`
	Rect    compare.Rect    `json:"rect"`
}

type loadRequest struct {
	Regions []string `json:"regions"`
}

// MountMap mounts a map view, optionally selecting a year and region.
// POST /api/sessions/map
func (h *Handlers) MountMap(w http.ResponseWriter, r *http.Request) {
	var req mapMountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := h.optionalRegion(req.Region)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	if req.Year != nil {
		if err := region.ValidateYear(*req.Year); err != nil {
			h.writeSessionError(w, r, err)
			return
		}
	}

	s := view.NewMapSession(session.NewID(), h.backend, h.catalog, h.viewOpts)
	if !h.mount(w, r, s) {
		return
	}

	if req.Year != nil {
		_ = s.SetYear(*req.Year)
	}
	if id != "" {
		_ = s.SelectRegion(id)
	}

	WriteJSON(w, http.StatusCreated, s.Snapshot())
}

// MountCompare mounts a comparison view, optionally selecting a region and years.
// POST /api/sessions/compare
func (h *Handlers) MountCompare(w http.ResponseWriter, r *http.Request) {
	var req compareMountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := h.optionalRegion(req.Region)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	yearA, yearB := compare.DefaultYearA, compare.DefaultYearB
	if req.YearA != nil {
		yearA = *req.YearA
	}
	if req.YearB != nil {
		yearB = *req.YearB
	}
	for _, y := range []int{yearA, yearB} {
		if err := region.ValidateYear(y); err != nil {
			h.writeSessionError(w, r, err)
			return
		}
	}

	s := view.NewCompareSession(session.NewID(), h.backend, h.catalog, h.viewOpts)
	if !h.mount(w, r, s) {
		return
	}

	_ = s.SetYears(yearA, yearB)
	if id != "" {
		_ = s.SelectRegion(id)
	}

	WriteJSON(w, http.StatusCreated, s.Snapshot())
}

// MountSeries mounts a time-series view and starts loading the given regions, or
// every region when none are given.
// POST /api/sessions/series
func (h *Handlers) MountSeries(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ids, err := h.regionList(req.Regions)
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	s := view.NewSeriesSession(session.NewID(), h.series, h.catalog, h.viewOpts)
	if !h.mount(w, r, s) {
		return
	}

	_ = s.Load(ids...)

	WriteJSON(w, http.StatusCreated, s.Snapshot())
}

// GetSession returns a session snapshot. With wait=true the response is
// delayed until every fetch issued so far has settled.
// GET /api/sessions/{sessionId}
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		if wt, ok := s.(interface{ Wait() }); ok {
			wt.Wait()
		}
	}

	WriteJSON(w, http.StatusOK, s.Snapshot())
}

// DeleteSession unmounts a session.
// DELETE /api/sessions/{sessionId}
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(chi.URLParam(r, "sessionId")); err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SelectRegion selects the region of a map or comparison view. An empty region
// clears the map selection.
// POST /api/sessions/{sessionId}/region
func (h *Handlers) SelectRegion(w http.ResponseWriter, r *http.Request) {
	var req regionRequest
	h.apply(w, r, &req, func(s view.Session) error {
		id, err := h.optionalRegion(req.Region)
		if err != nil {
			return err
		}
		switch v := s.(type) {
		case *view.MapSession:
			return v.SelectRegion(id)
		case *view.CompareSession:
			if id == "" {
				return fmt.Errorf("%w: region is required", region.ErrUnknownRegion)
			}
			return v.SelectRegion(id)
		default:
			return errUnsupported
		}
	})
}

// SetYear changes the year of a map view.
// POST /api/sessions/{sessionId}/year
func (h *Handlers) SetYear(w http.ResponseWriter, r *http.Request) {
	var req yearRequest
	h.apply(w, r, &req, func(s view.Session) error {
		v, ok := s.(*view.MapSession)
		if !ok {
			return errUnsupported
		}
		return v.SetYear(req.Year)
	})
}

// SetYears changes the two years of a comparison view.
// POST /api/sessions/{sessionId}/years
func (h *Handlers) SetYears(w http.ResponseWriter, r *http.Request) {
	var req yearsRequest
	h.apply(w, r, &req, func(s view.Session) error {
		v, ok := s.(*view.CompareSession)
		if !ok {
			return errUnsupported
		}
		return v.SetYears(req.YearA, req.YearB)
	})
}

// Zoom applies a zoom gesture to a map view.
// POST /api/sessions/{sessionId}/zoom
func (h *Handlers) Zoom(w http.ResponseWriter, r *http.Request) {
	var req zoomRequest
	h.apply(w, r, &req, func(s view.Session) error {
		v, ok := s.(*view.MapSession)
		if !ok {
			return errUnsupported
		}
		v.Zoom(req.Zoom)
		return nil
	})
}

// Compare loads the selected pair of a comparison view.
// POST /api/sessions/{sessionId}/compare
func (h *Handlers) Compare(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, nil, func(s view.Session) error {
		v, ok := s.(*view.CompareSession)
		if !ok {
			return errUnsupported
		}
		return v.Compare()
	})
}

// DragStart begins a slider drag.
// POST /api/sessions/{sessionId}/drag/start
func (h *Handlers) DragStart(w http.ResponseWriter, r *http.Request) {
	h.applySlider(w, r, nil, (*compare.Slider).DragStart)
}

// DragMove moves the slider while dragging.
// POST /api/sessions/{sessionId}/drag/move
func (h *Handlers) DragMove(w http.ResponseWriter, r *http.Request) {
	var req dragMoveRequest
	h.applySlider(w, r, &req, func(sl *compare.Slider) {
		if req.X != nil {
			sl.PointerMove(*req.X, req.Rect)
			return
		}
		sl.TouchMove(req.Touches, req.Rect)
	})
}

// DragEnd finishes a slider drag.
// POST /api/sessions/{sessionId}/drag/end
func (h *Handlers) DragEnd(w http.ResponseWriter, r *http.Request) {
	h.applySlider(w, r, nil, (*compare.Slider).DragEnd)
}

// DragLeave ends a slider drag when the pointer leaves the container.
// POST /api/sessions/{sessionId}/drag/leave
func (h *Handlers) DragLeave(w http.ResponseWriter, r *http.Request) {
	h.applySlider(w, r, nil, (*compare.Slider).PointerLeave)
}

// LoadSeries reloads the charts of a time-series view.
// POST /api/sessions/{sessionId}/load
func (h *Handlers) LoadSeries(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	h.apply(w, r, &req, func(s view.Session) error {
		v, ok := s.(*view.SeriesSession)
		if !ok {
			return errUnsupported
		}
		ids, err := h.regionList(req.Regions)
		if err != nil {
			return err
		}
		return v.Load(ids...)
	})
}

// apply decodes the body into req when non-nil, runs fn against the addressed
// session and writes its snapshot.
func (h *Handlers) apply(w http.ResponseWriter, r *http.Request, req any, fn func(view.Session) error) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if req != nil && !decodeBody(w, r, req) {
		return
	}

	if err := fn(s); err != nil {
		h.writeSessionError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, s.Snapshot())
}

func (h *Handlers) applySlider(w http.ResponseWriter, r *http.Request, req any, fn func(*compare.Slider)) {
	h.apply(w, r, req, func(s view.Session) error {
		v, ok := s.(*view.CompareSession)
		if !ok {
			return errUnsupported
		}
		fn(v.Slider())
		return nil
	})
}

func (h *Handlers) mount(w http.ResponseWriter, r *http.Request, s view.Session) bool {
	if err := h.store.Add(s); err != nil {
		s.Close()
		h.writeSessionError(w, r, err)
		return false
	}

	h.logger.InfoContext(r.Context(), "session mounted",
		slog.String("request_id", GetRequestID(r.Context())),
		slog.String("session_id", s.ID()),
		slog.String("view", string(s.Kind())),
	)
	return true
}

func (h *Handlers) lookup(w http.ResponseWriter, r *http.Request) (view.Session, bool) {
	s, err := h.store.Get(chi.URLParam(r, "sessionId"))
	if err != nil {
		h.writeSessionError(w, r, err)
		return nil, false
	}
	return s, true
}

func (h *Handlers) optionalRegion(raw string) (region.ID, error) {
	if raw == "" {
		return "", nil
	}
	return h.catalog.Parse(raw)
}

func (h *Handlers) regionList(raw []string) ([]region.ID, error) {
	ids := make([]region.ID, 0, len(raw))
	for _, s := range raw {
		id, err := h.catalog.Parse(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// writeSessionError maps session and validation errors to responses.
func (h *Handlers) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, region.ErrUnknownRegion),
		errors.Is(err, region.ErrUnknownIndex),
		errors.Is(err, region.ErrYearOutOfRange),
		errors.Is(err, timeseries.ErrInvalidRange):
		WriteInvalidParameter(w, err.Error())
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrSessionExpired):
		WriteNotFound(w, err.Error())
	case errors.Is(err, session.ErrStoreFull):
		WriteError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	case errors.Is(err, errUnsupported):
		WriteError(w, http.StatusConflict, ErrCodeConflict, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "session operation failed",
			slog.String("request_id", GetRequestID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		WriteInternalError(w, "session operation failed")
	}
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		WriteBadRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}
