package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	errs "github.com/matzehuels/sysmap/pkg/errors"
	"github.com/matzehuels/sysmap/pkg/graph"
	"github.com/matzehuels/sysmap/pkg/pipeline"
	"github.com/matzehuels/sysmap/pkg/render"
	"github.com/matzehuels/sysmap/pkg/store"
)

// =============================================================================
// Request / Response Types
// =============================================================================

// LayoutRequest is the body of POST /v1/layout and POST /v1/render.
type LayoutRequest struct {
	Graph   graph.Graph      `json:"graph"`
	Options pipeline.Options `json:"options"`
}

// SaveRequest is the body of POST /v1/layouts. Exactly one of Layout and
// Graph must be set; a graph is laid out with Options before saving.
type SaveRequest struct {
	Name    string           `json:"name"`
	Layout  *graph.Layout    `json:"layout,omitempty"`
	Graph   *graph.Graph     `json:"graph,omitempty"`
	Options pipeline.Options `json:"options"`
}

// LayoutSummary is one entry of GET /v1/layouts.
type LayoutSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	GraphHash string    `json:"graph_hash"`
	Algorithm string    `json:"algorithm"`
	Nodes     int       `json:"nodes"`
	Crossings int       `json:"crossings"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorResponse is the body of every error.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// =============================================================================
// Handlers
// =============================================================================

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Graph.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	l, hit, err := s.runner.ComputeLayout(r.Context(), req.Graph, s.options(req.Options))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setCacheHeader(w, hit)
	s.writeJSON(w, r, http.StatusOK, l)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Graph.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}

	format := formatParam(r)
	opts := s.options(req.Options)
	opts.Formats = []string{format}

	res, err := s.runner.Execute(r.Context(), req.Graph, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	setCacheHeader(w, res.CacheInfo.LayoutHit)
	writeArtifact(w, format, res.Artifacts[format])
}

func (s *Server) handleSaveLayout(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var l graph.Layout
	switch {
	case req.Layout != nil && req.Graph != nil:
		s.writeError(w, r, errs.New(errs.ErrCodeInvalidInput, "set either layout or graph, not both"))
		return
	case req.Layout != nil:
		l = *req.Layout
	case req.Graph != nil:
		if err := req.Graph.Validate(); err != nil {
			s.writeError(w, r, err)
			return
		}
		computed, _, err := s.runner.ComputeLayout(r.Context(), *req.Graph, s.options(req.Options))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		l = computed
	default:
		s.writeError(w, r, errs.New(errs.ErrCodeInvalidInput, "layout or graph is required"))
		return
	}

	saved := &store.SavedLayout{Name: req.Name, Layout: l}
	if err := s.store.Save(r.Context(), saved); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("saved layout", "id", saved.ID, "name", saved.Name, "nodes", len(l.Nodes))
	w.Header().Set("Location", "/v1/layouts/"+saved.ID)
	s.writeJSON(w, r, http.StatusCreated, saved)
}

func (s *Server) handleListLayouts(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List(r.Context(), r.URL.Query().Get("graph"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]LayoutSummary, 0, len(list))
	for _, l := range list {
		out = append(out, LayoutSummary{
			ID:        l.ID,
			Name:      l.Name,
			GraphHash: l.GraphHash,
			Algorithm: l.Layout.Algorithm,
			Nodes:     len(l.Layout.Nodes),
			Crossings: l.Layout.Crossings,
			CreatedAt: l.CreatedAt,
		})
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Server) handleGetLayout(w http.ResponseWriter, r *http.Request) {
	saved, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, saved)
}

func (s *Server) handleRenderSaved(w http.ResponseWriter, r *http.Request) {
	saved, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := formatParam(r)
	opts := s.options(pipeline.Options{})
	opts.Formats = []string{format}
	opts.Detailed, _ = strconv.ParseBool(r.URL.Query().Get("detailed"))

	artifacts, err := s.runner.Render(r.Context(), saved.Layout, opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeArtifact(w, format, artifacts[format])
}

func (s *Server) handleDeleteLayout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("deleted layout", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Helpers
// =============================================================================

// options overlays the request's non-zero fields on the server defaults.
func (s *Server) options(req pipeline.Options) pipeline.Options {
	o := s.opts.Defaults
	o.Formats = append([]string(nil), o.Formats...)
	if req.Algorithm != "" {
		o.Algorithm = req.Algorithm
	}
	if req.Width != 0 {
		o.Width = req.Width
	}
	if req.Height != 0 {
		o.Height = req.Height
	}
	if req.Iterations != 0 {
		o.Iterations = req.Iterations
	}
	if req.Temperature != 0 {
		o.Temperature = req.Temperature
	}
	if req.Cooling != 0 {
		o.Cooling = req.Cooling
	}
	if req.Repulsion != 0 {
		o.Repulsion = req.Repulsion
	}
	if req.Attraction != 0 {
		o.Attraction = req.Attraction
	}
	if req.Gravity != 0 {
		o.Gravity = req.Gravity
	}
	if req.RefinePasses != 0 {
		o.RefinePasses = req.RefinePasses
	}
	if req.Seed != 0 {
		o.Seed = req.Seed
	}
	if len(req.Formats) > 0 {
		o.Formats = req.Formats
	}
	o.Detailed = o.Detailed || req.Detailed
	o.EdgeLabels = o.EdgeLabels || req.EdgeLabels
	o.Refresh = req.Refresh
	// MaxNodes is a server limit and cannot be raised by a request.
	o.Logger = s.logger
	return o
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errs.Wrap(errs.ErrCodeGraphTooLarge, err, "request body exceeds %d bytes", tooLarge.Limit)
		}
		if errors.Is(err, io.EOF) {
			return errs.New(errs.ErrCodeInvalidInput, "request body is empty")
		}
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid JSON body: %v", err)
	}
	return nil
}

func formatParam(r *http.Request) string {
	if f := r.URL.Query().Get("format"); f != "" {
		return f
	}
	return render.FormatSVG
}

var contentTypes = map[string]string{
	render.FormatJSON: "application/json",
	render.FormatDOT:  "text/vnd.graphviz; charset=utf-8",
	render.FormatSVG:  "image/svg+xml",
	render.FormatPNG:  "image/png",
}

func writeArtifact(w http.ResponseWriter, format string, data []byte) {
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func setCacheHeader(w http.ResponseWriter, hit bool) {
	if hit {
		w.Header().Set("X-Sysmap-Cache", "hit")
	} else {
		w.Header().Set("X-Sysmap-Cache", "miss")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "request_id", middleware.GetReqID(r.Context()), "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.HTTPStatus(err)
	code := errs.GetCode(err)
	msg := errs.UserMessage(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		if code == errs.ErrCodeInternal {
			msg = "internal error"
		}
	}
	s.writeJSON(w, r, status, ErrorResponse{Code: string(code), Message: msg})
}
