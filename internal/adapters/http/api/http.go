// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	repository "github.com/okian/mcf/internal/adapters/repository"
	service "github.com/okian/mcf/internal/app"
	"github.com/okian/mcf/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Estimate runs and stores one estimation.
	Estimate(ctx context.Context, req service.Request) (model.Result, error)

	// Read operations expose stored results.
	Result(ctx context.Context, id string) (model.Result, error)
	List(ctx context.Context, limit int) ([]repository.Summary, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	mcfHandler    *MCFHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		mcfHandler:    NewMCFHandler(deps, opts...),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/mcf", MetricsMiddleware(s.mcfHandler.HandleCollection, "mcf"))
	mux.HandleFunc("/mcf/", MetricsMiddleware(s.mcfHandler.HandleGetResult, "mcf_result"))
}

// errorResponse carries the error code plus any diagnostic context of a
// failed estimation.
type errorResponse struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	SubjectID *uint64  `json:"subject_id,omitempty"`
	Row       *int     `json:"row,omitempty"`
	Time      *float64 `json:"time,omitempty"`
	Method    string   `json:"method,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	resp := errorResponse{Code: code, Message: http.StatusText(status)}
	if err != nil {
		resp.Message = err.Error()
	}
	var me *model.Error
	if errors.As(err, &me) {
		resp.SubjectID = me.SubjectID
		resp.Time = me.Time
		resp.Method = me.Method
		if me.Row >= 0 {
			row := me.Row
			resp.Row = &row
		}
	}
	writeJSON(w, status, resp)
}

// classify maps an upstream error to an HTTP status and error code.
func classify(err error) (int, string) {
	var tooBig *http.MaxBytesError
	switch {
	case model.Code(err) != "":
		return http.StatusBadRequest, model.Code(err)
	case errors.Is(err, service.ErrTooLarge), errors.As(err, &tooBig):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, repository.ErrInvalidLimit), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, repository.ErrClosed):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}
