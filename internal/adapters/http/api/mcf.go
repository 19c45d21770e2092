package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/mcf/internal/app"
)

// Handler limits.
const (
	defaultMaxBodyBytes = 64 << 20
	defaultListLimit    = 20
	defaultMaxListLimit = 1_000
)

// MCFHandler handles estimation requests and stored result lookups.
type MCFHandler struct {
	deps         Dependencies
	maxBodyBytes int64
	maxListLimit int
}

// Option configures an MCFHandler.
type Option func(*MCFHandler)

// WithMaxBodyBytes caps the size of a POST /mcf body.
func WithMaxBodyBytes(n int64) Option {
	return func(h *MCFHandler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithMaxListLimit caps GET /mcf?limit.
func WithMaxListLimit(n int) Option {
	return func(h *MCFHandler) {
		if n > 0 {
			h.maxListLimit = n
		}
	}
}

// NewMCFHandler creates a new MCF handler.
func NewMCFHandler(deps Dependencies, opts ...Option) *MCFHandler {
	h := &MCFHandler{
		deps:         deps,
		maxBodyBytes: defaultMaxBodyBytes,
		maxListLimit: defaultMaxListLimit,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleCollection dispatches POST /mcf and GET /mcf?limit=N.
func (h *MCFHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.HandlePostMCF(w, r)
	case http.MethodGet:
		h.HandleListMCF(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	}
}

// HandlePostMCF handles POST /mcf requests.
func (h *MCFHandler) HandlePostMCF(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_mcf"
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req service.Request
	if err := dec.Decode(&req); err != nil {
		status, code := classify(err)
		if status == http.StatusInternalServerError {
			status, code = http.StatusBadRequest, "bad_request"
		}
		writeError(w, status, code, WrapKind(op, ErrBadRequest, err))
		return
	}

	res, err := h.deps.Estimate(r.Context(), req)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleListMCF handles GET /mcf?limit=N requests.
func (h *MCFHandler) HandleListMCF(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_mcf"
	n := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	if n > h.maxListLimit {
		writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
		return
	}
	list, err := h.deps.List(r.Context(), n)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleGetResult handles GET /mcf/{id} requests.
func (h *MCFHandler) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_mcf"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/mcf/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	res, err := h.deps.Result(r.Context(), id)
	if err != nil {
		status, code := classify(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
