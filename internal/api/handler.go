// ABOUTME: REST handlers for wishlist items built on chi
// ABOUTME: Maps validation, not-found and storage errors to HTTP status codes

package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/2389/wishlist/internal/store"
	"github.com/2389/wishlist/internal/wishlist"
)

// MaxBodySize caps request bodies (1 MiB).
const MaxBodySize = 1 << 20

// filterParams are the query parameters read by the list endpoint.
var filterParams = []string{"timeframe", "category", "status", "priority", "desireType", "sort", "order"}

// Handler serves the item endpoints.
type Handler struct {
	items  store.ItemStore
	logger *slog.Logger
}

// NewHandler creates a REST handler backed by items.
func NewHandler(items store.ItemStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{items: items, logger: logger.With("component", "api")}
}

// Routes returns a router for mounting at /api/items.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/summary", h.handleSummary)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDelete)
	return r
}

// handleList handles GET /api/items.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := make(map[string]string, len(filterParams))
	for _, key := range filterParams {
		params[key] = q.Get(key)
	}
	filter, err := wishlist.ParseFilters(params)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	items, err := h.items.ListItems(r.Context(), filter)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handleSummary handles GET /api/items/summary.
func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.items.Summarize(r.Context())
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

// handleGet handles GET /api/items/{id}.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := h.items.GetItem(r.Context(), id)
	if err != nil {
		h.sendError(w, r, notFound(id, err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"item": item})
}

// handleCreate handles POST /api/items.
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	in, err := wishlist.ParseCreate(body)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	item, err := h.items.CreateItem(r.Context(), in)
	if err != nil {
		h.sendError(w, r, err)
		return
	}
	h.logger.Info("item created", "id", item.ID)
	respondJSON(w, http.StatusCreated, map[string]any{"item": item})
}

// handleUpdate handles PUT /api/items/{id}.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}
	up, err := wishlist.ParseUpdate(body)
	if err != nil {
		h.sendError(w, r, err)
		return
	}

	item, err := h.items.UpdateItem(r.Context(), id, up)
	if err != nil {
		h.sendError(w, r, notFound(id, err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"item": item})
}

// handleDelete handles DELETE /api/items/{id}.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.items.DeleteItem(r.Context(), id); err != nil {
		h.sendError(w, r, notFound(id, err))
		return
	}
	h.logger.Info("item deleted", "id", id)
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// readBody reads a capped request body. It writes the error response and
// returns false on failure.
func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return nil, false
	}
	return body, true
}

// sendError maps err to a status code. Unclassified errors are logged and
// reported without detail.
func (h *Handler) sendError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		nf *wishlist.NotFoundError
		ve *wishlist.ValidationError
	)
	switch {
	case errors.As(err, &nf):
		respondError(w, http.StatusNotFound, nf.Error())
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": ve.Fields,
		})
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		respondError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}

// notFound converts store.ErrNotFound into the caller-facing error.
func notFound(id string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return &wishlist.NotFoundError{ID: id}
	}
	return err
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
