// Package handlers provides HTTP handlers for snapshots and
// comparisons.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/snapshots"
	"github.com/rs/zerolog"
)

// Handler handles snapshot HTTP requests.
type Handler struct {
	service *snapshots.Service
	log     zerolog.Logger
}

// NewHandler creates a new snapshots handler.
func NewHandler(service *snapshots.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "snapshots").Logger(),
	}
}

type snapshotRequest struct {
	Scope  string `json:"scope"`
	Symbol string `json:"symbol,omitempty"`
}

// HandleSnapshotNow captures a snapshot for a scope, optionally
// limited to one symbol.
func (h *Handler) HandleSnapshotNow(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	scope, err := domain.ParseScope(req.Scope)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snap, err := h.service.SnapshotNow(scope, req.Symbol)
	if err != nil {
		h.log.Error().Err(err).Str("scope", req.Scope).Msg("Snapshot failed")
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(envelope(snap))
}

// HandleCompare compares the live portfolio value against the latest
// snapshot for ?scope= (and optional ?symbol=).
func (h *Handler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	scope, err := domain.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cmp, err := h.service.Compare(scope, r.URL.Query().Get("symbol"))
	if err != nil {
		h.log.Error().Err(err).Str("scope", string(scope)).Msg("Comparison failed")
		writeServiceError(w, err)
		return
	}

	writeJSON(w, envelope(cmp))
}

// HandleHistorySummary summarizes the stored snapshot series for
// ?scope= (and optional ?symbol=).
func (h *Handler) HandleHistorySummary(w http.ResponseWriter, r *http.Request) {
	scope, err := domain.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	summary, err := h.service.History(scope, r.URL.Query().Get("symbol"))
	if err != nil {
		h.log.Error().Err(err).Str("scope", string(scope)).Msg("History summary failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, envelope(summary))
}

func writeServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrQuoteUnavailable) || errors.Is(err, domain.ErrUpstreamUnavailable) {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
