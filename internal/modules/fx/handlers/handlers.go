// Package handlers provides HTTP handlers for FX rate operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/aristath/folio/internal/clientdata"
	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/fx"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles FX HTTP requests
type Handler struct {
	fxService *fx.Service
	cacheRepo *clientdata.Repository
	log       zerolog.Logger
}

// NewHandler creates a new FX handler
func NewHandler(fxService *fx.Service, cacheRepo *clientdata.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		fxService: fxService,
		cacheRepo: cacheRepo,
		log:       log.With().Str("handler", "fx").Logger(),
	}
}

// HandleGetUSDEUR handles GET /api/fx/usd-eur
// Query param force=1 bypasses the cache and refetches from the providers.
func (h *Handler) HandleGetUSDEUR(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "1" || r.URL.Query().Get("force") == "true"

	rate, err := h.fxService.Resolve(force)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to resolve USD_EUR")
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			http.Error(w, "Failed to fetch USD_EUR: all providers unavailable", http.StatusBadGateway)
			return
		}
		http.Error(w, "Failed to fetch USD_EUR", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": rate,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleInspectCache handles GET /api/fx/cache/{key}
// Returns the raw cached payload for a pair, if any, regardless of freshness.
func (h *Handler) HandleInspectCache(w http.ResponseWriter, r *http.Request) {
	key := strings.ToUpper(chi.URLParam(r, "key"))
	if key == "" {
		http.Error(w, "cache key is required", http.StatusBadRequest)
		return
	}

	data, err := h.cacheRepo.Get(clientdata.TableFxRates, key)
	if err != nil {
		h.log.Error().Err(err).Str("key", key).Msg("Failed to read fx cache")
		http.Error(w, "Failed to read cache", http.StatusInternalServerError)
		return
	}

	var value interface{}
	if data != nil {
		// Malformed payloads read as absent
		if err := json.Unmarshal(data, &value); err != nil {
			value = nil
		}
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"key":    key,
			"cached": value != nil,
			"value":  value,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
