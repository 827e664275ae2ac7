// Package handlers provides HTTP handlers for quote resolution.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/prices"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles quote HTTP requests.
type Handler struct {
	service *prices.Service
	log     zerolog.Logger
}

// NewHandler creates a new prices handler.
func NewHandler(service *prices.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "prices").Logger(),
	}
}

// HandleGetPrice returns the EUR-converted quote for a symbol on a market.
func (h *Handler) HandleGetPrice(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")
	market, err := domain.ParseMarket(chi.URLParam(r, "market"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	quote, err := h.service.GetPrice(symbol, market)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", symbol).Msg("Quote resolution failed")
		if errors.Is(err, domain.ErrQuoteUnavailable) || errors.Is(err, domain.ErrUpstreamUnavailable) {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]interface{}{
		"data": quote,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
