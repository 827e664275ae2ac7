// Package handlers provides HTTP handlers for the portfolio ledger.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/folio/internal/domain"
	"github.com/aristath/folio/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// Handler handles portfolio HTTP requests.
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler.
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetPortfolio returns the portfolio view. with_prices=1 adds
// live quotes and P&L.
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	withPrices := r.URL.Query().Get("with_prices")
	priced := withPrices == "1" || withPrices == "true"

	view, err := h.service.GetView(priced)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build portfolio view")
		if errors.Is(err, domain.ErrQuoteUnavailable) || errors.Is(err, domain.ErrUpstreamUnavailable) {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, view)
}

// HandleRecordTransaction records a buy or sell against the ledger.
func (h *Handler) HandleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req portfolio.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	recorded, err := h.service.ApplyTransaction(req)
	if err != nil {
		h.log.Error().Err(err).Str("symbol", req.Symbol).Msg("Transaction rejected")
		// Ledger validation failures are the caller's fault.
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(recorded)
}

// HandleListTransactions returns the trade log, newest first.
// Supports ?symbol= and ?limit= filters.
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	txs, err := h.service.ListTransactions(symbol, limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list transactions")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}

	writeJSON(w, map[string]interface{}{
		"data": txs,
		"metadata": map[string]interface{}{
			"count":     len(txs),
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
