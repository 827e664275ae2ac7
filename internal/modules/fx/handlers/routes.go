package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all FX routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/fx", func(r chi.Router) {
		r.Get("/usd-eur", h.HandleGetUSDEUR)
		r.Get("/cache/{key}", h.HandleInspectCache)
	})
}
