package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers portfolio routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/", h.HandleGetPortfolio)
		r.Post("/transactions", h.HandleRecordTransaction)
		r.Get("/transactions", h.HandleListTransactions)
	})
}
