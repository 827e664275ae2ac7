package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers snapshot routes on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/snapshots", func(r chi.Router) {
		r.Post("/", h.HandleSnapshotNow)
		r.Get("/compare", h.HandleCompare)
		r.Get("/history-summary", h.HandleHistorySummary)
	})
}
