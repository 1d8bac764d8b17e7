package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk analysis routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Get("/portfolio", h.HandleGetPortfolio)
		r.Post("/analyze", h.HandleAnalyze)
		r.Get("/assets/{assetID}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetAsset(w, r, assetIDParam(r))
		})
	})
}
