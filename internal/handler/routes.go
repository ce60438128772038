package handler

import (
	"net/http"

	"coipond/internal/middleware"
)

// RegisterRoutes wires the blueprint API onto mux (Go 1.22+ enhanced patterns).
// Counter and listing routes are rate limited per client.
func RegisterRoutes(mux *http.ServeMux, blueprints *BlueprintHandler, search *SearchHandler, limiter *middleware.RateLimiter) {
	limited := middleware.RateLimit(limiter)

	mux.HandleFunc("GET /health", blueprints.HealthCheck)

	// Listing and search
	mux.HandleFunc("GET /api/blueprints", limited(search.ListBlueprints))

	// Blueprint routes
	mux.HandleFunc("POST /api/blueprints", middleware.RequireAuth(blueprints.CreateBlueprint))
	mux.HandleFunc("POST /api/blueprints/preview", limited(blueprints.PreviewContent))
	mux.HandleFunc("GET /api/blueprints/{id}", limited(blueprints.GetBlueprint))
	mux.HandleFunc("PATCH /api/blueprints/{id}", middleware.RequireAuth(blueprints.UpdateMetadata))
	mux.HandleFunc("DELETE /api/blueprints/{id}", middleware.RequireAuth(blueprints.DeleteBlueprint))
	mux.HandleFunc("PUT /api/blueprints/{id}/content", middleware.RequireAuth(blueprints.UpdateContent))
	mux.HandleFunc("PUT /api/blueprints/{id}/screenshot", middleware.RequireAuth(blueprints.ReplaceScreenshot))
	mux.HandleFunc("POST /api/blueprints/{id}/downloads", limited(blueprints.RecordDownload))
}
