package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	models "coipond/internal/domain/models/blueprint"
	bpSvc "coipond/internal/domain/services/blueprint"
	"coipond/internal/httputil"
	"coipond/internal/session"
)

// SearchHandler serves blueprint listings
type SearchHandler struct {
	searcher bpSvc.Searcher
	logger   *slog.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(searcher bpSvc.Searcher, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		logger:   logger,
	}
}

// ListBlueprints returns one page of blueprints
// GET /api/blueprints?sort=updated|downloads|views&direction=asc|desc&username=&q=&page=
func (h *SearchHandler) ListBlueprints(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := &models.SearchRequest{
		SortField:   models.SortField(query.Get("sort")),
		Direction:   models.Direction(query.Get("direction")),
		OwnerFilter: query.Get("username"),
		Query:       query.Get("q"),
	}
	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "page must be an integer")
			return
		}
		req.Page = page
	}

	results, err := h.searcher.Search(r.Context(), session.FromContext(r.Context()), req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"hits":       results.Hits,
		"totalCount": results.TotalCount,
		"totalPages": results.TotalPages,
		"page":       results.Page,
		"index":      results.Index,
		"hasMore":    results.HasMore(),
	})
}
