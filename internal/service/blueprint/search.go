package blueprint

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"coipond/internal/catalog"
	"coipond/internal/domain"
	models "coipond/internal/domain/models/blueprint"
	bpSvc "coipond/internal/domain/services/blueprint"
	"coipond/internal/session"
)

// indexSelector implements the Searcher interface on top of the ranked indices
type indexSelector struct {
	catalog *catalog.Catalog
	index   bpSvc.SearchIndex
	logger  *slog.Logger
}

// NewIndexSelector creates a searcher that routes each request to the index
// pre-sorted on the requested key
func NewIndexSelector(cat *catalog.Catalog, index bpSvc.SearchIndex, logger *slog.Logger) bpSvc.Searcher {
	return &indexSelector{
		catalog: cat,
		index:   index,
		logger:  logger,
	}
}

// Search returns one page of the listing. Hits the session deleted are removed;
// counts are reported as the index returned them.
func (s *indexSelector) Search(ctx context.Context, sess *session.Session, req *models.SearchRequest) (*models.SearchResults, error) {
	if req == nil {
		req = &models.SearchRequest{}
	}
	if req.SortField == "" && req.Direction == "" {
		def := s.catalog.Default()
		req.SortField, req.Direction = def.Field, def.Direction
	}
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	idx, ok := s.catalog.Lookup(req.SortField, req.Direction)
	if !ok {
		return nil, fmt.Errorf("%w: no index sorted by %s %s", domain.ErrValidation, req.SortField, req.Direction)
	}

	query := models.IndexQuery{
		Query:       strings.TrimSpace(req.Query),
		Page:        req.Page,
		HitsPerPage: s.catalog.PageSize(),
	}
	if req.OwnerFilter != "" {
		query.FacetFilter = s.catalog.OwnerFacet() + ":" + req.OwnerFilter
	}

	res, err := s.index.Search(ctx, idx.Name, query)
	if err != nil {
		return nil, fmt.Errorf("%w: search %s: %w", domain.ErrExternalService, idx.Name, err)
	}

	hits := make([]models.IndexedBlueprint, 0, len(res.Hits))
	hidden := 0
	for _, hit := range res.Hits {
		if sess.IsTombstoned(hit.ObjectID) {
			hidden++
			continue
		}
		hits = append(hits, hit)
	}

	s.logger.Debug("listing served",
		"index", idx.Name,
		"page", req.Page,
		"hits", len(hits),
		"hidden", hidden,
	)

	return &models.SearchResults{
		Hits:       hits,
		TotalCount: res.TotalCount,
		TotalPages: res.TotalPages,
		Page:       req.Page,
		Index:      idx.Name,
	}, nil
}
