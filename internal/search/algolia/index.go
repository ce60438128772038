// Package algolia queries the hosted Algolia replicas that back blueprint
// listings. Each catalog index is a replica sorted on one attribute.
package algolia

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/opt"
	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"

	models "coipond/internal/domain/models/blueprint"
)

// replica is the subset of *search.Index used here
type replica interface {
	Search(query string, opts ...interface{}) (search.QueryRes, error)
}

// Index implements the search index over Algolia
type Index struct {
	open   func(name string) replica
	logger *slog.Logger

	mu       sync.Mutex
	replicas map[string]replica
}

// NewIndex creates an Algolia search index client. Credentials must be a
// search-only key.
func NewIndex(appID, apiKey string, logger *slog.Logger) *Index {
	client := search.NewClient(appID, apiKey)
	return newIndex(func(name string) replica { return client.InitIndex(name) }, logger)
}

func newIndex(open func(name string) replica, logger *slog.Logger) *Index {
	return &Index{
		open:     open,
		logger:   logger,
		replicas: make(map[string]replica),
	}
}

// Search runs one page of a listing against the named replica
func (i *Index) Search(ctx context.Context, indexName string, q models.IndexQuery) (*models.IndexResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := []interface{}{
		opt.Page(q.Page),
	}
	if q.HitsPerPage > 0 {
		opts = append(opts, opt.HitsPerPage(q.HitsPerPage))
	}
	if q.FacetFilter != "" {
		opts = append(opts, opt.FacetFilter(q.FacetFilter))
	}

	res, err := i.replica(indexName).Search(q.Query, opts...)
	if err != nil {
		return nil, fmt.Errorf("algolia search %s: %w", indexName, err)
	}

	hits := []models.IndexedBlueprint{}
	if err := res.UnmarshalHits(&hits); err != nil {
		return nil, fmt.Errorf("decode algolia hits: %w", err)
	}

	i.logger.Debug("algolia search",
		"index", indexName,
		"page", q.Page,
		"hits", len(hits),
		"nb_hits", res.NbHits,
	)

	return &models.IndexResult{
		Hits:       hits,
		TotalCount: res.NbHits,
		TotalPages: res.NbPages,
	}, nil
}

func (i *Index) replica(name string) replica {
	i.mu.Lock()
	defer i.mu.Unlock()
	r, ok := i.replicas[name]
	if !ok {
		r = i.open(name)
		i.replicas[name] = r
	}
	return r
}
