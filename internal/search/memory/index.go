// Package memory serves the ranked listing indices from an in-process record
// source. It is used with the in-memory store in development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"coipond/internal/catalog"
	models "coipond/internal/domain/models/blueprint"
)

// Source lists every stored blueprint
type Source interface {
	List(ctx context.Context) ([]*models.Blueprint, error)
}

// Index implements the search index by sorting a full listing per query
type Index struct {
	source  Source
	catalog *catalog.Catalog
}

// NewIndex creates an in-memory search index
func NewIndex(source Source, cat *catalog.Catalog) *Index {
	return &Index{source: source, catalog: cat}
}

// Search runs one page of a listing against the named index
func (i *Index) Search(ctx context.Context, indexName string, q models.IndexQuery) (*models.IndexResult, error) {
	idx, ok := i.catalog.ByName(indexName)
	if !ok {
		return nil, fmt.Errorf("unknown index %s", indexName)
	}

	var owner string
	if q.FacetFilter != "" {
		attr, value, found := strings.Cut(q.FacetFilter, ":")
		if !found || attr != i.catalog.OwnerFacet() {
			return nil, fmt.Errorf("unsupported facet filter %q", q.FacetFilter)
		}
		owner = value
	}

	all, err := i.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list blueprints: %w", err)
	}

	needle := strings.ToLower(q.Query)
	matched := make([]*models.Blueprint, 0, len(all))
	for _, bp := range all {
		if owner != "" && bp.OwnerName != owner {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(bp.Name), needle) &&
			!strings.Contains(strings.ToLower(bp.Description), needle) {
			continue
		}
		matched = append(matched, bp)
	}

	sort.SliceStable(matched, func(a, b int) bool {
		c := compare(matched[a], matched[b], idx.SortField)
		if c == 0 {
			return matched[a].ID < matched[b].ID
		}
		if idx.Direction == models.DirectionAsc {
			return c < 0
		}
		return c > 0
	})

	hitsPerPage := q.HitsPerPage
	if hitsPerPage <= 0 {
		hitsPerPage = i.catalog.PageSize()
	}

	total := len(matched)
	start, end := total, total
	if q.Page >= 0 && q.Page <= total/hitsPerPage {
		start = q.Page * hitsPerPage
		end = min(start+hitsPerPage, total)
	}

	hits := make([]models.IndexedBlueprint, 0, end-start)
	for _, bp := range matched[start:end] {
		hits = append(hits, models.NewIndexedBlueprint(bp))
	}

	return &models.IndexResult{
		Hits:       hits,
		TotalCount: total,
		TotalPages: (total + hitsPerPage - 1) / hitsPerPage,
	}, nil
}

func compare(a, b *models.Blueprint, field models.SortField) int {
	switch field {
	case models.SortDownloads:
		return cmpInt(a.Downloads, b.Downloads)
	case models.SortViews:
		return cmpInt(a.Views, b.Views)
	default:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	}
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
