// Package postgres serves the ranked listing indices straight from the
// blueprints table. Each index name resolves to an ORDER BY clause.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"coipond/internal/catalog"
	models "coipond/internal/domain/models/blueprint"
	"coipond/internal/repository/postgres"
)

// textSearchConfig is the PostgreSQL text search configuration. Blueprint names
// are mostly game jargon, so no stemming.
const textSearchConfig = "simple"

// Index implements the search index over PostgreSQL
type Index struct {
	pool    *pgxpool.Pool
	tables  *postgres.TableNames
	catalog *catalog.Catalog
	logger  *slog.Logger
}

// NewIndex creates a PostgreSQL-backed search index
func NewIndex(config *postgres.RepositoryConfig, cat *catalog.Catalog) *Index {
	return &Index{
		pool:    config.Pool,
		tables:  config.Tables,
		catalog: cat,
		logger:  config.Logger,
	}
}

var sortColumns = map[models.SortField]string{
	models.SortUpdated:   "updated_at",
	models.SortDownloads: "downloads",
	models.SortViews:     "views",
}

// Search runs one page of a listing against the named index
func (i *Index) Search(ctx context.Context, indexName string, q models.IndexQuery) (*models.IndexResult, error) {
	idx, ok := i.catalog.ByName(indexName)
	if !ok {
		return nil, fmt.Errorf("unknown index %s", indexName)
	}
	column, ok := sortColumns[idx.SortField]
	if !ok {
		return nil, fmt.Errorf("index %s sorts on unsupported field %s", indexName, idx.SortField)
	}
	direction := "DESC"
	if idx.Direction == models.DirectionAsc {
		direction = "ASC"
	}

	var conditions []string
	var args []interface{}

	if q.Query != "" {
		args = append(args, textSearchConfig, q.Query)
		conditions = append(conditions,
			"to_tsvector($1, name || ' ' || description) @@ websearch_to_tsquery($1, $2)")
	}

	if q.FacetFilter != "" {
		attr, value, found := strings.Cut(q.FacetFilter, ":")
		if !found || attr != i.catalog.OwnerFacet() {
			return nil, fmt.Errorf("unsupported facet filter %q", q.FacetFilter)
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("owner_name = $%d", len(args)))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	total, err := i.count(ctx, where, args)
	if err != nil {
		return nil, err
	}

	hitsPerPage := q.HitsPerPage
	if hitsPerPage <= 0 {
		hitsPerPage = i.catalog.PageSize()
	}

	query := fmt.Sprintf(`
		SELECT id, owner_id, owner_name, kind, name, description, game_version,
		       views, downloads, screenshot_url, created_at, updated_at
		FROM %s
		%s
		ORDER BY %s %s, id
		LIMIT $%d OFFSET $%d
	`, i.tables.Blueprints, where, column, direction, len(args)+1, len(args)+2)
	args = append(args, hitsPerPage, q.Page*hitsPerPage)

	executor := postgres.GetExecutor(ctx, i.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", indexName, err)
	}
	defer rows.Close()

	hits := []models.IndexedBlueprint{}
	for rows.Next() {
		var bp models.Blueprint
		err := rows.Scan(
			&bp.ID,
			&bp.OwnerID,
			&bp.OwnerName,
			&bp.Kind,
			&bp.Name,
			&bp.Description,
			&bp.GameVersion,
			&bp.Views,
			&bp.Downloads,
			&bp.ScreenshotURL,
			&bp.CreatedAt,
			&bp.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan search hit: %w", err)
		}
		hits = append(hits, models.NewIndexedBlueprint(&bp))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search hits: %w", err)
	}

	i.logger.Debug("index search",
		"index", indexName,
		"page", q.Page,
		"hits", len(hits),
		"total", total,
	)

	return &models.IndexResult{
		Hits:       hits,
		TotalCount: total,
		TotalPages: (total + hitsPerPage - 1) / hitsPerPage,
	}, nil
}

func (i *Index) count(ctx context.Context, where string, args []interface{}) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, i.tables.Blueprints, where)

	var total int
	executor := postgres.GetExecutor(ctx, i.pool)
	if err := executor.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count search hits: %w", err)
	}
	return total, nil
}
