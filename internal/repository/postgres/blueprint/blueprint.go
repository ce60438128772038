package blueprint

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"coipond/internal/domain"
	models "coipond/internal/domain/models/blueprint"
	bpRepo "coipond/internal/domain/repositories/blueprint"
	"coipond/internal/repository/postgres"
)

// PostgresBlueprintRepository implements the BlueprintRepository interface
type PostgresBlueprintRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewBlueprintRepository creates a new blueprint repository
func NewBlueprintRepository(config *postgres.RepositoryConfig) bpRepo.BlueprintRepository {
	return &PostgresBlueprintRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

const blueprintColumns = `id, owner_id, owner_name, kind, name, description, blueprint,
		game_version, views, downloads, screenshot_url, created_at, updated_at`

// Create inserts a new blueprint record
func (r *PostgresBlueprintRepository) Create(ctx context.Context, bp *models.Blueprint) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, r.tables.Blueprints, blueprintColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		bp.ID,
		bp.OwnerID,
		bp.OwnerName,
		bp.Kind,
		bp.Name,
		bp.Description,
		bp.BlueprintText,
		bp.GameVersion,
		bp.Views,
		bp.Downloads,
		bp.ScreenshotURL,
		bp.CreatedAt,
		bp.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("blueprint %s already exists", bp.ID),
				ResourceType: "blueprint",
				ResourceID:   bp.ID,
			}
		}
		return fmt.Errorf("create blueprint: %w", err)
	}

	return nil
}

// GetByID retrieves a blueprint by ID
func (r *PostgresBlueprintRepository) GetByID(ctx context.Context, id string) (*models.Blueprint, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, blueprintColumns, r.tables.Blueprints)

	var bp models.Blueprint
	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, id).Scan(
		&bp.ID,
		&bp.OwnerID,
		&bp.OwnerName,
		&bp.Kind,
		&bp.Name,
		&bp.Description,
		&bp.BlueprintText,
		&bp.GameVersion,
		&bp.Views,
		&bp.Downloads,
		&bp.ScreenshotURL,
		&bp.CreatedAt,
		&bp.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgMissingRowError(err) {
			return nil, fmt.Errorf("blueprint %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get blueprint: %w", err)
	}

	return &bp, nil
}

// UpdateContent writes the blueprint text and the fields derived from it
func (r *PostgresBlueprintRepository) UpdateContent(ctx context.Context, bp *models.Blueprint) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET blueprint = $1, game_version = $2, kind = $3, updated_at = $4
		WHERE id = $5
	`, r.tables.Blueprints)

	return r.execOne(ctx, "update blueprint content", bp.ID, query,
		bp.BlueprintText, bp.GameVersion, bp.Kind, bp.UpdatedAt, bp.ID)
}

// UpdateMetadata writes name and description
func (r *PostgresBlueprintRepository) UpdateMetadata(ctx context.Context, bp *models.Blueprint) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, description = $2, updated_at = $3
		WHERE id = $4
	`, r.tables.Blueprints)

	return r.execOne(ctx, "update blueprint metadata", bp.ID, query,
		bp.Name, bp.Description, bp.UpdatedAt, bp.ID)
}

// UpdateScreenshot sets or clears the screenshot URL
func (r *PostgresBlueprintRepository) UpdateScreenshot(ctx context.Context, id string, url *string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET screenshot_url = $1
		WHERE id = $2
	`, r.tables.Blueprints)

	return r.execOne(ctx, "update screenshot", id, query, url, id)
}

// IncrementCounter adds one to the views or downloads column in place
func (r *PostgresBlueprintRepository) IncrementCounter(ctx context.Context, id string, counter models.Counter) error {
	var column string
	switch counter {
	case models.CounterViews:
		column = "views"
	case models.CounterDownloads:
		column = "downloads"
	default:
		return fmt.Errorf("%w: unknown counter %q", domain.ErrValidation, counter)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = %s + 1
		WHERE id = $1
	`, r.tables.Blueprints, column, column)

	return r.execOne(ctx, "increment "+column, id, query, id)
}

// Delete removes a blueprint record
func (r *PostgresBlueprintRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Blueprints)
	return r.execOne(ctx, "delete blueprint", id, query, id)
}

// execOne runs a statement that must touch exactly the row with the given id
func (r *PostgresBlueprintRepository) execOne(ctx context.Context, op, id, query string, args ...interface{}) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, args...)
	if err != nil {
		if postgres.IsPgInvalidTextError(err) {
			return fmt.Errorf("blueprint %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("blueprint %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
