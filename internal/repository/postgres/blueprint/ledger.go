package blueprint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"coipond/internal/domain"
	models "coipond/internal/domain/models/blueprint"
	bpRepo "coipond/internal/domain/repositories/blueprint"
	"coipond/internal/repository/postgres"
)

// PostgresLedgerRepository stores version ledgers as one JSONB row per blueprint
type PostgresLedgerRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(config *postgres.RepositoryConfig) bpRepo.LedgerRepository {
	return &PostgresLedgerRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Get returns the ledger for a blueprint, or (nil, nil) if none exists yet
func (r *PostgresLedgerRepository) Get(ctx context.Context, blueprintID string) (*models.VersionLedger, error) {
	query := fmt.Sprintf(`
		SELECT owner_id, versions, revision
		FROM %s
		WHERE blueprint_id = $1
	`, r.tables.BlueprintVersions)

	ledger := &models.VersionLedger{BlueprintID: blueprintID}
	var raw []byte

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, blueprintID).Scan(&ledger.OwnerID, &raw, &ledger.Revision)
	if err != nil {
		if postgres.IsPgMissingRowError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get ledger: %w", err)
	}

	if err := json.Unmarshal(raw, &ledger.Versions); err != nil {
		return nil, fmt.Errorf("decode ledger %s: %w", blueprintID, err)
	}

	return ledger, nil
}

// Save inserts the ledger when Revision is 0 and otherwise updates it only if
// the stored revision still matches.
func (r *PostgresLedgerRepository) Save(ctx context.Context, ledger *models.VersionLedger) error {
	versions, err := json.Marshal(ledger.Versions)
	if err != nil {
		return fmt.Errorf("encode ledger %s: %w", ledger.BlueprintID, err)
	}

	executor := postgres.GetExecutor(ctx, r.pool)

	if ledger.Revision == 0 {
		query := fmt.Sprintf(`
			INSERT INTO %s (blueprint_id, owner_id, versions, revision)
			VALUES ($1, $2, $3, 1)
		`, r.tables.BlueprintVersions)

		if _, err := executor.Exec(ctx, query, ledger.BlueprintID, ledger.OwnerID, versions); err != nil {
			if postgres.IsPgDuplicateError(err) {
				return fmt.Errorf("ledger %s created concurrently: %w", ledger.BlueprintID, domain.ErrConcurrentModification)
			}
			if postgres.IsPgForeignKeyError(err) || postgres.IsPgInvalidTextError(err) {
				return fmt.Errorf("blueprint %s: %w", ledger.BlueprintID, domain.ErrNotFound)
			}
			return fmt.Errorf("insert ledger: %w", err)
		}
		ledger.Revision = 1
		return nil
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET versions = $1, revision = revision + 1
		WHERE blueprint_id = $2 AND revision = $3
	`, r.tables.BlueprintVersions)

	result, err := executor.Exec(ctx, query, versions, ledger.BlueprintID, ledger.Revision)
	if err != nil {
		return fmt.Errorf("update ledger: %w", err)
	}
	if result.RowsAffected() == 0 {
		r.logger.Debug("ledger revision moved",
			"blueprint_id", ledger.BlueprintID,
			"expected_revision", ledger.Revision,
		)
		return fmt.Errorf("ledger %s changed since revision %d: %w",
			ledger.BlueprintID, ledger.Revision, domain.ErrConcurrentModification)
	}

	ledger.Revision++
	return nil
}

// Delete removes the ledger. A missing ledger is not an error.
func (r *PostgresLedgerRepository) Delete(ctx context.Context, blueprintID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE blueprint_id = $1`, r.tables.BlueprintVersions)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, blueprintID); err != nil {
		if postgres.IsPgInvalidTextError(err) {
			return nil
		}
		return fmt.Errorf("delete ledger: %w", err)
	}
	return nil
}
