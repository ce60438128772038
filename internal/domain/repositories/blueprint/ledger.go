package blueprint

import (
	"context"

	models "coipond/internal/domain/models/blueprint"
)

// LedgerRepository stores one version ledger per blueprint ID.
type LedgerRepository interface {
	// Get returns the ledger for a blueprint, or (nil, nil) if none exists yet
	Get(ctx context.Context, blueprintID string) (*models.VersionLedger, error)

	// Save writes the ledger using compare-and-swap on Revision:
	//   - Revision 0 inserts; fails with domain.ErrConcurrentModification if a ledger exists
	//   - Revision n updates only if the stored revision is still n
	// On success ledger.Revision holds the new stored revision.
	Save(ctx context.Context, ledger *models.VersionLedger) error

	// Delete removes the ledger. Deleting a missing ledger is not an error.
	Delete(ctx context.Context, blueprintID string) error
}
