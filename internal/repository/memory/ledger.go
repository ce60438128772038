package memory

import (
	"context"
	"fmt"

	"coipond/internal/domain"
	models "coipond/internal/domain/models/blueprint"
)

// LedgerRepository implements the ledger repository over a Store
type LedgerRepository struct {
	store *Store
}

func cloneLedger(l *models.VersionLedger) *models.VersionLedger {
	c := *l
	c.Versions = append([]models.VersionEntry(nil), l.Versions...)
	return &c
}

// Get returns the ledger for a blueprint, or (nil, nil) if none exists yet
func (r *LedgerRepository) Get(ctx context.Context, blueprintID string) (*models.VersionLedger, error) {
	var out *models.VersionLedger
	err := r.store.run(ctx, func(st state) error {
		if l, ok := st.ledger(blueprintID); ok {
			out = cloneLedger(l)
		}
		return nil
	})
	return out, err
}

// Save writes the ledger if its Revision still matches the stored one
func (r *LedgerRepository) Save(ctx context.Context, ledger *models.VersionLedger) error {
	return r.store.run(ctx, func(st state) error {
		var current int64
		if existing, ok := st.ledger(ledger.BlueprintID); ok {
			current = existing.Revision
		}
		if current != ledger.Revision {
			return fmt.Errorf("ledger %s at revision %d, expected %d: %w",
				ledger.BlueprintID, current, ledger.Revision, domain.ErrConcurrentModification)
		}

		stored := cloneLedger(ledger)
		stored.Revision = current + 1
		st.putLedger(stored)
		ledger.Revision = stored.Revision
		return nil
	})
}

// Delete removes the ledger; a missing ledger is not an error
func (r *LedgerRepository) Delete(ctx context.Context, blueprintID string) error {
	return r.store.run(ctx, func(st state) error {
		st.deleteLedger(blueprintID)
		return nil
	})
}
