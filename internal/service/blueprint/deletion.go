package blueprint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"coipond/internal/domain"
	"coipond/internal/domain/repositories"
	bpRepo "coipond/internal/domain/repositories/blueprint"
	"coipond/internal/domain/services"
	bpSvc "coipond/internal/domain/services/blueprint"
	"coipond/internal/session"
)

// deletionCoordinator implements the DeletionCoordinator interface
type deletionCoordinator struct {
	blueprints bpRepo.BlueprintRepository
	ledgers    bpRepo.LedgerRepository
	txManager  repositories.TransactionManager
	blobs      bpSvc.BlobStore
	authorizer services.BlueprintAuthorizer
	logger     *slog.Logger
}

// NewDeletionCoordinator creates a new deletion coordinator
func NewDeletionCoordinator(
	blueprints bpRepo.BlueprintRepository,
	ledgers bpRepo.LedgerRepository,
	txManager repositories.TransactionManager,
	blobs bpSvc.BlobStore,
	authorizer services.BlueprintAuthorizer,
	logger *slog.Logger,
) bpSvc.DeletionCoordinator {
	return &deletionCoordinator{
		blueprints: blueprints,
		ledgers:    ledgers,
		txManager:  txManager,
		blobs:      blobs,
		authorizer: authorizer,
		logger:     logger,
	}
}

// DeleteBlueprint removes the screenshot, then the record and its ledger in one
// transaction, then hides the id from the session's listings.
//
// A screenshot that is already gone is ignored. Any other blob store failure
// stops the deletion before the record is touched.
func (s *deletionCoordinator) DeleteBlueprint(ctx context.Context, sess *session.Session, userID, id string) error {
	bp, err := s.blueprints.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizer.CanModify(userID, bp); err != nil {
		return err
	}

	if bp.ScreenshotURL != nil {
		if err := s.blobs.Delete(ctx, *bp.ScreenshotURL); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: delete screenshot: %w", domain.ErrExternalService, err)
			}
			s.logger.Debug("screenshot already gone", "id", id, "url", *bp.ScreenshotURL)
		}
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.blueprints.Delete(txCtx, id); err != nil {
			return err
		}
		if err := s.ledgers.Delete(txCtx, id); err != nil {
			return fmt.Errorf("delete version ledger: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if sess != nil {
		sess.AddTombstone(id)
	}

	s.logger.Info("blueprint deleted",
		"id", id,
		"owner_id", bp.OwnerID,
		"had_screenshot", bp.ScreenshotURL != nil,
	)
	return nil
}
