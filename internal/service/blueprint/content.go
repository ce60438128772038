package blueprint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"coipond/internal/config"
	"coipond/internal/domain"
	models "coipond/internal/domain/models/blueprint"
	"coipond/internal/domain/repositories"
	bpRepo "coipond/internal/domain/repositories/blueprint"
	"coipond/internal/domain/services"
	bpSvc "coipond/internal/domain/services/blueprint"
)

// parsedContent is what a record stores for a blueprint string
type parsedContent struct {
	tree        models.Tree
	kind        models.Kind
	gameVersion string
}

// parseContent runs the parser and derives kind and game version.
// Malformed text and empty folders are validation errors.
func parseContent(ctx context.Context, parser bpSvc.Parser, text string) (*parsedContent, error) {
	tree, err := parser.Parse(ctx, text)
	if err != nil {
		if errors.Is(err, bpSvc.ErrParse) {
			return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
		}
		return nil, err
	}

	kind, version, err := analyzeContent(tree)
	if err != nil {
		return nil, err
	}
	return &parsedContent{tree: tree, kind: kind, gameVersion: version}, nil
}

// contentUpdater implements the ContentUpdater interface
type contentUpdater struct {
	blueprints  bpRepo.BlueprintRepository
	ledgers     bpRepo.LedgerRepository
	txManager   repositories.TransactionManager
	parser      bpSvc.Parser
	authorizer  services.BlueprintAuthorizer
	maxAttempts int
	logger      *slog.Logger
	now         func() time.Time
}

// NewContentUpdater creates the update transaction for blueprint content.
// maxAttempts below 1 falls back to the default.
func NewContentUpdater(
	blueprints bpRepo.BlueprintRepository,
	ledgers bpRepo.LedgerRepository,
	txManager repositories.TransactionManager,
	parser bpSvc.Parser,
	authorizer services.BlueprintAuthorizer,
	maxAttempts int,
	logger *slog.Logger,
) bpSvc.ContentUpdater {
	if maxAttempts < 1 {
		maxAttempts = config.DefaultUpdateMaxAttempts
	}
	return &contentUpdater{
		blueprints:  blueprints,
		ledgers:     ledgers,
		txManager:   txManager,
		parser:      parser,
		authorizer:  authorizer,
		maxAttempts: maxAttempts,
		logger:      logger,
		now:         time.Now,
	}
}

// UpdateContent replaces a blueprint's text and records the edit in its
// version ledger. Record and ledger change together or not at all.
//
// Ownership is checked before the text is parsed and again inside the
// transaction. Identical text is a no-op: nothing is written and NoOp is set.
// Losing a race on the ledger restarts the whole read-modify-write, up to
// maxAttempts times.
func (s *contentUpdater) UpdateContent(ctx context.Context, userID, id, text string) (*bpSvc.ContentUpdateResult, error) {
	current, err := s.blueprints.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CanModify(userID, current); err != nil {
		return nil, err
	}

	if len(text) > config.MaxBlueprintTextLength {
		return nil, fmt.Errorf("%w: blueprint exceeds %d bytes", domain.ErrValidation, config.MaxBlueprintTextLength)
	}

	content, err := parseContent(ctx, s.parser, text)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		result, err := s.attempt(ctx, userID, id, text, content)
		if err == nil {
			if !result.NoOp {
				s.logger.Info("blueprint content updated",
					"id", id,
					"game_version", content.gameVersion,
					"versions", len(result.Versions.Versions),
					"attempt", attempt,
				)
			}
			return result, nil
		}
		if !errors.Is(err, domain.ErrConcurrentModification) {
			return nil, err
		}

		lastErr = err
		s.logger.Debug("content update conflict, retrying",
			"id", id,
			"attempt", attempt,
			"error", err,
		)
	}

	s.logger.Warn("content update gave up",
		"id", id,
		"attempts", s.maxAttempts,
		"error", lastErr,
	)
	return nil, fmt.Errorf("could not update blueprint %s after %d attempts: %w", id, s.maxAttempts, lastErr)
}

// attempt is one run of the transaction. Every value it writes is rebuilt from
// what it reads inside the transaction.
func (s *contentUpdater) attempt(ctx context.Context, userID, id, text string, content *parsedContent) (*bpSvc.ContentUpdateResult, error) {
	var result *bpSvc.ContentUpdateResult

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		bp, err := s.blueprints.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.authorizer.CanModify(userID, bp); err != nil {
			return err
		}

		ledger, err := s.ledgers.Get(txCtx, id)
		if err != nil {
			return fmt.Errorf("load version ledger: %w", err)
		}

		if bp.BlueprintText == text {
			result = &bpSvc.ContentUpdateResult{Blueprint: bp, Versions: ledger, NoOp: true}
			return nil
		}

		now := s.now()
		entry := models.VersionEntry{
			BlueprintText: text,
			GameVersion:   content.gameVersion,
			CreatedAt:     now,
		}
		if ledger == nil {
			ledger = models.NewVersionLedger(id, userID, entry, bp.Snapshot())
		} else {
			ledger = ledger.Prepend(entry)
		}

		if err := s.ledgers.Save(txCtx, ledger); err != nil {
			return fmt.Errorf("save version ledger: %w", err)
		}

		bp.BlueprintText = text
		bp.GameVersion = content.gameVersion
		bp.Kind = content.kind
		bp.UpdatedAt = now
		if err := s.blueprints.UpdateContent(txCtx, bp); err != nil {
			return fmt.Errorf("update blueprint: %w", err)
		}

		result = &bpSvc.ContentUpdateResult{Blueprint: bp, Versions: ledger}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
