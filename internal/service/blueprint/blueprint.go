package blueprint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"coipond/internal/config"
	"coipond/internal/domain"
	models "coipond/internal/domain/models/blueprint"
	bpRepo "coipond/internal/domain/repositories/blueprint"
	"coipond/internal/domain/services"
	bpSvc "coipond/internal/domain/services/blueprint"
)

// blueprintService implements the BlueprintService interface
type blueprintService struct {
	blueprints bpRepo.BlueprintRepository
	ledgers    bpRepo.LedgerRepository
	parser     bpSvc.Parser
	blobs      bpSvc.BlobStore
	authorizer services.BlueprintAuthorizer
	logger     *slog.Logger
	now        func() time.Time
}

// NewBlueprintService creates a new blueprint service
func NewBlueprintService(
	blueprints bpRepo.BlueprintRepository,
	ledgers bpRepo.LedgerRepository,
	parser bpSvc.Parser,
	blobs bpSvc.BlobStore,
	authorizer services.BlueprintAuthorizer,
	logger *slog.Logger,
) bpSvc.BlueprintService {
	return &blueprintService{
		blueprints: blueprints,
		ledgers:    ledgers,
		parser:     parser,
		blobs:      blobs,
		authorizer: authorizer,
		logger:     logger,
		now:        time.Now,
	}
}

// CreateBlueprint publishes a new blueprint. The screenshot, if any, is
// uploaded before the record is written.
func (s *blueprintService) CreateBlueprint(ctx context.Context, req *bpSvc.CreateBlueprintRequest) (*models.Blueprint, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var contentType string
	if req.Screenshot != nil {
		ct, err := validateScreenshot(req.Screenshot)
		if err != nil {
			return nil, err
		}
		contentType = ct
	}

	content, err := parseContent(ctx, s.parser, req.BlueprintText)
	if err != nil {
		return nil, err
	}

	now := s.now()
	bp := &models.Blueprint{
		ID:            uuid.NewString(),
		OwnerID:       req.OwnerID,
		OwnerName:     req.OwnerName,
		Kind:          content.kind,
		Name:          req.Name,
		Description:   req.Description,
		BlueprintText: req.BlueprintText,
		GameVersion:   content.gameVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if req.Screenshot != nil {
		key := screenshotKey(bp.ID, req.Screenshot.Filename, contentType)
		url, err := s.blobs.Put(ctx, key, contentType, req.Screenshot.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: upload screenshot: %w", domain.ErrExternalService, err)
		}
		bp.ScreenshotURL = &url
	}

	if err := s.blueprints.Create(ctx, bp); err != nil {
		if bp.ScreenshotURL != nil {
			if delErr := s.blobs.Delete(ctx, *bp.ScreenshotURL); delErr != nil {
				s.logger.Warn("orphaned screenshot after failed create",
					"url", *bp.ScreenshotURL,
					"error", delErr,
				)
			}
		}
		return nil, err
	}

	s.logger.Info("blueprint created",
		"id", bp.ID,
		"owner_id", bp.OwnerID,
		"kind", bp.Kind,
		"game_version", bp.GameVersion,
		"screenshot", bp.ScreenshotURL != nil,
	)

	return bp, nil
}

// GetBlueprint retrieves a blueprint record
func (s *blueprintService) GetBlueprint(ctx context.Context, id string) (*models.Blueprint, error) {
	return s.blueprints.GetByID(ctx, id)
}

// GetBlueprintDetail loads the record and its history concurrently, builds the
// folder tree for folders and counts one view.
func (s *blueprintService) GetBlueprintDetail(ctx context.Context, id string) (*models.Detail, error) {
	var bp *models.Blueprint
	var ledger *models.VersionLedger

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		bp, err = s.blueprints.GetByID(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		ledger, err = s.ledgers.Get(gctx, id)
		if err != nil {
			return fmt.Errorf("load version ledger: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	detail := &models.Detail{Blueprint: bp, Versions: ledger}

	if bp.Kind == models.KindFolder {
		tree, err := s.parser.Parse(ctx, bp.BlueprintText)
		if err != nil {
			// Stored text was accepted by an older parser; show the record without a tree
			s.logger.Warn("stored blueprint no longer parses", "id", id, "error", err)
		} else if folder, ok := tree.(*models.Folder); ok {
			detail.Tree = BuildTreeView(folder)
		}
	}

	if err := s.blueprints.IncrementCounter(ctx, id, models.CounterViews); err != nil {
		s.logger.Warn("failed to count view", "id", id, "error", err)
	} else {
		bp.Views++
	}

	return detail, nil
}

// UpdateMetadata changes name and/or description
func (s *blueprintService) UpdateMetadata(ctx context.Context, userID, id string, req *bpSvc.UpdateMetadataRequest) (*models.Blueprint, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := validateMetadataRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	bp, err := s.blueprints.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CanModify(userID, bp); err != nil {
		return nil, err
	}

	if req.Name != nil {
		bp.Name = *req.Name
	}
	if req.Description != nil {
		bp.Description = *req.Description
	}
	bp.UpdatedAt = s.now()

	if err := s.blueprints.UpdateMetadata(ctx, bp); err != nil {
		return nil, err
	}

	s.logger.Info("blueprint metadata updated", "id", id)
	return bp, nil
}

// ReplaceScreenshot removes the current screenshot and uploads a new one.
// A failure part way leaves whatever state was reached; there is no rollback.
func (s *blueprintService) ReplaceScreenshot(ctx context.Context, userID, id string, upload *bpSvc.ScreenshotUpload) (*models.Blueprint, error) {
	contentType, err := validateScreenshot(upload)
	if err != nil {
		return nil, err
	}

	bp, err := s.blueprints.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizer.CanModify(userID, bp); err != nil {
		return nil, err
	}

	if bp.ScreenshotURL != nil {
		if err := s.blobs.Delete(ctx, *bp.ScreenshotURL); err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: delete old screenshot: %w", domain.ErrExternalService, err)
			}
			s.logger.Debug("old screenshot already gone", "id", id, "url", *bp.ScreenshotURL)
		}
	}

	url, err := s.blobs.Put(ctx, screenshotKey(id, upload.Filename, contentType), contentType, upload.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: upload screenshot: %w", domain.ErrExternalService, err)
	}

	if err := s.blueprints.UpdateScreenshot(ctx, id, &url); err != nil {
		return nil, err
	}
	bp.ScreenshotURL = &url

	s.logger.Info("screenshot replaced", "id", id, "url", url)
	return bp, nil
}

// RecordDownload counts one download
func (s *blueprintService) RecordDownload(ctx context.Context, id string) error {
	return s.blueprints.IncrementCounter(ctx, id, models.CounterDownloads)
}

// PreviewContent parses text and reports what an edit would store
func (s *blueprintService) PreviewContent(ctx context.Context, text string) (*bpSvc.ContentPreview, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: blueprint is required", domain.ErrValidation)
	}
	if len(text) > config.MaxBlueprintTextLength {
		return nil, fmt.Errorf("%w: blueprint exceeds %d bytes", domain.ErrValidation, config.MaxBlueprintTextLength)
	}

	content, err := parseContent(ctx, s.parser, text)
	if err != nil {
		return nil, err
	}

	preview := &bpSvc.ContentPreview{Kind: content.kind, GameVersion: content.gameVersion}
	if folder, ok := content.tree.(*models.Folder); ok {
		preview.Tree = BuildTreeView(folder)
	}
	return preview, nil
}

// validateCreateRequest validates a blueprint submission
func validateCreateRequest(req *bpSvc.CreateBlueprintRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.OwnerID, validation.Required),
		validation.Field(&req.Name,
			validation.Required,
			validation.RuneLength(1, config.MaxBlueprintNameLength),
		),
		validation.Field(&req.Description, validation.RuneLength(0, config.MaxDescriptionLength)),
		validation.Field(&req.BlueprintText,
			validation.Required,
			validation.Length(1, config.MaxBlueprintTextLength),
		),
	)
}

// validateMetadataRequest validates a name/description edit
func validateMetadataRequest(req *bpSvc.UpdateMetadataRequest) error {
	if req.Name == nil && req.Description == nil {
		return fmt.Errorf("nothing to update")
	}
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.When(req.Name != nil,
				validation.Required,
				validation.RuneLength(1, config.MaxBlueprintNameLength),
			),
		),
		validation.Field(&req.Description, validation.RuneLength(0, config.MaxDescriptionLength)),
	)
}
