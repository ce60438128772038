package blueprint

import (
	"context"

	models "coipond/internal/domain/models/blueprint"
	"coipond/internal/session"
)

// BlueprintService handles the primary record and everything that is not a content edit
type BlueprintService interface {
	// CreateBlueprint publishes a new blueprint. No version ledger is created.
	CreateBlueprint(ctx context.Context, req *CreateBlueprintRequest) (*models.Blueprint, error)

	// GetBlueprint retrieves a record
	GetBlueprint(ctx context.Context, id string) (*models.Blueprint, error)

	// GetBlueprintDetail retrieves a record with its history and folder tree,
	// counting one view
	GetBlueprintDetail(ctx context.Context, id string) (*models.Detail, error)

	// UpdateMetadata changes name and/or description. userID must own the blueprint.
	UpdateMetadata(ctx context.Context, userID, id string, req *UpdateMetadataRequest) (*models.Blueprint, error)

	// ReplaceScreenshot swaps the screenshot. Best effort: a failure after the old
	// image is removed is not rolled back.
	ReplaceScreenshot(ctx context.Context, userID, id string, upload *ScreenshotUpload) (*models.Blueprint, error)

	// RecordDownload counts one download
	RecordDownload(ctx context.Context, id string) error

	// PreviewContent parses text and derives kind, game version and tree without writing
	PreviewContent(ctx context.Context, text string) (*ContentPreview, error)
}

// ContentUpdater applies content edits together with the version ledger
type ContentUpdater interface {
	UpdateContent(ctx context.Context, userID, id, text string) (*ContentUpdateResult, error)
}

// DeletionCoordinator removes a blueprint, its screenshot and its history
type DeletionCoordinator interface {
	DeleteBlueprint(ctx context.Context, sess *session.Session, userID, id string) error
}

// Searcher lists blueprints through the ranked indices
type Searcher interface {
	Search(ctx context.Context, sess *session.Session, req *models.SearchRequest) (*models.SearchResults, error)
}

// CreateBlueprintRequest represents a blueprint submission
type CreateBlueprintRequest struct {
	OwnerID       string            `json:"-"` // Set by handler from auth context
	OwnerName     string            `json:"-"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	BlueprintText string            `json:"blueprint"`
	Screenshot    *ScreenshotUpload `json:"-"`
}

// UpdateMetadataRequest represents a name/description edit
type UpdateMetadataRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UpdateContentRequest represents a blueprint text edit
type UpdateContentRequest struct {
	BlueprintText string `json:"blueprint"`
}

// ScreenshotUpload is an uploaded image
type ScreenshotUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ContentUpdateResult is the outcome of a content edit.
// NoOp is set when the text was identical and nothing was written.
type ContentUpdateResult struct {
	Blueprint *models.Blueprint     `json:"blueprint"`
	Versions  *models.VersionLedger `json:"versions"`
	NoOp      bool                  `json:"noop"`
}

// ContentPreview is what an edit would derive from a blueprint string
type ContentPreview struct {
	Kind        models.Kind            `json:"kind"`
	GameVersion string                 `json:"gameVersion"`
	Tree        *models.FolderTreeNode `json:"tree,omitempty"`
}
