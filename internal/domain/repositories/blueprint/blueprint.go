package blueprint

import (
	"context"

	models "coipond/internal/domain/models/blueprint"
)

// BlueprintRepository defines data access operations for blueprint records.
// All methods participate in a transaction when ctx carries one.
type BlueprintRepository interface {
	// Create inserts a new record
	Create(ctx context.Context, bp *models.Blueprint) error

	// GetByID retrieves a record by ID
	GetByID(ctx context.Context, id string) (*models.Blueprint, error)

	// UpdateContent writes blueprint text, game version, kind and updated_at
	UpdateContent(ctx context.Context, bp *models.Blueprint) error

	// UpdateMetadata writes name, description and updated_at
	UpdateMetadata(ctx context.Context, bp *models.Blueprint) error

	// UpdateScreenshot sets or clears the screenshot URL
	UpdateScreenshot(ctx context.Context, id string, url *string) error

	// IncrementCounter atomically adds one to a counter field
	IncrementCounter(ctx context.Context, id string, counter models.Counter) error

	// Delete removes a record
	Delete(ctx context.Context, id string) error
}
