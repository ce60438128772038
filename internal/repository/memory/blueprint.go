package memory

import (
	"context"
	"fmt"

	"coipond/internal/domain"
	models "coipond/internal/domain/models/blueprint"
)

// BlueprintRepository implements the blueprint repository over a Store
type BlueprintRepository struct {
	store *Store
}

func cloneBlueprint(bp *models.Blueprint) *models.Blueprint {
	c := *bp
	if bp.ScreenshotURL != nil {
		url := *bp.ScreenshotURL
		c.ScreenshotURL = &url
	}
	return &c
}

// Create inserts a new record
func (r *BlueprintRepository) Create(ctx context.Context, bp *models.Blueprint) error {
	return r.store.run(ctx, func(st state) error {
		if _, exists := st.blueprint(bp.ID); exists {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("blueprint %s already exists", bp.ID),
				ResourceType: "blueprint",
				ResourceID:   bp.ID,
			}
		}
		st.putBlueprint(cloneBlueprint(bp))
		return nil
	})
}

// GetByID retrieves a record by ID
func (r *BlueprintRepository) GetByID(ctx context.Context, id string) (*models.Blueprint, error) {
	var out *models.Blueprint
	err := r.store.run(ctx, func(st state) error {
		bp, ok := st.blueprint(id)
		if !ok {
			return fmt.Errorf("blueprint %s: %w", id, domain.ErrNotFound)
		}
		out = cloneBlueprint(bp)
		return nil
	})
	return out, err
}

// UpdateContent writes blueprint text, game version, kind and updated_at
func (r *BlueprintRepository) UpdateContent(ctx context.Context, bp *models.Blueprint) error {
	return r.modify(ctx, bp.ID, func(stored *models.Blueprint) {
		stored.BlueprintText = bp.BlueprintText
		stored.GameVersion = bp.GameVersion
		stored.Kind = bp.Kind
		stored.UpdatedAt = bp.UpdatedAt
	})
}

// UpdateMetadata writes name, description and updated_at
func (r *BlueprintRepository) UpdateMetadata(ctx context.Context, bp *models.Blueprint) error {
	return r.modify(ctx, bp.ID, func(stored *models.Blueprint) {
		stored.Name = bp.Name
		stored.Description = bp.Description
		stored.UpdatedAt = bp.UpdatedAt
	})
}

// UpdateScreenshot sets or clears the screenshot URL
func (r *BlueprintRepository) UpdateScreenshot(ctx context.Context, id string, url *string) error {
	return r.modify(ctx, id, func(stored *models.Blueprint) {
		if url == nil {
			stored.ScreenshotURL = nil
			return
		}
		u := *url
		stored.ScreenshotURL = &u
	})
}

// IncrementCounter adds one to a counter field
func (r *BlueprintRepository) IncrementCounter(ctx context.Context, id string, counter models.Counter) error {
	switch counter {
	case models.CounterViews, models.CounterDownloads:
	default:
		return fmt.Errorf("%w: unknown counter %q", domain.ErrValidation, counter)
	}
	return r.modify(ctx, id, func(stored *models.Blueprint) {
		if counter == models.CounterViews {
			stored.Views++
		} else {
			stored.Downloads++
		}
	})
}

// Delete removes a record
func (r *BlueprintRepository) Delete(ctx context.Context, id string) error {
	return r.store.run(ctx, func(st state) error {
		if _, ok := st.blueprint(id); !ok {
			return fmt.Errorf("blueprint %s: %w", id, domain.ErrNotFound)
		}
		st.deleteBlueprint(id)
		return nil
	})
}

// List returns all records. Used by the in-memory search index.
func (r *BlueprintRepository) List(ctx context.Context) ([]*models.Blueprint, error) {
	var out []*models.Blueprint
	err := r.store.run(ctx, func(st state) error {
		for _, bp := range r.store.blueprints {
			if current, ok := st.blueprint(bp.ID); ok {
				out = append(out, cloneBlueprint(current))
			}
		}
		return nil
	})
	return out, err
}

// modify applies fn to a copy of the stored record and writes the copy back,
// so a rolled back transaction leaves the committed record untouched.
func (r *BlueprintRepository) modify(ctx context.Context, id string, fn func(*models.Blueprint)) error {
	return r.store.run(ctx, func(st state) error {
		bp, ok := st.blueprint(id)
		if !ok {
			return fmt.Errorf("blueprint %s: %w", id, domain.ErrNotFound)
		}
		updated := cloneBlueprint(bp)
		fn(updated)
		st.putBlueprint(updated)
		return nil
	})
}
