package auth

import (
	"fmt"

	"coipond/internal/domain"
	models "coipond/internal/domain/models/blueprint"
)

// OwnerBasedAuthorizer implements BlueprintAuthorizer using ownership checks.
// A user can edit or delete a blueprint if they published it.
type OwnerBasedAuthorizer struct{}

// NewOwnerBasedAuthorizer creates a new ownership-based authorizer
func NewOwnerBasedAuthorizer() *OwnerBasedAuthorizer {
	return &OwnerBasedAuthorizer{}
}

// CanModify checks if user owns the blueprint
func (a *OwnerBasedAuthorizer) CanModify(userID string, bp *models.Blueprint) error {
	if userID == "" {
		return fmt.Errorf("sign in to modify blueprint %s: %w", bp.ID, domain.ErrUnauthorized)
	}
	if bp.OwnerID != userID {
		return fmt.Errorf("access denied to blueprint %s: %w", bp.ID, domain.ErrForbidden)
	}
	return nil
}
