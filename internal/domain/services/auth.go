package services

import (
	models "coipond/internal/domain/models/blueprint"
)

// BlueprintAuthorizer decides who may change a blueprint.
// Current implementation: ownership-based (the publisher owns it).
//
// Services call the authorizer after loading a record and before writing.
// Reads are public and never consult it.
type BlueprintAuthorizer interface {
	// CanModify returns domain.ErrUnauthorized for an anonymous user and
	// domain.ErrForbidden for anyone but the owner.
	CanModify(userID string, bp *models.Blueprint) error
}
