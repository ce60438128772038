package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"coipond/internal/domain"
	models "coipond/internal/domain/models/blueprint"
)

func TestOwnerBasedAuthorizer_CanModify(t *testing.T) {
	bp := &models.Blueprint{ID: "bp-1", OwnerID: "user-1"}
	a := NewOwnerBasedAuthorizer()

	tests := []struct {
		name    string
		userID  string
		wantErr error
	}{
		{name: "owner", userID: "user-1"},
		{name: "someone else", userID: "user-2", wantErr: domain.ErrForbidden},
		{name: "anonymous", userID: "", wantErr: domain.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.CanModify(tt.userID, bp)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
