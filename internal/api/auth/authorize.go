package auth

import (
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-blog-api/internal/types"
)

// Authorize allows the owner of a resource and admins.
func Authorize(identity types.Identity, ownerID uuid.UUID) error {
	if identity.IsAdmin || (identity.ID != uuid.Nil && identity.ID == ownerID) {
		return nil
	}
	return types.NewError(types.ErrForbidden, "You are not allowed to perform this action")
}
