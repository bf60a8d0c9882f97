package service

import (
	"github.com/google/uuid"

	"grimoire-backend/internal/domains/book/model"
)

// EnsureOwner authorizes a mutation: it fails unless the caller is the
// recorded owner. Identifiers compare as typed uuids, never as loose
// strings.
func EnsureOwner(resourceOwnerID, callerID uuid.UUID) error {
	if resourceOwnerID != callerID {
		return model.ErrNotOwner
	}
	return nil
}
