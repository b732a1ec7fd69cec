// Package users persists chat users. Rows are created on first contact and
// only ever updated, never deleted.
package users

import (
	"context"

	"github.com/dmitrijs2005/relaykeeper/internal/models"
)

type Repository interface {
	// Upsert inserts the user keyed by platform id, or refreshes display
	// metadata if the row already exists. Idempotent.
	Upsert(ctx context.Context, user *models.User) (*models.User, error)

	// GetByID returns the user with the given internal id.
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByPlatformID returns the user with the given chat-platform id.
	GetByPlatformID(ctx context.Context, platformID int64) (*models.User, error)
}
