// Package keys persists proxy access keys. The partial unique index
// user_keys_one_active backstops the single-active-key invariant at the
// schema level.
package keys

import (
	"context"

	"github.com/dmitrijs2005/relaykeeper/internal/models"
)

type Repository interface {
	// Create inserts a new key row and fills in generated fields.
	Create(ctx context.Context, key *models.AccessKey) (*models.AccessKey, error)

	// DeactivateAllForUser clears is_active on every key of the user.
	// Run in the same transaction as Create during rotation.
	DeactivateAllForUser(ctx context.Context, userID int64) error

	// GetActiveByUserID returns the user's single active key, or
	// common.ErrorNotFound if none exists.
	GetActiveByUserID(ctx context.Context, userID int64) (*models.AccessKey, error)

	// Deactivate clears is_active on one key. Deactivating an already
	// inactive key is a no-op success.
	Deactivate(ctx context.Context, keyID int64) error

	// RecordUsage stores the cumulative consumed bytes for a key, clamped
	// so the stored value never decreases.
	RecordUsage(ctx context.Context, keyID int64, usedBytes int64) error

	// SetProvisioned records the daemon-side state last confirmed by the
	// dispatcher.
	SetProvisioned(ctx context.Context, keyID int64, provisioned bool) error

	// ClearProvisionedForUser marks every key of the user as absent from
	// the daemon. Used for removals keyed by identity tag.
	ClearProvisionedForUser(ctx context.Context, userID int64) error

	// ListActive returns all active keys across users.
	ListActive(ctx context.Context) ([]*models.AccessKey, error)

	// ListProvisionedUserIDs returns the distinct owners of keys the
	// dispatcher last confirmed as present on the daemon. This is the
	// store-side observed set for the degraded reconciliation mode.
	ListProvisionedUserIDs(ctx context.Context) ([]int64, error)
}
