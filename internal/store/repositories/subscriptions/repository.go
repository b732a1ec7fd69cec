// Package subscriptions persists channel-membership state, one row per user.
package subscriptions

import (
	"context"

	"github.com/dmitrijs2005/relaykeeper/internal/models"
)

// ActiveSubscriber pairs a subscription with its owning user, as read by the
// periodic membership check.
type ActiveSubscriber struct {
	User         models.User
	Subscription models.Subscription
}

type Repository interface {
	// Upsert sets the subscription state for a user and stamps last_check.
	Upsert(ctx context.Context, userID int64, isActive bool) error

	// GetByUserID returns the user's subscription row, or
	// common.ErrorNotFound if the user was never checked.
	GetByUserID(ctx context.Context, userID int64) (*models.Subscription, error)

	// ListActive returns a snapshot of all currently active subscriptions
	// with their owners. Order is unspecified.
	ListActive(ctx context.Context) ([]*ActiveSubscriber, error)
}
