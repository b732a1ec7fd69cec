package reconciler

import (
	"context"

	"github.com/dmitrijs2005/relaykeeper/internal/models"
	"github.com/dmitrijs2005/relaykeeper/internal/store/repositories/subscriptions"
)

// Store is the reconciler's view of the credential store. *store.Store
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	GetActiveKey(ctx context.Context, userID int64) (*models.AccessKey, error)
	DeactivateKey(ctx context.Context, keyID int64) error
	RecordUsage(ctx context.Context, keyID int64, usedBytes int64) error
	MarkProvisioned(ctx context.Context, keyID int64, provisioned bool) error
	ClearProvisionedForUser(ctx context.Context, userID int64) error
	ListActiveKeys(ctx context.Context) ([]*models.AccessKey, error)
	ListProvisionedUserIDs(ctx context.Context) ([]int64, error)
	ListActiveSubscriptions(ctx context.Context) ([]*subscriptions.ActiveSubscriber, error)
	SetSubscriptionActive(ctx context.Context, userID int64, isActive bool) error
}

// MembershipChecker is the chat-platform collaborator consulted by the
// periodic membership pass. Errors are treated as "not a member":
// revoke-on-uncertainty is the deliberate policy here, not an accident.
type MembershipChecker interface {
	IsMember(ctx context.Context, platformID int64) (bool, error)
}

// AllowAllMembership stands in when no chat-platform collaborator is wired;
// every subscriber passes the membership pass.
type AllowAllMembership struct{}

func (AllowAllMembership) IsMember(context.Context, int64) (bool, error) {
	return true, nil
}
