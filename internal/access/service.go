// Package access is the boundary a chat front end calls into: grant, renew,
// revoke, and status for one user. It mutates the store first, then triggers
// the per-identity sync, and renders nothing user-facing beyond the
// connection URL.
package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/relaykeeper/internal/common"
	"github.com/dmitrijs2005/relaykeeper/internal/models"
	"github.com/dmitrijs2005/relaykeeper/internal/reconciler"
	"github.com/dmitrijs2005/relaykeeper/internal/vless"
)

// Store is the subset of credential-store operations the service needs.
type Store interface {
	UpsertUser(ctx context.Context, user *models.User) (*models.User, error)
	CreateActiveKey(ctx context.Context, userID int64, ttl time.Duration, quotaBytes int64) (*models.AccessKey, error)
	GetActiveKey(ctx context.Context, userID int64) (*models.AccessKey, error)
	DeactivateKey(ctx context.Context, keyID int64) error
	SetSubscriptionActive(ctx context.Context, userID int64, isActive bool) error
}

// Syncer triggers the per-identity reconciliation after a store mutation.
type Syncer interface {
	SyncUserOnAction(ctx context.Context, userID int64, action reconciler.UserAction) error
}

// Status is the raw material for a front end's status message.
type Status struct {
	Key *models.AccessKey
	URL string
}

type Service struct {
	store      Store
	syncer     Syncer
	keyTTL     time.Duration
	quotaBytes int64
	reality    vless.RealityParams
}

func NewService(s Store, sync Syncer, keyTTL time.Duration, quotaBytes int64, reality vless.RealityParams) *Service {
	return &Service{
		store:      s,
		syncer:     sync,
		keyTTL:     keyTTL,
		quotaBytes: quotaBytes,
		reality:    reality,
	}
}

// Grant registers the user, activates their subscription, issues a fresh key
// and provisions it. Returns the connection URL to hand to the user. The
// store mutation commits before the daemon is touched; a daemon failure here
// is surfaced to the caller and repaired by the next full pass regardless.
func (s *Service) Grant(ctx context.Context, user *models.User) (string, error) {
	u, err := s.store.UpsertUser(ctx, user)
	if err != nil {
		return "", err
	}
	if err := s.store.SetSubscriptionActive(ctx, u.ID, true); err != nil {
		return "", err
	}

	key, err := s.store.CreateActiveKey(ctx, u.ID, s.keyTTL, s.quotaBytes)
	if err != nil {
		return "", err
	}
	if err := s.syncer.SyncUserOnAction(ctx, u.ID, reconciler.ActionCreate); err != nil {
		return "", err
	}

	return s.url(u.ID, key), nil
}

// Renew rotates the user's credential and swaps it on the daemon.
func (s *Service) Renew(ctx context.Context, userID int64) (string, error) {
	key, err := s.store.CreateActiveKey(ctx, userID, s.keyTTL, s.quotaBytes)
	if err != nil {
		return "", err
	}
	if err := s.syncer.SyncUserOnAction(ctx, userID, reconciler.ActionRenew); err != nil {
		return "", err
	}
	return s.url(userID, key), nil
}

// Revoke withdraws access: subscription off, active key deactivated, identity
// removed from the daemon. Revoking a user with no active key only updates
// the subscription.
func (s *Service) Revoke(ctx context.Context, userID int64) error {
	if err := s.store.SetSubscriptionActive(ctx, userID, false); err != nil {
		return err
	}

	key, err := s.store.GetActiveKey(ctx, userID)
	switch {
	case err == nil:
		if err := s.store.DeactivateKey(ctx, key.ID); err != nil {
			return err
		}
	case !errors.Is(err, common.ErrorNotFound):
		return err
	}

	return s.syncer.SyncUserOnAction(ctx, userID, reconciler.ActionDelete)
}

// Status returns the user's active key with its connection URL, or
// common.ErrorNotFound when no key is active.
func (s *Service) Status(ctx context.Context, userID int64) (*Status, error) {
	key, err := s.store.GetActiveKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Status{Key: key, URL: s.url(userID, key)}, nil
}

func (s *Service) url(userID int64, key *models.AccessKey) string {
	tag := models.TagForUserID(userID)
	return vless.BuildURL(key.Secret, fmt.Sprintf("Xray Reality - %s", tag), s.reality)
}
