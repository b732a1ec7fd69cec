// Package store is the credential store: it owns all persisted state (users,
// access keys, subscriptions) and exposes the composite, transactional
// operations the reconciliation engine is built on.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/relaykeeper/internal/dbx"
	"github.com/dmitrijs2005/relaykeeper/internal/models"
	"github.com/dmitrijs2005/relaykeeper/internal/store/repositories/repomanager"
	"github.com/dmitrijs2005/relaykeeper/internal/store/repositories/subscriptions"
	"github.com/google/uuid"
)

// Store composes repositories into the transactional operations of the
// credential store contract. The transactional boundary is per logical
// operation; it never spans a call to the proxy daemon.
type Store struct {
	db *sql.DB
	rm repomanager.RepositoryManager
}

// New constructs a Store over an open database handle.
func New(db *sql.DB, rm repomanager.RepositoryManager) *Store {
	return &Store{db: db, rm: rm}
}

// RunMigrations applies the embedded schema migrations.
func (s *Store) RunMigrations(ctx context.Context) error {
	return s.rm.RunMigrations(ctx, s.db)
}

// UpsertUser creates the user on first contact or refreshes display
// metadata. Idempotent.
func (s *Store) UpsertUser(ctx context.Context, user *models.User) (*models.User, error) {
	u, err := s.rm.Users(s.db).Upsert(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error upserting user: %w", err)
	}
	return u, nil
}

// GetUser returns the user with the given internal id.
func (s *Store) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	return s.rm.Users(s.db).GetByID(ctx, userID)
}

// GetUserByPlatformID returns the user with the given chat-platform id.
func (s *Store) GetUserByPlatformID(ctx context.Context, platformID int64) (*models.User, error) {
	return s.rm.Users(s.db).GetByPlatformID(ctx, platformID)
}

// CreateActiveKey rotates the user's credential: any prior active key is
// deactivated and a fresh key with a new secret is inserted, in one
// transaction. A ttl <= 0 produces a key without expiry. Concurrent rotation
// for the same user without the per-user lock surfaces as
// common.ErrorConflict via the partial unique index.
func (s *Store) CreateActiveKey(ctx context.Context, userID int64, ttl time.Duration, quotaBytes int64) (*models.AccessKey, error) {
	key := &models.AccessKey{
		UserID:         userID,
		Secret:         uuid.NewString(),
		DataLimitBytes: quotaBytes,
	}
	if ttl > 0 {
		expires := time.Now().Add(ttl)
		key.ExpiresAt = &expires
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Keys(tx)
		if err := repo.DeactivateAllForUser(ctx, userID); err != nil {
			return err
		}
		_, err := repo.Create(ctx, key)
		return err
	}); err != nil {
		return nil, err
	}

	return key, nil
}

// GetActiveKey returns the user's active key, or common.ErrorNotFound.
func (s *Store) GetActiveKey(ctx context.Context, userID int64) (*models.AccessKey, error) {
	return s.rm.Keys(s.db).GetActiveByUserID(ctx, userID)
}

// DeactivateKey clears is_active on a key. Idempotent: deactivating an
// already-inactive key is a no-op success.
func (s *Store) DeactivateKey(ctx context.Context, keyID int64) error {
	return s.rm.Keys(s.db).Deactivate(ctx, keyID)
}

// RecordUsage stores cumulative consumed bytes for a key. Decreasing values
// are clamped to the stored maximum; see keys.PostgresRepository.RecordUsage
// for the rationale.
func (s *Store) RecordUsage(ctx context.Context, keyID int64, usedBytes int64) error {
	return s.rm.Keys(s.db).RecordUsage(ctx, keyID, usedBytes)
}

// MarkProvisioned records the daemon-side state for a key after the
// dispatcher confirmed it.
func (s *Store) MarkProvisioned(ctx context.Context, keyID int64, provisioned bool) error {
	return s.rm.Keys(s.db).SetProvisioned(ctx, keyID, provisioned)
}

// ClearProvisionedForUser marks all of the user's keys as absent from the
// daemon after a confirmed removal by identity tag.
func (s *Store) ClearProvisionedForUser(ctx context.Context, userID int64) error {
	return s.rm.Keys(s.db).ClearProvisionedForUser(ctx, userID)
}

// ListActiveKeys returns a snapshot of every active key across users.
func (s *Store) ListActiveKeys(ctx context.Context) ([]*models.AccessKey, error) {
	return s.rm.Keys(s.db).ListActive(ctx)
}

// ListProvisionedUserIDs returns the owners of keys last confirmed present
// on the daemon, the observed set in the degraded reconciliation mode.
func (s *Store) ListProvisionedUserIDs(ctx context.Context) ([]int64, error) {
	return s.rm.Keys(s.db).ListProvisionedUserIDs(ctx)
}

// SetSubscriptionActive upserts the user's subscription state and stamps the
// check time.
func (s *Store) SetSubscriptionActive(ctx context.Context, userID int64, isActive bool) error {
	return s.rm.Subscriptions(s.db).Upsert(ctx, userID, isActive)
}

// GetSubscription returns the user's subscription row.
func (s *Store) GetSubscription(ctx context.Context, userID int64) (*models.Subscription, error) {
	return s.rm.Subscriptions(s.db).GetByUserID(ctx, userID)
}

// ListActiveSubscriptions returns a snapshot of active subscriptions with
// their owners, used by the periodic membership check.
func (s *Store) ListActiveSubscriptions(ctx context.Context) ([]*subscriptions.ActiveSubscriber, error) {
	return s.rm.Subscriptions(s.db).ListActive(ctx)
}
