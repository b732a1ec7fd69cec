package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/relaykeeper/internal/common"
	"github.com/dmitrijs2005/relaykeeper/internal/lifecycle"
	"github.com/dmitrijs2005/relaykeeper/internal/logging"
	"github.com/dmitrijs2005/relaykeeper/internal/models"
	"github.com/dmitrijs2005/relaykeeper/internal/proxy"
)

// Engine drives the two reconciliation paths: the per-identity sync fired
// right after a user-facing mutation, and the periodic full pass that
// converges the daemon onto the store.
type Engine struct {
	store       Store
	proxy       proxy.Client
	membership  MembershipChecker
	dispatcher  *Dispatcher
	logger      logging.Logger
	callTimeout time.Duration
	now         func() time.Time
}

func NewEngine(s Store, p proxy.Client, m MembershipChecker, d *Dispatcher,
	l logging.Logger, callTimeout time.Duration) *Engine {
	return &Engine{
		store:       s,
		proxy:       p,
		membership:  m,
		dispatcher:  d,
		logger:      l.With("module", "reconciler"),
		callTimeout: callTimeout,
		now:         time.Now,
	}
}

// SyncUserOnAction converges a single identity immediately after a store
// mutation. The key read and the whole action sequence run under one lock
// hold: reading the key outside it could provision a secret that a
// concurrent rotation already replaced, and a renew's remove-then-provision
// is never interleaved with another caller.
func (e *Engine) SyncUserOnAction(ctx context.Context, userID int64, action UserAction) error {
	tag := models.TagForUserID(userID)

	return e.dispatcher.WithUserLock(userID, func() error {
		var seq []Action
		switch action {
		case ActionCreate, ActionRenew:
			key, err := e.store.GetActiveKey(ctx, userID)
			if err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return fmt.Errorf("%w: user %d has no active key to %s", common.ErrorPolicyViolation, userID, action)
				}
				return err
			}
			if action == ActionRenew {
				// drop the stale identity first so the daemon never holds two
				// credentials for one user
				seq = append(seq, Action{Op: OpRemove, UserID: userID, Tag: tag})
			}
			seq = append(seq, Action{Op: OpProvision, UserID: userID, KeyID: key.ID, Secret: key.Secret, Tag: tag})
		case ActionDelete:
			seq = append(seq, Action{Op: OpRemove, UserID: userID, Tag: tag})
		default:
			return fmt.Errorf("%w: unknown sync action %q", common.ErrorPolicyViolation, action)
		}

		if err := e.dispatcher.runSequence(ctx, seq); err != nil {
			return fmt.Errorf("sync user %d on %s: %w", userID, action, err)
		}
		return nil
	})
}

// FullSync runs one complete reconciliation pass: refresh usage counters,
// revoke keys past their lifecycle, revoke access of lapsed subscribers,
// then diff the desired identity set against the daemon and dispatch the
// corrections. A pass over a converged state dispatches nothing.
func (e *Engine) FullSync(ctx context.Context) (Summary, error) {
	now := e.now()

	keys, err := e.store.ListActiveKeys(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("listing active keys: %w", err)
	}

	var actions []Action
	scheduled := make(map[string]bool)

	desired := make(map[int64]*models.AccessKey, len(keys))
	for _, key := range keys {
		desired[key.UserID] = key
	}

	e.refreshUsage(ctx, keys)

	// lifecycle pass: expiry and quota
	for userID, key := range desired {
		if ctx.Err() != nil {
			return Summary{}, ctx.Err()
		}
		if !lifecycle.ShouldRevoke(key, now) {
			continue
		}
		tag := models.TagForUserID(userID)
		e.logger.Info(ctx, "revoking key",
			"user_id", userID, "key_id", key.ID,
			"expired", lifecycle.IsExpired(key, now),
			"quota_exhausted", lifecycle.IsQuotaExhausted(key))
		if err := e.store.DeactivateKey(ctx, key.ID); err != nil {
			e.logger.Error(ctx, "deactivating key", "key_id", key.ID, "error", err)
			continue
		}
		actions = append(actions, Action{Op: OpRemove, UserID: userID, KeyID: key.ID, Tag: tag})
		scheduled[tag] = true
		delete(desired, userID)
	}

	// membership pass: a key stays desired only while its owner is a
	// verified member of the channel
	subscribed, revoke, err := e.checkMembership(ctx)
	if err != nil {
		return Summary{}, err
	}
	for userID := range desired {
		if subscribed[userID] {
			continue
		}
		if !revoke[userID] {
			// no subscription row at all; the key predates the subscription
			// model or the row was lost, either way access is withdrawn
			e.logger.Warn(ctx, "active key without active subscription", "user_id", userID)
		}
		key := desired[userID]
		tag := models.TagForUserID(userID)
		if err := e.store.DeactivateKey(ctx, key.ID); err != nil {
			e.logger.Error(ctx, "deactivating key", "key_id", key.ID, "error", err)
			continue
		}
		actions = append(actions, Action{Op: OpRemove, UserID: userID, KeyID: key.ID, Tag: tag})
		scheduled[tag] = true
		delete(desired, userID)
	}

	observed, err := e.observedTags(ctx)
	if err != nil {
		return Summary{}, err
	}

	// diff: provision what is desired but absent, remove what is present
	// but not desired
	for userID, key := range desired {
		tag := models.TagForUserID(userID)
		if observed[tag] {
			continue
		}
		actions = append(actions, Action{Op: OpProvision, UserID: userID, KeyID: key.ID, Secret: key.Secret, Tag: tag})
	}
	for tag := range observed {
		if scheduled[tag] {
			continue
		}
		userID, ok := models.UserIDFromTag(tag)
		if ok {
			if _, want := desired[userID]; want {
				continue
			}
		} else {
			e.logger.Warn(ctx, "removing foreign identity", "tag", tag)
			userID = 0
		}
		actions = append(actions, Action{Op: OpRemove, UserID: userID, Tag: tag})
	}

	if len(actions) == 0 {
		e.logger.Debug(ctx, "state converged, nothing to dispatch")
		return Summary{}, nil
	}

	summary := e.dispatcher.Execute(ctx, actions)
	e.logger.Info(ctx, "full sync finished",
		"provisioned", summary.Provisioned, "removed", summary.Removed, "failed", summary.Failed)
	return summary, ctx.Err()
}

// HealthCheck probes the daemon and logs the result. Degraded state is an
// operator signal, not an error.
func (e *Engine) HealthCheck(ctx context.Context) *proxy.Health {
	ctx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	h := e.proxy.Health(ctx)
	if !h.Installed || !h.Running {
		e.logger.Warn(ctx, "daemon degraded",
			"installed", h.Installed, "running", h.Running, "version", h.Version)
	} else {
		e.logger.Debug(ctx, "daemon healthy", "version", h.Version)
	}
	return h
}

// refreshUsage pulls traffic counters for every active key and persists
// them. Counter fetch failures are logged and skipped; stale usage only
// delays quota enforcement by one pass.
func (e *Engine) refreshUsage(ctx context.Context, keys []*models.AccessKey) {
	for _, key := range keys {
		if ctx.Err() != nil {
			return
		}
		tag := models.TagForUserID(key.UserID)

		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		usage, err := e.proxy.QueryUsage(callCtx, tag)
		cancel()
		if err != nil {
			e.logger.Warn(ctx, "usage query failed", "tag", tag, "error", err)
			continue
		}

		total := usage.UploadBytes + usage.DownloadBytes
		if err := e.store.RecordUsage(ctx, key.ID, total); err != nil {
			e.logger.Error(ctx, "recording usage", "key_id", key.ID, "error", err)
			continue
		}
		if total > key.UsedBytes {
			key.UsedBytes = total
		}
	}
}

// checkMembership verifies every active subscriber against the chat
// platform. It returns the set of user ids still subscribed and the set
// whose subscription row was flipped off this pass. A check error counts
// as lapsed.
func (e *Engine) checkMembership(ctx context.Context) (subscribed, revoked map[int64]bool, err error) {
	subs, err := e.store.ListActiveSubscriptions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("listing active subscriptions: %w", err)
	}

	subscribed = make(map[int64]bool, len(subs))
	revoked = make(map[int64]bool)

	for _, sub := range subs {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}

		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		member, merr := e.membership.IsMember(callCtx, sub.User.PlatformID)
		cancel()
		if merr != nil {
			e.logger.Warn(ctx, "membership check failed, treating as lapsed",
				"user_id", sub.User.ID, "error", merr)
			member = false
		}
		if member {
			subscribed[sub.User.ID] = true
			continue
		}

		e.logger.Info(ctx, "subscription lapsed", "user_id", sub.User.ID)
		if err := e.store.SetSubscriptionActive(ctx, sub.User.ID, false); err != nil {
			e.logger.Error(ctx, "updating subscription", "user_id", sub.User.ID, "error", err)
		}
		revoked[sub.User.ID] = true
	}
	return subscribed, revoked, nil
}

// observedTags enumerates the identities the daemon currently holds. When
// the transport cannot enumerate, the store's provisioned ledger stands in:
// reconciliation then converges what the service itself registered, while
// identities added behind its back go unnoticed until the daemon restarts.
func (e *Engine) observedTags(ctx context.Context) (map[string]bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	tags, err := e.proxy.ListIdentities(callCtx)
	cancel()

	if err != nil {
		var pe *proxy.Error
		if !errors.As(err, &pe) || pe.Kind != proxy.KindUnsupported {
			return nil, fmt.Errorf("listing daemon identities: %w", err)
		}

		e.logger.Warn(ctx, "daemon cannot enumerate identities, using provisioned ledger")
		ids, lerr := e.store.ListProvisionedUserIDs(ctx)
		if lerr != nil {
			return nil, fmt.Errorf("listing provisioned ledger: %w", lerr)
		}
		observed := make(map[string]bool, len(ids))
		for _, id := range ids {
			observed[models.TagForUserID(id)] = true
		}
		return observed, nil
	}

	observed := make(map[string]bool, len(tags))
	for _, tag := range tags {
		observed[tag] = true
	}
	return observed, nil
}
