package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/relaykeeper/internal/logging"
	"github.com/dmitrijs2005/relaykeeper/internal/proxy"
	"github.com/dmitrijs2005/relaykeeper/internal/syncx"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/semaphore"
)

// backoffBase is the first fibonacci backoff step between retries of a
// transient daemon failure.
const backoffBase = 250 * time.Millisecond

// Dispatcher executes corrective actions against the proxy client with
// bounded concurrency. Per action it holds the owner's lock across the
// daemon call and the ledger write-back, so no two live calls ever target
// the same identity tag.
type Dispatcher struct {
	proxy       proxy.Client
	store       Store
	locks       *syncx.KeyedMutex
	logger      logging.Logger
	concurrency int64
	maxRetries  uint64
	callTimeout time.Duration
}

// NewDispatcher wires a dispatcher. locks must be the same KeyedMutex the
// engine hands out for per-identity sync, or the exclusivity guarantee is
// void.
func NewDispatcher(p proxy.Client, s Store, locks *syncx.KeyedMutex, l logging.Logger,
	concurrency int, maxRetries int, callTimeout time.Duration) *Dispatcher {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Dispatcher{
		proxy:       p,
		store:       s,
		locks:       locks,
		logger:      l.With("module", "dispatcher"),
		concurrency: int64(concurrency),
		maxRetries:  uint64(maxRetries),
		callTimeout: callTimeout,
	}
}

// Execute runs a batch of independent actions in parallel and reports how
// many provisioned, removed, and failed. One identity's failure never stops
// the rest. After ctx is cancelled no new action is started; actions already
// in flight finish or time out on their own.
func (d *Dispatcher) Execute(ctx context.Context, actions []Action) Summary {
	sem := semaphore.NewWeighted(d.concurrency)

	var (
		mu      sync.Mutex
		summary Summary
		wg      sync.WaitGroup
	)

	for _, a := range actions {
		if err := sem.Acquire(ctx, 1); err != nil {
			// cancelled: whatever did not start counts as failed for the pass
			mu.Lock()
			summary.Failed++
			mu.Unlock()
			continue
		}

		wg.Add(1)
		go func(a Action) {
			defer wg.Done()
			defer sem.Release(1)

			err := d.run(ctx, a)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Failed++
			case a.Op == OpProvision:
				summary.Provisioned++
			default:
				summary.Removed++
			}
		}(a)
	}

	wg.Wait()
	return summary
}

// WithUserLock runs fn while holding the user's identity lock. Per-identity
// sync uses it to make the key read and the following dispatch one critical
// section, so a concurrent rotation cannot slip in between them.
func (d *Dispatcher) WithUserLock(userID int64, fn func() error) error {
	d.locks.Lock(userID)
	defer d.locks.Unlock(userID)
	return fn()
}

// ExecuteSequence runs an ordered action sequence for a single user under
// one lock acquisition, stopping at the first failure. Renew must remove
// the stale identity before provisioning the fresh one.
func (d *Dispatcher) ExecuteSequence(ctx context.Context, userID int64, actions []Action) error {
	return d.WithUserLock(userID, func() error {
		return d.runSequence(ctx, actions)
	})
}

// runSequence executes actions in order, stopping at the first failure.
// Caller holds the user's lock.
func (d *Dispatcher) runSequence(ctx context.Context, actions []Action) error {
	for _, a := range actions {
		if err := d.execute(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) run(ctx context.Context, a Action) error {
	d.locks.Lock(a.UserID)
	defer d.locks.Unlock(a.UserID)
	return d.execute(ctx, a)
}

// execute performs the daemon call and, on success, commits the matching
// ledger mutation. Caller holds the user's lock.
func (d *Dispatcher) execute(ctx context.Context, a Action) error {
	if err := d.call(ctx, a); err != nil {
		d.logger.Error(ctx, "action failed", "op", a.Op.String(), "tag", a.Tag, "error", err)
		return err
	}

	var err error
	switch {
	case a.Op == OpProvision:
		err = d.store.MarkProvisioned(ctx, a.KeyID, true)
	case a.KeyID != 0:
		err = d.store.MarkProvisioned(ctx, a.KeyID, false)
	case a.UserID != 0:
		err = d.store.ClearProvisionedForUser(ctx, a.UserID)
	}
	if err != nil {
		// store errors indicate a data problem, not transient unavailability
		d.logger.Error(ctx, "ledger update failed", "op", a.Op.String(), "tag", a.Tag, "error", err)
		return err
	}

	d.logger.Debug(ctx, "action applied", "op", a.Op.String(), "tag", a.Tag)
	return nil
}

// call invokes the proxy client with a per-attempt timeout, retrying only
// transient transport failures up to the configured budget.
func (d *Dispatcher) call(ctx context.Context, a Action) error {
	backoff := retry.WithMaxRetries(d.maxRetries, retry.NewFibonacci(backoffBase))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
		defer cancel()

		var err error
		if a.Op == OpProvision {
			err = d.proxy.AddIdentity(callCtx, a.Secret, a.Tag)
		} else {
			err = d.proxy.RemoveIdentity(callCtx, a.Tag)
		}

		if err != nil && proxy.IsRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
