// Package proxy abstracts the xray daemon's control surface behind a narrow
// client interface. Callers never know which concrete transport is wired;
// the reconciliation engine and dispatcher only see this contract.
package proxy

import "context"

// Usage holds cumulative traffic counters for one identity.
type Usage struct {
	UploadBytes   int64
	DownloadBytes int64
}

// Health describes the daemon's observable state. Degraded information is
// reported through the fields, never as an error.
type Health struct {
	Installed bool
	Running   bool
	Version   string
}

// Client is the proxy control surface. Implementations must make AddIdentity
// and RemoveIdentity idempotent: adding an identity that already exists and
// removing one that does not are both success.
type Client interface {
	// AddIdentity registers a credential with the daemon under the given
	// identity tag.
	AddIdentity(ctx context.Context, secret, tag string) error

	// RemoveIdentity deletes the identity registered under tag.
	RemoveIdentity(ctx context.Context, tag string) error

	// ListIdentities enumerates the identity tags currently known to the
	// daemon. Transports without an enumeration primitive return an Error
	// with KindUnsupported; the engine then falls back to the store ledger.
	ListIdentities(ctx context.Context) ([]string, error)

	// QueryUsage returns cumulative traffic counters for an identity.
	// An identity with no recorded traffic yields zero counters.
	QueryUsage(ctx context.Context, tag string) (*Usage, error)

	// Health reports daemon state. It never returns an error.
	Health(ctx context.Context) *Health
}
