package models

import "time"

// AccessKey is one proxy credential bound to a user. The Secret is the UUID
// embedded in the connection URL; it is rotated by replacing the row, never
// mutated in place. At most one key per user has IsActive set, enforced by a
// partial unique index.
//
// Provisioned mirrors the last daemon state the dispatcher confirmed. It is
// the store-side ledger used as the observed set when the daemon cannot
// enumerate identities.
type AccessKey struct {
	ID             int64
	UserID         int64
	Secret         string
	IsActive       bool
	Provisioned    bool
	CreatedAt      time.Time
	ExpiresAt      *time.Time
	DataLimitBytes int64
	UsedBytes      int64
}
