// Package lifecycle holds the pure revocation predicates over access-key
// state and a reference time. No state, no I/O; callers inject "now".
package lifecycle

import (
	"time"

	"github.com/dmitrijs2005/relaykeeper/internal/models"
)

// IsExpired reports whether the key's expiry, if set, lies strictly in the
// past. Keys without expiry never expire.
func IsExpired(key *models.AccessKey, now time.Time) bool {
	return key.ExpiresAt != nil && now.After(*key.ExpiresAt)
}

// IsQuotaExhausted reports whether the key has consumed its data quota.
// Reaching the limit exactly counts as exhausted.
func IsQuotaExhausted(key *models.AccessKey) bool {
	return key.UsedBytes >= key.DataLimitBytes
}

// ShouldRevoke reports whether the key must lose access now.
func ShouldRevoke(key *models.AccessKey, now time.Time) bool {
	return IsExpired(key, now) || IsQuotaExhausted(key)
}
