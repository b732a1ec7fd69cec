package models

import "time"

// Subscription records whether a user currently passes the channel-membership
// gate. One row per user, upserted; LastCheck is the time of the most recent
// membership probe.
type Subscription struct {
	UserID    int64
	IsActive  bool
	LastCheck time.Time
}
