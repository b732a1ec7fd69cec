// Package models contains the persisted entities of relaykeeper: chat users,
// their proxy access keys, and channel-subscription state.
package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// User is a chat-platform user known to the bot. Rows are created on first
// contact and never deleted; access is withdrawn through keys and
// subscriptions instead.
type User struct {
	ID         int64
	PlatformID int64
	UserName   string
	FirstName  string
	LastName   string
	JoinedAt   time.Time
	IsAdmin    bool
}

// Tag returns the identity tag under which this user's credential is
// registered with the proxy daemon. Derived from the internal id, not the
// platform id, so platform identifiers never show up in daemon logs.
func (u *User) Tag() string {
	return TagForUserID(u.ID)
}

// TagForUserID builds the daemon identity tag for an internal user id.
func TagForUserID(id int64) string {
	return fmt.Sprintf("user_%d@xray.com", id)
}

// UserIDFromTag inverts TagForUserID. The second return is false for tags
// that were not issued by this service, including non-canonical spellings
// of an issued tag ("user_007@..." is not ours even though it parses).
func UserIDFromTag(tag string) (int64, bool) {
	rest, ok := strings.CutPrefix(tag, "user_")
	if !ok {
		return 0, false
	}
	rest, ok = strings.CutSuffix(rest, "@xray.com")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	if TagForUserID(id) != tag {
		return 0, false
	}
	return id, true
}
