// Package repomanager vends repository implementations bound to a shared
// database handle, so composite operations can hand repositories either the
// pooled connection or an open transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/relaykeeper/internal/dbx"
	"github.com/dmitrijs2005/relaykeeper/internal/store/repositories/keys"
	"github.com/dmitrijs2005/relaykeeper/internal/store/repositories/subscriptions"
	"github.com/dmitrijs2005/relaykeeper/internal/store/repositories/users"
)

// RepositoryManager constructs repositories bound to the provided DBTX and
// exposes a schema migration hook.
type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	Keys(db dbx.DBTX) keys.Repository
	Subscriptions(db dbx.DBTX) subscriptions.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
