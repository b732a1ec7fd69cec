// Package reconciler is the synchronization core: it computes the diff
// between the credential store's desired state and the daemon's observed
// state and executes the minimal set of corrective actions.
package reconciler

// Op is the corrective-action verb.
type Op int

const (
	OpProvision Op = iota
	OpRemove
)

func (o Op) String() string {
	if o == OpProvision {
		return "provision"
	}
	return "remove"
}

// Action is one corrective step against the daemon. KeyID is zero for
// removals discovered by tag alone (foreign or ledger-less identities);
// Secret is set only for provisioning.
type Action struct {
	Op     Op
	UserID int64
	KeyID  int64
	Secret string
	Tag    string
}

// UserAction tags a per-identity sync trigger fired right after a
// user-facing store mutation.
type UserAction string

const (
	ActionCreate UserAction = "create"
	ActionRenew  UserAction = "renew"
	ActionDelete UserAction = "delete"
)

// Summary is the result of a full reconciliation pass. A pass over a state
// with no drift reports all zeros.
type Summary struct {
	Provisioned int
	Removed     int
	Failed      int
}
