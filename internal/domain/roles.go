package domain

// Role is a capability held by an account. Roles are disjoint and
// non-hierarchical; an account may hold any combination.
type Role string

const (
	// RoleAdmin may grant/revoke roles and toggle protocol allowlist
	// entries.
	RoleAdmin Role = "admin"

	// RoleOperator may create pools and auctions and invoke allowlisted
	// external protocols.
	RoleOperator Role = "operator"

	// RoleParticipant may commit and reveal bids.
	RoleParticipant Role = "participant"

	// RoleOracle may write trust edges, outcome counters, and payment
	// statistics.
	RoleOracle Role = "oracle"
)

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOperator, RoleParticipant, RoleOracle:
		return true
	}
	return false
}
