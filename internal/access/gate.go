// Package access implements capability checks for the engine: role
// membership per account plus the admin-controlled protocol allowlist.
// Every check runs before any state mutation in the calling operation.
package access

import (
	"fmt"

	"github.com/creditmesh/chitengine/internal/domain"
)

// Gate holds role membership and the protocol allowlist. Not safe for
// concurrent use; the engine serializes all mutation.
type Gate struct {
	roles   map[domain.Account]map[domain.Role]bool
	allowed map[domain.Account]bool
	sink    domain.EventSink
}

// NewGate creates a Gate with admin holding the Admin and Oracle roles,
// matching the original deployment where the deployer administers roles
// and seeds oracle writes.
func NewGate(admin domain.Account, sink domain.EventSink) *Gate {
	if sink == nil {
		sink = domain.NopSink{}
	}
	g := &Gate{
		roles:   make(map[domain.Account]map[domain.Role]bool),
		allowed: make(map[domain.Account]bool),
		sink:    sink,
	}
	g.grant(admin, domain.RoleAdmin)
	g.grant(admin, domain.RoleOracle)
	return g
}

func (g *Gate) grant(account domain.Account, role domain.Role) {
	m := g.roles[account]
	if m == nil {
		m = make(map[domain.Role]bool)
		g.roles[account] = m
	}
	m[role] = true
}

// HasRole reports whether account holds role.
func (g *Gate) HasRole(account domain.Account, role domain.Role) bool {
	return g.roles[account][role]
}

// Require returns ErrUnauthorized unless account holds role.
func (g *Gate) Require(account domain.Account, role domain.Role) error {
	if !g.HasRole(account, role) {
		return fmt.Errorf("access: %s lacks role %s: %w", account, role, domain.ErrUnauthorized)
	}
	return nil
}

// GrantRole lets an admin grant role to account. Granting an already
// held role is a no-op that still emits, matching idempotent admin
// tooling.
func (g *Gate) GrantRole(caller, account domain.Account, role domain.Role) error {
	if err := g.Require(caller, domain.RoleAdmin); err != nil {
		return err
	}
	if !role.Valid() {
		return fmt.Errorf("access: grant unknown role %q: %w", role, domain.ErrNotFound)
	}
	g.grant(account, role)
	g.sink.Emit(domain.RoleGrantedEvent{Account: account, Role: role})
	return nil
}

// RevokeRole lets an admin revoke role from account.
func (g *Gate) RevokeRole(caller, account domain.Account, role domain.Role) error {
	if err := g.Require(caller, domain.RoleAdmin); err != nil {
		return err
	}
	if m := g.roles[account]; m != nil {
		delete(m, role)
	}
	g.sink.Emit(domain.RoleRevokedEvent{Account: account, Role: role})
	return nil
}

// SetAllowedProtocol toggles an allowlist entry. Admin only.
func (g *Gate) SetAllowedProtocol(caller domain.Account, protocol domain.Account, allowed bool) error {
	if err := g.Require(caller, domain.RoleAdmin); err != nil {
		return err
	}
	g.allowed[protocol] = allowed
	g.sink.Emit(domain.ProtocolAllowlistedEvent{Protocol: protocol, Allowed: allowed})
	return nil
}

// ProtocolAllowed reports whether protocol is on the allowlist.
func (g *Gate) ProtocolAllowed(protocol domain.Account) bool {
	return g.allowed[protocol]
}
