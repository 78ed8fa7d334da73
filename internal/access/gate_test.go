package access

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/creditmesh/chitengine/internal/domain"
)

func acct(b byte) domain.Account {
	return common.BytesToAddress([]byte{b})
}

func TestNewGateSeedsAdminAndOracle(t *testing.T) {
	admin := acct(1)
	g := NewGate(admin, nil)

	require.True(t, g.HasRole(admin, domain.RoleAdmin))
	require.True(t, g.HasRole(admin, domain.RoleOracle))
	require.False(t, g.HasRole(admin, domain.RoleOperator))
}

func TestGrantRevokeRole(t *testing.T) {
	admin, op := acct(1), acct(2)
	g := NewGate(admin, nil)

	require.NoError(t, g.GrantRole(admin, op, domain.RoleOperator))
	require.True(t, g.HasRole(op, domain.RoleOperator))
	require.NoError(t, g.Require(op, domain.RoleOperator))

	require.NoError(t, g.RevokeRole(admin, op, domain.RoleOperator))
	require.False(t, g.HasRole(op, domain.RoleOperator))
	require.ErrorIs(t, g.Require(op, domain.RoleOperator), domain.ErrUnauthorized)
}

func TestGrantRoleRequiresAdmin(t *testing.T) {
	admin, op, outsider := acct(1), acct(2), acct(3)
	g := NewGate(admin, nil)

	err := g.GrantRole(outsider, op, domain.RoleOperator)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	require.False(t, g.HasRole(op, domain.RoleOperator))
}

func TestRolesAreNonHierarchical(t *testing.T) {
	admin, p := acct(1), acct(2)
	g := NewGate(admin, nil)

	require.NoError(t, g.GrantRole(admin, p, domain.RoleParticipant))
	require.ErrorIs(t, g.Require(p, domain.RoleOperator), domain.ErrUnauthorized)
	require.ErrorIs(t, g.Require(admin, domain.RoleParticipant), domain.ErrUnauthorized)

	// An account may hold several roles at once.
	require.NoError(t, g.GrantRole(admin, p, domain.RoleOperator))
	require.NoError(t, g.Require(p, domain.RoleParticipant))
	require.NoError(t, g.Require(p, domain.RoleOperator))
}

func TestSetAllowedProtocol(t *testing.T) {
	admin, op := acct(1), acct(2)
	proto := acct(9)
	g := NewGate(admin, nil)
	require.NoError(t, g.GrantRole(admin, op, domain.RoleOperator))

	require.False(t, g.ProtocolAllowed(proto))
	require.ErrorIs(t, g.SetAllowedProtocol(op, proto, true), domain.ErrUnauthorized)
	require.False(t, g.ProtocolAllowed(proto))

	require.NoError(t, g.SetAllowedProtocol(admin, proto, true))
	require.True(t, g.ProtocolAllowed(proto))
	require.NoError(t, g.SetAllowedProtocol(admin, proto, false))
	require.False(t, g.ProtocolAllowed(proto))
}

func TestEventsEmitted(t *testing.T) {
	sink := &domain.RecordingSink{}
	admin := acct(1)
	g := NewGate(admin, sink)

	require.NoError(t, g.GrantRole(admin, acct(2), domain.RoleOracle))
	require.NoError(t, g.SetAllowedProtocol(admin, acct(9), true))

	require.Len(t, sink.Events, 2)
	require.Equal(t, "role_granted", sink.Events[0].Kind())
	require.Equal(t, "protocol_allowlisted", sink.Events[1].Kind())
}
