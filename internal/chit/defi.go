package chit

import (
	"context"
	"fmt"

	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
)

// TradeTokens moves tokens from the caller to another account via the
// external ledger, using the allowance the caller granted the fund. The
// engine forwards the call and surfaces failure; no engine state is
// touched.
func (e *Engine) TradeTokens(ctx context.Context, caller, to domain.Account, amount fixed.Num) error {
	ok, err := e.token.TransferFrom(ctx, e.params.FundAccount, caller, to, amount)
	if err != nil {
		return fmt.Errorf("chit: trade tokens: %w: %w", domain.ErrTokenTransferFailed, err)
	}
	if !ok {
		return fmt.Errorf("chit: trade tokens: %w", domain.ErrTokenTransferFailed)
	}
	return nil
}

// IntegrateWithDefi forwards an opaque payload to an allowlisted
// external protocol and returns the raw result unmodified. Operator
// capability and an admin allowlist entry are both required; the engine
// itself mutates nothing.
func (e *Engine) IntegrateWithDefi(ctx context.Context, caller domain.Account, protocol domain.Account, payload []byte) ([]byte, error) {
	if err := e.gate.Require(caller, domain.RoleOperator); err != nil {
		return nil, err
	}
	if !e.gate.ProtocolAllowed(protocol) {
		return nil, fmt.Errorf("chit: integrate %s: %w", protocol, domain.ErrProtocolNotAllowed)
	}
	out, err := e.protocols.Call(ctx, protocol, payload)
	if err != nil {
		return nil, fmt.Errorf("chit: integrate %s: %w", protocol, err)
	}
	return out, nil
}
