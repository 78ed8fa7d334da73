package domain

import (
	"context"

	"github.com/creditmesh/chitengine/internal/fixed"
)

// TokenLedger is the external fungible-token balance service consumed by
// the engine for bonus payouts and token trades. Standard token
// semantics; not reimplemented here. Transfer-family methods return false
// (or an error) on insufficient balance or allowance; the engine
// surfaces either as ErrTokenTransferFailed with no partial effect.
type TokenLedger interface {
	BalanceOf(ctx context.Context, account Account) (fixed.Num, error)
	Transfer(ctx context.Context, from, to Account, amount fixed.Num) (bool, error)
	TransferFrom(ctx context.Context, spender, from, to Account, amount fixed.Num) (bool, error)
	Approve(ctx context.Context, owner, spender Account, amount fixed.Num) (bool, error)
	Allowance(ctx context.Context, owner, spender Account) (fixed.Num, error)
}

// ProtocolCaller forwards an opaque payload to an external protocol and
// returns its raw result unmodified. The engine never inspects either
// side of the call.
type ProtocolCaller interface {
	Call(ctx context.Context, protocol Account, payload []byte) ([]byte, error)
}
