// Package token provides TokenLedger implementations: a deterministic
// in-memory ledger for standalone mode and tests, and an ERC-20 adapter
// for chain mode.
package token

import (
	"context"
	"fmt"

	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
)

// MemoryLedger is an in-process token ledger with standard balance and
// allowance semantics. Transfer-family methods return false, never an
// error, on insufficient funds or allowance. Not safe for concurrent
// use; the apply loop serializes access.
type MemoryLedger struct {
	balances   map[domain.Account]fixed.Num
	allowances map[[2]domain.Account]fixed.Num
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:   make(map[domain.Account]fixed.Num),
		allowances: make(map[[2]domain.Account]fixed.Num),
	}
}

// Mint credits amount to account. Setup helper; there is no supply cap.
func (l *MemoryLedger) Mint(account domain.Account, amount fixed.Num) error {
	b, err := fixed.Add(l.balances[account], amount)
	if err != nil {
		return fmt.Errorf("token: mint to %s: %w", account, err)
	}
	l.balances[account] = b
	return nil
}

// BalanceOf returns the balance of account.
func (l *MemoryLedger) BalanceOf(_ context.Context, account domain.Account) (fixed.Num, error) {
	return l.balances[account], nil
}

// Transfer moves amount from from to to. Returns false on insufficient
// balance.
func (l *MemoryLedger) Transfer(_ context.Context, from, to domain.Account, amount fixed.Num) (bool, error) {
	return l.move(from, to, amount)
}

// TransferFrom moves amount from from to to, spending spender's
// allowance. Returns false on insufficient allowance or balance.
func (l *MemoryLedger) TransferFrom(_ context.Context, spender, from, to domain.Account, amount fixed.Num) (bool, error) {
	key := [2]domain.Account{from, spender}
	allowance := l.allowances[key]
	if allowance.Lt(&amount) {
		return false, nil
	}
	ok, err := l.move(from, to, amount)
	if err != nil || !ok {
		return ok, err
	}
	remaining, err := fixed.Sub(allowance, amount)
	if err != nil {
		return false, fmt.Errorf("token: allowance %s -> %s: %w", from, spender, err)
	}
	l.allowances[key] = remaining
	return true, nil
}

// Approve sets spender's allowance over owner's balance.
func (l *MemoryLedger) Approve(_ context.Context, owner, spender domain.Account, amount fixed.Num) (bool, error) {
	l.allowances[[2]domain.Account{owner, spender}] = amount
	return true, nil
}

// Allowance returns spender's remaining allowance over owner's balance.
func (l *MemoryLedger) Allowance(_ context.Context, owner, spender domain.Account) (fixed.Num, error) {
	return l.allowances[[2]domain.Account{owner, spender}], nil
}

func (l *MemoryLedger) move(from, to domain.Account, amount fixed.Num) (bool, error) {
	src := l.balances[from]
	if src.Lt(&amount) {
		return false, nil
	}
	dst, err := fixed.Add(l.balances[to], amount)
	if err != nil {
		return false, fmt.Errorf("token: transfer %s -> %s: %w", from, to, err)
	}
	remaining, err := fixed.Sub(src, amount)
	if err != nil {
		return false, fmt.Errorf("token: transfer %s -> %s: %w", from, to, err)
	}
	l.balances[from] = remaining
	l.balances[to] = dst
	return true, nil
}
