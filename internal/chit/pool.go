package chit

import (
	"fmt"

	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
)

// CreatePool allocates the next pool id for the calling operator.
func (e *Engine) CreatePool(caller domain.Account, size fixed.Num, rating uint8, now domain.Timestamp) (uint64, error) {
	if err := e.gate.Require(caller, domain.RoleOperator); err != nil {
		return 0, err
	}
	if size.IsZero() {
		return 0, fmt.Errorf("chit: create pool: %w", domain.ErrZeroSize)
	}

	id := e.nextPoolID
	e.nextPoolID++
	e.pools[id] = &domain.Pool{
		ID:        id,
		Operator:  caller,
		Size:      size,
		Rating:    rating,
		CreatedAt: now,
	}

	e.sink.Emit(domain.PoolCreatedEvent{PoolID: id, Operator: caller, Size: size, Rating: rating})
	return id, nil
}

// DepositPremium adds value to the pool's premium balance. Deposits are
// unrestricted: any account may pay a premium into any pool.
func (e *Engine) DepositPremium(caller domain.Account, poolID uint64, value fixed.Num) error {
	if value.IsZero() {
		return fmt.Errorf("chit: deposit premium: %w", domain.ErrNoValue)
	}
	pool, ok := e.pools[poolID]
	if !ok {
		return fmt.Errorf("chit: deposit premium: pool %d: %w", poolID, domain.ErrPoolNotFound)
	}

	balance, err := fixed.Add(pool.PremiumBalance, value)
	if err != nil {
		return fmt.Errorf("chit: deposit premium: pool %d: %w", poolID, err)
	}
	pool.PremiumBalance = balance

	e.sink.Emit(domain.PremiumDepositedEvent{PoolID: poolID, Depositor: caller, Value: value})
	return nil
}

// Pool returns a copy of the pool record.
func (e *Engine) Pool(poolID uint64) (domain.Pool, error) {
	pool, ok := e.pools[poolID]
	if !ok {
		return domain.Pool{}, fmt.Errorf("chit: pool %d: %w", poolID, domain.ErrPoolNotFound)
	}
	return *pool, nil
}

// PoolCount returns the number of pools ever created.
func (e *Engine) PoolCount() uint64 {
	return e.nextPoolID - 1
}
