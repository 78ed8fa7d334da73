package domain

import "github.com/creditmesh/chitengine/internal/fixed"

// Pool is a capital pool against which auctions are run. PremiumBalance
// only accumulates; payout flows live outside this engine.
type Pool struct {
	ID             uint64
	Operator       Account
	Size           fixed.Num
	Rating         uint8
	PremiumBalance fixed.Num
	CreatedAt      Timestamp
}
