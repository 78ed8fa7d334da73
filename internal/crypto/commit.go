// Package crypto implements the bid commitment hash for the sealed-bid
// auction protocol.
package crypto

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
)

// CommitHash computes the keccak256 commitment for a sealed bid: the
// 32-byte big-endian amount followed by the raw secret bytes. The
// encoding is length-unambiguous because the amount is fixed-width.
func CommitHash(amount fixed.Num, secret string) domain.CommitHash {
	buf := make([]byte, 0, 32+len(secret))
	b32 := amount.Bytes32()
	buf = append(buf, b32[:]...)
	buf = append(buf, secret...)
	return ethcrypto.Keccak256Hash(buf)
}
