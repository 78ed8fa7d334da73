// Package domain defines the core entities of the chit-fund engine —
// accounts, trust edges, pools, auctions — together with the sentinel
// errors, events, and collaborator interfaces shared by every layer.
package domain

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Account is an opaque participant identifier, address-equivalent. It is
// used as a key everywhere; there is no separate participant entity.
type Account = common.Address

// CommitHash is a keccak256 bid commitment.
type CommitHash = common.Hash

// Timestamp is a monotonically non-decreasing logical clock value in
// seconds. It is supplied by the caller at the moment of each operation
// and reused for every check within that operation.
type Timestamp = uint64

// ParseAccount decodes a 0x-prefixed hex address.
func ParseAccount(s string) (Account, error) {
	if !common.IsHexAddress(s) {
		return Account{}, fmt.Errorf("domain: invalid account %q", s)
	}
	return common.HexToAddress(s), nil
}

// AccountLess orders accounts by their raw bytes. Used as the final
// deterministic tie-break.
func AccountLess(a, b Account) bool {
	return bytes.Compare(a.Bytes(), b.Bytes()) < 0
}
