// Package defi implements the external-protocol escape hatch: a narrow
// caller that forwards opaque payloads and returns raw results.
package defi

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/creditmesh/chitengine/internal/domain"
)

// EthCaller forwards payloads to on-chain protocols via eth_call.
type EthCaller struct {
	client *ethclient.Client
}

// NewEthCaller creates a caller over the given client.
func NewEthCaller(client *ethclient.Client) *EthCaller {
	return &EthCaller{client: client}
}

// Call executes the payload against the protocol contract and returns
// the raw result unmodified.
func (c *EthCaller) Call(ctx context.Context, protocol domain.Account, payload []byte) ([]byte, error) {
	out, err := c.client.CallContract(ctx, ethereum.CallMsg{To: &protocol, Data: payload}, nil)
	if err != nil {
		return nil, fmt.Errorf("defi: call %s: %w", protocol, err)
	}
	return out, nil
}

// EchoCaller returns the payload unchanged. Standalone-mode stand-in
// when no chain endpoint is configured.
type EchoCaller struct{}

func (EchoCaller) Call(_ context.Context, _ domain.Account, payload []byte) ([]byte, error) {
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

// RecordingCaller captures calls and returns a canned result. Test
// helper.
type RecordingCaller struct {
	Result    []byte
	Err       error
	Protocols []domain.Account
	Payloads  [][]byte
}

func (r *RecordingCaller) Call(_ context.Context, protocol domain.Account, payload []byte) ([]byte, error) {
	r.Protocols = append(r.Protocols, protocol)
	r.Payloads = append(r.Payloads, append([]byte(nil), payload...))
	if r.Err != nil {
		return nil, r.Err
	}
	return r.Result, nil
}
