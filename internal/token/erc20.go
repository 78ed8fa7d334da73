package token

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"

	"github.com/creditmesh/chitengine/internal/domain"
	"github.com/creditmesh/chitengine/internal/fixed"
)

// 4-byte method selectors for the standard token ABI.
var (
	selBalanceOf    = selector("balanceOf(address)")
	selTransfer     = selector("transfer(address,uint256)")
	selTransferFrom = selector("transferFrom(address,address,uint256)")
	selApprove      = selector("approve(address,uint256)")
	selAllowance    = selector("allowance(address,address)")
)

func selector(sig string) []byte {
	return ethcrypto.Keccak256([]byte(sig))[:4]
}

// ERC20Ledger implements domain.TokenLedger against an on-chain ERC-20
// contract. Reads use eth_call; writes sign and submit transactions with
// the fund key and report success once accepted by the node (receipts
// are not awaited — the chain is the source of truth for settlement).
type ERC20Ledger struct {
	client   *ethclient.Client
	token    common.Address
	key      *ecdsa.PrivateKey
	sender   common.Address
	chainID  *big.Int
	gasLimit uint64
}

// NewERC20Ledger creates an adapter for the token contract at tokenAddr,
// signing writes with key on the given chain.
func NewERC20Ledger(client *ethclient.Client, tokenAddr common.Address, key *ecdsa.PrivateKey, chainID *big.Int) *ERC20Ledger {
	return &ERC20Ledger{
		client:   client,
		token:    tokenAddr,
		key:      key,
		sender:   ethcrypto.PubkeyToAddress(key.PublicKey),
		chainID:  chainID,
		gasLimit: 100_000,
	}
}

// Sender returns the address the adapter signs writes with.
func (l *ERC20Ledger) Sender() domain.Account {
	return l.sender
}

func (l *ERC20Ledger) call(ctx context.Context, data []byte) ([]byte, error) {
	out, err := l.client.CallContract(ctx, ethereum.CallMsg{To: &l.token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("token: eth_call: %w", err)
	}
	return out, nil
}

func (l *ERC20Ledger) send(ctx context.Context, data []byte) (bool, error) {
	nonce, err := l.client.PendingNonceAt(ctx, l.sender)
	if err != nil {
		return false, fmt.Errorf("token: nonce: %w", err)
	}
	tip, err := l.client.SuggestGasTipCap(ctx)
	if err != nil {
		return false, fmt.Errorf("token: gas tip: %w", err)
	}
	head, err := l.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("token: head: %w", err)
	}
	feeCap := new(big.Int).Add(tip, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   l.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       l.gasLimit,
		To:        &l.token,
		Data:      data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(l.chainID), l.key)
	if err != nil {
		return false, fmt.Errorf("token: sign tx: %w", err)
	}
	if err := l.client.SendTransaction(ctx, signed); err != nil {
		return false, fmt.Errorf("token: send tx: %w", err)
	}
	return true, nil
}

// BalanceOf queries the token balance of account.
func (l *ERC20Ledger) BalanceOf(ctx context.Context, account domain.Account) (fixed.Num, error) {
	out, err := l.call(ctx, packCall(selBalanceOf, account))
	if err != nil {
		return fixed.Num{}, err
	}
	return wordToNum(out)
}

// Transfer submits a transfer transaction. The from account must be the
// fund account the adapter signs with.
func (l *ERC20Ledger) Transfer(ctx context.Context, from, to domain.Account, amount fixed.Num) (bool, error) {
	if from != l.sender {
		return false, fmt.Errorf("token: transfer from %s: adapter signs as %s", from, l.sender)
	}
	return l.send(ctx, packCall(selTransfer, to, amount))
}

// TransferFrom submits a transferFrom transaction spending the allowance
// granted to the fund account, which must be the configured spender.
func (l *ERC20Ledger) TransferFrom(ctx context.Context, spender, from, to domain.Account, amount fixed.Num) (bool, error) {
	if spender != l.sender {
		return false, fmt.Errorf("token: transferFrom as %s: adapter signs as %s", spender, l.sender)
	}
	return l.send(ctx, packCall(selTransferFrom, from, to, amount))
}

// Approve submits an approve transaction for the fund account's balance.
func (l *ERC20Ledger) Approve(ctx context.Context, owner, spender domain.Account, amount fixed.Num) (bool, error) {
	if owner != l.sender {
		return false, fmt.Errorf("token: approve as %s: adapter signs as %s", owner, l.sender)
	}
	return l.send(ctx, packCall(selApprove, spender, amount))
}

// Allowance queries spender's remaining allowance over owner's balance.
func (l *ERC20Ledger) Allowance(ctx context.Context, owner, spender domain.Account) (fixed.Num, error) {
	out, err := l.call(ctx, packCall(selAllowance, owner, spender))
	if err != nil {
		return fixed.Num{}, err
	}
	return wordToNum(out)
}

// packCall ABI-encodes a selector followed by 32-byte words. Arguments
// may be addresses (left-padded) or fixed-point amounts.
func packCall(sel []byte, args ...any) []byte {
	data := make([]byte, 0, 4+32*len(args))
	data = append(data, sel...)
	for _, arg := range args {
		var word [32]byte
		switch v := arg.(type) {
		case domain.Account:
			copy(word[12:], v.Bytes())
		case fixed.Num:
			word = v.Bytes32()
		default:
			panic(fmt.Sprintf("token: unsupported abi argument %T", arg))
		}
		data = append(data, word[:]...)
	}
	return data
}

func wordToNum(out []byte) (fixed.Num, error) {
	if len(out) != 32 {
		return fixed.Num{}, fmt.Errorf("token: unexpected return length %d", len(out))
	}
	var n uint256.Int
	n.SetBytes32(out)
	return n, nil
}
