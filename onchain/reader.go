// Package onchain provides the read-only chain-data surface: token balances,
// owners, allowances and operator approvals, plus raw eth_call access for
// protocol-specific order-status lookups. All methods are side-effect free.
package onchain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

// CallClient is the minimal client surface the reader needs. *ethclient.Client
// satisfies it; tests substitute a stub.
type CallClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Reader issues rate-limited read calls against a chain-data provider.
type Reader struct {
	client  CallClient
	limiter *rate.Limiter
}

// Option configures a Reader.
type Option func(*Reader)

// WithRateLimit caps outgoing calls at qps with the given burst. The fill
// orchestrator fans out one fillability check per descriptor; the cap keeps
// that fan-out from hammering the RPC endpoint.
func WithRateLimit(qps float64, burst int) Option {
	return func(r *Reader) {
		r.limiter = rate.NewLimiter(rate.Limit(qps), burst)
	}
}

// NewReader wraps an existing client.
func NewReader(client CallClient, opts ...Option) *Reader {
	r := &Reader{client: client}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Dial connects to an RPC endpoint and wraps it in a Reader.
func Dial(ctx context.Context, rpcURL string, opts ...Option) (*Reader, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}
	return NewReader(client, opts...), nil
}

func (r *Reader) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// Call performs a raw eth_call against the latest block.
func (r *Reader) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// NativeBalance returns the account's native-currency balance.
func (r *Reader) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	balance, err := r.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// ERC20BalanceOf returns the ERC20 balance for an account.
func (r *Reader) ERC20BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", account)
	if err != nil {
		return nil, err
	}
	result, err := r.Call(ctx, token, data)
	if err != nil {
		return nil, err
	}
	var balance *big.Int
	if err := erc20ABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, err
	}
	return balance, nil
}

// ERC20Allowance returns the ERC20 allowance for owner to spender.
func (r *Reader) ERC20Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	result, err := r.Call(ctx, token, data)
	if err != nil {
		return nil, err
	}
	var allowance *big.Int
	if err := erc20ABI.UnpackIntoInterface(&allowance, "allowance", result); err != nil {
		return nil, err
	}
	return allowance, nil
}

// ERC20Nonce reads an EIP-2612 permit nonce. Fails for tokens without permit.
func (r *Reader) ERC20Nonce(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("nonces", owner)
	if err != nil {
		return nil, err
	}
	result, err := r.Call(ctx, token, data)
	if err != nil {
		return nil, err
	}
	var nonce *big.Int
	if err := erc20ABI.UnpackIntoInterface(&nonce, "nonces", result); err != nil {
		return nil, err
	}
	return nonce, nil
}

// ERC721OwnerOf returns the current owner of a token.
func (r *Reader) ERC721OwnerOf(ctx context.Context, token common.Address, tokenID *big.Int) (common.Address, error) {
	data, err := erc721ABI.Pack("ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	result, err := r.Call(ctx, token, data)
	if err != nil {
		return common.Address{}, err
	}
	var owner common.Address
	if err := erc721ABI.UnpackIntoInterface(&owner, "ownerOf", result); err != nil {
		return common.Address{}, err
	}
	return owner, nil
}

// ERC721GetApproved returns the single-token approval target.
func (r *Reader) ERC721GetApproved(ctx context.Context, token common.Address, tokenID *big.Int) (common.Address, error) {
	data, err := erc721ABI.Pack("getApproved", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	result, err := r.Call(ctx, token, data)
	if err != nil {
		return common.Address{}, err
	}
	var approved common.Address
	if err := erc721ABI.UnpackIntoInterface(&approved, "getApproved", result); err != nil {
		return common.Address{}, err
	}
	return approved, nil
}

// IsApprovedForAll checks an operator approval; the call shape is identical
// for ERC-721 and ERC-1155.
func (r *Reader) IsApprovedForAll(ctx context.Context, token, owner, operator common.Address) (bool, error) {
	data, err := erc721ABI.Pack("isApprovedForAll", owner, operator)
	if err != nil {
		return false, err
	}
	result, err := r.Call(ctx, token, data)
	if err != nil {
		return false, err
	}
	var approved bool
	if err := erc721ABI.UnpackIntoInterface(&approved, "isApprovedForAll", result); err != nil {
		return false, err
	}
	return approved, nil
}

// ERC1155BalanceOf returns an account's balance of one token id.
func (r *Reader) ERC1155BalanceOf(ctx context.Context, token, account common.Address, tokenID *big.Int) (*big.Int, error) {
	data, err := erc1155ABI.Pack("balanceOf", account, tokenID)
	if err != nil {
		return nil, err
	}
	result, err := r.Call(ctx, token, data)
	if err != nil {
		return nil, err
	}
	var balance *big.Int
	if err := erc1155ABI.UnpackIntoInterface(&balance, "balanceOf", result); err != nil {
		return nil, err
	}
	return balance, nil
}
