package router

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	nftagg "github.com/nftagg/router-sdk-go"
	"github.com/nftagg/router-sdk-go/eip712"
	"github.com/nftagg/router-sdk-go/onchain"
)

// permitValidity bounds how long an emitted permit stays signable. Plans go
// stale with chain state anyway, so a short window costs nothing.
const permitValidity = 30 * time.Minute

var permitTypeHash = crypto.Keccak256Hash([]byte(
	"Permit(address owner,address spender,uint256 value,uint256 nonce,uint256 deadline)",
))

const permitViewABIJSON = `[
	{
		"inputs": [],
		"name": "DOMAIN_SEPARATOR",
		"outputs": [{"name": "", "type": "bytes32"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

var (
	permitViewOnce sync.Once
	permitViewABI  abi.ABI
)

func permitView() abi.ABI {
	permitViewOnce.Do(func() {
		var err error
		permitViewABI, err = abi.JSON(strings.NewReader(permitViewABIJSON))
		if err != nil {
			panic("router: failed to parse permit ABI: " + err.Error())
		}
	})
	return permitViewABI
}

// buildPermit assembles an unsigned EIP-2612 payload covering the required
// spend. The token's own domain separator is read from the contract rather
// than reconstructed, so tokens with nonstandard domain versions still work.
func (r *Router) buildPermit(ctx context.Context, token, owner, spender common.Address, value *big.Int) (*Permit, error) {
	sepData, err := permitView().Pack("DOMAIN_SEPARATOR")
	if err != nil {
		return nil, err
	}
	out, err := r.reader.Call(ctx, token, sepData)
	if err != nil {
		return nil, fmt.Errorf("router: %s does not expose a permit domain: %w", token.Hex(), nftagg.ErrUnsupportedCurrency)
	}
	var separator [32]byte
	if err := permitView().UnpackIntoInterface(&separator, "DOMAIN_SEPARATOR", out); err != nil {
		return nil, err
	}

	nonceData, err := onchain.ERC20ABI().Pack("nonces", owner)
	if err != nil {
		return nil, err
	}
	out, err = r.reader.Call(ctx, token, nonceData)
	if err != nil {
		return nil, fmt.Errorf("router: failed to read permit nonce: %w", err)
	}
	var nonce *big.Int
	if err := onchain.ERC20ABI().UnpackIntoInterface(&nonce, "nonces", out); err != nil {
		return nil, err
	}

	deadline := big.NewInt(time.Now().Add(permitValidity).Unix())
	enc, err := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
	}.Pack([32]byte(permitTypeHash), owner, spender, value, nonce, deadline)
	if err != nil {
		return nil, err
	}

	return &Permit{
		Token:    token,
		Owner:    owner,
		Spender:  spender,
		Value:    value,
		Nonce:    nonce,
		Deadline: deadline,
		Digest:   eip712.Digest(common.Hash(separator), crypto.Keccak256Hash(enc)),
	}, nil
}
