package flow

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	nftagg "github.com/nftagg/router-sdk-go"
	"github.com/nftagg/router-sdk-go/eip712"
	"github.com/nftagg/router-sdk-go/onchain"
)

// Order binds a maker order to a chain.
type Order struct {
	ChainID nftagg.ChainID
	Kind    nftagg.OrderKind
	Params  Params

	addrs nftagg.ContractAddresses
}

// BuildParams are the user-facing single-token inputs. EndPrice below Price
// declines linearly between StartTime and EndTime.
type BuildParams struct {
	Side      nftagg.Side
	TokenKind nftagg.TokenKind

	Maker    common.Address
	Contract common.Address
	TokenID  *big.Int
	Amount   *big.Int

	PaymentToken common.Address
	Price        *big.Int
	EndPrice     *big.Int

	StartTime int64
	EndTime   int64
	Nonce     *big.Int

	MaxGasPrice  *big.Int
	Complication common.Address
}

// Build constructs a single-token order.
func Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error) {
	if params.Price == nil || params.TokenID == nil {
		return nil, fmt.Errorf("flow: missing price or token id: %w", nftagg.ErrInvalidParams)
	}
	if params.Nonce == nil {
		return nil, fmt.Errorf("flow: missing maker nonce: %w", nftagg.ErrInvalidParams)
	}
	if params.Side == nftagg.SideBuy && nftagg.IsNative(params.PaymentToken) {
		return nil, fmt.Errorf("flow: native-currency bid: %w", nftagg.ErrUnsupportedCurrency)
	}

	endPrice := params.EndPrice
	if endPrice == nil {
		endPrice = params.Price
	}
	if endPrice.Cmp(params.Price) > 0 {
		return nil, fmt.Errorf("flow: ascending price: %w", nftagg.ErrReverseDutchAuction)
	}

	amount := params.Amount
	if amount == nil {
		amount = big.NewInt(1)
	}
	maxGasPrice := params.MaxGasPrice
	if maxGasPrice == nil {
		maxGasPrice = new(big.Int)
	}

	p := Params{
		IsSellOrder: params.Side == nftagg.SideSell,
		Signer:      params.Maker,
		Constraints: []*big.Int{
			big.NewInt(1),
			params.Price,
			endPrice,
			big.NewInt(params.StartTime),
			big.NewInt(params.EndTime),
			params.Nonce,
			maxGasPrice,
		},
		NFTs: []OrderItem{{
			Collection: params.Contract,
			Tokens:     []TokenInfo{{TokenID: params.TokenID, NumTokens: amount}},
		}},
		ExecParams:  [2]common.Address{params.Complication, params.PaymentToken},
		ExtraParams: []byte{},
	}
	return New(chainID, p)
}

// New validates shape and chain-binds an order.
func New(chainID nftagg.ChainID, params Params) (*Order, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.Flow == (common.Address{}) {
		return nil, fmt.Errorf("flow: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	if len(params.Constraints) < numConstraints {
		return nil, fmt.Errorf("flow: short constraints array: %w", nftagg.ErrInvalidOrder)
	}
	if len(params.NFTs) == 0 {
		return nil, fmt.Errorf("flow: order has no items: %w", nftagg.ErrInvalidOrder)
	}
	if params.ExtraParams == nil {
		params.ExtraParams = []byte{}
	}
	return &Order{
		ChainID: chainID,
		Kind:    nftagg.OrderKindSingleToken,
		Params:  params,
		addrs:   addrs,
	}, nil
}

func (o *Order) Domain() eip712.Domain {
	return eip712.Domain{
		Name:              ProtocolName,
		Version:           ProtocolVersion,
		ChainID:           big.NewInt(int64(o.ChainID)),
		VerifyingContract: o.addrs.Flow,
	}
}

func (o *Order) Side() nftagg.Side {
	if o.Params.IsSellOrder {
		return nftagg.SideSell
	}
	return nftagg.SideBuy
}

func (o *Order) Nonce() *big.Int {
	return o.Params.Constraints[ConstraintNonce]
}

func (o *Order) Hash() common.Hash {
	return o.Params.structHash()
}

func (o *Order) Digest() common.Hash {
	return o.Domain().Digest(o.Hash())
}

func (o *Order) Sign(key *ecdsa.PrivateKey) error {
	sig, err := eip712.Sign(o.Digest(), key)
	if err != nil {
		return err
	}
	o.Params.Signature = sig
	return nil
}

func (o *Order) CheckSignature() error {
	signer, err := eip712.Recover(o.Digest(), o.Params.Signature)
	if err != nil {
		return err
	}
	if signer != o.Params.Signer {
		return fmt.Errorf("flow: recovered %s, want %s: %w",
			signer, o.Params.Signer, nftagg.ErrInvalidSignature)
	}
	return nil
}

// CheckValidity verifies the single-token shape and a non-ascending price.
func (o *Order) CheckValidity() error {
	if len(o.Params.NFTs) != 1 || len(o.Params.NFTs[0].Tokens) != 1 {
		return fmt.Errorf("flow: expected one collection with one token: %w", nftagg.ErrInvalidOrder)
	}
	start := o.Params.Constraints[ConstraintStartPrice]
	end := o.Params.Constraints[ConstraintEndPrice]
	if end.Cmp(start) > 0 {
		return fmt.Errorf("flow: ascending price: %w", nftagg.ErrReverseDutchAuction)
	}
	return nil
}

func (o *Order) GetInfo() (*nftagg.OrderInfo, error) {
	if err := o.CheckValidity(); err != nil {
		return nil, err
	}
	item := o.Params.NFTs[0]
	token := item.Tokens[0]

	tokenKind := nftagg.TokenKindERC721
	if token.NumTokens != nil && token.NumTokens.Cmp(big.NewInt(1)) > 0 {
		tokenKind = nftagg.TokenKindERC1155
	}

	return &nftagg.OrderInfo{
		Side:         o.Side(),
		TokenKind:    tokenKind,
		Contract:     item.Collection,
		TokenID:      token.TokenID,
		Amount:       token.NumTokens,
		PaymentToken: o.Params.ExecParams[1],
		Price:        o.Params.Constraints[ConstraintStartPrice],
	}, nil
}

// IsDynamic reports whether start and end prices differ.
func (o *Order) IsDynamic() bool {
	return o.Params.Constraints[ConstraintStartPrice].Cmp(o.Params.Constraints[ConstraintEndPrice]) != 0
}

// GetMatchingPrice interpolates the current price linearly between start
// and end, at the given timestamp or now.
func (o *Order) GetMatchingPrice(timestampOverride ...int64) (*big.Int, error) {
	at := time.Now().Unix()
	if len(timestampOverride) > 0 {
		at = timestampOverride[0]
	}
	return nftagg.InterpolateAmount(
		o.Params.Constraints[ConstraintStartPrice],
		o.Params.Constraints[ConstraintEndPrice],
		o.Params.Constraints[ConstraintStartTime].Int64(),
		o.Params.Constraints[ConstraintEndTime].Int64(),
		at,
	), nil
}

func (o *Order) GetFeeAmount() *big.Int {
	return new(big.Int)
}

// CheckFillability verifies the nonce is live and the maker holds funds.
// The exchange pulls assets directly.
func (o *Order) CheckFillability(ctx context.Context, reader *onchain.Reader) error {
	valid, err := o.nonceValid(ctx, reader)
	if err != nil {
		return err
	}
	if !valid {
		return fmt.Errorf("flow: nonce %s consumed: %w", o.Nonce(), nftagg.ErrNotFillable)
	}
	endTime := o.Params.Constraints[ConstraintEndTime]
	if endTime.Sign() > 0 && endTime.Int64() <= time.Now().Unix() {
		return fmt.Errorf("flow: order expired: %w", nftagg.ErrNotFillable)
	}

	info, err := o.GetInfo()
	if err != nil {
		return err
	}
	if o.Params.IsSellOrder {
		return reader.EnsureNFTOwnershipAndApproval(ctx,
			info.TokenKind, info.Contract, o.Params.Signer, o.addrs.Flow,
			info.TokenID, info.Amount)
	}
	price, err := o.GetMatchingPrice()
	if err != nil {
		return err
	}
	return reader.EnsureERC20BalanceAndAllowance(ctx,
		info.PaymentToken, o.Params.Signer, o.addrs.Flow, price)
}

func (o *Order) nonceValid(ctx context.Context, reader *onchain.Reader) (bool, error) {
	exchangeABI := ExchangeABI()
	data, err := exchangeABI.Pack("isNonceValid", o.Params.Signer, o.Nonce())
	if err != nil {
		return false, fmt.Errorf("flow: pack isNonceValid: %w", err)
	}
	out, err := reader.Call(ctx, o.addrs.Flow, data)
	if err != nil {
		return false, err
	}
	values, err := exchangeABI.Unpack("isNonceValid", out)
	if err != nil {
		return false, fmt.Errorf("flow: unpack isNonceValid: %w", err)
	}
	return values[0].(bool), nil
}
