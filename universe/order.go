// Package universe models Universe marketplace orders. The order shape is
// the Rarible V2 struct family under Universe's own signing domain and
// deployment, so the asset model and calldata encoding are shared with the
// rarible package.
package universe

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
	"github.com/nftagg/router-sdk-go/rarible"
)

const (
	ProtocolName    = "Universe Marketplace"
	ProtocolVersion = "1"
)

// Order binds a V2-shaped order to Universe's deployment.
type Order struct {
	ChainID nftagg.ChainID
	Kind    nftagg.OrderKind
	Params  rarible.Params

	addrs nftagg.ContractAddresses
}

// BuildParams mirrors the rarible single-token inputs.
type BuildParams = rarible.BuildParams

// Build constructs a single-token order.
func Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error) {
	base, err := rarible.Build(chainID, params)
	if err != nil {
		return nil, err
	}
	return New(chainID, base.Params)
}

// New normalizes and chain-binds an order.
func New(chainID nftagg.ChainID, params rarible.Params) (*Order, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.Universe == (common.Address{}) {
		return nil, fmt.Errorf("universe: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	if params.Salt == nil {
		params.Salt = nftagg.RandomSalt()
	}
	if params.Start == nil {
		params.Start = new(big.Int)
	}
	if params.End == nil {
		params.End = new(big.Int)
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
		VerifyingContract: o.addrs.Universe,
	}
}

func (o *Order) base() *rarible.Order {
	base, err := rarible.New(o.ChainID, o.Params)
	if err != nil {
		panic("universe: rebind order: " + err.Error())
	}
	return base
}

func (o *Order) Side() nftagg.Side { return o.base().Side() }

func (o *Order) Hash() common.Hash {
	return o.Params.StructHash()
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
	if signer != o.Params.Maker {
		return fmt.Errorf("universe: recovered %s, want %s: %w",
			signer, o.Params.Maker, nftagg.ErrInvalidSignature)
	}
	return nil
}

func (o *Order) CheckValidity() error {
	return o.base().CheckValidity()
}

func (o *Order) GetInfo() (*nftagg.OrderInfo, error) {
	return o.base().GetInfo()
}

func (o *Order) GetMatchingPrice(_ ...int64) (*big.Int, error) {
	return o.base().GetMatchingPrice()
}

func (o *Order) GetFeeAmount() *big.Int {
	return new(big.Int)
}

// BuildMatching constructs the mirrored taker order.
func (o *Order) BuildMatching(taker common.Address) (*Order, error) {
	mirror, err := o.base().BuildMatching(taker)
	if err != nil {
		return nil, err
	}
	return New(o.ChainID, mirror.Params)
}

// CheckFillability reads Universe's fill counter and verifies maker funds.
// The exchange pulls assets directly, without a separate proxy.
func (o *Order) CheckFillability(ctx context.Context, reader *onchain.Reader) error {
	data, err := rarible.PackFills(o.Params.HashKey())
	if err != nil {
		return fmt.Errorf("universe: pack fills: %w", err)
	}
	out, err := reader.Call(ctx, o.addrs.Universe, data)
	if err != nil {
		return err
	}
	filled, err := rarible.UnpackFills(out)
	if err != nil {
		return fmt.Errorf("universe: unpack fills: %w", err)
	}
	if filled.Cmp(o.Params.TakeAsset.Value) >= 0 {
		return fmt.Errorf("universe: order filled: %w", nftagg.ErrNotFillable)
	}
	if o.Params.End.Sign() > 0 && o.Params.End.Int64() <= time.Now().Unix() {
		return fmt.Errorf("universe: order expired: %w", nftagg.ErrNotFillable)
	}

	info, err := o.GetInfo()
	if err != nil {
		return err
	}
	if o.Side() == nftagg.SideSell {
		return reader.EnsureNFTOwnershipAndApproval(ctx,
			info.TokenKind, info.Contract, o.Params.Maker, o.addrs.Universe,
			info.TokenID, info.Amount)
	}
	if nftagg.IsNative(info.PaymentToken) {
		return fmt.Errorf("universe: native-currency bid: %w", nftagg.ErrUnsupportedCurrency)
	}
	return reader.EnsureERC20BalanceAndAllowance(ctx,
		info.PaymentToken, o.Params.Maker, o.addrs.Universe, info.Price)
}

// Exchange encodes match and cancel calldata for Universe's deployment.
type Exchange struct {
	chainID nftagg.ChainID
	addrs   nftagg.ContractAddresses
}

func NewExchange(chainID nftagg.ChainID) (*Exchange, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.Universe == (common.Address{}) {
		return nil, fmt.Errorf("universe: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	return &Exchange{chainID: chainID, addrs: addrs}, nil
}

func (e *Exchange) Address() common.Address {
	return e.addrs.Universe
}

func (e *Exchange) FillTx(taker common.Address, o *Order, match *Order) (*nftagg.TxData, error) {
	if match == nil {
		return nil, fmt.Errorf("universe: missing matching order: %w", nftagg.ErrInvalidParams)
	}
	if len(o.Params.Signature) != 65 {
		return nil, fmt.Errorf("universe: signature must be 65 bytes: %w", nftagg.ErrInvalidSignature)
	}
	data, err := rarible.PackMatchOrders(&o.Params, o.Params.Signature, &match.Params, nil)
	if err != nil {
		return nil, fmt.Errorf("universe: pack matchOrders: %w", err)
	}

	value := new(big.Int)
	if o.Side() == nftagg.SideSell && o.Params.TakeAsset.AssetType.AssetClass == rarible.AssetClassETH {
		value.Set(o.Params.TakeAsset.Value)
	}
	return &nftagg.TxData{From: taker, To: e.addrs.Universe, Data: data, Value: value}, nil
}

func (e *Exchange) CancelTx(maker common.Address, o *Order) (*nftagg.TxData, error) {
	data, err := rarible.PackCancel(&o.Params)
	if err != nil {
		return nil, fmt.Errorf("universe: pack cancel: %w", err)
	}
	return &nftagg.TxData{From: maker, To: e.addrs.Universe, Data: data, Value: new(big.Int)}, nil
}
