package looksrare

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

// Order binds a maker order to a chain. The struct does not carry the token
// standard, so the caller supplies it; the exchange picks the transfer
// manager from it.
type Order struct {
	ChainID   nftagg.ChainID
	Kind      nftagg.OrderKind
	TokenKind nftagg.TokenKind
	Params    MakerOrder

	addrs nftagg.ContractAddresses
}

// New normalizes params and detects the order kind from the strategy.
func New(chainID nftagg.ChainID, tokenKind nftagg.TokenKind, params MakerOrder) (*Order, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.LooksRare == (common.Address{}) {
		return nil, fmt.Errorf("looksrare: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	if params.Price == nil {
		params.Price = new(big.Int)
	}
	if params.TokenID == nil {
		params.TokenID = new(big.Int)
	}
	if params.Amount == nil {
		params.Amount = big.NewInt(1)
	}
	if params.Nonce == nil {
		params.Nonce = new(big.Int)
	}
	if params.StartTime == nil {
		params.StartTime = new(big.Int)
	}
	if params.EndTime == nil {
		params.EndTime = new(big.Int)
	}
	if params.MinPercentageToAsk == nil {
		params.MinPercentageToAsk = big.NewInt(DefaultMinPercentageToAsk)
	}

	o := &Order{ChainID: chainID, TokenKind: tokenKind, Params: params, addrs: addrs}
	kind, err := DetectKind(o)
	if err != nil {
		return nil, err
	}
	o.Kind = kind
	return o, nil
}

// DetectKind maps the strategy contract to an order kind.
func DetectKind(o *Order) (nftagg.OrderKind, error) {
	switch o.Params.Strategy {
	case o.addrs.LooksRareStrategyStandardSale:
		return nftagg.OrderKindSingleToken, nil
	case o.addrs.LooksRareStrategyCollectionSale:
		return nftagg.OrderKindContractWide, nil
	}
	return "", fmt.Errorf("looksrare: strategy %s: %w", o.Params.Strategy, nftagg.ErrUnknownOrderKind)
}

func (o *Order) Domain() eip712.Domain {
	return eip712.Domain{
		Name:              ProtocolName,
		Version:           ProtocolVersion,
		ChainID:           big.NewInt(int64(o.ChainID)),
		VerifyingContract: o.addrs.LooksRare,
	}
}

func (o *Order) Side() nftagg.Side {
	if o.Params.IsOrderAsk {
		return nftagg.SideSell
	}
	return nftagg.SideBuy
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
		return fmt.Errorf("looksrare: recovered %s, want %s: %w",
			signer, o.Params.Signer, nftagg.ErrInvalidSignature)
	}
	return nil
}

// CheckValidity verifies kind-specific field constraints.
func (o *Order) CheckValidity() error {
	if o.Params.Price.Sign() <= 0 || o.Params.Amount.Sign() <= 0 {
		return fmt.Errorf("looksrare: zero price or amount: %w", nftagg.ErrInvalidOrder)
	}
	// Bids escrow the wrapped native token; asks settle in it too, takers
	// may still pay native through the exchange's wrapping entrypoint.
	if o.Params.Currency != o.addrs.WNative {
		return fmt.Errorf("looksrare: currency %s: %w", o.Params.Currency, nftagg.ErrUnsupportedCurrency)
	}
	if o.Kind == nftagg.OrderKindContractWide && o.Params.IsOrderAsk {
		return fmt.Errorf("looksrare: collection orders are bids: %w", nftagg.ErrInvalidOrder)
	}
	return nil
}

// GetInfo extracts the protocol-neutral view. LooksRare fees are deducted
// on chain by the strategy, so no explicit fee legs appear.
func (o *Order) GetInfo() (*nftagg.OrderInfo, error) {
	info := &nftagg.OrderInfo{
		Side:         o.Side(),
		TokenKind:    o.TokenKind,
		Contract:     o.Params.Collection,
		Amount:       o.Params.Amount,
		PaymentToken: o.Params.Currency,
		Price:        o.Params.Price,
	}
	if o.Kind == nftagg.OrderKindSingleToken {
		info.TokenID = o.Params.TokenID
	}
	return info, nil
}

// GetMatchingPrice returns the static maker price.
func (o *Order) GetMatchingPrice(_ ...int64) (*big.Int, error) {
	return o.Params.Price, nil
}

// GetFeeAmount is zero: strategy fees come out of the maker's proceeds.
func (o *Order) GetFeeAmount() *big.Int {
	return new(big.Int)
}

// MatchData selects the token for collection bids.
type MatchData struct {
	Taker   common.Address
	TokenID *big.Int
}

// BuildMatching constructs the taker order for a fill.
func (o *Order) BuildMatching(data *MatchData) (*TakerOrder, error) {
	if data == nil || data.Taker == (common.Address{}) {
		return nil, fmt.Errorf("looksrare: missing taker: %w", nftagg.ErrInvalidParams)
	}

	tokenID := o.Params.TokenID
	if o.Kind == nftagg.OrderKindContractWide {
		if data.TokenID == nil {
			return nil, fmt.Errorf("looksrare: collection bid needs a token id: %w", nftagg.ErrInvalidParams)
		}
		tokenID = data.TokenID
	} else if data.TokenID != nil && data.TokenID.Cmp(o.Params.TokenID) != 0 {
		return nil, fmt.Errorf("looksrare: token id mismatch: %w", nftagg.ErrInvalidParams)
	}

	return &TakerOrder{
		IsOrderAsk:         !o.Params.IsOrderAsk,
		Taker:              data.Taker,
		Price:              o.Params.Price,
		TokenID:            tokenID,
		MinPercentageToAsk: o.Params.MinPercentageToAsk,
		Params:             []byte{},
	}, nil
}

// CheckFillability verifies the maker nonce is live and funds/approvals
// hold. NFT approvals go to the per-standard transfer manager.
func (o *Order) CheckFillability(ctx context.Context, reader *onchain.Reader) error {
	consumed, err := o.nonceConsumed(ctx, reader)
	if err != nil {
		return err
	}
	if consumed {
		return fmt.Errorf("looksrare: nonce %s consumed: %w", o.Params.Nonce, nftagg.ErrNotFillable)
	}
	now := time.Now().Unix()
	if o.Params.EndTime.Sign() > 0 && o.Params.EndTime.Int64() <= now {
		return fmt.Errorf("looksrare: order expired: %w", nftagg.ErrNotFillable)
	}

	if o.Params.IsOrderAsk {
		operator := o.addrs.LooksRareTransferManager721
		if o.TokenKind == nftagg.TokenKindERC1155 {
			operator = o.addrs.LooksRareTransferManager1155
		}
		return reader.EnsureNFTOwnershipAndApproval(ctx,
			o.TokenKind, o.Params.Collection, o.Params.Signer, operator,
			o.Params.TokenID, o.Params.Amount)
	}
	return reader.EnsureERC20BalanceAndAllowance(ctx,
		o.Params.Currency, o.Params.Signer, o.addrs.LooksRare, o.Params.Price)
}

func (o *Order) nonceConsumed(ctx context.Context, reader *onchain.Reader) (bool, error) {
	exchangeABI := ExchangeABI()
	data, err := exchangeABI.Pack("isUserOrderNonceExecutedOrCancelled", o.Params.Signer, o.Params.Nonce)
	if err != nil {
		return false, fmt.Errorf("looksrare: pack nonce status: %w", err)
	}
	out, err := reader.Call(ctx, o.addrs.LooksRare, data)
	if err != nil {
		return false, err
	}
	values, err := exchangeABI.Unpack("isUserOrderNonceExecutedOrCancelled", out)
	if err != nil {
		return false, fmt.Errorf("looksrare: unpack nonce status: %w", err)
	}
	return values[0].(bool), nil
}
