package x2y2

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

// Order is a single-item market order. Multi-item auction intents exist on
// chain but are not modeled here.
type Order struct {
	ChainID nftagg.ChainID
	Kind    nftagg.OrderKind
	Params  Params

	addrs nftagg.ContractAddresses
}

// BuildParams are the user-facing inputs for a single-token order.
type BuildParams struct {
	Side      nftagg.Side
	TokenKind nftagg.TokenKind

	Maker    common.Address
	Contract common.Address
	TokenID  *big.Int

	PaymentToken common.Address
	Price        *big.Int
	Deadline     int64
	Salt         *big.Int
}

// Build constructs a single-token order with one item.
func Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error) {
	if params.Price == nil || params.TokenID == nil {
		return nil, fmt.Errorf("x2y2: missing price or token id: %w", nftagg.ErrInvalidParams)
	}

	intent := IntentSell
	if params.Side == nftagg.SideBuy {
		intent = IntentBuy
		if nftagg.IsNative(params.PaymentToken) {
			return nil, fmt.Errorf("x2y2: native-currency bid: %w", nftagg.ErrUnsupportedCurrency)
		}
	}
	delegateType := DelegateERC721
	if params.TokenKind == nftagg.TokenKindERC1155 {
		delegateType = DelegateERC1155
	}

	itemData, err := EncodePairs([]Pair{{Token: params.Contract, TokenID: params.TokenID}})
	if err != nil {
		return nil, fmt.Errorf("x2y2: encode item: %w", err)
	}
	salt := params.Salt
	if salt == nil {
		salt = nftagg.RandomSalt()
	}

	return New(chainID, Params{
		Salt:         salt,
		User:         params.Maker,
		Network:      big.NewInt(int64(chainID)),
		Intent:       intent,
		DelegateType: delegateType,
		Deadline:     big.NewInt(params.Deadline),
		Currency:     params.PaymentToken,
		Items:        []Item{{Price: params.Price, Data: itemData}},
	})
}

// New normalizes and chain-binds an order.
func New(chainID nftagg.ChainID, params Params) (*Order, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.X2Y2 == (common.Address{}) {
		return nil, fmt.Errorf("x2y2: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	if len(params.Items) == 0 {
		return nil, fmt.Errorf("x2y2: order has no items: %w", nftagg.ErrInvalidOrder)
	}
	if params.Salt == nil {
		params.Salt = nftagg.RandomSalt()
	}
	if params.Network == nil {
		params.Network = big.NewInt(int64(chainID))
	}
	if params.Deadline == nil {
		params.Deadline = new(big.Int)
	}
	for i := range params.Items {
		if params.Items[i].Price == nil {
			params.Items[i].Price = new(big.Int)
		}
	}
	return &Order{
		ChainID: chainID,
		Kind:    nftagg.OrderKindSingleToken,
		Params:  params,
		addrs:   addrs,
	}, nil
}

// Hash is the keccak of the order's ABI encoding; the signable message is
// the personal-sign wrapping of it.
func (o *Order) Hash() common.Hash {
	return o.Params.hash()
}

func (o *Order) Digest() common.Hash {
	return eip712.HashPersonal(o.Hash())
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
	if signer != o.Params.User {
		return fmt.Errorf("x2y2: recovered %s, want %s: %w",
			signer, o.Params.User, nftagg.ErrInvalidSignature)
	}
	return nil
}

func (o *Order) Side() nftagg.Side {
	if o.Params.Intent == IntentBuy {
		return nftagg.SideBuy
	}
	return nftagg.SideSell
}

func (o *Order) TokenKind() nftagg.TokenKind {
	if o.Params.DelegateType == DelegateERC1155 {
		return nftagg.TokenKindERC1155
	}
	return nftagg.TokenKindERC721
}

// CheckValidity rejects intents and shapes outside the modeled surface.
func (o *Order) CheckValidity() error {
	switch o.Params.Intent {
	case IntentSell, IntentBuy:
	default:
		return fmt.Errorf("x2y2: intent %d: %w", o.Params.Intent, nftagg.ErrInvalidOrder)
	}
	if len(o.Params.Items) != 1 {
		return fmt.Errorf("x2y2: expected one item: %w", nftagg.ErrInvalidOrder)
	}
	if _, err := DecodePairs(o.Params.Items[0].Data); err != nil {
		return fmt.Errorf("x2y2: malformed item data: %w", nftagg.ErrInvalidOrder)
	}
	return nil
}

// GetInfo extracts the protocol-neutral view of the first item.
func (o *Order) GetInfo() (*nftagg.OrderInfo, error) {
	pairs, err := DecodePairs(o.Params.Items[0].Data)
	if err != nil || len(pairs) != 1 {
		return nil, fmt.Errorf("x2y2: malformed item data: %w", nftagg.ErrInvalidOrder)
	}
	return &nftagg.OrderInfo{
		Side:         o.Side(),
		TokenKind:    o.TokenKind(),
		Contract:     pairs[0].Token,
		TokenID:      pairs[0].TokenID,
		Amount:       big.NewInt(1),
		PaymentToken: o.Params.Currency,
		Price:        o.Params.Items[0].Price,
	}, nil
}

func (o *Order) GetMatchingPrice(_ ...int64) (*big.Int, error) {
	return o.Params.Items[0].Price, nil
}

func (o *Order) GetFeeAmount() *big.Int {
	return new(big.Int)
}

// ItemHash is the commitment the exchange tracks fill state under.
func (o *Order) ItemHash() (common.Hash, error) {
	return o.Params.itemHash(0)
}

// CheckFillability verifies the item is still open and the maker holds the
// asset or funds. Transfers run through the shared delegate contract.
func (o *Order) CheckFillability(ctx context.Context, reader *onchain.Reader) error {
	open, err := o.itemOpen(ctx, reader)
	if err != nil {
		return err
	}
	if !open {
		return fmt.Errorf("x2y2: item consumed: %w", nftagg.ErrNotFillable)
	}
	if o.Params.Deadline.Sign() > 0 && o.Params.Deadline.Int64() <= time.Now().Unix() {
		return fmt.Errorf("x2y2: order expired: %w", nftagg.ErrNotFillable)
	}

	info, err := o.GetInfo()
	if err != nil {
		return err
	}
	if o.Side() == nftagg.SideSell {
		return reader.EnsureNFTOwnershipAndApproval(ctx,
			info.TokenKind, info.Contract, o.Params.User, o.addrs.X2Y2Delegate,
			info.TokenID, big.NewInt(1))
	}
	return reader.EnsureERC20BalanceAndAllowance(ctx,
		o.Params.Currency, o.Params.User, o.addrs.X2Y2, info.Price)
}

func (o *Order) itemOpen(ctx context.Context, reader *onchain.Reader) (bool, error) {
	itemHash, err := o.ItemHash()
	if err != nil {
		return false, fmt.Errorf("x2y2: item hash: %w", err)
	}
	exchangeABI := ExchangeABI()
	data, err := exchangeABI.Pack("inventoryStatus", itemHash)
	if err != nil {
		return false, fmt.Errorf("x2y2: pack inventoryStatus: %w", err)
	}
	out, err := reader.Call(ctx, o.addrs.X2Y2, data)
	if err != nil {
		return false, err
	}
	values, err := exchangeABI.Unpack("inventoryStatus", out)
	if err != nil {
		return false, fmt.Errorf("x2y2: unpack inventoryStatus: %w", err)
	}
	return values[0].(uint8) == 0, nil
}
