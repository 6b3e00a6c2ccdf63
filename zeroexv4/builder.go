package zeroexv4

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	nftagg "github.com/nftagg/router-sdk-go"
)

// BuildParams are the user-facing inputs for constructing an order.
type BuildParams struct {
	Side      nftagg.Side
	TokenKind nftagg.TokenKind
	Offerer   common.Address
	Taker     common.Address

	Contract common.Address
	TokenID  *big.Int
	Amount   *big.Int // ERC-1155 unit count; nil for ERC-721

	PaymentToken common.Address
	Price        *big.Int
	Fees         []nftagg.FeeItem

	Expiry *big.Int
	Nonce  *big.Int
}

// MatchData is the taker's fill intent.
type MatchData struct {
	Amount  *big.Int // units to fill, ERC-1155 partial fills only
	TokenID *big.Int // concrete token for collection bids
	Unwrap  bool     // receive native currency instead of the wrapped token
}

// MatchParams is the validated fill shape handed to the exchange encoder.
type MatchParams struct {
	Amount  *big.Int
	TokenID *big.Int
	Unwrap  bool
}

// Builder constructs and interprets orders of one kind.
type Builder interface {
	Kind() nftagg.OrderKind
	Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error)
	GetInfo(o *Order) (*nftagg.OrderInfo, error)
	IsValid(o *Order) bool
	BuildMatching(o *Order, data *MatchData) (*MatchParams, error)
}

// Probe order matters: contract-wide orders carry properties, single-token
// orders do not, so the two kinds are disjoint.
var builders = []Builder{
	&SingleTokenBuilder{},
	&ContractWideBuilder{},
}

func builderFor(kind nftagg.OrderKind) (Builder, error) {
	for _, b := range builders {
		if b.Kind() == kind {
			return b, nil
		}
	}
	return nil, fmt.Errorf("zeroexv4: no builder for kind %q: %w", kind, nftagg.ErrUnknownOrderKind)
}

func roundTrips(b Builder, o *Order) bool {
	if _, err := b.GetInfo(o); err != nil {
		return false
	}
	return b.IsValid(o)
}

func buildCommon(params *BuildParams) (Params, error) {
	if params.Price == nil || params.Contract == (common.Address{}) {
		return Params{}, fmt.Errorf("zeroexv4: missing price or contract: %w", nftagg.ErrInvalidParams)
	}

	direction := DirectionSell
	if params.Side == nftagg.SideBuy {
		direction = DirectionBuy
	}

	paymentToken := params.PaymentToken
	if nftagg.IsNative(paymentToken) {
		if direction == DirectionBuy {
			// Bids must escrow a pullable token.
			return Params{}, fmt.Errorf("zeroexv4: native-currency bid: %w", nftagg.ErrUnsupportedCurrency)
		}
		paymentToken = NativeTokenSentinel
	}

	fees := make([]Fee, len(params.Fees))
	feeTotal := new(big.Int)
	for i, f := range params.Fees {
		fees[i] = Fee{Recipient: f.Recipient, Amount: f.Amount}
		feeTotal.Add(feeTotal, f.Amount)
	}
	if feeTotal.Cmp(params.Price) > 0 {
		return Params{}, fmt.Errorf("zeroexv4: fees exceed price: %w", nftagg.ErrInvalidParams)
	}

	// erc20TokenAmount excludes fees; the filler pays them on top, and the
	// maker of a sell order receives the principal only.
	principal := new(big.Int).Sub(params.Price, feeTotal)

	p := Params{
		Direction:        direction,
		Maker:            params.Offerer,
		Taker:            params.Taker,
		Expiry:           params.Expiry,
		Nonce:            params.Nonce,
		ERC20Token:       paymentToken,
		ERC20TokenAmount: principal,
		Fees:             fees,
		NFTToken:         params.Contract,
		NFTTokenID:       params.TokenID,
	}
	if params.TokenKind == nftagg.TokenKindERC1155 {
		amount := params.Amount
		if amount == nil {
			amount = big.NewInt(1)
		}
		p.NFTTokenAmount = amount
	}
	return p, nil
}

func infoCommon(o *Order) *nftagg.OrderInfo {
	paymentToken := o.Params.ERC20Token
	if paymentToken == NativeTokenSentinel {
		paymentToken = nftagg.NativeToken
	}

	fees := make([]nftagg.FeeItem, len(o.Params.Fees))
	feeTotal := new(big.Int)
	for i, f := range o.Params.Fees {
		fees[i] = nftagg.FeeItem{Recipient: f.Recipient, Amount: f.Amount}
		feeTotal.Add(feeTotal, f.Amount)
	}

	amount := big.NewInt(1)
	if o.Params.NFTTokenAmount != nil {
		amount = o.Params.NFTTokenAmount
	}

	return &nftagg.OrderInfo{
		Side:         o.Side(),
		TokenKind:    o.TokenKind(),
		Contract:     o.Params.NFTToken,
		TokenID:      o.Params.NFTTokenID,
		Amount:       amount,
		PaymentToken: paymentToken,
		Price:        new(big.Int).Add(o.Params.ERC20TokenAmount, feeTotal),
		Fees:         fees,
		Taker:        o.Params.Taker,
	}
}

// SingleTokenBuilder handles orders pinned to one tokenId.
type SingleTokenBuilder struct{}

func (b *SingleTokenBuilder) Kind() nftagg.OrderKind { return nftagg.OrderKindSingleToken }

func (b *SingleTokenBuilder) Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error) {
	if params.TokenID == nil {
		return nil, fmt.Errorf("zeroexv4: single-token order needs a token id: %w", nftagg.ErrInvalidParams)
	}
	p, err := buildCommon(params)
	if err != nil {
		return nil, err
	}
	return New(chainID, p)
}

func (b *SingleTokenBuilder) GetInfo(o *Order) (*nftagg.OrderInfo, error) {
	if len(o.Params.NFTProperties) > 0 {
		return nil, fmt.Errorf("zeroexv4: property order is not single-token: %w", nftagg.ErrInvalidOrder)
	}
	return infoCommon(o), nil
}

func (b *SingleTokenBuilder) IsValid(o *Order) bool {
	return len(o.Params.NFTProperties) == 0
}

func (b *SingleTokenBuilder) BuildMatching(o *Order, data *MatchData) (*MatchParams, error) {
	amount := big.NewInt(1)
	if o.TokenKind() == nftagg.TokenKindERC1155 {
		amount = o.Params.NFTTokenAmount
		if data != nil && data.Amount != nil {
			if data.Amount.Sign() <= 0 || data.Amount.Cmp(o.Params.NFTTokenAmount) > 0 {
				return nil, fmt.Errorf("zeroexv4: fill amount out of range: %w", nftagg.ErrInvalidParams)
			}
			amount = data.Amount
		}
	} else if data != nil && data.Amount != nil && data.Amount.Cmp(big.NewInt(1)) != 0 {
		return nil, fmt.Errorf("zeroexv4: erc721 orders fill whole: %w", nftagg.ErrInvalidParams)
	}

	unwrap := data != nil && data.Unwrap
	return &MatchParams{Amount: amount, TokenID: o.Params.NFTTokenID, Unwrap: unwrap}, nil
}

// ContractWideBuilder handles collection bids expressed through a single
// accept-all property.
type ContractWideBuilder struct{}

func (b *ContractWideBuilder) Kind() nftagg.OrderKind { return nftagg.OrderKindContractWide }

func (b *ContractWideBuilder) Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error) {
	if params.Side != nftagg.SideBuy {
		return nil, fmt.Errorf("zeroexv4: contract-wide orders are bids: %w", nftagg.ErrUnsupportedSide)
	}
	params.TokenID = new(big.Int)
	p, err := buildCommon(params)
	if err != nil {
		return nil, err
	}
	p.NFTProperties = []Property{{}}
	return New(chainID, p)
}

func (b *ContractWideBuilder) GetInfo(o *Order) (*nftagg.OrderInfo, error) {
	if len(o.Params.NFTProperties) == 0 {
		return nil, fmt.Errorf("zeroexv4: no properties: %w", nftagg.ErrInvalidOrder)
	}
	info := infoCommon(o)
	info.TokenID = nil
	return info, nil
}

func (b *ContractWideBuilder) IsValid(o *Order) bool {
	if o.Params.Direction != DirectionBuy || len(o.Params.NFTProperties) != 1 {
		return false
	}
	p := o.Params.NFTProperties[0]
	return p.PropertyValidator == (common.Address{}) && len(bytes.TrimLeft(p.PropertyData, "\x00")) == 0
}

func (b *ContractWideBuilder) BuildMatching(o *Order, data *MatchData) (*MatchParams, error) {
	if data == nil || data.TokenID == nil {
		return nil, fmt.Errorf("zeroexv4: collection bid needs a concrete token id: %w", nftagg.ErrInvalidParams)
	}

	amount := big.NewInt(1)
	if o.TokenKind() == nftagg.TokenKindERC1155 {
		amount = o.Params.NFTTokenAmount
		if data.Amount != nil {
			if data.Amount.Sign() <= 0 || data.Amount.Cmp(o.Params.NFTTokenAmount) > 0 {
				return nil, fmt.Errorf("zeroexv4: fill amount out of range: %w", nftagg.ErrInvalidParams)
			}
			amount = data.Amount
		}
	}

	return &MatchParams{Amount: amount, TokenID: data.TokenID, Unwrap: data.Unwrap}, nil
}
