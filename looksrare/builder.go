package looksrare

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	nftagg "github.com/nftagg/router-sdk-go"
)

// BuildParams are the user-facing inputs for constructing a maker order.
// Price is denominated in the wrapped native token.
type BuildParams struct {
	Side      nftagg.Side
	Kind      nftagg.OrderKind
	TokenKind nftagg.TokenKind

	Signer     common.Address
	Collection common.Address
	TokenID    *big.Int
	Amount     *big.Int
	Price      *big.Int

	Nonce              *big.Int
	StartTime          int64
	EndTime            int64
	MinPercentageToAsk *big.Int
}

// Build constructs and kind-checks a maker order. Nonces are maker-managed
// sequence numbers, not random salts; the caller must track them.
func Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error) {
	if params.Price == nil || params.Price.Sign() <= 0 {
		return nil, fmt.Errorf("looksrare: missing price: %w", nftagg.ErrInvalidParams)
	}
	if params.Nonce == nil {
		return nil, fmt.Errorf("looksrare: missing maker nonce: %w", nftagg.ErrInvalidParams)
	}
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}

	var strategy common.Address
	switch params.Kind {
	case nftagg.OrderKindSingleToken:
		if params.TokenID == nil {
			return nil, fmt.Errorf("looksrare: single-token order needs a token id: %w", nftagg.ErrInvalidParams)
		}
		strategy = addrs.LooksRareStrategyStandardSale
	case nftagg.OrderKindContractWide:
		if params.Side != nftagg.SideBuy {
			return nil, fmt.Errorf("looksrare: collection orders are bids: %w", nftagg.ErrUnsupportedSide)
		}
		strategy = addrs.LooksRareStrategyCollectionSale
	default:
		return nil, fmt.Errorf("looksrare: kind %q: %w", params.Kind, nftagg.ErrUnknownOrderKind)
	}

	tokenID := params.TokenID
	if tokenID == nil {
		tokenID = new(big.Int)
	}

	maker := MakerOrder{
		IsOrderAsk:         params.Side == nftagg.SideSell,
		Signer:             params.Signer,
		Collection:         params.Collection,
		Price:              params.Price,
		TokenID:            tokenID,
		Amount:             params.Amount,
		Strategy:           strategy,
		Currency:           addrs.WNative,
		Nonce:              params.Nonce,
		StartTime:          big.NewInt(params.StartTime),
		EndTime:            big.NewInt(params.EndTime),
		MinPercentageToAsk: params.MinPercentageToAsk,
		Params:             []byte{},
	}

	o, err := New(chainID, params.TokenKind, maker)
	if err != nil {
		return nil, err
	}
	if err := o.CheckValidity(); err != nil {
		return nil, err
	}
	return o, nil
}
