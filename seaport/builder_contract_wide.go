package seaport

import (
	"fmt"
	"math/big"

	nftagg "github.com/nftagg/router-sdk-go"
)

// ContractWideBuilder handles collection bids: a criteria item with the null
// (zero) criteria, matching any token of the collection.
type ContractWideBuilder struct{}

func (b *ContractWideBuilder) Kind() nftagg.OrderKind { return nftagg.OrderKindContractWide }

func (b *ContractWideBuilder) Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error) {
	if params.Side != nftagg.SideBuy {
		return nil, nftagg.ErrUnsupportedSide
	}
	if nftagg.IsNative(params.PaymentToken) {
		return nil, fmt.Errorf("%w: bids cannot offer the native currency", nftagg.ErrUnsupportedCurrency)
	}
	if params.Price == nil || params.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price is required", nftagg.ErrInvalidParams)
	}
	nftType, err := nftItemType(params.TokenKind, true)
	if err != nil {
		return nil, err
	}
	amount := params.Amount
	if amount == nil {
		amount = big.NewInt(1)
	}

	offer := []OfferItem{staticItem(ItemERC20, params.PaymentToken, nil, params.Price)}
	consideration := buyConsideration(params, nftType, new(big.Int), amount)
	return finishBuild(chainID, b.Kind(), params, offer, consideration)
}

func (b *ContractWideBuilder) GetInfo(o *Order) *nftagg.OrderInfo {
	p := &o.Params
	if len(p.Offer) != 1 || len(p.Consideration) == 0 {
		return nil
	}
	offerItem := &p.Offer[0]
	if offerItem.ItemType != ItemERC20 {
		return nil
	}
	wanted := &p.Consideration[0]
	if wanted.ItemType != ItemERC721WithCriteria && wanted.ItemType != ItemERC1155WithCriteria {
		return nil
	}
	if wanted.IdentifierOrCriteria.Sign() != 0 {
		return nil
	}
	if wanted.Recipient != p.Offerer {
		return nil
	}

	tokenKind := nftagg.TokenKindERC721
	var amount *big.Int
	if wanted.ItemType == ItemERC1155WithCriteria {
		tokenKind = nftagg.TokenKindERC1155
		amount = wanted.StartAmount
	}
	var fees []nftagg.FeeItem
	for i := 1; i < len(p.Consideration); i++ {
		leg := &p.Consideration[i]
		if leg.ItemType != ItemERC20 || leg.Token != offerItem.Token {
			return nil
		}
		fees = append(fees, nftagg.FeeItem{Recipient: leg.Recipient, Amount: new(big.Int).Set(leg.StartAmount)})
	}
	return &nftagg.OrderInfo{
		Side:         nftagg.SideBuy,
		TokenKind:    tokenKind,
		Contract:     wanted.Token,
		Amount:       amount,
		PaymentToken: offerItem.Token,
		Price:        new(big.Int).Set(offerItem.StartAmount),
		Fees:         fees,
	}
}

func (b *ContractWideBuilder) IsValid(o *Order) bool { return roundTrips(b, o) }

// BuildMatching needs only the concrete token; the null criteria admits any
// member of the collection without a proof.
func (b *ContractWideBuilder) BuildMatching(o *Order, data *MatchData) (*MatchParams, error) {
	if data == nil || data.TokenID == nil {
		return nil, fmt.Errorf("%w: a concrete tokenId is required", nftagg.ErrInvalidParams)
	}
	return &MatchParams{
		Amount:    data.Amount,
		TokenID:   new(big.Int).Set(data.TokenID),
		Recipient: data.Recipient,
	}, nil
}
