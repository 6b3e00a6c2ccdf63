package seaport

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	nftagg "github.com/nftagg/router-sdk-go"
)

// SingleTokenBuilder handles orders over one concrete tokenId: listings on
// the sell side, token bids on the buy side.
type SingleTokenBuilder struct{}

func (b *SingleTokenBuilder) Kind() nftagg.OrderKind { return nftagg.OrderKindSingleToken }

func (b *SingleTokenBuilder) Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error) {
	if params.TokenID == nil {
		return nil, fmt.Errorf("%w: tokenId is required", nftagg.ErrInvalidParams)
	}
	amount := params.Amount
	if amount == nil {
		amount = big.NewInt(1)
	}
	if params.TokenKind == nftagg.TokenKindERC721 && amount.Cmp(big.NewInt(1)) != 0 {
		return nil, fmt.Errorf("%w: erc721 amount must be 1", nftagg.ErrInvalidParams)
	}
	nftType, err := nftItemType(params.TokenKind, false)
	if err != nil {
		return nil, err
	}

	totalFees := new(big.Int)
	for _, fee := range params.Fees {
		totalFees.Add(totalFees, fee.Amount)
	}

	switch params.Side {
	case nftagg.SideSell:
		if err := validateSellPricing(params, totalFees); err != nil {
			return nil, err
		}
		offer := []OfferItem{staticItem(nftType, params.Contract, params.TokenID, amount)}
		consideration := sellConsideration(params, totalFees)
		if params.Taker != (common.Address{}) {
			// A private listing commits the asset back out to the taker as an
			// extra consideration leg, making any other filler's match fail.
			consideration = append(consideration, ConsiderationItem{
				OfferItem: staticItem(nftType, params.Contract, params.TokenID, amount),
				Recipient: params.Taker,
			})
		}
		return finishBuild(chainID, b.Kind(), params, offer, consideration)

	case nftagg.SideBuy:
		if nftagg.IsNative(params.PaymentToken) {
			return nil, fmt.Errorf("%w: bids cannot offer the native currency", nftagg.ErrUnsupportedCurrency)
		}
		if params.Price == nil || params.Price.Sign() <= 0 {
			return nil, fmt.Errorf("%w: price is required", nftagg.ErrInvalidParams)
		}
		if params.EndPrice != nil {
			return nil, fmt.Errorf("%w: bids cannot be dynamic", nftagg.ErrInvalidParams)
		}
		if params.Price.Cmp(totalFees) < 0 {
			return nil, fmt.Errorf("%w: price does not cover fees", nftagg.ErrInvalidParams)
		}
		offer := []OfferItem{staticItem(ItemERC20, params.PaymentToken, nil, params.Price)}
		consideration := buyConsideration(params, nftType, params.TokenID, amount)
		return finishBuild(chainID, b.Kind(), params, offer, consideration)

	default:
		return nil, nftagg.ErrUnsupportedSide
	}
}

func (b *SingleTokenBuilder) GetInfo(o *Order) *nftagg.OrderInfo {
	p := &o.Params
	if len(p.Offer) != 1 || len(p.Consideration) == 0 {
		return nil
	}

	offerItem := &p.Offer[0]
	switch offerItem.ItemType {
	case ItemERC721, ItemERC1155:
		// Sell: the single offer item is the asset, every consideration leg a
		// payment in one currency. A trailing NFT leg marks a private listing.
		tokenKind := nftagg.TokenKindERC721
		var amount *big.Int
		if offerItem.ItemType == ItemERC1155 {
			tokenKind = nftagg.TokenKindERC1155
			amount = offerItem.StartAmount
		}

		legs := p.Consideration
		taker := common.Address{}
		last := &legs[len(legs)-1]
		if last.ItemType == offerItem.ItemType {
			if last.Token != offerItem.Token ||
				last.IdentifierOrCriteria.Cmp(offerItem.IdentifierOrCriteria) != 0 {
				return nil
			}
			taker = last.Recipient
			legs = legs[:len(legs)-1]
			if len(legs) == 0 {
				return nil
			}
		}

		principal := &legs[0]
		if principal.ItemType != ItemNative && principal.ItemType != ItemERC20 {
			return nil
		}
		if principal.Recipient != p.Offerer {
			return nil
		}
		price := new(big.Int).Set(principal.StartAmount)
		var fees []nftagg.FeeItem
		for i := 1; i < len(legs); i++ {
			leg := &legs[i]
			if leg.ItemType != principal.ItemType || leg.Token != principal.Token {
				return nil
			}
			if leg.StartAmount.Cmp(leg.EndAmount) != 0 {
				return nil
			}
			fees = append(fees, nftagg.FeeItem{Recipient: leg.Recipient, Amount: new(big.Int).Set(leg.StartAmount)})
			price.Add(price, leg.StartAmount)
		}
		return &nftagg.OrderInfo{
			Side:         nftagg.SideSell,
			TokenKind:    tokenKind,
			Contract:     offerItem.Token,
			TokenID:      new(big.Int).Set(offerItem.IdentifierOrCriteria),
			Amount:       amount,
			PaymentToken: principal.Token,
			Price:        price,
			Fees:         fees,
			Taker:        taker,
		}

	case ItemERC20:
		// Buy: ERC20 offered, a concrete NFT wanted back.
		wanted := &p.Consideration[0]
		if wanted.ItemType != ItemERC721 && wanted.ItemType != ItemERC1155 {
			return nil
		}
		if wanted.Recipient != p.Offerer {
			return nil
		}
		tokenKind := nftagg.TokenKindERC721
		var amount *big.Int
		if wanted.ItemType == ItemERC1155 {
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
			TokenID:      new(big.Int).Set(wanted.IdentifierOrCriteria),
			Amount:       amount,
			PaymentToken: offerItem.Token,
			Price:        new(big.Int).Set(offerItem.StartAmount),
			Fees:         fees,
		}

	default:
		return nil
	}
}

func (b *SingleTokenBuilder) IsValid(o *Order) bool { return roundTrips(b, o) }

func (b *SingleTokenBuilder) BuildMatching(o *Order, data *MatchData) (*MatchParams, error) {
	if data == nil {
		data = &MatchData{}
	}
	amount := data.Amount
	if amount != nil && amount.Cmp(big.NewInt(1)) != 0 && !o.Params.OrderType.IsPartial() {
		return nil, fmt.Errorf("%w: order does not allow partial fills", nftagg.ErrInvalidParams)
	}
	if amount != nil {
		total := o.Params.Offer[0].StartAmount
		info := o.GetInfo()
		if info != nil && info.Side == nftagg.SideBuy {
			total = o.Params.Consideration[0].StartAmount
		}
		if amount.Sign() <= 0 || amount.Cmp(total) > 0 {
			return nil, fmt.Errorf("%w: fill amount out of range", nftagg.ErrInvalidParams)
		}
	}
	return &MatchParams{Amount: amount, Recipient: data.Recipient}, nil
}
