package seaport

import (
	"fmt"
	"math/big"

	nftagg "github.com/nftagg/router-sdk-go"
)

// BundleBuilder handles sell orders offering several assets settled against a
// single currency. Multi-currency consideration is rejected because the
// exchange settles one currency per order.
type BundleBuilder struct{}

func (b *BundleBuilder) Kind() nftagg.OrderKind { return nftagg.OrderKindBundle }

func (b *BundleBuilder) Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error) {
	if params.Side != nftagg.SideSell {
		return nil, nftagg.ErrUnsupportedSide
	}
	if len(params.Items) < 2 {
		return nil, fmt.Errorf("%w: a bundle needs at least two items", nftagg.ErrInvalidParams)
	}

	totalFees := new(big.Int)
	for _, fee := range params.Fees {
		totalFees.Add(totalFees, fee.Amount)
	}
	if err := validateSellPricing(params, totalFees); err != nil {
		return nil, err
	}

	offer := make([]OfferItem, 0, len(params.Items))
	for _, item := range params.Items {
		itemType, err := nftItemType(item.TokenKind, false)
		if err != nil {
			return nil, err
		}
		amount := item.Amount
		if amount == nil {
			amount = big.NewInt(1)
		}
		if item.TokenKind == nftagg.TokenKindERC721 && amount.Cmp(big.NewInt(1)) != 0 {
			return nil, fmt.Errorf("%w: erc721 amount must be 1", nftagg.ErrInvalidParams)
		}
		offer = append(offer, staticItem(itemType, item.Contract, item.TokenID, amount))
	}

	consideration := sellConsideration(params, totalFees)
	return finishBuild(chainID, b.Kind(), params, offer, consideration)
}

func (b *BundleBuilder) GetInfo(o *Order) *nftagg.OrderInfo {
	p := &o.Params
	if len(p.Offer) < 2 || len(p.Consideration) == 0 {
		return nil
	}

	items := make([]nftagg.BundleItem, 0, len(p.Offer))
	for i := range p.Offer {
		item := &p.Offer[i]
		var kind nftagg.TokenKind
		var amount *big.Int
		switch item.ItemType {
		case ItemERC721:
			kind = nftagg.TokenKindERC721
		case ItemERC1155:
			kind = nftagg.TokenKindERC1155
			amount = new(big.Int).Set(item.StartAmount)
		default:
			return nil
		}
		items = append(items, nftagg.BundleItem{
			TokenKind: kind,
			Contract:  item.Token,
			TokenID:   new(big.Int).Set(item.IdentifierOrCriteria),
			Amount:    amount,
		})
	}

	principal := &p.Consideration[0]
	if principal.ItemType != ItemNative && principal.ItemType != ItemERC20 {
		return nil
	}
	if principal.Recipient != p.Offerer {
		return nil
	}
	price := new(big.Int).Set(principal.StartAmount)
	var fees []nftagg.FeeItem
	for i := 1; i < len(p.Consideration); i++ {
		leg := &p.Consideration[i]
		if leg.ItemType != principal.ItemType || leg.Token != principal.Token {
			return nil
		}
		fees = append(fees, nftagg.FeeItem{Recipient: leg.Recipient, Amount: new(big.Int).Set(leg.StartAmount)})
		price.Add(price, leg.StartAmount)
	}

	return &nftagg.OrderInfo{
		Side:         nftagg.SideSell,
		PaymentToken: principal.Token,
		Price:        price,
		Fees:         fees,
		Items:        items,
	}
}

func (b *BundleBuilder) IsValid(o *Order) bool { return roundTrips(b, o) }

// BuildMatching for bundles fills all-or-nothing; only the recipient is
// taker-supplied.
func (b *BundleBuilder) BuildMatching(o *Order, data *MatchData) (*MatchParams, error) {
	if data == nil {
		data = &MatchData{}
	}
	if data.Amount != nil && data.Amount.Cmp(big.NewInt(1)) != 0 {
		return nil, fmt.Errorf("%w: bundles cannot be partially filled", nftagg.ErrInvalidParams)
	}
	return &MatchParams{Recipient: data.Recipient}, nil
}
