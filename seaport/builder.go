package seaport

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	nftagg "github.com/nftagg/router-sdk-go"
)

// BuildParams is the high-level intent a builder turns into canonical order
// params. Fields beyond the builder's kind are ignored by that builder.
type BuildParams struct {
	Offerer   common.Address
	Side      nftagg.Side
	TokenKind nftagg.TokenKind
	Contract  common.Address

	// TokenID for single-token orders; TokenIDs (the committed set) for
	// token-list orders; Items for bundles. MerkleRoot may stand in for
	// TokenIDs when only the commitment is known.
	TokenID    *big.Int
	TokenIDs   []*big.Int
	MerkleRoot common.Hash
	Items      []nftagg.BundleItem

	// Amount is the ERC-1155 quantity; nil means 1.
	Amount *big.Int

	// PaymentToken zero means native currency (sell orders only).
	PaymentToken common.Address

	// Price is the total paid by the buy side, fees included. EndPrice, when
	// set on a sell order, makes the listing a descending dutch auction.
	Price    *big.Int
	EndPrice *big.Int

	Fees  []nftagg.FeeItem
	Taker common.Address

	StartTime int64
	EndTime   int64

	Zone       common.Address
	ZoneHash   common.Hash
	ConduitKey common.Hash
	Salt       *big.Int
	Counter    *big.Int

	// AllowPartialFills selects the partial order type (ERC-1155 sells).
	AllowPartialFills bool
}

// MatchData carries the taker-supplied blanks for a fill.
type MatchData struct {
	// Amount is the fill quantity for partial-fill-capable orders.
	Amount *big.Int

	// TokenID is the concrete token delivered into a criteria order, and
	// TokenIDs the committed set the proof is generated against.
	TokenID  *big.Int
	TokenIDs []*big.Int

	// Recipient overrides where the filled asset is delivered.
	Recipient common.Address
}

// MatchParams is the taker-side parameter bundle consumed by the exchange
// client when encoding the fill.
type MatchParams struct {
	Amount        *big.Int
	TokenID       *big.Int
	CriteriaProof []common.Hash
	Recipient     common.Address
}

// Builder is one kind's bidirectional mapping between intent and params.
type Builder interface {
	Kind() nftagg.OrderKind
	Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error)
	GetInfo(o *Order) *nftagg.OrderInfo
	IsValid(o *Order) bool
	BuildMatching(o *Order, data *MatchData) (*MatchParams, error)
}

// builders is the closed kind registry, probed in priority order by
// DetectKind; first round-trip success wins.
var builders = []Builder{
	&SingleTokenBuilder{},
	&TokenListBuilder{},
	&ContractWideBuilder{},
	&BundleBuilder{},
}

func builderFor(kind nftagg.OrderKind) Builder {
	for _, b := range builders {
		if b.Kind() == kind {
			return b
		}
	}
	return nil
}

// BuilderFor exposes the registry to callers constructing orders directly.
func BuilderFor(kind nftagg.OrderKind) (Builder, error) {
	if b := builderFor(kind); b != nil {
		return b, nil
	}
	return nil, nftagg.ErrUnknownOrderKind
}

// nftItemType maps a token kind to plain or criteria item types.
func nftItemType(kind nftagg.TokenKind, criteria bool) (ItemType, error) {
	switch kind {
	case nftagg.TokenKindERC721:
		if criteria {
			return ItemERC721WithCriteria, nil
		}
		return ItemERC721, nil
	case nftagg.TokenKindERC1155:
		if criteria {
			return ItemERC1155WithCriteria, nil
		}
		return ItemERC1155, nil
	default:
		return 0, fmt.Errorf("%w: token kind %q", nftagg.ErrInvalidParams, kind)
	}
}

func paymentItemType(token common.Address) ItemType {
	if nftagg.IsNative(token) {
		return ItemNative
	}
	return ItemERC20
}

// staticItem builds a fixed-amount item.
func staticItem(itemType ItemType, token common.Address, identifier, amount *big.Int) OfferItem {
	if identifier == nil {
		identifier = new(big.Int)
	}
	return OfferItem{
		ItemType:             itemType,
		Token:                token,
		IdentifierOrCriteria: identifier,
		StartAmount:          amount,
		EndAmount:            new(big.Int).Set(amount),
	}
}

// validateSellPricing rejects reverse (ascending) dutch auctions and prices
// that cannot cover the fee legs at every point of the ramp.
func validateSellPricing(params *BuildParams, totalFees *big.Int) error {
	if params.Price == nil || params.Price.Sign() <= 0 {
		return fmt.Errorf("%w: price is required", nftagg.ErrInvalidParams)
	}
	if params.EndPrice != nil {
		if params.EndPrice.Cmp(params.Price) > 0 {
			return nftagg.ErrReverseDutchAuction
		}
		if params.EndPrice.Cmp(totalFees) < 0 {
			return fmt.Errorf("%w: end price does not cover fees", nftagg.ErrInvalidParams)
		}
	}
	if params.Price.Cmp(totalFees) < 0 {
		return fmt.Errorf("%w: price does not cover fees", nftagg.ErrInvalidParams)
	}
	return nil
}

// sellConsideration lays out the payment legs of a sell order: principal to
// the offerer first (interpolating on dutch listings), then the static fee
// legs, all in the same currency.
func sellConsideration(params *BuildParams, totalFees *big.Int) []ConsiderationItem {
	currency := params.PaymentToken
	itemType := paymentItemType(currency)

	startPrincipal := new(big.Int).Sub(params.Price, totalFees)
	endPrincipal := startPrincipal
	if params.EndPrice != nil {
		endPrincipal = new(big.Int).Sub(params.EndPrice, totalFees)
	}

	consideration := make([]ConsiderationItem, 0, 1+len(params.Fees))
	consideration = append(consideration, ConsiderationItem{
		OfferItem: OfferItem{
			ItemType:             itemType,
			Token:                currency,
			IdentifierOrCriteria: new(big.Int),
			StartAmount:          startPrincipal,
			EndAmount:            new(big.Int).Set(endPrincipal),
		},
		Recipient: params.Offerer,
	})
	for _, fee := range params.Fees {
		consideration = append(consideration, ConsiderationItem{
			OfferItem: staticItem(itemType, currency, nil, fee.Amount),
			Recipient: fee.Recipient,
		})
	}
	return consideration
}

// buyConsideration lays out a bid's taker side: the wanted NFT delivered to
// the offerer, then fee legs in the bid currency.
func buyConsideration(params *BuildParams, nftType ItemType, identifier, amount *big.Int) []ConsiderationItem {
	consideration := make([]ConsiderationItem, 0, 1+len(params.Fees))
	consideration = append(consideration, ConsiderationItem{
		OfferItem: OfferItem{
			ItemType:             nftType,
			Token:                params.Contract,
			IdentifierOrCriteria: identifier,
			StartAmount:          amount,
			EndAmount:            new(big.Int).Set(amount),
		},
		Recipient: params.Offerer,
	})
	for _, fee := range params.Fees {
		consideration = append(consideration, ConsiderationItem{
			OfferItem: staticItem(ItemERC20, params.PaymentToken, nil, fee.Amount),
			Recipient: fee.Recipient,
		})
	}
	return consideration
}

// finishBuild wires shared params into the order and stamps the kind.
func finishBuild(chainID nftagg.ChainID, kind nftagg.OrderKind, params *BuildParams, offer []OfferItem, consideration []ConsiderationItem) (*Order, error) {
	orderType := OrderFullOpen
	if params.AllowPartialFills {
		orderType = OrderPartialOpen
	}
	salt := params.Salt
	if salt == nil {
		salt = nftagg.RandomSalt()
	}
	p := Params{
		Offerer:       params.Offerer,
		Zone:          params.Zone,
		Offer:         offer,
		Consideration: consideration,
		OrderType:     orderType,
		StartTime:     params.StartTime,
		EndTime:       params.EndTime,
		ZoneHash:      params.ZoneHash,
		Salt:          salt,
		ConduitKey:    params.ConduitKey,
		Counter:       params.Counter,
	}
	o, err := newUnclassified(chainID, p)
	if err != nil {
		return nil, err
	}
	o.Kind = kind
	return o, nil
}

// rebuildParams reconstructs BuildParams from an order's non-info fields so
// round-trip validation can compare hashes on equal footing.
func rebuildParams(o *Order, info *nftagg.OrderInfo) *BuildParams {
	var endPrice *big.Int
	if info.Side == nftagg.SideSell && o.IsDynamic() {
		endPrice = new(big.Int)
		for i := range o.Params.Consideration {
			c := &o.Params.Consideration[i]
			if c.ItemType == ItemNative || c.ItemType == ItemERC20 {
				endPrice.Add(endPrice, c.EndAmount)
			}
		}
	}
	return &BuildParams{
		Offerer:           o.Params.Offerer,
		Side:              info.Side,
		TokenKind:         info.TokenKind,
		Contract:          info.Contract,
		TokenID:           info.TokenID,
		MerkleRoot:        info.MerkleRoot,
		Items:             info.Items,
		Amount:            info.Amount,
		PaymentToken:      info.PaymentToken,
		Price:             info.Price,
		EndPrice:          endPrice,
		Fees:              info.Fees,
		Taker:             info.Taker,
		StartTime:         o.Params.StartTime,
		EndTime:           o.Params.EndTime,
		Zone:              o.Params.Zone,
		ZoneHash:          o.Params.ZoneHash,
		ConduitKey:        o.Params.ConduitKey,
		Salt:              o.Params.Salt,
		Counter:           o.Params.Counter,
		AllowPartialFills: o.Params.OrderType.IsPartial(),
	}
}

// roundTrips reports the round-trip law: extract info, rebuild, compare hashes.
func roundTrips(b Builder, o *Order) bool {
	info := b.GetInfo(o)
	if info == nil {
		return false
	}
	rebuilt, err := b.Build(o.ChainID, rebuildParams(o, info))
	if err != nil {
		return false
	}
	return rebuilt.Hash() == o.Hash()
}
