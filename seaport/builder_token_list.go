package seaport

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	nftagg "github.com/nftagg/router-sdk-go"
	"github.com/nftagg/router-sdk-go/merkle"
)

// TokenListBuilder handles criteria bids: the wanted asset is any member of a
// committed token-id set, proven by Merkle proof at fill time. Sell-side token
// lists are unsupported; a seller commits to one concrete token by definition.
type TokenListBuilder struct{}

func (b *TokenListBuilder) Kind() nftagg.OrderKind { return nftagg.OrderKindTokenList }

func (b *TokenListBuilder) Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error) {
	if params.Side != nftagg.SideBuy {
		return nil, nftagg.ErrUnsupportedSide
	}
	if nftagg.IsNative(params.PaymentToken) {
		return nil, fmt.Errorf("%w: bids cannot offer the native currency", nftagg.ErrUnsupportedCurrency)
	}
	if params.Price == nil || params.Price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price is required", nftagg.ErrInvalidParams)
	}

	root := params.MerkleRoot
	if len(params.TokenIDs) > 0 {
		computed, err := merkle.Root(params.TokenIDs)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", nftagg.ErrInvalidParams, err)
		}
		root = computed
	}
	if root == (common.Hash{}) {
		return nil, fmt.Errorf("%w: a token set or merkle root is required", nftagg.ErrInvalidParams)
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
	consideration := buyConsideration(params, nftType, root.Big(), amount)
	return finishBuild(chainID, b.Kind(), params, offer, consideration)
}

func (b *TokenListBuilder) GetInfo(o *Order) *nftagg.OrderInfo {
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
	// The zero criteria is a contract-wide bid, not a token list.
	if wanted.IdentifierOrCriteria.Sign() == 0 {
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
		MerkleRoot:   common.BigToHash(wanted.IdentifierOrCriteria),
		Amount:       amount,
		PaymentToken: offerItem.Token,
		Price:        new(big.Int).Set(offerItem.StartAmount),
		Fees:         fees,
	}
}

func (b *TokenListBuilder) IsValid(o *Order) bool { return roundTrips(b, o) }

// BuildMatching generates the Merkle membership proof for the concrete token
// being delivered. The proof must be generated against the same committed set
// and convention used at build time or on-chain verification will fail.
func (b *TokenListBuilder) BuildMatching(o *Order, data *MatchData) (*MatchParams, error) {
	if data == nil || data.TokenID == nil {
		return nil, fmt.Errorf("%w: a concrete tokenId is required", nftagg.ErrInvalidParams)
	}
	if len(data.TokenIDs) == 0 {
		return nil, fmt.Errorf("%w: the committed token set is required for proof generation", nftagg.ErrInvalidParams)
	}
	info := b.GetInfo(o)
	if info == nil {
		return nil, nftagg.ErrInvalidOrder
	}
	root, err := merkle.Root(data.TokenIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", nftagg.ErrInvalidParams, err)
	}
	if root != info.MerkleRoot {
		return nil, fmt.Errorf("%w: token set does not match the committed root", nftagg.ErrInvalidParams)
	}
	proof, err := merkle.Proof(data.TokenIDs, data.TokenID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", nftagg.ErrInvalidParams, err)
	}
	return &MatchParams{
		Amount:        data.Amount,
		TokenID:       new(big.Int).Set(data.TokenID),
		CriteriaProof: proof,
		Recipient:     data.Recipient,
	}, nil
}
