package seaport

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

// priceSafetyMargin is subtracted from the wall clock when no timestamp
// override is given, so dutch-auction fills priced slightly ahead of the
// chain's clock do not revert for underpayment.
const priceSafetyMargin = 120 * time.Second

// Order is one Seaport order bound to a chain's deployment.
type Order struct {
	ChainID nftagg.ChainID
	Kind    nftagg.OrderKind
	Params  Params

	addrs nftagg.ContractAddresses
}

// New canonicalizes params into an Order, detecting the kind by probing each
// builder's round-trip validity check in priority order.
func New(chainID nftagg.ChainID, params Params) (*Order, error) {
	o, err := newUnclassified(chainID, params)
	if err != nil {
		return nil, err
	}
	kind, err := o.DetectKind()
	if err != nil {
		return nil, err
	}
	o.Kind = kind
	return o, nil
}

func newUnclassified(chainID nftagg.ChainID, params Params) (*Order, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.Seaport == (common.Address{}) {
		return nil, fmt.Errorf("%w: seaport has no deployment on chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	normalize(&params)
	return &Order{ChainID: chainID, Params: params, addrs: addrs}, nil
}

func normalize(p *Params) {
	if p.Salt == nil {
		p.Salt = new(big.Int)
	}
	if p.Counter == nil {
		p.Counter = new(big.Int)
	}
	for i := range p.Offer {
		normalizeItem(&p.Offer[i])
	}
	for i := range p.Consideration {
		normalizeItem(&p.Consideration[i].OfferItem)
	}
}

func normalizeItem(i *OfferItem) {
	if i.IdentifierOrCriteria == nil {
		i.IdentifierOrCriteria = new(big.Int)
	}
	if i.StartAmount == nil {
		i.StartAmount = new(big.Int)
	}
	if i.EndAmount == nil {
		i.EndAmount = new(big.Int).Set(i.StartAmount)
	}
}

// DetectKind probes each builder; first round-trip match wins.
func (o *Order) DetectKind() (nftagg.OrderKind, error) {
	for _, b := range builders {
		if b.IsValid(o) {
			return b.Kind(), nil
		}
	}
	return "", nftagg.ErrUnknownOrderKind
}

// Domain is the protocol's EIP-712 domain for the order's chain.
func (o *Order) Domain() *eip712.Domain {
	return &eip712.Domain{
		Name:              ProtocolName,
		Version:           ProtocolVersion,
		ChainID:           big.NewInt(int64(o.ChainID)),
		VerifyingContract: o.addrs.Seaport,
	}
}

// Hash is the order's typed-data struct hash, its identity for on-chain
// status lookups and round-trip comparison.
func (o *Order) Hash() common.Hash {
	return o.Params.structHash()
}

// Digest is the signable EIP-712 hash.
func (o *Order) Digest() common.Hash {
	return eip712.Digest(o.Domain().Separator(), o.Hash())
}

// Sign populates Params.Signature in place.
func (o *Order) Sign(key *ecdsa.PrivateKey) error {
	sig, err := eip712.Sign(o.Digest(), key)
	if err != nil {
		return err
	}
	o.Params.Signature = sig
	return nil
}

// CheckSignature recovers the signer and compares it to the offerer.
func (o *Order) CheckSignature() error {
	signer, err := eip712.Recover(o.Digest(), o.Params.Signature)
	if err != nil {
		return fmt.Errorf("%w: %s", nftagg.ErrInvalidSignature, err)
	}
	if signer != o.Params.Offerer {
		return nftagg.ErrInvalidSignature
	}
	return nil
}

// CheckValidity re-derives the order's info through its builder and rejects
// any param combination that does not round-trip to the identical hash.
func (o *Order) CheckValidity() error {
	b := builderFor(o.Kind)
	if b == nil || !b.IsValid(o) {
		return nftagg.ErrInvalidOrder
	}
	return nil
}

// GetInfo extracts high-level intent. Nil when the params do not fit the
// order's kind.
func (o *Order) GetInfo() *nftagg.OrderInfo {
	b := builderFor(o.Kind)
	if b == nil {
		return nil
	}
	return b.GetInfo(o)
}

// IsDynamic reports whether any consideration leg interpolates over time.
func (o *Order) IsDynamic() bool {
	for i := range o.Params.Consideration {
		c := &o.Params.Consideration[i]
		if c.StartAmount.Cmp(c.EndAmount) != 0 {
			return true
		}
	}
	return false
}

// GetMatchingPrice returns the total the filler pays (sell orders) or the
// total the maker pays (buy orders), fees included. Dynamic legs are
// interpolated at the override timestamp, or now minus a safety margin.
func (o *Order) GetMatchingPrice(timestampOverride ...int64) *big.Int {
	at := time.Now().Add(-priceSafetyMargin).Unix()
	if len(timestampOverride) > 0 {
		at = timestampOverride[0]
	}

	info := o.GetInfo()
	if info != nil && info.Side == nftagg.SideBuy {
		return new(big.Int).Set(o.Params.Offer[0].StartAmount)
	}

	total := new(big.Int)
	for i := range o.Params.Consideration {
		c := &o.Params.Consideration[i]
		total.Add(total, nftagg.InterpolateAmount(
			c.StartAmount, c.EndAmount, o.Params.StartTime, o.Params.EndTime, at,
		))
	}
	return total
}

// GetFeeAmount sums the fee legs (every consideration item beyond the principal).
func (o *Order) GetFeeAmount() *big.Int {
	info := o.GetInfo()
	if info == nil {
		return new(big.Int)
	}
	return info.TotalFees()
}

// BuildMatching derives taker-side fill parameters via the order's builder.
func (o *Order) BuildMatching(data *MatchData) (*MatchParams, error) {
	b := builderFor(o.Kind)
	if b == nil {
		return nil, nftagg.ErrUnknownOrderKind
	}
	return b.BuildMatching(o, data)
}

// ResolveConduit resolves the maker's token-transfer delegate: the exchange
// itself for the zero conduit key, otherwise the conduit registered with the
// controller.
func (o *Order) ResolveConduit(ctx context.Context, reader *onchain.Reader) (common.Address, error) {
	if o.Params.ConduitKey == (common.Hash{}) {
		return o.addrs.Seaport, nil
	}
	data, err := conduitControllerABI.Pack("getConduit", o.Params.ConduitKey)
	if err != nil {
		return common.Address{}, err
	}
	result, err := reader.Call(ctx, o.addrs.SeaportConduitController, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to resolve conduit: %w", err)
	}
	out, err := conduitControllerABI.Unpack("getConduit", result)
	if err != nil {
		return common.Address{}, err
	}
	conduit, _ := out[0].(common.Address)
	exists, _ := out[1].(bool)
	if !exists {
		return common.Address{}, nftagg.ErrInvalidConduit
	}
	return conduit, nil
}

// CheckFillability performs the live pre-flight: cancellation/fill status,
// delegate resolution, then maker balance and approval for the committed side.
func (o *Order) CheckFillability(ctx context.Context, reader *onchain.Reader) error {
	data, err := exchangeABI.Pack("getOrderStatus", o.Hash())
	if err != nil {
		return err
	}
	result, err := reader.Call(ctx, o.addrs.Seaport, data)
	if err != nil {
		return fmt.Errorf("failed to read order status: %w", err)
	}
	out, err := exchangeABI.Unpack("getOrderStatus", result)
	if err != nil {
		return err
	}
	isCancelled, _ := out[1].(bool)
	totalFilled, _ := out[2].(*big.Int)
	totalSize, _ := out[3].(*big.Int)
	if isCancelled {
		return nftagg.ErrNotFillable
	}
	if totalSize != nil && totalSize.Sign() > 0 && totalFilled != nil && totalFilled.Cmp(totalSize) >= 0 {
		return nftagg.ErrNotFillable
	}

	operator, err := o.ResolveConduit(ctx, reader)
	if err != nil {
		return err
	}

	info := o.GetInfo()
	if info == nil {
		return nftagg.ErrInvalidOrder
	}
	if info.Side == nftagg.SideSell {
		for i := range o.Params.Offer {
			item := &o.Params.Offer[i]
			switch item.ItemType {
			case ItemERC721:
				if err := reader.EnsureNFTOwnershipAndApproval(
					ctx, nftagg.TokenKindERC721, item.Token, o.Params.Offerer, operator,
					item.IdentifierOrCriteria, nil,
				); err != nil {
					return err
				}
			case ItemERC1155:
				if err := reader.EnsureNFTOwnershipAndApproval(
					ctx, nftagg.TokenKindERC1155, item.Token, o.Params.Offerer, operator,
					item.IdentifierOrCriteria, item.StartAmount,
				); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return reader.EnsureERC20BalanceAndAllowance(
		ctx, o.Params.Offer[0].Token, o.Params.Offerer, operator, o.Params.Offer[0].StartAmount,
	)
}
