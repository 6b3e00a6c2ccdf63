// Package nftagg holds the shared vocabulary of the aggregation layer: order
// sides and kinds, fee line items, transaction descriptors and the high-level
// "info" shape every protocol builder maps to and from.
package nftagg

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Side is the maker's side of an order.
type Side int

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideSell {
		return "sell"
	}
	return "buy"
}

// TokenKind identifies the NFT standard of the traded asset.
type TokenKind string

const (
	TokenKindERC721  TokenKind = "erc721"
	TokenKindERC1155 TokenKind = "erc1155"
)

// OrderKind identifies a builder sub-schema within a protocol family.
type OrderKind string

const (
	OrderKindSingleToken  OrderKind = "single-token"
	OrderKindTokenList    OrderKind = "token-list"
	OrderKindContractWide OrderKind = "contract-wide"
	OrderKindBundle       OrderKind = "bundle"
)

// FeeItem is one fee leg: a recipient and an amount in the order's payment token.
type FeeItem struct {
	Recipient common.Address `json:"recipient"`
	Amount    *big.Int       `json:"amount"`
}

// FeeBps is a relative fee expressed in basis points of the principal.
type FeeBps struct {
	Recipient common.Address `json:"recipient"`
	Bps       int64          `json:"bps"`
}

// TxData is a single serialized call ready for a signer to broadcast.
type TxData struct {
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Data  []byte         `json:"data"`
	Value *big.Int       `json:"value"`
}

// OrderInfo is the protocol-independent intent extracted from (and buildable
// into) a raw order. Builders return nil rather than an error when params do
// not fit their shape, so it doubles as the kind-detection probe.
type OrderInfo struct {
	Side      Side
	TokenKind TokenKind
	Contract  common.Address

	// TokenID is set for single-token orders; nil for criteria and
	// contract-wide orders.
	TokenID *big.Int

	// MerkleRoot commits the token-id set of a token-list order.
	MerkleRoot common.Hash

	// Amount is the ERC-1155 quantity; nil means 1 (ERC-721).
	Amount *big.Int

	// PaymentToken is the settlement currency; the zero address means native.
	PaymentToken common.Address

	// Price is the total paid by the buy side, fees included.
	Price *big.Int

	Fees []FeeItem

	// Taker restricts the order to one counterparty; zero address means open.
	Taker common.Address

	// Items is set for bundle orders instead of the single-asset fields.
	Items []BundleItem
}

// BundleItem is one asset inside a bundle order.
type BundleItem struct {
	TokenKind TokenKind
	Contract  common.Address
	TokenID   *big.Int
	Amount    *big.Int
}

// TotalFees sums the fee legs. Zero when there are none.
func (i *OrderInfo) TotalFees() *big.Int {
	total := new(big.Int)
	for _, f := range i.Fees {
		total.Add(total, f.Amount)
	}
	return total
}

// NetPrice is the principal owed to the maker of a sell order: price minus fees.
func (i *OrderInfo) NetPrice() *big.Int {
	return new(big.Int).Sub(i.Price, i.TotalFees())
}

// NativeToken is the conventional zero-address marker for the chain's native currency.
var NativeToken = common.Address{}

// IsNative reports whether a payment token address denotes the native currency.
func IsNative(token common.Address) bool {
	return token == NativeToken
}
