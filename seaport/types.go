// Package seaport models Seaport orders: canonical parameters, EIP-712
// hashing, builders for every supported kind, and fill/cancel call encoding
// for the exchange contract.
package seaport

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nftagg/router-sdk-go/eip712"
)

// ProtocolName and ProtocolVersion form the EIP-712 domain.
const (
	ProtocolName    = "Seaport"
	ProtocolVersion = "1.5"
)

// ItemType mirrors the exchange's item-type enum.
type ItemType uint8

const (
	ItemNative ItemType = iota
	ItemERC20
	ItemERC721
	ItemERC1155
	ItemERC721WithCriteria
	ItemERC1155WithCriteria
)

// OrderType mirrors the exchange's order-type enum. Partial variants permit
// filling a fraction of the committed quantity.
type OrderType uint8

const (
	OrderFullOpen OrderType = iota
	OrderPartialOpen
	OrderFullRestricted
	OrderPartialRestricted
)

// IsPartial reports whether the order type admits partial fills.
func (t OrderType) IsPartial() bool {
	return t == OrderPartialOpen || t == OrderPartialRestricted
}

// OfferItem is one maker-side item. Start and end amounts differ only for
// dynamic (dutch-auction) orders.
type OfferItem struct {
	ItemType             ItemType
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
}

// ConsiderationItem is one taker-side item plus its recipient. Item 0 is the
// principal; later items are fees or private-recipient legs, in insertion
// order.
type ConsiderationItem struct {
	OfferItem
	Recipient common.Address
}

// Params are the canonical order components. Signature is empty until Sign.
type Params struct {
	Offerer       common.Address
	Zone          common.Address
	Offer         []OfferItem
	Consideration []ConsiderationItem
	OrderType     OrderType
	StartTime     int64
	EndTime       int64
	ZoneHash      common.Hash
	Salt          *big.Int
	ConduitKey    common.Hash
	Counter       *big.Int
	Signature     []byte
}

const (
	offerItemTypeString = "OfferItem(" +
		"uint8 itemType,address token,uint256 identifierOrCriteria," +
		"uint256 startAmount,uint256 endAmount)"
	considerationItemTypeString = "ConsiderationItem(" +
		"uint8 itemType,address token,uint256 identifierOrCriteria," +
		"uint256 startAmount,uint256 endAmount,address recipient)"
	orderComponentsTypeString = "OrderComponents(" +
		"address offerer,address zone,OfferItem[] offer," +
		"ConsiderationItem[] consideration,uint8 orderType," +
		"uint256 startTime,uint256 endTime,bytes32 zoneHash,uint256 salt," +
		"bytes32 conduitKey,uint256 counter)"
)

// Referenced types are appended in alphabetical order per EIP-712.
var (
	offerItemTypeHash         = crypto.Keccak256Hash([]byte(offerItemTypeString))
	considerationItemTypeHash = crypto.Keccak256Hash([]byte(considerationItemTypeString))
	orderComponentsTypeHash   = crypto.Keccak256Hash([]byte(
		orderComponentsTypeString + considerationItemTypeString + offerItemTypeString,
	))
)

func (i *OfferItem) hash() common.Hash {
	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeUint8},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
	}
	encoded, err := arguments.Pack(
		offerItemTypeHash,
		uint8(i.ItemType),
		i.Token,
		i.IdentifierOrCriteria,
		i.StartAmount,
		i.EndAmount,
	)
	if err != nil {
		panic("failed to encode offer item: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

func (i *ConsiderationItem) hash() common.Hash {
	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeUint8},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeAddress},
	}
	encoded, err := arguments.Pack(
		considerationItemTypeHash,
		uint8(i.ItemType),
		i.Token,
		i.IdentifierOrCriteria,
		i.StartAmount,
		i.EndAmount,
		i.Recipient,
	)
	if err != nil {
		panic("failed to encode consideration item: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

func hashOffer(items []OfferItem) common.Hash {
	concat := make([]byte, 0, len(items)*32)
	for i := range items {
		concat = append(concat, items[i].hash().Bytes()...)
	}
	return crypto.Keccak256Hash(concat)
}

func hashConsideration(items []ConsiderationItem) common.Hash {
	concat := make([]byte, 0, len(items)*32)
	for i := range items {
		concat = append(concat, items[i].hash().Bytes()...)
	}
	return crypto.Keccak256Hash(concat)
}

// structHash computes the OrderComponents struct hash.
func (p *Params) structHash() common.Hash {
	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32}, // typeHash
		{Type: eip712.TypeAddress}, // offerer
		{Type: eip712.TypeAddress}, // zone
		{Type: eip712.TypeBytes32}, // hash(offer items)
		{Type: eip712.TypeBytes32}, // hash(consideration items)
		{Type: eip712.TypeUint8},   // orderType
		{Type: eip712.TypeUint256}, // startTime
		{Type: eip712.TypeUint256}, // endTime
		{Type: eip712.TypeBytes32}, // zoneHash
		{Type: eip712.TypeUint256}, // salt
		{Type: eip712.TypeBytes32}, // conduitKey
		{Type: eip712.TypeUint256}, // counter
	}
	encoded, err := arguments.Pack(
		orderComponentsTypeHash,
		p.Offerer,
		p.Zone,
		hashOffer(p.Offer),
		hashConsideration(p.Consideration),
		uint8(p.OrderType),
		big.NewInt(p.StartTime),
		big.NewInt(p.EndTime),
		p.ZoneHash,
		p.Salt,
		p.ConduitKey,
		p.Counter,
	)
	if err != nil {
		panic("failed to encode order components: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}
