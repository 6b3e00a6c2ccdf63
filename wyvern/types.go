// Package wyvern models Wyvern v2.3 orders: fully flat structs whose
// calldata/replacement-pattern pair expresses the NFT transfer, matched on
// chain as buy/sell pairs.
package wyvern

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nftagg/router-sdk-go/eip712"
)

const (
	ProtocolName    = "Wyvern Exchange Contract"
	ProtocolVersion = "2.3"
)

// FeeMethod: protocol fee handling. Split fee is the only method live on
// the v2.3 deployment.
type FeeMethod uint8

const (
	FeeMethodProtocol FeeMethod = iota
	FeeMethodSplit
)

// SideOp is the on-chain side encoding.
type SideOp uint8

const (
	SideOpBuy SideOp = iota
	SideOpSell
)

// SaleKind: fixed price or declining-price dutch auction.
type SaleKind uint8

const (
	SaleKindFixedPrice SaleKind = iota
	SaleKindDutchAuction
)

// HowToCall: plain call or delegatecall into the target.
type HowToCall uint8

const (
	HowToCallCall HowToCall = iota
	HowToCallDelegateCall
)

// Params are the canonical order fields.
type Params struct {
	Exchange           common.Address
	Maker              common.Address
	Taker              common.Address
	MakerRelayerFee    *big.Int
	TakerRelayerFee    *big.Int
	MakerProtocolFee   *big.Int
	TakerProtocolFee   *big.Int
	FeeRecipient       common.Address
	FeeMethod          FeeMethod
	Side               SideOp
	SaleKind           SaleKind
	Target             common.Address
	HowToCall          HowToCall
	Calldata           []byte
	ReplacementPattern []byte
	StaticTarget       common.Address
	StaticExtradata    []byte
	PaymentToken       common.Address
	BasePrice          *big.Int
	Extra              *big.Int
	ListingTime        *big.Int
	ExpirationTime     *big.Int
	Salt               *big.Int
	Nonce              *big.Int

	Signature []byte
}

const orderTypeString = "Order(" +
	"address exchange,address maker,address taker,uint256 makerRelayerFee,uint256 takerRelayerFee," +
	"uint256 makerProtocolFee,uint256 takerProtocolFee,address feeRecipient,uint8 feeMethod," +
	"uint8 side,uint8 saleKind,address target,uint8 howToCall,bytes calldata,bytes replacementPattern," +
	"address staticTarget,bytes staticExtradata,address paymentToken,uint256 basePrice,uint256 extra," +
	"uint256 listingTime,uint256 expirationTime,uint256 salt,uint256 nonce)"

var orderTypeHash = crypto.Keccak256Hash([]byte(orderTypeString))

func (p *Params) structHash() common.Hash {
	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint8},
		{Type: eip712.TypeUint8},
		{Type: eip712.TypeUint8},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint8},
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
	}
	encoded, err := arguments.Pack(
		orderTypeHash,
		p.Exchange,
		p.Maker,
		p.Taker,
		p.MakerRelayerFee,
		p.TakerRelayerFee,
		p.MakerProtocolFee,
		p.TakerProtocolFee,
		p.FeeRecipient,
		uint8(p.FeeMethod),
		uint8(p.Side),
		uint8(p.SaleKind),
		p.Target,
		uint8(p.HowToCall),
		crypto.Keccak256Hash(p.Calldata),
		crypto.Keccak256Hash(p.ReplacementPattern),
		p.StaticTarget,
		crypto.Keccak256Hash(p.StaticExtradata),
		p.PaymentToken,
		p.BasePrice,
		p.Extra,
		p.ListingTime,
		p.ExpirationTime,
		p.Salt,
		p.Nonce,
	)
	if err != nil {
		panic("failed to encode order: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}
