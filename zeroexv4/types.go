// Package zeroexv4 models ZeroEx V4 NFT orders: flat ERC721/ERC1155 order
// structs with fee and property arrays, nonce-based cancellation and partial
// ERC-1155 fills.
package zeroexv4

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nftagg/router-sdk-go/eip712"
)

const (
	ProtocolName    = "ZeroEx"
	ProtocolVersion = "1.0.0"
)

// NativeTokenSentinel marks native-currency settlement in the erc20Token slot.
var NativeTokenSentinel = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Direction is the maker's side: 0 sells the NFT, 1 buys it.
type Direction uint8

const (
	DirectionSell Direction = iota
	DirectionBuy
)

// Fee is one fee leg, paid by the filler on top of erc20TokenAmount.
type Fee struct {
	Recipient common.Address
	Amount    *big.Int
	FeeData   []byte
}

// Property constrains which tokenIds satisfy a collection bid. A zero
// validator with empty data accepts any token of the collection.
type Property struct {
	PropertyValidator common.Address
	PropertyData      []byte
}

// Params are the canonical order fields, shared between the ERC721 and
// ERC1155 struct families; NFTTokenAmount is nil for ERC721 orders.
type Params struct {
	Direction        Direction
	Maker            common.Address
	Taker            common.Address
	Expiry           *big.Int
	Nonce            *big.Int
	ERC20Token       common.Address
	ERC20TokenAmount *big.Int
	Fees             []Fee
	NFTToken         common.Address
	NFTTokenID       *big.Int
	NFTProperties    []Property
	NFTTokenAmount   *big.Int
	Signature        []byte
}

const (
	feeTypeString      = "Fee(address recipient,uint256 amount,bytes feeData)"
	propertyTypeString = "Property(address propertyValidator,bytes propertyData)"

	erc721OrderTypeString = "ERC721Order(" +
		"uint8 direction,address maker,address taker,uint256 expiry,uint256 nonce," +
		"address erc20Token,uint256 erc20TokenAmount,Fee[] fees," +
		"address erc721Token,uint256 erc721TokenId,Property[] erc721TokenProperties)"
	erc1155OrderTypeString = "ERC1155Order(" +
		"uint8 direction,address maker,address taker,uint256 expiry,uint256 nonce," +
		"address erc20Token,uint256 erc20TokenAmount,Fee[] fees," +
		"address erc1155Token,uint256 erc1155TokenId,Property[] erc1155TokenProperties," +
		"uint128 erc1155TokenAmount)"
)

var (
	feeTypeHash      = crypto.Keccak256Hash([]byte(feeTypeString))
	propertyTypeHash = crypto.Keccak256Hash([]byte(propertyTypeString))

	erc721OrderTypeHash  = crypto.Keccak256Hash([]byte(erc721OrderTypeString + feeTypeString + propertyTypeString))
	erc1155OrderTypeHash = crypto.Keccak256Hash([]byte(erc1155OrderTypeString + feeTypeString + propertyTypeString))
)

func (f *Fee) hash() common.Hash {
	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeBytes32},
	}
	encoded, err := arguments.Pack(feeTypeHash, f.Recipient, f.Amount, crypto.Keccak256Hash(f.FeeData))
	if err != nil {
		panic("failed to encode fee: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

func (p *Property) hash() common.Hash {
	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeBytes32},
	}
	encoded, err := arguments.Pack(propertyTypeHash, p.PropertyValidator, crypto.Keccak256Hash(p.PropertyData))
	if err != nil {
		panic("failed to encode property: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

func hashFees(fees []Fee) common.Hash {
	concat := make([]byte, 0, len(fees)*32)
	for i := range fees {
		concat = append(concat, fees[i].hash().Bytes()...)
	}
	return crypto.Keccak256Hash(concat)
}

func hashProperties(props []Property) common.Hash {
	concat := make([]byte, 0, len(props)*32)
	for i := range props {
		concat = append(concat, props[i].hash().Bytes()...)
	}
	return crypto.Keccak256Hash(concat)
}

func (p *Params) structHash() common.Hash {
	if p.NFTTokenAmount != nil {
		arguments := abi.Arguments{
			{Type: eip712.TypeBytes32},
			{Type: eip712.TypeUint8},
			{Type: eip712.TypeAddress},
			{Type: eip712.TypeAddress},
			{Type: eip712.TypeUint256},
			{Type: eip712.TypeUint256},
			{Type: eip712.TypeAddress},
			{Type: eip712.TypeUint256},
			{Type: eip712.TypeBytes32},
			{Type: eip712.TypeAddress},
			{Type: eip712.TypeUint256},
			{Type: eip712.TypeBytes32},
			{Type: eip712.TypeUint256},
		}
		encoded, err := arguments.Pack(
			erc1155OrderTypeHash,
			uint8(p.Direction),
			p.Maker,
			p.Taker,
			p.Expiry,
			p.Nonce,
			p.ERC20Token,
			p.ERC20TokenAmount,
			hashFees(p.Fees),
			p.NFTToken,
			p.NFTTokenID,
			hashProperties(p.NFTProperties),
			p.NFTTokenAmount,
		)
		if err != nil {
			panic("failed to encode erc1155 order: " + err.Error())
		}
		return crypto.Keccak256Hash(encoded)
	}

	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeUint8},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeBytes32},
	}
	encoded, err := arguments.Pack(
		erc721OrderTypeHash,
		uint8(p.Direction),
		p.Maker,
		p.Taker,
		p.Expiry,
		p.Nonce,
		p.ERC20Token,
		p.ERC20TokenAmount,
		hashFees(p.Fees),
		p.NFTToken,
		p.NFTTokenID,
		hashProperties(p.NFTProperties),
	)
	if err != nil {
		panic("failed to encode erc721 order: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}
