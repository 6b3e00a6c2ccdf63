// Package looksrare models LooksRare v1 maker/taker orders. Maker orders
// are flat structs routed through strategy contracts; the standard-sale
// strategy pins one tokenId, the collection strategy accepts any token.
package looksrare

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nftagg/router-sdk-go/eip712"
)

const (
	ProtocolName    = "LooksRareExchange"
	ProtocolVersion = "1"
)

// DefaultMinPercentageToAsk protects the maker from royalty changes between
// signing and execution: the maker must receive at least 85% of price.
const DefaultMinPercentageToAsk = 8500

// MakerOrder is the signed order struct.
type MakerOrder struct {
	IsOrderAsk         bool
	Signer             common.Address
	Collection         common.Address
	Price              *big.Int
	TokenID            *big.Int
	Amount             *big.Int
	Strategy           common.Address
	Currency           common.Address
	Nonce              *big.Int
	StartTime          *big.Int
	EndTime            *big.Int
	MinPercentageToAsk *big.Int
	Params             []byte

	Signature []byte
}

// TakerOrder is built at fill time and never signed.
type TakerOrder struct {
	IsOrderAsk         bool
	Taker              common.Address
	Price              *big.Int
	TokenID            *big.Int
	MinPercentageToAsk *big.Int
	Params             []byte
}

const makerOrderTypeString = "MakerOrder(" +
	"bool isOrderAsk,address signer,address collection,uint256 price,uint256 tokenId,uint256 amount," +
	"address strategy,address currency,uint256 nonce,uint256 startTime,uint256 endTime," +
	"uint256 minPercentageToAsk,bytes params)"

var makerOrderTypeHash = crypto.Keccak256Hash([]byte(makerOrderTypeString))

func (m *MakerOrder) structHash() common.Hash {
	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeBool},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeBytes32},
	}
	encoded, err := arguments.Pack(
		makerOrderTypeHash,
		m.IsOrderAsk,
		m.Signer,
		m.Collection,
		m.Price,
		m.TokenID,
		m.Amount,
		m.Strategy,
		m.Currency,
		m.Nonce,
		m.StartTime,
		m.EndTime,
		m.MinPercentageToAsk,
		crypto.Keccak256Hash(m.Params),
	)
	if err != nil {
		panic("failed to encode maker order: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}
