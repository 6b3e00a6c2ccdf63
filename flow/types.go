// Package flow models Flow exchange maker orders: constraint-array orders
// with linear start/end pricing and nested collection/token items.
package flow

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nftagg/router-sdk-go/eip712"
)

const (
	ProtocolName    = "FlowExchange"
	ProtocolVersion = "1"
)

// TokenInfo is one tokenId with its unit count.
type TokenInfo struct {
	TokenID   *big.Int
	NumTokens *big.Int
}

// OrderItem groups tokens of one collection.
type OrderItem struct {
	Collection common.Address
	Tokens     []TokenInfo
}

// Constraint slot indexes. Constraints[0..6] =
// [numItems, startPrice, endPrice, startTime, endTime, nonce, maxGasPrice].
const (
	ConstraintNumItems = iota
	ConstraintStartPrice
	ConstraintEndPrice
	ConstraintStartTime
	ConstraintEndTime
	ConstraintNonce
	ConstraintMaxGasPrice
	numConstraints
)

// Params are the canonical order fields. ExecParams is
// [complication, currency].
type Params struct {
	IsSellOrder bool
	Signer      common.Address
	Constraints []*big.Int
	NFTs        []OrderItem
	ExecParams  [2]common.Address
	ExtraParams []byte

	Signature []byte
}

const (
	tokenInfoTypeString = "TokenInfo(uint256 tokenId,uint256 numTokens)"
	orderItemTypeString = "OrderItem(address collection,TokenInfo[] tokens)"
	orderTypeString     = "Order(" +
		"bool isSellOrder,address signer,uint256[] constraints,OrderItem[] nfts," +
		"address[] execParams,bytes extraParams)"
)

var (
	tokenInfoTypeHash = crypto.Keccak256Hash([]byte(tokenInfoTypeString))
	orderItemTypeHash = crypto.Keccak256Hash([]byte(orderItemTypeString + tokenInfoTypeString))
	orderTypeHash     = crypto.Keccak256Hash([]byte(orderTypeString + orderItemTypeString + tokenInfoTypeString))
)

func (t *TokenInfo) hash() common.Hash {
	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
	}
	encoded, err := arguments.Pack(tokenInfoTypeHash, t.TokenID, t.NumTokens)
	if err != nil {
		panic("failed to encode token info: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

func (it *OrderItem) hash() common.Hash {
	concat := make([]byte, 0, len(it.Tokens)*32)
	for i := range it.Tokens {
		concat = append(concat, it.Tokens[i].hash().Bytes()...)
	}
	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeBytes32},
	}
	encoded, err := arguments.Pack(orderItemTypeHash, it.Collection, crypto.Keccak256Hash(concat))
	if err != nil {
		panic("failed to encode order item: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

func (p *Params) structHash() common.Hash {
	constraints := make([]byte, 0, len(p.Constraints)*32)
	for _, c := range p.Constraints {
		constraints = append(constraints, common.BigToHash(c).Bytes()...)
	}

	items := make([]byte, 0, len(p.NFTs)*32)
	for i := range p.NFTs {
		items = append(items, p.NFTs[i].hash().Bytes()...)
	}

	execParams := make([]byte, 0, 40)
	for _, a := range p.ExecParams {
		execParams = append(execParams, a.Bytes()...)
	}

	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeBool},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeBytes32},
	}
	encoded, err := arguments.Pack(
		orderTypeHash,
		p.IsSellOrder,
		p.Signer,
		crypto.Keccak256Hash(constraints),
		crypto.Keccak256Hash(items),
		crypto.Keccak256Hash(execParams),
		crypto.Keccak256Hash(p.ExtraParams),
	)
	if err != nil {
		panic("failed to encode order: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}
