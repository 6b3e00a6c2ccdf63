// Package element models ElementEx ERC-721 sell and buy orders. The struct
// family mirrors the 0x V4 shape with Element's own domain and type names.
package element

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nftagg/router-sdk-go/eip712"
)

const (
	ProtocolName    = "ElementEx"
	ProtocolVersion = "1.0.0"
)

// NativeTokenSentinel marks native-currency settlement in the erc20Token slot.
var NativeTokenSentinel = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// Fee is one fee leg paid by the filler on top of erc20TokenAmount.
type Fee struct {
	Recipient common.Address
	Amount    *big.Int
	FeeData   []byte
}

// Params are the canonical order fields. Side discriminates the struct
// family used for hashing and fill encoding.
type Params struct {
	Maker            common.Address
	Taker            common.Address
	Expiry           *big.Int
	Nonce            *big.Int
	ERC20Token       common.Address
	ERC20TokenAmount *big.Int
	Fees             []Fee
	NFT              common.Address
	NFTID            *big.Int

	Signature []byte
}

const (
	feeTypeString = "Fee(address recipient,uint256 amount,bytes feeData)"

	sellOrderTypeString = "NFTSellOrder(" +
		"address maker,address taker,uint256 expiry,uint256 nonce," +
		"address erc20Token,uint256 erc20TokenAmount,Fee[] fees," +
		"address nft,uint256 nftId)"
	buyOrderTypeString = "NFTBuyOrder(" +
		"address maker,address taker,uint256 expiry,uint256 nonce," +
		"address erc20Token,uint256 erc20TokenAmount,Fee[] fees," +
		"address nft,uint256 nftId)"
)

var (
	feeTypeHash       = crypto.Keccak256Hash([]byte(feeTypeString))
	sellOrderTypeHash = crypto.Keccak256Hash([]byte(sellOrderTypeString + feeTypeString))
	buyOrderTypeHash  = crypto.Keccak256Hash([]byte(buyOrderTypeString + feeTypeString))
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

func hashFees(fees []Fee) common.Hash {
	concat := make([]byte, 0, len(fees)*32)
	for i := range fees {
		concat = append(concat, fees[i].hash().Bytes()...)
	}
	return crypto.Keccak256Hash(concat)
}

func (p *Params) structHash(sell bool) common.Hash {
	typeHash := buyOrderTypeHash
	if sell {
		typeHash = sellOrderTypeHash
	}
	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
	}
	encoded, err := arguments.Pack(
		typeHash,
		p.Maker,
		p.Taker,
		p.Expiry,
		p.Nonce,
		p.ERC20Token,
		p.ERC20TokenAmount,
		hashFees(p.Fees),
		p.NFT,
		p.NFTID,
	)
	if err != nil {
		panic("failed to encode order: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}
