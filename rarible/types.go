// Package rarible models Rarible exchange V2 orders: maker/taker asset
// pairs typed by bytes4 asset classes, matched on chain as order pairs.
package rarible

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nftagg/router-sdk-go/eip712"
)

const (
	ProtocolName    = "Exchange"
	ProtocolVersion = "2"
)

// AssetClass is the leading four bytes of keccak over the class label.
type AssetClass [4]byte

var (
	AssetClassETH        = NewAssetClass("ETH")
	AssetClassERC20      = NewAssetClass("ERC20")
	AssetClassERC721     = NewAssetClass("ERC721")
	AssetClassERC1155    = NewAssetClass("ERC1155")
	AssetClassCollection = NewAssetClass("COLLECTION")
)

func NewAssetClass(label string) AssetClass {
	var c AssetClass
	copy(c[:], crypto.Keccak256([]byte(label))[:4])
	return c
}

// DataType tags the order's payout/royalty payload.
type DataType [4]byte

// DataTypeNone marks an order without payout data.
var DataTypeNone = DataType{0xff, 0xff, 0xff, 0xff}

// AssetType is the class plus class-specific encoding (token address,
// optionally tokenId).
type AssetType struct {
	AssetClass AssetClass
	Data       []byte
}

// Asset is a typed amount.
type Asset struct {
	AssetType AssetType
	Value     *big.Int
}

// Params are the canonical order fields.
type Params struct {
	Maker     common.Address
	MakeAsset Asset
	Taker     common.Address
	TakeAsset Asset
	Salt      *big.Int
	Start     *big.Int
	End       *big.Int
	DataType  DataType
	Data      []byte

	Signature []byte
}

const (
	assetTypeTypeString = "AssetType(bytes4 assetClass,bytes data)"
	assetTypeString     = "Asset(AssetType assetType,uint256 value)"
	orderTypeString     = "Order(" +
		"address maker,Asset makeAsset,address taker,Asset takeAsset," +
		"uint256 salt,uint256 start,uint256 end,bytes4 dataType,bytes data)"
)

var (
	assetTypeTypeHash = crypto.Keccak256Hash([]byte(assetTypeTypeString))
	assetTypeHash     = crypto.Keccak256Hash([]byte(assetTypeString + assetTypeTypeString))
	orderTypeHash     = crypto.Keccak256Hash([]byte(orderTypeString + assetTypeString + assetTypeTypeString))
)

var (
	nftAssetDataArgs = abi.Arguments{
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
	}
	erc20AssetDataArgs = abi.Arguments{
		{Type: eip712.TypeAddress},
	}
)

// EncodeNFTAssetData packs (token, tokenId) for the ERC721/ERC1155 classes.
func EncodeNFTAssetData(token common.Address, tokenID *big.Int) []byte {
	encoded, err := nftAssetDataArgs.Pack(token, tokenID)
	if err != nil {
		panic("failed to encode nft asset data: " + err.Error())
	}
	return encoded
}

// DecodeNFTAssetData unpacks (token, tokenId).
func DecodeNFTAssetData(data []byte) (common.Address, *big.Int, error) {
	values, err := nftAssetDataArgs.Unpack(data)
	if err != nil {
		return common.Address{}, nil, err
	}
	return values[0].(common.Address), values[1].(*big.Int), nil
}

// EncodeERC20AssetData packs the token address for the ERC20 class.
func EncodeERC20AssetData(token common.Address) []byte {
	encoded, err := erc20AssetDataArgs.Pack(token)
	if err != nil {
		panic("failed to encode erc20 asset data: " + err.Error())
	}
	return encoded
}

// DecodeERC20AssetData unpacks the token address.
func DecodeERC20AssetData(data []byte) (common.Address, error) {
	values, err := erc20AssetDataArgs.Unpack(data)
	if err != nil {
		return common.Address{}, err
	}
	return values[0].(common.Address), nil
}

func (t *AssetType) hash() common.Hash {
	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeBytes4},
		{Type: eip712.TypeBytes32},
	}
	encoded, err := arguments.Pack(assetTypeTypeHash, [4]byte(t.AssetClass), crypto.Keccak256Hash(t.Data))
	if err != nil {
		panic("failed to encode asset type: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

func (a *Asset) hash() common.Hash {
	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeUint256},
	}
	encoded, err := arguments.Pack(assetTypeHash, a.AssetType.hash(), a.Value)
	if err != nil {
		panic("failed to encode asset: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

func (p *Params) structHash() common.Hash {
	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeBytes4},
		{Type: eip712.TypeBytes32},
	}
	encoded, err := arguments.Pack(
		orderTypeHash,
		p.Maker,
		p.MakeAsset.hash(),
		p.Taker,
		p.TakeAsset.hash(),
		p.Salt,
		p.Start,
		p.End,
		[4]byte(p.DataType),
		crypto.Keccak256Hash(p.Data),
	)
	if err != nil {
		panic("failed to encode order: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

// StructHash exposes the EIP-712 struct hash for forks sharing the V2
// order shape under their own signing domain.
func (p *Params) StructHash() common.Hash {
	return p.structHash()
}

// HashKey exposes the fill-bookkeeping key for the same forks.
func (p *Params) HashKey() common.Hash {
	return p.hashKey()
}

// hashKey identifies the order in the exchange's fill bookkeeping.
func (p *Params) hashKey() common.Hash {
	arguments := abi.Arguments{
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeUint256},
	}
	encoded, err := arguments.Pack(
		p.Maker,
		p.MakeAsset.AssetType.hash(),
		p.TakeAsset.AssetType.hash(),
		p.Salt,
	)
	if err != nil {
		panic("failed to encode hash key: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}
