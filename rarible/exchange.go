package rarible

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	nftagg "github.com/nftagg/router-sdk-go"
)

const exchangeABIJSON = `[
  {"name":"matchOrders","type":"function","stateMutability":"payable","inputs":[
    {"name":"orderLeft","type":"tuple","components":[
      {"name":"maker","type":"address"},
      {"name":"makeAsset","type":"tuple","components":[
        {"name":"assetType","type":"tuple","components":[{"name":"assetClass","type":"bytes4"},{"name":"data","type":"bytes"}]},
        {"name":"value","type":"uint256"}]},
      {"name":"taker","type":"address"},
      {"name":"takeAsset","type":"tuple","components":[
        {"name":"assetType","type":"tuple","components":[{"name":"assetClass","type":"bytes4"},{"name":"data","type":"bytes"}]},
        {"name":"value","type":"uint256"}]},
      {"name":"salt","type":"uint256"},{"name":"start","type":"uint256"},{"name":"end","type":"uint256"},
      {"name":"dataType","type":"bytes4"},{"name":"data","type":"bytes"}]},
    {"name":"signatureLeft","type":"bytes"},
    {"name":"orderRight","type":"tuple","components":[
      {"name":"maker","type":"address"},
      {"name":"makeAsset","type":"tuple","components":[
        {"name":"assetType","type":"tuple","components":[{"name":"assetClass","type":"bytes4"},{"name":"data","type":"bytes"}]},
        {"name":"value","type":"uint256"}]},
      {"name":"taker","type":"address"},
      {"name":"takeAsset","type":"tuple","components":[
        {"name":"assetType","type":"tuple","components":[{"name":"assetClass","type":"bytes4"},{"name":"data","type":"bytes"}]},
        {"name":"value","type":"uint256"}]},
      {"name":"salt","type":"uint256"},{"name":"start","type":"uint256"},{"name":"end","type":"uint256"},
      {"name":"dataType","type":"bytes4"},{"name":"data","type":"bytes"}]},
    {"name":"signatureRight","type":"bytes"}],"outputs":[]},
  {"name":"cancel","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"order","type":"tuple","components":[
      {"name":"maker","type":"address"},
      {"name":"makeAsset","type":"tuple","components":[
        {"name":"assetType","type":"tuple","components":[{"name":"assetClass","type":"bytes4"},{"name":"data","type":"bytes"}]},
        {"name":"value","type":"uint256"}]},
      {"name":"taker","type":"address"},
      {"name":"takeAsset","type":"tuple","components":[
        {"name":"assetType","type":"tuple","components":[{"name":"assetClass","type":"bytes4"},{"name":"data","type":"bytes"}]},
        {"name":"value","type":"uint256"}]},
      {"name":"salt","type":"uint256"},{"name":"start","type":"uint256"},{"name":"end","type":"uint256"},
      {"name":"dataType","type":"bytes4"},{"name":"data","type":"bytes"}]}],"outputs":[]},
  {"name":"fills","type":"function","stateMutability":"view","inputs":[
    {"name":"","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var (
	exchangeABIOnce sync.Once
	exchangeABI     abi.ABI
)

func ExchangeABI() abi.ABI {
	exchangeABIOnce.Do(func() {
		parsed, err := abi.JSON(strings.NewReader(exchangeABIJSON))
		if err != nil {
			panic("failed to parse rarible exchange abi: " + err.Error())
		}
		exchangeABI = parsed
	})
	return exchangeABI
}

type abiAssetType struct {
	AssetClass [4]byte
	Data       []byte
}

type abiAsset struct {
	AssetType abiAssetType
	Value     *big.Int
}

type abiOrder struct {
	Maker     common.Address
	MakeAsset abiAsset
	Taker     common.Address
	TakeAsset abiAsset
	Salt      *big.Int
	Start     *big.Int
	End       *big.Int
	DataType  [4]byte
	Data      []byte
}

func toAbiAsset(a *Asset) abiAsset {
	data := a.AssetType.Data
	if data == nil {
		data = []byte{}
	}
	return abiAsset{
		AssetType: abiAssetType{AssetClass: [4]byte(a.AssetType.AssetClass), Data: data},
		Value:     a.Value,
	}
}

func toAbiOrder(p *Params) abiOrder {
	data := p.Data
	if data == nil {
		data = []byte{}
	}
	return abiOrder{
		Maker:     p.Maker,
		MakeAsset: toAbiAsset(&p.MakeAsset),
		Taker:     p.Taker,
		TakeAsset: toAbiAsset(&p.TakeAsset),
		Salt:      p.Salt,
		Start:     p.Start,
		End:       p.End,
		DataType:  [4]byte(p.DataType),
		Data:      data,
	}
}

// PackMatchOrders encodes a matchOrders call for this struct family. Forks
// that keep the V2 order shape share the encoding.
func PackMatchOrders(left *Params, sigLeft []byte, right *Params, sigRight []byte) ([]byte, error) {
	if sigRight == nil {
		sigRight = []byte{}
	}
	return ExchangeABI().Pack("matchOrders", toAbiOrder(left), sigLeft, toAbiOrder(right), sigRight)
}

// PackCancel encodes a cancel call for this struct family.
func PackCancel(p *Params) ([]byte, error) {
	return ExchangeABI().Pack("cancel", toAbiOrder(p))
}

// PackFills encodes the fills bookkeeping read.
func PackFills(key common.Hash) ([]byte, error) {
	return ExchangeABI().Pack("fills", key)
}

// UnpackFills decodes the fills result.
func UnpackFills(out []byte) (*big.Int, error) {
	values, err := ExchangeABI().Unpack("fills", out)
	if err != nil {
		return nil, err
	}
	return values[0].(*big.Int), nil
}

// Exchange encodes match and cancel calldata.
type Exchange struct {
	chainID nftagg.ChainID
	addrs   nftagg.ContractAddresses
}

func NewExchange(chainID nftagg.ChainID) (*Exchange, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.Rarible == (common.Address{}) {
		return nil, fmt.Errorf("rarible: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	return &Exchange{chainID: chainID, addrs: addrs}, nil
}

func (e *Exchange) Address() common.Address {
	return e.addrs.Rarible
}

// FillTx matches the maker order against its mirrored taker order. The
// taker side rides unsigned: the exchange accepts a zero-length signature
// when the taker is the transaction sender.
func (e *Exchange) FillTx(taker common.Address, o *Order, match *Order) (*nftagg.TxData, error) {
	if match == nil {
		return nil, fmt.Errorf("rarible: missing matching order: %w", nftagg.ErrInvalidParams)
	}
	if len(o.Params.Signature) != 65 {
		return nil, fmt.Errorf("rarible: signature must be 65 bytes: %w", nftagg.ErrInvalidSignature)
	}

	data, err := ExchangeABI().Pack("matchOrders",
		toAbiOrder(&o.Params), o.Params.Signature,
		toAbiOrder(&match.Params), []byte{})
	if err != nil {
		return nil, fmt.Errorf("rarible: pack matchOrders: %w", err)
	}

	value := new(big.Int)
	if o.Side() == nftagg.SideSell && o.Params.TakeAsset.AssetType.AssetClass == AssetClassETH {
		value.Set(o.Params.TakeAsset.Value)
	}
	return &nftagg.TxData{From: taker, To: e.Address(), Data: data, Value: value}, nil
}

// CancelTx voids the order on chain; only the maker may send it.
func (e *Exchange) CancelTx(maker common.Address, o *Order) (*nftagg.TxData, error) {
	data, err := ExchangeABI().Pack("cancel", toAbiOrder(&o.Params))
	if err != nil {
		return nil, fmt.Errorf("rarible: pack cancel: %w", err)
	}
	return &nftagg.TxData{From: maker, To: e.Address(), Data: data, Value: new(big.Int)}, nil
}
