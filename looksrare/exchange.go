package looksrare

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
  {"name":"matchAskWithTakerBidUsingETHAndWETH","type":"function","stateMutability":"payable","inputs":[
    {"name":"takerBid","type":"tuple","components":[
      {"name":"isOrderAsk","type":"bool"},{"name":"taker","type":"address"},{"name":"price","type":"uint256"},
      {"name":"tokenId","type":"uint256"},{"name":"minPercentageToAsk","type":"uint256"},{"name":"params","type":"bytes"}]},
    {"name":"makerAsk","type":"tuple","components":[
      {"name":"isOrderAsk","type":"bool"},{"name":"signer","type":"address"},{"name":"collection","type":"address"},
      {"name":"price","type":"uint256"},{"name":"tokenId","type":"uint256"},{"name":"amount","type":"uint256"},
      {"name":"strategy","type":"address"},{"name":"currency","type":"address"},{"name":"nonce","type":"uint256"},
      {"name":"startTime","type":"uint256"},{"name":"endTime","type":"uint256"},
      {"name":"minPercentageToAsk","type":"uint256"},{"name":"params","type":"bytes"},
      {"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}]}],"outputs":[]},
  {"name":"matchAskWithTakerBid","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"takerBid","type":"tuple","components":[
      {"name":"isOrderAsk","type":"bool"},{"name":"taker","type":"address"},{"name":"price","type":"uint256"},
      {"name":"tokenId","type":"uint256"},{"name":"minPercentageToAsk","type":"uint256"},{"name":"params","type":"bytes"}]},
    {"name":"makerAsk","type":"tuple","components":[
      {"name":"isOrderAsk","type":"bool"},{"name":"signer","type":"address"},{"name":"collection","type":"address"},
      {"name":"price","type":"uint256"},{"name":"tokenId","type":"uint256"},{"name":"amount","type":"uint256"},
      {"name":"strategy","type":"address"},{"name":"currency","type":"address"},{"name":"nonce","type":"uint256"},
      {"name":"startTime","type":"uint256"},{"name":"endTime","type":"uint256"},
      {"name":"minPercentageToAsk","type":"uint256"},{"name":"params","type":"bytes"},
      {"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}]}],"outputs":[]},
  {"name":"matchBidWithTakerAsk","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"takerAsk","type":"tuple","components":[
      {"name":"isOrderAsk","type":"bool"},{"name":"taker","type":"address"},{"name":"price","type":"uint256"},
      {"name":"tokenId","type":"uint256"},{"name":"minPercentageToAsk","type":"uint256"},{"name":"params","type":"bytes"}]},
    {"name":"makerBid","type":"tuple","components":[
      {"name":"isOrderAsk","type":"bool"},{"name":"signer","type":"address"},{"name":"collection","type":"address"},
      {"name":"price","type":"uint256"},{"name":"tokenId","type":"uint256"},{"name":"amount","type":"uint256"},
      {"name":"strategy","type":"address"},{"name":"currency","type":"address"},{"name":"nonce","type":"uint256"},
      {"name":"startTime","type":"uint256"},{"name":"endTime","type":"uint256"},
      {"name":"minPercentageToAsk","type":"uint256"},{"name":"params","type":"bytes"},
      {"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}]}],"outputs":[]},
  {"name":"cancelMultipleMakerOrders","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"orderNonces","type":"uint256[]"}],"outputs":[]},
  {"name":"cancelAllOrdersForSender","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"minNonce","type":"uint256"}],"outputs":[]},
  {"name":"isUserOrderNonceExecutedOrCancelled","type":"function","stateMutability":"view","inputs":[
    {"name":"user","type":"address"},{"name":"orderNonce","type":"uint256"}],
    "outputs":[{"name":"","type":"bool"}]}
]`

var (
	exchangeABIOnce sync.Once
	exchangeABI     abi.ABI
)

func ExchangeABI() abi.ABI {
	exchangeABIOnce.Do(func() {
		parsed, err := abi.JSON(strings.NewReader(exchangeABIJSON))
		if err != nil {
			panic("failed to parse looksrare exchange abi: " + err.Error())
		}
		exchangeABI = parsed
	})
	return exchangeABI
}

type abiTakerOrder struct {
	IsOrderAsk         bool
	Taker              common.Address
	Price              *big.Int
	TokenId            *big.Int
	MinPercentageToAsk *big.Int
	Params             []byte
}

type abiMakerOrder struct {
	IsOrderAsk         bool
	Signer             common.Address
	Collection         common.Address
	Price              *big.Int
	TokenId            *big.Int
	Amount             *big.Int
	Strategy           common.Address
	Currency           common.Address
	Nonce              *big.Int
	StartTime          *big.Int
	EndTime            *big.Int
	MinPercentageToAsk *big.Int
	Params             []byte
	V                  uint8
	R                  [32]byte
	S                  [32]byte
}

func toAbiMakerOrder(o *Order) (abiMakerOrder, error) {
	if len(o.Params.Signature) != 65 {
		return abiMakerOrder{}, fmt.Errorf("looksrare: signature must be 65 bytes: %w", nftagg.ErrInvalidSignature)
	}
	out := abiMakerOrder{
		IsOrderAsk:         o.Params.IsOrderAsk,
		Signer:             o.Params.Signer,
		Collection:         o.Params.Collection,
		Price:              o.Params.Price,
		TokenId:            o.Params.TokenID,
		Amount:             o.Params.Amount,
		Strategy:           o.Params.Strategy,
		Currency:           o.Params.Currency,
		Nonce:              o.Params.Nonce,
		StartTime:          o.Params.StartTime,
		EndTime:            o.Params.EndTime,
		MinPercentageToAsk: o.Params.MinPercentageToAsk,
		Params:             o.Params.Params,
	}
	if out.Params == nil {
		out.Params = []byte{}
	}
	copy(out.R[:], o.Params.Signature[:32])
	copy(out.S[:], o.Params.Signature[32:64])
	out.V = o.Params.Signature[64]
	if out.V < 27 {
		out.V += 27
	}
	return out, nil
}

func toAbiTakerOrder(t *TakerOrder) abiTakerOrder {
	params := t.Params
	if params == nil {
		params = []byte{}
	}
	return abiTakerOrder{
		IsOrderAsk:         t.IsOrderAsk,
		Taker:              t.Taker,
		Price:              t.Price,
		TokenId:            t.TokenID,
		MinPercentageToAsk: t.MinPercentageToAsk,
		Params:             params,
	}
}

// Exchange encodes match and cancel calldata for a chain's deployment.
type Exchange struct {
	chainID nftagg.ChainID
	addrs   nftagg.ContractAddresses
}

func NewExchange(chainID nftagg.ChainID) (*Exchange, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.LooksRare == (common.Address{}) {
		return nil, fmt.Errorf("looksrare: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	return &Exchange{chainID: chainID, addrs: addrs}, nil
}

func (e *Exchange) Address() common.Address {
	return e.addrs.LooksRare
}

// FillTx matches a maker order with the given taker order. Asks are filled
// through the wrapping entrypoint with native value attached unless
// payWrapped is set; bids settle in the wrapped token only.
func (e *Exchange) FillTx(taker common.Address, o *Order, takerOrder *TakerOrder, payWrapped bool) (*nftagg.TxData, error) {
	if takerOrder == nil {
		return nil, fmt.Errorf("looksrare: missing taker order: %w", nftagg.ErrInvalidParams)
	}
	maker, err := toAbiMakerOrder(o)
	if err != nil {
		return nil, err
	}
	tk := toAbiTakerOrder(takerOrder)

	var (
		data  []byte
		value = new(big.Int)
	)
	switch {
	case o.Params.IsOrderAsk && !payWrapped:
		data, err = ExchangeABI().Pack("matchAskWithTakerBidUsingETHAndWETH", tk, maker)
		value = new(big.Int).Set(o.Params.Price)
	case o.Params.IsOrderAsk:
		data, err = ExchangeABI().Pack("matchAskWithTakerBid", tk, maker)
	default:
		data, err = ExchangeABI().Pack("matchBidWithTakerAsk", tk, maker)
	}
	if err != nil {
		return nil, fmt.Errorf("looksrare: pack fill: %w", err)
	}

	return &nftagg.TxData{From: taker, To: e.addrs.LooksRare, Data: data, Value: value}, nil
}

// CancelTx invalidates specific maker nonces.
func (e *Exchange) CancelTx(maker common.Address, nonces ...*big.Int) (*nftagg.TxData, error) {
	if len(nonces) == 0 {
		return nil, fmt.Errorf("looksrare: no nonces to cancel: %w", nftagg.ErrInvalidParams)
	}
	data, err := ExchangeABI().Pack("cancelMultipleMakerOrders", nonces)
	if err != nil {
		return nil, fmt.Errorf("looksrare: pack cancel: %w", err)
	}
	return &nftagg.TxData{From: maker, To: e.addrs.LooksRare, Data: data, Value: new(big.Int)}, nil
}

// CancelAllTx invalidates every maker nonce below minNonce.
func (e *Exchange) CancelAllTx(maker common.Address, minNonce *big.Int) (*nftagg.TxData, error) {
	data, err := ExchangeABI().Pack("cancelAllOrdersForSender", minNonce)
	if err != nil {
		return nil, fmt.Errorf("looksrare: pack cancel-all: %w", err)
	}
	return &nftagg.TxData{From: maker, To: e.addrs.LooksRare, Data: data, Value: new(big.Int)}, nil
}
