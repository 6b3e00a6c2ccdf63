package flow

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
  {"name":"takeMultipleOneOrders","type":"function","stateMutability":"payable","inputs":[
    {"name":"makerOrders","type":"tuple[]","components":[
      {"name":"isSellOrder","type":"bool"},{"name":"signer","type":"address"},
      {"name":"constraints","type":"uint256[]"},
      {"name":"nfts","type":"tuple[]","components":[
        {"name":"collection","type":"address"},
        {"name":"tokens","type":"tuple[]","components":[
          {"name":"tokenId","type":"uint256"},{"name":"numTokens","type":"uint256"}]}]},
      {"name":"execParams","type":"address[]"},
      {"name":"extraParams","type":"bytes"},
      {"name":"sig","type":"bytes"}]}],"outputs":[]},
  {"name":"cancelMultipleOrders","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"orderNonces","type":"uint256[]"}],"outputs":[]},
  {"name":"cancelAllOrders","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"minNonce","type":"uint256"}],"outputs":[]},
  {"name":"isNonceValid","type":"function","stateMutability":"view","inputs":[
    {"name":"user","type":"address"},{"name":"nonce","type":"uint256"}],
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
			panic("failed to parse flow exchange abi: " + err.Error())
		}
		exchangeABI = parsed
	})
	return exchangeABI
}

type abiTokenInfo struct {
	TokenId   *big.Int
	NumTokens *big.Int
}

type abiOrderItem struct {
	Collection common.Address
	Tokens     []abiTokenInfo
}

type abiMakerOrder struct {
	IsSellOrder bool
	Signer      common.Address
	Constraints []*big.Int
	Nfts        []abiOrderItem
	ExecParams  []common.Address
	ExtraParams []byte
	Sig         []byte
}

func toAbiMakerOrder(o *Order) (abiMakerOrder, error) {
	if len(o.Params.Signature) != 65 {
		return abiMakerOrder{}, fmt.Errorf("flow: signature must be 65 bytes: %w", nftagg.ErrInvalidSignature)
	}
	nfts := make([]abiOrderItem, len(o.Params.NFTs))
	for i, item := range o.Params.NFTs {
		tokens := make([]abiTokenInfo, len(item.Tokens))
		for j, t := range item.Tokens {
			tokens[j] = abiTokenInfo{TokenId: t.TokenID, NumTokens: t.NumTokens}
		}
		nfts[i] = abiOrderItem{Collection: item.Collection, Tokens: tokens}
	}
	return abiMakerOrder{
		IsSellOrder: o.Params.IsSellOrder,
		Signer:      o.Params.Signer,
		Constraints: o.Params.Constraints,
		Nfts:        nfts,
		ExecParams:  o.Params.ExecParams[:],
		ExtraParams: o.Params.ExtraParams,
		Sig:         o.Params.Signature,
	}, nil
}

// Exchange encodes take and cancel calldata.
type Exchange struct {
	chainID nftagg.ChainID
	addrs   nftagg.ContractAddresses
}

func NewExchange(chainID nftagg.ChainID) (*Exchange, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.Flow == (common.Address{}) {
		return nil, fmt.Errorf("flow: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	return &Exchange{chainID: chainID, addrs: addrs}, nil
}

func (e *Exchange) Address() common.Address {
	return e.addrs.Flow
}

// FillTx takes one or more maker orders at their current price. Native
// value is attached for native-currency listings, summed at the given
// timestamp or now.
func (e *Exchange) FillTx(taker common.Address, orders []*Order, timestampOverride ...int64) (*nftagg.TxData, error) {
	if len(orders) == 0 {
		return nil, fmt.Errorf("flow: no orders: %w", nftagg.ErrInvalidParams)
	}
	abiOrders := make([]abiMakerOrder, len(orders))
	value := new(big.Int)
	for i, o := range orders {
		encoded, err := toAbiMakerOrder(o)
		if err != nil {
			return nil, err
		}
		abiOrders[i] = encoded
		if o.Params.IsSellOrder && nftagg.IsNative(o.Params.ExecParams[1]) {
			price, err := o.GetMatchingPrice(timestampOverride...)
			if err != nil {
				return nil, err
			}
			value.Add(value, price)
		}
	}

	data, err := ExchangeABI().Pack("takeMultipleOneOrders", abiOrders)
	if err != nil {
		return nil, fmt.Errorf("flow: pack take: %w", err)
	}
	return &nftagg.TxData{From: taker, To: e.addrs.Flow, Data: data, Value: value}, nil
}

// CancelTx invalidates specific maker nonces.
func (e *Exchange) CancelTx(maker common.Address, nonces ...*big.Int) (*nftagg.TxData, error) {
	if len(nonces) == 0 {
		return nil, fmt.Errorf("flow: no nonces to cancel: %w", nftagg.ErrInvalidParams)
	}
	data, err := ExchangeABI().Pack("cancelMultipleOrders", nonces)
	if err != nil {
		return nil, fmt.Errorf("flow: pack cancel: %w", err)
	}
	return &nftagg.TxData{From: maker, To: e.addrs.Flow, Data: data, Value: new(big.Int)}, nil
}

// CancelAllTx invalidates every maker nonce below minNonce.
func (e *Exchange) CancelAllTx(maker common.Address, minNonce *big.Int) (*nftagg.TxData, error) {
	data, err := ExchangeABI().Pack("cancelAllOrders", minNonce)
	if err != nil {
		return nil, fmt.Errorf("flow: pack cancel-all: %w", err)
	}
	return &nftagg.TxData{From: maker, To: e.addrs.Flow, Data: data, Value: new(big.Int)}, nil
}
