package forward

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
  {"name":"fill","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"details","type":"tuple","components":[
      {"name":"order","type":"tuple","components":[
        {"name":"itemKind","type":"uint8"},{"name":"maker","type":"address"},{"name":"token","type":"address"},
        {"name":"identifierOrCriteria","type":"uint256"},{"name":"unitPrice","type":"uint256"},
        {"name":"amount","type":"uint128"},{"name":"salt","type":"uint256"},
        {"name":"expiration","type":"uint256"},{"name":"counter","type":"uint256"}]},
      {"name":"signature","type":"bytes"},
      {"name":"fillAmount","type":"uint128"}]}],"outputs":[]},
  {"name":"fillWithCriteria","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"details","type":"tuple","components":[
      {"name":"order","type":"tuple","components":[
        {"name":"itemKind","type":"uint8"},{"name":"maker","type":"address"},{"name":"token","type":"address"},
        {"name":"identifierOrCriteria","type":"uint256"},{"name":"unitPrice","type":"uint256"},
        {"name":"amount","type":"uint128"},{"name":"salt","type":"uint256"},
        {"name":"expiration","type":"uint256"},{"name":"counter","type":"uint256"}]},
      {"name":"signature","type":"bytes"},
      {"name":"fillAmount","type":"uint128"}]},
    {"name":"identifier","type":"uint256"},
    {"name":"criteriaProof","type":"bytes32[]"}],"outputs":[]},
  {"name":"cancel","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"orders","type":"tuple[]","components":[
      {"name":"itemKind","type":"uint8"},{"name":"maker","type":"address"},{"name":"token","type":"address"},
      {"name":"identifierOrCriteria","type":"uint256"},{"name":"unitPrice","type":"uint256"},
      {"name":"amount","type":"uint128"},{"name":"salt","type":"uint256"},
      {"name":"expiration","type":"uint256"},{"name":"counter","type":"uint256"}]}],"outputs":[]},
  {"name":"incrementCounter","type":"function","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"name":"counters","type":"function","stateMutability":"view","inputs":[
    {"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"name":"orderStatuses","type":"function","stateMutability":"view","inputs":[
    {"name":"","type":"bytes32"}],
    "outputs":[{"name":"cancelled","type":"bool"},{"name":"filledAmount","type":"uint128"}]}
]`

var (
	exchangeABIOnce sync.Once
	exchangeABI     abi.ABI
)

func ExchangeABI() abi.ABI {
	exchangeABIOnce.Do(func() {
		parsed, err := abi.JSON(strings.NewReader(exchangeABIJSON))
		if err != nil {
			panic("failed to parse forward exchange abi: " + err.Error())
		}
		exchangeABI = parsed
	})
	return exchangeABI
}

type abiOrder struct {
	ItemKind             uint8
	Maker                common.Address
	Token                common.Address
	IdentifierOrCriteria *big.Int
	UnitPrice            *big.Int
	Amount               *big.Int
	Salt                 *big.Int
	Expiration           *big.Int
	Counter              *big.Int
}

type abiFillDetails struct {
	Order      abiOrder
	Signature  []byte
	FillAmount *big.Int
}

func toAbiOrder(p *Params) abiOrder {
	return abiOrder{
		ItemKind:             uint8(p.ItemKind),
		Maker:                p.Maker,
		Token:                p.Token,
		IdentifierOrCriteria: p.IdentifierOrCriteria,
		UnitPrice:            p.UnitPrice,
		Amount:               p.Amount,
		Salt:                 p.Salt,
		Expiration:           p.Expiration,
		Counter:              p.Counter,
	}
}

// Exchange encodes fill and cancel calldata.
type Exchange struct {
	chainID nftagg.ChainID
	addrs   nftagg.ContractAddresses
}

func NewExchange(chainID nftagg.ChainID) (*Exchange, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.Forward == (common.Address{}) {
		return nil, fmt.Errorf("forward: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	return &Exchange{chainID: chainID, addrs: addrs}, nil
}

func (e *Exchange) Address() common.Address {
	return e.addrs.Forward
}

// FillTx fills the bid from the seller's side. Criteria bids route through
// the proof-checked entrypoint.
func (e *Exchange) FillTx(taker common.Address, o *Order, match *MatchParams) (*nftagg.TxData, error) {
	if match == nil {
		return nil, fmt.Errorf("forward: missing match params: %w", nftagg.ErrInvalidParams)
	}
	if len(o.Params.Signature) != 65 {
		return nil, fmt.Errorf("forward: signature must be 65 bytes: %w", nftagg.ErrInvalidSignature)
	}

	details := abiFillDetails{
		Order:      toAbiOrder(&o.Params),
		Signature:  o.Params.Signature,
		FillAmount: match.Amount,
	}

	var (
		data []byte
		err  error
	)
	if o.Params.ItemKind.isCriteria() {
		proof := make([][32]byte, len(match.CriteriaProof))
		for i, h := range match.CriteriaProof {
			proof[i] = [32]byte(h)
		}
		data, err = ExchangeABI().Pack("fillWithCriteria", details, match.TokenID, proof)
	} else {
		data, err = ExchangeABI().Pack("fill", details)
	}
	if err != nil {
		return nil, fmt.Errorf("forward: pack fill: %w", err)
	}
	return &nftagg.TxData{From: taker, To: e.addrs.Forward, Data: data, Value: new(big.Int)}, nil
}

// CancelTx voids the given bids; only the maker may send it.
func (e *Exchange) CancelTx(maker common.Address, orders ...*Order) (*nftagg.TxData, error) {
	if len(orders) == 0 {
		return nil, fmt.Errorf("forward: no orders to cancel: %w", nftagg.ErrInvalidParams)
	}
	abiOrders := make([]abiOrder, len(orders))
	for i, o := range orders {
		abiOrders[i] = toAbiOrder(&o.Params)
	}
	data, err := ExchangeABI().Pack("cancel", abiOrders)
	if err != nil {
		return nil, fmt.Errorf("forward: pack cancel: %w", err)
	}
	return &nftagg.TxData{From: maker, To: e.addrs.Forward, Data: data, Value: new(big.Int)}, nil
}

// IncrementCounterTx bulk-cancels every outstanding bid of the sender.
func (e *Exchange) IncrementCounterTx(maker common.Address) (*nftagg.TxData, error) {
	data, err := ExchangeABI().Pack("incrementCounter")
	if err != nil {
		return nil, fmt.Errorf("forward: pack incrementCounter: %w", err)
	}
	return &nftagg.TxData{From: maker, To: e.addrs.Forward, Data: data, Value: new(big.Int)}, nil
}
