package x2y2

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
  {"name":"run","type":"function","stateMutability":"payable","inputs":[
    {"name":"input","type":"bytes"}],"outputs":[]},
  {"name":"cancel","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"itemHashes","type":"bytes32[]"},{"name":"deadline","type":"uint256"},
    {"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}],"outputs":[]},
  {"name":"inventoryStatus","type":"function","stateMutability":"view","inputs":[
    {"name":"","type":"bytes32"}],"outputs":[{"name":"","type":"uint8"}]}
]`

var (
	exchangeABIOnce sync.Once
	exchangeABI     abi.ABI
)

func ExchangeABI() abi.ABI {
	exchangeABIOnce.Do(func() {
		parsed, err := abi.JSON(strings.NewReader(exchangeABIJSON))
		if err != nil {
			panic("failed to parse x2y2 exchange abi: " + err.Error())
		}
		exchangeABI = parsed
	})
	return exchangeABI
}

// Exchange encodes fill and cancel calldata. X2Y2 fills are co-signed by the
// marketplace operator, so the run input arrives pre-assembled from the
// marketplace API rather than being derived from the order alone.
type Exchange struct {
	chainID nftagg.ChainID
	addrs   nftagg.ContractAddresses
}

func NewExchange(chainID nftagg.ChainID) (*Exchange, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.X2Y2 == (common.Address{}) {
		return nil, fmt.Errorf("x2y2: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	return &Exchange{chainID: chainID, addrs: addrs}, nil
}

func (e *Exchange) Address() common.Address {
	return e.addrs.X2Y2
}

// FillTx wraps an operator-signed run input. Value is attached for native
// listings; bids settle in the order currency.
func (e *Exchange) FillTx(taker common.Address, o *Order, runInput []byte) (*nftagg.TxData, error) {
	if len(runInput) == 0 {
		return nil, fmt.Errorf("x2y2: missing run input: %w", nftagg.ErrInvalidParams)
	}
	data, err := ExchangeABI().Pack("run", runInput)
	if err != nil {
		return nil, fmt.Errorf("x2y2: pack run: %w", err)
	}

	value := new(big.Int)
	if o.Side() == nftagg.SideSell && nftagg.IsNative(o.Params.Currency) {
		value.Set(o.Params.Items[0].Price)
	}
	return &nftagg.TxData{From: taker, To: e.addrs.X2Y2, Data: data, Value: value}, nil
}

// CancelTx encodes an operator-countersigned cancellation of item hashes.
func (e *Exchange) CancelTx(maker common.Address, itemHashes []common.Hash, deadline *big.Int, opSig []byte) (*nftagg.TxData, error) {
	if len(itemHashes) == 0 {
		return nil, fmt.Errorf("x2y2: no item hashes: %w", nftagg.ErrInvalidParams)
	}
	if len(opSig) != 65 {
		return nil, fmt.Errorf("x2y2: operator signature must be 65 bytes: %w", nftagg.ErrInvalidSignature)
	}

	hashes := make([][32]byte, len(itemHashes))
	for i, h := range itemHashes {
		hashes[i] = [32]byte(h)
	}
	var r, s [32]byte
	copy(r[:], opSig[:32])
	copy(s[:], opSig[32:64])
	v := opSig[64]
	if v < 27 {
		v += 27
	}

	data, err := ExchangeABI().Pack("cancel", hashes, deadline, v, r, s)
	if err != nil {
		return nil, fmt.Errorf("x2y2: pack cancel: %w", err)
	}
	return &nftagg.TxData{From: maker, To: e.addrs.X2Y2, Data: data, Value: new(big.Int)}, nil
}
