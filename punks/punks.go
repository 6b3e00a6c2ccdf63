// Package punks wraps the CryptoPunks marketplace built into the punks
// contract itself: pre-ERC721 offers stored on chain, no signatures.
package punks

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	nftagg "github.com/nftagg/router-sdk-go"
	"github.com/nftagg/router-sdk-go/onchain"
)

const marketABIJSON = `[
  {"name":"offerPunkForSale","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"punkIndex","type":"uint256"},{"name":"minSalePriceInWei","type":"uint256"}],"outputs":[]},
  {"name":"offerPunkForSaleToAddress","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"punkIndex","type":"uint256"},{"name":"minSalePriceInWei","type":"uint256"},
    {"name":"toAddress","type":"address"}],"outputs":[]},
  {"name":"buyPunk","type":"function","stateMutability":"payable","inputs":[
    {"name":"punkIndex","type":"uint256"}],"outputs":[]},
  {"name":"punkNoLongerForSale","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"punkIndex","type":"uint256"}],"outputs":[]},
  {"name":"punksOfferedForSale","type":"function","stateMutability":"view","inputs":[
    {"name":"","type":"uint256"}],
    "outputs":[
      {"name":"isForSale","type":"bool"},
      {"name":"punkIndex","type":"uint256"},
      {"name":"seller","type":"address"},
      {"name":"minValue","type":"uint256"},
      {"name":"onlySellTo","type":"address"}]}
]`

var (
	marketABIOnce sync.Once
	marketABI     abi.ABI
)

func MarketABI() abi.ABI {
	marketABIOnce.Do(func() {
		parsed, err := abi.JSON(strings.NewReader(marketABIJSON))
		if err != nil {
			panic("failed to parse punks market abi: " + err.Error())
		}
		marketABI = parsed
	})
	return marketABI
}

// Offer is a punk listed for sale, optionally to a single buyer.
type Offer struct {
	ChainID    nftagg.ChainID
	PunkIndex  *big.Int
	Seller     common.Address
	Price      *big.Int
	OnlySellTo common.Address

	addrs nftagg.ContractAddresses
}

// New chain-binds an offer.
func New(chainID nftagg.ChainID, punkIndex, price *big.Int, seller common.Address) (*Offer, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.CryptoPunks == (common.Address{}) {
		return nil, fmt.Errorf("punks: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	if punkIndex == nil || price == nil {
		return nil, fmt.Errorf("punks: missing punk index or price: %w", nftagg.ErrInvalidParams)
	}
	return &Offer{
		ChainID:   chainID,
		PunkIndex: punkIndex,
		Seller:    seller,
		Price:     price,
		addrs:     addrs,
	}, nil
}

func (o *Offer) Side() nftagg.Side { return nftagg.SideSell }

func (o *Offer) GetInfo() (*nftagg.OrderInfo, error) {
	return &nftagg.OrderInfo{
		Side:         nftagg.SideSell,
		TokenKind:    nftagg.TokenKindERC721,
		Contract:     o.addrs.CryptoPunks,
		TokenID:      o.PunkIndex,
		Amount:       big.NewInt(1),
		PaymentToken: nftagg.NativeToken,
		Price:        o.Price,
	}, nil
}

func (o *Offer) GetMatchingPrice(_ ...int64) (*big.Int, error) {
	return o.Price, nil
}

func (o *Offer) GetFeeAmount() *big.Int {
	return new(big.Int)
}

// CheckFillability reads the stored offer. Private offers fail for takers
// other than the allowed buyer, which the caller checks via OnlySellTo.
func (o *Offer) CheckFillability(ctx context.Context, reader *onchain.Reader) error {
	stored, err := OfferForPunk(ctx, reader, o.ChainID, o.PunkIndex)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("punks: punk not for sale: %w", nftagg.ErrNotFillable)
	}
	if stored.Price.Cmp(o.Price) != 0 {
		return fmt.Errorf("punks: offer price changed: %w", nftagg.ErrNotFillable)
	}
	if o.Seller != (common.Address{}) && stored.Seller != o.Seller {
		return fmt.Errorf("punks: offer seller changed: %w", nftagg.ErrNotFillable)
	}
	o.OnlySellTo = stored.OnlySellTo
	return nil
}

// OfferForPunk reads the stored offer for a punk; nil means not for sale.
func OfferForPunk(ctx context.Context, reader *onchain.Reader, chainID nftagg.ChainID, punkIndex *big.Int) (*Offer, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.CryptoPunks == (common.Address{}) {
		return nil, fmt.Errorf("punks: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	data, err := MarketABI().Pack("punksOfferedForSale", punkIndex)
	if err != nil {
		return nil, fmt.Errorf("punks: pack punksOfferedForSale: %w", err)
	}
	out, err := reader.Call(ctx, addrs.CryptoPunks, data)
	if err != nil {
		return nil, err
	}
	values, err := MarketABI().Unpack("punksOfferedForSale", out)
	if err != nil {
		return nil, fmt.Errorf("punks: unpack punksOfferedForSale: %w", err)
	}
	if !values[0].(bool) {
		return nil, nil
	}
	return &Offer{
		ChainID:    chainID,
		PunkIndex:  values[1].(*big.Int),
		Seller:     values[2].(common.Address),
		Price:      values[3].(*big.Int),
		OnlySellTo: values[4].(common.Address),
		addrs:      addrs,
	}, nil
}

// Exchange encodes punk market calldata.
type Exchange struct {
	chainID nftagg.ChainID
	addrs   nftagg.ContractAddresses
}

func NewExchange(chainID nftagg.ChainID) (*Exchange, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.CryptoPunks == (common.Address{}) {
		return nil, fmt.Errorf("punks: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	return &Exchange{chainID: chainID, addrs: addrs}, nil
}

func (e *Exchange) Address() common.Address {
	return e.addrs.CryptoPunks
}

// ListTx offers a punk for sale, optionally restricted to one buyer.
func (e *Exchange) ListTx(seller common.Address, punkIndex, minPrice *big.Int, onlySellTo common.Address) (*nftagg.TxData, error) {
	var (
		data []byte
		err  error
	)
	if onlySellTo == (common.Address{}) {
		data, err = MarketABI().Pack("offerPunkForSale", punkIndex, minPrice)
	} else {
		data, err = MarketABI().Pack("offerPunkForSaleToAddress", punkIndex, minPrice, onlySellTo)
	}
	if err != nil {
		return nil, fmt.Errorf("punks: pack offer: %w", err)
	}
	return &nftagg.TxData{From: seller, To: e.addrs.CryptoPunks, Data: data, Value: new(big.Int)}, nil
}

// FillTx buys the punk at the offer price.
func (e *Exchange) FillTx(taker common.Address, o *Offer) (*nftagg.TxData, error) {
	if o.OnlySellTo != (common.Address{}) && o.OnlySellTo != taker {
		return nil, fmt.Errorf("punks: offer restricted to %s: %w", o.OnlySellTo, nftagg.ErrNotFillable)
	}
	data, err := MarketABI().Pack("buyPunk", o.PunkIndex)
	if err != nil {
		return nil, fmt.Errorf("punks: pack buyPunk: %w", err)
	}
	return &nftagg.TxData{
		From:  taker,
		To:    e.addrs.CryptoPunks,
		Data:  data,
		Value: new(big.Int).Set(o.Price),
	}, nil
}

// CancelTx withdraws the offer.
func (e *Exchange) CancelTx(seller common.Address, o *Offer) (*nftagg.TxData, error) {
	data, err := MarketABI().Pack("punkNoLongerForSale", o.PunkIndex)
	if err != nil {
		return nil, fmt.Errorf("punks: pack punkNoLongerForSale: %w", err)
	}
	return &nftagg.TxData{From: seller, To: e.addrs.CryptoPunks, Data: data, Value: new(big.Int)}, nil
}
