// Package foundation wraps Foundation market buy-now listings. Listings
// live entirely on chain, so there is no signing surface: the order model
// is the (seller, price) pair the market stores per token.
package foundation

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
  {"name":"setBuyPrice","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"nftContract","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"price","type":"uint256"}],"outputs":[]},
  {"name":"buyV2","type":"function","stateMutability":"payable","inputs":[
    {"name":"nftContract","type":"address"},{"name":"tokenId","type":"uint256"},
    {"name":"maxPrice","type":"uint256"},{"name":"referrer","type":"address"}],"outputs":[]},
  {"name":"cancelBuyPrice","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"nftContract","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]},
  {"name":"getBuyPrice","type":"function","stateMutability":"view","inputs":[
    {"name":"nftContract","type":"address"},{"name":"tokenId","type":"uint256"}],
    "outputs":[{"name":"seller","type":"address"},{"name":"price","type":"uint256"}]}
]`

var (
	marketABIOnce sync.Once
	marketABI     abi.ABI
)

func MarketABI() abi.ABI {
	marketABIOnce.Do(func() {
		parsed, err := abi.JSON(strings.NewReader(marketABIJSON))
		if err != nil {
			panic("failed to parse foundation market abi: " + err.Error())
		}
		marketABI = parsed
	})
	return marketABI
}

// Listing is a buy-now price set by the token owner.
type Listing struct {
	ChainID  nftagg.ChainID
	Contract common.Address
	TokenID  *big.Int
	Seller   common.Address
	Price    *big.Int

	addrs nftagg.ContractAddresses
}

// New chain-binds a listing.
func New(chainID nftagg.ChainID, contract common.Address, tokenID, price *big.Int, seller common.Address) (*Listing, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.Foundation == (common.Address{}) {
		return nil, fmt.Errorf("foundation: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	if tokenID == nil || price == nil {
		return nil, fmt.Errorf("foundation: missing token id or price: %w", nftagg.ErrInvalidParams)
	}
	return &Listing{
		ChainID:  chainID,
		Contract: contract,
		TokenID:  tokenID,
		Seller:   seller,
		Price:    price,
		addrs:    addrs,
	}, nil
}

func (l *Listing) Side() nftagg.Side { return nftagg.SideSell }

func (l *Listing) GetInfo() (*nftagg.OrderInfo, error) {
	return &nftagg.OrderInfo{
		Side:         nftagg.SideSell,
		TokenKind:    nftagg.TokenKindERC721,
		Contract:     l.Contract,
		TokenID:      l.TokenID,
		Amount:       big.NewInt(1),
		PaymentToken: nftagg.NativeToken,
		Price:        l.Price,
	}, nil
}

func (l *Listing) GetMatchingPrice(_ ...int64) (*big.Int, error) {
	return l.Price, nil
}

// Protocol fees are taken from the seller's proceeds on chain.
func (l *Listing) GetFeeAmount() *big.Int {
	return new(big.Int)
}

// CheckFillability reads the market's stored price. The market escrows the
// NFT while listed, so no separate ownership check applies.
func (l *Listing) CheckFillability(ctx context.Context, reader *onchain.Reader) error {
	seller, price, err := BuyPrice(ctx, reader, l.ChainID, l.Contract, l.TokenID)
	if err != nil {
		return err
	}
	if seller == (common.Address{}) {
		return fmt.Errorf("foundation: no active listing: %w", nftagg.ErrNotFillable)
	}
	if l.Seller != (common.Address{}) && seller != l.Seller {
		return fmt.Errorf("foundation: listing seller changed: %w", nftagg.ErrNotFillable)
	}
	if price.Cmp(l.Price) != 0 {
		return fmt.Errorf("foundation: listing price changed: %w", nftagg.ErrNotFillable)
	}
	return nil
}

// BuyPrice reads the active listing for a token; a zero seller means none.
func BuyPrice(ctx context.Context, reader *onchain.Reader, chainID nftagg.ChainID, contract common.Address, tokenID *big.Int) (common.Address, *big.Int, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return common.Address{}, nil, err
	}
	if addrs.Foundation == (common.Address{}) {
		return common.Address{}, nil, fmt.Errorf("foundation: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	data, err := MarketABI().Pack("getBuyPrice", contract, tokenID)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("foundation: pack getBuyPrice: %w", err)
	}
	out, err := reader.Call(ctx, addrs.Foundation, data)
	if err != nil {
		return common.Address{}, nil, err
	}
	values, err := MarketABI().Unpack("getBuyPrice", out)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("foundation: unpack getBuyPrice: %w", err)
	}
	return values[0].(common.Address), values[1].(*big.Int), nil
}

// Exchange encodes market calldata.
type Exchange struct {
	chainID nftagg.ChainID
	addrs   nftagg.ContractAddresses
}

func NewExchange(chainID nftagg.ChainID) (*Exchange, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.Foundation == (common.Address{}) {
		return nil, fmt.Errorf("foundation: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	return &Exchange{chainID: chainID, addrs: addrs}, nil
}

func (e *Exchange) Address() common.Address {
	return e.addrs.Foundation
}

// ListTx sets a buy-now price; the market pulls the NFT into escrow.
func (e *Exchange) ListTx(seller common.Address, contract common.Address, tokenID, price *big.Int) (*nftagg.TxData, error) {
	data, err := MarketABI().Pack("setBuyPrice", contract, tokenID, price)
	if err != nil {
		return nil, fmt.Errorf("foundation: pack setBuyPrice: %w", err)
	}
	return &nftagg.TxData{From: seller, To: e.addrs.Foundation, Data: data, Value: new(big.Int)}, nil
}

// FillTx buys the listed token at its stored price, capped by maxPrice.
func (e *Exchange) FillTx(taker common.Address, l *Listing, referrer common.Address) (*nftagg.TxData, error) {
	data, err := MarketABI().Pack("buyV2", l.Contract, l.TokenID, l.Price, referrer)
	if err != nil {
		return nil, fmt.Errorf("foundation: pack buyV2: %w", err)
	}
	return &nftagg.TxData{
		From:  taker,
		To:    e.addrs.Foundation,
		Data:  data,
		Value: new(big.Int).Set(l.Price),
	}, nil
}

// CancelTx removes the buy-now price and returns the NFT from escrow.
func (e *Exchange) CancelTx(seller common.Address, l *Listing) (*nftagg.TxData, error) {
	data, err := MarketABI().Pack("cancelBuyPrice", l.Contract, l.TokenID)
	if err != nil {
		return nil, fmt.Errorf("foundation: pack cancelBuyPrice: %w", err)
	}
	return &nftagg.TxData{From: seller, To: e.addrs.Foundation, Data: data, Value: new(big.Int)}, nil
}
