// Package zora wraps the Zora V3 asks module. Asks are on-chain listings
// keyed by (collection, tokenId); there is no signing surface.
package zora

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

const asksABIJSON = `[
  {"name":"createAsk","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"_tokenContract","type":"address"},{"name":"_tokenId","type":"uint256"},
    {"name":"_askPrice","type":"uint256"},{"name":"_askCurrency","type":"address"},
    {"name":"_sellerFundsRecipient","type":"address"},{"name":"_findersFeeBps","type":"uint16"}],"outputs":[]},
  {"name":"fillAsk","type":"function","stateMutability":"payable","inputs":[
    {"name":"_tokenContract","type":"address"},{"name":"_tokenId","type":"uint256"},
    {"name":"_fillCurrency","type":"address"},{"name":"_fillAmount","type":"uint256"},
    {"name":"_finder","type":"address"}],"outputs":[]},
  {"name":"cancelAsk","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"_tokenContract","type":"address"},{"name":"_tokenId","type":"uint256"}],"outputs":[]},
  {"name":"askForNFT","type":"function","stateMutability":"view","inputs":[
    {"name":"","type":"address"},{"name":"","type":"uint256"}],
    "outputs":[
      {"name":"seller","type":"address"},
      {"name":"sellerFundsRecipient","type":"address"},
      {"name":"askCurrency","type":"address"},
      {"name":"findersFeeBps","type":"uint16"},
      {"name":"askPrice","type":"uint256"}]}
]`

var (
	asksABIOnce sync.Once
	asksABI     abi.ABI
)

func AsksABI() abi.ABI {
	asksABIOnce.Do(func() {
		parsed, err := abi.JSON(strings.NewReader(asksABIJSON))
		if err != nil {
			panic("failed to parse zora asks abi: " + err.Error())
		}
		asksABI = parsed
	})
	return asksABI
}

// Ask is an on-chain listing.
type Ask struct {
	ChainID       nftagg.ChainID
	Contract      common.Address
	TokenID       *big.Int
	Seller        common.Address
	Currency      common.Address
	Price         *big.Int
	FindersFeeBps uint16

	addrs nftagg.ContractAddresses
}

// New chain-binds an ask.
func New(chainID nftagg.ChainID, contract common.Address, tokenID, price *big.Int, seller, currency common.Address) (*Ask, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.ZoraAsks == (common.Address{}) {
		return nil, fmt.Errorf("zora: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	if tokenID == nil || price == nil {
		return nil, fmt.Errorf("zora: missing token id or price: %w", nftagg.ErrInvalidParams)
	}
	return &Ask{
		ChainID:  chainID,
		Contract: contract,
		TokenID:  tokenID,
		Seller:   seller,
		Currency: currency,
		Price:    price,
		addrs:    addrs,
	}, nil
}

func (a *Ask) Side() nftagg.Side { return nftagg.SideSell }

func (a *Ask) GetInfo() (*nftagg.OrderInfo, error) {
	return &nftagg.OrderInfo{
		Side:         nftagg.SideSell,
		TokenKind:    nftagg.TokenKindERC721,
		Contract:     a.Contract,
		TokenID:      a.TokenID,
		Amount:       big.NewInt(1),
		PaymentToken: a.Currency,
		Price:        a.Price,
	}, nil
}

func (a *Ask) GetMatchingPrice(_ ...int64) (*big.Int, error) {
	return a.Price, nil
}

// The finders fee comes out of the seller's proceeds.
func (a *Ask) GetFeeAmount() *big.Int {
	return new(big.Int)
}

// CheckFillability reads the module's stored ask and verifies the seller
// still owns and has approved the token to the transfer helper.
func (a *Ask) CheckFillability(ctx context.Context, reader *onchain.Reader) error {
	stored, err := AskForNFT(ctx, reader, a.ChainID, a.Contract, a.TokenID)
	if err != nil {
		return err
	}
	if stored.Seller == (common.Address{}) {
		return fmt.Errorf("zora: no active ask: %w", nftagg.ErrNotFillable)
	}
	if stored.Price.Cmp(a.Price) != 0 || stored.Currency != a.Currency {
		return fmt.Errorf("zora: ask changed: %w", nftagg.ErrNotFillable)
	}
	return reader.EnsureNFTOwnershipAndApproval(ctx,
		nftagg.TokenKindERC721, a.Contract, stored.Seller, a.addrs.ZoraTransferHelper,
		a.TokenID, big.NewInt(1))
}

// AskForNFT reads the stored ask for a token; a zero seller means none.
func AskForNFT(ctx context.Context, reader *onchain.Reader, chainID nftagg.ChainID, contract common.Address, tokenID *big.Int) (*Ask, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.ZoraAsks == (common.Address{}) {
		return nil, fmt.Errorf("zora: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	data, err := AsksABI().Pack("askForNFT", contract, tokenID)
	if err != nil {
		return nil, fmt.Errorf("zora: pack askForNFT: %w", err)
	}
	out, err := reader.Call(ctx, addrs.ZoraAsks, data)
	if err != nil {
		return nil, err
	}
	values, err := AsksABI().Unpack("askForNFT", out)
	if err != nil {
		return nil, fmt.Errorf("zora: unpack askForNFT: %w", err)
	}
	return &Ask{
		ChainID:       chainID,
		Contract:      contract,
		TokenID:       tokenID,
		Seller:        values[0].(common.Address),
		Currency:      values[2].(common.Address),
		FindersFeeBps: values[3].(uint16),
		Price:         values[4].(*big.Int),
		addrs:         addrs,
	}, nil
}

// Exchange encodes asks-module calldata.
type Exchange struct {
	chainID nftagg.ChainID
	addrs   nftagg.ContractAddresses
}

func NewExchange(chainID nftagg.ChainID) (*Exchange, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.ZoraAsks == (common.Address{}) {
		return nil, fmt.Errorf("zora: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	return &Exchange{chainID: chainID, addrs: addrs}, nil
}

func (e *Exchange) Address() common.Address {
	return e.addrs.ZoraAsks
}

// ListTx creates an ask for a token the seller owns.
func (e *Exchange) ListTx(seller common.Address, contract common.Address, tokenID, price *big.Int, currency common.Address, findersFeeBps uint16) (*nftagg.TxData, error) {
	data, err := AsksABI().Pack("createAsk", contract, tokenID, price, currency, seller, findersFeeBps)
	if err != nil {
		return nil, fmt.Errorf("zora: pack createAsk: %w", err)
	}
	return &nftagg.TxData{From: seller, To: e.addrs.ZoraAsks, Data: data, Value: new(big.Int)}, nil
}

// FillTx fills the ask at its stored price and currency.
func (e *Exchange) FillTx(taker common.Address, a *Ask, finder common.Address) (*nftagg.TxData, error) {
	data, err := AsksABI().Pack("fillAsk", a.Contract, a.TokenID, a.Currency, a.Price, finder)
	if err != nil {
		return nil, fmt.Errorf("zora: pack fillAsk: %w", err)
	}
	value := new(big.Int)
	if nftagg.IsNative(a.Currency) {
		value.Set(a.Price)
	}
	return &nftagg.TxData{From: taker, To: e.addrs.ZoraAsks, Data: data, Value: value}, nil
}

// CancelTx removes the ask.
func (e *Exchange) CancelTx(seller common.Address, a *Ask) (*nftagg.TxData, error) {
	data, err := AsksABI().Pack("cancelAsk", a.Contract, a.TokenID)
	if err != nil {
		return nil, fmt.Errorf("zora: pack cancelAsk: %w", err)
	}
	return &nftagg.TxData{From: seller, To: e.addrs.ZoraAsks, Data: data, Value: new(big.Int)}, nil
}
