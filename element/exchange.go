package element

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
  {"name":"buyERC721","type":"function","stateMutability":"payable","inputs":[
    {"name":"sellOrder","type":"tuple","components":[
      {"name":"maker","type":"address"},{"name":"taker","type":"address"},
      {"name":"expiry","type":"uint256"},{"name":"nonce","type":"uint256"},
      {"name":"erc20Token","type":"address"},{"name":"erc20TokenAmount","type":"uint256"},
      {"name":"fees","type":"tuple[]","components":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"},{"name":"feeData","type":"bytes"}]},
      {"name":"nft","type":"address"},{"name":"nftId","type":"uint256"}]},
    {"name":"signature","type":"tuple","components":[
      {"name":"signatureType","type":"uint8"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}]}],"outputs":[]},
  {"name":"sellERC721","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"buyOrder","type":"tuple","components":[
      {"name":"maker","type":"address"},{"name":"taker","type":"address"},
      {"name":"expiry","type":"uint256"},{"name":"nonce","type":"uint256"},
      {"name":"erc20Token","type":"address"},{"name":"erc20TokenAmount","type":"uint256"},
      {"name":"fees","type":"tuple[]","components":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"},{"name":"feeData","type":"bytes"}]},
      {"name":"nft","type":"address"},{"name":"nftId","type":"uint256"}]},
    {"name":"signature","type":"tuple","components":[
      {"name":"signatureType","type":"uint8"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}]},
    {"name":"nftId","type":"uint256"},
    {"name":"unwrapNativeToken","type":"bool"},
    {"name":"takerData","type":"bytes"}],"outputs":[]},
  {"name":"cancelERC721Order","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"orderNonce","type":"uint256"}],"outputs":[]},
  {"name":"getERC721OrderStatusBitVector","type":"function","stateMutability":"view","inputs":[
    {"name":"maker","type":"address"},{"name":"nonceRange","type":"uint248"}],
    "outputs":[{"name":"","type":"uint256"}]}
]`

var (
	exchangeABIOnce sync.Once
	exchangeABI     abi.ABI
)

func ExchangeABI() abi.ABI {
	exchangeABIOnce.Do(func() {
		parsed, err := abi.JSON(strings.NewReader(exchangeABIJSON))
		if err != nil {
			panic("failed to parse element exchange abi: " + err.Error())
		}
		exchangeABI = parsed
	})
	return exchangeABI
}

type abiFee struct {
	Recipient common.Address
	Amount    *big.Int
	FeeData   []byte
}

type abiOrder struct {
	Maker            common.Address
	Taker            common.Address
	Expiry           *big.Int
	Nonce            *big.Int
	Erc20Token       common.Address
	Erc20TokenAmount *big.Int
	Fees             []abiFee
	Nft              common.Address
	NftId            *big.Int
}

type abiSignature struct {
	SignatureType uint8
	V             uint8
	R             [32]byte
	S             [32]byte
}

const signatureTypeEIP712 = 0

func toAbiOrder(o *Order) abiOrder {
	fees := make([]abiFee, len(o.Params.Fees))
	for i, f := range o.Params.Fees {
		feeData := f.FeeData
		if feeData == nil {
			feeData = []byte{}
		}
		fees[i] = abiFee{Recipient: f.Recipient, Amount: f.Amount, FeeData: feeData}
	}
	return abiOrder{
		Maker:            o.Params.Maker,
		Taker:            o.Params.Taker,
		Expiry:           o.Params.Expiry,
		Nonce:            o.Params.Nonce,
		Erc20Token:       o.Params.ERC20Token,
		Erc20TokenAmount: o.Params.ERC20TokenAmount,
		Fees:             fees,
		Nft:              o.Params.NFT,
		NftId:            o.Params.NFTID,
	}
}

func toAbiSignature(sig []byte) (abiSignature, error) {
	if len(sig) != 65 {
		return abiSignature{}, fmt.Errorf("element: signature must be 65 bytes: %w", nftagg.ErrInvalidSignature)
	}
	var out abiSignature
	out.SignatureType = signatureTypeEIP712
	copy(out.R[:], sig[:32])
	copy(out.S[:], sig[32:64])
	out.V = sig[64]
	if out.V < 27 {
		out.V += 27
	}
	return out, nil
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
	if addrs.Element == (common.Address{}) {
		return nil, fmt.Errorf("element: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	return &Exchange{chainID: chainID, addrs: addrs}, nil
}

func (e *Exchange) Address() common.Address {
	return e.addrs.Element
}

// FillTx fills the order from the taker's side. unwrap applies to bid fills
// only: the maker pays wrapped, the taker may receive native.
func (e *Exchange) FillTx(taker common.Address, o *Order, unwrap bool) (*nftagg.TxData, error) {
	sig, err := toAbiSignature(o.Params.Signature)
	if err != nil {
		return nil, err
	}
	order := toAbiOrder(o)

	var (
		data  []byte
		value = new(big.Int)
	)
	if o.SideVal == nftagg.SideSell {
		data, err = ExchangeABI().Pack("buyERC721", order, sig)
		if err == nil && o.Params.ERC20Token == NativeTokenSentinel {
			value, err = o.GetMatchingPrice()
		}
	} else {
		data, err = ExchangeABI().Pack("sellERC721", order, sig, o.Params.NFTID, unwrap, []byte{})
	}
	if err != nil {
		return nil, fmt.Errorf("element: pack fill: %w", err)
	}
	return &nftagg.TxData{From: taker, To: e.addrs.Element, Data: data, Value: value}, nil
}

// CancelTx invalidates the order's nonce.
func (e *Exchange) CancelTx(maker common.Address, o *Order) (*nftagg.TxData, error) {
	data, err := ExchangeABI().Pack("cancelERC721Order", o.Params.Nonce)
	if err != nil {
		return nil, fmt.Errorf("element: pack cancel: %w", err)
	}
	return &nftagg.TxData{From: maker, To: e.addrs.Element, Data: data, Value: new(big.Int)}, nil
}
