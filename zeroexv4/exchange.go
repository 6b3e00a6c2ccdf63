package zeroexv4

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

const exchangeABIJSON = `[
  {"name":"buyERC721","type":"function","stateMutability":"payable","inputs":[
    {"name":"sellOrder","type":"tuple","components":[
      {"name":"direction","type":"uint8"},{"name":"maker","type":"address"},{"name":"taker","type":"address"},
      {"name":"expiry","type":"uint256"},{"name":"nonce","type":"uint256"},
      {"name":"erc20Token","type":"address"},{"name":"erc20TokenAmount","type":"uint256"},
      {"name":"fees","type":"tuple[]","components":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"},{"name":"feeData","type":"bytes"}]},
      {"name":"erc721Token","type":"address"},{"name":"erc721TokenId","type":"uint256"},
      {"name":"erc721TokenProperties","type":"tuple[]","components":[{"name":"propertyValidator","type":"address"},{"name":"propertyData","type":"bytes"}]}]},
    {"name":"signature","type":"tuple","components":[
      {"name":"signatureType","type":"uint8"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}]},
    {"name":"callbackData","type":"bytes"}],"outputs":[]},
  {"name":"sellERC721","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"buyOrder","type":"tuple","components":[
      {"name":"direction","type":"uint8"},{"name":"maker","type":"address"},{"name":"taker","type":"address"},
      {"name":"expiry","type":"uint256"},{"name":"nonce","type":"uint256"},
      {"name":"erc20Token","type":"address"},{"name":"erc20TokenAmount","type":"uint256"},
      {"name":"fees","type":"tuple[]","components":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"},{"name":"feeData","type":"bytes"}]},
      {"name":"erc721Token","type":"address"},{"name":"erc721TokenId","type":"uint256"},
      {"name":"erc721TokenProperties","type":"tuple[]","components":[{"name":"propertyValidator","type":"address"},{"name":"propertyData","type":"bytes"}]}]},
    {"name":"signature","type":"tuple","components":[
      {"name":"signatureType","type":"uint8"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}]},
    {"name":"erc721TokenId","type":"uint256"},
    {"name":"unwrapNativeToken","type":"bool"},
    {"name":"callbackData","type":"bytes"}],"outputs":[]},
  {"name":"buyERC1155","type":"function","stateMutability":"payable","inputs":[
    {"name":"sellOrder","type":"tuple","components":[
      {"name":"direction","type":"uint8"},{"name":"maker","type":"address"},{"name":"taker","type":"address"},
      {"name":"expiry","type":"uint256"},{"name":"nonce","type":"uint256"},
      {"name":"erc20Token","type":"address"},{"name":"erc20TokenAmount","type":"uint256"},
      {"name":"fees","type":"tuple[]","components":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"},{"name":"feeData","type":"bytes"}]},
      {"name":"erc1155Token","type":"address"},{"name":"erc1155TokenId","type":"uint256"},
      {"name":"erc1155TokenProperties","type":"tuple[]","components":[{"name":"propertyValidator","type":"address"},{"name":"propertyData","type":"bytes"}]},
      {"name":"erc1155TokenAmount","type":"uint128"}]},
    {"name":"signature","type":"tuple","components":[
      {"name":"signatureType","type":"uint8"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}]},
    {"name":"erc1155BuyAmount","type":"uint128"},
    {"name":"callbackData","type":"bytes"}],"outputs":[]},
  {"name":"sellERC1155","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"buyOrder","type":"tuple","components":[
      {"name":"direction","type":"uint8"},{"name":"maker","type":"address"},{"name":"taker","type":"address"},
      {"name":"expiry","type":"uint256"},{"name":"nonce","type":"uint256"},
      {"name":"erc20Token","type":"address"},{"name":"erc20TokenAmount","type":"uint256"},
      {"name":"fees","type":"tuple[]","components":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"},{"name":"feeData","type":"bytes"}]},
      {"name":"erc1155Token","type":"address"},{"name":"erc1155TokenId","type":"uint256"},
      {"name":"erc1155TokenProperties","type":"tuple[]","components":[{"name":"propertyValidator","type":"address"},{"name":"propertyData","type":"bytes"}]},
      {"name":"erc1155TokenAmount","type":"uint128"}]},
    {"name":"signature","type":"tuple","components":[
      {"name":"signatureType","type":"uint8"},{"name":"v","type":"uint8"},{"name":"r","type":"bytes32"},{"name":"s","type":"bytes32"}]},
    {"name":"erc1155TokenId","type":"uint256"},
    {"name":"erc1155SellAmount","type":"uint128"},
    {"name":"unwrapNativeToken","type":"bool"},
    {"name":"callbackData","type":"bytes"}],"outputs":[]},
  {"name":"cancelERC721Order","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"orderNonce","type":"uint256"}],"outputs":[]},
  {"name":"cancelERC1155Order","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"orderNonce","type":"uint256"}],"outputs":[]},
  {"name":"getERC721OrderStatusBitVector","type":"function","stateMutability":"view","inputs":[
    {"name":"maker","type":"address"},{"name":"nonceRange","type":"uint248"}],
    "outputs":[{"name":"bitVector","type":"uint256"}]},
  {"name":"getERC1155OrderNonceStatusBitVector","type":"function","stateMutability":"view","inputs":[
    {"name":"maker","type":"address"},{"name":"nonceRange","type":"uint248"}],
    "outputs":[{"name":"bitVector","type":"uint256"}]}
]`

var (
	exchangeABIOnce sync.Once
	exchangeABI     abi.ABI
)

// ExchangeABI returns the parsed fill/cancel/status ABI.
func ExchangeABI() abi.ABI {
	exchangeABIOnce.Do(func() {
		parsed, err := abi.JSON(strings.NewReader(exchangeABIJSON))
		if err != nil {
			panic("failed to parse zeroexv4 exchange abi: " + err.Error())
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

type abiProperty struct {
	PropertyValidator common.Address
	PropertyData      []byte
}

type abiERC721Order struct {
	Direction             uint8
	Maker                 common.Address
	Taker                 common.Address
	Expiry                *big.Int
	Nonce                 *big.Int
	Erc20Token            common.Address
	Erc20TokenAmount      *big.Int
	Fees                  []abiFee
	Erc721Token           common.Address
	Erc721TokenId         *big.Int
	Erc721TokenProperties []abiProperty
}

type abiERC1155Order struct {
	Direction              uint8
	Maker                  common.Address
	Taker                  common.Address
	Expiry                 *big.Int
	Nonce                  *big.Int
	Erc20Token             common.Address
	Erc20TokenAmount       *big.Int
	Fees                   []abiFee
	Erc1155Token           common.Address
	Erc1155TokenId         *big.Int
	Erc1155TokenProperties []abiProperty
	Erc1155TokenAmount     *big.Int
}

type abiSignature struct {
	SignatureType uint8
	V             uint8
	R             [32]byte
	S             [32]byte
}

const signatureTypeEIP712 = 2

func toAbiSignature(sig []byte) (abiSignature, error) {
	if len(sig) != 65 {
		return abiSignature{}, fmt.Errorf("zeroexv4: signature must be 65 bytes: %w", nftagg.ErrInvalidSignature)
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

func toAbiFees(fees []Fee) []abiFee {
	out := make([]abiFee, len(fees))
	for i, f := range fees {
		feeData := f.FeeData
		if feeData == nil {
			feeData = []byte{}
		}
		out[i] = abiFee{Recipient: f.Recipient, Amount: f.Amount, FeeData: feeData}
	}
	return out
}

func toAbiProperties(props []Property) []abiProperty {
	out := make([]abiProperty, len(props))
	for i, p := range props {
		data := p.PropertyData
		if data == nil {
			data = []byte{}
		}
		out[i] = abiProperty{PropertyValidator: p.PropertyValidator, PropertyData: data}
	}
	return out
}

// Exchange encodes fill and cancel calldata for a chain's V4 deployment.
type Exchange struct {
	chainID nftagg.ChainID
	addrs   nftagg.ContractAddresses
}

func NewExchange(chainID nftagg.ChainID) (*Exchange, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.ZeroExV4 == (common.Address{}) {
		return nil, fmt.Errorf("zeroexv4: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	return &Exchange{chainID: chainID, addrs: addrs}, nil
}

func (e *Exchange) Address() common.Address {
	return e.addrs.ZeroExV4
}

// FillTx builds the transaction that fills the order from the taker's side:
// buy* against sell orders, sell* against buy orders. Native value is
// attached only when buying with the native-token sentinel, scaled for
// partial ERC-1155 fills.
func (e *Exchange) FillTx(taker common.Address, o *Order, match *MatchParams) (*nftagg.TxData, error) {
	if match == nil {
		return nil, fmt.Errorf("zeroexv4: missing match params: %w", nftagg.ErrInvalidParams)
	}
	sig, err := toAbiSignature(o.Params.Signature)
	if err != nil {
		return nil, err
	}

	var (
		data  []byte
		value = new(big.Int)
	)
	switch {
	case o.Params.Direction == DirectionSell && o.TokenKind() == nftagg.TokenKindERC721:
		order := e.toAbiERC721Order(o)
		data, err = ExchangeABI().Pack("buyERC721", order, sig, []byte{})
		if err == nil && o.Params.ERC20Token == NativeTokenSentinel {
			value, err = o.GetMatchingPrice()
		}

	case o.Params.Direction == DirectionSell && o.TokenKind() == nftagg.TokenKindERC1155:
		order := e.toAbiERC1155Order(o)
		data, err = ExchangeABI().Pack("buyERC1155", order, sig, match.Amount, []byte{})
		if err == nil && o.Params.ERC20Token == NativeTokenSentinel {
			var whole *big.Int
			whole, err = o.GetMatchingPrice()
			if err == nil {
				value = nftagg.PartialAmount(whole, match.Amount, o.Params.NFTTokenAmount)
			}
		}

	case o.Params.Direction == DirectionBuy && o.TokenKind() == nftagg.TokenKindERC721:
		order := e.toAbiERC721Order(o)
		data, err = ExchangeABI().Pack("sellERC721", order, sig, match.TokenID, match.Unwrap, []byte{})

	default:
		order := e.toAbiERC1155Order(o)
		data, err = ExchangeABI().Pack("sellERC1155", order, sig, match.TokenID, match.Amount, match.Unwrap, []byte{})
	}
	if err != nil {
		return nil, fmt.Errorf("zeroexv4: pack fill: %w", err)
	}

	return &nftagg.TxData{From: taker, To: e.addrs.ZeroExV4, Data: data, Value: value}, nil
}

// CancelTx invalidates the order's nonce on chain. Cancellation is keyed by
// nonce, so it also kills any other order sharing it.
func (e *Exchange) CancelTx(maker common.Address, o *Order) (*nftagg.TxData, error) {
	method := "cancelERC721Order"
	if o.TokenKind() == nftagg.TokenKindERC1155 {
		method = "cancelERC1155Order"
	}
	data, err := ExchangeABI().Pack(method, o.Params.Nonce)
	if err != nil {
		return nil, fmt.Errorf("zeroexv4: pack %s: %w", method, err)
	}
	return &nftagg.TxData{From: maker, To: e.addrs.ZeroExV4, Data: data, Value: new(big.Int)}, nil
}

// NonceConsumed reports whether a maker nonce has been filled or cancelled.
func (e *Exchange) NonceConsumed(ctx context.Context, reader *onchain.Reader, kind nftagg.TokenKind, maker common.Address, nonce *big.Int) (bool, error) {
	o := &Order{ChainID: e.chainID, addrs: e.addrs, Params: Params{Maker: maker, Nonce: nonce}}
	if kind == nftagg.TokenKindERC1155 {
		o.Params.NFTTokenAmount = big.NewInt(1)
	}
	return o.nonceConsumed(ctx, reader)
}

func (e *Exchange) toAbiERC721Order(o *Order) abiERC721Order {
	return abiERC721Order{
		Direction:             uint8(o.Params.Direction),
		Maker:                 o.Params.Maker,
		Taker:                 o.Params.Taker,
		Expiry:                o.Params.Expiry,
		Nonce:                 o.Params.Nonce,
		Erc20Token:            o.Params.ERC20Token,
		Erc20TokenAmount:      o.Params.ERC20TokenAmount,
		Fees:                  toAbiFees(o.Params.Fees),
		Erc721Token:           o.Params.NFTToken,
		Erc721TokenId:         o.Params.NFTTokenID,
		Erc721TokenProperties: toAbiProperties(o.Params.NFTProperties),
	}
}

func (e *Exchange) toAbiERC1155Order(o *Order) abiERC1155Order {
	return abiERC1155Order{
		Direction:              uint8(o.Params.Direction),
		Maker:                  o.Params.Maker,
		Taker:                  o.Params.Taker,
		Expiry:                 o.Params.Expiry,
		Nonce:                  o.Params.Nonce,
		Erc20Token:             o.Params.ERC20Token,
		Erc20TokenAmount:       o.Params.ERC20TokenAmount,
		Fees:                   toAbiFees(o.Params.Fees),
		Erc1155Token:           o.Params.NFTToken,
		Erc1155TokenId:         o.Params.NFTTokenID,
		Erc1155TokenProperties: toAbiProperties(o.Params.NFTProperties),
		Erc1155TokenAmount:     o.Params.NFTTokenAmount,
	}
}
