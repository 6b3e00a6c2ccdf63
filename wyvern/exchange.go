package wyvern

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
  {"name":"atomicMatch_","type":"function","stateMutability":"payable","inputs":[
    {"name":"addrs","type":"address[14]"},
    {"name":"uints","type":"uint256[18]"},
    {"name":"feeMethodsSidesKindsHowToCalls","type":"uint8[8]"},
    {"name":"calldataBuy","type":"bytes"},
    {"name":"calldataSell","type":"bytes"},
    {"name":"replacementPatternBuy","type":"bytes"},
    {"name":"replacementPatternSell","type":"bytes"},
    {"name":"staticExtradataBuy","type":"bytes"},
    {"name":"staticExtradataSell","type":"bytes"},
    {"name":"vs","type":"uint8[2]"},
    {"name":"rssMetadata","type":"bytes32[5]"}],"outputs":[]},
  {"name":"cancelOrder_","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"addrs","type":"address[7]"},
    {"name":"uints","type":"uint256[9]"},
    {"name":"feeMethod","type":"uint8"},
    {"name":"side","type":"uint8"},
    {"name":"saleKind","type":"uint8"},
    {"name":"howToCall","type":"uint8"},
    {"name":"calldata","type":"bytes"},
    {"name":"replacementPattern","type":"bytes"},
    {"name":"staticExtradata","type":"bytes"},
    {"name":"v","type":"uint8"},
    {"name":"r","type":"bytes32"},
    {"name":"s","type":"bytes32"}],"outputs":[]},
  {"name":"incrementNonce","type":"function","stateMutability":"nonpayable","inputs":[],"outputs":[]},
  {"name":"cancelledOrFinalized","type":"function","stateMutability":"view","inputs":[
    {"name":"","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
  {"name":"nonces","type":"function","stateMutability":"view","inputs":[
    {"name":"","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

var (
	exchangeABIOnce sync.Once
	exchangeABI     abi.ABI
)

func ExchangeABI() abi.ABI {
	exchangeABIOnce.Do(func() {
		parsed, err := abi.JSON(strings.NewReader(exchangeABIJSON))
		if err != nil {
			panic("failed to parse wyvern exchange abi: " + err.Error())
		}
		exchangeABI = parsed
	})
	return exchangeABI
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
	if addrs.WyvernV23 == (common.Address{}) {
		return nil, fmt.Errorf("wyvern: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	return &Exchange{chainID: chainID, addrs: addrs}, nil
}

func (e *Exchange) Address() common.Address {
	return e.addrs.WyvernV23
}

func splitSignature(sig []byte) (v uint8, r, s [32]byte, err error) {
	if len(sig) != 65 {
		return 0, r, s, fmt.Errorf("wyvern: signature must be 65 bytes: %w", nftagg.ErrInvalidSignature)
	}
	copy(r[:], sig[:32])
	copy(s[:], sig[32:64])
	v = sig[64]
	if v < 27 {
		v += 27
	}
	return v, r, s, nil
}

// FillTx matches the signed maker order against its counter-order. Native
// value is attached for native-currency listings at the current price.
func (e *Exchange) FillTx(taker common.Address, o *Order, match *Order, timestampOverride ...int64) (*nftagg.TxData, error) {
	if match == nil {
		return nil, fmt.Errorf("wyvern: missing matching order: %w", nftagg.ErrInvalidParams)
	}

	buy, sell := match, o
	if o.Params.Side == SideOpBuy {
		buy, sell = o, match
	}

	v, r, s, err := splitSignature(o.Params.Signature)
	if err != nil {
		return nil, err
	}
	// The unsigned counter-order rides with the maker's signature slot
	// zeroed; the exchange validates it as the transaction sender's.
	var (
		buyV, sellV  uint8
		buyR, buyS   [32]byte
		sellR, sellS [32]byte
	)
	if o.Params.Side == SideOpBuy {
		buyV, buyR, buyS = v, r, s
	} else {
		sellV, sellR, sellS = v, r, s
	}

	addrs := [14]common.Address{
		buy.Params.Exchange, buy.Params.Maker, buy.Params.Taker,
		buy.Params.FeeRecipient, buy.Params.Target, common.Address{}, buy.Params.PaymentToken,
		sell.Params.Exchange, sell.Params.Maker, sell.Params.Taker,
		sell.Params.FeeRecipient, sell.Params.Target, common.Address{}, sell.Params.PaymentToken,
	}
	uints := [18]*big.Int{
		buy.Params.MakerRelayerFee, buy.Params.TakerRelayerFee,
		buy.Params.MakerProtocolFee, buy.Params.TakerProtocolFee,
		buy.Params.BasePrice, buy.Params.Extra,
		buy.Params.ListingTime, buy.Params.ExpirationTime, buy.Params.Salt,
		sell.Params.MakerRelayerFee, sell.Params.TakerRelayerFee,
		sell.Params.MakerProtocolFee, sell.Params.TakerProtocolFee,
		sell.Params.BasePrice, sell.Params.Extra,
		sell.Params.ListingTime, sell.Params.ExpirationTime, sell.Params.Salt,
	}
	flags := [8]uint8{
		uint8(buy.Params.FeeMethod), uint8(buy.Params.Side),
		uint8(buy.Params.SaleKind), uint8(buy.Params.HowToCall),
		uint8(sell.Params.FeeMethod), uint8(sell.Params.Side),
		uint8(sell.Params.SaleKind), uint8(sell.Params.HowToCall),
	}

	data, err := ExchangeABI().Pack("atomicMatch_",
		addrs, uints, flags,
		buy.Params.Calldata, sell.Params.Calldata,
		buy.Params.ReplacementPattern, sell.Params.ReplacementPattern,
		buy.Params.StaticExtradata, sell.Params.StaticExtradata,
		[2]uint8{buyV, sellV},
		[5][32]byte{buyR, buyS, sellR, sellS, {}},
	)
	if err != nil {
		return nil, fmt.Errorf("wyvern: pack atomicMatch_: %w", err)
	}

	value := new(big.Int)
	if o.Params.Side == SideOpSell && nftagg.IsNative(o.Params.PaymentToken) {
		value, err = o.GetMatchingPrice(timestampOverride...)
		if err != nil {
			return nil, err
		}
	}
	return &nftagg.TxData{From: taker, To: e.addrs.WyvernV23, Data: data, Value: value}, nil
}

// CancelTx voids the order on chain; only the maker may send it.
func (e *Exchange) CancelTx(maker common.Address, o *Order) (*nftagg.TxData, error) {
	v, r, s, err := splitSignature(o.Params.Signature)
	if err != nil {
		return nil, err
	}

	addrs := [7]common.Address{
		o.Params.Exchange, o.Params.Maker, o.Params.Taker,
		o.Params.FeeRecipient, o.Params.Target, common.Address{}, o.Params.PaymentToken,
	}
	uints := [9]*big.Int{
		o.Params.MakerRelayerFee, o.Params.TakerRelayerFee,
		o.Params.MakerProtocolFee, o.Params.TakerProtocolFee,
		o.Params.BasePrice, o.Params.Extra,
		o.Params.ListingTime, o.Params.ExpirationTime, o.Params.Salt,
	}

	data, err := ExchangeABI().Pack("cancelOrder_",
		addrs, uints,
		uint8(o.Params.FeeMethod), uint8(o.Params.Side),
		uint8(o.Params.SaleKind), uint8(o.Params.HowToCall),
		o.Params.Calldata, o.Params.ReplacementPattern, o.Params.StaticExtradata,
		v, r, s,
	)
	if err != nil {
		return nil, fmt.Errorf("wyvern: pack cancelOrder_: %w", err)
	}
	return &nftagg.TxData{From: maker, To: e.addrs.WyvernV23, Data: data, Value: new(big.Int)}, nil
}

// IncrementNonceTx bulk-cancels every outstanding order of the sender.
func (e *Exchange) IncrementNonceTx(maker common.Address) (*nftagg.TxData, error) {
	data, err := ExchangeABI().Pack("incrementNonce")
	if err != nil {
		return nil, fmt.Errorf("wyvern: pack incrementNonce: %w", err)
	}
	return &nftagg.TxData{From: maker, To: e.addrs.WyvernV23, Data: data, Value: new(big.Int)}, nil
}
