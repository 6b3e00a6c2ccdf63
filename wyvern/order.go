package wyvern

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	nftagg "github.com/nftagg/router-sdk-go"
	"github.com/nftagg/router-sdk-go/eip712"
	"github.com/nftagg/router-sdk-go/onchain"
)

const transferABIJSON = `[
  {"name":"transferFrom","type":"function","stateMutability":"nonpayable","inputs":[
    {"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[]}
]`

var (
	transferABIOnce sync.Once
	transferABI     abi.ABI
)

func tokenTransferABI() abi.ABI {
	transferABIOnce.Do(func() {
		parsed, err := abi.JSON(strings.NewReader(transferABIJSON))
		if err != nil {
			panic("failed to parse transfer abi: " + err.Error())
		}
		transferABI = parsed
	})
	return transferABI
}

// transferCalldata encodes transferFrom with the counterparty slot zeroed;
// the replacement pattern opens that slot for the matching order.
func transferCalldata(from, to common.Address, tokenID *big.Int) ([]byte, error) {
	return tokenTransferABI().Pack("transferFrom", from, to, tokenID)
}

// replacementPattern masks one 32-byte argument word of a transferFrom
// call. Word 0 is `from`, word 1 is `to`.
func replacementPattern(calldataLen, word int) []byte {
	pattern := make([]byte, calldataLen)
	for i := 4 + 32*word; i < 4+32*(word+1) && i < calldataLen; i++ {
		pattern[i] = 0xff
	}
	return pattern
}

// Order binds a v2.3 order to a chain.
type Order struct {
	ChainID nftagg.ChainID
	Kind    nftagg.OrderKind
	Params  Params

	addrs nftagg.ContractAddresses
}

// BuildParams are the user-facing single-token ERC-721 inputs. RelayerFeeBps
// is deducted from the maker's side to FeeRecipient. EndPrice below Price
// declines linearly (dutch auction) for sell orders.
type BuildParams struct {
	Side  nftagg.Side
	Maker common.Address
	Taker common.Address

	Contract common.Address
	TokenID  *big.Int

	PaymentToken  common.Address
	Price         *big.Int
	EndPrice      *big.Int
	RelayerFeeBps int64
	FeeRecipient  common.Address

	ListingTime    int64
	ExpirationTime int64
	Salt           *big.Int
	Nonce          *big.Int
}

// Build constructs a single-token order.
func Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error) {
	if params.Price == nil || params.TokenID == nil {
		return nil, fmt.Errorf("wyvern: missing price or token id: %w", nftagg.ErrInvalidParams)
	}
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}

	var (
		side     SideOp
		calldata []byte
		pattern  []byte
	)
	if params.Side == nftagg.SideSell {
		side = SideOpSell
		calldata, err = transferCalldata(params.Maker, common.Address{}, params.TokenID)
		if err != nil {
			return nil, fmt.Errorf("wyvern: encode calldata: %w", err)
		}
		pattern = replacementPattern(len(calldata), 1)
	} else {
		side = SideOpBuy
		if nftagg.IsNative(params.PaymentToken) {
			return nil, fmt.Errorf("wyvern: native-currency bid: %w", nftagg.ErrUnsupportedCurrency)
		}
		calldata, err = transferCalldata(common.Address{}, params.Maker, params.TokenID)
		if err != nil {
			return nil, fmt.Errorf("wyvern: encode calldata: %w", err)
		}
		pattern = replacementPattern(len(calldata), 0)
	}

	saleKind := SaleKindFixedPrice
	extra := new(big.Int)
	if params.EndPrice != nil && params.EndPrice.Cmp(params.Price) != 0 {
		if params.EndPrice.Cmp(params.Price) > 0 {
			return nil, fmt.Errorf("wyvern: ascending price: %w", nftagg.ErrReverseDutchAuction)
		}
		if params.Side != nftagg.SideSell {
			return nil, fmt.Errorf("wyvern: dutch pricing is sell-only: %w", nftagg.ErrInvalidParams)
		}
		saleKind = SaleKindDutchAuction
		extra = new(big.Int).Sub(params.Price, params.EndPrice)
	}

	salt := params.Salt
	if salt == nil {
		salt = nftagg.RandomSalt()
	}
	nonce := params.Nonce
	if nonce == nil {
		nonce = new(big.Int)
	}

	return New(chainID, Params{
		Exchange:           addrs.WyvernV23,
		Maker:              params.Maker,
		Taker:              params.Taker,
		MakerRelayerFee:    big.NewInt(params.RelayerFeeBps),
		TakerRelayerFee:    new(big.Int),
		MakerProtocolFee:   new(big.Int),
		TakerProtocolFee:   new(big.Int),
		FeeRecipient:       params.FeeRecipient,
		FeeMethod:          FeeMethodSplit,
		Side:               side,
		SaleKind:           saleKind,
		Target:             params.Contract,
		HowToCall:          HowToCallCall,
		Calldata:           calldata,
		ReplacementPattern: pattern,
		StaticExtradata:    []byte{},
		PaymentToken:       params.PaymentToken,
		BasePrice:          params.Price,
		Extra:              extra,
		ListingTime:        big.NewInt(params.ListingTime),
		ExpirationTime:     big.NewInt(params.ExpirationTime),
		Salt:               salt,
		Nonce:              nonce,
	})
}

// New normalizes and chain-binds an order.
func New(chainID nftagg.ChainID, params Params) (*Order, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.WyvernV23 == (common.Address{}) {
		return nil, fmt.Errorf("wyvern: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	if params.Exchange == (common.Address{}) {
		params.Exchange = addrs.WyvernV23
	}
	for _, v := range []**big.Int{
		&params.MakerRelayerFee, &params.TakerRelayerFee,
		&params.MakerProtocolFee, &params.TakerProtocolFee,
		&params.BasePrice, &params.Extra,
		&params.ListingTime, &params.ExpirationTime,
		&params.Salt, &params.Nonce,
	} {
		if *v == nil {
			*v = new(big.Int)
		}
	}
	if params.Calldata == nil {
		params.Calldata = []byte{}
	}
	if params.ReplacementPattern == nil {
		params.ReplacementPattern = []byte{}
	}
	if params.StaticExtradata == nil {
		params.StaticExtradata = []byte{}
	}
	return &Order{
		ChainID: chainID,
		Kind:    nftagg.OrderKindSingleToken,
		Params:  params,
		addrs:   addrs,
	}, nil
}

func (o *Order) Domain() eip712.Domain {
	return eip712.Domain{
		Name:              ProtocolName,
		Version:           ProtocolVersion,
		ChainID:           big.NewInt(int64(o.ChainID)),
		VerifyingContract: o.addrs.WyvernV23,
	}
}

func (o *Order) Side() nftagg.Side {
	if o.Params.Side == SideOpSell {
		return nftagg.SideSell
	}
	return nftagg.SideBuy
}

func (o *Order) Hash() common.Hash {
	return o.Params.structHash()
}

func (o *Order) Digest() common.Hash {
	return o.Domain().Digest(o.Hash())
}

func (o *Order) Sign(key *ecdsa.PrivateKey) error {
	sig, err := eip712.Sign(o.Digest(), key)
	if err != nil {
		return err
	}
	o.Params.Signature = sig
	return nil
}

func (o *Order) CheckSignature() error {
	signer, err := eip712.Recover(o.Digest(), o.Params.Signature)
	if err != nil {
		return err
	}
	if signer != o.Params.Maker {
		return fmt.Errorf("wyvern: recovered %s, want %s: %w",
			signer, o.Params.Maker, nftagg.ErrInvalidSignature)
	}
	return nil
}

// tokenID extracts the third argument word of the transfer calldata.
func (o *Order) tokenID() (*big.Int, error) {
	if len(o.Params.Calldata) != 4+32*3 {
		return nil, fmt.Errorf("wyvern: unexpected calldata shape: %w", nftagg.ErrInvalidOrder)
	}
	return new(big.Int).SetBytes(o.Params.Calldata[4+32*2:]), nil
}

func (o *Order) CheckValidity() error {
	if _, err := o.tokenID(); err != nil {
		return err
	}
	if len(o.Params.ReplacementPattern) != len(o.Params.Calldata) {
		return fmt.Errorf("wyvern: replacement pattern length mismatch: %w", nftagg.ErrInvalidOrder)
	}
	return nil
}

func (o *Order) GetInfo() (*nftagg.OrderInfo, error) {
	tokenID, err := o.tokenID()
	if err != nil {
		return nil, err
	}
	return &nftagg.OrderInfo{
		Side:         o.Side(),
		TokenKind:    nftagg.TokenKindERC721,
		Contract:     o.Params.Target,
		TokenID:      tokenID,
		Amount:       big.NewInt(1),
		PaymentToken: o.Params.PaymentToken,
		Price:        o.Params.BasePrice,
		Taker:        o.Params.Taker,
	}, nil
}

// IsDynamic reports dutch-auction pricing.
func (o *Order) IsDynamic() bool {
	return o.Params.SaleKind == SaleKindDutchAuction
}

// GetMatchingPrice returns the current price: basePrice minus the elapsed
// share of extra for dutch auctions.
func (o *Order) GetMatchingPrice(timestampOverride ...int64) (*big.Int, error) {
	if !o.IsDynamic() {
		return o.Params.BasePrice, nil
	}
	at := time.Now().Unix()
	if len(timestampOverride) > 0 {
		at = timestampOverride[0]
	}
	end := new(big.Int).Sub(o.Params.BasePrice, o.Params.Extra)
	return nftagg.InterpolateAmount(
		o.Params.BasePrice, end,
		o.Params.ListingTime.Int64(), o.Params.ExpirationTime.Int64(), at,
	), nil
}

// GetFeeAmount is the relayer fee taken from the maker side.
func (o *Order) GetFeeAmount() *big.Int {
	return nftagg.Bps(o.Params.BasePrice, o.Params.MakerRelayerFee.Int64())
}

// BuildMatching constructs the unsigned counter-order for atomicMatch_.
func (o *Order) BuildMatching(taker common.Address) (*Order, error) {
	if taker == (common.Address{}) {
		return nil, fmt.Errorf("wyvern: missing taker: %w", nftagg.ErrInvalidParams)
	}
	tokenID, err := o.tokenID()
	if err != nil {
		return nil, err
	}

	counter := o.Params
	counter.Maker = taker
	counter.Taker = o.Params.Maker
	counter.Salt = new(big.Int)
	counter.Nonce = new(big.Int)
	counter.Signature = nil
	// Fee recipient must be set on exactly one side of the pair.
	counter.FeeRecipient = common.Address{}
	counter.MakerRelayerFee = o.Params.MakerRelayerFee
	if o.Params.Side == SideOpSell {
		counter.Side = SideOpBuy
		counter.Calldata, err = transferCalldata(common.Address{}, taker, tokenID)
		if err != nil {
			return nil, fmt.Errorf("wyvern: encode calldata: %w", err)
		}
		counter.ReplacementPattern = replacementPattern(len(counter.Calldata), 0)
	} else {
		counter.Side = SideOpSell
		counter.Calldata, err = transferCalldata(taker, common.Address{}, tokenID)
		if err != nil {
			return nil, fmt.Errorf("wyvern: encode calldata: %w", err)
		}
		counter.ReplacementPattern = replacementPattern(len(counter.Calldata), 1)
	}
	return New(o.ChainID, counter)
}

// CheckFillability verifies the order is neither cancelled nor finalized,
// its nonce is current, and the maker holds funds. The maker's registered
// proxy performs transfers, so approval checks cover operator-for-all only.
func (o *Order) CheckFillability(ctx context.Context, reader *onchain.Reader) error {
	gone, err := o.cancelledOrFinalized(ctx, reader)
	if err != nil {
		return err
	}
	if gone {
		return fmt.Errorf("wyvern: order cancelled or finalized: %w", nftagg.ErrNotFillable)
	}
	nonce, err := o.makerNonce(ctx, reader)
	if err != nil {
		return err
	}
	if nonce.Cmp(o.Params.Nonce) != 0 {
		return fmt.Errorf("wyvern: nonce advanced: %w", nftagg.ErrNotFillable)
	}
	exp := o.Params.ExpirationTime
	if exp.Sign() > 0 && exp.Int64() <= time.Now().Unix() {
		return fmt.Errorf("wyvern: order expired: %w", nftagg.ErrNotFillable)
	}

	info, err := o.GetInfo()
	if err != nil {
		return err
	}
	if o.Params.Side == SideOpSell {
		owner, err := reader.ERC721OwnerOf(ctx, info.Contract, info.TokenID)
		if err != nil {
			return err
		}
		if owner != o.Params.Maker {
			return fmt.Errorf("wyvern: maker no longer owns token: %w", nftagg.ErrNoBalance)
		}
		return nil
	}
	price, err := o.GetMatchingPrice()
	if err != nil {
		return err
	}
	balance, err := reader.ERC20BalanceOf(ctx, o.Params.PaymentToken, o.Params.Maker)
	if err != nil {
		return err
	}
	if balance.Cmp(price) < 0 {
		return fmt.Errorf("wyvern: maker balance short: %w", nftagg.ErrNoBalance)
	}
	return nil
}

func (o *Order) cancelledOrFinalized(ctx context.Context, reader *onchain.Reader) (bool, error) {
	exchangeABI := ExchangeABI()
	data, err := exchangeABI.Pack("cancelledOrFinalized", o.Hash())
	if err != nil {
		return false, fmt.Errorf("wyvern: pack cancelledOrFinalized: %w", err)
	}
	out, err := reader.Call(ctx, o.addrs.WyvernV23, data)
	if err != nil {
		return false, err
	}
	values, err := exchangeABI.Unpack("cancelledOrFinalized", out)
	if err != nil {
		return false, fmt.Errorf("wyvern: unpack cancelledOrFinalized: %w", err)
	}
	return values[0].(bool), nil
}

func (o *Order) makerNonce(ctx context.Context, reader *onchain.Reader) (*big.Int, error) {
	exchangeABI := ExchangeABI()
	data, err := exchangeABI.Pack("nonces", o.Params.Maker)
	if err != nil {
		return nil, fmt.Errorf("wyvern: pack nonces: %w", err)
	}
	out, err := reader.Call(ctx, o.addrs.WyvernV23, data)
	if err != nil {
		return nil, err
	}
	values, err := exchangeABI.Unpack("nonces", out)
	if err != nil {
		return nil, fmt.Errorf("wyvern: unpack nonces: %w", err)
	}
	return values[0].(*big.Int), nil
}
