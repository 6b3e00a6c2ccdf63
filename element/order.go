package element

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	nftagg "github.com/nftagg/router-sdk-go"
	"github.com/nftagg/router-sdk-go/eip712"
	"github.com/nftagg/router-sdk-go/onchain"
)

// Order is a chain-bound single-token order.
type Order struct {
	ChainID nftagg.ChainID
	Kind    nftagg.OrderKind
	SideVal nftagg.Side
	Params  Params

	addrs nftagg.ContractAddresses
}

// BuildParams are the user-facing inputs.
type BuildParams struct {
	Side  nftagg.Side
	Maker common.Address
	Taker common.Address

	Contract common.Address
	TokenID  *big.Int

	PaymentToken common.Address
	Price        *big.Int
	Fees         []nftagg.FeeItem

	Expiry *big.Int
	Nonce  *big.Int
}

// Build constructs a single-token order. Price includes fee legs; the
// hashed erc20TokenAmount is the maker principal.
func Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error) {
	if params.Price == nil || params.TokenID == nil {
		return nil, fmt.Errorf("element: missing price or token id: %w", nftagg.ErrInvalidParams)
	}

	paymentToken := params.PaymentToken
	if nftagg.IsNative(paymentToken) {
		if params.Side == nftagg.SideBuy {
			return nil, fmt.Errorf("element: native-currency bid: %w", nftagg.ErrUnsupportedCurrency)
		}
		paymentToken = NativeTokenSentinel
	}

	fees := make([]Fee, len(params.Fees))
	feeTotal := new(big.Int)
	for i, f := range params.Fees {
		fees[i] = Fee{Recipient: f.Recipient, Amount: f.Amount}
		feeTotal.Add(feeTotal, f.Amount)
	}
	if feeTotal.Cmp(params.Price) > 0 {
		return nil, fmt.Errorf("element: fees exceed price: %w", nftagg.ErrInvalidParams)
	}

	return New(chainID, params.Side, Params{
		Maker:            params.Maker,
		Taker:            params.Taker,
		Expiry:           params.Expiry,
		Nonce:            params.Nonce,
		ERC20Token:       paymentToken,
		ERC20TokenAmount: new(big.Int).Sub(params.Price, feeTotal),
		Fees:             fees,
		NFT:              params.Contract,
		NFTID:            params.TokenID,
	})
}

// New normalizes and chain-binds an order.
func New(chainID nftagg.ChainID, side nftagg.Side, params Params) (*Order, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.Element == (common.Address{}) {
		return nil, fmt.Errorf("element: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	if params.ERC20TokenAmount == nil {
		params.ERC20TokenAmount = new(big.Int)
	}
	if params.Expiry == nil {
		params.Expiry = new(big.Int)
	}
	if params.Nonce == nil {
		params.Nonce = nftagg.RandomSalt()
	}
	if params.NFTID == nil {
		params.NFTID = new(big.Int)
	}
	return &Order{
		ChainID: chainID,
		Kind:    nftagg.OrderKindSingleToken,
		SideVal: side,
		Params:  params,
		addrs:   addrs,
	}, nil
}

func (o *Order) Domain() eip712.Domain {
	return eip712.Domain{
		Name:              ProtocolName,
		Version:           ProtocolVersion,
		ChainID:           big.NewInt(int64(o.ChainID)),
		VerifyingContract: o.addrs.Element,
	}
}

func (o *Order) Side() nftagg.Side { return o.SideVal }

func (o *Order) Hash() common.Hash {
	return o.Params.structHash(o.SideVal == nftagg.SideSell)
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
		return fmt.Errorf("element: recovered %s, want %s: %w",
			signer, o.Params.Maker, nftagg.ErrInvalidSignature)
	}
	return nil
}

func (o *Order) CheckValidity() error {
	if o.SideVal == nftagg.SideBuy && o.Params.ERC20Token == NativeTokenSentinel {
		return fmt.Errorf("element: native-currency bid: %w", nftagg.ErrInvalidOrder)
	}
	return nil
}

func (o *Order) GetInfo() (*nftagg.OrderInfo, error) {
	paymentToken := o.Params.ERC20Token
	if paymentToken == NativeTokenSentinel {
		paymentToken = nftagg.NativeToken
	}
	fees := make([]nftagg.FeeItem, len(o.Params.Fees))
	feeTotal := new(big.Int)
	for i, f := range o.Params.Fees {
		fees[i] = nftagg.FeeItem{Recipient: f.Recipient, Amount: f.Amount}
		feeTotal.Add(feeTotal, f.Amount)
	}
	return &nftagg.OrderInfo{
		Side:         o.SideVal,
		TokenKind:    nftagg.TokenKindERC721,
		Contract:     o.Params.NFT,
		TokenID:      o.Params.NFTID,
		Amount:       big.NewInt(1),
		PaymentToken: paymentToken,
		Price:        new(big.Int).Add(o.Params.ERC20TokenAmount, feeTotal),
		Fees:         fees,
		Taker:        o.Params.Taker,
	}, nil
}

func (o *Order) GetMatchingPrice(_ ...int64) (*big.Int, error) {
	total := new(big.Int).Set(o.Params.ERC20TokenAmount)
	for i := range o.Params.Fees {
		total.Add(total, o.Params.Fees[i].Amount)
	}
	return total, nil
}

func (o *Order) GetFeeAmount() *big.Int {
	total := new(big.Int)
	for i := range o.Params.Fees {
		total.Add(total, o.Params.Fees[i].Amount)
	}
	return total
}

// CheckFillability verifies nonce liveness and maker funds. The exchange
// contract is the approval operator.
func (o *Order) CheckFillability(ctx context.Context, reader *onchain.Reader) error {
	consumed, err := o.nonceConsumed(ctx, reader)
	if err != nil {
		return err
	}
	if consumed {
		return fmt.Errorf("element: nonce %s consumed: %w", o.Params.Nonce, nftagg.ErrNotFillable)
	}
	if o.Params.Expiry.Sign() > 0 && o.Params.Expiry.Int64() <= time.Now().Unix() {
		return fmt.Errorf("element: order expired: %w", nftagg.ErrNotFillable)
	}

	if o.SideVal == nftagg.SideSell {
		return reader.EnsureNFTOwnershipAndApproval(ctx,
			nftagg.TokenKindERC721, o.Params.NFT, o.Params.Maker, o.addrs.Element,
			o.Params.NFTID, big.NewInt(1))
	}
	price, err := o.GetMatchingPrice()
	if err != nil {
		return err
	}
	return reader.EnsureERC20BalanceAndAllowance(ctx,
		o.Params.ERC20Token, o.Params.Maker, o.addrs.Element, price)
}

func (o *Order) nonceConsumed(ctx context.Context, reader *onchain.Reader) (bool, error) {
	exchangeABI := ExchangeABI()
	nonceRange := new(big.Int).Rsh(o.Params.Nonce, 8)
	data, err := exchangeABI.Pack("getERC721OrderStatusBitVector", o.Params.Maker, nonceRange)
	if err != nil {
		return false, fmt.Errorf("element: pack status: %w", err)
	}
	out, err := reader.Call(ctx, o.addrs.Element, data)
	if err != nil {
		return false, err
	}
	values, err := exchangeABI.Unpack("getERC721OrderStatusBitVector", out)
	if err != nil {
		return false, fmt.Errorf("element: unpack status: %w", err)
	}
	bitVector := values[0].(*big.Int)
	bitIndex := uint(new(big.Int).And(o.Params.Nonce, big.NewInt(0xff)).Uint64())
	return bitVector.Bit(int(bitIndex)) == 1, nil
}
