package zeroexv4

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

// Order is a signed (or signable) ZeroEx V4 NFT order bound to a chain.
type Order struct {
	ChainID nftagg.ChainID
	Kind    nftagg.OrderKind
	Params  Params

	addrs nftagg.ContractAddresses
}

// New normalizes params and binds the order to a chain, detecting its kind
// from the property set.
func New(chainID nftagg.ChainID, params Params) (*Order, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.ZeroExV4 == (common.Address{}) {
		return nil, fmt.Errorf("zeroexv4: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
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
	if params.NFTTokenID == nil {
		params.NFTTokenID = new(big.Int)
	}
	for i := range params.Fees {
		if params.Fees[i].Amount == nil {
			params.Fees[i].Amount = new(big.Int)
		}
	}

	o := &Order{ChainID: chainID, Params: params, addrs: addrs}
	kind, err := DetectKind(o)
	if err != nil {
		return nil, err
	}
	o.Kind = kind
	return o, nil
}

// DetectKind probes the registered builders against the order.
func DetectKind(o *Order) (nftagg.OrderKind, error) {
	for _, b := range builders {
		if roundTrips(b, o) {
			return b.Kind(), nil
		}
	}
	return "", fmt.Errorf("zeroexv4: %w", nftagg.ErrUnknownOrderKind)
}

func (o *Order) Domain() eip712.Domain {
	return eip712.Domain{
		Name:              ProtocolName,
		Version:           ProtocolVersion,
		ChainID:           big.NewInt(int64(o.ChainID)),
		VerifyingContract: o.addrs.ZeroExV4,
	}
}

// TokenKind reports which struct family the order belongs to.
func (o *Order) TokenKind() nftagg.TokenKind {
	if o.Params.NFTTokenAmount != nil {
		return nftagg.TokenKindERC1155
	}
	return nftagg.TokenKindERC721
}

func (o *Order) Side() nftagg.Side {
	if o.Params.Direction == DirectionSell {
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

// Sign produces the EIP-712 signature and attaches it to the order.
func (o *Order) Sign(key *ecdsa.PrivateKey) error {
	sig, err := eip712.Sign(o.Digest(), key)
	if err != nil {
		return err
	}
	o.Params.Signature = sig
	return nil
}

// CheckSignature recovers the signer and compares it to the maker.
func (o *Order) CheckSignature() error {
	signer, err := eip712.Recover(o.Digest(), o.Params.Signature)
	if err != nil {
		return err
	}
	if signer != o.Params.Maker {
		return fmt.Errorf("zeroexv4: signer %s is not maker %s: %w",
			signer, o.Params.Maker, nftagg.ErrInvalidSignature)
	}
	return nil
}

// CheckValidity verifies the order's fields are internally consistent for
// its detected kind.
func (o *Order) CheckValidity() error {
	b, err := builderFor(o.Kind)
	if err != nil {
		return err
	}
	if !b.IsValid(o) {
		return fmt.Errorf("zeroexv4: %w", nftagg.ErrInvalidOrder)
	}
	return nil
}

// GetInfo extracts the protocol-neutral view of the order.
func (o *Order) GetInfo() (*nftagg.OrderInfo, error) {
	b, err := builderFor(o.Kind)
	if err != nil {
		return nil, err
	}
	return b.GetInfo(o)
}

// GetMatchingPrice is the total the filler pays or receives for a whole
// fill: erc20TokenAmount plus all fee legs. V4 prices are static.
func (o *Order) GetMatchingPrice(_ ...int64) (*big.Int, error) {
	total := new(big.Int).Set(o.Params.ERC20TokenAmount)
	for i := range o.Params.Fees {
		total.Add(total, o.Params.Fees[i].Amount)
	}
	return total, nil
}

// GetFeeAmount sums the order's fee legs.
func (o *Order) GetFeeAmount() *big.Int {
	total := new(big.Int)
	for i := range o.Params.Fees {
		total.Add(total, o.Params.Fees[i].Amount)
	}
	return total
}

// BuildMatching produces the fill parameters for a taker.
func (o *Order) BuildMatching(data *MatchData) (*MatchParams, error) {
	b, err := builderFor(o.Kind)
	if err != nil {
		return nil, err
	}
	return b.BuildMatching(o, data)
}

// CheckFillability verifies the order is live on chain and the maker still
// holds funds and approvals. The exchange contract itself is the operator:
// V4 pulls assets without a conduit.
func (o *Order) CheckFillability(ctx context.Context, reader *onchain.Reader) error {
	filledOrCancelled, err := o.nonceConsumed(ctx, reader)
	if err != nil {
		return err
	}
	if filledOrCancelled {
		return fmt.Errorf("zeroexv4: nonce %s consumed: %w", o.Params.Nonce, nftagg.ErrNotFillable)
	}
	if o.Params.Expiry.Sign() > 0 && o.Params.Expiry.Int64() <= time.Now().Unix() {
		return fmt.Errorf("zeroexv4: order expired: %w", nftagg.ErrNotFillable)
	}

	operator := o.addrs.ZeroExV4
	if o.Params.Direction == DirectionSell {
		amount := big.NewInt(1)
		if o.Params.NFTTokenAmount != nil {
			amount = o.Params.NFTTokenAmount
		}
		return reader.EnsureNFTOwnershipAndApproval(ctx,
			o.TokenKind(), o.Params.NFTToken, o.Params.Maker, operator,
			o.Params.NFTTokenID, amount)
	}

	if o.Params.ERC20Token == NativeTokenSentinel {
		return fmt.Errorf("zeroexv4: native-currency bid: %w", nftagg.ErrUnsupportedCurrency)
	}
	price, err := o.GetMatchingPrice()
	if err != nil {
		return err
	}
	return reader.EnsureERC20BalanceAndAllowance(ctx,
		o.Params.ERC20Token, o.Params.Maker, operator, price)
}

// nonceConsumed reads the per-maker nonce status bit vector. Each word
// covers 256 nonces; the low byte of the nonce indexes the bit.
func (o *Order) nonceConsumed(ctx context.Context, reader *onchain.Reader) (bool, error) {
	exchangeABI := ExchangeABI()
	method := "getERC721OrderStatusBitVector"
	if o.TokenKind() == nftagg.TokenKindERC1155 {
		method = "getERC1155OrderNonceStatusBitVector"
	}

	nonceRange := new(big.Int).Rsh(o.Params.Nonce, 8)
	data, err := exchangeABI.Pack(method, o.Params.Maker, nonceRange)
	if err != nil {
		return false, fmt.Errorf("zeroexv4: pack %s: %w", method, err)
	}
	out, err := reader.Call(ctx, o.addrs.ZeroExV4, data)
	if err != nil {
		return false, err
	}
	values, err := exchangeABI.Unpack(method, out)
	if err != nil {
		return false, fmt.Errorf("zeroexv4: unpack %s: %w", method, err)
	}
	bitVector := values[0].(*big.Int)

	bitIndex := uint(new(big.Int).And(o.Params.Nonce, big.NewInt(0xff)).Uint64())
	return bitVector.Bit(int(bitIndex)) == 1, nil
}
