package rarible

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

// Order binds an exchange V2 order to a chain.
type Order struct {
	ChainID nftagg.ChainID
	Kind    nftagg.OrderKind
	Params  Params

	addrs nftagg.ContractAddresses
}

// BuildParams are the user-facing single-token inputs. The NFT side is the
// make asset for listings and the take asset for bids.
type BuildParams struct {
	Side      nftagg.Side
	TokenKind nftagg.TokenKind

	Maker    common.Address
	Contract common.Address
	TokenID  *big.Int
	Amount   *big.Int

	PaymentToken common.Address
	Price        *big.Int

	Start int64
	End   int64
	Salt  *big.Int
}

// Build constructs a single-token order.
func Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error) {
	if params.Price == nil || params.TokenID == nil {
		return nil, fmt.Errorf("rarible: missing price or token id: %w", nftagg.ErrInvalidParams)
	}

	nftClass := AssetClassERC721
	amount := big.NewInt(1)
	if params.TokenKind == nftagg.TokenKindERC1155 {
		nftClass = AssetClassERC1155
		if params.Amount != nil {
			amount = params.Amount
		}
	}
	nftAsset := Asset{
		AssetType: AssetType{AssetClass: nftClass, Data: EncodeNFTAssetData(params.Contract, params.TokenID)},
		Value:     amount,
	}

	var payAsset Asset
	if nftagg.IsNative(params.PaymentToken) {
		if params.Side == nftagg.SideBuy {
			return nil, fmt.Errorf("rarible: native-currency bid: %w", nftagg.ErrUnsupportedCurrency)
		}
		payAsset = Asset{AssetType: AssetType{AssetClass: AssetClassETH, Data: []byte{}}, Value: params.Price}
	} else {
		payAsset = Asset{
			AssetType: AssetType{AssetClass: AssetClassERC20, Data: EncodeERC20AssetData(params.PaymentToken)},
			Value:     params.Price,
		}
	}

	p := Params{
		Maker:    params.Maker,
		Salt:     params.Salt,
		Start:    big.NewInt(params.Start),
		End:      big.NewInt(params.End),
		DataType: DataTypeNone,
		Data:     []byte{},
	}
	if params.Side == nftagg.SideSell {
		p.MakeAsset, p.TakeAsset = nftAsset, payAsset
	} else {
		p.MakeAsset, p.TakeAsset = payAsset, nftAsset
	}
	return New(chainID, p)
}

// New normalizes and chain-binds an order.
func New(chainID nftagg.ChainID, params Params) (*Order, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.Rarible == (common.Address{}) {
		return nil, fmt.Errorf("rarible: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	if params.Salt == nil {
		params.Salt = nftagg.RandomSalt()
	}
	if params.Start == nil {
		params.Start = new(big.Int)
	}
	if params.End == nil {
		params.End = new(big.Int)
	}
	if params.MakeAsset.Value == nil || params.TakeAsset.Value == nil {
		return nil, fmt.Errorf("rarible: missing asset values: %w", nftagg.ErrInvalidOrder)
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
		VerifyingContract: o.exchangeAddress(),
	}
}

func (o *Order) exchangeAddress() common.Address {
	return o.addrs.Rarible
}

func isNFTClass(c AssetClass) bool {
	return c == AssetClassERC721 || c == AssetClassERC1155 || c == AssetClassCollection
}

func (o *Order) Side() nftagg.Side {
	if isNFTClass(o.Params.MakeAsset.AssetType.AssetClass) {
		return nftagg.SideSell
	}
	return nftagg.SideBuy
}

func (o *Order) nftAsset() *Asset {
	if o.Side() == nftagg.SideSell {
		return &o.Params.MakeAsset
	}
	return &o.Params.TakeAsset
}

func (o *Order) payAsset() *Asset {
	if o.Side() == nftagg.SideSell {
		return &o.Params.TakeAsset
	}
	return &o.Params.MakeAsset
}

func (o *Order) Hash() common.Hash {
	return o.Params.structHash()
}

func (o *Order) HashKey() common.Hash {
	return o.Params.hashKey()
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
		return fmt.Errorf("rarible: recovered %s, want %s: %w",
			signer, o.Params.Maker, nftagg.ErrInvalidSignature)
	}
	return nil
}

// CheckValidity requires exactly one NFT leg and one currency leg.
func (o *Order) CheckValidity() error {
	makeNFT := isNFTClass(o.Params.MakeAsset.AssetType.AssetClass)
	takeNFT := isNFTClass(o.Params.TakeAsset.AssetType.AssetClass)
	if makeNFT == takeNFT {
		return fmt.Errorf("rarible: need one nft leg and one currency leg: %w", nftagg.ErrInvalidOrder)
	}
	if _, _, err := DecodeNFTAssetData(o.nftAsset().AssetType.Data); err != nil {
		return fmt.Errorf("rarible: malformed nft asset data: %w", nftagg.ErrInvalidOrder)
	}
	return nil
}

func (o *Order) GetInfo() (*nftagg.OrderInfo, error) {
	nft := o.nftAsset()
	pay := o.payAsset()

	token, tokenID, err := DecodeNFTAssetData(nft.AssetType.Data)
	if err != nil {
		return nil, fmt.Errorf("rarible: malformed nft asset data: %w", nftagg.ErrInvalidOrder)
	}

	tokenKind := nftagg.TokenKindERC721
	if nft.AssetType.AssetClass == AssetClassERC1155 {
		tokenKind = nftagg.TokenKindERC1155
	}

	paymentToken := nftagg.NativeToken
	if pay.AssetType.AssetClass == AssetClassERC20 {
		paymentToken, err = DecodeERC20AssetData(pay.AssetType.Data)
		if err != nil {
			return nil, fmt.Errorf("rarible: malformed erc20 asset data: %w", nftagg.ErrInvalidOrder)
		}
	}

	return &nftagg.OrderInfo{
		Side:         o.Side(),
		TokenKind:    tokenKind,
		Contract:     token,
		TokenID:      tokenID,
		Amount:       nft.Value,
		PaymentToken: paymentToken,
		Price:        pay.Value,
		Taker:        o.Params.Taker,
	}, nil
}

func (o *Order) GetMatchingPrice(_ ...int64) (*big.Int, error) {
	return o.payAsset().Value, nil
}

// GetFeeAmount is zero: V2 payouts and royalties ride in the data payload,
// which the plain order surface leaves empty.
func (o *Order) GetFeeAmount() *big.Int {
	return new(big.Int)
}

// BuildMatching constructs the mirrored taker order for matchOrders.
func (o *Order) BuildMatching(taker common.Address) (*Order, error) {
	if taker == (common.Address{}) {
		return nil, fmt.Errorf("rarible: missing taker: %w", nftagg.ErrInvalidParams)
	}
	mirrored := Params{
		Maker:     taker,
		MakeAsset: o.Params.TakeAsset,
		Taker:     o.Params.Maker,
		TakeAsset: o.Params.MakeAsset,
		Salt:      new(big.Int),
		Start:     o.Params.Start,
		End:       o.Params.End,
		DataType:  DataTypeNone,
		Data:      []byte{},
	}
	return New(o.ChainID, mirrored)
}

// CheckFillability reads the exchange's fill counter for the order key and
// verifies maker funds. NFT transfers run through the transfer proxy.
func (o *Order) CheckFillability(ctx context.Context, reader *onchain.Reader) error {
	filled, err := o.filledAmount(ctx, reader)
	if err != nil {
		return err
	}
	if filled.Cmp(o.Params.TakeAsset.Value) >= 0 {
		return fmt.Errorf("rarible: order filled: %w", nftagg.ErrNotFillable)
	}
	now := time.Now().Unix()
	if o.Params.End.Sign() > 0 && o.Params.End.Int64() <= now {
		return fmt.Errorf("rarible: order expired: %w", nftagg.ErrNotFillable)
	}

	info, err := o.GetInfo()
	if err != nil {
		return err
	}
	if o.Side() == nftagg.SideSell {
		return reader.EnsureNFTOwnershipAndApproval(ctx,
			info.TokenKind, info.Contract, o.Params.Maker, o.addrs.RaribleTransferProxy,
			info.TokenID, info.Amount)
	}
	if nftagg.IsNative(info.PaymentToken) {
		return fmt.Errorf("rarible: native-currency bid: %w", nftagg.ErrUnsupportedCurrency)
	}
	return reader.EnsureERC20BalanceAndAllowance(ctx,
		info.PaymentToken, o.Params.Maker, o.addrs.RaribleTransferProxy, info.Price)
}

func (o *Order) filledAmount(ctx context.Context, reader *onchain.Reader) (*big.Int, error) {
	exchangeABI := ExchangeABI()
	data, err := exchangeABI.Pack("fills", o.HashKey())
	if err != nil {
		return nil, fmt.Errorf("rarible: pack fills: %w", err)
	}
	out, err := reader.Call(ctx, o.exchangeAddress(), data)
	if err != nil {
		return nil, err
	}
	values, err := exchangeABI.Unpack("fills", out)
	if err != nil {
		return nil, fmt.Errorf("rarible: unpack fills: %w", err)
	}
	return values[0].(*big.Int), nil
}
