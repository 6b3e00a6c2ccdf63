package rarible

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nftagg "github.com/nftagg/router-sdk-go"
)

var testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")

func sellParams(maker common.Address) *BuildParams {
	now := time.Now().Unix()
	return &BuildParams{
		Side:      nftagg.SideSell,
		TokenKind: nftagg.TokenKindERC721,
		Maker:     maker,
		Contract:  testContract,
		TokenID:   big.NewInt(5),
		Price:     big.NewInt(1000),
		Start:     now,
		End:       now + 86400,
		Salt:      big.NewInt(11),
	}
}

func TestAssetLegsRoundTrip(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	o, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)
	require.NoError(t, o.CheckValidity())
	assert.Equal(t, nftagg.SideSell, o.Side())
	assert.Equal(t, AssetClassERC721, o.Params.MakeAsset.AssetType.AssetClass)
	assert.Equal(t, AssetClassETH, o.Params.TakeAsset.AssetType.AssetClass)

	token, tokenID, err := DecodeNFTAssetData(o.Params.MakeAsset.AssetType.Data)
	require.NoError(t, err)
	assert.Equal(t, testContract, token)
	assert.Equal(t, "5", tokenID.String())

	info, err := o.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, "1000", info.Price.String())
	assert.True(t, nftagg.IsNative(info.PaymentToken))
}

func TestBidLegsAreMirrored(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	addrs, err := nftagg.Addresses(nftagg.ChainEthereum)
	require.NoError(t, err)

	params := sellParams(maker)
	params.Side = nftagg.SideBuy
	params.PaymentToken = addrs.WNative
	o, err := Build(nftagg.ChainEthereum, params)
	require.NoError(t, err)
	assert.Equal(t, nftagg.SideBuy, o.Side())
	assert.Equal(t, AssetClassERC20, o.Params.MakeAsset.AssetType.AssetClass)
	assert.Equal(t, AssetClassERC721, o.Params.TakeAsset.AssetType.AssetClass)

	got, err := DecodeERC20AssetData(o.Params.MakeAsset.AssetType.Data)
	require.NoError(t, err)
	assert.Equal(t, addrs.WNative, got)
}

func TestNativeBidRejected(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	params := sellParams(maker)
	params.Side = nftagg.SideBuy
	_, err := Build(nftagg.ChainEthereum, params)
	assert.ErrorIs(t, err, nftagg.ErrUnsupportedCurrency)
}

func TestSignatureLaw(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	maker := crypto.PubkeyToAddress(key.PublicKey)

	o, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))
	require.NoError(t, o.CheckSignature())

	o.Params.Salt = big.NewInt(12)
	assert.ErrorIs(t, o.CheckSignature(), nftagg.ErrInvalidSignature)
}

func TestMatchOrdersEncoding(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	maker := crypto.PubkeyToAddress(key.PublicKey)
	taker := common.HexToAddress("0x3333333333333333333333333333333333333333")

	o, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)

	match, err := o.BuildMatching(taker)
	require.NoError(t, err)
	assert.Equal(t, taker, match.Params.Maker)
	assert.Equal(t, o.Params.TakeAsset, match.Params.MakeAsset)
	assert.Equal(t, o.Params.MakeAsset, match.Params.TakeAsset)

	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)

	// an unsigned maker order cannot be filled
	_, err = ex.FillTx(taker, o, match)
	assert.ErrorIs(t, err, nftagg.ErrInvalidSignature)

	require.NoError(t, o.Sign(key))
	tx, err := ex.FillTx(taker, o, match)
	require.NoError(t, err)
	assert.Equal(t, ExchangeABI().Methods["matchOrders"].ID, tx.Data[:4])
	assert.Equal(t, "1000", tx.Value.String())
}
