package wyvern

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
		Side:           nftagg.SideSell,
		Maker:          maker,
		Contract:       testContract,
		TokenID:        big.NewInt(42),
		Price:          big.NewInt(1000),
		RelayerFeeBps:  250,
		FeeRecipient:   common.HexToAddress("0x2222222222222222222222222222222222222222"),
		ListingTime:    now,
		ExpirationTime: now + 86400,
		Salt:           big.NewInt(7),
	}
}

func TestCalldataCarriesTokenID(t *testing.T) {
	maker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	o, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)
	require.NoError(t, o.CheckValidity())

	info, err := o.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, "42", info.TokenID.String())
	assert.Equal(t, testContract, info.Contract)
	assert.Equal(t, "1000", info.Price.String())
	assert.Len(t, o.Params.ReplacementPattern, len(o.Params.Calldata))
}

func TestRelayerFeeAmount(t *testing.T) {
	maker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	o, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)
	assert.Equal(t, "25", o.GetFeeAmount().String())
}

func TestDutchAuctionPricing(t *testing.T) {
	maker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	params := sellParams(maker)
	params.EndPrice = big.NewInt(400)
	o, err := Build(nftagg.ChainEthereum, params)
	require.NoError(t, err)
	require.True(t, o.IsDynamic())
	assert.Equal(t, "600", o.Params.Extra.String())

	p, err := o.GetMatchingPrice(params.ListingTime)
	require.NoError(t, err)
	assert.Equal(t, "1000", p.String())
	p, err = o.GetMatchingPrice(params.ExpirationTime)
	require.NoError(t, err)
	assert.Equal(t, "400", p.String())
	p, err = o.GetMatchingPrice((params.ListingTime + params.ExpirationTime) / 2)
	require.NoError(t, err)
	assert.Equal(t, "700", p.String())
}

func TestAscendingPriceRejected(t *testing.T) {
	maker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	params := sellParams(maker)
	params.EndPrice = big.NewInt(2000)
	_, err := Build(nftagg.ChainEthereum, params)
	assert.ErrorIs(t, err, nftagg.ErrReverseDutchAuction)
}

func TestNativeBidRejected(t *testing.T) {
	maker := common.HexToAddress("0x3333333333333333333333333333333333333333")
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

	o.Params.BasePrice = big.NewInt(1)
	assert.ErrorIs(t, o.CheckSignature(), nftagg.ErrInvalidSignature)
}

func TestAtomicMatchEncoding(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	maker := crypto.PubkeyToAddress(key.PublicKey)
	taker := common.HexToAddress("0x4444444444444444444444444444444444444444")

	o, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))

	match, err := o.BuildMatching(taker)
	require.NoError(t, err)
	assert.Equal(t, SideOpBuy, match.Params.Side)
	assert.Equal(t, taker, match.Params.Maker)
	// fee recipient sits on exactly one side of the pair
	assert.Equal(t, common.Address{}, match.Params.FeeRecipient)

	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)
	tx, err := ex.FillTx(taker, o, match)
	require.NoError(t, err)
	assert.Equal(t, ExchangeABI().Methods["atomicMatch_"].ID, tx.Data[:4])
	assert.Equal(t, "1000", tx.Value.String())

	_, err = ex.FillTx(taker, o, nil)
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
}
