package flow

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

func sellParams(maker common.Address, tokenID, price int64) *BuildParams {
	now := time.Now().Unix()
	return &BuildParams{
		Side:      nftagg.SideSell,
		TokenKind: nftagg.TokenKindERC721,
		Maker:     maker,
		Contract:  testContract,
		TokenID:   big.NewInt(tokenID),
		Price:     big.NewInt(price),
		StartTime: now,
		EndTime:   now + 86400,
		Nonce:     big.NewInt(tokenID),
	}
}

func TestBuildRoundTrip(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	o, err := Build(nftagg.ChainEthereum, sellParams(maker, 1, 1000))
	require.NoError(t, err)
	require.NoError(t, o.CheckValidity())

	info, err := o.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, testContract, info.Contract)
	assert.Equal(t, "1", info.TokenID.String())
	assert.Equal(t, "1000", info.Price.String())
	assert.False(t, o.IsDynamic())
	assert.Equal(t, "1", o.Nonce().String())
}

func TestSignatureLaw(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	maker := crypto.PubkeyToAddress(key.PublicKey)

	o, err := Build(nftagg.ChainEthereum, sellParams(maker, 1, 1000))
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))
	require.NoError(t, o.CheckSignature())

	o.Params.Signer = testContract
	assert.ErrorIs(t, o.CheckSignature(), nftagg.ErrInvalidSignature)
}

func TestAscendingPriceRejected(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	params := sellParams(maker, 1, 1000)
	params.EndPrice = big.NewInt(2000)
	_, err := Build(nftagg.ChainEthereum, params)
	assert.ErrorIs(t, err, nftagg.ErrReverseDutchAuction)
}

func TestNativeBidRejected(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	params := sellParams(maker, 1, 1000)
	params.Side = nftagg.SideBuy
	_, err := Build(nftagg.ChainEthereum, params)
	assert.ErrorIs(t, err, nftagg.ErrUnsupportedCurrency)
}

func TestDutchAuctionPricing(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	params := sellParams(maker, 1, 1000)
	params.EndPrice = big.NewInt(400)
	o, err := Build(nftagg.ChainEthereum, params)
	require.NoError(t, err)
	assert.True(t, o.IsDynamic())

	start := params.StartTime
	end := params.EndTime

	p, err := o.GetMatchingPrice(start)
	require.NoError(t, err)
	assert.Equal(t, "1000", p.String())
	p, err = o.GetMatchingPrice(end)
	require.NoError(t, err)
	assert.Equal(t, "400", p.String())
	p, err = o.GetMatchingPrice((start + end) / 2)
	require.NoError(t, err)
	assert.Equal(t, "700", p.String())
}

func TestBatchFillSumsNativeValue(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	maker := crypto.PubkeyToAddress(key.PublicKey)
	taker := common.HexToAddress("0x3333333333333333333333333333333333333333")

	var orders []*Order
	for i, price := range []int64{1000, 2500} {
		o, err := Build(nftagg.ChainEthereum, sellParams(maker, int64(i+1), price))
		require.NoError(t, err)
		require.NoError(t, o.Sign(key))
		orders = append(orders, o)
	}

	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)
	tx, err := ex.FillTx(taker, orders)
	require.NoError(t, err)
	assert.Equal(t, ExchangeABI().Methods["takeMultipleOneOrders"].ID, tx.Data[:4])
	assert.Equal(t, "3500", tx.Value.String())

	_, err = ex.FillTx(taker, nil)
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
}
