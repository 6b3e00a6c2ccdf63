package looksrare

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

var testCollection = common.HexToAddress("0x1111111111111111111111111111111111111111")

func askParams(signer common.Address) *BuildParams {
	now := time.Now().Unix()
	return &BuildParams{
		Side:       nftagg.SideSell,
		Kind:       nftagg.OrderKindSingleToken,
		TokenKind:  nftagg.TokenKindERC721,
		Signer:     signer,
		Collection: testCollection,
		TokenID:    big.NewInt(42),
		Price:      big.NewInt(1_000_000),
		Nonce:      big.NewInt(3),
		StartTime:  now,
		EndTime:    now + 86400,
	}
}

func TestKindFollowsStrategy(t *testing.T) {
	signer := common.HexToAddress("0x2222222222222222222222222222222222222222")
	addrs, err := nftagg.Addresses(nftagg.ChainEthereum)
	require.NoError(t, err)

	ask, err := Build(nftagg.ChainEthereum, askParams(signer))
	require.NoError(t, err)
	assert.Equal(t, nftagg.OrderKindSingleToken, ask.Kind)
	assert.Equal(t, addrs.LooksRareStrategyStandardSale, ask.Params.Strategy)
	assert.Equal(t, addrs.WNative, ask.Params.Currency)

	params := askParams(signer)
	params.Side = nftagg.SideBuy
	params.Kind = nftagg.OrderKindContractWide
	params.TokenID = nil
	bid, err := Build(nftagg.ChainEthereum, params)
	require.NoError(t, err)
	assert.Equal(t, nftagg.OrderKindContractWide, bid.Kind)
	assert.Equal(t, addrs.LooksRareStrategyCollectionSale, bid.Params.Strategy)

	kind, err := DetectKind(bid)
	require.NoError(t, err)
	assert.Equal(t, nftagg.OrderKindContractWide, kind)
}

func TestCollectionAskRejected(t *testing.T) {
	signer := common.HexToAddress("0x2222222222222222222222222222222222222222")
	params := askParams(signer)
	params.Kind = nftagg.OrderKindContractWide
	_, err := Build(nftagg.ChainEthereum, params)
	assert.ErrorIs(t, err, nftagg.ErrUnsupportedSide)
}

func TestForeignCurrencyRejected(t *testing.T) {
	signer := common.HexToAddress("0x2222222222222222222222222222222222222222")
	o, err := Build(nftagg.ChainEthereum, askParams(signer))
	require.NoError(t, err)

	o.Params.Currency = testCollection
	assert.ErrorIs(t, o.CheckValidity(), nftagg.ErrUnsupportedCurrency)
}

func TestSignatureLaw(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)

	o, err := Build(nftagg.ChainEthereum, askParams(signer))
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))
	require.NoError(t, o.CheckSignature())

	o.Params.Price = big.NewInt(1)
	assert.ErrorIs(t, o.CheckSignature(), nftagg.ErrInvalidSignature)
}

func TestCollectionBidNeedsTokenID(t *testing.T) {
	signer := common.HexToAddress("0x2222222222222222222222222222222222222222")
	params := askParams(signer)
	params.Side = nftagg.SideBuy
	params.Kind = nftagg.OrderKindContractWide
	params.TokenID = nil
	bid, err := Build(nftagg.ChainEthereum, params)
	require.NoError(t, err)

	taker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	_, err = bid.BuildMatching(&MatchData{Taker: taker})
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)

	to, err := bid.BuildMatching(&MatchData{Taker: taker, TokenID: big.NewInt(9)})
	require.NoError(t, err)
	assert.Equal(t, "9", to.TokenID.String())
	assert.True(t, to.IsOrderAsk)
}

func TestTakerTokenMismatch(t *testing.T) {
	signer := common.HexToAddress("0x2222222222222222222222222222222222222222")
	o, err := Build(nftagg.ChainEthereum, askParams(signer))
	require.NoError(t, err)

	taker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	_, err = o.BuildMatching(&MatchData{Taker: taker, TokenID: big.NewInt(41)})
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
}

func TestFillEntrypointSelection(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := crypto.PubkeyToAddress(key.PublicKey)
	taker := common.HexToAddress("0x3333333333333333333333333333333333333333")

	o, err := Build(nftagg.ChainEthereum, askParams(signer))
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))

	to, err := o.BuildMatching(&MatchData{Taker: taker})
	require.NoError(t, err)

	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)

	// native path wraps on chain and attaches the price as value
	tx, err := ex.FillTx(taker, o, to, false)
	require.NoError(t, err)
	assert.Equal(t, ExchangeABI().Methods["matchAskWithTakerBidUsingETHAndWETH"].ID, tx.Data[:4])
	assert.Equal(t, o.Params.Price.String(), tx.Value.String())

	// wrapped path sends no value
	tx, err = ex.FillTx(taker, o, to, true)
	require.NoError(t, err)
	assert.Equal(t, ExchangeABI().Methods["matchAskWithTakerBid"].ID, tx.Data[:4])
	assert.Zero(t, tx.Value.Sign())

	// bids always settle wrapped
	params := askParams(signer)
	params.Side = nftagg.SideBuy
	bid, err := Build(nftagg.ChainEthereum, params)
	require.NoError(t, err)
	require.NoError(t, bid.Sign(key))
	bto, err := bid.BuildMatching(&MatchData{Taker: taker})
	require.NoError(t, err)
	tx, err = ex.FillTx(taker, bid, bto, true)
	require.NoError(t, err)
	assert.Equal(t, ExchangeABI().Methods["matchBidWithTakerAsk"].ID, tx.Data[:4])
}
