package foundation

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nftagg "github.com/nftagg/router-sdk-go"
)

var (
	testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testSeller   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestListingInfo(t *testing.T) {
	l, err := New(nftagg.ChainEthereum, testContract, big.NewInt(7), big.NewInt(1000), testSeller)
	require.NoError(t, err)

	info, err := l.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, nftagg.SideSell, info.Side)
	assert.Equal(t, "7", info.TokenID.String())
	assert.Equal(t, "1000", info.Price.String())
	assert.True(t, nftagg.IsNative(info.PaymentToken))

	_, err = New(nftagg.ChainEthereum, testContract, nil, big.NewInt(1000), testSeller)
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
}

func TestFillAttachesPrice(t *testing.T) {
	l, err := New(nftagg.ChainEthereum, testContract, big.NewInt(7), big.NewInt(1000), testSeller)
	require.NoError(t, err)
	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)

	taker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	tx, err := ex.FillTx(taker, l, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, MarketABI().Methods["buyV2"].ID, tx.Data[:4])
	assert.Equal(t, ex.Address(), tx.To)
	assert.Equal(t, "1000", tx.Value.String())
}

func TestListAndCancelEncoding(t *testing.T) {
	l, err := New(nftagg.ChainEthereum, testContract, big.NewInt(7), big.NewInt(1000), testSeller)
	require.NoError(t, err)
	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)

	tx, err := ex.ListTx(testSeller, testContract, big.NewInt(7), big.NewInt(1000))
	require.NoError(t, err)
	assert.Equal(t, MarketABI().Methods["setBuyPrice"].ID, tx.Data[:4])
	assert.Zero(t, tx.Value.Sign())

	tx, err = ex.CancelTx(testSeller, l)
	require.NoError(t, err)
	assert.Equal(t, MarketABI().Methods["cancelBuyPrice"].ID, tx.Data[:4])
}
