package punks

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nftagg "github.com/nftagg/router-sdk-go"
)

var testSeller = common.HexToAddress("0x1111111111111111111111111111111111111111")

func TestOfferInfo(t *testing.T) {
	o, err := New(nftagg.ChainEthereum, big.NewInt(3100), big.NewInt(1000), testSeller)
	require.NoError(t, err)

	info, err := o.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, nftagg.SideSell, info.Side)
	assert.Equal(t, "3100", info.TokenID.String())
	assert.Equal(t, "1000", info.Price.String())
	assert.True(t, nftagg.IsNative(info.PaymentToken))

	_, err = New(nftagg.ChainEthereum, nil, big.NewInt(1000), testSeller)
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
}

func TestPrivateOfferRestrictsBuyer(t *testing.T) {
	o, err := New(nftagg.ChainEthereum, big.NewInt(3100), big.NewInt(1000), testSeller)
	require.NoError(t, err)
	allowed := common.HexToAddress("0x2222222222222222222222222222222222222222")
	o.OnlySellTo = allowed

	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)

	stranger := common.HexToAddress("0x3333333333333333333333333333333333333333")
	_, err = ex.FillTx(stranger, o)
	assert.ErrorIs(t, err, nftagg.ErrNotFillable)

	tx, err := ex.FillTx(allowed, o)
	require.NoError(t, err)
	assert.Equal(t, MarketABI().Methods["buyPunk"].ID, tx.Data[:4])
	assert.Equal(t, "1000", tx.Value.String())
}

func TestListEntrypointSelection(t *testing.T) {
	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)

	tx, err := ex.ListTx(testSeller, big.NewInt(3100), big.NewInt(1000), common.Address{})
	require.NoError(t, err)
	assert.Equal(t, MarketABI().Methods["offerPunkForSale"].ID, tx.Data[:4])

	buyer := common.HexToAddress("0x2222222222222222222222222222222222222222")
	tx, err = ex.ListTx(testSeller, big.NewInt(3100), big.NewInt(1000), buyer)
	require.NoError(t, err)
	assert.Equal(t, MarketABI().Methods["offerPunkForSaleToAddress"].ID, tx.Data[:4])
}
