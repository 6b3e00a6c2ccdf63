package zora

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

func TestAskInfo(t *testing.T) {
	a, err := New(nftagg.ChainEthereum, testContract, big.NewInt(7), big.NewInt(1000), testSeller, nftagg.NativeToken)
	require.NoError(t, err)

	info, err := a.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, nftagg.SideSell, info.Side)
	assert.Equal(t, "1000", info.Price.String())
	assert.True(t, nftagg.IsNative(info.PaymentToken))

	_, err = New(nftagg.ChainEthereum, testContract, big.NewInt(7), nil, testSeller, nftagg.NativeToken)
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
}

func TestFillValueFollowsCurrency(t *testing.T) {
	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)
	taker := common.HexToAddress("0x3333333333333333333333333333333333333333")

	native, err := New(nftagg.ChainEthereum, testContract, big.NewInt(7), big.NewInt(1000), testSeller, nftagg.NativeToken)
	require.NoError(t, err)
	tx, err := ex.FillTx(taker, native, common.Address{})
	require.NoError(t, err)
	assert.Equal(t, AsksABI().Methods["fillAsk"].ID, tx.Data[:4])
	assert.Equal(t, "1000", tx.Value.String())

	addrs, err := nftagg.Addresses(nftagg.ChainEthereum)
	require.NoError(t, err)
	wrapped, err := New(nftagg.ChainEthereum, testContract, big.NewInt(7), big.NewInt(1000), testSeller, addrs.WNative)
	require.NoError(t, err)
	tx, err = ex.FillTx(taker, wrapped, common.Address{})
	require.NoError(t, err)
	assert.Zero(t, tx.Value.Sign())
}

func TestListAndCancelEncoding(t *testing.T) {
	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)

	tx, err := ex.ListTx(testSeller, testContract, big.NewInt(7), big.NewInt(1000), nftagg.NativeToken, 250)
	require.NoError(t, err)
	assert.Equal(t, AsksABI().Methods["createAsk"].ID, tx.Data[:4])

	a, err := New(nftagg.ChainEthereum, testContract, big.NewInt(7), big.NewInt(1000), testSeller, nftagg.NativeToken)
	require.NoError(t, err)
	tx, err = ex.CancelTx(testSeller, a)
	require.NoError(t, err)
	assert.Equal(t, AsksABI().Methods["cancelAsk"].ID, tx.Data[:4])
}
