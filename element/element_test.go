package element

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

var (
	testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testFeeAddr  = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func sellParams(maker common.Address) *BuildParams {
	return &BuildParams{
		Side:     nftagg.SideSell,
		Maker:    maker,
		Contract: testContract,
		TokenID:  big.NewInt(7),
		Price:    big.NewInt(1000),
		Fees: []nftagg.FeeItem{
			{Recipient: testFeeAddr, Amount: big.NewInt(50)},
		},
		Expiry: big.NewInt(time.Now().Add(time.Hour).Unix()),
		Nonce:  big.NewInt(1),
	}
}

func TestPrincipalExcludesFees(t *testing.T) {
	maker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	o, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)

	assert.Equal(t, "950", o.Params.ERC20TokenAmount.String())
	price, err := o.GetMatchingPrice()
	require.NoError(t, err)
	assert.Equal(t, "1000", price.String())

	info, err := o.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, "1000", info.Price.String())
	assert.Equal(t, "950", info.NetPrice().String())
	assert.True(t, nftagg.IsNative(info.PaymentToken))
}

func TestSignatureLaw(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	maker := crypto.PubkeyToAddress(key.PublicKey)

	o, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))
	require.NoError(t, o.CheckSignature())

	o.Params.NFTID = big.NewInt(8)
	assert.ErrorIs(t, o.CheckSignature(), nftagg.ErrInvalidSignature)
}

func TestNativeBidRejected(t *testing.T) {
	maker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	params := sellParams(maker)
	params.Side = nftagg.SideBuy
	_, err := Build(nftagg.ChainEthereum, params)
	assert.ErrorIs(t, err, nftagg.ErrUnsupportedCurrency)
}

func TestFillDirections(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	maker := crypto.PubkeyToAddress(key.PublicKey)
	taker := common.HexToAddress("0x4444444444444444444444444444444444444444")

	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)

	ask, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)
	require.NoError(t, ask.Sign(key))
	tx, err := ex.FillTx(taker, ask, false)
	require.NoError(t, err)
	assert.Equal(t, ExchangeABI().Methods["buyERC721"].ID, tx.Data[:4])
	assert.Equal(t, "1000", tx.Value.String())

	addrs, err := nftagg.Addresses(nftagg.ChainEthereum)
	require.NoError(t, err)
	params := sellParams(maker)
	params.Side = nftagg.SideBuy
	params.PaymentToken = addrs.WNative
	bid, err := Build(nftagg.ChainEthereum, params)
	require.NoError(t, err)
	require.NoError(t, bid.Sign(key))
	tx, err = ex.FillTx(taker, bid, true)
	require.NoError(t, err)
	assert.Equal(t, ExchangeABI().Methods["sellERC721"].ID, tx.Data[:4])
	assert.Zero(t, tx.Value.Sign())
}
