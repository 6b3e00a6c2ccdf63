package x2y2

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
	return &BuildParams{
		Side:      nftagg.SideSell,
		TokenKind: nftagg.TokenKindERC721,
		Maker:     maker,
		Contract:  testContract,
		TokenID:   big.NewInt(42),
		Price:     big.NewInt(1_000_000),
		Deadline:  time.Now().Add(time.Hour).Unix(),
		Salt:      big.NewInt(5),
	}
}

func TestItemDataRoundTrip(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	o, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)
	require.NoError(t, o.CheckValidity())

	info, err := o.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, testContract, info.Contract)
	assert.Equal(t, "42", info.TokenID.String())
	assert.Equal(t, "1000000", info.Price.String())
	assert.Equal(t, nftagg.SideSell, info.Side)
	assert.True(t, nftagg.IsNative(info.PaymentToken))
}

func TestPersonalSignRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	maker := crypto.PubkeyToAddress(key.PublicKey)

	o, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))
	require.NoError(t, o.CheckSignature())

	o.Params.Items[0].Price = big.NewInt(1)
	assert.ErrorIs(t, o.CheckSignature(), nftagg.ErrInvalidSignature)
}

func TestDigestWrapsOrderHash(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	o, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)

	want := crypto.Keccak256Hash(
		[]byte("\x19Ethereum Signed Message:\n32"), o.Hash().Bytes(),
	)
	assert.Equal(t, want, o.Digest())
}

func TestUndeployedChainRejected(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	_, err := Build(nftagg.ChainPolygon, sellParams(maker))
	assert.ErrorIs(t, err, nftagg.ErrUnsupportedChain)

	_, err = NewExchange(nftagg.ChainPolygon)
	assert.ErrorIs(t, err, nftagg.ErrUnsupportedChain)
}

func TestNativeBidRejected(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	params := sellParams(maker)
	params.Side = nftagg.SideBuy
	_, err := Build(nftagg.ChainEthereum, params)
	assert.ErrorIs(t, err, nftagg.ErrUnsupportedCurrency)
}

func TestFillRequiresRunInput(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	o, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)
	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)

	taker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	_, err = ex.FillTx(taker, o, nil)
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)

	// the operator-signed input is forwarded untouched
	run := []byte{0xde, 0xad, 0xbe, 0xef}
	tx, err := ex.FillTx(taker, o, run)
	require.NoError(t, err)
	assert.Equal(t, ExchangeABI().Methods["run"].ID, tx.Data[:4])
	assert.Equal(t, o.Params.Items[0].Price.String(), tx.Value.String())
}
