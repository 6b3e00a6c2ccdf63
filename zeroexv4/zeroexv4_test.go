package zeroexv4

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
		Side:      nftagg.SideSell,
		TokenKind: nftagg.TokenKindERC721,
		Offerer:   maker,
		Contract:  testContract,
		TokenID:   big.NewInt(7),
		Price:     big.NewInt(1000),
		Fees: []nftagg.FeeItem{
			{Recipient: testFeeAddr, Amount: big.NewInt(25)},
		},
		Expiry: big.NewInt(time.Now().Add(time.Hour).Unix()),
		Nonce:  big.NewInt(12345),
	}
}

func TestFeeOnTopArithmetic(t *testing.T) {
	maker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	o, err := (&SingleTokenBuilder{}).Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)

	// the hashed principal excludes fees; the filler pays them on top
	assert.Equal(t, "975", o.Params.ERC20TokenAmount.String())
	price, err := o.GetMatchingPrice()
	require.NoError(t, err)
	assert.Equal(t, "1000", price.String())

	info, err := o.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, "1000", info.Price.String())
	assert.Equal(t, "25", info.TotalFees().String())
}

func TestKindDetection(t *testing.T) {
	maker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	addrs, err := nftagg.Addresses(nftagg.ChainEthereum)
	require.NoError(t, err)

	single, err := (&SingleTokenBuilder{}).Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)
	assert.Equal(t, nftagg.OrderKindSingleToken, single.Kind)

	bid := sellParams(maker)
	bid.Side = nftagg.SideBuy
	bid.PaymentToken = addrs.WNative
	wide, err := (&ContractWideBuilder{}).Build(nftagg.ChainEthereum, bid)
	require.NoError(t, err)
	assert.Equal(t, nftagg.OrderKindContractWide, wide.Kind)

	kind, err := DetectKind(wide)
	require.NoError(t, err)
	assert.Equal(t, nftagg.OrderKindContractWide, kind)
}

func TestSignatureLaw(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	maker := crypto.PubkeyToAddress(key.PublicKey)

	o, err := (&SingleTokenBuilder{}).Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))
	require.NoError(t, o.CheckSignature())

	o.Params.Maker = testFeeAddr
	assert.ErrorIs(t, o.CheckSignature(), nftagg.ErrInvalidSignature)
}

func TestNativeBidRejected(t *testing.T) {
	maker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	params := sellParams(maker)
	params.Side = nftagg.SideBuy
	_, err := (&SingleTokenBuilder{}).Build(nftagg.ChainEthereum, params)
	assert.ErrorIs(t, err, nftagg.ErrUnsupportedCurrency)
}

func TestFeesExceedingPriceRejected(t *testing.T) {
	maker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	params := sellParams(maker)
	params.Fees = []nftagg.FeeItem{{Recipient: testFeeAddr, Amount: big.NewInt(2000)}}
	_, err := (&SingleTokenBuilder{}).Build(nftagg.ChainEthereum, params)
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
}

func TestPartialFillLinearity(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	maker := crypto.PubkeyToAddress(key.PublicKey)

	params := sellParams(maker)
	params.TokenKind = nftagg.TokenKindERC1155
	params.Amount = big.NewInt(10)
	o, err := (&SingleTokenBuilder{}).Build(nftagg.ChainEthereum, params)
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))

	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)

	whole, err := o.GetMatchingPrice()
	require.NoError(t, err)

	// the sum of per-unit values across all units never exceeds the whole
	// price, short only by floor dust
	sum := new(big.Int)
	for i := 0; i < 10; i++ {
		match, err := o.BuildMatching(&MatchData{Amount: big.NewInt(1)})
		require.NoError(t, err)
		tx, err := ex.FillTx(testFeeAddr, o, match)
		require.NoError(t, err)
		sum.Add(sum, tx.Value)
	}
	assert.True(t, sum.Cmp(whole) <= 0)
	dust := new(big.Int).Sub(whole, sum)
	assert.True(t, dust.Cmp(big.NewInt(10)) < 0)

	// a fill of the full quantity pays the whole price
	match, err := o.BuildMatching(&MatchData{Amount: big.NewInt(10)})
	require.NoError(t, err)
	tx, err := ex.FillTx(testFeeAddr, o, match)
	require.NoError(t, err)
	assert.Equal(t, whole.String(), tx.Value.String())
}

func TestFillAmountOutOfRange(t *testing.T) {
	maker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	params := sellParams(maker)
	params.TokenKind = nftagg.TokenKindERC1155
	params.Amount = big.NewInt(10)
	o, err := (&SingleTokenBuilder{}).Build(nftagg.ChainEthereum, params)
	require.NoError(t, err)

	_, err = o.BuildMatching(&MatchData{Amount: big.NewInt(11)})
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
	_, err = o.BuildMatching(&MatchData{Amount: new(big.Int)})
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
}

func TestCollectionBidNeedsConcreteToken(t *testing.T) {
	maker := common.HexToAddress("0x3333333333333333333333333333333333333333")
	addrs, err := nftagg.Addresses(nftagg.ChainEthereum)
	require.NoError(t, err)

	params := sellParams(maker)
	params.Side = nftagg.SideBuy
	params.PaymentToken = addrs.WNative
	o, err := (&ContractWideBuilder{}).Build(nftagg.ChainEthereum, params)
	require.NoError(t, err)

	_, err = o.BuildMatching(nil)
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)

	match, err := o.BuildMatching(&MatchData{TokenID: big.NewInt(9)})
	require.NoError(t, err)
	assert.Equal(t, "9", match.TokenID.String())
}
