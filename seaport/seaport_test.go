package seaport

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nftagg "github.com/nftagg/router-sdk-go"
	"github.com/nftagg/router-sdk-go/merkle"
	"github.com/nftagg/router-sdk-go/onchain"
)

var (
	testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testFeeAddr  = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func listingParams(offerer common.Address) *BuildParams {
	now := time.Now().Unix()
	return &BuildParams{
		Offerer:   offerer,
		Side:      nftagg.SideSell,
		TokenKind: nftagg.TokenKindERC721,
		Contract:  testContract,
		TokenID:   big.NewInt(42),
		Price:     big.NewInt(1e18),
		Fees: []nftagg.FeeItem{
			{Recipient: testFeeAddr, Amount: big.NewInt(25e15)}, // 2.5%
		},
		StartTime: now,
		EndTime:   now + 86400,
		Salt:      big.NewInt(7),
	}
}

func TestSingleTokenListingRoundTrip(t *testing.T) {
	offerer := common.HexToAddress("0x3333333333333333333333333333333333333333")
	b := &SingleTokenBuilder{}
	o, err := b.Build(nftagg.ChainEthereum, listingParams(offerer))
	require.NoError(t, err)
	require.Equal(t, nftagg.OrderKindSingleToken, o.Kind)

	info := o.GetInfo()
	require.NotNil(t, info)
	assert.Equal(t, nftagg.SideSell, info.Side)
	assert.Equal(t, "1000000000000000000", info.Price.String())
	assert.Equal(t, "25000000000000000", info.TotalFees().String())
	assert.Equal(t, "975000000000000000", info.NetPrice().String())
	assert.True(t, nftagg.IsNative(info.PaymentToken))

	// round-trip law: rebuild from info, identical hash
	assert.True(t, b.IsValid(o))
	require.NoError(t, o.CheckValidity())

	kind, err := o.DetectKind()
	require.NoError(t, err)
	assert.Equal(t, nftagg.OrderKindSingleToken, kind)
}

func TestSignatureLaw(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	offerer := crypto.PubkeyToAddress(key.PublicKey)

	o, err := (&SingleTokenBuilder{}).Build(nftagg.ChainEthereum, listingParams(offerer))
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))
	require.NoError(t, o.CheckSignature())

	// a different offerer must not pass with the same signature
	stranger, err := crypto.GenerateKey()
	require.NoError(t, err)
	o.Params.Offerer = crypto.PubkeyToAddress(stranger.PublicKey)
	assert.ErrorIs(t, o.CheckSignature(), nftagg.ErrInvalidSignature)
}

func TestDutchAuctionPricing(t *testing.T) {
	offerer := common.HexToAddress("0x3333333333333333333333333333333333333333")
	params := listingParams(offerer)
	params.Fees = nil
	params.Price = big.NewInt(1000)
	params.EndPrice = big.NewInt(400)

	o, err := (&SingleTokenBuilder{}).Build(nftagg.ChainEthereum, params)
	require.NoError(t, err)
	require.True(t, o.IsDynamic())

	assert.Equal(t, "1000", o.GetMatchingPrice(params.StartTime).String())
	assert.Equal(t, "400", o.GetMatchingPrice(params.EndTime).String())

	prev := o.GetMatchingPrice(params.StartTime)
	for at := params.StartTime; at <= params.EndTime; at += 3600 {
		cur := o.GetMatchingPrice(at)
		assert.True(t, cur.Cmp(prev) <= 0, "price rose at t=%d", at)
		prev = cur
	}
}

func TestReverseDutchAuctionRejected(t *testing.T) {
	offerer := common.HexToAddress("0x3333333333333333333333333333333333333333")
	params := listingParams(offerer)
	params.EndPrice = big.NewInt(2e18)

	_, err := (&SingleTokenBuilder{}).Build(nftagg.ChainEthereum, params)
	assert.ErrorIs(t, err, nftagg.ErrReverseDutchAuction)
}

func TestNativeBidRejected(t *testing.T) {
	offerer := common.HexToAddress("0x3333333333333333333333333333333333333333")
	params := listingParams(offerer)
	params.Side = nftagg.SideBuy

	_, err := (&SingleTokenBuilder{}).Build(nftagg.ChainEthereum, params)
	assert.ErrorIs(t, err, nftagg.ErrUnsupportedCurrency)
}

func TestTokenListBidCriteriaProof(t *testing.T) {
	addrs, err := nftagg.Addresses(nftagg.ChainEthereum)
	require.NoError(t, err)
	offerer := common.HexToAddress("0x3333333333333333333333333333333333333333")

	set := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(5), big.NewInt(9)}
	now := time.Now().Unix()
	o, err := (&TokenListBuilder{}).Build(nftagg.ChainEthereum, &BuildParams{
		Offerer:      offerer,
		Side:         nftagg.SideBuy,
		TokenKind:    nftagg.TokenKindERC721,
		Contract:     testContract,
		TokenIDs:     set,
		PaymentToken: addrs.WNative,
		Price:        big.NewInt(1e18),
		StartTime:    now,
		EndTime:      now + 86400,
		Salt:         big.NewInt(7),
	})
	require.NoError(t, err)
	assert.Equal(t, nftagg.OrderKindTokenList, o.Kind)

	root, err := merkle.Root(set)
	require.NoError(t, err)
	info := o.GetInfo()
	require.NotNil(t, info)
	assert.Equal(t, root, info.MerkleRoot)

	match, err := o.BuildMatching(&MatchData{TokenID: big.NewInt(5), TokenIDs: set})
	require.NoError(t, err)
	assert.True(t, merkle.Verify(root, big.NewInt(5), match.CriteriaProof))

	// a tokenId outside the committed set cannot produce a proof
	_, err = o.BuildMatching(&MatchData{TokenID: big.NewInt(77), TokenIDs: set})
	assert.Error(t, err)
}

func TestContractWideBidDetection(t *testing.T) {
	addrs, err := nftagg.Addresses(nftagg.ChainEthereum)
	require.NoError(t, err)
	offerer := common.HexToAddress("0x3333333333333333333333333333333333333333")

	now := time.Now().Unix()
	o, err := (&ContractWideBuilder{}).Build(nftagg.ChainEthereum, &BuildParams{
		Offerer:      offerer,
		Side:         nftagg.SideBuy,
		TokenKind:    nftagg.TokenKindERC721,
		Contract:     testContract,
		PaymentToken: addrs.WNative,
		Price:        big.NewInt(1e18),
		StartTime:    now,
		EndTime:      now + 86400,
		Salt:         big.NewInt(7),
	})
	require.NoError(t, err)

	kind, err := o.DetectKind()
	require.NoError(t, err)
	assert.Equal(t, nftagg.OrderKindContractWide, kind)
}

func TestFillPathSelection(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	offerer := crypto.PubkeyToAddress(key.PublicKey)
	taker := common.HexToAddress("0x4444444444444444444444444444444444444444")

	params := listingParams(offerer)
	params.TokenKind = nftagg.TokenKindERC1155
	params.Amount = big.NewInt(10)
	params.AllowPartialFills = true
	o, err := (&SingleTokenBuilder{}).Build(nftagg.ChainEthereum, params)
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))

	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)

	// whole fill takes the basic path
	whole, err := ex.FillTx(taker, o, nil)
	require.NoError(t, err)
	assert.Equal(t, exchangeABI.Methods["fulfillOrder"].ID, whole.Data[:4])

	// partial quantity forces the advanced path with a fraction
	match, err := o.BuildMatching(&MatchData{Amount: big.NewInt(2)})
	require.NoError(t, err)
	partial, err := ex.FillTx(taker, o, match)
	require.NoError(t, err)
	assert.Equal(t, exchangeABI.Methods["fulfillAdvancedOrder"].ID, partial.Data[:4])

	// native listings carry the interpolated price as value
	assert.True(t, whole.Value.Sign() > 0)
}

func TestFillRequiresSignature(t *testing.T) {
	offerer := common.HexToAddress("0x3333333333333333333333333333333333333333")
	o, err := (&SingleTokenBuilder{}).Build(nftagg.ChainEthereum, listingParams(offerer))
	require.NoError(t, err)

	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)
	_, err = ex.FillTx(common.Address{1}, o, nil)
	assert.ErrorIs(t, err, nftagg.ErrInvalidOrder)
}

// stubClient cans eth_call responses keyed by the 4-byte selector.
type stubClient struct {
	responses map[[4]byte][]byte
}

func (s *stubClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	var sel [4]byte
	copy(sel[:], msg.Data[:4])
	if out, ok := s.responses[sel]; ok {
		return out, nil
	}
	return nil, assert.AnError
}

func (s *stubClient) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return new(big.Int), nil
}

func TestCancelledOrderNotFillable(t *testing.T) {
	offerer := common.HexToAddress("0x3333333333333333333333333333333333333333")
	o, err := (&SingleTokenBuilder{}).Build(nftagg.ChainEthereum, listingParams(offerer))
	require.NoError(t, err)

	status := exchangeABI.Methods["getOrderStatus"]
	out, err := status.Outputs.Pack(true, true, new(big.Int), new(big.Int))
	require.NoError(t, err)

	var sel [4]byte
	copy(sel[:], status.ID)
	reader := onchain.NewReader(&stubClient{responses: map[[4]byte][]byte{sel: out}})

	err = o.CheckFillability(context.Background(), reader)
	assert.ErrorIs(t, err, nftagg.ErrNotFillable)
}

func TestFullyFilledOrderNotFillable(t *testing.T) {
	offerer := common.HexToAddress("0x3333333333333333333333333333333333333333")
	o, err := (&SingleTokenBuilder{}).Build(nftagg.ChainEthereum, listingParams(offerer))
	require.NoError(t, err)

	status := exchangeABI.Methods["getOrderStatus"]
	out, err := status.Outputs.Pack(true, false, big.NewInt(10), big.NewInt(10))
	require.NoError(t, err)

	var sel [4]byte
	copy(sel[:], status.ID)
	reader := onchain.NewReader(&stubClient{responses: map[[4]byte][]byte{sel: out}})

	err = o.CheckFillability(context.Background(), reader)
	assert.ErrorIs(t, err, nftagg.ErrNotFillable)
}
