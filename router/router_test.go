package router

import (
	"context"
	"math/big"
	"reflect"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nftagg "github.com/nftagg/router-sdk-go"
	"github.com/nftagg/router-sdk-go/looksrare"
	"github.com/nftagg/router-sdk-go/onchain"
	"github.com/nftagg/router-sdk-go/x2y2"
	"github.com/nftagg/router-sdk-go/zeroexv4"
)

var (
	testCollection = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testTaker      = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testFeeAddr    = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func testRouter(t *testing.T) *Router {
	t.Helper()
	r, err := NewRouter(nftagg.ChainEthereum, nil)
	require.NoError(t, err)
	return r
}

// zeroExListing builds a signed single-token ERC-721 ask. A zero payment
// address sells for native currency.
func zeroExListing(t *testing.T, tokenID, price int64, payment common.Address) *ListingDetails {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	o, err := (&zeroexv4.SingleTokenBuilder{}).Build(nftagg.ChainEthereum, &zeroexv4.BuildParams{
		Side:         nftagg.SideSell,
		TokenKind:    nftagg.TokenKindERC721,
		Offerer:      crypto.PubkeyToAddress(key.PublicKey),
		Contract:     testCollection,
		TokenID:      big.NewInt(tokenID),
		PaymentToken: payment,
		Price:        big.NewInt(price),
		Expiry:       big.NewInt(time.Now().Add(time.Hour).Unix()),
		Nonce:        big.NewInt(tokenID),
	})
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))

	return &ListingDetails{
		Kind:         KindZeroExV4,
		ContractKind: nftagg.TokenKindERC721,
		Contract:     testCollection,
		TokenID:      big.NewInt(tokenID),
		Currency:     payment,
		Order:        o,
	}
}

func looksRareListing(t *testing.T, tokenID, price int64) *ListingDetails {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	now := time.Now().Unix()
	o, err := looksrare.Build(nftagg.ChainEthereum, &looksrare.BuildParams{
		Side:       nftagg.SideSell,
		Kind:       nftagg.OrderKindSingleToken,
		TokenKind:  nftagg.TokenKindERC721,
		Signer:     crypto.PubkeyToAddress(key.PublicKey),
		Collection: testCollection,
		TokenID:    big.NewInt(tokenID),
		Price:      big.NewInt(price),
		Nonce:      big.NewInt(1),
		StartTime:  now,
		EndTime:    now + 86400,
	})
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))

	// Asks settle through the wrapping entrypoint, so the group is funded
	// with native currency.
	return &ListingDetails{
		Kind:         KindLooksRare,
		ContractKind: nftagg.TokenKindERC721,
		Contract:     testCollection,
		TokenID:      big.NewInt(tokenID),
		Currency:     nftagg.NativeToken,
		Order:        o,
	}
}

// unpackFill decodes a module fill call back into its ABI values.
func unpackFill(t *testing.T, data []byte) []any {
	t.Helper()
	method := ModuleABI().Methods["fill"]
	require.Equal(t, method.ID, data[:4])
	vals, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Len(t, vals, 3)
	return vals
}

func TestListingPlanGroupsByProtocol(t *testing.T) {
	r := testRouter(t)
	listings := []*ListingDetails{
		zeroExListing(t, 1, 1000, common.Address{}),
		zeroExListing(t, 2, 2000, common.Address{}),
		looksRareListing(t, 3, 500),
	}

	plan, err := r.FillListingsTx(context.Background(), testTaker, listings, nil)
	require.NoError(t, err)

	// two protocols, one module step each, in first-appearance order
	require.Len(t, plan.Steps, 2)
	assert.Equal(t, "3000", plan.Steps[0].Value.String())
	assert.Equal(t, "500", plan.Steps[1].Value.String())
	assert.NotEqual(t, plan.Steps[0].Module, plan.Steps[1].Module)

	assert.Equal(t, r.Address(), plan.Tx.To)
	assert.Equal(t, testTaker, plan.Tx.From)
	assert.Equal(t, "3500", plan.Tx.Value.String())
	assert.Equal(t, RouterABI().Methods["execute"].ID, plan.Tx.Data[:4])
	assert.Empty(t, plan.Approvals)

	// the zeroexv4 step carries both exchange calls
	calls := reflect.ValueOf(unpackFill(t, plan.Steps[0].Data)[0])
	assert.Equal(t, 2, calls.Len())
}

func TestRelayerFeeOnTop(t *testing.T) {
	r := testRouter(t)
	listings := []*ListingDetails{zeroExListing(t, 1, 1000, common.Address{})}

	plan, err := r.FillListingsTx(context.Background(), testTaker, listings, &FillOptions{
		RelayerFeeBps: 250,
		FeeRecipient:  testFeeAddr,
	})
	require.NoError(t, err)

	require.Len(t, plan.Steps, 1)
	assert.Equal(t, "1025", plan.Steps[0].Value.String())
	assert.Equal(t, "1025", plan.Tx.Value.String())

	fees := reflect.ValueOf(unpackFill(t, plan.Steps[0].Data)[2])
	require.Equal(t, 1, fees.Len())
	assert.Equal(t, "25", fees.Index(0).FieldByName("Amount").Interface().(*big.Int).String())
}

func TestGlobalFeesChargeFirstGroup(t *testing.T) {
	r := testRouter(t)
	listings := []*ListingDetails{
		zeroExListing(t, 1, 1000, common.Address{}),
		looksRareListing(t, 2, 500),
	}

	plan, err := r.FillListingsTx(context.Background(), testTaker, listings, &FillOptions{
		GlobalFees: []nftagg.FeeItem{{Recipient: testFeeAddr, Amount: big.NewInt(30)}},
	})
	require.NoError(t, err)

	require.Len(t, plan.Steps, 2)
	assert.Equal(t, "1030", plan.Steps[0].Value.String())
	assert.Equal(t, "500", plan.Steps[1].Value.String())
	assert.Equal(t, "1530", plan.Tx.Value.String())
}

func TestPartialTogglesRevertFlag(t *testing.T) {
	r := testRouter(t)

	strict, err := r.FillListingsTx(context.Background(), testTaker,
		[]*ListingDetails{zeroExListing(t, 1, 1000, common.Address{})}, nil)
	require.NoError(t, err)
	loose, err := r.FillListingsTx(context.Background(), testTaker,
		[]*ListingDetails{zeroExListing(t, 1, 1000, common.Address{})}, &FillOptions{Partial: true})
	require.NoError(t, err)

	strictParams := reflect.ValueOf(unpackFill(t, strict.Steps[0].Data)[1])
	looseParams := reflect.ValueOf(unpackFill(t, loose.Steps[0].Data)[1])
	assert.True(t, strictParams.FieldByName("RevertIfIncomplete").Bool())
	assert.False(t, looseParams.FieldByName("RevertIfIncomplete").Bool())
	assert.Equal(t, testTaker, strictParams.FieldByName("FillTo").Interface())
}

func TestERC20ListingEmitsApproval(t *testing.T) {
	r := testRouter(t)
	addrs, err := nftagg.Addresses(nftagg.ChainEthereum)
	require.NoError(t, err)

	listings := []*ListingDetails{zeroExListing(t, 1, 1000, addrs.WNative)}
	plan, err := r.FillListingsTx(context.Background(), testTaker, listings, nil)
	require.NoError(t, err)

	// taker pays the ERC20 directly; no native value moves
	require.Len(t, plan.Steps, 1)
	assert.Zero(t, plan.Steps[0].Value.Sign())
	assert.Zero(t, plan.Tx.Value.Sign())

	require.Len(t, plan.Approvals, 1)
	approve := plan.Approvals[0]
	assert.Equal(t, addrs.WNative, approve.To)
	assert.Equal(t, testTaker, approve.From)
	assert.Equal(t, onchain.ERC20ABI().Methods["approve"].ID, approve.Data[:4])
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

func sel4(id []byte) [4]byte {
	var s [4]byte
	copy(s[:], id)
	return s
}

func TestPreflightDropsWithoutMutatingInput(t *testing.T) {
	good := zeroExListing(t, 7, 1000, common.Address{})
	maker := good.Order.(*zeroexv4.Order).Params.Maker

	bitVector, err := zeroexv4.ExchangeABI().Methods["getERC721OrderStatusBitVector"].Outputs.Pack(new(big.Int))
	require.NoError(t, err)
	owner, err := onchain.ERC721ABI().Methods["ownerOf"].Outputs.Pack(maker)
	require.NoError(t, err)
	approved, err := onchain.ERC721ABI().Methods["isApprovedForAll"].Outputs.Pack(true)
	require.NoError(t, err)
	reader := onchain.NewReader(&stubClient{responses: map[[4]byte][]byte{
		sel4(zeroexv4.ExchangeABI().Methods["getERC721OrderStatusBitVector"].ID): bitVector,
		sel4(onchain.ERC721ABI().Methods["ownerOf"].ID):                          owner,
		sel4(onchain.ERC721ABI().Methods["isApprovedForAll"].ID):                 approved,
	}})

	// no order attached, so the check fails and the descriptor is dropped
	bad := &ListingDetails{
		Kind:         KindZeroExV4,
		ContractKind: nftagg.TokenKindERC721,
		Contract:     testCollection,
		TokenID:      big.NewInt(8),
		Currency:     common.Address{},
	}

	details := []*ListingDetails{bad, good}
	kept, err := preflight(context.Background(), reader, true, details,
		func(d *ListingDetails) any { return d.Order })
	require.NoError(t, err)

	require.Len(t, kept, 1)
	assert.Same(t, good, kept[0])

	// the caller's slice is left as given
	assert.Same(t, bad, details[0])
	assert.Same(t, good, details[1])

	_, err = preflight(context.Background(), reader, false, details,
		func(d *ListingDetails) any { return d.Order })
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
}

type stubQuoter struct{ mult int64 }

func (q stubQuoter) QuoteExactOutput(_ context.Context, _ common.Address, amountOut *big.Int) (*big.Int, error) {
	return new(big.Int).Mul(amountOut, big.NewInt(q.mult)), nil
}

func TestQuoterAddsSwapStep(t *testing.T) {
	r := testRouter(t)
	addrs, err := nftagg.Addresses(nftagg.ChainEthereum)
	require.NoError(t, err)

	listings := []*ListingDetails{zeroExListing(t, 1, 1000, addrs.WNative)}
	plan, err := r.FillListingsTx(context.Background(), testTaker, listings, &FillOptions{
		Quoter: stubQuoter{mult: 2},
	})
	require.NoError(t, err)

	require.Len(t, plan.Steps, 2)
	swap, fill := plan.Steps[0], plan.Steps[1]
	assert.Equal(t, addrs.SwapModule, swap.Module)
	assert.Equal(t, SwapModuleABI().Methods["ethToExactOutput"].ID, swap.Data[:4])
	assert.Equal(t, "2000", swap.Value.String())
	assert.Zero(t, fill.Value.Sign())
	assert.Equal(t, "2000", plan.Tx.Value.String())
	assert.Empty(t, plan.Approvals)
}

func TestBidPlanEmitsNFTApproval(t *testing.T) {
	r := testRouter(t)
	addrs, err := nftagg.Addresses(nftagg.ChainEthereum)
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	bid, err := (&zeroexv4.ContractWideBuilder{}).Build(nftagg.ChainEthereum, &zeroexv4.BuildParams{
		Side:         nftagg.SideBuy,
		TokenKind:    nftagg.TokenKindERC721,
		Offerer:      crypto.PubkeyToAddress(key.PublicKey),
		Contract:     testCollection,
		PaymentToken: addrs.WNative,
		Price:        big.NewInt(1000),
		Expiry:       big.NewInt(time.Now().Add(time.Hour).Unix()),
		Nonce:        big.NewInt(9),
	})
	require.NoError(t, err)
	require.NoError(t, bid.Sign(key))

	plan, err := r.FillBidsTx(context.Background(), testTaker, []*BidDetails{{
		Kind:         KindZeroExV4,
		ContractKind: nftagg.TokenKindERC721,
		Contract:     testCollection,
		TokenID:      big.NewInt(9),
		Currency:     addrs.WNative,
		Order:        bid,
	}}, &FillOptions{RelayerFeeBps: 100, FeeRecipient: testFeeAddr})
	require.NoError(t, err)

	// selling moves no native value; the taker pre-approves the module as
	// NFT operator
	require.Len(t, plan.Steps, 1)
	assert.Zero(t, plan.Steps[0].Value.Sign())
	assert.Zero(t, plan.Tx.Value.Sign())

	require.Len(t, plan.Approvals, 1)
	assert.Equal(t, testCollection, plan.Approvals[0].To)
	assert.Equal(t, onchain.ERC721ABI().Methods["setApprovalForAll"].ID, plan.Approvals[0].Data[:4])

	// relayer fee of 100 bps on proceeds of 1000
	fees := reflect.ValueOf(unpackFill(t, plan.Steps[0].Data)[2])
	require.Equal(t, 1, fees.Len())
	assert.Equal(t, "10", fees.Index(0).FieldByName("Amount").Interface().(*big.Int).String())
}

func TestBidSideUnsupportedProtocols(t *testing.T) {
	r := testRouter(t)
	for _, kind := range []Kind{KindFoundation, KindZora, KindCryptoPunks} {
		_, err := r.FillBidsTx(context.Background(), testTaker, []*BidDetails{{
			Kind:     kind,
			Contract: testCollection,
			TokenID:  big.NewInt(1),
		}}, nil)
		assert.ErrorIs(t, err, nftagg.ErrUnsupportedSide, kind)
	}
}

func TestX2Y2ListingNeedsRunInput(t *testing.T) {
	r := testRouter(t)
	_, err := r.FillListingsTx(context.Background(), testTaker, []*ListingDetails{{
		Kind:     KindX2Y2,
		Contract: testCollection,
		TokenID:  big.NewInt(1),
		Order:    &x2y2.Order{},
	}}, nil)
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
}

func TestEmptyInputsRejected(t *testing.T) {
	r := testRouter(t)
	_, err := r.FillListingsTx(context.Background(), testTaker, nil, nil)
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
	_, err = r.FillListingsTx(context.Background(), common.Address{},
		[]*ListingDetails{zeroExListing(t, 1, 1000, common.Address{})}, nil)
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
	_, err = r.FillBidsTx(context.Background(), testTaker, nil, nil)
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
}

func TestPlanJSONRoundTrip(t *testing.T) {
	r := testRouter(t)
	plan, err := r.FillListingsTx(context.Background(), testTaker,
		[]*ListingDetails{zeroExListing(t, 1, 1000, common.Address{})}, &FillOptions{Source: "nftagg.xyz"})
	require.NoError(t, err)

	raw, err := plan.EncodeJSON()
	require.NoError(t, err)
	got, err := DecodePlan(raw)
	require.NoError(t, err)

	assert.Equal(t, plan.ID, got.ID)
	assert.Equal(t, "nftagg.xyz", got.Source)
	require.Len(t, got.Steps, 1)
	assert.Equal(t, plan.Steps[0].Data, got.Steps[0].Data)
	assert.Equal(t, plan.Tx.To, got.Tx.To)
	assert.Equal(t, "1000", got.Tx.Value.String())
}
