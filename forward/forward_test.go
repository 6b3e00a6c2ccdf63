package forward

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nftagg "github.com/nftagg/router-sdk-go"
	"github.com/nftagg/router-sdk-go/merkle"
)

var testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")

func bidParams(maker common.Address) *BuildParams {
	return &BuildParams{
		TokenKind:  nftagg.TokenKindERC721,
		Maker:      maker,
		Contract:   testContract,
		TokenID:    big.NewInt(7),
		UnitPrice:  big.NewInt(1000),
		Expiration: time.Now().Add(time.Hour).Unix(),
		Salt:       big.NewInt(3),
	}
}

func TestSingleTokenBid(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	o, err := Build(nftagg.ChainEthereum, bidParams(maker))
	require.NoError(t, err)
	assert.Equal(t, nftagg.OrderKindSingleToken, o.Kind)
	assert.Equal(t, nftagg.SideBuy, o.Side())

	info, err := o.GetInfo()
	require.NoError(t, err)
	assert.Equal(t, "7", info.TokenID.String())
	assert.Equal(t, "1000", info.Price.String())

	match, err := o.BuildMatching(nil)
	require.NoError(t, err)
	assert.Equal(t, "7", match.TokenID.String())
	assert.Empty(t, match.CriteriaProof)
}

func TestCriteriaBidProof(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	set := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(5), big.NewInt(9)}

	params := bidParams(maker)
	params.TokenID = nil
	params.TokenIDs = set
	o, err := Build(nftagg.ChainEthereum, params)
	require.NoError(t, err)
	assert.Equal(t, nftagg.OrderKindTokenList, o.Kind)

	root, err := merkle.Root(set)
	require.NoError(t, err)
	assert.Equal(t, root.Big(), o.Params.IdentifierOrCriteria)

	// proof must come with the committed set and a member token
	_, err = o.BuildMatching(&MatchData{TokenID: big.NewInt(5)})
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)

	match, err := o.BuildMatching(&MatchData{TokenID: big.NewInt(5), TokenIDs: set})
	require.NoError(t, err)
	require.NotEmpty(t, match.CriteriaProof)
	assert.True(t, merkle.Verify(root, big.NewInt(5), match.CriteriaProof))

	// a foreign set fails the root check
	_, err = o.BuildMatching(&MatchData{
		TokenID:  big.NewInt(5),
		TokenIDs: []*big.Int{big.NewInt(5), big.NewInt(77)},
	})
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
}

func TestUnitPriceScalesWithAmount(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	params := bidParams(maker)
	params.TokenKind = nftagg.TokenKindERC1155
	params.Amount = big.NewInt(4)
	o, err := Build(nftagg.ChainEthereum, params)
	require.NoError(t, err)

	price, err := o.GetMatchingPrice()
	require.NoError(t, err)
	assert.Equal(t, "4000", price.String())

	_, err = o.BuildMatching(&MatchData{Amount: big.NewInt(5)})
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
	match, err := o.BuildMatching(&MatchData{Amount: big.NewInt(2)})
	require.NoError(t, err)
	assert.Equal(t, "2", match.Amount.String())
}

func TestSignatureLaw(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	maker := crypto.PubkeyToAddress(key.PublicKey)

	o, err := Build(nftagg.ChainEthereum, bidParams(maker))
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))
	require.NoError(t, o.CheckSignature())

	o.Params.UnitPrice = big.NewInt(1)
	assert.ErrorIs(t, o.CheckSignature(), nftagg.ErrInvalidSignature)
}

func TestBuildNeedsTokenTarget(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	params := bidParams(maker)
	params.TokenID = nil
	_, err := Build(nftagg.ChainEthereum, params)
	assert.ErrorIs(t, err, nftagg.ErrInvalidParams)
}
