package universe

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nftagg "github.com/nftagg/router-sdk-go"
	"github.com/nftagg/router-sdk-go/rarible"
)

var testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")

func sellParams(maker common.Address) *BuildParams {
	now := time.Now().Unix()
	return &BuildParams{
		Side:      nftagg.SideSell,
		TokenKind: nftagg.TokenKindERC721,
		Maker:     maker,
		Contract:  testContract,
		TokenID:   big.NewInt(5),
		Price:     big.NewInt(1000),
		Start:     now,
		End:       now + 86400,
		Salt:      big.NewInt(11),
	}
}

// Universe shares the V2 struct family with Rarible but signs under its own
// domain, so the same params must never produce the same digest.
func TestDomainSeparatesFromRarible(t *testing.T) {
	maker := common.HexToAddress("0x2222222222222222222222222222222222222222")
	u, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)
	r, err := rarible.Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)

	assert.Equal(t, r.Hash(), u.Hash())
	assert.NotEqual(t, r.Digest(), u.Digest())
}

func TestSignatureLaw(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	maker := crypto.PubkeyToAddress(key.PublicKey)

	o, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))
	require.NoError(t, o.CheckSignature())

	o.Params.Maker = testContract
	assert.ErrorIs(t, o.CheckSignature(), nftagg.ErrInvalidSignature)
}

func TestFillEncodedAgainstUniverseDeployment(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	maker := crypto.PubkeyToAddress(key.PublicKey)
	taker := common.HexToAddress("0x3333333333333333333333333333333333333333")

	o, err := Build(nftagg.ChainEthereum, sellParams(maker))
	require.NoError(t, err)
	require.NoError(t, o.Sign(key))

	match, err := o.BuildMatching(taker)
	require.NoError(t, err)
	assert.Equal(t, taker, match.Params.Maker)

	ex, err := NewExchange(nftagg.ChainEthereum)
	require.NoError(t, err)
	tx, err := ex.FillTx(taker, o, match)
	require.NoError(t, err)

	addrs, err := nftagg.Addresses(nftagg.ChainEthereum)
	require.NoError(t, err)
	assert.Equal(t, addrs.Universe, tx.To)
	assert.NotEqual(t, addrs.Rarible, tx.To)
	assert.Equal(t, rarible.ExchangeABI().Methods["matchOrders"].ID, tx.Data[:4])
	assert.Equal(t, "1000", tx.Value.String())
}
