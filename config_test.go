package nftagg

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEverySupportedChainHasTable(t *testing.T) {
	for _, id := range SupportedChainIDs {
		addrs, err := Addresses(id)
		require.NoError(t, err, "chain %d", id)
		assert.NotEqual(t, common.Address{}, addrs.WNative, "chain %d wnative", id)
		assert.NotEqual(t, common.Address{}, addrs.Seaport, "chain %d seaport", id)
		assert.NotEqual(t, common.Address{}, addrs.Router, "chain %d router", id)
	}
}

func TestAddressesRejectsUnknownChain(t *testing.T) {
	_, err := Addresses(ChainID(99999))
	assert.ErrorIs(t, err, ErrUnsupportedChain)
	assert.False(t, IsSupportedChain(ChainID(99999)))
}

func TestPerChainWrappedNative(t *testing.T) {
	eth, err := Addresses(ChainEthereum)
	require.NoError(t, err)
	poly, err := Addresses(ChainPolygon)
	require.NoError(t, err)
	assert.NotEqual(t, eth.WNative, poly.WNative)
}

func TestLoadAddressesOverride(t *testing.T) {
	override := []byte("1:\n  seaport: \"0x1000000000000000000000000000000000000001\"\n  modules:\n    seaport: \"0x1000000000000000000000000000000000000002\"\n")
	merged, err := LoadAddresses(override)
	require.NoError(t, err)

	got := merged[ChainEthereum]
	assert.Equal(t, common.HexToAddress("0x1000000000000000000000000000000000000001"), got.Seaport)
	assert.Equal(t, common.HexToAddress("0x1000000000000000000000000000000000000002"), got.Modules["seaport"])

	// untouched fields and the built-in table survive
	base, err := Addresses(ChainEthereum)
	require.NoError(t, err)
	assert.Equal(t, base.LooksRare, got.LooksRare)
	assert.NotEqual(t, got.Seaport, base.Seaport)
}
