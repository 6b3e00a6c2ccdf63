package eip712

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDomain() *Domain {
	return &Domain{
		Name:              "Seaport",
		Version:           "1.5",
		ChainID:           big.NewInt(1),
		VerifyingContract: common.HexToAddress("0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC"),
	}
}

func TestSeparatorIsDeterministic(t *testing.T) {
	d := testDomain()
	assert.Equal(t, d.Separator(), d.Separator())

	other := testDomain()
	other.ChainID = big.NewInt(137)
	assert.NotEqual(t, d.Separator(), other.Separator())
}

func TestDigestPrefix(t *testing.T) {
	sep := testDomain().Separator()
	structHash := crypto.Keccak256Hash([]byte("payload"))

	want := crypto.Keccak256Hash(
		[]byte{0x19, 0x01}, sep.Bytes(), structHash.Bytes(),
	)
	assert.Equal(t, want, Digest(sep, structHash))
}

func TestDomainDigestMatchesFreeFunction(t *testing.T) {
	structHash := crypto.Keccak256Hash([]byte("payload"))

	// Chained on a value, as order types call it: o.Domain().Digest(hash).
	domainOf := func() Domain { return *testDomain() }
	got := domainOf().Digest(structHash)

	assert.Equal(t, Digest(testDomain().Separator(), structHash), got)
}

func TestSignRecoverRoundTrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	digest := Digest(testDomain().Separator(), crypto.Keccak256Hash([]byte("order")))
	sig, err := Sign(digest, key)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.Contains(t, []byte{27, 28}, sig[64])

	signer, err := Recover(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer)
}

func TestRecoverAcceptsRawV(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	digest := crypto.Keccak256Hash([]byte("digest"))
	sig, err := Sign(digest, key)
	require.NoError(t, err)

	// v given as 0/1 instead of 27/28 must still recover
	raw := make([]byte, 65)
	copy(raw, sig)
	raw[64] -= 27
	signer, err := Recover(digest, raw)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer)
}

func TestRecoverWrongKey(t *testing.T) {
	keyA, err := crypto.GenerateKey()
	require.NoError(t, err)
	keyB, err := crypto.GenerateKey()
	require.NoError(t, err)

	digest := crypto.Keccak256Hash([]byte("digest"))
	sig, err := Sign(digest, keyA)
	require.NoError(t, err)

	signer, err := Recover(digest, sig)
	require.NoError(t, err)
	assert.NotEqual(t, crypto.PubkeyToAddress(keyB.PublicKey), signer)
}

func TestRecoverRejectsBadLength(t *testing.T) {
	_, err := Recover(common.Hash{}, make([]byte, 64))
	assert.ErrorIs(t, err, ErrBadSignatureLength)
}

func TestHashPersonal(t *testing.T) {
	h := crypto.Keccak256Hash([]byte("item"))
	want := crypto.Keccak256Hash(
		[]byte("\x19Ethereum Signed Message:\n32"), h.Bytes(),
	)
	assert.Equal(t, want, HashPersonal(h))
}
