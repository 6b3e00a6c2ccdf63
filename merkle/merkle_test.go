package merkle

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(vals ...int64) []*big.Int {
	out := make([]*big.Int, len(vals))
	for i, v := range vals {
		out[i] = big.NewInt(v)
	}
	return out
}

func TestRootIsOrderIndependent(t *testing.T) {
	a, err := Root(ids(5, 1, 9, 3))
	require.NoError(t, err)
	b, err := Root(ids(9, 3, 5, 1))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRootSingleLeaf(t *testing.T) {
	root, err := Root(ids(42))
	require.NoError(t, err)
	assert.Equal(t, leaf(big.NewInt(42)), root)
}

func TestRootEmptySet(t *testing.T) {
	_, err := Root(nil)
	assert.ErrorIs(t, err, ErrEmptySet)
}

func TestProofVerifiesForEveryMember(t *testing.T) {
	set := ids(1, 2, 3, 4, 5, 6, 7) // odd count exercises node promotion
	root, err := Root(set)
	require.NoError(t, err)

	for _, id := range set {
		proof, err := Proof(set, id)
		require.NoError(t, err)
		assert.True(t, Verify(root, id, proof), "member %s failed verification", id)
	}
}

func TestProofForNonMemberFails(t *testing.T) {
	set := ids(10, 20, 30)
	_, err := Proof(set, big.NewInt(99))
	assert.ErrorIs(t, err, ErrNotMember)
}

// A proof generated for one token must not verify a different token: the
// on-chain negative case for filling a criteria order with an id outside the
// committed set.
func TestProofDoesNotTransfer(t *testing.T) {
	set := ids(10, 20, 30, 40)
	root, err := Root(set)
	require.NoError(t, err)

	proof, err := Proof(set, big.NewInt(20))
	require.NoError(t, err)
	assert.True(t, Verify(root, big.NewInt(20), proof))
	assert.False(t, Verify(root, big.NewInt(99), proof))
	assert.False(t, Verify(root, big.NewInt(30), proof))
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	set := ids(1, 2, 3, 4)
	root, err := Root(set)
	require.NoError(t, err)

	proof, err := Proof(set, big.NewInt(3))
	require.NoError(t, err)
	proof[0][0] ^= 0xff
	assert.False(t, Verify(root, big.NewInt(3), proof))
}
