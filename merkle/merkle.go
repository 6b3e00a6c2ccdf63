// Package merkle builds the token-id set commitments used by criteria
// (token-list) orders and generates membership proofs for fills.
//
// Convention, shared by commitment and proof sides: a leaf is the keccak256
// of the tokenId left-padded to 32 bytes; the leaf layer is sorted ascending
// by tokenId; a parent is the keccak256 of its two children concatenated in
// byte-wise ascending order; an odd trailing node is promoted unchanged.
package merkle

import (
	"bytes"
	"errors"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrEmptySet  = errors.New("token set is empty")
	ErrNotMember = errors.New("token is not a member of the set")
)

func leaf(tokenID *big.Int) common.Hash {
	return crypto.Keccak256Hash(common.BigToHash(tokenID).Bytes())
}

func hashPair(a, b common.Hash) common.Hash {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return crypto.Keccak256Hash(a.Bytes(), b.Bytes())
}

func sortedLeaves(tokenIDs []*big.Int) []common.Hash {
	sorted := make([]*big.Int, len(tokenIDs))
	copy(sorted, tokenIDs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Cmp(sorted[j]) < 0 })

	leaves := make([]common.Hash, len(sorted))
	for i, id := range sorted {
		leaves[i] = leaf(id)
	}
	return leaves
}

// Root computes the commitment for a token-id set.
func Root(tokenIDs []*big.Int) (common.Hash, error) {
	if len(tokenIDs) == 0 {
		return common.Hash{}, ErrEmptySet
	}
	layer := sortedLeaves(tokenIDs)
	for len(layer) > 1 {
		next := make([]common.Hash, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				next = append(next, layer[i])
				continue
			}
			next = append(next, hashPair(layer[i], layer[i+1]))
		}
		layer = next
	}
	return layer[0], nil
}

// Proof generates the membership proof for tokenID against the set.
func Proof(tokenIDs []*big.Int, tokenID *big.Int) ([]common.Hash, error) {
	if len(tokenIDs) == 0 {
		return nil, ErrEmptySet
	}
	layer := sortedLeaves(tokenIDs)
	target := leaf(tokenID)

	idx := -1
	for i, l := range layer {
		if l == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotMember
	}

	var proof []common.Hash
	for len(layer) > 1 {
		next := make([]common.Hash, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 == len(layer) {
				next = append(next, layer[i])
				continue
			}
			if i == idx || i+1 == idx {
				sibling := layer[i]
				if i == idx {
					sibling = layer[i+1]
				}
				proof = append(proof, sibling)
			}
			next = append(next, hashPair(layer[i], layer[i+1]))
		}
		idx /= 2
		layer = next
	}
	return proof, nil
}

// Verify checks a membership proof against a committed root.
func Verify(root common.Hash, tokenID *big.Int, proof []common.Hash) bool {
	node := leaf(tokenID)
	for _, sibling := range proof {
		node = hashPair(node, sibling)
	}
	return node == root
}
