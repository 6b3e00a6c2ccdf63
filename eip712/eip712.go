// Package eip712 implements typed-data domain separation, digest construction
// and ECDSA sign/recover for protocol order hashing. Struct hashing itself
// lives with each protocol, built on the ABI argument types exported here.
package eip712

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrBadSignatureLength = errors.New("signature must be 65 bytes")

// EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)
var domainTypeHash = crypto.Keccak256Hash([]byte(
	"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)",
))

// Cached ABI argument types shared by every protocol's struct hashing.
var (
	TypeBytes32 = mustType("bytes32")
	TypeBytes4  = mustType("bytes4")
	TypeBytes   = mustType("bytes")
	TypeUint256 = mustType("uint256")
	TypeUint8   = mustType("uint8")
	TypeAddress = mustType("address")
	TypeBool    = mustType("bool")
)

func mustType(name string) abi.Type {
	t, err := abi.NewType(name, "", nil)
	if err != nil {
		panic("failed to build abi type " + name + ": " + err.Error())
	}
	return t
}

// Domain is a protocol's EIP-712 domain: name, version, chain and the
// verifying exchange contract for that chain.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// Separator computes the domain separator hash.
func (d *Domain) Separator() common.Hash {
	arguments := abi.Arguments{
		{Type: TypeBytes32}, // typeHash
		{Type: TypeBytes32}, // nameHash
		{Type: TypeBytes32}, // versionHash
		{Type: TypeUint256}, // chainId
		{Type: TypeAddress}, // verifyingContract
	}
	encoded, err := arguments.Pack(
		domainTypeHash,
		crypto.Keccak256Hash([]byte(d.Name)),
		crypto.Keccak256Hash([]byte(d.Version)),
		d.ChainID,
		d.VerifyingContract,
	)
	if err != nil {
		panic("failed to encode domain separator: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

// Digest builds the signable hash for a struct hash under this domain.
func (d Domain) Digest(structHash common.Hash) common.Hash {
	return Digest(d.Separator(), structHash)
}

// Digest builds the final signable hash:
// keccak256("\x19\x01" ++ domainSeparator ++ structHash).
func Digest(separator, structHash common.Hash) common.Hash {
	data := make([]byte, 0, 2+32+32)
	data = append(data, 0x19, 0x01)
	data = append(data, separator.Bytes()...)
	data = append(data, structHash.Bytes()...)
	return crypto.Keccak256Hash(data)
}

// Sign produces a 65-byte (r,s,v) signature over a digest, v in {27,28}.
func Sign(digest common.Hash, key *ecdsa.PrivateKey) ([]byte, error) {
	sig, err := crypto.Sign(digest.Bytes(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	sig[64] += 27
	return sig, nil
}

// Recover returns the address that signed the digest. Accepts v in
// {0,1,27,28}, as both conventions circulate.
func Recover(digest common.Hash, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, ErrBadSignatureLength
	}
	normalized := make([]byte, 65)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pub, err := crypto.SigToPub(digest.Bytes(), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// HashPersonal applies the EIP-191 personal-message prefix to a hash. Some
// exchanges (X2Y2) sign a plain struct hash this way instead of typed data.
func HashPersonal(hash common.Hash) common.Hash {
	prefixed := append([]byte("\x19Ethereum Signed Message:\n32"), hash.Bytes()...)
	return crypto.Keccak256Hash(prefixed)
}
