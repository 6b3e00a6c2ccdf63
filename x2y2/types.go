// Package x2y2 models X2Y2 market orders. Orders are hashed with a plain
// keccak over their ABI encoding and signed with an eth_sign personal
// message rather than EIP-712 typed data.
package x2y2

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nftagg/router-sdk-go/eip712"
)

// Intent discriminates the maker's side.
type Intent int64

const (
	IntentSell    Intent = 1
	IntentAuction Intent = 2
	IntentBuy     Intent = 3
)

// DelegateType selects the transfer delegate for the item's standard.
type DelegateType int64

const (
	DelegateERC721  DelegateType = 1
	DelegateERC1155 DelegateType = 2
)

// Item is one sellable unit: its price and the ABI-encoded token pairs the
// delegate transfers.
type Item struct {
	Price *big.Int
	Data  []byte
}

// Pair is a (collection, tokenId) entry inside Item.Data.
type Pair struct {
	Token   common.Address
	TokenID *big.Int
}

// Params are the canonical order fields.
type Params struct {
	Salt         *big.Int
	User         common.Address
	Network      *big.Int
	Intent       Intent
	DelegateType DelegateType
	Deadline     *big.Int
	Currency     common.Address
	DataMask     []byte
	Items        []Item

	Signature []byte
}

var (
	pairsArguments abi.Arguments
	orderArguments abi.Arguments
	itemHashArgs   abi.Arguments
)

func init() {
	pairType, err := abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
		{Name: "token", Type: "address"},
		{Name: "tokenId", Type: "uint256"},
	})
	if err != nil {
		panic("failed to build pair type: " + err.Error())
	}
	pairsArguments = abi.Arguments{{Type: pairType}}

	itemType, err := abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
		{Name: "price", Type: "uint256"},
		{Name: "data", Type: "bytes"},
	})
	if err != nil {
		panic("failed to build item type: " + err.Error())
	}
	orderArguments = abi.Arguments{
		{Type: eip712.TypeUint256}, // salt
		{Type: eip712.TypeAddress}, // user
		{Type: eip712.TypeUint256}, // network
		{Type: eip712.TypeUint256}, // intent
		{Type: eip712.TypeUint256}, // delegateType
		{Type: eip712.TypeUint256}, // deadline
		{Type: eip712.TypeAddress}, // currency
		{Type: eip712.TypeBytes},   // dataMask
		{Type: eip712.TypeUint256}, // items.length
		{Type: itemType},           // items
	}

	singleItemType, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "price", Type: "uint256"},
		{Name: "data", Type: "bytes"},
	})
	if err != nil {
		panic("failed to build single item type: " + err.Error())
	}
	itemHashArgs = abi.Arguments{
		{Type: eip712.TypeUint256}, // salt
		{Type: eip712.TypeAddress}, // user
		{Type: eip712.TypeUint256}, // network
		{Type: eip712.TypeUint256}, // intent
		{Type: eip712.TypeUint256}, // delegateType
		{Type: eip712.TypeUint256}, // deadline
		{Type: eip712.TypeAddress}, // currency
		{Type: eip712.TypeBytes},   // dataMask
		{Type: singleItemType},     // item
	}
}

type abiItem struct {
	Price *big.Int
	Data  []byte
}

type abiPair struct {
	Token   common.Address
	TokenId *big.Int
}

// EncodePairs packs (token, tokenId) pairs into Item.Data form.
func EncodePairs(pairs []Pair) ([]byte, error) {
	out := make([]abiPair, len(pairs))
	for i, p := range pairs {
		out[i] = abiPair{Token: p.Token, TokenId: p.TokenID}
	}
	return pairsArguments.Pack(out)
}

// DecodePairs unpacks Item.Data back into pairs.
func DecodePairs(data []byte) ([]Pair, error) {
	values, err := pairsArguments.Unpack(data)
	if err != nil {
		return nil, err
	}
	raw := values[0].([]struct {
		Token   common.Address `json:"token"`
		TokenId *big.Int       `json:"tokenId"`
	})
	pairs := make([]Pair, len(raw))
	for i, p := range raw {
		pairs[i] = Pair{Token: p.Token, TokenID: p.TokenId}
	}
	return pairs, nil
}

func (p *Params) hash() common.Hash {
	items := make([]abiItem, len(p.Items))
	for i, it := range p.Items {
		data := it.Data
		if data == nil {
			data = []byte{}
		}
		items[i] = abiItem{Price: it.Price, Data: data}
	}
	mask := p.DataMask
	if mask == nil {
		mask = []byte{}
	}
	encoded, err := orderArguments.Pack(
		p.Salt,
		p.User,
		p.Network,
		big.NewInt(int64(p.Intent)),
		big.NewInt(int64(p.DelegateType)),
		p.Deadline,
		p.Currency,
		mask,
		big.NewInt(int64(len(p.Items))),
		items,
	)
	if err != nil {
		panic("failed to encode order: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

// itemHash is the per-item commitment the exchange tracks fill state under.
func (p *Params) itemHash(i int) (common.Hash, error) {
	it := p.Items[i]
	data := it.Data
	if data == nil {
		data = []byte{}
	}
	mask := p.DataMask
	if mask == nil {
		mask = []byte{}
	}
	encoded, err := itemHashArgs.Pack(
		p.Salt,
		p.User,
		p.Network,
		big.NewInt(int64(p.Intent)),
		big.NewInt(int64(p.DelegateType)),
		p.Deadline,
		p.Currency,
		mask,
		abiItem{Price: it.Price, Data: data},
	)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}
