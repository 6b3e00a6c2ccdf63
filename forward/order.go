// Package forward models Forward protocol bids: wrapped-native offers with
// per-unit pricing, seaport-style counters and optional Merkle criteria.
package forward

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	nftagg "github.com/nftagg/router-sdk-go"
	"github.com/nftagg/router-sdk-go/eip712"
	"github.com/nftagg/router-sdk-go/merkle"
	"github.com/nftagg/router-sdk-go/onchain"
)

const (
	ProtocolName    = "Forward"
	ProtocolVersion = "1.0"
)

// ItemKind discriminates the bid target.
type ItemKind uint8

const (
	ItemKindERC721 ItemKind = iota
	ItemKindERC1155
	ItemKindERC721Criteria
	ItemKindERC1155Criteria
)

func (k ItemKind) isCriteria() bool {
	return k == ItemKindERC721Criteria || k == ItemKindERC1155Criteria
}

func (k ItemKind) tokenKind() nftagg.TokenKind {
	if k == ItemKindERC1155 || k == ItemKindERC1155Criteria {
		return nftagg.TokenKindERC1155
	}
	return nftagg.TokenKindERC721
}

// Params are the canonical bid fields. UnitPrice is per NFT unit.
type Params struct {
	ItemKind             ItemKind
	Maker                common.Address
	Token                common.Address
	IdentifierOrCriteria *big.Int
	UnitPrice            *big.Int
	Amount               *big.Int
	Salt                 *big.Int
	Expiration           *big.Int
	Counter              *big.Int

	Signature []byte
}

const orderTypeString = "Order(" +
	"uint8 itemKind,address maker,address token,uint256 identifierOrCriteria," +
	"uint256 unitPrice,uint128 amount,uint256 salt,uint256 expiration,uint256 counter)"

var orderTypeHash = crypto.Keccak256Hash([]byte(orderTypeString))

func (p *Params) structHash() common.Hash {
	arguments := abi.Arguments{
		{Type: eip712.TypeBytes32},
		{Type: eip712.TypeUint8},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeAddress},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
		{Type: eip712.TypeUint256},
	}
	encoded, err := arguments.Pack(
		orderTypeHash,
		uint8(p.ItemKind),
		p.Maker,
		p.Token,
		p.IdentifierOrCriteria,
		p.UnitPrice,
		p.Amount,
		p.Salt,
		p.Expiration,
		p.Counter,
	)
	if err != nil {
		panic("failed to encode order: " + err.Error())
	}
	return crypto.Keccak256Hash(encoded)
}

// Order binds a bid to a chain.
type Order struct {
	ChainID nftagg.ChainID
	Kind    nftagg.OrderKind
	Params  Params

	addrs nftagg.ContractAddresses
}

// BuildParams are the user-facing inputs. TokenIDs — or a precomputed
// MerkleRoot — switches the bid to criteria form.
type BuildParams struct {
	TokenKind nftagg.TokenKind

	Maker    common.Address
	Contract common.Address
	TokenID  *big.Int
	TokenIDs []*big.Int

	UnitPrice  *big.Int
	Amount     *big.Int
	Expiration int64
	Salt       *big.Int
	Counter    *big.Int
}

// Build constructs a bid.
func Build(chainID nftagg.ChainID, params *BuildParams) (*Order, error) {
	if params.UnitPrice == nil {
		return nil, fmt.Errorf("forward: missing unit price: %w", nftagg.ErrInvalidParams)
	}

	var (
		itemKind   ItemKind
		identifier *big.Int
	)
	switch {
	case len(params.TokenIDs) > 0:
		itemKind = ItemKindERC721Criteria
		if params.TokenKind == nftagg.TokenKindERC1155 {
			itemKind = ItemKindERC1155Criteria
		}
		root, err := merkle.Root(params.TokenIDs)
		if err != nil {
			return nil, fmt.Errorf("forward: %w", err)
		}
		identifier = root.Big()
	case params.TokenID != nil:
		itemKind = ItemKindERC721
		if params.TokenKind == nftagg.TokenKindERC1155 {
			itemKind = ItemKindERC1155
		}
		identifier = params.TokenID
	default:
		return nil, fmt.Errorf("forward: need a token id or token id set: %w", nftagg.ErrInvalidParams)
	}

	amount := params.Amount
	if amount == nil {
		amount = big.NewInt(1)
	}
	salt := params.Salt
	if salt == nil {
		salt = nftagg.RandomSalt()
	}
	counter := params.Counter
	if counter == nil {
		counter = new(big.Int)
	}

	return New(chainID, Params{
		ItemKind:             itemKind,
		Maker:                params.Maker,
		Token:                params.Contract,
		IdentifierOrCriteria: identifier,
		UnitPrice:            params.UnitPrice,
		Amount:               amount,
		Salt:                 salt,
		Expiration:           big.NewInt(params.Expiration),
		Counter:              counter,
	})
}

// New normalizes and chain-binds a bid.
func New(chainID nftagg.ChainID, params Params) (*Order, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.Forward == (common.Address{}) {
		return nil, fmt.Errorf("forward: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	if params.UnitPrice == nil || params.Amount == nil {
		return nil, fmt.Errorf("forward: missing unit price or amount: %w", nftagg.ErrInvalidOrder)
	}
	if params.IdentifierOrCriteria == nil {
		params.IdentifierOrCriteria = new(big.Int)
	}
	if params.Salt == nil {
		params.Salt = nftagg.RandomSalt()
	}
	if params.Expiration == nil {
		params.Expiration = new(big.Int)
	}
	if params.Counter == nil {
		params.Counter = new(big.Int)
	}

	kind := nftagg.OrderKindSingleToken
	if params.ItemKind.isCriteria() {
		kind = nftagg.OrderKindTokenList
		if params.IdentifierOrCriteria.Sign() == 0 {
			kind = nftagg.OrderKindContractWide
		}
	}
	return &Order{ChainID: chainID, Kind: kind, Params: params, addrs: addrs}, nil
}

func (o *Order) Domain() eip712.Domain {
	return eip712.Domain{
		Name:              ProtocolName,
		Version:           ProtocolVersion,
		ChainID:           big.NewInt(int64(o.ChainID)),
		VerifyingContract: o.addrs.Forward,
	}
}

// Side is always the buy side: the protocol carries bids only.
func (o *Order) Side() nftagg.Side { return nftagg.SideBuy }

func (o *Order) Hash() common.Hash {
	return o.Params.structHash()
}

func (o *Order) Digest() common.Hash {
	return o.Domain().Digest(o.Hash())
}

func (o *Order) Sign(key *ecdsa.PrivateKey) error {
	sig, err := eip712.Sign(o.Digest(), key)
	if err != nil {
		return err
	}
	o.Params.Signature = sig
	return nil
}

func (o *Order) CheckSignature() error {
	signer, err := eip712.Recover(o.Digest(), o.Params.Signature)
	if err != nil {
		return err
	}
	if signer != o.Params.Maker {
		return fmt.Errorf("forward: recovered %s, want %s: %w",
			signer, o.Params.Maker, nftagg.ErrInvalidSignature)
	}
	return nil
}

func (o *Order) CheckValidity() error {
	if o.Params.UnitPrice.Sign() <= 0 || o.Params.Amount.Sign() <= 0 {
		return fmt.Errorf("forward: zero unit price or amount: %w", nftagg.ErrInvalidOrder)
	}
	return nil
}

func (o *Order) GetInfo() (*nftagg.OrderInfo, error) {
	info := &nftagg.OrderInfo{
		Side:         nftagg.SideBuy,
		TokenKind:    o.Params.ItemKind.tokenKind(),
		Contract:     o.Params.Token,
		Amount:       o.Params.Amount,
		PaymentToken: o.addrs.WNative,
		Price:        new(big.Int).Mul(o.Params.UnitPrice, o.Params.Amount),
	}
	if o.Params.ItemKind.isCriteria() {
		info.MerkleRoot = common.BigToHash(o.Params.IdentifierOrCriteria)
	} else {
		info.TokenID = o.Params.IdentifierOrCriteria
	}
	return info, nil
}

func (o *Order) GetMatchingPrice(_ ...int64) (*big.Int, error) {
	return new(big.Int).Mul(o.Params.UnitPrice, o.Params.Amount), nil
}

func (o *Order) GetFeeAmount() *big.Int {
	return new(big.Int)
}

// MatchData is the taker's fill intent.
type MatchData struct {
	Amount   *big.Int   // units to fill
	TokenID  *big.Int   // concrete token for criteria bids
	TokenIDs []*big.Int // the committed set, to regenerate the proof
}

// MatchParams is the validated fill shape.
type MatchParams struct {
	Amount        *big.Int
	TokenID       *big.Int
	CriteriaProof []common.Hash
}

// BuildMatching validates a fill amount and, for criteria bids, generates
// the membership proof against the committed root.
func (o *Order) BuildMatching(data *MatchData) (*MatchParams, error) {
	amount := o.Params.Amount
	if data != nil && data.Amount != nil {
		if data.Amount.Sign() <= 0 || data.Amount.Cmp(o.Params.Amount) > 0 {
			return nil, fmt.Errorf("forward: fill amount out of range: %w", nftagg.ErrInvalidParams)
		}
		amount = data.Amount
	}

	if !o.Params.ItemKind.isCriteria() {
		return &MatchParams{Amount: amount, TokenID: o.Params.IdentifierOrCriteria}, nil
	}

	if data == nil || data.TokenID == nil {
		return nil, fmt.Errorf("forward: criteria bid needs a concrete token id: %w", nftagg.ErrInvalidParams)
	}
	if o.Params.IdentifierOrCriteria.Sign() == 0 {
		return &MatchParams{Amount: amount, TokenID: data.TokenID}, nil
	}
	if len(data.TokenIDs) == 0 {
		return nil, fmt.Errorf("forward: criteria bid needs the committed token id set: %w", nftagg.ErrInvalidParams)
	}
	root, err := merkle.Root(data.TokenIDs)
	if err != nil {
		return nil, fmt.Errorf("forward: %w", err)
	}
	if root.Big().Cmp(o.Params.IdentifierOrCriteria) != 0 {
		return nil, fmt.Errorf("forward: token id set does not match committed criteria: %w", nftagg.ErrInvalidParams)
	}
	proof, err := merkle.Proof(data.TokenIDs, data.TokenID)
	if err != nil {
		return nil, fmt.Errorf("forward: %w", err)
	}
	return &MatchParams{Amount: amount, TokenID: data.TokenID, CriteriaProof: proof}, nil
}

// CheckFillability verifies counter, expiration, fill state and maker
// funds.
func (o *Order) CheckFillability(ctx context.Context, reader *onchain.Reader) error {
	counter, err := Counter(ctx, reader, o.ChainID, o.Params.Maker)
	if err != nil {
		return err
	}
	if counter.Cmp(o.Params.Counter) != 0 {
		return fmt.Errorf("forward: counter advanced: %w", nftagg.ErrNotFillable)
	}
	if o.Params.Expiration.Sign() > 0 && o.Params.Expiration.Int64() <= time.Now().Unix() {
		return fmt.Errorf("forward: bid expired: %w", nftagg.ErrNotFillable)
	}

	cancelled, filled, err := o.status(ctx, reader)
	if err != nil {
		return err
	}
	if cancelled {
		return fmt.Errorf("forward: bid cancelled: %w", nftagg.ErrNotFillable)
	}
	if filled.Cmp(o.Params.Amount) >= 0 {
		return fmt.Errorf("forward: bid filled: %w", nftagg.ErrNotFillable)
	}

	price, err := o.GetMatchingPrice()
	if err != nil {
		return err
	}
	return reader.EnsureERC20BalanceAndAllowance(ctx,
		o.addrs.WNative, o.Params.Maker, o.addrs.Forward, price)
}

func (o *Order) status(ctx context.Context, reader *onchain.Reader) (bool, *big.Int, error) {
	exchangeABI := ExchangeABI()
	data, err := exchangeABI.Pack("orderStatuses", o.Hash())
	if err != nil {
		return false, nil, fmt.Errorf("forward: pack orderStatuses: %w", err)
	}
	out, err := reader.Call(ctx, o.addrs.Forward, data)
	if err != nil {
		return false, nil, err
	}
	values, err := exchangeABI.Unpack("orderStatuses", out)
	if err != nil {
		return false, nil, fmt.Errorf("forward: unpack orderStatuses: %w", err)
	}
	return values[0].(bool), values[1].(*big.Int), nil
}

// Counter reads a maker's current counter.
func Counter(ctx context.Context, reader *onchain.Reader, chainID nftagg.ChainID, maker common.Address) (*big.Int, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.Forward == (common.Address{}) {
		return nil, fmt.Errorf("forward: %w: chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	exchangeABI := ExchangeABI()
	data, err := exchangeABI.Pack("counters", maker)
	if err != nil {
		return nil, fmt.Errorf("forward: pack counters: %w", err)
	}
	out, err := reader.Call(ctx, addrs.Forward, data)
	if err != nil {
		return nil, err
	}
	values, err := exchangeABI.Unpack("counters", out)
	if err != nil {
		return nil, fmt.Errorf("forward: unpack counters: %w", err)
	}
	return values[0].(*big.Int), nil
}
