// Package router is the fill orchestrator: it takes a heterogeneous list of
// listings or bids spanning multiple exchange protocols, groups them by
// protocol module, analyses settlement currencies, and assembles one
// execute(executions) transaction plus any prerequisite approval transactions
// and permit payloads the taker must provide first.
package router

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"

	nftagg "github.com/nftagg/router-sdk-go"
)

// Kind names a protocol family. The values double as keys into the per-chain
// module address table.
type Kind string

const (
	KindSeaport     Kind = "seaport"
	KindLooksRare   Kind = "looks-rare"
	KindZeroExV4    Kind = "zeroex-v4"
	KindX2Y2        Kind = "x2y2"
	KindElement     Kind = "element"
	KindFlow        Kind = "flow"
	KindForward     Kind = "forward"
	KindRarible     Kind = "rarible"
	KindUniverse    Kind = "universe"
	KindWyvern      Kind = "wyvern-v2.3"
	KindFoundation  Kind = "foundation"
	KindZora        Kind = "zora"
	KindCryptoPunks Kind = "cryptopunks"
)

// ListingDetails describes one ask the taker wants to buy. Order holds the
// protocol package's order value (*seaport.Order, *looksrare.Order,
// *foundation.Listing, ...) matching Kind.
type ListingDetails struct {
	Kind         Kind             `json:"kind"`
	ContractKind nftagg.TokenKind `json:"contractKind"`
	Contract     common.Address   `json:"contract"`
	TokenID      *big.Int         `json:"tokenId"`

	// Amount is the fill quantity for partial-fill-capable orders; nil
	// means the order's full quantity.
	Amount *big.Int `json:"amount,omitempty"`

	// Currency is the settlement token of this listing; the zero address
	// means the chain's native currency.
	Currency common.Address `json:"currency"`

	Order any `json:"order"`

	// RunInput is the operator-co-signed fill input required by X2Y2.
	RunInput []byte `json:"runInput,omitempty"`
}

// BidDetails describes one bid the taker wants to sell into.
type BidDetails struct {
	Kind         Kind             `json:"kind"`
	ContractKind nftagg.TokenKind `json:"contractKind"`
	Contract     common.Address   `json:"contract"`

	// TokenID is the concrete token being delivered. For criteria bids it
	// must be a member of the committed set.
	TokenID *big.Int `json:"tokenId"`

	// TokenIDs is the committed token-id set of a criteria bid, needed to
	// regenerate the membership proof.
	TokenIDs []*big.Int `json:"tokenIds,omitempty"`

	Amount   *big.Int       `json:"amount,omitempty"`
	Currency common.Address `json:"currency"`
	Order    any            `json:"order"`

	// Unwrap asks the module to deliver proceeds as native currency where
	// the protocol supports it.
	Unwrap bool `json:"unwrap,omitempty"`

	RunInput []byte `json:"runInput,omitempty"`
}

// Quoter prices a native-to-ERC20 swap for an exact output amount. The
// orchestrator never talks to a DEX itself; the caller supplies pricing.
type Quoter interface {
	// QuoteExactOutput returns the maximum native input that buys exactly
	// amountOut of tokenOut. Excess input is refunded on chain.
	QuoteExactOutput(ctx context.Context, tokenOut common.Address, amountOut *big.Int) (*big.Int, error)
}

// FillOptions tunes plan assembly.
type FillOptions struct {
	// Source is an attribution tag recorded on the plan.
	Source string

	// Partial selects best-effort execution: constituent fill failures are
	// skipped on chain instead of reverting the whole batch.
	Partial bool

	// GlobalFees are absolute fee legs charged once on top of the whole
	// fill, denominated in the first fill group's currency.
	GlobalFees []nftagg.FeeItem

	// RelayerFeeBps is a per-item fee-on-top in basis points of each
	// item's price, paid to FeeRecipient.
	RelayerFeeBps int64
	FeeRecipient  common.Address

	// Quoter enables cross-currency settlement: ERC20-denominated fills
	// are funded by a swap-module step from native currency. When nil the
	// taker pays ERC20 directly and the plan emits approval transactions.
	Quoter Quoter

	// UsePermit swaps ERC20 approval transactions for EIP-2612 permit
	// payloads where possible.
	UsePermit bool
}

// Execution is one module call inside the router transaction.
type Execution struct {
	Module common.Address `json:"module"`
	Data   []byte         `json:"data"`
	Value  *big.Int       `json:"value"`
}

// Permit is an unsigned EIP-2612 approval payload. The caller signs Digest
// with the owner's key out of band and submits the permit before (or inside)
// the main transaction.
type Permit struct {
	Token    common.Address `json:"token"`
	Owner    common.Address `json:"owner"`
	Spender  common.Address `json:"spender"`
	Value    *big.Int       `json:"value"`
	Nonce    *big.Int       `json:"nonce"`
	Deadline *big.Int       `json:"deadline"`
	Digest   common.Hash    `json:"digest"`
}

// ExecutionPlan is the orchestrator's output: prerequisite approvals and
// permits, the ordered module steps, and the final transaction the taker
// broadcasts. The plan is a snapshot of chain state; fillability should be
// re-checked close to submission time.
type ExecutionPlan struct {
	ID        string          `json:"id"`
	Source    string          `json:"source,omitempty"`
	Approvals []nftagg.TxData `json:"approvals,omitempty"`
	Permits   []Permit        `json:"permits,omitempty"`
	Steps     []Execution     `json:"steps"`
	Tx        nftagg.TxData   `json:"tx"`
}

// EncodeJSON serializes the plan for transport.
func (p *ExecutionPlan) EncodeJSON() ([]byte, error) {
	return json.Marshal(p)
}

// DecodePlan parses a serialized execution plan.
func DecodePlan(data []byte) (*ExecutionPlan, error) {
	var p ExecutionPlan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
