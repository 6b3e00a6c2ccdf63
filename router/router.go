package router

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/xid"
	"github.com/sourcegraph/conc"

	nftagg "github.com/nftagg/router-sdk-go"
	"github.com/nftagg/router-sdk-go/element"
	"github.com/nftagg/router-sdk-go/flow"
	"github.com/nftagg/router-sdk-go/forward"
	"github.com/nftagg/router-sdk-go/foundation"
	"github.com/nftagg/router-sdk-go/looksrare"
	"github.com/nftagg/router-sdk-go/onchain"
	"github.com/nftagg/router-sdk-go/punks"
	"github.com/nftagg/router-sdk-go/rarible"
	"github.com/nftagg/router-sdk-go/seaport"
	"github.com/nftagg/router-sdk-go/universe"
	"github.com/nftagg/router-sdk-go/wyvern"
	"github.com/nftagg/router-sdk-go/x2y2"
	"github.com/nftagg/router-sdk-go/zeroexv4"
	"github.com/nftagg/router-sdk-go/zora"
)

// Router assembles multi-protocol fill plans for one chain. A nil reader
// disables the fillability pre-flight and on-chain approval-gap checks; the
// plan is then assembled purely from the descriptors.
type Router struct {
	chainID nftagg.ChainID
	addrs   nftagg.ContractAddresses
	reader  *onchain.Reader
}

// NewRouter builds a Router for the chain.
func NewRouter(chainID nftagg.ChainID, reader *onchain.Reader) (*Router, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.Router == (common.Address{}) {
		return nil, fmt.Errorf("router: no router deployment: %w", nftagg.ErrUnsupportedChain)
	}
	return &Router{chainID: chainID, addrs: addrs, reader: reader}, nil
}

// Address returns the on-chain router contract address.
func (r *Router) Address() common.Address {
	return r.addrs.Router
}

func (r *Router) module(kind Kind) (common.Address, error) {
	module, ok := r.addrs.Modules[string(kind)]
	if !ok || module == (common.Address{}) {
		return common.Address{}, fmt.Errorf("router: no %s module deployed: %w", kind, nftagg.ErrUnsupportedChain)
	}
	return module, nil
}

// ABI mirrors of the module and router tuples.

type abiCall struct {
	Target common.Address
	Data   []byte
	Value  *big.Int
}

type abiFillParams struct {
	FillTo             common.Address
	RefundTo           common.Address
	RevertIfIncomplete bool
}

type abiFee struct {
	Recipient common.Address
	Amount    *big.Int
}

type abiExecution struct {
	Module common.Address
	Data   []byte
	Value  *big.Int
}

// fillGroup accumulates the module calls of one (protocol, currency) pair.
type fillGroup struct {
	kind     Kind
	module   common.Address
	currency common.Address
	calls    []abiCall
	fees     []abiFee
	spend    *big.Int

	// Flow fills batch into a single exchange call, so their orders are
	// collected here and encoded when the group is finalized.
	flowOrders []*flow.Order
}

func (g *fillGroup) addFee(recipient common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	g.fees = append(g.fees, abiFee{Recipient: recipient, Amount: amount})
	g.spend.Add(g.spend, amount)
}

// FillListingsTx turns a heterogeneous set of listings into one execution
// plan: prerequisite ERC20 approvals or permits, an optional swap step per
// ERC20 currency, and a single execute call the taker broadcasts.
func (r *Router) FillListingsTx(ctx context.Context, taker common.Address, listings []*ListingDetails, opts *FillOptions) (*ExecutionPlan, error) {
	if taker == (common.Address{}) || len(listings) == 0 {
		return nil, fmt.Errorf("router: taker and at least one listing required: %w", nftagg.ErrInvalidParams)
	}
	if opts == nil {
		opts = &FillOptions{}
	}

	listings, err := preflight(ctx, r.reader, opts.Partial, listings, func(d *ListingDetails) any { return d.Order })
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, fmt.Errorf("router: no fillable listings: %w", nftagg.ErrNotFillable)
	}

	groups, order, err := r.groupListings(taker, listings, opts)
	if err != nil {
		return nil, err
	}

	plan := &ExecutionPlan{ID: xid.New().String(), Source: opts.Source}
	totalValue := new(big.Int)

	for i, key := range order {
		g := groups[key]
		if len(g.flowOrders) > 0 {
			tx, err := r.encodeFlowBatch(g)
			if err != nil {
				return nil, err
			}
			g.calls = append(g.calls, abiCall{Target: tx.To, Data: tx.Data, Value: nonNil(tx.Value)})
		}
		if i == 0 {
			for _, f := range opts.GlobalFees {
				g.addFee(f.Recipient, f.Amount)
			}
		}

		data, err := ModuleABI().Pack("fill", g.calls, abiFillParams{
			FillTo:             taker,
			RefundTo:           taker,
			RevertIfIncomplete: !opts.Partial,
		}, g.fees)
		if err != nil {
			return nil, fmt.Errorf("router: failed to encode %s module call: %w", g.kind, err)
		}

		value := new(big.Int)
		if nftagg.IsNative(g.currency) {
			value.Set(g.spend)
		} else if opts.Quoter != nil {
			swap, err := r.swapStep(ctx, taker, g, opts.Quoter)
			if err != nil {
				return nil, err
			}
			plan.Steps = append(plan.Steps, *swap)
			totalValue.Add(totalValue, swap.Value)
		} else if err := r.currencyPrereqs(ctx, plan, taker, g.currency, g.spend, opts.UsePermit); err != nil {
			return nil, err
		}

		plan.Steps = append(plan.Steps, Execution{Module: g.module, Data: data, Value: value})
		totalValue.Add(totalValue, value)
	}

	if err := r.finalize(plan, taker, totalValue); err != nil {
		return nil, err
	}
	nftagg.Logger().Debug("assembled listing fill plan",
		"plan", plan.ID, "listings", len(listings), "steps", len(plan.Steps), "value", totalValue.String())
	return plan, nil
}

// FillBidsTx turns a set of bids the taker is selling into one execution
// plan. Proceeds flow to the taker; relayer fees are deducted from proceeds
// by the module.
func (r *Router) FillBidsTx(ctx context.Context, taker common.Address, bids []*BidDetails, opts *FillOptions) (*ExecutionPlan, error) {
	if taker == (common.Address{}) || len(bids) == 0 {
		return nil, fmt.Errorf("router: taker and at least one bid required: %w", nftagg.ErrInvalidParams)
	}
	if opts == nil {
		opts = &FillOptions{}
	}

	bids, err := preflight(ctx, r.reader, opts.Partial, bids, func(d *BidDetails) any { return d.Order })
	if err != nil {
		return nil, err
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("router: no fillable bids: %w", nftagg.ErrNotFillable)
	}

	plan := &ExecutionPlan{ID: xid.New().String(), Source: opts.Source}

	groups := make(map[Kind]*fillGroup)
	var order []Kind
	approved := make(map[common.Address]bool)

	for _, d := range bids {
		module, err := r.module(d.Kind)
		if err != nil {
			return nil, err
		}
		g, ok := groups[d.Kind]
		if !ok {
			g = &fillGroup{kind: d.Kind, module: module, currency: d.Currency, spend: new(big.Int)}
			groups[d.Kind] = g
			order = append(order, d.Kind)
		}

		var price *big.Int
		if d.Kind == KindFlow {
			o, ok := d.Order.(*flow.Order)
			if !ok {
				return nil, badOrder(d.Kind, d.Order)
			}
			if price, err = o.GetMatchingPrice(); err != nil {
				return nil, err
			}
			g.flowOrders = append(g.flowOrders, o)
		} else {
			var tx *nftagg.TxData
			tx, price, err = r.encodeBidFill(module, d)
			if err != nil {
				return nil, err
			}
			g.calls = append(g.calls, abiCall{Target: tx.To, Data: tx.Data, Value: nonNil(tx.Value)})
		}
		if opts.RelayerFeeBps > 0 && opts.FeeRecipient != (common.Address{}) {
			g.addFee(opts.FeeRecipient, nftagg.Bps(price, opts.RelayerFeeBps))
		}

		if err := r.nftApproval(ctx, plan, approved, taker, module, d); err != nil {
			return nil, err
		}
	}

	for i, kind := range order {
		g := groups[kind]
		if len(g.flowOrders) > 0 {
			tx, err := r.encodeFlowBatch(g)
			if err != nil {
				return nil, err
			}
			g.calls = append(g.calls, abiCall{Target: tx.To, Data: tx.Data, Value: nonNil(tx.Value)})
		}
		if i == 0 {
			for _, f := range opts.GlobalFees {
				g.addFee(f.Recipient, f.Amount)
			}
		}
		data, err := ModuleABI().Pack("fill", g.calls, abiFillParams{
			FillTo:             taker,
			RefundTo:           taker,
			RevertIfIncomplete: !opts.Partial,
		}, g.fees)
		if err != nil {
			return nil, fmt.Errorf("router: failed to encode %s module call: %w", kind, err)
		}
		plan.Steps = append(plan.Steps, Execution{Module: g.module, Data: data, Value: new(big.Int)})
	}

	if err := r.finalize(plan, taker, new(big.Int)); err != nil {
		return nil, err
	}
	nftagg.Logger().Debug("assembled bid fill plan",
		"plan", plan.ID, "bids", len(bids), "steps", len(plan.Steps))
	return plan, nil
}

// preflight fans out one fillability check per descriptor. On the default
// all-or-nothing path any failure aborts; with partial fills the failing
// descriptor is logged and dropped.
func preflight[D any](ctx context.Context, reader *onchain.Reader, partial bool, details []*D, orderOf func(*D) any) ([]*D, error) {
	if reader == nil {
		return details, nil
	}
	errs := make([]error, len(details))
	var wg conc.WaitGroup
	for i, d := range details {
		i, d := i, d
		wg.Go(func() {
			errs[i] = checkFillable(ctx, reader, orderOf(d))
		})
	}
	wg.Wait()

	kept := make([]*D, 0, len(details))
	for i, d := range details {
		if errs[i] != nil {
			if !partial {
				return nil, fmt.Errorf("router: descriptor %d failed pre-flight: %w", i, errs[i])
			}
			nftagg.Logger().Warn("skipping unfillable descriptor", "index", i, "error", errs[i])
			continue
		}
		kept = append(kept, d)
	}
	return kept, nil
}

func checkFillable(ctx context.Context, reader *onchain.Reader, order any) error {
	switch o := order.(type) {
	case *seaport.Order:
		return o.CheckFillability(ctx, reader)
	case *looksrare.Order:
		return o.CheckFillability(ctx, reader)
	case *zeroexv4.Order:
		return o.CheckFillability(ctx, reader)
	case *x2y2.Order:
		return o.CheckFillability(ctx, reader)
	case *element.Order:
		return o.CheckFillability(ctx, reader)
	case *flow.Order:
		return o.CheckFillability(ctx, reader)
	case *forward.Order:
		return o.CheckFillability(ctx, reader)
	case *rarible.Order:
		return o.CheckFillability(ctx, reader)
	case *universe.Order:
		return o.CheckFillability(ctx, reader)
	case *wyvern.Order:
		return o.CheckFillability(ctx, reader)
	case *foundation.Listing:
		return o.CheckFillability(ctx, reader)
	case *zora.Ask:
		return o.CheckFillability(ctx, reader)
	case *punks.Offer:
		return o.CheckFillability(ctx, reader)
	default:
		return fmt.Errorf("router: unrecognized order type %T: %w", order, nftagg.ErrInvalidParams)
	}
}

func (r *Router) groupListings(taker common.Address, listings []*ListingDetails, opts *FillOptions) (map[string]*fillGroup, []string, error) {
	groups := make(map[string]*fillGroup)
	var order []string

	for _, d := range listings {
		module, err := r.module(d.Kind)
		if err != nil {
			return nil, nil, err
		}
		key := string(d.Kind) + "/" + d.Currency.Hex()
		g, ok := groups[key]
		if !ok {
			g = &fillGroup{kind: d.Kind, module: module, currency: d.Currency, spend: new(big.Int)}
			groups[key] = g
			order = append(order, key)
		}

		if d.Kind == KindFlow {
			o, ok := d.Order.(*flow.Order)
			if !ok {
				return nil, nil, fmt.Errorf("router: flow listing carries %T: %w", d.Order, nftagg.ErrInvalidParams)
			}
			price, err := o.GetMatchingPrice()
			if err != nil {
				return nil, nil, err
			}
			g.flowOrders = append(g.flowOrders, o)
			g.spend.Add(g.spend, price)
			if opts.RelayerFeeBps > 0 && opts.FeeRecipient != (common.Address{}) {
				g.addFee(opts.FeeRecipient, nftagg.Bps(price, opts.RelayerFeeBps))
			}
			continue
		}

		tx, price, err := r.encodeListingFill(taker, module, d, opts)
		if err != nil {
			return nil, nil, err
		}
		g.calls = append(g.calls, abiCall{Target: tx.To, Data: tx.Data, Value: nonNil(tx.Value)})
		g.spend.Add(g.spend, price)
		if opts.RelayerFeeBps > 0 && opts.FeeRecipient != (common.Address{}) {
			g.addFee(opts.FeeRecipient, nftagg.Bps(price, opts.RelayerFeeBps))
		}
	}
	return groups, order, nil
}

func (r *Router) encodeFlowBatch(g *fillGroup) (*nftagg.TxData, error) {
	ex, err := flow.NewExchange(r.chainID)
	if err != nil {
		return nil, err
	}
	return ex.FillTx(g.module, g.flowOrders)
}

// swapStep funds an ERC20 fill group from native currency: the swap module
// buys exactly the group's spend, delivers it to the fill module, and refunds
// any excess input to the taker.
func (r *Router) swapStep(ctx context.Context, taker common.Address, g *fillGroup, quoter Quoter) (*Execution, error) {
	in, err := quoter.QuoteExactOutput(ctx, g.currency, g.spend)
	if err != nil {
		return nil, fmt.Errorf("router: failed to quote swap into %s: %w", g.currency.Hex(), err)
	}
	data, err := SwapModuleABI().Pack("ethToExactOutput", g.currency, g.spend, g.module, taker)
	if err != nil {
		return nil, fmt.Errorf("router: failed to encode swap: %w", err)
	}
	return &Execution{Module: r.addrs.SwapModule, Data: data, Value: in}, nil
}

// currencyPrereqs emits the approval transaction or permit payload covering
// the gap between the taker's current allowance to the router and the
// required ERC20 spend.
func (r *Router) currencyPrereqs(ctx context.Context, plan *ExecutionPlan, taker, currency common.Address, spend *big.Int, usePermit bool) error {
	if r.reader != nil {
		allowance, err := r.reader.ERC20Allowance(ctx, currency, taker, r.addrs.Router)
		if err != nil {
			return fmt.Errorf("router: failed to read allowance: %w", err)
		}
		if allowance.Cmp(spend) >= 0 {
			return nil
		}
	}
	if usePermit && r.reader != nil {
		permit, err := r.buildPermit(ctx, currency, taker, r.addrs.Router, spend)
		if err != nil {
			return err
		}
		plan.Permits = append(plan.Permits, *permit)
		return nil
	}
	data, err := onchain.ERC20ABI().Pack("approve", r.addrs.Router, spend)
	if err != nil {
		return fmt.Errorf("router: failed to encode approval: %w", err)
	}
	plan.Approvals = append(plan.Approvals, nftagg.TxData{
		From: taker, To: currency, Data: data, Value: new(big.Int),
	})
	return nil
}

// nftApproval emits a setApprovalForAll transaction when the taker has not
// yet approved the bid module for the NFT being sold.
func (r *Router) nftApproval(ctx context.Context, plan *ExecutionPlan, seen map[common.Address]bool, taker, module common.Address, d *BidDetails) error {
	if seen[d.Contract] {
		return nil
	}
	seen[d.Contract] = true

	if r.reader != nil {
		approved, err := r.reader.IsApprovedForAll(ctx, d.Contract, taker, module)
		if err != nil {
			return fmt.Errorf("router: failed to read operator approval: %w", err)
		}
		if approved {
			return nil
		}
	}
	nftABI := onchain.ERC721ABI()
	if d.ContractKind == nftagg.TokenKindERC1155 {
		nftABI = onchain.ERC1155ABI()
	}
	data, err := nftABI.Pack("setApprovalForAll", module, true)
	if err != nil {
		return fmt.Errorf("router: failed to encode approval: %w", err)
	}
	plan.Approvals = append(plan.Approvals, nftagg.TxData{
		From: taker, To: d.Contract, Data: data, Value: new(big.Int),
	})
	return nil
}

func (r *Router) finalize(plan *ExecutionPlan, taker common.Address, totalValue *big.Int) error {
	execs := make([]abiExecution, len(plan.Steps))
	for i, s := range plan.Steps {
		execs[i] = abiExecution{Module: s.Module, Data: s.Data, Value: nonNil(s.Value)}
	}
	data, err := RouterABI().Pack("execute", execs)
	if err != nil {
		return fmt.Errorf("router: failed to encode execute: %w", err)
	}
	plan.Tx = nftagg.TxData{From: taker, To: r.addrs.Router, Data: data, Value: totalValue}
	return nil
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
