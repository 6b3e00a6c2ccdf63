package router

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	nftagg "github.com/nftagg/router-sdk-go"
	"github.com/nftagg/router-sdk-go/element"
	"github.com/nftagg/router-sdk-go/forward"
	"github.com/nftagg/router-sdk-go/foundation"
	"github.com/nftagg/router-sdk-go/looksrare"
	"github.com/nftagg/router-sdk-go/punks"
	"github.com/nftagg/router-sdk-go/rarible"
	"github.com/nftagg/router-sdk-go/seaport"
	"github.com/nftagg/router-sdk-go/universe"
	"github.com/nftagg/router-sdk-go/wyvern"
	"github.com/nftagg/router-sdk-go/x2y2"
	"github.com/nftagg/router-sdk-go/zeroexv4"
	"github.com/nftagg/router-sdk-go/zora"
)

func badOrder(kind Kind, order any) error {
	return fmt.Errorf("router: %s descriptor carries %T: %w", kind, order, nftagg.ErrInvalidParams)
}

// encodeListingFill produces the exchange call the fill module issues for one
// listing, with the module as taker, and the total price in the listing's
// currency. Flow listings are batched elsewhere.
func (r *Router) encodeListingFill(taker, module common.Address, d *ListingDetails, opts *FillOptions) (*nftagg.TxData, *big.Int, error) {
	switch d.Kind {
	case KindSeaport:
		o, ok := d.Order.(*seaport.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := seaport.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		match, err := o.BuildMatching(&seaport.MatchData{Amount: d.Amount, Recipient: taker})
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, match)
		if err != nil {
			return nil, nil, err
		}
		price := o.GetMatchingPrice()
		if d.Amount != nil {
			price = nftagg.PartialAmount(price, d.Amount, quantityOf(o.GetInfo()))
		}
		return tx, price, nil

	case KindLooksRare:
		o, ok := d.Order.(*looksrare.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := looksrare.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		to, err := o.BuildMatching(&looksrare.MatchData{Taker: module, TokenID: d.TokenID})
		if err != nil {
			return nil, nil, err
		}
		// Asks settle through the ETH-and-WETH entrypoint so the taker
		// funds them with native currency.
		tx, err := ex.FillTx(module, o, to, false)
		if err != nil {
			return nil, nil, err
		}
		price, err := o.GetMatchingPrice()
		if err != nil {
			return nil, nil, err
		}
		return tx, price, nil

	case KindZeroExV4:
		o, ok := d.Order.(*zeroexv4.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := zeroexv4.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		match, err := o.BuildMatching(&zeroexv4.MatchData{Amount: d.Amount, TokenID: d.TokenID})
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, match)
		if err != nil {
			return nil, nil, err
		}
		price, err := o.GetMatchingPrice()
		if err != nil {
			return nil, nil, err
		}
		if d.Amount != nil && o.Params.NFTTokenAmount != nil {
			price = nftagg.PartialAmount(price, d.Amount, o.Params.NFTTokenAmount)
		}
		return tx, price, nil

	case KindX2Y2:
		o, ok := d.Order.(*x2y2.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		if len(d.RunInput) == 0 {
			return nil, nil, fmt.Errorf("router: x2y2 fill needs the operator run input: %w", nftagg.ErrInvalidParams)
		}
		ex, err := x2y2.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, d.RunInput)
		if err != nil {
			return nil, nil, err
		}
		price, err := o.GetMatchingPrice()
		if err != nil {
			return nil, nil, err
		}
		return tx, price, nil

	case KindElement:
		o, ok := d.Order.(*element.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := element.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, false)
		if err != nil {
			return nil, nil, err
		}
		price, err := o.GetMatchingPrice()
		if err != nil {
			return nil, nil, err
		}
		return tx, price, nil

	case KindRarible:
		o, ok := d.Order.(*rarible.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := rarible.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		match, err := o.BuildMatching(module)
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, match)
		if err != nil {
			return nil, nil, err
		}
		price, err := o.GetMatchingPrice()
		if err != nil {
			return nil, nil, err
		}
		return tx, price, nil

	case KindUniverse:
		o, ok := d.Order.(*universe.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := universe.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		match, err := o.BuildMatching(module)
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, match)
		if err != nil {
			return nil, nil, err
		}
		price, err := o.GetMatchingPrice()
		if err != nil {
			return nil, nil, err
		}
		return tx, price, nil

	case KindWyvern:
		o, ok := d.Order.(*wyvern.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := wyvern.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		match, err := o.BuildMatching(module)
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, match)
		if err != nil {
			return nil, nil, err
		}
		price, err := o.GetMatchingPrice()
		if err != nil {
			return nil, nil, err
		}
		return tx, price, nil

	case KindFoundation:
		l, ok := d.Order.(*foundation.Listing)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := foundation.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, l, opts.FeeRecipient)
		if err != nil {
			return nil, nil, err
		}
		return tx, l.Price, nil

	case KindZora:
		a, ok := d.Order.(*zora.Ask)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := zora.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, a, opts.FeeRecipient)
		if err != nil {
			return nil, nil, err
		}
		return tx, a.Price, nil

	case KindCryptoPunks:
		o, ok := d.Order.(*punks.Offer)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := punks.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o)
		if err != nil {
			return nil, nil, err
		}
		return tx, o.Price, nil

	case KindForward:
		return nil, nil, fmt.Errorf("router: forward orders are bids only: %w", nftagg.ErrUnsupportedSide)

	default:
		return nil, nil, fmt.Errorf("router: %q: %w", d.Kind, nftagg.ErrUnknownOrderKind)
	}
}

// encodeBidFill produces the exchange call selling the taker's asset into one
// bid, with the module as taker, and the gross proceeds in the bid's
// currency.
func (r *Router) encodeBidFill(module common.Address, d *BidDetails) (*nftagg.TxData, *big.Int, error) {
	switch d.Kind {
	case KindSeaport:
		o, ok := d.Order.(*seaport.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := seaport.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		match, err := o.BuildMatching(&seaport.MatchData{
			Amount:   d.Amount,
			TokenID:  d.TokenID,
			TokenIDs: d.TokenIDs,
		})
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, match)
		if err != nil {
			return nil, nil, err
		}
		price := o.GetMatchingPrice()
		if d.Amount != nil {
			price = nftagg.PartialAmount(price, d.Amount, quantityOf(o.GetInfo()))
		}
		return tx, price, nil

	case KindLooksRare:
		o, ok := d.Order.(*looksrare.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := looksrare.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		to, err := o.BuildMatching(&looksrare.MatchData{Taker: module, TokenID: d.TokenID})
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, to, true)
		if err != nil {
			return nil, nil, err
		}
		price, err := o.GetMatchingPrice()
		if err != nil {
			return nil, nil, err
		}
		return tx, price, nil

	case KindZeroExV4:
		o, ok := d.Order.(*zeroexv4.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := zeroexv4.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		match, err := o.BuildMatching(&zeroexv4.MatchData{
			Amount:  d.Amount,
			TokenID: d.TokenID,
			Unwrap:  d.Unwrap,
		})
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, match)
		if err != nil {
			return nil, nil, err
		}
		price, err := o.GetMatchingPrice()
		if err != nil {
			return nil, nil, err
		}
		if d.Amount != nil && o.Params.NFTTokenAmount != nil {
			price = nftagg.PartialAmount(price, d.Amount, o.Params.NFTTokenAmount)
		}
		return tx, price, nil

	case KindX2Y2:
		o, ok := d.Order.(*x2y2.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		if len(d.RunInput) == 0 {
			return nil, nil, fmt.Errorf("router: x2y2 fill needs the operator run input: %w", nftagg.ErrInvalidParams)
		}
		ex, err := x2y2.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, d.RunInput)
		if err != nil {
			return nil, nil, err
		}
		price, err := o.GetMatchingPrice()
		if err != nil {
			return nil, nil, err
		}
		return tx, price, nil

	case KindElement:
		o, ok := d.Order.(*element.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := element.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, d.Unwrap)
		if err != nil {
			return nil, nil, err
		}
		price, err := o.GetMatchingPrice()
		if err != nil {
			return nil, nil, err
		}
		return tx, price, nil

	case KindForward:
		o, ok := d.Order.(*forward.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := forward.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		match, err := o.BuildMatching(&forward.MatchData{
			Amount:   d.Amount,
			TokenID:  d.TokenID,
			TokenIDs: d.TokenIDs,
		})
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, match)
		if err != nil {
			return nil, nil, err
		}
		price, err := o.GetMatchingPrice()
		if err != nil {
			return nil, nil, err
		}
		if d.Amount != nil {
			price = nftagg.PartialAmount(price, d.Amount, o.Params.Amount)
		}
		return tx, price, nil

	case KindRarible:
		o, ok := d.Order.(*rarible.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := rarible.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		match, err := o.BuildMatching(module)
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, match)
		if err != nil {
			return nil, nil, err
		}
		price, err := o.GetMatchingPrice()
		if err != nil {
			return nil, nil, err
		}
		return tx, price, nil

	case KindUniverse:
		o, ok := d.Order.(*universe.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := universe.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		match, err := o.BuildMatching(module)
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, match)
		if err != nil {
			return nil, nil, err
		}
		price, err := o.GetMatchingPrice()
		if err != nil {
			return nil, nil, err
		}
		return tx, price, nil

	case KindWyvern:
		o, ok := d.Order.(*wyvern.Order)
		if !ok {
			return nil, nil, badOrder(d.Kind, d.Order)
		}
		ex, err := wyvern.NewExchange(r.chainID)
		if err != nil {
			return nil, nil, err
		}
		match, err := o.BuildMatching(module)
		if err != nil {
			return nil, nil, err
		}
		tx, err := ex.FillTx(module, o, match)
		if err != nil {
			return nil, nil, err
		}
		price, err := o.GetMatchingPrice()
		if err != nil {
			return nil, nil, err
		}
		return tx, price, nil

	case KindFoundation, KindZora, KindCryptoPunks:
		return nil, nil, fmt.Errorf("router: %s has no bid side: %w", d.Kind, nftagg.ErrUnsupportedSide)

	default:
		return nil, nil, fmt.Errorf("router: %q: %w", d.Kind, nftagg.ErrUnknownOrderKind)
	}
}

// quantityOf reads the order's total quantity from its info, defaulting to 1.
func quantityOf(info *nftagg.OrderInfo) *big.Int {
	if info == nil || info.Amount == nil {
		return big.NewInt(1)
	}
	return info.Amount
}
