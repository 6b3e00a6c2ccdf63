package nftagg

import "errors"

// Error vocabulary shared across all protocol families. Callers branch with
// errors.Is to drive remediation (approve token, re-fetch listing, ...).
var (
	// ErrInvalidParams indicates malformed build input.
	ErrInvalidParams = errors.New("invalid params")

	// ErrInvalidOrder indicates params that no builder round-trips cleanly.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrUnknownOrderKind indicates kind detection exhausted every builder.
	ErrUnknownOrderKind = errors.New("unknown order kind")

	// ErrInvalidSignature indicates the recovered signer does not match the maker.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrNotFillable indicates the order is cancelled or fully filled on chain.
	ErrNotFillable = errors.New("not-fillable")

	// ErrNoBalance indicates the maker no longer holds the committed asset.
	ErrNoBalance = errors.New("no-balance")

	// ErrNoApproval indicates the maker has not approved the transfer delegate.
	ErrNoApproval = errors.New("no-approval")

	// ErrInvalidConduit indicates delegate resolution failed.
	ErrInvalidConduit = errors.New("invalid-conduit")

	// ErrUnsupportedCurrency indicates a payment token the builder or router cannot settle.
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrUnsupportedSide indicates an order side the builder does not handle.
	ErrUnsupportedSide = errors.New("unsupported order side")

	// ErrReverseDutchAuction indicates an offer-side price ramp, which is not supported.
	ErrReverseDutchAuction = errors.New("reverse dutch auctions are not supported")

	// ErrInvalidConsideration indicates fee legs whose currency differs from the principal leg.
	ErrInvalidConsideration = errors.New("invalid consideration")

	// ErrUnsupportedChain indicates a chain id with no deployment for the protocol.
	ErrUnsupportedChain = errors.New("unsupported chain")
)
