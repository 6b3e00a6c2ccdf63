package seaport

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	nftagg "github.com/nftagg/router-sdk-go"
	"github.com/nftagg/router-sdk-go/onchain"
)

const offerItemComponents = `[
	{"name": "itemType", "type": "uint8"},
	{"name": "token", "type": "address"},
	{"name": "identifierOrCriteria", "type": "uint256"},
	{"name": "startAmount", "type": "uint256"},
	{"name": "endAmount", "type": "uint256"}
]`

const considerationItemComponents = `[
	{"name": "itemType", "type": "uint8"},
	{"name": "token", "type": "address"},
	{"name": "identifierOrCriteria", "type": "uint256"},
	{"name": "startAmount", "type": "uint256"},
	{"name": "endAmount", "type": "uint256"},
	{"name": "recipient", "type": "address"}
]`

var orderParametersComponents = `[
	{"name": "offerer", "type": "address"},
	{"name": "zone", "type": "address"},
	{"name": "offer", "type": "tuple[]", "components": ` + offerItemComponents + `},
	{"name": "consideration", "type": "tuple[]", "components": ` + considerationItemComponents + `},
	{"name": "orderType", "type": "uint8"},
	{"name": "startTime", "type": "uint256"},
	{"name": "endTime", "type": "uint256"},
	{"name": "zoneHash", "type": "bytes32"},
	{"name": "salt", "type": "uint256"},
	{"name": "conduitKey", "type": "bytes32"},
	{"name": "totalOriginalConsiderationItems", "type": "uint256"}
]`

var orderComponentsComponents = `[
	{"name": "offerer", "type": "address"},
	{"name": "zone", "type": "address"},
	{"name": "offer", "type": "tuple[]", "components": ` + offerItemComponents + `},
	{"name": "consideration", "type": "tuple[]", "components": ` + considerationItemComponents + `},
	{"name": "orderType", "type": "uint8"},
	{"name": "startTime", "type": "uint256"},
	{"name": "endTime", "type": "uint256"},
	{"name": "zoneHash", "type": "bytes32"},
	{"name": "salt", "type": "uint256"},
	{"name": "conduitKey", "type": "bytes32"},
	{"name": "counter", "type": "uint256"}
]`

var exchangeABIJSON = `[
	{
		"name": "fulfillOrder",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [
			{"name": "order", "type": "tuple", "components": [
				{"name": "parameters", "type": "tuple", "components": ` + orderParametersComponents + `},
				{"name": "signature", "type": "bytes"}
			]},
			{"name": "fulfillerConduitKey", "type": "bytes32"}
		],
		"outputs": [{"name": "fulfilled", "type": "bool"}]
	},
	{
		"name": "fulfillAdvancedOrder",
		"type": "function",
		"stateMutability": "payable",
		"inputs": [
			{"name": "advancedOrder", "type": "tuple", "components": [
				{"name": "parameters", "type": "tuple", "components": ` + orderParametersComponents + `},
				{"name": "numerator", "type": "uint120"},
				{"name": "denominator", "type": "uint120"},
				{"name": "signature", "type": "bytes"},
				{"name": "extraData", "type": "bytes"}
			]},
			{"name": "criteriaResolvers", "type": "tuple[]", "components": [
				{"name": "orderIndex", "type": "uint256"},
				{"name": "side", "type": "uint8"},
				{"name": "index", "type": "uint256"},
				{"name": "identifier", "type": "uint256"},
				{"name": "criteriaProof", "type": "bytes32[]"}
			]},
			{"name": "fulfillerConduitKey", "type": "bytes32"},
			{"name": "recipient", "type": "address"}
		],
		"outputs": [{"name": "fulfilled", "type": "bool"}]
	},
	{
		"name": "cancel",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "orders", "type": "tuple[]", "components": ` + orderComponentsComponents + `}
		],
		"outputs": [{"name": "cancelled", "type": "bool"}]
	},
	{
		"name": "incrementCounter",
		"type": "function",
		"stateMutability": "nonpayable",
		"inputs": [],
		"outputs": [{"name": "newCounter", "type": "uint256"}]
	},
	{
		"name": "getOrderStatus",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "orderHash", "type": "bytes32"}],
		"outputs": [
			{"name": "isValidated", "type": "bool"},
			{"name": "isCancelled", "type": "bool"},
			{"name": "totalFilled", "type": "uint256"},
			{"name": "totalSize", "type": "uint256"}
		]
	},
	{
		"name": "getCounter",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "offerer", "type": "address"}],
		"outputs": [{"name": "counter", "type": "uint256"}]
	}
]`

const conduitControllerABIJSON = `[
	{
		"name": "getConduit",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "conduitKey", "type": "bytes32"}],
		"outputs": [
			{"name": "conduit", "type": "address"},
			{"name": "exists", "type": "bool"}
		]
	}
]`

var (
	exchangeABI          = mustABI(exchangeABIJSON)
	conduitControllerABI = mustABI(conduitControllerABIJSON)
)

func mustABI(jsonABI string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(jsonABI))
	if err != nil {
		panic("failed to parse seaport ABI: " + err.Error())
	}
	return parsed
}

// Calldata mirrors of the ABI tuples. Field names must match the component
// names for the ABI encoder to map them.
type abiOfferItem struct {
	ItemType             uint8
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
}

type abiConsiderationItem struct {
	ItemType             uint8
	Token                common.Address
	IdentifierOrCriteria *big.Int
	StartAmount          *big.Int
	EndAmount            *big.Int
	Recipient            common.Address
}

type abiOrderParameters struct {
	Offerer                         common.Address
	Zone                            common.Address
	Offer                           []abiOfferItem
	Consideration                   []abiConsiderationItem
	OrderType                       uint8
	StartTime                       *big.Int
	EndTime                         *big.Int
	ZoneHash                        [32]byte
	Salt                            *big.Int
	ConduitKey                      [32]byte
	TotalOriginalConsiderationItems *big.Int
}

type abiOrder struct {
	Parameters abiOrderParameters
	Signature  []byte
}

type abiAdvancedOrder struct {
	Parameters  abiOrderParameters
	Numerator   *big.Int
	Denominator *big.Int
	Signature   []byte
	ExtraData   []byte
}

type abiOrderComponents struct {
	Offerer       common.Address
	Zone          common.Address
	Offer         []abiOfferItem
	Consideration []abiConsiderationItem
	OrderType     uint8
	StartTime     *big.Int
	EndTime       *big.Int
	ZoneHash      [32]byte
	Salt          *big.Int
	ConduitKey    [32]byte
	Counter       *big.Int
}

type abiCriteriaResolver struct {
	OrderIndex    *big.Int
	Side          uint8
	Index         *big.Int
	Identifier    *big.Int
	CriteriaProof [][32]byte
}

// Exchange encodes fill and cancel calls against a chain's Seaport deployment.
type Exchange struct {
	chainID nftagg.ChainID
	addrs   nftagg.ContractAddresses
}

// NewExchange binds the client to one chain's deployment.
func NewExchange(chainID nftagg.ChainID) (*Exchange, error) {
	addrs, err := nftagg.Addresses(chainID)
	if err != nil {
		return nil, err
	}
	if addrs.Seaport == (common.Address{}) {
		return nil, fmt.Errorf("%w: seaport has no deployment on chain %d", nftagg.ErrUnsupportedChain, chainID)
	}
	return &Exchange{chainID: chainID, addrs: addrs}, nil
}

// Address is the exchange contract the encoded calls target.
func (e *Exchange) Address() common.Address { return e.addrs.Seaport }

func toAbiParameters(p *Params, tips []abiConsiderationItem) abiOrderParameters {
	offer := make([]abiOfferItem, len(p.Offer))
	for i, item := range p.Offer {
		offer[i] = abiOfferItem{
			ItemType:             uint8(item.ItemType),
			Token:                item.Token,
			IdentifierOrCriteria: item.IdentifierOrCriteria,
			StartAmount:          item.StartAmount,
			EndAmount:            item.EndAmount,
		}
	}
	consideration := make([]abiConsiderationItem, 0, len(p.Consideration)+len(tips))
	for _, item := range p.Consideration {
		consideration = append(consideration, abiConsiderationItem{
			ItemType:             uint8(item.ItemType),
			Token:                item.Token,
			IdentifierOrCriteria: item.IdentifierOrCriteria,
			StartAmount:          item.StartAmount,
			EndAmount:            item.EndAmount,
			Recipient:            item.Recipient,
		})
	}
	consideration = append(consideration, tips...)
	return abiOrderParameters{
		Offerer:                         p.Offerer,
		Zone:                            p.Zone,
		Offer:                           offer,
		Consideration:                   consideration,
		OrderType:                       uint8(p.OrderType),
		StartTime:                       big.NewInt(p.StartTime),
		EndTime:                         big.NewInt(p.EndTime),
		ZoneHash:                        [32]byte(p.ZoneHash),
		Salt:                            p.Salt,
		ConduitKey:                      [32]byte(p.ConduitKey),
		TotalOriginalConsiderationItems: big.NewInt(int64(len(p.Consideration))),
	}
}

// basicPathEligible mirrors the protocol's cheaper single-quantity path:
// whole fills of non-criteria orders with no recipient override.
func basicPathEligible(o *Order, match *MatchParams) bool {
	if o.Kind == nftagg.OrderKindTokenList || o.Kind == nftagg.OrderKindContractWide {
		return false
	}
	if match == nil {
		return true
	}
	if match.Recipient != (common.Address{}) {
		return false
	}
	return match.Amount == nil || match.Amount.Cmp(big.NewInt(1)) == 0
}

// FillTx encodes the fill of a signed order. Fees on top are appended as tip
// consideration legs funded by the filler's own value, never reducing the
// maker's proceeds. The basic path is selected for whole single-quantity
// fills; partial or criteria fills take the advanced path.
func (e *Exchange) FillTx(taker common.Address, o *Order, match *MatchParams, feesOnTop ...nftagg.FeeItem) (*nftagg.TxData, error) {
	info := o.GetInfo()
	if info == nil {
		return nil, nftagg.ErrInvalidOrder
	}
	if len(o.Params.Signature) == 0 {
		return nil, fmt.Errorf("%w: order is unsigned", nftagg.ErrInvalidOrder)
	}

	payNative := info.Side == nftagg.SideSell && nftagg.IsNative(info.PaymentToken)
	tipType := ItemERC20
	if payNative {
		tipType = ItemNative
	}
	tips := make([]abiConsiderationItem, 0, len(feesOnTop))
	value := new(big.Int)
	if payNative {
		value = o.GetMatchingPrice()
	}
	for _, fee := range feesOnTop {
		tips = append(tips, abiConsiderationItem{
			ItemType:             uint8(tipType),
			Token:                info.PaymentToken,
			IdentifierOrCriteria: new(big.Int),
			StartAmount:          fee.Amount,
			EndAmount:            fee.Amount,
			Recipient:            fee.Recipient,
		})
		if payNative {
			value = value.Add(value, fee.Amount)
		}
	}

	parameters := toAbiParameters(&o.Params, tips)

	if basicPathEligible(o, match) {
		data, err := exchangeABI.Pack("fulfillOrder",
			abiOrder{Parameters: parameters, Signature: o.Params.Signature},
			[32]byte{},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to pack fulfillOrder: %w", err)
		}
		return &nftagg.TxData{From: taker, To: e.addrs.Seaport, Data: data, Value: value}, nil
	}

	numerator := big.NewInt(1)
	denominator := big.NewInt(1)
	if match != nil && match.Amount != nil {
		numerator = match.Amount
		if info.Side == nftagg.SideSell {
			denominator = o.Params.Offer[0].StartAmount
		} else {
			denominator = o.Params.Consideration[0].StartAmount
		}
		if payNative {
			value = nftagg.PartialAmount(value, numerator, denominator)
		}
	}

	var resolvers []abiCriteriaResolver
	if o.Kind == nftagg.OrderKindTokenList || o.Kind == nftagg.OrderKindContractWide {
		if match == nil || match.TokenID == nil {
			return nil, fmt.Errorf("%w: criteria fills need a concrete tokenId", nftagg.ErrInvalidParams)
		}
		proof := make([][32]byte, len(match.CriteriaProof))
		for i, h := range match.CriteriaProof {
			proof[i] = [32]byte(h)
		}
		// Criteria items sit on the consideration side of a bid.
		resolvers = append(resolvers, abiCriteriaResolver{
			OrderIndex:    new(big.Int),
			Side:          1,
			Index:         new(big.Int),
			Identifier:    match.TokenID,
			CriteriaProof: proof,
		})
	}
	if resolvers == nil {
		resolvers = []abiCriteriaResolver{}
	}

	recipient := common.Address{}
	if match != nil {
		recipient = match.Recipient
	}

	data, err := exchangeABI.Pack("fulfillAdvancedOrder",
		abiAdvancedOrder{
			Parameters:  parameters,
			Numerator:   numerator,
			Denominator: denominator,
			Signature:   o.Params.Signature,
			ExtraData:   []byte{},
		},
		resolvers,
		[32]byte{},
		recipient,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack fulfillAdvancedOrder: %w", err)
	}
	return &nftagg.TxData{From: taker, To: e.addrs.Seaport, Data: data, Value: value}, nil
}

// CancelTx encodes a maker-side cancellation of one or more orders.
func (e *Exchange) CancelTx(maker common.Address, orders ...*Order) (*nftagg.TxData, error) {
	if len(orders) == 0 {
		return nil, fmt.Errorf("%w: no orders to cancel", nftagg.ErrInvalidParams)
	}
	components := make([]abiOrderComponents, len(orders))
	for i, o := range orders {
		parameters := toAbiParameters(&o.Params, nil)
		components[i] = abiOrderComponents{
			Offerer:       parameters.Offerer,
			Zone:          parameters.Zone,
			Offer:         parameters.Offer,
			Consideration: parameters.Consideration,
			OrderType:     parameters.OrderType,
			StartTime:     parameters.StartTime,
			EndTime:       parameters.EndTime,
			ZoneHash:      parameters.ZoneHash,
			Salt:          parameters.Salt,
			ConduitKey:    parameters.ConduitKey,
			Counter:       o.Params.Counter,
		}
	}
	data, err := exchangeABI.Pack("cancel", components)
	if err != nil {
		return nil, fmt.Errorf("failed to pack cancel: %w", err)
	}
	return &nftagg.TxData{From: maker, To: e.addrs.Seaport, Data: data, Value: new(big.Int)}, nil
}

// IncrementCounterTx bulk-invalidates every outstanding order of the sender.
func (e *Exchange) IncrementCounterTx(maker common.Address) (*nftagg.TxData, error) {
	data, err := exchangeABI.Pack("incrementCounter")
	if err != nil {
		return nil, err
	}
	return &nftagg.TxData{From: maker, To: e.addrs.Seaport, Data: data, Value: new(big.Int)}, nil
}

// Counter reads the maker's live counter, required when building fresh orders.
func (e *Exchange) Counter(ctx context.Context, reader *onchain.Reader, maker common.Address) (*big.Int, error) {
	data, err := exchangeABI.Pack("getCounter", maker)
	if err != nil {
		return nil, err
	}
	result, err := reader.Call(ctx, e.addrs.Seaport, data)
	if err != nil {
		return nil, fmt.Errorf("failed to read counter: %w", err)
	}
	var counter *big.Int
	if err := exchangeABI.UnpackIntoInterface(&counter, "getCounter", result); err != nil {
		return nil, err
	}
	return counter, nil
}
