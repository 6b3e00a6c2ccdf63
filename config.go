package nftagg

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// ChainID identifies a target network.
type ChainID int64

const (
	ChainEthereum ChainID = 1
	ChainGoerli   ChainID = 5
	ChainOptimism ChainID = 10
	ChainPolygon  ChainID = 137
	ChainArbitrum ChainID = 42161
)

// SupportedChainIDs lists the chains the SDK ships address tables for.
var SupportedChainIDs = []ChainID{ChainEthereum, ChainGoerli, ChainOptimism, ChainPolygon, ChainArbitrum}

// IsSupportedChain reports whether an address table exists for the chain.
func IsSupportedChain(chainID ChainID) bool {
	for _, id := range SupportedChainIDs {
		if id == chainID {
			return true
		}
	}
	return false
}

// ContractAddresses is the immutable per-chain deployment table. Entries are
// zero where a protocol has no deployment on the chain; protocol constructors
// treat a zero exchange address as ErrUnsupportedChain.
type ContractAddresses struct {
	WNative common.Address

	Seaport                  common.Address
	SeaportConduitController common.Address

	LooksRare                       common.Address
	LooksRareTransferManager721     common.Address
	LooksRareTransferManager1155    common.Address
	LooksRareStrategyStandardSale   common.Address
	LooksRareStrategyCollectionSale common.Address

	ZeroExV4             common.Address
	X2Y2                 common.Address
	X2Y2Delegate         common.Address
	WyvernV23            common.Address
	Foundation           common.Address
	Element              common.Address
	Flow                 common.Address
	Forward              common.Address
	Rarible              common.Address
	RaribleTransferProxy common.Address
	Universe             common.Address
	ZoraAsks             common.Address
	ZoraTransferHelper   common.Address
	CryptoPunks          common.Address

	Router     common.Address
	SwapModule common.Address
	Modules    map[string]common.Address
}

var defaultAddresses = map[ChainID]ContractAddresses{
	ChainEthereum: {
		WNative: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),

		Seaport:                  common.HexToAddress("0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC"),
		SeaportConduitController: common.HexToAddress("0x00000000F9490004C11Cef243f5400493c00Ad63"),

		LooksRare:                       common.HexToAddress("0x59728544B08AB483533076417FbBB2fD0B17CE3a"),
		LooksRareTransferManager721:     common.HexToAddress("0xf42aa99F011A1fA7CDA90E5E98b277E306BcA83e"),
		LooksRareTransferManager1155:    common.HexToAddress("0xFED24eC7E22f573c2e08AEF55aA6797Ca2b3A051"),
		LooksRareStrategyStandardSale:   common.HexToAddress("0x56244Bb70CbD3EA9Dc8007399F61dFC065190031"),
		LooksRareStrategyCollectionSale: common.HexToAddress("0x86F909F70813CdB1Bc733f4D97Dc6b03B8e7E8F3"),

		ZeroExV4:             common.HexToAddress("0xDef1C0ded9bec7F1a1670819833240f027b25EfF"),
		X2Y2:                 common.HexToAddress("0x74312363e45DCaBA76c59ec49a7Aa8A65a67EeD3"),
		X2Y2Delegate:         common.HexToAddress("0xF849de01B080aDC3A814FaBE1E2087475cF2E354"),
		WyvernV23:            common.HexToAddress("0x7f268357A8c2552623316e2562D90e642bB538E5"),
		Foundation:           common.HexToAddress("0xcDA72070E455bb31C7690a170224Ce43623d0B6f"),
		Element:              common.HexToAddress("0x20F780A973856B93f63670377900C1d2a50a77c4"),
		Flow:                 common.HexToAddress("0xf08629f1E827345b9E316DE0D0dB48db28D60cf6"),
		Forward:              common.HexToAddress("0x07045111E9E25cdd8889dD9a1759E3F2E2F12BdF"),
		Rarible:              common.HexToAddress("0x9757F2d2b135150BBeb65308D4a91804107cd8D6"),
		RaribleTransferProxy: common.HexToAddress("0x4feE7B061C97C9c496b01DbcE9CDb10c02f0a0Be"),
		Universe:             common.HexToAddress("0x160C404B2b49CBC3240055CEaEE026df1e8497A0"),
		ZoraAsks:             common.HexToAddress("0xE468cE99444174Bd3bBBEd09209577d25D1ad673"),
		ZoraTransferHelper:   common.HexToAddress("0x909e9efE4D87d1a6018C2065aE642b6D0447bc91"),
		CryptoPunks:          common.HexToAddress("0xb47e3cd837dDF8e4c57F05d70Ab865de6e193BBB"),

		Router:     common.HexToAddress("0x178A86D36D89c7FDeBeA90b739605da7B131ff6A"),
		SwapModule: common.HexToAddress("0xC1E5a51bc41eeAd435917Fd82a8bCC0B39Ff1F6b"),
		Modules: map[string]common.Address{
			"seaport":     common.HexToAddress("0x20794EF7693441799a3f38Fcc22a12b3E04b9572"),
			"looks-rare":  common.HexToAddress("0x385Df8Cbc196F5f780367f3CdC96af072A916F7e"),
			"zeroex-v4":   common.HexToAddress("0x8162beec776442aFD262b672730Bb5d0D8Af16a1"),
			"x2y2":        common.HexToAddress("0x613d3c588F6B8F89302b463F8F19f7241b2857E2"),
			"element":     common.HexToAddress("0xeF82b43719dd13BA33Ef7D93e6f0D1f690EeA5b2"),
			"flow":        common.HexToAddress("0x29FCAC61d9b2a3c55f3E1149D0278126c31aBE74"),
			"forward":     common.HexToAddress("0x8B49C5d9bB1fA46Cd077D1cA579F23b69b282B80"),
			"rarible":     common.HexToAddress("0x8E6a2F8a8F2712eC2AAD1a39b9E4e0C3971fFbD4"),
			"universe":    common.HexToAddress("0x709A63d9ea91f4bcC9E09e57FF7b6B1eFCe63C4C"),
			"wyvern-v2.3": common.HexToAddress("0x5c46c3E33d1EAE6F8a1D87F33a48D7e796111111"),
			"foundation":  common.HexToAddress("0x5c8a351d4ff680203e05af56cb9d748898c7B39A"),
			"zora":        common.HexToAddress("0x982b49De82A3eA5b8883805fd00cb04FE835F2DD"),
			"cryptopunks": common.HexToAddress("0x0E9a2Fd7E03f22E2E8a9eC74F07De54e32D85c52"),
		},
	},
	// Other chains carry the protocols with deployments there. The router
	// stack is deployed via create2, so its addresses match mainnet.
	ChainGoerli: {
		WNative: common.HexToAddress("0xB4FBF271143F4FBf7B91A5ded31805e42b2208d6"),

		Seaport:                  common.HexToAddress("0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC"),
		SeaportConduitController: common.HexToAddress("0x00000000F9490004C11Cef243f5400493c00Ad63"),
		ZeroExV4:                 common.HexToAddress("0xF91bB752490473B8342a3E964E855b9f9a2A668e"),

		Router:     common.HexToAddress("0x178A86D36D89c7FDeBeA90b739605da7B131ff6A"),
		SwapModule: common.HexToAddress("0xC1E5a51bc41eeAd435917Fd82a8bCC0B39Ff1F6b"),
		Modules: map[string]common.Address{
			"seaport":   common.HexToAddress("0x20794EF7693441799a3f38Fcc22a12b3E04b9572"),
			"zeroex-v4": common.HexToAddress("0x8162beec776442aFD262b672730Bb5d0D8Af16a1"),
		},
	},
	ChainOptimism: {
		WNative: common.HexToAddress("0x4200000000000000000000000000000000000006"),

		Seaport:                  common.HexToAddress("0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC"),
		SeaportConduitController: common.HexToAddress("0x00000000F9490004C11Cef243f5400493c00Ad63"),
		ZeroExV4:                 common.HexToAddress("0xDEF1ABE32c034e558Cdd535791643C58a13aCC10"),

		Router:     common.HexToAddress("0x178A86D36D89c7FDeBeA90b739605da7B131ff6A"),
		SwapModule: common.HexToAddress("0xC1E5a51bc41eeAd435917Fd82a8bCC0B39Ff1F6b"),
		Modules: map[string]common.Address{
			"seaport":   common.HexToAddress("0x20794EF7693441799a3f38Fcc22a12b3E04b9572"),
			"zeroex-v4": common.HexToAddress("0x8162beec776442aFD262b672730Bb5d0D8Af16a1"),
		},
	},
	ChainPolygon: {
		WNative: common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"),

		Seaport:                  common.HexToAddress("0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC"),
		SeaportConduitController: common.HexToAddress("0x00000000F9490004C11Cef243f5400493c00Ad63"),
		ZeroExV4:                 common.HexToAddress("0xDef1C0ded9bec7F1a1670819833240f027b25EfF"),

		Router:     common.HexToAddress("0x178A86D36D89c7FDeBeA90b739605da7B131ff6A"),
		SwapModule: common.HexToAddress("0xC1E5a51bc41eeAd435917Fd82a8bCC0B39Ff1F6b"),
		Modules: map[string]common.Address{
			"seaport":   common.HexToAddress("0x20794EF7693441799a3f38Fcc22a12b3E04b9572"),
			"zeroex-v4": common.HexToAddress("0x8162beec776442aFD262b672730Bb5d0D8Af16a1"),
		},
	},
	ChainArbitrum: {
		WNative: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"),

		Seaport:                  common.HexToAddress("0x00000000000000ADc04C56Bf30aC9d3c0aAF14dC"),
		SeaportConduitController: common.HexToAddress("0x00000000F9490004C11Cef243f5400493c00Ad63"),
		ZeroExV4:                 common.HexToAddress("0xDef1C0ded9bec7F1a1670819833240f027b25EfF"),

		Router:     common.HexToAddress("0x178A86D36D89c7FDeBeA90b739605da7B131ff6A"),
		SwapModule: common.HexToAddress("0xC1E5a51bc41eeAd435917Fd82a8bCC0B39Ff1F6b"),
		Modules: map[string]common.Address{
			"seaport":   common.HexToAddress("0x20794EF7693441799a3f38Fcc22a12b3E04b9572"),
			"zeroex-v4": common.HexToAddress("0x8162beec776442aFD262b672730Bb5d0D8Af16a1"),
		},
	},
}

// Addresses resolves the deployment table for a chain.
func Addresses(chainID ChainID) (ContractAddresses, error) {
	addrs, ok := defaultAddresses[chainID]
	if !ok {
		return ContractAddresses{}, fmt.Errorf("%w: chain %d", ErrUnsupportedChain, chainID)
	}
	return addrs, nil
}

// UnmarshalYAML decodes hex-string address fields. Unknown keys are ignored so
// override files stay forward compatible.
func (c *ContractAddresses) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]yaml.Node
	if err := node.Decode(&raw); err != nil {
		return err
	}
	for key, val := range raw {
		if key == "modules" {
			var mods map[string]string
			if err := val.Decode(&mods); err != nil {
				return err
			}
			if c.Modules == nil {
				c.Modules = make(map[string]common.Address, len(mods))
			}
			for k, v := range mods {
				c.Modules[k] = common.HexToAddress(v)
			}
			continue
		}

		var s string
		if err := val.Decode(&s); err != nil {
			return err
		}
		addr := common.HexToAddress(s)
		switch key {
		case "wnative":
			c.WNative = addr
		case "seaport":
			c.Seaport = addr
		case "seaportConduitController":
			c.SeaportConduitController = addr
		case "looksRare":
			c.LooksRare = addr
		case "looksRareTransferManager721":
			c.LooksRareTransferManager721 = addr
		case "looksRareTransferManager1155":
			c.LooksRareTransferManager1155 = addr
		case "looksRareStrategyStandardSale":
			c.LooksRareStrategyStandardSale = addr
		case "looksRareStrategyCollectionSale":
			c.LooksRareStrategyCollectionSale = addr
		case "zeroExV4":
			c.ZeroExV4 = addr
		case "x2y2":
			c.X2Y2 = addr
		case "x2y2Delegate":
			c.X2Y2Delegate = addr
		case "wyvernV23":
			c.WyvernV23 = addr
		case "foundation":
			c.Foundation = addr
		case "element":
			c.Element = addr
		case "flow":
			c.Flow = addr
		case "forward":
			c.Forward = addr
		case "rarible":
			c.Rarible = addr
		case "raribleTransferProxy":
			c.RaribleTransferProxy = addr
		case "universe":
			c.Universe = addr
		case "zoraAsks":
			c.ZoraAsks = addr
		case "zoraTransferHelper":
			c.ZoraTransferHelper = addr
		case "cryptoPunks":
			c.CryptoPunks = addr
		case "router":
			c.Router = addr
		case "swapModule":
			c.SwapModule = addr
		}
	}
	return nil
}

// LoadAddresses parses a YAML document of per-chain address overrides and
// merges it over the built-in table. Shape:
//
//	1:
//	  seaport: "0x..."
//	  modules:
//	    seaport: "0x..."
func LoadAddresses(data []byte) (map[ChainID]ContractAddresses, error) {
	merged := make(map[ChainID]ContractAddresses, len(defaultAddresses))
	for id, addrs := range defaultAddresses {
		mods := make(map[string]common.Address, len(addrs.Modules))
		for k, v := range addrs.Modules {
			mods[k] = v
		}
		addrs.Modules = mods
		merged[id] = addrs
	}

	var overrides map[ChainID]yaml.Node
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse address table: %w", err)
	}
	for id, node := range overrides {
		base := merged[id]
		if err := base.UnmarshalYAML(&node); err != nil {
			return nil, fmt.Errorf("parse address table for chain %d: %w", id, err)
		}
		merged[id] = base
	}
	return merged, nil
}
