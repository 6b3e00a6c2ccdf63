package router

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// The on-chain router dispatches an ordered list of module calls; each
// per-protocol module forwards exchange calls and pays out fees, refunding
// any excess to the taker so no contract retains balance.

const routerABIJSON = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "module", "type": "address"},
					{"internalType": "bytes", "name": "data", "type": "bytes"},
					{"internalType": "uint256", "name": "value", "type": "uint256"}
				],
				"internalType": "struct ExecutionInfo[]",
				"name": "executions",
				"type": "tuple[]"
			}
		],
		"name": "execute",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

const moduleABIJSON = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "target", "type": "address"},
					{"internalType": "bytes", "name": "data", "type": "bytes"},
					{"internalType": "uint256", "name": "value", "type": "uint256"}
				],
				"internalType": "struct Call[]",
				"name": "calls",
				"type": "tuple[]"
			},
			{
				"components": [
					{"internalType": "address", "name": "fillTo", "type": "address"},
					{"internalType": "address", "name": "refundTo", "type": "address"},
					{"internalType": "bool", "name": "revertIfIncomplete", "type": "bool"}
				],
				"internalType": "struct FillParams",
				"name": "params",
				"type": "tuple"
			},
			{
				"components": [
					{"internalType": "address", "name": "recipient", "type": "address"},
					{"internalType": "uint256", "name": "amount", "type": "uint256"}
				],
				"internalType": "struct Fee[]",
				"name": "fees",
				"type": "tuple[]"
			}
		],
		"name": "fill",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

const swapModuleABIJSON = `[
	{
		"inputs": [
			{"internalType": "address", "name": "tokenOut", "type": "address"},
			{"internalType": "uint256", "name": "amountOut", "type": "uint256"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "address", "name": "refundTo", "type": "address"}
		],
		"name": "ethToExactOutput",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

var (
	abisOnce      sync.Once
	routerABI     abi.ABI
	moduleABI     abi.ABI
	swapModuleABI abi.ABI
)

func loadABIs() {
	abisOnce.Do(func() {
		var err error
		if routerABI, err = abi.JSON(strings.NewReader(routerABIJSON)); err != nil {
			panic("router: failed to parse router ABI: " + err.Error())
		}
		if moduleABI, err = abi.JSON(strings.NewReader(moduleABIJSON)); err != nil {
			panic("router: failed to parse module ABI: " + err.Error())
		}
		if swapModuleABI, err = abi.JSON(strings.NewReader(swapModuleABIJSON)); err != nil {
			panic("router: failed to parse swap module ABI: " + err.Error())
		}
	})
}

// RouterABI exposes the parsed router contract interface.
func RouterABI() abi.ABI {
	loadABIs()
	return routerABI
}

// ModuleABI exposes the shared per-protocol module interface.
func ModuleABI() abi.ABI {
	loadABIs()
	return moduleABI
}

// SwapModuleABI exposes the swap module interface.
func SwapModuleABI() abi.ABI {
	loadABIs()
	return swapModuleABI
}
