package backrun

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/hindsight-go/internal/chain"
	"github.com/pulkyeet/hindsight-go/internal/domain"
	"github.com/pulkyeet/hindsight-go/internal/sandbox"
)

// v2RouterABI exposes only the function a backrun leg needs, the same
// narrow-ABI approach the original calldata builder used.
var v2RouterABI = mustParseABI(`[{
	"inputs": [
		{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
		{"internalType": "uint256", "name": "amountOutMin", "type": "uint256"},
		{"internalType": "address[]", "name": "path", "type": "address[]"},
		{"internalType": "address", "name": "to", "type": "address"},
		{"internalType": "uint256", "name": "deadline", "type": "uint256"}
	],
	"name": "swapExactTokensForTokens",
	"outputs": [{"internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}],
	"stateMutability": "nonpayable",
	"type": "function"
}]`)

// v3RouterABI exposes SwapRouter's exactInputSingle, the single-hop
// entrypoint that matches a two-leg backrun's needs.
var v3RouterABI = mustParseABI(`[{
	"inputs": [{
		"components": [
			{"internalType": "address", "name": "tokenIn", "type": "address"},
			{"internalType": "address", "name": "tokenOut", "type": "address"},
			{"internalType": "uint24", "name": "fee", "type": "uint24"},
			{"internalType": "address", "name": "recipient", "type": "address"},
			{"internalType": "uint256", "name": "deadline", "type": "uint256"},
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "uint256", "name": "amountOutMinimum", "type": "uint256"},
			{"internalType": "uint160", "name": "sqrtPriceLimitX96", "type": "uint160"}
		],
		"internalType": "struct ISwapRouter.ExactInputSingleParams",
		"name": "params",
		"type": "tuple"
	}],
	"name": "exactInputSingle",
	"outputs": [{"internalType": "uint256", "name": "amountOut", "type": "uint256"}],
	"stateMutability": "payable",
	"type": "function"
}]`)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("backrun: invalid embedded ABI: %v", err))
	}
	return parsed
}

// routerFor returns the router contract a given pool's DEX routes through.
// V2 pools route through Uniswap or Sushiswap's Router02 depending on which
// factory minted them (CommitSwap passes the route's StartDEX/EndDEX, set by
// arbroute.Enumerate via PoolFinder.IdentifyDEX/GetOtherPairAddress); V3
// always routes through the single tracked SwapRouter. An unrecognized or
// empty dexName defaults to Uniswap's router, since Uniswap and Sushiswap
// share Router02's bytecode and ABI.
func routerFor(variant domain.PoolVariant, dexName string) common.Address {
	if variant == domain.V3 {
		return chain.UniswapV3Router
	}
	if dexName == "sushiswap" {
		return chain.SushiswapV2Router
	}
	return chain.UniswapV2Router
}

// buildSwapCalldata encodes one leg of a backrun: a V2 router hop through
// [tokenIn, tokenOut], or a V3 exactInputSingle at the tracked fee tier.
func buildSwapCalldata(variant domain.PoolVariant, tokenIn, tokenOut common.Address, amountIn, amountOutMin *big.Int, deadline *big.Int) ([]byte, error) {
	if variant == domain.V3 {
		type exactInputSingleParams struct {
			TokenIn           common.Address
			TokenOut          common.Address
			Fee               *big.Int
			Recipient         common.Address
			Deadline          *big.Int
			AmountIn          *big.Int
			AmountOutMinimum  *big.Int
			SqrtPriceLimitX96 *big.Int
		}
		params := exactInputSingleParams{
			TokenIn:           tokenIn,
			TokenOut:          tokenOut,
			Fee:               big.NewInt(int64(chain.UniswapV3.FeeTier)),
			Recipient:         sandbox.ControllerAddress,
			Deadline:          deadline,
			AmountIn:          amountIn,
			AmountOutMinimum:  amountOutMin,
			SqrtPriceLimitX96: big.NewInt(0),
		}
		return v3RouterABI.Pack("exactInputSingle", params)
	}

	path := []common.Address{tokenIn, tokenOut}
	return v2RouterABI.Pack("swapExactTokensForTokens", amountIn, amountOutMin, path, sandbox.ControllerAddress, deadline)
}

// decodeSwapOutput extracts the output amount from a completed leg's return
// data: the last element of V2's amounts array, or V3's single uint256.
func decodeSwapOutput(variant domain.PoolVariant, returnData []byte) (*big.Int, error) {
	if variant == domain.V3 {
		unpacked, err := v3RouterABI.Unpack("exactInputSingle", returnData)
		if err != nil || len(unpacked) < 1 {
			return nil, fmt.Errorf("backrun: decode exactInputSingle output: %w", err)
		}
		amountOut, ok := unpacked[0].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("backrun: exactInputSingle output not *big.Int")
		}
		return amountOut, nil
	}

	unpacked, err := v2RouterABI.Unpack("swapExactTokensForTokens", returnData)
	if err != nil || len(unpacked) < 1 {
		return nil, fmt.Errorf("backrun: decode swapExactTokensForTokens output: %w", err)
	}
	amounts, ok := unpacked[0].([]*big.Int)
	if !ok || len(amounts) == 0 {
		return nil, fmt.Errorf("backrun: swapExactTokensForTokens output not a non-empty array")
	}
	return amounts[len(amounts)-1], nil
}
