package chain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/pulkyeet/hindsight-go/internal/domain"
)

// Mainnet addresses the simulator is hardcoded against. A second fee tier or
// factory is a one-line addition to KnownV2DEXes/UniswapV3 below.
var (
	WETHAddress = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	USDCAddress = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	USDTAddress = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	DAIAddress  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	WBTCAddress = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
)

// Router addresses the backrun simulator drives its buy/sell legs through.
var (
	UniswapV2Router   = common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	SushiswapV2Router = common.HexToAddress("0xd9e1cE17f2641f24aE83637ab66a2cca9C378B9F")
	UniswapV3Router   = common.HexToAddress("0xE592427A0AEce92De3Edee1F18E0157C05861564")
)

const (
	WETHDecimals = 18
	USDCDecimals = 6
	USDTDecimals = 6
	DAIDecimals  = 18
	WBTCDecimals = 8
)

// KnownV2DEXes are the constant-product factories the route enumerator scans
// when looking for an alternate V2 pool.
var KnownV2DEXes = []domain.DEXConfig{
	{
		Name:         "uniswap",
		Factory:      common.HexToAddress("0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"),
		InitCodeHash: hexToBytes32("96e8ac4277198ff8b6f785478aa9a39f403cb768dd02cbee326c3e7da348845f"),
	},
	{
		Name:         "sushiswap",
		Factory:      common.HexToAddress("0xC0AEe478e3658e2610c5F7A4A2E1777cE9e4f2Ac"),
		InitCodeHash: hexToBytes32("e18a34eb0e04b04f7a0ac29a6e80748dca96319b42c54d679cb821dca90c6303"),
	},
}

// UniswapV3 is the sole tracked V3 factory. FeeTier is the one extension
// point a second fee tier would plug into.
var UniswapV3 = domain.DEXConfig{
	Name:    "uniswap-v3",
	Factory: common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984"),
	FeeTier: 3000,
}

// Event topics used to classify and decode swap/sync logs.
var (
	TopicV3Swap = common.HexToHash("0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67")
	TopicV2Swap = common.HexToHash("0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822")
	TopicV2Sync = common.HexToHash("0x1c411e9a96e071241c2f21f7726b17ae89e3cab4c78be50e062b03a9fffbbad1")
)

func hexToBytes32(s string) [32]byte {
	var b [32]byte
	copy(b[:], common.FromHex(s))
	return b
}

// UniswapV2PairABI exposes getReserves/token0/token1, the only pair-level
// calls the chain adapter needs.
const UniswapV2PairABI = `[
	{"constant": true, "inputs": [], "name": "getReserves", "outputs": [
		{"internalType": "uint112", "name": "reserve0", "type": "uint112"},
		{"internalType": "uint112", "name": "reserve1", "type": "uint112"},
		{"internalType": "uint32",  "name": "blockTimestampLast", "type": "uint32"}
	], "payable": false, "stateMutability": "view", "type": "function"},
	{"constant": true, "inputs": [], "name": "token0", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "payable": false, "stateMutability": "view", "type": "function"},
	{"constant": true, "inputs": [], "name": "token1", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "payable": false, "stateMutability": "view", "type": "function"}
]`

// UniswapV2FactoryABI exposes getPair, used to find a V2-style alternate pool.
const UniswapV2FactoryABI = `[
	{"constant": true, "inputs": [{"internalType": "address", "name": "tokenA", "type": "address"}, {"internalType": "address", "name": "tokenB", "type": "address"}], "name": "getPair", "outputs": [{"internalType": "address", "name": "pair", "type": "address"}], "payable": false, "stateMutability": "view", "type": "function"}
]`

// UniswapV3FactoryABI exposes getPool, used to find the V3 alternate pool at
// a fixed fee tier.
const UniswapV3FactoryABI = `[
	{"constant": true, "inputs": [{"internalType": "address", "name": "tokenA", "type": "address"}, {"internalType": "address", "name": "tokenB", "type": "address"}, {"internalType": "uint24", "name": "fee", "type": "uint24"}], "name": "getPool", "outputs": [{"internalType": "address", "name": "pool", "type": "address"}], "payable": false, "stateMutability": "view", "type": "function"}
]`

// UniswapV3PoolABI exposes slot0 and liquidity, the state needed for PriceV3.
const UniswapV3PoolABI = `[
	{"constant": true, "inputs": [], "name": "slot0", "outputs": [
		{"internalType": "uint160", "name": "sqrtPriceX96", "type": "uint160"},
		{"internalType": "int24", "name": "tick", "type": "int24"},
		{"internalType": "uint16", "name": "observationIndex", "type": "uint16"},
		{"internalType": "uint16", "name": "observationCardinality", "type": "uint16"},
		{"internalType": "uint16", "name": "observationCardinalityNext", "type": "uint16"},
		{"internalType": "uint8", "name": "feeProtocol", "type": "uint8"},
		{"internalType": "bool", "name": "unlocked", "type": "bool"}
	], "payable": false, "stateMutability": "view", "type": "function"},
	{"constant": true, "inputs": [], "name": "liquidity", "outputs": [{"internalType": "uint128", "name": "", "type": "uint128"}], "payable": false, "stateMutability": "view", "type": "function"},
	{"constant": true, "inputs": [], "name": "token0", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "payable": false, "stateMutability": "view", "type": "function"},
	{"constant": true, "inputs": [], "name": "token1", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "payable": false, "stateMutability": "view", "type": "function"}
]`
