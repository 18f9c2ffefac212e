package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/pulkyeet/hindsight-go/internal/domain"
	"github.com/pulkyeet/hindsight-go/internal/simerrors"
)

var (
	v2PairABI     = mustParseABI(UniswapV2PairABI)
	v2FactoryABI  = mustParseABI(UniswapV2FactoryABI)
	v3FactoryABI  = mustParseABI(UniswapV3FactoryABI)
	v3PoolABI     = mustParseABI(UniswapV3PoolABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("chain: invalid embedded ABI: %v", err))
	}
	return parsed
}

// PoolTokens caches a pool's statically known token0/token1 ordering.
type PoolTokens struct {
	Token0 common.Address
	Token1 common.Address
}

// PoolFinder resolves alternate-pool addresses and reads pool state, caching
// the token-ordering lookups that never change across blocks.
type PoolFinder struct {
	client     *Client
	tokenCache *lru.Cache[common.Address, PoolTokens]
}

// NewPoolFinder builds a PoolFinder with a bounded LRU cache for pool token
// lookups; size mirrors the number of pools a single batch run will plausibly
// touch.
func NewPoolFinder(client *Client) *PoolFinder {
	cache, err := lru.New[common.Address, PoolTokens](1024)
	if err != nil {
		panic(fmt.Sprintf("chain: lru.New: %v", err))
	}
	return &PoolFinder{client: client, tokenCache: cache}
}

// GetPairTokens returns a pool's token0/token1, using the cache and falling
// back to token0()/token1() calls on the pool contract itself (valid for both
// V2 pair and V3 pool ABIs, which share that function signature).
func (f *PoolFinder) GetPairTokens(ctx context.Context, pool common.Address, blockNum *big.Int) (PoolTokens, error) {
	if tok, ok := f.tokenCache.Get(pool); ok {
		return tok, nil
	}

	token0, err := f.callAddress(ctx, pool, v2PairABI, "token0", blockNum)
	if err != nil {
		return PoolTokens{}, err
	}
	token1, err := f.callAddress(ctx, pool, v2PairABI, "token1", blockNum)
	if err != nil {
		return PoolTokens{}, err
	}

	tok := PoolTokens{Token0: token0, Token1: token1}
	f.tokenCache.Add(pool, tok)
	return tok, nil
}

func (f *PoolFinder) callAddress(ctx context.Context, target common.Address, contractABI abi.ABI, method string, blockNum *big.Int) (common.Address, error) {
	data, err := contractABI.Pack(method)
	if err != nil {
		return common.Address{}, fmt.Errorf("pack %s: %w", method, err)
	}
	result, err := f.client.CallContract(ctx, ethereum.CallMsg{To: &target, Data: data}, blockNum)
	if err != nil {
		return common.Address{}, err
	}
	unpacked, err := contractABI.Unpack(method, result)
	if err != nil || len(unpacked) < 1 {
		return common.Address{}, &simerrors.DecodeError{Field: method}
	}
	addr, ok := unpacked[0].(common.Address)
	if !ok {
		return common.Address{}, &simerrors.DecodeError{Field: method}
	}
	return addr, nil
}

// GetOtherPairAddress finds the alternate pool for tokenA/tokenB on the
// opposite AMM variant, along with the name of the DEX that pool belongs to
// so the caller can route a swap through the matching router. V2 alternates
// are probed across every known factory's getPair; the V3 alternate is a
// single getPool call at the fixed fee tier.
func (f *PoolFinder) GetOtherPairAddress(ctx context.Context, tokenA, tokenB common.Address, other domain.PoolVariant, blockNum *big.Int) (common.Address, string, error) {
	if other == domain.V3 {
		data, err := v3FactoryABI.Pack("getPool", tokenA, tokenB, UniswapV3.FeeTier)
		if err != nil {
			return common.Address{}, "", fmt.Errorf("pack getPool: %w", err)
		}
		factory := UniswapV3.Factory
		result, err := f.client.CallContract(ctx, ethereum.CallMsg{To: &factory, Data: data}, blockNum)
		if err != nil {
			return common.Address{}, "", err
		}
		unpacked, err := v3FactoryABI.Unpack("getPool", result)
		if err != nil || len(unpacked) < 1 {
			return common.Address{}, "", &simerrors.DecodeError{Field: "getPool"}
		}
		addr, _ := unpacked[0].(common.Address)
		if addr == (common.Address{}) {
			return common.Address{}, "", &simerrors.PoolNotFoundError{Pool: addr}
		}
		return addr, UniswapV3.Name, nil
	}

	for _, dex := range KnownV2DEXes {
		data, err := v2FactoryABI.Pack("getPair", tokenA, tokenB)
		if err != nil {
			return common.Address{}, "", fmt.Errorf("pack getPair: %w", err)
		}
		factory := dex.Factory
		result, err := f.client.CallContract(ctx, ethereum.CallMsg{To: &factory, Data: data}, blockNum)
		if err != nil {
			continue
		}
		unpacked, err := v2FactoryABI.Unpack("getPair", result)
		if err != nil || len(unpacked) < 1 {
			continue
		}
		addr, _ := unpacked[0].(common.Address)
		if addr != (common.Address{}) {
			return addr, dex.Name, nil
		}
	}
	return common.Address{}, "", &simerrors.PoolNotFoundError{}
}

// v2FactoryOfABI exposes the factory() getter every Uniswap-V2-style pair
// contract carries, used to identify which known DEX minted a given pool.
var v2FactoryOfABI = mustParseABI(`[
	{"constant": true, "inputs": [], "name": "factory", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "payable": false, "stateMutability": "view", "type": "function"}
]`)

// IdentifyDEX names the DEX that minted pool, so a backrun leg can route
// through the matching router rather than defaulting to Uniswap. V3 always
// resolves to the sole tracked factory; V2 calls the pair's own factory()
// getter and matches it against KnownV2DEXes.
func (f *PoolFinder) IdentifyDEX(ctx context.Context, pool common.Address, variant domain.PoolVariant, blockNum *big.Int) (string, error) {
	if variant == domain.V3 {
		return UniswapV3.Name, nil
	}

	factoryAddr, err := f.callAddress(ctx, pool, v2FactoryOfABI, "factory", blockNum)
	if err != nil {
		return "", err
	}
	for _, dex := range KnownV2DEXes {
		if dex.Factory == factoryAddr {
			return dex.Name, nil
		}
	}
	return "", &simerrors.PoolNotFoundError{Pool: pool}
}

// GetReservesV2 reads a V2 pool's current reserves.
func (f *PoolFinder) GetReservesV2(ctx context.Context, pool common.Address, blockNum *big.Int) (reserve0, reserve1 *big.Int, err error) {
	data, err := v2PairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("pack getReserves: %w", err)
	}
	result, err := f.client.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: data}, blockNum)
	if err != nil {
		return nil, nil, err
	}
	unpacked, err := v2PairABI.Unpack("getReserves", result)
	if err != nil || len(unpacked) < 2 {
		return nil, nil, &simerrors.DecodeError{Field: "getReserves"}
	}
	reserve0, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, nil, &simerrors.DecodeError{Field: "reserve0"}
	}
	reserve1, ok = unpacked[1].(*big.Int)
	if !ok {
		return nil, nil, &simerrors.DecodeError{Field: "reserve1"}
	}
	return reserve0, reserve1, nil
}

// GetStateV3 reads a V3 pool's liquidity and sqrtPriceX96.
func (f *PoolFinder) GetStateV3(ctx context.Context, pool common.Address, blockNum *big.Int) (liquidity, sqrtPriceX96 *big.Int, err error) {
	slot0Data, err := v3PoolABI.Pack("slot0")
	if err != nil {
		return nil, nil, fmt.Errorf("pack slot0: %w", err)
	}
	slot0Result, err := f.client.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: slot0Data}, blockNum)
	if err != nil {
		return nil, nil, err
	}
	slot0, err := v3PoolABI.Unpack("slot0", slot0Result)
	if err != nil || len(slot0) < 1 {
		return nil, nil, &simerrors.DecodeError{Field: "slot0"}
	}
	sqrtPriceX96, ok := slot0[0].(*big.Int)
	if !ok {
		return nil, nil, &simerrors.DecodeError{Field: "sqrtPriceX96"}
	}

	liqData, err := v3PoolABI.Pack("liquidity")
	if err != nil {
		return nil, nil, fmt.Errorf("pack liquidity: %w", err)
	}
	liqResult, err := f.client.CallContract(ctx, ethereum.CallMsg{To: &pool, Data: liqData}, blockNum)
	if err != nil {
		return nil, nil, err
	}
	liq, err := v3PoolABI.Unpack("liquidity", liqResult)
	if err != nil || len(liq) < 1 {
		return nil, nil, &simerrors.DecodeError{Field: "liquidity"}
	}
	liquidity, ok = liq[0].(*big.Int)
	if !ok {
		return nil, nil, &simerrors.DecodeError{Field: "liquidity"}
	}

	return liquidity, sqrtPriceX96, nil
}
