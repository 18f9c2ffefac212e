// Package arbroute enumerates the candidate backrun routes for a derived
// user trade and picks the buy/sell direction between them by price.
package arbroute

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/hindsight-go/internal/chain"
	"github.com/pulkyeet/hindsight-go/internal/domain"
)

// PoolResolver finds the alternate pool on the opposite variant, names the
// DEXes on both sides of the route, and reads prices; satisfied by
// *chain.PoolFinder plus an ammmath call.
type PoolResolver interface {
	GetOtherPairAddress(ctx context.Context, tokenA, tokenB common.Address, other domain.PoolVariant, blockNum *big.Int) (common.Address, string, error)
	IdentifyDEX(ctx context.Context, pool common.Address, variant domain.PoolVariant, blockNum *big.Int) (string, error)
}

// PriceReader reads a pool's current token1-per-token0 price, scaled by
// 10^18, regardless of variant.
type PriceReader func(ctx context.Context, pool common.Address, variant domain.PoolVariant, blockNum *big.Int) (*big.Int, error)

// Route is one candidate two-leg path, named the way the optimizer and
// single-shot simulator consume it: buy on Start, sell on End. DEX names the
// router each leg must execute through — Uniswap and Sushiswap V2 pools
// share an ABI but live behind different router contracts.
type Route struct {
	StartPool    common.Address
	StartVariant domain.PoolVariant
	StartDEX     string
	EndPool      common.Address
	EndVariant   domain.PoolVariant
	EndDEX       string
}

// Enumerate finds the single alternate pool for trade's pair on the opposite
// AMM variant, reads both pools' prices, and orders the route by comparing
// them. When WETH is token1 the buy leg lands on the lower-priced pool; when
// WETH is token0 it lands on the higher-priced pool (see the comment in the
// body). This is the original opportunity detector's cheap/expensive
// selection, generalized from two known V2 pools to an arbitrary V2/V3 pair.
func Enumerate(ctx context.Context, resolver PoolResolver, priceOf PriceReader, trade domain.UserTradeParams, blockNum *big.Int) (*Route, error) {
	otherVariant := trade.PoolVariant.Other()

	altPool, altDEX, err := resolver.GetOtherPairAddress(ctx, trade.Tokens.WETH, trade.Tokens.Token, otherVariant, blockNum)
	if err != nil {
		return nil, err
	}

	altPrice, err := priceOf(ctx, altPool, otherVariant, blockNum)
	if err != nil {
		return nil, err
	}

	userPool := trade.Pool
	userVariant := trade.PoolVariant
	userPrice := trade.Price

	userDEX, err := resolver.IdentifyDEX(ctx, userPool, userVariant, blockNum)
	if err != nil {
		return nil, err
	}

	// Price is token1-per-token0. Which side of the comparison means "buy
	// here" flips depending on whether WETH is token0 or token1: when WETH
	// is token0, a higher price means more of the counter-token per WETH,
	// so that's the pool to buy on; when WETH is token1, it's the reverse.
	buyOnUserPool := userPrice.Cmp(altPrice) < 0
	if trade.Token0IsWETH {
		buyOnUserPool = userPrice.Cmp(altPrice) > 0
	}

	if buyOnUserPool {
		return &Route{
			StartPool:    userPool,
			StartVariant: userVariant,
			StartDEX:     userDEX,
			EndPool:      altPool,
			EndVariant:   otherVariant,
			EndDEX:       altDEX,
		}, nil
	}
	return &Route{
		StartPool:    altPool,
		StartVariant: otherVariant,
		StartDEX:     altDEX,
		EndPool:      userPool,
		EndVariant:   userVariant,
		EndDEX:       userDEX,
	}, nil
}

// PriceOf is the production PriceReader: dispatches to PriceV2/PriceV3 based
// on variant, reading whatever raw state each needs from the chain adapter.
func PriceOf(finder *chain.PoolFinder) PriceReader {
	return func(ctx context.Context, pool common.Address, variant domain.PoolVariant, blockNum *big.Int) (*big.Int, error) {
		return priceOfPool(ctx, finder, pool, variant, blockNum)
	}
}
