package arbroute

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/hindsight-go/internal/ammmath"
	"github.com/pulkyeet/hindsight-go/internal/chain"
	"github.com/pulkyeet/hindsight-go/internal/domain"
)

// token0Decimals is fixed at 18 rather than looked up per-token: every pool
// this simulator routes through has WETH on one side, and pricing is always
// expressed per the pool's own token0, which for the pairs in scope carries
// 18 decimals (WETH itself, or another 18-decimal token).
const token0Decimals = 18

func priceOfPool(ctx context.Context, finder *chain.PoolFinder, pool common.Address, variant domain.PoolVariant, blockNum *big.Int) (*big.Int, error) {
	if variant == domain.V3 {
		liquidity, sqrtPriceX96, err := finder.GetStateV3(ctx, pool, blockNum)
		if err != nil {
			return nil, fmt.Errorf("arbroute: read V3 state: %w", err)
		}
		return ammmath.PriceV3(liquidity, sqrtPriceX96, token0Decimals)
	}

	reserve0, reserve1, err := finder.GetReservesV2(ctx, pool, blockNum)
	if err != nil {
		return nil, fmt.Errorf("arbroute: read V2 reserves: %w", err)
	}
	return ammmath.PriceV2(reserve0, reserve1, token0Decimals)
}
