// Package ammmath computes AMM pool prices from raw on-chain state using
// full-precision fixed-point integer arithmetic. No third-party big-number
// library in the retrieval pack exposes a 512-bit mulDiv primitive, so this
// is implemented directly on math/big, which already carries arbitrary
// precision and needs no intermediate-width workaround.
package ammmath

import (
	"errors"
	"math/big"
)

var errDivByZero = errors.New("ammmath: division by zero")

var ten = big.NewInt(10)

// MulDiv computes floor(a*b/c) with full intermediate precision. It fails on
// division by zero. math/big already carries unbounded precision, so no
// 512-bit overflow trick is needed — the "full precision" requirement is
// satisfied for free.
func MulDiv(a, b, c *big.Int) (*big.Int, error) {
	if c.Sign() == 0 {
		return nil, errDivByZero
	}
	product := new(big.Int).Mul(a, b)
	return product.Div(product, c), nil
}

// PriceV2 returns the price of token1 per token0, scaled by 10^token0Decimals:
// reserve1 * 10^token0Decimals / reserve0.
func PriceV2(reserve0, reserve1 *big.Int, token0Decimals int) (*big.Int, error) {
	if reserve0.Sign() == 0 {
		return nil, errDivByZero
	}
	scale := new(big.Int).Exp(ten, big.NewInt(int64(token0Decimals)), nil)
	numerator := new(big.Int).Mul(reserve1, scale)
	return numerator.Div(numerator, reserve0), nil
}

// PriceV3 derives V2-equivalent reserves from V3's liquidity/sqrtPriceX96
// encoding, then applies PriceV2:
//
//	reserve0 = mulDiv(liquidity, 2^96, sqrtPriceX96)
//	reserve1 = mulDiv(liquidity, sqrtPriceX96, 2^96)
func PriceV3(liquidity, sqrtPriceX96 *big.Int, token0Decimals int) (*big.Int, error) {
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)

	reserve0, err := MulDiv(liquidity, q96, sqrtPriceX96)
	if err != nil {
		return nil, err
	}
	reserve1, err := MulDiv(liquidity, sqrtPriceX96, q96)
	if err != nil {
		return nil, err
	}
	return PriceV2(reserve0, reserve1, token0Decimals)
}
