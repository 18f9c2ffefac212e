// Package params derives UserTradeParams from a landed transaction's swap
// log: which pool it hit, which variant, which token it sent/received, and
// the pool's post-trade price.
package params

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pulkyeet/hindsight-go/internal/ammmath"
	"github.com/pulkyeet/hindsight-go/internal/chain"
	"github.com/pulkyeet/hindsight-go/internal/domain"
	"github.com/pulkyeet/hindsight-go/internal/simerrors"
)

// PoolTokenLookup resolves a pool's token0/token1 ordering; satisfied by
// *chain.PoolFinder in production and a stub in tests.
type PoolTokenLookup interface {
	GetPairTokens(ctx context.Context, pool common.Address, blockNum *big.Int) (chain.PoolTokens, error)
}

// Derive scans the receipt's logs in order for a swap log matching one of
// the tracked topics, classifies its pool variant, decodes the amounts at
// the byte offsets fixed by each variant's Swap event layout, and reports
// the resulting UserTradeParams. When hint carries logs, only receipt logs
// whose address and first topic match a hint log are considered; an empty
// hint leaves every receipt log a candidate. Only the first decodable swap
// is reported; later swaps in the same transaction are not. It returns nil
// (no error) when no candidate log is a recognizable swap — not every
// landed transaction is a swap.
func Derive(ctx context.Context, lookup PoolTokenLookup, hint domain.EventHistory, receipt *types.Receipt, blockNum *big.Int, weth common.Address) (*domain.UserTradeParams, error) {
	for _, log := range receipt.Logs {
		variant, ok := classify(log.Topics)
		if !ok {
			continue
		}
		if len(hint.Logs) > 0 {
			hinted := false
			for _, h := range hint.Logs {
				if h.Address == log.Address && len(h.Topics) > 0 && h.Topics[0] == log.Topics[0] {
					hinted = true
					break
				}
			}
			if !hinted {
				continue
			}
		}

		tokens, err := lookup.GetPairTokens(ctx, log.Address, blockNum)
		if err != nil {
			return nil, err
		}

		var trade *domain.UserTradeParams
		switch variant {
		case domain.V3:
			trade, err = decodeV3(log, tokens, weth)
		case domain.V2:
			trade, err = decodeV2(log, receipt, tokens, weth)
		}
		if err != nil {
			return nil, err
		}
		if trade == nil {
			continue
		}

		trade.Tokens = resolveTokenPair(trade, weth)
		return trade, nil
	}
	return nil, nil
}

func classify(topics []common.Hash) (domain.PoolVariant, bool) {
	if len(topics) == 0 {
		return 0, false
	}
	switch topics[0] {
	case chain.TopicV3Swap:
		return domain.V3, true
	case chain.TopicV2Swap:
		return domain.V2, true
	default:
		return 0, false
	}
}

// decodeV3 decodes a V3 Swap event: amount0, amount1, sqrtPriceX96, liquidity
// each occupy one 32-byte word, in that order. amount0/amount1 are signed;
// a negative amount means that token flowed out of the pool, so the "sent"
// side of the trade is whichever amount is positive. Negative amounts clamp
// to zero once the sign has been used to pick a direction, since only the
// positive (sent) side is needed downstream.
func decodeV3(log *types.Log, tokens chain.PoolTokens, weth common.Address) (*domain.UserTradeParams, error) {
	if len(log.Data) < 128 {
		return nil, &simerrors.DecodeError{Field: "v3 swap data"}
	}

	amount0 := new(big.Int).SetBytes(log.Data[0:32])
	amount0 = asSigned256(amount0)
	amount1 := new(big.Int).SetBytes(log.Data[32:64])
	amount1 = asSigned256(amount1)
	sqrtPriceX96 := new(big.Int).SetBytes(log.Data[64:96])
	liquidity := new(big.Int).SetBytes(log.Data[96:128])

	amount0Sent := clampNonNegative(amount0)
	amount1Sent := clampNonNegative(amount1)

	price, err := ammmath.PriceV3(liquidity, sqrtPriceX96, 18)
	if err != nil {
		return nil, err
	}

	tokenIn, tokenOut := tokens.Token0, tokens.Token1
	if amount0Sent.Sign() == 0 {
		tokenIn, tokenOut = tokens.Token1, tokens.Token0
	}

	return &domain.UserTradeParams{
		PoolVariant:  domain.V3,
		Pool:         log.Address,
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		Amount0Sent:  amount0Sent,
		Amount1Sent:  amount1Sent,
		Token0IsWETH: tokens.Token0 == weth,
		Price:        price,
	}, nil
}

// decodeV2 decodes a V2 Swap event: amount0In, amount1In, amount0Out,
// amount1Out each one 32-byte word. The new price comes from the paired Sync
// event's updated reserves, located by scanning the same receipt's logs for
// the pool's address.
func decodeV2(log *types.Log, receipt *types.Receipt, tokens chain.PoolTokens, weth common.Address) (*domain.UserTradeParams, error) {
	if len(log.Data) < 128 {
		return nil, &simerrors.DecodeError{Field: "v2 swap data"}
	}

	amount0Out := new(big.Int).SetBytes(log.Data[64:96])
	amount1Out := new(big.Int).SetBytes(log.Data[96:128])

	var amount0Sent, amount1Sent *big.Int
	var tokenIn, tokenOut common.Address
	if amount0Out.Sign() > 0 {
		// token1 went in, token0 came out
		amount1Sent = new(big.Int).SetBytes(log.Data[32:64])
		amount0Sent = big.NewInt(0)
		tokenIn, tokenOut = tokens.Token1, tokens.Token0
	} else {
		amount0Sent = new(big.Int).SetBytes(log.Data[0:32])
		amount1Sent = big.NewInt(0)
		tokenIn, tokenOut = tokens.Token0, tokens.Token1
	}

	reserve0, reserve1, ok := findSyncReserves(receipt, log.Address)
	if !ok {
		return nil, &simerrors.DecodeError{Field: "v2 sync log"}
	}
	price, err := ammmath.PriceV2(reserve0, reserve1, 18)
	if err != nil {
		return nil, err
	}

	return &domain.UserTradeParams{
		PoolVariant:  domain.V2,
		Pool:         log.Address,
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		Amount0Sent:  amount0Sent,
		Amount1Sent:  amount1Sent,
		Token0IsWETH: tokens.Token0 == weth,
		Price:        price,
	}, nil
}

func findSyncReserves(receipt *types.Receipt, pool common.Address) (reserve0, reserve1 *big.Int, ok bool) {
	for _, log := range receipt.Logs {
		if log.Address != pool || len(log.Topics) == 0 || log.Topics[0] != chain.TopicV2Sync {
			continue
		}
		if len(log.Data) < 64 {
			continue
		}
		return new(big.Int).SetBytes(log.Data[0:32]), new(big.Int).SetBytes(log.Data[32:64]), true
	}
	return nil, nil, false
}

// resolveTokenPair derives the WETH/Token pair from whichever side of the
// trade isn't WETH. Token0IsWETH is set by decodeV2/decodeV3 from the
// pool's actual token0 — it is not recomputed here, since "one side of the
// swap is WETH" is true for every WETH pool and says nothing about
// token0/token1 ordering.
func resolveTokenPair(trade *domain.UserTradeParams, weth common.Address) domain.TokenPair {
	if trade.TokenIn == weth {
		return domain.TokenPair{WETH: weth, Token: trade.TokenOut}
	}
	return domain.TokenPair{WETH: weth, Token: trade.TokenIn}
}

// asSigned256 reinterprets a 256-bit two's-complement value read as unsigned.
func asSigned256(v *big.Int) *big.Int {
	signBit := new(big.Int).Lsh(big.NewInt(1), 255)
	if v.Cmp(signBit) < 0 {
		return v
	}
	modulus := new(big.Int).Lsh(big.NewInt(1), 256)
	return new(big.Int).Sub(v, modulus)
}

func clampNonNegative(v *big.Int) *big.Int {
	if v.Sign() < 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
