// Package domain holds the value types shared across the backrun simulator:
// pool variants, derived trade parameters, and simulation results.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PoolVariant identifies which of the two supported AMM designs a pool uses.
type PoolVariant int

const (
	V2 PoolVariant = iota
	V3
)

func (v PoolVariant) String() string {
	switch v {
	case V2:
		return "V2"
	case V3:
		return "V3"
	default:
		return "unknown"
	}
}

// Other returns the opposite AMM variant.
func (v PoolVariant) Other() PoolVariant {
	if v == V2 {
		return V3
	}
	return V2
}

// TokenPair names the reference asset (WETH) and counter-asset of a trade,
// independent of the pool's internal token0/token1 ordering.
type TokenPair struct {
	WETH  common.Address
	Token common.Address
}

// UserTradeParams is everything derived from a single swap log inside a
// user's transaction.
type UserTradeParams struct {
	PoolVariant  PoolVariant
	Pool         common.Address
	TokenIn      common.Address
	TokenOut     common.Address
	Amount0Sent  *big.Int // non-negative; V3 legs clamp negative amounts to zero
	Amount1Sent  *big.Int
	Token0IsWETH bool
	// Price is the post-trade price of token1 per token0, scaled by 10^18.
	Price    *big.Int
	ArbPools []common.Address
	Tokens   TokenPair
}

// BlockInfo pins a simulation to an immutable point in chain history.
type BlockInfo struct {
	Number    *big.Int
	Timestamp uint64
	BaseFee   *big.Int
}

// EventHintLog is a minimal log record carried by the event-history source:
// enough to locate the matching receipt log, not a full decoded event.
type EventHintLog struct {
	Address common.Address
	Topics  []common.Hash
}

// EventHistory bundles the hint logs the event-history collaborator
// associates with a transaction hash.
type EventHistory struct {
	Hash common.Hash
	Logs []EventHintLog
}

// RouteEdge identifies one leg of a two-leg arbitrage: which pool, on which
// variant.
type RouteEdge struct {
	Pool    common.Address
	Variant PoolVariant
}

// BackrunResult is the outcome of searching one candidate route for a given
// user transaction.
type BackrunResult struct {
	AmountIn     *big.Int
	BalanceEnd   *big.Int
	Profit       *big.Int
	StartPool    common.Address
	EndPool      common.Address
	StartVariant PoolVariant
	EndVariant   PoolVariant
}

// SimArbResult pairs a derived trade with the best backrun found for it.
type SimArbResult struct {
	UserTrade UserTradeParams
	Backrun   BackrunResult
}

// DEXConfig names a pool factory the chain adapter knows how to query.
type DEXConfig struct {
	Name         string
	Factory      common.Address
	InitCodeHash [32]byte
	// FeeTier only applies to V3-style factories (in hundredths of a basis
	// point, e.g. 3000 = 0.3%).
	FeeTier uint32
}
