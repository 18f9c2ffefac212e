// Package optimizer searches for the WETH input amount that maximizes a
// backrun's profit, using a bracketed parallel sweep: each recursion level
// samples StepIntervals evenly spaced candidates across the current range,
// keeps the best, then narrows the range to a single step-width band around
// it for the next level.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"github.com/pulkyeet/hindsight-go/internal/backrun"
	"github.com/pulkyeet/hindsight-go/internal/domain"
	"github.com/pulkyeet/hindsight-go/internal/sandbox"
	"github.com/pulkyeet/hindsight-go/internal/simerrors"
)

// MaxDepth bounds recursion: this repo adopts the richer MAX_DEPTH=4 variant
// with the explicit (0, startingBalance) sentinel rather than the plainer
// MAX_DEPTH=5 version found elsewhere in the reference sources.
const MaxDepth = 4

// StepIntervals is the number of evenly spaced samples taken per level.
const StepIntervals = 15

// minRange is 500,000 gwei; once a level's range narrows below this, the
// search treats it as fully resolved and stops refining.
var minRange = new(big.Int).Mul(big.NewInt(500_000), big.NewInt(1_000_000_000))

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// gasFloor estimates a backrun's gas cost in wei; candidates whose amountIn
// falls below it are unprofitable by construction regardless of measured
// balance, so the search stops refining once its best candidate lands there.
func gasFloor(baseFee *big.Int) *big.Int {
	return new(big.Int).Mul(big.NewInt(180_000), baseFee)
}

// candidate is one (amountIn, endingBalance) pair considered during the
// sweep; balance never regresses across levels by construction.
type candidate struct {
	amountIn *big.Int
	balance  *big.Int
}

// sampler runs one candidate amountIn against an isolated view of chain
// state and reports the controller's resulting WETH balance. A reverted leg
// is reported as simerrors.ErrSwapReverted, not treated as a fatal error —
// the caller discards that sample and keeps sweeping.
type sampler func(ctx context.Context, amountIn *big.Int) (*big.Int, error)

// PreparedRun bundles the already-landed base fork and route context that
// every sample in a sweep clones from, so the user's transaction and the
// braindance controller's storage are only set up once per optimization.
type PreparedRun struct {
	fork            *sandbox.Fork
	route           backrun.Route
	trade           domain.UserTradeParams
	blockInfo       domain.BlockInfo
	startingBalance *big.Int
}

// Prepare attaches the braindance controller to fork and lands userTx (if
// any), returning a PreparedRun that Search can sweep over.
func Prepare(fork *sandbox.Fork, userTx *types.Transaction, route backrun.Route, trade domain.UserTradeParams, blockInfo domain.BlockInfo, startingBalance *big.Int) (*PreparedRun, error) {
	if err := backrun.PrepareFork(fork, userTx, trade, startingBalance); err != nil {
		return nil, err
	}
	return &PreparedRun{
		fork:            fork,
		route:           route,
		trade:           trade,
		blockInfo:       blockInfo,
		startingBalance: startingBalance,
	}, nil
}

func (p *PreparedRun) sample(ctx context.Context, amountIn *big.Int) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sampleFork := p.fork.Clone()
	return backrun.RunTwoLegs(sampleFork, p.route, p.trade, p.blockInfo, amountIn)
}

// amountInStart converts the user's trade into its WETH-equivalent input
// amount: the raw amount if the user sent WETH, otherwise the non-WETH
// amount converted through the pool's post-trade price.
func amountInStart(trade domain.UserTradeParams) *big.Int {
	if trade.TokenIn == trade.Tokens.WETH {
		if trade.Token0IsWETH {
			return new(big.Int).Set(trade.Amount0Sent)
		}
		return new(big.Int).Set(trade.Amount1Sent)
	}

	var sent *big.Int
	if trade.Token0IsWETH {
		sent = trade.Amount1Sent
	} else {
		sent = trade.Amount0Sent
	}
	converted := new(big.Int).Mul(sent, trade.Price)
	return converted.Div(converted, weiPerEther)
}

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Search runs the bracketed sweep and returns the best backrun found. An
// amountIn of zero in the result means no profitable amount was found —
// callers should treat BackrunResult.Profit.Sign() <= 0 as "no opportunity"
// rather than an error.
func Search(ctx context.Context, run *PreparedRun) (domain.BackrunResult, error) {
	best := candidate{amountIn: big.NewInt(0), balance: new(big.Int).Set(run.startingBalance)}
	lo := big.NewInt(0)
	hi := amountInStart(run.trade)
	floor := gasFloor(run.blockInfo.BaseFee)

	sampledAny := false

	for depth := 0; ; depth++ {
		rangeWidth := new(big.Int).Sub(hi, lo)
		if rangeWidth.Cmp(minRange) < 0 {
			break
		}
		if depth >= 1 && lo.Sign() == 0 && best.balance.Cmp(run.startingBalance) < 0 {
			best = candidate{amountIn: big.NewInt(0), balance: new(big.Int).Set(run.startingBalance)}
			break
		}
		if depth > MaxDepth || (best.amountIn.Sign() > 0 && best.amountIn.Cmp(floor) < 0) {
			break
		}

		samples, step := sweepPoints(lo, hi)
		results, err := fanOut(ctx, run.sample, samples)
		if err != nil {
			return domain.BackrunResult{}, err
		}

		levelHadSample := false
		for i, balance := range results {
			if balance == nil {
				continue
			}
			levelHadSample = true
			sampledAny = true
			if balance.Cmp(best.balance) > 0 {
				best = candidate{amountIn: new(big.Int).Set(samples[i]), balance: balance}
			}
		}
		if !levelHadSample {
			return domain.BackrunResult{}, simerrors.ErrAllReverted
		}

		band := step
		if band.Sign() == 0 {
			band = new(big.Int).Set(minRange)
		}
		newLo := new(big.Int).Sub(best.amountIn, band)
		if newLo.Sign() < 0 {
			newLo = big.NewInt(0)
		}
		newHi := new(big.Int).Add(best.amountIn, band)
		if newHi.Cmp(maxUint256) > 0 {
			newHi = new(big.Int).Set(maxUint256)
		}
		lo, hi = newLo, newHi
	}

	if !sampledAny && best.amountIn.Sign() == 0 {
		return domain.BackrunResult{}, errors.New("optimizer: no opportunity found")
	}

	profit := new(big.Int).Sub(best.balance, run.startingBalance)
	return domain.BackrunResult{
		AmountIn:     best.amountIn,
		BalanceEnd:   best.balance,
		Profit:       profit,
		StartPool:    run.route.StartPool,
		EndPool:      run.route.EndPool,
		StartVariant: run.route.StartVariant,
		EndVariant:   run.route.EndVariant,
	}, nil
}

// sweepPoints returns StepIntervals evenly spaced points across [lo, hi]
// inclusive, plus the spacing between adjacent points (used afterward as the
// refinement band width).
func sweepPoints(lo, hi *big.Int) ([]*big.Int, *big.Int) {
	width := new(big.Int).Sub(hi, lo)
	step := new(big.Int).Div(width, big.NewInt(StepIntervals-1))

	points := make([]*big.Int, StepIntervals)
	for i := 0; i < StepIntervals; i++ {
		offset := new(big.Int).Mul(step, big.NewInt(int64(i)))
		points[i] = new(big.Int).Add(lo, offset)
	}
	return points, step
}

// fanOut runs sample concurrently over every point via errgroup, tolerating
// individual reverts: a reverted sample resolves to a nil balance in its
// slot rather than failing the whole sweep. Non-revert errors (transport
// failures, context cancellation) abort the sweep.
func fanOut(ctx context.Context, sample sampler, points []*big.Int) ([]*big.Int, error) {
	results := make([]*big.Int, len(points))

	g, gctx := errgroup.WithContext(ctx)
	for i, amountIn := range points {
		i, amountIn := i, amountIn
		g.Go(func() error {
			balance, err := sample(gctx, amountIn)
			if err != nil {
				if errors.Is(err, simerrors.ErrSwapReverted) {
					return nil
				}
				return fmt.Errorf("optimizer: sample amountIn=%s: %w", amountIn, err)
			}
			results[i] = balance
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
