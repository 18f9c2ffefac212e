// Package backrun runs a single candidate backrun to completion on a fresh
// fork: land the user's transaction, then execute the two arb legs from the
// braindance controller and report the controller's ending WETH balance.
package backrun

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pulkyeet/hindsight-go/internal/chain"
	"github.com/pulkyeet/hindsight-go/internal/domain"
	"github.com/pulkyeet/hindsight-go/internal/sandbox"
	"github.com/pulkyeet/hindsight-go/internal/simerrors"
)

// legGasLimit is generous headroom for a single router hop; real gas use is
// far lower but the fork's EVM never runs out of block gas under it.
const legGasLimit = 700_000

// sellPremiumBps matches the Rust reference's sell-leg gas price bump
// (base_fee * 1.25) so the sell leg lands after the buy leg within the same
// simulated block.
const sellPremiumBps = 2500

// Route is one candidate two-leg path: buy on StartPool, sell on EndPool.
type Route struct {
	StartPool    common.Address
	StartVariant domain.PoolVariant
	StartDEX     string
	EndPool      common.Address
	EndVariant   domain.PoolVariant
	EndDEX       string
}

// CommitSwap executes one leg from the braindance controller: build calldata
// for the given variant, run it through the sandbox executor, and decode the
// resulting output amount. A revert is reported as simerrors.ErrSwapReverted
// so the optimizer can discount the sample without treating it as a system
// failure.
func CommitSwap(exec *sandbox.Executor, variant domain.PoolVariant, dexName string, tokenIn, tokenOut common.Address, amountIn *big.Int, baseFee *big.Int, gasPriceBps int, deadline *big.Int) (*big.Int, error) {
	router := routerFor(variant, dexName)

	data, err := buildSwapCalldata(variant, tokenIn, tokenOut, amountIn, big.NewInt(0), deadline)
	if err != nil {
		return nil, fmt.Errorf("backrun: build calldata: %w", err)
	}

	gasPrice := new(big.Int).Mul(baseFee, big.NewInt(int64(10_000+gasPriceBps)))
	gasPrice.Div(gasPrice, big.NewInt(10_000))

	result, err := exec.ExecuteCall(sandbox.ControllerAddress, router, data, legGasLimit, gasPrice)
	if err != nil {
		return nil, &simerrors.TransportError{Op: "ExecuteCall", Err: err}
	}
	if !result.Success {
		return nil, fmt.Errorf("%w: %s", simerrors.ErrSwapReverted, result.RevertReason)
	}

	return decodeSwapOutput(variant, result.ReturnData)
}

// backrunRouters are every router a two-leg backrun might route through,
// across both V2 DEXes it knows how to identify and the single tracked V3
// router.
var backrunRouters = []common.Address{chain.UniswapV2Router, chain.SushiswapV2Router, chain.UniswapV3Router}

// PrepareFork attaches the braindance controller to fork, pre-approves every
// backrun router for both legs' tokens, and, if userTx is non-nil, lands it
// before any arb leg runs. This is the setup a single-shot simulation and
// every sample the optimizer's sweep takes share before branching on
// amountIn — call it once per fork, then run as many RunTwoLegs candidates
// against clones of that fork as needed.
//
// The buy leg spends WETH, whose allowance layout AttachBraindanceController
// already hardcodes. The sell leg spends trade.Tokens.Token, an arbitrary
// ERC-20 whose layout isn't known ahead of time, so it goes through
// sandbox.ApproveTokenAuto instead.
func PrepareFork(fork *sandbox.Fork, userTx *types.Transaction, trade domain.UserTradeParams, startingBalance *big.Int) error {
	sandbox.AttachBraindanceController(fork, trade.Tokens.WETH, startingBalance, backrunRouters)

	exec := sandbox.NewExecutor(fork)
	for _, router := range backrunRouters {
		sandbox.ApproveTokenAuto(fork, exec, trade.Tokens.Token, router)
	}

	if userTx == nil {
		return nil
	}

	userResult, err := exec.ExecuteTransaction(userTx)
	if err != nil {
		return &simerrors.TransportError{Op: "ExecuteTransaction", Err: err}
	}
	if !userResult.Success {
		return fmt.Errorf("%w: %s", simerrors.ErrSwapReverted, userResult.RevertReason)
	}
	return nil
}

// RunTwoLegs executes route's buy leg with amountIn of WETH, then the sell
// leg with whatever the buy leg returned, both from the braindance
// controller PrepareFork already seeded on fork, and reports the
// controller's ending WETH balance. A reverted buy leg is not propagated as
// an error: it yields amountReceived = 0, the sell leg is skipped, and the
// controller's balance is read back unchanged, a valid (amountIn,
// startingBalance) sample rather than a failed one. Only a reverted sell
// leg surfaces as simerrors.ErrSwapReverted.
func RunTwoLegs(fork *sandbox.Fork, route Route, trade domain.UserTradeParams, blockInfo domain.BlockInfo, amountIn *big.Int) (*big.Int, error) {
	exec := sandbox.NewExecutor(fork)
	deadline := new(big.Int).Add(new(big.Int).SetUint64(blockInfo.Timestamp), big.NewInt(120))

	buyOut, err := CommitSwap(exec, route.StartVariant, route.StartDEX, trade.Tokens.WETH, trade.Tokens.Token, amountIn, blockInfo.BaseFee, 0, deadline)
	if err != nil {
		if errors.Is(err, simerrors.ErrSwapReverted) {
			return readWETHBalance(fork, trade.Tokens.WETH)
		}
		return nil, err
	}

	_, err = CommitSwap(exec, route.EndVariant, route.EndDEX, trade.Tokens.Token, trade.Tokens.WETH, buyOut, blockInfo.BaseFee, sellPremiumBps, deadline)
	if err != nil {
		return nil, err
	}

	return readWETHBalance(fork, trade.Tokens.WETH)
}

// SimArb prepares fork with PrepareFork (controller attached, user's
// transaction landed), runs a buy
// leg on route.StartPool followed by a sell leg on route.EndPool with
// amountIn of WETH, and returns (amountIn, controller's ending WETH balance).
// Both legs execute from the same braindance controller seeded with
// startingBalance WETH, so the returned balance already nets out the amount
// spent on the buy leg.
func SimArb(fork *sandbox.Fork, userTx *types.Transaction, route Route, trade domain.UserTradeParams, blockInfo domain.BlockInfo, amountIn, startingBalance *big.Int) (*big.Int, *big.Int, error) {
	if err := PrepareFork(fork, userTx, trade, startingBalance); err != nil {
		return nil, nil, err
	}

	wethBalance, err := RunTwoLegs(fork, route, trade, blockInfo, amountIn)
	if err != nil {
		return nil, nil, err
	}

	return amountIn, wethBalance, nil
}

func readWETHBalance(fork *sandbox.Fork, weth common.Address) (*big.Int, error) {
	slot := sandbox.WETHBalanceSlot(sandbox.ControllerAddress)
	val, err := fork.GetStorageAt(weth, slot)
	if err != nil {
		return nil, &simerrors.TransportError{Op: "GetStorageAt", Err: err}
	}
	return new(big.Int).SetBytes(val.Bytes()), nil
}
