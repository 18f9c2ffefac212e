// Package batch drives the simulator over a window of historical blocks:
// per block, fan out over every landed transaction, derive its trade
// parameters, search for the best backrun, and persist whatever clears the
// profitability floor.
package batch

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/pulkyeet/hindsight-go/internal/arbroute"
	"github.com/pulkyeet/hindsight-go/internal/backrun"
	"github.com/pulkyeet/hindsight-go/internal/chain"
	"github.com/pulkyeet/hindsight-go/internal/domain"
	"github.com/pulkyeet/hindsight-go/internal/optimizer"
	"github.com/pulkyeet/hindsight-go/internal/params"
	"github.com/pulkyeet/hindsight-go/internal/resultstore"
	"github.com/pulkyeet/hindsight-go/internal/sandbox"
	"github.com/pulkyeet/hindsight-go/internal/statecache"
)

// startingBalance seeds the braindance controller's WETH for every
// candidate backrun: large enough that no realistic trade's buy leg runs it
// dry, small enough that its delta is a meaningful profit signal.
var startingBalance = new(big.Int).Mul(big.NewInt(1000), big.NewInt(1_000000000000000000))

// maxConcurrentTx bounds how many transactions within one block are
// simulated at once; each carries its own forked EVM, so this is the fork
// memory throttle spec.md's concurrency model calls for.
const maxConcurrentTx = 8

// Driver owns the chain/pool/disk-cache/result-sink handles a full batch run
// shares across every block and transaction it processes.
type Driver struct {
	client *chain.Client
	finder *chain.PoolFinder
	disk   *statecache.DB
	store  *resultstore.DB
	weth   common.Address
}

// NewDriver wires a batch driver from its collaborators. disk may be nil to
// disable the on-disk state cache.
func NewDriver(client *chain.Client, finder *chain.PoolFinder, disk *statecache.DB, store *resultstore.DB, weth common.Address) *Driver {
	return &Driver{client: client, finder: finder, disk: disk, store: store, weth: weth}
}

// WindowResult summarizes what one block's worth of transactions produced.
type WindowResult struct {
	BlockNumber uint64
	Considered  int
	Profitable  int
}

// ProcessWindow runs every block in [startBlock, endBlock] (inclusive)
// through RunBlock and persists profitable results as it goes, printing a
// progress banner every 10 blocks in the same style the original block-range
// backtest runner used.
func (d *Driver) ProcessWindow(ctx context.Context, startBlock, endBlock uint64, histories map[common.Hash]domain.EventHistory) error {
	fmt.Printf("\nstarting batch run: blocks %d-%d\n", startBlock, endBlock)
	start := time.Now()

	total := endBlock - startBlock + 1
	for blockNum := startBlock; blockNum <= endBlock; blockNum++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := d.RunBlock(ctx, blockNum, histories)
		if err != nil {
			fmt.Printf("\nblock %d error: %v\n", blockNum, err)
			continue
		}

		if (blockNum-startBlock+1)%10 == 0 {
			elapsed := time.Since(start)
			done := blockNum - startBlock + 1
			fmt.Printf("processed %d/%d blocks (%.1f%%) - %d considered, %d profitable - elapsed %s\n",
				done, total, float64(done)/float64(total)*100,
				result.Considered, result.Profitable, elapsed.Round(time.Second))
		}
	}

	return nil
}

// RunBlock forks state at blockNum-1, fans out over every transaction in
// blockNum, and saves every backrun whose profit clears zero.
func (d *Driver) RunBlock(ctx context.Context, blockNum uint64, histories map[common.Hash]domain.EventHistory) (WindowResult, error) {
	preBlock := new(big.Int).SetUint64(blockNum - 1)
	block, err := d.client.BlockByNumber(ctx, new(big.Int).SetUint64(blockNum))
	if err != nil {
		return WindowResult{}, fmt.Errorf("batch: fetch block %d: %w", blockNum, err)
	}

	blockInfo := domain.BlockInfo{
		Number:    new(big.Int).SetUint64(blockNum),
		Timestamp: block.Time(),
		BaseFee:   block.BaseFee(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentTx)

	var mu sync.Mutex
	var considered, profitable int
	results := make(map[common.Hash]domain.SimArbResult)

	for _, tx := range block.Transactions() {
		tx := tx
		g.Go(func() error {
			result, ok, err := d.simulateTx(gctx, tx.Hash(), preBlock, blockInfo, histories[tx.Hash()])
			if err != nil {
				// A single transaction's failure (revert, no pool found, no
				// swap log) doesn't abort the block.
				return nil
			}
			if !ok {
				return nil
			}
			mu.Lock()
			considered++
			if result.Backrun.Profit.Sign() > 0 {
				profitable++
				results[tx.Hash()] = result
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return WindowResult{}, err
	}

	if d.store != nil && len(results) > 0 {
		if err := d.store.SaveBatch(blockNum, results); err != nil {
			return WindowResult{}, fmt.Errorf("batch: save block %d results: %w", blockNum, err)
		}
	}

	return WindowResult{BlockNumber: blockNum, Considered: considered, Profitable: profitable}, nil
}

// simulateTx runs the full pipeline for one transaction: fetch its receipt,
// derive its trade, enumerate the backrun route, and search for the
// optimal amount. ok is false when the transaction carried no recognizable
// swap, which is the common case and not an error.
func (d *Driver) simulateTx(ctx context.Context, txHash common.Hash, preBlock *big.Int, blockInfo domain.BlockInfo, hint domain.EventHistory) (domain.SimArbResult, bool, error) {
	receipt, err := d.client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return domain.SimArbResult{}, false, err
	}

	trade, err := params.Derive(ctx, d.finder, hint, receipt, preBlock, d.weth)
	if err != nil {
		return domain.SimArbResult{}, false, err
	}
	if trade == nil {
		return domain.SimArbResult{}, false, nil
	}

	route, err := arbroute.Enumerate(ctx, d.finder, arbroute.PriceOf(d.finder), *trade, preBlock)
	if err != nil {
		return domain.SimArbResult{}, false, err
	}

	fork, err := sandbox.NewFork(d.client, preBlock, d.disk)
	if err != nil {
		return domain.SimArbResult{}, false, err
	}

	userTx, _, err := d.client.TransactionByHash(ctx, txHash)
	if err != nil {
		return domain.SimArbResult{}, false, err
	}

	run, err := optimizer.Prepare(fork, userTx, backrun.Route{
		StartPool:    route.StartPool,
		StartVariant: route.StartVariant,
		StartDEX:     route.StartDEX,
		EndPool:      route.EndPool,
		EndVariant:   route.EndVariant,
		EndDEX:       route.EndDEX,
	}, *trade, blockInfo, startingBalance)
	if err != nil {
		return domain.SimArbResult{}, false, err
	}

	backrunResult, err := optimizer.Search(ctx, run)
	if err != nil {
		return domain.SimArbResult{}, false, err
	}

	return domain.SimArbResult{UserTrade: *trade, Backrun: backrunResult}, true, nil
}
