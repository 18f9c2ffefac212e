package main

import (
	"context"
	"flag"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/hindsight-go/internal/arbroute"
	"github.com/pulkyeet/hindsight-go/internal/backrun"
	"github.com/pulkyeet/hindsight-go/internal/chain"
	"github.com/pulkyeet/hindsight-go/internal/config"
	"github.com/pulkyeet/hindsight-go/internal/domain"
	"github.com/pulkyeet/hindsight-go/internal/optimizer"
	"github.com/pulkyeet/hindsight-go/internal/params"
	"github.com/pulkyeet/hindsight-go/internal/resultstore"
	"github.com/pulkyeet/hindsight-go/internal/sandbox"
	"github.com/pulkyeet/hindsight-go/internal/statecache"
)

// startingBalance matches internal/batch's seed: enough WETH that no
// realistic buy leg exhausts the braindance controller.
var startingBalance = new(big.Int).Mul(big.NewInt(1000), big.NewInt(1_000000000000000000))

// cannedTxHash is a known Uniswap swap transaction used as the default
// single-transaction smoke test when --tx isn't given.
var cannedTxHash = common.HexToHash("0x3d9b82d14aef87a7f0bde37eb7b2f2f2e5b2b2d77f6c0f1b3f5b4e09c6a3f6c1")

func main() {
	var (
		batchSize = flag.Uint("batch-size", 1, "unused for a single canned transaction; kept for CLI parity with scan")
		saveToDB  = flag.Bool("save-to-db", false, "persist the result to the results database")
		txFlag    = flag.String("tx", "", "transaction hash to backrun (defaults to a canned swap)")
	)
	flag.Parse()
	_ = *batchSize

	txHash := cannedTxHash
	if *txFlag != "" {
		txHash = common.HexToHash(*txFlag)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	client, err := chain.NewClient(cfg.RPCURL)
	if err != nil {
		log.Fatalf("connect to RPC: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := runSingleBackrun(ctx, client, cfg, txHash)
	if err != nil {
		log.Fatalf("simulate backrun: %v", err)
	}

	log.Printf("amountIn=%s balanceEnd=%s profit=%s",
		result.Backrun.AmountIn, result.Backrun.BalanceEnd, result.Backrun.Profit)

	if *saveToDB {
		store, err := resultstore.Open(cfg.ResultsDBPath)
		if err != nil {
			log.Fatalf("open results db: %v", err)
		}
		defer store.Close()
		if err := store.Save(txHash, result.blockNumber, result.SimArbResult); err != nil {
			log.Fatalf("save result: %v", err)
		}
		log.Printf("saved result for tx %s", txHash)
	}
}

// namedResult pairs a SimArbResult with the block it was simulated against,
// since resultstore.Save needs the block number and domain.SimArbResult
// doesn't carry one (a result is scoped to a transaction, not a block).
type namedResult struct {
	domain.SimArbResult
	blockNumber uint64
}

func runSingleBackrun(ctx context.Context, client *chain.Client, cfg *config.Config, txHash common.Hash) (namedResult, error) {
	receipt, err := client.TransactionReceipt(ctx, txHash)
	if err != nil {
		return namedResult{}, err
	}
	blockNum := receipt.BlockNumber
	preBlock := new(big.Int).Sub(blockNum, big.NewInt(1))

	finder := chain.NewPoolFinder(client)
	trade, err := params.Derive(ctx, finder, domain.EventHistory{}, receipt, preBlock, chain.WETHAddress)
	if err != nil {
		return namedResult{}, err
	}
	if trade == nil {
		return namedResult{}, errNoSwap(txHash)
	}

	route, err := arbroute.Enumerate(ctx, finder, arbroute.PriceOf(finder), *trade, preBlock)
	if err != nil {
		return namedResult{}, err
	}

	disk, err := statecache.Open(cfg.CacheDBPath)
	if err != nil {
		return namedResult{}, err
	}
	defer disk.Close()

	fork, err := sandbox.NewFork(client, preBlock, disk)
	if err != nil {
		return namedResult{}, err
	}

	userTx, _, err := client.TransactionByHash(ctx, txHash)
	if err != nil {
		return namedResult{}, err
	}

	blockInfo := domain.BlockInfo{
		Number:    blockNum,
		Timestamp: uint64(time.Now().Unix()),
	}
	if block, err := client.BlockByNumber(ctx, blockNum); err == nil {
		blockInfo.Timestamp = block.Time()
		blockInfo.BaseFee = block.BaseFee()
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
		return namedResult{}, err
	}

	backrunResult, err := optimizer.Search(ctx, run)
	if err != nil {
		return namedResult{}, err
	}

	return namedResult{
		SimArbResult: domain.SimArbResult{UserTrade: *trade, Backrun: backrunResult},
		blockNumber:  blockNum.Uint64(),
	}, nil
}

type swaplessTxError struct {
	hash common.Hash
}

func (e swaplessTxError) Error() string {
	return "transaction " + e.hash.Hex() + " contains no recognizable swap"
}

func errNoSwap(hash common.Hash) error {
	return swaplessTxError{hash: hash}
}
