package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/hindsight-go/internal/batch"
	"github.com/pulkyeet/hindsight-go/internal/chain"
	"github.com/pulkyeet/hindsight-go/internal/config"
	"github.com/pulkyeet/hindsight-go/internal/domain"
	"github.com/pulkyeet/hindsight-go/internal/eventsource"
	"github.com/pulkyeet/hindsight-go/internal/resultstore"
	"github.com/pulkyeet/hindsight-go/internal/statecache"
	"github.com/pulkyeet/hindsight-go/internal/validate"
)

func main() {
	var (
		blockStart     = flag.Uint64("block-start", 0, "first block to scan (inclusive)")
		blockEnd       = flag.Uint64("block-end", 0, "last block to scan (inclusive)")
		timestampStart = flag.Uint64("timestamp-start", 0, "first block timestamp to scan (used when --block-start is unset)")
		timestampEnd   = flag.Uint64("timestamp-end", 0, "last block timestamp to scan (used when --block-end is unset)")
		batchSize      = flag.Uint64("batch-size", 50, "blocks per reported progress window")
		eventsPath     = flag.String("events", "", "path to a Parquet event-hint archive (optional)")
		validateTruth  = flag.Bool("validate", false, "cross-check predicted backruns against ground-truth swap pairs in each block")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	client, err := chain.NewClient(cfg.RPCURL)
	if err != nil {
		log.Fatalf("connect to RPC: %v", err)
	}

	ctx := context.Background()

	start := *blockStart
	if start == 0 && *timestampStart != 0 {
		start, err = chain.FindBlockByTimestamp(ctx, client, *timestampStart)
		if err != nil {
			log.Fatalf("resolve --timestamp-start: %v", err)
		}
	}
	end := *blockEnd
	if end == 0 && *timestampEnd != 0 {
		end, err = chain.FindBlockByTimestamp(ctx, client, *timestampEnd)
		if err != nil {
			log.Fatalf("resolve --timestamp-end: %v", err)
		}
	}
	if start == 0 || end == 0 || start > end {
		log.Fatal("specify a valid --block-start/--block-end or --timestamp-start/--timestamp-end range")
	}

	disk, err := statecache.Open(cfg.CacheDBPath)
	if err != nil {
		log.Fatalf("open state cache: %v", err)
	}
	defer disk.Close()

	store, err := resultstore.Open(cfg.ResultsDBPath)
	if err != nil {
		log.Fatalf("open results db: %v", err)
	}
	defer store.Close()

	var histories map[common.Hash]domain.EventHistory
	if *eventsPath != "" {
		histories, err = eventsource.Load(*eventsPath)
		if err != nil {
			log.Fatalf("load event source: %v", err)
		}
	}

	finder := chain.NewPoolFinder(client)
	driver := batch.NewDriver(client, finder, disk, store, chain.WETHAddress)

	runCtx, cancel := context.WithTimeout(ctx, 6*time.Hour)
	defer cancel()

	for windowStart := start; windowStart <= end; windowStart += *batchSize {
		windowEnd := windowStart + *batchSize - 1
		if windowEnd > end {
			windowEnd = end
		}
		if err := driver.ProcessWindow(runCtx, windowStart, windowEnd, histories); err != nil {
			log.Fatalf("process window %d-%d: %v", windowStart, windowEnd, err)
		}
		if *validateTruth {
			reportGroundTruth(runCtx, client, finder, windowStart, windowEnd)
		}
	}

	log.Printf("scan complete: blocks %d-%d", start, end)
}

// reportGroundTruth logs every actual arbitrage found in each block of the
// window, a cross-check independent of the driver's own predictions.
func reportGroundTruth(ctx context.Context, client *chain.Client, finder *chain.PoolFinder, start, end uint64) {
	for blockNum := start; blockNum <= end; blockNum++ {
		arbs, err := validate.FindActualArbitrages(ctx, client, finder, blockNum)
		if err != nil {
			log.Printf("validate block %d: %v", blockNum, err)
			continue
		}
		for _, arb := range arbs {
			log.Printf("ground truth: block %d tx %s pools=%v gas=%d", blockNum, arb.TxHash, arb.PoolsHit, arb.GasUsed)
		}
	}
}
