// Package validate finds actual historical arbitrage in a landed block,
// independent of the simulator's own prediction pipeline, so a batch run's
// output can be checked against ground truth.
package validate

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pulkyeet/hindsight-go/internal/chain"
)

// ActualArbitrage is one transaction whose receipt shows opposite-direction
// swaps on two pools sharing a token, the signature of a real backrun.
type ActualArbitrage struct {
	TxHash      common.Hash
	BlockNumber uint64
	From        common.Address
	PoolsHit    []common.Address
	GasUsed     uint64
}

// swapDirection reports which side of a V2 Swap event's amounts were
// nonzero: +1 for token0 in/token1 out, -1 for the reverse, 0 for anything
// that doesn't look like a clean single-hop swap.
func swapDirection(log *types.Log) int {
	if len(log.Topics) < 1 || log.Topics[0] != chain.TopicV2Swap {
		return 0
	}
	if len(log.Data) < 128 {
		return 0
	}

	amount0In := new(big.Int).SetBytes(log.Data[0:32])
	amount1In := new(big.Int).SetBytes(log.Data[32:64])
	amount0Out := new(big.Int).SetBytes(log.Data[64:96])
	amount1Out := new(big.Int).SetBytes(log.Data[96:128])

	if amount0In.Sign() > 0 && amount1Out.Sign() > 0 && amount1In.Sign() == 0 && amount0Out.Sign() == 0 {
		return 1
	}
	if amount1In.Sign() > 0 && amount0Out.Sign() > 0 && amount0In.Sign() == 0 && amount1Out.Sign() == 0 {
		return -1
	}
	return 0
}

// sharesToken reports whether pool a and pool b quote a common token,
// making opposite-direction swaps on each a candidate two-leg arbitrage.
func sharesToken(ctx context.Context, finder *chain.PoolFinder, a, b common.Address, blockNum *big.Int) (bool, error) {
	tokensA, err := finder.GetPairTokens(ctx, a, blockNum)
	if err != nil {
		return false, err
	}
	tokensB, err := finder.GetPairTokens(ctx, b, blockNum)
	if err != nil {
		return false, err
	}
	return tokensA.Token0 == tokensB.Token0 || tokensA.Token0 == tokensB.Token1 ||
		tokensA.Token1 == tokensB.Token0 || tokensA.Token1 == tokensB.Token1, nil
}

// FindActualArbitrages scans every transaction in blockNum for receipts
// that hit two or more V2 pools in opposite directions on a shared token —
// ground truth to compare the batch driver's predictions against.
func FindActualArbitrages(ctx context.Context, client *chain.Client, finder *chain.PoolFinder, blockNum uint64) ([]*ActualArbitrage, error) {
	block, err := client.BlockByNumber(ctx, new(big.Int).SetUint64(blockNum))
	if err != nil {
		return nil, fmt.Errorf("validate: fetch block %d: %w", blockNum, err)
	}

	receipts, err := client.GetBlockReceipts(ctx, blockNum)
	if err != nil {
		return nil, fmt.Errorf("validate: fetch receipts for block %d: %w", blockNum, err)
	}
	receiptByHash := make(map[common.Hash]*types.Receipt, len(receipts))
	for _, r := range receipts {
		receiptByHash[r.TxHash] = r
	}

	preBlock := new(big.Int).SetUint64(blockNum - 1)
	var arbs []*ActualArbitrage

	for _, tx := range block.Transactions() {
		receipt, ok := receiptByHash[tx.Hash()]
		if !ok {
			continue
		}

		poolDirection := make(map[common.Address]int)
		for _, log := range receipt.Logs {
			if dir := swapDirection(log); dir != 0 {
				poolDirection[log.Address] = dir
			}
		}
		if len(poolDirection) < 2 {
			continue
		}

		pools := make([]common.Address, 0, len(poolDirection))
		for addr := range poolDirection {
			pools = append(pools, addr)
		}

		isArb := false
		for i := 0; i < len(pools) && !isArb; i++ {
			for j := i + 1; j < len(pools); j++ {
				if poolDirection[pools[i]] == poolDirection[pools[j]] {
					continue
				}
				shared, err := sharesToken(ctx, finder, pools[i], pools[j], preBlock)
				if err != nil || !shared {
					continue
				}
				isArb = true
				break
			}
		}
		if !isArb {
			continue
		}

		signer := types.LatestSignerForChainID(tx.ChainId())
		sender, _ := types.Sender(signer, tx)
		arbs = append(arbs, &ActualArbitrage{
			TxHash:      tx.Hash(),
			BlockNumber: blockNum,
			From:        sender,
			PoolsHit:    pools,
			GasUsed:     receipt.GasUsed,
		})
	}

	return arbs, nil
}
