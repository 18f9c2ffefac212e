package chain

import (
	"context"
	"math/big"
)

// FindBlockByTimestamp binary-searches [1, latest] for the highest block
// number whose timestamp is <= target, the same block-locating step the
// scan CLI needs to translate a --timestamp-start/--timestamp-end window
// into the block range the batch driver actually consumes.
func FindBlockByTimestamp(ctx context.Context, client *Client, target uint64) (uint64, error) {
	latest, err := client.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}

	lo, hi := uint64(1), latest
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		block, err := client.BlockByNumber(ctx, new(big.Int).SetUint64(mid))
		if err != nil {
			return 0, err
		}
		if block.Time() <= target {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}
