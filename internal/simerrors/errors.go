// Package simerrors is the structured error taxonomy for the backrun
// simulator. The original hindsight source discriminated sample reverts
// from missing-pool failures by matching on error message text; this
// package replaces that with typed errors so callers can use errors.Is/As.
package simerrors

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for conditions that carry no extra data.
var (
	// ErrAllReverted means every sample at a recursion level reverted.
	ErrAllReverted = errors.New("all samples reverted")
	// ErrSwapReverted means a single buy/sell leg reverted.
	ErrSwapReverted = errors.New("swap reverted")
	// ErrSystem means a task failed at the runtime level (panic, cancellation).
	ErrSystem = errors.New("system error")
)

// TxNotLandedError means the chain adapter found no receipt for a tx hash.
type TxNotLandedError struct {
	Hash common.Hash
}

func (e *TxNotLandedError) Error() string {
	return fmt.Sprintf("tx not landed: %s", e.Hash.Hex())
}

// PoolNotFoundError means no alternate pool exists on the opposite variant.
type PoolNotFoundError struct {
	Pool common.Address
}

func (e *PoolNotFoundError) Error() string {
	return fmt.Sprintf("pool not found: %s", e.Pool.Hex())
}

// DecodeError means a swap log's byte layout did not parse as expected.
type DecodeError struct {
	Field string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode failed: %s", e.Field)
}

// TransportError wraps an RPC-layer failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
