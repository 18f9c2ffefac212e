// Package chain wraps a read-only JSON-RPC connection to an archive node:
// the state reads the fork and the route enumerator need, with every
// transport-layer failure normalized to simerrors.TransportError.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/pulkyeet/hindsight-go/internal/simerrors"
)

// Client is a thin, read-only wrapper around ethclient plus the raw RPC
// client needed for batched calls and debug_traceTransaction.
type Client struct {
	rpc    *ethclient.Client
	rawRPC *rpc.Client
}

// NewClient dials the given archive-node URL.
func NewClient(url string) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("chain: empty RPC URL")
	}
	rawRPCClient, err := rpc.Dial(url)
	if err != nil {
		return nil, &simerrors.TransportError{Op: "dial", Err: err}
	}
	return &Client{
		rpc:    ethclient.NewClient(rawRPCClient),
		rawRPC: rawRPCClient,
	}, nil
}

func (c *Client) BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error) {
	blk, err := c.rpc.BlockByNumber(ctx, number)
	if err != nil {
		return nil, &simerrors.TransportError{Op: "eth_getBlockByNumber", Err: err}
	}
	return blk, nil
}

// BlockNumber returns the chain's current head block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.rpc.BlockNumber(ctx)
	if err != nil {
		return 0, &simerrors.TransportError{Op: "eth_blockNumber", Err: err}
	}
	return n, nil
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	bal, err := c.rpc.BalanceAt(ctx, account, blockNumber)
	if err != nil {
		return nil, &simerrors.TransportError{Op: "eth_getBalance", Err: err}
	}
	return bal, nil
}

func (c *Client) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	code, err := c.rpc.CodeAt(ctx, account, blockNumber)
	if err != nil {
		return nil, &simerrors.TransportError{Op: "eth_getCode", Err: err}
	}
	return code, nil
}

func (c *Client) StorageAt(ctx context.Context, account common.Address, key common.Hash, blockNumber *big.Int) ([]byte, error) {
	val, err := c.rpc.StorageAt(ctx, account, key, blockNumber)
	if err != nil {
		return nil, &simerrors.TransportError{Op: "eth_getStorageAt", Err: err}
	}
	return val, nil
}

func (c *Client) NonceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (uint64, error) {
	nonce, err := c.rpc.NonceAt(ctx, account, blockNumber)
	if err != nil {
		return 0, &simerrors.TransportError{Op: "eth_getTransactionCount", Err: err}
	}
	return nonce, nil
}

// TransactionByHash returns a *simerrors.TxNotLandedError when the node has
// never seen the transaction, distinguishing "not found" from a generic
// transport error.
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error) {
	tx, isPending, err := c.rpc.TransactionByHash(ctx, hash)
	if err != nil {
		if err == ethereum.NotFound {
			return nil, false, &simerrors.TxNotLandedError{Hash: hash}
		}
		return nil, false, &simerrors.TransportError{Op: "eth_getTransactionByHash", Err: err}
	}
	return tx, isPending, nil
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	receipt, err := c.rpc.TransactionReceipt(ctx, txHash)
	if err != nil {
		if err == ethereum.NotFound {
			return nil, &simerrors.TxNotLandedError{Hash: txHash}
		}
		return nil, &simerrors.TransportError{Op: "eth_getTransactionReceipt", Err: err}
	}
	return receipt, nil
}

// GetBlockReceipts fetches every receipt in a block with one RPC round
// trip via eth_getBlockReceipts, the batch-ground-truth validator's way of
// avoiding one eth_getTransactionReceipt call per transaction.
func (c *Client) GetBlockReceipts(ctx context.Context, blockNum uint64) ([]*types.Receipt, error) {
	var receipts []*types.Receipt
	err := c.rawRPC.CallContext(ctx, &receipts, "eth_getBlockReceipts", toBlockNumArg(new(big.Int).SetUint64(blockNum)))
	if err != nil {
		return nil, &simerrors.TransportError{Op: "eth_getBlockReceipts", Err: err}
	}
	return receipts, nil
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	out, err := c.rpc.CallContract(ctx, msg, blockNumber)
	if err != nil {
		return nil, &simerrors.TransportError{Op: "eth_call", Err: err}
	}
	return out, nil
}

// BatchAccountRequest/BatchAccountResult and BatchGetAccounts fetch balance,
// nonce and code for several accounts in a single round trip. The fork's
// state cache does not call them; it fetches one field per RPC call on a miss.

type BatchAccountRequest struct {
	Address     common.Address
	BlockNumber *big.Int
}

type BatchAccountResult struct {
	Address common.Address
	Balance *big.Int
	Nonce   uint64
	Code    []byte
	Err     error
}

func (c *Client) BatchGetAccounts(ctx context.Context, requests []BatchAccountRequest) []BatchAccountResult {
	results := make([]BatchAccountResult, len(requests))
	if len(requests) == 0 {
		return results
	}

	batch := make([]rpc.BatchElem, len(requests)*3)
	for i, req := range requests {
		blockNumHex := toBlockNumArg(req.BlockNumber)
		batch[i*3] = rpc.BatchElem{Method: "eth_getBalance", Args: []interface{}{req.Address, blockNumHex}, Result: new(string)}
		batch[i*3+1] = rpc.BatchElem{Method: "eth_getTransactionCount", Args: []interface{}{req.Address, blockNumHex}, Result: new(string)}
		batch[i*3+2] = rpc.BatchElem{Method: "eth_getCode", Args: []interface{}{req.Address, blockNumHex}, Result: new(string)}
	}

	if err := c.rawRPC.BatchCallContext(ctx, batch); err != nil {
		for i := range results {
			results[i].Address = requests[i].Address
			results[i].Err = &simerrors.TransportError{Op: "batch(accounts)", Err: err}
		}
		return results
	}

	for i := range requests {
		results[i].Address = requests[i].Address

		if batch[i*3].Error != nil {
			results[i].Err = &simerrors.TransportError{Op: "eth_getBalance", Err: batch[i*3].Error}
			continue
		}
		balanceHex := *batch[i*3].Result.(*string)
		balance := new(big.Int)
		balance.SetString(balanceHex[2:], 16)
		results[i].Balance = balance

		if batch[i*3+1].Error != nil {
			results[i].Err = &simerrors.TransportError{Op: "eth_getTransactionCount", Err: batch[i*3+1].Error}
			continue
		}
		nonceHex := *batch[i*3+1].Result.(*string)
		var nonce uint64
		fmt.Sscanf(nonceHex, "0x%x", &nonce)
		results[i].Nonce = nonce

		if batch[i*3+2].Error != nil {
			results[i].Err = &simerrors.TransportError{Op: "eth_getCode", Err: batch[i*3+2].Error}
			continue
		}
		codeHex := *batch[i*3+2].Result.(*string)
		results[i].Code = common.FromHex(codeHex)
	}

	return results
}

type BatchStorageRequest struct {
	Address     common.Address
	Slot        common.Hash
	BlockNumber *big.Int
}

type BatchStorageResult struct {
	Address common.Address
	Slot    common.Hash
	Value   common.Hash
	Err     error
}

func (c *Client) BatchGetStorage(ctx context.Context, requests []BatchStorageRequest) []BatchStorageResult {
	results := make([]BatchStorageResult, len(requests))
	if len(requests) == 0 {
		return results
	}

	batch := make([]rpc.BatchElem, len(requests))
	for i, req := range requests {
		batch[i] = rpc.BatchElem{Method: "eth_getStorageAt", Args: []interface{}{req.Address, req.Slot, toBlockNumArg(req.BlockNumber)}, Result: new(string)}
	}

	if err := c.rawRPC.BatchCallContext(ctx, batch); err != nil {
		for i := range results {
			results[i].Address = requests[i].Address
			results[i].Slot = requests[i].Slot
			results[i].Err = &simerrors.TransportError{Op: "batch(storage)", Err: err}
		}
		return results
	}

	for i := range requests {
		results[i].Address = requests[i].Address
		results[i].Slot = requests[i].Slot

		if batch[i].Error != nil {
			results[i].Err = &simerrors.TransportError{Op: "eth_getStorageAt", Err: batch[i].Error}
			continue
		}
		valueHex := *batch[i].Result.(*string)
		results[i].Value = common.HexToHash(valueHex)
	}

	return results
}

// TraceResult is the prestateTracer output for a single transaction: the
// accounts it touched and, per account, the storage slots it touched.
type TraceResult struct {
	TouchedAddresses []common.Address
	TouchedSlots     map[common.Address][]common.Hash
}

func (c *Client) TraceTransaction(ctx context.Context, txHash common.Hash, blockNumber *big.Int) (*TraceResult, error) {
	var result map[string]interface{}

	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	err := c.rawRPC.CallContext(ctx, &result, "debug_traceTransaction", txHash, map[string]interface{}{
		"tracer": "prestateTracer",
	})
	if err != nil {
		return nil, &simerrors.TransportError{Op: "debug_traceTransaction", Err: err}
	}

	trace := &TraceResult{
		TouchedAddresses: make([]common.Address, 0),
		TouchedSlots:     make(map[common.Address][]common.Hash),
	}

	for addrHex, data := range result {
		addr := common.HexToAddress(addrHex)
		trace.TouchedAddresses = append(trace.TouchedAddresses, addr)

		if dataMap, ok := data.(map[string]interface{}); ok {
			if storage, ok := dataMap["storage"].(map[string]interface{}); ok {
				slots := make([]common.Hash, 0, len(storage))
				for slotHex := range storage {
					slots = append(slots, common.HexToHash(slotHex))
				}
				if len(slots) > 0 {
					trace.TouchedSlots[addr] = slots
				}
			}
		}
	}

	return trace, nil
}

func toBlockNumArg(number *big.Int) string {
	if number == nil {
		return "latest"
	}
	return fmt.Sprintf("0x%x", number)
}
