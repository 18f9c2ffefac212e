package sandbox

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"

	"github.com/pulkyeet/hindsight-go/internal/simerrors"
)

var bigZero = big.NewInt(0)

// Result is the outcome of executing one transaction or one low-level call
// against a Fork.
type Result struct {
	Success      bool
	GasUsed      uint64
	Logs         []*types.Log
	ReturnData   []byte
	RevertReason string
}

// Executor runs transactions and raw messages against a single Fork under
// go-ethereum's EVM, snapshotting before every attempt so a revert never
// corrupts the fork's shared state.
type Executor struct {
	fork   *Fork
	config *params.ChainConfig
}

func NewExecutor(fork *Fork) *Executor {
	return &Executor{fork: fork, config: params.MainnetChainConfig}
}

func (e *Executor) blockContext() vm.BlockContext {
	block := e.fork.Block()
	return vm.BlockContext{
		CanTransfer: core.CanTransfer,
		Transfer:    core.Transfer,
		GetHash:     func(n uint64) common.Hash { return common.Hash{} },
		Coinbase:    block.Coinbase(),
		BlockNumber: block.Number(),
		Time:        block.Time(),
		Difficulty:  block.Difficulty(),
		GasLimit:    block.GasLimit(),
		BaseFee:     block.BaseFee(),
	}
}

// ExecuteTransaction replays a real, signed transaction (used to land the
// user's trade before the backrun legs run against the same fork).
func (e *Executor) ExecuteTransaction(tx *types.Transaction) (*Result, error) {
	signer := types.LatestSignerForChainID(tx.ChainId())
	sender, err := types.Sender(signer, tx)
	if err != nil {
		return nil, fmt.Errorf("sandbox: recover sender: %w", err)
	}

	msg := &core.Message{
		To:         tx.To(),
		From:       sender,
		Nonce:      tx.Nonce(),
		Value:      tx.Value(),
		GasLimit:   tx.Gas(),
		GasPrice:   tx.GasPrice(),
		GasFeeCap:  tx.GasFeeCap(),
		GasTipCap:  tx.GasTipCap(),
		Data:       tx.Data(),
		AccessList: tx.AccessList(),
	}
	return e.apply(msg)
}

// ExecuteCall runs a single unsigned call, as the braindance controller: used
// for the buy/sell legs, which are built directly rather than signed as
// transactions from a funded account.
func (e *Executor) ExecuteCall(from, to common.Address, data []byte, gasLimit uint64, gasPrice *big.Int) (*Result, error) {
	nonce, err := e.fork.GetNonce(from)
	if err != nil {
		return nil, &simerrors.TransportError{Op: "GetNonce", Err: err}
	}

	msg := &core.Message{
		To:        &to,
		From:      from,
		Nonce:     nonce,
		Value:     bigZero,
		GasLimit:  gasLimit,
		GasPrice:  gasPrice,
		GasFeeCap: gasPrice,
		GasTipCap: bigZero,
		Data:      data,
	}
	result, err := e.apply(msg)
	if err != nil {
		return nil, err
	}
	e.fork.SetNonce(from, nonce+1)
	return result, nil
}

func (e *Executor) apply(msg *core.Message) (*Result, error) {
	stateDB := NewForkedStateDB(e.fork)
	blockContext := e.blockContext()

	evm := vm.NewEVM(blockContext, stateDB, e.config, vm.Config{})
	evm.SetTxContext(vm.TxContext{
		Origin:   msg.From,
		GasPrice: msg.GasPrice,
	})

	snap := stateDB.Snapshot()

	_, err := core.IntrinsicGas(msg.Data, msg.AccessList, nil, msg.To == nil, true, true, true)
	if err != nil {
		return nil, fmt.Errorf("sandbox: intrinsic gas: %w", err)
	}

	gp := new(core.GasPool).AddGas(e.fork.Block().GasLimit())
	result, err := core.ApplyMessage(evm, msg, gp)
	if err != nil {
		stateDB.RevertToSnapshot(snap)
		return &Result{Success: false, RevertReason: err.Error()}, nil
	}

	simResult := &Result{
		Success:    !result.Failed(),
		GasUsed:    result.UsedGas,
		ReturnData: result.ReturnData,
		Logs:       stateDB.logs,
	}

	if result.Failed() {
		simResult.RevertReason = result.Err.Error()
		stateDB.RevertToSnapshot(snap)
	}

	return simResult, nil
}
