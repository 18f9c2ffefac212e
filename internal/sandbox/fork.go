// Package sandbox forks chain state at a single block and runs go-ethereum's
// EVM against it, caching every account/storage read so a batch of
// simulations against the same block only pays the RPC cost once.
package sandbox

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pulkyeet/hindsight-go/internal/chain"
	"github.com/pulkyeet/hindsight-go/internal/statecache"
)

// StateCache is the in-memory layer backing one Fork; Snapshot/RevertToSnapshot
// deep-copy it so a reverted branch can't bleed into the next one.
type StateCache struct {
	balances map[common.Address]*big.Int
	nonces   map[common.Address]uint64
	code     map[common.Address][]byte
	storage  map[common.Address]map[common.Hash]common.Hash
}

func NewStateCache() *StateCache {
	return &StateCache{
		balances: make(map[common.Address]*big.Int),
		nonces:   make(map[common.Address]uint64),
		code:     make(map[common.Address][]byte),
		storage:  make(map[common.Address]map[common.Hash]common.Hash),
	}
}

// Fork is a single forked view of chain state at one block. It reads through
// to the chain client on a cache miss and, when a disk cache is attached,
// through that first. Forks at the same block share reads only through that
// disk cache; each concurrent simulation gets its own in-memory cache via
// Clone.
type Fork struct {
	client      *chain.Client
	blockNumber *big.Int
	block       *types.Block

	disk *statecache.DB // optional, nil disables disk caching

	cache *StateCache
	mu    sync.RWMutex

	snapshots []*StateCache
}

// NewFork fetches the target block header and builds an empty read-through
// cache in front of it. disk may be nil.
func NewFork(client *chain.Client, blockNumber *big.Int, disk *statecache.DB) (*Fork, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	block, err := client.BlockByNumber(ctx, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("sandbox: fetch block %s: %w", blockNumber, err)
	}

	return &Fork{
		client:      client,
		blockNumber: blockNumber,
		block:       block,
		disk:        disk,
		cache:       NewStateCache(),
		snapshots:   make([]*StateCache, 0),
	}, nil
}

func (f *Fork) GetBalance(addr common.Address) (*big.Int, error) {
	f.mu.RLock()
	if bal, ok := f.cache.balances[addr]; ok {
		f.mu.RUnlock()
		return new(big.Int).Set(bal), nil
	}
	f.mu.RUnlock()

	if f.disk != nil {
		if bal, ok := f.disk.GetBalance(f.blockNumber.Uint64(), addr); ok {
			f.mu.Lock()
			f.cache.balances[addr] = bal
			f.mu.Unlock()
			return new(big.Int).Set(bal), nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bal, err := f.client.BalanceAt(ctx, addr, f.blockNumber)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.cache.balances[addr] = bal
	f.mu.Unlock()
	if f.disk != nil {
		f.disk.SetBalance(f.blockNumber.Uint64(), addr, bal)
	}

	return new(big.Int).Set(bal), nil
}

func (f *Fork) GetNonce(addr common.Address) (uint64, error) {
	f.mu.RLock()
	if nonce, ok := f.cache.nonces[addr]; ok {
		f.mu.RUnlock()
		return nonce, nil
	}
	f.mu.RUnlock()

	if f.disk != nil {
		if nonce, ok := f.disk.GetNonce(f.blockNumber.Uint64(), addr); ok {
			f.mu.Lock()
			f.cache.nonces[addr] = nonce
			f.mu.Unlock()
			return nonce, nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	nonce, err := f.client.NonceAt(ctx, addr, f.blockNumber)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	f.cache.nonces[addr] = nonce
	f.mu.Unlock()
	if f.disk != nil {
		f.disk.SetNonce(f.blockNumber.Uint64(), addr, nonce)
	}

	return nonce, nil
}

func (f *Fork) GetCode(addr common.Address) ([]byte, error) {
	f.mu.RLock()
	if code, ok := f.cache.code[addr]; ok {
		f.mu.RUnlock()
		return code, nil
	}
	f.mu.RUnlock()

	if f.disk != nil {
		if code, ok := f.disk.GetCode(f.blockNumber.Uint64(), addr); ok {
			f.mu.Lock()
			f.cache.code[addr] = code
			f.mu.Unlock()
			return code, nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	code, err := f.client.CodeAt(ctx, addr, f.blockNumber)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.cache.code[addr] = code
	f.mu.Unlock()
	if f.disk != nil {
		f.disk.SetCode(f.blockNumber.Uint64(), addr, code)
	}

	return code, nil
}

func (f *Fork) GetStorageAt(addr common.Address, slot common.Hash) (common.Hash, error) {
	f.mu.RLock()
	if addrStorage, ok := f.cache.storage[addr]; ok {
		if val, ok := addrStorage[slot]; ok {
			f.mu.RUnlock()
			return val, nil
		}
	}
	f.mu.RUnlock()

	if f.disk != nil {
		if val, ok := f.disk.GetStorage(f.blockNumber.Uint64(), addr, slot); ok {
			f.setStorageCache(addr, slot, val)
			return val, nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	data, err := f.client.StorageAt(ctx, addr, slot, f.blockNumber)
	if err != nil {
		return common.Hash{}, err
	}

	val := common.BytesToHash(data)
	f.setStorageCache(addr, slot, val)
	if f.disk != nil {
		f.disk.SetStorage(f.blockNumber.Uint64(), addr, slot, val)
	}

	return val, nil
}

func (f *Fork) setStorageCache(addr common.Address, slot, val common.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache.storage[addr] == nil {
		f.cache.storage[addr] = make(map[common.Hash]common.Hash)
	}
	f.cache.storage[addr][slot] = val
}

func (f *Fork) SetBalance(addr common.Address, bal *big.Int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.balances[addr] = new(big.Int).Set(bal)
}

func (f *Fork) SetNonce(addr common.Address, nonce uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.nonces[addr] = nonce
}

func (f *Fork) SetCode(addr common.Address, code []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.code[addr] = code
}

func (f *Fork) SetStorageAt(addr common.Address, slot, val common.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cache.storage[addr] == nil {
		f.cache.storage[addr] = make(map[common.Hash]common.Hash)
	}
	f.cache.storage[addr][slot] = val
}

// Snapshot deep-copies the current cache and returns an id RevertToSnapshot
// can later roll back to.
func (f *Fork) Snapshot() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := &StateCache{
		balances: make(map[common.Address]*big.Int, len(f.cache.balances)),
		nonces:   make(map[common.Address]uint64, len(f.cache.nonces)),
		code:     make(map[common.Address][]byte, len(f.cache.code)),
		storage:  make(map[common.Address]map[common.Hash]common.Hash, len(f.cache.storage)),
	}

	for addr, bal := range f.cache.balances {
		snap.balances[addr] = new(big.Int).Set(bal)
	}
	for addr, nonce := range f.cache.nonces {
		snap.nonces[addr] = nonce
	}
	for addr, code := range f.cache.code {
		snap.code[addr] = code
	}
	for addr, slots := range f.cache.storage {
		snap.storage[addr] = make(map[common.Hash]common.Hash, len(slots))
		for slot, val := range slots {
			snap.storage[addr][slot] = val
		}
	}

	f.snapshots = append(f.snapshots, snap)
	return len(f.snapshots) - 1
}

func (f *Fork) RevertToSnapshot(snapID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if snapID < 0 || snapID >= len(f.snapshots) {
		return fmt.Errorf("sandbox: invalid snapshot id %d", snapID)
	}

	f.cache = f.snapshots[snapID]
	f.snapshots = f.snapshots[:snapID]
	return nil
}

// Clone returns an independent Fork sharing this one's client, block, and
// disk cache but starting from a deep copy of the in-memory cache, so
// mutations made against the clone (a braindance controller's storage, a
// reverted sample) never bleed back into the parent. Callers that need to
// run many candidate simulations against the same block concurrently — the
// optimizer's per-level sweep — clone once per sample instead of sharing one
// Fork's mutex across goroutines.
func (f *Fork) Clone() *Fork {
	f.mu.RLock()
	defer f.mu.RUnlock()

	clone := &StateCache{
		balances: make(map[common.Address]*big.Int, len(f.cache.balances)),
		nonces:   make(map[common.Address]uint64, len(f.cache.nonces)),
		code:     make(map[common.Address][]byte, len(f.cache.code)),
		storage:  make(map[common.Address]map[common.Hash]common.Hash, len(f.cache.storage)),
	}
	for addr, bal := range f.cache.balances {
		clone.balances[addr] = new(big.Int).Set(bal)
	}
	for addr, nonce := range f.cache.nonces {
		clone.nonces[addr] = nonce
	}
	for addr, code := range f.cache.code {
		clone.code[addr] = code
	}
	for addr, slots := range f.cache.storage {
		clone.storage[addr] = make(map[common.Hash]common.Hash, len(slots))
		for slot, val := range slots {
			clone.storage[addr][slot] = val
		}
	}

	return &Fork{
		client:      f.client,
		blockNumber: f.blockNumber,
		block:       f.block,
		disk:        f.disk,
		cache:       clone,
		snapshots:   make([]*StateCache, 0),
	}
}

func (f *Fork) Block() *types.Block {
	return f.block
}

func (f *Fork) BlockNumber() *big.Int {
	return new(big.Int).Set(f.blockNumber)
}
