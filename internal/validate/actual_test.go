package validate

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

func swapLog(pool common.Address, amount0In, amount1In, amount0Out, amount1Out uint64) *types.Log {
	data := make([]byte, 128)
	putUint64At(data, 0, amount0In)
	putUint64At(data, 32, amount1In)
	putUint64At(data, 64, amount0Out)
	putUint64At(data, 96, amount1Out)
	return &types.Log{
		Address: pool,
		Topics:  []common.Hash{chainTopicV2Swap()},
		Data:    data,
	}
}

func putUint64At(data []byte, offset int, v uint64) {
	for i := 0; i < 8; i++ {
		data[offset+31-i] = byte(v >> (8 * i))
	}
}

func chainTopicV2Swap() common.Hash {
	return common.HexToHash("0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822")
}

func TestSwapDirectionToken0In(t *testing.T) {
	pool := common.HexToAddress("0x1")
	log := swapLog(pool, 100, 0, 0, 200)
	if dir := swapDirection(log); dir != 1 {
		t.Fatalf("expected direction 1, got %d", dir)
	}
}

func TestSwapDirectionToken1In(t *testing.T) {
	pool := common.HexToAddress("0x1")
	log := swapLog(pool, 0, 100, 200, 0)
	if dir := swapDirection(log); dir != -1 {
		t.Fatalf("expected direction -1, got %d", dir)
	}
}

func TestSwapDirectionIgnoresNonSwapTopic(t *testing.T) {
	log := &types.Log{
		Address: common.HexToAddress("0x1"),
		Topics:  []common.Hash{common.HexToHash("0xdeadbeef")},
		Data:    make([]byte, 128),
	}
	if dir := swapDirection(log); dir != 0 {
		t.Fatalf("expected direction 0 for non-swap topic, got %d", dir)
	}
}

func TestSwapDirectionRejectsAmbiguousAmounts(t *testing.T) {
	pool := common.HexToAddress("0x1")
	log := swapLog(pool, 100, 100, 200, 200)
	if dir := swapDirection(log); dir != 0 {
		t.Fatalf("expected direction 0 for ambiguous amounts, got %d", dir)
	}
}

func TestSwapDirectionRejectsShortData(t *testing.T) {
	log := &types.Log{
		Address: common.HexToAddress("0x1"),
		Topics:  []common.Hash{chainTopicV2Swap()},
		Data:    make([]byte, 64),
	}
	if dir := swapDirection(log); dir != 0 {
		t.Fatalf("expected direction 0 for short data, got %d", dir)
	}
}
