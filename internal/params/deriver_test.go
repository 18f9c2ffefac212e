package params

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/pulkyeet/hindsight-go/internal/chain"
	"github.com/pulkyeet/hindsight-go/internal/domain"
)

var (
	testWETH  = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	testToken = common.HexToAddress("0x00000000000000000000000000000000000042")
	testPool  = common.HexToAddress("0x00000000000000000000000000000000000099")
)

type stubLookup struct {
	tokens chain.PoolTokens
}

func (s stubLookup) GetPairTokens(ctx context.Context, pool common.Address, blockNum *big.Int) (chain.PoolTokens, error) {
	return s.tokens, nil
}

func word(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func concat(words ...[]byte) []byte {
	var out []byte
	for _, w := range words {
		out = append(out, w...)
	}
	return out
}

func TestDeriveV2SwapWETHIn(t *testing.T) {
	// token0 = WETH, token1 = token. amount0In > 0 means WETH went in,
	// token came out (amount1Out > 0).
	data := concat(
		word(big.NewInt(1e18)), // amount0In
		word(big.NewInt(0)),    // amount1In
		word(big.NewInt(0)),    // amount0Out
		word(big.NewInt(2000)), // amount1Out
	)
	swapLog := &types.Log{
		Address: testPool,
		Topics:  []common.Hash{chain.TopicV2Swap},
		Data:    data,
	}
	syncLog := &types.Log{
		Address: testPool,
		Topics:  []common.Hash{chain.TopicV2Sync},
		Data:    concat(word(new(big.Int).Mul(big.NewInt(500_000), big.NewInt(1e18))), word(big.NewInt(1_000_000_000))),
	}
	receipt := &types.Receipt{Logs: []*types.Log{swapLog, syncLog}}

	lookup := stubLookup{tokens: chain.PoolTokens{Token0: testWETH, Token1: testToken}}

	trade, err := Derive(context.Background(), lookup, domain.EventHistory{}, receipt, big.NewInt(1), testWETH)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if trade == nil {
		t.Fatal("expected a derived trade, got nil")
	}
	if trade.PoolVariant != domain.V2 {
		t.Fatalf("PoolVariant = %v, want V2", trade.PoolVariant)
	}
	if trade.TokenIn != testWETH || trade.TokenOut != testToken {
		t.Fatalf("TokenIn/TokenOut = %s/%s, want WETH/token", trade.TokenIn, trade.TokenOut)
	}
	if trade.Tokens.WETH != testWETH || trade.Tokens.Token != testToken {
		t.Fatalf("Tokens = %+v, want WETH=%s Token=%s", trade.Tokens, testWETH, testToken)
	}
}

func TestDeriveReturnsNilWhenNoSwapLog(t *testing.T) {
	receipt := &types.Receipt{Logs: []*types.Log{{Address: testPool, Topics: []common.Hash{common.HexToHash("0xdeadbeef")}}}}
	lookup := stubLookup{tokens: chain.PoolTokens{Token0: testWETH, Token1: testToken}}

	trade, err := Derive(context.Background(), lookup, domain.EventHistory{}, receipt, big.NewInt(1), testWETH)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if trade != nil {
		t.Fatalf("expected nil trade for a receipt with no swap log, got %+v", trade)
	}
}

func TestAsSigned256NegativeAmount(t *testing.T) {
	// 2^256 - 100, the two's-complement encoding of -100
	raw := new(big.Int).Lsh(big.NewInt(1), 256)
	raw.Sub(raw, big.NewInt(100))

	got := asSigned256(raw)
	if got.Cmp(big.NewInt(-100)) != 0 {
		t.Fatalf("asSigned256 = %s, want -100", got)
	}
}

func TestClampNonNegative(t *testing.T) {
	if clampNonNegative(big.NewInt(-5)).Sign() != 0 {
		t.Fatal("expected negative input to clamp to zero")
	}
	if clampNonNegative(big.NewInt(5)).Cmp(big.NewInt(5)) != 0 {
		t.Fatal("expected positive input to pass through unchanged")
	}
}
