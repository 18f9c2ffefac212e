package backrun

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/hindsight-go/internal/chain"
	"github.com/pulkyeet/hindsight-go/internal/domain"
)

func TestBuildSwapCalldataV2RoundTrips(t *testing.T) {
	tokenIn := common.HexToAddress("0x0000000000000000000000000000000000000001")
	tokenOut := common.HexToAddress("0x0000000000000000000000000000000000000002")
	amountIn := big.NewInt(1_000000000000000000)
	deadline := big.NewInt(1_700_000_000)

	data, err := buildSwapCalldata(domain.V2, tokenIn, tokenOut, amountIn, big.NewInt(0), deadline)
	if err != nil {
		t.Fatalf("buildSwapCalldata(V2): %v", err)
	}

	args, err := v2RouterABI.Methods["swapExactTokensForTokens"].Inputs.Unpack(data[4:])
	if err != nil {
		t.Fatalf("unpack: %v", err)
	}
	gotAmountIn, ok := args[0].(*big.Int)
	if !ok || gotAmountIn.Cmp(amountIn) != 0 {
		t.Fatalf("amountIn roundtrip mismatch: got %v", args[0])
	}
	path, ok := args[2].([]common.Address)
	if !ok || len(path) != 2 || path[0] != tokenIn || path[1] != tokenOut {
		t.Fatalf("path roundtrip mismatch: got %v", args[2])
	}
}

func TestBuildSwapCalldataV3RoundTrips(t *testing.T) {
	tokenIn := common.HexToAddress("0x0000000000000000000000000000000000000001")
	tokenOut := common.HexToAddress("0x0000000000000000000000000000000000000002")
	amountIn := big.NewInt(5_000000000000000000)
	deadline := big.NewInt(1_700_000_000)

	data, err := buildSwapCalldata(domain.V3, tokenIn, tokenOut, amountIn, big.NewInt(1), deadline)
	if err != nil {
		t.Fatalf("buildSwapCalldata(V3): %v", err)
	}
	if len(data) < 4 {
		t.Fatalf("calldata too short: %d bytes", len(data))
	}
}

func TestRouterForPicksV3Router(t *testing.T) {
	if routerFor(domain.V3, "") == routerFor(domain.V2, "uniswap") {
		t.Fatal("expected V2 and V3 legs to route through different contracts")
	}
}

func TestRouterForV2PicksDEXByName(t *testing.T) {
	if routerFor(domain.V2, "uniswap") != chain.UniswapV2Router {
		t.Fatal("expected dexName \"uniswap\" to route through Uniswap's V2 router")
	}
	if routerFor(domain.V2, "sushiswap") != chain.SushiswapV2Router {
		t.Fatal("expected dexName \"sushiswap\" to route through Sushiswap's V2 router")
	}
	if routerFor(domain.V2, "") != chain.UniswapV2Router {
		t.Fatal("expected an unrecognized dexName to default to Uniswap's V2 router")
	}
}

func TestDecodeSwapOutputV2TakesLastAmount(t *testing.T) {
	amounts := []*big.Int{big.NewInt(100), big.NewInt(95)}
	packed, err := v2RouterABI.Methods["swapExactTokensForTokens"].Outputs.Pack(amounts)
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}
	got, err := decodeSwapOutput(domain.V2, packed)
	if err != nil {
		t.Fatalf("decodeSwapOutput: %v", err)
	}
	if got.Cmp(big.NewInt(95)) != 0 {
		t.Fatalf("decodeSwapOutput = %s, want 95", got)
	}
}

func TestDecodeSwapOutputV3(t *testing.T) {
	packed, err := v3RouterABI.Methods["exactInputSingle"].Outputs.Pack(big.NewInt(42))
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}
	got, err := decodeSwapOutput(domain.V3, packed)
	if err != nil {
		t.Fatalf("decodeSwapOutput: %v", err)
	}
	if got.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("decodeSwapOutput = %s, want 42", got)
	}
}
