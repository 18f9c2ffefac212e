package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestEmbeddedABIsParse(t *testing.T) {
	// mustParseABI panics on bad JSON; reaching this point means every
	// embedded ABI constant parsed cleanly at package init.
	if len(v2PairABI.Methods) == 0 {
		t.Fatal("v2PairABI has no methods")
	}
	if _, ok := v3FactoryABI.Methods["getPool"]; !ok {
		t.Fatal("v3FactoryABI missing getPool")
	}
	if _, ok := v3PoolABI.Methods["slot0"]; !ok {
		t.Fatal("v3PoolABI missing slot0")
	}
}

func TestV2FactoryOfABIPacksNoArgs(t *testing.T) {
	data, err := v2FactoryOfABI.Pack("factory")
	if err != nil {
		t.Fatalf("pack factory: %v", err)
	}
	if len(data) != 4 {
		t.Fatalf("unexpected calldata length: %d, want 4 (selector only)", len(data))
	}
}

func TestGetPoolCalldataPacksFeeTier(t *testing.T) {
	tokenA := common.HexToAddress("0x0000000000000000000000000000000000000001")
	tokenB := common.HexToAddress("0x0000000000000000000000000000000000000002")

	data, err := v3FactoryABI.Pack("getPool", tokenA, tokenB, UniswapV3.FeeTier)
	if err != nil {
		t.Fatalf("pack getPool: %v", err)
	}
	if len(data) != 4+32*3 {
		t.Fatalf("unexpected calldata length: %d", len(data))
	}
}
