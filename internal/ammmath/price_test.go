package ammmath

import (
	"math/big"
	"testing"
)

func TestMulDivBasic(t *testing.T) {
	got, err := MulDiv(big.NewInt(10), big.NewInt(20), big.NewInt(4))
	if err != nil {
		t.Fatalf("MulDiv returned error: %v", err)
	}
	if got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("MulDiv(10,20,4) = %s, want 50", got)
	}
}

func TestMulDivLargeOperands(t *testing.T) {
	a, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	b, _ := new(big.Int).SetString("987654321098765432109876543210", 10)
	c, _ := new(big.Int).SetString("1000000000000000000", 10)

	got, err := MulDiv(a, b, c)
	if err != nil {
		t.Fatalf("MulDiv returned error: %v", err)
	}
	want := new(big.Int).Div(new(big.Int).Mul(a, b), c)
	if got.Cmp(want) != 0 {
		t.Fatalf("MulDiv mismatch: got %s, want %s", got, want)
	}
}

func TestMulDivDivByZero(t *testing.T) {
	if _, err := MulDiv(big.NewInt(1), big.NewInt(1), big.NewInt(0)); err == nil {
		t.Fatal("expected error for division by zero")
	}
}

func TestPriceV2(t *testing.T) {
	// 1000 token0 (18 decimals) paired with 2,000,000 token1 (6 decimals, e.g. USDC)
	reserve0 := new(big.Int).Mul(big.NewInt(1000), new(big.Int).Exp(ten, big.NewInt(18), nil))
	reserve1 := new(big.Int).Mul(big.NewInt(2000000), new(big.Int).Exp(ten, big.NewInt(6), nil))

	got, err := PriceV2(reserve0, reserve1, 18)
	if err != nil {
		t.Fatalf("PriceV2 returned error: %v", err)
	}
	// price should be reserve1*10^18/reserve0 = 2000 * 10^6
	want := new(big.Int).Mul(big.NewInt(2000), new(big.Int).Exp(ten, big.NewInt(6), nil))
	if got.Cmp(want) != 0 {
		t.Fatalf("PriceV2 = %s, want %s", got, want)
	}
}

func TestPriceV2ZeroReserve(t *testing.T) {
	if _, err := PriceV2(big.NewInt(0), big.NewInt(100), 18); err == nil {
		t.Fatal("expected error for zero reserve0")
	}
}

func TestPriceV3MatchesV2AtEquivalentReserves(t *testing.T) {
	// sqrtPriceX96 = sqrt(price) * 2^96. Pick price = 1 (token0 == token1 in value)
	// so sqrtPriceX96 = 2^96 exactly, and liquidity maps directly to matched reserves.
	q96 := new(big.Int).Lsh(big.NewInt(1), 96)
	liquidity := new(big.Int).Mul(big.NewInt(1_000_000), new(big.Int).Exp(ten, big.NewInt(18), nil))

	got, err := PriceV3(liquidity, q96, 18)
	if err != nil {
		t.Fatalf("PriceV3 returned error: %v", err)
	}
	want := new(big.Int).Exp(ten, big.NewInt(18), nil)
	if got.Cmp(want) != 0 {
		t.Fatalf("PriceV3 = %s, want %s", got, want)
	}
}

func TestPriceV3ZeroSqrtPrice(t *testing.T) {
	if _, err := PriceV3(big.NewInt(100), big.NewInt(0), 18); err == nil {
		t.Fatal("expected error for zero sqrtPriceX96")
	}
}
