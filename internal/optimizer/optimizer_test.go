package optimizer

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/hindsight-go/internal/domain"
	"github.com/pulkyeet/hindsight-go/internal/simerrors"
)

func TestSweepPointsCoversRangeEndpoints(t *testing.T) {
	lo := big.NewInt(0)
	hi := big.NewInt(14_000)

	points, step := sweepPoints(lo, hi)
	if len(points) != StepIntervals {
		t.Fatalf("len(points) = %d, want %d", len(points), StepIntervals)
	}
	if points[0].Cmp(lo) != 0 {
		t.Fatalf("first point = %s, want lo %s", points[0], lo)
	}
	if points[len(points)-1].Cmp(hi) != 0 {
		t.Fatalf("last point = %s, want hi %s", points[len(points)-1], hi)
	}
	if step.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("step = %s, want 1000", step)
	}
}

func TestAmountInStartWhenUserSentWETH(t *testing.T) {
	weth := common.HexToAddress("0x1")
	token := common.HexToAddress("0x2")
	trade := domain.UserTradeParams{
		TokenIn:      weth,
		Token0IsWETH: true,
		Amount0Sent:  big.NewInt(7_000000000000000000),
		Amount1Sent:  big.NewInt(0),
		Tokens:       domain.TokenPair{WETH: weth, Token: token},
	}

	got := amountInStart(trade)
	if got.Cmp(trade.Amount0Sent) != 0 {
		t.Fatalf("amountInStart = %s, want %s", got, trade.Amount0Sent)
	}
}

func TestAmountInStartConvertsNonWETHAmount(t *testing.T) {
	weth := common.HexToAddress("0x1")
	token := common.HexToAddress("0x2")
	trade := domain.UserTradeParams{
		TokenIn:      token,
		Token0IsWETH: true,
		Amount0Sent:  big.NewInt(0),
		Amount1Sent:  big.NewInt(1000),
		Price:        new(big.Int).Mul(big.NewInt(2), weiPerEther), // 2 token1 per token0, scaled by 10^18
		Tokens:       domain.TokenPair{WETH: weth, Token: token},
	}

	got := amountInStart(trade)
	want := big.NewInt(2000)
	if got.Cmp(want) != 0 {
		t.Fatalf("amountInStart = %s, want %s", got, want)
	}
}

func TestGasFloorScalesWithBaseFee(t *testing.T) {
	baseFee := big.NewInt(50)
	got := gasFloor(baseFee)
	want := new(big.Int).Mul(big.NewInt(180_000), baseFee)
	if got.Cmp(want) != 0 {
		t.Fatalf("gasFloor = %s, want %s", got, want)
	}
}

func TestFanOutToleratesIndividualReverts(t *testing.T) {
	points := []*big.Int{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
	sample := func(ctx context.Context, amountIn *big.Int) (*big.Int, error) {
		if amountIn.Cmp(big.NewInt(2)) == 0 {
			return nil, simerrors.ErrSwapReverted
		}
		return new(big.Int).Mul(amountIn, big.NewInt(10)), nil
	}

	results, err := fanOut(context.Background(), sample, points)
	if err != nil {
		t.Fatalf("fanOut: %v", err)
	}
	if results[0].Cmp(big.NewInt(10)) != 0 || results[2].Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("unexpected successful results: %+v", results)
	}
	if results[1] != nil {
		t.Fatalf("expected reverted sample to resolve to nil, got %v", results[1])
	}
}

func TestFanOutPropagatesNonRevertError(t *testing.T) {
	points := []*big.Int{big.NewInt(1)}
	wantErr := errors.New("transport down")
	sample := func(ctx context.Context, amountIn *big.Int) (*big.Int, error) {
		return nil, wantErr
	}

	_, err := fanOut(context.Background(), sample, points)
	if err == nil {
		t.Fatal("expected fanOut to propagate a non-revert error")
	}
}
