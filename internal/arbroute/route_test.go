package arbroute

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/hindsight-go/internal/domain"
)

var errResolverFailed = errors.New("resolver: lookup failed")

var (
	testWETH  = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	testToken = common.HexToAddress("0x0000000000000000000000000000000000dead")
	userPool  = common.HexToAddress("0x0000000000000000000000000000000000aaaa")
	altPool   = common.HexToAddress("0x0000000000000000000000000000000000bbbb")
)

type stubResolver struct {
	pool common.Address
	dex  string
	err  error
}

func (s stubResolver) GetOtherPairAddress(ctx context.Context, tokenA, tokenB common.Address, other domain.PoolVariant, blockNum *big.Int) (common.Address, string, error) {
	return s.pool, s.dex, s.err
}

func (s stubResolver) IdentifyDEX(ctx context.Context, pool common.Address, variant domain.PoolVariant, blockNum *big.Int) (string, error) {
	return "uniswap", nil
}

func stubPriceReader(prices map[common.Address]*big.Int) PriceReader {
	return func(ctx context.Context, pool common.Address, variant domain.PoolVariant, blockNum *big.Int) (*big.Int, error) {
		return prices[pool], nil
	}
}

func baseTrade() domain.UserTradeParams {
	return domain.UserTradeParams{
		Pool:        userPool,
		PoolVariant: domain.V2,
		Price:       big.NewInt(2000),
		Tokens:      domain.TokenPair{WETH: testWETH, Token: testToken},
	}
}

func TestEnumerateBuysOnCheaperPool(t *testing.T) {
	trade := baseTrade()
	resolver := stubResolver{pool: altPool, dex: "sushiswap"}
	// User pool priced at 2000 (cheap), alt pool at 2100 (expensive):
	// buy on the user pool, sell on the alt pool.
	priceOf := stubPriceReader(map[common.Address]*big.Int{
		altPool: big.NewInt(2100),
	})

	route, err := Enumerate(context.Background(), resolver, priceOf, trade, big.NewInt(1))
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if route.StartPool != userPool {
		t.Fatalf("StartPool = %s, want the cheaper user pool %s", route.StartPool, userPool)
	}
	if route.EndPool != altPool {
		t.Fatalf("EndPool = %s, want the more expensive alt pool %s", route.EndPool, altPool)
	}
	if route.StartDEX != "uniswap" {
		t.Fatalf("StartDEX = %q, want uniswap (the user pool's DEX)", route.StartDEX)
	}
	if route.EndDEX != "sushiswap" {
		t.Fatalf("EndDEX = %q, want sushiswap (the alt pool's DEX)", route.EndDEX)
	}
}

func TestEnumerateBuysOnAltWhenCheaper(t *testing.T) {
	trade := baseTrade()
	trade.Price = big.NewInt(2200)
	resolver := stubResolver{pool: altPool}
	priceOf := stubPriceReader(map[common.Address]*big.Int{
		altPool: big.NewInt(2100),
	})

	route, err := Enumerate(context.Background(), resolver, priceOf, trade, big.NewInt(1))
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if route.StartPool != altPool {
		t.Fatalf("StartPool = %s, want the cheaper alt pool %s", route.StartPool, altPool)
	}
	if route.EndPool != userPool {
		t.Fatalf("EndPool = %s, want the more expensive user pool %s", route.EndPool, userPool)
	}
}

func TestEnumerateBuysOnUserPoolWhenToken0IsWETH(t *testing.T) {
	trade := baseTrade()
	trade.Token0IsWETH = true
	trade.Price = big.NewInt(2200)
	resolver := stubResolver{pool: altPool}
	// With token0 = WETH, a higher price means more counter-token per WETH,
	// so the higher-priced pool is the one to buy on, the opposite of the
	// token0-is-the-other-token case above.
	priceOf := stubPriceReader(map[common.Address]*big.Int{
		altPool: big.NewInt(2100),
	})

	route, err := Enumerate(context.Background(), resolver, priceOf, trade, big.NewInt(1))
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if route.StartPool != userPool {
		t.Fatalf("StartPool = %s, want the higher-priced user pool %s", route.StartPool, userPool)
	}
	if route.EndPool != altPool {
		t.Fatalf("EndPool = %s, want the lower-priced alt pool %s", route.EndPool, altPool)
	}
}

func TestEnumeratePropagatesResolverError(t *testing.T) {
	trade := baseTrade()
	wantErr := errResolverFailed
	resolver := stubResolver{err: wantErr}
	priceOf := stubPriceReader(nil)

	_, err := Enumerate(context.Background(), resolver, priceOf, trade, big.NewInt(1))
	if err != wantErr {
		t.Fatalf("Enumerate err = %v, want %v", err, wantErr)
	}
}
