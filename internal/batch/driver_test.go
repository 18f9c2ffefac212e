package batch

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/hindsight-go/internal/chain"
)

func TestNewDriverWiresCollaborators(t *testing.T) {
	client := &chain.Client{}
	finder := chain.NewPoolFinder(client)
	weth := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")

	d := NewDriver(client, finder, nil, nil, weth)
	if d.client != client {
		t.Fatal("NewDriver did not retain the given client")
	}
	if d.weth != weth {
		t.Fatalf("NewDriver weth = %s, want %s", d.weth, weth)
	}
}

func TestMaxConcurrentTxIsPositive(t *testing.T) {
	if maxConcurrentTx <= 0 {
		t.Fatal("maxConcurrentTx must be positive to bound the errgroup limit")
	}
}
