package resultstore

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/hindsight-go/internal/domain"
)

func sampleResult() domain.SimArbResult {
	pool := common.HexToAddress("0x1")
	token := common.HexToAddress("0x2")
	return domain.SimArbResult{
		UserTrade: domain.UserTradeParams{
			Pool:     pool,
			TokenIn:  token,
			TokenOut: pool,
		},
		Backrun: domain.BackrunResult{
			AmountIn:   big.NewInt(1_000000000000000000),
			BalanceEnd: big.NewInt(1_050000000000000000),
			Profit:     big.NewInt(50_000000000000000),
			StartPool:  pool,
			EndPool:    token,
		},
	}
}

func TestSaveAndCount(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	hash := common.HexToHash("0xabc")
	if err := db.Save(hash, 100, sampleResult()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	count, err := db.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("Count = %d, want 1", count)
	}

	// Re-saving the same hash is a no-op, not a duplicate row.
	if err := db.Save(hash, 100, sampleResult()); err != nil {
		t.Fatalf("Save (duplicate): %v", err)
	}
	count, err = db.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Fatalf("Count after duplicate save = %d, want 1", count)
	}
}

func TestSaveBatch(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "results.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	batch := map[common.Hash]domain.SimArbResult{
		common.HexToHash("0x1"): sampleResult(),
		common.HexToHash("0x2"): sampleResult(),
	}
	if err := db.SaveBatch(200, batch); err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	count, err := db.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 2 {
		t.Fatalf("Count = %d, want 2", count)
	}
}
