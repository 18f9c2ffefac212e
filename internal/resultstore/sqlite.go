// Package resultstore persists SimArbResults to SQLite, the batch driver's
// write-side counterpart to internal/statecache's read-side fork cache.
package resultstore

import (
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pulkyeet/hindsight-go/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS arb_results (
	tx_hash       TEXT PRIMARY KEY,
	block_number  INTEGER NOT NULL,
	pool          TEXT NOT NULL,
	token_in      TEXT NOT NULL,
	token_out     TEXT NOT NULL,
	start_pool    TEXT NOT NULL,
	start_variant INTEGER NOT NULL,
	end_pool      TEXT NOT NULL,
	end_variant   INTEGER NOT NULL,
	amount_in     TEXT NOT NULL,
	balance_end   TEXT NOT NULL,
	profit        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_arb_results_block ON arb_results(block_number);
`

// DB is a sqlite3-backed sink for results the batch driver produces.
type DB struct {
	db *sql.DB
}

// Open creates (or reuses) the results database at path and ensures its
// schema exists.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("resultstore: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("resultstore: enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("resultstore: create schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Save inserts one result, identified by the transaction hash it backran.
// A result for a hash already on disk is left untouched rather than
// overwritten, matching how the batch driver treats a re-processed window
// as idempotent.
func (d *DB) Save(txHash common.Hash, blockNumber uint64, result domain.SimArbResult) error {
	_, err := d.db.Exec(`
		INSERT OR IGNORE INTO arb_results
		(tx_hash, block_number, pool, token_in, token_out, start_pool, start_variant,
		 end_pool, end_variant, amount_in, balance_end, profit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		txHash.Hex(),
		blockNumber,
		result.UserTrade.Pool.Hex(),
		result.UserTrade.TokenIn.Hex(),
		result.UserTrade.TokenOut.Hex(),
		result.Backrun.StartPool.Hex(),
		int(result.Backrun.StartVariant),
		result.Backrun.EndPool.Hex(),
		int(result.Backrun.EndVariant),
		result.Backrun.AmountIn.String(),
		result.Backrun.BalanceEnd.String(),
		result.Backrun.Profit.String(),
	)
	return err
}

// SaveBatch persists every result in a single transaction, the way the
// batch driver hands off one processed window at a time.
func (d *DB) SaveBatch(blockNumber uint64, results map[common.Hash]domain.SimArbResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("resultstore: begin batch: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO arb_results
		(tx_hash, block_number, pool, token_in, token_out, start_pool, start_variant,
		 end_pool, end_variant, amount_in, balance_end, profit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("resultstore: prepare batch insert: %w", err)
	}
	defer stmt.Close()

	for hash, result := range results {
		_, err := stmt.Exec(
			hash.Hex(),
			blockNumber,
			result.UserTrade.Pool.Hex(),
			result.UserTrade.TokenIn.Hex(),
			result.UserTrade.TokenOut.Hex(),
			result.Backrun.StartPool.Hex(),
			int(result.Backrun.StartVariant),
			result.Backrun.EndPool.Hex(),
			int(result.Backrun.EndVariant),
			result.Backrun.AmountIn.String(),
			result.Backrun.BalanceEnd.String(),
			result.Backrun.Profit.String(),
		)
		if err != nil {
			return fmt.Errorf("resultstore: insert %s: %w", hash, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of results currently on disk.
func (d *DB) Count() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM arb_results").Scan(&n)
	return n, err
}
