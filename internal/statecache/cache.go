// Package statecache persists forked-state reads (balances, nonces, code,
// storage slots) across process runs, keyed by block number, so repeated
// backtests against the same block range don't re-fetch from the archive
// node every time.
package statecache

import (
	"database/sql"
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/mattn/go-sqlite3"
)

// schema is embedded rather than read from disk: a relative schema.sql path
// only resolves when the binary runs from the repo root, which breaks the
// moment a cmd/ binary is invoked from elsewhere.
const schema = `
CREATE TABLE IF NOT EXISTS account_state (
	block_number INTEGER NOT NULL,
	address      TEXT NOT NULL,
	balance      TEXT,
	nonce        INTEGER,
	code         BLOB,
	PRIMARY KEY (block_number, address)
);

CREATE TABLE IF NOT EXISTS storage_state (
	block_number INTEGER NOT NULL,
	address      TEXT NOT NULL,
	slot         TEXT NOT NULL,
	value        TEXT NOT NULL,
	PRIMARY KEY (block_number, address, slot)
);
`

// DB is a sqlite-backed cache of account and storage reads.
type DB struct {
	db *sql.DB
}

// Open creates (if needed) and opens the cache database at dbPath.
func Open(dbPath string) (*DB, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("statecache: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("statecache: open: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("statecache: enable WAL: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("statecache: init schema: %w", err)
	}

	return &DB{db: db}, nil
}

func (c *DB) Close() error {
	return c.db.Close()
}

func (c *DB) GetBalance(blockNumber uint64, addr common.Address) (*big.Int, bool) {
	var balanceStr string
	err := c.db.QueryRow(
		"SELECT balance FROM account_state WHERE block_number=? AND address=? AND balance IS NOT NULL",
		blockNumber, addr.Hex(),
	).Scan(&balanceStr)
	if err != nil {
		return nil, false
	}
	balance, ok := new(big.Int).SetString(balanceStr, 10)
	if !ok {
		return nil, false
	}
	return balance, true
}

func (c *DB) SetBalance(blockNumber uint64, addr common.Address, balance *big.Int) error {
	_, err := c.db.Exec(
		"INSERT INTO account_state (block_number, address, balance) VALUES (?, ?, ?) "+
			"ON CONFLICT(block_number, address) DO UPDATE SET balance=excluded.balance",
		blockNumber, addr.Hex(), balance.String(),
	)
	return err
}

func (c *DB) GetNonce(blockNumber uint64, addr common.Address) (uint64, bool) {
	var nonce sql.NullInt64
	err := c.db.QueryRow(
		"SELECT nonce FROM account_state WHERE block_number=? AND address=?",
		blockNumber, addr.Hex(),
	).Scan(&nonce)
	if err != nil || !nonce.Valid {
		return 0, false
	}
	return uint64(nonce.Int64), true
}

func (c *DB) SetNonce(blockNumber uint64, addr common.Address, nonce uint64) error {
	_, err := c.db.Exec(
		"INSERT INTO account_state (block_number, address, nonce) VALUES (?, ?, ?) "+
			"ON CONFLICT(block_number, address) DO UPDATE SET nonce=excluded.nonce",
		blockNumber, addr.Hex(), nonce,
	)
	return err
}

func (c *DB) GetCode(blockNumber uint64, addr common.Address) ([]byte, bool) {
	var code []byte
	err := c.db.QueryRow(
		"SELECT code FROM account_state WHERE block_number=? AND address=? AND code IS NOT NULL",
		blockNumber, addr.Hex(),
	).Scan(&code)
	if err != nil {
		return nil, false
	}
	return code, true
}

func (c *DB) SetCode(blockNumber uint64, addr common.Address, code []byte) error {
	_, err := c.db.Exec(
		"INSERT INTO account_state (block_number, address, code) VALUES (?, ?, ?) "+
			"ON CONFLICT(block_number, address) DO UPDATE SET code=excluded.code",
		blockNumber, addr.Hex(), code,
	)
	return err
}

func (c *DB) GetStorage(blockNumber uint64, addr common.Address, slot common.Hash) (common.Hash, bool) {
	var valueHex string
	err := c.db.QueryRow(
		"SELECT value FROM storage_state WHERE block_number=? AND address=? AND slot=?",
		blockNumber, addr.Hex(), slot.Hex(),
	).Scan(&valueHex)
	if err != nil {
		return common.Hash{}, false
	}
	return common.HexToHash(valueHex), true
}

func (c *DB) SetStorage(blockNumber uint64, addr common.Address, slot, value common.Hash) error {
	_, err := c.db.Exec(
		"INSERT OR REPLACE INTO storage_state (block_number, address, slot, value) VALUES (?, ?, ?, ?)",
		blockNumber, addr.Hex(), slot.Hex(), value.Hex(),
	)
	return err
}

// AccountData batches an account's full known state for BatchSetAccounts.
type AccountData struct {
	Address common.Address
	Balance *big.Int
	Nonce   uint64
	Code    []byte
}

func (c *DB) BatchSetAccounts(blockNumber uint64, accounts []AccountData) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT OR REPLACE INTO account_state (block_number, address, balance, nonce, code) VALUES (?,?,?,?,?)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, acc := range accounts {
		if _, err := stmt.Exec(blockNumber, acc.Address.Hex(), acc.Balance.String(), acc.Nonce, acc.Code); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// StorageData batches a single slot write for BatchSetStorage.
type StorageData struct {
	Address common.Address
	Slot    common.Hash
	Value   common.Hash
}

func (c *DB) BatchSetStorage(blockNumber uint64, storage []StorageData) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		"INSERT OR REPLACE INTO storage_state (block_number, address, slot, value) VALUES (?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range storage {
		if _, err := stmt.Exec(blockNumber, s.Address.Hex(), s.Slot.Hex(), s.Value.Hex()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (c *DB) GetStats() (map[string]int64, error) {
	stats := make(map[string]int64)

	var count int64
	if err := c.db.QueryRow("SELECT COUNT(*) FROM account_state").Scan(&count); err != nil {
		return nil, err
	}
	stats["account_entries"] = count

	if err := c.db.QueryRow("SELECT COUNT(*) FROM storage_state").Scan(&count); err != nil {
		return nil, err
	}
	stats["storage_entries"] = count

	return stats, nil
}
