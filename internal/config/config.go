// Package config loads the simulator's runtime settings from the
// environment, the same way the original project's godotenv-based setup did.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything the batch driver and its collaborators need to
// start running: where to reach the chain, and where to persist state.
type Config struct {
	// RPCURL is the archive-node endpoint used for all forked-state reads.
	RPCURL string
	// CacheDBPath is the sqlite file backing the read-through RPC state cache.
	// Load defaults it to statecache.db when CACHE_DB_PATH is unset.
	CacheDBPath string
	// ResultsDBPath is the sqlite file results are persisted to.
	ResultsDBPath string
}

// Load reads .env (if present) and then the process environment, the same
// precedence godotenv.Load gives the original client constructor.
func Load() (*Config, error) {
	godotenv.Load()

	url := os.Getenv("RPC_URL_WS")
	if url == "" {
		return nil, fmt.Errorf("RPC_URL_WS not set in .env")
	}

	cfg := &Config{
		RPCURL:        url,
		CacheDBPath:   os.Getenv("CACHE_DB_PATH"),
		ResultsDBPath: os.Getenv("RESULTS_DB_PATH"),
	}
	if cfg.CacheDBPath == "" {
		cfg.CacheDBPath = "statecache.db"
	}
	if cfg.ResultsDBPath == "" {
		cfg.ResultsDBPath = "results.db"
	}
	return cfg, nil
}
