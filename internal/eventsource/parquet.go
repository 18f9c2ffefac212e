// Package eventsource supplies the event-history hints a derivation pass
// needs to find which log in a landed transaction's receipt is its swap:
// for each historical transaction, the addresses and topics of the logs it
// emitted, without the full decoded event data receipt lookup already
// provides.
package eventsource

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/pulkyeet/hindsight-go/internal/domain"
)

// EventLogRow is one log row in the archive: one row per (tx, log) pair,
// topics flattened into up to four columns the way a single EVM log's
// topic list naturally bounds (topic0 is the event signature; topics 1-3
// are indexed event args). Columns beyond a log's own topic count are
// empty strings.
type EventLogRow struct {
	TxHash      string
	LogAddress  string
	Topic0      string
	Topic1      string
	Topic2      string
	Topic3      string
}

func (r EventLogRow) topics() []common.Hash {
	topics := make([]common.Hash, 0, 4)
	for _, raw := range []string{r.Topic0, r.Topic1, r.Topic2, r.Topic3} {
		if raw == "" {
			break
		}
		topics = append(topics, common.HexToHash(raw))
	}
	return topics
}

// batchSize matches the teacher's mempool-parquet ingestion batch width.
const batchSize = 1000

// Load reads every row of the Parquet-backed log archive at path and groups
// them by transaction hash into EventHistory records, the shape
// internal/params.Derive expects as its hint.
func Load(path string) (map[common.Hash]domain.EventHistory, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, fmt.Errorf("eventsource: open %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(EventLogRow), 4)
	if err != nil {
		return nil, fmt.Errorf("eventsource: new parquet reader: %w", err)
	}
	defer pr.ReadStop()

	histories := make(map[common.Hash]domain.EventHistory)
	numRows := int(pr.GetNumRows())

	for i := 0; i < numRows; i += batchSize {
		toRead := batchSize
		if i+toRead > numRows {
			toRead = numRows - i
		}

		rawRows, err := pr.ReadByNumber(toRead)
		if err != nil {
			return nil, fmt.Errorf("eventsource: read batch at row %d: %w", i, err)
		}
		if len(rawRows) == 0 {
			break
		}

		for _, raw := range rawRows {
			row, ok := asEventLogRow(raw)
			if !ok {
				continue
			}

			hash := common.HexToHash(row.TxHash)
			hint := histories[hash]
			hint.Hash = hash
			hint.Logs = append(hint.Logs, domain.EventHintLog{
				Address: common.HexToAddress(row.LogAddress),
				Topics:  row.topics(),
			})
			histories[hash] = hint
		}
	}

	return histories, nil
}

func asEventLogRow(raw interface{}) (EventLogRow, bool) {
	if row, ok := raw.(EventLogRow); ok {
		return row, true
	}
	if row, ok := raw.(*EventLogRow); ok {
		return *row, true
	}
	return EventLogRow{}, false
}

