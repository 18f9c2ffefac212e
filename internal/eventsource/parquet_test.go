package eventsource

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestEventLogRowTopicsStopsAtFirstEmpty(t *testing.T) {
	row := EventLogRow{
		TxHash:     "0x1",
		LogAddress: "0x2",
		Topic0:     "0xaaaa000000000000000000000000000000000000000000000000000000000a",
		Topic1:     "",
		Topic2:     "0xbbbb000000000000000000000000000000000000000000000000000000000b",
	}

	topics := row.topics()
	if len(topics) != 1 {
		t.Fatalf("topics = %v, want exactly 1 (stop at first empty)", topics)
	}
	if topics[0] != common.HexToHash(row.Topic0) {
		t.Fatalf("topics[0] = %s, want %s", topics[0], row.Topic0)
	}
}

func TestAsEventLogRowAcceptsValueAndPointer(t *testing.T) {
	row := EventLogRow{TxHash: "0xdead"}

	got, ok := asEventLogRow(row)
	if !ok || got.TxHash != "0xdead" {
		t.Fatalf("asEventLogRow(value) = %+v, %v", got, ok)
	}

	got, ok = asEventLogRow(&row)
	if !ok || got.TxHash != "0xdead" {
		t.Fatalf("asEventLogRow(pointer) = %+v, %v", got, ok)
	}

	_, ok = asEventLogRow("not a row")
	if ok {
		t.Fatal("expected asEventLogRow to reject an unrelated type")
	}
}
