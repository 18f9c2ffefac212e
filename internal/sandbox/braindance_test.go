package sandbox

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestAllowanceABIPacksOwnerAndSpender(t *testing.T) {
	owner := common.HexToAddress("0x0000000000000000000000000000000000000001")
	spender := common.HexToAddress("0x0000000000000000000000000000000000000002")

	data, err := allowanceABI.Pack("allowance", owner, spender)
	if err != nil {
		t.Fatalf("pack allowance: %v", err)
	}
	if len(data) != 4+32*2 {
		t.Fatalf("unexpected calldata length: %d", len(data))
	}
}

func TestNestedMappingSlotVariesBySlotIndex(t *testing.T) {
	router := common.HexToAddress("0x0000000000000000000000000000000000000003")

	seen := make(map[common.Hash]bool)
	for _, slotIndex := range candidateAllowanceSlots {
		slot := nestedMappingSlot(ControllerAddress, slotIndex, router)
		if seen[slot] {
			t.Fatalf("slot index %d collided with a previous candidate", slotIndex)
		}
		seen[slot] = true
	}
}
