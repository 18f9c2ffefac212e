package sandbox

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ControllerAddress is the fixed account every backrun is simulated from. It
// never needs a private key: the fork's state is mutated directly rather
// than signing real transactions, the same way the teacher's ArbExecutor
// pokes an executor account's balance and allowance slots before a dry run.
var ControllerAddress = common.HexToAddress("0x000000000000000000000000000000000baaaaab")

// wethBalanceSlot and wethAllowanceSlot are WETH9's canonical storage slots
// for balanceOf and allowance respectively.
const (
	wethBalanceSlot   = 3
	wethAllowanceSlot = 4
)

var maxApproval = func() *big.Int {
	v := new(big.Int).Lsh(big.NewInt(1), 256)
	return v.Sub(v, big.NewInt(1))
}()

// AttachBraindanceController funds ControllerAddress with startingBalance
// WETH (written directly into WETH's balanceOf mapping) and pre-approves
// every router the backrun legs might route through, so neither leg needs a
// real signed approval transaction first. ETH balance covers gas.
func AttachBraindanceController(fork *Fork, wethAddr common.Address, startingBalance *big.Int, routers []common.Address) {
	fork.SetBalance(ControllerAddress, new(big.Int).Mul(big.NewInt(1), big.NewInt(1e18)))

	balanceSlot := mappingSlot(ControllerAddress, wethBalanceSlot)
	fork.SetStorageAt(wethAddr, balanceSlot, common.BigToHash(startingBalance))

	for _, router := range routers {
		allowanceSlot := nestedMappingSlot(ControllerAddress, wethAllowanceSlot, router)
		fork.SetStorageAt(wethAddr, allowanceSlot, common.BigToHash(maxApproval))
	}
}

var allowanceABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(`[{
		"constant": true,
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}]`))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// candidateAllowanceSlots covers the allowances-mapping declaration slot of
// every common ERC-20 layout a backrun's counter-token leg might hit:
// OpenZeppelin's ERC20 (slot 1 in most compiler layouts once a name/symbol
// string precedes it, commonly landing anywhere up to slot 10 depending on
// how many fields the token adds before it), and the handful of
// hand-rolled layouts (e.g. WETH9, early Compound-style tokens) that push
// it further out.
var candidateAllowanceSlots = []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}

// ApproveTokenAuto pre-approves router to spend ControllerAddress's balance
// of token when the token's allowance-mapping slot isn't known in advance
// (unlike WETH, whose layout AttachBraindanceController already hardcodes).
// It writes each candidate slot in turn and calls allowance() through exec
// to confirm the write landed in the right place, clearing the guess before
// trying the next if it didn't. Returns false if no candidate worked, which
// callers can treat as "this leg will revert" rather than a hard failure.
func ApproveTokenAuto(fork *Fork, exec *Executor, token, router common.Address) bool {
	data, err := allowanceABI.Pack("allowance", ControllerAddress, router)
	if err != nil {
		return false
	}

	for _, slotIndex := range candidateAllowanceSlots {
		slot := nestedMappingSlot(ControllerAddress, slotIndex, router)
		fork.SetStorageAt(token, slot, common.BigToHash(maxApproval))

		result, err := exec.ExecuteCall(ControllerAddress, token, data, 100_000, bigZero)
		if err == nil && result.Success {
			out, unpackErr := allowanceABI.Unpack("allowance", result.ReturnData)
			if unpackErr == nil && len(out) == 1 {
				if got, ok := out[0].(*big.Int); ok && got.Cmp(maxApproval) == 0 {
					return true
				}
			}
		}

		fork.SetStorageAt(token, slot, common.Hash{})
	}
	return false
}

// SetTokenBalance writes ControllerAddress's balance of an arbitrary ERC-20
// directly into its balances mapping.
func SetTokenBalance(fork *Fork, token common.Address, balanceSlotIndex int64, amount *big.Int) {
	slot := mappingSlot(ControllerAddress, balanceSlotIndex)
	fork.SetStorageAt(token, slot, common.BigToHash(amount))
}

// WETHBalanceSlot returns the storage slot holding addr's WETH balance, for
// callers that need to read it back directly rather than via a balanceOf
// call.
func WETHBalanceSlot(addr common.Address) common.Hash {
	return mappingSlot(addr, wethBalanceSlot)
}

// mappingSlot computes the storage slot for mapping(address => T)[key] at
// the given declaration slot index.
func mappingSlot(key common.Address, slotIndex int64) common.Hash {
	return crypto.Keccak256Hash(
		append(common.LeftPadBytes(key.Bytes(), 32), common.LeftPadBytes(big.NewInt(slotIndex).Bytes(), 32)...),
	)
}

// nestedMappingSlot computes the slot for mapping(address => mapping(address => T))[outer][inner].
func nestedMappingSlot(outer common.Address, slotIndex int64, inner common.Address) common.Hash {
	innerMapSlot := mappingSlot(outer, slotIndex)
	return crypto.Keccak256Hash(
		append(common.LeftPadBytes(inner.Bytes(), 32), innerMapSlot.Bytes()...),
	)
}
