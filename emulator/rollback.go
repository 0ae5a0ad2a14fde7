package emulator

import (
	"errors"

	"github.com/ezrec/m20/arith"
	"github.com/ezrec/m20/cpu"
)

// Rollback is the recovery of the program counter and instruction
// register after a failed instruction.
//
//go:generate go tool stringer -linecomment -type=Rollback
type Rollback int

const (
	ROLLBACK_NONE    = Rollback(iota) // none
	ROLLBACK_COUNTER                  // rollback counter
	ROLLBACK_RELOAD                   // reload instruction
)

var _rollback_policy = [...]struct {
	err      error
	rollback Rollback
}{
	{arith.ErrNegativeSqrt, ROLLBACK_COUNTER},
	{cpu.ErrCardBadSum, ROLLBACK_COUNTER},
	{cpu.ErrReadError, ROLLBACK_COUNTER},
	{cpu.ErrStop, ROLLBACK_COUNTER},
	{cpu.ErrTapeReadError, ROLLBACK_COUNTER},
	{cpu.ErrAssert, ROLLBACK_RELOAD},
	{cpu.ErrNoCard, ROLLBACK_RELOAD},
	{arith.ErrDivMantissaOverflow, ROLLBACK_RELOAD},
	{arith.ErrDivZero, ROLLBACK_RELOAD},
}

// RollbackOf returns the recovery for an execution status.
func RollbackOf(err error) (rb Rollback) {
	if err == nil {
		return
	}

	for _, policy := range _rollback_policy {
		if errors.Is(err, policy.err) {
			rb = policy.rollback
			return
		}
	}

	return
}

// rollback applies the recovery for an execution status, so that a
// resumed run executes the failing instruction again.
func (emu *Emulator) rollback(err error) {
	switch RollbackOf(err) {
	case ROLLBACK_COUNTER:
		if emu.KRA > 1 {
			emu.KRA--
		}
		emu.RK = emu.Memory.Peek(emu.KRA)
	case ROLLBACK_RELOAD:
		emu.RK = emu.Memory.Peek(emu.KRA - 1)
	}
}
