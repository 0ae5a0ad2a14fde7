package cpu

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/m20/arith"
	"github.com/ezrec/m20/memory"
	"github.com/ezrec/m20/word"
)

// expected are the errors an instruction may fail with on a machine
// with no devices attached.
var expected = []error{
	ErrStop,
	ErrAssert,
	ErrInvalidArgument,
	ErrIoMissingSetup,
	ErrPunchBadBits,
	ErrPrintBadBits,
	ErrDrumBadBits,
	ErrTapeBadBits,
	ErrFormatBadBits,
	ErrNotReadyPunch,
	ErrNotReadyPrint,
	ErrDeviceMissing,
	ErrNoCard,
	arith.ErrAddOverflow,
	arith.ErrMulOverflow,
	arith.ErrDivOverflow,
	arith.ErrDivMantissaOverflow,
	arith.ErrDivZero,
	arith.ErrNegativeSqrt,
	arith.ErrSqrt,
	arith.ErrExpOverflow,
}

func FuzzCpu(f *testing.F) {
	for op := range OPCODE_COUNT {
		f.Add(uint64(word.NewInstruction(0, op, 1, 2, 3)), uint16(0), false, int64(op))
		f.Add(uint64(word.NewInstruction(7, op, 07777, 0, 07770)), uint16(010), true, int64(op))
	}

	f.Fuzz(func(t *testing.T, rk uint64, ra uint16, sw bool, seed int64) {
		assert := assert.New(t)

		cpu, mem := newCpu(memory.MODE_I)
		cpu.Arith = arith.New(arith.Config{ExactAdd: seed&1 != 0, ExactMultiply: seed&2 != 0})

		rng := rand.New(rand.NewSource(seed))
		for addr := 1; addr < memory.SIZE; addr++ {
			mem.Words[addr] = word.Word(rng.Uint64()) & word.MASK
		}

		cpu.RK = word.Word(rk) & word.MASK
		cpu.RA = ra & memory.ADDR_MASK
		cpu.KRA = 0100
		cpu.SW = sw

		err := cpu.Execute()
		state := fmt.Sprintf("rk %v seed %d\n%v", cpu.RK.Instruction(), seed, cpu.String())

		if err != nil {
			assert.ErrorIs(err, ErrOpcode(0), state)

			known := false
			for _, match := range expected {
				if errors.Is(err, match) {
					known = true
					break
				}
			}
			assert.True(known, "%v: %v", state, err)
		}

		assert.False(cpu.RR.Garbage(), state)
		assert.LessOrEqual(cpu.KRA, uint16(memory.ADDR_MASK), state)
		assert.LessOrEqual(cpu.RA, uint16(memory.ADDR_MASK), state)
		assert.Equal(word.Word(0), mem.Words[0], state)
	})
}
