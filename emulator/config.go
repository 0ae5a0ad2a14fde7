package emulator

import (
	"github.com/ezrec/m20/arith"
	"github.com/ezrec/m20/memory"
	"github.com/ezrec/m20/word"
)

// Config of an emulator. The zero value is a plain Mode I machine with
// the legacy arithmetic.
type Config struct {
	Verbose bool

	Arith        arith.Config // Arithmetic family per operation.
	Mode         memory.Mode  // Memory mode, MODE_I if zero.
	Itep         bool         // ITEP sub-mode of Mode II.
	MemoryCheck  bool         // Fail on words wider than 45 bits.
	BlankingLoop bool         // Opcode 040 is a loop instruction.
	PrintText    bool         // Allow text line printer output.

	Switches [4]word.Word // Console switch registers.
	Start    uint16       // Initial program counter.
	Boot     bool         // Boot from the card reader.

	ServiceInterval int  // Ticks between calls of the service hook.
	Profile         bool // Keep opcode statistics.
}
