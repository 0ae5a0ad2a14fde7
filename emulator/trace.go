package emulator

import (
	"log"

	"github.com/ezrec/m20/cpu"
	"github.com/ezrec/m20/word"
)

// Snapshot is the processor state on one side of an instruction.
type Snapshot struct {
	KRA     uint16          // Program counter.
	RK      word.Word       // Instruction register.
	Ins     cpu.Instruction // Instruction decoded before execution.
	RA      uint16          // Index register.
	SW      bool            // Condition flag.
	RR      word.Word       // Result register.
	Operand [3]word.Word    // Storage at A1, A2 and A3.
}

// snapshot captures the processor state, with the operands of an
// instruction.
func (emu *Emulator) snapshot(ins cpu.Instruction) (snap Snapshot) {
	snap = Snapshot{
		KRA: emu.KRA,
		RK:  emu.RK,
		Ins: ins,
		RA:  emu.RA,
		SW:  emu.SW,
		RR:  emu.RR,
	}
	for n, addr := range []uint16{ins.A1, ins.A2, ins.A3} {
		snap.Operand[n] = emu.Memory.Peek(addr)
	}
	return
}

// Tracer observes each instruction executed.
type Tracer interface {
	// Before is called with the state before execution.
	Before(before Snapshot)
	// After is called with the states before and after execution.
	After(before, after Snapshot)
}

// Span is a range of addresses.
type Span struct {
	First uint16
	Last  uint16
}

// Contains is true if the address is in the span.
func (span Span) Contains(addr uint16) bool {
	return addr >= span.First && addr <= span.Last
}

// LogTracer logs each instruction, and optionally the registers and the
// operands with their changes marked by '*'.
type LogTracer struct {
	Logger    *log.Logger // Output, log.Default() if nil.
	Registers bool        // Log the registers.
	Memory    bool        // Log the operands.
	Quiet     []Span      // Instructions which are not logged.
}

var _ Tracer = (*LogTracer)(nil)

func (lt *LogTracer) logger() *log.Logger {
	if lt.Logger == nil {
		return log.Default()
	}
	return lt.Logger
}

func (lt *LogTracer) quiet(addr uint16) bool {
	for _, span := range lt.Quiet {
		if span.Contains(addr) {
			return true
		}
	}
	return false
}

func mark(changed bool) byte {
	if changed {
		return '*'
	}
	return '-'
}

func flag(sw bool) int {
	if sw {
		return 1
	}
	return 0
}

func (lt *LogTracer) Before(before Snapshot) {
	if lt.quiet(before.KRA) {
		return
	}

	logger := lt.logger()
	logger.Printf("cpu: %04o: %v", before.KRA, cpu.Decode(before.RK, 0))
	if lt.Registers {
		logger.Printf("cpu: [dreg]: ra=%04o,  sw=%d,  rr=%v", before.RA, flag(before.SW), before.RR)
	}
	if lt.Memory {
		ins := before.Ins
		logger.Printf("cpu: [dmem]: a1[%04o]=%v,  a2[%04o]=%v,  a3[%04o]=%v",
			ins.A1, before.Operand[0], ins.A2, before.Operand[1], ins.A3, before.Operand[2])
	}
}

func (lt *LogTracer) After(before, after Snapshot) {
	if lt.quiet(before.KRA) {
		return
	}

	logger := lt.logger()
	if lt.Registers {
		logger.Printf("cpu: [dreg]: ra=%04o%c, sw=%d%c, rr=%v%c",
			after.RA, mark(after.RA != before.RA),
			flag(after.SW), mark(after.SW != before.SW),
			after.RR, mark(after.RR != before.RR))
	}
	if lt.Memory {
		ins := before.Ins
		var marks [3]byte
		for n := range marks {
			marks[n] = mark(after.Operand[n] != before.Operand[n])
		}
		logger.Printf("cpu: [dmem]: a1[%04o%c]=%v, a2[%04o%c]=%v, a3[%04o%c]=%v",
			ins.A1, marks[0], after.Operand[0],
			ins.A2, marks[1], after.Operand[1],
			ins.A3, marks[2], after.Operand[2])
	}
}
