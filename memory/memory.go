// Package memory implements the M-20 main store (MOSU), with the
// Mode II register overlay of the top eight addresses.
package memory

import (
	"errors"
	"iter"
	"log"
	"maps"
	"strconv"

	"github.com/ezrec/m20/translate"
	"github.com/ezrec/m20/word"
)

var f = translate.From

var (
	ErrReadOnly    = errors.New(f("write to read-only memory location"))
	ErrNonExistent = errors.New(f("non-existent memory address"))
)

const (
	SIZE      = 4096          // Words of storage.
	ADDR_MASK = SIZE - 1      // Address mask.
	OVERLAY   = uint16(07770) // First overlaid address in Mode II.

	ADDR_ZERO = uint16(07770) // Reads as zero.
	ADDR_RPU1 = uint16(07771) // Console switch register 1.
	ADDR_RPU2 = uint16(07772) // Console switch register 2.
	ADDR_RPU3 = uint16(07773) // Console switch register 3.
	ADDR_RPU4 = uint16(07774) // Console switch register 4.
	ADDR_RR   = uint16(07775) // Result register.
	ADDR_RA   = uint16(07776) // Index register, ITEP only.
	ADDR_RK   = uint16(07777) // Instruction register, ITEP only.
)

// Mode selects the layout of the top of memory.
type Mode int

const (
	MODE_I  = Mode(1) // Plain storage.
	MODE_II = Mode(2) // Register overlay.
)

func (m Mode) String() string {
	switch m {
	case MODE_I:
		return "I"
	case MODE_II:
		return "II"
	}
	return f("mode(%d)", int(m))
}

// Registers is the processor state reachable through the overlay.
type Registers interface {
	// Switch returns console switch register n, 1 to 4.
	Switch(n int) word.Word
	// Result returns the result register.
	Result() word.Word
	// Index returns the index register.
	Index() uint16
	// SetIndex sets the index register.
	SetIndex(ra uint16)
	// Irregular loads the instruction register and executes it.
	Irregular(rk word.Word) error
}

// Memory is the main store.
type Memory struct {
	Verbose   bool
	Mode      Mode      // Overlay mode.
	Itep      bool      // ITEP sub-mode of Mode II.
	Registers Registers // Overlaid registers, may be nil in Mode I.

	Words [SIZE]word.Word // Backing storage.
}

// Defines returns the overlay addresses, for the loader.
func (mem *Memory) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"ADDR_ZERO": strconv.Itoa(int(ADDR_ZERO)),
		"ADDR_RPU1": strconv.Itoa(int(ADDR_RPU1)),
		"ADDR_RPU2": strconv.Itoa(int(ADDR_RPU2)),
		"ADDR_RPU3": strconv.Itoa(int(ADDR_RPU3)),
		"ADDR_RPU4": strconv.Itoa(int(ADDR_RPU4)),
		"ADDR_RR":   strconv.Itoa(int(ADDR_RR)),
		"ADDR_RA":   strconv.Itoa(int(ADDR_RA)),
		"ADDR_RK":   strconv.Itoa(int(ADDR_RK)),
		"MEM_SIZE":  strconv.Itoa(SIZE),
	})
}

func (mem *Memory) overlaid(addr uint16) bool {
	return mem.Mode == MODE_II && addr >= OVERLAY && mem.Registers != nil
}

// overlay returns the value of an overlaid address.
func (mem *Memory) overlay(addr uint16, itep bool) (w word.Word, ok bool) {
	regs := mem.Registers
	ok = true

	switch addr {
	case ADDR_ZERO:
		w = 0
	case ADDR_RPU1, ADDR_RPU2, ADDR_RPU3, ADDR_RPU4:
		w = regs.Switch(int(addr-ADDR_ZERO)) & word.MASK
	case ADDR_RR:
		w = regs.Result()
	case ADDR_RA:
		if itep {
			w = word.Word(regs.Index()) << 12
		}
	case ADDR_RK:
		if itep {
			// The instruction register is not readable.
			ok = false
		}
	}

	return
}

// Load reads a word. The address is masked to the store, and address
// zero always reads as zero.
func (mem *Memory) Load(addr uint16) (w word.Word) {
	addr &= ADDR_MASK
	if addr == 0 {
		return
	}

	if mem.overlaid(addr) {
		var ok bool
		w, ok = mem.overlay(addr, mem.Itep)
		if ok {
			return
		}
	}

	w = mem.Words[addr]
	return
}

// Store writes a word. Address zero and the overlay registers are
// read-only, and ErrReadOnly is returned for them with memory unchanged.
// In ITEP the index register is written through its overlay address,
// and a write to the instruction register executes the word at once.
func (mem *Memory) Store(addr uint16, w word.Word) (err error) {
	addr &= ADDR_MASK

	if addr == 0 {
		err = ErrReadOnly
		return
	}

	if mem.overlaid(addr) {
		if !mem.Itep {
			err = ErrReadOnly
			return
		}
		switch addr {
		case ADDR_RA:
			mem.Registers.SetIndex(uint16(w>>12) & ADDR_MASK)
		case ADDR_RK:
			if mem.Verbose {
				log.Printf("memory: irregular %v", w.Instruction())
			}
			// Execution status of the irregular instruction is not reported.
			_ = mem.Registers.Irregular(w)
		default:
			err = ErrReadOnly
		}
		return
	}

	mem.Words[addr] = w
	return
}

// Peek reads backing storage, bypassing the overlay.
func (mem *Memory) Peek(addr uint16) word.Word {
	return mem.Words[addr&ADDR_MASK]
}

// Examine reads a word for a debugger. In Mode II the index and
// instruction register addresses read as zero.
func (mem *Memory) Examine(addr int) (w word.Word, err error) {
	if addr < 0 || addr >= SIZE {
		err = ErrNonExistent
		return
	}

	a := uint16(addr)
	w = mem.Words[a]
	if mem.overlaid(a) {
		w, _ = mem.overlay(a, false)
	}

	return
}

// Deposit writes a word for a debugger or loader.
func (mem *Memory) Deposit(addr int, w word.Word) (err error) {
	if addr < 0 || addr >= SIZE {
		err = ErrNonExistent
		return
	}

	a := uint16(addr)
	if a == 0 {
		err = ErrReadOnly
		return
	}

	if mem.Mode == MODE_II && a >= OVERLAY {
		switch a {
		case ADDR_RA:
			if mem.Itep && mem.Registers != nil {
				mem.Registers.SetIndex(uint16(w>>12) & ADDR_MASK)
				return
			}
			// Outside of ITEP the backing word is written.
		default:
			err = ErrReadOnly
			return
		}
	}

	mem.Words[a] = w
	return
}

// Clear zeros all of the backing storage.
func (mem *Memory) Clear() {
	clear(mem.Words[:])
}
