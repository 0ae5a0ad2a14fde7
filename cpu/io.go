package cpu

import (
	"log"

	"github.com/ezrec/m20/word"
)

// Conditional number bits of an I/O setup.
const (
	EXT_UNIT        = uint16(00003) // Drum or tape unit.
	EXT_TAPE_FORMAT = uint16(00004) // Format tape.
	EXT_TAPE        = uint16(00010) // Tape transfer.
	EXT_DRUM        = uint16(00020) // Drum transfer.
	EXT_WRITE       = uint16(00040) // Write to the device, else read.
	EXT_TAPE_REV    = uint16(00100) // Tape in reverse.
	EXT_DIS_STOP    = uint16(00200) // Continue on read error. Octal print.
	EXT_DIS_CHECK   = uint16(00400) // Disable checksum.
	EXT_DIS_RAM     = uint16(01000) // Disable memory access.
	EXT_PRINT       = uint16(02000) // Line printer.
	EXT_PUNCH       = uint16(04000) // Card punch.

	EXT_NONE = uint16(07777) // No setup since reset.
)

// PrintType is the format of line printer output.
//
//go:generate go tool stringer -linecomment -type=PrintType
type PrintType int

const (
	PRINT_DECIMAL = PrintType(iota) // decimal
	PRINT_OCTAL                     // octal
	PRINT_TEXT                      // text
)

// Store is the memory seen by a device.
type Store interface {
	Load(addr uint16) word.Word
	Store(addr uint16, w word.Word) error
}

// Transfer is the latched I/O descriptor handed to a device.
type Transfer struct {
	Op    uint16 // Conditional number.
	Zone  uint16 // Device zone, or print buffer address.
	Start uint16 // First memory address.
	End   uint16 // Last memory address.

	AddOnly   bool      // Punch and print were both requested.
	PrintType PrintType // Printer output format.
}

// Has is true if any of the conditional number bits are set.
func (xfer Transfer) Has(bits uint16) bool {
	return xfer.Op&bits != 0
}

// Unit returns the selected drum or tape unit.
func (xfer Transfer) Unit() int {
	return int(xfer.Op & EXT_UNIT)
}

// Write is true for transfers from memory to the device.
func (xfer Transfer) Write() bool {
	return xfer.Has(EXT_WRITE)
}

// NoMemory is true when memory is not to be accessed.
func (xfer Transfer) NoMemory() bool {
	return xfer.Has(EXT_DIS_RAM)
}

// NoChecksum is true when the checksum is disabled.
func (xfer Transfer) NoChecksum() bool {
	return xfer.Has(EXT_DIS_CHECK)
}

// Words returns the count of memory words in the transfer.
func (xfer Transfer) Words() int {
	if xfer.End < xfer.Start {
		return 0
	}
	return int(xfer.End-xfer.Start) + 1
}

// Result of a device transfer.
type Result struct {
	Codes int       // Count of codes transferred.
	Sum   word.Word // Checksum of the transfer.
}

// Device is an external store or output device.
type Device interface {
	Transfer(mem Store, xfer Transfer) (result Result, err error)
}

// Peripheral is an output device which may be switched off line.
type Peripheral interface {
	Device
	Active() bool
}

// Card is the status of a card reader operation.
type Card struct {
	Sum             word.Word // Sum of the codes read.
	Recorded        word.Word // Checksum recorded on the deck.
	Codes           int       // Count of codes read.
	StopBlocking    bool      // Stop blocking, jump to A2.
	ControlBlocking bool      // Control blocking, skip the checksum test.
}

// CardReader reads a card into memory. Addresses are the A1, A2 and A3
// fields of the read instruction.
type CardReader interface {
	ReadCard(mem Store, a1, a2, a3 uint16) (card Card, err error)
}

// Devices attached to the processor. Any may be nil.
type Devices struct {
	Reader    CardReader
	Punch     Peripheral
	Printer   Peripheral
	Drum      Device
	Tape      Device
	Formatter Device
}

func active(p Peripheral) bool {
	return p != nil && p.Active()
}

// ioSetup latches and validates an I/O descriptor.
func (cpu *Cpu) ioSetup(a1, a2, a3 uint16) (err error) {
	cpu.Transfer = Transfer{Op: a1, Zone: a2, End: a3}
	xfer := cpu.Transfer

	switch {
	case xfer.Has(EXT_PUNCH):
		if xfer.Has(EXT_DRUM | EXT_TAPE | EXT_TAPE_FORMAT) {
			err = ErrPunchBadBits
		}
	case xfer.Has(EXT_PRINT):
		if xfer.Has(EXT_DRUM | EXT_TAPE | EXT_TAPE_FORMAT) {
			err = ErrPrintBadBits
		}
	case xfer.Has(EXT_DRUM):
		if xfer.Has(EXT_TAPE | EXT_TAPE_FORMAT | EXT_PRINT | EXT_PUNCH) {
			err = ErrDrumBadBits
		}
	case xfer.Has(EXT_TAPE):
		if xfer.Has(EXT_DRUM | EXT_TAPE_FORMAT | EXT_PRINT | EXT_PUNCH) {
			err = ErrTapeBadBits
		}
	case xfer.Has(EXT_TAPE_FORMAT):
		if xfer.Has(EXT_DRUM | EXT_TAPE | EXT_PRINT | EXT_PUNCH) {
			err = ErrFormatBadBits
		}
	}

	return
}

// ioExecute runs the latched transfer starting at memory address a1.
func (cpu *Cpu) ioExecute(a1 uint16) (sum word.Word, err error) {
	xfer := cpu.Transfer
	xfer.Start = a1
	dev := &cpu.Devices

	var result Result
	var delay float64

	punch := xfer.Has(EXT_PUNCH)
	if punch && xfer.Has(EXT_PRINT) {
		if !active(dev.Punch) && !active(dev.Printer) {
			err = ErrNotReadyPunch
			return
		}
		// With the punch off line, only print.
		punch = active(dev.Punch)
		xfer.AddOnly = true
	}

	switch {
	case punch:
		if !active(dev.Punch) {
			err = ErrNotReadyPunch
			return
		}
		result, err = dev.Punch.Transfer(cpu.Memory, xfer)
		delay = 100000 * float64(result.Codes)
		sum = result.Sum
	case xfer.Has(EXT_PRINT):
		xfer.PrintType = PRINT_DECIMAL
		if xfer.Has(EXT_DIS_STOP) {
			xfer.PrintType = PRINT_OCTAL
		}
		if cpu.PrintText && xfer.Has(EXT_TAPE_REV) {
			xfer.PrintType = PRINT_TEXT
		}
		if !active(dev.Printer) {
			err = ErrNotReadyPrint
			return
		}
		result, err = dev.Printer.Transfer(cpu.Memory, xfer)
		delay = 50000 * float64(result.Codes)
	case xfer.Has(EXT_DRUM):
		if dev.Drum == nil {
			err = ErrDeviceMissing
			return
		}
		result, err = dev.Drum.Transfer(cpu.Memory, xfer)
		delay = 40000 + float64(result.Codes)/6400
		sum = result.Sum
	case xfer.Has(EXT_TAPE):
		if dev.Tape == nil {
			err = ErrDeviceMissing
			return
		}
		result, err = dev.Tape.Transfer(cpu.Memory, xfer)
		delay = 75000 + float64(result.Codes)/2500
		sum = result.Sum
	case xfer.Has(EXT_TAPE_FORMAT):
		if dev.Formatter == nil {
			err = ErrDeviceMissing
			return
		}
		result, err = dev.Formatter.Transfer(cpu.Memory, xfer)
		delay = 75000 + float64(result.Codes)/2500
		sum = result.Sum
	}

	cpu.Delay += delay

	if cpu.Verbose {
		log.Printf("cpu: i/o %04o zone %04o memory %04o-%04o codes %d sum %v: %v",
			xfer.Op, xfer.Zone, xfer.Start, xfer.End, result.Codes, sum, err)
	}

	return
}

// readCard reads a card, for opcodes 010 and 030.
func (cpu *Cpu) readCard(a1, a2, a3 uint16) (card Card, err error) {
	if cpu.Devices.Reader == nil {
		err = ErrNoCard
		return
	}

	card, err = cpu.Devices.Reader.ReadCard(cpu.Memory, a1, a2, a3)
	if err != nil {
		return
	}

	cpu.Delay += 50000 * float64(card.Codes)

	if cpu.Verbose {
		log.Printf("cpu: card codes %d sum %v recorded %v", card.Codes, card.Sum, card.Recorded)
	}

	return
}
