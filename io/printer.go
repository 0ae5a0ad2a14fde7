package io

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/ezrec/m20/cpu"
	"github.com/ezrec/m20/word"
)

// LinePrinter prints words of memory to a writer, one line per transfer.
type LinePrinter struct {
	Verbose bool
	Offline bool      // Set to switch the printer off line.
	Output  io.Writer // Printed lines, discarded if nil.
}

var _ cpu.Peripheral = (*LinePrinter)(nil)

// Active is true when the printer is on line.
func (lp *LinePrinter) Active() bool {
	return !lp.Offline
}

// Text decodes a word as six 7-bit characters, most significant first.
// Control characters are dropped.
func Text(w word.Word) string {
	var text strings.Builder
	for n := 5; n >= 0; n-- {
		c := byte(w>>(7*n)) & 0177
		if c >= ' ' && c < 0177 {
			text.WriteByte(c)
		}
	}
	return text.String()
}

// format returns the printed form of a word.
func format(w word.Word, pt cpu.PrintType) string {
	switch pt {
	case cpu.PRINT_OCTAL:
		return fmt.Sprintf("%015o", uint64(w))
	case cpu.PRINT_TEXT:
		return Text(w)
	default:
		return fmt.Sprintf("% .10e", w.Float())
	}
}

// Transfer prints the words of memory. A transfer which also punches
// continues the previous line.
func (lp *LinePrinter) Transfer(mem cpu.Store, xfer cpu.Transfer) (result cpu.Result, err error) {
	if xfer.NoMemory() {
		return
	}

	words := fetch(mem, xfer)
	result.Codes = len(words)

	var line []string
	for _, w := range words {
		line = append(line, format(w, xfer.PrintType))
	}

	sep := " "
	if xfer.PrintType == cpu.PRINT_TEXT {
		sep = ""
	}

	text := strings.Join(line, sep)
	if !xfer.AddOnly {
		text += "\n"
	}

	out := lp.Output
	if out == nil {
		out = io.Discard
	}
	_, err = io.WriteString(out, text)

	if lp.Verbose {
		log.Printf("printer: %v %d words", xfer.PrintType, result.Codes)
	}

	return
}
