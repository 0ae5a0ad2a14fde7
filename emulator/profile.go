package emulator

import (
	"fmt"
	"strings"

	"github.com/ezrec/m20/cpu"
)

// Stat is the use of one opcode.
type Stat struct {
	Count int     // Instructions executed.
	Time  float64 // Accumulated time, in microseconds.
}

// Average returns the mean instruction time.
func (st Stat) Average() float64 {
	if st.Count == 0 {
		return 0
	}
	return st.Time / float64(st.Count)
}

// Profile of instruction time, by opcode.
type Profile [cpu.OPCODE_COUNT]Stat

// Add an instruction to the profile.
func (prof *Profile) Add(op cpu.Opcode, time float64) {
	prof[op].Count++
	prof[op].Time += time
}

// Total returns the use of all opcodes.
func (prof *Profile) Total() (total Stat) {
	for _, st := range prof {
		total.Count += st.Count
		total.Time += st.Time
	}
	return
}

// String returns the profile as a table of the opcodes used.
func (prof *Profile) String() string {
	var text strings.Builder

	text.WriteString("*** Command time profile stat ***\n")
	for n, st := range prof {
		if st.Count == 0 {
			continue
		}
		fmt.Fprintf(&text, "opcode=%02o   count=%-9d  times=%-15.2f  avg_time=%-15.2f   (%v)\n",
			n, st.Count, st.Time, st.Average(), cpu.Opcode(n))
	}

	total := prof.Total()
	fmt.Fprintf(&text, "Summary:  times=%.2f  count=%d  avg_time=%.2f\n", total.Time, total.Count, total.Average())
	text.WriteString("**********\n")

	return text.String()
}
