package io

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"

	"github.com/ezrec/m20/cpu"
	"github.com/ezrec/m20/word"
)

const (
	TAPE_UNITS      = 4   // Tape drives on the channel.
	TAPE_ZONE_WORDS = 256 // Default words in a formatted zone.
)

var _tape_defines = map[string]string{
	"TAPE_UNITS":      strconv.Itoa(TAPE_UNITS),
	"TAPE_ZONE_WORDS": strconv.Itoa(TAPE_ZONE_WORDS),
}

var _tape_name = regexp.MustCompile(`^[0-3]\.tape$`)

// Zones of a tape, by zone number.
type Zones map[uint16][]word.Word

// Tape is a set of magnetic tape drives. A tape holds numbered zones laid
// down by the formatter. The zone of a transfer is the zone number, and a
// zone which was never formatted is a tape read error.
type Tape struct {
	Verbose   bool
	ZoneWords int // Words in a formatted zone, TAPE_ZONE_WORDS if zero.
	Units     [TAPE_UNITS]Zones
}

var _ cpu.Device = (*Tape)(nil)

// Defines returns the tape geometry, for the loader.
func (tape *Tape) Defines() iter.Seq2[string, string] {
	return maps.All(_tape_defines)
}

func (tape *Tape) zoneWords() int {
	if tape.ZoneWords == 0 {
		return TAPE_ZONE_WORDS
	}
	return tape.ZoneWords
}

// Format lays down zones first through last on a unit, erasing them.
// It returns the count of words formatted.
func (tape *Tape) Format(unit int, first, last uint16) (codes int) {
	if tape.Units[unit] == nil {
		tape.Units[unit] = Zones{}
	}

	for zone := int(first); zone <= int(last); zone++ {
		tape.Units[unit][uint16(zone)] = make([]word.Word, tape.zoneWords())
		codes += tape.zoneWords()
	}

	if tape.Verbose {
		log.Printf("tape: unit %d format %04o-%04o", unit, first, last)
	}

	return
}

// Transfer moves words between memory and a zone of a tape. Reverse
// transfers read the zone from its last word. With memory access disabled
// the zone is only summed.
func (tape *Tape) Transfer(mem cpu.Store, xfer cpu.Transfer) (result cpu.Result, err error) {
	count := xfer.Words()

	block, ok := tape.Units[xfer.Unit()][xfer.Zone]
	if !ok {
		err = cpu.ErrTapeReadError
		return
	}

	var words []word.Word

	switch {
	case xfer.Write():
		if count > tape.zoneWords() {
			err = ErrZoneRange
			return
		}
		words = fetch(mem, xfer)
		if xfer.NoMemory() {
			words = block
			break
		}
		tape.Units[xfer.Unit()][xfer.Zone] = words
	default:
		if count > len(block) {
			err = cpu.ErrTapeReadError
			return
		}
		words = slices.Clone(block[:count])
		if xfer.Has(cpu.EXT_TAPE_REV) {
			words = slices.Clone(block[len(block)-count:])
			slices.Reverse(words)
		}
		if garbage(words) {
			err = cpu.ErrReadError
			break
		}
		if !xfer.NoMemory() {
			deposit(mem, xfer, words)
		}
	}

	result.Codes = count
	result.Sum = checksum(xfer, words)

	if tape.Verbose {
		log.Printf("tape: unit %d zone %04o+%d write %v sum %v: %v",
			xfer.Unit(), xfer.Zone, count, xfer.Write(), result.Sum, err)
	}

	return
}

// Unmarshal loads tapes from a file system, from files named N.tape.
func (tape *Tape) Unmarshal(filesys fs.FS) (err error) {
	return walkMedia(filesys, _tape_name, func(unit int, path string, r io.Reader) (err error) {
		zones := Zones{}
		var block []word.Word

		err = scanMedia(path, r, func(fields []string) (err error) {
			if fields[0] == "zone" {
				if len(fields) != 3 {
					return ErrMediaSyntax
				}
				zone, err := parseOctal(fields[1], 12)
				if err != nil {
					return err
				}
				size, err := strconv.Atoi(fields[2])
				if err != nil {
					return errors.Join(ErrMediaSyntax, err)
				}
				block = make([]word.Word, size)
				zones[uint16(zone)] = block
				return nil
			}
			if block == nil {
				return ErrMediaSyntax
			}
			return readWord(block, fields)
		})
		if err != nil {
			return
		}

		tape.Units[unit] = zones
		return
	})
}

// Marshal writes each tape in use to a file named N.tape.
func (tape *Tape) Marshal(filesys CreateFS) (err error) {
	for n, zones := range tape.Units {
		if zones == nil {
			continue
		}

		err = createMedia(filesys, fmt.Sprintf("%d.tape", n), func(w io.Writer) (err error) {
			for _, zone := range slices.Sorted(maps.Keys(zones)) {
				block := zones[zone]
				_, err = fmt.Fprintf(w, "zone %04o %d\n", zone, len(block))
				if err != nil {
					return
				}
				err = writeWords(w, block)
				if err != nil {
					return
				}
			}
			return
		})
		if err != nil {
			return
		}
	}

	return
}

// TapeFormatter lays down zones on a tape. The first and last memory
// addresses of a transfer are the first and last zone numbers.
type TapeFormatter struct {
	Tape *Tape
}

var _ cpu.Device = (*TapeFormatter)(nil)

func (tf *TapeFormatter) Transfer(mem cpu.Store, xfer cpu.Transfer) (result cpu.Result, err error) {
	if tf.Tape == nil {
		err = cpu.ErrDeviceMissing
		return
	}

	if xfer.End < xfer.Start {
		return
	}

	result.Codes = tf.Tape.Format(xfer.Unit(), xfer.Start, xfer.End)
	return
}
