package io

import (
	"fmt"
	"io"
	"io/fs"
	"iter"
	"log"
	"maps"
	"regexp"
	"strconv"

	"github.com/ezrec/m20/cpu"
	"github.com/ezrec/m20/word"
)

const (
	DRUM_UNITS = 4    // Drums on the channel.
	DRUM_WORDS = 4096 // Words on a drum.
)

var _drum_defines = map[string]string{
	"DRUM_UNITS": strconv.Itoa(DRUM_UNITS),
	"DRUM_WORDS": strconv.Itoa(DRUM_WORDS),
}

var _drum_name = regexp.MustCompile(`^[0-3]\.drum$`)

// Drum is a set of magnetic drums. The zone of a transfer is the first
// drum address. A word on the drum wider than 45 bits is a read error.
type Drum struct {
	Verbose bool
	Units   [DRUM_UNITS][]word.Word // Contents, nil for a blank drum.
}

var _ cpu.Device = (*Drum)(nil)

// Defines returns the drum geometry, for the loader.
func (drum *Drum) Defines() iter.Seq2[string, string] {
	return maps.All(_drum_defines)
}

func (drum *Drum) unit(n int) []word.Word {
	if drum.Units[n] == nil {
		drum.Units[n] = make([]word.Word, DRUM_WORDS)
	}
	return drum.Units[n]
}

// Transfer moves words between memory and a drum. With memory access
// disabled the drum is only summed.
func (drum *Drum) Transfer(mem cpu.Store, xfer cpu.Transfer) (result cpu.Result, err error) {
	count := xfer.Words()
	first := int(xfer.Zone)
	if first+count > DRUM_WORDS {
		err = ErrZoneRange
		return
	}

	span := drum.unit(xfer.Unit())[first : first+count]

	switch {
	case xfer.NoMemory():
	case xfer.Write():
		copy(span, fetch(mem, xfer))
	default:
		if garbage(span) {
			err = cpu.ErrReadError
			break
		}
		deposit(mem, xfer, span)
	}

	result.Codes = count
	result.Sum = checksum(xfer, span)

	if drum.Verbose {
		log.Printf("drum: unit %d %04o+%d write %v sum %v: %v",
			xfer.Unit(), first, count, xfer.Write(), result.Sum, err)
	}

	return
}

// Unmarshal loads drums from a file system, from files named N.drum.
func (drum *Drum) Unmarshal(filesys fs.FS) (err error) {
	return walkMedia(filesys, _drum_name, func(unit int, path string, r io.Reader) (err error) {
		words := make([]word.Word, DRUM_WORDS)
		err = scanMedia(path, r, func(fields []string) error {
			return readWord(words, fields)
		})
		if err != nil {
			return
		}

		drum.Units[unit] = words
		return
	})
}

// Marshal writes each drum in use to a file named N.drum.
func (drum *Drum) Marshal(filesys CreateFS) (err error) {
	for n, words := range drum.Units {
		if words == nil {
			continue
		}

		err = createMedia(filesys, fmt.Sprintf("%d.drum", n), func(w io.Writer) error {
			return writeWords(w, words)
		})
		if err != nil {
			return
		}
	}

	return
}
