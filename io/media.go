package io

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/ezrec/m20/cpu"
	"github.com/ezrec/m20/word"
)

// fetch reads the words of a transfer from memory.
func fetch(mem cpu.Store, xfer cpu.Transfer) (words []word.Word) {
	words = make([]word.Word, xfer.Words())
	for n := range words {
		words[n] = mem.Load(xfer.Start + uint16(n))
	}
	return
}

// deposit writes words to memory from the start of a transfer. Read-only
// locations are skipped.
func deposit(mem cpu.Store, xfer cpu.Transfer, words []word.Word) {
	for n, w := range words {
		_ = mem.Store(xfer.Start+uint16(n), w)
	}
}

// checksum is the cyclic sum of the words, or zero when checking is
// disabled for the transfer.
func checksum(xfer cpu.Transfer, words []word.Word) (sum word.Word) {
	if xfer.NoChecksum() {
		return
	}

	for _, w := range words {
		sum = word.CyclicSum(sum, w)
	}
	return
}

// garbage is true if any of the words is wider than 45 bits.
func garbage(words []word.Word) bool {
	return slices.ContainsFunc(words, word.Word.Garbage)
}

// scanMedia calls line for the fields of each non-blank line of a media
// file. Comments start with ';'.
func scanMedia(name string, r io.Reader, line func(fields []string) error) (err error) {
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		text, _, _ := strings.Cut(scanner.Text(), ";")
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		err = line(fields)
		if err != nil {
			err = &ErrMedia{Name: name, LineNo: lineno, Err: err}
			return
		}
	}

	err = scanner.Err()
	return
}

// parseOctal parses an octal field of a media file.
func parseOctal(text string, bits int) (value uint64, err error) {
	value, err = strconv.ParseUint(text, 8, bits)
	if err != nil {
		err = errors.Join(ErrMediaSyntax, err)
	}
	return
}

// writeWords writes each non-zero word as an address and octal word line.
func writeWords(w io.Writer, words []word.Word) (err error) {
	for addr, value := range words {
		if value == 0 {
			continue
		}
		_, err = fmt.Fprintf(w, "%04o %015o\n", addr, uint64(value))
		if err != nil {
			return
		}
	}
	return
}

// readWord parses an address and octal word line into words.
func readWord(words []word.Word, fields []string) (err error) {
	if len(fields) != 2 {
		err = ErrMediaSyntax
		return
	}

	addr, err := parseOctal(fields[0], 12)
	if err != nil {
		return
	}
	if int(addr) >= len(words) {
		err = ErrZoneRange
		return
	}

	value, err := parseOctal(fields[1], 64)
	if err != nil {
		return
	}

	words[addr] = word.Word(value)
	return
}

// createMedia creates a media file on a file system and writes it.
func createMedia(filesys CreateFS, name string, write func(w io.Writer) error) (err error) {
	file, err := filesys.Create(name)
	if err != nil {
		return
	}

	err = write(file)
	if err != nil {
		file.Close()
		return
	}

	err = file.Close()
	return
}

// walkMedia calls load for each file matching the pattern, with the unit
// number from the first part of the name.
func walkMedia(filesys fs.FS, pattern *regexp.Regexp, load func(unit int, path string, r io.Reader) error) (err error) {
	return fs.WalkDir(filesys, ".", func(path string, d fs.DirEntry, err_in error) (err error) {
		if err_in != nil {
			err = err_in
			return
		}
		if d.IsDir() || !pattern.MatchString(d.Name()) {
			return
		}

		prefix, _, _ := strings.Cut(d.Name(), ".")
		unit, err := strconv.Atoi(prefix)
		if err != nil {
			return
		}

		file, err := filesys.Open(path)
		if err != nil {
			return
		}
		defer file.Close()

		err = load(unit, path, file)
		return
	})
}
