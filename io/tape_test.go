package io

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/m20/cpu"
	"github.com/ezrec/m20/word"
)

func TestTapeFormat(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{}
	codes := tape.Format(0, 1, 2)
	assert.Equal(2*TAPE_ZONE_WORDS, codes)
	assert.Len(tape.Units[0], 2)
	assert.Len(tape.Units[0][1], TAPE_ZONE_WORDS)
	assert.Nil(tape.Units[1])
}

func TestTapeTransfer(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{ZoneWords: 4}
	mem := newMemory(map[uint16]word.Word{0100: 1, 0101: 2, 0102: 3, 0103: 4, 0104: 5})

	_, err := tape.Transfer(mem, cpu.Transfer{Op: cpu.EXT_TAPE, Zone: 1, Start: 0200, End: 0200})
	assert.ErrorIs(err, cpu.ErrTapeReadError)

	tape.Format(0, 1, 1)

	result, err := tape.Transfer(mem, cpu.Transfer{Op: cpu.EXT_TAPE | cpu.EXT_WRITE, Zone: 1, Start: 0100, End: 0103})
	assert.NoError(err)
	assert.Equal(4, result.Codes)
	assert.Equal(word.Word(10), result.Sum)
	assert.Equal([]word.Word{1, 2, 3, 4}, tape.Units[0][1])

	_, err = tape.Transfer(mem, cpu.Transfer{Op: cpu.EXT_TAPE | cpu.EXT_WRITE, Zone: 1, Start: 0100, End: 0104})
	assert.ErrorIs(err, ErrZoneRange)

	result, err = tape.Transfer(mem, cpu.Transfer{Op: cpu.EXT_TAPE, Zone: 1, Start: 0200, End: 0202})
	assert.NoError(err)
	assert.Equal(3, result.Codes)
	assert.Equal(word.Word(6), result.Sum)
	assert.Equal([]word.Word{1, 2, 3}, mem.Words[0200:0203])

	result, err = tape.Transfer(mem, cpu.Transfer{Op: cpu.EXT_TAPE | cpu.EXT_TAPE_REV, Zone: 1, Start: 0300, End: 0301})
	assert.NoError(err)
	assert.Equal(word.Word(7), result.Sum)
	assert.Equal([]word.Word{4, 3}, mem.Words[0300:0302])

	_, err = tape.Transfer(mem, cpu.Transfer{Op: cpu.EXT_TAPE, Zone: 1, Start: 0200, End: 0204})
	assert.ErrorIs(err, cpu.ErrTapeReadError)

	// Sum only, memory untouched.
	result, err = tape.Transfer(mem, cpu.Transfer{Op: cpu.EXT_TAPE | cpu.EXT_DIS_RAM, Zone: 1, Start: 0400, End: 0403})
	assert.NoError(err)
	assert.Equal(word.Word(10), result.Sum)
	assert.Equal(word.Word(0), mem.Words[0400])

	tape.Units[0][1][0] = 1 << 46
	_, err = tape.Transfer(mem, cpu.Transfer{Op: cpu.EXT_TAPE, Zone: 1, Start: 0500, End: 0501})
	assert.ErrorIs(err, cpu.ErrReadError)
	assert.Equal(word.Word(0), mem.Words[0500])
}

func TestTapeFormatter(t *testing.T) {
	assert := assert.New(t)

	mem := newMemory(nil)

	tf := &TapeFormatter{}
	_, err := tf.Transfer(mem, cpu.Transfer{Op: cpu.EXT_TAPE_FORMAT, Start: 1, End: 2})
	assert.ErrorIs(err, cpu.ErrDeviceMissing)

	tf.Tape = &Tape{ZoneWords: 8}
	result, err := tf.Transfer(mem, cpu.Transfer{Op: cpu.EXT_TAPE_FORMAT | 2, Start: 3, End: 5})
	assert.NoError(err)
	assert.Equal(24, result.Codes)
	assert.Len(tf.Tape.Units[2], 3)
	assert.Contains(tf.Tape.Units[2], uint16(5))

	result, err = tf.Transfer(mem, cpu.Transfer{Op: cpu.EXT_TAPE_FORMAT | 2, Start: 5, End: 3})
	assert.NoError(err)
	assert.Equal(0, result.Codes)
}

func TestTapeMarshal(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{}
	tape.Units[1] = Zones{
		2: {0, 5, 0, 0101600000000000},
		7: {1},
	}

	filesys := newMapFS()
	err := tape.Marshal(filesys)
	assert.NoError(err)
	assert.Contains(filesys.files, "1.tape")
	assert.Len(filesys.files, 1)

	loaded := &Tape{}
	err = loaded.Unmarshal(filesys.files)
	assert.NoError(err)
	assert.Equal(tape.Units, loaded.Units)
}
