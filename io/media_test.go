package io

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/m20/memory"
	"github.com/ezrec/m20/word"
)

// mapFS is a CreateFS over a map of files.
type mapFS struct {
	files  fstest.MapFS
	prefix string
}

func newMapFS() *mapFS {
	return &mapFS{files: fstest.MapFS{}}
}

func (mf *mapFS) Sub(name string) (sub CreateFS, err error) {
	sub = &mapFS{files: mf.files, prefix: path.Join(mf.prefix, name)}
	return
}

func (mf *mapFS) Create(name string) (file io.WriteCloser, err error) {
	file = &mapFile{files: mf.files, name: path.Join(mf.prefix, name)}
	return
}

func (mf *mapFS) Mkdir(name string, filemode fs.FileMode) (err error) {
	mf.files[path.Join(mf.prefix, name)] = &fstest.MapFile{Mode: fs.ModeDir | filemode}
	return
}

type mapFile struct {
	bytes.Buffer
	files fstest.MapFS
	name  string
}

func (mf *mapFile) Close() (err error) {
	mf.files[mf.name] = &fstest.MapFile{Data: mf.Bytes()}
	return
}

func newMemory(words map[uint16]word.Word) (mem *memory.Memory) {
	mem = &memory.Memory{Mode: memory.MODE_I}
	for addr, w := range words {
		mem.Words[addr] = w
	}
	return
}

func TestScanMedia(t *testing.T) {
	assert := assert.New(t)

	text := strings.Join([]string{
		"; header",
		"",
		"a b ; trailing",
		"   c",
	}, "\n")

	var lines [][]string
	err := scanMedia("test", strings.NewReader(text), func(fields []string) error {
		lines = append(lines, fields)
		return nil
	})
	assert.NoError(err)
	assert.Equal([][]string{{"a", "b"}, {"c"}}, lines)

	err = scanMedia("test", strings.NewReader(text), func(fields []string) error {
		if fields[0] == "c" {
			return ErrMediaSyntax
		}
		return nil
	})
	assert.ErrorIs(err, ErrMediaSyntax)
	var em *ErrMedia
	if assert.ErrorAs(err, &em) {
		assert.Equal("test", em.Name)
		assert.Equal(4, em.LineNo)
	}
}

func TestReadWord(t *testing.T) {
	table := [...]struct {
		fields []string
		addr   int
		value  word.Word
		err    error
	}{
		{fields: []string{"0010", "0101600000000000"}, addr: 010, value: 0101600000000000},
		{fields: []string{"7", "1"}, addr: 7, value: 1},
		{fields: []string{"0010"}, err: ErrMediaSyntax},
		{fields: []string{"0019", "1"}, err: ErrMediaSyntax},
		{fields: []string{"0020", "1"}, err: ErrZoneRange},
	}

	for n, entry := range table {
		assert := assert.New(t)

		words := make([]word.Word, 020)
		err := readWord(words, entry.fields)
		if entry.err != nil {
			assert.ErrorIs(err, entry.err, n)
			continue
		}
		assert.NoError(err, n)
		assert.Equal(entry.value, words[entry.addr], n)
	}
}

func TestWriteWords(t *testing.T) {
	assert := assert.New(t)

	var out bytes.Buffer
	err := writeWords(&out, []word.Word{0, 1, 0, 0101600000000000})
	assert.NoError(err)
	assert.Equal("0001 000000000000001\n0003 101600000000000\n", out.String())
}
