package io

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/m20/cpu"
	"github.com/ezrec/m20/word"
)

func TestDeckUnmarshal(t *testing.T) {
	assert := assert.New(t)

	text := strings.Join([]string{
		"; boot deck",
		"card stop sum=7",
		"1",
		"2",
		"3",
		"card control",
		"0101600000000000",
	}, "\n")

	deck := &Deck{}
	err := deck.Unmarshal("boot.deck", strings.NewReader(text))
	assert.NoError(err)
	assert.Equal([]Card{
		{Words: []word.Word{1, 2, 3}, Sum: 7, HasSum: true, Stop: true},
		{Words: []word.Word{0101600000000000}, Control: true},
	}, deck.Cards)
}

func TestDeckUnmarshalErrors(t *testing.T) {
	table := [...]struct {
		text   string
		lineno int
	}{
		{text: "1\n", lineno: 1},
		{text: "card\ncard bogus\n", lineno: 2},
		{text: "card sum=9\n", lineno: 1},
		{text: "card\n1 2\n", lineno: 2},
		{text: "card\n\n8\n", lineno: 3},
	}

	for n, entry := range table {
		assert := assert.New(t)

		deck := &Deck{}
		err := deck.Unmarshal("bad.deck", strings.NewReader(entry.text))
		assert.ErrorIs(err, ErrMediaSyntax, n)
		var em *ErrMedia
		if assert.ErrorAs(err, &em, n) {
			assert.Equal(entry.lineno, em.LineNo, n)
		}
	}
}

func TestDeckReadCard(t *testing.T) {
	assert := assert.New(t)

	deck := &Deck{Cards: []Card{
		{Words: []word.Word{1, 2, 3}, Sum: 7, HasSum: true, Stop: true},
		{Words: []word.Word{4}, Control: true},
	}}
	mem := newMemory(nil)

	card, err := deck.ReadCard(mem, 0100, 0, 0)
	assert.NoError(err)
	assert.Equal(cpu.Card{Sum: 6, Recorded: 7, Codes: 3, StopBlocking: true}, card)
	assert.Equal([]word.Word{1, 2, 3}, mem.Words[0100:0103])

	card, err = deck.ReadCard(mem, 0200, 0, 0)
	assert.NoError(err)
	assert.Equal(cpu.Card{Sum: 4, Recorded: 4, Codes: 1, ControlBlocking: true}, card)
	assert.Equal(word.Word(4), mem.Words[0200])

	_, err = deck.ReadCard(mem, 0200, 0, 0)
	assert.ErrorIs(err, cpu.ErrNoCard)
}

func TestCardPunch(t *testing.T) {
	assert := assert.New(t)

	var out bytes.Buffer
	punch := &CardPunch{Output: &out}
	assert.True(punch.Active())

	mem := newMemory(map[uint16]word.Word{0100: 1, 0101: 2})

	result, err := punch.Transfer(mem, cpu.Transfer{Op: cpu.EXT_PUNCH, Start: 0100, End: 0101})
	assert.NoError(err)
	assert.Equal(2, result.Codes)
	assert.Equal(word.Word(3), result.Sum)
	assert.Equal("card sum=000000000000003\n000000000000001\n000000000000002\n", out.String())

	// Added to the previous card.
	result, err = punch.Transfer(mem, cpu.Transfer{Op: cpu.EXT_PUNCH | cpu.EXT_PRINT, Start: 0100, End: 0100, AddOnly: true})
	assert.NoError(err)
	assert.Equal(1, result.Codes)

	// Punched cards read back in.
	deck := &Deck{}
	err = deck.Unmarshal("punch", &out)
	assert.NoError(err)
	assert.Equal([]Card{{Words: []word.Word{1, 2, 1}, Sum: 3, HasSum: true}}, deck.Cards)

	// Blank cards.
	out.Reset()
	result, err = punch.Transfer(mem, cpu.Transfer{Op: cpu.EXT_PUNCH | cpu.EXT_DIS_RAM, Start: 0100, End: 0101})
	assert.NoError(err)
	assert.Equal(2, result.Codes)
	assert.Equal(word.Word(0), result.Sum)

	punch.Offline = true
	assert.False(punch.Active())
}
