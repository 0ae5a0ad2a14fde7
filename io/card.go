package io

import (
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/ezrec/m20/cpu"
	"github.com/ezrec/m20/word"
)

// Card is a punched card of words.
type Card struct {
	Words   []word.Word // Contents.
	Sum     word.Word   // Recorded checksum.
	HasSum  bool        // Set if Sum was recorded, otherwise the card sums correctly.
	Stop    bool        // Stop blocking.
	Control bool        // Control blocking.
}

// Deck is a card reader loaded with a deck of cards. Each card is read
// into memory starting at A1 of the read instruction.
type Deck struct {
	Verbose bool
	Cards   []Card
}

var _ cpu.CardReader = (*Deck)(nil)

// ReadCard reads the next card of the deck.
func (deck *Deck) ReadCard(mem cpu.Store, a1, a2, a3 uint16) (card cpu.Card, err error) {
	if len(deck.Cards) == 0 {
		err = cpu.ErrNoCard
		return
	}

	next := deck.Cards[0]
	deck.Cards = deck.Cards[1:]

	xfer := cpu.Transfer{Start: a1, End: a1 + uint16(len(next.Words)) - 1}
	deposit(mem, xfer, next.Words)

	card.Codes = len(next.Words)
	card.Sum = checksum(xfer, next.Words)
	card.Recorded = card.Sum
	if next.HasSum {
		card.Recorded = next.Sum
	}
	card.StopBlocking = next.Stop
	card.ControlBlocking = next.Control

	if deck.Verbose {
		log.Printf("card: read %d words at %04o sum %v recorded %v", card.Codes, a1, card.Sum, card.Recorded)
	}

	return
}

// Unmarshal appends the cards of a deck file to the deck. Each card begins
// with a line 'card', optionally followed by 'stop', 'control' and
// 'sum=N', and continues with one octal word per line.
func (deck *Deck) Unmarshal(name string, r io.Reader) (err error) {
	var card *Card

	err = scanMedia(name, r, func(fields []string) (err error) {
		if fields[0] == "card" {
			deck.Cards = append(deck.Cards, Card{})
			card = &deck.Cards[len(deck.Cards)-1]
			for _, field := range fields[1:] {
				switch {
				case field == "stop":
					card.Stop = true
				case field == "control":
					card.Control = true
				case strings.HasPrefix(field, "sum="):
					var sum uint64
					sum, err = parseOctal(strings.TrimPrefix(field, "sum="), 45)
					if err != nil {
						return
					}
					card.Sum = word.Word(sum)
					card.HasSum = true
				default:
					err = ErrMediaSyntax
					return
				}
			}
			return
		}

		if card == nil || len(fields) != 1 {
			err = ErrMediaSyntax
			return
		}

		value, err := parseOctal(fields[0], 64)
		if err != nil {
			return
		}
		card.Words = append(card.Words, word.Word(value))
		return
	})

	return
}

// CardPunch punches cards to a writer, in the deck file format.
type CardPunch struct {
	Verbose bool
	Offline bool      // Set to switch the punch off line.
	Output  io.Writer // Punched cards, discarded if nil.
}

var _ cpu.Peripheral = (*CardPunch)(nil)

// Active is true when the punch is on line.
func (cp *CardPunch) Active() bool {
	return !cp.Offline
}

// Transfer punches the words of memory. A transfer which also prints
// adds its words to the previous card.
func (cp *CardPunch) Transfer(mem cpu.Store, xfer cpu.Transfer) (result cpu.Result, err error) {
	words := make([]word.Word, xfer.Words())
	if !xfer.NoMemory() {
		words = fetch(mem, xfer)
	}

	result.Codes = len(words)
	result.Sum = checksum(xfer, words)

	out := cp.Output
	if out == nil {
		out = io.Discard
	}

	if !xfer.AddOnly {
		_, err = fmt.Fprintf(out, "card sum=%015o\n", uint64(result.Sum))
		if err != nil {
			return
		}
	}
	for _, w := range words {
		_, err = fmt.Fprintf(out, "%015o\n", uint64(w))
		if err != nil {
			return
		}
	}

	if cp.Verbose {
		log.Printf("punch: %d words sum %v", result.Codes, result.Sum)
	}

	return
}
