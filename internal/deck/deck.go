package deck

import (
	"errors"

	"github.com/bokk3/gamble-fun-sub001/internal/fairness"
)

// ErrEmpty is returned when a deal is requested from an exhausted deck.
var ErrEmpty = errors.New("deck: no cards remaining")

// Deck is an ordered sequence of 52 unique cards, consumed from the front.
// The shuffle order is a deterministic function of the fairness stream, so a
// hand can be replayed and audited from its revealed seeds.
type Deck struct {
	cards []Card
}

// New builds the 52-card set in canonical order and shuffles it with
// Fisher-Yates, drawing the swap index at each position from the stream.
// Identical seeds and starting nonce always produce the same order.
func New(stream *fairness.Stream) *Deck {
	d := &Deck{cards: orderedCards()}
	d.shuffle(stream)
	return d
}

// orderedCards returns all 52 cards in canonical suit-then-rank order.
func orderedCards() []Card {
	cards := make([]Card, 0, 52)
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			cards = append(cards, NewCard(suit, rank))
		}
	}
	return cards
}

func (d *Deck) shuffle(stream *fairness.Stream) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := int(stream.Next() * float64(i+1))
		if j > i {
			j = i // guard against rounding at the upper edge
		}
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Rigged builds a deck with an explicit card order. Used by tests and by the
// fairness verifier when replaying a revealed shuffle.
func Rigged(cards []Card) *Deck {
	return &Deck{cards: cards}
}

// Deal removes and returns the top card.
func (d *Deck) Deal() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmpty
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

// DealN deals exactly n cards or fails without consuming any.
func (d *Deck) DealN(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, ErrEmpty
	}
	cards := make([]Card, n)
	copy(cards, d.cards[:n])
	d.cards = d.cards[n:]
	return cards, nil
}

// Remaining returns the number of cards left.
func (d *Deck) Remaining() int {
	return len(d.cards)
}

// Cards returns the current order of the remaining cards. The caller must
// not mutate the returned slice.
func (d *Deck) Cards() []Card {
	return d.cards
}
