package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrDeckExhausted is returned when a draw asks for more cards than
// remain. Hand sizes keep this unreachable in practice, so seeing it
// indicates a logic defect rather than a recoverable condition.
var ErrDeckExhausted = errors.New("deck exhausted")

// Deck is an ordered set of the 52 distinct cards. A deck belongs to
// exactly one table for the duration of a hand; drawn cards are never
// returned.
type Deck struct {
	cards []Card
}

// NewShuffled builds a full 52-card deck in a pseudo-random
// permutation using the supplied source.
func NewShuffled(rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	return d
}

// Draw removes and returns the top n cards.
func (d *Deck) Draw(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, ErrDeckExhausted
	}
	drawn := d.cards[:n]
	d.cards = d.cards[n:]
	return drawn, nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}
