package table

import "github.com/Rekiiel/Poker/internal/deck"

// Player is one seat at a table. The stack persists across hands; hole
// cards and contributions are per-hand state.
type Player struct {
	ID        string
	Chips     int
	HoleCards []deck.Card
	InHand    bool
	RoundBet  int // contribution in the current betting round
	HandBet   int // total contribution in the current hand, for pot layering
	Ready     bool
}

// CanAct reports whether the player can take a betting action: still
// contesting the hand and not all-in.
func (p *Player) CanAct() bool {
	return p.InHand && p.Chips > 0
}
