package table

// TurnManager tracks whose turn it is within one betting round. The
// seating order is snapshotted when the round starts and a fresh
// manager is built for every round.
//
// Round completion uses a lazy anchor: the first actor of the round is
// recorded the first time the action moves on (or the first time all
// bets match), and the round only closes once every live contribution
// matches the current bet AND the action has come back around to that
// anchor. The one-cycle deferral is what gives the big blind the
// option to close an unraised pre-flop round.
type TurnManager struct {
	order         []*Player
	current       int
	firstActor    *Player
	lastAggressor *Player
}

// NewTurnManager snapshots the seating order for a betting round.
// start is the index of the seat that acts first; if that seat cannot
// act the pointer settles on the next eligible one.
func NewTurnManager(order []*Player, start int) *TurnManager {
	tm := &TurnManager{order: order, current: start}
	if len(order) == 0 {
		return tm
	}
	tm.current = start % len(order)
	if !tm.order[tm.current].CanAct() {
		tm.advanceIndex()
	}
	return tm
}

// Current returns the acting player, or nil when no seat can act
func (tm *TurnManager) Current() *Player {
	if len(tm.order) == 0 || tm.current < 0 {
		return nil
	}
	return tm.order[tm.current]
}

// Advance moves the turn to the next seat that can still act, skipping
// folded and all-in players. The first call in a round records the
// current actor as the round's anchor. Returns nil if a full circle
// finds nobody eligible; the caller must close the round.
func (tm *TurnManager) Advance() *Player {
	cur := tm.Current()
	if cur == nil {
		return nil
	}
	if tm.firstActor == nil {
		tm.firstActor = cur
	}
	tm.advanceIndex()
	return tm.Current()
}

func (tm *TurnManager) advanceIndex() {
	for i := 1; i <= len(tm.order); i++ {
		idx := (tm.current + i) % len(tm.order)
		if tm.order[idx].CanAct() {
			tm.current = idx
			return
		}
	}
	tm.current = -1
}

// MarkAggressor records the last player to bet or raise
func (tm *TurnManager) MarkAggressor(p *Player) {
	tm.lastAggressor = p
}

// LastAggressor returns the last player to bet or raise, or nil
func (tm *TurnManager) LastAggressor() *Player {
	return tm.lastAggressor
}

// Remove drops a departed player from the seating snapshot, keeping
// the turn pointer on the same logical seat.
func (tm *TurnManager) Remove(p *Player) {
	for i, o := range tm.order {
		if o == p {
			tm.order = append(tm.order[:i], tm.order[i+1:]...)
			if tm.current > i {
				tm.current--
			}
			if tm.current >= len(tm.order) {
				tm.current = 0
			}
			if len(tm.order) == 0 {
				tm.current = -1
			}
			break
		}
	}
	if tm.firstActor == p {
		tm.firstActor = nil
	}
	if tm.lastAggressor == p {
		tm.lastAggressor = nil
	}
}

// RoundComplete reports whether the betting round is closed: true
// immediately once at most one player is contesting the hand, and
// otherwise only when every live contribution matches currentBet and
// the action has returned to the round's anchor. All-in players no
// longer owe a match. If the anchor seat can no longer act (folded or
// all-in) matching contributions alone close the round.
func (tm *TurnManager) RoundComplete(currentBet int) bool {
	inHand := 0
	for _, p := range tm.order {
		if p.InHand {
			inHand++
		}
	}
	if inHand <= 1 {
		return true
	}

	for _, p := range tm.order {
		if p.InHand && p.Chips > 0 && p.RoundBet != currentBet {
			return false
		}
	}

	if tm.firstActor == nil {
		tm.firstActor = tm.Current()
		return false
	}
	if !tm.firstActor.CanAct() {
		return true
	}
	return tm.Current() == tm.firstActor
}
