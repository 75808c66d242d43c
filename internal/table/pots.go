package table

import "sort"

// potShare is one layer of the pot with the players who can win it.
// Folded players' chips stay in the layers they contributed to, but
// only players still in the hand are eligible.
type potShare struct {
	Amount   int
	Eligible []*Player
}

// buildPots layers the hand's total contributions into a main pot and
// side pots. Each distinct all-in level caps a layer; with no short
// stacks the result is a single pot covering everything. dead carries
// the hand contributions of players who left their seat mid-hand:
// those chips stay in the layers they reached but win nothing.
func buildPots(players []*Player, dead []int) []potShare {
	levels := make([]int, 0, len(players)+len(dead))
	seen := make(map[int]bool)
	for _, p := range players {
		if p.HandBet > 0 && !seen[p.HandBet] {
			seen[p.HandBet] = true
			levels = append(levels, p.HandBet)
		}
	}
	for _, d := range dead {
		if d > 0 && !seen[d] {
			seen[d] = true
			levels = append(levels, d)
		}
	}
	sort.Ints(levels)

	pots := make([]potShare, 0, len(levels))
	prev := 0
	for _, level := range levels {
		share := potShare{}
		for _, p := range players {
			contrib := min(p.HandBet, level) - min(p.HandBet, prev)
			share.Amount += contrib
			if p.InHand && p.HandBet >= level {
				share.Eligible = append(share.Eligible, p)
			}
		}
		for _, d := range dead {
			share.Amount += min(d, level) - min(d, prev)
		}
		if share.Amount > 0 {
			pots = append(pots, share)
		}
		prev = level
	}
	return pots
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
