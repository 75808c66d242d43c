// Package evaluator ranks poker hands of 5 to 7 cards into the ten
// standard categories and picks the best 5-card subset. Evaluation is
// a pure function of its input.
package evaluator

import (
	"sort"

	"github.com/Rekiiel/Poker/internal/deck"
)

// Category is the hand strength class, 10 being the best. NoCards (0)
// is returned for an empty input and represents "nothing to rank yet".
type Category int

const (
	NoCards Category = iota
	HighCard
	Pair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

// String returns the display name of the category
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case Pair:
		return "Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	case RoyalFlush:
		return "Royal Flush"
	default:
		return "Waiting"
	}
}

// Strength is the result of evaluating a set of cards. Best holds the
// cards forming the hand (up to 5). Tiebreaks orders hands within the
// same category, most significant value first.
type Strength struct {
	Category  Category
	Best      []deck.Card
	Tiebreaks []int
}

// Compare returns <0, 0 or >0 as s ranks below, equal to or above o.
// Hands compare by category first, then by the tiebreak vector.
func (s Strength) Compare(o Strength) int {
	if s.Category != o.Category {
		return int(s.Category) - int(o.Category)
	}
	n := len(s.Tiebreaks)
	if len(o.Tiebreaks) > n {
		n = len(o.Tiebreaks)
	}
	for i := 0; i < n; i++ {
		a, b := 0, 0
		if i < len(s.Tiebreaks) {
			a = s.Tiebreaks[i]
		}
		if i < len(o.Tiebreaks) {
			b = o.Tiebreaks[i]
		}
		if a != b {
			return a - b
		}
	}
	return 0
}

// Evaluate ranks 5-7 cards (fewer are tolerated, so hole cards alone
// can be ranked before the flop). Categories are tried from best to
// worst and the first match wins. Straights are ace-high only; there
// is no wheel.
func Evaluate(cards []deck.Card) Strength {
	if len(cards) == 0 {
		return Strength{Category: NoCards}
	}

	sorted := make([]deck.Card, len(cards))
	copy(sorted, cards)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Value() > sorted[j].Value()
	})

	bySuit := make(map[deck.Suit][]deck.Card)
	counts := make(map[int]int)
	for _, c := range sorted {
		bySuit[c.Suit] = append(bySuit[c.Suit], c)
		counts[c.Value()]++
	}

	// Royal flush / straight flush
	for _, suited := range bySuit {
		if len(suited) < 5 {
			continue
		}
		if run := findRun(suited); run != nil {
			if run[0].Value() == 14 {
				return Strength{Category: RoyalFlush, Best: run, Tiebreaks: values(run)}
			}
			return Strength{Category: StraightFlush, Best: run, Tiebreaks: []int{run[0].Value()}}
		}
	}

	// Four of a kind
	if quad := highestWithCount(counts, 4, 0); quad > 0 {
		best := cardsOfValue(sorted, quad, 4)
		best = append(best, kickers(sorted, 1, quad)...)
		return Strength{Category: FourOfAKind, Best: best, Tiebreaks: values(best)}
	}

	// Full house: the highest triple, paired with the highest other
	// value holding at least two cards (a second triple counts)
	if trip := highestWithCount(counts, 3, 0); trip > 0 {
		if pair := highestWithAtLeast(counts, 2, trip); pair > 0 {
			best := cardsOfValue(sorted, trip, 3)
			best = append(best, cardsOfValue(sorted, pair, 2)...)
			return Strength{Category: FullHouse, Best: best, Tiebreaks: []int{trip, pair}}
		}
	}

	// Flush
	for _, suited := range bySuit {
		if len(suited) >= 5 {
			best := suited[:5]
			return Strength{Category: Flush, Best: best, Tiebreaks: values(best)}
		}
	}

	// Straight
	if run := findRun(sorted); run != nil {
		return Strength{Category: Straight, Best: run, Tiebreaks: []int{run[0].Value()}}
	}

	// Three of a kind
	if trip := highestWithCount(counts, 3, 0); trip > 0 {
		best := cardsOfValue(sorted, trip, 3)
		best = append(best, kickers(sorted, 2, trip)...)
		return Strength{Category: ThreeOfAKind, Best: best, Tiebreaks: values(best)}
	}

	// Two pair
	if high := highestWithCount(counts, 2, 0); high > 0 {
		if low := highestWithCount(counts, 2, high); low > 0 {
			best := cardsOfValue(sorted, high, 2)
			best = append(best, cardsOfValue(sorted, low, 2)...)
			best = append(best, kickers(sorted, 1, high, low)...)
			return Strength{Category: TwoPair, Best: best, Tiebreaks: []int{high, low, lastValue(best)}}
		}
	}

	// One pair
	if pair := highestWithCount(counts, 2, 0); pair > 0 {
		best := cardsOfValue(sorted, pair, 2)
		best = append(best, kickers(sorted, 3, pair)...)
		return Strength{Category: Pair, Best: best, Tiebreaks: append([]int{pair}, values(best[2:])...)}
	}

	// High card: the single top card, but rank on up to five kickers
	top := 5
	if len(sorted) < 5 {
		top = len(sorted)
	}
	return Strength{Category: HighCard, Best: sorted[:1], Tiebreaks: values(sorted[:top])}
}

// findRun scans descending-sorted cards for five consecutive distinct
// values and returns one card per value, or nil.
func findRun(sorted []deck.Card) []deck.Card {
	uniq := make([]deck.Card, 0, len(sorted))
	for _, c := range sorted {
		if len(uniq) == 0 || uniq[len(uniq)-1].Value() != c.Value() {
			uniq = append(uniq, c)
		}
	}
	for i := 0; i+4 < len(uniq); i++ {
		if uniq[i].Value()-uniq[i+4].Value() == 4 {
			run := make([]deck.Card, 5)
			copy(run, uniq[i:i+5])
			return run
		}
	}
	return nil
}

// highestWithCount returns the highest value with exactly count cards,
// skipping the excluded value.
func highestWithCount(counts map[int]int, count int, exclude int) int {
	best := 0
	for v, c := range counts {
		if c == count && v != exclude && v > best {
			best = v
		}
	}
	return best
}

// highestWithAtLeast returns the highest value holding at least count
// cards, excluding one value.
func highestWithAtLeast(counts map[int]int, count int, exclude int) int {
	best := 0
	for v, c := range counts {
		if c >= count && v != exclude && v > best {
			best = v
		}
	}
	return best
}

func cardsOfValue(sorted []deck.Card, value, max int) []deck.Card {
	out := make([]deck.Card, 0, max)
	for _, c := range sorted {
		if c.Value() == value {
			out = append(out, c)
			if len(out) == max {
				break
			}
		}
	}
	return out
}

// kickers returns the n highest cards whose values are not excluded
func kickers(sorted []deck.Card, n int, exclude ...int) []deck.Card {
	out := make([]deck.Card, 0, n)
	for _, c := range sorted {
		skip := false
		for _, ex := range exclude {
			if c.Value() == ex {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		out = append(out, c)
		if len(out) == n {
			break
		}
	}
	return out
}

func values(cards []deck.Card) []int {
	out := make([]int, len(cards))
	for i, c := range cards {
		out[i] = c.Value()
	}
	return out
}

func lastValue(cards []deck.Card) int {
	if len(cards) == 0 {
		return 0
	}
	return cards[len(cards)-1].Value()
}
