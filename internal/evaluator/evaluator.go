// Package evaluator ranks 7-card Texas Hold'em hands.
//
// Evaluation groups the cards by rank and suit, detects flushes and straights
// (including the wheel A-2-3-4-5), and classifies the hand in strict priority
// order. Within a category a positional-weighted strength scalar totally
// orders hands, so Compare gives a strict total order modulo exact ties.
package evaluator

import (
	"errors"
	"sort"

	"github.com/bokk3/gamble-fun-sub001/internal/deck"
)

// ErrInvalidInput is returned when Evaluate is not given exactly 7 cards.
var ErrInvalidInput = errors.New("evaluator: exactly 7 cards required")

// Category classifies a hand. Lower is stronger.
type Category int

const (
	RoyalFlush Category = iota + 1
	StraightFlush
	FourOfAKind
	FullHouse
	Flush
	Straight
	ThreeOfAKind
	TwoPair
	Pair
	HighCard
)

// String returns a human-readable category name.
func (c Category) String() string {
	switch c {
	case RoyalFlush:
		return "Royal Flush"
	case StraightFlush:
		return "Straight Flush"
	case FourOfAKind:
		return "Four of a Kind"
	case FullHouse:
		return "Full House"
	case Flush:
		return "Flush"
	case Straight:
		return "Straight"
	case ThreeOfAKind:
		return "Three of a Kind"
	case TwoPair:
		return "Two Pair"
	case Pair:
		return "Pair"
	case HighCard:
		return "High Card"
	default:
		return "Unknown"
	}
}

// Result describes the best 5-card hand found in 7 cards.
type Result struct {
	Category Category
	Cards    []deck.Card // the contributing 5 cards
	Kickers  []deck.Rank // tie-break ranks, most significant first
	Strength float64     // orders hands within the same category
}

// strengthOf computes the positional-weighted scalar from the ordered
// tie-break ranks. The primary rank carries the highest weight and each
// subsequent kicker a factor of 15 less, so any two same-category hands with
// different rank sequences compare differently.
func strengthOf(ranks []deck.Rank) float64 {
	strength := 0.0
	for _, r := range ranks {
		strength = strength*15 + float64(r)
	}
	return strength
}

// Evaluate returns the best 5-card hand in exactly 7 cards.
func Evaluate(cards []deck.Card) (Result, error) {
	if len(cards) != 7 {
		return Result{}, ErrInvalidInput
	}
	return evaluateAny(cards)
}

// EvaluatePartial ranks the best 5-card hand in 5 to 7 cards. Used for
// in-hand strength estimates before the board is complete; showdown always
// goes through Evaluate.
func EvaluatePartial(cards []deck.Card) (Result, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return Result{}, ErrInvalidInput
	}
	return evaluateAny(cards)
}

func evaluateAny(cards []deck.Card) (Result, error) {

	byRank := make(map[deck.Rank][]deck.Card)
	bySuit := make(map[deck.Suit][]deck.Card)
	for _, c := range cards {
		byRank[c.Rank] = append(byRank[c.Rank], c)
		bySuit[c.Suit] = append(bySuit[c.Suit], c)
	}

	var flushCards []deck.Card
	for _, suited := range bySuit {
		if len(suited) >= 5 {
			flushCards = suited
			break
		}
	}

	// Straight flush / royal flush.
	if flushCards != nil {
		if high, run := findStraight(flushCards); high != 0 {
			cat := StraightFlush
			if high == deck.Ace {
				cat = RoyalFlush
			}
			return newResult(cat, run, []deck.Rank{high}), nil
		}
	}

	// Rank groups sorted by count descending, then rank descending.
	groups := rankGroups(byRank)

	if len(groups[0].cards) == 4 {
		quad := groups[0]
		kicker := bestKickers(cards, map[deck.Rank]bool{quad.rank: true}, 1)
		hand := append(append([]deck.Card{}, quad.cards...), kicker...)
		return newResult(FourOfAKind, hand, []deck.Rank{quad.rank, kicker[0].Rank}), nil
	}

	if len(groups[0].cards) == 3 && len(groups) > 1 && len(groups[1].cards) >= 2 {
		trips := groups[0]
		pair := groups[1]
		hand := append(append([]deck.Card{}, trips.cards...), pair.cards[:2]...)
		return newResult(FullHouse, hand, []deck.Rank{trips.rank, pair.rank}), nil
	}

	if flushCards != nil {
		sort.Slice(flushCards, func(i, j int) bool { return flushCards[i].Rank > flushCards[j].Rank })
		hand := flushCards[:5]
		return newResult(Flush, hand, ranksOf(hand)), nil
	}

	if high, run := findStraight(cards); high != 0 {
		return newResult(Straight, run, []deck.Rank{high}), nil
	}

	if len(groups[0].cards) == 3 {
		trips := groups[0]
		kickers := bestKickers(cards, map[deck.Rank]bool{trips.rank: true}, 2)
		hand := append(append([]deck.Card{}, trips.cards...), kickers...)
		return newResult(ThreeOfAKind, hand,
			append([]deck.Rank{trips.rank}, ranksOf(kickers)...)), nil
	}

	if len(groups[0].cards) == 2 && len(groups) > 1 && len(groups[1].cards) == 2 {
		high, low := groups[0], groups[1]
		kicker := bestKickers(cards, map[deck.Rank]bool{high.rank: true, low.rank: true}, 1)
		hand := append(append([]deck.Card{}, high.cards...), low.cards...)
		hand = append(hand, kicker...)
		return newResult(TwoPair, hand, []deck.Rank{high.rank, low.rank, kicker[0].Rank}), nil
	}

	if len(groups[0].cards) == 2 {
		pair := groups[0]
		kickers := bestKickers(cards, map[deck.Rank]bool{pair.rank: true}, 3)
		hand := append(append([]deck.Card{}, pair.cards...), kickers...)
		return newResult(Pair, hand,
			append([]deck.Rank{pair.rank}, ranksOf(kickers)...)), nil
	}

	kickers := bestKickers(cards, nil, 5)
	return newResult(HighCard, kickers, ranksOf(kickers)), nil
}

// Compare orders two results: negative if a wins, positive if b wins, zero on
// an exact tie (split pot).
func Compare(a, b Result) int {
	if a.Category != b.Category {
		return int(a.Category) - int(b.Category)
	}
	switch {
	case a.Strength > b.Strength:
		return -1
	case a.Strength < b.Strength:
		return 1
	default:
		return 0
	}
}

func newResult(cat Category, hand []deck.Card, tiebreaks []deck.Rank) Result {
	return Result{
		Category: cat,
		Cards:    hand,
		Kickers:  tiebreaks,
		Strength: strengthOf(tiebreaks),
	}
}

type rankGroup struct {
	rank  deck.Rank
	cards []deck.Card
}

func rankGroups(byRank map[deck.Rank][]deck.Card) []rankGroup {
	groups := make([]rankGroup, 0, len(byRank))
	for rank, cards := range byRank {
		groups = append(groups, rankGroup{rank: rank, cards: cards})
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].cards) != len(groups[j].cards) {
			return len(groups[i].cards) > len(groups[j].cards)
		}
		return groups[i].rank > groups[j].rank
	})
	return groups
}

// findStraight returns the high rank of the best straight within cards, and
// one card per rank in the run (high to low). A zero rank means no straight.
// The wheel counts as a five-high straight.
func findStraight(cards []deck.Card) (deck.Rank, []deck.Card) {
	byRank := make(map[deck.Rank]deck.Card)
	for _, c := range cards {
		if _, ok := byRank[c.Rank]; !ok {
			byRank[c.Rank] = c
		}
	}

	for high := deck.Ace; high >= deck.Six; high-- {
		run := make([]deck.Card, 0, 5)
		for r := high; r > high-5; r-- {
			c, ok := byRank[r]
			if !ok {
				break
			}
			run = append(run, c)
		}
		if len(run) == 5 {
			return high, run
		}
	}

	// Wheel: A-2-3-4-5.
	wheel := []deck.Rank{deck.Five, deck.Four, deck.Three, deck.Two, deck.Ace}
	run := make([]deck.Card, 0, 5)
	for _, r := range wheel {
		c, ok := byRank[r]
		if !ok {
			return 0, nil
		}
		run = append(run, c)
	}
	return deck.Five, run
}

// bestKickers returns the n highest cards whose ranks are not excluded.
func bestKickers(cards []deck.Card, exclude map[deck.Rank]bool, n int) []deck.Card {
	remaining := make([]deck.Card, 0, len(cards))
	for _, c := range cards {
		if !exclude[c.Rank] {
			remaining = append(remaining, c)
		}
	}
	sort.Slice(remaining, func(i, j int) bool { return remaining[i].Rank > remaining[j].Rank })
	if n > len(remaining) {
		n = len(remaining)
	}
	return remaining[:n]
}

func ranksOf(cards []deck.Card) []deck.Rank {
	ranks := make([]deck.Rank, len(cards))
	for i, c := range cards {
		ranks[i] = c.Rank
	}
	return ranks
}
