package game

import "sort"

// Pot is a main or side pot.
type Pot struct {
	Amount   int
	Tier     int   // contribution level that closes this pot
	Eligible []int // seat positions that can win this pot
}

// BuildPots splits the chips contributed this hand into a main pot and side
// pots. Contribution tiers are the distinct totals of non-folded seats,
// ascending; every seat's chips (folded included) fill the tiers they reach,
// but only non-folded seats whose contribution reaches a tier are eligible
// to win it.
//
// The pot amounts always sum to the total chips contributed this hand.
func BuildPots(seats []*Seat) []Pot {
	tierSet := make(map[int]bool)
	for _, s := range seats {
		if s.InHand() && s.TotalBet > 0 {
			tierSet[s.TotalBet] = true
		}
	}
	if len(tierSet) == 0 {
		return nil
	}

	tiers := make([]int, 0, len(tierSet))
	for t := range tierSet {
		tiers = append(tiers, t)
	}
	sort.Ints(tiers)

	pots := make([]Pot, 0, len(tiers))
	prev := 0
	for _, tier := range tiers {
		pot := Pot{Tier: tier}
		for _, s := range seats {
			contribution := min(s.TotalBet, tier) - prev
			if contribution > 0 {
				pot.Amount += contribution
			}
			if s.InHand() && s.TotalBet >= tier {
				pot.Eligible = append(pot.Eligible, s.Position)
			}
		}
		if pot.Amount > 0 {
			pots = append(pots, pot)
		}
		prev = tier
	}

	// Chips folded players contributed above the highest live tier cannot be
	// won by anyone else's cap, so they join the last pot.
	excess := 0
	for _, s := range seats {
		if s.TotalBet > prev {
			excess += s.TotalBet - prev
		}
	}
	if excess > 0 && len(pots) > 0 {
		pots[len(pots)-1].Amount += excess
	}

	return pots
}

// TotalPot returns the sum of all chips contributed this hand.
func TotalPot(seats []*Seat) int {
	total := 0
	for _, s := range seats {
		total += s.TotalBet
	}
	return total
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
