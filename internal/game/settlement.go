package game

import (
	"github.com/bokk3/gamble-fun-sub001/internal/evaluator"
)

// SeatShowdown is one seat's revealed hand at showdown.
type SeatShowdown struct {
	Position int
	Hole     []string // card codes
	Result   evaluator.Result
}

// Award is one seat's winnings from one pot.
type Award struct {
	Position int
	Amount   int
	PotIndex int
}

// Settlement is the outcome of a completed hand.
type Settlement struct {
	Pots      []Pot
	Showdowns []SeatShowdown // empty when the hand ended by folds
	Awards    []Award
	Reason    string // "showdown" or "folds"
}

// Settle determines winners and pays out the pots. It computes the full
// payout first and only mutates chip stacks once the totals are verified, so
// an inconsistent payout leaves the hand untouched and recoverable.
func (h *Hand) Settle() (*Settlement, error) {
	if !h.IsComplete() {
		return nil, ErrHandComplete
	}

	pots := BuildPots(h.Seats)
	settlement := &Settlement{Pots: pots}

	if h.contenders() == 1 {
		settlement.Reason = "folds"
		var winner *Seat
		for _, s := range h.Seats {
			if s.InHand() {
				winner = s
				break
			}
		}
		for i, pot := range pots {
			settlement.Awards = append(settlement.Awards, Award{
				Position: winner.Position,
				Amount:   pot.Amount,
				PotIndex: i,
			})
		}
		return h.payout(settlement)
	}

	settlement.Reason = "showdown"

	// Evaluate every contesting seat once.
	results := make(map[int]evaluator.Result)
	for _, s := range h.Seats {
		if !s.InHand() {
			continue
		}
		result, err := h.ShowdownHand(s)
		if err != nil {
			return nil, err
		}
		results[s.Position] = result
		settlement.Showdowns = append(settlement.Showdowns, SeatShowdown{
			Position: s.Position,
			Hole:     holeCodes(s),
			Result:   result,
		})
	}

	for i, pot := range pots {
		winners := h.potWinners(pot, results)
		if len(winners) == 0 {
			continue
		}

		share := pot.Amount / len(winners)
		remainder := pot.Amount % len(winners)
		for _, pos := range winners {
			amount := share
			// The first winner clockwise from the dealer absorbs the
			// integer remainder.
			if remainder > 0 {
				amount += remainder
				remainder = 0
			}
			settlement.Awards = append(settlement.Awards, Award{
				Position: pos,
				Amount:   amount,
				PotIndex: i,
			})
		}
	}

	return h.payout(settlement)
}

// potWinners returns the positions of the best tied hands among a pot's
// eligible seats, ordered clockwise from the seat after the dealer.
func (h *Hand) potWinners(pot Pot, results map[int]evaluator.Result) []int {
	eligible := make(map[int]bool, len(pot.Eligible))
	for _, pos := range pot.Eligible {
		eligible[pos] = true
	}

	var winners []int
	var best evaluator.Result
	n := len(h.Seats)
	for i := 1; i <= n; i++ {
		s := h.Seats[(h.Button+i)%n]
		if !eligible[s.Position] {
			continue
		}
		result, ok := results[s.Position]
		if !ok {
			continue
		}
		if len(winners) == 0 {
			winners = []int{s.Position}
			best = result
			continue
		}
		switch cmp := evaluator.Compare(result, best); {
		case cmp < 0:
			winners = []int{s.Position}
			best = result
		case cmp == 0:
			winners = append(winners, s.Position)
		}
	}
	return winners
}

// payout verifies conservation and applies the awards to chip stacks.
func (h *Hand) payout(settlement *Settlement) (*Settlement, error) {
	total := 0
	for _, a := range settlement.Awards {
		if a.Amount < 0 {
			return nil, ErrInconsistentPayout
		}
		total += a.Amount
	}
	if total != h.Pot() {
		return nil, ErrInconsistentPayout
	}

	for _, a := range settlement.Awards {
		s := h.Seat(a.Position)
		if s == nil {
			return nil, ErrInconsistentPayout
		}
		s.Chips += a.Amount
	}
	return settlement, nil
}

func holeCodes(s *Seat) []string {
	codes := make([]string, len(s.HoleCards))
	for i, c := range s.HoleCards {
		codes[i] = c.Code()
	}
	return codes
}
