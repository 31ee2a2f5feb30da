package game

// BettingRound holds the state of one betting cycle on a street.
type BettingRound struct {
	CurrentBet int
	MinRaise   int
	BigBlind   int // floor for MinRaise on each new street
}

// NewBettingRound starts a fresh betting cycle.
func NewBettingRound(bigBlind int) *BettingRound {
	return &BettingRound{
		MinRaise: bigBlind,
		BigBlind: bigBlind,
	}
}

// ResetForStreet clears the round for a new street. MinRaise recomputes to
// the big blind.
func (br *BettingRound) ResetForStreet() {
	br.CurrentBet = 0
	br.MinRaise = br.BigBlind
}

// RegisterRaise records aggression: the new current bet and the raise size.
// MinRaise becomes the larger of the raise size and the big blind.
func (br *BettingRound) RegisterRaise(newBet int) {
	raiseSize := newBet - br.CurrentBet
	br.CurrentBet = newBet
	if raiseSize > br.BigBlind {
		br.MinRaise = raiseSize
	} else {
		br.MinRaise = br.BigBlind
	}
}

// Complete reports whether the betting round is finished: every seat that can
// still act has acted this round and has matched the current bet. All-in
// seats are exempt from the match requirement.
func (br *BettingRound) Complete(seats []*Seat) bool {
	for _, s := range seats {
		if !s.CanAct() {
			continue
		}
		if s.LastAction == nil {
			return false
		}
		if s.Bet != br.CurrentBet {
			return false
		}
	}
	return true
}

// ValidActions enumerates the actions Validate would accept for a seat.
func (br *BettingRound) ValidActions(seat *Seat) []Action {
	actions := make([]Action, 0, 4)
	for _, a := range []Action{Fold, Check, Call, Bet, Raise, AllIn} {
		// Probe with the minimum legal sizing for sized actions.
		if Validate(seat, a, br.MinRaise, br.CurrentBet, br.MinRaise) == nil {
			actions = append(actions, a)
		}
	}
	return actions
}
