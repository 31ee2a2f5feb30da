package game

import "fmt"

// ValidationError rejects an illegal action. It carries a stable reason code
// so the server layer can report it to the originating client only.
type ValidationError struct {
	Action Action
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Action, e.Reason)
}

func invalid(action Action, format string, args ...any) error {
	return &ValidationError{Action: action, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks whether a seat may perform an action without mutating any
// state. It must be called before every state mutation.
//
// Amount semantics: for Bet, amount is the bet size; for Raise, amount is the
// raise size above the current bet. Other actions ignore amount.
func Validate(seat *Seat, action Action, amount, currentBet, minRaise int) error {
	if seat.Folded {
		return invalid(action, "seat has folded")
	}
	if seat.AllInFlag && action != Fold {
		return invalid(action, "seat is all-in")
	}

	switch action {
	case Fold:
		return nil

	case Check:
		if currentBet > seat.Bet {
			return invalid(action, "facing a bet of %d, must call or fold", currentBet)
		}
		return nil

	case Call:
		if currentBet <= seat.Bet {
			return invalid(action, "no bet to call")
		}
		if toCall := currentBet - seat.Bet; toCall > seat.Chips {
			return invalid(action, "insufficient chips to call %d, go all-in instead", toCall)
		}
		return nil

	case Bet:
		if currentBet > 0 {
			return invalid(action, "a bet of %d already exists, raise instead", currentBet)
		}
		if amount < minRaise {
			return invalid(action, "bet %d below minimum %d", amount, minRaise)
		}
		if amount > seat.Chips {
			return invalid(action, "bet %d exceeds stack %d", amount, seat.Chips)
		}
		return nil

	case Raise:
		if currentBet == 0 {
			return invalid(action, "no bet to raise, bet instead")
		}
		if amount < minRaise {
			return invalid(action, "raise %d below minimum %d", amount, minRaise)
		}
		if needed := currentBet + amount - seat.Bet; needed > seat.Chips {
			return invalid(action, "raise requires %d chips, stack is %d", needed, seat.Chips)
		}
		return nil

	case AllIn:
		if seat.Chips == 0 {
			return invalid(action, "no chips remaining")
		}
		return nil

	default:
		return invalid(action, "unknown action")
	}
}
