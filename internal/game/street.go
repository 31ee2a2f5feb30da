package game

// Street represents the betting round
type Street int

const (
	PreFlop Street = iota
	Flop
	Turn
	River
	Showdown
	Finished
)

func (s Street) String() string {
	return [...]string{"pre_flop", "flop", "turn", "river", "showdown", "finished"}[s]
}

// BoardCards returns how many community cards must be on the board during
// this street.
func (s Street) BoardCards() int {
	switch s {
	case PreFlop:
		return 0
	case Flop:
		return 3
	case Turn:
		return 4
	default:
		return 5
	}
}

// Action represents a player action
type Action int

const (
	Fold Action = iota
	Check
	Call
	Bet
	Raise
	AllIn
)

func (a Action) String() string {
	return [...]string{"fold", "check", "call", "bet", "raise", "allin"}[a]
}

// ParseAction decodes a wire action name.
func ParseAction(s string) (Action, bool) {
	switch s {
	case "fold":
		return Fold, true
	case "check":
		return Check, true
	case "call":
		return Call, true
	case "bet":
		return Bet, true
	case "raise":
		return Raise, true
	case "allin", "all_in":
		return AllIn, true
	default:
		return 0, false
	}
}
