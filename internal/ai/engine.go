package ai

import (
	"math/rand"

	"github.com/bokk3/gamble-fun-sub001/internal/deck"
	"github.com/bokk3/gamble-fun-sub001/internal/evaluator"
	"github.com/bokk3/gamble-fun-sub001/internal/game"
)

// Context is the table state visible to an AI when deciding.
type Context struct {
	Street     game.Street
	Board      []deck.Card
	Pot        int
	CurrentBet int
	MinRaise   int
	BigBlind   int
	Seat       *game.Seat
	NumSeats   int
	Button     int // table position index of the dealer
}

// Decision is the engine's chosen action. Amount is the bet size for Bet and
// the raise size above the current bet for Raise.
type Decision struct {
	Action     game.Action
	Amount     int
	Confidence float64
}

// Engine turns a profile and table context into an action. Stochastic across
// calls through its RNG, deterministic for a fixed RNG state.
type Engine struct {
	rng *rand.Rand
}

// NewEngine creates an engine around the given randomness source.
func NewEngine(rng *rand.Rand) *Engine {
	return &Engine{rng: rng}
}

// thresholds are the five behavior gates derived from a profile.
type thresholds struct {
	fold, call, bet, raise float64
}

var styleThresholds = map[Style]thresholds{
	Rock:            {fold: 0.40, call: 0.55, bet: 0.80, raise: 0.90},
	TightAggressive: {fold: 0.35, call: 0.50, bet: 0.65, raise: 0.80},
	LooseAggressive: {fold: 0.25, call: 0.40, bet: 0.55, raise: 0.70},
	CallingStation:  {fold: 0.15, call: 0.25, bet: 0.75, raise: 0.90},
	Maniac:          {fold: 0.10, call: 0.20, bet: 0.40, raise: 0.55},
}

// Decide runs the decision pipeline. The returned action is always one the
// validator accepts for the given seat and betting state.
func (e *Engine) Decide(profile Profile, ctx Context, hole []deck.Card) Decision {
	strength := e.handStrength(ctx, hole)
	position := positionStrength(ctx.Seat.Position, ctx.Button, ctx.NumSeats)
	gates := deriveThresholds(profile, position, ctx)
	bluffing := e.shouldBluff(profile, strength, position, gates)

	seat := ctx.Seat
	toCall := ctx.CurrentBet - seat.Bet

	var decision Decision
	if toCall <= 0 {
		if strength >= gates.bet || bluffing {
			decision = Decision{Action: game.Bet, Amount: e.sizing(profile, ctx), Confidence: strength}
		} else {
			decision = Decision{Action: game.Check, Confidence: 1 - strength}
		}
	} else {
		potOdds := 100.0
		if toCall > 0 {
			potOdds = float64(ctx.Pot) / float64(toCall)
		}
		switch {
		case strength < gates.fold && !bluffing:
			decision = Decision{Action: game.Fold, Confidence: 1 - strength}
		case potOdds < 3 && strength < gates.call && !bluffing:
			decision = Decision{Action: game.Fold, Confidence: 1 - strength}
		case strength >= gates.raise || bluffing:
			decision = Decision{Action: game.Raise, Amount: e.sizing(profile, ctx), Confidence: strength}
		default:
			decision = Decision{Action: game.Call, Confidence: strength}
		}
	}

	return e.legalize(decision, ctx)
}

// legalize clamps sizing and degrades the chosen action until the validator
// accepts it. Fold is always legal for a seat that can act, so the chain
// terminates.
func (e *Engine) legalize(d Decision, ctx Context) Decision {
	seat := ctx.Seat

	switch d.Action {
	case game.Bet:
		if d.Amount < ctx.MinRaise {
			d.Amount = ctx.MinRaise
		}
		if d.Amount > seat.Chips {
			d.Amount = seat.Chips
		}
	case game.Raise:
		if d.Amount < ctx.MinRaise {
			d.Amount = ctx.MinRaise
		}
		if maxRaise := seat.Chips + seat.Bet - ctx.CurrentBet; d.Amount > maxRaise {
			d.Amount = maxRaise
		}
	}

	for {
		if game.Validate(seat, d.Action, d.Amount, ctx.CurrentBet, ctx.MinRaise) == nil {
			return d
		}
		switch d.Action {
		case game.Raise:
			// Not enough behind to raise; an all-in keeps the pressure on.
			d = Decision{Action: game.AllIn, Confidence: d.Confidence}
		case game.Bet:
			d = Decision{Action: game.Check, Confidence: d.Confidence}
		case game.Call:
			// Short stack: calling means committing everything.
			d = Decision{Action: game.AllIn, Confidence: d.Confidence}
		case game.AllIn, game.Check:
			d = Decision{Action: game.Fold, Confidence: d.Confidence}
		default:
			return Decision{Action: game.Fold, Confidence: d.Confidence}
		}
	}
}

// handStrength maps the hand to [0,1].
func (e *Engine) handStrength(ctx Context, hole []deck.Card) float64 {
	if len(hole) != 2 {
		return 0
	}
	if ctx.Street == game.PreFlop || len(ctx.Board) < 3 {
		return preflopStrength(hole[0], hole[1])
	}

	cards := make([]deck.Card, 0, 7)
	cards = append(cards, hole...)
	cards = append(cards, ctx.Board...)
	result, err := evaluator.EvaluatePartial(cards)
	if err != nil {
		return 0
	}
	return postflopStrength(result)
}

// preflopStrength is a hole-card heuristic: pocket pairs ranked by rank,
// suited/connected bonuses, and broadway-high tiers.
func preflopStrength(a, b deck.Card) float64 {
	high, low := a.Rank, b.Rank
	if low > high {
		high, low = low, high
	}

	if a.Rank == b.Rank {
		// 22 = 0.55 up to AA = 1.0.
		return 0.55 + 0.45*float64(high-deck.Two)/12
	}

	var strength float64
	switch {
	case high == deck.Ace:
		strength = 0.35 + 0.25*float64(low-deck.Two)/11 // A2 .. AK
	case high == deck.King:
		strength = 0.28 + 0.20*float64(low-deck.Two)/10
	case high == deck.Queen:
		strength = 0.22 + 0.16*float64(low-deck.Two)/9
	default:
		strength = 0.08 + 0.18*float64(high-deck.Two)/12
	}

	if a.Suit == b.Suit {
		strength += 0.05
	}
	switch gap := int(high) - int(low); {
	case gap == 1:
		strength += 0.05
	case gap == 2:
		strength += 0.02
	}

	return clamp01(strength)
}

// postflopStrength maps the evaluated category to a base strength plus a
// bounded kicker bonus.
func postflopStrength(result evaluator.Result) float64 {
	var base float64
	switch result.Category {
	case evaluator.RoyalFlush:
		base = 1.0
	case evaluator.StraightFlush:
		base = 0.98
	case evaluator.FourOfAKind:
		base = 0.95
	case evaluator.FullHouse:
		base = 0.90
	case evaluator.Flush:
		base = 0.85
	case evaluator.Straight:
		base = 0.80
	case evaluator.ThreeOfAKind:
		base = 0.65
	case evaluator.TwoPair:
		base = 0.50
	case evaluator.Pair:
		base = 0.30
	default:
		base = 0.08
	}

	// Kicker bonus scaled by the primary rank, bounded at 0.04.
	if len(result.Kickers) > 0 {
		base += 0.04 * float64(result.Kickers[0]-deck.Two) / 12
	}
	return clamp01(base)
}

// positionStrength rates the seat's position: button strongest, the seats
// that act first weakest.
func positionStrength(position, button, numSeats int) float64 {
	if numSeats < 2 {
		return 0.5
	}
	dist := ((position - button) % numSeats + numSeats) % numSeats
	switch {
	case dist == 0:
		return 1.0 // button
	case dist == numSeats-1:
		return 0.9 // cutoff
	case dist <= (numSeats+2)/3:
		return 0.2 // blinds and early position
	default:
		return 0.5
	}
}

// deriveThresholds applies position, skill and pressure adjustments to the
// style's base table.
func deriveThresholds(profile Profile, position float64, ctx Context) thresholds {
	gates := styleThresholds[profile.Style]

	// In position, every gate loosens a little.
	shift := (position - 0.5) * 0.10
	gates.fold -= shift
	gates.call -= shift
	gates.bet -= shift
	gates.raise -= shift

	// Skill sharpens aggression around the intermediate baseline.
	skillAdj := float64(profile.Skill-Intermediate) * 0.02
	gates.call -= skillAdj / 2
	gates.bet -= skillAdj
	gates.raise -= skillAdj

	// Facing a raise beyond the big blind, pressure-sensitive profiles fold
	// more.
	if ctx.CurrentBet > ctx.BigBlind {
		gates.fold += profile.FoldToPressure * 0.15
	}

	gates.fold = clamp01(gates.fold)
	gates.call = clamp01(gates.call)
	gates.bet = clamp01(gates.bet)
	gates.raise = clamp01(gates.raise)
	return gates
}

// shouldBluff gates bluffing on a weak hand in strong position.
func (e *Engine) shouldBluff(profile Profile, strength, position float64, gates thresholds) bool {
	if strength >= gates.fold || position < 0.9 {
		return false
	}
	return e.rng.Float64() < profile.BluffFrequency
}

// sizing computes a pot-fraction bet scaled by aggression, floored at the
// big blind and capped at the stack.
func (e *Engine) sizing(profile Profile, ctx Context) int {
	amount := int(float64(ctx.Pot) * (0.4 + 0.6*profile.Aggression))
	if amount < ctx.BigBlind {
		amount = ctx.BigBlind
	}
	if amount > ctx.Seat.Chips {
		amount = ctx.Seat.Chips
	}
	return amount
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
