package game

import (
	"errors"
	"fmt"

	"github.com/bokk3/gamble-fun-sub001/internal/deck"
	"github.com/bokk3/gamble-fun-sub001/internal/evaluator"
)

var (
	// ErrOutOfTurn rejects an action from a seat that does not hold the turn.
	ErrOutOfTurn = errors.New("game: not this seat's turn")

	// ErrHandComplete rejects actions once the hand has finished.
	ErrHandComplete = errors.New("game: hand is complete")

	// ErrInconsistentPayout aborts a settlement that would corrupt chip
	// totals. The hand is left unsettled and recoverable.
	ErrInconsistentPayout = errors.New("game: payout would corrupt chip totals")
)

// Hand is the state machine for one played hand. All methods must be called
// from the owning table's exclusive context.
type Hand struct {
	Seats      []*Seat // contesting seats, ordered by position
	Button     int     // index into Seats
	SmallBlind int
	BigBlind   int

	Street  Street
	Board   []deck.Card
	Deck    *deck.Deck
	Betting *BettingRound
	Active  int // index of the seat holding the turn, -1 when none
	Number  uint64
}

// ActionResult reports what an applied action changed, for event emission.
type ActionResult struct {
	Position   int
	Action     Action
	Amount     int // chips moved by this action
	StackAfter int
	Pot        int

	StreetAdvanced bool
	NewStreet      Street
	BoardDealt     []deck.Card
	HandComplete   bool
}

// NewHand deals a new hand: resets seats, posts blinds, deals hole cards and
// sets the first seat to act.
func NewHand(d *deck.Deck, seats []*Seat, button, smallBlind, bigBlind int, number uint64) (*Hand, error) {
	if len(seats) < 2 {
		return nil, fmt.Errorf("game: at least 2 seats required, have %d", len(seats))
	}
	if button < 0 || button >= len(seats) {
		return nil, fmt.Errorf("game: button index %d out of range", button)
	}

	h := &Hand{
		Seats:      seats,
		Button:     button,
		SmallBlind: smallBlind,
		BigBlind:   bigBlind,
		Street:     PreFlop,
		Deck:       d,
		Betting:    NewBettingRound(bigBlind),
		Number:     number,
	}

	for _, s := range seats {
		s.ResetForHand()
	}

	h.postBlinds()
	if err := h.dealHoleCards(); err != nil {
		return nil, err
	}

	// Heads-up the button is the small blind and acts first pre-flop;
	// otherwise the seat after the big blind opens. Either way the opener
	// must be able to act: a blind post can put a short stack all-in.
	if len(seats) == 2 {
		h.Active = h.nextToAct(h.Button)
	} else {
		h.Active = h.nextToAct(h.Button + 3)
	}
	if h.Active == -1 {
		// The blinds put every seat all-in; run the board out.
		h.nextStreet(nil)
	}

	return h, nil
}

func (h *Hand) postBlinds() {
	sbIdx, bbIdx := h.blindIndexes()

	post := func(idx, amount int) {
		s := h.Seats[idx]
		posted := min(amount, s.Chips)
		s.Bet = posted
		s.TotalBet = posted
		s.Chips -= posted
		if s.Chips == 0 {
			s.AllInFlag = true
		}
	}
	post(sbIdx, h.SmallBlind)
	post(bbIdx, h.BigBlind)

	h.Betting.CurrentBet = h.BigBlind
}

func (h *Hand) blindIndexes() (sb, bb int) {
	n := len(h.Seats)
	if n == 2 {
		return h.Button, (h.Button + 1) % n
	}
	return (h.Button + 1) % n, (h.Button + 2) % n
}

func (h *Hand) dealHoleCards() error {
	for _, s := range h.Seats {
		cards, err := h.Deck.DealN(2)
		if err != nil {
			return fmt.Errorf("deal hole cards: %w", err)
		}
		s.HoleCards = cards
	}
	return nil
}

// Seat returns the seat at the given table position, or nil.
func (h *Hand) Seat(position int) *Seat {
	for _, s := range h.Seats {
		if s.Position == position {
			return s
		}
	}
	return nil
}

// Pot returns the total chips contributed this hand.
func (h *Hand) Pot() int {
	return TotalPot(h.Seats)
}

// ValidActions enumerates legal actions for the seat holding the turn.
func (h *Hand) ValidActions() []Action {
	if h.Active < 0 || h.Active >= len(h.Seats) {
		return nil
	}
	return h.Betting.ValidActions(h.Seats[h.Active])
}

// Apply validates and executes an action for the seat at the given index,
// then advances the turn and, when the round completes, the street.
func (h *Hand) Apply(seatIdx int, action Action, amount int) (*ActionResult, error) {
	if h.IsComplete() {
		return nil, ErrHandComplete
	}
	if seatIdx != h.Active {
		return nil, ErrOutOfTurn
	}

	s := h.Seats[seatIdx]
	if err := Validate(s, action, amount, h.Betting.CurrentBet, h.Betting.MinRaise); err != nil {
		return nil, err
	}

	moved := 0
	switch action {
	case Fold:
		s.Folded = true

	case Check:
		// No chips move.

	case Call:
		moved = h.Betting.CurrentBet - s.Bet
		h.commit(s, moved)

	case Bet:
		moved = amount
		h.commit(s, moved)
		h.Betting.RegisterRaise(s.Bet)
		h.reopenAction(s)

	case Raise:
		moved = h.Betting.CurrentBet + amount - s.Bet
		h.commit(s, moved)
		h.Betting.RegisterRaise(s.Bet)
		h.reopenAction(s)

	case AllIn:
		moved = s.Chips
		h.commit(s, moved)
		if s.Bet > h.Betting.CurrentBet {
			// An all-in above the current bet acts as a raise.
			h.Betting.RegisterRaise(s.Bet)
			h.reopenAction(s)
		}
	}

	act := action
	s.LastAction = &act

	result := &ActionResult{
		Position:   s.Position,
		Action:     action,
		Amount:     moved,
		StackAfter: s.Chips,
	}

	h.advance(result)
	result.Pot = h.Pot()
	result.HandComplete = h.IsComplete()
	return result, nil
}

// commit moves chips from the seat's stack into its current bet.
func (h *Hand) commit(s *Seat, amount int) {
	s.Chips -= amount
	s.Bet += amount
	s.TotalBet += amount
	if s.Chips == 0 {
		s.AllInFlag = true
	}
}

// reopenAction clears everyone else's acted marker after aggression so they
// must respond to the new bet.
func (h *Hand) reopenAction(aggressor *Seat) {
	for _, s := range h.Seats {
		if s != aggressor && s.CanAct() {
			s.LastAction = nil
		}
	}
}

// ForceFold folds a seat immediately regardless of turn order. Used for
// action timeouts and disconnects that exhaust the grace window.
func (h *Hand) ForceFold(seatIdx int) *ActionResult {
	if seatIdx < 0 || seatIdx >= len(h.Seats) || h.IsComplete() {
		return nil
	}
	s := h.Seats[seatIdx]
	if s.Folded {
		return nil
	}

	s.Folded = true
	act := Fold
	s.LastAction = &act

	result := &ActionResult{
		Position:   s.Position,
		Action:     Fold,
		StackAfter: s.Chips,
	}

	if seatIdx == h.Active {
		h.advance(result)
	} else if h.Betting.Complete(h.Seats) {
		h.nextStreet(result)
	}
	result.Pot = h.Pot()
	result.HandComplete = h.IsComplete()
	return result
}

// advance moves the turn to the next seat that can act, or the hand to the
// next street when the betting round is complete.
func (h *Hand) advance(result *ActionResult) {
	if h.contenders() <= 1 {
		h.Street = Finished
		h.Active = -1
		if result != nil {
			result.StreetAdvanced = true
			result.NewStreet = Finished
		}
		return
	}

	if h.Betting.Complete(h.Seats) {
		h.nextStreet(result)
		return
	}

	h.Active = h.nextToAct(h.indexAfter(h.Active))
	if h.Active == -1 {
		h.nextStreet(result)
	}
}

// nextStreet deals the next street's community cards and resets round state.
// When no seat can act (everyone all-in) it keeps advancing to showdown.
func (h *Hand) nextStreet(result *ActionResult) {
	for {
		switch h.Street {
		case PreFlop:
			h.Street = Flop
			h.dealBoard(3, result)
		case Flop:
			h.Street = Turn
			h.dealBoard(1, result)
		case Turn:
			h.Street = River
			h.dealBoard(1, result)
		case River:
			h.Street = Showdown
			h.Active = -1
			if result != nil {
				result.StreetAdvanced = true
				result.NewStreet = Showdown
			}
			return
		default:
			h.Active = -1
			return
		}

		for _, s := range h.Seats {
			s.ResetForRound()
		}
		h.Betting.ResetForStreet()

		if result != nil {
			result.StreetAdvanced = true
			result.NewStreet = h.Street
		}

		// First to act is the first seat after the dealer that can still act.
		h.Active = h.nextToAct(h.indexAfter(h.Button))
		if h.Active != -1 {
			return
		}
		// Everyone remaining is all-in; run out the board.
	}
}

func (h *Hand) dealBoard(n int, result *ActionResult) {
	cards, err := h.Deck.DealN(n)
	if err != nil {
		// A 52-card deck always covers 2 hole cards per seat plus 5 board
		// cards for any legal table size, so this cannot happen in play.
		panic(fmt.Sprintf("deck exhausted dealing board: %v", err))
	}
	h.Board = append(h.Board, cards...)
	if result != nil {
		result.BoardDealt = append(result.BoardDealt, cards...)
	}
}

func (h *Hand) indexAfter(idx int) int {
	return (idx + 1) % len(h.Seats)
}

// nextToAct scans clockwise from the given index for a seat that can act.
func (h *Hand) nextToAct(from int) int {
	n := len(h.Seats)
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		if h.Seats[idx].CanAct() {
			return idx
		}
	}
	return -1
}

// contenders counts seats still in the hand.
func (h *Hand) contenders() int {
	count := 0
	for _, s := range h.Seats {
		if s.InHand() {
			count++
		}
	}
	return count
}

// IsComplete reports whether the hand has reached a terminal state.
func (h *Hand) IsComplete() bool {
	return h.Street == Showdown || h.Street == Finished || h.contenders() <= 1
}

// ShowdownHand evaluates a seat's best hand against the board.
func (h *Hand) ShowdownHand(s *Seat) (evaluator.Result, error) {
	cards := make([]deck.Card, 0, 7)
	cards = append(cards, s.HoleCards...)
	cards = append(cards, h.Board...)
	return evaluator.Evaluate(cards)
}
