package game

import (
	"time"

	"github.com/bokk3/gamble-fun-sub001/internal/deck"
)

// Seat is one position at a table and the player occupying it.
type Seat struct {
	Identity Identity
	Position int
	Chips    int
	Name     string

	HoleCards []deck.Card // nil or exactly 2

	Bet        int // chips committed this betting round
	TotalBet   int // chips committed this hand
	LastAction *Action

	Folded     bool
	AllInFlag  bool
	SittingOut bool // disconnected, inside the reconnection grace window

	LastSeen time.Time
}

// NewSeat creates a seat for a buy-in at the given position.
func NewSeat(identity Identity, name string, position, chips int) *Seat {
	return &Seat{
		Identity: identity,
		Name:     name,
		Position: position,
		Chips:    chips,
	}
}

// CanAct reports whether the seat may be selected as the current player:
// in the hand, not folded, not all-in.
func (s *Seat) CanAct() bool {
	return !s.Folded && !s.AllInFlag
}

// InHand reports whether the seat still contests the pot.
func (s *Seat) InHand() bool {
	return !s.Folded
}

// ResetForRound clears per-round state when a street completes.
func (s *Seat) ResetForRound() {
	s.Bet = 0
	s.LastAction = nil
}

// ResetForHand clears per-hand state before cards are dealt.
func (s *Seat) ResetForHand() {
	s.HoleCards = nil
	s.Bet = 0
	s.TotalBet = 0
	s.LastAction = nil
	s.Folded = false
	s.AllInFlag = false
}
