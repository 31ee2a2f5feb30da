package game

import (
	"fmt"
	"testing"

	"github.com/bokk3/gamble-fun-sub001/internal/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildRigged builds a deck that deals the given card codes in order, padded
// with the remaining cards of the 52-card set.
func buildRigged(t *testing.T, codes ...string) *deck.Deck {
	t.Helper()
	front, err := deck.ParseCards(codes)
	require.NoError(t, err)

	used := make(map[deck.Card]bool)
	for _, c := range front {
		require.False(t, used[c], "card %s rigged twice", c)
		used[c] = true
	}

	rest := make([]deck.Card, 0, 52)
	for suit := deck.Spades; suit <= deck.Clubs; suit++ {
		for rank := deck.Two; rank <= deck.Ace; rank++ {
			c := deck.NewCard(suit, rank)
			if !used[c] {
				rest = append(rest, c)
			}
		}
	}
	return deck.Rigged(append(front, rest...))
}

// playToShowdown checks/calls every decision until the hand completes.
func playToShowdown(t *testing.T, h *Hand) {
	t.Helper()
	for !h.IsComplete() {
		idx := h.Active
		require.GreaterOrEqual(t, idx, 0)
		s := h.Seats[idx]
		var err error
		if h.Betting.CurrentBet > s.Bet {
			_, err = h.Apply(idx, Call, 0)
		} else {
			_, err = h.Apply(idx, Check, 0)
		}
		require.NoError(t, err)
	}
}

func newRiggedHand(t *testing.T, d *deck.Deck, chips []int, button int) *Hand {
	t.Helper()
	seats := make([]*Seat, len(chips))
	for i, c := range chips {
		seats[i] = NewSeat(HumanIdentity(fmt.Sprintf("u%d", i)), fmt.Sprintf("p%d", i), i, c)
	}
	h, err := NewHand(d, seats, button, 1, 2, 1)
	require.NoError(t, err)
	return h
}

func TestSettleShowdownBestHandWins(t *testing.T) {
	// Seat 0: AA, seat 1: KK, board gives neither a set.
	d := buildRigged(t, "As", "Ah", "Ks", "Kh", "2c", "7d", "9h", "3s", "5c")
	h := newRiggedHand(t, d, []int{100, 100}, 0)
	playToShowdown(t, h)

	settlement, err := h.Settle()
	require.NoError(t, err)
	assert.Equal(t, "showdown", settlement.Reason)
	require.Len(t, settlement.Awards, 1)
	assert.Equal(t, 0, settlement.Awards[0].Position)
	assert.Equal(t, 4, settlement.Awards[0].Amount)
	assert.Equal(t, 102, h.Seats[0].Chips)
	assert.Equal(t, 98, h.Seats[1].Chips)
	assert.Len(t, settlement.Showdowns, 2)
}

func TestSettleSplitPot(t *testing.T) {
	// Both seats play the board: a broadway straight on board.
	d := buildRigged(t, "2s", "3h", "2d", "3c", "Ts", "Jd", "Qh", "Kc", "Ac")
	h := newRiggedHand(t, d, []int{100, 100}, 0)
	playToShowdown(t, h)

	settlement, err := h.Settle()
	require.NoError(t, err)
	require.Len(t, settlement.Awards, 2)
	assert.Equal(t, 100, h.Seats[0].Chips)
	assert.Equal(t, 100, h.Seats[1].Chips)
}

func TestSettleSplitPotRemainderGoesClockwiseFromDealer(t *testing.T) {
	// Three players split a pot of 9 (blinds 1/2, SB folds after posting):
	// the two winners split 9, first winner clockwise from the button gets
	// the extra chip.
	d := buildRigged(t,
		"2s", "3h", // seat 0 (button)
		"4d", "5c", // seat 1 (SB, will fold)
		"2d", "3d", // seat 2 (BB)
		"Ts", "Jd", "Qh", "Kc", "Ac") // broadway board plays for 0 and 2
	h := newRiggedHand(t, d, []int{100, 100, 100}, 0)

	_, err := h.Apply(0, Call, 0)
	require.NoError(t, err)
	_, err = h.Apply(1, Raise, 2) // SB raises by 2 to 4
	require.NoError(t, err)
	_, err = h.Apply(2, Call, 0)
	require.NoError(t, err)
	_, err = h.Apply(0, Call, 0)
	require.NoError(t, err)

	// Flop: SB bets, others call, then SB folds turn after betting once more.
	require.Equal(t, Flop, h.Street)
	_, err = h.Apply(1, Bet, 3)
	require.NoError(t, err)
	_, err = h.Apply(2, Call, 0)
	require.NoError(t, err)
	_, err = h.Apply(0, Call, 0)
	require.NoError(t, err)

	require.Equal(t, Turn, h.Street)
	_, err = h.Apply(1, Fold, 0)
	require.NoError(t, err)
	playToShowdown(t, h)

	pot := h.Pot()
	require.Equal(t, 21, pot)

	settlement, err := h.Settle()
	require.NoError(t, err)
	require.Len(t, settlement.Awards, 2)

	awards := map[int]int{}
	for _, a := range settlement.Awards {
		awards[a.Position] = a.Amount
	}
	// Seat 2 is first clockwise from the button among the winners.
	assert.Equal(t, 11, awards[2])
	assert.Equal(t, 10, awards[0])
}

func TestSettleSidePotShortStackWinsMainOnly(t *testing.T) {
	// Seat 0 is all-in short with the best hand; seats 1 and 2 contest the
	// side pot, seat 1 winning it.
	d := buildRigged(t,
		"As", "Ah", // seat 0: aces (short stack)
		"Ks", "Kh", // seat 1: kings
		"2c", "7d", // seat 2: junk
		"3s", "8h", "Jc", "4d", "9s") // dry board
	h := newRiggedHand(t, d, []int{20, 100, 100}, 0)

	_, err := h.Apply(0, AllIn, 0) // all-in 20
	require.NoError(t, err)
	_, err = h.Apply(1, Call, 0) // SB calls 19 more
	require.NoError(t, err)
	_, err = h.Apply(2, Call, 0) // BB calls 18 more
	require.NoError(t, err)

	// Seats 1 and 2 bet on into a side pot.
	require.Equal(t, Flop, h.Street)
	_, err = h.Apply(1, Bet, 30)
	require.NoError(t, err)
	_, err = h.Apply(2, Call, 0)
	require.NoError(t, err)
	playToShowdown(t, h)

	settlement, err := h.Settle()
	require.NoError(t, err)
	require.Len(t, settlement.Pots, 2)

	awards := map[int]int{}
	for _, a := range settlement.Awards {
		awards[a.Position] += a.Amount
	}
	assert.Equal(t, 60, awards[0], "main pot: 20 from each")
	assert.Equal(t, 60, awards[1], "side pot: 30 from each of seats 1 and 2")
	assert.Equal(t, 0, awards[2])

	assert.Equal(t, 60, h.Seats[0].Chips)
	assert.Equal(t, 110, h.Seats[1].Chips)
	assert.Equal(t, 50, h.Seats[2].Chips)
}

func TestSettleConservesChips(t *testing.T) {
	d := buildRigged(t, "As", "Ah", "Ks", "Kh", "2c", "7d", "9h", "3s", "5c")
	h := newRiggedHand(t, d, []int{100, 100}, 0)
	before := totalChips(h)
	playToShowdown(t, h)

	_, err := h.Settle()
	require.NoError(t, err)

	after := 0
	for _, s := range h.Seats {
		after += s.Chips
	}
	assert.Equal(t, before, after)
}

func TestSettleIncompleteHandRejected(t *testing.T) {
	h := newRiggedHand(t, buildRigged(t), []int{100, 100}, 0)
	_, err := h.Settle()
	assert.ErrorIs(t, err, ErrHandComplete)
}
