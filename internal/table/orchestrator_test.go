package table

import (
	"context"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bokk3/gamble-fun-sub001/internal/ai"
	"github.com/bokk3/gamble-fun-sub001/internal/fairness"
	"github.com/bokk3/gamble-fun-sub001/internal/game"
	"github.com/bokk3/gamble-fun-sub001/internal/store"
)

// memStore collects hand records in memory and can simulate outages.
type memStore struct {
	mu      sync.Mutex
	records []*store.HandRecord
	fail    bool
}

func (m *memStore) AppendHand(r *store.HandRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return store.ErrUnavailable
	}
	m.records = append(m.records, r)
	return nil
}

func (m *memStore) setFail(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memStore) last() *store.HandRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.records) == 0 {
		return nil
	}
	return m.records[len(m.records)-1]
}

// memSink records published events, split by audience.
type memSink struct {
	mu      sync.Mutex
	public  []Event
	private map[string][]Event
}

func newMemSink() *memSink {
	return &memSink{private: make(map[string][]Event)}
}

func (s *memSink) Publish(tableID string, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.public = append(s.public, e)
}

func (s *memSink) PublishTo(tableID string, id game.Identity, e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.private[id.String()] = append(s.private[id.String()], e)
}

func (s *memSink) publicByType(typ string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.public {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (s *memSink) privateFor(id game.Identity, typ string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.private[id.String()] {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type testTable struct {
	o      *Orchestrator
	sink   *memSink
	store  *memStore
	ledger *store.MemLedger
	clock  *quartz.Mock
}

func newTestTable(t *testing.T, balances map[string]int) *testTable {
	t.Helper()

	tt := &testTable{
		sink:   newMemSink(),
		store:  &memStore{},
		ledger: store.NewMemLedger(balances),
		clock:  quartz.NewMock(t),
	}
	tt.o = New(Config{
		TableID:        "t1",
		SmallBlind:     1,
		BigBlind:       2,
		MinBuyIn:       50,
		MaxBuyIn:       200,
		MaxSeats:       6,
		TurnTimeout:    30 * time.Second,
		InterHandDelay: time.Hour,
		GraceWindow:    60 * time.Second,
		Clock:          tt.clock,
		Logger:         log.New(io.Discard),
		Sink:           tt.sink,
		Store:          tt.store,
		Ledger:         tt.ledger,
		Engine:         ai.NewEngine(rand.New(rand.NewSource(42))),
		RNG:            rand.New(rand.NewSource(7)),
	})
	t.Cleanup(tt.o.Close)
	return tt
}

// sync flushes the command queue by round-tripping a state request.
func (tt *testTable) sync(t *testing.T) TableStateData {
	t.Helper()
	snap, err := tt.o.State(context.Background())
	require.NoError(t, err)
	return snap
}

func TestJoinAndLeave(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 500})
	alice := game.HumanIdentity("alice")

	t.Run("buy-in is debited up front", func(t *testing.T) {
		pos, err := tt.o.Join(ctx, alice, "Alice", 100)
		require.NoError(t, err)
		assert.Equal(t, 0, pos)
		assert.Equal(t, 400, tt.ledger.Balance("alice"))
	})

	t.Run("double join is rejected", func(t *testing.T) {
		_, err := tt.o.Join(ctx, alice, "Alice", 100)
		require.ErrorIs(t, err, ErrAlreadySeated)
		assert.Equal(t, 400, tt.ledger.Balance("alice"))
	})

	t.Run("buy-in outside limits is rejected", func(t *testing.T) {
		_, err := tt.o.Join(ctx, game.HumanIdentity("eve"), "Eve", 10)
		require.ErrorIs(t, err, ErrBuyInRange)
		_, err = tt.o.Join(ctx, game.HumanIdentity("eve"), "Eve", 5000)
		require.ErrorIs(t, err, ErrBuyInRange)
	})

	t.Run("insufficient funds rejects the join outright", func(t *testing.T) {
		_, err := tt.o.Join(ctx, game.HumanIdentity("pauper"), "Pauper", 200)
		require.ErrorIs(t, err, store.ErrInsufficientFunds)
		snap := tt.sync(t)
		assert.Len(t, snap.Seats, 1)
	})

	t.Run("leave credits the stack back", func(t *testing.T) {
		chips, err := tt.o.Leave(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, 100, chips)
		assert.Equal(t, 500, tt.ledger.Balance("alice"))
	})

	t.Run("leave without a seat", func(t *testing.T) {
		_, err := tt.o.Leave(ctx, alice)
		require.ErrorIs(t, err, ErrNotSeated)
	})
}

func TestHeadsUpFoldHand(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 500, "bob": 500})
	alice := game.HumanIdentity("alice")
	bob := game.HumanIdentity("bob")

	_, err := tt.o.Join(ctx, alice, "Alice", 100)
	require.NoError(t, err)
	_, err = tt.o.Join(ctx, bob, "Bob", 100)
	require.NoError(t, err)

	require.NoError(t, tt.o.StartHand(ctx))

	// Heads-up the button posts the small blind and opens pre-flop.
	snap := tt.sync(t)
	require.Equal(t, "pre_flop", snap.Round)
	require.Equal(t, 0, snap.CurrentTurn)
	assert.Equal(t, 3, snap.Pot)

	// Hole cards arrive privately and never in the public stream.
	holes := tt.sink.privateFor(alice, EventHoleCards)
	require.Len(t, holes, 1)
	assert.Len(t, holes[0].Data.(HoleCardsData).Cards, 2)
	for _, e := range tt.sink.publicByType(EventTableState) {
		for _, seat := range e.Data.(TableStateData).Seats {
			assert.Empty(t, seat.HoleCards, "hole cards leaked to public state")
		}
	}

	// Small blind folds; big blind collects the pot.
	require.NoError(t, tt.o.SubmitAction(ctx, alice, game.Fold, 0))

	completes := tt.sink.publicByType(EventHandComplete)
	require.Len(t, completes, 1)
	data := completes[0].Data.(HandCompleteData)
	assert.Equal(t, "folds", data.Reason)
	require.Len(t, data.Winners, 1)
	assert.Equal(t, 1, data.Winners[0].Position)
	assert.Equal(t, 3, data.Winners[0].Amount)

	// Net result: the folder loses the small blind, one big blind stays put.
	chips, err := tt.o.Leave(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 99, chips)
	chips, err = tt.o.Leave(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 101, chips)

	// The revealed seed matches the pre-hand commitment.
	require.Equal(t, 1, tt.store.count())
	rec := tt.store.last()
	assert.Equal(t, store.SchemaVersion, rec.SchemaVersion)
	assert.Equal(t, "t1", rec.TableID)
	assert.Equal(t, "t1:1", rec.ClientSeed)
	assert.True(t, fairness.Verify(rec.SeedCommitment, rec.ServerSeed))
	assert.Equal(t, "folds", rec.Reason)
	require.NotEmpty(t, rec.Actions)
	assert.Equal(t, "fold", rec.Actions[len(rec.Actions)-1].Action)
	assert.Empty(t, rec.Seats[0].HoleCards, "folded hands stay hidden")
}

func TestCheckedDownToShowdown(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 500, "bob": 500})
	alice := game.HumanIdentity("alice")
	bob := game.HumanIdentity("bob")

	_, err := tt.o.Join(ctx, alice, "Alice", 100)
	require.NoError(t, err)
	_, err = tt.o.Join(ctx, bob, "Bob", 100)
	require.NoError(t, err)
	require.NoError(t, tt.o.StartHand(ctx))

	// Pre-flop: button limps, big blind checks its option.
	require.NoError(t, tt.o.SubmitAction(ctx, alice, game.Call, 0))
	require.NoError(t, tt.o.SubmitAction(ctx, bob, game.Check, 0))

	// Post-flop the big blind acts first heads-up. Check every street down.
	for _, round := range []string{"flop", "turn", "river"} {
		snap := tt.sync(t)
		require.Equal(t, round, snap.Round)
		require.NoError(t, tt.o.SubmitAction(ctx, bob, game.Check, 0))
		require.NoError(t, tt.o.SubmitAction(ctx, alice, game.Check, 0))
	}

	showdowns := tt.sink.publicByType(EventShowdown)
	require.Len(t, showdowns, 1)
	sd := showdowns[0].Data.(ShowdownData)
	require.Len(t, sd.Seats, 2)
	for _, seat := range sd.Seats {
		assert.Len(t, seat.HoleCards, 2)
		assert.NotEmpty(t, seat.Category)
	}

	completes := tt.sink.publicByType(EventHandComplete)
	require.Len(t, completes, 1)
	data := completes[0].Data.(HandCompleteData)
	assert.Equal(t, "showdown", data.Reason)

	total := 0
	for _, w := range data.Winners {
		total += w.Amount
	}
	assert.Equal(t, 4, total)

	// Chips are conserved across the table.
	rec := tt.store.last()
	require.NotNil(t, rec)
	endTotal := 0
	for _, s := range rec.Seats {
		endTotal += s.ChipsEnd
	}
	assert.Equal(t, 200, endTotal)
	assert.Len(t, rec.Board, 5)
}

func TestActionTimeoutChecksWhenFree(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 500, "bob": 500})
	alice := game.HumanIdentity("alice")
	bob := game.HumanIdentity("bob")

	_, err := tt.o.Join(ctx, alice, "Alice", 100)
	require.NoError(t, err)
	_, err = tt.o.Join(ctx, bob, "Bob", 100)
	require.NoError(t, err)
	require.NoError(t, tt.o.StartHand(ctx))

	// Alice limps, so Bob's big blind faces no outstanding bet. His expired
	// deadline must check him through to the flop, not fold him.
	require.NoError(t, tt.o.SubmitAction(ctx, alice, game.Call, 0))

	tt.clock.Advance(30 * time.Second).MustWait(ctx)
	snap := tt.sync(t)

	assert.Equal(t, "flop", snap.Round)
	assert.Empty(t, tt.sink.publicByType(EventHandComplete))
	for _, seat := range snap.Seats {
		assert.False(t, seat.Folded)
	}
}

func TestActionTimeoutFoldsFacingBet(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 500, "bob": 500})
	alice := game.HumanIdentity("alice")
	bob := game.HumanIdentity("bob")

	_, err := tt.o.Join(ctx, alice, "Alice", 100)
	require.NoError(t, err)
	_, err = tt.o.Join(ctx, bob, "Bob", 100)
	require.NoError(t, err)
	require.NoError(t, tt.o.StartHand(ctx))

	// Alice raises, so Bob faces a live bet when his deadline expires.
	require.NoError(t, tt.o.SubmitAction(ctx, alice, game.Raise, 2))

	tt.clock.Advance(30 * time.Second).MustWait(ctx)
	snap := tt.sync(t)

	// Bob timed out and was folded; Alice takes the pot.
	completes := tt.sink.publicByType(EventHandComplete)
	require.Len(t, completes, 1)
	data := completes[0].Data.(HandCompleteData)
	require.Len(t, data.Winners, 1)
	assert.Equal(t, 0, data.Winners[0].Position)
	assert.Equal(t, 6, data.Winners[0].Amount)
	assert.Equal(t, "folds", data.Reason)

	for _, seat := range snap.Seats {
		if seat.Position == 0 {
			assert.Equal(t, 102, seat.Chips)
			assert.False(t, seat.Folded)
		}
	}
}

func TestActingCancelsOwnDeadline(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 500, "bob": 500})
	alice := game.HumanIdentity("alice")
	bob := game.HumanIdentity("bob")

	_, err := tt.o.Join(ctx, alice, "Alice", 100)
	require.NoError(t, err)
	_, err = tt.o.Join(ctx, bob, "Bob", 100)
	require.NoError(t, err)
	require.NoError(t, tt.o.StartHand(ctx))

	require.NoError(t, tt.o.SubmitAction(ctx, alice, game.Call, 0))
	tt.clock.Advance(29 * time.Second).MustWait(ctx)
	require.NoError(t, tt.o.SubmitAction(ctx, bob, game.Check, 0))

	// 29s into the flop, nobody has timed out and the hand is live.
	tt.clock.Advance(29 * time.Second).MustWait(ctx)
	snap := tt.sync(t)
	assert.Equal(t, "flop", snap.Round)
	assert.Empty(t, tt.sink.publicByType(EventHandComplete))
}

func TestOutOfTurnAndInvalidActions(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 500, "bob": 500})
	alice := game.HumanIdentity("alice")
	bob := game.HumanIdentity("bob")

	_, err := tt.o.Join(ctx, alice, "Alice", 100)
	require.NoError(t, err)
	_, err = tt.o.Join(ctx, bob, "Bob", 100)
	require.NoError(t, err)
	require.NoError(t, tt.o.StartHand(ctx))

	// Bob does not hold the turn.
	err = tt.o.SubmitAction(ctx, bob, game.Fold, 0)
	require.ErrorIs(t, err, game.ErrOutOfTurn)

	// Checking is illegal facing the big blind.
	err = tt.o.SubmitAction(ctx, alice, game.Check, 0)
	var verr *game.ValidationError
	require.ErrorAs(t, err, &verr)

	// The rejection went back to Alice privately.
	errs := tt.sink.privateFor(alice, EventError)
	require.NotEmpty(t, errs)
	assert.Equal(t, "invalid_action", errs[0].Data.(ErrorData).Code)

	// A stranger gets ErrNotSeated.
	err = tt.o.SubmitAction(ctx, game.HumanIdentity("eve"), game.Fold, 0)
	require.ErrorIs(t, err, ErrNotSeated)
}

func TestBotsPlayAHandToCompletion(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, nil)

	profileA := ai.Profile{
		ID: "station", Name: "Station", Style: ai.CallingStation, Skill: ai.Expert,
		Aggression: 0.3, BluffFrequency: 0.05, FoldToPressure: 0.2, Bankroll: 10000,
	}
	profileB := ai.Profile{
		ID: "rock", Name: "Rock", Style: ai.Rock, Skill: ai.Expert,
		Aggression: 0.4, BluffFrequency: 0.02, FoldToPressure: 0.5, Bankroll: 10000,
	}

	_, err := tt.o.AddAI(ctx, profileA, 100)
	require.NoError(t, err)
	_, err = tt.o.AddAI(ctx, profileB, 100)
	require.NoError(t, err)
	require.NoError(t, tt.o.StartHand(ctx))

	// Expert bots think for at most 1.5s per turn; step the clock until the
	// hand record lands.
	for i := 0; i < 400 && tt.store.count() == 0; i++ {
		tt.clock.Advance(250 * time.Millisecond).MustWait(ctx)
		tt.sync(t)
	}
	require.Equal(t, 1, tt.store.count())

	rec := tt.store.last()
	assert.True(t, fairness.Verify(rec.SeedCommitment, rec.ServerSeed))
	endTotal := 0
	for _, s := range rec.Seats {
		endTotal += s.ChipsEnd
	}
	assert.Equal(t, 200, endTotal)
	require.NotEmpty(t, rec.Actions)
	for i, a := range rec.Actions {
		assert.Equal(t, i+1, a.Seq)
	}
}

func TestDisconnectGraceWindow(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 500, "bob": 500})
	alice := game.HumanIdentity("alice")
	bob := game.HumanIdentity("bob")

	_, err := tt.o.Join(ctx, alice, "Alice", 100)
	require.NoError(t, err)
	_, err = tt.o.Join(ctx, bob, "Bob", 100)
	require.NoError(t, err)

	t.Run("heartbeat inside the window keeps the seat", func(t *testing.T) {
		require.NoError(t, tt.o.MarkDisconnected(ctx, bob))
		tt.clock.Advance(30 * time.Second).MustWait(ctx)
		require.NoError(t, tt.o.Heartbeat(ctx, bob))
		tt.clock.Advance(60 * time.Second).MustWait(ctx)

		snap := tt.sync(t)
		assert.Len(t, snap.Seats, 2)
		for _, s := range snap.Seats {
			assert.False(t, s.SittingOut)
		}
	})

	t.Run("expired window cashes the seat out", func(t *testing.T) {
		require.NoError(t, tt.o.MarkDisconnected(ctx, alice))
		tt.clock.Advance(60 * time.Second).MustWait(ctx)

		snap := tt.sync(t)
		assert.Len(t, snap.Seats, 1)
		assert.Equal(t, 500, tt.ledger.Balance("alice"))
	})
}

func TestAllInBlindsDealSettlesImmediately(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 500, "bob": 500})
	alice := game.HumanIdentity("alice")
	bob := game.HumanIdentity("bob")

	_, err := tt.o.Join(ctx, alice, "Alice", 100)
	require.NoError(t, err)
	_, err = tt.o.Join(ctx, bob, "Bob", 100)
	require.NoError(t, err)

	// Both stacks have shrunk below the blinds over previous hands, so the
	// posts put both seats all-in and nobody holds a turn.
	require.NoError(t, tt.o.do(ctx, func() {
		tt.o.seats[0].Chips = 1
		tt.o.seats[1].Chips = 2
	}))

	require.NoError(t, tt.o.StartHand(ctx))

	// The deal runs the board out and settles without any action or timer.
	require.Equal(t, 1, tt.store.count())
	rec := tt.store.last()
	assert.Equal(t, "showdown", rec.Reason)
	assert.Len(t, rec.Board, 5)
	endTotal := 0
	for _, s := range rec.Seats {
		endTotal += s.ChipsEnd
	}
	assert.Equal(t, 3, endTotal)
}

func TestFailedSettlementBlocksNewDeals(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 500, "bob": 500})
	alice := game.HumanIdentity("alice")
	bob := game.HumanIdentity("bob")

	_, err := tt.o.Join(ctx, alice, "Alice", 100)
	require.NoError(t, err)
	_, err = tt.o.Join(ctx, bob, "Bob", 100)
	require.NoError(t, err)
	require.NoError(t, tt.o.StartHand(ctx))

	// Corrupt the hand so the payout cannot balance against the pot.
	require.NoError(t, tt.o.do(ctx, func() {
		tt.o.hand.Seats[0].TotalBet = -1
	}))

	// The fold completes the hand but settlement must refuse to pay out.
	require.NoError(t, tt.o.SubmitAction(ctx, alice, game.Fold, 0))

	errs := tt.sink.publicByType(EventError)
	require.NotEmpty(t, errs)
	assert.Equal(t, "settlement_failed", errs[0].Data.(ErrorData).Code)
	assert.Equal(t, 0, tt.store.count(), "an unsettled hand must not be recorded")

	// The table refuses further deals instead of overwriting the stuck hand.
	err = tt.o.StartHand(ctx)
	require.ErrorIs(t, err, ErrUnsettled)
}

func TestStoreOutageRefusesNewHands(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 500, "bob": 500})
	alice := game.HumanIdentity("alice")
	bob := game.HumanIdentity("bob")

	_, err := tt.o.Join(ctx, alice, "Alice", 100)
	require.NoError(t, err)
	_, err = tt.o.Join(ctx, bob, "Bob", 100)
	require.NoError(t, err)

	tt.store.setFail(true)
	require.NoError(t, tt.o.StartHand(ctx))
	require.NoError(t, tt.o.SubmitAction(ctx, alice, game.Fold, 0))
	require.Equal(t, 0, tt.store.count())

	// The unwritten record blocks the next deal.
	err = tt.o.StartHand(ctx)
	require.ErrorIs(t, err, ErrStoreUnhealthy)

	// Once the store recovers, the pending record is flushed first and
	// play resumes.
	tt.store.setFail(false)
	require.NoError(t, tt.o.StartHand(ctx))
	assert.Equal(t, 1, tt.store.count())
	snap := tt.sync(t)
	assert.Equal(t, "pre_flop", snap.Round)
	assert.Equal(t, uint64(2), snap.HandNumber)
}

func TestNotEnoughPlayers(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 500})

	_, err := tt.o.Join(ctx, game.HumanIdentity("alice"), "Alice", 100)
	require.NoError(t, err)

	err = tt.o.StartHand(ctx)
	require.ErrorIs(t, err, ErrNotEnoughPlayers)
}

func TestButtonRotates(t *testing.T) {
	ctx := context.Background()
	tt := newTestTable(t, map[string]int{"alice": 500, "bob": 500})
	alice := game.HumanIdentity("alice")
	bob := game.HumanIdentity("bob")

	_, err := tt.o.Join(ctx, alice, "Alice", 100)
	require.NoError(t, err)
	_, err = tt.o.Join(ctx, bob, "Bob", 100)
	require.NoError(t, err)

	require.NoError(t, tt.o.StartHand(ctx))
	require.NoError(t, tt.o.SubmitAction(ctx, alice, game.Fold, 0))
	require.NoError(t, tt.o.StartHand(ctx))
	require.NoError(t, tt.o.SubmitAction(ctx, bob, game.Fold, 0))

	starts := tt.sink.publicByType(EventHandStarted)
	require.Len(t, starts, 2)
	assert.Equal(t, 0, starts[0].Data.(HandStartedData).Button)
	assert.Equal(t, 1, starts[1].Data.(HandStartedData).Button)
}
