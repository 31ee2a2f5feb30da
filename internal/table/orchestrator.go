// Package table runs the per-table orchestrator: one goroutine owns all of a
// table's state and every mutation arrives as a command on its channel, so
// the game logic itself never locks.
package table

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/bokk3/gamble-fun-sub001/internal/ai"
	"github.com/bokk3/gamble-fun-sub001/internal/deck"
	"github.com/bokk3/gamble-fun-sub001/internal/fairness"
	"github.com/bokk3/gamble-fun-sub001/internal/game"
	"github.com/bokk3/gamble-fun-sub001/internal/gameid"
	"github.com/bokk3/gamble-fun-sub001/internal/store"
)

var (
	// ErrTableFull rejects a join when every seat is taken.
	ErrTableFull = errors.New("table: no free seats")

	// ErrAlreadySeated rejects a second join by the same identity.
	ErrAlreadySeated = errors.New("table: identity already seated")

	// ErrNotSeated rejects commands from identities without a seat.
	ErrNotSeated = errors.New("table: identity not seated")

	// ErrBuyInRange rejects a buy-in outside the table's limits.
	ErrBuyInRange = errors.New("table: buy-in outside table limits")

	// ErrHandInProgress rejects starting a hand while one is running.
	ErrHandInProgress = errors.New("table: hand already in progress")

	// ErrNotEnoughPlayers rejects starting a hand with fewer than two
	// funded, connected seats.
	ErrNotEnoughPlayers = errors.New("table: need at least 2 players with chips")

	// ErrStoreUnhealthy refuses new hands while a completed hand record
	// has not been durably written.
	ErrStoreUnhealthy = errors.New("table: hand store unavailable, not dealing")

	// ErrUnsettled refuses new hands after a failed settlement. The table
	// stays inspectable and needs operator intervention.
	ErrUnsettled = errors.New("table: previous hand unsettled, not dealing")

	// ErrClosed rejects commands after the orchestrator shuts down.
	ErrClosed = errors.New("table: closed")
)

// Config carries a table's rules and collaborators.
type Config struct {
	TableID    string
	SmallBlind int
	BigBlind   int
	MinBuyIn   int
	MaxBuyIn   int
	MaxSeats   int

	// TurnTimeout force-folds a human seat that has not acted in time.
	TurnTimeout time.Duration
	// InterHandDelay separates the end of one hand from the next deal.
	InterHandDelay time.Duration
	// GraceWindow is how long a disconnected seat is held before cash-out.
	GraceWindow time.Duration

	Clock  quartz.Clock
	Logger *log.Logger
	Sink   Sink
	Store  store.HandStore
	Ledger store.Ledger
	Engine *ai.Engine
	RNG    *rand.Rand

	// OnEmpty is called once, outside the run loop, when the last seat
	// leaves. The registry uses it to tear the table down.
	OnEmpty func(tableID string)
}

// Orchestrator owns one table. All state below the commands channel is
// touched only by the run goroutine.
type Orchestrator struct {
	cfg      Config
	log      *log.Logger
	clock    quartz.Clock
	commands chan func()
	quit     chan struct{}
	stopped  chan struct{}

	// run-loop state
	seats    []*game.Seat // indexed by table position, nil when empty
	profiles map[int]ai.Profile
	grace    map[int]*quartz.Timer

	hand       *game.Hand
	handID     string
	handNumber uint64
	buttonPos  int // table position, advanced after every hand

	serverSeed string
	clientSeed string
	commitment string
	startNonce uint64
	startedAt  time.Time
	chipsStart map[int]int
	actions    []store.ActionEntry
	revealed   map[int]bool

	generation uint64
	turnTimer  *quartz.Timer
	idleTimer  *quartz.Timer

	pending   *store.HandRecord // hand record awaiting a durable write
	unsettled bool              // a settlement failed; no new hands
	rng       *rand.Rand
}

// New creates and starts a table orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.RNG == nil {
		cfg.RNG = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.MaxSeats <= 0 {
		cfg.MaxSeats = 9
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = 30 * time.Second
	}
	if cfg.InterHandDelay <= 0 {
		cfg.InterHandDelay = 3 * time.Second
	}
	if cfg.GraceWindow <= 0 {
		cfg.GraceWindow = 60 * time.Second
	}

	o := &Orchestrator{
		cfg:      cfg,
		log:      cfg.Logger.WithPrefix("table." + cfg.TableID),
		clock:    cfg.Clock,
		commands: make(chan func(), 64),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
		seats:    make([]*game.Seat, cfg.MaxSeats),
		profiles: make(map[int]ai.Profile),
		grace:    make(map[int]*quartz.Timer),
		rng:      cfg.RNG,
	}
	o.buttonPos = -1
	go o.run()
	return o
}

func (o *Orchestrator) run() {
	defer close(o.stopped)
	for {
		select {
		case fn := <-o.commands:
			fn()
		case <-o.quit:
			o.stopTimers()
			return
		}
	}
}

// Close stops the run loop. Pending commands are dropped.
func (o *Orchestrator) Close() {
	select {
	case <-o.quit:
	default:
		close(o.quit)
	}
	<-o.stopped
}

// do runs fn on the run loop and waits for it to finish.
func (o *Orchestrator) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case o.commands <- wrapped:
	case <-o.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-o.quit:
		return ErrClosed
	}
}

// enqueue submits fn without waiting. Used from timer callbacks.
func (o *Orchestrator) enqueue(fn func()) {
	select {
	case o.commands <- fn:
	case <-o.quit:
	}
}

// Join seats a human player. The ledger debit happens before the seat is
// granted; a failed debit rejects the join with no state change.
func (o *Orchestrator) Join(ctx context.Context, identity game.Identity, name string, buyIn int) (int, error) {
	if buyIn < o.cfg.MinBuyIn || buyIn > o.cfg.MaxBuyIn {
		return 0, fmt.Errorf("%w: %d not in [%d, %d]", ErrBuyInRange, buyIn, o.cfg.MinBuyIn, o.cfg.MaxBuyIn)
	}

	var (
		position int
		joinErr  error
	)
	err := o.do(ctx, func() {
		pos, err := o.freeSeat(identity)
		if err != nil {
			joinErr = err
			return
		}
		if !identity.IsAI() && o.cfg.Ledger != nil {
			if err := o.cfg.Ledger.Debit(identity.UserID, buyIn); err != nil {
				joinErr = fmt.Errorf("debit buy-in: %w", err)
				return
			}
		}
		seat := game.NewSeat(identity, name, pos, buyIn)
		seat.LastSeen = o.clock.Now()
		o.seats[pos] = seat
		position = pos
		o.log.Info("player joined", "identity", identity.String(), "position", pos, "chips", buyIn)
		o.publishState()
		o.maybeScheduleNextHand()
	})
	if err != nil {
		return 0, err
	}
	return position, joinErr
}

// AddAI seats a bot playing the given profile.
func (o *Orchestrator) AddAI(ctx context.Context, profile ai.Profile, buyIn int) (int, error) {
	if buyIn <= 0 {
		buyIn = o.cfg.MaxBuyIn
	}
	if buyIn > profile.Bankroll && profile.Bankroll > 0 {
		buyIn = profile.Bankroll
	}

	var (
		position int
		joinErr  error
	)
	err := o.do(ctx, func() {
		identity := game.AIIdentity(profile.ID)
		pos, err := o.freeSeat(identity)
		if err != nil {
			joinErr = err
			return
		}
		seat := game.NewSeat(identity, profile.Name, pos, buyIn)
		seat.LastSeen = o.clock.Now()
		o.seats[pos] = seat
		o.profiles[pos] = profile
		position = pos
		o.log.Info("bot joined", "profile", profile.ID, "style", profile.Style.String(), "position", pos)
		o.publishState()
		o.maybeScheduleNextHand()
	})
	if err != nil {
		return 0, err
	}
	return position, joinErr
}

func (o *Orchestrator) freeSeat(identity game.Identity) (int, error) {
	for _, s := range o.seats {
		if s != nil && s.Identity == identity {
			return 0, ErrAlreadySeated
		}
	}
	for pos, s := range o.seats {
		if s == nil {
			return pos, nil
		}
	}
	return 0, ErrTableFull
}

// Leave removes an identity's seat and credits its remaining chips back to
// the ledger. Leaving mid-hand folds the seat first; chips already committed
// to the pot stay in it.
func (o *Orchestrator) Leave(ctx context.Context, identity game.Identity) (int, error) {
	var (
		chips    int
		leaveErr error
	)
	err := o.do(ctx, func() {
		pos := o.position(identity)
		if pos < 0 {
			leaveErr = ErrNotSeated
			return
		}
		chips = o.removeSeat(pos, "left")
	})
	if err != nil {
		return 0, err
	}
	return chips, leaveErr
}

// removeSeat is the single exit path for a seat: fold out of any live hand,
// credit the stack, free the position. Returns the chips cashed out.
func (o *Orchestrator) removeSeat(pos int, reason string) int {
	seat := o.seats[pos]
	if seat == nil {
		return 0
	}

	if o.hand != nil && !o.hand.IsComplete() {
		if idx := o.handIndex(pos); idx >= 0 {
			o.applyForcedFold(idx, reason)
		}
	}

	chips := seat.Chips
	seat.Chips = 0
	if !seat.Identity.IsAI() && o.cfg.Ledger != nil && chips > 0 {
		if err := o.cfg.Ledger.Credit(seat.Identity.UserID, chips); err != nil {
			// The seat is gone either way; the credit failure is an
			// operator problem, not a table one.
			o.log.Error("cash-out credit failed", "identity", seat.Identity.String(), "chips", chips, "err", err)
		}
	}

	if t, ok := o.grace[pos]; ok {
		t.Stop()
		delete(o.grace, pos)
	}
	delete(o.profiles, pos)
	o.seats[pos] = nil
	o.log.Info("seat vacated", "identity", seat.Identity.String(), "position", pos, "chips", chips, "reason", reason)
	o.publishState()

	if o.occupied() == 0 && o.cfg.OnEmpty != nil {
		go o.cfg.OnEmpty(o.cfg.TableID)
	}
	return chips
}

// SubmitAction applies a player's action if it is their turn and the action
// is legal. Validation failures are returned and also published privately.
func (o *Orchestrator) SubmitAction(ctx context.Context, identity game.Identity, action game.Action, amount int) error {
	var actErr error
	err := o.do(ctx, func() {
		pos := o.position(identity)
		if pos < 0 {
			actErr = ErrNotSeated
			return
		}
		if o.hand == nil || o.hand.IsComplete() {
			actErr = game.ErrHandComplete
			return
		}
		idx := o.handIndex(pos)
		if idx < 0 {
			actErr = game.ErrOutOfTurn
			return
		}
		actErr = o.applyAction(idx, action, amount)
		if actErr != nil {
			o.cfg.Sink.PublishTo(o.cfg.TableID, identity, Event{
				Type: EventError,
				Data: ErrorData{Code: "invalid_action", Message: actErr.Error()},
			})
		}
	})
	if err != nil {
		return err
	}
	return actErr
}

// StartHand deals the next hand immediately instead of waiting for the
// inter-hand delay.
func (o *Orchestrator) StartHand(ctx context.Context) error {
	var startErr error
	err := o.do(ctx, func() {
		startErr = o.startHand()
	})
	if err != nil {
		return err
	}
	return startErr
}

// Heartbeat marks an identity as connected, clearing any grace countdown.
func (o *Orchestrator) Heartbeat(ctx context.Context, identity game.Identity) error {
	var hbErr error
	err := o.do(ctx, func() {
		pos := o.position(identity)
		if pos < 0 {
			hbErr = ErrNotSeated
			return
		}
		seat := o.seats[pos]
		seat.LastSeen = o.clock.Now()
		if seat.SittingOut {
			seat.SittingOut = false
			o.log.Info("player reconnected", "identity", identity.String(), "position", pos)
			o.publishState()
		}
		if t, ok := o.grace[pos]; ok {
			t.Stop()
			delete(o.grace, pos)
		}
	})
	if err != nil {
		return err
	}
	return hbErr
}

// MarkDisconnected starts the reconnection grace window for an identity. If
// the window expires without a heartbeat the seat is cashed out.
func (o *Orchestrator) MarkDisconnected(ctx context.Context, identity game.Identity) error {
	var dcErr error
	err := o.do(ctx, func() {
		pos := o.position(identity)
		if pos < 0 {
			dcErr = ErrNotSeated
			return
		}
		seat := o.seats[pos]
		if seat.SittingOut {
			return
		}
		seat.SittingOut = true
		o.log.Info("player disconnected", "identity", identity.String(), "position", pos, "grace", o.cfg.GraceWindow)
		o.publishState()

		if t, ok := o.grace[pos]; ok {
			t.Stop()
		}
		o.grace[pos] = o.clock.AfterFunc(o.cfg.GraceWindow, func() {
			o.enqueue(func() {
				s := o.seats[pos]
				if s == nil || s.Identity != identity || !s.SittingOut {
					return
				}
				o.removeSeat(pos, "grace window expired")
			})
		})
	})
	if err != nil {
		return err
	}
	return dcErr
}

// State returns the public table snapshot.
func (o *Orchestrator) State(ctx context.Context) (TableStateData, error) {
	var snap TableStateData
	err := o.do(ctx, func() {
		snap = o.snapshot()
	})
	return snap, err
}

// Occupied returns how many seats are taken.
func (o *Orchestrator) Occupied(ctx context.Context) (int, error) {
	var n int
	err := o.do(ctx, func() { n = o.occupied() })
	return n, err
}

func (o *Orchestrator) position(identity game.Identity) int {
	for pos, s := range o.seats {
		if s != nil && s.Identity == identity {
			return pos
		}
	}
	return -1
}

func (o *Orchestrator) occupied() int {
	n := 0
	for _, s := range o.seats {
		if s != nil {
			n++
		}
	}
	return n
}

// handIndex maps a table position to the current hand's seat index.
func (o *Orchestrator) handIndex(pos int) int {
	if o.hand == nil {
		return -1
	}
	for i, s := range o.hand.Seats {
		if s.Position == pos {
			return i
		}
	}
	return -1
}

// eligible returns seats that can be dealt in, ordered by position.
func (o *Orchestrator) eligible() []*game.Seat {
	var out []*game.Seat
	for _, s := range o.seats {
		if s != nil && s.Chips > 0 && !s.SittingOut {
			out = append(out, s)
		}
	}
	return out
}

// maybeScheduleNextHand arms the inter-hand timer when the table is idle and
// has enough players.
func (o *Orchestrator) maybeScheduleNextHand() {
	if o.hand != nil && !o.hand.IsComplete() {
		return
	}
	if o.unsettled || len(o.eligible()) < 2 || o.idleTimer != nil {
		return
	}
	o.idleTimer = o.clock.AfterFunc(o.cfg.InterHandDelay, func() {
		o.enqueue(func() {
			o.idleTimer = nil
			if err := o.startHand(); err != nil {
				o.log.Debug("auto-deal skipped", "err", err)
			}
		})
	})
}

// startHand deals a new hand: flush any pending record, commit to a fresh
// server seed, shuffle, post blinds, deal, and hand the turn to the opener.
func (o *Orchestrator) startHand() error {
	if o.hand != nil && !o.hand.IsComplete() {
		return ErrHandInProgress
	}
	if o.unsettled {
		return ErrUnsettled
	}
	if err := o.flushPending(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnhealthy, err)
	}

	players := o.eligible()
	if len(players) < 2 {
		return ErrNotEnoughPlayers
	}

	serverSeed, err := fairness.NewServerSeed()
	if err != nil {
		return fmt.Errorf("new server seed: %w", err)
	}

	o.handNumber++
	o.handID = gameid.Generate()
	o.serverSeed = serverSeed
	o.clientSeed = fmt.Sprintf("%s:%d", o.cfg.TableID, o.handNumber)
	o.commitment = fairness.Commitment(serverSeed)
	o.startNonce = 0
	o.startedAt = o.clock.Now()
	o.actions = o.actions[:0]
	o.revealed = make(map[int]bool)

	o.chipsStart = make(map[int]int, len(players))
	for _, s := range players {
		o.chipsStart[s.Position] = s.Chips
	}

	button := o.buttonIndex(players)
	stream := fairness.NewStream(o.serverSeed, o.clientSeed, o.startNonce)
	hand, err := game.NewHand(deck.New(stream), players, button, o.cfg.SmallBlind, o.cfg.BigBlind, o.handNumber)
	if err != nil {
		return err
	}
	o.hand = hand
	o.generation++

	o.log.Info("hand started",
		"hand", o.handID,
		"number", o.handNumber,
		"players", len(players),
		"button", players[button].Position,
		"commitment", o.commitment)

	o.cfg.Sink.Publish(o.cfg.TableID, Event{Type: EventHandStarted, Data: HandStartedData{
		HandID:         o.handID,
		HandNumber:     o.handNumber,
		Button:         players[button].Position,
		SmallBlind:     o.cfg.SmallBlind,
		BigBlind:       o.cfg.BigBlind,
		SeedCommitment: o.commitment,
		ClientSeed:     o.clientSeed,
	}})

	for _, s := range hand.Seats {
		o.cfg.Sink.PublishTo(o.cfg.TableID, s.Identity, Event{Type: EventTableState, Data: o.privateSnapshot(s)})
		o.cfg.Sink.PublishTo(o.cfg.TableID, s.Identity, Event{
			Type: EventHoleCards,
			Data: HoleCardsData{HandID: o.handID, Cards: deck.Codes(s.HoleCards)},
		})
	}
	o.publishState()
	if o.hand.IsComplete() {
		// The blinds put every seat all-in and the board is already run
		// out; there is no turn to schedule.
		o.finishHand()
		return nil
	}
	o.scheduleTurn()
	return nil
}

// buttonIndex picks the index in players of the seat holding the button,
// advancing from the previous hand's button position.
func (o *Orchestrator) buttonIndex(players []*game.Seat) int {
	n := len(players)
	for i := 0; i < n; i++ {
		if players[i].Position > o.buttonPos {
			o.buttonPos = players[i].Position
			return i
		}
	}
	o.buttonPos = players[0].Position
	return 0
}

// scheduleTurn arms the clock for whoever holds the turn: a thinking delay
// for bots, an action deadline for humans. Each timer captures the current
// generation and fires as a no-op if the turn has since moved on.
func (o *Orchestrator) scheduleTurn() {
	o.stopTurnTimer()
	if o.hand == nil || o.hand.Active < 0 {
		return
	}

	seat := o.hand.Seats[o.hand.Active]
	idx := o.hand.Active
	gen := o.generation

	if profile, ok := o.profiles[seat.Position]; ok && seat.Identity.IsAI() {
		delay := profile.ThinkingDelay(o.rng.Float64())
		o.turnTimer = o.clock.AfterFunc(delay, func() {
			o.enqueue(func() {
				if o.generation != gen {
					return
				}
				o.runBot(idx, profile)
			})
		})
		return
	}

	o.turnTimer = o.clock.AfterFunc(o.cfg.TurnTimeout, func() {
		o.enqueue(func() {
			if o.generation != gen {
				return
			}
			o.log.Warn("action timeout", "position", seat.Position, "hand", o.handID)
			o.applyTimeout(idx)
		})
	})
}

// applyTimeout resolves an expired action deadline: the seat checks when it
// faces no bet, otherwise it is folded.
func (o *Orchestrator) applyTimeout(idx int) {
	seat := o.hand.Seats[idx]
	if seat.Bet == o.hand.Betting.CurrentBet {
		if err := o.applyAction(idx, game.Check, 0); err == nil {
			return
		}
	}
	o.applyForcedFold(idx, "timeout")
}

func (o *Orchestrator) stopTurnTimer() {
	if o.turnTimer != nil {
		o.turnTimer.Stop()
		o.turnTimer = nil
	}
}

func (o *Orchestrator) stopTimers() {
	o.stopTurnTimer()
	if o.idleTimer != nil {
		o.idleTimer.Stop()
		o.idleTimer = nil
	}
	for pos, t := range o.grace {
		t.Stop()
		delete(o.grace, pos)
	}
}

// runBot decides and applies a bot's action on the run loop.
func (o *Orchestrator) runBot(idx int, profile ai.Profile) {
	if o.hand == nil || o.hand.Active != idx {
		return
	}
	seat := o.hand.Seats[idx]
	decision := o.cfg.Engine.Decide(profile, ai.Context{
		Street:     o.hand.Street,
		Board:      o.hand.Board,
		Pot:        o.hand.Pot(),
		CurrentBet: o.hand.Betting.CurrentBet,
		MinRaise:   o.hand.Betting.MinRaise,
		BigBlind:   o.cfg.BigBlind,
		Seat:       seat,
		NumSeats:   len(o.hand.Seats),
		Button:     o.hand.Seats[o.hand.Button].Position,
	}, seat.HoleCards)

	if err := o.applyAction(idx, decision.Action, decision.Amount); err != nil {
		// The engine only emits validated actions; a failure here means
		// table state changed underneath it. Fold to keep the hand moving.
		o.log.Error("bot action rejected", "profile", profile.ID, "action", decision.Action.String(), "err", err)
		o.applyForcedFold(idx, "bot error")
	}
}

// applyAction executes a validated action and drives the hand forward.
func (o *Orchestrator) applyAction(idx int, action game.Action, amount int) error {
	seat := o.hand.Seats[idx]
	stackBefore := seat.Chips
	street := o.hand.Street

	result, err := o.hand.Apply(idx, action, amount)
	if err != nil {
		return err
	}
	o.generation++
	o.recordAction(street, result, stackBefore)
	o.publishAction(seat, result)
	o.afterAction(result)
	return nil
}

// applyForcedFold folds a seat out of turn order (timeout, disconnect,
// leave) and drives the hand forward if the fold resolved anything.
func (o *Orchestrator) applyForcedFold(idx int, reason string) {
	seat := o.hand.Seats[idx]
	stackBefore := seat.Chips
	street := o.hand.Street

	result := o.hand.ForceFold(idx)
	if result == nil {
		return
	}
	o.generation++
	o.log.Info("forced fold", "position", seat.Position, "reason", reason, "hand", o.handID)
	o.recordAction(street, result, stackBefore)
	o.publishAction(seat, result)
	o.afterAction(result)
}

func (o *Orchestrator) recordAction(street game.Street, result *game.ActionResult, stackBefore int) {
	o.actions = append(o.actions, store.ActionEntry{
		Seq:         len(o.actions) + 1,
		Street:      street.String(),
		Position:    result.Position,
		Action:      result.Action.String(),
		Amount:      result.Amount,
		StackBefore: stackBefore,
		StackAfter:  result.StackAfter,
	})
}

func (o *Orchestrator) publishAction(seat *game.Seat, result *game.ActionResult) {
	o.cfg.Sink.Publish(o.cfg.TableID, Event{Type: EventPlayerAction, Data: PlayerActionData{
		HandID:     o.handID,
		Position:   result.Position,
		Name:       seat.Name,
		Action:     result.Action.String(),
		Amount:     result.Amount,
		StackAfter: result.StackAfter,
		Pot:        result.Pot,
	}})
}

// afterAction publishes street changes, then either schedules the next turn
// or settles the completed hand.
func (o *Orchestrator) afterAction(result *game.ActionResult) {
	if result.StreetAdvanced && result.NewStreet != game.Finished {
		o.cfg.Sink.Publish(o.cfg.TableID, Event{Type: EventRoundAdvanced, Data: RoundAdvancedData{
			HandID:   o.handID,
			Round:    result.NewStreet.String(),
			NewCards: deck.Codes(result.BoardDealt),
			Board:    deck.Codes(o.hand.Board),
		}})
	}
	o.publishState()

	if result.HandComplete {
		o.finishHand()
		return
	}
	o.scheduleTurn()
}

// finishHand settles the pot, publishes showdown and winners, reveals the
// server seed and persists the hand record.
func (o *Orchestrator) finishHand() {
	o.stopTurnTimer()
	o.generation++

	settlement, err := o.hand.Settle()
	if err != nil {
		// Settle only fails on a conservation violation, which means a bug
		// in the round logic. The hand stays unsettled rather than paying
		// out wrong amounts, and the table deals no further hands.
		o.unsettled = true
		o.log.Error("settlement failed", "hand", o.handID, "err", err)
		o.cfg.Sink.Publish(o.cfg.TableID, Event{Type: EventError, Data: ErrorData{
			Code:    "settlement_failed",
			Message: "hand could not be settled",
		}})
		return
	}

	if len(settlement.Showdowns) > 0 {
		seats := make([]ShowdownSeat, 0, len(settlement.Showdowns))
		for _, sd := range settlement.Showdowns {
			o.revealed[sd.Position] = true
			s := o.hand.Seat(sd.Position)
			seats = append(seats, ShowdownSeat{
				Position:  sd.Position,
				Name:      s.Name,
				HoleCards: sd.Hole,
				Category:  sd.Result.Category.String(),
			})
		}
		o.cfg.Sink.Publish(o.cfg.TableID, Event{Type: EventShowdown, Data: ShowdownData{
			HandID: o.handID,
			Seats:  seats,
		}})
	}

	winners := make([]WinnerData, 0, len(settlement.Awards))
	for _, a := range settlement.Awards {
		winners = append(winners, WinnerData{
			Position: a.Position,
			Name:     o.hand.Seat(a.Position).Name,
			Amount:   a.Amount,
		})
	}
	o.cfg.Sink.Publish(o.cfg.TableID, Event{Type: EventHandComplete, Data: HandCompleteData{
		HandID:     o.handID,
		Winners:    winners,
		Reason:     settlement.Reason,
		ServerSeed: o.serverSeed,
	}})

	o.log.Info("hand complete",
		"hand", o.handID,
		"reason", settlement.Reason,
		"pot", o.hand.Pot(),
		"winners", len(winners))

	record := o.buildRecord(settlement)
	o.hand = nil
	if err := o.cfg.Store.AppendHand(record); err != nil {
		o.pending = record
		o.log.Error("hand record write failed, refusing new hands", "hand", record.HandID, "err", err)
	}

	o.publishState()
	o.maybeScheduleNextHand()
}

// flushPending retries a hand record whose first write failed.
func (o *Orchestrator) flushPending() error {
	if o.pending == nil {
		return nil
	}
	if err := o.cfg.Store.AppendHand(o.pending); err != nil {
		return err
	}
	o.log.Info("pending hand record flushed", "hand", o.pending.HandID)
	o.pending = nil
	return nil
}

func (o *Orchestrator) buildRecord(settlement *game.Settlement) *store.HandRecord {
	h := o.hand
	record := &store.HandRecord{
		SchemaVersion:  store.SchemaVersion,
		TableID:        o.cfg.TableID,
		HandID:         o.handID,
		HandNumber:     o.handNumber,
		StartedAt:      o.startedAt.UnixMilli(),
		EndedAt:        o.clock.Now().UnixMilli(),
		SeedCommitment: o.commitment,
		ServerSeed:     o.serverSeed,
		ClientSeed:     o.clientSeed,
		StartNonce:     o.startNonce,
		Button:         h.Seats[h.Button].Position,
		SmallBlind:     h.SmallBlind,
		BigBlind:       h.BigBlind,
		Board:          deck.Codes(h.Board),
		Actions:        append([]store.ActionEntry(nil), o.actions...),
		Reason:         settlement.Reason,
	}

	for _, s := range h.Seats {
		rec := store.SeatRecord{
			Position:   s.Position,
			Identity:   s.Identity.String(),
			Name:       s.Name,
			ChipsStart: o.chipsStart[s.Position],
			ChipsEnd:   s.Chips,
			TotalBet:   s.TotalBet,
			Folded:     s.Folded,
			AllIn:      s.AllInFlag,
		}
		if o.revealed[s.Position] {
			rec.HoleCards = deck.Codes(s.HoleCards)
		}
		record.Seats = append(record.Seats, rec)
	}
	for _, p := range settlement.Pots {
		record.Pots = append(record.Pots, store.PotRecord{
			Amount:   p.Amount,
			Eligible: append([]int(nil), p.Eligible...),
		})
	}
	for _, a := range settlement.Awards {
		record.Awards = append(record.Awards, store.AwardRecord{
			Position: a.Position,
			Amount:   a.Amount,
			PotIndex: a.PotIndex,
		})
	}
	return record
}

// snapshot builds the public table state. Hole cards are never included.
func (o *Orchestrator) snapshot() TableStateData {
	snap := TableStateData{
		TableID:     o.cfg.TableID,
		HandNumber:  o.handNumber,
		Round:       "idle",
		Board:       []string{},
		CurrentTurn: -1,
		Seats:       make([]SeatInfo, 0, o.occupied()),
	}
	if o.hand != nil {
		snap.HandID = o.handID
		snap.Round = o.hand.Street.String()
		snap.Board = deck.Codes(o.hand.Board)
		snap.Pot = o.hand.Pot()
		snap.CurrentBet = o.hand.Betting.CurrentBet
		snap.MinRaise = o.hand.Betting.MinRaise
		if o.hand.Active >= 0 {
			snap.CurrentTurn = o.hand.Seats[o.hand.Active].Position
		}
	}
	for _, s := range o.seats {
		if s == nil {
			continue
		}
		snap.Seats = append(snap.Seats, seatInfo(s))
	}
	return snap
}

// privateSnapshot is the public snapshot plus the recipient's own hole cards.
func (o *Orchestrator) privateSnapshot(recipient *game.Seat) TableStateData {
	snap := o.snapshot()
	for i := range snap.Seats {
		if snap.Seats[i].Position == recipient.Position {
			snap.Seats[i].HoleCards = deck.Codes(recipient.HoleCards)
		}
	}
	return snap
}

func (o *Orchestrator) publishState() {
	o.cfg.Sink.Publish(o.cfg.TableID, Event{Type: EventTableState, Data: o.snapshot()})
}

func seatInfo(s *game.Seat) SeatInfo {
	info := SeatInfo{
		Position:   s.Position,
		Name:       s.Name,
		Identity:   s.Identity.String(),
		Chips:      s.Chips,
		Bet:        s.Bet,
		TotalBet:   s.TotalBet,
		Folded:     s.Folded,
		AllIn:      s.AllInFlag,
		SittingOut: s.SittingOut,
	}
	if s.LastAction != nil {
		info.LastAction = s.LastAction.String()
	}
	return info
}
