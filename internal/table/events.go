package table

import (
	"github.com/bokk3/gamble-fun-sub001/internal/game"
)

// Event is one entry in the table's authoritative state stream.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Event types produced by the orchestrator.
const (
	EventHandStarted   = "hand_started"
	EventHoleCards     = "hole_cards"
	EventTableState    = "table_state"
	EventPlayerAction  = "player_action"
	EventRoundAdvanced = "betting_round_advanced"
	EventShowdown      = "showdown"
	EventHandComplete  = "hand_complete"
	EventError         = "error"
)

// Sink receives the orchestrator's events. Publish fans out to every
// observer of the table; PublishTo delivers privately to one identity
// (hole cards, validation errors).
type Sink interface {
	Publish(tableID string, event Event)
	PublishTo(tableID string, identity game.Identity, event Event)
}

// SeatInfo is one seat in a table snapshot.
type SeatInfo struct {
	Position   int      `json:"position"`
	Name       string   `json:"name"`
	Identity   string   `json:"identity"`
	Chips      int      `json:"chips"`
	Bet        int      `json:"bet"`
	TotalBet   int      `json:"total_bet"`
	Folded     bool     `json:"folded"`
	AllIn      bool     `json:"all_in"`
	SittingOut bool     `json:"sitting_out"`
	LastAction string   `json:"last_action,omitempty"`
	HoleCards  []string `json:"hole_cards,omitempty"` // only in private snapshots
}

// HandStartedData announces a new hand and publishes the seed commitment.
type HandStartedData struct {
	HandID         string `json:"hand_id"`
	HandNumber     uint64 `json:"hand_number"`
	Button         int    `json:"button"`
	SmallBlind     int    `json:"small_blind"`
	BigBlind       int    `json:"big_blind"`
	SeedCommitment string `json:"seed_commitment"`
	ClientSeed     string `json:"client_seed"`
}

// HoleCardsData is delivered privately to each seat after the deal.
type HoleCardsData struct {
	HandID string   `json:"hand_id"`
	Cards  []string `json:"cards"`
}

// TableStateData is the full authoritative snapshot.
type TableStateData struct {
	TableID     string     `json:"table_id"`
	HandID      string     `json:"hand_id,omitempty"`
	HandNumber  uint64     `json:"hand_number"`
	Round       string     `json:"round"`
	Board       []string   `json:"board"`
	Pot         int        `json:"pot"`
	CurrentBet  int        `json:"current_bet"`
	MinRaise    int        `json:"min_raise"`
	CurrentTurn int        `json:"current_turn"` // seat position, -1 when none
	Seats       []SeatInfo `json:"seats"`
}

// PlayerActionData reports an applied action.
type PlayerActionData struct {
	HandID     string `json:"hand_id"`
	Position   int    `json:"position"`
	Name       string `json:"name"`
	Action     string `json:"action"`
	Amount     int    `json:"amount"`
	StackAfter int    `json:"stack_after"`
	Pot        int    `json:"pot"`
}

// RoundAdvancedData reports a street change and newly dealt board cards.
type RoundAdvancedData struct {
	HandID   string   `json:"hand_id"`
	Round    string   `json:"round"`
	NewCards []string `json:"new_cards"`
	Board    []string `json:"board"`
}

// ShowdownSeat is one revealed hand.
type ShowdownSeat struct {
	Position  int      `json:"position"`
	Name      string   `json:"name"`
	HoleCards []string `json:"hole_cards"`
	Category  string   `json:"category"`
}

// ShowdownData reveals the contesting hands and their rankings.
type ShowdownData struct {
	HandID string         `json:"hand_id"`
	Seats  []ShowdownSeat `json:"seats"`
}

// WinnerData is one seat's winnings.
type WinnerData struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Amount   int    `json:"amount"`
}

// HandCompleteData reports settlement, and reveals the server seed so
// clients can verify the shuffle against the earlier commitment.
type HandCompleteData struct {
	HandID     string       `json:"hand_id"`
	Winners    []WinnerData `json:"winners"`
	Reason     string       `json:"reason"`
	ServerSeed string       `json:"server_seed"`
}

// ErrorData reports a rejected command to its originator.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
