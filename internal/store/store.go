// Package store defines the persistence collaborators the table orchestrator
// writes through: durable hand records, the append-only action log, and the
// external account ledger.
package store

import "errors"

var (
	// ErrInsufficientFunds rejects a buy-in debit the balance cannot cover.
	ErrInsufficientFunds = errors.New("store: insufficient funds")

	// ErrUnavailable reports that the durable store cannot currently accept
	// writes. A table receiving this must refuse new hands until writes
	// succeed again.
	ErrUnavailable = errors.New("store: unavailable")
)

// SchemaVersion tags persisted hand records so the audit trail stays
// machine-verifiable as the encoding evolves.
const SchemaVersion = 1

// SeatRecord is one seat's state in a persisted hand.
type SeatRecord struct {
	Position   int      `json:"position"`
	Identity   string   `json:"identity"` // "user:<id>" or "ai:<profile>"
	Name       string   `json:"name"`
	ChipsStart int      `json:"chips_start"`
	ChipsEnd   int      `json:"chips_end"`
	TotalBet   int      `json:"total_bet"`
	Folded     bool     `json:"folded"`
	AllIn      bool     `json:"all_in"`
	HoleCards  []string `json:"hole_cards,omitempty"` // card codes, only when revealed
}

// ActionEntry is one line of the append-only action log.
type ActionEntry struct {
	Seq         int    `json:"seq"`
	Street      string `json:"street"`
	Position    int    `json:"position"`
	Action      string `json:"action"`
	Amount      int    `json:"amount"`
	StackBefore int    `json:"stack_before"`
	StackAfter  int    `json:"stack_after"`
}

// PotRecord is one settled pot.
type PotRecord struct {
	Amount   int   `json:"amount"`
	Eligible []int `json:"eligible"`
}

// AwardRecord is one payout from a pot.
type AwardRecord struct {
	Position int `json:"position"`
	Amount   int `json:"amount"`
	PotIndex int `json:"pot_index"`
}

// HandRecord is the immutable audit trail of one played hand: seeds, action
// sequence, pots and winners. Cards use the two-character code encoding.
type HandRecord struct {
	SchemaVersion int    `json:"schema_version"`
	TableID       string `json:"table_id"`
	HandID        string `json:"hand_id"`
	HandNumber    uint64 `json:"hand_number"`
	StartedAt     int64  `json:"started_at_unix_ms"`
	EndedAt       int64  `json:"ended_at_unix_ms"`

	// Fairness protocol: the commitment was published before the hand, the
	// server seed revealed after, so any client can replay the shuffle.
	SeedCommitment string `json:"seed_commitment"`
	ServerSeed     string `json:"server_seed"`
	ClientSeed     string `json:"client_seed"`
	StartNonce     uint64 `json:"start_nonce"`

	Button     int `json:"button"`
	SmallBlind int `json:"small_blind"`
	BigBlind   int `json:"big_blind"`

	Board   []string      `json:"board"` // card codes
	Seats   []SeatRecord  `json:"seats"`
	Actions []ActionEntry `json:"actions"`
	Pots    []PotRecord   `json:"pots"`
	Awards  []AwardRecord `json:"awards"`
	Reason  string        `json:"reason"` // "showdown" or "folds"
}

// HandStore persists completed hand records.
type HandStore interface {
	AppendHand(record *HandRecord) error
}

// Ledger is the external account balance collaborator. The orchestrator only
// calls it at seat join/leave boundaries; a failed debit rejects the join
// outright, never partially applies.
type Ledger interface {
	// Debit removes amount from the user's balance for a buy-in.
	Debit(userID string, amount int) error
	// Credit returns amount to the user's balance at cash-out.
	Credit(userID string, amount int) error
}
