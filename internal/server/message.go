package server

import (
	"encoding/json"
	"time"

	"github.com/bokk3/gamble-fun-sub001/internal/table"
)

// Message is the wire envelope. Data carries a type-specific payload.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// Client → server message types.
const (
	MsgAuth       = "auth"
	MsgListTables = "list_tables"
	MsgJoinTable  = "join_table"
	MsgLeaveTable = "leave_table"
	MsgAction     = "action"
	MsgStartHand  = "start_hand"
	MsgAddBot     = "add_bot"
	MsgHeartbeat  = "heartbeat"
	MsgGetState   = "get_state"
)

// Server → client message types. Table events pass through with the event
// type as the message type.
const (
	MsgAuthResponse = "auth_response"
	MsgTableList    = "table_list"
	MsgTableJoined  = "table_joined"
	MsgTableLeft    = "table_left"
	MsgError        = "error"
)

// NewMessage wraps a payload in the envelope with the current timestamp.
func NewMessage(messageType string, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → server payloads.

type AuthData struct {
	UserID string `json:"userId"`
	Name   string `json:"name,omitempty"`
}

type JoinTableData struct {
	TableID string `json:"tableId"`
	BuyIn   int    `json:"buyIn"`
}

type LeaveTableData struct {
	TableID string `json:"tableId"`
}

type ActionData struct {
	TableID string `json:"tableId"`
	Action  string `json:"action"`
	Amount  int    `json:"amount,omitempty"`
}

type StartHandData struct {
	TableID string `json:"tableId"`
}

type AddBotData struct {
	TableID string `json:"tableId"`
	Profile string `json:"profile"`
	BuyIn   int    `json:"buyIn,omitempty"`
}

type HeartbeatData struct {
	TableID string `json:"tableId"`
}

type GetStateData struct {
	TableID string `json:"tableId"`
}

// Server → client payloads.

type AuthResponseData struct {
	Success bool   `json:"success"`
	UserID  string `json:"userId,omitempty"`
	Error   string `json:"error,omitempty"`
}

type TableListData struct {
	Tables []table.Summary `json:"tables"`
}

type TableJoinedData struct {
	TableID  string `json:"tableId"`
	Position int    `json:"position"`
	Chips    int    `json:"chips"`
}

type TableLeftData struct {
	TableID string `json:"tableId"`
	Chips   int    `json:"chips"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
