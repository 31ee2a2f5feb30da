package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/bokk3/gamble-fun-sub001/internal/game"
	"github.com/bokk3/gamble-fun-sub001/internal/table"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one WebSocket client.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	userID    string
	name      string
	tableID   string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	server    *Server
}

// NewConnection creates a connection wrapper.
func NewConnection(conn *websocket.Conn, logger *log.Logger, server *Server) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		send:   make(chan *Message, 256),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
		server: server,
	}
}

// Start begins handling the connection.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel closed during shutdown.
			c.logger.Debug("Attempted to send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// UserID returns the authenticated user, or "".
func (c *Connection) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// Table returns the table this connection is watching, or "".
func (c *Connection) Table() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

func (c *Connection) setAuth(userID, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
	c.name = name
}

func (c *Connection) setTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = tableID
}

func (c *Connection) displayName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.name != "" {
		return c.name
	}
	return c.userID
}

// identity returns the connection's table identity, or false before auth.
func (c *Connection) identity() (game.Identity, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.userID == "" {
		return game.Identity{}, false
	}
	return game.HumanIdentity(c.userID), true
}

// readPump handles incoming messages from the client.
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches one incoming message.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "user", c.UserID())

	switch msg.Type {
	case MsgAuth:
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse auth data")
			return
		}
		c.handleAuth(data)

	case MsgListTables:
		c.handleListTables()

	case MsgJoinTable:
		var data JoinTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join table data")
			return
		}
		c.handleJoinTable(data)

	case MsgLeaveTable:
		var data LeaveTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse leave table data")
			return
		}
		c.handleLeaveTable(data)

	case MsgAction:
		var data ActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse action data")
			return
		}
		c.handleAction(data)

	case MsgStartHand:
		var data StartHandData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse start hand data")
			return
		}
		c.handleStartHand(data)

	case MsgAddBot:
		var data AddBotData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse add bot data")
			return
		}
		c.handleAddBot(data)

	case MsgHeartbeat:
		var data HeartbeatData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse heartbeat data")
			return
		}
		c.handleHeartbeat(data)

	case MsgGetState:
		var data GetStateData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse state request")
			return
		}
		c.handleGetState(data)

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type)
	}
}

func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MsgError, ErrorData{Code: code, Message: message})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}
	_ = c.SendMessage(errorMsg)
}

func (c *Connection) handleAuth(data AuthData) {
	if data.UserID == "" {
		c.sendError("invalid_auth", "User ID required")
		return
	}

	c.setAuth(data.UserID, data.Name)
	c.logger.Info("Authenticated", "user", data.UserID)

	response, _ := NewMessage(MsgAuthResponse, AuthResponseData{
		Success: true,
		UserID:  data.UserID,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleListTables() {
	response, _ := NewMessage(MsgTableList, TableListData{
		Tables: c.server.Registry().List(),
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleJoinTable(data JoinTableData) {
	identity, ok := c.identity()
	if !ok {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	o, ok := c.server.Registry().GetOrCreate(data.TableID)
	if !ok {
		c.sendError("table_not_found", "No such table: "+data.TableID)
		return
	}

	position, err := o.Join(c.ctx, identity, c.displayName(), data.BuyIn)
	if err != nil {
		c.sendError("join_failed", err.Error())
		return
	}
	c.setTable(data.TableID)

	response, _ := NewMessage(MsgTableJoined, TableJoinedData{
		TableID:  data.TableID,
		Position: position,
		Chips:    data.BuyIn,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleLeaveTable(data LeaveTableData) {
	identity, ok := c.identity()
	if !ok {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	o, found := c.server.Registry().Get(data.TableID)
	if !found {
		c.sendError("table_not_found", "No such table: "+data.TableID)
		return
	}

	chips, err := o.Leave(c.ctx, identity)
	if err != nil {
		c.sendError("leave_failed", err.Error())
		return
	}
	c.setTable("")

	response, _ := NewMessage(MsgTableLeft, TableLeftData{
		TableID: data.TableID,
		Chips:   chips,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleAction(data ActionData) {
	identity, ok := c.identity()
	if !ok {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	o, found := c.server.Registry().Get(data.TableID)
	if !found {
		c.sendError("table_not_found", "No such table: "+data.TableID)
		return
	}

	action, ok := game.ParseAction(data.Action)
	if !ok {
		c.sendError("invalid_action", "Unknown action: "+data.Action)
		return
	}

	if err := o.SubmitAction(c.ctx, identity, action, data.Amount); err != nil {
		c.sendError("action_failed", err.Error())
	}
	// Applied actions are reported through the event stream.
}

func (c *Connection) handleStartHand(data StartHandData) {
	if _, ok := c.identity(); !ok {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	o, found := c.server.Registry().Get(data.TableID)
	if !found {
		c.sendError("table_not_found", "No such table: "+data.TableID)
		return
	}

	if err := o.StartHand(c.ctx); err != nil {
		c.sendError("start_failed", err.Error())
	}
}

func (c *Connection) handleAddBot(data AddBotData) {
	if _, ok := c.identity(); !ok {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	o, found := c.server.Registry().GetOrCreate(data.TableID)
	if !found {
		c.sendError("table_not_found", "No such table: "+data.TableID)
		return
	}

	profile, ok := c.server.Profile(data.Profile)
	if !ok {
		c.sendError("profile_not_found", "No such AI profile: "+data.Profile)
		return
	}

	if _, err := o.AddAI(c.ctx, profile, data.BuyIn); err != nil {
		c.sendError("add_bot_failed", err.Error())
	}
}

func (c *Connection) handleHeartbeat(data HeartbeatData) {
	identity, ok := c.identity()
	if !ok {
		c.sendError("not_authenticated", "Must authenticate first")
		return
	}

	o, found := c.server.Registry().Get(data.TableID)
	if !found {
		c.sendError("table_not_found", "No such table: "+data.TableID)
		return
	}

	if err := o.Heartbeat(c.ctx, identity); err != nil {
		c.sendError("heartbeat_failed", err.Error())
		return
	}
	// A heartbeat doubles as re-attachment after a reconnect.
	c.setTable(data.TableID)
}

func (c *Connection) handleGetState(data GetStateData) {
	o, found := c.server.Registry().Get(data.TableID)
	if !found {
		c.sendError("table_not_found", "No such table: "+data.TableID)
		return
	}

	snap, err := o.State(c.ctx)
	if err != nil {
		c.sendError("state_failed", err.Error())
		return
	}

	response, _ := NewMessage(table.EventTableState, snap)
	_ = c.SendMessage(response)
}
