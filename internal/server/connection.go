package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/Rekiiel/Poker/internal/table"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection represents a WebSocket connection to a client. A client
// must introduce itself with a hello message before any table command
// is accepted.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	playerID  string
	tableID   string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	registry  *table.Registry
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, registry *table.Registry) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:     conn,
		send:     make(chan *Message, 256),
		logger:   logger.WithPrefix("conn"),
		ctx:      ctx,
		cancel:   cancel,
		registry: registry,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for delivery. The engine never blocks on
// a slow client; a full buffer drops the connection instead.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
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

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetTable associates this connection with a table
func (c *Connection) SetTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = tableID
}

// GetTable returns the associated table ID
func (c *Connection) GetTable() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

// readPump handles incoming messages from the client
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

// writePump handles outgoing messages to the client
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

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	if msg.Type == MessageTypeHello {
		var data HelloData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse hello data")
			return
		}
		c.handleHello(data)
		return
	}

	if c.GetPlayer() == "" {
		c.sendError("not_authenticated", "Must send hello first")
		return
	}
	if c.registry == nil {
		c.sendError("service_unavailable", "Table registry not available")
		return
	}

	switch msg.Type {
	case MessageTypeJoinTable:
		var data JoinTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join table data")
			return
		}
		c.handleJoinTable(data)

	case MessageTypeLeaveTable:
		var data LeaveTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse leave table data")
			return
		}
		c.handleLeaveTable(data)

	case MessageTypeSetReady:
		var data SetReadyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse ready data")
			return
		}
		c.dispatch(table.Command{
			Type:    table.CmdSetReady,
			TableID: c.tableOrDefault(data.TableID),
			Ready:   data.Ready,
		})

	case MessageTypePlayerAction:
		var data PlayerActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse action data")
			return
		}
		action, ok := parseAction(data.Action)
		if !ok {
			c.sendError("unknown_action", "Unknown action: "+data.Action)
			return
		}
		c.dispatch(table.Command{
			Type:    table.CmdAction,
			TableID: c.tableOrDefault(data.TableID),
			Action:  action,
			Amount:  data.Amount,
		})

	case MessageTypeHandRanking:
		var data HandRankingData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse ranking request")
			return
		}
		c.dispatch(table.Command{
			Type:    table.CmdRanking,
			TableID: c.tableOrDefault(data.TableID),
		})

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// parseAction maps a wire action string onto an engine action
func parseAction(s string) (table.ActionType, bool) {
	switch table.ActionType(s) {
	case table.ActionCheck, table.ActionBet, table.ActionCall,
		table.ActionRaise, table.ActionAllIn, table.ActionFold:
		return table.ActionType(s), true
	default:
		return "", false
	}
}

func (c *Connection) dispatch(cmd table.Command) {
	cmd.PlayerID = c.GetPlayer()
	c.registry.Dispatch(cmd)
}

// tableOrDefault falls back to the connection's current table when the
// client omits one
func (c *Connection) tableOrDefault(tableID string) string {
	if tableID != "" {
		return tableID
	}
	return c.GetTable()
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg)
}

func (c *Connection) handleHello(data HelloData) {
	c.logger.Info("Hello", "playerName", data.PlayerName)

	if data.PlayerName == "" {
		c.sendError("invalid_hello", "Player name required")
		return
	}

	c.SetPlayer(data.PlayerName)

	response, _ := NewMessage(MessageTypeWelcome, WelcomeData{PlayerID: data.PlayerName})
	_ = c.SendMessage(response)
}

func (c *Connection) handleJoinTable(data JoinTableData) {
	c.logger.Info("Join table request", "tableId", data.TableID, "player", c.GetPlayer())

	if data.TableID == "" {
		c.sendError("invalid_message", "Table id required")
		return
	}

	// One seat at a time: switching tables gives up the old seat first
	if prev := c.GetTable(); prev != "" && prev != data.TableID {
		c.dispatch(table.Command{Type: table.CmdLeave, TableID: prev})
	}

	// Associate before dispatching so the join broadcast reaches this
	// connection too
	c.SetTable(data.TableID)
	c.dispatch(table.Command{Type: table.CmdJoin, TableID: data.TableID})

	// A rejected join (table full) must not leave the connection
	// subscribed to a table it is not seated at
	if tbl, ok := c.registry.Lookup(data.TableID); !ok || !tbl.Seated(c.GetPlayer()) {
		c.SetTable("")
	}
}

func (c *Connection) handleLeaveTable(data LeaveTableData) {
	c.logger.Info("Leave table request", "tableId", data.TableID, "player", c.GetPlayer())

	left := c.tableOrDefault(data.TableID)
	c.dispatch(table.Command{Type: table.CmdLeave, TableID: left})
	if left == c.GetTable() {
		c.SetTable("")
	}
}
