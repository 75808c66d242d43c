// Package client implements the WebSocket client used by the terminal
// frontend. It speaks the same envelope protocol as internal/server and
// exposes received messages on a channel.
package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/Rekiiel/Poker/internal/server"
)

const writeWait = 10 * time.Second

// Client represents a WebSocket client for the poker server
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	receive   chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	connected bool
	closeOnce sync.Once
}

// NewClient creates a new WebSocket client
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL: serverURL,
		send:      make(chan *server.Message, 256),
		receive:   make(chan *server.Message, 256),
		logger:    logger.WithPrefix("client"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Connect establishes a WebSocket connection to the server
func (c *Client) Connect() error {
	c.logger.Info("Connecting to server", "url", c.serverURL)

	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	// Convert http/https to ws/wss
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()

	c.logger.Info("Connected to server")
	return nil
}

// Disconnect closes the WebSocket connection
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		if c.conn != nil {
			_ = c.conn.Close()
			c.connected = false
		}
		c.mu.Unlock()

		c.logger.Info("Disconnected from server")
	})
	return nil
}

// IsConnected returns whether the client is connected
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Receive exposes inbound messages. The channel closes when the
// connection drops.
func (c *Client) Receive() <-chan *server.Message {
	return c.receive
}

func (c *Client) readPump() {
	defer func() {
		close(c.receive)
		_ = c.Disconnect()
	}()

	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		select {
		case c.receive <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				_ = c.Disconnect()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) enqueue(messageType server.MessageType, data interface{}) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected")
	}
	msg, err := server.NewMessage(messageType, data)
	if err != nil {
		return err
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// Hello introduces the player to the server
func (c *Client) Hello(playerName string) error {
	return c.enqueue(server.MessageTypeHello, server.HelloData{PlayerName: playerName})
}

// JoinTable asks to be seated at a table, creating it if necessary
func (c *Client) JoinTable(tableID string) error {
	return c.enqueue(server.MessageTypeJoinTable, server.JoinTableData{TableID: tableID})
}

// LeaveTable gives up the current seat
func (c *Client) LeaveTable() error {
	return c.enqueue(server.MessageTypeLeaveTable, server.LeaveTableData{})
}

// SetReady toggles readiness for the next hand
func (c *Client) SetReady(ready bool) error {
	return c.enqueue(server.MessageTypeSetReady, server.SetReadyData{Ready: ready})
}

// Action submits a betting action
func (c *Client) Action(action string, amount int) error {
	return c.enqueue(server.MessageTypePlayerAction, server.PlayerActionData{Action: action, Amount: amount})
}

// RequestRanking asks for the current private hand ranking
func (c *Client) RequestRanking() error {
	return c.enqueue(server.MessageTypeHandRanking, server.HandRankingData{})
}
