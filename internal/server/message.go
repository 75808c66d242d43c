package server

import (
	"encoding/json"
	"time"

	"github.com/Rekiiel/Poker/internal/table"
)

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants for the client-server protocol.
// Engine events (game_state, hand_result, etc.) reuse the event names
// defined in internal/table and travel in the same envelope.
const (
	// Client to server messages
	MessageTypeHello        MessageType = "hello"
	MessageTypeJoinTable    MessageType = "join_table"
	MessageTypeLeaveTable   MessageType = "leave_table"
	MessageTypeSetReady     MessageType = "set_ready"
	MessageTypePlayerAction MessageType = "player_action"
	MessageTypeHandRanking  MessageType = "hand_ranking"

	// Server to client messages
	MessageTypeWelcome MessageType = "welcome"
	MessageTypeError   MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
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

// messageFromEvent wraps an engine event for the wire
func messageFromEvent(event table.Event) (*Message, error) {
	return NewMessage(MessageType(event.Type), event.Data)
}

// Client → Server Messages

type HelloData struct {
	PlayerName string `json:"playerName"`
}

type JoinTableData struct {
	TableID string `json:"tableId"`
}

type LeaveTableData struct {
	TableID string `json:"tableId"`
}

type SetReadyData struct {
	TableID string `json:"tableId"`
	Ready   bool   `json:"ready"`
}

type PlayerActionData struct {
	TableID string `json:"tableId"`
	Action  string `json:"action"`
	Amount  int    `json:"amount,omitempty"`
}

type HandRankingData struct {
	TableID string `json:"tableId"`
}

// Server → Client Messages

type WelcomeData struct {
	PlayerID string `json:"playerId"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
