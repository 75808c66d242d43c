// Package server carries the WebSocket transport: connection lifecycle,
// the inbound message protocol and delivery of engine events back to
// clients. It owns no game state; every game mutation goes through the
// table registry.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/Rekiiel/Poker/internal/table"
)

// Server represents the WebSocket server. It implements table.Publisher
// so the engine can push events without knowing about sockets.
type Server struct {
	addr        string
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	register    chan *Connection
	unregister  chan *Connection
	logger      *log.Logger
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	registry    *table.Registry
	httpServer  *http.Server
}

// NewServer creates a new WebSocket server
func NewServer(addr string, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// For development, allow all origins
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetRegistry wires the table registry that inbound commands route to
func (s *Server) SetRegistry(registry *table.Registry) {
	s.registry = registry
}

// Start starts the WebSocket server. Blocks until the listener fails or
// Stop is called.
func (s *Server) Start() error {
	go s.run()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.httpServer = &http.Server{Addr: s.addr, Handler: mux}
	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop stops the WebSocket server and closes every connection
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Close()
	}
	return nil
}

// run handles connection lifecycle
func (s *Server) run() {
	for {
		select {
		case conn := <-s.register:
			s.mu.Lock()
			s.connections[conn] = true
			total := len(s.connections)
			s.mu.Unlock()
			s.logger.Info("Client connected", "total", total)

		case conn := <-s.unregister:
			s.mu.Lock()
			_, ok := s.connections[conn]
			if ok {
				delete(s.connections, conn)
			}
			total := len(s.connections)
			s.mu.Unlock()
			if !ok {
				continue
			}

			// Drop the player from their table so the hand can move on
			playerID := conn.GetPlayer()
			tableID := conn.GetTable()
			if playerID != "" && tableID != "" && s.registry != nil {
				s.logger.Info("Cleaning up disconnected player", "player", playerID, "table", tableID)
				s.registry.Dispatch(table.Command{
					Type:     table.CmdDisconnect,
					TableID:  tableID,
					PlayerID: playerID,
				})
			}
			_ = conn.Close()
			s.logger.Info("Client disconnected", "total", total)

		case <-s.ctx.Done():
			return
		}
	}
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.registry)
	s.register <- client
	client.Start()

	go func() {
		<-client.ctx.Done()
		select {
		case s.unregister <- client:
		case <-s.ctx.Done():
		}
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK %d players", len(s.GetConnectedPlayers()))
}

// Broadcast sends an engine event to every connection seated at a table
func (s *Server) Broadcast(tableID string, event table.Event) {
	msg, err := messageFromEvent(event)
	if err != nil {
		s.logger.Error("Failed to encode event", "error", err, "type", event.Type)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.GetTable() == tableID {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error("Failed to send message to client", "error", err, "player", conn.GetPlayer())
			} else {
				count++
			}
		}
	}

	s.logger.Debug("Broadcasted event to table", "tableId", tableID, "type", event.Type, "recipients", count)
}

// ToPlayer sends an engine event to one player privately
func (s *Server) ToPlayer(tableID, playerID string, event table.Event) {
	msg, err := messageFromEvent(event)
	if err != nil {
		s.logger.Error("Failed to encode event", "error", err, "type", event.Type)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.GetPlayer() == playerID {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error("Failed to send message to player", "error", err, "player", playerID)
			}
			return
		}
	}
}

// Lobby sends an engine event to every connected client
func (s *Server) Lobby(event table.Event) {
	msg, err := messageFromEvent(event)
	if err != nil {
		s.logger.Error("Failed to encode event", "error", err, "type", event.Type)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if err := conn.SendMessage(msg); err != nil {
			s.logger.Error("Failed to send lobby update", "error", err, "player", conn.GetPlayer())
		}
	}
}

// GetConnectedPlayers returns a list of connected player IDs
func (s *Server) GetConnectedPlayers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var players []string
	for conn := range s.connections {
		if playerID := conn.GetPlayer(); playerID != "" {
			players = append(players, playerID)
		}
	}

	return players
}
