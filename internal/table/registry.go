package table

import (
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/Rekiiel/Poker/internal/randutil"
)

// Registry maps table identifiers to running table actors. Tables are
// created lazily on first join and torn down when their last seat
// empties. Different tables are fully independent; only the routing
// map itself is shared.
type Registry struct {
	mu        sync.RWMutex
	tables    map[string]*Table
	cfg       Config
	publisher Publisher
	clock     quartz.Clock
	logger    *log.Logger
	seed      func() int64
}

// NewRegistry builds an empty registry. All tables share cfg.
func NewRegistry(cfg Config, pub Publisher, clock quartz.Clock, logger *log.Logger) *Registry {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Registry{
		tables:    make(map[string]*Table),
		cfg:       cfg,
		publisher: pub,
		clock:     clock,
		logger:    logger.WithPrefix("registry"),
		seed:      func() int64 { return time.Now().UnixNano() },
	}
}

// SetSeed overrides per-table RNG seeding, for deterministic tests
func (r *Registry) SetSeed(seed func() int64) {
	r.seed = seed
}

// Dispatch routes an inbound command to its table. Joins create the
// table if needed; every other command on an unknown table is rejected
// privately with table_not_found.
func (r *Registry) Dispatch(cmd Command) {
	var t *Table
	if cmd.Type == CmdJoin {
		t = r.getOrCreate(cmd.TableID)
	} else {
		r.mu.RLock()
		t = r.tables[cmd.TableID]
		r.mu.RUnlock()
	}
	if t == nil {
		r.logger.Debug("command for unknown table", "table", cmd.TableID, "player", cmd.PlayerID)
		r.publisher.ToPlayer(cmd.TableID, cmd.PlayerID, Event{
			Type: EventActionError,
			Data: ActionError{Code: errorCode(ErrTableNotFound), Reason: ErrTableNotFound.Error()},
		})
		return
	}
	t.Dispatch(cmd)

	switch cmd.Type {
	case CmdJoin, CmdLeave, CmdDisconnect:
		r.PublishLobby()
	}
}

// Lookup returns the table actor for an identifier
func (r *Registry) Lookup(tableID string) (*Table, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[tableID]
	return t, ok
}

// Count returns the number of live tables
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tables)
}

func (r *Registry) getOrCreate(tableID string) *Table {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tables[tableID]; ok {
		return t
	}
	t := New(tableID, r.cfg, r.publisher, r.clock, randutil.New(r.seed()), r.logger, r.remove)
	r.tables[tableID] = t
	t.Start()
	r.logger.Info("table created", "table", tableID, "tables", len(r.tables))
	return t
}

// remove tears a table down once empty. Called from the table's own
// goroutine, so the lobby refresh happens off to the side.
func (r *Registry) remove(tableID string) {
	r.mu.Lock()
	t, ok := r.tables[tableID]
	if ok {
		delete(r.tables, tableID)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	t.Stop()
	r.logger.Info("table destroyed", "table", tableID)
	go r.PublishLobby()
}

// PublishLobby broadcasts a summary of every open table to all clients
func (r *Registry) PublishLobby() {
	r.mu.RLock()
	tables := make([]*Table, 0, len(r.tables))
	for _, t := range r.tables {
		tables = append(tables, t)
	}
	r.mu.RUnlock()

	update := LobbyUpdate{Tables: make([]LobbyTable, 0, len(tables))}
	for _, t := range tables {
		summary := t.Summary()
		if summary.TableID == "" {
			// Table stopped while we were iterating
			continue
		}
		update.Tables = append(update.Tables, summary)
	}
	sort.Slice(update.Tables, func(i, j int) bool {
		return update.Tables[i].TableID < update.Tables[j].TableID
	})
	r.publisher.Lobby(Event{Type: EventLobby, Data: update})
}

// StopAll shuts every table down, for server shutdown
func (r *Registry) StopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.tables {
		t.Stop()
		delete(r.tables, id)
	}
}
