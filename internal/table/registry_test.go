package table

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*Registry, *recordingPublisher) {
	t.Helper()
	pub := newRecordingPublisher()
	r := NewRegistry(DefaultConfig(), pub, quartz.NewMock(t), log.New(io.Discard))
	r.SetSeed(func() int64 { return 1 })
	t.Cleanup(r.StopAll)
	return r, pub
}

func (r *recordingPublisher) lastLobby() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.lobby) == 0 {
		return Event{}, false
	}
	return r.lobby[len(r.lobby)-1], true
}

func TestRegistryCreatesTableOnJoin(t *testing.T) {
	r, _ := newTestRegistry(t)
	require.Equal(t, 0, r.Count())

	r.Dispatch(Command{Type: CmdJoin, TableID: "alpha", PlayerID: "alice"})
	assert.Equal(t, 1, r.Count())

	tbl, ok := r.Lookup("alpha")
	require.True(t, ok)
	assert.Equal(t, "alpha", tbl.ID())
}

func TestRegistryJoinReusesExistingTable(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Dispatch(Command{Type: CmdJoin, TableID: "alpha", PlayerID: "alice"})
	r.Dispatch(Command{Type: CmdJoin, TableID: "alpha", PlayerID: "bob"})
	assert.Equal(t, 1, r.Count())
}

func TestRegistryIsolatesTables(t *testing.T) {
	r, pub := newTestRegistry(t)
	r.Dispatch(Command{Type: CmdJoin, TableID: "alpha", PlayerID: "alice"})
	r.Dispatch(Command{Type: CmdJoin, TableID: "beta", PlayerID: "bob"})
	assert.Equal(t, 2, r.Count())

	event, ok := pub.lastLobby()
	require.True(t, ok)
	update := event.Data.(LobbyUpdate)
	require.Len(t, update.Tables, 2)
	assert.Equal(t, "alpha", update.Tables[0].TableID)
	assert.Equal(t, "beta", update.Tables[1].TableID)
}

func TestRegistryRejectsCommandForUnknownTable(t *testing.T) {
	r, pub := newTestRegistry(t)
	r.Dispatch(Command{Type: CmdAction, TableID: "ghost", PlayerID: "alice", Action: ActionCheck})

	assert.Equal(t, 0, r.Count())
	event, ok := pub.lastPrivate("alice", EventActionError)
	require.True(t, ok)
	assert.Equal(t, "table_not_found", event.Data.(ActionError).Code)
}

func TestRegistryDestroysEmptyTable(t *testing.T) {
	r, _ := newTestRegistry(t)
	r.Dispatch(Command{Type: CmdJoin, TableID: "alpha", PlayerID: "alice"})
	require.Equal(t, 1, r.Count())

	r.Dispatch(Command{Type: CmdLeave, TableID: "alpha", PlayerID: "alice"})
	assert.Equal(t, 0, r.Count())
	_, ok := r.Lookup("alpha")
	assert.False(t, ok)
}

func TestRegistryLobbyReflectsMatchState(t *testing.T) {
	r, pub := newTestRegistry(t)
	r.Dispatch(Command{Type: CmdJoin, TableID: "alpha", PlayerID: "alice"})
	r.Dispatch(Command{Type: CmdJoin, TableID: "alpha", PlayerID: "bob"})
	r.Dispatch(Command{Type: CmdSetReady, TableID: "alpha", PlayerID: "alice", Ready: true})
	r.Dispatch(Command{Type: CmdSetReady, TableID: "alpha", PlayerID: "bob", Ready: true})

	r.PublishLobby()
	event, ok := pub.lastLobby()
	require.True(t, ok)
	update := event.Data.(LobbyUpdate)
	require.Len(t, update.Tables, 1)
	assert.True(t, update.Tables[0].MatchInProgress)
	assert.Len(t, update.Tables[0].Players, 2)
}
