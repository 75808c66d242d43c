package table

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rekiiel/Poker/internal/deck"
	"github.com/Rekiiel/Poker/internal/randutil"
)

// recordingPublisher captures outbound events for assertions
type recordingPublisher struct {
	mu         sync.Mutex
	broadcasts []Event
	private    map[string][]Event
	lobby      []Event
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{private: make(map[string][]Event)}
}

func (r *recordingPublisher) Broadcast(tableID string, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, event)
}

func (r *recordingPublisher) ToPlayer(tableID, playerID string, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.private[playerID] = append(r.private[playerID], event)
}

func (r *recordingPublisher) Lobby(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lobby = append(r.lobby, event)
}

func (r *recordingPublisher) lastBroadcast(eventType EventType) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.broadcasts) - 1; i >= 0; i-- {
		if r.broadcasts[i].Type == eventType {
			return r.broadcasts[i], true
		}
	}
	return Event{}, false
}

func (r *recordingPublisher) lastPrivate(playerID string, eventType EventType) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.private[playerID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == eventType {
			return events[i], true
		}
	}
	return Event{}, false
}

func newTestTable(t *testing.T, ids ...string) (*Table, *recordingPublisher) {
	t.Helper()
	pub := newRecordingPublisher()
	logger := log.New(io.Discard)
	tbl := New("t1", DefaultConfig(), pub, quartz.NewMock(t), randutil.New(1), logger, nil)
	for _, id := range ids {
		require.NoError(t, tbl.addPlayer(id))
	}
	return tbl, pub
}

func startHandWith(t *testing.T, tbl *Table) {
	t.Helper()
	for _, p := range tbl.players {
		p.Ready = true
	}
	require.NoError(t, tbl.startHand())
}

func chipTotal(tbl *Table) int {
	sum := tbl.pot
	for _, p := range tbl.players {
		sum += p.Chips
	}
	return sum
}

func TestAddPlayerAssignsStartingStack(t *testing.T) {
	tbl, pub := newTestTable(t, "alice")
	require.Len(t, tbl.players, 1)
	assert.Equal(t, 1000, tbl.players[0].Chips)
	assert.False(t, tbl.players[0].InHand)

	event, ok := pub.lastBroadcast(EventTableRoster)
	require.True(t, ok)
	roster := event.Data.(TableRosterUpdate)
	assert.Equal(t, "t1", roster.TableID)
	require.Len(t, roster.Players, 1)
	assert.Equal(t, 1000, roster.Players[0].Stack)
}

func TestAddPlayerTableFull(t *testing.T) {
	tbl, _ := newTestTable(t, "p1", "p2", "p3", "p4", "p5", "p6")
	err := tbl.addPlayer("p7")
	assert.ErrorIs(t, err, ErrTableFull)
	assert.Len(t, tbl.players, 6)
}

func TestAddPlayerTwiceRejected(t *testing.T) {
	tbl, _ := newTestTable(t, "alice")
	assert.ErrorIs(t, tbl.addPlayer("alice"), ErrAlreadySeated)
}

func TestReadyStartsHandWithTwoPlayers(t *testing.T) {
	tbl, pub := newTestTable(t, "alice", "bob")
	require.NoError(t, tbl.setReady("alice", true))
	assert.Equal(t, Waiting, tbl.phase)
	require.NoError(t, tbl.setReady("bob", true))
	assert.Equal(t, PreFlop, tbl.phase)

	// Blinds posted, hole cards dealt
	assert.Equal(t, 30, tbl.pot)
	assert.Equal(t, 20, tbl.currentBet)
	for _, p := range tbl.players {
		assert.Len(t, p.HoleCards, 2)
		assert.True(t, p.InHand)
	}
	_, ok := pub.lastPrivate("alice", EventHoleCards)
	assert.True(t, ok)
	_, ok = pub.lastPrivate("bob", EventHoleCards)
	assert.True(t, ok)
}

func TestStartHandNeedsTwoFundedPlayers(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob")
	tbl.players[1].Chips = 0
	assert.ErrorIs(t, tbl.startHand(), ErrNotEnoughPlayers)
	assert.Equal(t, Waiting, tbl.phase)
}

// Heads-up, blinds 10/20, stacks 1000: small blind calls 10 more, big
// blind checks, pot is 40 and the flop comes with both stacks at 980.
func TestScenarioHeadsUpCallCheckToFlop(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob")
	startHandWith(t, tbl)

	// Seat 0 is dealer and big blind heads-up; seat 1 posts the small
	// blind and acts first
	sb, bb := tbl.players[1], tbl.players[0]
	require.Equal(t, sb, tbl.turn.Current())
	require.Equal(t, 10, sb.RoundBet)
	require.Equal(t, 20, bb.RoundBet)

	require.NoError(t, tbl.submitAction(sb.ID, ActionCall, 0))
	require.Equal(t, bb, tbl.turn.Current())
	require.NoError(t, tbl.submitAction(bb.ID, ActionCheck, 0))

	assert.Equal(t, Flop, tbl.phase)
	assert.Len(t, tbl.community, 3)
	assert.Equal(t, 40, tbl.pot)
	assert.Equal(t, 980, sb.Chips)
	assert.Equal(t, 980, bb.Chips)
	assert.Equal(t, 0, tbl.currentBet)
	assert.Equal(t, 0, sb.RoundBet)
	assert.Equal(t, 0, bb.RoundBet)
}

// Three players, two fold in sequence: the hand ends immediately and
// the last player standing takes the pot with no further cards dealt.
func TestScenarioFoldsEndHandEarly(t *testing.T) {
	tbl, pub := newTestTable(t, "alice", "bob", "carol")
	startHandWith(t, tbl)

	// Dealer is seat 0, small blind seat 1, big blind seat 2, so seat
	// 0 opens the pre-flop action
	require.Equal(t, "alice", tbl.turn.Current().ID)
	require.NoError(t, tbl.submitAction("alice", ActionFold, 0))
	require.NoError(t, tbl.submitAction("bob", ActionFold, 0))

	assert.Equal(t, Waiting, tbl.phase)
	assert.Empty(t, tbl.community)
	// Carol posted the 20 big blind and won back the 30 pot
	carol := tbl.playerByID("carol")
	assert.Equal(t, 1010, carol.Chips)

	event, ok := pub.lastBroadcast(EventHandResult)
	require.True(t, ok)
	result := event.Data.(HandResult)
	assert.Equal(t, "carol", result.WinnerID)
	assert.Equal(t, 30, result.PayoutTotal)
}

// An action below the amount needed to call is rejected and nothing
// changes.
func TestScenarioBelowMinimumBetRejected(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob")
	startHandWith(t, tbl)

	sb := tbl.players[1]
	potBefore, betBefore, chipsBefore := tbl.pot, tbl.currentBet, sb.Chips

	err := tbl.submitAction(sb.ID, ActionBet, 5) // needs at least 10
	assert.ErrorIs(t, err, ErrBelowMinimumBet)
	assert.Equal(t, potBefore, tbl.pot)
	assert.Equal(t, betBefore, tbl.currentBet)
	assert.Equal(t, chipsBefore, sb.Chips)
	assert.Equal(t, sb, tbl.turn.Current())
}

func TestCheckFacingBetRejected(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob")
	startHandWith(t, tbl)

	sb := tbl.players[1] // owes 10 more
	assert.ErrorIs(t, tbl.submitAction(sb.ID, ActionCheck, 0), ErrBelowMinimumBet)
}

func TestActionOutOfTurnRejected(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob")
	startHandWith(t, tbl)

	bb := tbl.players[0]
	assert.ErrorIs(t, tbl.submitAction(bb.ID, ActionCall, 0), ErrNotYourTurn)
}

func TestRaiseAboveStackRejected(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob")
	startHandWith(t, tbl)

	sb := tbl.players[1]
	assert.ErrorIs(t, tbl.submitAction(sb.ID, ActionRaise, sb.Chips+1), ErrAboveMaximumBet)
}

func TestCallRequiresFullAmount(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob")
	startHandWith(t, tbl)

	sb := tbl.players[1]
	require.NoError(t, tbl.submitAction(sb.ID, ActionRaise, 500))
	bb := tbl.players[0]
	bb.Chips = 100 // cannot cover the raise
	assert.ErrorIs(t, tbl.submitAction(bb.ID, ActionCall, 0), ErrInsufficientFunds)
}

func TestChipConservationThroughHand(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob", "carol")
	total := chipTotal(tbl)
	startHandWith(t, tbl)
	assert.Equal(t, total, chipTotal(tbl))

	require.NoError(t, tbl.submitAction("alice", ActionCall, 0))
	assert.Equal(t, total, chipTotal(tbl))
	require.NoError(t, tbl.submitAction("bob", ActionRaise, 100))
	assert.Equal(t, total, chipTotal(tbl))
	require.NoError(t, tbl.submitAction("carol", ActionFold, 0))
	require.NoError(t, tbl.submitAction("alice", ActionFold, 0))

	// Hand over, pot paid out
	assert.Equal(t, Waiting, tbl.phase)
	assert.Equal(t, 0, tbl.pot)
	assert.Equal(t, total, chipTotal(tbl))
}

func TestAllInBlindIsLegal(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob", "carol")
	tbl.playerByID("bob").Chips = 5 // will post a short small blind
	startHandWith(t, tbl)

	bob := tbl.playerByID("bob")
	assert.Equal(t, 0, bob.Chips)
	assert.Equal(t, 5, bob.RoundBet)
	assert.True(t, bob.InHand)
	assert.Equal(t, 20, tbl.currentBet)
	assert.Equal(t, 25, tbl.pot)
}

func TestAllInUpdatesCurrentBet(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob")
	startHandWith(t, tbl)

	sb := tbl.players[1]
	require.NoError(t, tbl.submitAction(sb.ID, ActionAllIn, 0))
	assert.Equal(t, 0, sb.Chips)
	assert.Equal(t, 1000, tbl.currentBet)
	assert.Equal(t, sb, tbl.turn.LastAggressor())
}

// A player disconnecting while holding the turn is auto-folded and the
// action moves on; with only one contender left the hand ends at once.
func TestScenarioDisconnectWhileActing(t *testing.T) {
	tbl, pub := newTestTable(t, "alice", "bob", "carol")
	startHandWith(t, tbl)

	require.Equal(t, "alice", tbl.turn.Current().ID)
	require.NoError(t, tbl.removePlayer("alice", "disconnect"))

	require.Len(t, tbl.players, 2)
	assert.Nil(t, tbl.playerByID("alice"))
	require.NotNil(t, tbl.turn.Current())
	assert.Equal(t, "bob", tbl.turn.Current().ID)
	assert.Equal(t, PreFlop, tbl.phase)

	// Second disconnect leaves carol alone; she wins the pot
	require.NoError(t, tbl.removePlayer("bob", "disconnect"))
	assert.Equal(t, Waiting, tbl.phase)
	assert.Equal(t, 1010, tbl.playerByID("carol").Chips)

	event, ok := pub.lastBroadcast(EventHandResult)
	require.True(t, ok)
	assert.Equal(t, "carol", event.Data.(HandResult).WinnerID)
}

func TestRemoveUnknownPlayer(t *testing.T) {
	tbl, _ := newTestTable(t, "alice")
	assert.ErrorIs(t, tbl.removePlayer("ghost", "leave"), ErrPlayerNotAtTable)
}

func TestLastLeaveSignalsTeardown(t *testing.T) {
	var torn []string
	pub := newRecordingPublisher()
	tbl := New("t9", DefaultConfig(), pub, quartz.NewMock(t), randutil.New(1), log.New(io.Discard), func(id string) {
		torn = append(torn, id)
	})
	require.NoError(t, tbl.addPlayer("alice"))
	require.NoError(t, tbl.removePlayer("alice", "leave"))
	assert.Equal(t, []string{"t9"}, torn)
}

func TestDealerAdvancesEachHand(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob", "carol")
	startHandWith(t, tbl)
	require.Equal(t, 0, tbl.dealerIdx)

	require.NoError(t, tbl.submitAction("alice", ActionFold, 0))
	require.NoError(t, tbl.submitAction("bob", ActionFold, 0))
	require.Equal(t, Waiting, tbl.phase)
	assert.Equal(t, 1, tbl.dealerIdx)
}

func TestShowdownAwardsBestHand(t *testing.T) {
	tbl, pub := newTestTable(t, "alice", "bob")
	alice, bob := tbl.players[0], tbl.players[1]

	tbl.phase = River
	tbl.pot = 200
	alice.InHand = true
	alice.HandBet = 100
	alice.Chips = 900
	alice.HoleCards = []deck.Card{
		deck.NewCard(deck.Ace, deck.Spades),
		deck.NewCard(deck.Ace, deck.Hearts),
	}
	bob.InHand = true
	bob.HandBet = 100
	bob.Chips = 900
	bob.HoleCards = []deck.Card{
		deck.NewCard(deck.Two, deck.Clubs),
		deck.NewCard(deck.Seven, deck.Diamonds),
	}
	tbl.community = []deck.Card{
		deck.NewCard(deck.Ace, deck.Diamonds),
		deck.NewCard(deck.King, deck.Spades),
		deck.NewCard(deck.Nine, deck.Hearts),
		deck.NewCard(deck.Five, deck.Clubs),
		deck.NewCard(deck.Three, deck.Spades),
	}

	tbl.showdown()

	assert.Equal(t, 1100, alice.Chips)
	assert.Equal(t, 900, bob.Chips)
	assert.Equal(t, Waiting, tbl.phase)

	event, ok := pub.lastBroadcast(EventHandResult)
	require.True(t, ok)
	result := event.Data.(HandResult)
	assert.Equal(t, "alice", result.WinnerID)
	assert.Equal(t, 200, result.PayoutTotal)
	require.Len(t, result.RevealedHands, 2)
	assert.Equal(t, "Three of a Kind", result.RevealedHands[0].CategoryName)
}

func TestShowdownSplitsExactTies(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob")
	alice, bob := tbl.players[0], tbl.players[1]

	tbl.phase = River
	tbl.pot = 200
	for _, p := range []*Player{alice, bob} {
		p.InHand = true
		p.HandBet = 100
		p.Chips = 900
	}
	// The board is a royal flush; both players play the board
	tbl.community = []deck.Card{
		deck.NewCard(deck.Ace, deck.Spades),
		deck.NewCard(deck.King, deck.Spades),
		deck.NewCard(deck.Queen, deck.Spades),
		deck.NewCard(deck.Jack, deck.Spades),
		deck.NewCard(deck.Ten, deck.Spades),
	}
	alice.HoleCards = []deck.Card{
		deck.NewCard(deck.Two, deck.Hearts),
		deck.NewCard(deck.Three, deck.Diamonds),
	}
	bob.HoleCards = []deck.Card{
		deck.NewCard(deck.Four, deck.Clubs),
		deck.NewCard(deck.Six, deck.Hearts),
	}

	tbl.showdown()

	assert.Equal(t, 1000, alice.Chips)
	assert.Equal(t, 1000, bob.Chips)
}

func TestShowdownSidePots(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob", "carol")
	alice := tbl.playerByID("alice")
	bob := tbl.playerByID("bob")
	carol := tbl.playerByID("carol")

	tbl.phase = River
	// Alice went all-in short for 50, the others matched 100
	alice.InHand, alice.HandBet, alice.Chips = true, 50, 0
	bob.InHand, bob.HandBet, bob.Chips = true, 100, 900
	carol.InHand, carol.HandBet, carol.Chips = true, 100, 900
	tbl.pot = 250

	// Alice holds the best hand, bob the second best
	tbl.community = []deck.Card{
		deck.NewCard(deck.King, deck.Spades),
		deck.NewCard(deck.King, deck.Hearts),
		deck.NewCard(deck.Nine, deck.Diamonds),
		deck.NewCard(deck.Five, deck.Clubs),
		deck.NewCard(deck.Two, deck.Spades),
	}
	alice.HoleCards = []deck.Card{
		deck.NewCard(deck.King, deck.Diamonds),
		deck.NewCard(deck.King, deck.Clubs),
	}
	bob.HoleCards = []deck.Card{
		deck.NewCard(deck.Nine, deck.Spades),
		deck.NewCard(deck.Nine, deck.Hearts),
	}
	carol.HoleCards = []deck.Card{
		deck.NewCard(deck.Three, deck.Hearts),
		deck.NewCard(deck.Four, deck.Hearts),
	}

	tbl.showdown()

	// Alice wins the 150 main pot, bob the 100 side pot
	assert.Equal(t, 150, alice.Chips)
	assert.Equal(t, 1000, bob.Chips)
	assert.Equal(t, 900, carol.Chips)
}

// A contributor leaving mid-hand must not shrink the payout: their
// chips stay in the pot and the showdown settles all of it.
func TestLeaveMidHandThenShowdownConservesChips(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob", "carol")
	startHandWith(t, tbl)

	// Everyone puts in 20 pre-flop
	require.NoError(t, tbl.submitAction("alice", ActionCall, 0))
	require.NoError(t, tbl.submitAction("bob", ActionCall, 0))
	require.NoError(t, tbl.submitAction("carol", ActionCheck, 0))
	require.Equal(t, Flop, tbl.phase)
	require.Equal(t, 60, tbl.pot)

	require.NoError(t, tbl.removePlayer("alice", "leave"))
	require.Len(t, tbl.players, 2)
	require.Equal(t, 60, tbl.pot)
	total := chipTotal(tbl)

	// The remaining two check down to showdown
	for tbl.phase != Waiting {
		require.NotNil(t, tbl.turn)
		require.NoError(t, tbl.submitAction(tbl.turn.Current().ID, ActionCheck, 0))
	}

	assert.Equal(t, 0, tbl.pot)
	assert.Equal(t, total, chipTotal(tbl))
	assert.Equal(t, total, tbl.playerByID("bob").Chips+tbl.playerByID("carol").Chips)
}

func TestEliminatedPlayerExcludedFromNextHand(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob", "carol")
	tbl.playerByID("carol").Chips = 0
	startHandWith(t, tbl)

	assert.False(t, tbl.playerByID("carol").InHand)
	assert.Empty(t, tbl.playerByID("carol").HoleCards)
	assert.True(t, tbl.playerByID("alice").InHand)
	assert.True(t, tbl.playerByID("bob").InHand)
}

func TestRankingRequest(t *testing.T) {
	tbl, pub := newTestTable(t, "alice", "bob")
	startHandWith(t, tbl)

	require.NoError(t, tbl.sendRanking("alice"))
	event, ok := pub.lastPrivate("alice", EventHandRanking)
	require.True(t, ok)
	update := event.Data.(HandRankingUpdate)
	assert.NotEmpty(t, update.CategoryName)
}

func TestRunOutBoardWhenAllIn(t *testing.T) {
	tbl, _ := newTestTable(t, "alice", "bob")
	startHandWith(t, tbl)
	total := chipTotal(tbl)

	sb, bb := tbl.players[1], tbl.players[0]
	require.NoError(t, tbl.submitAction(sb.ID, ActionAllIn, 0))
	require.NoError(t, tbl.submitAction(bb.ID, ActionAllIn, 0))

	// Both all-in pre-flop: the full board runs out and settles
	assert.Equal(t, Waiting, tbl.phase)
	assert.Equal(t, 0, tbl.pot)
	assert.Equal(t, total, chipTotal(tbl))
	assert.Equal(t, 2000, tbl.players[0].Chips+tbl.players[1].Chips)
}

func TestAutoStartAfterDelay(t *testing.T) {
	pub := newRecordingPublisher()
	mock := quartz.NewMock(t)
	tbl := New("t1", DefaultConfig(), pub, mock, randutil.New(1), log.New(io.Discard), nil)
	tbl.Start()
	defer tbl.Stop()

	tbl.Dispatch(Command{Type: CmdJoin, PlayerID: "alice"})
	tbl.Dispatch(Command{Type: CmdJoin, PlayerID: "bob"})
	tbl.Dispatch(Command{Type: CmdSetReady, PlayerID: "alice", Ready: true})
	tbl.Dispatch(Command{Type: CmdSetReady, PlayerID: "bob", Ready: true})

	// Finish the first hand: seat 1 is the small blind and folds
	tbl.Dispatch(Command{Type: CmdAction, PlayerID: "bob", Action: ActionFold})

	event, ok := pub.lastBroadcast(EventGameState)
	require.True(t, ok)
	require.Equal(t, "waiting", event.Data.(GameStateSnapshot).Phase)

	// Both players are still ready: the next hand deals itself after
	// the configured delay
	mock.Advance(3 * time.Second)
	require.Eventually(t, func() bool {
		event, ok := pub.lastBroadcast(EventGameState)
		return ok && event.Data.(GameStateSnapshot).Phase == "preflop"
	}, time.Second, 5*time.Millisecond)
}

func TestErrorsArePublishedPrivately(t *testing.T) {
	tbl, pub := newTestTable(t, "alice", "bob")
	startHandWith(t, tbl)

	// Big blind tries to act out of turn through the command path
	tbl.handleCommand(Command{Type: CmdAction, PlayerID: "alice", Action: ActionCall})

	event, ok := pub.lastPrivate("alice", EventActionError)
	require.True(t, ok)
	actionErr := event.Data.(ActionError)
	assert.Equal(t, "not_your_turn", actionErr.Code)
}
