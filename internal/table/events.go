package table

import "github.com/Rekiiel/Poker/internal/deck"

// EventType identifies an outbound event
type EventType string

const (
	EventTableRoster EventType = "table_roster"
	EventHoleCards   EventType = "hole_cards"
	EventGameState   EventType = "game_state"
	EventHandRanking EventType = "hand_ranking"
	EventHandResult  EventType = "hand_result"
	EventActionError EventType = "action_error"
	EventLobby       EventType = "lobby_update"
)

// Event is an outbound envelope handed to the Publisher. The engine
// never waits on delivery.
type Event struct {
	Type EventType
	Data interface{}
}

// Publisher is the engine's outbound sink, implemented by the
// transport. Broadcast reaches every occupant of a table, ToPlayer one
// player privately, Lobby every connected client.
type Publisher interface {
	Broadcast(tableID string, event Event)
	ToPlayer(tableID, playerID string, event Event)
	Lobby(event Event)
}

// RosterPlayer is the public view of a seat for lobby display
type RosterPlayer struct {
	ID    string `json:"id"`
	Stack int    `json:"stack"`
}

// TableRosterUpdate is broadcast whenever a table's seating changes
type TableRosterUpdate struct {
	TableID         string         `json:"tableId"`
	Players         []RosterPlayer `json:"players"`
	MatchInProgress bool           `json:"matchInProgress"`
}

// HoleCardsDealt is sent privately to each player at deal time
type HoleCardsDealt struct {
	Cards []deck.Card `json:"cards"`
}

// SnapshotPlayer is the public per-seat state in a snapshot
type SnapshotPlayer struct {
	ID                string `json:"id"`
	Stack             int    `json:"stack"`
	InHand            bool   `json:"inHand"`
	RoundContribution int    `json:"roundContribution"`
	Ready             bool   `json:"ready"`
}

// GameStateSnapshot is broadcast to all occupants after every mutation
type GameStateSnapshot struct {
	TableID        string           `json:"tableId"`
	Pot            int              `json:"pot"`
	CurrentBet     int              `json:"currentBet"`
	Phase          string           `json:"phase"`
	CommunityCards []deck.Card      `json:"communityCards"`
	CurrentActor   string           `json:"currentActor,omitempty"`
	DealerSeat     int              `json:"dealerSeat"`
	BigBlindSeat   int              `json:"bigBlindSeat"`
	Players        []SnapshotPlayer `json:"players"`
}

// HandRankingUpdate tells one player what their current best hand is
type HandRankingUpdate struct {
	CategoryName string      `json:"categoryName"`
	WinningCards []deck.Card `json:"winningCards"`
}

// RevealedHand is one player's holding shown at hand end
type RevealedHand struct {
	PlayerID     string      `json:"playerId"`
	HoleCards    []deck.Card `json:"holeCards"`
	CategoryName string      `json:"categoryName"`
	WinningCards []deck.Card `json:"winningCards"`
}

// Payout is one player's share of the settled pot
type Payout struct {
	PlayerID string `json:"playerId"`
	Amount   int    `json:"amount"`
}

// HandResult is broadcast when a hand settles. WinnerID and
// PayoutTotal describe the largest share; Payouts carries every share
// when side pots or split pots divide the chips.
type HandResult struct {
	WinnerID      string         `json:"winnerId"`
	PayoutTotal   int            `json:"payout"`
	Payouts       []Payout       `json:"payouts"`
	RevealedHands []RevealedHand `json:"revealedHands"`
}

// ActionError is sent privately when a command is rejected
type ActionError struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// LobbyTable summarises one table for the lobby listing
type LobbyTable struct {
	TableID         string         `json:"tableId"`
	Players         []RosterPlayer `json:"players"`
	MatchInProgress bool           `json:"matchInProgress"`
}

// LobbyUpdate lists every open table, broadcast to all clients
type LobbyUpdate struct {
	Tables []LobbyTable `json:"tables"`
}
