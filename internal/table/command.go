package table

// CommandType identifies an inbound command
type CommandType string

const (
	CmdJoin       CommandType = "join"
	CmdLeave      CommandType = "leave"
	CmdSetReady   CommandType = "set_ready"
	CmdAction     CommandType = "action"
	CmdRanking    CommandType = "ranking"
	CmdDisconnect CommandType = "disconnect"
)

// ActionType is a betting action submitted by the acting player
type ActionType string

const (
	ActionCheck ActionType = "check"
	ActionBet   ActionType = "bet"
	ActionCall  ActionType = "call"
	ActionRaise ActionType = "raise"
	ActionAllIn ActionType = "allin"
	ActionFold  ActionType = "fold"
)

// Command is a validated inbound envelope. The transport fills it from
// the wire; the engine trusts the IDs but validates everything else.
type Command struct {
	Type     CommandType
	TableID  string
	PlayerID string
	Action   ActionType
	Amount   int
	Ready    bool
}
