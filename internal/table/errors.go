package table

import "errors"

// Command rejection reasons. All of these are recoverable at the
// single-command level: the command is refused, the issuing player is
// told privately, and table state is left untouched.
var (
	ErrNotYourTurn        = errors.New("not your turn")
	ErrPlayerNotInHand    = errors.New("you are not in this hand")
	ErrBelowMinimumBet    = errors.New("amount is below the required minimum")
	ErrAboveMaximumBet    = errors.New("amount exceeds your stack")
	ErrInsufficientFunds  = errors.New("not enough chips")
	ErrTableFull          = errors.New("table is full")
	ErrTableNotFound      = errors.New("table not found")
	ErrNotEnoughPlayers   = errors.New("not enough players to start")
	ErrUnknownAction      = errors.New("unknown action")
	ErrPlayerNotAtTable   = errors.New("player is not seated at this table")
	ErrAlreadySeated      = errors.New("player is already seated at this table")
)

// errorCode maps a rejection to the wire-level code clients switch on.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, ErrPlayerNotInHand):
		return "player_not_in_hand"
	case errors.Is(err, ErrBelowMinimumBet):
		return "below_minimum_bet"
	case errors.Is(err, ErrAboveMaximumBet):
		return "above_maximum_bet"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrTableFull):
		return "table_full"
	case errors.Is(err, ErrTableNotFound):
		return "table_not_found"
	case errors.Is(err, ErrNotEnoughPlayers):
		return "not_enough_players"
	case errors.Is(err, ErrUnknownAction):
		return "unknown_action"
	case errors.Is(err, ErrPlayerNotAtTable):
		return "player_not_at_table"
	case errors.Is(err, ErrAlreadySeated):
		return "already_seated"
	default:
		return "internal_error"
	}
}
