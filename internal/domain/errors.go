package domain

import "errors"

var (
	ErrInvalidConfig     = errors.New("invalid game configuration")
	ErrSeatsFull         = errors.New("all seats are taken")
	ErrAlreadySeated     = errors.New("player already seated")
	ErrRoundInProgress   = errors.New("round in progress")
	ErrInvalidDeposit    = errors.New("deposit must be positive")
	ErrNotEnoughPlayers  = errors.New("not enough players to start a round")
	ErrAlreadyActive     = errors.New("round already active")
	ErrOutOfTurn         = errors.New("not this player's turn")
	ErrRoundInactive     = errors.New("no active round")
	ErrInvalidAmount     = errors.New("bet amount does not reach the current bet")
	ErrNothingToCall     = errors.New("nothing to call")
	ErrUnknownWinner     = errors.New("winner is not seated")
	ErrWinnerFolded      = errors.New("winner has folded")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoActivePlayers   = errors.New("no active players")

	ErrGameNotFound     = errors.New("game not found")
	ErrGameExists       = errors.New("game already exists")
	ErrRevisionConflict = errors.New("game state was modified concurrently")
	ErrUnknownOperation = errors.New("unknown operation")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidConfig, "invalid_config"},
	{ErrSeatsFull, "seats_full"},
	{ErrAlreadySeated, "already_seated"},
	{ErrRoundInProgress, "round_in_progress"},
	{ErrInvalidDeposit, "invalid_deposit"},
	{ErrNotEnoughPlayers, "not_enough_players"},
	{ErrAlreadyActive, "already_active"},
	{ErrOutOfTurn, "out_of_turn"},
	{ErrRoundInactive, "round_inactive"},
	{ErrInvalidAmount, "invalid_amount"},
	{ErrNothingToCall, "nothing_to_call"},
	{ErrUnknownWinner, "unknown_winner"},
	{ErrWinnerFolded, "winner_folded"},
	{ErrInsufficientFunds, "insufficient_funds"},
	{ErrNoActivePlayers, "no_active_players"},
	{ErrGameNotFound, "game_not_found"},
	{ErrGameExists, "game_exists"},
	{ErrRevisionConflict, "revision_conflict"},
	{ErrUnknownOperation, "unknown_operation"},
}

// ErrorCode maps an error (possibly wrapped) to a stable code for clients.
// Errors outside the game taxonomy map to "internal".
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "internal"
}

// IsRejection reports whether err is a rule violation rather than an infrastructure failure.
func IsRejection(err error) bool {
	code := ErrorCode(err)
	return code != "" && code != "internal" && code != "revision_conflict"
}
