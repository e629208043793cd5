package app

// Op names an operation a caller can submit against a game.
type Op string

const (
	OpInitialize   Op = "initialize"
	OpJoin         Op = "join"
	OpStartRound   Op = "start_round"
	OpBet          Op = "bet"
	OpCall         Op = "call"
	OpFold         Op = "fold"
	OpRevealWinner Op = "reveal_winner"
	OpEndGame      Op = "end_game"
)

// Command is a single operation submitted by Actor against the game GameID.
// Only the fields relevant to Op are read.
type Command struct {
	Op         Op     `json:"op"`
	GameID     string `json:"game_id"`
	Actor      string `json:"-"`
	Amount     int64  `json:"amount,omitempty"`
	Winner     string `json:"winner,omitempty"`
	SmallBlind int64  `json:"small_blind,omitempty"`
	BigBlind   int64  `json:"big_blind,omitempty"`
	MaxSeats   int    `json:"max_seats,omitempty"`
}
