package nakama

const (
	// MatchNamePokerTable is the authoritative match handler name registered with Nakama.
	MatchNamePokerTable = "poker_table"

	// GameCollection holds one system-owned storage object per game handle.
	GameCollection = "poker_games"

	// systemUserID owns game records in storage.
	systemUserID = "00000000-0000-0000-0000-000000000000"
)

// RPC ids.
const (
	RpcInitialize   = "poker_initialize"
	RpcJoin         = "poker_join"
	RpcStartRound   = "poker_start_round"
	RpcBet          = "poker_bet"
	RpcCall         = "poker_call"
	RpcFold         = "poker_fold"
	RpcRevealWinner = "poker_reveal_winner"
	RpcEndGame      = "poker_end_game"
	RpcGetState     = "poker_get_state"
	RpcQuickMatch   = "poker_quick_match"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpJoin         int64 = 1
	OpStartRound   int64 = 2
	OpBet          int64 = 3
	OpCall         int64 = 4
	OpFold         int64 = 5
	OpRevealWinner int64 = 6
	OpEndGame      int64 = 7

	// Server -> Client events
	OpStateSnapshot int64 = 100
	OpPlayerJoined  int64 = 101
	OpRoundStarted  int64 = 102
	OpBetPlaced     int64 = 103
	OpBetCalled     int64 = 104
	OpPlayerFolded  int64 = 105
	OpPotAwarded    int64 = 106
	OpGameEnded     int64 = 107
	OpGameCreated   int64 = 108
	OpGameError     int64 = 109 // sent privately
)
