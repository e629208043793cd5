package app

// EventKind identifies emitted game events for dispatch.
type EventKind string

const (
	EventGameCreated  EventKind = "game_created"
	EventPlayerJoined EventKind = "player_joined"
	EventRoundStarted EventKind = "round_started"
	EventBetPlaced    EventKind = "bet_placed"
	EventBetCalled    EventKind = "bet_called"
	EventPlayerFolded EventKind = "player_folded"
	EventPotAwarded   EventKind = "pot_awarded"
	EventGameEnded    EventKind = "game_ended"
)

// Event is a committed state change with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // user IDs; empty means broadcast
}

type GameCreatedPayload struct {
	SmallBlind int64 `json:"small_blind"`
	BigBlind   int64 `json:"big_blind"`
	MaxSeats   int   `json:"max_seats"`
}

type PlayerJoinedPayload struct {
	UserID  string `json:"user_id"`
	Seat    int    `json:"seat"`
	Deposit int64  `json:"deposit"`
	Pot     int64  `json:"pot"`
}

type RoundStartedPayload struct {
	DealerSeat     int   `json:"dealer_seat"`
	SmallBlindSeat int   `json:"small_blind_seat"`
	BigBlindSeat   int   `json:"big_blind_seat"`
	CurrentBet     int64 `json:"current_bet"`
	FirstTurnSeat  int   `json:"first_turn_seat"`
}

// BetPayload is shared by bet_placed and bet_called.
type BetPayload struct {
	UserID       string `json:"user_id"`
	Seat         int    `json:"seat"`
	Amount       int64  `json:"amount"`
	CurrentBet   int64  `json:"current_bet"`
	Pot          int64  `json:"pot"`
	NextTurnSeat int    `json:"next_turn_seat"`
}

type PlayerFoldedPayload struct {
	UserID         string `json:"user_id"`
	Seat           int    `json:"seat"`
	PlayersInRound int    `json:"players_in_round"`
	// NextTurnSeat is -1 when the fold ended the round.
	NextTurnSeat int `json:"next_turn_seat"`
}

type PotAwardedPayload struct {
	UserID string `json:"user_id"`
	Seat   int    `json:"seat"`
	Amount int64  `json:"amount"`
	// Uncontested is true when every other player folded.
	Uncontested bool `json:"uncontested"`
}

type GameEndedPayload struct {
	Refunds map[string]int64 `json:"refunds"`
}
