package domain

// Phase represents the lifecycle stage of a game as advertised to clients.
type Phase string

const (
	// PhaseLobby indicates seats may be taken and no hand is in progress.
	PhaseLobby Phase = "lobby"
	// PhaseBetting indicates a hand is in progress and actions are accepted.
	PhaseBetting Phase = "betting"
)

// GameState is the persisted record for a single game handle.
//
// Players, PlayerBets, Stakes and Folded are parallel slices of length MaxSeats.
// An empty string in Players marks an empty seat.
type GameState struct {
	ID             string   `json:"id"`
	MaxSeats       int      `json:"max_seats"`
	Players        []string `json:"players"`
	PlayerCount    int      `json:"player_count"`
	PlayersInRound int      `json:"players_in_round"`
	SmallBlind     int64    `json:"small_blind"`
	BigBlind       int64    `json:"big_blind"`
	Pot            int64    `json:"pot"`
	PlayerBets     []int64  `json:"player_bets"`
	// Stakes holds the deposit each seat escrowed into the pot when joining.
	Stakes       []int64 `json:"stakes"`
	Folded       []bool  `json:"folded"`
	CurrentBet   int64   `json:"current_bet"`
	BettingRound int     `json:"betting_round"`
	CurrentTurn  int     `json:"current_turn"`
	// DealerSeat is -1 until the first hand is dealt.
	DealerSeat int  `json:"dealer_seat"`
	IsActive   bool `json:"is_active"`
	// Revision increases by one with every committed transition.
	Revision int64 `json:"revision"`
}

// Phase derives the advertised phase from the activity flag.
func (g *GameState) Phase() Phase {
	if g.IsActive {
		return PhaseBetting
	}
	return PhaseLobby
}

// Clone returns a deep copy so transitions never alias the caller's slices.
func (g *GameState) Clone() *GameState {
	out := *g
	out.Players = append([]string(nil), g.Players...)
	out.PlayerBets = append([]int64(nil), g.PlayerBets...)
	out.Stakes = append([]int64(nil), g.Stakes...)
	out.Folded = append([]bool(nil), g.Folded...)
	return &out
}

// SeatOf returns the seat index held by player, or -1.
func (g *GameState) SeatOf(player string) int {
	if player == "" {
		return -1
	}
	for i, p := range g.Players {
		if p == player {
			return i
		}
	}
	return -1
}

// InRound reports whether the seat is occupied and has not folded this hand.
func (g *GameState) InRound(seat int) bool {
	if seat < 0 || seat >= len(g.Players) {
		return false
	}
	return g.Players[seat] != "" && !g.Folded[seat]
}

// TotalContributed returns the sum of stakes and bets currently escrowed.
func (g *GameState) TotalContributed() int64 {
	var total int64
	for i := range g.Players {
		total += g.Stakes[i] + g.PlayerBets[i]
	}
	return total
}

// OpenSeats returns the number of empty seats.
func (g *GameState) OpenSeats() int {
	return g.MaxSeats - g.PlayerCount
}
