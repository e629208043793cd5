package domain

import "fmt"

// LowestAvailableSeat returns the first empty seat index, or -1 when every seat is taken.
func LowestAvailableSeat(seats []string) int {
	for i, userID := range seats {
		if userID == "" {
			return i
		}
	}
	return -1
}

// NextInRound walks clockwise from seat and returns the next seated, unfolded seat.
// The starting seat itself is only considered after a full lap.
func (g *GameState) NextInRound(from int) (int, error) {
	n := len(g.Players)
	if n == 0 {
		return -1, ErrNoActivePlayers
	}
	next := from
	for i := 0; i < n; i++ {
		next = (next + 1) % n
		if next < 0 {
			next += n
		}
		if g.InRound(next) {
			return next, nil
		}
	}
	return -1, ErrNoActivePlayers
}

// LabelPayload holds the values advertised in a match label.
type LabelPayload struct {
	Open  int    `json:"open"`
	Game  string `json:"game"`
	Phase string `json:"phase"`
	// Table is the blind tier the game was created for.
	Table string `json:"table"`
}

// ComputeLabel derives the advertised label from game state and its table tier.
func ComputeLabel(g *GameState, table string) LabelPayload {
	open := 0
	if !g.IsActive {
		open = g.OpenSeats()
	}
	return LabelPayload{Open: open, Game: "poker", Phase: string(g.Phase()), Table: table}
}

// Validate checks every structural and money invariant of the record.
func (g *GameState) Validate() error {
	n := g.MaxSeats
	if len(g.Players) != n || len(g.PlayerBets) != n || len(g.Stakes) != n || len(g.Folded) != n {
		return fmt.Errorf("seat slices do not match max seats %d", n)
	}
	if g.SmallBlind <= 0 || g.BigBlind < g.SmallBlind {
		return fmt.Errorf("blinds %d/%d out of range", g.SmallBlind, g.BigBlind)
	}

	seated, inRound := 0, 0
	seen := make(map[string]bool, n)
	for i, p := range g.Players {
		if g.PlayerBets[i] < 0 || g.Stakes[i] < 0 {
			return fmt.Errorf("seat %d has a negative contribution", i)
		}
		if p == "" {
			if g.PlayerBets[i] != 0 || g.Stakes[i] != 0 || g.Folded[i] {
				return fmt.Errorf("empty seat %d carries state", i)
			}
			continue
		}
		if seen[p] {
			return fmt.Errorf("player %s seated twice", p)
		}
		seen[p] = true
		seated++
		if !g.Folded[i] {
			inRound++
		}
	}
	if seated != g.PlayerCount {
		return fmt.Errorf("player count %d, seated %d", g.PlayerCount, seated)
	}
	if g.PlayersInRound > g.PlayerCount {
		return fmt.Errorf("players in round %d exceeds player count %d", g.PlayersInRound, g.PlayerCount)
	}
	if g.Pot < 0 || g.Pot != g.TotalContributed() {
		return fmt.Errorf("pot %d does not equal contributions %d", g.Pot, g.TotalContributed())
	}
	if g.IsActive {
		if inRound != g.PlayersInRound {
			return fmt.Errorf("players in round %d, unfolded %d", g.PlayersInRound, inRound)
		}
		if !g.InRound(g.CurrentTurn) {
			return fmt.Errorf("current turn %d is not an in-round seat", g.CurrentTurn)
		}
	}
	return nil
}
