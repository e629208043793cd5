package domain

const (
	// DefaultMaxSeats is the seat count used when a table is created without one.
	DefaultMaxSeats = 6

	// MinPlayersToStartRound is the number of seated players needed to deal a hand.
	MinPlayersToStartRound = 2
)
